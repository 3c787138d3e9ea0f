package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/viper"

	"github.com/JohanCodinha/ghfeedback/internal/cache"
	"github.com/JohanCodinha/ghfeedback/internal/config"
	"github.com/JohanCodinha/ghfeedback/internal/delivery"
	"github.com/JohanCodinha/ghfeedback/internal/feedback"
	"github.com/JohanCodinha/ghfeedback/internal/gh"
	"github.com/JohanCodinha/ghfeedback/internal/logger"
	"github.com/JohanCodinha/ghfeedback/internal/notify"
	"github.com/JohanCodinha/ghfeedback/internal/session"
	"github.com/JohanCodinha/ghfeedback/internal/sync"
)

// app holds the components shared by the commands of one invocation.
type app struct {
	cfg         *config.Config
	v           *viper.Viper
	token       string
	store       *cache.DB
	outstanding *session.Outstanding
	sink        notify.Sink
	engine      *sync.Engine
}

func openApp(opts *rootOptions, out io.Writer) (*app, error) {
	cfg, err := opts.load()
	if err != nil {
		return nil, err
	}

	token := cfg.Token
	if token == "" {
		if t, err := gh.GetToken(); err == nil {
			token = t
		} else {
			logger.Warn("continuing without a GitHub token: %v", err)
		}
	}

	if err := os.MkdirAll(filepath.Dir(cfg.CachePath), 0755); err != nil {
		return nil, fmt.Errorf("failed to create cache directory: %w", err)
	}
	store, err := cache.InitDB(cfg.CachePath)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize cache: %w", err)
	}
	logger.Debug("cache opened at %s", cfg.CachePath)

	tracker := gh.New(token,
		gh.WithBaseURL(cfg.APIURL),
		gh.WithUserAgent(cfg.UserAgent),
		gh.WithRateLimit(cfg.Sync.RequestsPerSecond),
	)
	lister, err := gh.NewOwnIssues(token, cfg.APIURL, cfg.Owner(), cfg.Name(), cfg.Login)
	if err != nil {
		store.Close()
		return nil, err
	}

	a := &app{
		cfg:         cfg,
		v:           opts.v,
		token:       token,
		store:       store,
		outstanding: session.NewOutstanding(),
		sink:        notify.NewConsole(out),
	}

	a.engine, err = sync.NewEngine(store, tracker, lister, cfg.Repo,
		sync.WithConfig(sync.Config{
			Cooldown:          cfg.Sync.Cooldown,
			UpdateInterval:    cfg.Sync.UpdateInterval,
			MaxDuplicateDepth: cfg.Sync.MaxDuplicateDepth,
			FeedbackLabels:    cfg.Sync.FeedbackLabels,
			Maintainers:       cfg.Sync.Maintainers,
		}),
		sync.WithSink(a.sink),
		sync.WithOutstanding(a.outstanding),
		sync.WithRunLog(store),
	)
	if err != nil {
		store.Close()
		return nil, err
	}
	a.restoreSession()
	return a, nil
}

// restoreSession reloads the outstanding list left by the previous invocation.
// A refresh skipped by the cooldown then still knows what waits for a reply.
func (a *app) restoreSession() {
	data, ok, err := a.store.GetMeta(cache.MetaOutstanding)
	if err != nil || !ok {
		if err != nil {
			logger.Warn("failed to read session: %v", err)
		}
		return
	}
	if err := json.Unmarshal([]byte(data), a.outstanding); err != nil {
		logger.Warn("ignoring unreadable session: %v", err)
	}
}

func (a *app) Close() {
	if data, err := json.Marshal(a.outstanding); err != nil {
		logger.Warn("failed to encode session: %v", err)
	} else if err := a.store.PutMeta(cache.MetaOutstanding, string(data)); err != nil {
		logger.Warn("failed to save session: %v", err)
	}
	if err := a.store.Close(); err != nil {
		logger.Warn("failed to close cache: %v", err)
	}
}

func (a *app) deliverer() (feedback.Deliverer, error) {
	if a.cfg.Feedback.Delivery == config.DeliveryOutbox {
		return delivery.NewOutbox(a.cfg.Feedback.OutboxDir), nil
	}
	return delivery.NewGitHub(a.token, a.cfg.APIURL, a.cfg.Owner(), a.cfg.Name())
}

func (a *app) coordinator() (*feedback.Coordinator, error) {
	d, err := a.deliverer()
	if err != nil {
		return nil, err
	}

	logFiles := a.cfg.Feedback.LogFiles
	if len(logFiles) == 0 && logger.LogFile() != "" {
		logFiles = []string{logger.LogFile()}
	}

	return feedback.NewCoordinator(a.store, a.outstanding, d, delivery.Token(a.token), a.sink,
		feedback.WithConfig(feedback.Config{
			MaxAttachmentBytes: a.cfg.Feedback.MaxAttachmentBytes,
			MinMessageLength:   a.cfg.Feedback.MinMessageLength,
			AppVersion:         a.cfg.AppVersion,
			LogFiles:           logFiles,
			NetLogFile:         a.cfg.Feedback.NetLogFile,
		}),
		feedback.WithSnapshotter(snapshotter{v: a.v, store: a.store, outstanding: a.outstanding}),
	), nil
}

// snapshotter dumps the data behind the session, settings and state sources.
type snapshotter struct {
	v           *viper.Viper
	store       cache.Store
	outstanding *session.Outstanding
}

type outstandingSnapshot struct {
	Number        int    `json:"number"`
	Title         string `json:"title"`
	URL           string `json:"url"`
	CommentAuthor string `json:"comment_author"`
	CommentedAt   string `json:"commented_at"`
}

var secretSettings = []string{"token"}

func (s snapshotter) Snapshot(_ context.Context, source feedback.Source) (interface{}, error) {
	switch source {
	case feedback.SourceSession:
		var out []outstandingSnapshot
		for _, o := range s.outstanding.List() {
			out = append(out, outstandingSnapshot{
				Number:        o.Number(),
				Title:         o.Issue.Title,
				URL:           o.Issue.HTMLURL,
				CommentAuthor: o.LastDevComment.User.Login,
				CommentedAt:   o.LastDevComment.CreatedAt.UTC().Format("2006-01-02T15:04:05Z"),
			})
		}
		return map[string]interface{}{"outstanding": out}, nil
	case feedback.SourceSettings:
		settings := s.v.AllSettings()
		for _, key := range secretSettings {
			if v, ok := settings[key]; ok && v != "" {
				settings[key] = "<redacted>"
			}
		}
		return settings, nil
	case feedback.SourceState:
		return s.store.All()
	default:
		return nil, fmt.Errorf("%w: %s", feedback.ErrSourceUnavailable, source)
	}
}
