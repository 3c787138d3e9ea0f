// Package sync keeps the issue cache fresh and detects issues waiting on the
// reporter.
package sync

import (
	"context"
	"fmt"
	"strings"
	gosync "sync"
	"time"

	"github.com/JohanCodinha/ghfeedback/internal/cache"
	"github.com/JohanCodinha/ghfeedback/internal/gh"
	"github.com/JohanCodinha/ghfeedback/internal/logger"
	"github.com/JohanCodinha/ghfeedback/internal/notify"
	"github.com/JohanCodinha/ghfeedback/internal/session"
)

var log = logger.Named("sync")

// Config holds the tunables of a refresh.
type Config struct {
	// Cooldown is the minimum time between two refreshes, forced or not.
	Cooldown time.Duration
	// UpdateInterval is how old a cache entry may get before it is refetched.
	UpdateInterval time.Duration
	// MaxDuplicateDepth bounds duplicate redirect chains.
	MaxDuplicateDepth int
	// FeedbackLabels are the labels signalling a maintainer waits on the reporter.
	FeedbackLabels []string
	// Maintainers are the logins whose comments count as maintainer requests.
	// When empty, any comment not written by the issue author counts.
	Maintainers []string
}

// DefaultConfig returns the production defaults.
func DefaultConfig() Config {
	return Config{
		Cooldown:          60 * time.Second,
		UpdateInterval:    24 * time.Hour,
		MaxDuplicateDepth: DefaultMaxDuplicateDepth,
		FeedbackLabels:    []string{"help wanted", "waiting for reply"},
	}
}

// Outcome summarizes one Refresh call.
type Outcome struct {
	// Skipped is set when the call fell inside the cooldown or overlapped
	// another refresh. Nothing else is set in that case.
	Skipped bool
	// Listed is the number of ids the lister returned.
	Listed int
	// Refreshed holds the resolved numbers written to the cache, in order.
	Refreshed []int
	// Failed maps requested ids to the error that made them skip.
	Failed map[int]error
	// Notified holds the URLs included in the reply-needed notification.
	Notified []string
}

// RunLog keeps the time of the last refresh beyond the life of one Engine, so
// the cooldown also holds across processes sharing a cache.
type RunLog interface {
	LastRefresh() (time.Time, error)
	SetLastRefresh(t time.Time) error
}

// Engine refreshes cached issues from the tracker.
type Engine struct {
	store       cache.Store
	tracker     Tracker
	lister      IssueLister
	resolver    *Resolver
	outstanding *session.Outstanding
	sink        notify.Sink
	runLog      RunLog
	owner       string
	repo        string
	cfg         Config
	now         func() time.Time

	mu      gosync.Mutex
	running bool
	lastRun time.Time
}

// Option configures an Engine.
type Option func(*Engine)

// WithConfig replaces the default configuration.
func WithConfig(cfg Config) Option {
	return func(e *Engine) { e.cfg = cfg }
}

// WithSink sets where notifications go.
func WithSink(sink notify.Sink) Option {
	return func(e *Engine) { e.sink = sink }
}

// WithOutstanding shares the session's outstanding list with the engine.
func WithOutstanding(o *session.Outstanding) Option {
	return func(e *Engine) { e.outstanding = o }
}

// WithRunLog seeds the cooldown from l and records every refresh start in it.
func WithRunLog(l RunLog) Option {
	return func(e *Engine) { e.runLog = l }
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// NewEngine creates a sync engine for repo, which must be in "owner/repo" format.
func NewEngine(store cache.Store, tracker Tracker, lister IssueLister, repo string, opts ...Option) (*Engine, error) {
	owner, repoName, err := ParseRepo(repo)
	if err != nil {
		return nil, err
	}

	e := &Engine{
		store:       store,
		tracker:     tracker,
		lister:      lister,
		outstanding: session.NewOutstanding(),
		sink:        &notify.Recorder{},
		owner:       owner,
		repo:        repoName,
		cfg:         DefaultConfig(),
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	e.resolver = NewResolver(tracker, owner, repoName, e.cfg.MaxDuplicateDepth)
	return e, nil
}

// ParseRepo splits "owner/repo" into owner and repo name.
func ParseRepo(repo string) (string, string, error) {
	parts := strings.SplitN(repo, "/", 2)
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", fmt.Errorf("invalid repo format %q: must be owner/repo", repo)
	}
	return parts[0], parts[1], nil
}

// Outstanding returns the session list the engine records into.
func (e *Engine) Outstanding() *session.Outstanding {
	return e.outstanding
}

// Refresh brings stale cache entries up to date.
//
// A call within the cooldown of the previous one, or while another refresh
// runs, returns immediately with Outcome.Skipped set. Ids are processed one
// at a time in list order; a failing id is logged and skipped. When the list
// of ids cannot be obtained the error wraps ErrListUnavailable.
func (e *Engine) Refresh(ctx context.Context, force bool) (Outcome, error) {
	if !e.begin() {
		log.Debug("refresh skipped: cooldown or already running")
		return Outcome{Skipped: true}, nil
	}
	defer e.end()

	activity := notify.NewID()
	e.sink.StartActivity(activity, "Checking your reported issues")
	defer e.sink.Dismiss(activity)

	ids, err := e.lister.ListOwnIssueIDs(ctx)
	if err != nil {
		log.Warn("failed to get list of issues: %v", err)
		return Outcome{}, fmt.Errorf("%w: %w", ErrListUnavailable, err)
	}

	out := Outcome{Listed: len(ids), Failed: make(map[int]error)}
	now := e.now()
	log.Debug("refreshing %d issues of %s/%s (force=%v)", len(ids), e.owner, e.repo, force)

	for _, id := range ids {
		if !e.isStale(id, now, force) {
			continue
		}

		res, err := e.refreshIssue(ctx, id)
		if err != nil {
			log.Warn("failed to refresh issue #%d: %v", id, err)
			out.Failed[id] = err
			continue
		}

		out.Refreshed = append(out.Refreshed, res.number)
		if res.notifyURL != "" {
			out.Notified = append(out.Notified, res.notifyURL)
		}
	}

	if len(out.Notified) > 0 {
		e.notifyReplyNeeded(out.Notified)
	}

	log.Info("refresh done: %d listed, %d refreshed, %d failed",
		out.Listed, len(out.Refreshed), len(out.Failed))
	return out, nil
}

func (e *Engine) begin() bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	now := e.now()
	if e.running {
		return false
	}

	last := e.lastRun
	if e.runLog != nil {
		t, err := e.runLog.LastRefresh()
		if err != nil {
			log.Warn("failed to read last refresh time: %v", err)
		} else if t.After(last) {
			last = t
		}
	}
	if !last.IsZero() && now.Sub(last) < e.cfg.Cooldown {
		return false
	}

	e.running = true
	e.lastRun = now
	if e.runLog != nil {
		if err := e.runLog.SetLastRefresh(now); err != nil {
			log.Warn("failed to record refresh time: %v", err)
		}
	}
	return true
}

func (e *Engine) end() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.running = false
}

// isStale reports whether the entry cached for id must be refetched.
func (e *Engine) isStale(id int, now time.Time, force bool) bool {
	if force {
		return true
	}
	entry, ok, err := e.store.Get(cache.Key(id))
	if err != nil {
		log.Warn("failed to read cache entry #%d: %v", id, err)
		return true
	}
	if !ok || entry.CacheTime.IsZero() {
		return true
	}
	return now.Sub(entry.CacheTime) > e.cfg.UpdateInterval
}

type issueResult struct {
	number    int
	notifyURL string
}

// refreshIssue fetches and resolves one id and writes the cache entry of the
// resolved issue.
func (e *Engine) refreshIssue(ctx context.Context, id int) (issueResult, error) {
	issue, err := e.tracker.GetIssue(ctx, e.owner, e.repo, id)
	if err != nil {
		return issueResult{}, err
	}

	resolved, err := e.resolver.Resolve(ctx, issue)
	if err != nil {
		return issueResult{}, err
	}

	prev := e.previousEntry(resolved.Number, id)
	replyRequired := e.replyRequired(resolved)
	notificationNeeded := replyRequired && !prev.NotifiedForReply

	entry := cache.FromIssue(resolved, e.now())
	entry.NotifiedForReply = prev.NotifiedForReply || notificationNeeded
	entry.LastCommentResponse = prev.LastCommentResponse

	if err := e.store.Put(entry.Key(), entry); err != nil {
		return issueResult{}, fmt.Errorf("failed to cache issue #%d: %w", entry.Number, err)
	}

	res := issueResult{number: entry.Number}
	if notificationNeeded {
		res.notifyURL = resolved.HTMLURL
	}

	if replyRequired {
		e.trackOutstanding(ctx, resolved, entry.LastCommentResponse)
	} else if e.outstanding.Remove(resolved.Number) {
		log.Debug("#%d no longer waits for a reply", resolved.Number)
	}

	return res, nil
}

// previousEntry returns the bookkeeping of the resolved issue, falling back to
// the entry of the requested id.
func (e *Engine) previousEntry(resolved, requested int) cache.Entry {
	for _, n := range []int{resolved, requested} {
		entry, ok, err := e.store.Get(cache.Key(n))
		if err != nil {
			log.Warn("failed to read cache entry #%d: %v", n, err)
			continue
		}
		if ok {
			return entry
		}
	}
	return cache.Entry{}
}

func (e *Engine) replyRequired(issue *gh.Issue) bool {
	for _, label := range e.cfg.FeedbackLabels {
		if issue.HasLabel(label) {
			return true
		}
	}
	return false
}

// trackOutstanding records issue as outstanding when a maintainer commented
// after the last response. Failures only cost the outstanding record.
func (e *Engine) trackOutstanding(ctx context.Context, issue *gh.Issue, lastResponse time.Time) {
	comments, err := e.tracker.ListComments(ctx, issue.CommentsURL)
	if err != nil {
		log.Warn("failed to read comments of #%d: %v", issue.Number, err)
		return
	}

	dev, ok := e.lastDevComment(issue, comments)
	if !ok {
		log.Debug("#%d waits for a reply but has no maintainer comment", issue.Number)
		return
	}

	if !dev.CreatedAt.After(lastResponse) {
		e.outstanding.Remove(issue.Number)
		return
	}

	e.outstanding.Upsert(session.OutstandingIssue{Issue: *issue, LastDevComment: dev})
	log.Debug("#%d is outstanding (maintainer comment at %s)", issue.Number, dev.CreatedAt.Format(time.RFC3339))
}

// lastDevComment returns the most recent comment written by a maintainer.
func (e *Engine) lastDevComment(issue *gh.Issue, comments []gh.Comment) (gh.Comment, bool) {
	for i := len(comments) - 1; i >= 0; i-- {
		if e.isMaintainer(issue, comments[i].User.Login) {
			return comments[i], true
		}
	}
	return gh.Comment{}, false
}

func (e *Engine) isMaintainer(issue *gh.Issue, login string) bool {
	if login == "" {
		return false
	}
	if len(e.cfg.Maintainers) == 0 {
		return issue.User == nil || issue.User.Login != login
	}
	for _, m := range e.cfg.Maintainers {
		if m == login {
			return true
		}
	}
	return false
}

func (e *Engine) notifyReplyNeeded(urls []string) {
	actions := make([]notify.Action, 0, len(urls)+1)
	for _, u := range urls {
		actions = append(actions, notify.Action{Label: "Open", URL: u})
	}
	actions = append(actions, notify.Action{Label: "Close"})

	e.sink.ShowInfo("You've received feedback response", &notify.Action{Label: "More", URL: urls[0]})
	e.sink.ShowDialog(notify.DialogInfo, "You've received feedback response",
		"The developers require your assistance with a bug or suggestion you submitted. "+
			"To view the response open any of the links below:\n"+strings.Join(urls, "\n"),
		actions)
}
