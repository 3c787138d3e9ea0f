// Package feedback coordinates the reporter's response to a maintainer: the
// attachments, the delivery, and the bookkeeping once it is sent.
package feedback

import (
	"context"
	"errors"
	"fmt"
	gosync "sync"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/JohanCodinha/ghfeedback/internal/cache"
	"github.com/JohanCodinha/ghfeedback/internal/logger"
	"github.com/JohanCodinha/ghfeedback/internal/notify"
	"github.com/JohanCodinha/ghfeedback/internal/session"
)

var log = logger.Named("feedback")

// DefaultMaxAttachmentBytes is the combined attachment budget.
const DefaultMaxAttachmentBytes int64 = 20 * 1024 * 1024

const historySize = 100

// Config holds the tunables of the coordinator.
type Config struct {
	MaxAttachmentBytes int64
	MinMessageLength   int
	AppVersion         string
	LogFiles           []string
	NetLogFile         string
}

// DefaultConfig returns the production defaults.
func DefaultConfig() Config {
	return Config{
		MaxAttachmentBytes: DefaultMaxAttachmentBytes,
		MinMessageLength:   DefaultMinMessageLength,
		AppVersion:         "dev",
	}
}

// HistoryEntry is one applied event, kept for the action history source.
type HistoryEntry struct {
	Time  time.Time `json:"time"`
	Event string    `json:"event"`
	Issue int       `json:"issue,omitempty"`
	Phase string    `json:"phase"`
}

// Result describes a finished submission.
type Result struct {
	Issue     int
	Delivered bool
	Anonymous bool
	// MayClose is set when no outstanding issue is left to answer.
	MayClose bool
	// Cleanup holds the non-fatal failure to remove temporary attachments.
	Cleanup error
}

// Coordinator owns the single response being composed. Events are applied
// one at a time in arrival order.
type Coordinator struct {
	store       cache.Store
	outstanding *session.Outstanding
	deliverer   Deliverer
	creds       Credentials
	sink        notify.Sink
	fs          FileSystem
	snapshots   Snapshotter
	sysinfo     func() SystemInfo
	now         func() time.Time
	cfg         Config

	mu      gosync.Mutex
	state   State
	history []HistoryEntry
}

// Option configures a Coordinator.
type Option func(*Coordinator)

// WithConfig replaces the default configuration.
func WithConfig(cfg Config) Option {
	return func(c *Coordinator) { c.cfg = cfg }
}

// WithFileSystem replaces the local disk.
func WithFileSystem(fs FileSystem) Option {
	return func(c *Coordinator) { c.fs = fs }
}

// WithSnapshotter sets the provider of state dumps.
func WithSnapshotter(s Snapshotter) Option {
	return func(c *Coordinator) { c.snapshots = s }
}

// WithSystemInfo overrides how the report header is obtained.
func WithSystemInfo(f func() SystemInfo) Option {
	return func(c *Coordinator) { c.sysinfo = f }
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(c *Coordinator) { c.now = now }
}

// NewCoordinator creates a coordinator that answers the issues listed in outstanding.
func NewCoordinator(store cache.Store, outstanding *session.Outstanding, deliverer Deliverer, creds Credentials, sink notify.Sink, opts ...Option) *Coordinator {
	c := &Coordinator{
		store:       store,
		outstanding: outstanding,
		deliverer:   deliverer,
		creds:       creds,
		sink:        sink,
		fs:          OSFileSystem{},
		now:         time.Now,
		cfg:         DefaultConfig(),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.sysinfo == nil {
		version := c.cfg.AppVersion
		c.sysinfo = func() SystemInfo { return CurrentSystemInfo(version) }
	}
	return c
}

// State returns the current snapshot.
func (c *Coordinator) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// History returns the recently applied events, oldest first.
func (c *Coordinator) History() []HistoryEntry {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]HistoryEntry(nil), c.history...)
}

func (c *Coordinator) dispatch(ev Event) (State, error) {
	_, next, err := c.apply(ev)
	return next, err
}

// apply reduces ev and returns the state it replaced along with the new one.
func (c *Coordinator) apply(ev Event) (State, State, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	prev := c.state
	next, err := Reduce(prev, ev)
	if err != nil {
		return prev, prev, err
	}
	c.state = next

	c.history = append(c.history, HistoryEntry{
		Time:  c.now(),
		Event: ev.name(),
		Issue: next.Issue,
		Phase: next.Phase.String(),
	})
	if len(c.history) > historySize {
		c.history = c.history[len(c.history)-historySize:]
	}
	return prev, next, nil
}

// Select picks the outstanding issue to respond to.
func (c *Coordinator) Select(number int) error {
	if _, ok := c.outstanding.Find(number); !ok {
		return fmt.Errorf("%w: #%d", ErrNotOutstanding, number)
	}
	_, err := c.dispatch(SelectIssue{Number: number})
	return err
}

// SetMessage replaces the message text. The returned error reports whether
// the text is valid; the text is kept either way.
func (c *Coordinator) SetMessage(text string) error {
	if _, err := c.dispatch(SetMessage{Text: text}); err != nil {
		return err
	}
	return ValidateMessage(text, c.cfg.MinMessageLength)
}

// SetAnonymous asks for the response to be sent without identifying the user.
func (c *Coordinator) SetAnonymous(anonymous bool) error {
	_, err := c.dispatch(SetAnonymous{Anonymous: anonymous})
	return err
}

// Attach adds a file, replacing any earlier attachment with the same filename.
// A replaced system-generated file is deleted.
func (c *Coordinator) Attach(f File) error {
	prev, _, err := c.apply(AttachFile{File: f, Budget: c.cfg.MaxAttachmentBytes})
	if errors.Is(err, ErrAttachmentTooLarge) {
		c.sink.ShowError("Attachment too big",
			fmt.Sprintf("Sorry, the combined file size must not exceed %s", humanize.IBytes(uint64(c.cfg.MaxAttachmentBytes))), notify.NewID())
	}
	if err != nil {
		return err
	}
	if old, ok := prev.File(f.Filename); ok && old.FilePath != f.FilePath {
		c.discard([]File{old})
	}
	return nil
}

// AttachPath attaches an existing file picked by the user.
func (c *Coordinator) AttachPath(path string) error {
	info, err := c.fs.Stat(path)
	if err != nil {
		return fmt.Errorf("failed to stat %s: %w", path, err)
	}
	if info.IsDir() {
		return fmt.Errorf("%s is a directory", path)
	}
	return c.Attach(File{Filename: info.Name(), FilePath: path, Kind: KindUser, Size: info.Size()})
}

// Include attaches the content of a system source. Temporary files that could
// not be attached are removed again.
func (c *Coordinator) Include(ctx context.Context, source Source) error {
	entry, ok := sources[source]
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownSource, source)
	}
	if entry.generated && !c.carriesFiles() {
		return fmt.Errorf("%w: %s", ErrFilesNotCarried, source)
	}

	files, err := entry.handle(ctx, c, source, entry.name)
	if err != nil {
		return err
	}

	for i, f := range files {
		if err := c.Attach(f); err != nil {
			c.discard(files[i:])
			return err
		}
		log.Debug("attached %s (%s, %s)", f.Filename, f.Kind, humanize.IBytes(uint64(f.Size)))
	}
	return nil
}

func (c *Coordinator) carriesFiles() bool {
	if fc, ok := c.deliverer.(FileCarrier); ok {
		return fc.CarriesFiles()
	}
	return true
}

func (c *Coordinator) discard(files []File) {
	for _, f := range files {
		if !f.Kind.SystemGenerated() {
			continue
		}
		if err := c.fs.Remove(f.FilePath); err != nil {
			log.Warn("failed to remove %s: %v", f.FilePath, err)
		}
	}
}

// Remove drops an attachment and deletes it when it is system-generated.
// Removing an unknown filename does nothing.
func (c *Coordinator) Remove(filename string) error {
	prev, _, err := c.apply(RemoveFile{Filename: filename})
	if err != nil {
		return err
	}
	if old, ok := prev.File(filename); ok {
		c.discard([]File{old})
	}
	return nil
}

// Submit delivers the composed response.
//
// It fails without side effects when the response is not ready or another
// submission is in flight. Otherwise the attempt always ends with the
// composed state cleared and system-generated attachments removed. A
// delivery failure is returned as *DeliveryError and leaves the cache and
// the outstanding list untouched.
func (c *Coordinator) Submit(ctx context.Context) (Result, error) {
	st, err := c.dispatch(SendStarted{MinMessageLength: c.cfg.MinMessageLength})
	if err != nil {
		if errors.Is(err, ErrValidation) {
			c.sink.ShowError("Invalid response", err.Error(), "")
		}
		return Result{}, err
	}

	// The answered comment is the one outstanding when sending started.
	target, hasTarget := c.outstanding.Find(st.Issue)

	activity := notify.NewID()
	c.sink.StartActivity(activity, "Submitting feedback")

	hasKey := false
	if c.creds != nil {
		key, ok := c.creds.APIKey()
		hasKey = ok && key != ""
	}
	anonymous := !hasKey || st.Anonymous
	switch {
	case !hasKey:
		c.sink.ShowInfo("No API key is stored, the response will be sent anonymously", nil)
	case st.Anonymous:
		c.sink.ShowInfo("The response will be sent anonymously, you may not be contacted for follow-up", nil)
	}

	report := Report{
		Issue:       st.Issue,
		Title:       fmt.Sprintf("Response to #%d", st.Issue),
		Body:        c.sysinfo().String() + "\n" + st.Message,
		Attachments: st.Paths(),
		Anonymous:   anonymous,
	}

	log.Info("submitting response to #%d with %d attachments (%s)",
		st.Issue, len(report.Attachments), humanize.IBytes(uint64(st.TotalSize())))
	deliverErr := c.deliverer.Deliver(ctx, report)
	if _, err := c.dispatch(SendFinished{Err: deliverErr}); err != nil {
		log.Error("unexpected state after delivery: %v", err)
	}

	result := Result{Issue: st.Issue, Anonymous: anonymous}
	var retErr error
	if deliverErr != nil {
		derr := &DeliveryError{Err: deliverErr}
		log.Warn("delivery of response to #%d failed: %v", st.Issue, deliverErr)
		c.sink.ShowError("Failed to send feedback", derr.Detail(), notify.NewID())
		retErr = derr
	} else {
		c.sink.ShowInfo("Feedback response sent successfully", nil)
		result.Delivered = true
		if hasTarget {
			c.recordResponse(st.Issue, target.LastDevComment.CreatedAt)
		} else {
			log.Warn("#%d left the outstanding list during submission", st.Issue)
		}
		c.outstanding.Remove(st.Issue)
		result.MayClose = c.outstanding.Len() == 0
	}

	if err := c.cleanup(st.Files()); err != nil {
		c.sink.ShowError("An error occurred removing temporary feedback files", err.Error(), notify.NewID())
		result.Cleanup = err
	}

	c.sink.Dismiss(activity)
	if _, err := c.dispatch(Cleared{}); err != nil {
		log.Error("failed to clear state: %v", err)
	}

	return result, retErr
}

// Discard abandons the composed response and removes its system-generated
// attachments.
func (c *Coordinator) Discard() error {
	st := c.State()
	if !st.Phase.settled() {
		return ErrSubmitInFlight
	}
	if _, err := c.dispatch(Cleared{}); err != nil {
		return err
	}
	return c.cleanup(st.Files())
}

// recordResponse stores the answered comment time on every entry of issue and
// rearms the reply notification.
func (c *Coordinator) recordResponse(issue int, commentAt time.Time) {
	entries, err := c.store.All()
	if err != nil {
		log.Error("failed to read cache: %v", err)
		return
	}
	for key, entry := range entries {
		if entry.Number != issue {
			continue
		}
		entry.LastCommentResponse = commentAt
		entry.NotifiedForReply = false
		if err := c.store.Put(key, entry); err != nil {
			log.Error("failed to update cache entry %s: %v", key, err)
		}
	}
}

// cleanup removes the system-generated attachments of a finished attempt.
func (c *Coordinator) cleanup(files []File) error {
	var errs []error
	for _, f := range files {
		if !f.Kind.SystemGenerated() {
			continue
		}
		if err := c.fs.Remove(f.FilePath); err != nil {
			errs = append(errs, err)
		}
	}
	if len(errs) > 0 {
		return &CleanupError{Errs: errs}
	}
	return nil
}
