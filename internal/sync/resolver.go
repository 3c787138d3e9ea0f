package sync

import (
	"context"
	"fmt"
	"regexp"
	"strconv"

	"github.com/JohanCodinha/ghfeedback/internal/gh"
)

// DuplicateLabel marks an issue that was closed in favour of another one.
const DuplicateLabel = "duplicate"

// DefaultMaxDuplicateDepth bounds how many redirects Resolve follows.
const DefaultMaxDuplicateDepth = 10

var duplicateRegex = regexp.MustCompile(`(?i)\s*duplicate of #(\d+)\s*`)

// Tracker is the read-only view of the issue tracker used during a refresh.
type Tracker interface {
	GetIssue(ctx context.Context, owner, repo string, number int) (*gh.Issue, error)
	ListComments(ctx context.Context, commentsURL string) ([]gh.Comment, error)
}

// Resolver follows "duplicate of #N" redirects to the canonical issue.
type Resolver struct {
	tracker  Tracker
	owner    string
	repo     string
	maxDepth int
}

// NewResolver creates a resolver for issues of owner/repo. A non-positive
// maxDepth selects DefaultMaxDuplicateDepth.
func NewResolver(tracker Tracker, owner, repo string, maxDepth int) *Resolver {
	if maxDepth <= 0 {
		maxDepth = DefaultMaxDuplicateDepth
	}
	return &Resolver{tracker: tracker, owner: owner, repo: repo, maxDepth: maxDepth}
}

// Resolve returns the issue a duplicate points to, following chains of
// duplicates. Issues without the duplicate label, and duplicates whose
// comments never name a target, are returned unchanged.
func (r *Resolver) Resolve(ctx context.Context, issue *gh.Issue) (*gh.Issue, error) {
	current := issue
	for depth := 0; ; depth++ {
		if !current.HasLabel(DuplicateLabel) {
			return current, nil
		}

		comments, err := r.tracker.ListComments(ctx, current.CommentsURL)
		if err != nil {
			return nil, fmt.Errorf("failed to read comments of duplicate #%d: %w", current.Number, err)
		}

		target, ok := duplicateTarget(comments)
		if !ok {
			log.Debug("#%d is labeled duplicate but names no target", current.Number)
			return current, nil
		}

		if depth >= r.maxDepth {
			return nil, fmt.Errorf("%w: #%d after %d redirects", ErrDuplicateChainTooDeep, issue.Number, depth)
		}

		log.Debug("#%d is a duplicate of #%d", current.Number, target)
		next, err := r.tracker.GetIssue(ctx, r.owner, r.repo, target)
		if err != nil {
			return nil, err
		}
		current = next
	}
}

// duplicateTarget scans comments from newest to oldest for a redirect marker.
func duplicateTarget(comments []gh.Comment) (int, bool) {
	for i := len(comments) - 1; i >= 0; i-- {
		m := duplicateRegex.FindStringSubmatch(comments[i].Body)
		if m == nil {
			continue
		}
		n, err := strconv.Atoi(m[1])
		if err != nil {
			continue
		}
		return n, true
	}
	return 0, false
}
