package cache

import (
	"sort"
	"strconv"
	"time"

	"github.com/JohanCodinha/ghfeedback/internal/gh"
)

// State of an issue on the tracker.
type State string

const (
	StateOpen   State = "open"
	StateClosed State = "closed"
)

// Milestone is the cached summary of an issue's milestone.
type Milestone struct {
	Number       int        `json:"number"`
	Title        string     `json:"title"`
	State        string     `json:"state"`
	ClosedIssues int        `json:"closed_issues"`
	OpenIssues   int        `json:"open_issues"`
	DueOn        *time.Time `json:"due_on"`
}

// Entry is the cached state of one tracked issue.
type Entry struct {
	Number      int
	Title       string
	Body        string
	User        string // empty when the tracker omitted the author
	State       State
	Labels      []string
	CreatedTime time.Time
	LastUpdated time.Time
	ClosedTime  time.Time // zero while open
	// CacheTime is when the entry was last fetched, used only for staleness.
	CacheTime time.Time
	Comments  int
	Milestone *Milestone

	// NotifiedForReply stays true once the user was told a reply is required.
	NotifiedForReply bool
	// LastCommentResponse is the creation time of the maintainer comment the
	// user last answered. Zero until a response was submitted.
	LastCommentResponse time.Time
}

// Key returns the store key of an entry, which is always its number.
func (e Entry) Key() string {
	return Key(e.Number)
}

// Key returns the store key for an issue number.
func Key(number int) string {
	return strconv.Itoa(number)
}

// HasLabel reports whether the entry carries a label with exactly this name.
func (e Entry) HasLabel(name string) bool {
	for _, l := range e.Labels {
		if l == name {
			return true
		}
	}
	return false
}

// FromIssue builds a cache entry from a fetched issue. Bookkeeping fields
// (NotifiedForReply, LastCommentResponse) are left to the caller.
func FromIssue(issue *gh.Issue, cacheTime time.Time) Entry {
	entry := Entry{
		Number:      issue.Number,
		Title:       issue.Title,
		Body:        issue.Body,
		State:       State(issue.State),
		Labels:      labelSet(issue.Labels),
		CreatedTime: issue.CreatedAt,
		LastUpdated: issue.UpdatedAt,
		CacheTime:   cacheTime,
		Comments:    issue.Comments,
	}
	if issue.User != nil {
		entry.User = issue.User.Login
	}
	if issue.ClosedAt != nil {
		entry.ClosedTime = *issue.ClosedAt
	}
	if m := issue.Milestone; m != nil {
		entry.Milestone = &Milestone{
			Number:       m.Number,
			Title:        m.Title,
			State:        m.State,
			ClosedIssues: m.ClosedIssues,
			OpenIssues:   m.OpenIssues,
			DueOn:        m.DueOn,
		}
	}
	return entry
}

func labelSet(labels []gh.Label) []string {
	seen := make(map[string]bool, len(labels))
	out := make([]string, 0, len(labels))
	for _, l := range labels {
		if seen[l.Name] {
			continue
		}
		seen[l.Name] = true
		out = append(out, l.Name)
	}
	return out
}

// Visible returns the entries worth showing, newest update first. Closed
// issues drop out once both their close and their last update are older than
// hideAfter; open issues are always kept.
func Visible(entries map[string]Entry, now time.Time, hideAfter time.Duration) []Entry {
	out := make([]Entry, 0, len(entries))
	for _, e := range entries {
		if e.State == StateClosed &&
			now.Sub(e.ClosedTime) >= hideAfter &&
			now.Sub(e.LastUpdated) >= hideAfter {
			continue
		}
		out = append(out, e)
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].LastUpdated.Equal(out[j].LastUpdated) {
			return out[i].Number > out[j].Number
		}
		return out[i].LastUpdated.After(out[j].LastUpdated)
	})
	return out
}
