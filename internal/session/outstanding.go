// Package session holds state that is not part of the issue cache, such as
// the issues currently waiting on a reporter response.
package session

import (
	"encoding/json"
	"sort"
	"sync"

	"github.com/JohanCodinha/ghfeedback/internal/gh"
)

// OutstandingIssue is an issue believed to require a reporter response,
// together with the maintainer comment that asked for it.
type OutstandingIssue struct {
	Issue          gh.Issue   `json:"issue"`
	LastDevComment gh.Comment `json:"last_dev_comment"`
}

// Number returns the issue number the record is keyed by.
func (o OutstandingIssue) Number() int {
	return o.Issue.Number
}

// Outstanding is the session-scoped list of outstanding issues. It is safe
// for concurrent use. A host whose session spans several processes carries it
// over through its JSON encoding.
type Outstanding struct {
	mu    sync.RWMutex
	items map[int]OutstandingIssue
}

// NewOutstanding creates an empty list.
func NewOutstanding() *Outstanding {
	return &Outstanding{items: make(map[int]OutstandingIssue)}
}

// Upsert records an issue, replacing any earlier record for the same number.
func (o *Outstanding) Upsert(item OutstandingIssue) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.items[item.Number()] = item
}

// Remove drops the record for number and reports whether one existed.
func (o *Outstanding) Remove(number int) bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	_, ok := o.items[number]
	delete(o.items, number)
	return ok
}

// Find returns the record for number.
func (o *Outstanding) Find(number int) (OutstandingIssue, bool) {
	o.mu.RLock()
	defer o.mu.RUnlock()
	item, ok := o.items[number]
	return item, ok
}

// List returns a snapshot ordered by issue number.
func (o *Outstanding) List() []OutstandingIssue {
	o.mu.RLock()
	defer o.mu.RUnlock()
	out := make([]OutstandingIssue, 0, len(o.items))
	for _, item := range o.items {
		out = append(out, item)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Number() < out[j].Number() })
	return out
}

// Len returns the number of outstanding issues.
func (o *Outstanding) Len() int {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return len(o.items)
}

// Clear empties the list.
func (o *Outstanding) Clear() {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.items = make(map[int]OutstandingIssue)
}

// MarshalJSON encodes the records ordered by issue number.
func (o *Outstanding) MarshalJSON() ([]byte, error) {
	return json.Marshal(o.List())
}

// UnmarshalJSON replaces the list with the decoded records.
func (o *Outstanding) UnmarshalJSON(data []byte) error {
	var items []OutstandingIssue
	if err := json.Unmarshal(data, &items); err != nil {
		return err
	}

	o.mu.Lock()
	defer o.mu.Unlock()
	o.items = make(map[int]OutstandingIssue, len(items))
	for _, item := range items {
		o.items[item.Number()] = item
	}
	return nil
}
