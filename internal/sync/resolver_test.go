package sync

import (
	"context"
	"errors"
	"testing"

	"github.com/JohanCodinha/ghfeedback/internal/gh"
)

func newTestResolver(t *testing.T, maxDepth int) (*Resolver, *gh.MockServer) {
	t.Helper()
	server := gh.NewMockServer()
	t.Cleanup(server.Close)
	return NewResolver(gh.NewWithBaseURL("", server.URL), server.Owner, server.Repo, maxDepth), server
}

func fetch(t *testing.T, server *gh.MockServer, number int) *gh.Issue {
	t.Helper()
	issue, err := gh.NewWithBaseURL("", server.URL).GetIssue(context.Background(), server.Owner, server.Repo, number)
	if err != nil {
		t.Fatalf("GetIssue(%d) failed: %v", number, err)
	}
	return issue
}

func TestDuplicateTarget(t *testing.T) {
	tests := []struct {
		name   string
		bodies []string
		want   int
		wantOK bool
	}{
		{name: "no comments"},
		{name: "plain marker", bodies: []string{"Duplicate of #42"}, want: 42, wantOK: true},
		{name: "case and whitespace", bodies: []string{"  \n DUPLICATE OF #7 \n"}, want: 7, wantOK: true},
		{name: "marker inside a sentence", bodies: []string{"Closing, duplicate of #9."}, want: 9, wantOK: true},
		{name: "newest marker wins", bodies: []string{"duplicate of #1", "thanks", "duplicate of #2"}, want: 2, wantOK: true},
		{name: "no marker", bodies: []string{"dup", "see #3"}},
		{name: "marker without number", bodies: []string{"duplicate of #"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var comments []gh.Comment
			for _, b := range tt.bodies {
				comments = append(comments, gh.Comment{Body: b})
			}
			got, ok := duplicateTarget(comments)
			if got != tt.want || ok != tt.wantOK {
				t.Errorf("duplicateTarget() = %d, %v, want %d, %v", got, ok, tt.want, tt.wantOK)
			}
		})
	}
}

func TestResolve_NotADuplicate(t *testing.T) {
	r, server := newTestResolver(t, 0)
	issue := &gh.Issue{Number: 1, Labels: []gh.Label{{Name: "bug"}}}

	got, err := r.Resolve(context.Background(), issue)
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if got != issue {
		t.Error("a non-duplicate issue must be returned unchanged")
	}
	if len(server.Requests()) != 0 {
		t.Errorf("no request expected, got %v", server.Requests())
	}
}

func TestResolve_FollowsRedirect(t *testing.T) {
	r, server := newTestResolver(t, 0)
	server.AddIssue(&gh.Issue{Number: 5, Body: "original", Labels: []gh.Label{{Name: "duplicate"}}})
	server.AddIssue(&gh.Issue{Number: 42, Body: "canonical"})
	server.AddComment(5, gh.Comment{Body: "duplicate of #41"})
	server.AddComment(5, gh.Comment{Body: "Duplicate of #42"})

	got, err := r.Resolve(context.Background(), fetch(t, server, 5))
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if got.Number != 42 || got.Body != "canonical" {
		t.Errorf("Resolve() = #%d %q, want #42 canonical", got.Number, got.Body)
	}
}

func TestResolve_FollowsChain(t *testing.T) {
	r, server := newTestResolver(t, 0)
	server.AddIssue(&gh.Issue{Number: 1, Labels: []gh.Label{{Name: "duplicate"}}})
	server.AddIssue(&gh.Issue{Number: 2, Labels: []gh.Label{{Name: "duplicate"}}})
	server.AddIssue(&gh.Issue{Number: 3, Body: "end of chain"})
	server.AddComment(1, gh.Comment{Body: "duplicate of #2"})
	server.AddComment(2, gh.Comment{Body: "duplicate of #3"})

	got, err := r.Resolve(context.Background(), fetch(t, server, 1))
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if got.Number != 3 {
		t.Errorf("Resolve() = #%d, want #3", got.Number)
	}
}

func TestResolve_NoMarkerKeepsOriginal(t *testing.T) {
	r, server := newTestResolver(t, 0)
	server.AddIssue(&gh.Issue{Number: 5, Body: "original", Labels: []gh.Label{{Name: "duplicate"}}})
	server.AddComment(5, gh.Comment{Body: "looks like a dup"})

	original := fetch(t, server, 5)
	got, err := r.Resolve(context.Background(), original)
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if got.Number != 5 || got.Body != "original" {
		t.Errorf("Resolve() = #%d %q, want the original", got.Number, got.Body)
	}
}

func TestResolve_CycleHitsDepthBound(t *testing.T) {
	r, server := newTestResolver(t, 3)
	server.AddIssue(&gh.Issue{Number: 1, Labels: []gh.Label{{Name: "duplicate"}}})
	server.AddIssue(&gh.Issue{Number: 2, Labels: []gh.Label{{Name: "duplicate"}}})
	server.AddComment(1, gh.Comment{Body: "duplicate of #2"})
	server.AddComment(2, gh.Comment{Body: "duplicate of #1"})

	_, err := r.Resolve(context.Background(), fetch(t, server, 1))
	if !errors.Is(err, ErrDuplicateChainTooDeep) {
		t.Fatalf("error = %v, want ErrDuplicateChainTooDeep", err)
	}
}

func TestResolve_TargetFetchFails(t *testing.T) {
	r, server := newTestResolver(t, 0)
	server.AddIssue(&gh.Issue{Number: 5, Labels: []gh.Label{{Name: "duplicate"}}})
	server.AddComment(5, gh.Comment{Body: "duplicate of #404"})

	_, err := r.Resolve(context.Background(), fetch(t, server, 5))
	var statusErr *gh.HTTPStatusError
	if !errors.As(err, &statusErr) || statusErr.Code != 404 {
		t.Errorf("error = %v, want HTTP 404", err)
	}
}

func TestNewResolver_DefaultDepth(t *testing.T) {
	r := NewResolver(nil, "o", "r", 0)
	if r.maxDepth != DefaultMaxDuplicateDepth {
		t.Errorf("maxDepth = %d, want %d", r.maxDepth, DefaultMaxDuplicateDepth)
	}
}
