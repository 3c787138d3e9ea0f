package gh

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"testing"
	"time"

	"github.com/JohanCodinha/ghfeedback/internal/logger"
)

// =============================================================================
// GetJSON Tests
// =============================================================================

func TestGetJSON_SendsUserAgent(t *testing.T) {
	var gotUA, gotAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUA = r.Header.Get("User-Agent")
		gotAuth = r.Header.Get("Authorization")
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"ok":true}`))
	}))
	defer srv.Close()

	client := New("", WithBaseURL(srv.URL), WithUserAgent("ghfeedback-test"))

	var out map[string]bool
	if err := client.GetJSON(context.Background(), srv.URL+"/anything", &out); err != nil {
		t.Fatalf("GetJSON() unexpected error: %v", err)
	}

	if gotUA != "ghfeedback-test" {
		t.Errorf("User-Agent = %q, want %q", gotUA, "ghfeedback-test")
	}
	if gotAuth != "" {
		t.Errorf("anonymous client sent Authorization header %q", gotAuth)
	}
	if !out["ok"] {
		t.Errorf("decoded body = %v, want ok=true", out)
	}
}

func TestGetJSON_SendsBearerToken(t *testing.T) {
	var gotAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	client := NewWithBaseURL("secret", srv.URL)
	var out map[string]interface{}
	if err := client.GetJSON(context.Background(), srv.URL, &out); err != nil {
		t.Fatalf("GetJSON() unexpected error: %v", err)
	}
	if gotAuth != "Bearer secret" {
		t.Errorf("Authorization = %q, want %q", gotAuth, "Bearer secret")
	}
}

func TestGetJSON_StatusError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusForbidden)
		w.Write([]byte(`{"message":"API rate limit exceeded"}`))
	}))
	defer srv.Close()

	client := NewWithBaseURL("", srv.URL)
	var out interface{}
	err := client.GetJSON(context.Background(), srv.URL, &out)

	var statusErr *HTTPStatusError
	if !errors.As(err, &statusErr) {
		t.Fatalf("expected *HTTPStatusError, got %T: %v", err, err)
	}
	if statusErr.Code != http.StatusForbidden {
		t.Errorf("Code = %d, want %d", statusErr.Code, http.StatusForbidden)
	}
	if !strings.Contains(statusErr.Error(), "rate limit") {
		t.Errorf("expected body in error message, got %q", statusErr.Error())
	}
}

func TestGetJSON_NonOKSuccessStatusIsAnError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusAccepted)
		w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	var out interface{}
	err := NewWithBaseURL("", srv.URL).GetJSON(context.Background(), srv.URL, &out)

	var statusErr *HTTPStatusError
	if !errors.As(err, &statusErr) || statusErr.Code != http.StatusAccepted {
		t.Fatalf("expected HTTPStatusError(202), got %v", err)
	}
}

func TestGetJSON_ContentType(t *testing.T) {
	tests := []struct {
		name        string
		contentType string
		wantErr     bool
	}{
		{"plain json", "application/json", false},
		{"json with charset", "application/json; charset=utf-8", false},
		{"html", "text/html; charset=utf-8", true},
		{"empty", "", true},
		{"vendor json", "application/vnd.github+json", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.Header()["Content-Type"] = []string{tt.contentType}
				w.Write([]byte(`{}`))
			}))
			defer srv.Close()

			var out interface{}
			err := NewWithBaseURL("", srv.URL).GetJSON(context.Background(), srv.URL, &out)
			if !tt.wantErr {
				if err != nil {
					t.Fatalf("GetJSON() unexpected error: %v", err)
				}
				return
			}
			var ctErr *ContentTypeError
			if !errors.As(err, &ctErr) {
				t.Fatalf("expected *ContentTypeError, got %T: %v", err, err)
			}
			if ctErr.Type != tt.contentType {
				t.Errorf("Type = %q, want %q", ctErr.Type, tt.contentType)
			}
		})
	}
}

func TestGetJSON_MalformedBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"number": 1,`))
	}))
	defer srv.Close()

	var out Issue
	err := NewWithBaseURL("", srv.URL).GetJSON(context.Background(), srv.URL, &out)
	if !errors.Is(err, ErrMalformedBody) {
		t.Fatalf("expected ErrMalformedBody, got %v", err)
	}
}

func TestGetJSON_NetworkError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := srv.URL
	srv.Close()

	var out interface{}
	err := NewWithBaseURL("", url).GetJSON(context.Background(), url, &out)

	var netErr *NetworkError
	if !errors.As(err, &netErr) {
		t.Fatalf("expected *NetworkError, got %T: %v", err, err)
	}
	if netErr.URL != url {
		t.Errorf("URL = %q, want %q", netErr.URL, url)
	}
}

func TestGetJSON_RateLimitPacesRequests(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	client := New("", WithBaseURL(srv.URL), WithRateLimit(20))

	start := time.Now()
	for i := 0; i < 3; i++ {
		var out interface{}
		if err := client.GetJSON(context.Background(), srv.URL, &out); err != nil {
			t.Fatalf("GetJSON() unexpected error: %v", err)
		}
	}

	// burst of one: the second and third requests each wait ~50ms
	if elapsed := time.Since(start); elapsed < 80*time.Millisecond {
		t.Errorf("three paced requests took %v, expected at least ~100ms", elapsed)
	}
}

// =============================================================================
// Mock Server Tests
// =============================================================================

func TestGetIssue_WithMock(t *testing.T) {
	mockGH := NewMockServer()
	defer mockGH.Close()

	closed := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	mockGH.AddIssue(&Issue{
		Number:    42,
		Title:     "Crash on start",
		Body:      "It crashes",
		State:     "closed",
		Labels:    []Label{{Name: "bug"}},
		CreatedAt: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		UpdatedAt: time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC),
		ClosedAt:  &closed,
		Comments:  3,
		Milestone: &Milestone{Number: 7, Title: "1.2", State: "open", ClosedIssues: 4, OpenIssues: 1},
	})

	client := NewWithBaseURL("", mockGH.URL)
	issue, err := client.GetIssue(context.Background(), "owner", "repo", 42)
	if err != nil {
		t.Fatalf("GetIssue() unexpected error: %v", err)
	}

	if issue.Title != "Crash on start" {
		t.Errorf("Title = %q, want %q", issue.Title, "Crash on start")
	}
	if issue.ClosedAt == nil || !issue.ClosedAt.Equal(closed) {
		t.Errorf("ClosedAt = %v, want %v", issue.ClosedAt, closed)
	}
	if issue.Milestone == nil || issue.Milestone.Number != 7 || issue.Milestone.DueOn != nil {
		t.Errorf("unexpected milestone: %+v", issue.Milestone)
	}
	if !issue.HasLabel("bug") || issue.HasLabel("Bug") {
		t.Errorf("HasLabel should be an exact, case-sensitive match")
	}
	if issue.CommentsURL == "" || issue.HTMLURL == "" {
		t.Errorf("expected comments_url and html_url to be populated")
	}
}

func TestGetIssue_NotFound(t *testing.T) {
	mockGH := NewMockServer()
	defer mockGH.Close()

	client := NewWithBaseURL("", mockGH.URL)
	_, err := client.GetIssue(context.Background(), "owner", "repo", 999)

	var statusErr *HTTPStatusError
	if !errors.As(err, &statusErr) || statusErr.Code != http.StatusNotFound {
		t.Fatalf("expected HTTPStatusError(404), got %v", err)
	}
}

func TestListComments_WithMock(t *testing.T) {
	mockGH := NewMockServer()
	defer mockGH.Close()

	issue := &Issue{Number: 5, Title: "t", State: "open"}
	mockGH.AddIssue(issue)
	mockGH.AddComment(5, Comment{ID: 1, User: User{Login: "a"}, Body: "first"})
	mockGH.AddComment(5, Comment{ID: 2, User: User{Login: "b"}, Body: "second"})

	client := NewWithBaseURL("", mockGH.URL)
	comments, err := client.ListComments(context.Background(), issue.CommentsURL)
	if err != nil {
		t.Fatalf("ListComments() unexpected error: %v", err)
	}
	if len(comments) != 2 || comments[0].Body != "first" || comments[1].Body != "second" {
		t.Errorf("unexpected comments: %+v", comments)
	}
}

func TestListComments_Pagination(t *testing.T) {
	var srvURL string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if r.URL.Query().Get("page") == "2" {
			w.Write([]byte(`[{"id":2,"user":{"login":"b"},"body":"two","created_at":"2024-01-02T00:00:00Z"}]`))
			return
		}
		w.Header().Set("Link", fmt.Sprintf(`<%s/comments?per_page=100&page=2>; rel="next", <%s/comments?per_page=100&page=2>; rel="last"`, srvURL, srvURL))
		w.Write([]byte(`[{"id":1,"user":{"login":"a"},"body":"one","created_at":"2024-01-01T00:00:00Z"}]`))
	}))
	defer srv.Close()
	srvURL = srv.URL

	comments, err := NewWithBaseURL("", srv.URL).ListComments(context.Background(), srv.URL+"/comments")
	if err != nil {
		t.Fatalf("ListComments() unexpected error: %v", err)
	}
	if len(comments) != 2 || comments[1].Body != "two" {
		t.Errorf("expected both pages, got %+v", comments)
	}
}

func TestGetNextPageURL(t *testing.T) {
	tests := []struct {
		header string
		want   string
	}{
		{"", ""},
		{`<https://api.github.com/x?page=2>; rel="next", <https://api.github.com/x?page=5>; rel="last"`, "https://api.github.com/x?page=2"},
		{`<https://api.github.com/x?page=1>; rel="prev"`, ""},
	}
	for _, tt := range tests {
		if got := getNextPageURL(tt.header); got != tt.want {
			t.Errorf("getNextPageURL(%q) = %q, want %q", tt.header, got, tt.want)
		}
	}
}

func TestWithPerPage(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"https://x/comments", "https://x/comments?per_page=100"},
		{"https://x/comments?since=1", "https://x/comments?since=1&per_page=100"},
		{"https://x/comments?per_page=10", "https://x/comments?per_page=10"},
	}
	for _, tt := range tests {
		if got := withPerPage(tt.in); got != tt.want {
			t.Errorf("withPerPage(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

// =============================================================================
// OwnIssues Tests
// =============================================================================

func TestOwnIssues_ListsOnlyCreatorIssues(t *testing.T) {
	mockGH := NewMockServer()
	defer mockGH.Close()

	mockGH.AddIssue(&Issue{Number: 10, Title: "mine", State: "open"})
	mockGH.AddIssue(&Issue{Number: 11, Title: "also mine", State: "closed"})
	mockGH.AddIssue(&Issue{Number: 12, Title: "theirs", State: "open", User: &User{Login: "someone-else"}})

	lister, err := NewOwnIssues("token", mockGH.URL, "owner", "repo", "")
	if err != nil {
		t.Fatalf("NewOwnIssues() unexpected error: %v", err)
	}

	ids, err := lister.ListOwnIssueIDs(context.Background())
	if err != nil {
		t.Fatalf("ListOwnIssueIDs() unexpected error: %v", err)
	}
	sort.Ints(ids)
	if len(ids) != 2 || ids[0] != 10 || ids[1] != 11 {
		t.Errorf("ids = %v, want [10 11]", ids)
	}
}

func TestOwnIssues_ListError(t *testing.T) {
	mockGH := NewMockServer()
	defer mockGH.Close()

	lister, err := NewOwnIssues("", mockGH.URL, "owner", "repo", "reporter")
	if err != nil {
		t.Fatalf("NewOwnIssues() unexpected error: %v", err)
	}
	mockGH.SetNextError(http.StatusBadGateway, `{"message":"bad gateway"}`)

	if _, err := lister.ListOwnIssueIDs(context.Background()); err == nil {
		t.Fatal("expected error when the list call fails")
	}
}

// =============================================================================
// getTokenFromGhConfigPath Tests
// =============================================================================

func writeHostsYml(t *testing.T, content string) string {
	t.Helper()
	configDir := filepath.Join(t.TempDir(), ".config", "gh")
	if err := os.MkdirAll(configDir, 0755); err != nil {
		t.Fatalf("failed to create config dir: %v", err)
	}
	configPath := filepath.Join(configDir, "hosts.yml")
	if err := os.WriteFile(configPath, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write hosts.yml: %v", err)
	}
	return configPath
}

func TestGetTokenFromGhConfigPath(t *testing.T) {
	tests := []struct {
		name        string
		hostsYml    string
		wantToken   string
		errContains string
	}{
		{
			name:      "valid config",
			hostsYml:  "github.com:\n    oauth_token: test-token-12345\n    user: testuser\n",
			wantToken: "test-token-12345",
		},
		{
			name:        "missing oauth_token",
			hostsYml:    "github.com:\n    user: testuser\n",
			errContains: "no oauth_token found",
		},
		{
			name:        "malformed yaml",
			hostsYml:    "github.com:\n    oauth_token: [invalid yaml\n    not proper: indentation\n",
			errContains: "failed to parse",
		},
		{
			name:        "no github.com host",
			hostsYml:    "gitlab.com:\n    oauth_token: gitlab-token\n",
			errContains: "no oauth_token found",
		},
		{
			name:      "multiple hosts",
			hostsYml:  "github.enterprise.com:\n    oauth_token: enterprise-token\ngithub.com:\n    oauth_token: public-token-xyz\n",
			wantToken: "public-token-xyz",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			token, err := getTokenFromGhConfigPath(writeHostsYml(t, tt.hostsYml))
			if tt.errContains != "" {
				if err == nil {
					t.Fatalf("expected error containing %q, got nil", tt.errContains)
				}
				if !strings.Contains(err.Error(), tt.errContains) {
					t.Errorf("error = %q, want containing %q", err.Error(), tt.errContains)
				}
				if token != "" {
					t.Errorf("expected empty token, got %q", token)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if token != tt.wantToken {
				t.Errorf("token = %q, want %q", token, tt.wantToken)
			}
		})
	}
}

func TestGetTokenFromGhConfigPath_MissingFile(t *testing.T) {
	_, err := getTokenFromGhConfigPath(filepath.Join(t.TempDir(), "nonexistent", "hosts.yml"))
	if err == nil || !strings.Contains(err.Error(), "failed to read") {
		t.Errorf("expected 'failed to read' error, got: %v", err)
	}
}

// =============================================================================
// checkRateLimit Tests
// =============================================================================

func TestCheckRateLimit(t *testing.T) {
	tests := []struct {
		name      string
		remaining string
		reset     string
		wantWarn  bool
	}{
		{"exhausted", "0", fmt.Sprintf("%d", time.Now().Add(time.Hour).Unix()), true},
		{"remaining positive", "42", fmt.Sprintf("%d", time.Now().Add(time.Hour).Unix()), false},
		{"headers missing", "", "", false},
		{"reset missing", "0", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := &http.Response{Header: make(http.Header)}
			if tt.remaining != "" {
				resp.Header.Set("X-RateLimit-Remaining", tt.remaining)
			}
			if tt.reset != "" {
				resp.Header.Set("X-RateLimit-Reset", tt.reset)
			}

			var buf bytes.Buffer
			logger.SetOutput(&buf)
			logger.SetLevel(logger.LevelWarn)
			defer func() {
				logger.SetOutput(os.Stderr)
				logger.SetLevel(logger.LevelInfo)
			}()

			checkRateLimit(resp)

			gotWarn := strings.Contains(buf.String(), "rate limit exceeded")
			if gotWarn != tt.wantWarn {
				t.Errorf("warning logged = %v, want %v (output: %q)", gotWarn, tt.wantWarn, buf.String())
			}
		})
	}
}
