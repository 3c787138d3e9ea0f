package gh

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"time"
)

// MockServer provides a fake GitHub API for testing.
type MockServer struct {
	*httptest.Server
	Owner string
	Repo  string
	Login string

	mu          sync.RWMutex
	issues      map[int]*Issue
	comments    map[int][]Comment
	posted      map[int][]Comment
	requests    []string
	contentType string
	nextErr     *mockError
	failFor     map[int]int
}

type mockError struct {
	code int
	body string
}

// NewMockServer creates a mock GitHub API server for owner/repo.
func NewMockServer() *MockServer {
	m := &MockServer{
		Owner:    "owner",
		Repo:     "repo",
		Login:    "reporter",
		issues:   make(map[int]*Issue),
		comments: make(map[int][]Comment),
		posted:   make(map[int][]Comment),
		failFor:  make(map[int]int),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/user", m.handleUser)
	mux.HandleFunc("/repos/", m.handleRepos)

	m.Server = httptest.NewServer(mux)
	return m
}

// AddIssue registers an issue. CommentsURL and HTMLURL are filled in when empty.
func (m *MockServer) AddIssue(issue *Issue) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if issue.CommentsURL == "" {
		issue.CommentsURL = fmt.Sprintf("%s/repos/%s/%s/issues/%d/comments", m.URL, m.Owner, m.Repo, issue.Number)
	}
	if issue.HTMLURL == "" {
		issue.HTMLURL = fmt.Sprintf("https://github.com/%s/%s/issues/%d", m.Owner, m.Repo, issue.Number)
	}
	if issue.User == nil {
		issue.User = &User{Login: m.Login}
	}
	m.issues[issue.Number] = issue
}

// AddComment appends a comment to an issue's comment list (oldest first).
func (m *MockServer) AddComment(number int, comment Comment) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.comments[number] = append(m.comments[number], comment)
}

// SetNextError makes the next request fail with the given status and body.
func (m *MockServer) SetNextError(code int, body string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextErr = &mockError{code: code, body: body}
}

// FailIssue makes GET requests for one issue answer with the given status.
func (m *MockServer) FailIssue(number, code int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failFor[number] = code
}

// SetContentType overrides the Content-Type of successful responses.
func (m *MockServer) SetContentType(ct string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.contentType = ct
}

// Requests returns the paths requested so far, in order.
func (m *MockServer) Requests() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]string, len(m.requests))
	copy(out, m.requests)
	return out
}

// PostedComments returns comments created through the API for an issue.
func (m *MockServer) PostedComments(number int) []Comment {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]Comment(nil), m.posted[number]...)
}

// Reset clears all issues, comments and recorded requests.
func (m *MockServer) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.issues = make(map[int]*Issue)
	m.comments = make(map[int][]Comment)
	m.posted = make(map[int][]Comment)
	m.failFor = make(map[int]int)
	m.requests = nil
	m.nextErr = nil
	m.contentType = ""
}

// intercept records the request and applies injected failures.
// Returns true when the response has already been written.
func (m *MockServer) intercept(w http.ResponseWriter, r *http.Request) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.requests = append(m.requests, r.URL.Path)
	if m.nextErr != nil {
		e := m.nextErr
		m.nextErr = nil
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(e.code)
		w.Write([]byte(e.body))
		return true
	}
	return false
}

func (m *MockServer) writeJSON(w http.ResponseWriter, status int, v interface{}) {
	m.mu.RLock()
	ct := m.contentType
	m.mu.RUnlock()
	if ct == "" {
		ct = "application/json; charset=utf-8"
	}
	w.Header().Set("Content-Type", ct)
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func (m *MockServer) handleUser(w http.ResponseWriter, r *http.Request) {
	if m.intercept(w, r) {
		return
	}
	m.writeJSON(w, http.StatusOK, map[string]interface{}{"login": m.Login, "id": 1})
}

func (m *MockServer) handleRepos(w http.ResponseWriter, r *http.Request) {
	if m.intercept(w, r) {
		return
	}

	// /repos/{owner}/{repo}/issues[/{number}[/comments]]
	parts := strings.Split(strings.Trim(strings.TrimPrefix(r.URL.Path, "/repos/"), "/"), "/")
	if len(parts) < 3 || parts[2] != "issues" {
		http.Error(w, "not found", http.StatusNotFound)
		return
	}

	if len(parts) == 3 {
		if r.Method != http.MethodGet {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		m.handleListIssues(w, r)
		return
	}

	number, err := strconv.Atoi(parts[3])
	if err != nil {
		http.Error(w, "invalid issue number", http.StatusBadRequest)
		return
	}

	switch {
	case len(parts) == 4 && r.Method == http.MethodGet:
		m.handleGetIssue(w, number)
	case len(parts) == 5 && parts[4] == "comments" && r.Method == http.MethodGet:
		m.handleListComments(w, number)
	case len(parts) == 5 && parts[4] == "comments" && r.Method == http.MethodPost:
		m.handleCreateComment(w, r, number)
	default:
		http.Error(w, "not found", http.StatusNotFound)
	}
}

func (m *MockServer) handleListIssues(w http.ResponseWriter, r *http.Request) {
	creator := r.URL.Query().Get("creator")

	m.mu.RLock()
	issues := make([]*Issue, 0, len(m.issues))
	for _, issue := range m.issues {
		if creator != "" && (issue.User == nil || issue.User.Login != creator) {
			continue
		}
		issues = append(issues, issue)
	}
	m.mu.RUnlock()

	m.writeJSON(w, http.StatusOK, issues)
}

func (m *MockServer) handleGetIssue(w http.ResponseWriter, number int) {
	m.mu.RLock()
	issue, ok := m.issues[number]
	failCode := m.failFor[number]
	m.mu.RUnlock()

	if failCode != 0 {
		http.Error(w, http.StatusText(failCode), failCode)
		return
	}
	if !ok {
		http.Error(w, "not found", http.StatusNotFound)
		return
	}

	m.writeJSON(w, http.StatusOK, issue)
}

func (m *MockServer) handleListComments(w http.ResponseWriter, number int) {
	m.mu.RLock()
	_, ok := m.issues[number]
	comments := append([]Comment{}, m.comments[number]...)
	m.mu.RUnlock()

	if !ok {
		http.Error(w, "not found", http.StatusNotFound)
		return
	}

	m.writeJSON(w, http.StatusOK, comments)
}

func (m *MockServer) handleCreateComment(w http.ResponseWriter, r *http.Request, number int) {
	var payload struct {
		Body string `json:"body"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		http.Error(w, "invalid json", http.StatusBadRequest)
		return
	}

	m.mu.Lock()
	if _, ok := m.issues[number]; !ok {
		m.mu.Unlock()
		http.Error(w, "not found", http.StatusNotFound)
		return
	}
	comment := Comment{
		ID:        time.Now().UnixNano(),
		User:      User{Login: m.Login},
		Body:      payload.Body,
		CreatedAt: time.Now().UTC(),
	}
	m.posted[number] = append(m.posted[number], comment)
	m.mu.Unlock()

	m.writeJSON(w, http.StatusCreated, comment)
}
