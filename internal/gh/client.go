// Package gh provides a read-only GitHub REST client for issues and comments.
package gh

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime"
	"net/http"
	"os"
	"os/exec"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"
	"gopkg.in/yaml.v3"

	"github.com/JohanCodinha/ghfeedback/internal/logger"
)

const (
	apiBaseURL = "https://api.github.com"
	// DefaultUserAgent identifies this client to the tracker.
	DefaultUserAgent = "ghfeedback"
)

var log = logger.Named("gh")

// Label represents a GitHub issue label.
type Label struct {
	Name  string `json:"name"`
	Color string `json:"color,omitempty"`
}

// User represents a GitHub user.
type User struct {
	Login string `json:"login"`
}

// Milestone represents the milestone an issue is attached to.
type Milestone struct {
	Number       int        `json:"number"`
	Title        string     `json:"title"`
	State        string     `json:"state"`
	ClosedIssues int        `json:"closed_issues"`
	OpenIssues   int        `json:"open_issues"`
	DueOn        *time.Time `json:"due_on"`
}

// Issue represents a GitHub issue as returned by the REST API.
type Issue struct {
	Number      int        `json:"number"`
	Title       string     `json:"title"`
	Body        string     `json:"body"`
	User        *User      `json:"user"`
	State       string     `json:"state"`
	Labels      []Label    `json:"labels"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
	ClosedAt    *time.Time `json:"closed_at"`
	Comments    int        `json:"comments"`
	Milestone   *Milestone `json:"milestone"`
	CommentsURL string     `json:"comments_url"`
	HTMLURL     string     `json:"html_url"`
}

// HasLabel reports whether the issue carries a label with exactly this name.
func (i *Issue) HasLabel(name string) bool {
	for _, l := range i.Labels {
		if l.Name == name {
			return true
		}
	}
	return false
}

// Comment represents a GitHub issue comment.
type Comment struct {
	ID        int64     `json:"id"`
	User      User      `json:"user"`
	Body      string    `json:"body"`
	CreatedAt time.Time `json:"created_at"`
}

// Client is a GitHub API client. It has no state beyond its configuration.
type Client struct {
	token      string
	baseURL    string
	userAgent  string
	httpClient *http.Client
	limiter    *rate.Limiter
}

// Option configures a Client.
type Option func(*Client)

// WithBaseURL points the client at a different API root (GitHub Enterprise, tests).
func WithBaseURL(baseURL string) Option {
	return func(c *Client) { c.baseURL = strings.TrimSuffix(baseURL, "/") }
}

// WithUserAgent overrides the client identifier header.
func WithUserAgent(ua string) Option {
	return func(c *Client) {
		if ua != "" {
			c.userAgent = ua
		}
	}
}

// WithRateLimit paces outgoing requests to at most rps per second.
// A non-positive rps disables pacing.
func WithRateLimit(rps float64) Option {
	return func(c *Client) {
		if rps > 0 {
			c.limiter = rate.NewLimiter(rate.Limit(rps), 1)
		}
	}
}

// WithHTTPClient replaces the underlying transport.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// New creates a GitHub API client. An empty token issues anonymous requests.
func New(token string, opts ...Option) *Client {
	c := &Client{
		token:     token,
		baseURL:   apiBaseURL,
		userAgent: DefaultUserAgent,
		// No request timeout here: a hung request stalls its caller until the
		// transport gives up, and callers cancel through the context.
		httpClient: &http.Client{},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// NewWithBaseURL creates a GitHub API client with a custom base URL (for testing).
func NewWithBaseURL(token, baseURL string) *Client {
	return New(token, WithBaseURL(baseURL))
}

// BaseURL returns the API root the client talks to.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// GetToken attempts to get a GitHub token from various sources:
// 1. Run `gh auth token` command (gh CLI with keyring storage)
// 2. Read from ~/.config/gh/hosts.yml (older gh CLI format)
// 3. GITHUB_TOKEN environment variable
func GetToken() (string, error) {
	if token, err := getTokenFromGhCLI(); err == nil && token != "" {
		return token, nil
	}

	if token, err := getTokenFromGhConfig(); err == nil && token != "" {
		return token, nil
	}

	if token := os.Getenv("GITHUB_TOKEN"); token != "" {
		return token, nil
	}

	return "", fmt.Errorf("no GitHub token found: install gh CLI and run 'gh auth login', or set GITHUB_TOKEN env var")
}

func getTokenFromGhCLI() (string, error) {
	cmd := exec.Command("gh", "auth", "token")
	output, err := cmd.Output()
	if err != nil {
		return "", fmt.Errorf("gh auth token failed: %w", err)
	}
	return strings.TrimSpace(string(output)), nil
}

func getTokenFromGhConfig() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	return getTokenFromGhConfigPath(filepath.Join(homeDir, ".config", "gh", "hosts.yml"))
}

// ghHostsConfig represents the structure of ~/.config/gh/hosts.yml
type ghHostsConfig map[string]ghHost

type ghHost struct {
	OAuthToken string `yaml:"oauth_token"`
	User       string `yaml:"user"`
}

// getTokenFromGhConfigPath reads the github.com token from a gh hosts.yml file.
func getTokenFromGhConfigPath(configPath string) (string, error) {
	data, err := os.ReadFile(configPath)
	if err != nil {
		return "", fmt.Errorf("failed to read gh config: %w", err)
	}

	var config ghHostsConfig
	if err := yaml.Unmarshal(data, &config); err != nil {
		return "", fmt.Errorf("failed to parse gh config: %w", err)
	}

	if host, ok := config["github.com"]; ok && host.OAuthToken != "" {
		return host.OAuthToken, nil
	}

	return "", fmt.Errorf("no oauth_token found in gh config")
}

// IssueURL returns the API URL of a single issue.
func (c *Client) IssueURL(owner, repo string, number int) string {
	return fmt.Sprintf("%s/repos/%s/%s/issues/%d", c.baseURL, owner, repo, number)
}

// GetJSON issues a GET against url and decodes the JSON response into v.
//
// Errors: *NetworkError for transport failures, *HTTPStatusError for any
// status other than 200, *ContentTypeError when the response is not JSON,
// and ErrMalformedBody when decoding fails. No retries happen here.
func (c *Client) GetJSON(ctx context.Context, url string, v interface{}) error {
	_, err := c.get(ctx, url, v)
	return err
}

func (c *Client) get(ctx context.Context, url string, v interface{}) (http.Header, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, &NetworkError{URL: url, Err: err}
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "application/vnd.github+json")
	req.Header.Set("X-GitHub-Api-Version", "2022-11-28")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &NetworkError{URL: url, Err: err}
	}
	defer resp.Body.Close()

	checkRateLimit(resp)

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return nil, &HTTPStatusError{URL: url, Code: resp.StatusCode, Body: strings.TrimSpace(string(body))}
	}

	contentType := resp.Header.Get("Content-Type")
	if !isJSON(contentType) {
		io.Copy(io.Discard, resp.Body)
		return nil, &ContentTypeError{URL: url, Type: contentType}
	}

	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedBody, err)
	}

	return resp.Header, nil
}

func isJSON(contentType string) bool {
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return false
	}
	return mediaType == "application/json"
}

// checkRateLimit logs rate limit information from response headers.
func checkRateLimit(resp *http.Response) {
	remaining := resp.Header.Get("X-RateLimit-Remaining")
	reset := resp.Header.Get("X-RateLimit-Reset")

	if remaining == "0" && reset != "" {
		resetTime, err := strconv.ParseInt(reset, 10, 64)
		if err == nil {
			resetAt := time.Unix(resetTime, 0)
			log.Warn("GitHub API rate limit exceeded. Resets at %s", resetAt.Format(time.RFC3339))
		}
	}
}

// GetIssue fetches a single issue by number.
func (c *Client) GetIssue(ctx context.Context, owner, repo string, number int) (*Issue, error) {
	var issue Issue
	if err := c.GetJSON(ctx, c.IssueURL(owner, repo, number), &issue); err != nil {
		return nil, fmt.Errorf("failed to fetch issue #%d: %w", number, err)
	}
	return &issue, nil
}

// ListComments fetches all comments behind an issue's comments_url, oldest first.
// Handles pagination automatically.
func (c *Client) ListComments(ctx context.Context, commentsURL string) ([]Comment, error) {
	var allComments []Comment
	url := withPerPage(commentsURL)

	for url != "" {
		var comments []Comment
		header, err := c.get(ctx, url, &comments)
		if err != nil {
			return nil, fmt.Errorf("failed to list comments: %w", err)
		}
		allComments = append(allComments, comments...)
		url = getNextPageURL(header.Get("Link"))
	}

	return allComments, nil
}

func withPerPage(url string) string {
	if strings.Contains(url, "per_page=") {
		return url
	}
	if strings.Contains(url, "?") {
		return url + "&per_page=100"
	}
	return url + "?per_page=100"
}

var nextLinkRegex = regexp.MustCompile(`<([^>]+)>;\s*rel="next"`)

// getNextPageURL extracts the next page URL from the Link header.
// Link header format: <url>; rel="next", <url>; rel="last"
func getNextPageURL(linkHeader string) string {
	if linkHeader == "" {
		return ""
	}

	matches := nextLinkRegex.FindStringSubmatch(linkHeader)
	if len(matches) >= 2 {
		return matches[1]
	}

	return ""
}
