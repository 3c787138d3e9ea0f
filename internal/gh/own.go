package gh

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/google/go-github/v62/github"
)

// OwnIssues lists the numbers of issues a user opened in one repository.
type OwnIssues struct {
	client *github.Client
	owner  string
	repo   string
	login  string
}

// NewRESTClient creates a go-github client for token, pointed at baseURL when
// it differs from the public API.
func NewRESTClient(token, baseURL string) (*github.Client, error) {
	var client *github.Client
	if token != "" {
		client = github.NewTokenClient(context.Background(), token)
	} else {
		client = github.NewClient(nil)
	}
	client.UserAgent = DefaultUserAgent

	if baseURL != "" && baseURL != apiBaseURL {
		u, err := url.Parse(strings.TrimSuffix(baseURL, "/") + "/")
		if err != nil {
			return nil, fmt.Errorf("invalid API URL %q: %w", baseURL, err)
		}
		client.BaseURL = u
	}
	return client, nil
}

// NewOwnIssues creates a lister backed by go-github. When login is empty the
// authenticated user is looked up on first use, which requires a token.
func NewOwnIssues(token, baseURL, owner, repo, login string) (*OwnIssues, error) {
	client, err := NewRESTClient(token, baseURL)
	if err != nil {
		return nil, err
	}
	return &OwnIssues{client: client, owner: owner, repo: repo, login: login}, nil
}

// ListOwnIssueIDs returns the numbers of all issues (open and closed) created by
// the user, skipping pull requests.
func (o *OwnIssues) ListOwnIssueIDs(ctx context.Context) ([]int, error) {
	login := o.login
	if login == "" {
		user, resp, err := o.client.Users.Get(ctx, "")
		if err != nil {
			if resp != nil && resp.StatusCode == http.StatusUnauthorized {
				return nil, fmt.Errorf("cannot determine current user: no valid token")
			}
			return nil, fmt.Errorf("failed to get current user: %w", err)
		}
		login = user.GetLogin()
		o.login = login
	}

	opts := &github.IssueListByRepoOptions{
		Creator:     login,
		State:       "all",
		ListOptions: github.ListOptions{PerPage: 100},
	}

	var ids []int
	for {
		issues, resp, err := o.client.Issues.ListByRepo(ctx, o.owner, o.repo, opts)
		if err != nil {
			return nil, fmt.Errorf("failed to list issues of %s: %w", login, err)
		}
		for _, issue := range issues {
			if issue.IsPullRequest() {
				continue
			}
			ids = append(ids, issue.GetNumber())
		}
		if resp.NextPage == 0 {
			break
		}
		opts.Page = resp.NextPage
	}

	return ids, nil
}
