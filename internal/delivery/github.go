// Package delivery implements the channels a feedback response can be sent
// through.
package delivery

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/google/go-github/v62/github"

	"github.com/JohanCodinha/ghfeedback/internal/feedback"
	"github.com/JohanCodinha/ghfeedback/internal/gh"
	"github.com/JohanCodinha/ghfeedback/internal/logger"
)

var log = logger.Named("delivery")

// GitHub posts a response as a comment on the issue it answers.
//
// The REST API has no upload endpoint for issue comments, so attachments are
// listed by name and stay on the reporter's machine.
type GitHub struct {
	client *github.Client
	owner  string
	repo   string
}

// NewGitHub creates a deliverer that comments on owner/repo.
func NewGitHub(token, baseURL, owner, repo string) (*GitHub, error) {
	client, err := gh.NewRESTClient(token, baseURL)
	if err != nil {
		return nil, err
	}
	return &GitHub{client: client, owner: owner, repo: repo}, nil
}

// Deliver implements feedback.Deliverer.
func (g *GitHub) Deliver(ctx context.Context, report feedback.Report) error {
	if report.Issue <= 0 {
		return &feedback.InvalidParameterError{Message: "the response does not name an issue"}
	}

	body := commentBody(report)
	comment, _, err := g.client.Issues.CreateComment(ctx, g.owner, g.repo, report.Issue, &github.IssueComment{Body: &body})
	if err != nil {
		return mapError(err)
	}
	log.Info("posted response to #%d as comment %d", report.Issue, comment.GetID())
	return nil
}

// CarriesFiles implements feedback.FileCarrier. Comments can only name the
// attachments, their content stays on the reporter's machine.
func (g *GitHub) CarriesFiles() bool { return false }

func commentBody(report feedback.Report) string {
	var b strings.Builder
	fmt.Fprintf(&b, "### %s\n\n", report.Title)
	b.WriteString(report.Body)
	b.WriteString("\n")

	if len(report.Attachments) > 0 {
		b.WriteString("\n<details><summary>Attachments kept locally</summary>\n\n")
		for _, p := range report.Attachments {
			fmt.Fprintf(&b, "- `%s`\n", filepath.Base(p))
		}
		b.WriteString("\n</details>\n")
	}
	if report.Anonymous {
		b.WriteString("\n_The reporter asked not to be contacted about this response._\n")
	}
	return b.String()
}

// mapError turns API failures into the feedback error shapes.
func mapError(err error) error {
	var apiErr *github.ErrorResponse
	if !errors.As(err, &apiErr) {
		return err
	}

	code := 0
	if apiErr.Response != nil {
		code = apiErr.Response.StatusCode
	}
	if code == http.StatusUnprocessableEntity {
		msg := apiErr.Message
		for _, e := range apiErr.Errors {
			if e.Message != "" {
				msg += ": " + e.Message
			} else if e.Field != "" {
				msg += fmt.Sprintf(": %s %s", e.Field, e.Code)
			}
		}
		return &feedback.InvalidParameterError{Message: msg}
	}
	return &feedback.ResponseError{Message: fmt.Sprintf("HTTP %d", code), Body: apiErr.Message}
}
