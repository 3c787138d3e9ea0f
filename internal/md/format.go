// Package md renders cached issues as markdown documents with YAML frontmatter.
package md

import (
	"bytes"
	"fmt"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/JohanCodinha/ghfeedback/internal/cache"
)

// Frontmatter is the metadata block of a rendered issue.
type Frontmatter struct {
	ID            int      `yaml:"id"`
	Repo          string   `yaml:"repo"`
	URL           string   `yaml:"url"`
	State         string   `yaml:"state"`
	Author        string   `yaml:"author,omitempty"`
	Labels        []string `yaml:"labels,omitempty"`
	Milestone     string   `yaml:"milestone,omitempty"`
	Comments      int      `yaml:"comments"`
	CreatedAt     string   `yaml:"created_at"`
	UpdatedAt     string   `yaml:"updated_at"`
	ClosedAt      string   `yaml:"closed_at,omitempty"`
	AwaitingReply bool     `yaml:"awaiting_reply"`
	AnsweredAt    string   `yaml:"answered_at,omitempty"`
}

// Document is a parsed markdown issue.
type Document struct {
	Frontmatter
	Title string
	Body  string
}

// Format converts a cache entry to markdown with YAML frontmatter.
func Format(e cache.Entry, repo string) string {
	fm := Frontmatter{
		ID:            e.Number,
		Repo:          repo,
		URL:           fmt.Sprintf("https://github.com/%s/issues/%d", repo, e.Number),
		State:         string(e.State),
		Author:        e.User,
		Labels:        e.Labels,
		Comments:      e.Comments,
		CreatedAt:     timestamp(e.CreatedTime),
		UpdatedAt:     timestamp(e.LastUpdated),
		ClosedAt:      timestamp(e.ClosedTime),
		AwaitingReply: e.NotifiedForReply,
		AnsweredAt:    timestamp(e.LastCommentResponse),
	}
	if e.Milestone != nil {
		fm.Milestone = e.Milestone.Title
	}

	var buf bytes.Buffer
	buf.WriteString("---\n")
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	// Encoding a flat struct of scalars cannot fail.
	_ = enc.Encode(&fm)
	enc.Close()
	buf.WriteString("---\n\n")

	fmt.Fprintf(&buf, "# %s\n\n", e.Title)
	buf.WriteString("## Body\n\n")
	if body := strings.TrimRight(e.Body, "\n"); body != "" {
		buf.WriteString(body)
		buf.WriteString("\n")
	}
	return buf.String()
}

func timestamp(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}

// Parse reads a document produced by Format. A missing "## Body" section
// yields an empty body.
func Parse(content string) (*Document, error) {
	rest, ok := strings.CutPrefix(content, "---\n")
	if !ok {
		return nil, fmt.Errorf("missing frontmatter")
	}
	raw, rest, ok := strings.Cut(rest, "\n---\n")
	if !ok {
		return nil, fmt.Errorf("unterminated frontmatter")
	}

	doc := &Document{}
	if err := yaml.Unmarshal([]byte(raw), &doc.Frontmatter); err != nil {
		return nil, fmt.Errorf("failed to parse frontmatter: %w", err)
	}

	lines := strings.Split(rest, "\n")
	bodyStart := -1
	for i, line := range lines {
		if doc.Title == "" && strings.HasPrefix(line, "# ") {
			doc.Title = strings.TrimSpace(strings.TrimPrefix(line, "# "))
			continue
		}
		if strings.TrimSpace(line) == "## Body" {
			bodyStart = i + 1
			break
		}
	}
	if bodyStart >= 0 {
		doc.Body = strings.Trim(strings.Join(lines[bodyStart:], "\n"), "\n")
	}
	return doc, nil
}
