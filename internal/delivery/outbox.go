package delivery

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"

	"github.com/JohanCodinha/ghfeedback/internal/feedback"
)

const manifestName = "report.yaml"

// Manifest describes one report written to the outbox.
type Manifest struct {
	ID          string       `yaml:"id"`
	Issue       int          `yaml:"issue"`
	Title       string       `yaml:"title"`
	Body        string       `yaml:"body"`
	Anonymous   bool         `yaml:"anonymous"`
	CreatedAt   time.Time    `yaml:"created_at"`
	Attachments []Attachment `yaml:"attachments,omitempty"`
}

// Attachment is a file copied next to the manifest.
type Attachment struct {
	Name   string `yaml:"name"`
	Size   int64  `yaml:"size"`
	Source string `yaml:"source"`
}

// Outbox stores each report in its own directory under Dir, together with
// copies of its attachments. Another tool picks them up from there.
type Outbox struct {
	Dir string
	now func() time.Time
}

// NewOutbox creates an outbox rooted at dir.
func NewOutbox(dir string) *Outbox {
	return &Outbox{Dir: dir, now: time.Now}
}

// Deliver implements feedback.Deliverer. The attachments are copied before
// returning, so the caller may remove the originals afterwards.
func (o *Outbox) Deliver(ctx context.Context, report feedback.Report) error {
	if report.Title == "" {
		return &feedback.InvalidParameterError{Message: "title is required"}
	}

	m := Manifest{
		ID:        uuid.NewString(),
		Issue:     report.Issue,
		Title:     report.Title,
		Body:      report.Body,
		Anonymous: report.Anonymous,
		CreatedAt: o.now().UTC(),
	}
	dir := filepath.Join(o.Dir, m.ID)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create outbox entry: %w", err)
	}

	for i, src := range report.Attachments {
		if err := ctx.Err(); err != nil {
			os.RemoveAll(dir)
			return err
		}
		// Attachments may share a base name, the index keeps copies apart.
		name := fmt.Sprintf("%02d-%s", i+1, filepath.Base(src))
		size, err := copyFile(src, filepath.Join(dir, name))
		if err != nil {
			os.RemoveAll(dir)
			return fmt.Errorf("failed to copy attachment %s: %w", src, err)
		}
		m.Attachments = append(m.Attachments, Attachment{Name: name, Size: size, Source: src})
	}

	data, err := yaml.Marshal(&m)
	if err != nil {
		os.RemoveAll(dir)
		return fmt.Errorf("failed to encode manifest: %w", err)
	}
	if err := os.WriteFile(filepath.Join(dir, manifestName), data, 0644); err != nil {
		os.RemoveAll(dir)
		return fmt.Errorf("failed to write manifest: %w", err)
	}

	log.Info("queued response to #%d in %s", report.Issue, dir)
	return nil
}

// CarriesFiles implements feedback.FileCarrier.
func (o *Outbox) CarriesFiles() bool { return true }

// List returns the manifests waiting in the outbox, oldest first.
func (o *Outbox) List() ([]Manifest, error) {
	entries, err := os.ReadDir(o.Dir)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read outbox: %w", err)
	}

	var out []Manifest
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		m, err := ReadManifest(filepath.Join(o.Dir, e.Name()))
		if err != nil {
			log.Warn("skipping outbox entry %s: %v", e.Name(), err)
			continue
		}
		out = append(out, m)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

// ReadManifest loads the manifest stored in an outbox entry directory.
func ReadManifest(dir string) (Manifest, error) {
	var m Manifest
	data, err := os.ReadFile(filepath.Join(dir, manifestName))
	if err != nil {
		return m, err
	}
	if err := yaml.Unmarshal(data, &m); err != nil {
		return m, fmt.Errorf("failed to parse %s: %w", manifestName, err)
	}
	return m, nil
}

func copyFile(src, dst string) (int64, error) {
	in, err := os.Open(src)
	if err != nil {
		return 0, err
	}
	defer in.Close()

	out, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0644)
	if err != nil {
		return 0, err
	}
	n, err := io.Copy(out, in)
	if cerr := out.Close(); err == nil {
		err = cerr
	}
	return n, err
}
