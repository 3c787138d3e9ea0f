package feedback

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"sort"
)

// Source names a kind of content the system can attach on request.
type Source string

const (
	SourceLog      Source = "log"
	SourceNetLog   Source = "netlog"
	SourceSession  Source = "session"
	SourceSettings Source = "settings"
	SourceState    Source = "state"
	SourceActions  Source = "actions"
)

// Snapshotter provides the data behind the session, settings and state sources.
type Snapshotter interface {
	Snapshot(ctx context.Context, source Source) (interface{}, error)
}

type sourceHandler func(ctx context.Context, c *Coordinator, source Source, name string) ([]File, error)

var sources = map[Source]struct {
	name   string
	handle sourceHandler
	// generated sources write temporary files that only exist for the submission.
	generated bool
}{
	SourceLog:      {"Application Log", attachLogs, false},
	SourceNetLog:   {"Network Log", attachNetLog, false},
	SourceSession:  {"Session", dumpSnapshot, true},
	SourceSettings: {"Settings", dumpSnapshot, true},
	SourceState:    {"State", dumpSnapshot, true},
	SourceActions:  {"Action History", dumpActions, true},
}

// ParseSource looks up a source by name.
func ParseSource(s string) (Source, error) {
	if _, ok := sources[Source(s)]; !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownSource, s)
	}
	return Source(s), nil
}

// Sources lists the known sources by name.
func Sources() []Source {
	out := make([]Source, 0, len(sources))
	for s := range sources {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

func attachLogs(_ context.Context, c *Coordinator, _ Source, _ string) ([]File, error) {
	return c.existingFiles(c.cfg.LogFiles, KindLog)
}

func attachNetLog(_ context.Context, c *Coordinator, _ Source, _ string) ([]File, error) {
	if c.cfg.NetLogFile == "" {
		return nil, nil
	}
	return c.existingFiles([]string{c.cfg.NetLogFile}, KindLog)
}

func dumpSnapshot(ctx context.Context, c *Coordinator, source Source, name string) ([]File, error) {
	if c.snapshots == nil {
		return nil, fmt.Errorf("%w: %s", ErrSourceUnavailable, source)
	}
	v, err := c.snapshots.Snapshot(ctx, source)
	if err != nil {
		return nil, fmt.Errorf("failed to snapshot %s: %w", source, err)
	}
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("failed to encode %s: %w", source, err)
	}
	f, err := c.writeTemp(string(source)+"-*.json", name, KindState, data)
	if err != nil {
		return nil, err
	}
	return []File{f}, nil
}

func dumpActions(_ context.Context, c *Coordinator, _ Source, name string) ([]File, error) {
	data, err := json.MarshalIndent(c.History(), "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to encode action history: %w", err)
	}
	f, err := c.writeTemp("events-*.json", name, KindDump, data)
	if err != nil {
		return nil, err
	}
	return []File{f}, nil
}

// existingFiles stats paths and describes the ones that exist. Missing files
// are skipped silently.
func (c *Coordinator) existingFiles(paths []string, kind Kind) ([]File, error) {
	var out []File
	for _, p := range paths {
		info, err := c.fs.Stat(p)
		if errors.Is(err, fs.ErrNotExist) {
			log.Debug("skipping missing file %s", p)
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("failed to stat %s: %w", p, err)
		}
		out = append(out, File{
			Filename: filepath.Base(p),
			FilePath: p,
			Kind:     kind,
			Size:     info.Size(),
		})
	}
	return out, nil
}

// writeTemp materializes data into a temporary file.
func (c *Coordinator) writeTemp(pattern, name string, kind Kind, data []byte) (File, error) {
	tmp, err := c.fs.CreateTemp(pattern)
	if err != nil {
		return File{}, fmt.Errorf("failed to create temporary file: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		c.fs.Remove(tmp.Name())
		return File{}, fmt.Errorf("failed to write %s: %w", tmp.Name(), err)
	}
	if err := tmp.Close(); err != nil {
		c.fs.Remove(tmp.Name())
		return File{}, fmt.Errorf("failed to close %s: %w", tmp.Name(), err)
	}
	return File{Filename: name, FilePath: tmp.Name(), Kind: kind, Size: int64(len(data))}, nil
}
