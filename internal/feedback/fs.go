package feedback

import (
	"io/fs"
	"os"
)

// FileSystem is the file access the coordinator needs.
type FileSystem interface {
	Stat(name string) (fs.FileInfo, error)
	Remove(name string) error
	// CreateTemp creates a new temporary file whose name matches pattern.
	CreateTemp(pattern string) (*os.File, error)
}

// OSFileSystem uses the local disk. Temporary files go to TempDir, or the
// system default when empty.
type OSFileSystem struct {
	TempDir string
}

func (o OSFileSystem) Stat(name string) (fs.FileInfo, error) { return os.Stat(name) }

func (o OSFileSystem) Remove(name string) error { return os.Remove(name) }

func (o OSFileSystem) CreateTemp(pattern string) (*os.File, error) {
	return os.CreateTemp(o.TempDir, pattern)
}
