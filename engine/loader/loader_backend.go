package loader

import (
	"fmt"
	"io/fs"
	"os"
	"path"
	"strings"
)

// loaderBackend reads raw bytes for a path. Concrete implementations serve the disk, an
// arbitrary fs.FS, or the assets embedded in the binary.
type loaderBackend interface {
	// Read returns the full contents of the file at name.
	//
	// Parameters:
	//   - name: the path with any scheme prefix already removed
	//
	// Returns:
	//   - []byte: the file contents
	//   - error: error if the file cannot be read
	Read(name string) ([]byte, error)
}

// diskLoaderBackend reads paths from the operating system as given, relative to the working directory.
type diskLoaderBackend struct{}

func (diskLoaderBackend) Read(name string) ([]byte, error) {
	return os.ReadFile(name)
}

// fsLoaderBackend reads slash-separated paths from an fs.FS.
type fsLoaderBackend struct {
	fsys fs.FS
}

func (b fsLoaderBackend) Read(name string) ([]byte, error) {
	clean := path.Clean(strings.TrimPrefix(strings.ReplaceAll(name, "\\", "/"), "/"))
	if !fs.ValidPath(clean) {
		return nil, fmt.Errorf("invalid path %q: %w", name, fs.ErrInvalid)
	}
	return fs.ReadFile(b.fsys, clean)
}
