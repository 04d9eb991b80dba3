package manifest

import (
	"context"
	"fmt"
	"os"

	"github.com/danieljhkim/bundlever/internal/fsops"
	"github.com/danieljhkim/bundlever/internal/version"
)

// Resource is the storage boundary for one plugin's manifest. The apply path
// depends only on this contract, never on manifest structure.
type Resource interface {
	// Ref identifies the resource, typically the manifest path.
	Ref() string

	// ReadVersion returns the persisted version. Errors wrap ErrParse.
	ReadVersion(ctx context.Context) (version.Version, error)

	// WriteVersion persists v. Errors wrap ErrWrite.
	WriteVersion(ctx context.Context, v version.Version) error
}

// File is a Resource backed by a MANIFEST.MF on disk.
type File struct {
	fs   fsops.FS
	path string
}

// NewFile creates a File resource for the manifest at path.
func NewFile(fs fsops.FS, path string) *File {
	return &File{fs: fs, path: path}
}

// Ref returns the manifest path.
func (f *File) Ref() string {
	return f.path
}

// Load reads and parses the manifest.
func (f *File) Load(ctx context.Context) (*Manifest, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	data, err := f.fs.ReadFile(f.path)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read %s: %w", ErrParse, f.path, err)
	}
	m, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", f.path, err)
	}
	return m, nil
}

// ReadVersion reads Bundle-Version from disk.
func (f *File) ReadVersion(ctx context.Context) (version.Version, error) {
	m, err := f.Load(ctx)
	if err != nil {
		return version.Version{}, err
	}
	v, err := m.Version()
	if err != nil {
		return version.Version{}, fmt.Errorf("%s: %w", f.path, err)
	}
	return v, nil
}

// WriteVersion rewrites Bundle-Version in place, keeping the file mode and
// every other byte of the manifest.
func (f *File) WriteVersion(ctx context.Context, v version.Version) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	info, err := f.fs.Stat(f.path)
	if err != nil {
		return fmt.Errorf("%w: failed to stat %s: %w", ErrWrite, f.path, err)
	}

	data, err := f.fs.ReadFile(f.path)
	if err != nil {
		return fmt.Errorf("%w: failed to read %s: %w", ErrWrite, f.path, err)
	}

	m, err := Parse(data)
	if err != nil {
		return fmt.Errorf("%w: %s: %w", ErrWrite, f.path, err)
	}

	if err := f.fs.AtomicWrite(f.path, m.WithVersion(v), permOf(info)); err != nil {
		return fmt.Errorf("%w: failed to write %s: %w", ErrWrite, f.path, err)
	}
	return nil
}

func permOf(info os.FileInfo) os.FileMode {
	if info == nil {
		return 0644
	}
	return info.Mode().Perm()
}
