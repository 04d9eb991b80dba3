// Package config manages bundlever configuration and filesystem paths.
//
// The default root is ~/.bundlever/ containing sessions/, config.yaml and the
// TUI log file. The root can be moved with the BUNDLEVER_ROOT environment
// variable.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/danieljhkim/bundlever/internal/fsops"
)

// Paths contains all the filesystem paths used by bundlever.
type Paths struct {
	// Root is the base directory for all bundlever data (default: ~/.bundlever)
	Root string

	// Sessions is the directory containing per-workspace session files
	Sessions string

	// Config is the path to the global config file
	Config string

	// LogFile is where the TUI writes its log
	LogFile string
}

// DefaultPaths returns the default paths for bundlever.
// Paths can be overridden with environment variables:
// - BUNDLEVER_ROOT: Override the root directory
func DefaultPaths() (*Paths, error) {
	root := os.Getenv("BUNDLEVER_ROOT")
	if root == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("failed to get user home directory: %w", err)
		}
		root = filepath.Join(home, ".bundlever")
	}

	return PathsAt(root), nil
}

// PathsAt returns the layout rooted at root.
func PathsAt(root string) *Paths {
	return &Paths{
		Root:     root,
		Sessions: filepath.Join(root, "sessions"),
		Config:   filepath.Join(root, "config.yaml"),
		LogFile:  filepath.Join(root, "bundlever.log"),
	}
}

// EnsureDirectories creates all necessary directories if they don't exist.
func (p *Paths) EnsureDirectories(fs fsops.FS) error {
	dirs := []string{
		p.Root,
		p.Sessions,
	}

	for _, dir := range dirs {
		if err := fs.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}

	return nil
}
