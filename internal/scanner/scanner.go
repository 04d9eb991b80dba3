// Package scanner discovers plugin projects in a workspace and reads their
// manifests into a plugin.Snapshot.
//
// A plugin project is any directory, at most MaxDepth levels below the
// workspace root, that contains META-INF/MANIFEST.MF. Manifests are read in
// parallel. A manifest that cannot be read is reported in Result.Corrupt and
// left out of the snapshot; it never aborts the scan.
package scanner

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"slices"
	"strings"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/danieljhkim/bundlever/internal/config"
	"github.com/danieljhkim/bundlever/internal/fsops"
	"github.com/danieljhkim/bundlever/internal/manifest"
	"github.com/danieljhkim/bundlever/internal/plugin"
)

// ErrDuplicateName indicates two manifests declare the same bundle name.
var ErrDuplicateName = errors.New("duplicate bundle name")

// Options tunes a scan.
type Options struct {
	MaxDepth    int
	Concurrency int
	Exclude     []string
}

// OptionsFromConfig converts the scan section of the user config.
func OptionsFromConfig(cfg config.ScanConfig) Options {
	return Options{
		MaxDepth:    cfg.MaxDepth,
		Concurrency: cfg.Concurrency,
		Exclude:     cfg.Exclude,
	}
}

// Corrupt describes a manifest excluded from the scan.
type Corrupt struct {
	Ref string
	Err error
}

// Result is the outcome of a scan.
type Result struct {
	Snapshot *plugin.Snapshot
	Corrupt  []Corrupt
}

// Scanner walks workspaces.
type Scanner struct {
	fs   fsops.FS
	opts Options
	log  logrus.FieldLogger
}

// New creates a Scanner.
func New(fs fsops.FS, opts Options, log logrus.FieldLogger) *Scanner {
	if opts.MaxDepth < 1 {
		opts.MaxDepth = 1
	}
	if opts.Concurrency < 1 {
		opts.Concurrency = 1
	}
	return &Scanner{fs: fs, opts: opts, log: log}
}

type readResult struct {
	entry plugin.Entry
	err   error
}

// Scan discovers and reads every plugin manifest under root.
func (s *Scanner) Scan(ctx context.Context, root string) (*Result, error) {
	paths, err := s.discover(ctx, root)
	if err != nil {
		return nil, err
	}
	s.log.WithFields(logrus.Fields{"workspace": root, "manifests": len(paths)}).Debug("Discovered manifests")

	results := make([]readResult, len(paths))
	eg, egCtx := errgroup.WithContext(ctx)
	eg.SetLimit(s.opts.Concurrency)

	for i, path := range paths {
		i, path := i, path
		eg.Go(func() error {
			if err := egCtx.Err(); err != nil {
				return err
			}
			entry, err := s.read(egCtx, path)
			results[i] = readResult{entry: entry, err: err}
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, fmt.Errorf("failed to read manifests: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	res := &Result{}
	entries := make([]plugin.Entry, 0, len(results))
	owners := make(map[string]string, len(results))
	for i, r := range results {
		if r.err != nil {
			res.Corrupt = append(res.Corrupt, Corrupt{Ref: paths[i], Err: r.err})
			continue
		}
		if prev, dup := owners[r.entry.Name]; dup {
			res.Corrupt = append(res.Corrupt, Corrupt{
				Ref: paths[i],
				Err: fmt.Errorf("%w: %w: %q already declared by %s", manifest.ErrParse, ErrDuplicateName, r.entry.Name, prev),
			})
			continue
		}
		owners[r.entry.Name] = paths[i]
		entries = append(entries, r.entry)
	}

	for _, c := range res.Corrupt {
		s.log.WithField("manifest", c.Ref).WithError(c.Err).Warn("Skipping corrupt manifest")
	}

	res.Snapshot = plugin.NewSnapshot(root, entries)
	return res, nil
}

// read loads one manifest. The bundle name falls back to the project
// directory name when Bundle-SymbolicName is missing.
func (s *Scanner) read(ctx context.Context, path string) (plugin.Entry, error) {
	res := manifest.NewFile(s.fs, path)
	m, err := res.Load(ctx)
	if err != nil {
		return plugin.Entry{}, err
	}
	v, err := m.Version()
	if err != nil {
		return plugin.Entry{}, err
	}

	name := m.SymbolicName()
	if name == "" {
		name = filepath.Base(projectDir(path))
	}
	return plugin.Entry{Name: name, Version: v, Resource: res}, nil
}

// discover returns manifest paths in lexical walk order.
func (s *Scanner) discover(ctx context.Context, root string) ([]string, error) {
	var paths []string
	manifestSuffix := filepath.FromSlash(manifest.RelPath)

	err := s.fs.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		if err != nil {
			if path == root {
				return err
			}
			s.log.WithField("path", path).WithError(err).Debug("Skipping unreadable path")
			if d != nil && d.IsDir() {
				return fs.SkipDir
			}
			return nil
		}

		rel, relErr := filepath.Rel(root, path)
		if relErr != nil {
			return relErr
		}
		depth := 0
		if rel != "." {
			depth = strings.Count(rel, string(filepath.Separator)) + 1
		}

		if d.IsDir() {
			if path != root && slices.Contains(s.opts.Exclude, d.Name()) {
				return fs.SkipDir
			}
			// META-INF sits one level below the deepest allowed project
			if depth > s.opts.MaxDepth+1 {
				return fs.SkipDir
			}
			return nil
		}

		if strings.HasSuffix(path, string(filepath.Separator)+manifestSuffix) || rel == manifestSuffix {
			paths = append(paths, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to walk workspace %s: %w", root, err)
	}
	return paths, nil
}

// projectDir returns the plugin project directory for a manifest path.
func projectDir(manifestPath string) string {
	return filepath.Dir(filepath.Dir(manifestPath))
}
