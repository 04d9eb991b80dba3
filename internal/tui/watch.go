package tui

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/sirupsen/logrus"

	"github.com/danieljhkim/bundlever/internal/manifest"
)

// DefaultDebounce is how long the watcher waits for manifest writes to settle.
const DefaultDebounce = 500 * time.Millisecond

// Watcher reports manifest changes under a workspace, coalescing bursts of
// events into one callback.
type Watcher struct {
	root     string
	maxDepth int
	exclude  []string
	debounce time.Duration
	onChange func()
	log      logrus.FieldLogger

	watcher *fsnotify.Watcher

	mu    sync.Mutex
	timer *time.Timer
}

// NewWatcher watches every directory under root down to the META-INF
// directories of projects at most maxDepth levels deep.
func NewWatcher(root string, maxDepth int, exclude []string, debounce time.Duration, onChange func(), log logrus.FieldLogger) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create watcher: %w", err)
	}

	w := &Watcher{
		root:     root,
		maxDepth: maxDepth,
		exclude:  exclude,
		debounce: debounce,
		onChange: onChange,
		log:      log,
		watcher:  fw,
	}

	if err := w.addTree(root); err != nil {
		_ = fw.Close()
		return nil, err
	}
	return w, nil
}

// addTree adds dir and its subdirectories within the depth limit.
func (w *Watcher) addTree(dir string) error {
	return filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if path == dir {
				return err
			}
			return nil
		}
		if !d.IsDir() {
			return nil
		}
		if path != w.root && slices.Contains(w.exclude, d.Name()) {
			return fs.SkipDir
		}
		if w.depth(path) > w.maxDepth+1 {
			return fs.SkipDir
		}
		if err := w.watcher.Add(path); err != nil {
			w.log.WithField("path", path).WithError(err).Debug("Cannot watch directory")
		}
		return nil
	})
}

func (w *Watcher) depth(path string) int {
	rel, err := filepath.Rel(w.root, path)
	if err != nil || rel == "." {
		return 0
	}
	return strings.Count(rel, string(filepath.Separator)) + 1
}

// Run processes file system events until ctx is done.
func (w *Watcher) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return

		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			w.handle(event)

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.log.WithError(err).Warn("Watcher error")
		}
	}
}

func (w *Watcher) handle(event fsnotify.Event) {
	// New project directories must be watched too
	if event.Has(fsnotify.Create) {
		if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
			if err := w.addTree(event.Name); err != nil {
				w.log.WithField("path", event.Name).WithError(err).Debug("Cannot watch new directory")
			}
			w.schedule()
			return
		}
	}

	if filepath.Base(event.Name) != filepath.Base(manifest.RelPath) {
		return
	}
	if event.Has(fsnotify.Chmod) && !event.Has(fsnotify.Write) {
		return
	}
	w.log.WithField("path", event.Name).Debugf("Manifest event %s", event.Op)
	w.schedule()
}

// schedule (re)starts the debounce timer.
func (w *Watcher) schedule() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.timer != nil {
		w.timer.Stop()
	}
	w.timer = time.AfterFunc(w.debounce, w.onChange)
}

// Close stops watching and cancels a pending callback.
func (w *Watcher) Close() error {
	w.mu.Lock()
	if w.timer != nil {
		w.timer.Stop()
	}
	w.mu.Unlock()
	return w.watcher.Close()
}
