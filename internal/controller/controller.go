// Package controller owns a workspace's plugin registry and serialises every
// operation on it.
//
// A single owner goroutine (Run) executes all reads and mutations, so plugins
// are never touched concurrently. Scans run on worker goroutines and hand
// their result back to the owner, tagged with a generation number; a result
// older than the newest requested scan is discarded. Observers learn about
// changes through Subscribe.
//
// State machine:
//
//	Unloaded --SetWorkspace--> Loading --scan accepted--> Loaded
//	Loaded --Reload/SetWorkspace--> Loading
//
// Edits made while a scan is in flight act on the previous registry and are
// lost when the scan is accepted, the same as an explicit reload.
package controller

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"sync/atomic"

	"github.com/sirupsen/logrus"

	"github.com/danieljhkim/bundlever/internal/engine"
	"github.com/danieljhkim/bundlever/internal/fsops"
	"github.com/danieljhkim/bundlever/internal/planner"
	"github.com/danieljhkim/bundlever/internal/plugin"
	"github.com/danieljhkim/bundlever/internal/scanner"
	"github.com/danieljhkim/bundlever/internal/version"
)

// Scanner produces a snapshot of a workspace.
type Scanner interface {
	Scan(ctx context.Context, root string) (*scanner.Result, error)
}

// Controller is the workspace state machine.
type Controller struct {
	scanner Scanner
	engine  *engine.Engine
	fs      fsops.FS
	log     logrus.FieldLogger

	inbox     chan func()
	done      chan struct{}
	closeOnce sync.Once
	running   atomic.Bool

	// Mirrors of owner state for lock-free reads
	stateView     atomic.Int32
	workspaceView atomic.Value

	// Owned by the Run goroutine
	runCtx     context.Context
	state      State
	workspace  string
	generation uint64
	cancelScan context.CancelFunc
	registry   *plugin.Registry
	snapshot   *plugin.Snapshot

	subsMu     sync.Mutex
	subs       map[int]*subscriber
	nextSub    int
	subsClosed bool
}

// New creates a Controller. Nothing happens until Run is started.
func New(sc Scanner, eng *engine.Engine, fs fsops.FS, log logrus.FieldLogger) *Controller {
	c := &Controller{
		scanner: sc,
		engine:  eng,
		fs:      fs,
		log:     log,
		inbox:   make(chan func()),
		done:    make(chan struct{}),
		subs:    make(map[int]*subscriber),
	}
	c.workspaceView.Store("")
	return c
}

// Run executes the owner loop until ctx is done or Close is called. It must
// be called exactly once. Subscriber channels are closed when it returns.
func (c *Controller) Run(ctx context.Context) error {
	if !c.running.CompareAndSwap(false, true) {
		return fmt.Errorf("controller already running")
	}
	c.runCtx = ctx

	defer func() {
		if c.cancelScan != nil {
			c.cancelScan()
		}
		c.closeSubscribers()
		c.closeOnce.Do(func() { close(c.done) })
	}()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-c.done:
			return nil
		case fn := <-c.inbox:
			fn()
		}
	}
}

// Close stops the owner loop. Pending and future calls return ErrClosed.
func (c *Controller) Close() {
	c.closeOnce.Do(func() { close(c.done) })
}

// State returns the current lifecycle state.
func (c *Controller) State() State {
	return State(c.stateView.Load())
}

// Workspace returns the current workspace root, or "" if none was set.
func (c *Controller) Workspace() string {
	return c.workspaceView.Load().(string)
}

// do runs fn on the owner goroutine and waits for it to finish.
func (c *Controller) do(ctx context.Context, fn func()) error {
	select {
	case <-c.done:
		return ErrClosed
	default:
	}

	finished := make(chan struct{})
	task := func() {
		defer close(finished)
		fn()
	}

	select {
	case c.inbox <- task:
	case <-c.done:
		return ErrClosed
	case <-ctx.Done():
		return ctx.Err()
	}

	// Once accepted the task always runs to completion
	<-finished
	return nil
}

// post hands fn to the owner without waiting. Used by scan workers.
func (c *Controller) post(fn func()) {
	select {
	case c.inbox <- fn:
	case <-c.done:
	}
}

func (c *Controller) setState(s State) {
	c.state = s
	c.stateView.Store(int32(s))
}

// SetWorkspace validates path and starts scanning it. The returned generation
// identifies the scan in later events. On error the state is unchanged.
func (c *Controller) SetWorkspace(ctx context.Context, path string) (uint64, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrInvalidWorkspace, err)
	}

	info, err := c.fs.Stat(abs)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrInvalidWorkspace, err)
	}
	if !info.IsDir() {
		return 0, fmt.Errorf("%w: %s is not a directory", ErrInvalidWorkspace, abs)
	}

	var gen uint64
	err = c.do(ctx, func() {
		c.workspace = abs
		c.workspaceView.Store(abs)
		gen = c.startScan()
	})
	return gen, err
}

// Reload rescans the current workspace.
func (c *Controller) Reload(ctx context.Context) (uint64, error) {
	var gen uint64
	var opErr error
	err := c.do(ctx, func() {
		if c.workspace == "" {
			opErr = ErrNoWorkspace
			return
		}
		gen = c.startScan()
	})
	if err != nil {
		return 0, err
	}
	return gen, opErr
}

// startScan runs on the owner. Any scan still in flight is cancelled; its
// result would be discarded anyway.
func (c *Controller) startScan() uint64 {
	if c.cancelScan != nil {
		c.cancelScan()
	}

	c.generation++
	gen := c.generation
	root := c.workspace

	scanCtx, cancel := context.WithCancel(c.runCtx)
	c.cancelScan = cancel
	c.setState(Loading)

	c.log.WithField("workspace", root).WithField("generation", gen).Debug("Starting scan")

	go func() {
		res, err := c.scanner.Scan(scanCtx, root)
		c.post(func() { c.finishScan(gen, root, res, err) })
	}()

	return gen
}

// finishScan runs on the owner when a scan worker reports back.
func (c *Controller) finishScan(gen uint64, root string, res *scanner.Result, err error) {
	log := c.log.WithField("workspace", root).WithField("generation", gen)

	if gen != c.generation {
		log.Debugf("Discarding stale scan (current generation %d)", c.generation)
		return
	}
	c.cancelScan = nil

	if err != nil {
		log.WithError(err).Warn("Scan failed")
		if c.registry != nil {
			c.setState(Loaded)
		} else {
			c.setState(Unloaded)
		}
		c.publish(ScanFailed{Workspace: root, Generation: gen, Err: err})
		return
	}

	for _, bad := range res.Corrupt {
		c.publish(ManifestCorrupt{Generation: gen, Ref: bad.Ref, Err: bad.Err})
	}

	c.snapshot = res.Snapshot
	c.registry = res.Snapshot.Registry()
	c.setState(Loaded)

	log.WithField("plugins", c.registry.Len()).Info("Workspace loaded")
	c.publish(WorkspaceChanged{
		Workspace:  root,
		Generation: gen,
		Plugins:    c.registry.Views(),
	})
}

// withRegistry runs fn on the owner with the current registry, or returns
// ErrNotLoaded if no scan has been accepted yet.
func (c *Controller) withRegistry(ctx context.Context, fn func(reg *plugin.Registry)) error {
	var loaded bool
	err := c.do(ctx, func() {
		if c.registry == nil {
			return
		}
		loaded = true
		fn(c.registry)
	})
	if err != nil {
		return err
	}
	if !loaded {
		return ErrNotLoaded
	}
	return nil
}

func (c *Controller) publishPlugins(reg *plugin.Registry) {
	c.publish(PluginsUpdated{
		Plugins: reg.Views(),
		Pending: reg.HasPendingChanges(),
	})
}

// Increment bumps one version field of every selected plugin.
func (c *Controller) Increment(ctx context.Context, part version.Part, selection []string) (int, error) {
	var n int
	err := c.withRegistry(ctx, func(reg *plugin.Registry) {
		n = c.engine.Increment(reg, part, selection)
		if n > 0 {
			c.publishPlugins(reg)
		}
	})
	return n, err
}

// SetVersion parses text and assigns it to every selected plugin.
func (c *Controller) SetVersion(ctx context.Context, selection []string, text string) (int, error) {
	var n int
	var opErr error
	err := c.withRegistry(ctx, func(reg *plugin.Registry) {
		n, opErr = c.engine.SetVersion(reg, selection, text)
		if n > 0 {
			c.publishPlugins(reg)
		}
	})
	if err != nil {
		return 0, err
	}
	return n, opErr
}

// Restage re-applies staged edits loaded from a session and returns the
// names that no longer exist in the registry.
func (c *Controller) Restage(ctx context.Context, pending map[string]version.Version) ([]string, error) {
	var missing []string
	err := c.withRegistry(ctx, func(reg *plugin.Registry) {
		missing = c.engine.Restage(reg, pending)
		if reg.HasPendingChanges() {
			c.publishPlugins(reg)
		}
	})
	return missing, err
}

// Plan builds the write plan for the pending edits without writing anything.
func (c *Controller) Plan(ctx context.Context, force bool) (*planner.ApplyPlan, error) {
	var plan *planner.ApplyPlan
	var opErr error
	err := c.withRegistry(ctx, func(reg *plugin.Registry) {
		plan, opErr = planner.BuildApplyPlan(ctx, c.workspace, reg, force)
	})
	if err != nil {
		return nil, err
	}
	return plan, opErr
}

// Apply persists every modified plugin. Saved versions become the new
// baseline, so a later Revert keeps them.
func (c *Controller) Apply(ctx context.Context) (*engine.ApplyResult, error) {
	var result *engine.ApplyResult
	err := c.withRegistry(ctx, func(reg *plugin.Registry) {
		result = c.engine.Apply(ctx, reg)
		if saved := engine.SavedVersions(reg, result); len(saved) > 0 {
			c.snapshot = c.snapshot.WithPersisted(saved)
		}

		c.publish(ApplyCompleted{
			Succeeded: result.Succeeded,
			Failed:    result.Failed,
			Saved:     result.Saved,
		})
		if !result.NoChanges() {
			c.publishPlugins(reg)
		}
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// Revert discards every unsaved edit by rebuilding the registry from the
// last accepted scan.
func (c *Controller) Revert(ctx context.Context) error {
	return c.withRegistry(ctx, func(_ *plugin.Registry) {
		c.registry = c.engine.Revert(c.snapshot)
		c.publishPlugins(c.registry)
	})
}

// Plugins returns a consistent view of the registry.
func (c *Controller) Plugins(ctx context.Context) ([]plugin.View, error) {
	var views []plugin.View
	err := c.withRegistry(ctx, func(reg *plugin.Registry) {
		views = reg.Views()
	})
	return views, err
}

// HasPendingChanges reports whether any plugin has an unsaved edit.
func (c *Controller) HasPendingChanges(ctx context.Context) (bool, error) {
	var pending bool
	err := c.withRegistry(ctx, func(reg *plugin.Registry) {
		pending = engine.HasPendingChanges(reg)
	})
	return pending, err
}
