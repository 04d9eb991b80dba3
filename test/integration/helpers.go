package integration

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/danieljhkim/bundlever/internal/clock"
	"github.com/danieljhkim/bundlever/internal/controller"
	"github.com/danieljhkim/bundlever/internal/engine"
	"github.com/danieljhkim/bundlever/internal/fsops"
	"github.com/danieljhkim/bundlever/internal/hash"
	"github.com/danieljhkim/bundlever/internal/loggerx"
	"github.com/danieljhkim/bundlever/internal/manifest"
	"github.com/danieljhkim/bundlever/internal/scanner"
	"github.com/danieljhkim/bundlever/internal/state"
)

// faultFS is the real filesystem with write failures injected per path.
type faultFS struct {
	fsops.FS

	mu       sync.Mutex
	failures map[string]error
	writes   map[string]int
}

func newFaultFS() *faultFS {
	return &faultFS{
		FS:       fsops.NewRealFS(),
		failures: make(map[string]error),
		writes:   make(map[string]int),
	}
}

func (fs *faultFS) failWrites(path string, err error) {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	fs.failures[path] = err
}

func (fs *faultFS) writeCount(path string) int {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	return fs.writes[path]
}

func (fs *faultFS) AtomicWrite(path string, data []byte, perm os.FileMode) error {
	fs.mu.Lock()
	fs.writes[path]++
	err := fs.failures[path]
	fs.mu.Unlock()

	if err != nil {
		return err
	}
	return fs.FS.AtomicWrite(path, data, perm)
}

// harness wires the same components the CLI uses against a temp workspace.
type harness struct {
	t         *testing.T
	workspace string
	fs        *faultFS
	hasher    hash.Hasher
	clock     *clock.FakeClock
	sessions  *state.FileSessionStore
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	fs := newFaultFS()
	home := t.TempDir()
	return &harness{
		t:         t,
		workspace: t.TempDir(),
		fs:        fs,
		hasher:    hash.NewSHA256Hasher(fs),
		clock:     clock.NewFakeClock(time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)),
		sessions:  state.NewFileSessionStore(fs, filepath.Join(home, "sessions")),
	}
}

func bundle(name, ver string) string {
	return fmt.Sprintf("Manifest-Version: 1.0\nBundle-ManifestVersion: 2\nBundle-SymbolicName: %s;singleton:=true\nBundle-Version: %s\nRequire-Bundle: org.eclipse.core.runtime\n", name, ver)
}

// writeBundle creates <workspace>/<project>/META-INF/MANIFEST.MF and returns its path.
func (h *harness) writeBundle(project, name, ver string) string {
	h.t.Helper()
	path := h.manifestPath(project)
	require.NoError(h.t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(h.t, os.WriteFile(path, []byte(bundle(name, ver)), 0644))
	return path
}

func (h *harness) manifestPath(project string) string {
	return filepath.Join(h.workspace, project, filepath.FromSlash(manifest.RelPath))
}

func (h *harness) readManifest(project string) string {
	h.t.Helper()
	data, err := os.ReadFile(h.manifestPath(project))
	require.NoError(h.t, err)
	return string(data)
}

// session is one process lifetime: a running controller plus its event stream.
type session struct {
	ctrl   *controller.Controller
	events <-chan controller.Event
}

// open starts a controller and loads the workspace, as a CLI invocation does.
func (h *harness) open() *session {
	h.t.Helper()
	log := loggerx.NewDiscard()
	sc := scanner.New(h.fs, scanner.Options{MaxDepth: 3, Concurrency: 4, Exclude: []string{".git", "bin"}}, log)
	eng := engine.New(h.clock, log)
	ctrl := controller.New(sc, eng, h.fs, log)

	ctx, cancel := context.WithCancel(context.Background())
	runDone := make(chan struct{})
	go func() {
		defer close(runDone)
		_ = ctrl.Run(ctx)
	}()
	events, unsubscribe := ctrl.Subscribe(64)
	h.t.Cleanup(func() {
		unsubscribe()
		cancel()
		<-runDone
	})

	gen, err := ctrl.SetWorkspace(ctx, h.workspace)
	require.NoError(h.t, err)

	waitCtx, waitCancel := context.WithTimeout(ctx, 5*time.Second)
	defer waitCancel()
	_, err = controller.AwaitScan(waitCtx, events, gen)
	require.NoError(h.t, err)

	return &session{ctrl: ctrl, events: events}
}

// stage persists the controller's pending edits to the session store.
func (h *harness) stage(s *session) {
	h.t.Helper()
	views, err := s.ctrl.Plugins(context.Background())
	require.NoError(h.t, err)

	id := state.ComputeSessionID(h.workspace)
	sess, err := h.sessions.LoadSession(id)
	if err != nil {
		sess = state.NewSession(h.workspace)
	}
	require.NoError(h.t, sess.Stage(views, h.hasher, h.clock.Now()))
	if sess.IsEmpty() {
		require.NoError(h.t, h.sessions.DeleteSession(id))
		return
	}
	require.NoError(h.t, h.sessions.SaveSession(id, sess))
}

// restage loads staged edits into the controller and reports the names that
// were dropped as stale or missing.
func (h *harness) restage(s *session) []string {
	h.t.Helper()
	sess, err := h.sessions.LoadSession(state.ComputeSessionID(h.workspace))
	if os.IsNotExist(err) {
		return nil
	}
	require.NoError(h.t, err)

	pending, stale := sess.Resolve(h.hasher)
	missing, err := s.ctrl.Restage(context.Background(), pending)
	require.NoError(h.t, err)
	return append(stale, missing...)
}

func versionsOf(t *testing.T, s *session) map[string]string {
	t.Helper()
	views, err := s.ctrl.Plugins(context.Background())
	require.NoError(t, err)
	out := make(map[string]string, len(views))
	for _, v := range views {
		out[v.Name] = v.Version.String()
	}
	return out
}
