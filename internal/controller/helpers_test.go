package controller

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
	"github.com/danieljhkim/bundlever/internal/engine"
	"github.com/danieljhkim/bundlever/internal/fsops"
	"github.com/danieljhkim/bundlever/internal/loggerx"
	"github.com/danieljhkim/bundlever/internal/manifest"
	"github.com/danieljhkim/bundlever/internal/plugin"
	"github.com/danieljhkim/bundlever/internal/scanner"
	"github.com/danieljhkim/bundlever/internal/version"
)

// memResource keeps a manifest version in memory.
type memResource struct {
	mu      sync.Mutex
	ref     string
	stored  version.Version
	failErr error
}

func (r *memResource) Ref() string { return r.ref }

func (r *memResource) ReadVersion(ctx context.Context) (version.Version, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.stored, nil
}

func (r *memResource) WriteVersion(ctx context.Context, v version.Version) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failErr != nil {
		return r.failErr
	}
	r.stored = v
	return nil
}

func (r *memResource) setStored(v string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.stored = version.MustParse(v)
}

func (r *memResource) setFail(err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.failErr = err
}

var _ manifest.Resource = (*memResource)(nil)

// fakeScanner returns canned results per root. A root with a gate blocks
// until the gate is closed.
type fakeScanner struct {
	mu      sync.Mutex
	results map[string]*scanner.Result
	errs    map[string]error
	gates   map[string]chan struct{}
}

func newFakeScanner() *fakeScanner {
	return &fakeScanner{
		results: map[string]*scanner.Result{},
		errs:    map[string]error{},
		gates:   map[string]chan struct{}{},
	}
}

// set registers name/version pairs for root and returns their resources.
func (f *fakeScanner) set(root string, pairs ...string) map[string]*memResource {
	res := map[string]*memResource{}
	var entries []plugin.Entry
	for i := 0; i+1 < len(pairs); i += 2 {
		v := version.MustParse(pairs[i+1])
		r := &memResource{ref: filepath.Join(root, pairs[i], "META-INF", "MANIFEST.MF"), stored: v}
		res[pairs[i]] = r
		entries = append(entries, plugin.Entry{Name: pairs[i], Version: v, Resource: r})
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.results[root] = &scanner.Result{Snapshot: plugin.NewSnapshot(root, entries)}
	delete(f.errs, root)
	return res
}

// corrupt adds n corrupt manifests to the result registered for root.
func (f *fakeScanner) corrupt(root string, n int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	res := f.results[root]
	for i := 0; i < n; i++ {
		res.Corrupt = append(res.Corrupt, scanner.Corrupt{
			Ref: filepath.Join(root, fmt.Sprintf("broken%04d", i), "META-INF", "MANIFEST.MF"),
			Err: manifest.ErrParse,
		})
	}
}

func (f *fakeScanner) fail(root string, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.errs[root] = err
}

func (f *fakeScanner) gate(root string) chan struct{} {
	f.mu.Lock()
	defer f.mu.Unlock()
	ch := make(chan struct{})
	f.gates[root] = ch
	return ch
}

func (f *fakeScanner) Scan(ctx context.Context, root string) (*scanner.Result, error) {
	f.mu.Lock()
	gate := f.gates[root]
	delete(f.gates, root)
	res, err := f.results[root], f.errs[root]
	f.mu.Unlock()

	if gate != nil {
		<-gate
	}
	if err != nil {
		return nil, err
	}
	if res == nil {
		return &scanner.Result{Snapshot: plugin.NewSnapshot(root, nil)}, nil
	}
	return res, nil
}

// startController runs a controller for the duration of the test and
// subscribes to its events.
func startController(t *testing.T, sc Scanner) (*Controller, <-chan Event) {
	t.Helper()

	eng := engine.New(clock.NewFakeClock(time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC)), loggerx.NewDiscard())
	c := New(sc, eng, fsops.NewRealFS(), loggerx.NewDiscard())

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- c.Run(ctx) }()

	events, unsubscribe := c.Subscribe(128)
	t.Cleanup(func() {
		unsubscribe()
		cancel()
		<-errCh
	})
	return c, events
}

// load sets the workspace and waits for its scan to be accepted.
func load(t *testing.T, c *Controller, events <-chan Event, root string) *ScanOutcome {
	t.Helper()
	gen, err := c.SetWorkspace(context.Background(), root)
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	out, err := AwaitScan(ctx, events, gen)
	require.NoError(t, err)
	return out
}

// waitFor reads events until one of type T arrives.
func waitFor[T Event](t *testing.T, events <-chan Event) T {
	t.Helper()
	timeout := time.After(5 * time.Second)
	for {
		select {
		case ev, ok := <-events:
			if !ok {
				t.Fatalf("event channel closed while waiting for %T", *new(T))
			}
			if e, ok := ev.(T); ok {
				return e
			}
		case <-timeout:
			t.Fatalf("timed out waiting for %T", *new(T))
		}
	}
}

func workspaceDir(t *testing.T, name string) string {
	t.Helper()
	dir := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.MkdirAll(dir, 0755))
	return dir
}

func writeBundle(t *testing.T, root, name, ver string) string {
	t.Helper()
	path := filepath.Join(root, name, "META-INF", "MANIFEST.MF")
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	content := fmt.Sprintf("Manifest-Version: 1.0\nBundle-SymbolicName: %s\nBundle-Version: %s\n", name, ver)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func versions(views []plugin.View) map[string]string {
	out := map[string]string{}
	for _, v := range views {
		out[v.Name] = v.Version.String()
	}
	return out
}

func names(views []plugin.View) []string {
	out := make([]string, 0, len(views))
	for _, v := range views {
		out = append(out, v.Name)
	}
	return out
}
