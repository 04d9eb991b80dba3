package engine

import (
	"context"
	"time"

	"github.com/danieljhkim/bundlever/internal/clock"
	"github.com/danieljhkim/bundlever/internal/loggerx"
	"github.com/danieljhkim/bundlever/internal/manifest"
	"github.com/danieljhkim/bundlever/internal/plugin"
	"github.com/danieljhkim/bundlever/internal/version"
)

// fakeResource records writes and can be told to fail.
type fakeResource struct {
	ref     string
	stored  version.Version
	writes  int
	failErr error
}

func (r *fakeResource) Ref() string { return r.ref }

func (r *fakeResource) ReadVersion(ctx context.Context) (version.Version, error) {
	return r.stored, nil
}

func (r *fakeResource) WriteVersion(ctx context.Context, v version.Version) error {
	r.writes++
	if r.failErr != nil {
		return r.failErr
	}
	r.stored = v
	return nil
}

var _ manifest.Resource = (*fakeResource)(nil)

func newTestEngine() *Engine {
	return New(clock.NewFakeClock(time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)), loggerx.NewDiscard())
}

// newTestSnapshot builds a snapshot from name/version pairs, each backed by
// its own fakeResource.
func newTestSnapshot(pairs ...string) (*plugin.Snapshot, map[string]*fakeResource) {
	resources := map[string]*fakeResource{}
	var entries []plugin.Entry
	for i := 0; i+1 < len(pairs); i += 2 {
		v := version.MustParse(pairs[i+1])
		res := &fakeResource{ref: "/ws/" + pairs[i] + "/META-INF/MANIFEST.MF", stored: v}
		resources[pairs[i]] = res
		entries = append(entries, plugin.Entry{Name: pairs[i], Version: v, Resource: res})
	}
	return plugin.NewSnapshot("/ws", entries), resources
}

func versionOf(reg *plugin.Registry, name string) string {
	p, ok := reg.Get(name)
	if !ok {
		return "<missing>"
	}
	return p.Version().String()
}

func modifiedOf(reg *plugin.Registry, name string) bool {
	p, ok := reg.Get(name)
	return ok && p.Modified()
}
