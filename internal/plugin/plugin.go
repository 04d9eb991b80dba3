// Package plugin holds the in-memory model of a scanned workspace: plugins,
// the ordered registry they live in, and the immutable snapshot a registry is
// built from.
//
// Key concepts:
//   - Plugin: a named bundle with a current version, the version last known to
//     be persisted, and a modified flag
//   - Registry: ordered name -> Plugin table, rebuilt wholesale from a Snapshot
//   - Snapshot: the result of a scan, treated as ground truth by revert
package plugin

import (
	"github.com/danieljhkim/bundlever/internal/manifest"
	"github.com/danieljhkim/bundlever/internal/version"
)

// Plugin is one bundle in the workspace. Only the owning registry's user
// mutates it; there is no internal locking.
type Plugin struct {
	name      string
	current   version.Version
	persisted version.Version
	modified  bool
	resource  manifest.Resource
}

// New returns an unmodified plugin whose current and persisted versions are v.
func New(name string, v version.Version, res manifest.Resource) *Plugin {
	return &Plugin{
		name:      name,
		current:   v,
		persisted: v,
		resource:  res,
	}
}

// Name returns the plugin identity.
func (p *Plugin) Name() string { return p.name }

// Version returns the in-memory version.
func (p *Plugin) Version() version.Version { return p.current }

// Persisted returns the version last read from or written to the manifest.
func (p *Plugin) Persisted() version.Version { return p.persisted }

// Modified reports whether the plugin has an unsaved edit.
func (p *Plugin) Modified() bool { return p.modified }

// Resource returns the plugin's manifest handle.
func (p *Plugin) Resource() manifest.Resource { return p.resource }

// SetVersion replaces the in-memory version and marks the plugin modified.
func (p *Plugin) SetVersion(v version.Version) {
	p.current = v
	p.modified = true
}

// MarkPersisted records that the current version has been saved.
func (p *Plugin) MarkPersisted() {
	p.persisted = p.current
	p.modified = false
}

// View is a read-only copy of a plugin's state, safe to hand to other goroutines.
type View struct {
	Name      string
	Version   version.Version
	Persisted version.Version
	Modified  bool
	Manifest  string
}

// View returns a copy of p's state.
func (p *Plugin) View() View {
	ref := ""
	if p.resource != nil {
		ref = p.resource.Ref()
	}
	return View{
		Name:      p.name,
		Version:   p.current,
		Persisted: p.persisted,
		Modified:  p.modified,
		Manifest:  ref,
	}
}
