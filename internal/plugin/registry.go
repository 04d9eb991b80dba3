package plugin

import (
	"github.com/danieljhkim/bundlever/internal/manifest"
	"github.com/danieljhkim/bundlever/internal/version"
)

// Registry is an ordered name -> Plugin table.
type Registry struct {
	order   []string
	plugins map[string]*Plugin
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{plugins: make(map[string]*Plugin)}
}

// Add appends p. A plugin with the same name is replaced in place, keeping
// its original position.
func (r *Registry) Add(p *Plugin) {
	if _, exists := r.plugins[p.name]; !exists {
		r.order = append(r.order, p.name)
	}
	r.plugins[p.name] = p
}

// Get returns the plugin with the given name.
func (r *Registry) Get(name string) (*Plugin, bool) {
	p, ok := r.plugins[name]
	return p, ok
}

// Len returns the number of plugins.
func (r *Registry) Len() int {
	return len(r.order)
}

// Names returns plugin names in registry order.
func (r *Registry) Names() []string {
	out := make([]string, len(r.order))
	copy(out, r.order)
	return out
}

// Each calls fn for every plugin in registry order.
func (r *Registry) Each(fn func(*Plugin)) {
	for _, name := range r.order {
		fn(r.plugins[name])
	}
}

// Modified returns the modified plugins in registry order.
func (r *Registry) Modified() []*Plugin {
	var out []*Plugin
	r.Each(func(p *Plugin) {
		if p.modified {
			out = append(out, p)
		}
	})
	return out
}

// HasPendingChanges reports whether any plugin is modified.
func (r *Registry) HasPendingChanges() bool {
	for _, p := range r.plugins {
		if p.modified {
			return true
		}
	}
	return false
}

// Views returns read-only copies of every plugin in registry order.
func (r *Registry) Views() []View {
	out := make([]View, 0, len(r.order))
	r.Each(func(p *Plugin) {
		out = append(out, p.View())
	})
	return out
}

// Entry is one plugin as discovered by a scan.
type Entry struct {
	Name     string
	Version  version.Version
	Resource manifest.Resource
}

// Snapshot is the immutable outcome of a scan. Registries built from it start
// with every plugin unmodified.
type Snapshot struct {
	Workspace string
	entries   []Entry
}

// NewSnapshot returns a snapshot over entries. The slice is copied.
func NewSnapshot(workspace string, entries []Entry) *Snapshot {
	cp := make([]Entry, len(entries))
	copy(cp, entries)
	return &Snapshot{Workspace: workspace, entries: cp}
}

// Entries returns a copy of the snapshot entries in scan order.
func (s *Snapshot) Entries() []Entry {
	cp := make([]Entry, len(s.entries))
	copy(cp, s.entries)
	return cp
}

// Len returns the number of entries.
func (s *Snapshot) Len() int {
	return len(s.entries)
}

// Registry builds a fresh registry from the snapshot.
func (s *Snapshot) Registry() *Registry {
	reg := NewRegistry()
	for _, e := range s.entries {
		reg.Add(New(e.Name, e.Version, e.Resource))
	}
	return reg
}

// WithPersisted returns a new snapshot in which the named entries carry the
// given versions. Names not present are ignored.
func (s *Snapshot) WithPersisted(saved map[string]version.Version) *Snapshot {
	cp := s.Entries()
	for i := range cp {
		if v, ok := saved[cp[i].Name]; ok {
			cp[i].Version = v
		}
	}
	return &Snapshot{Workspace: s.Workspace, entries: cp}
}
