package state

import (
	"time"

	"github.com/danieljhkim/bundlever/internal/hash"
	"github.com/danieljhkim/bundlever/internal/plugin"
	"github.com/danieljhkim/bundlever/internal/version"
)

// Session represents the staged edits for one workspace.
type Session struct {
	// Workspace is the absolute workspace root
	Workspace string `json:"workspace"`

	// Pending maps plugin names to their staged edit
	Pending map[string]PendingEdit `json:"pending"`

	// UpdatedAt is when the session was last written
	UpdatedAt time.Time `json:"updatedAt"`
}

// PendingEdit is a version staged for a plugin but not yet applied.
type PendingEdit struct {
	// Version is the staged version text
	Version string `json:"version"`

	// Manifest is the manifest path the edit targets
	Manifest string `json:"manifest"`

	// Checksum is the manifest hash at staging time
	Checksum string `json:"checksum,omitempty"`

	// Base is the persisted version the checksum was taken against
	Base string `json:"base,omitempty"`

	// StagedAt is when the edit was staged
	StagedAt time.Time `json:"stagedAt"`
}

// Preferences holds choices that apply across workspaces.
type Preferences struct {
	// LastWorkspace is the workspace selected by `bundlever workspace use`
	LastWorkspace string `json:"lastWorkspace,omitempty"`

	// UpdatedAt is when the preferences were last written
	UpdatedAt time.Time `json:"updatedAt"`
}

// NewSession creates a new empty Session.
func NewSession(workspace string) *Session {
	return &Session{
		Workspace: workspace,
		Pending:   make(map[string]PendingEdit),
	}
}

// IsEmpty reports whether nothing is staged.
func (s *Session) IsEmpty() bool {
	return len(s.Pending) == 0
}

// Stage replaces the staged edits with the modified plugins in views.
// Edits that already existed keep their checksum and staging time so a
// manifest changed since the first stage is still detected. A plugin whose
// persisted version moved since then was saved in between, so its manifest
// is hashed again.
func (s *Session) Stage(views []plugin.View, hasher hash.Hasher, now time.Time) error {
	next := make(map[string]PendingEdit, len(views))
	for _, v := range views {
		if !v.Modified {
			continue
		}

		edit := PendingEdit{
			Version:  v.Version.String(),
			Manifest: v.Manifest,
			Base:     v.Persisted.String(),
			StagedAt: now,
		}
		if prev, ok := s.Pending[v.Name]; ok && prev.Manifest == v.Manifest && prev.Base == edit.Base {
			edit.Checksum = prev.Checksum
			edit.StagedAt = prev.StagedAt
		} else if v.Manifest != "" {
			sum, err := hasher.HashFile(v.Manifest)
			if err != nil {
				return err
			}
			edit.Checksum = sum
		}
		next[v.Name] = edit
	}

	s.Pending = next
	s.UpdatedAt = now
	return nil
}

// Resolve returns the staged versions still valid against the manifests on
// disk. Edits whose manifest changed since staging, or whose version text no
// longer parses, are returned as stale and left out of the map.
func (s *Session) Resolve(hasher hash.Hasher) (map[string]version.Version, []string) {
	valid := make(map[string]version.Version, len(s.Pending))
	var stale []string

	for name, edit := range s.Pending {
		v, err := version.Parse(edit.Version)
		if err != nil {
			stale = append(stale, name)
			continue
		}
		if edit.Checksum != "" {
			sum, err := hasher.HashFile(edit.Manifest)
			if err != nil || sum != edit.Checksum {
				stale = append(stale, name)
				continue
			}
		}
		valid[name] = v
	}

	return valid, stale
}

// Drop removes staged edits for the given plugin names.
func (s *Session) Drop(names ...string) {
	for _, name := range names {
		delete(s.Pending, name)
	}
}
