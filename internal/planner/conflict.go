package planner

import (
	"context"
	"fmt"

	"github.com/danieljhkim/bundlever/internal/plugin"
)

// ConflictChecker checks manifests for drift before an apply.
type ConflictChecker struct {
	force bool
}

// NewConflictChecker creates a new ConflictChecker. With force set, drift is
// tolerated and only unreadable manifests are reported.
func NewConflictChecker(force bool) *ConflictChecker {
	return &ConflictChecker{force: force}
}

// CheckPlugin re-reads the plugin's manifest and compares it with the
// persisted baseline. Returns a Conflict if one is detected, or nil if the
// manifest is safe to overwrite.
func (c *ConflictChecker) CheckPlugin(ctx context.Context, p *plugin.Plugin) *Conflict {
	res := p.Resource()
	if res == nil {
		return &Conflict{
			Plugin:   p.Name(),
			Reason:   "Plugin has no manifest",
			Expected: p.Persisted().String(),
			OnDisk:   "missing",
		}
	}

	onDisk, err := res.ReadVersion(ctx)
	if err != nil {
		return &Conflict{
			Plugin:   p.Name(),
			Manifest: res.Ref(),
			Reason:   fmt.Sprintf("Failed to read manifest: %v", err),
			Expected: p.Persisted().String(),
			OnDisk:   "unreadable",
		}
	}

	if onDisk.Equal(p.Persisted()) {
		return nil
	}

	// Already at the target version: writing is a no-op, not a conflict
	if onDisk.Equal(p.Version()) {
		return nil
	}

	if c.force {
		return nil
	}

	return &Conflict{
		Plugin:   p.Name(),
		Manifest: res.Ref(),
		Reason:   "Manifest changed on disk since the workspace was scanned",
		Expected: p.Persisted().String(),
		OnDisk:   onDisk.String(),
	}
}
