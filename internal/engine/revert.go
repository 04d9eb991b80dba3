package engine

import "github.com/danieljhkim/bundlever/internal/plugin"

// Revert discards every in-memory edit by building a fresh registry from the
// last scan. Nothing from the current registry survives.
func (e *Engine) Revert(last *plugin.Snapshot) *plugin.Registry {
	if last == nil {
		return plugin.NewRegistry()
	}
	e.log.WithField("workspace", last.Workspace).Debugf("Reverting to last scan (%d plugins)", last.Len())
	return last.Registry()
}
