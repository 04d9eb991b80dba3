package controller

import (
	"github.com/danieljhkim/bundlever/internal/plugin"
)

// State is the controller's lifecycle state.
type State int

const (
	Unloaded State = iota
	Loading
	Loaded
)

func (s State) String() string {
	switch s {
	case Unloaded:
		return "unloaded"
	case Loading:
		return "loading"
	case Loaded:
		return "loaded"
	default:
		return "unknown"
	}
}

// Event is a notification published to subscribers.
type Event interface {
	event()
}

// WorkspaceChanged is published when a scan is accepted. Plugins is the full,
// consistent view of the new registry.
type WorkspaceChanged struct {
	Workspace  string
	Generation uint64
	Plugins    []plugin.View
}

// ManifestCorrupt is published once per manifest excluded from a scan.
// It always precedes the WorkspaceChanged of the same generation.
type ManifestCorrupt struct {
	Generation uint64
	Ref        string
	Err        error
}

// ScanFailed is published when a scan could not run at all, for example
// because the workspace directory disappeared. The previous registry stays.
type ScanFailed struct {
	Workspace  string
	Generation uint64
	Err        error
}

// PluginsUpdated is published after any operation that changed the registry
// in place: increment, set, restage, apply or revert.
type PluginsUpdated struct {
	Plugins []plugin.View
	Pending bool
}

// ApplyCompleted is published at the end of every apply.
type ApplyCompleted struct {
	Succeeded int
	Failed    []string
	Saved     []string
}

func (WorkspaceChanged) event() {}
func (ManifestCorrupt) event()  {}
func (ScanFailed) event()       {}
func (PluginsUpdated) event()   {}
func (ApplyCompleted) event()   {}
