// Package engine provides the version-mutation and persistence logic for
// bundlever.
//
// The engine works on a plugin.Registry owned by the caller. It never holds
// a registry between calls and has no locking: callers serialise access.
//
// Key components:
//   - Increment/SetVersion: batch edits over a selection of plugin names
//   - Restage: re-applies edits saved in a session
//   - Apply: writes every modified plugin to its manifest, tolerating
//     per-plugin failures
//   - Revert: rebuilds a registry from the last scan snapshot
package engine

import (
	"github.com/sirupsen/logrus"

	"github.com/danieljhkim/bundlever/internal/clock"
)

// Engine performs mutation and persistence operations.
type Engine struct {
	clock clock.Clock
	log   logrus.FieldLogger
}

// New creates a new Engine with the given dependencies.
func New(clk clock.Clock, log logrus.FieldLogger) *Engine {
	return &Engine{
		clock: clk,
		log:   log,
	}
}
