package engine

import (
	"fmt"
	"time"
)

// ApplyResult represents the result of persisting modified plugins.
type ApplyResult struct {
	// Attempted is the number of plugins a write was tried for
	Attempted int

	// Succeeded is the number of manifests written
	Succeeded int

	// Saved lists the plugins written, in registry order
	Saved []string

	// Failed lists the plugins whose write failed, in registry order
	Failed []string

	// Errors maps each failed plugin to its write error
	Errors map[string]error

	// Skipped lists modified plugins not attempted because the context ended
	Skipped []string

	// Duration is the wall time of the apply
	Duration time.Duration
}

// HasFailures reports whether any write failed.
func (r *ApplyResult) HasFailures() bool {
	return len(r.Failed) > 0
}

// NoChanges reports whether there was nothing to apply.
func (r *ApplyResult) NoChanges() bool {
	return r.Attempted == 0 && len(r.Skipped) == 0
}

// Err summarises the result as an error: nil when every attempted write
// succeeded, ErrPartialApply otherwise.
func (r *ApplyResult) Err() error {
	if !r.HasFailures() {
		return nil
	}
	return fmt.Errorf("%w: %d of %d failed", ErrPartialApply, len(r.Failed), r.Attempted)
}

func (r *ApplyResult) fail(name string, err error) {
	r.Failed = append(r.Failed, name)
	r.Errors[name] = err
}

func errNoResource(name string) error {
	return fmt.Errorf("plugin %s has no manifest", name)
}
