package controller

import "errors"

var (
	// ErrInvalidWorkspace indicates the workspace path is missing or not a directory.
	ErrInvalidWorkspace = errors.New("invalid workspace")

	// ErrNoWorkspace indicates a reload was requested before any workspace was set.
	ErrNoWorkspace = errors.New("no workspace set")

	// ErrNotLoaded indicates an operation that needs a scanned registry ran before the first scan completed.
	ErrNotLoaded = errors.New("workspace not loaded")

	// ErrClosed indicates the controller has shut down.
	ErrClosed = errors.New("controller closed")

	// ErrSuperseded indicates a newer scan replaced the one being waited for.
	ErrSuperseded = errors.New("scan superseded by a newer one")
)
