package manifest

import "errors"

var (
	// ErrParse indicates a manifest could not be read or interpreted.
	ErrParse = errors.New("manifest parse error")

	// ErrWrite indicates a manifest could not be persisted.
	ErrWrite = errors.New("manifest write error")
)
