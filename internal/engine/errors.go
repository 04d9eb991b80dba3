package engine

import "errors"

// ErrPartialApply indicates at least one manifest failed to save.
var ErrPartialApply = errors.New("some manifests could not be saved")
