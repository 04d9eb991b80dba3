package planner

import "errors"

// ErrConflict indicates the plan has conflicts and the apply was refused.
var ErrConflict = errors.New("apply plan has conflicts")
