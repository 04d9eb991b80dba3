// Package version implements the four-part bundle version used in plugin
// manifests: major.minor.micro[.qualifier].
//
// Version is a value type. Increment methods return a new Version and never
// touch the receiver, so a plugin's version is always replaced wholesale.
package version

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// ErrInvalidFormat is returned when text is not a valid bundle version.
var ErrInvalidFormat = errors.New("invalid version format")

// Version is a bundle version. Major, Minor and Micro are non-negative.
// Qualifier is opaque and may be empty.
type Version struct {
	Major     int
	Minor     int
	Micro     int
	Qualifier string
}

// New returns a Version with the given fields.
func New(major, minor, micro int, qualifier string) Version {
	return Version{Major: major, Minor: minor, Micro: micro, Qualifier: qualifier}
}

// Parse parses text of the form major.minor.micro[.qualifier].
// Everything after the third dot is taken as the qualifier.
func Parse(text string) (Version, error) {
	text = strings.TrimSpace(text)
	parts := strings.SplitN(text, ".", 4)
	if len(parts) < 3 {
		return Version{}, fmt.Errorf("%w: %q needs at least major.minor.micro", ErrInvalidFormat, text)
	}

	var nums [3]int
	for i := 0; i < 3; i++ {
		n, err := parseSegment(parts[i])
		if err != nil {
			return Version{}, fmt.Errorf("%w: %q: %v", ErrInvalidFormat, text, err)
		}
		nums[i] = n
	}

	v := Version{Major: nums[0], Minor: nums[1], Micro: nums[2]}
	if len(parts) == 4 {
		if parts[3] == "" {
			return Version{}, fmt.Errorf("%w: %q has an empty qualifier", ErrInvalidFormat, text)
		}
		v.Qualifier = parts[3]
	}
	return v, nil
}

// MustParse is like Parse but panics on error. Intended for tests and constants.
func MustParse(text string) Version {
	v, err := Parse(text)
	if err != nil {
		panic(err)
	}
	return v
}

func parseSegment(s string) (int, error) {
	if s == "" {
		return 0, errors.New("empty segment")
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return 0, fmt.Errorf("segment %q is not a non-negative integer", s)
		}
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("segment %q: %w", s, err)
	}
	return n, nil
}

// String returns the canonical form. The qualifier segment is omitted when empty.
func (v Version) String() string {
	base := strconv.Itoa(v.Major) + "." + strconv.Itoa(v.Minor) + "." + strconv.Itoa(v.Micro)
	if v.Qualifier == "" {
		return base
	}
	return base + "." + v.Qualifier
}

// Equal reports whether both versions have identical fields.
func (v Version) Equal(other Version) bool {
	return v == other
}

// IncrementMajor returns a copy with Major+1. Minor and Micro are kept.
func (v Version) IncrementMajor() Version {
	v.Major++
	return v
}

// IncrementMinor returns a copy with Minor+1. Micro is kept.
func (v Version) IncrementMinor() Version {
	v.Minor++
	return v
}

// IncrementMicro returns a copy with Micro+1.
func (v Version) IncrementMicro() Version {
	v.Micro++
	return v
}

// Increment dispatches to the increment method for part.
func (v Version) Increment(part Part) Version {
	switch part {
	case Major:
		return v.IncrementMajor()
	case Minor:
		return v.IncrementMinor()
	default:
		return v.IncrementMicro()
	}
}
