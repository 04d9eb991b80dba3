package version

import (
	"fmt"
	"strings"
)

// Part names one of the numeric version components.
type Part int

const (
	Major Part = iota
	Minor
	Micro
)

// Parts lists the incrementable parts in order of significance.
var Parts = []Part{Major, Minor, Micro}

func (p Part) String() string {
	switch p {
	case Major:
		return "major"
	case Minor:
		return "minor"
	case Micro:
		return "micro"
	default:
		return fmt.Sprintf("part(%d)", int(p))
	}
}

// ParsePart parses "major", "minor" or "micro" (case-insensitive).
// "patch" is accepted as an alias for micro.
func ParsePart(s string) (Part, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "major":
		return Major, nil
	case "minor":
		return Minor, nil
	case "micro", "patch":
		return Micro, nil
	default:
		return 0, fmt.Errorf("unknown version part %q (expected major, minor or micro)", s)
	}
}
