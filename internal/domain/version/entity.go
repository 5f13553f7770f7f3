// Package version provides the schema version value used across the migration engine.
package version

import (
	"cmp"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	goversion "github.com/hashicorp/go-version"
)

// strictPattern is the only shape accepted for migration graph edges.
var strictPattern = regexp.MustCompile(`^(\d+)\.(\d+)\.(\d+)(?:-(\w+))?$`)

// Version is a major.minor.patch schema version with an optional prerelease tag.
// The prerelease tag is carried for display only and never affects ordering.
type Version struct {
	Major      int
	Minor      int
	Patch      int
	Prerelease string
}

// Zero is the version assigned to documents with no recognizable shape.
var Zero = Version{}

// FormatError is returned when a string does not parse as a version triple.
type FormatError struct {
	Input  string
	Reason string
}

func (e *FormatError) Error() string {
	if e.Reason == "" {
		return fmt.Sprintf("invalid version %q", e.Input)
	}
	return fmt.Sprintf("invalid version %q: %s", e.Input, e.Reason)
}

// IsFormatError returns true if err is a *FormatError.
func IsFormatError(err error) bool {
	_, ok := err.(*FormatError)
	return ok
}

// Parse parses s strictly. It requires all three numeric components.
func Parse(s string) (Version, error) {
	m := strictPattern.FindStringSubmatch(strings.TrimSpace(s))
	if m == nil {
		return Version{}, &FormatError{Input: s, Reason: "expected major.minor.patch[-tag]"}
	}
	var parts [3]int
	for i := range parts {
		n, err := strconv.Atoi(m[i+1])
		if err != nil {
			return Version{}, &FormatError{Input: s, Reason: err.Error()}
		}
		parts[i] = n
	}
	return Version{Major: parts[0], Minor: parts[1], Patch: parts[2], Prerelease: m[4]}, nil
}

// ParseLenient parses s, treating missing trailing components as zero.
// It accepts forms such as "1", "1.2", "v1.2.3" and "1.2.3-beta".
// Used for explicit version fields found in documents.
func ParseLenient(s string) (Version, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Version{}, &FormatError{Input: s, Reason: "empty version"}
	}
	gv, err := goversion.NewVersion(s)
	if err != nil {
		return Version{}, &FormatError{Input: s, Reason: err.Error()}
	}
	return fromGoVersion(gv), nil
}

// MustParse is like Parse but panics on malformed input.
// Only intended for static migration manifests.
func MustParse(s string) Version {
	v, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return v
}

func fromGoVersion(gv *goversion.Version) Version {
	segs := gv.Segments()
	for len(segs) < 3 {
		segs = append(segs, 0)
	}
	return Version{
		Major:      segs[0],
		Minor:      segs[1],
		Patch:      segs[2],
		Prerelease: gv.Prerelease(),
	}
}

// Compare returns -1, 0 or 1 comparing the numeric triples of a and b.
func Compare(a, b Version) int {
	if c := cmp.Compare(a.Major, b.Major); c != 0 {
		return c
	}
	if c := cmp.Compare(a.Minor, b.Minor); c != 0 {
		return c
	}
	return cmp.Compare(a.Patch, b.Patch)
}

// Equal reports whether v and o have the same numeric triple.
func (v Version) Equal(o Version) bool { return Compare(v, o) == 0 }

// Less reports whether v orders before o.
func (v Version) Less(o Version) bool { return Compare(v, o) < 0 }

// GreaterOrEqual reports whether v orders at or after o.
func (v Version) GreaterOrEqual(o Version) bool { return Compare(v, o) >= 0 }

// Key returns the canonical graph-node key. Prerelease tags are dropped so that
// equal triples always map to the same node.
func (v Version) Key() string {
	return fmt.Sprintf("%d.%d.%d", v.Major, v.Minor, v.Patch)
}

// String renders the version including any prerelease tag.
func (v Version) String() string {
	if v.Prerelease != "" {
		return v.Key() + "-" + v.Prerelease
	}
	return v.Key()
}

// SameMajorMinor reports whether both versions share major and minor components.
func SameMajorMinor(a, b Version) bool {
	return a.Major == b.Major && a.Minor == b.Minor
}
