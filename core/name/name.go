// Package name implements DrMem's device naming model: colon-separated
// Names (Path + Base) and the Field-qualified DeviceSpec clients use to
// address device metadata.
//
// Segment validation and the glob-matched device lookup both lean on the
// same grounding as the teacher SDK's tag parsing (sdk/tag.go): validate
// eagerly at construction time so the rest of the core never has to
// re-validate a Name.
package name

import (
	"regexp"
	"strings"

	"github.com/drmem-io/drmem/core/errors"
)

// segmentPattern matches a single colon-delimited segment: alphanumeric,
// with internal dashes allowed, length >= 1.
var segmentPattern = regexp.MustCompile(`^[0-9A-Za-z](?:[0-9A-Za-z-]*[0-9A-Za-z])?$`)

// Name is a fully-qualified, immutable device name: one or more
// colon-separated segments, the last of which is the Base.
type Name struct {
	segments []string
}

// Parse parses s into a Name, validating each segment against the core
// naming grammar. Invalid input fails with a KindInvArgument error.
func Parse(s string) (Name, error) {
	segments := strings.Split(s, ":")
	for _, seg := range segments {
		if !segmentPattern.MatchString(seg) {
			return Name{}, errors.InvArgument("invalid name segment %q in %q", seg, s)
		}
	}
	return Name{segments: segments}, nil
}

// MustParse is like Parse but panics on error. It exists for tests and for
// building well-known names from constants.
func MustParse(s string) Name {
	n, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return n
}

// Path returns the colon-separated prefix preceding the Base.
func (n Name) Path() string {
	return strings.Join(n.segments[:len(n.segments)-1], ":")
}

// PathSegments returns the individual path segments, excluding the Base.
func (n Name) PathSegments() []string {
	out := make([]string, len(n.segments)-1)
	copy(out, n.segments[:len(n.segments)-1])
	return out
}

// Base returns the final segment of the name.
func (n Name) Base() string {
	return n.segments[len(n.segments)-1]
}

// String renders the canonical colon-joined form of the name.
func (n Name) String() string {
	return strings.Join(n.segments, ":")
}

// Equal reports whether two Names are identical.
func (n Name) Equal(other Name) bool {
	return n.String() == other.String()
}

// IsZero reports whether n was never successfully parsed.
func (n Name) IsZero() bool {
	return len(n.segments) == 0
}
