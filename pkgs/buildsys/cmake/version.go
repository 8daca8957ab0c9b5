package cmake

import (
	"fmt"
	"regexp"

	"golang.org/x/mod/semver"
)

var versionRe = regexp.MustCompile(`version\s*([\d.]+)`)

// Version is a comparable cmake version. The zero value is unknown.
type Version struct {
	raw string // as reported, e.g. "3.28.1"
	sv  string // semver form, e.g. "v3.28.1"
}

// MustParse parses a bare version such as "3.1.0" and panics on failure.
func MustParse(s string) Version {
	v, err := parseBare(s)
	if err != nil {
		panic(err)
	}
	return v
}

// ParseVersion finds the version in `cmake --version` output.
func ParseVersion(output string) (Version, error) {
	m := versionRe.FindStringSubmatch(output)
	if m == nil {
		return Version{}, fmt.Errorf("no version in %q", output)
	}
	return parseBare(m[1])
}

func parseBare(s string) (Version, error) {
	sv := "v" + s
	// semver accepts "vMAJOR" and "vMAJOR.MINOR" shorthands; cmake
	// occasionally reports four components, which it does not.
	if !semver.IsValid(sv) {
		return Version{}, fmt.Errorf("invalid version %q", s)
	}
	return Version{raw: s, sv: semver.Canonical(sv)}, nil
}

// IsZero reports whether v is unknown.
func (v Version) IsZero() bool { return v.sv == "" }

// Compare returns -1, 0 or +1. Unknown sorts before everything.
func (v Version) Compare(w Version) int {
	return semver.Compare(v.sv, w.sv)
}

// Less reports whether v < w.
func (v Version) Less(w Version) bool { return v.Compare(w) < 0 }

func (v Version) String() string {
	if v.IsZero() {
		return "unknown"
	}
	return v.raw
}
