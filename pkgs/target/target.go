// Package target describes native build targets handed to the orchestrator.
package target

import (
	"fmt"
	"path/filepath"
	"strings"
)

// Kind tags the artifact a target produces.
type Kind int

const (
	// SharedModule is a loadable extension module (.so, .pyd, .dylib).
	SharedModule Kind = iota
	// StaticLibrary is an archive (.a, .lib).
	StaticLibrary
)

func (k Kind) String() string {
	switch k {
	case SharedModule:
		return "shared"
	case StaticLibrary:
		return "static"
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// ParseKind maps the configuration spelling of a kind to its value.
// An empty string selects SharedModule.
func ParseKind(s string) (Kind, error) {
	switch strings.ToLower(s) {
	case "", "shared", "module":
		return SharedModule, nil
	case "static", "archive":
		return StaticLibrary, nil
	}
	return 0, fmt.Errorf("unknown target kind %q", s)
}

// Descriptor is an inert description of one native build target.
type Descriptor struct {
	Name      string
	SourceDir string // absolute
	Kind      Kind
}

// New returns a descriptor with an absolute source directory.
func New(name, sourceDir string, kind Kind) (Descriptor, error) {
	if name == "" {
		return Descriptor{}, fmt.Errorf("target name is empty")
	}
	if sourceDir == "" {
		sourceDir = "."
	}
	abs, err := filepath.Abs(sourceDir)
	if err != nil {
		return Descriptor{}, err
	}
	return Descriptor{Name: name, SourceDir: abs, Kind: kind}, nil
}

// Parse parses a command line target in the form "name=dir" or "dir".
// A bare directory takes its name from the last path element.
func Parse(arg string) (Descriptor, error) {
	name, dir, ok := strings.Cut(arg, "=")
	if !ok {
		dir = arg
		abs, err := filepath.Abs(dir)
		if err != nil {
			return Descriptor{}, err
		}
		name = filepath.Base(abs)
	}
	return New(name, dir, SharedModule)
}

// Unique reports an error if two descriptors share a name.
func Unique(targets []Descriptor) error {
	seen := make(map[string]bool, len(targets))
	for _, t := range targets {
		if seen[t.Name] {
			return fmt.Errorf("duplicate target name %q", t.Name)
		}
		seen[t.Name] = true
	}
	return nil
}

func (d Descriptor) String() string {
	return d.Name + "=" + d.SourceDir
}
