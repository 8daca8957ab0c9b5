package buildsys

import (
	"context"
	"fmt"
	"strings"

	"github.com/goplus/extbuild/pkgs/target"
)

// BuildSystem captures the two-phase lifecycle shared by meta-build tools
// (CMake today): generate a build tree, then compile inside it.
type BuildSystem interface {
	// Name of the external tool, used in error messages.
	Name() string

	// ConfigureArgs computes the generate-step arguments for cfg on p.
	ConfigureArgs(p Platform, cfg Configuration) []string

	// Lifecycle. env is the complete subprocess environment.
	Configure(ctx context.Context, sourceDir, buildDir string, args, env []string) error
	Build(ctx context.Context, buildDir string, mode Mode, env []string) error
}

// Mode is the build configuration mode.
type Mode int

const (
	Release Mode = iota
	Debug
)

// ModeFor returns Debug if debug is set, else Release.
func ModeFor(debug bool) Mode {
	if debug {
		return Debug
	}
	return Release
}

func (m Mode) String() string {
	switch m {
	case Release:
		return "Release"
	case Debug:
		return "Debug"
	}
	return fmt.Sprintf("Mode(%d)", int(m))
}

// Upper is the mode name as used in per-configuration CMake variables.
func (m Mode) Upper() string {
	return strings.ToUpper(m.String())
}

// Configuration is derived once per target per run and never persisted
// on its own.
type Configuration struct {
	Mode              Mode
	Kind              target.Kind
	OutputDir         string
	Interpreter       string
	ArchitectureFlags []string
	ExtraDefines      map[string]string
}
