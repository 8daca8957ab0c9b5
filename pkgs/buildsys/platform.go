package buildsys

import (
	"os"
	"runtime"
	"strconv"
)

// Environment variables consulted when computing configure arguments.
const (
	ArchFlagsEnv = "ARCHFLAGS"
)

// Platform is the host description the argument computation depends on.
// Tests build it by hand to simulate any host.
type Platform struct {
	OS           string // GOOS spelling: "windows", "darwin", "linux", ...
	PointerWidth int
	Env          map[string]string
}

// Host describes the running process.
func Host() Platform {
	return Platform{
		OS:           runtime.GOOS,
		PointerWidth: strconv.IntSize,
		Env: map[string]string{
			ArchFlagsEnv: os.Getenv(ArchFlagsEnv),
		},
	}
}

// IsWindows reports whether p is a Windows host.
func (p Platform) IsWindows() bool { return p.OS == "windows" }

// IsDarwin reports whether p is a macOS host.
func (p Platform) IsDarwin() bool { return p.OS == "darwin" }

// Getenv returns the recorded value of key, or "".
func (p Platform) Getenv(key string) string {
	if p.Env == nil {
		return ""
	}
	return p.Env[key]
}

// ExtSuffix is the default file suffix of an extension module on p.
func (p Platform) ExtSuffix() string {
	if p.IsWindows() {
		return ".pyd"
	}
	return ".so"
}
