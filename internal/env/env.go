package env

import (
	"os"
	"runtime"
	"slices"
	"sort"
	"strings"
)

const (
	// CXXFlags is extended with the version define for subprocesses only.
	CXXFlags = "CXXFLAGS"

	// PythonExecutable overrides interpreter discovery.
	PythonExecutable = "PYTHON_EXECUTABLE"
)

// Toolchain is the environment handed to the configure and compile
// subprocesses of one build invocation. It is a copy; the parent
// process environment is never touched.
type Toolchain struct {
	vars []string
}

// NewToolchain copies base and appends a quoted VERSION_INFO define
// carrying version to CXXFLAGS.
func NewToolchain(base []string, version string) *Toolchain {
	vars := mergeEnv(base, nil)
	current := lookup(vars, CXXFlags)
	vars = mergeEnv(vars, map[string]string{
		CXXFlags: appendFlag(current, VersionDefine(version)),
	})
	return &Toolchain{vars: vars}
}

// FromProcess captures os.Environ.
func FromProcess(version string) *Toolchain {
	return NewToolchain(os.Environ(), version)
}

// VersionDefine is the preprocessor define carrying the package version.
// The quotes are escaped so they survive CMake's flag handling and reach
// the compiler as a string literal.
func VersionDefine(version string) string {
	return `-DVERSION_INFO=\"` + version + `\"`
}

// Environ returns the variables in KEY=VALUE form. Callers may keep the
// slice; it is not shared with t.
func (t *Toolchain) Environ() []string {
	return slices.Clone(t.vars)
}

// Get returns the value of key, or "".
func (t *Toolchain) Get(key string) string {
	return lookup(t.vars, key)
}

// Interpreter returns the interpreter the build should be configured for:
// $PYTHON_EXECUTABLE, else python3 or python from PATH.
func Interpreter(lookPath func(string) (string, error)) string {
	if p := os.Getenv(PythonExecutable); p != "" {
		return p
	}
	for _, name := range []string{"python3", "python"} {
		if p, err := lookPath(name); err == nil {
			return p
		}
	}
	return "python3"
}

// foldKeys reports whether variable names compare case-insensitively, as
// they do on Windows.
var foldKeys = runtime.GOOS == "windows"

func envKey(k string) string {
	if foldKeys {
		return strings.ToUpper(k)
	}
	return k
}

func lookup(vars []string, key string) string {
	key = envKey(key)
	for _, kv := range vars {
		if k, v, ok := strings.Cut(kv, "="); ok && k != "" && envKey(k) == key {
			return v
		}
	}
	return ""
}

// mergeEnv returns base with override applied, sorted by name. Entries
// with an empty name, such as the "=C:=C:\src" drive cwd entries of
// Windows, are kept verbatim ahead of the others. A name keeps the
// spelling it first appeared with.
func mergeEnv(base []string, override map[string]string) []string {
	var hidden []string
	names := make(map[string]string, len(base))
	envMap := make(map[string]string, len(base))
	set := func(k, v string) {
		key := envKey(k)
		if _, ok := names[key]; !ok {
			names[key] = k
		}
		envMap[key] = v
	}
	for _, kv := range base {
		k, v, ok := strings.Cut(kv, "=")
		switch {
		case !ok:
		case k == "":
			hidden = append(hidden, kv)
		default:
			set(k, v)
		}
	}
	for k, v := range override {
		set(k, v)
	}
	keys := make([]string, 0, len(envMap))
	for k := range envMap {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	out := make([]string, 0, len(hidden)+len(keys))
	out = append(out, hidden...)
	for _, k := range keys {
		out = append(out, names[k]+"="+envMap[k])
	}
	return out
}

// appendFlag appends a flag to a space-separated flags value.
func appendFlag(current, flag string) string {
	if current == "" {
		return flag
	}
	return strings.TrimSpace(current + " " + flag)
}
