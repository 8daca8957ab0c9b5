package cmake

import (
	"regexp"
	"sort"
	"strings"

	"github.com/goplus/extbuild/pkgs/buildsys"
	"github.com/goplus/extbuild/pkgs/target"
)

var archRe = regexp.MustCompile(`-arch (\S+)`)

// NewConfiguration derives the per-target configuration for p.
func NewConfiguration(p buildsys.Platform, kind target.Kind, debug bool, outputDir, interpreter string, defines map[string]string) buildsys.Configuration {
	return buildsys.Configuration{
		Mode:              buildsys.ModeFor(debug),
		Kind:              kind,
		OutputDir:         outputDir,
		Interpreter:       interpreter,
		ArchitectureFlags: ArchitectureFlags(p),
		ExtraDefines:      defines,
	}
}

// ArchitectureFlags selects the target architecture arguments for p:
// "-A x64" for 64-bit Windows, CMAKE_OSX_ARCHITECTURES from ARCHFLAGS on
// macOS, nothing otherwise.
func ArchitectureFlags(p buildsys.Platform) []string {
	switch {
	case p.IsWindows():
		if p.PointerWidth > 32 {
			return []string{"-A", "x64"}
		}
	case p.IsDarwin():
		if archs := Architectures(p.Getenv(buildsys.ArchFlagsEnv)); len(archs) > 0 {
			return []string{"-DCMAKE_OSX_ARCHITECTURES=" + strings.Join(archs, ";")}
		}
	}
	return nil
}

// Architectures extracts the tokens following each "-arch" marker.
func Architectures(archflags string) []string {
	var archs []string
	for _, m := range archRe.FindAllStringSubmatch(archflags, -1) {
		archs = append(archs, m[1])
	}
	return archs
}

// OutputDirective is the CMake variable that places the artifact of kind.
func OutputDirective(kind target.Kind) string {
	if kind == target.StaticLibrary {
		return "CMAKE_ARCHIVE_OUTPUT_DIRECTORY"
	}
	return "CMAKE_LIBRARY_OUTPUT_DIRECTORY"
}

// ConfigureArgs computes the configure command line for cfg on p.
func ConfigureArgs(p buildsys.Platform, cfg buildsys.Configuration) []string {
	directive := OutputDirective(cfg.Kind)
	args := []string{
		"-D" + directive + "=" + cfg.OutputDir,
		"-DPYTHON_EXECUTABLE=" + cfg.Interpreter,
	}
	if p.IsWindows() {
		// Multi-config generators segregate output per configuration.
		args = append(args, "-D"+directive+"_"+cfg.Mode.Upper()+"="+cfg.OutputDir)
	} else {
		args = append(args, "-DCMAKE_BUILD_TYPE="+cfg.Mode.String())
	}
	args = append(args, cfg.ArchitectureFlags...)
	return append(args, definesArgs(cfg.ExtraDefines)...)
}

// TrailingArgs are the native build tool arguments passed after "--".
func TrailingArgs(p buildsys.Platform) []string {
	if p.IsWindows() {
		return []string{"/m"}
	}
	return []string{"-j2"}
}

// BuildArgs is the argument list of the compile step.
func BuildArgs(mode buildsys.Mode, trailing []string) []string {
	args := []string{"--build", ".", "--config", mode.String()}
	if len(trailing) > 0 {
		args = append(args, "--")
		args = append(args, trailing...)
	}
	return args
}

func definesArgs(defines map[string]string) []string {
	if len(defines) == 0 {
		return nil
	}
	keys := make([]string, 0, len(defines))
	for k := range defines {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	args := make([]string, 0, len(keys))
	for _, k := range keys {
		args = append(args, "-D"+k+"="+defines[k])
	}
	return args
}
