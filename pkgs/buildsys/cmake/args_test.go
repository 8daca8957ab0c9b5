package cmake

import (
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/goplus/extbuild/pkgs/buildsys"
	"github.com/goplus/extbuild/pkgs/target"
)

var (
	linux   = buildsys.Platform{OS: "linux", PointerWidth: 64}
	windows = buildsys.Platform{OS: "windows", PointerWidth: 64}
)

func darwin(archflags string) buildsys.Platform {
	return buildsys.Platform{
		OS:           "darwin",
		PointerWidth: 64,
		Env:          map[string]string{buildsys.ArchFlagsEnv: archflags},
	}
}

func configureArgs(p buildsys.Platform, debug bool) []string {
	cfg := NewConfiguration(p, target.SharedModule, debug, "/out/pyflagser/modules", "/usr/bin/python3", nil)
	return ConfigureArgs(p, cfg)
}

func TestConfigureArgsLinuxRelease(t *testing.T) {
	got := configureArgs(linux, false)
	want := []string{
		"-DCMAKE_LIBRARY_OUTPUT_DIRECTORY=/out/pyflagser/modules",
		"-DPYTHON_EXECUTABLE=/usr/bin/python3",
		"-DCMAKE_BUILD_TYPE=Release",
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("ConfigureArgs mismatch (-want +got):\n%s", diff)
	}
}

func TestModeFollowsDebugFlag(t *testing.T) {
	for _, debug := range []bool{true, false} {
		cfg := NewConfiguration(linux, target.SharedModule, debug, "/out", "py", nil)
		if (cfg.Mode == buildsys.Debug) != debug {
			t.Fatalf("debug=%v gave mode %v", debug, cfg.Mode)
		}
	}
}

func TestWindowsOutputDirectiveIsModeQualified(t *testing.T) {
	for _, debug := range []bool{true, false} {
		mode := buildsys.ModeFor(debug)
		args := configureArgs(windows, debug)
		want := "-DCMAKE_LIBRARY_OUTPUT_DIRECTORY_" + strings.ToUpper(mode.String()) + "=/out/pyflagser/modules"
		if !contains(args, want) {
			t.Errorf("windows %v args %q missing %q", mode, args, want)
		}
		for _, a := range args {
			if strings.HasPrefix(a, "-DCMAKE_BUILD_TYPE=") {
				t.Errorf("windows args must not carry %q", a)
			}
		}
	}
}

func TestNonWindowsOutputDirectiveIsNeverQualified(t *testing.T) {
	for _, p := range []buildsys.Platform{linux, darwin("")} {
		for _, debug := range []bool{true, false} {
			for _, a := range configureArgs(p, debug) {
				if strings.HasPrefix(a, "-DCMAKE_LIBRARY_OUTPUT_DIRECTORY_") {
					t.Errorf("%s args carry qualified directive %q", p.OS, a)
				}
			}
		}
	}
}

func TestWindowsPointerWidth(t *testing.T) {
	got := configureArgs(windows, false)
	want := []string{
		"-DCMAKE_LIBRARY_OUTPUT_DIRECTORY=/out/pyflagser/modules",
		"-DPYTHON_EXECUTABLE=/usr/bin/python3",
		"-DCMAKE_LIBRARY_OUTPUT_DIRECTORY_RELEASE=/out/pyflagser/modules",
		"-A", "x64",
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("64-bit windows mismatch (-want +got):\n%s", diff)
	}

	win32 := windows
	win32.PointerWidth = 32
	if contains(configureArgs(win32, false), "-A") {
		t.Fatal("32-bit windows must not select x64")
	}
}

func TestDarwinArchitectures(t *testing.T) {
	args := configureArgs(darwin("-arch x86_64 -arch arm64"), false)
	if got := args[len(args)-1]; got != "-DCMAKE_OSX_ARCHITECTURES=x86_64;arm64" {
		t.Fatalf("last arg = %q", got)
	}

	for _, flags := range []string{"", "   ", "-O2"} {
		for _, a := range configureArgs(darwin(flags), false) {
			if strings.HasPrefix(a, "-DCMAKE_OSX_ARCHITECTURES") {
				t.Errorf("ARCHFLAGS=%q produced %q", flags, a)
			}
		}
	}
}

func TestArchFlagsIgnoredOffDarwin(t *testing.T) {
	p := linux
	p.Env = map[string]string{buildsys.ArchFlagsEnv: "-arch arm64"}
	if flags := ArchitectureFlags(p); flags != nil {
		t.Fatalf("linux ArchitectureFlags = %q", flags)
	}
}

func TestExtraDefinesSorted(t *testing.T) {
	cfg := NewConfiguration(linux, target.SharedModule, false, "/out", "py", map[string]string{
		"ZED": "1",
		"ABC": "on",
	})
	got := ConfigureArgs(linux, cfg)
	if diff := cmp.Diff([]string{"-DABC=on", "-DZED=1"}, got[3:]); diff != "" {
		t.Fatalf("defines mismatch (-want +got):\n%s", diff)
	}
}

func TestStaticLibraryDirective(t *testing.T) {
	cfg := NewConfiguration(windows, target.StaticLibrary, true, "/out", "py", nil)
	got := ConfigureArgs(windows, cfg)
	if got[0] != "-DCMAKE_ARCHIVE_OUTPUT_DIRECTORY=/out" {
		t.Fatalf("first arg = %q", got[0])
	}
	if got[2] != "-DCMAKE_ARCHIVE_OUTPUT_DIRECTORY_DEBUG=/out" {
		t.Fatalf("third arg = %q", got[2])
	}
}

func TestBuildArgs(t *testing.T) {
	got := BuildArgs(buildsys.Release, TrailingArgs(linux))
	want := []string{"--build", ".", "--config", "Release", "--", "-j2"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("linux build args (-want +got):\n%s", diff)
	}
	got = BuildArgs(buildsys.Debug, TrailingArgs(windows))
	want = []string{"--build", ".", "--config", "Debug", "--", "/m"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("windows build args (-want +got):\n%s", diff)
	}
	if got := BuildArgs(buildsys.Release, nil); len(got) != 4 {
		t.Fatalf("no trailing args should omit \"--\": %q", got)
	}
}

func TestArchitectures(t *testing.T) {
	got := Architectures("-arch x86_64 -O2 -arch arm64")
	if diff := cmp.Diff([]string{"x86_64", "arm64"}, got); diff != "" {
		t.Fatalf("Architectures (-want +got):\n%s", diff)
	}
	if got := Architectures(""); got != nil {
		t.Fatalf("Architectures(\"\") = %q", got)
	}
}

func contains(args []string, s string) bool {
	for _, a := range args {
		if a == s {
			return true
		}
	}
	return false
}
