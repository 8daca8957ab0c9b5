package buildsys

import "testing"

func TestModeFor(t *testing.T) {
	for _, debug := range []bool{true, false} {
		m := ModeFor(debug)
		if (m == Debug) != debug {
			t.Fatalf("ModeFor(%v) = %v", debug, m)
		}
	}
	if got := ModeFor(true).String(); got != "Debug" {
		t.Fatalf("Debug.String() = %q", got)
	}
	if got := ModeFor(false).Upper(); got != "RELEASE" {
		t.Fatalf("Release.Upper() = %q", got)
	}
}

func TestPlatformGetenv(t *testing.T) {
	var p Platform
	if got := p.Getenv(ArchFlagsEnv); got != "" {
		t.Fatalf("Getenv on empty platform = %q", got)
	}
	p.Env = map[string]string{ArchFlagsEnv: "-arch arm64"}
	if got := p.Getenv(ArchFlagsEnv); got != "-arch arm64" {
		t.Fatalf("Getenv = %q", got)
	}
}

func TestExtSuffix(t *testing.T) {
	if got := (Platform{OS: "windows"}).ExtSuffix(); got != ".pyd" {
		t.Errorf("windows suffix = %q", got)
	}
	if got := (Platform{OS: "linux"}).ExtSuffix(); got != ".so" {
		t.Errorf("linux suffix = %q", got)
	}
}

func TestHostEnvCapturesArchFlags(t *testing.T) {
	t.Setenv(ArchFlagsEnv, "-arch x86_64")
	p := Host()
	if got := p.Getenv(ArchFlagsEnv); got != "-arch x86_64" {
		t.Fatalf("Host ARCHFLAGS = %q", got)
	}
	if p.PointerWidth != 32 && p.PointerWidth != 64 {
		t.Fatalf("PointerWidth = %d", p.PointerWidth)
	}
}
