// Package cmake drives the CMake configure/build workflow for one target.
package cmake

import (
	"context"
	"errors"
	"os"

	"github.com/goplus/extbuild/internal/runner"
	"github.com/goplus/extbuild/pkgs/buildsys"
	"github.com/qiniu/x/log"
	"go.trai.ch/zerr"
)

var (
	// ErrConfigureFailed is returned when the cmake generate step exits non-zero.
	ErrConfigureFailed = zerr.New("cmake configure failed")

	// ErrCompileFailed is returned when `cmake --build` exits non-zero or
	// leaves no artifact behind.
	ErrCompileFailed = zerr.New("cmake build failed")
)

// outputTail is how many lines of tool output are attached to errors.
const outputTail = 40

// CMake wraps the cmake executable.
type CMake struct {
	runner   runner.Runner
	bin      string
	trailing []string
}

var _ buildsys.BuildSystem = (*CMake)(nil)

// Option configures a CMake.
type Option func(*CMake)

// WithBinary sets a custom cmake executable.
func WithBinary(path string) Option {
	return func(c *CMake) {
		c.bin = path
	}
}

// WithTrailingArgs replaces the platform default native build tool
// arguments passed after "--" (/m on Windows, -j2 elsewhere).
func WithTrailingArgs(args ...string) Option {
	return func(c *CMake) {
		c.trailing = args
	}
}

// New returns a CMake that runs through r.
func New(r runner.Runner, opts ...Option) *CMake {
	c := &CMake{runner: r, bin: "cmake"}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *CMake) Name() string { return c.bin }

// Version queries `cmake --version`.
func (c *CMake) Version(ctx context.Context) (Version, string, error) {
	if _, err := c.runner.LookPath(c.bin); err != nil {
		return Version{}, "", err
	}
	res, err := c.runner.Run(ctx, runner.Cmd{Name: c.bin, Args: []string{"--version"}})
	if err != nil {
		return Version{}, "", err
	}
	out := string(res.Output)
	v, _ := ParseVersion(out)
	return v, out, nil
}

func (c *CMake) ConfigureArgs(p buildsys.Platform, cfg buildsys.Configuration) []string {
	return ConfigureArgs(p, cfg)
}

// Configure runs `cmake <sourceDir> <args...>` inside buildDir, creating
// buildDir first.
func (c *CMake) Configure(ctx context.Context, sourceDir, buildDir string, args, env []string) error {
	if err := os.MkdirAll(buildDir, 0o755); err != nil {
		return errors.Join(ErrConfigureFailed, zerr.With(zerr.Wrap(err, "failed to create build directory"), "dir", buildDir))
	}
	cmd := runner.Cmd{
		Name: c.bin,
		Args: append([]string{sourceDir}, args...),
		Dir:  buildDir,
		Env:  env,
	}
	return c.run(ctx, ErrConfigureFailed, cmd)
}

// Build runs `cmake --build . --config <mode> -- <trailing>` inside buildDir.
func (c *CMake) Build(ctx context.Context, buildDir string, mode buildsys.Mode, env []string) error {
	cmd := runner.Cmd{
		Name: c.bin,
		Args: c.buildArgs(mode),
		Dir:  buildDir,
		Env:  env,
	}
	return c.run(ctx, ErrCompileFailed, cmd)
}

func (c *CMake) buildArgs(mode buildsys.Mode) []string {
	if c.trailing != nil {
		return BuildArgs(mode, c.trailing)
	}
	return BuildArgs(mode, TrailingArgs(buildsys.Host()))
}

func (c *CMake) run(ctx context.Context, kind error, cmd runner.Cmd) error {
	log.Debugf("run %s (in %s)", cmd, cmd.Dir)
	res, err := c.runner.Run(ctx, cmd)
	if err == nil {
		return nil
	}
	werr := zerr.With(zerr.Wrap(runner.WithOutput(err, res, outputTail), c.bin+" exited with error"), "dir", cmd.Dir)
	if res != nil {
		werr = zerr.With(werr, "exit_code", res.ExitCode)
	}
	return errors.Join(kind, werr)
}
