package vcs

import (
	"context"
	"fmt"
	"strings"

	"github.com/goplus/extbuild/internal/runner"
)

// VCS defines the version control operations the dependency bootstrap needs.
type VCS interface {
	// Name of the tool, used in error messages.
	Name() string

	// Clone clones remote into dir. If ref is not empty it is checked out
	// afterwards; ref can be a branch, tag, or commit hash.
	Clone(ctx context.Context, remote, ref, dir string) error

	// SubmoduleUpdate recursively initializes submodules of the work tree
	// containing dir.
	SubmoduleUpdate(ctx context.Context, dir string) error

	// Head returns the commit checked out in dir.
	Head(ctx context.Context, dir string) (string, error)
}

// gitVCS implements VCS using git.
type gitVCS struct {
	git    string
	runner runner.Runner
}

// GitOption configures gitVCS.
type GitOption func(*gitVCS)

// WithGitPath sets a custom git executable path.
func WithGitPath(path string) GitOption {
	return func(g *gitVCS) {
		g.git = path
	}
}

// WithRunner sets the subprocess runner.
func WithRunner(r runner.Runner) GitOption {
	return func(g *gitVCS) {
		g.runner = r
	}
}

// NewGitVCS creates a new git VCS instance.
func NewGitVCS(opts ...GitOption) VCS {
	g := &gitVCS{git: "git", runner: runner.New(nil)}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

func (g *gitVCS) Name() string { return g.git }

func (g *gitVCS) Clone(ctx context.Context, remote, ref, dir string) error {
	if err := g.run(ctx, "", "clone", remote, dir); err != nil {
		return fmt.Errorf("clone %s: %w", remote, err)
	}
	if ref == "" {
		return nil
	}
	if err := g.run(ctx, dir, "checkout", ref); err != nil {
		return fmt.Errorf("checkout %s: %w", ref, err)
	}
	return nil
}

func (g *gitVCS) SubmoduleUpdate(ctx context.Context, dir string) error {
	if err := g.run(ctx, dir, "submodule", "update", "--init", "--recursive"); err != nil {
		return fmt.Errorf("submodule update: %w", err)
	}
	return nil
}

func (g *gitVCS) Head(ctx context.Context, dir string) (string, error) {
	out, err := g.output(ctx, dir, "rev-parse", "HEAD")
	if err != nil {
		return "", fmt.Errorf("rev-parse HEAD: %w", err)
	}
	return strings.TrimSpace(out), nil
}

func (g *gitVCS) run(ctx context.Context, dir string, args ...string) error {
	_, err := g.output(ctx, dir, args...)
	return err
}

func (g *gitVCS) output(ctx context.Context, dir string, args ...string) (string, error) {
	res, err := g.runner.Run(ctx, runner.Cmd{Name: g.git, Args: args, Dir: dir})
	if err != nil {
		if res != nil {
			if msg := runner.Tail(res.Output, 20); msg != "" {
				return "", &ExitError{Code: res.ExitCode, Msg: msg}
			}
			return "", &ExitError{Code: res.ExitCode, Msg: err.Error()}
		}
		return "", err
	}
	return string(res.Output), nil
}

// ExitError reports a git invocation that ran and exited non-zero.
type ExitError struct {
	Code int
	Msg  string
}

func (e *ExitError) Error() string {
	return fmt.Sprintf("%s (exit status %d)", e.Msg, e.Code)
}
