// Package runner executes external tools on behalf of the orchestrator.
package runner

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os/exec"
	"strings"
)

// Cmd describes one subprocess invocation.
type Cmd struct {
	Name string
	Args []string
	Dir  string
	Env  []string // nil inherits the parent environment
}

func (c Cmd) String() string {
	return strings.Join(append([]string{c.Name}, c.Args...), " ")
}

// Result is what a finished subprocess leaves behind.
type Result struct {
	Output   []byte // combined stdout and stderr
	ExitCode int
}

// Runner runs subprocesses. Run returns a non-nil Result whenever the
// process was started, including when it exits non-zero.
//
//go:generate go run go.uber.org/mock/mockgen -source=runner.go -destination=mocks/mock_runner.go -package=mocks
type Runner interface {
	LookPath(file string) (string, error)
	Run(ctx context.Context, cmd Cmd) (*Result, error)
}

// Exec implements Runner with os/exec.
type Exec struct {
	// Stream, when non-nil, receives subprocess output as it is produced.
	Stream io.Writer
}

// New returns an os/exec runner. A nil stream keeps output captured only.
func New(stream io.Writer) *Exec {
	return &Exec{Stream: stream}
}

func (e *Exec) LookPath(file string) (string, error) {
	return exec.LookPath(file)
}

func (e *Exec) Run(ctx context.Context, c Cmd) (*Result, error) {
	cmd := exec.CommandContext(ctx, c.Name, c.Args...)
	cmd.Dir = c.Dir
	cmd.Env = c.Env

	// One writer for both streams keeps their interleaving.
	var buf bytes.Buffer
	var w io.Writer = &buf
	if e.Stream != nil {
		w = io.MultiWriter(&buf, e.Stream)
	}
	cmd.Stdout = w
	cmd.Stderr = w

	err := cmd.Run()
	if err != nil && !started(err) {
		return nil, err
	}
	return &Result{Output: buf.Bytes(), ExitCode: ExitCode(err)}, err
}

// started reports whether err came from a process that actually ran.
func started(err error) bool {
	var exitErr *exec.ExitError
	return errors.As(err, &exitErr)
}

// ExitCode extracts the exit status from err: 0 for nil, -1 if unknown.
func ExitCode(err error) int {
	if err == nil {
		return 0
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return exitErr.ExitCode()
	}
	return -1
}

// Tail returns at most the last n lines of output.
func Tail(output []byte, n int) string {
	s := strings.TrimRight(string(output), "\r\n")
	if s == "" {
		return ""
	}
	lines := strings.Split(s, "\n")
	if len(lines) > n {
		lines = lines[len(lines)-n:]
	}
	return strings.Join(lines, "\n")
}

// OutputError carries the tail of a failed command's output in its message.
type OutputError struct {
	Err    error
	Output string
}

func (e *OutputError) Error() string {
	if e.Output == "" {
		return e.Err.Error()
	}
	return e.Err.Error() + "\n" + e.Output
}

func (e *OutputError) Unwrap() error { return e.Err }

// WithOutput annotates err with the last n lines of res's output. It
// returns err unchanged when there is no output to show.
func WithOutput(err error, res *Result, n int) error {
	if err == nil || res == nil {
		return err
	}
	tail := Tail(res.Output, n)
	if tail == "" {
		return err
	}
	return &OutputError{Err: err, Output: tail}
}
