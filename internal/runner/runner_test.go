package runner

import (
	"context"
	"errors"
	"os/exec"
	"runtime"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExecCapturesOutputAndExitCode(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("uses sh")
	}
	if _, err := exec.LookPath("sh"); err != nil {
		t.Skip("sh not found in PATH")
	}

	var stream strings.Builder
	r := New(&stream)
	res, err := r.Run(context.Background(), Cmd{
		Name: "sh",
		Args: []string{"-c", "echo out; echo err >&2; exit 3"},
		Dir:  t.TempDir(),
	})
	require.Error(t, err)
	require.NotNil(t, res)
	assert.Equal(t, 3, res.ExitCode)
	assert.Contains(t, string(res.Output), "out")
	assert.Contains(t, string(res.Output), "err")
	assert.Contains(t, stream.String(), "out")
}

func TestExecMissingBinary(t *testing.T) {
	r := New(nil)
	res, err := r.Run(context.Background(), Cmd{Name: "extbuild-no-such-tool"})
	require.Error(t, err)
	assert.Nil(t, res)
	assert.Equal(t, -1, ExitCode(err))
}

func TestExitCodeNil(t *testing.T) {
	assert.Equal(t, 0, ExitCode(nil))
}

func TestTail(t *testing.T) {
	out := []byte("a\nb\nc\nd\n")
	assert.Equal(t, "c\nd", Tail(out, 2))
	assert.Equal(t, "a\nb\nc\nd", Tail(out, 10))
	assert.Equal(t, "", Tail(nil, 3))
}

func TestWithOutput(t *testing.T) {
	cause := errors.New("exit status 1")

	err := WithOutput(cause, &Result{Output: []byte("a\nb\nc\n"), ExitCode: 1}, 2)
	assert.Equal(t, "exit status 1\nb\nc", err.Error())
	assert.ErrorIs(t, err, cause)

	assert.Same(t, cause, WithOutput(cause, &Result{}, 2))
	assert.Same(t, cause, WithOutput(cause, nil, 2))
	assert.NoError(t, WithOutput(nil, &Result{Output: []byte("ok")}, 2))
}

func TestCmdString(t *testing.T) {
	c := Cmd{Name: "cmake", Args: []string{"--build", "."}}
	assert.Equal(t, "cmake --build .", c.String())
}
