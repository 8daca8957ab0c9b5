package build

import "github.com/goplus/extbuild/pkgs/target"

// State is the progress of one target through a build run.
type State int

const (
	Unchecked State = iota
	ToolchainVerified
	DependencyReady
	Configured
	Built
	Placed
	Failed
)

var stateNames = [...]string{
	Unchecked:         "unchecked",
	ToolchainVerified: "toolchain-verified",
	DependencyReady:   "dependency-ready",
	Configured:        "configured",
	Built:             "built",
	Placed:            "placed",
	Failed:            "failed",
}

func (s State) String() string {
	if s < 0 || int(s) >= len(stateNames) {
		return "unknown"
	}
	return stateNames[s]
}

// TargetResult is the outcome of one target. A target that never started
// because an earlier one failed ends Failed with an error matching
// ErrSkipped.
type TargetResult struct {
	Target target.Descriptor
	State  State

	// FailedAt is the last state reached before failing.
	FailedAt State
	Err      error

	OutputDir string
	BuildDir  string
	Artifacts []string
}

func (r *TargetResult) advance(s State) {
	if r.State != Failed {
		r.State = s
	}
}

func (r *TargetResult) fail(err error) {
	if r.State == Failed || r.State == Placed {
		return
	}
	r.FailedAt = r.State
	r.State = Failed
	r.Err = err
}
