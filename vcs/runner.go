// Package vcs is the version-control backend consumed by the sync
// scheduler. It deliberately knows nothing about manifests: a Runner
// executes one git invocation in a working directory and reports
// success or failure, and Git composes the handful of operations the
// scheduler needs on top of any Runner.
package vcs

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
)

// ErrCommandFailed is returned when a backend command exits non-zero or
// cannot be spawned at all. It can be checked with errors.Is().
var ErrCommandFailed = errors.New("vcs command failed")

// Runner executes one version-control invocation in a working directory.
// A non-nil error means the operation failed; the scheduler does not
// inspect output beyond that.
type Runner interface {
	Run(ctx context.Context, dir string, args ...string) error
}

// GitRunner shells out to the git binary, scoping every invocation to the
// working directory with -C. Stderr is captured and folded into the error
// so per-project failures stay diagnosable after aggregation.
type GitRunner struct {
	// Program overrides the binary to execute. Defaults to "git".
	Program string
}

// Run implements Runner.
func (g *GitRunner) Run(ctx context.Context, dir string, args ...string) error {
	program := g.Program
	if program == "" {
		program = "git"
	}

	cmd := exec.CommandContext(ctx, program, append([]string{"-C", dir}, args...)...)

	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		msg := strings.TrimSpace(stderr.String())
		if msg != "" {
			return fmt.Errorf("%w: %s %s: %v: %s", ErrCommandFailed, program, strings.Join(args, " "), err, msg)
		}
		return fmt.Errorf("%w: %s %s: %v", ErrCommandFailed, program, strings.Join(args, " "), err)
	}
	return nil
}
