package vcs

import (
	"context"
	"strconv"
)

// Git composes the repository operations the scheduler drives, on top of
// any Runner. The zero value is not usable; construct with New.
type Git struct {
	runner Runner
}

// New returns a Git backed by the given runner. A nil runner defaults to
// the git binary.
func New(runner Runner) *Git {
	if runner == nil {
		runner = &GitRunner{}
	}
	return &Git{runner: runner}
}

// Init initializes an empty repository in dir.
func (g *Git) Init(ctx context.Context, dir string) error {
	return g.runner.Run(ctx, dir, "init")
}

// AddRemote registers a named remote pointing at url.
func (g *Git) AddRemote(ctx context.Context, dir, name, url string) error {
	return g.runner.Run(ctx, dir, "remote", "add", name, url)
}

// Fetch retrieves revision from the named remote at the given depth.
// A depth of 0 or less fetches full history; prune drops stale remote refs.
func (g *Git) Fetch(ctx context.Context, dir, remote, revision string, depth int, prune bool) error {
	args := []string{"fetch", remote}
	if prune {
		args = append(args, "--prune")
	}
	if depth > 0 {
		args = append(args, "--depth", strconv.Itoa(depth))
	}
	if revision != "" {
		args = append(args, revision)
	}
	return g.runner.Run(ctx, dir, args...)
}

// Checkout moves the working tree to the given ref (a revision, branch,
// or FETCH_HEAD).
func (g *Git) Checkout(ctx context.Context, dir, ref string) error {
	return g.runner.Run(ctx, dir, "checkout", ref)
}

// ResetHard discards the working tree in favor of the given ref.
func (g *Git) ResetHard(ctx context.Context, dir, ref string) error {
	return g.runner.Run(ctx, dir, "reset", "--hard", ref)
}

// Rebase replays the current branch onto the given ref.
func (g *Git) Rebase(ctx context.Context, dir, ref string) error {
	return g.runner.Run(ctx, dir, "rebase", ref)
}
