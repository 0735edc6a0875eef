// Package sync drives the manifest-described checkout tree: it loads and
// merges manifests, fans project clone/update work across a bounded worker
// pool backed by the vcs package, aggregates per-project failures, and
// finally applies copy/link file directives.
package sync

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/nn1a/gbsw/manifest"
)

// MaxJobs caps the worker pool regardless of what the options or the
// manifest's sync-j request.
const MaxJobs = 4

// UpdateStrategy selects how an existing checkout is brought up to date.
// The two strategies are mutually exclusive; HardReset is the default.
type UpdateStrategy int8

const (
	// HardReset fetches the resolved revision and hard-resets the working
	// tree to the fetched head, discarding local changes.
	HardReset UpdateStrategy = iota

	// Rebase fetches the resolved revision and rebases the current branch
	// onto it. Skipped when syncing detached.
	Rebase
)

// String returns a human-readable representation of the UpdateStrategy.
func (s UpdateStrategy) String() string {
	switch s {
	case HardReset:
		return "hard-reset"
	case Rebase:
		return "rebase"
	default:
		return "unknown"
	}
}

// Options configures a sync run. The zero value is usable: all projects,
// one worker (or the manifest's sync-j), hard-reset updates, failures fatal.
type Options struct {
	// CurrentBranchOnly restricts fetching to the current branch.
	// Recognized for interface compatibility; no behavior is bound to it yet.
	CurrentBranchOnly bool

	// Detach finishes every project with a checkout of the exact resolved
	// revision instead of tracking a branch.
	Detach bool

	// Force is recognized for interface compatibility; no behavior is bound
	// to it yet.
	Force bool

	// Jobs is the requested parallelism. When 0, the manifest default's
	// sync-j is used, falling back to 1. The effective value is clamped
	// to [1, MaxJobs].
	Jobs int

	// Quiet suppresses progress output. Logging verbosity is a caller
	// concern; the scheduler only records the flag.
	Quiet bool

	// SmartSync is recognized for interface compatibility; no behavior is
	// bound to it yet.
	SmartSync bool

	// Keep tolerates per-project failures: they are logged, the remaining
	// projects still sync, and the run reports success. When false, one
	// failure trips the stop flag for not-yet-started projects and the run
	// fails with an AggregateError.
	Keep bool

	// Strategy selects the update path for existing checkouts.
	Strategy UpdateStrategy

	// OverlayDir overrides the local-manifest overlay directory. Empty means
	// the conventional <dir-of-manifest>/.repo/local_manifests.
	OverlayDir string
}

// Validate checks that the Options are properly configured.
func (o *Options) Validate() error {
	if o.Jobs < 0 {
		return errors.New("jobs cannot be negative")
	}
	if o.Strategy != HardReset && o.Strategy != Rebase {
		return fmt.Errorf("unknown update strategy %d", o.Strategy)
	}
	return nil
}

// effectiveJobs computes the worker count: options.Jobs when set, else the
// manifest default's sync-j when it parses as an integer, else 1 — clamped
// to [1, MaxJobs].
func (o *Options) effectiveJobs(m *manifest.Manifest) int {
	jobs := o.Jobs
	if jobs == 0 && m.Default != nil && m.Default.SyncJ != "" {
		if n, err := strconv.Atoi(m.Default.SyncJ); err == nil {
			jobs = n
		} else {
			jobs = 1
		}
	}
	if jobs < 1 {
		jobs = 1
	}
	if jobs > MaxJobs {
		jobs = MaxJobs
	}
	return jobs
}
