package sync

import (
	"context"
	"os"
	"strconv"
	gosync "sync"
	"sync/atomic"

	"github.com/chainguard-dev/clog"
	"github.com/go-git/go-billy/v5"
	"golang.org/x/sync/errgroup"

	"github.com/nn1a/gbsw/manifest"
	"github.com/nn1a/gbsw/vcs"
)

// defaultFetchDepth is the shallow-fetch depth used when a project does not
// carry a clone-depth attribute.
const defaultFetchDepth = 1

// Syncer materializes the checkout tree an effective manifest describes.
// It is safe for a single Sync call at a time; workers within one call
// share only the failure list.
type Syncer struct {
	fs   billy.Filesystem
	git  *vcs.Git
	opts Options
}

// New returns a Syncer operating on fsys through the given backend.
// A nil git defaults to the exec-based git runner.
func New(fsys billy.Filesystem, git *vcs.Git, opts Options) (*Syncer, error) {
	if fsys == nil {
		return nil, os.ErrInvalid
	}
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	if git == nil {
		git = vcs.New(nil)
	}
	return &Syncer{fs: fsys, git: git, opts: opts}, nil
}

// Sync loads the manifest at manifestPath, merges any local overlays,
// clones or updates every selected project under targetRoot with bounded
// parallelism, and then applies copy/link directives.
//
// projectFilter, when non-nil, restricts the run to projects whose name is
// listed. Per-project failures never abort sibling units that already
// started; with Options.Keep false they trip a stop flag for units that
// have not begun and the call fails with an *AggregateError, otherwise
// failures are logged and the call succeeds.
func (s *Syncer) Sync(ctx context.Context, manifestPath string, projectFilter []string, targetRoot string) error {
	log := clog.FromContext(ctx)

	m, err := manifest.LoadEffective(ctx, s.fs, manifestPath, s.opts.OverlayDir)
	if err != nil {
		return err
	}

	selected := selectProjects(m, projectFilter)
	warnDuplicatePaths(ctx, selected)

	if err := s.fs.MkdirAll(targetRoot, 0o755); err != nil {
		return err
	}

	jobs := s.opts.effectiveJobs(m)
	log.Debug("starting sync", "projects", len(selected), "jobs", jobs, "target", targetRoot)

	var (
		mu       gosync.Mutex
		failures []ProjectFailure
		stop     atomic.Bool
	)

	var g errgroup.Group
	g.SetLimit(jobs)

	for i := range selected {
		if !s.opts.Keep && stop.Load() {
			break
		}
		p := selected[i]
		g.Go(func() error {
			if !s.opts.Keep && stop.Load() {
				return nil
			}
			if err := s.syncProject(ctx, &p, m, targetRoot); err != nil {
				log.Error("project sync failed", "project", p.Name, "error", err)
				mu.Lock()
				failures = append(failures, ProjectFailure{Project: p.Name, Err: err})
				mu.Unlock()
				stop.Store(true)
			}
			return nil
		})
	}

	// Join barrier: no result is inspected before every worker finished.
	_ = g.Wait()

	if len(failures) > 0 && !s.opts.Keep {
		return &AggregateError{Failures: failures}
	}

	return s.materialize(ctx, selected, targetRoot)
}

// syncProject resolves one project and either clones it fresh or updates
// the existing checkout. Each project touches a disjoint subtree of
// targetRoot, so no cross-project locking is needed.
func (s *Syncer) syncProject(ctx context.Context, p *manifest.Project, m *manifest.Manifest, targetRoot string) error {
	log := clog.FromContext(ctx)

	repoURL, revision, err := manifest.Resolve(p, m)
	if err != nil {
		return err
	}

	dir := s.fs.Join(targetRoot, p.CheckoutPath())

	_, statErr := s.fs.Stat(dir)
	switch {
	case statErr == nil:
		log.Debug("updating existing checkout", "project", p.Name, "dir", dir, "revision", revision)
		if err := s.update(ctx, p, dir, revision); err != nil {
			return err
		}
	case os.IsNotExist(statErr):
		log.Debug("cloning project", "project", p.Name, "url", repoURL, "revision", revision)
		if err := s.clone(ctx, p, dir, repoURL, revision); err != nil {
			return err
		}
	default:
		return statErr
	}

	if s.opts.Detach {
		log.Debug("detaching", "project", p.Name, "revision", revision)
		return s.git.Checkout(ctx, dir, revision)
	}
	return nil
}

// update brings an existing checkout to the resolved revision using the
// configured strategy. The fetch is shallow; the two strategies never mix.
func (s *Syncer) update(ctx context.Context, p *manifest.Project, dir, revision string) error {
	depth := fetchDepth(p)
	switch s.opts.Strategy {
	case Rebase:
		if err := s.git.Fetch(ctx, dir, manifest.DefaultRemoteName, revision, depth, false); err != nil {
			return err
		}
		if s.opts.Detach {
			// Detached trees have no branch to rebase; the final checkout
			// in syncProject lands on the exact revision.
			return nil
		}
		return s.git.Rebase(ctx, dir, "FETCH_HEAD")
	default:
		if err := s.git.Fetch(ctx, dir, manifest.DefaultRemoteName, revision, depth, true); err != nil {
			return err
		}
		return s.git.ResetHard(ctx, dir, "FETCH_HEAD")
	}
}

// clone initializes a fresh checkout: create the directory, init a
// repository, register the remote, shallow-fetch the revision, and check
// out the fetched head.
func (s *Syncer) clone(ctx context.Context, p *manifest.Project, dir, repoURL, revision string) error {
	if err := s.fs.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	if err := s.git.Init(ctx, dir); err != nil {
		return err
	}
	if err := s.git.AddRemote(ctx, dir, manifest.DefaultRemoteName, repoURL); err != nil {
		return err
	}
	if err := s.git.Fetch(ctx, dir, manifest.DefaultRemoteName, revision, fetchDepth(p), false); err != nil {
		return err
	}
	return s.git.Checkout(ctx, dir, "FETCH_HEAD")
}

// fetchDepth honors a project's clone-depth attribute, defaulting to a
// depth-1 shallow fetch.
func fetchDepth(p *manifest.Project) int {
	if p.CloneDepth != "" {
		if n, err := strconv.Atoi(p.CloneDepth); err == nil && n > 0 {
			return n
		}
	}
	return defaultFetchDepth
}

// selectProjects applies the caller-supplied name filter; a nil filter
// selects every project in the effective manifest.
func selectProjects(m *manifest.Manifest, filter []string) []manifest.Project {
	if filter == nil {
		return m.Projects
	}
	wanted := make(map[string]bool, len(filter))
	for _, name := range filter {
		wanted[name] = true
	}
	var selected []manifest.Project
	for _, p := range m.Projects {
		if wanted[p.Name] {
			selected = append(selected, p)
		}
	}
	return selected
}

// warnDuplicatePaths flags projects sharing a checkout path. The additive
// merge does not deduplicate; both units would target the same directory,
// so the last listed effectively wins on disk.
func warnDuplicatePaths(ctx context.Context, projects []manifest.Project) {
	log := clog.FromContext(ctx)
	seen := make(map[string]string, len(projects))
	for i := range projects {
		p := &projects[i]
		path := p.CheckoutPath()
		if prev, ok := seen[path]; ok {
			log.Warn("duplicate checkout path, last listed wins",
				"path", path, "project", p.Name, "previous", prev)
			continue
		}
		seen[path] = p.Name
	}
}
