package sync

import (
	"context"
	"io"
	"path/filepath"
	"strings"

	"github.com/chainguard-dev/clog"

	"github.com/nn1a/gbsw/manifest"
)

// materialize applies every copyfile and linkfile directive of the synced
// projects, strictly after the sync join barrier so referenced source paths
// exist. Failures follow the same keep gate as project sync: with Keep
// false the first failure aborts, with Keep true it is logged and the
// remaining directives still run.
func (s *Syncer) materialize(ctx context.Context, projects []manifest.Project, targetRoot string) error {
	log := clog.FromContext(ctx)

	for i := range projects {
		p := &projects[i]
		projectDir := s.fs.Join(targetRoot, p.CheckoutPath())

		for _, cf := range p.CopyFiles {
			src := s.fs.Join(projectDir, cf.Src)
			dest := s.fs.Join(targetRoot, cf.Dest)
			if err := s.copyFile(src, dest, targetRoot); err != nil {
				if !s.opts.Keep {
					return err
				}
				log.Error("copyfile failed", "project", p.Name, "src", cf.Src, "dest", cf.Dest, "error", err)
			}
		}

		for _, lf := range p.LinkFiles {
			src := s.fs.Join(projectDir, lf.Src)
			dest := s.fs.Join(targetRoot, lf.Dest)
			if err := s.linkFile(src, dest, targetRoot); err != nil {
				if !s.opts.Keep {
					return err
				}
				log.Error("linkfile failed", "project", p.Name, "src", lf.Src, "dest", lf.Dest, "error", err)
			}
		}
	}
	return nil
}

// copyFile byte-copies src to dest. Both paths must stay within root; src
// must be an existing regular file and dest must not be a directory. Parent
// directories of dest are created as needed. The containment check runs
// before any filesystem mutation.
func (s *Syncer) copyFile(src, dest, root string) error {
	if !within(root, src) || !within(root, dest) {
		return WrapErrorf(ErrPathEscapes, "copy %q -> %q", src, dest)
	}

	fi, err := s.fs.Stat(src)
	if err != nil {
		return WrapErrorf(ErrFileState, "copy source %q does not exist", src)
	}
	if !fi.Mode().IsRegular() {
		return WrapErrorf(ErrFileState, "copy source %q is not a regular file", src)
	}
	if dfi, err := s.fs.Stat(dest); err == nil && dfi.IsDir() {
		return WrapErrorf(ErrFileState, "copy destination %q is a directory", dest)
	}

	if err := s.fs.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return err
	}

	in, err := s.fs.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := s.fs.Create(dest)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}

// linkFile creates a symbolic link at dest pointing at src. src must exist
// (any file type); dest must not be an existing directory. The containment
// check runs before any filesystem mutation.
func (s *Syncer) linkFile(src, dest, root string) error {
	if !within(root, src) || !within(root, dest) {
		return WrapErrorf(ErrPathEscapes, "link %q -> %q", src, dest)
	}

	if _, err := s.fs.Lstat(src); err != nil {
		return WrapErrorf(ErrFileState, "link source %q does not exist", src)
	}
	if dfi, err := s.fs.Stat(dest); err == nil && dfi.IsDir() {
		return WrapErrorf(ErrFileState, "link destination %q is a directory", dest)
	}

	if err := s.fs.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return err
	}
	return s.fs.Symlink(src, dest)
}

// within reports whether p, after cleaning, stays inside root. Joined
// directive paths may climb out via ".." segments; those are rejected.
func within(root, p string) bool {
	root = filepath.Clean(root)
	p = filepath.Clean(p)
	if p == root {
		return true
	}
	return strings.HasPrefix(p, root+string(filepath.Separator))
}
