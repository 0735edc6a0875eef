// Package gittest builds throwaway git repositories used as fetch origins
// in sync integration tests.
package gittest

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/stretchr/testify/require"
)

// InitOrigin creates a repository at dir with files committed on branch,
// suitable as a fetch source, and returns the commit hash.
func InitOrigin(t *testing.T, dir, branch string, files map[string]string) string {
	t.Helper()

	repo, err := git.PlainInitWithOptions(dir, &git.PlainInitOptions{
		InitOptions: git.InitOptions{
			DefaultBranch: plumbing.NewBranchReferenceName(branch),
		},
	})
	require.NoError(t, err, "failed to init origin repository")

	return commit(t, repo, dir, files, "initial import")
}

// Commit writes files into the repository at dir and commits them on the
// current branch, returning the new commit hash.
func Commit(t *testing.T, dir string, files map[string]string, message string) string {
	t.Helper()

	repo, err := git.PlainOpen(dir)
	require.NoError(t, err, "failed to open origin repository")

	return commit(t, repo, dir, files, message)
}

func commit(t *testing.T, repo *git.Repository, dir string, files map[string]string, message string) string {
	t.Helper()

	wt, err := repo.Worktree()
	require.NoError(t, err, "failed to get worktree")

	for name, content := range files {
		full := filepath.Join(dir, name)
		require.NoError(t, os.MkdirAll(filepath.Dir(full), 0o755))
		require.NoError(t, os.WriteFile(full, []byte(content), 0o644))
		_, err = wt.Add(name)
		require.NoError(t, err, "failed to stage %s", name)
	}

	hash, err := wt.Commit(message, &git.CommitOptions{
		Author: &object.Signature{
			Name:  "gbsw test",
			Email: "gbsw@example.invalid",
			When:  time.Now(),
		},
	})
	require.NoError(t, err, "failed to commit")

	return hash.String()
}
