package sync

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"

	"github.com/go-git/go-billy/v5/osfs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nn1a/gbsw/internal/gittest"
	"github.com/nn1a/gbsw/vcs"
)

// requireGit skips tests that shell out to the real git binary when it is
// not installed.
func requireGit(t *testing.T) {
	t.Helper()
	if _, err := exec.LookPath("git"); err != nil {
		t.Skip("git binary not available")
	}
}

// setupOrigin creates an origin repository plus a manifest pointing at it
// over the file:// transport, and returns the manifest path and target root.
func setupOrigin(t *testing.T, files map[string]string) (originDir, target, manifestPath string) {
	t.Helper()

	root := t.TempDir()
	originDir = filepath.Join(root, "remotes", "proj.git")
	gittest.InitOrigin(t, originDir, "main", files)

	manifestPath = filepath.Join(root, "manifest.xml")
	content := `<manifest>
  <remote name="origin" fetch="file://` + filepath.Join(root, "remotes") + `"/>
  <default remote="origin" revision="main"/>
  <project name="proj" path="proj"/>
</manifest>`
	require.NoError(t, os.WriteFile(manifestPath, []byte(content), 0o644))

	return originDir, filepath.Join(root, "checkout"), manifestPath
}

func TestSyncAgainstRealRepository(t *testing.T) {
	requireGit(t)

	originDir, target, manifestPath := setupOrigin(t, map[string]string{
		"README.md": "hello\n",
	})

	s, err := New(osfs.New("/"), vcs.New(nil), Options{Jobs: 1})
	require.NoError(t, err)

	ctx := context.Background()
	require.NoError(t, s.Sync(ctx, manifestPath, nil, target))

	checkout := filepath.Join(target, "proj")
	data, err := os.ReadFile(filepath.Join(checkout, "README.md"))
	require.NoError(t, err)
	assert.Equal(t, "hello\n", string(data))

	// A dirty working tree is discarded by the hard-reset update path.
	require.NoError(t, os.WriteFile(filepath.Join(checkout, "README.md"), []byte("tampered\n"), 0o644))
	require.NoError(t, s.Sync(ctx, manifestPath, nil, target))

	data, err = os.ReadFile(filepath.Join(checkout, "README.md"))
	require.NoError(t, err)
	assert.Equal(t, "hello\n", string(data))

	// New origin commits land on the next sync.
	gittest.Commit(t, originDir, map[string]string{"README.md": "updated\n"}, "update readme")
	require.NoError(t, s.Sync(ctx, manifestPath, nil, target))

	data, err = os.ReadFile(filepath.Join(checkout, "README.md"))
	require.NoError(t, err)
	assert.Equal(t, "updated\n", string(data))
}

func TestSyncRealRepositoryUnknownRevision(t *testing.T) {
	requireGit(t)

	_, target, manifestPath := setupOrigin(t, map[string]string{"f": "x\n"})

	// Point the default at a revision the origin does not have.
	content, err := os.ReadFile(manifestPath)
	require.NoError(t, err)
	broken := strings.Replace(string(content), `revision="main"`, `revision="no-such-branch"`, 1)
	require.NoError(t, os.WriteFile(manifestPath, []byte(broken), 0o644))

	s, err := New(osfs.New("/"), vcs.New(nil), Options{Jobs: 1})
	require.NoError(t, err)

	err = s.Sync(context.Background(), manifestPath, nil, target)
	require.Error(t, err)

	var agg *AggregateError
	require.ErrorAs(t, err, &agg)
	assert.Equal(t, "proj", agg.Failures[0].Project)
	assert.ErrorIs(t, err, vcs.ErrCommandFailed)
}
