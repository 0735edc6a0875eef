package manifest

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolve(t *testing.T) {
	tests := []struct {
		name     string
		project  Project
		manifest Manifest
		validate func(t *testing.T, url, rev string, err error)
	}{
		{
			name:    "project remote and revision win",
			project: Project{Name: "platform/core", Remote: "mirror", Revision: "v2"},
			manifest: Manifest{
				Remotes: []Remote{
					{Name: "origin", Fetch: "https://example.com"},
					{Name: "mirror", Fetch: "https://mirror.example.com"},
				},
				Default: &Default{Remote: "origin", Revision: "main"},
			},
			validate: func(t *testing.T, url, rev string, err error) {
				require.NoError(t, err)
				assert.Equal(t, "https://mirror.example.com/platform/core.git", url)
				assert.Equal(t, "v2", rev)
			},
		},
		{
			name:    "default remote and revision as fallback",
			project: Project{Name: "a/b"},
			manifest: Manifest{
				Remotes: []Remote{{Name: "origin", Fetch: "https://example.com"}},
				Default: &Default{Remote: "origin", Revision: "main"},
			},
			validate: func(t *testing.T, url, rev string, err error) {
				require.NoError(t, err)
				assert.Equal(t, "https://example.com/a/b.git", url)
				assert.Equal(t, "main", rev)
			},
		},
		{
			name:    "literal origin fallback when nothing names a remote",
			project: Project{Name: "a", Revision: "main"},
			manifest: Manifest{
				Remotes: []Remote{{Name: "origin", Fetch: "https://example.com"}},
				Default: &Default{},
			},
			validate: func(t *testing.T, url, rev string, err error) {
				require.NoError(t, err)
				assert.Equal(t, "https://example.com/a.git", url)
			},
		},
		{
			name:    "remote not found",
			project: Project{Name: "a", Remote: "ghost", Revision: "main"},
			manifest: Manifest{
				Remotes: []Remote{{Name: "origin", Fetch: "https://example.com"}},
			},
			validate: func(t *testing.T, url, rev string, err error) {
				require.Error(t, err)
				assert.True(t, errors.Is(err, ErrRemoteNotFound))
				assert.Contains(t, err.Error(), "ghost")
			},
		},
		{
			name:    "revision unresolved without default element",
			project: Project{Name: "a"},
			manifest: Manifest{
				Remotes: []Remote{{Name: "origin", Fetch: "https://example.com"}},
			},
			validate: func(t *testing.T, url, rev string, err error) {
				require.Error(t, err)
				assert.True(t, errors.Is(err, ErrRevisionUnresolved))
				assert.Contains(t, err.Error(), "no default element")
			},
		},
		{
			name:    "revision unresolved with default lacking revision",
			project: Project{Name: "a"},
			manifest: Manifest{
				Remotes: []Remote{{Name: "origin", Fetch: "https://example.com"}},
				Default: &Default{Remote: "origin"},
			},
			validate: func(t *testing.T, url, rev string, err error) {
				require.Error(t, err)
				assert.True(t, errors.Is(err, ErrRevisionUnresolved))
				assert.Contains(t, err.Error(), "lacks a revision")
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			url, rev, err := Resolve(&tt.project, &tt.manifest)
			tt.validate(t, url, rev, err)
		})
	}
}

func TestCheckoutPath(t *testing.T) {
	assert.Equal(t, "custom", (&Project{Name: "a/b", Path: "custom"}).CheckoutPath())
	assert.Equal(t, "a/b", (&Project{Name: "a/b"}).CheckoutPath())
}
