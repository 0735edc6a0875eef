package manifest

import "fmt"

// Resolve computes the clone URL and revision for one project against the
// effective manifest. It is a pure function: remote precedence is
// project.remote, then default.remote, then "origin"; revision precedence is
// project.revision, then default.revision.
//
// It fails with ErrRemoteNotFound when no remote element carries the
// resolved name, and with ErrRevisionUnresolved when no revision can be
// determined; the latter's message distinguishes a missing default element
// from a default element lacking a revision.
func Resolve(p *Project, m *Manifest) (repoURL, revision string, err error) {
	remoteName := p.Remote
	if remoteName == "" && m.Default != nil {
		remoteName = m.Default.Remote
	}
	if remoteName == "" {
		remoteName = DefaultRemoteName
	}

	var remote *Remote
	for i := range m.Remotes {
		if m.Remotes[i].Name == remoteName {
			remote = &m.Remotes[i]
			break
		}
	}
	if remote == nil {
		return "", "", WrapErrorf(ErrRemoteNotFound, "remote %q", remoteName)
	}

	repoURL = fmt.Sprintf("%s/%s.git", remote.Fetch, p.Name)

	revision = p.Revision
	if revision == "" && m.Default != nil {
		revision = m.Default.Revision
	}
	if revision == "" {
		if m.Default == nil {
			return "", "", WrapErrorf(ErrRevisionUnresolved,
				"manifest has no default element and project %q does not specify a revision", p.Name)
		}
		return "", "", WrapErrorf(ErrRevisionUnresolved,
			"default element lacks a revision and project %q does not specify one", p.Name)
	}

	return repoURL, revision, nil
}
