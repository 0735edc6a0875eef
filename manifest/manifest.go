// Package manifest models the declarative repo manifest: a version-controlled
// XML document listing remotes, default policy, and the projects that make up
// a multi-repository checkout. A Manifest is built once by Load, optionally
// merged with local overlay manifests, and then consumed read-only by the
// sync scheduler.
package manifest

import (
	"encoding/xml"
	"strings"
)

// Manifest is the root aggregate of one parsed manifest document, including
// the contents of any documents it pulls in via include elements. Sequence
// order is significant: later entries may override earlier ones during merge.
type Manifest struct {
	// Notice is arbitrary text displayed to users when a sync finishes.
	Notice string

	// Remotes holds every remote element in document order.
	Remotes []Remote

	// Default is the fallback policy for projects; at most one per manifest.
	// Load synthesizes one when the document omits it.
	Default *Default

	// ManifestServer is the optional manifest-server element.
	ManifestServer *ManifestServer

	Submanifests   []Submanifest
	RemoveProjects []RemoveProject
	Projects       []Project
	ExtendProjects []ExtendProject

	RepoHooks    *RepoHooks
	Superproject *Superproject
	ContactInfo  *ContactInfo

	// Includes records the include directives themselves; their contents are
	// already folded into the sequences above.
	Includes []Include

	// CopyFiles, LinkFiles and Annotations hold directives that appear at the
	// top level of the document. Directives nested inside a project element
	// are attached to that project instead.
	CopyFiles   []CopyFile
	LinkFiles   []LinkFile
	Annotations []Annotation
}

// Remote names a git server and the base URL projects are fetched from.
type Remote struct {
	Name     string `xml:"name,attr"`
	Alias    string `xml:"alias,attr"`
	Fetch    string `xml:"fetch,attr"`
	PushURL  string `xml:"pushurl,attr"`
	Review   string `xml:"review,attr"`
	Revision string `xml:"revision,attr"`
}

func (r *Remote) validate() error {
	if r.Name == "" || r.Fetch == "" {
		return WrapError(ErrSchema, `remote element requires "name" and "fetch" attributes`)
	}
	return nil
}

// Default supplies fallback values for any project attribute that is not set
// on the project itself, plus sync tuning knobs.
type Default struct {
	Remote     string `xml:"remote,attr"`
	Revision   string `xml:"revision,attr"`
	DestBranch string `xml:"dest-branch,attr"`
	Upstream   string `xml:"upstream,attr"`

	// SyncJ is the default sync parallelism, as written in the document.
	SyncJ    string `xml:"sync-j,attr"`
	SyncC    string `xml:"sync-c,attr"`
	SyncS    string `xml:"sync-s,attr"`
	SyncTags string `xml:"sync-tags,attr"`
}

// ManifestServer points at the server answering smart-sync queries.
type ManifestServer struct {
	URL string `xml:"url,attr"`
}

// Submanifest references another repo client nested under this one.
type Submanifest struct {
	Name          string `xml:"name,attr"`
	Remote        string `xml:"remote,attr"`
	Project       string `xml:"project,attr"`
	ManifestName  string `xml:"manifest-name,attr"`
	Revision      string `xml:"revision,attr"`
	Path          string `xml:"path,attr"`
	Groups        string `xml:"groups,attr"`
	DefaultGroups string `xml:"default-groups,attr"`
}

// Project describes one version-controlled directory to be checked out.
// Name is required; Path defaults to Name when absent. Name joined with the
// resolved remote's fetch URL forms the clone URL ({fetch}/{name}.git).
type Project struct {
	Name       string `xml:"name,attr"`
	Path       string `xml:"path,attr"`
	Remote     string `xml:"remote,attr"`
	Revision   string `xml:"revision,attr"`
	DestBranch string `xml:"dest-branch,attr"`
	Groups     string `xml:"groups,attr"`
	SyncC      string `xml:"sync-c,attr"`
	SyncS      string `xml:"sync-s,attr"`
	SyncTags   string `xml:"sync-tags,attr"`
	Upstream   string `xml:"upstream,attr"`
	CloneDepth string `xml:"clone-depth,attr"`
	ForcePath  string `xml:"force-path,attr"`

	// Directives nested inside this project element. Their src paths are
	// resolved relative to the project's checkout directory.
	CopyFiles   []CopyFile   `xml:"copyfile"`
	LinkFiles   []LinkFile   `xml:"linkfile"`
	Annotations []Annotation `xml:"annotation"`
}

// CheckoutPath returns the on-disk location of the project relative to the
// sync target root: the path attribute when present, else the name.
func (p *Project) CheckoutPath() string {
	if p.Path != "" {
		return p.Path
	}
	return p.Name
}

// validate enforces the project name restrictions. Overlay (local) manifests
// are exempt, matching the documented looseness for local additions.
func (p *Project) validate(local bool) error {
	if p.Name == "" {
		return WrapError(ErrSchema, `project element requires a "name" attribute`)
	}
	if local {
		return nil
	}
	if strings.HasPrefix(p.Name, "/") {
		return WrapErrorf(ErrSchema, "project name %q must not be an absolute path", p.Name)
	}
	for _, seg := range strings.Split(p.Name, "/") {
		if seg == "." || seg == ".." {
			return WrapErrorf(ErrSchema, `project name %q must not contain "." or ".." segments`, p.Name)
		}
	}
	return nil
}

// ExtendProject modifies attributes of an already-declared project. Path,
// when set, is a match guard: the extension applies only to projects whose
// path attribute equals it. DestPath carries the replacement path.
type ExtendProject struct {
	Name       string `xml:"name,attr"`
	Path       string `xml:"path,attr"`
	DestPath   string `xml:"dest-path,attr"`
	Groups     string `xml:"groups,attr"`
	Revision   string `xml:"revision,attr"`
	Remote     string `xml:"remote,attr"`
	DestBranch string `xml:"dest-branch,attr"`
	Upstream   string `xml:"upstream,attr"`

	// BaseRev is accepted but currently informational.
	BaseRev string `xml:"base-rev,attr"`
}

// RemoveProject deletes matching projects from the effective set. Either
// Name or Path may be used alone; BaseRev, when set, guards the removal.
type RemoveProject struct {
	Name     string `xml:"name,attr"`
	Path     string `xml:"path,attr"`
	Optional string `xml:"optional,attr"`
	BaseRev  string `xml:"base-rev,attr"`
}

// IsOptional reports whether a non-matching removal should stay silent.
func (rp *RemoveProject) IsOptional() bool {
	return strings.EqualFold(rp.Optional, "true")
}

// matches reports whether the removal record identifies the given project.
// Path comparison is against the raw path attribute, not the checkout path.
func (rp *RemoveProject) matches(p *Project) bool {
	if rp.Name != "" {
		if p.Name != rp.Name {
			return false
		}
		if rp.Path != "" {
			return p.Path == rp.Path
		}
		return true
	}
	if rp.Path != "" {
		return p.Path == rp.Path
	}
	return false
}

// RepoHooks names the project carrying hook scripts and which are enabled.
type RepoHooks struct {
	InProject   string `xml:"in-project,attr"`
	EnabledList string `xml:"enabled-list,attr"`
}

// Superproject records the URL of the superproject tracking all projects.
type Superproject struct {
	Name     string `xml:"name,attr"`
	Remote   string `xml:"remote,attr"`
	Revision string `xml:"revision,attr"`
}

// ContactInfo lets manifest authors self-register contact info.
type ContactInfo struct {
	BugURL string `xml:"bugurl,attr"`
}

// Include pulls another manifest file into this one at load time.
type Include struct {
	Name     string `xml:"name,attr"`
	Groups   string `xml:"groups,attr"`
	Revision string `xml:"revision,attr"`
}

// CopyFile copies src (relative to the owning project's checkout directory)
// to dest (relative to the sync target root) after sync completes.
type CopyFile struct {
	Src  string `xml:"src,attr"`
	Dest string `xml:"dest,attr"`
}

// LinkFile creates a symbolic link at dest pointing at src, with the same
// path conventions as CopyFile.
type LinkFile struct {
	Src  string `xml:"src,attr"`
	Dest string `xml:"dest,attr"`
}

// Annotation attaches a name/value pair to its enclosing element. Keep
// defaults to true when the attribute is absent.
type Annotation struct {
	Name  string
	Value string
	Keep  bool
}

// UnmarshalXML decodes an annotation element, applying the keep default.
func (a *Annotation) UnmarshalXML(d *xml.Decoder, start xml.StartElement) error {
	var raw struct {
		Name  string `xml:"name,attr"`
		Value string `xml:"value,attr"`
		Keep  string `xml:"keep,attr"`
	}
	if err := d.DecodeElement(&raw, &start); err != nil {
		return err
	}
	a.Name = raw.Name
	a.Value = raw.Value
	a.Keep = raw.Keep == "" || strings.EqualFold(raw.Keep, "true")
	return nil
}
