package manifest

import (
	"context"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/chainguard-dev/clog"
	"github.com/go-git/go-billy/v5"
)

const (
	// DefaultRemoteName is the fallback remote when neither the project nor
	// the default element names one.
	DefaultRemoteName = "origin"

	// DefaultRevision is the fallback revision used by LoadEffective.
	DefaultRevision = "main"

	// LocalManifestsDir is the conventional overlay directory, relative to
	// the directory holding the main manifest.
	LocalManifestsDir = ".repo/local_manifests"
)

// Load parses the manifest document at path within fsys, eagerly resolving
// include elements relative to the document's directory. When the document
// has no default element, one is synthesized from defaultRemote and
// defaultRevision.
//
// Malformed XML fails with ErrParse, a missing required attribute on a
// remote or project element with ErrSchema, a broken named include with
// ErrInclude, and a self-including manifest with ErrIncludeCycle. I/O
// failures opening the file are propagated as-is.
func Load(ctx context.Context, fsys billy.Filesystem, path, defaultRemote, defaultRevision string) (*Manifest, error) {
	return load(ctx, fsys, path, defaultRemote, defaultRevision, false)
}

func load(ctx context.Context, fsys billy.Filesystem, path, defaultRemote, defaultRevision string, local bool) (*Manifest, error) {
	l := &loader{fs: fsys, local: local}
	m := &Manifest{}
	if err := l.parseFile(ctx, m, path); err != nil {
		return nil, err
	}
	if m.Default == nil {
		m.Default = &Default{
			Remote:   defaultRemote,
			Revision: defaultRevision,
		}
	}
	return m, nil
}

// LoadEffective loads the main manifest at path and merges every *.xml
// overlay found in overlayDir on top of it, in directory-listing order.
// When overlayDir is empty the conventional <dir-of-manifest>/.repo/local_manifests
// location is used. A missing overlay directory is not an error.
func LoadEffective(ctx context.Context, fsys billy.Filesystem, path, overlayDir string) (*Manifest, error) {
	base, err := Load(ctx, fsys, path, DefaultRemoteName, DefaultRevision)
	if err != nil {
		return nil, err
	}

	if overlayDir == "" {
		overlayDir = fsys.Join(filepath.Dir(path), LocalManifestsDir)
	}

	entries, err := fsys.ReadDir(overlayDir)
	if err != nil {
		if os.IsNotExist(err) || errors.Is(err, os.ErrNotExist) {
			return base, nil
		}
		return nil, fmt.Errorf("reading overlay directory %q: %w", overlayDir, err)
	}

	for _, entry := range entries {
		if entry.IsDir() || !strings.EqualFold(filepath.Ext(entry.Name()), ".xml") {
			continue
		}
		overlayPath := fsys.Join(overlayDir, entry.Name())
		overlay, err := load(ctx, fsys, overlayPath, DefaultRemoteName, DefaultRevision, true)
		if err != nil {
			return nil, fmt.Errorf("loading overlay %q: %w", overlayPath, err)
		}
		Merge(ctx, base, overlay)
	}

	return base, nil
}

// loader carries per-load state: the filesystem, the relaxed-validation flag
// for overlay manifests, and the stack of files currently being parsed, used
// to detect include cycles.
type loader struct {
	fs    billy.Filesystem
	local bool
	stack []string
}

func (l *loader) parseFile(ctx context.Context, m *Manifest, path string) error {
	canonical := filepath.Clean(path)
	for _, p := range l.stack {
		if p == canonical {
			return WrapErrorf(ErrIncludeCycle, "%s is already being loaded", canonical)
		}
	}
	l.stack = append(l.stack, canonical)
	defer func() { l.stack = l.stack[:len(l.stack)-1] }()

	f, err := l.fs.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	dec := xml.NewDecoder(f)
	for {
		tok, err := dec.Token()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return WrapErrorf(ErrParse, "%s: %v", path, err)
		}
		start, ok := tok.(xml.StartElement)
		if !ok {
			continue
		}
		if err := l.parseElement(ctx, m, dec, start, path); err != nil {
			return err
		}
	}
}

// parseElement dispatches one recognized element to its typed decoder.
// Unrecognized elements are left alone: their own children keep flowing
// through the token loop, so recognized elements nested inside unknown
// containers are still picked up.
func (l *loader) parseElement(ctx context.Context, m *Manifest, dec *xml.Decoder, start xml.StartElement, path string) error {
	switch start.Name.Local {
	case "notice":
		var n struct {
			Text string `xml:",chardata"`
		}
		if err := dec.DecodeElement(&n, &start); err != nil {
			return WrapErrorf(ErrParse, "%s: notice: %v", path, err)
		}
		m.Notice = n.Text

	case "remote":
		var r Remote
		if err := dec.DecodeElement(&r, &start); err != nil {
			return WrapErrorf(ErrParse, "%s: remote: %v", path, err)
		}
		if err := r.validate(); err != nil {
			return WrapErrorf(err, "%s", path)
		}
		m.Remotes = append(m.Remotes, r)

	case "default":
		var d Default
		if err := dec.DecodeElement(&d, &start); err != nil {
			return WrapErrorf(ErrParse, "%s: default: %v", path, err)
		}
		m.Default = &d

	case "manifest-server":
		var ms ManifestServer
		if err := dec.DecodeElement(&ms, &start); err != nil {
			return WrapErrorf(ErrParse, "%s: manifest-server: %v", path, err)
		}
		m.ManifestServer = &ms

	case "submanifest":
		var sm Submanifest
		if err := dec.DecodeElement(&sm, &start); err != nil {
			return WrapErrorf(ErrParse, "%s: submanifest: %v", path, err)
		}
		m.Submanifests = append(m.Submanifests, sm)

	case "remove-project":
		var rp RemoveProject
		if err := dec.DecodeElement(&rp, &start); err != nil {
			return WrapErrorf(ErrParse, "%s: remove-project: %v", path, err)
		}
		m.RemoveProjects = append(m.RemoveProjects, rp)

	case "project":
		var p Project
		if err := dec.DecodeElement(&p, &start); err != nil {
			return WrapErrorf(ErrParse, "%s: project: %v", path, err)
		}
		if err := p.validate(l.local); err != nil {
			return WrapErrorf(err, "%s", path)
		}
		m.Projects = append(m.Projects, p)

	case "extend-project":
		var ep ExtendProject
		if err := dec.DecodeElement(&ep, &start); err != nil {
			return WrapErrorf(ErrParse, "%s: extend-project: %v", path, err)
		}
		m.ExtendProjects = append(m.ExtendProjects, ep)

	case "repo-hooks":
		var rh RepoHooks
		if err := dec.DecodeElement(&rh, &start); err != nil {
			return WrapErrorf(ErrParse, "%s: repo-hooks: %v", path, err)
		}
		m.RepoHooks = &rh

	case "superproject":
		var sp Superproject
		if err := dec.DecodeElement(&sp, &start); err != nil {
			return WrapErrorf(ErrParse, "%s: superproject: %v", path, err)
		}
		m.Superproject = &sp

	case "contactinfo":
		var ci ContactInfo
		if err := dec.DecodeElement(&ci, &start); err != nil {
			return WrapErrorf(ErrParse, "%s: contactinfo: %v", path, err)
		}
		m.ContactInfo = &ci

	case "include":
		var inc Include
		if err := dec.DecodeElement(&inc, &start); err != nil {
			return WrapErrorf(ErrParse, "%s: include: %v", path, err)
		}
		m.Includes = append(m.Includes, inc)
		return l.parseInclude(ctx, m, inc, path)

	case "copyfile":
		var cf CopyFile
		if err := dec.DecodeElement(&cf, &start); err != nil {
			return WrapErrorf(ErrParse, "%s: copyfile: %v", path, err)
		}
		m.CopyFiles = append(m.CopyFiles, cf)

	case "linkfile":
		var lf LinkFile
		if err := dec.DecodeElement(&lf, &start); err != nil {
			return WrapErrorf(ErrParse, "%s: linkfile: %v", path, err)
		}
		m.LinkFiles = append(m.LinkFiles, lf)

	case "annotation":
		var a Annotation
		if err := dec.DecodeElement(&a, &start); err != nil {
			return WrapErrorf(ErrParse, "%s: annotation: %v", path, err)
		}
		m.Annotations = append(m.Annotations, a)
	}
	return nil
}

// parseInclude resolves an include element against the directory of the
// including file and folds the included document into m by sequence
// concatenation. A failed include surfaces unless its name is empty.
func (l *loader) parseInclude(ctx context.Context, m *Manifest, inc Include, path string) error {
	includePath := l.fs.Join(filepath.Dir(path), inc.Name)
	if err := l.parseFile(ctx, m, includePath); err != nil {
		clog.FromContext(ctx).Warn("failed to parse included manifest",
			"include", includePath, "error", err)
		if inc.Name != "" {
			return fmt.Errorf("%w %q: %w", ErrInclude, inc.Name, err)
		}
	}
	return nil
}
