package manifest

import (
	"context"

	"github.com/chainguard-dev/clog"
)

// Merge folds one overlay manifest into base, in place. It is applied once
// per overlay file, in directory-listing order, and proceeds in four steps:
// guarded removals, extensions, additive concatenation of sequences, and
// overlay-wins replacement of single-valued elements.
//
// Removals and extensions both operate against the running base project set,
// so removal-then-extension of the same project is order-dependent across
// overlays.
func Merge(ctx context.Context, base, overlay *Manifest) {
	for i := range overlay.RemoveProjects {
		applyRemoval(ctx, base, &overlay.RemoveProjects[i])
	}

	for i := range overlay.ExtendProjects {
		applyExtension(ctx, base, &overlay.ExtendProjects[i])
	}

	base.Remotes = append(base.Remotes, overlay.Remotes...)
	base.Submanifests = append(base.Submanifests, overlay.Submanifests...)
	base.RemoveProjects = append(base.RemoveProjects, overlay.RemoveProjects...)
	base.Projects = append(base.Projects, overlay.Projects...)
	base.ExtendProjects = append(base.ExtendProjects, overlay.ExtendProjects...)
	base.Includes = append(base.Includes, overlay.Includes...)
	base.CopyFiles = append(base.CopyFiles, overlay.CopyFiles...)
	base.LinkFiles = append(base.LinkFiles, overlay.LinkFiles...)
	base.Annotations = append(base.Annotations, overlay.Annotations...)

	if overlay.Default != nil {
		base.Default = overlay.Default
	}
	if overlay.ManifestServer != nil {
		base.ManifestServer = overlay.ManifestServer
	}
	if overlay.RepoHooks != nil {
		base.RepoHooks = overlay.RepoHooks
	}
	if overlay.Superproject != nil {
		base.Superproject = overlay.Superproject
	}
	if overlay.ContactInfo != nil {
		base.ContactInfo = overlay.ContactInfo
	}
}

// applyRemoval deletes every base project the record matches. A base-rev
// guard retains projects whose revision differs, with a diagnostic. When
// nothing matched and the record is not optional, a diagnostic is emitted;
// either way a non-matching removal is never fatal.
func applyRemoval(ctx context.Context, base *Manifest, rp *RemoveProject) {
	log := clog.FromContext(ctx)

	matched := false
	kept := base.Projects[:0]
	for i := range base.Projects {
		p := base.Projects[i]
		if !rp.matches(&p) {
			kept = append(kept, p)
			continue
		}
		matched = true
		if rp.BaseRev != "" && p.Revision != rp.BaseRev {
			log.Warn("remove-project base-rev mismatch, keeping project",
				"project", p.Name, "base-rev", rp.BaseRev, "revision", p.Revision)
			kept = append(kept, p)
			continue
		}
		log.Debug("removing project", "project", p.Name, "path", p.Path)
	}
	base.Projects = kept

	if !matched && !rp.IsOptional() {
		log.Warn("remove-project matched no project",
			"name", rp.Name, "path", rp.Path)
	}
}

// applyExtension overwrites only the fields the extension supplies, on every
// base project whose name matches. A path attribute on the extension narrows
// the match to projects with that exact path attribute.
func applyExtension(ctx context.Context, base *Manifest, ep *ExtendProject) {
	log := clog.FromContext(ctx)

	for i := range base.Projects {
		p := &base.Projects[i]
		if p.Name != ep.Name {
			continue
		}
		if ep.Path != "" && p.Path != ep.Path {
			continue
		}
		if ep.DestPath != "" {
			p.Path = ep.DestPath
		}
		if ep.Groups != "" {
			p.Groups = ep.Groups
		}
		if ep.Revision != "" {
			p.Revision = ep.Revision
		}
		if ep.Remote != "" {
			p.Remote = ep.Remote
		}
		if ep.DestBranch != "" {
			p.DestBranch = ep.DestBranch
		}
		if ep.Upstream != "" {
			p.Upstream = ep.Upstream
		}
		// base-rev is recorded on the extension but not applied.
		log.Debug("extended project", "project", p.Name, "path", p.Path)
	}
}
