package catalog

import (
	"path/filepath"

	"github.com/matzehuels/depot/pkg/manifest"
	"github.com/matzehuels/depot/pkg/pkgset"
)

// Build assembles the package set for a command. Merge order is fixed and
// later stages override earlier ones by name:
//
//  1. the catalog snapshot: entries carrying a repo URL become
//     RemotePackages pinned to the snapshot version; entries without one
//     are published archives and become RegistryPackages,
//  2. extra packages declared in the manifest (git overrides and path
//     packages),
//  3. local workspace packages discovered by walking workspaceRoot.
//
// The returned set is complete and must not be mutated afterwards.
func Build(snap Snapshot, m *manifest.Manifest, workspaceRoot string) pkgset.Set {
	set := make(pkgset.Set, len(snap))

	for name, entry := range snap {
		if entry.Repo == "" {
			set.Insert(&pkgset.RegistryPackage{
				Name:         name,
				Version:      entry.Version,
				Dependencies: entry.Dependencies,
			})
			continue
		}
		set.Insert(&pkgset.RemotePackage{
			Name:         name,
			Dependencies: entry.Dependencies,
			Repo:         entry.Repo,
			Ref:          entry.Version,
		})
	}

	if m != nil {
		mergeExtraPackages(set, m)
	}
	if workspaceRoot != "" {
		DiscoverWorkspace(set, workspaceRoot)
	}
	return set
}

// mergeExtraPackages applies manifest-declared overrides. A git extra
// becomes a RemotePackage pinned to its ref; a path extra becomes a
// LocalPackage. Dependencies come from the extra declaration itself, or
// for path extras from the package's own manifest when not declared.
func mergeExtraPackages(set pkgset.Set, m *manifest.Manifest) {
	for name, extra := range m.Workspace.ExtraPackages {
		switch {
		case extra.Git != "":
			set.Insert(&pkgset.RemotePackage{
				Name:         name,
				Dependencies: extra.Dependencies,
				Repo:         extra.Git,
				Ref:          extra.Ref,
			})
		case extra.Path != "":
			path := extra.Path
			if !filepath.IsAbs(path) {
				path = filepath.Join(m.Dir, path)
			}
			deps := extra.Dependencies
			var testDeps []pkgset.Name
			if pm, err := manifest.LoadDir(path); err == nil {
				if deps == nil {
					deps = pm.Dependencies()
				}
				testDeps = pm.TestDependencies()
			}
			set.Insert(&pkgset.LocalPackage{
				Name:             name,
				Dependencies:     deps,
				TestDependencies: testDeps,
				Path:             path,
			})
		}
	}
}
