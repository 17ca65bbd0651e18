package install

import (
	"os"
	"path/filepath"
	"slices"

	"github.com/matzehuels/depot/pkg/errors"
	"github.com/matzehuels/depot/pkg/manifest"
	"github.com/matzehuels/depot/pkg/pkgset"
)

// Cleanup removes installed packages no longer reachable from the manifest's
// dependencies (package plus test, plus all workspace members at a root).
// It returns the names removed, sorted. The global cache is never touched:
// a cleaned-up package reinstalls from cache without network access.
func (mgr *Manager) Cleanup(m *manifest.Manifest) ([]pkgset.Name, error) {
	roots := m.AllDependencies()
	if m.IsWorkspaceRoot() {
		roots = append(roots, mgr.query.WorkspaceDependencies()...)
		roots = append(roots, mgr.query.WorkspaceTestDependencies()...)
	}
	names, err := dependencyClosure(mgr.query, roots)
	if err != nil {
		return nil, err
	}
	required := make(map[pkgset.Name]bool, len(names))
	for _, name := range names {
		required[name] = true
	}

	entries, err := os.ReadDir(mgr.installDir)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeIO, err, "read install directory %s", mgr.installDir)
	}

	var removed []pkgset.Name
	for _, entry := range entries {
		if !entry.IsDir() || required[pkgset.Name(entry.Name())] {
			continue
		}
		path := filepath.Join(mgr.installDir, entry.Name())
		if err := os.RemoveAll(path); err != nil {
			mgr.log.Warn("could not remove unused package", "package", entry.Name(), "err", err)
			continue
		}
		removed = append(removed, pkgset.Name(entry.Name()))
	}
	slices.Sort(removed)
	return removed, nil
}
