package catalog

import (
	"io/fs"
	"path/filepath"
	"strings"

	"github.com/matzehuels/depot/pkg/manifest"
	"github.com/matzehuels/depot/pkg/pkgset"
)

// maxWalkDepth bounds the workspace walk. Packages nested deeper than this
// below the workspace root are not discovered.
const maxWalkDepth = 5

// skipDirs are directory names never descended into during discovery:
// installed dependencies, JS tooling output, and compiler output.
var skipDirs = map[string]bool{
	".depot":       true,
	"node_modules": true,
	"output":       true,
}

// DiscoverWorkspace walks root looking for depot.yaml files and inserts a
// LocalPackage for each one found, overriding any same-named catalog entry.
// Hidden directories and skipDirs are pruned; the walk is depth-bounded.
// Unreadable entries and malformed manifests are skipped silently: a broken
// sibling package must not fail an unrelated command.
func DiscoverWorkspace(set pkgset.Set, root string) {
	_ = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if d.IsDir() {
			if path == root {
				return nil
			}
			name := d.Name()
			if strings.HasPrefix(name, ".") || skipDirs[name] {
				return fs.SkipDir
			}
			if depth(root, path) > maxWalkDepth {
				return fs.SkipDir
			}
			return nil
		}
		if d.Name() != manifest.Filename {
			return nil
		}

		m, err := manifest.Load(path)
		if err != nil {
			return nil
		}
		set.Insert(&pkgset.LocalPackage{
			Name:             m.Package.Name,
			Dependencies:     m.Dependencies(),
			TestDependencies: m.TestDependencies(),
			Path:             filepath.Dir(path),
		})
		return nil
	})
}

func depth(root, path string) int {
	rel, err := filepath.Rel(root, path)
	if err != nil || rel == "." {
		return 0
	}
	return strings.Count(rel, string(filepath.Separator)) + 1
}
