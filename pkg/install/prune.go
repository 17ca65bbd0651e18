package install

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/matzehuels/depot/pkg/errors"
	"github.com/matzehuels/depot/pkg/manifest"
)

// Prune strips a freshly fetched package down to what consumers need: the
// src tree, the manifest, and a readme. Everything else (git metadata, CI
// config, examples, test suites) is deleted. Pruning runs before the package
// is stored in the cache, so cached copies are already minimal.
func Prune(dir string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return errors.Wrap(errors.ErrCodeIO, err, "read package directory %s", dir)
	}
	for _, entry := range entries {
		if keepEntry(entry.Name()) {
			continue
		}
		if err := os.RemoveAll(filepath.Join(dir, entry.Name())); err != nil {
			return errors.Wrap(errors.ErrCodeIO, err, "prune %s from %s", entry.Name(), dir)
		}
	}
	return nil
}

// keepEntry decides whether a top-level entry survives pruning.
func keepEntry(name string) bool {
	if name == "src" || name == manifest.Filename {
		return true
	}
	lower := strings.ToLower(name)
	return lower == "readme" || lower == "readme.md"
}
