// Package cache implements the machine-wide global package cache.
//
// The cache is shared by every project on the machine: a (name, version)
// pair fetched for one project is served from disk for all others. Entries
// live under a single root directory next to an index.json mapping package
// names to their cached version, cache key, path, and install time.
//
// The cache key embeds the running tool's version (pkg/buildinfo), so
// entries written by an older or newer depot are never served as hits even
// when present on disk.
//
// Index updates are whole-file read-modify-write with no cross-process
// coordination. Concurrent writers (parallel install tasks, or a second
// depot process) can race on the index; the loser's entry is dropped and
// re-fetched on a later run. Known limitation.
package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/matzehuels/depot/pkg/buildinfo"
	"github.com/matzehuels/depot/pkg/errors"
	"github.com/matzehuels/depot/pkg/pkgset"
)

// indexFile is the name of the cache index inside the cache root.
const indexFile = "index.json"

// Entry is one cached package in the index.
type Entry struct {
	Name        pkgset.Name `json:"name"`
	Version     string      `json:"version"`
	CacheKey    string      `json:"cache_key"`
	Path        string      `json:"path"`
	InstalledAt time.Time   `json:"installed_at"`
}

// Cache is a handle to the global package cache rooted at a directory.
// Methods are safe to call from concurrent install tasks in the sense that
// each call is self-contained, but see the package comment for the index
// race caveat.
type Cache struct {
	root string
	key  string
}

// Key returns the cache key for the running tool. Entries written under a
// different key are invisible to [Cache.CachedPath] and [Cache.CopyTo].
func Key() string {
	return "depot-" + buildinfo.Version
}

// New opens (creating if needed) the global cache under dir/packages.
// dir is typically config.Config.CacheDir.
func New(dir string) (*Cache, error) {
	root := filepath.Join(dir, "packages")
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, errors.Wrap(errors.ErrCodeIO, err, "create cache directory %s", root)
	}
	return &Cache{root: root, key: Key()}, nil
}

// Root returns the cache root directory.
func (c *Cache) Root() string { return c.root }

// IsCached reports whether the index has an entry for name at version.
//
// Note the deliberate asymmetry with [Cache.CachedPath]: IsCached checks
// the version only and ignores the cache key. Callers must still go through
// CachedPath (or CopyTo) for an authoritative, compatibility-checked
// answer.
func (c *Cache) IsCached(name pkgset.Name, version string) (bool, error) {
	index, err := c.loadIndex()
	if err != nil {
		return false, err
	}
	entry, ok := index[name]
	return ok && entry.Version == version, nil
}

// CachedPath returns the on-disk path for name at version, but only when
// both the version and the cache key match the running tool. Returns
// ("", false) otherwise.
func (c *Cache) CachedPath(name pkgset.Name, version string) (string, bool, error) {
	index, err := c.loadIndex()
	if err != nil {
		return "", false, err
	}
	entry, ok := index[name]
	if !ok || entry.Version != version || entry.CacheKey != c.key {
		return "", false, nil
	}
	return entry.Path, true, nil
}

// Store copies srcDir into the cache under a deterministic directory derived
// from (name, version, cache key) and rewrites the index with the new entry.
// A pre-existing copy for the same triple is fully removed first, so stale
// files from an earlier copy never survive a re-store.
func (c *Cache) Store(name pkgset.Name, version, srcDir string) (string, error) {
	dest := filepath.Join(c.root, c.entryDir(name, version))

	if err := os.RemoveAll(dest); err != nil {
		return "", errors.Wrap(errors.ErrCodeIO, err, "remove stale cache copy for %s", name)
	}
	if err := CopyDir(srcDir, dest); err != nil {
		return "", errors.Wrap(errors.ErrCodeIO, err, "copy %s into cache", name)
	}

	index, err := c.loadIndex()
	if err != nil {
		return "", err
	}
	index[name] = Entry{
		Name:        name,
		Version:     version,
		CacheKey:    c.key,
		Path:        dest,
		InstalledAt: time.Now().UTC(),
	}
	if err := c.saveIndex(index); err != nil {
		return "", err
	}
	return dest, nil
}

// CopyTo copies the cached package into dest. dest is removed entirely
// first: replace semantics, never a merge with whatever was there.
// Returns a CACHE_MISS error when no compatible entry exists.
func (c *Cache) CopyTo(name pkgset.Name, version, dest string) error {
	path, ok, err := c.CachedPath(name, version)
	if err != nil {
		return err
	}
	if !ok {
		return errors.New(errors.ErrCodeCacheMiss, "package %s@%s not in cache", name, version)
	}

	if err := os.RemoveAll(dest); err != nil {
		return errors.Wrap(errors.ErrCodeIO, err, "remove existing %s", dest)
	}
	if err := CopyDir(path, dest); err != nil {
		return errors.Wrap(errors.ErrCodeIO, err, "copy %s from cache", name)
	}
	return nil
}

// Clear deletes the entire cache root (index included) and recreates it
// empty. Full eviction is the only supported policy.
func (c *Cache) Clear() error {
	if err := os.RemoveAll(c.root); err != nil {
		return errors.Wrap(errors.ErrCodeIO, err, "remove cache root")
	}
	if err := os.MkdirAll(c.root, 0o755); err != nil {
		return errors.Wrap(errors.ErrCodeIO, err, "recreate cache root")
	}
	return nil
}

// Entries returns the current index contents, for the cache list command.
func (c *Cache) Entries() (map[pkgset.Name]Entry, error) {
	return c.loadIndex()
}

// entryDir derives the cache subdirectory name for (name, version, key).
// A short hash keeps the name filesystem-safe regardless of what the
// version string contains.
func (c *Cache) entryDir(name pkgset.Name, version string) string {
	sum := sha256.Sum256([]byte(fmt.Sprintf("%s\x00%s\x00%s", name, version, c.key)))
	return fmt.Sprintf("%s-%s", name, hex.EncodeToString(sum[:8]))
}

func (c *Cache) indexPath() string {
	return filepath.Join(c.root, indexFile)
}

func (c *Cache) loadIndex() (map[pkgset.Name]Entry, error) {
	data, err := os.ReadFile(c.indexPath())
	if os.IsNotExist(err) {
		return make(map[pkgset.Name]Entry), nil
	}
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeIO, err, "read cache index")
	}
	index := make(map[pkgset.Name]Entry)
	if err := json.Unmarshal(data, &index); err != nil {
		return nil, errors.Wrap(errors.ErrCodeIO, err, "parse cache index")
	}
	return index, nil
}

// saveIndex rewrites the whole index file. Not append-only: two processes
// saving concurrently will keep only one writer's change.
func (c *Cache) saveIndex(index map[pkgset.Name]Entry) error {
	data, err := json.MarshalIndent(index, "", "  ")
	if err != nil {
		return errors.Wrap(errors.ErrCodeInternal, err, "marshal cache index")
	}
	if err := os.WriteFile(c.indexPath(), data, 0o644); err != nil {
		return errors.Wrap(errors.ErrCodeIO, err, "write cache index")
	}
	return nil
}
