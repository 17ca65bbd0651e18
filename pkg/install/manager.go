// Package install orchestrates dependency installation: closure
// computation over the resolved package set, concurrent per-package
// fetch-or-cache-or-skip tasks, post-fetch pruning, and cleanup of
// installs no longer required by the manifest.
package install

import (
	"context"
	"net/http"
	"os"
	"slices"

	charmlog "github.com/charmbracelet/log"
	"golang.org/x/sync/errgroup"

	"github.com/matzehuels/depot/pkg/cache"
	"github.com/matzehuels/depot/pkg/errors"
	"github.com/matzehuels/depot/pkg/manifest"
	"github.com/matzehuels/depot/pkg/pkgset"
)

// Manager installs packages into a project's install directory (.depot),
// backed by the machine-wide global cache. The package set handed to
// NewManager is treated as read-only for the Manager's lifetime, so all
// install tasks share it without synchronization.
type Manager struct {
	installDir  string
	set         pkgset.Set
	query       *pkgset.Query
	cache       *cache.Cache
	registryURL string
	httpc       *http.Client
	log         *charmlog.Logger
}

// NewManager creates a Manager installing into installDir. registryURL is
// the archive registry base (config.Config.RegistryURL); logger may be nil.
func NewManager(installDir string, set pkgset.Set, gc *cache.Cache, registryURL string, logger *charmlog.Logger) *Manager {
	if logger == nil {
		logger = charmlog.Default()
	}
	return &Manager{
		installDir:  installDir,
		set:         set,
		query:       pkgset.NewQuery(set),
		cache:       gc,
		registryURL: registryURL,
		// No client timeout on purpose: archive downloads may be large and
		// the transport's own defaults apply. Cancellation comes from ctx.
		httpc: &http.Client{},
		log:   logger,
	}
}

// Install materializes every package in the dependency closure of m's
// direct dependencies. At a workspace root the closure additionally covers
// the union of all workspace members' dependencies. With includeTestDeps,
// test-only dependencies (and, at a root, all members' test dependencies)
// join the closure roots.
//
// One goroutine is spawned per closure member, all at once; closure size is
// the concurrency bound. Tasks are never cancelled by sibling failures, and
// all outcomes are collected before the result is assembled, so a failed
// batch still leaves its successful members installed.
//
// A name missing from the package set fails closure computation before any
// task starts; that is the only error returned directly. Per-package
// failures are reported through Result.Errors.
func (mgr *Manager) Install(ctx context.Context, m *manifest.Manifest, includeTestDeps bool) (*Result, error) {
	if err := os.MkdirAll(mgr.installDir, 0o755); err != nil {
		return nil, errors.Wrap(errors.ErrCodeIO, err, "create install directory %s", mgr.installDir)
	}

	roots := mgr.closureRoots(m, includeTestDeps)
	names, err := dependencyClosure(mgr.query, roots)
	if err != nil {
		return nil, err
	}
	mgr.log.Debug("computed install closure", "roots", len(roots), "packages", len(names))

	results := make(chan taskResult, len(names))
	var g errgroup.Group
	for _, name := range names {
		g.Go(func() error {
			pkg, err := mgr.installOne(ctx, name)
			results <- taskResult{name: name, pkg: pkg, err: err}
			return nil
		})
	}
	_ = g.Wait() // tasks report through the results channel
	close(results)

	res := &Result{}
	for r := range results {
		switch {
		case r.err != nil:
			mgr.log.Error("install failed", "package", r.name, "err", r.err)
			res.Errors = append(res.Errors, r.errorString())
		case r.pkg != nil:
			mgr.log.Info("installed", "package", r.pkg.Name, "origin", r.pkg.Origin, "cached", r.pkg.Cached)
			res.Installed = append(res.Installed, *r.pkg)
		}
	}

	// Deterministic reporting regardless of task completion order.
	slices.SortFunc(res.Installed, func(a, b InstalledPackage) int {
		if a.Name < b.Name {
			return -1
		}
		if a.Name > b.Name {
			return 1
		}
		return 0
	})
	slices.Sort(res.Errors)
	return res, nil
}

// closureRoots assembles the direct dependency names seeding the closure.
func (mgr *Manager) closureRoots(m *manifest.Manifest, includeTestDeps bool) []pkgset.Name {
	roots := slices.Clone(m.Dependencies())
	if m.IsWorkspaceRoot() {
		roots = append(roots, mgr.query.WorkspaceDependencies()...)
	}
	if includeTestDeps {
		roots = append(roots, m.TestDependencies()...)
		if m.IsWorkspaceRoot() {
			roots = append(roots, mgr.query.WorkspaceTestDependencies()...)
		}
	}
	return roots
}

// installOne runs the per-package state machine. A nil InstalledPackage
// with nil error means the package needed no work (local origin, or already
// installed at the right version).
func (mgr *Manager) installOne(ctx context.Context, name pkgset.Name) (*InstalledPackage, error) {
	pkg, ok := mgr.set.Get(name)
	if !ok {
		// The closure guarantees presence; reaching this means the set was
		// mutated behind our back.
		return nil, errors.New(errors.ErrCodeInternal, "package %q vanished from package set", name)
	}

	switch p := pkg.(type) {
	case *pkgset.LocalPackage:
		return nil, nil // local packages are used in place
	case *pkgset.RegistryPackage:
		return mgr.installRegistry(ctx, p)
	case *pkgset.RemotePackage:
		return mgr.installRemote(ctx, p)
	default:
		return nil, errors.New(errors.ErrCodeInternal, "unknown package origin for %q", name)
	}
}

// fromCache copies a compatible cached build into dest. ok reports whether
// the cache could serve the package; a miss (wrong version or cache key) is
// not an error.
func (mgr *Manager) fromCache(name pkgset.Name, version, dest string) (ok bool, err error) {
	err = mgr.cache.CopyTo(name, version, dest)
	if err == nil {
		return true, nil
	}
	if errors.Is(err, errors.ErrCodeCacheMiss) {
		return false, nil
	}
	return false, err
}

func dirExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}
