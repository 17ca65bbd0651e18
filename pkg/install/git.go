package install

import (
	"context"
	"os"
	"path/filepath"

	git "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"

	"github.com/matzehuels/depot/pkg/errors"
	"github.com/matzehuels/depot/pkg/pkgset"
)

// installRemote materializes a git-sourced package. The state machine is
// skip / cache hit / fetch, in that order:
//
//  1. an installed copy whose HEAD matches the declared ref needs no work,
//  2. the global cache is tried next (ref doubles as the cache version),
//  3. otherwise clone, checkout, prune, and store the result in the cache.
func (mgr *Manager) installRemote(ctx context.Context, p *pkgset.RemotePackage) (*InstalledPackage, error) {
	dest := filepath.Join(mgr.installDir, string(p.Name))

	if dirExists(dest) && mgr.refMatches(dest, p.Ref) {
		return nil, nil
	}

	if ok, err := mgr.fromCache(p.Name, p.Ref, dest); err != nil {
		return nil, err
	} else if ok {
		return &InstalledPackage{Name: p.Name, Origin: OriginGit, Version: p.Ref, Cached: true}, nil
	}

	if err := mgr.fetchRepo(ctx, p, dest); err != nil {
		return nil, err
	}
	if err := Prune(dest); err != nil {
		return nil, err
	}
	if _, err := mgr.cache.Store(p.Name, p.Ref, dest); err != nil {
		mgr.log.Warn("could not cache package", "package", p.Name, "err", err)
	}
	return &InstalledPackage{Name: p.Name, Origin: OriginGit, Version: p.Ref}, nil
}

// refMatches reports whether the repository at dir is checked out at ref.
// Pruned installs have no .git directory, so the check fails open to false
// and the caller falls through to the cache, which is a hit for a pruned
// copy stored by a previous run.
func (mgr *Manager) refMatches(dir, ref string) bool {
	repo, err := git.PlainOpen(dir)
	if err != nil {
		return false
	}
	head, err := repo.Head()
	if err != nil {
		return false
	}
	want, err := resolveRef(repo, ref)
	if err != nil {
		return false
	}
	return head.Hash() == *want
}

// fetchRepo clones p.Repo into dest and checks out p.Ref. A failed checkout
// removes the half-cloned directory so a retry starts clean.
func (mgr *Manager) fetchRepo(ctx context.Context, p *pkgset.RemotePackage, dest string) error {
	if err := os.RemoveAll(dest); err != nil {
		return errors.Wrap(errors.ErrCodeIO, err, "remove existing %s", dest)
	}

	mgr.log.Debug("cloning", "package", p.Name, "repo", p.Repo, "ref", p.Ref)
	repo, err := git.PlainCloneContext(ctx, dest, false, &git.CloneOptions{
		URL:  p.Repo,
		Tags: git.AllTags,
	})
	if err != nil {
		return errors.Wrap(errors.ErrCodeFetch, err, "clone %s", p.Repo)
	}

	hash, err := resolveRef(repo, p.Ref)
	if err == nil {
		var wt *git.Worktree
		if wt, err = repo.Worktree(); err == nil {
			err = wt.Checkout(&git.CheckoutOptions{Hash: *hash})
		}
	}
	if err != nil {
		os.RemoveAll(dest)
		return errors.Wrap(errors.ErrCodeFetch, err, "checkout %s at %s", p.Name, p.Ref)
	}
	return nil
}

// resolveRef resolves ref against the repository, trying it as written first
// and then as a tag name.
func resolveRef(repo *git.Repository, ref string) (*plumbing.Hash, error) {
	hash, err := repo.ResolveRevision(plumbing.Revision(ref))
	if err == nil {
		return hash, nil
	}
	return repo.ResolveRevision(plumbing.Revision("refs/tags/" + ref))
}
