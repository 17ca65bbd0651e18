package install

import (
	"fmt"
	"strings"

	"github.com/matzehuels/depot/pkg/errors"
	"github.com/matzehuels/depot/pkg/pkgset"
)

// Origin identifies how an installed package was sourced.
type Origin string

const (
	// OriginGit marks a package cloned from a source repository.
	OriginGit Origin = "git"
	// OriginRegistry marks a package downloaded as a registry archive.
	OriginRegistry Origin = "registry"
)

// InstalledPackage describes one package materialized by an install run.
// Packages that were already present (or local) do not appear.
type InstalledPackage struct {
	Name    pkgset.Name
	Origin  Origin
	Version string
	Cached  bool // served from the global cache, no network access
}

// Result aggregates the outcome of an install batch. Installed lists every
// package actually written this run; Errors holds one message per failed
// package. Successful siblings of a failed package stay on disk: the batch
// reports failure but is never rolled back.
type Result struct {
	Installed []InstalledPackage
	Errors    []string
}

// Success reports whether every task in the batch completed.
func (r *Result) Success() bool { return len(r.Errors) == 0 }

// Err returns an aggregated error enumerating every failing package, or nil
// when the batch succeeded.
func (r *Result) Err() error {
	if r.Success() {
		return nil
	}
	return errors.New(errors.ErrCodeFetch, "failed to install dependencies: %s", strings.Join(r.Errors, "; "))
}

// taskResult carries one fan-out task's outcome back to the collector.
type taskResult struct {
	name pkgset.Name
	pkg  *InstalledPackage // nil when skipped (local or already installed)
	err  error
}

func (t taskResult) errorString() string {
	return fmt.Sprintf("%s: %s", t.name, errors.UserMessage(t.err))
}
