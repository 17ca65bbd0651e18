package pkgset

import (
	"github.com/matzehuels/depot/pkg/errors"
)

// Query is a read-only view over a borrowed [Set] providing the dependency
// graph operations. A Query never mutates the set, so a single instance may
// be shared freely across goroutines.
type Query struct {
	set Set
}

// NewQuery creates a query interface over set.
func NewQuery(set Set) *Query {
	return &Query{set: set}
}

// Get returns the package for name, or nil and false if absent.
func (q *Query) Get(name Name) (Package, bool) {
	return q.set.Get(name)
}

// Exists reports whether name is present in the set.
func (q *Query) Exists(name Name) bool {
	_, ok := q.set[name]
	return ok
}

// Len returns the number of packages in the set.
func (q *Query) Len() int { return len(q.set) }

// Dependencies returns the packages for each of name's direct dependencies
// that exist in the set. Dependency names absent from the set are silently
// dropped; an absent root returns a PACKAGE_NOT_FOUND error.
func (q *Query) Dependencies(name Name) ([]Package, error) {
	pkg, ok := q.set.Get(name)
	if !ok {
		return nil, errors.New(errors.ErrCodePackageNotFound, "package %q not found in package set", name)
	}
	var deps []Package
	for _, depName := range pkg.DependencyNames() {
		if dep, ok := q.set.Get(depName); ok {
			deps = append(deps, dep)
		}
	}
	return deps, nil
}

// TransitiveDependencies returns every package transitively reachable from
// name's dependency edges, excluding name itself. Traversal is breadth-first
// with a visited set, so the result is in discovery (level) order.
//
// Discovery order is NOT a valid install order; callers that need
// dependency-first ordering must use the install manager's closure walk.
func (q *Query) TransitiveDependencies(name Name) ([]Package, error) {
	if _, ok := q.set.Get(name); !ok {
		return nil, errors.New(errors.ErrCodePackageNotFound, "package %q not found in package set", name)
	}

	visited := map[Name]bool{name: true}
	queue := []Name{name}
	var result []Package

	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]

		pkg, ok := q.set.Get(current)
		if !ok {
			continue // absent names are skipped
		}
		if current != name {
			result = append(result, pkg)
		}
		for _, dep := range pkg.DependencyNames() {
			if !visited[dep] {
				visited[dep] = true
				queue = append(queue, dep)
			}
		}
	}
	return result, nil
}

// Dependents returns every package whose direct dependency list contains
// name. This is a full scan of the set; no reverse index is maintained,
// which is fine at catalog scale (low thousands of entries).
func (q *Query) Dependents(name Name) []Package {
	var dependents []Package
	for _, pkg := range q.set {
		for _, dep := range pkg.DependencyNames() {
			if dep == name {
				dependents = append(dependents, pkg)
				break
			}
		}
	}
	return dependents
}

// WorkspaceDependencies returns the union of all local workspace packages'
// direct dependencies. At a workspace root the install closure must cover
// these in addition to the current package's own dependencies.
func (q *Query) WorkspaceDependencies() []Name {
	var deps []Name
	for _, local := range q.set.Locals() {
		deps = append(deps, local.Dependencies...)
	}
	return deps
}

// WorkspaceTestDependencies returns the union of all local workspace
// packages' test-only dependencies.
func (q *Query) WorkspaceTestDependencies() []Name {
	var deps []Name
	for _, local := range q.set.Locals() {
		deps = append(deps, local.TestDependencies...)
	}
	return deps
}

// Stats summarizes dependency counts across the whole set.
type Stats struct {
	TotalPackages     int
	TotalDependencies int
	AvgDependencies   float64
	MaxDependencies   int
	MinDependencies   int
	NoDependencies    int // packages with zero dependencies
}

// Stats computes aggregate dependency statistics. Purely descriptive;
// used by the stats command.
func (q *Query) Stats() Stats {
	s := Stats{TotalPackages: len(q.set)}
	minDeps := -1

	for _, pkg := range q.set {
		n := len(pkg.DependencyNames())
		s.TotalDependencies += n
		if n > s.MaxDependencies {
			s.MaxDependencies = n
		}
		if minDeps < 0 || n < minDeps {
			minDeps = n
		}
		if n == 0 {
			s.NoDependencies++
		}
	}

	if s.TotalPackages > 0 {
		s.AvgDependencies = float64(s.TotalDependencies) / float64(s.TotalPackages)
		s.MinDependencies = minDeps
	}
	return s
}

// Validate reports every dependency name that is referenced by a package in
// the set but not present in the set, keyed by the referencing package.
// An empty map means the set is internally consistent.
func (q *Query) Validate() map[Name][]Name {
	missing := make(map[Name][]Name)
	for pkgName, pkg := range q.set {
		for _, dep := range pkg.DependencyNames() {
			if !q.Exists(dep) {
				missing[pkgName] = append(missing[pkgName], dep)
			}
		}
	}
	return missing
}
