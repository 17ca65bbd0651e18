package install

import (
	"github.com/matzehuels/depot/pkg/errors"
	"github.com/matzehuels/depot/pkg/pkgset"
)

// frame is one worklist entry of the closure walk. Each package name is
// pushed twice: first to expand its dependencies, then to emit it into the
// result once everything below it has been handled.
type frame struct {
	name   pkgset.Name
	expand bool
}

// dependencyClosure computes the full install set for the given root names
// in dependency-first order: a package always appears after every one of
// its (reachable) dependencies. The walk uses an explicit stack rather than
// recursion so pathological dependency chains cannot exhaust the call
// stack.
//
// A name is marked processed on first visit, before its own sub-closure is
// walked. That guarantees termination on cyclic input, but real cycle
// reporting is pkgset's DetectCycle; this walk merely refuses to loop.
//
// Any name absent from the set aborts the whole computation with a
// PACKAGE_NOT_FOUND error. There is no partial closure.
func dependencyClosure(q *pkgset.Query, roots []pkgset.Name) ([]pkgset.Name, error) {
	processed := make(map[pkgset.Name]bool)
	var order []pkgset.Name

	stack := make([]frame, 0, len(roots))
	for i := len(roots) - 1; i >= 0; i-- {
		stack = append(stack, frame{name: roots[i], expand: true})
	}

	for len(stack) > 0 {
		f := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		if !f.expand {
			order = append(order, f.name)
			continue
		}
		if processed[f.name] {
			continue
		}
		processed[f.name] = true

		pkg, ok := q.Get(f.name)
		if !ok {
			return nil, errors.New(errors.ErrCodePackageNotFound, "package %q not found in package set", f.name)
		}

		stack = append(stack, frame{name: f.name})
		deps := pkg.DependencyNames()
		for i := len(deps) - 1; i >= 0; i-- {
			stack = append(stack, frame{name: deps[i], expand: true})
		}
	}
	return order, nil
}
