package install

import (
	"slices"
	"testing"

	"github.com/matzehuels/depot/pkg/errors"
	"github.com/matzehuels/depot/pkg/pkgset"
)

func closureSet() pkgset.Set {
	set := make(pkgset.Set)
	set.Insert(&pkgset.RegistryPackage{Name: "a", Version: "1", Dependencies: []pkgset.Name{"b", "c"}})
	set.Insert(&pkgset.RegistryPackage{Name: "b", Version: "1", Dependencies: []pkgset.Name{"d"}})
	set.Insert(&pkgset.RegistryPackage{Name: "c", Version: "1", Dependencies: []pkgset.Name{"d"}})
	set.Insert(&pkgset.RegistryPackage{Name: "d", Version: "1"})
	return set
}

// indexOf returns the position of name in order, or -1.
func indexOf(order []pkgset.Name, name pkgset.Name) int {
	return slices.Index(order, name)
}

func TestDependencyClosureOrder(t *testing.T) {
	q := pkgset.NewQuery(closureSet())

	order, err := dependencyClosure(q, []pkgset.Name{"a"})
	if err != nil {
		t.Fatalf("dependencyClosure() error: %v", err)
	}
	if len(order) != 4 {
		t.Fatalf("closure = %v, want 4 members", order)
	}

	// Every package appears after all of its dependencies.
	for _, name := range order {
		pkg, _ := q.Get(name)
		for _, dep := range pkg.DependencyNames() {
			if indexOf(order, dep) > indexOf(order, name) {
				t.Errorf("closure %v: %s appears before its dependency %s", order, name, dep)
			}
		}
	}
}

func TestDependencyClosureDeduplicates(t *testing.T) {
	q := pkgset.NewQuery(closureSet())

	// d is reachable via b and c, and listed as an explicit root.
	order, err := dependencyClosure(q, []pkgset.Name{"a", "d"})
	if err != nil {
		t.Fatalf("dependencyClosure() error: %v", err)
	}
	seen := make(map[pkgset.Name]int)
	for _, name := range order {
		seen[name]++
	}
	for name, count := range seen {
		if count != 1 {
			t.Errorf("%s appears %d times in %v", name, count, order)
		}
	}
}

func TestDependencyClosureMissingAborts(t *testing.T) {
	set := closureSet()
	set.Insert(&pkgset.RegistryPackage{Name: "e", Version: "1", Dependencies: []pkgset.Name{"ghost"}})
	q := pkgset.NewQuery(set)

	_, err := dependencyClosure(q, []pkgset.Name{"e"})
	if !errors.Is(err, errors.ErrCodePackageNotFound) {
		t.Errorf("dependencyClosure() = %v, want PACKAGE_NOT_FOUND", err)
	}
}

func TestDependencyClosureMissingRootAborts(t *testing.T) {
	q := pkgset.NewQuery(closureSet())

	_, err := dependencyClosure(q, []pkgset.Name{"nope"})
	if !errors.Is(err, errors.ErrCodePackageNotFound) {
		t.Errorf("dependencyClosure() = %v, want PACKAGE_NOT_FOUND", err)
	}
}

func TestDependencyClosureCyclicInputTerminates(t *testing.T) {
	set := make(pkgset.Set)
	set.Insert(&pkgset.RegistryPackage{Name: "x", Version: "1", Dependencies: []pkgset.Name{"y"}})
	set.Insert(&pkgset.RegistryPackage{Name: "y", Version: "1", Dependencies: []pkgset.Name{"x"}})
	q := pkgset.NewQuery(set)

	order, err := dependencyClosure(q, []pkgset.Name{"x"})
	if err != nil {
		t.Fatalf("dependencyClosure() error on cycle: %v", err)
	}
	if len(order) != 2 {
		t.Errorf("closure = %v, want both cycle members exactly once", order)
	}
}

func TestDependencyClosureEmptyRoots(t *testing.T) {
	q := pkgset.NewQuery(closureSet())

	order, err := dependencyClosure(q, nil)
	if err != nil {
		t.Fatalf("dependencyClosure() error: %v", err)
	}
	if len(order) != 0 {
		t.Errorf("closure = %v, want empty", order)
	}
}
