// Package pkgset defines the package data model and the read-only query
// engine used by install, cleanup, and the inspection commands.
//
// A [Set] maps package names to packages drawn from three origins: the remote
// catalog snapshot (git-sourced), the archive registry, and local workspace
// directories. The set is assembled once per command (see pkg/catalog) and is
// read-only afterwards, so it can be shared across goroutines without
// synchronization.
package pkgset

// Name is the unique, case-sensitive identity of a package. It is the key
// type of every package map in depot.
type Name string

func (n Name) String() string { return string(n) }

// Package is the common capability set shared by all package origins.
// Implementations form a closed sum: [RemotePackage], [RegistryPackage],
// and [LocalPackage]. Callers switch on the concrete type when origin
// behavior differs (fetching, caching, version checks).
type Package interface {
	// PkgName returns the package's unique name.
	PkgName() Name

	// DependencyNames returns the names of the package's direct dependencies.
	// Names need not exist in the containing Set.
	DependencyNames() []Name

	// PkgVersion returns the declared version, or "" when the package has
	// none (local packages).
	PkgVersion() string
}

// RemotePackage is a catalog entry backed by a source repository. It is
// installed by cloning Repo and checking out Ref.
type RemotePackage struct {
	Name         Name
	Dependencies []Name
	Repo         string // clone URL
	Ref          string // tag, branch, or commit
}

func (p *RemotePackage) PkgName() Name { return p.Name }
func (p *RemotePackage) DependencyNames() []Name { return p.Dependencies }
func (p *RemotePackage) PkgVersion() string { return p.Ref }

// RegistryPackage is a pre-built archive published to the package registry.
// It is installed by downloading and extracting a tarball.
type RegistryPackage struct {
	Name         Name
	Version      string
	Dependencies []Name
}

func (p *RegistryPackage) PkgName() Name { return p.Name }
func (p *RegistryPackage) DependencyNames() []Name { return p.Dependencies }
func (p *RegistryPackage) PkgVersion() string { return p.Version }

// LocalPackage is a workspace member discovered on disk. Local packages are
// never fetched or cached but participate fully in dependency queries.
type LocalPackage struct {
	Name             Name
	Dependencies     []Name
	TestDependencies []Name
	Path             string // absolute directory of the package
}

func (p *LocalPackage) PkgName() Name { return p.Name }
func (p *LocalPackage) DependencyNames() []Name { return p.Dependencies }
func (p *LocalPackage) PkgVersion() string { return "" }

// Set maps package names to packages. Keys are unique; the only mutation is
// [Set.Insert] during the merge phase in pkg/catalog. After that the set is
// treated as immutable for the remainder of the command.
type Set map[Name]Package

// Insert adds pkg under its own name, overriding any existing entry.
// Override order matters during the merge: catalog snapshot first, then
// manifest extra packages, then discovered workspace packages.
func (s Set) Insert(pkg Package) {
	s[pkg.PkgName()] = pkg
}

// Get returns the package for name, or nil and false if absent.
func (s Set) Get(name Name) (Package, bool) {
	pkg, ok := s[name]
	return pkg, ok
}

// Locals returns all local workspace packages in the set.
func (s Set) Locals() []*LocalPackage {
	var locals []*LocalPackage
	for _, pkg := range s {
		if local, ok := pkg.(*LocalPackage); ok {
			locals = append(locals, local)
		}
	}
	return locals
}

// Compile-time interface checks.
var (
	_ Package = (*RemotePackage)(nil)
	_ Package = (*RegistryPackage)(nil)
	_ Package = (*LocalPackage)(nil)
)
