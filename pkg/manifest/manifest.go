// Package manifest reads and writes depot.yaml, the declarative project
// manifest listing a package's direct (and optional test-only) dependencies
// plus workspace-level settings.
package manifest

import (
	"os"
	"path/filepath"
	"slices"

	"gopkg.in/yaml.v3"

	"github.com/matzehuels/depot/pkg/errors"
	"github.com/matzehuels/depot/pkg/pkgset"
)

// Filename is the manifest file name looked for in package directories.
const Filename = "depot.yaml"

// Manifest is the parsed depot.yaml.
type Manifest struct {
	Package   PackageSection   `yaml:"package"`
	Workspace WorkspaceSection `yaml:"workspace,omitempty"`

	// Dir is the directory the manifest was loaded from. Not serialized.
	Dir string `yaml:"-"`
}

// PackageSection declares the package and its dependencies. Version is set
// in registry-published packages and read back from installed copies to
// decide whether an install is already up to date.
type PackageSection struct {
	Name         pkgset.Name   `yaml:"name"`
	Version      string        `yaml:"version,omitempty"`
	Dependencies []pkgset.Name `yaml:"dependencies,omitempty"`
	Test         *TestSection  `yaml:"test,omitempty"`
}

// TestSection declares test-only dependencies.
type TestSection struct {
	Dependencies []pkgset.Name `yaml:"dependencies,omitempty"`
}

// WorkspaceSection holds workspace-level configuration. Its presence marks
// the manifest as the workspace root.
type WorkspaceSection struct {
	Present       bool                         `yaml:"-"`
	PackageSet    *PackageSetSection           `yaml:"packageSet,omitempty"`
	ExtraPackages map[pkgset.Name]ExtraPackage `yaml:"extraPackages,omitempty"`
}

// PackageSetSection pins the catalog snapshot the workspace resolves against.
type PackageSetSection struct {
	URL string `yaml:"url"`
}

// ExtraPackage is a manifest-declared override: a package taken from a git
// repository or a local path instead of the catalog snapshot.
type ExtraPackage struct {
	Git          string        `yaml:"git,omitempty"`
	Ref          string        `yaml:"ref,omitempty"`
	Path         string        `yaml:"path,omitempty"`
	Dependencies []pkgset.Name `yaml:"dependencies,omitempty"`
}

// Load reads and parses the manifest at path.
func Load(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.Wrap(errors.ErrCodeFileNotFound, err, "no %s at %s", Filename, filepath.Dir(path))
		}
		return nil, errors.Wrap(errors.ErrCodeIO, err, "read %s", path)
	}

	// Decode twice: once for the package body and once to learn whether a
	// workspace key is present at all (an empty workspace section is still
	// a workspace root).
	var m Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidManifest, err, "parse %s", path)
	}
	var probe struct {
		Workspace *WorkspaceSection `yaml:"workspace"`
	}
	if err := yaml.Unmarshal(data, &probe); err == nil && probe.Workspace != nil {
		m.Workspace.Present = true
	}

	if m.Package.Name == "" {
		return nil, errors.New(errors.ErrCodeInvalidManifest, "%s: package.name is required", path)
	}
	m.Dir = filepath.Dir(path)
	return &m, nil
}

// LoadDir loads the manifest from dir/depot.yaml.
func LoadDir(dir string) (*Manifest, error) {
	return Load(filepath.Join(dir, Filename))
}

// Save writes the manifest back to dir/depot.yaml.
func (m *Manifest) Save(dir string) error {
	data, err := yaml.Marshal(m)
	if err != nil {
		return errors.Wrap(errors.ErrCodeInternal, err, "marshal manifest")
	}
	if err := os.WriteFile(filepath.Join(dir, Filename), data, 0o644); err != nil {
		return errors.Wrap(errors.ErrCodeIO, err, "write %s", Filename)
	}
	return nil
}

// IsWorkspaceRoot reports whether this manifest carries a workspace section,
// making the closure span all workspace members' dependencies.
func (m *Manifest) IsWorkspaceRoot() bool {
	return m.Workspace.Present
}

// Dependencies returns the direct package dependencies.
func (m *Manifest) Dependencies() []pkgset.Name {
	return m.Package.Dependencies
}

// TestDependencies returns the test-only dependencies, or nil when the
// manifest has no test section.
func (m *Manifest) TestDependencies() []pkgset.Name {
	if m.Package.Test == nil {
		return nil
	}
	return m.Package.Test.Dependencies
}

// AllDependencies returns package plus test dependencies, sorted and deduped.
func (m *Manifest) AllDependencies() []pkgset.Name {
	deps := slices.Clone(m.Package.Dependencies)
	deps = append(deps, m.TestDependencies()...)
	slices.Sort(deps)
	return slices.Compact(deps)
}

// HasDependency reports whether name is a declared direct dependency.
func (m *Manifest) HasDependency(name pkgset.Name) bool {
	return slices.Contains(m.Package.Dependencies, name)
}

// RemoveDependencies deletes the given names from the direct dependency
// list. Unknown names are ignored. Used by the uninstall flow before the
// cleanup pass recomputes the required closure.
func (m *Manifest) RemoveDependencies(names ...pkgset.Name) {
	m.Package.Dependencies = slices.DeleteFunc(m.Package.Dependencies, func(dep pkgset.Name) bool {
		return slices.Contains(names, dep)
	})
}
