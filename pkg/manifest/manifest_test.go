package manifest

import (
	"os"
	"path/filepath"
	"slices"
	"testing"

	"github.com/matzehuels/depot/pkg/errors"
	"github.com/matzehuels/depot/pkg/pkgset"
)

func writeManifest(t *testing.T, content string) string {
	t.Helper()
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, Filename), []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return dir
}

func TestLoadBasic(t *testing.T) {
	dir := writeManifest(t, `
package:
  name: my-app
  dependencies:
    - prelude
    - arrays
  test:
    dependencies:
      - spec
`)

	m, err := LoadDir(dir)
	if err != nil {
		t.Fatalf("LoadDir() error: %v", err)
	}
	if m.Package.Name != "my-app" {
		t.Errorf("name = %q, want my-app", m.Package.Name)
	}
	if got, want := m.Dependencies(), []pkgset.Name{"prelude", "arrays"}; !slices.Equal(got, want) {
		t.Errorf("Dependencies() = %v, want %v", got, want)
	}
	if got, want := m.TestDependencies(), []pkgset.Name{"spec"}; !slices.Equal(got, want) {
		t.Errorf("TestDependencies() = %v, want %v", got, want)
	}
	if m.Dir != dir {
		t.Errorf("Dir = %q, want %q", m.Dir, dir)
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, err := LoadDir(t.TempDir())
	if !errors.Is(err, errors.ErrCodeFileNotFound) {
		t.Errorf("LoadDir() on empty dir: got %v, want FILE_NOT_FOUND", err)
	}
}

func TestLoadMissingName(t *testing.T) {
	dir := writeManifest(t, "package:\n  dependencies: [prelude]\n")

	_, err := LoadDir(dir)
	if !errors.Is(err, errors.ErrCodeInvalidManifest) {
		t.Errorf("LoadDir() without name: got %v, want INVALID_MANIFEST", err)
	}
}

func TestLoadInvalidYAML(t *testing.T) {
	dir := writeManifest(t, "package: [not: a: mapping\n")

	_, err := LoadDir(dir)
	if !errors.Is(err, errors.ErrCodeInvalidManifest) {
		t.Errorf("LoadDir() with bad yaml: got %v, want INVALID_MANIFEST", err)
	}
}

func TestWorkspaceRootDetection(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    bool
	}{
		{
			name:    "no workspace key",
			content: "package:\n  name: lib\n",
			want:    false,
		},
		{
			name:    "empty workspace section",
			content: "package:\n  name: root\nworkspace: {}\n",
			want:    true,
		},
		{
			name: "populated workspace section",
			content: `
package:
  name: root
workspace:
  packageSet:
    url: "0.15.4"
`,
			want: true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, err := LoadDir(writeManifest(t, tt.content))
			if err != nil {
				t.Fatalf("LoadDir() error: %v", err)
			}
			if got := m.IsWorkspaceRoot(); got != tt.want {
				t.Errorf("IsWorkspaceRoot() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestExtraPackages(t *testing.T) {
	dir := writeManifest(t, `
package:
  name: root
workspace:
  extraPackages:
    patched-lib:
      git: https://example.com/patched-lib.git
      ref: fix-branch
    sibling:
      path: ../sibling
      dependencies: [prelude]
`)

	m, err := LoadDir(dir)
	if err != nil {
		t.Fatalf("LoadDir() error: %v", err)
	}

	patched, ok := m.Workspace.ExtraPackages["patched-lib"]
	if !ok {
		t.Fatal("patched-lib missing from extraPackages")
	}
	if patched.Git != "https://example.com/patched-lib.git" || patched.Ref != "fix-branch" {
		t.Errorf("patched-lib = %+v", patched)
	}

	sibling, ok := m.Workspace.ExtraPackages["sibling"]
	if !ok {
		t.Fatal("sibling missing from extraPackages")
	}
	if sibling.Path != "../sibling" {
		t.Errorf("sibling.Path = %q, want ../sibling", sibling.Path)
	}
	if got, want := sibling.Dependencies, []pkgset.Name{"prelude"}; !slices.Equal(got, want) {
		t.Errorf("sibling.Dependencies = %v, want %v", got, want)
	}
}

func TestAllDependencies(t *testing.T) {
	m := &Manifest{
		Package: PackageSection{
			Name:         "app",
			Dependencies: []pkgset.Name{"b", "a"},
			Test:         &TestSection{Dependencies: []pkgset.Name{"c", "a"}},
		},
	}

	got := m.AllDependencies()
	if want := []pkgset.Name{"a", "b", "c"}; !slices.Equal(got, want) {
		t.Errorf("AllDependencies() = %v, want %v (sorted, deduped)", got, want)
	}
}

func TestRemoveDependencies(t *testing.T) {
	m := &Manifest{
		Package: PackageSection{
			Name:         "app",
			Dependencies: []pkgset.Name{"a", "b", "c"},
		},
	}

	m.RemoveDependencies("b", "unknown")
	if want := []pkgset.Name{"a", "c"}; !slices.Equal(m.Package.Dependencies, want) {
		t.Errorf("after RemoveDependencies: %v, want %v", m.Package.Dependencies, want)
	}
}

func TestSaveRoundTrip(t *testing.T) {
	dir := t.TempDir()
	m := &Manifest{
		Package: PackageSection{
			Name:         "app",
			Version:      "1.2.0",
			Dependencies: []pkgset.Name{"prelude"},
		},
	}

	if err := m.Save(dir); err != nil {
		t.Fatalf("Save() error: %v", err)
	}
	loaded, err := LoadDir(dir)
	if err != nil {
		t.Fatalf("LoadDir() after Save: %v", err)
	}
	if loaded.Package.Name != "app" || loaded.Package.Version != "1.2.0" {
		t.Errorf("round trip lost fields: %+v", loaded.Package)
	}
	if !slices.Equal(loaded.Dependencies(), m.Dependencies()) {
		t.Errorf("round trip deps = %v, want %v", loaded.Dependencies(), m.Dependencies())
	}
	if loaded.IsWorkspaceRoot() {
		t.Error("Save() must not invent a workspace section")
	}
}
