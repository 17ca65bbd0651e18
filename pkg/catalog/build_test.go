package catalog

import (
	"os"
	"path/filepath"
	"slices"
	"testing"

	"github.com/matzehuels/depot/pkg/manifest"
	"github.com/matzehuels/depot/pkg/pkgset"
)

func testSnapshot() Snapshot {
	return Snapshot{
		"prelude": {Repo: "https://example.com/prelude.git", Version: "v6.0.0"},
		"arrays":  {Dependencies: []pkgset.Name{"prelude"}, Repo: "https://example.com/arrays.git", Version: "v7.1.0"},
	}
}

func TestBuildFromSnapshot(t *testing.T) {
	set := Build(testSnapshot(), nil, "")

	if len(set) != 2 {
		t.Fatalf("set has %d packages, want 2", len(set))
	}
	pkg, ok := set.Get("arrays")
	if !ok {
		t.Fatal("arrays missing")
	}
	remote, ok := pkg.(*pkgset.RemotePackage)
	if !ok {
		t.Fatalf("arrays is %T, want *RemotePackage", pkg)
	}
	if remote.Ref != "v7.1.0" || remote.Repo != "https://example.com/arrays.git" {
		t.Errorf("arrays = %+v", remote)
	}
}

func TestBuildArchiveEntryWithoutRepo(t *testing.T) {
	// Snapshot entries with no repo URL are published archives and must
	// resolve through the registry download path, not git.
	snap := Snapshot{
		"prelude": {Repo: "https://example.com/prelude.git", Version: "v6.0.0"},
		"strings": {Dependencies: []pkgset.Name{"prelude"}, Version: "2.3.0"},
	}

	set := Build(snap, nil, "")

	pkg, ok := set.Get("strings")
	if !ok {
		t.Fatal("strings missing")
	}
	reg, ok := pkg.(*pkgset.RegistryPackage)
	if !ok {
		t.Fatalf("strings is %T, want *RegistryPackage", pkg)
	}
	if reg.Version != "2.3.0" {
		t.Errorf("Version = %q, want 2.3.0", reg.Version)
	}
	if want := []pkgset.Name{"prelude"}; !slices.Equal(reg.Dependencies, want) {
		t.Errorf("Dependencies = %v, want %v", reg.Dependencies, want)
	}

	prelude, ok := set.Get("prelude")
	if !ok {
		t.Fatal("prelude missing")
	}
	if _, ok := prelude.(*pkgset.RemotePackage); !ok {
		t.Errorf("prelude is %T, want *RemotePackage", prelude)
	}
}

func TestBuildGitExtraOverridesSnapshot(t *testing.T) {
	m := &manifest.Manifest{
		Package: manifest.PackageSection{Name: "app"},
		Workspace: manifest.WorkspaceSection{
			ExtraPackages: map[pkgset.Name]manifest.ExtraPackage{
				"arrays": {Git: "https://fork.example.com/arrays.git", Ref: "my-fix"},
			},
		},
	}

	set := Build(testSnapshot(), m, "")

	pkg, _ := set.Get("arrays")
	remote, ok := pkg.(*pkgset.RemotePackage)
	if !ok {
		t.Fatalf("arrays is %T, want *RemotePackage", pkg)
	}
	if remote.Repo != "https://fork.example.com/arrays.git" || remote.Ref != "my-fix" {
		t.Errorf("extra package did not override snapshot: %+v", remote)
	}
}

func TestBuildPathExtraReadsManifest(t *testing.T) {
	// A path extra without declared dependencies falls back to the package's
	// own manifest.
	root := t.TempDir()
	pkgDir := filepath.Join(root, "vendored")
	if err := os.MkdirAll(pkgDir, 0o755); err != nil {
		t.Fatal(err)
	}
	content := "package:\n  name: vendored\n  dependencies: [prelude]\n"
	if err := os.WriteFile(filepath.Join(pkgDir, manifest.Filename), []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	m := &manifest.Manifest{
		Package: manifest.PackageSection{Name: "app"},
		Workspace: manifest.WorkspaceSection{
			ExtraPackages: map[pkgset.Name]manifest.ExtraPackage{
				"vendored": {Path: "vendored"},
			},
		},
		Dir: root,
	}

	set := Build(testSnapshot(), m, "")

	pkg, ok := set.Get("vendored")
	if !ok {
		t.Fatal("vendored missing")
	}
	local, ok := pkg.(*pkgset.LocalPackage)
	if !ok {
		t.Fatalf("vendored is %T, want *LocalPackage", pkg)
	}
	if local.Path != pkgDir {
		t.Errorf("Path = %q, want %q", local.Path, pkgDir)
	}
	if want := []pkgset.Name{"prelude"}; !slices.Equal(local.Dependencies, want) {
		t.Errorf("Dependencies = %v, want %v", local.Dependencies, want)
	}
}

func writeWorkspacePackage(t *testing.T, root string, rel, name string, deps ...string) {
	t.Helper()
	dir := filepath.Join(root, filepath.FromSlash(rel))
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatal(err)
	}
	content := "package:\n  name: " + name + "\n"
	if len(deps) > 0 {
		content += "  dependencies:\n"
		for _, d := range deps {
			content += "    - " + d + "\n"
		}
	}
	if err := os.WriteFile(filepath.Join(dir, manifest.Filename), []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestDiscoverWorkspace(t *testing.T) {
	root := t.TempDir()
	writeWorkspacePackage(t, root, "libs/core", "ws-core", "prelude")
	writeWorkspacePackage(t, root, "apps/server", "ws-server", "ws-core")

	set := make(pkgset.Set)
	DiscoverWorkspace(set, root)

	if len(set) != 2 {
		t.Fatalf("discovered %d packages, want 2", len(set))
	}
	pkg, ok := set.Get("ws-server")
	if !ok {
		t.Fatal("ws-server not discovered")
	}
	local := pkg.(*pkgset.LocalPackage)
	if want := filepath.Join(root, "apps", "server"); local.Path != want {
		t.Errorf("Path = %q, want %q", local.Path, want)
	}
}

func TestDiscoverWorkspaceSkipsDirs(t *testing.T) {
	root := t.TempDir()
	writeWorkspacePackage(t, root, ".depot/installed-lib", "should-not-appear")
	writeWorkspacePackage(t, root, "node_modules/js-lib", "should-not-appear-2")
	writeWorkspacePackage(t, root, ".hidden/pkg", "should-not-appear-3")
	writeWorkspacePackage(t, root, "real", "real-pkg")

	set := make(pkgset.Set)
	DiscoverWorkspace(set, root)

	if len(set) != 1 {
		t.Fatalf("discovered %d packages, want 1: %v", len(set), set)
	}
	if _, ok := set.Get("real-pkg"); !ok {
		t.Error("real-pkg not discovered")
	}
}

func TestDiscoverWorkspaceDepthBound(t *testing.T) {
	root := t.TempDir()
	writeWorkspacePackage(t, root, "a/b/c/d/shallow", "shallow-pkg")
	writeWorkspacePackage(t, root, "a/b/c/d/e/f/deep", "deep-pkg")

	set := make(pkgset.Set)
	DiscoverWorkspace(set, root)

	if _, ok := set.Get("shallow-pkg"); !ok {
		t.Error("shallow-pkg within depth bound not discovered")
	}
	if _, ok := set.Get("deep-pkg"); ok {
		t.Error("deep-pkg beyond depth bound should not be discovered")
	}
}

func TestDiscoverWorkspaceSkipsBrokenManifest(t *testing.T) {
	root := t.TempDir()
	dir := filepath.Join(root, "broken")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, manifest.Filename), []byte("не yaml: ["), 0o644); err != nil {
		t.Fatal(err)
	}
	writeWorkspacePackage(t, root, "ok", "ok-pkg")

	set := make(pkgset.Set)
	DiscoverWorkspace(set, root)

	if len(set) != 1 {
		t.Errorf("discovered %d packages, want 1 (broken manifest skipped)", len(set))
	}
}
