package install

import (
	"os"
	"path/filepath"
	"slices"
	"testing"

	"github.com/matzehuels/depot/pkg/manifest"
	"github.com/matzehuels/depot/pkg/pkgset"
)

func installFake(t *testing.T, installDir string, names ...string) {
	t.Helper()
	for _, name := range names {
		if err := os.MkdirAll(filepath.Join(installDir, name, "src"), 0o755); err != nil {
			t.Fatal(err)
		}
	}
}

func TestCleanupRemovesUnrequired(t *testing.T) {
	set := make(pkgset.Set)
	set.Insert(&pkgset.RegistryPackage{Name: "keep-a", Version: "1", Dependencies: []pkgset.Name{"keep-b"}})
	set.Insert(&pkgset.RegistryPackage{Name: "keep-b", Version: "1"})
	mgr, installDir := newTestManager(t, set, "http://registry.invalid")

	installFake(t, installDir, "keep-a", "keep-b", "orphan-1", "orphan-2")

	removed, err := mgr.Cleanup(appManifest("keep-a"))
	if err != nil {
		t.Fatalf("Cleanup() error: %v", err)
	}
	if want := []pkgset.Name{"orphan-1", "orphan-2"}; !slices.Equal(removed, want) {
		t.Errorf("removed = %v, want %v", removed, want)
	}

	// Transitive dependency keep-b survives even though it is not a direct
	// dependency.
	for _, name := range []string{"keep-a", "keep-b"} {
		if _, err := os.Stat(filepath.Join(installDir, name)); err != nil {
			t.Errorf("%s should survive cleanup: %v", name, err)
		}
	}
	for _, name := range []string{"orphan-1", "orphan-2"} {
		if _, err := os.Stat(filepath.Join(installDir, name)); !os.IsNotExist(err) {
			t.Errorf("%s should be removed", name)
		}
	}
}

func TestCleanupKeepsTestDependencies(t *testing.T) {
	set := make(pkgset.Set)
	set.Insert(&pkgset.RegistryPackage{Name: "lib", Version: "1"})
	set.Insert(&pkgset.RegistryPackage{Name: "spec", Version: "1"})
	mgr, installDir := newTestManager(t, set, "http://registry.invalid")

	installFake(t, installDir, "lib", "spec")

	m := appManifest("lib")
	m.Package.Test = &manifest.TestSection{Dependencies: []pkgset.Name{"spec"}}

	removed, err := mgr.Cleanup(m)
	if err != nil {
		t.Fatalf("Cleanup() error: %v", err)
	}
	if len(removed) != 0 {
		t.Errorf("removed = %v, want nothing: spec is a test dependency", removed)
	}
}

func TestCleanupMissingInstallDir(t *testing.T) {
	mgr, _ := newTestManager(t, registrySet("lib"), "http://registry.invalid")

	// Install dir was never created; cleanup has nothing to do.
	removed, err := mgr.Cleanup(appManifest("lib"))
	if err != nil {
		t.Fatalf("Cleanup() error: %v", err)
	}
	if removed != nil {
		t.Errorf("removed = %v, want nil", removed)
	}
}

func TestCleanupUnresolvableClosure(t *testing.T) {
	mgr, installDir := newTestManager(t, registrySet("lib"), "http://registry.invalid")
	installFake(t, installDir, "lib")

	if _, err := mgr.Cleanup(appManifest("ghost")); err == nil {
		t.Error("Cleanup() = nil error for unresolvable closure; nothing should be guessed")
	}
	if _, err := os.Stat(filepath.Join(installDir, "lib")); err != nil {
		t.Errorf("lib must survive a failed cleanup: %v", err)
	}
}
