package install

import (
	"archive/tar"
	"compress/gzip"
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"github.com/matzehuels/depot/pkg/cache"
	"github.com/matzehuels/depot/pkg/errors"
	"github.com/matzehuels/depot/pkg/httputil"
	"github.com/matzehuels/depot/pkg/manifest"
	"github.com/matzehuels/depot/pkg/pkgset"
)

// installRegistry materializes a registry package, same skip / cache / fetch
// order as the git path. An installed copy is up to date when the version
// recorded in its own manifest matches the wanted version.
func (mgr *Manager) installRegistry(ctx context.Context, p *pkgset.RegistryPackage) (*InstalledPackage, error) {
	dest := filepath.Join(mgr.installDir, string(p.Name))

	if dirExists(dest) {
		switch v := installedVersion(dest); v {
		case p.Version:
			return nil, nil
		case "":
		default:
			mgr.log.Warn("installed with incorrect version, reinstalling",
				"package", p.Name, "installed", v, "want", p.Version,
				"code", errors.ErrCodeVersionMismatch)
		}
	}

	if ok, err := mgr.fromCache(p.Name, p.Version, dest); err != nil {
		return nil, err
	} else if ok {
		return &InstalledPackage{Name: p.Name, Origin: OriginRegistry, Version: p.Version, Cached: true}, nil
	}

	if err := mgr.fetchArchive(ctx, p, dest); err != nil {
		return nil, err
	}
	if err := Prune(dest); err != nil {
		return nil, err
	}
	if _, err := mgr.cache.Store(p.Name, p.Version, dest); err != nil {
		mgr.log.Warn("could not cache package", "package", p.Name, "err", err)
	}
	return &InstalledPackage{Name: p.Name, Origin: OriginRegistry, Version: p.Version}, nil
}

// installedVersion reads the version from the manifest of an installed copy.
// A missing or unreadable manifest counts as no version, forcing a refresh.
func installedVersion(dir string) string {
	m, err := manifest.LoadDir(dir)
	if err != nil {
		return ""
	}
	return m.Package.Version
}

// fetchArchive downloads <registry>/<name>/<version>.tar.gz, extracts it
// into a staging directory, and moves the package contents into dest. The
// archive must contain exactly one top-level directory wrapping the package.
func (mgr *Manager) fetchArchive(ctx context.Context, p *pkgset.RegistryPackage, dest string) error {
	url := fmt.Sprintf("%s/%s/%s.tar.gz", strings.TrimSuffix(mgr.registryURL, "/"), p.Name, p.Version)

	staging := filepath.Join(os.TempDir(), "depot-"+uuid.NewString())
	defer os.RemoveAll(staging)

	mgr.log.Debug("downloading", "package", p.Name, "url", url)
	err := httputil.RetryWithBackoff(ctx, func() error {
		// Each attempt starts from an empty staging dir; a partial extract
		// from a failed attempt must not leak into the next one.
		if err := os.RemoveAll(staging); err != nil {
			return errors.Wrap(errors.ErrCodeIO, err, "reset staging directory")
		}
		if err := os.MkdirAll(staging, 0o755); err != nil {
			return errors.Wrap(errors.ErrCodeIO, err, "create staging directory")
		}
		return mgr.downloadAndExtract(ctx, url, staging)
	})
	if err != nil {
		return errors.Wrap(errors.ErrCodeFetch, err, "fetch %s@%s", p.Name, p.Version)
	}

	top, err := singleTopLevelDir(staging)
	if err != nil {
		return err
	}

	if err := os.RemoveAll(dest); err != nil {
		return errors.Wrap(errors.ErrCodeIO, err, "remove existing %s", dest)
	}
	if err := os.Rename(top, dest); err != nil {
		// Rename fails across filesystems; fall back to a copy.
		if err := cache.CopyDir(top, dest); err != nil {
			return errors.Wrap(errors.ErrCodeIO, err, "move %s into place", p.Name)
		}
	}
	return nil
}

// downloadAndExtract streams the archive at url into dir. 5xx responses are
// retryable, anything else fails the fetch outright.
func (mgr *Manager) downloadAndExtract(ctx context.Context, url, dir string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	resp, err := mgr.httpc.Do(req)
	if err != nil {
		return httputil.Retryable(err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusOK:
	case resp.StatusCode >= 500:
		return httputil.Retryable(fmt.Errorf("registry returned %s", resp.Status))
	case resp.StatusCode == http.StatusNotFound:
		return errors.New(errors.ErrCodePackageNotFound, "registry has no archive at %s", url)
	default:
		return fmt.Errorf("registry returned %s", resp.Status)
	}
	return extractTarGz(resp.Body, dir)
}

// extractTarGz unpacks a gzipped tarball into dir. Entries escaping dir via
// absolute paths or .. components are rejected.
func extractTarGz(r io.Reader, dir string) error {
	gz, err := gzip.NewReader(r)
	if err != nil {
		return errors.Wrap(errors.ErrCodeArchiveFormat, err, "read gzip stream")
	}
	defer gz.Close()

	tr := tar.NewReader(gz)
	for {
		hdr, err := tr.Next()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			// A truncated response body surfaces here as a read error, not
			// as an http failure, so mark it retryable.
			return httputil.Retryable(errors.Wrap(errors.ErrCodeArchiveFormat, err, "read archive"))
		}

		target, err := sanitizePath(dir, hdr.Name)
		if err != nil {
			return err
		}

		switch hdr.Typeflag {
		case tar.TypeDir:
			if err := os.MkdirAll(target, 0o755); err != nil {
				return errors.Wrap(errors.ErrCodeIO, err, "create directory %s", hdr.Name)
			}
		case tar.TypeReg:
			if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
				return errors.Wrap(errors.ErrCodeIO, err, "create directory for %s", hdr.Name)
			}
			if err := writeFileFrom(tr, target, hdr.FileInfo().Mode().Perm()); err != nil {
				return err
			}
		default:
			// Symlinks, devices and the like have no business in a package
			// archive; skip them rather than fail the whole install.
		}
	}
}

// sanitizePath joins name under dir, rejecting absolute entries and any
// entry whose path escapes the extraction directory via "..".
func sanitizePath(dir, name string) (string, error) {
	if filepath.IsAbs(name) {
		return "", errors.New(errors.ErrCodeArchiveFormat, "archive entry %q has an absolute path", name)
	}
	for _, part := range strings.Split(filepath.ToSlash(name), "/") {
		if part == ".." {
			return "", errors.New(errors.ErrCodeArchiveFormat, "archive entry %q escapes extraction directory", name)
		}
	}
	return filepath.Join(dir, name), nil
}

func writeFileFrom(r io.Reader, target string, perm os.FileMode) error {
	f, err := os.OpenFile(target, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, perm)
	if err != nil {
		return errors.Wrap(errors.ErrCodeIO, err, "create %s", target)
	}
	if _, err := io.Copy(f, r); err != nil {
		f.Close()
		return httputil.Retryable(errors.Wrap(errors.ErrCodeIO, err, "write %s", target))
	}
	return f.Close()
}

// singleTopLevelDir returns the lone directory inside dir, erroring when the
// archive layout is anything else.
func singleTopLevelDir(dir string) (string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return "", errors.Wrap(errors.ErrCodeIO, err, "read staging directory")
	}
	if len(entries) != 1 || !entries[0].IsDir() {
		return "", errors.New(errors.ErrCodeArchiveFormat, "archive must contain exactly one top-level directory, found %d entries", len(entries))
	}
	return filepath.Join(dir, entries[0].Name()), nil
}
