// Package catalog resolves the package set a command operates on: it
// fetches the versioned catalog snapshot, applies manifest-declared extra
// packages, and registers local workspace packages, producing the
// read-only pkgset.Set consumed by install, cleanup, and the query
// commands.
package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/matzehuels/depot/pkg/errors"
	"github.com/matzehuels/depot/pkg/httputil"
	"github.com/matzehuels/depot/pkg/pkgset"
)

const (
	httpTimeout = 10 * time.Second

	userAgent = "depot/1.0 (https://github.com/matzehuels/depot)"
)

// SnapshotEntry is one package in the catalog snapshot JSON:
// name → {dependencies, repo, version}.
type SnapshotEntry struct {
	Dependencies []pkgset.Name `json:"dependencies"`
	Repo         string        `json:"repo"`
	Version      string        `json:"version"`
}

// Snapshot is the raw catalog snapshot keyed by package name.
type Snapshot map[pkgset.Name]SnapshotEntry

// Client fetches catalog snapshots over HTTP with file-backed caching and
// retry on transient failures. Safe for concurrent use.
type Client struct {
	baseURL string
	http    *http.Client
	cache   *httputil.Cache
}

// NewClient creates a catalog client for baseURL. Snapshots are cached in
// cache; pass nil to disable caching.
func NewClient(baseURL string, cache *httputil.Cache) *Client {
	return &Client{
		baseURL: baseURL,
		http:    &http.Client{Timeout: httpTimeout},
		cache:   cache,
	}
}

// FetchSnapshot retrieves the package-set snapshot for tag, serving from
// the local snapshot cache when fresh. If refresh is true the cache is
// bypassed and the snapshot re-downloaded.
func (c *Client) FetchSnapshot(ctx context.Context, tag string, refresh bool) (Snapshot, error) {
	key := "catalog:" + tag

	if c.cache != nil && !refresh {
		var snap Snapshot
		if hit, err := c.cache.Get(key, &snap); err == nil && hit {
			return snap, nil
		}
	}

	url := fmt.Sprintf("%s/%s/packages.json", c.baseURL, tag)
	var snap Snapshot
	err := httputil.RetryWithBackoff(ctx, func() error {
		return c.fetch(ctx, url, &snap)
	})
	if err != nil {
		return nil, err
	}

	if c.cache != nil {
		// Best effort: a failed cache write only costs a re-download.
		_ = c.cache.Set(key, snap)
	}
	return snap, nil
}

func (c *Client) fetch(ctx context.Context, url string, v any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return errors.Wrap(errors.ErrCodeInternal, err, "build request %s", url)
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := c.http.Do(req)
	if err != nil {
		return httputil.Retryable(errors.Wrap(errors.ErrCodeNetwork, err, "fetch %s", url))
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return errors.New(errors.ErrCodePackageNotFound, "catalog snapshot not found: %s", url)
	case resp.StatusCode >= 500:
		return httputil.Retryable(errors.New(errors.ErrCodeNetwork, "fetch %s: HTTP %d", url, resp.StatusCode))
	case resp.StatusCode != http.StatusOK:
		return errors.New(errors.ErrCodeNetwork, "fetch %s: HTTP %d", url, resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return httputil.Retryable(errors.Wrap(errors.ErrCodeNetwork, err, "read %s", url))
	}
	if err := json.Unmarshal(body, v); err != nil {
		return errors.Wrap(errors.ErrCodeInternal, err, "decode snapshot %s", url)
	}
	return nil
}
