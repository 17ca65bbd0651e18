// Package cli implements the depot command-line interface.
package cli

import (
	"context"
	"io"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/matzehuels/depot/pkg/buildinfo"
	"github.com/matzehuels/depot/pkg/cache"
	"github.com/matzehuels/depot/pkg/catalog"
	"github.com/matzehuels/depot/pkg/config"
	"github.com/matzehuels/depot/pkg/httputil"
	"github.com/matzehuels/depot/pkg/install"
	"github.com/matzehuels/depot/pkg/manifest"
	"github.com/matzehuels/depot/pkg/pkgset"
)

// =============================================================================
// Constants
// =============================================================================

const (
	// installDirName is the per-project directory dependencies install into.
	installDirName = ".depot"

	// defaultSnapshotTag is used when the manifest does not pin a package set.
	defaultSnapshotTag = "latest"

	// snapshotTTL is how long fetched package-set snapshots stay fresh in the
	// local snapshot cache.
	snapshotTTL = 24 * time.Hour
)

// Log levels exported for use in main.go.
const (
	LogDebug = log.DebugLevel
	LogInfo  = log.InfoLevel
)

// =============================================================================
// CLI - Central CLI State
// =============================================================================

// CLI holds shared state for all commands.
type CLI struct {
	Logger *log.Logger
}

// New creates a new CLI instance with a default logger.
func New(w io.Writer, level log.Level) *CLI {
	return &CLI{
		Logger: log.NewWithOptions(w, log.Options{
			ReportTimestamp: true,
			TimeFormat:      "15:04:05.00",
			Level:           level,
		}),
	}
}

// SetLogLevel updates the logger's level.
func (c *CLI) SetLogLevel(level log.Level) {
	c.Logger.SetLevel(level)
}

// RootCommand creates the root cobra command with all subcommands registered.
func (c *CLI) RootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:          "depot",
		Short:        "Depot manages packages for your project",
		Long:         `Depot is a package manager: it resolves your project's dependency graph against a versioned package catalog and installs the closure into .depot, backed by a machine-wide content cache.`,
		Version:      buildinfo.Version,
		SilenceUsage: true,
	}

	root.SetVersionTemplate(buildinfo.Template())

	// Register all subcommands
	root.AddCommand(c.installCommand())
	root.AddCommand(c.uninstallCommand())
	root.AddCommand(c.cacheCommand())
	root.AddCommand(c.statsCommand())
	root.AddCommand(c.validateCommand())
	root.AddCommand(c.graphCommand())
	root.AddCommand(c.completionCommand())

	return root
}

// =============================================================================
// Project Context
// =============================================================================

// project bundles everything a command needs once the manifest is loaded and
// the package set resolved.
type project struct {
	cfg      config.Config
	manifest *manifest.Manifest
	set      pkgset.Set
	query    *pkgset.Query
}

// loadProject loads the config and the manifest from the current directory,
// fetches the catalog snapshot, and builds the merged package set.
func (c *CLI) loadProject(ctx context.Context, refresh bool) (*project, error) {
	cfg, err := config.Load("")
	if err != nil {
		return nil, err
	}

	cwd, err := os.Getwd()
	if err != nil {
		return nil, err
	}
	m, err := manifest.LoadDir(cwd)
	if err != nil {
		return nil, err
	}

	snap, err := c.fetchSnapshot(ctx, cfg, m, refresh)
	if err != nil {
		return nil, err
	}

	set := catalog.Build(snap, m, m.Dir)
	return &project{
		cfg:      cfg,
		manifest: m,
		set:      set,
		query:    pkgset.NewQuery(set),
	}, nil
}

// fetchSnapshot downloads (or serves from the snapshot cache) the package-set
// snapshot the manifest pins, showing a spinner while the network is busy.
func (c *CLI) fetchSnapshot(ctx context.Context, cfg config.Config, m *manifest.Manifest, refresh bool) (catalog.Snapshot, error) {
	tag := snapshotTag(m)

	// A broken snapshot cache only costs a re-download, so degrade to an
	// uncached client rather than fail.
	snapCache, err := httputil.NewCache("", snapshotTTL)
	if err != nil {
		snapCache = nil
	}
	client := catalog.NewClient(cfg.CatalogURL, snapCache)

	sp := newSpinnerWithContext(ctx, "Fetching package set "+tag)
	sp.Start()
	snap, err := client.FetchSnapshot(ctx, tag, refresh)
	sp.Stop()
	if err != nil {
		return nil, err
	}
	c.Logger.Debug("fetched package set", "tag", tag, "packages", len(snap))
	return snap, nil
}

// snapshotTag resolves the package-set tag from the workspace section. The
// packageSet.url field accepts either a bare tag or a full snapshot URL whose
// last-but-one path segment is the tag (<base>/<tag>/packages.json).
func snapshotTag(m *manifest.Manifest) string {
	if m.Workspace.PackageSet == nil || m.Workspace.PackageSet.URL == "" {
		return defaultSnapshotTag
	}
	raw := m.Workspace.PackageSet.URL
	if !strings.Contains(raw, "/") {
		return raw
	}
	parts := strings.Split(strings.TrimSuffix(raw, "/packages.json"), "/")
	return parts[len(parts)-1]
}

// newManager creates an install manager for the project, sharing the CLI's
// logger and the global package cache.
func (c *CLI) newManager(p *project) (*install.Manager, error) {
	gc, err := cache.New(p.cfg.CacheDir)
	if err != nil {
		return nil, err
	}
	return install.NewManager(installDirName, p.set, gc, p.cfg.RegistryURL, c.Logger), nil
}
