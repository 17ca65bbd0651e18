package cli

import (
	"fmt"
	"slices"

	"github.com/spf13/cobra"

	"github.com/matzehuels/depot/pkg/cache"
	"github.com/matzehuels/depot/pkg/config"
	"github.com/matzehuels/depot/pkg/pkgset"
)

// cacheCommand creates the cache management command.
func (c *CLI) cacheCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Manage the global package cache",
	}

	cmd.AddCommand(c.cacheClearCommand())
	cmd.AddCommand(c.cachePathCommand())
	cmd.AddCommand(c.cacheListCommand())

	return cmd
}

// openCache opens the global cache using the configured cache directory.
func openCache() (*cache.Cache, error) {
	cfg, err := config.Load("")
	if err != nil {
		return nil, err
	}
	return cache.New(cfg.CacheDir)
}

// cacheClearCommand creates the "cache clear" subcommand.
func (c *CLI) cacheClearCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Delete every cached package",
		RunE: func(cmd *cobra.Command, args []string) error {
			gc, err := openCache()
			if err != nil {
				return err
			}
			entries, err := gc.Entries()
			if err != nil {
				return err
			}
			if err := gc.Clear(); err != nil {
				return err
			}
			printSuccess("Cleared %d cached packages", len(entries))
			printDetail("Directory: %s", gc.Root())
			return nil
		},
	}
}

// cachePathCommand creates the "cache path" subcommand.
func (c *CLI) cachePathCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "path",
		Short: "Print the cache directory path",
		RunE: func(cmd *cobra.Command, args []string) error {
			gc, err := openCache()
			if err != nil {
				return err
			}
			fmt.Println(gc.Root())
			return nil
		},
	}
}

// cacheListCommand creates the "cache list" subcommand.
func (c *CLI) cacheListCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List cached packages",
		RunE: func(cmd *cobra.Command, args []string) error {
			gc, err := openCache()
			if err != nil {
				return err
			}
			entries, err := gc.Entries()
			if err != nil {
				return err
			}
			if len(entries) == 0 {
				printInfo("Cache is empty")
				return nil
			}

			names := make([]string, 0, len(entries))
			for name := range entries {
				names = append(names, string(name))
			}
			slices.Sort(names)

			for _, name := range names {
				entry := entries[pkgset.Name(name)]
				stale := ""
				if entry.CacheKey != cache.Key() {
					stale = StyleWarning.Render(" (stale key)")
				}
				fmt.Println("  " + StyleValue.Render(name) + StyleDim.Render(" "+entry.Version) + stale)
			}
			printDetail("%d packages in %s", len(names), gc.Root())
			return nil
		},
	}
}
