package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

// installCommand creates the install command.
func (c *CLI) installCommand() *cobra.Command {
	var (
		testDeps bool
		noCache  bool
	)

	cmd := &cobra.Command{
		Use:   "install",
		Short: "Install the project's dependencies into .depot",
		Long: `Install resolves the dependency closure of the current project's manifest
against the pinned package set and installs every member into .depot.
Already-installed and globally cached packages are skipped or copied
without network access.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			p, err := c.loadProject(ctx, noCache)
			if err != nil {
				return err
			}
			mgr, err := c.newManager(p)
			if err != nil {
				return err
			}

			prog := newProgress(c.Logger)
			res, err := mgr.Install(ctx, p.manifest, testDeps)
			if err != nil {
				return err
			}

			for _, pkg := range res.Installed {
				printPackage(string(pkg.Name), pkg.Version, pkg.Cached)
			}
			if !res.Success() {
				for _, msg := range res.Errors {
					printError("%s", msg)
				}
				return res.Err()
			}

			prog.done(fmt.Sprintf("Installed %d packages", len(res.Installed)))
			printSuccess("Dependencies up to date")
			return nil
		},
	}

	cmd.Flags().BoolVar(&testDeps, "test-deps", false, "also install test-only dependencies")
	cmd.Flags().BoolVar(&noCache, "no-cache", false, "re-download the package set snapshot")
	return cmd
}
