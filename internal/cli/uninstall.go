package cli

import (
	"github.com/spf13/cobra"

	"github.com/matzehuels/depot/pkg/pkgset"
)

// uninstallCommand creates the uninstall command. Removing a dependency is a
// manifest edit followed by a cleanup pass: the closure is recomputed and
// every installed package no longer reachable is deleted. The global cache
// keeps its copy, so re-adding the dependency later is a local operation.
func (c *CLI) uninstallCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "uninstall <package>...",
		Short: "Remove dependencies from the manifest and clean up installs",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			names := make([]pkgset.Name, len(args))
			for i, arg := range args {
				names[i] = pkgset.Name(arg)
			}

			p, err := c.loadProject(ctx, false)
			if err != nil {
				return err
			}

			var removed []pkgset.Name
			for _, name := range names {
				if !p.manifest.HasDependency(name) {
					printWarning("%s is not a declared dependency", name)
					continue
				}
				removed = append(removed, name)
			}
			if len(removed) == 0 {
				printInfo("Nothing to uninstall")
				return nil
			}

			p.manifest.RemoveDependencies(removed...)
			if err := p.manifest.Save(p.manifest.Dir); err != nil {
				return err
			}

			mgr, err := c.newManager(p)
			if err != nil {
				return err
			}
			cleaned, err := mgr.Cleanup(p.manifest)
			if err != nil {
				return err
			}

			for _, name := range removed {
				printSuccess("Removed %s from %s", name, "depot.yaml")
			}
			for _, name := range cleaned {
				printDetail("deleted .depot/%s", name)
			}
			return nil
		},
	}
}
