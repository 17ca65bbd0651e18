package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

// statsCommand creates the stats command showing dependency graph metrics.
func (c *CLI) statsCommand() *cobra.Command {
	var noCache bool

	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show dependency graph statistics for the package set",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := c.loadProject(cmd.Context(), noCache)
			if err != nil {
				return err
			}

			s := p.query.Stats()
			fmt.Println(StyleTitle.Render("Package set"))
			printKeyValue("packages", fmt.Sprintf("%d", s.TotalPackages))
			printKeyValue("dependencies", fmt.Sprintf("%d", s.TotalDependencies))
			printKeyValue("avg per pkg", fmt.Sprintf("%.2f", s.AvgDependencies))
			printKeyValue("max per pkg", fmt.Sprintf("%d", s.MaxDependencies))
			printKeyValue("min per pkg", fmt.Sprintf("%d", s.MinDependencies))
			printKeyValue("leaf packages", fmt.Sprintf("%d", s.NoDependencies))
			printKeyValue("workspace", fmt.Sprintf("%d local", len(p.set.Locals())))
			return nil
		},
	}

	cmd.Flags().BoolVar(&noCache, "no-cache", false, "re-download the package set snapshot")
	return cmd
}
