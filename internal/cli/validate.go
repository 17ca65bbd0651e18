package cli

import (
	"slices"
	"strings"

	"github.com/spf13/cobra"

	"github.com/matzehuels/depot/pkg/errors"
	"github.com/matzehuels/depot/pkg/pkgset"
)

// validateCommand creates the validate command. It checks the resolved
// package set for internal consistency: dependency names that resolve to
// nothing, and dependency cycles among workspace packages.
func (c *CLI) validateCommand() *cobra.Command {
	var noCache bool

	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Check the package set for missing dependencies and cycles",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := c.loadProject(cmd.Context(), noCache)
			if err != nil {
				return err
			}

			ok := true

			missing := p.query.Validate()
			if len(missing) > 0 {
				ok = false
				names := make([]pkgset.Name, 0, len(missing))
				for name := range missing {
					names = append(names, name)
				}
				slices.Sort(names)
				for _, name := range names {
					printError("%s references unknown packages: %s", name, joinNames(missing[name], ", "))
				}
			}

			if cycle := p.query.DetectCycle(); cycle != nil {
				ok = false
				printError("dependency cycle: %s", joinNames(cycle, " -> "))
			}

			if !ok {
				return errors.New(errors.ErrCodeInvalidPackage, "package set validation failed")
			}
			printSuccess("Package set is consistent (%d packages)", p.query.Len())
			return nil
		},
	}

	cmd.Flags().BoolVar(&noCache, "no-cache", false, "re-download the package set snapshot")
	return cmd
}

func joinNames(names []pkgset.Name, sep string) string {
	parts := make([]string, len(names))
	for i, name := range names {
		parts[i] = string(name)
	}
	return strings.Join(parts, sep)
}
