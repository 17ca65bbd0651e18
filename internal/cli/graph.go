package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/matzehuels/depot/pkg/pkgset"
	"github.com/matzehuels/depot/pkg/render"
)

// graphCommand creates the graph command exporting the dependency graph as
// DOT or rendered SVG.
func (c *CLI) graphCommand() *cobra.Command {
	var (
		output  string
		format  string
		root    string
		locals  bool
		noCache bool
	)

	cmd := &cobra.Command{
		Use:   "graph",
		Short: "Export the dependency graph as DOT or SVG",
		Long: `Graph renders the resolved package set as a Graphviz graph. By default the
whole set is exported; --root restricts it to one package's transitive
closure and --locals to workspace packages only.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := c.loadProject(cmd.Context(), noCache)
			if err != nil {
				return err
			}

			dot, err := render.ToDOT(p.set, render.Options{
				Root:       pkgset.Name(root),
				LocalsOnly: locals,
			})
			if err != nil {
				return err
			}

			var data []byte
			switch format {
			case "dot":
				data = []byte(dot)
			case "svg":
				data, err = render.RenderSVG(dot)
				if err != nil {
					return err
				}
			default:
				return fmt.Errorf("unsupported format %q (want dot or svg)", format)
			}

			if output == "" || output == "-" {
				fmt.Print(string(data))
				return nil
			}
			if err := os.WriteFile(output, data, 0o644); err != nil {
				return err
			}
			printSuccess("Wrote %s", output)
			return nil
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "output file (default stdout)")
	cmd.Flags().StringVarP(&format, "format", "f", "dot", "output format: dot or svg")
	cmd.Flags().StringVar(&root, "root", "", "restrict to one package's transitive closure")
	cmd.Flags().BoolVar(&locals, "locals", false, "restrict to workspace packages")
	cmd.Flags().BoolVar(&noCache, "no-cache", false, "re-download the package set snapshot")
	return cmd
}
