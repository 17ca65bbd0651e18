// Package render turns a package dependency graph into Graphviz DOT and
// rendered SVG output for the graph command.
package render

import (
	"bytes"
	"context"
	"fmt"
	"maps"
	"slices"

	"github.com/goccy/go-graphviz"

	"github.com/matzehuels/depot/pkg/pkgset"
)

// Options configures dependency graph rendering.
type Options struct {
	// Root restricts the graph to the transitive closure of a single
	// package. Empty renders the whole set.
	Root pkgset.Name
	// LocalsOnly restricts nodes to workspace-local packages (and their
	// edges between each other).
	LocalsOnly bool
}

// ToDOT converts the package set to Graphviz DOT. Local packages are drawn
// filled to stand out from catalog packages; edges point from a package to
// its dependencies.
func ToDOT(set pkgset.Set, opts Options) (string, error) {
	names, err := selectNames(set, opts)
	if err != nil {
		return "", err
	}

	included := make(map[pkgset.Name]bool, len(names))
	for _, n := range names {
		included[n] = true
	}

	var buf bytes.Buffer
	buf.WriteString("digraph dependencies {\n")
	buf.WriteString("  rankdir=TB;\n")
	buf.WriteString("  bgcolor=\"transparent\";\n")
	buf.WriteString("  node [shape=box, style=\"rounded\", fontsize=14, margin=\"0.2,0.1\"];\n")
	buf.WriteString("\n")

	for _, name := range names {
		pkg, _ := set.Get(name)
		if _, local := pkg.(*pkgset.LocalPackage); local {
			fmt.Fprintf(&buf, "  %q [style=\"rounded,filled\", fillcolor=lightgrey];\n", name)
		} else {
			fmt.Fprintf(&buf, "  %q;\n", name)
		}
	}

	buf.WriteString("\n")
	for _, name := range names {
		pkg, _ := set.Get(name)
		for _, dep := range pkg.DependencyNames() {
			if included[dep] {
				fmt.Fprintf(&buf, "  %q -> %q;\n", name, dep)
			}
		}
	}

	buf.WriteString("}\n")
	return buf.String(), nil
}

// selectNames picks the node set for the requested view, sorted by name.
func selectNames(set pkgset.Set, opts Options) ([]pkgset.Name, error) {
	q := pkgset.NewQuery(set)

	if opts.Root != "" {
		deps, err := q.TransitiveDependencies(opts.Root)
		if err != nil {
			return nil, err
		}
		names := []pkgset.Name{opts.Root}
		for _, dep := range deps {
			names = append(names, dep.PkgName())
		}
		slices.Sort(names)
		return names, nil
	}

	if opts.LocalsOnly {
		var names []pkgset.Name
		for _, local := range set.Locals() {
			names = append(names, local.Name)
		}
		slices.Sort(names)
		return names, nil
	}

	names := slices.Collect(maps.Keys(set))
	slices.Sort(names)
	return names, nil
}

// RenderSVG renders a DOT graph to SVG using Graphviz.
func RenderSVG(dot string) ([]byte, error) {
	ctx := context.Background()
	gv, err := graphviz.New(ctx)
	if err != nil {
		return nil, fmt.Errorf("init graphviz: %w", err)
	}
	defer gv.Close()

	g, err := graphviz.ParseBytes([]byte(dot))
	if err != nil {
		return nil, fmt.Errorf("parse DOT: %w", err)
	}
	defer g.Close()

	var buf bytes.Buffer
	if err := gv.Render(ctx, g, graphviz.SVG, &buf); err != nil {
		return nil, fmt.Errorf("render: %w", err)
	}
	return buf.Bytes(), nil
}
