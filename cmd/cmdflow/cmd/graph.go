package cmd

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/kbukum/cmdflow/dag"
	"github.com/kbukum/cmdflow/errors"
)

func newGraphCommand(a *app) *cobra.Command {
	var (
		f      pipelineFlags
		format string
	)
	cmd := &cobra.Command{
		Use:   "graph <pipeline>",
		Short: "Print the dependency graph of a pipeline",
		Long: `Print the levels, run order and edges of a pipeline without running it.

With --format dot the graph is written in Graphviz syntax.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, loader, err := a.load(args[0], f)
			if err != nil {
				return err
			}
			d, err := a.resolve(p, loader, f)
			if err != nil {
				return err
			}
			switch format {
			case "text":
				writeGraph(cmd.OutOrStdout(), d, "")
			case "dot":
				fmt.Fprintf(cmd.OutOrStdout(), "digraph %q {\n", d.Name())
				writeDot(cmd.OutOrStdout(), d, "")
				fmt.Fprintln(cmd.OutOrStdout(), "}")
			default:
				return errors.InvalidInput("format", fmt.Sprintf("unknown graph format %q", format))
			}
			return nil
		},
	}
	cmd.Flags().StringSliceVar(&f.dirs, "dir", nil, "directory to search for pipelines (repeatable)")
	cmd.Flags().StringVar(&format, "format", "text", "output format (text, dot)")
	return cmd
}

func writeGraph(w io.Writer, d *dag.Dag, indent string) {
	fmt.Fprintf(w, "%s%s (%s)\n", indent, d.Name(), d.Strategy())
	for i, level := range d.Levels() {
		fmt.Fprintf(w, "%s  level %d: %s\n", indent, i, strings.Join(level, ", "))
	}
	for _, e := range d.Edges() {
		fmt.Fprintf(w, "%s  %s -> %s\n", indent, e.From, e.To)
	}
	for _, name := range d.SortedNames() {
		if s, ok := d.Startable(name); ok {
			if child, ok := s.(*dag.Dag); ok {
				writeGraph(w, child, indent+"  ")
			}
		}
	}
}

// writeDot writes nested dags as clusters with node ids qualified by prefix.
func writeDot(w io.Writer, d *dag.Dag, prefix string) {
	for _, name := range d.SortedNames() {
		s, _ := d.Startable(name)
		if child, ok := s.(*dag.Dag); ok {
			fmt.Fprintf(w, "  subgraph %q {\n  label=%q;\n", "cluster_"+prefix+name, name)
			writeDot(w, child, prefix+name+"/")
			fmt.Fprintln(w, "  }")
			continue
		}
		fmt.Fprintf(w, "  %q [label=%q];\n", prefix+name, name)
	}
	for _, e := range d.Edges() {
		fmt.Fprintf(w, "  %q -> %q;\n", dotID(d, prefix, e.From), dotID(d, prefix, e.To))
	}
}

// dotID names a nested dag by its cluster's first node so edges can reach it.
func dotID(d *dag.Dag, prefix, name string) string {
	s, _ := d.Startable(name)
	if child, ok := s.(*dag.Dag); ok {
		if names := child.SortedNames(); len(names) > 0 {
			return dotID(child, prefix+name+"/", names[0])
		}
	}
	return prefix + name
}
