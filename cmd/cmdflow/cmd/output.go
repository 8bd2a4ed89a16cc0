package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/kbukum/cmdflow/dag"
	"github.com/kbukum/cmdflow/errors"
)

const detailWidth = 60

func writeOutcomes(w io.Writer, format string, d *dag.Dag, outcomes dag.Outcomes) error {
	switch format {
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(outcomes)
	case "table", "":
		tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "NAME\tSTATUS\tDURATION\tDETAIL")
		writeRows(tw, "", d, outcomes)
		return tw.Flush()
	default:
		return errors.InvalidInput("output", fmt.Sprintf("unknown output format %q", format))
	}
}

// writeRows prints outcomes in run order, nested dags indented under their
// parent as parent/child.
func writeRows(w io.Writer, prefix string, d *dag.Dag, outcomes dag.Outcomes) {
	for _, name := range order(d, outcomes) {
		o, ok := outcomes[name]
		if !ok {
			continue
		}
		fmt.Fprintf(w, "%s%s\t%s\t%s\t%s\n", prefix, name, o.Status, o.Duration.Round(time.Millisecond), detail(o))
		if len(o.Result.Children) > 0 {
			var child *dag.Dag
			if d != nil {
				if s, ok := d.Startable(name); ok {
					child, _ = s.(*dag.Dag)
				}
			}
			writeRows(w, prefix+name+"/", child, o.Result.Children)
		}
	}
}

func order(d *dag.Dag, outcomes dag.Outcomes) []string {
	if d != nil {
		return d.SortedNames()
	}
	names := make([]string, 0, len(outcomes))
	for name := range outcomes {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func detail(o dag.Outcome) string {
	var s string
	switch {
	case o.Err != nil:
		s = o.Err.Error()
	case o.Result.Output != nil:
		s = strings.TrimSpace(o.Result.Output.StdoutString())
		if i := strings.IndexByte(s, '\n'); i >= 0 {
			s = s[:i]
		}
	}
	if len(s) > detailWidth {
		s = s[:detailWidth-3] + "..."
	}
	return s
}
