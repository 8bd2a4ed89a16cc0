package cmd

import (
	"github.com/spf13/cobra"
)

func newRunCommand(a *app) *cobra.Command {
	var (
		f      pipelineFlags
		output string
	)
	cmd := &cobra.Command{
		Use:   "run <pipeline>",
		Short: "Run a pipeline",
		Long: `Run a pipeline given as a YAML file or by name.

Names are looked up as <name>.yaml or <name>.yml in the --dir directories,
then in engine.pipeline_dirs of the config. Every node's outcome is printed;
the command fails when any node failed or was skipped.`,
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
			outcomes, runErr := d.Run(cmd.Context())
			if err := writeOutcomes(cmd.OutOrStdout(), output, d, outcomes); err != nil {
				return err
			}
			return runErr
		},
	}
	cmd.Flags().StringSliceVar(&f.dirs, "dir", nil, "directory to search for pipelines (repeatable)")
	cmd.Flags().StringVarP(&f.strategy, "strategy", "s", "", "execution strategy, overrides the pipeline")
	cmd.Flags().IntVarP(&f.workers, "workers", "w", 0, "worker count for pooled strategies")
	cmd.Flags().StringVarP(&output, "output", "o", "table", "output format (table, json)")
	return cmd
}
