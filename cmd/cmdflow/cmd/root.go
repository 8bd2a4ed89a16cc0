package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	// Registered units and decorators must exist in worker processes too.
	_ "github.com/kbukum/cmdflow/conveyor/hooks"
	_ "github.com/kbukum/cmdflow/process"

	"github.com/kbukum/cmdflow/config"
	"github.com/kbukum/cmdflow/logger"
	"github.com/kbukum/cmdflow/observability"
)

type app struct {
	cfgFile   string
	logLevel  string
	logFormat string

	cfg      *config.Config
	metrics  *observability.Metrics
	shutdown []func(context.Context) error
}

// Execute runs the cmdflow command line.
func Execute() error {
	root, a := newRoot()
	err := root.Execute()
	// PersistentPostRunE is skipped when a command fails.
	if cerr := a.close(context.Background()); err == nil {
		err = cerr
	}
	return err
}

// NewRootCommand builds the cmdflow command tree.
func NewRootCommand() *cobra.Command {
	root, _ := newRoot()
	return root
}

func newRoot() (*cobra.Command, *app) {
	a := &app{}
	root := &cobra.Command{
		Use:   "cmdflow",
		Short: "Run command pipelines as dependency graphs",
		Long: `cmdflow runs pipelines of command conveyors in dependency order.

Pipelines are YAML files listing nodes, their stages and depends_on edges.
Nodes run under one of six strategies: sync, async, thread, threadpool,
multiprocess and processpool.`,
		SilenceUsage:      true,
		PersistentPreRunE: a.setup,
		PersistentPostRunE: func(cmd *cobra.Command, _ []string) error {
			return a.close(cmd.Context())
		},
	}
	root.PersistentFlags().StringVar(&a.cfgFile, "config", "", "config file (default: ./cmdflow.yml)")
	root.PersistentFlags().StringVar(&a.logLevel, "log-level", "", "log level (debug, info, warn, error)")
	root.PersistentFlags().StringVar(&a.logFormat, "log-format", "", "log format (console, json)")

	root.AddCommand(newRunCommand(a), newGraphCommand(a), newVersionCommand())
	return root, a
}

func (a *app) setup(cmd *cobra.Command, _ []string) error {
	var opts []config.LoaderOption
	if a.cfgFile != "" {
		opts = append(opts, config.WithConfigFile(a.cfgFile))
	}
	cfg, err := config.Load(opts...)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	if a.logLevel != "" {
		cfg.Logging.Level = a.logLevel
	}
	if a.logFormat != "" {
		cfg.Logging.Format = a.logFormat
	}
	if err := cfg.Logging.Validate(); err != nil {
		return err
	}
	a.cfg = cfg

	logger.Init(cfg.Logging)
	logger.Forget()

	ctx := cmd.Context()
	if cfg.Tracing.Enabled {
		tp, err := observability.InitTracer(ctx, cfg.TracerConfig())
		if err != nil {
			return err
		}
		a.shutdown = append(a.shutdown, tp.Shutdown)
	}
	if cfg.Metrics.Enabled {
		mp, err := observability.InitMeter(ctx, cfg.MeterConfig())
		if err != nil {
			return err
		}
		a.shutdown = append(a.shutdown, mp.Shutdown)
		metrics, err := observability.NewMetrics(observability.Meter("cmdflow"))
		if err != nil {
			return err
		}
		a.metrics = metrics
	}
	return nil
}

// close flushes telemetry exporters.
func (a *app) close(ctx context.Context) error {
	var first error
	for i := len(a.shutdown) - 1; i >= 0; i-- {
		if err := a.shutdown[i](ctx); err != nil && first == nil {
			first = err
		}
	}
	a.shutdown = nil
	return first
}
