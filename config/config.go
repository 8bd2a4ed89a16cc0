package config

import (
	"time"

	"github.com/kbukum/cmdflow/dag"
	"github.com/kbukum/cmdflow/logger"
	"github.com/kbukum/cmdflow/observability"
	"github.com/kbukum/cmdflow/validation"
)

// AppName is the name config files and env files are searched under.
const AppName = "cmdflow"

// Config is the cmdflow configuration.
type Config struct {
	Name        string        `yaml:"name" mapstructure:"name" validate:"required"`
	Environment string        `yaml:"environment" mapstructure:"environment" validate:"oneof=development staging production"`
	Version     string        `yaml:"version" mapstructure:"version"`
	Debug       bool          `yaml:"debug" mapstructure:"debug"`
	Logging     logger.Config `yaml:"logging" mapstructure:"logging"`
	Engine      EngineConfig  `yaml:"engine" mapstructure:"engine"`
	Tracing     TracingConfig `yaml:"tracing" mapstructure:"tracing"`
	Metrics     MetricsConfig `yaml:"metrics" mapstructure:"metrics"`
}

// EngineConfig selects how dags run.
type EngineConfig struct {
	Strategy       string   `yaml:"strategy" mapstructure:"strategy" validate:"omitempty,oneof=sync async thread threadpool multiprocess processpool"`
	ThreadWorkers  int      `yaml:"thread_workers" mapstructure:"thread_workers" validate:"gte=0"`
	ProcessWorkers int      `yaml:"process_workers" mapstructure:"process_workers" validate:"gte=0"`
	WorkerPath     string   `yaml:"worker_path" mapstructure:"worker_path"`
	PipelineDirs   []string `yaml:"pipeline_dirs" mapstructure:"pipeline_dirs"`
}

// TracingConfig configures the OTLP trace exporter.
type TracingConfig struct {
	Enabled    bool    `yaml:"enabled" mapstructure:"enabled"`
	Endpoint   string  `yaml:"endpoint" mapstructure:"endpoint"`
	Insecure   bool    `yaml:"insecure" mapstructure:"insecure"`
	SampleRate float64 `yaml:"sample_rate" mapstructure:"sample_rate" validate:"gte=0,lte=1"`
}

// MetricsConfig configures the OTLP metric exporter.
type MetricsConfig struct {
	Enabled  bool          `yaml:"enabled" mapstructure:"enabled"`
	Endpoint string        `yaml:"endpoint" mapstructure:"endpoint"`
	Insecure bool          `yaml:"insecure" mapstructure:"insecure"`
	Interval time.Duration `yaml:"interval" mapstructure:"interval" validate:"gte=0"`
}

// ApplyDefaults fills unset fields.
func (c *Config) ApplyDefaults() {
	if c.Name == "" {
		c.Name = AppName
	}
	if c.Environment == "" {
		c.Environment = "development"
	}
	if c.Environment == "development" {
		c.Debug = true
	}
	c.Logging.ApplyDefaults()
	c.Engine.ApplyDefaults()
	c.Tracing.ApplyDefaults()
	if c.Metrics.Endpoint == "" {
		c.Metrics.Endpoint = c.Tracing.Endpoint
	}
	if c.Metrics.Interval == 0 {
		c.Metrics.Interval = 15 * time.Second
	}
}

// ApplyDefaults fills unset engine fields. Strategy spellings accepted by
// dag.ParseStrategy are normalized.
func (e *EngineConfig) ApplyDefaults() {
	if e.Strategy == "" {
		e.Strategy = string(dag.Sync)
	}
	if s, err := dag.ParseStrategy(e.Strategy); err == nil {
		e.Strategy = string(s)
	}
	if e.ThreadWorkers == 0 {
		e.ThreadWorkers = dag.DefaultThreadWorkers
	}
	if e.ProcessWorkers == 0 {
		e.ProcessWorkers = dag.DefaultProcessWorkers
	}
	if len(e.PipelineDirs) == 0 {
		e.PipelineDirs = []string{".", "pipelines"}
	}
}

// ApplyDefaults fills unset tracing fields.
func (t *TracingConfig) ApplyDefaults() {
	if t.Endpoint == "" {
		t.Endpoint = "localhost:4318"
	}
	if t.SampleRate == 0 {
		t.SampleRate = 1.0
	}
}

// Validate checks the struct tags and the logging section.
func (c *Config) Validate() error {
	return validation.New().
		Merge("", validation.Validate(c)).
		Merge("logging", c.Logging.Validate()).
		Validate()
}

// StrategyOf returns the configured strategy, or s when it is set.
func (e EngineConfig) StrategyOf(s string) (dag.Strategy, error) {
	if s == "" {
		s = e.Strategy
	}
	return dag.ParseStrategy(s)
}

// Options returns dag options for strategy s. Worker strategies use
// ProcessWorkers and the others ThreadWorkers; workers overrides both when
// positive.
func (e EngineConfig) Options(s dag.Strategy, workers int) []dag.Option {
	if workers <= 0 {
		workers = e.ThreadWorkers
		if s.Isolated() {
			workers = e.ProcessWorkers
		}
	}
	opts := []dag.Option{dag.WithWorkers(workers)}
	if e.WorkerPath != "" {
		opts = append(opts, dag.WithWorkerCommand(dag.WorkerCommand{Path: e.WorkerPath}))
	}
	return opts
}

// TracerConfig converts the tracing section for observability.InitTracer.
func (c *Config) TracerConfig() *observability.TracerConfig {
	return &observability.TracerConfig{
		Exporter:   c.exporter(c.Tracing.Endpoint, c.Tracing.Insecure),
		SampleRate: c.Tracing.SampleRate,
	}
}

// MeterConfig converts the metrics section for observability.InitMeter.
func (c *Config) MeterConfig() *observability.MeterConfig {
	return &observability.MeterConfig{
		Exporter: c.exporter(c.Metrics.Endpoint, c.Metrics.Insecure),
		Interval: c.Metrics.Interval,
	}
}

func (c *Config) exporter(endpoint string, insecure bool) observability.Exporter {
	return observability.Exporter{
		ServiceName:    c.Name,
		ServiceVersion: c.Version,
		Environment:    c.Environment,
		Endpoint:       endpoint,
		Insecure:       insecure,
	}
}

// Load reads the configuration, applies defaults and validates it.
func Load(opts ...LoaderOption) (*Config, error) {
	var cfg Config
	if err := LoadConfig(AppName, &cfg, opts...); err != nil {
		return nil, err
	}
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}
