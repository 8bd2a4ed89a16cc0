package config

import (
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"github.com/kbukum/cmdflow/dag"
	"github.com/kbukum/cmdflow/errors"
)

type mockFS struct {
	files     map[string]bool
	configDir string
}

func (m *mockFS) Exists(path string) bool        { return m.files[path] }
func (m *mockFS) LoadEnv(string) error           { return nil }
func (m *mockFS) UserConfigDir() (string, error) { return m.configDir, nil }

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "cmdflow.yml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}
	return path
}

func TestApplyDefaults(t *testing.T) {
	var cfg Config
	cfg.ApplyDefaults()

	if cfg.Name != AppName || cfg.Environment != "development" || !cfg.Debug {
		t.Errorf("unexpected base defaults %+v", cfg)
	}
	if cfg.Engine.Strategy != "sync" || cfg.Engine.ThreadWorkers != dag.DefaultThreadWorkers || cfg.Engine.ProcessWorkers != dag.DefaultProcessWorkers {
		t.Errorf("unexpected engine defaults %+v", cfg.Engine)
	}
	if cfg.Tracing.SampleRate != 1.0 || cfg.Tracing.Endpoint == "" {
		t.Errorf("unexpected tracing defaults %+v", cfg.Tracing)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("expected defaults to validate, got %v", err)
	}
}

func TestApplyDefaultsNormalizesStrategy(t *testing.T) {
	cfg := Config{Engine: EngineConfig{Strategy: "Thread_Pool"}}
	cfg.ApplyDefaults()
	if cfg.Engine.Strategy != "threadpool" {
		t.Fatalf("expected threadpool, got %q", cfg.Engine.Strategy)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		errMsg string
	}{
		{"unknown strategy", func(c *Config) { c.Engine.Strategy = "fibers" }, "engine.strategy: must be one of"},
		{"negative workers", func(c *Config) { c.Engine.ProcessWorkers = -1 }, "engine.process_workers"},
		{"sample rate", func(c *Config) { c.Tracing.SampleRate = 2 }, "tracing.sample_rate"},
		{"environment", func(c *Config) { c.Environment = "qa" }, "environment: must be one of"},
		{"logging", func(c *Config) { c.Logging.Format = "xml" }, "logging: logging.format"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			var cfg Config
			cfg.ApplyDefaults()
			tc.mutate(&cfg)

			err := cfg.Validate()
			if !errors.Is(err, errors.ErrInvalidInput) {
				t.Fatalf("expected invalid input, got %v", err)
			}
			if !strings.Contains(err.Error(), tc.errMsg) {
				t.Errorf("expected error containing %q, got %q", tc.errMsg, err.Error())
			}
		})
	}
}

func TestEngineOptions(t *testing.T) {
	e := EngineConfig{ThreadWorkers: 3, ProcessWorkers: 2, WorkerPath: "/usr/bin/cmdflow"}

	d := dag.New("x", dag.ThreadPool, e.Options(dag.ThreadPool, 0)...)
	if d.Workers() != 3 {
		t.Errorf("expected thread workers, got %d", d.Workers())
	}
	d = dag.New("x", dag.ProcessPool, e.Options(dag.ProcessPool, 0)...)
	if d.Workers() != 2 {
		t.Errorf("expected process workers, got %d", d.Workers())
	}
	d = dag.New("x", dag.ProcessPool, e.Options(dag.ProcessPool, 7)...)
	if d.Workers() != 7 {
		t.Errorf("expected explicit workers to win, got %d", d.Workers())
	}

	s, err := EngineConfig{Strategy: "async"}.StrategyOf("")
	if err != nil || s != dag.Async {
		t.Errorf("expected configured strategy, got %s %v", s, err)
	}
	s, err = EngineConfig{Strategy: "async"}.StrategyOf("thread")
	if err != nil || s != dag.Thread {
		t.Errorf("expected override, got %s %v", s, err)
	}
}

func TestLoadWithYAML(t *testing.T) {
	path := writeConfig(t, `
name: ci
environment: staging
engine:
  strategy: process_pool
  process_workers: 3
  pipeline_dirs: [ci/pipelines]
logging:
  level: debug
  format: json
`)

	cfg, err := Load(WithConfigFile(path), WithFileSystem(&RealFileSystem{}))
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Name != "ci" || cfg.Environment != "staging" || cfg.Debug {
		t.Errorf("unexpected base config %+v", cfg)
	}
	if cfg.Engine.Strategy != "processpool" || cfg.Engine.ProcessWorkers != 3 {
		t.Errorf("unexpected engine config %+v", cfg.Engine)
	}
	if !reflect.DeepEqual(cfg.Engine.PipelineDirs, []string{"ci/pipelines"}) {
		t.Errorf("unexpected pipeline dirs %v", cfg.Engine.PipelineDirs)
	}
	if cfg.Logging.Format != "json" {
		t.Errorf("unexpected logging config %+v", cfg.Logging)
	}
}

func TestLoadEnvOverridesFile(t *testing.T) {
	path := writeConfig(t, "engine:\n  strategy: sync\n")
	t.Setenv("CMDFLOW_ENGINE_STRATEGY", "thread")
	t.Setenv("CMDFLOW_ENGINE_THREAD_WORKERS", "9")

	cfg, err := Load(WithConfigFile(path))
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Engine.Strategy != "thread" || cfg.Engine.ThreadWorkers != 9 {
		t.Fatalf("expected env overrides, got %+v", cfg.Engine)
	}
}

func TestLoadRejectsInvalidConfig(t *testing.T) {
	path := writeConfig(t, "engine:\n  strategy: fibers\n")
	if _, err := Load(WithConfigFile(path)); !errors.Is(err, errors.ErrInvalidInput) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestLoadConfigMissingFile(t *testing.T) {
	var cfg Config
	err := LoadConfig("nonexistent", &cfg, WithConfigFile("/nonexistent/path.yml"))
	if err != nil {
		t.Fatalf("expected LoadConfig to succeed with missing file, got %v", err)
	}
}

func TestResolverSearchOrder(t *testing.T) {
	fs := &mockFS{
		files: map[string]bool{
			"config/cmdflow.yml":                   true,
			"/home/u/.config/cmdflow/config.yml":   true,
			".env":                                 true,
			filepath.Join("config", ".env.cmdflow"): true,
		},
		configDir: "/home/u/.config",
	}
	resolver := &Resolver{FileSystem: fs}

	files := resolver.ResolveFiles(AppName, LoaderConfig{})
	if files.ConfigFile != "config/cmdflow.yml" {
		t.Errorf("expected project config first, got %q", files.ConfigFile)
	}
	if files.EnvFile != ".env" {
		t.Errorf("expected .env, got %q", files.EnvFile)
	}

	delete(fs.files, "config/cmdflow.yml")
	files = resolver.ResolveFiles(AppName, LoaderConfig{EnvFile: "custom.env"})
	if files.ConfigFile != "/home/u/.config/cmdflow/config.yml" || files.EnvFile != "custom.env" {
		t.Errorf("unexpected files %+v", files)
	}
}

func TestGenerateEnvKeyVariants(t *testing.T) {
	got := generateEnvKeyVariants("ENGINE_THREAD_WORKERS")
	for _, want := range []string{"engine.thread_workers", "engine.thread.workers", "engine_thread_workers"} {
		found := false
		for _, v := range got {
			if v == want {
				found = true
			}
		}
		if !found {
			t.Errorf("expected %q in %v", want, got)
		}
	}
}

func TestLoaderOptions(t *testing.T) {
	var lc LoaderConfig
	WithFileSystem(&mockFS{})(&lc)
	WithConfigFile("/path/to/cmdflow.yml")(&lc)
	WithEnvFile("/path/to/.env")(&lc)
	if lc.FileSystem == nil || lc.ConfigFile != "/path/to/cmdflow.yml" || lc.EnvFile != "/path/to/.env" {
		t.Errorf("unexpected loader config %+v", lc)
	}
}

func TestTelemetryConfigsShareService(t *testing.T) {
	var cfg Config
	cfg.ApplyDefaults()
	cfg.Version = "1.2.3"
	cfg.Tracing.SampleRate = 0.25
	cfg.Metrics.Endpoint = "collector:4318"

	tc, mc := cfg.TracerConfig(), cfg.MeterConfig()
	if tc.ServiceName != AppName || mc.ServiceName != AppName || tc.ServiceVersion != "1.2.3" || mc.Environment != cfg.Environment {
		t.Fatalf("expected both exporters to name the service, got %+v and %+v", tc.Exporter, mc.Exporter)
	}
	if tc.SampleRate != 0.25 || tc.Endpoint != cfg.Tracing.Endpoint || mc.Endpoint != "collector:4318" {
		t.Fatalf("expected per-section settings, got %+v and %+v", tc, mc)
	}
}
