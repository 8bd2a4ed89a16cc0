package cmd

import (
	"os"
	"path/filepath"

	"github.com/kbukum/cmdflow/dag"
)

// pipelineFlags are shared by commands that resolve a pipeline.
type pipelineFlags struct {
	dirs     []string
	strategy string
	workers  int
}

// load reads ref as a file path, or looks it up by name in the pipeline
// directories. The returned loader resolves includes and nested pipelines,
// searching the directory of ref first.
func (a *app) load(ref string, f pipelineFlags) (*dag.Pipeline, dag.PipelineLoader, error) {
	dirs := append(append([]string{}, f.dirs...), a.cfg.Engine.PipelineDirs...)
	if info, err := os.Stat(ref); err == nil && !info.IsDir() {
		p, err := dag.LoadPipelineFile(ref)
		if err != nil {
			return nil, nil, err
		}
		return p, dag.NewFilePipelineLoader(append([]string{filepath.Dir(ref)}, dirs...)...), nil
	}
	loader := dag.NewFilePipelineLoader(dirs...)
	p, err := loader.Load(ref)
	if err != nil {
		return nil, nil, err
	}
	return p, loader, nil
}

// resolve builds the dag of p. Flags override the pipeline file, which
// overrides the engine config.
func (a *app) resolve(p *dag.Pipeline, loader dag.PipelineLoader, f pipelineFlags) (*dag.Dag, error) {
	switch {
	case f.strategy != "":
		p.Strategy = f.strategy
	case p.Strategy == "":
		p.Strategy = a.cfg.Engine.Strategy
	}
	s, err := dag.ParseStrategy(p.Strategy)
	if err != nil {
		return nil, err
	}
	if f.workers > 0 {
		p.Workers = f.workers
	}
	opts := a.cfg.Engine.Options(s, f.workers)
	if a.metrics != nil {
		opts = append(opts, dag.WithMetrics(a.metrics))
	}
	return dag.ResolvePipeline(p, nil, loader, opts...)
}
