package dag

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"go.yaml.in/yaml/v3"

	"github.com/kbukum/cmdflow/conveyor"
	"github.com/kbukum/cmdflow/errors"
	"github.com/kbukum/cmdflow/validation"
)

// PipelineLoader loads pipeline definitions by name.
type PipelineLoader interface {
	Load(name string) (*Pipeline, error)
}

// FilePipelineLoader loads pipelines from YAML files on disk.
type FilePipelineLoader struct {
	dirs []string
}

// NewFilePipelineLoader creates a loader that searches the given directories for pipeline YAML files.
func NewFilePipelineLoader(dirs ...string) PipelineLoader {
	return &FilePipelineLoader{dirs: dirs}
}

// Load searches for a pipeline YAML file by name across configured directories.
// It looks for {name}.yaml and {name}.yml directly in each directory, then
// in its subdirectories.
func (l *FilePipelineLoader) Load(name string) (*Pipeline, error) {
	for _, dir := range l.dirs {
		for _, ext := range []string{".yaml", ".yml"} {
			if p, err := LoadPipelineFile(filepath.Join(dir, name+ext)); err == nil {
				return p, nil
			}
		}
		var found *Pipeline
		_ = filepath.WalkDir(dir, func(path string, e fs.DirEntry, err error) error {
			if err != nil || e.IsDir() {
				return nil
			}
			if base := e.Name(); base != name+".yaml" && base != name+".yml" {
				return nil
			}
			if p, err := LoadPipelineFile(path); err == nil {
				found = p
				return fs.SkipAll
			}
			return nil
		})
		if found != nil {
			return found, nil
		}
	}
	return nil, errors.NotFound("pipeline", name).WithDetail("dirs", l.dirs)
}

// LoadPipelineFile reads and parses one pipeline file.
func LoadPipelineFile(path string) (*Pipeline, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var p Pipeline
	if err := yaml.Unmarshal(data, &p); err != nil {
		return nil, errors.InvalidInput("pipeline", fmt.Sprintf("parsing %s: %v", path, err))
	}
	if p.Name == "" {
		p.Name = trimExt(filepath.Base(path))
	}
	return &p, nil
}

func trimExt(base string) string {
	return base[:len(base)-len(filepath.Ext(base))]
}

// LoadPipeline loads a pipeline from explicit file paths.
// It tries each path until one succeeds.
func LoadPipeline(name string, paths ...string) (*Pipeline, error) {
	for _, path := range paths {
		p, err := LoadPipelineFile(path)
		if err == nil {
			return p, nil
		}
	}
	return nil, errors.NotFound("pipeline", name)
}

// ResolvePipeline converts a Pipeline definition into a Dag. Includes are
// merged recursively, nested pipelines become child dags, and stage names
// are looked up in registry (nil means conveyor.DefaultRegistry). opts
// apply to the resolved dag and every child dag; a pipeline's own workers
// setting takes precedence.
func ResolvePipeline(p *Pipeline, registry *conveyor.Registry, loader PipelineLoader, opts ...Option) (*Dag, error) {
	r := &resolver{
		registry: registry,
		loader:   loader,
		opts:     opts,
		stack:    make(map[string]bool),
	}
	return r.resolve(p, p.Name)
}

type resolver struct {
	registry *conveyor.Registry
	loader   PipelineLoader
	opts     []Option
	stack    map[string]bool // current recursion path (cycle detection)
}

func (r *resolver) load(name string) (*Pipeline, error) {
	if r.loader == nil {
		return nil, errors.NotFound("pipeline", name).WithDetail("reason", "no pipeline loader")
	}
	return r.loader.Load(name)
}

func (r *resolver) enter(name string) error {
	if r.stack[name] {
		return errors.New(errors.ErrCodeCyclicDependency, fmt.Sprintf("circular include detected for pipeline %q", name)).
			WithDetail("pipeline", name)
	}
	r.stack[name] = true
	return nil
}

// resolve builds p as a dag called name.
func (r *resolver) resolve(p *Pipeline, name string) (*Dag, error) {
	if err := r.enter(p.Name); err != nil {
		return nil, err
	}
	defer delete(r.stack, p.Name)
	if err := validatePipeline(p); err != nil {
		return nil, err
	}

	strategy := Sync
	if p.Strategy != "" {
		s, err := ParseStrategy(p.Strategy)
		if err != nil {
			return nil, err
		}
		strategy = s
	}
	opts := append([]Option{}, r.opts...)
	if p.Workers > 0 {
		opts = append(opts, WithWorkers(p.Workers))
	}
	d := New(name, strategy, opts...)

	defs, err := r.collect(p, make(map[string]bool))
	if err != nil {
		return nil, err
	}
	for _, def := range defs {
		s, err := r.startable(def)
		if err != nil {
			return nil, fmt.Errorf("dag: pipeline %s node %s: %w", p.Name, def.Name, err)
		}
		if err := d.Add(s); err != nil {
			return nil, err
		}
	}
	for _, def := range defs {
		for _, dep := range def.DependsOn {
			if err := d.link(dep, def.Name); err != nil {
				return nil, fmt.Errorf("dag: pipeline %s node %s depends_on %s: %w", p.Name, def.Name, dep, err)
			}
		}
	}
	return d, d.Err()
}

// collect returns the node definitions of p with its includes merged in
// first. The first definition of a name wins, so diamond includes are
// merged once.
func (r *resolver) collect(p *Pipeline, seen map[string]bool) ([]NodeDef, error) {
	var defs []NodeDef
	for _, name := range p.Includes {
		if err := r.enter(name); err != nil {
			return nil, err
		}
		sub, err := r.load(name)
		if err != nil {
			delete(r.stack, name)
			return nil, fmt.Errorf("dag: loading include %q: %w", name, err)
		}
		if err := validatePipeline(sub); err != nil {
			delete(r.stack, name)
			return nil, err
		}
		subDefs, err := r.collect(sub, seen)
		delete(r.stack, name)
		if err != nil {
			return nil, err
		}
		defs = append(defs, subDefs...)
	}
	for _, def := range p.Nodes {
		if seen[def.Name] {
			continue
		}
		seen[def.Name] = true
		defs = append(defs, def)
	}
	return defs, nil
}

func validatePipeline(p *Pipeline) error {
	if err := validation.Validate(p); err != nil {
		return fmt.Errorf("dag: pipeline %s: %w", p.Name, err)
	}
	return nil
}

func (r *resolver) startable(def NodeDef) (Startable, error) {
	if def.Pipeline != "" {
		sub, err := r.load(def.Pipeline)
		if err != nil {
			return nil, err
		}
		return r.resolve(sub, def.Name)
	}
	c, err := conveyor.FromSpec(def.Spec(), r.registry)
	if err != nil {
		return nil, err
	}
	var opts []NodeOption
	if def.Input != nil {
		opts = append(opts, WithInput(conveyor.FromStrings(def.Input.Stdout, def.Input.Stderr)))
	}
	return NewNode(def.Name, c, opts...), nil
}
