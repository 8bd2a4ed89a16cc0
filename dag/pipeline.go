package dag

import "github.com/kbukum/cmdflow/conveyor"

// Pipeline is a composable, YAML-defined dag definition.
type Pipeline struct {
	// Name is the pipeline identifier and the name of the resolved dag.
	Name string `yaml:"name" validate:"required"`
	// Strategy is parsed with ParseStrategy. Empty means sync.
	Strategy string `yaml:"strategy,omitempty"`
	// Workers is passed to WithWorkers.
	Workers int `yaml:"workers,omitempty" validate:"gte=0"`
	// Includes lists pipelines whose nodes are merged into this one.
	Includes []string `yaml:"includes,omitempty"`
	// Nodes defines the pipeline's startables.
	Nodes []NodeDef `yaml:"nodes" validate:"dive"`
}

// NodeDef defines a startable within a pipeline: either a conveyor of
// stages or a nested pipeline run as a child dag.
type NodeDef struct {
	// Name is the startable name.
	Name string `yaml:"name" validate:"required"`
	// Stages are run in order as the node's conveyor.
	Stages []StageDef `yaml:"stages,omitempty" validate:"dive"`
	// Pipeline names a pipeline to nest instead of running stages.
	Pipeline string `yaml:"pipeline,omitempty" validate:"excluded_with=Stages"`
	// Input is the initial stdout/stderr of the conveyor.
	Input *InputDef `yaml:"input,omitempty"`
	// DependsOn lists names this node waits for.
	DependsOn []string `yaml:"depends_on,omitempty"`
}

// StageDef defines one conveyor stage by registered names.
type StageDef struct {
	Unit      string         `yaml:"unit" validate:"required"`
	Decorator string         `yaml:"decorator,omitempty"`
	Args      []any          `yaml:"args,omitempty"`
	Named     map[string]any `yaml:"named,omitempty"`
}

// InputDef is the text a node's conveyor starts from.
type InputDef struct {
	Stdout string `yaml:"stdout"`
	Stderr string `yaml:"stderr"`
}

// Spec converts the stages to a conveyor spec.
func (n NodeDef) Spec() conveyor.Spec {
	spec := conveyor.Spec{Stages: make([]conveyor.StageSpec, 0, len(n.Stages))}
	for _, s := range n.Stages {
		spec.Stages = append(spec.Stages, conveyor.StageSpec{
			Unit:      s.Unit,
			Decorator: s.Decorator,
			Args:      conveyor.Args{Positional: s.Args, Named: s.Named},
		})
	}
	return spec
}
