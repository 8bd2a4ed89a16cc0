package conveyor

import (
	"encoding/json"
	"fmt"

	"github.com/kbukum/cmdflow/errors"
)

// Spec describes a conveyor by value: registered names plus bound arguments.
type Spec struct {
	Stages []StageSpec `json:"stages" yaml:"stages"`
}

// StageSpec describes one stage of a Spec.
type StageSpec struct {
	Unit      string `json:"unit" yaml:"unit"`
	Decorator string `json:"decorator,omitempty" yaml:"decorator,omitempty"`
	Args      Args   `json:"args" yaml:"args"`
}

// Spec describes c by value. It fails with a serialization error when a
// unit or decorator was not obtained from a Registry, when a stage captured
// hooks added to its decorator after registration, or when a bound argument
// has a type Args cannot carry across a process boundary.
func (c *Conveyor) Spec() (Spec, error) {
	spec := Spec{Stages: make([]StageSpec, 0, c.Len())}
	for i, s := range c.Stages() {
		ss := StageSpec{Unit: NameOf(s.Unit), Args: s.Args}
		if ss.Unit == "" {
			return Spec{}, errors.Serialization(fmt.Sprintf("stage %d unit", i), nil).
				WithDetail("reason", "unit is not registered")
		}
		if s.Decorator != nil {
			ss.Decorator = s.Decorator.Name()
			if ss.Decorator == "" {
				return Spec{}, errors.Serialization(fmt.Sprintf("stage %d decorator", i), nil).
					WithDetail("reason", "decorator is not registered")
			}
			if s.hooks != s.Decorator.registered {
				return Spec{}, errors.Serialization(fmt.Sprintf("stage %d decorator", i), nil).
					WithDetail("reason", fmt.Sprintf("decorator %s captured %d hooks, %d were registered", ss.Decorator, s.hooks, s.Decorator.registered))
			}
		}
		if _, err := json.Marshal(s.Args); err != nil {
			return Spec{}, errors.Serialization(fmt.Sprintf("stage %d arguments", i), err)
		}
		spec.Stages = append(spec.Stages, ss)
	}
	return spec, nil
}

// FromSpec rebuilds a conveyor from spec using names registered in r.
// A nil r means DefaultRegistry.
func FromSpec(spec Spec, r *Registry) (*Conveyor, error) {
	if r == nil {
		r = DefaultRegistry
	}
	c := New()
	for _, ss := range spec.Stages {
		unit, err := r.Unit(ss.Unit)
		if err != nil {
			return nil, err
		}
		opts := []StageOption{func(s *Stage) { s.Args = ss.Args }}
		if ss.Decorator != "" {
			d, err := r.Decorator(ss.Decorator)
			if err != nil {
				return nil, err
			}
			opts = append(opts, WithDecorator(d))
		}
		c = c.AddCmdRunner(unit, opts...)
	}
	return c, nil
}
