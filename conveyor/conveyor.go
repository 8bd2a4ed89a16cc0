package conveyor

import (
	"context"
	"fmt"

	"github.com/kbukum/cmdflow/errors"
)

// Stage is one unit of a conveyor with its bound arguments.
type Stage struct {
	Unit      CommandUnit
	Decorator *Decorator
	Args      Args

	run   CommandUnit
	hooks int
}

// StageOption configures a stage when it is added.
type StageOption func(*Stage)

// WithArgs binds positional arguments passed to the unit.
func WithArgs(args ...any) StageOption {
	return func(s *Stage) { s.Args.Positional = append(s.Args.Positional, args...) }
}

// WithNamed binds named arguments passed to the unit.
func WithNamed(named map[string]any) StageOption {
	return func(s *Stage) {
		if s.Args.Named == nil {
			s.Args.Named = make(map[string]any, len(named))
		}
		for k, v := range named {
			s.Args.Named[k] = v
		}
	}
}

// WithDecorator wraps the unit with d. The hooks are captured when the
// stage is added. A stage that captured hooks added to a registered d after
// its registration cannot be described by Spec.
func WithDecorator(d *Decorator) StageOption {
	return func(s *Stage) { s.Decorator = d }
}

// StageError reports which stage of a conveyor failed.
type StageError struct {
	Index int
	Unit  string
	Err   error
}

func (e *StageError) Error() string {
	if e.Unit == "" {
		return fmt.Sprintf("conveyor: stage %d: %v", e.Index, e.Err)
	}
	return fmt.Sprintf("conveyor: stage %d (%s): %v", e.Index, e.Unit, e.Err)
}

func (e *StageError) Unwrap() error { return e.Err }

// Conveyor is an immutable sequence of stages. AddCmdRunner returns a new
// Conveyor, so a value can be shared and extended freely.
type Conveyor struct {
	stages []Stage
}

// New creates an empty conveyor. Running it returns its input unchanged.
func New() *Conveyor {
	return &Conveyor{}
}

// AddCmdRunner returns a new conveyor with unit appended as the last stage.
func (c *Conveyor) AddCmdRunner(unit CommandUnit, opts ...StageOption) *Conveyor {
	if unit == nil {
		panic("conveyor: AddCmdRunner requires a unit")
	}
	s := Stage{Unit: unit}
	for _, opt := range opts {
		opt(&s)
	}
	s.run = unit
	if s.Decorator != nil {
		s.run = s.Decorator.Decorate(unit)
		s.hooks = s.Decorator.Len()
	}

	next := &Conveyor{stages: make([]Stage, 0, c.Len()+1)}
	if c != nil {
		next.stages = append(next.stages, c.stages...)
	}
	next.stages = append(next.stages, s)
	return next
}

// AddFunc is AddCmdRunner for a plain function.
func (c *Conveyor) AddFunc(fn func(ctx context.Context, in Pair, args Args) (Pair, error), opts ...StageOption) *Conveyor {
	return c.AddCmdRunner(UnitFunc(fn), opts...)
}

// Len returns the number of stages.
func (c *Conveyor) Len() int {
	if c == nil {
		return 0
	}
	return len(c.stages)
}

// Stages returns the stages in execution order.
func (c *Conveyor) Stages() []Stage {
	if c == nil {
		return nil
	}
	return append([]Stage(nil), c.stages...)
}

// Run threads in through every stage. A failing stage stops the conveyor;
// later stages do not run and no partial output is returned. An absent in
// is treated as Empty.
func (c *Conveyor) Run(ctx context.Context, in Pair) (Pair, error) {
	cur := in
	if !cur.Valid() {
		cur = NewPair(in.Stdout, in.Stderr)
	}
	for i, s := range c.Stages() {
		out, err := s.run.Run(ctx, cur, s.Args)
		if err == nil && !out.Valid() {
			err = errors.InvalidUnitResult()
		}
		if err != nil {
			return Pair{}, &StageError{Index: i, Unit: NameOf(s.Unit), Err: err}
		}
		cur = out
	}
	return cur, nil
}

// Call runs the conveyor on Empty.
func (c *Conveyor) Call(ctx context.Context) (Pair, error) {
	return c.Run(ctx, Empty())
}

// Unit adapts the conveyor to a CommandUnit so it can be nested as a stage.
// Stage arguments are ignored.
func (c *Conveyor) Unit() CommandUnit {
	return UnitFunc(func(ctx context.Context, in Pair, _ Args) (Pair, error) {
		return c.Run(ctx, in)
	})
}
