package conveyor

import (
	"context"

	"github.com/kbukum/cmdflow/errors"
)

// Phase selects whether a hook runs before or after the unit.
type Phase int

const (
	// Before runs the hook ahead of the unit.
	Before Phase = iota
	// After runs the hook once the unit has produced its output.
	After
)

func (p Phase) String() string {
	if p == After {
		return "after"
	}
	return "before"
}

// HookKind distinguishes hooks that replace the pair from hooks that only observe it.
type HookKind int

const (
	// Processor observes the pair and may fail.
	Processor HookKind = iota
	// Modifier replaces the pair.
	Modifier
)

func (k HookKind) String() string {
	if k == Modifier {
		return "modifier"
	}
	return "processor"
}

// ProcessorFunc observes a pair. A non-nil error aborts the decorated call.
type ProcessorFunc func(ctx context.Context, in Pair, args Args) error

// ModifierFunc returns the pair that replaces in for the rest of the call.
type ModifierFunc func(ctx context.Context, in Pair, args Args) (Pair, error)

// Hook is one entry of a Decorator.
type Hook struct {
	Name  string
	Kind  HookKind
	Phase Phase
	Args  Args

	proc ProcessorFunc
	mod  ModifierFunc
}

// HookOption configures a hook when it is added.
type HookOption func(*Hook)

// WithHookArgs binds positional arguments passed to the hook on every call.
func WithHookArgs(args ...any) HookOption {
	return func(h *Hook) { h.Args.Positional = append(h.Args.Positional, args...) }
}

// WithHookNamed binds named arguments passed to the hook on every call.
func WithHookNamed(named map[string]any) HookOption {
	return func(h *Hook) {
		if h.Args.Named == nil {
			h.Args.Named = make(map[string]any, len(named))
		}
		for k, v := range named {
			h.Args.Named[k] = v
		}
	}
}

// WithHookName labels the hook in Hooks and error details.
func WithHookName(name string) HookOption {
	return func(h *Hook) { h.Name = name }
}

// Decorator is an ordered collection of hooks wrapped around a unit.
//
// Whatever order hooks are added in, a decorated call evaluates
//
//	pre-modifiers, pre-processors, unit, post-modifiers, post-processors
//
// and each group keeps its registration order. A Decorator is not safe for
// concurrent mutation; Decorate takes a snapshot, so units decorated earlier
// are not affected by later additions.
type Decorator struct {
	name  string
	hooks []Hook
	// registered is the hook count when d was registered. Worker processes
	// only know the hooks present at registration.
	registered int
}

// NewDecorator creates a new empty Decorator.
func NewDecorator() *Decorator {
	return &Decorator{}
}

// AddProcessor appends a processor for phase and returns d.
func (d *Decorator) AddProcessor(fn ProcessorFunc, phase Phase, opts ...HookOption) *Decorator {
	if fn == nil {
		panic("conveyor: AddProcessor requires a function")
	}
	h := Hook{Kind: Processor, Phase: phase, proc: fn}
	for _, opt := range opts {
		opt(&h)
	}
	d.hooks = append(d.hooks, h)
	return d
}

// AddModProcessor appends a modifier for phase and returns d.
func (d *Decorator) AddModProcessor(fn ModifierFunc, phase Phase, opts ...HookOption) *Decorator {
	if fn == nil {
		panic("conveyor: AddModProcessor requires a function")
	}
	h := Hook{Kind: Modifier, Phase: phase, mod: fn}
	for _, opt := range opts {
		opt(&h)
	}
	d.hooks = append(d.hooks, h)
	return d
}

// Name returns the registered name of d, or "".
func (d *Decorator) Name() string { return d.name }

// Len returns the number of hooks.
func (d *Decorator) Len() int { return len(d.hooks) }

// Hooks returns the hooks in registration order.
func (d *Decorator) Hooks() []Hook {
	return append([]Hook(nil), d.hooks...)
}

// Decorate wraps unit with the current hooks.
func (d *Decorator) Decorate(unit CommandUnit) CommandUnit {
	w := &decorated{unit: unit}
	for _, h := range d.hooks {
		switch {
		case h.Phase == Before && h.Kind == Modifier:
			w.preMods = append(w.preMods, h)
		case h.Phase == Before:
			w.preProcs = append(w.preProcs, h)
		case h.Kind == Modifier:
			w.postMods = append(w.postMods, h)
		default:
			w.postProcs = append(w.postProcs, h)
		}
	}
	return w
}

type decorated struct {
	unit      CommandUnit
	preMods   []Hook
	preProcs  []Hook
	postMods  []Hook
	postProcs []Hook
}

func (w *decorated) UnitName() string { return NameOf(w.unit) }

func (w *decorated) Run(ctx context.Context, in Pair, args Args) (Pair, error) {
	cur, err := applyModifiers(ctx, w.preMods, in)
	if err != nil {
		return Pair{}, err
	}
	if err := applyProcessors(ctx, w.preProcs, cur); err != nil {
		return Pair{}, err
	}

	out, err := w.unit.Run(ctx, cur, args)
	if err != nil {
		return Pair{}, err
	}
	if !out.Valid() {
		return Pair{}, errors.InvalidUnitResult()
	}

	out, err = applyModifiers(ctx, w.postMods, out)
	if err != nil {
		return Pair{}, err
	}
	if err := applyProcessors(ctx, w.postProcs, out); err != nil {
		return Pair{}, err
	}
	return out, nil
}

func applyModifiers(ctx context.Context, hooks []Hook, in Pair) (Pair, error) {
	cur := in
	for _, h := range hooks {
		out, err := h.mod(ctx, cur, h.Args)
		if err != nil {
			return Pair{}, err
		}
		if !out.Valid() {
			e := errors.InvalidModifierResult().WithDetail("phase", h.Phase.String())
			if h.Name != "" {
				e.WithDetail("hook", h.Name)
			}
			return Pair{}, e
		}
		cur = out
	}
	return cur, nil
}

func applyProcessors(ctx context.Context, hooks []Hook, in Pair) error {
	for _, h := range hooks {
		if err := h.proc(ctx, in, h.Args); err != nil {
			return err
		}
	}
	return nil
}
