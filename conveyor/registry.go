package conveyor

import (
	"context"
	"sort"
	"sync"

	"github.com/kbukum/cmdflow/errors"
)

// Registry maps names to units and decorators so a conveyor can be described
// by value and rebuilt in another process. Register at init time so every
// process built from the same binary sees the same entries.
type Registry struct {
	mu         sync.RWMutex
	units      map[string]CommandUnit
	decorators map[string]*Decorator
}

// NewRegistry creates a new empty Registry.
func NewRegistry() *Registry {
	return &Registry{
		units:      make(map[string]CommandUnit),
		decorators: make(map[string]*Decorator),
	}
}

// DefaultRegistry is used by Register, RegisterDecorator and worker processes.
var DefaultRegistry = NewRegistry()

// RegisterUnit stores unit under name and returns a unit that remembers the
// name. Registering a name again replaces the previous entry.
func (r *Registry) RegisterUnit(name string, unit CommandUnit) CommandUnit {
	if name == "" || unit == nil {
		panic("conveyor: RegisterUnit requires a name and a unit")
	}
	if n, ok := unit.(*namedUnit); ok {
		unit = n.unit
	}
	named := &namedUnit{name: name, unit: unit}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.units[name] = named
	return named
}

// RegisterDecorator stores d under name and returns it.
func (r *Registry) RegisterDecorator(name string, d *Decorator) *Decorator {
	if name == "" || d == nil {
		panic("conveyor: RegisterDecorator requires a name and a decorator")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	d.name = name
	d.registered = len(d.hooks)
	r.decorators[name] = d
	return d
}

// Unit retrieves a unit by name.
func (r *Registry) Unit(name string) (CommandUnit, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	u, ok := r.units[name]
	if !ok {
		return nil, errors.NotFound("unit", name)
	}
	return u, nil
}

// Decorator retrieves a decorator by name.
func (r *Registry) Decorator(name string) (*Decorator, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	d, ok := r.decorators[name]
	if !ok {
		return nil, errors.NotFound("decorator", name)
	}
	return d, nil
}

// Units returns sorted names of all registered units.
func (r *Registry) Units() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.units))
	for name := range r.units {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Decorators returns sorted names of all registered decorators.
func (r *Registry) Decorators() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.decorators))
	for name := range r.decorators {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Register adds unit to DefaultRegistry.
func Register(name string, unit CommandUnit) CommandUnit {
	return DefaultRegistry.RegisterUnit(name, unit)
}

// RegisterFunc adds fn to DefaultRegistry.
func RegisterFunc(name string, fn func(ctx context.Context, in Pair, args Args) (Pair, error)) CommandUnit {
	return DefaultRegistry.RegisterUnit(name, UnitFunc(fn))
}

// RegisterDecorator adds d to DefaultRegistry.
func RegisterDecorator(name string, d *Decorator) *Decorator {
	return DefaultRegistry.RegisterDecorator(name, d)
}
