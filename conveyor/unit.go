package conveyor

import (
	"context"
)

// CommandUnit is an opaque step that turns one Pair into another.
// Units must treat in as read-only.
type CommandUnit interface {
	Run(ctx context.Context, in Pair, args Args) (Pair, error)
}

// UnitFunc adapts a function to CommandUnit.
type UnitFunc func(ctx context.Context, in Pair, args Args) (Pair, error)

// Run calls f.
func (f UnitFunc) Run(ctx context.Context, in Pair, args Args) (Pair, error) {
	return f(ctx, in, args)
}

// Named is implemented by units returned from a Registry.
type Named interface {
	UnitName() string
}

// NameOf returns the registered name of unit, or "" if it was never registered.
func NameOf(unit CommandUnit) string {
	if n, ok := unit.(Named); ok {
		return n.UnitName()
	}
	return ""
}

type namedUnit struct {
	name string
	unit CommandUnit
}

func (u *namedUnit) UnitName() string { return u.name }

func (u *namedUnit) Run(ctx context.Context, in Pair, args Args) (Pair, error) {
	return u.unit.Run(ctx, in, args)
}
