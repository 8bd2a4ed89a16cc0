package conveyor

import "context"

// Slot is an execution slot that a cooperative scheduler lends to the
// running unit.
type Slot interface {
	Release()
	Acquire(ctx context.Context) error
}

type slotKey struct{}

// WithSlot returns a context whose units hold s while they run.
func WithSlot(ctx context.Context, s Slot) context.Context {
	return context.WithValue(ctx, slotKey{}, s)
}

// Await runs a blocking wait. If ctx carries a Slot it is released for the
// duration of fn so other units can run, then taken back before Await
// returns, even if fn panics. Without a Slot, Await just calls fn.
func Await(ctx context.Context, fn func() error) (err error) {
	s, ok := ctx.Value(slotKey{}).(Slot)
	if !ok {
		return fn()
	}
	s.Release()
	defer func() {
		if aerr := s.Acquire(context.WithoutCancel(ctx)); aerr != nil && err == nil {
			err = aerr
		}
	}()
	return fn()
}
