package dag

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/kbukum/cmdflow/conveyor"
)

// poolDispatcher runs tasks on at most size goroutines. Failures travel
// through completions, so the group never cancels.
type poolDispatcher struct {
	group errgroup.Group
	done  chan completion
}

func newPoolDispatcher(size, tasks int) *poolDispatcher {
	p := &poolDispatcher{done: make(chan completion, tasks)}
	p.group.SetLimit(size)
	return p
}

func (p *poolDispatcher) submit(ctx context.Context, t task) {
	tctx := conveyor.WithSlot(ctx, nil)
	// Go blocks while the pool is full. Completions are buffered, so a full
	// pool always drains.
	_ = conveyor.Await(ctx, func() error {
		p.group.Go(func() error {
			p.done <- execute(tctx, t, startLocal(t))
			return nil
		})
		return nil
	})
}

func (p *poolDispatcher) next(ctx context.Context) completion {
	return awaitCompletion(ctx, p.done)
}

func (p *poolDispatcher) close() error {
	return p.group.Wait()
}
