package dag

import (
	"context"
	"sync"

	"golang.org/x/sync/semaphore"

	"github.com/kbukum/cmdflow/conveyor"
)

// threadDispatcher starts a goroutine for every task. A positive limit caps
// how many run at once.
type threadDispatcher struct {
	limit *semaphore.Weighted
	done  chan completion
	wg    sync.WaitGroup
}

func newThreadDispatcher(limit, tasks int) *threadDispatcher {
	t := &threadDispatcher{done: make(chan completion, tasks)}
	if limit > 0 {
		t.limit = semaphore.NewWeighted(int64(limit))
	}
	return t
}

func (d *threadDispatcher) submit(ctx context.Context, t task) {
	// Goroutines must not share an execution slot lent by an outer Async dag.
	tctx := conveyor.WithSlot(ctx, nil)
	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		if d.limit != nil {
			_ = d.limit.Acquire(tctx, 1)
			defer d.limit.Release(1)
		}
		d.done <- execute(tctx, t, startLocal(t))
	}()
}

func (d *threadDispatcher) next(ctx context.Context) completion {
	return awaitCompletion(ctx, d.done)
}

func (d *threadDispatcher) close() error {
	d.wg.Wait()
	return nil
}

// awaitCompletion receives the next completion, yielding any execution slot
// held by the caller while it waits.
func awaitCompletion(ctx context.Context, done <-chan completion) completion {
	var c completion
	_ = conveyor.Await(ctx, func() error {
		c = <-done
		return nil
	})
	return c
}
