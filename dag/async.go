package dag

import (
	"context"
	"sync"

	"golang.org/x/sync/semaphore"

	"github.com/kbukum/cmdflow/conveyor"
)

// asyncDispatcher gives every task a goroutine but only one execution slot
// between them. A task gives the slot up only while it waits inside
// conveyor.Await, so startables interleave at those points and never run
// simultaneously.
type asyncDispatcher struct {
	slot  *slot
	limit *semaphore.Weighted
	done  chan completion
	wg    sync.WaitGroup
}

// slot adapts a weight-one semaphore to conveyor.Slot.
type slot struct {
	sem *semaphore.Weighted
}

func (s *slot) Release() { s.sem.Release(1) }

func (s *slot) Acquire(ctx context.Context) error { return s.sem.Acquire(ctx, 1) }

func newAsyncDispatcher(limit, tasks int) *asyncDispatcher {
	a := &asyncDispatcher{
		slot: &slot{sem: semaphore.NewWeighted(1)},
		done: make(chan completion, tasks),
	}
	if limit > 0 {
		a.limit = semaphore.NewWeighted(int64(limit))
	}
	return a
}

func (a *asyncDispatcher) submit(ctx context.Context, t task) {
	tctx := conveyor.WithSlot(ctx, a.slot)
	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		if a.limit != nil {
			_ = a.limit.Acquire(ctx, 1)
			defer a.limit.Release(1)
		}
		_ = a.slot.Acquire(ctx)
		c := execute(tctx, t, startLocal(t))
		a.slot.Release()
		a.done <- c
	}()
}

func (a *asyncDispatcher) next(ctx context.Context) completion {
	return awaitCompletion(ctx, a.done)
}

func (a *asyncDispatcher) close() error {
	a.wg.Wait()
	return nil
}
