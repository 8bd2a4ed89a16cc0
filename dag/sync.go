package dag

import "context"

// syncDispatcher runs tasks one at a time on the scheduling goroutine, in
// submission order.
type syncDispatcher struct {
	queue []task
}

func newSyncDispatcher() *syncDispatcher {
	return &syncDispatcher{}
}

func (s *syncDispatcher) submit(_ context.Context, t task) {
	s.queue = append(s.queue, t)
}

func (s *syncDispatcher) next(ctx context.Context) completion {
	t := s.queue[0]
	s.queue = s.queue[1:]
	return execute(ctx, t, startLocal(t))
}

func (s *syncDispatcher) close() error { return nil }
