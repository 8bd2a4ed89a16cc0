package dag

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"github.com/kbukum/cmdflow/errors"
	"github.com/kbukum/cmdflow/logger"
	"github.com/kbukum/cmdflow/observability"
)

// task is one ready startable handed to a dispatcher.
type task struct {
	name      string
	startable Startable
}

// completion is a finished task.
type completion struct {
	task     task
	result   Result
	err      error
	duration time.Duration
}

// dispatcher runs submitted tasks under one strategy. Only the scheduling
// goroutine calls its methods.
type dispatcher interface {
	// submit hands off a ready task. It may block while a fixed pool is
	// full, but never waits for a task to finish.
	submit(ctx context.Context, t task)
	// next blocks until one submitted task finishes.
	next(ctx context.Context) completion
	// close waits for outstanding work and releases workers.
	close() error
}

// schedule drains the graph through disp. Bookkeeping is only touched on
// this goroutine: dispatchers report back through next, so a startable is
// dispatched exactly once and no completion is lost.
func (d *Dag) schedule(ctx context.Context, p plan, disp dispatcher, log *logger.Logger) Outcomes {
	outcomes := make(Outcomes, len(p.order))
	deg := inDegrees(p.order, p.pred)
	idx := indexOf(p.order)

	var ready []string
	for _, name := range p.order {
		if deg[name] == 0 {
			ready = append(ready, name)
		}
	}

	pending := 0
	for len(ready) > 0 || pending > 0 {
		for _, name := range ready {
			if d.metrics != nil {
				d.metrics.RecordStartableStart(ctx, d.name)
			}
			log.Debug("startable dispatched", logger.Fields(logger.FieldStartable, name))
			disp.submit(ctx, task{name: name, startable: p.nodes[name]})
			pending++
		}
		ready = ready[:0]

		c := disp.next(ctx)
		pending--
		out := d.record(ctx, c, log)
		outcomes[out.Name] = out

		if out.Status != StatusCompleted {
			skipDependents(out.Name, p.succ, outcomes)
			continue
		}
		var released []string
		for _, next := range p.succ[out.Name] {
			deg[next]--
			if deg[next] == 0 {
				released = append(released, next)
			}
		}
		sortByIndex(released, idx)
		ready = append(ready, released...)
	}
	return outcomes
}

// record turns a completion into an Outcome and reports it.
func (d *Dag) record(ctx context.Context, c completion, log *logger.Logger) Outcome {
	out := Outcome{
		Name:     c.task.name,
		Status:   StatusCompleted,
		Result:   c.result,
		Err:      c.err,
		Duration: c.duration,
	}
	fields := logger.DurationFields(out.Name, out.Duration)
	if c.err != nil {
		out.Status = StatusFailed
		if d.metrics != nil {
			d.metrics.RecordError(ctx, string(errors.CodeOf(c.err)), out.Name)
		}
		log.Error("startable failed", logger.MergeWithError(fields, c.err))
	} else {
		log.Debug("startable completed", fields)
	}
	if d.metrics != nil {
		d.metrics.RecordStartableEnd(ctx, d.name, out.Name, string(out.Status), out.Duration)
	}
	return out
}

// skipDependents marks every transitive dependent of failed as skipped.
func skipDependents(failed string, succ map[string][]string, outcomes Outcomes) {
	type hop struct{ name, cause string }
	queue := []hop{}
	for _, next := range succ[failed] {
		queue = append(queue, hop{next, failed})
	}
	for len(queue) > 0 {
		h := queue[0]
		queue = queue[1:]
		if _, done := outcomes[h.name]; done {
			continue
		}
		outcomes[h.name] = Outcome{
			Name:   h.name,
			Status: StatusSkipped,
			Err:    errors.DependencyFailed(h.name, h.cause),
		}
		for _, next := range succ[h.name] {
			queue = append(queue, hop{next, h.name})
		}
	}
}

// execute runs fn for t inside a span, turning a panic into an internal
// error.
func execute(ctx context.Context, t task, fn func(ctx context.Context) (Result, error)) (c completion) {
	c.task = t
	ctx, span := observability.StartSpan(ctx, observability.SpanStartableStart,
		attribute.String(observability.AttrStartable, t.name))
	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			c.result = Result{}
			c.err = errors.Internal(fmt.Errorf("startable %s panicked: %v", t.name, r))
		}
		c.duration = time.Since(start)
		observability.SetSpanError(ctx, c.err)
		span.End()
	}()
	c.result, c.err = fn(ctx)
	return c
}

// startLocal runs a startable in this process.
func startLocal(t task) func(ctx context.Context) (Result, error) {
	return t.startable.Start
}
