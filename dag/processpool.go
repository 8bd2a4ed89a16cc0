package dag

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"sync"
	"sync/atomic"

	"github.com/kbukum/cmdflow/errors"
	"github.com/kbukum/cmdflow/logger"
	"github.com/kbukum/cmdflow/process"
)

// processPoolDispatcher keeps a fixed set of worker processes and feeds
// them from one queue. Requests and responses are JSON lines on the
// workers' stdin and stdout.
type processPoolDispatcher struct {
	queue   chan poolJob
	done    chan completion
	workers []*poolWorker
	wg      sync.WaitGroup
	ids     atomic.Uint64
}

type poolJob struct {
	ctx context.Context
	id  uint64
	t   task
}

// poolWorker owns one worker session. A worker that breaks fails its
// current task and is replaced before the next one.
type poolWorker struct {
	ctx     context.Context
	command process.Command
	log     *logger.Logger

	session *process.Session
	enc     *json.Encoder
	dec     *json.Decoder
}

func newProcessPoolDispatcher(ctx context.Context, wc WorkerCommand, size, tasks int, log *logger.Logger) (*processPoolDispatcher, error) {
	cmd, err := wc.command()
	if err != nil {
		return nil, err
	}
	p := &processPoolDispatcher{
		queue: make(chan poolJob, tasks),
		done:  make(chan completion, tasks),
	}
	for i := 0; i < size; i++ {
		w := &poolWorker{ctx: ctx, command: cmd, log: log.WithFields(logger.Fields(logger.FieldWorker, i))}
		if err := w.spawn(); err != nil {
			for _, started := range p.workers {
				_ = started.stop()
			}
			return nil, err
		}
		p.workers = append(p.workers, w)
	}
	for _, w := range p.workers {
		p.wg.Add(1)
		go p.loop(w)
	}
	return p, nil
}

func (p *processPoolDispatcher) loop(w *poolWorker) {
	defer p.wg.Done()
	for job := range p.queue {
		p.done <- execute(job.ctx, job.t, func(ctx context.Context) (Result, error) {
			return w.call(ctx, job.id, job.t)
		})
	}
}

func (p *processPoolDispatcher) submit(ctx context.Context, t task) {
	p.queue <- poolJob{ctx: ctx, id: p.ids.Add(1), t: t}
}

func (p *processPoolDispatcher) next(ctx context.Context) completion {
	return awaitCompletion(ctx, p.done)
}

func (p *processPoolDispatcher) close() error {
	close(p.queue)
	p.wg.Wait()
	var errs []error
	for _, w := range p.workers {
		if err := w.stop(); err != nil {
			errs = append(errs, err)
		}
	}
	return stderrors.Join(errs...)
}

func (w *poolWorker) spawn() error {
	s, err := process.Start(w.ctx, w.command)
	if err != nil {
		return errors.WorkerFailed("cannot start worker", err)
	}
	w.session = s
	w.enc = json.NewEncoder(s.Stdin())
	w.dec = json.NewDecoder(s.Stdout())
	w.log.Debug("worker started", logger.Fields(logger.FieldPID, s.Pid()))
	return nil
}

func (w *poolWorker) stop() error {
	if w.session == nil {
		return nil
	}
	err := w.session.Close()
	w.session = nil
	return err
}

// broken retires the current session.
func (w *poolWorker) broken(cause error) {
	if err := w.stop(); err != nil {
		cause = stderrors.Join(cause, err)
	}
	w.log.Warn("worker replaced", logger.MergeWithError(nil, cause))
}

func (w *poolWorker) call(ctx context.Context, id uint64, t task) (Result, error) {
	desc, err := Describe(t.startable)
	if err != nil {
		return Result{}, err
	}
	if w.session == nil {
		if err := w.spawn(); err != nil {
			return Result{}, err
		}
	}
	if err := w.enc.Encode(request{ID: id, RunID: logger.RunIDFromContext(ctx), Startable: desc}); err != nil {
		w.broken(err)
		return Result{}, errors.WorkerFailed("cannot send request to worker", err)
	}
	var resp response
	if err := w.dec.Decode(&resp); err != nil {
		w.broken(err)
		return Result{}, errors.WorkerFailed("worker exited without a response", err)
	}
	if resp.ID != id {
		err := errors.WorkerFailed("worker answered a different request", nil).
			WithDetail("want", id).WithDetail("got", resp.ID)
		w.broken(err)
		return Result{}, err
	}
	return resp.outcome()
}
