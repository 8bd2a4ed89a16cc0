package dag

import (
	"bytes"
	"context"
	"encoding/json"
	"sync"

	"golang.org/x/sync/semaphore"

	"github.com/kbukum/cmdflow/errors"
	"github.com/kbukum/cmdflow/logger"
	"github.com/kbukum/cmdflow/process"
)

// multiprocessDispatcher starts a fresh worker process for every task and
// exchanges one request and one response with it. A positive limit caps
// how many workers run at once.
type multiprocessDispatcher struct {
	worker WorkerCommand
	limit  *semaphore.Weighted
	done   chan completion
	wg     sync.WaitGroup
}

func newMultiprocessDispatcher(wc WorkerCommand, limit, tasks int) *multiprocessDispatcher {
	m := &multiprocessDispatcher{worker: wc, done: make(chan completion, tasks)}
	if limit > 0 {
		m.limit = semaphore.NewWeighted(int64(limit))
	}
	return m
}

func (m *multiprocessDispatcher) submit(ctx context.Context, t task) {
	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		if m.limit != nil {
			_ = m.limit.Acquire(ctx, 1)
			defer m.limit.Release(1)
		}
		m.done <- execute(ctx, t, func(ctx context.Context) (Result, error) {
			return m.call(ctx, t)
		})
	}()
}

func (m *multiprocessDispatcher) call(ctx context.Context, t task) (Result, error) {
	desc, err := Describe(t.startable)
	if err != nil {
		return Result{}, err
	}
	line, err := json.Marshal(request{ID: 1, RunID: logger.RunIDFromContext(ctx), Startable: desc})
	if err != nil {
		return Result{}, errors.Serialization("startable "+t.name, err)
	}
	cmd, err := m.worker.command()
	if err != nil {
		return Result{}, err
	}
	cmd.Stdin = bytes.NewReader(append(line, '\n'))

	res, runErr := process.Run(ctx, cmd)
	var resp response
	if res != nil && len(bytes.TrimSpace(res.Stdout)) > 0 {
		if err := json.Unmarshal(res.Stdout, &resp); err != nil {
			return Result{}, workerFailure("worker sent an unreadable response", err, res)
		}
		return resp.outcome()
	}
	return Result{}, workerFailure("worker exited without a response", runErr, res)
}

func (m *multiprocessDispatcher) next(ctx context.Context) completion {
	return awaitCompletion(ctx, m.done)
}

func (m *multiprocessDispatcher) close() error {
	m.wg.Wait()
	return nil
}

// workerFailure reports a broken worker with the tail of its stderr.
func workerFailure(reason string, cause error, res *process.Result) error {
	err := errors.WorkerFailed(reason, cause)
	if res != nil {
		err = err.WithDetail("exit_code", res.ExitCode)
		if tail := res.StderrTail(512); tail != "" {
			err = err.WithDetail("stderr", tail)
		}
	}
	return err
}
