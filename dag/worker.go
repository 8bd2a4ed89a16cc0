package dag

import (
	"bufio"
	"context"
	"encoding/json"
	"io"
	"os"

	"github.com/kbukum/cmdflow/conveyor"
	"github.com/kbukum/cmdflow/errors"
	"github.com/kbukum/cmdflow/logger"
	"github.com/kbukum/cmdflow/process"
)

// WorkerEnv is set to "1" in the environment of worker processes.
const WorkerEnv = "CMDFLOW_WORKER"

// WorkerCommand is the command started for Multiprocess and ProcessPool
// workers. The binary must call ServeWorkerProcess when IsWorkerProcess
// reports true, and must register the same units and decorators at init.
type WorkerCommand struct {
	// Path defaults to the current executable.
	Path string
	Args []string
	Env  []string
}

func (w WorkerCommand) command() (process.Command, error) {
	path := w.Path
	if path == "" {
		exe, err := os.Executable()
		if err != nil {
			return process.Command{}, errors.WorkerFailed("cannot locate worker executable", err)
		}
		path = exe
	}
	env := append([]string{}, w.Env...)
	env = append(env, WorkerEnv+"=1")
	return process.Command{
		Binary: path,
		Args:   w.Args,
		Env:    env,
		Stderr: os.Stderr,
	}, nil
}

// IsWorkerProcess reports whether this process was started as a worker.
func IsWorkerProcess() bool {
	return os.Getenv(WorkerEnv) == "1"
}

// ServeWorkerProcess serves requests on stdin until it closes and returns
// the process exit code. Anything written to os.Stdout while it runs goes
// to stderr instead, so printing units cannot corrupt responses.
//
//	func main() {
//		if dag.IsWorkerProcess() {
//			os.Exit(dag.ServeWorkerProcess())
//		}
//		...
//	}
func ServeWorkerProcess() int {
	out := os.Stdout
	os.Stdout = os.Stderr
	defer func() { os.Stdout = out }()

	log := logger.Get("worker").WithFields(logger.Fields(logger.FieldPID, os.Getpid()))
	if err := ServeWorker(context.Background(), os.Stdin, out, conveyor.DefaultRegistry); err != nil {
		log.Error("worker stopped", logger.MergeWithError(nil, err))
		return 1
	}
	return 0
}

// ServeWorker reads line-delimited requests from r and writes one response
// per request to w. It returns nil when r reaches EOF.
func ServeWorker(ctx context.Context, r io.Reader, w io.Writer, reg *conveyor.Registry) error {
	dec := json.NewDecoder(bufio.NewReader(r))
	bw := bufio.NewWriter(w)
	enc := json.NewEncoder(bw)
	for {
		var req request
		if err := dec.Decode(&req); err != nil {
			if err == io.EOF {
				return nil
			}
			return errors.Serialization("worker request", err)
		}
		resp := serve(ctx, req, reg)
		if err := enc.Encode(resp); err != nil {
			resp = response{ID: req.ID, Error: bodyPtr(errors.Serialization("result of "+req.Startable.Name, err))}
			if err := enc.Encode(resp); err != nil {
				return errors.WorkerFailed("write response", err)
			}
		}
		if err := bw.Flush(); err != nil {
			return errors.WorkerFailed("write response", err)
		}
	}
}

func serve(ctx context.Context, req request, reg *conveyor.Registry) response {
	if req.RunID != "" {
		ctx = logger.ContextWithRunID(ctx, req.RunID)
	}
	s, err := Build(req.Startable, reg)
	if err != nil {
		return response{ID: req.ID, Error: bodyPtr(err)}
	}
	t := task{name: s.Name(), startable: s}
	c := execute(ctx, t, startLocal(t))
	resp := response{ID: req.ID, Result: c.result}
	if c.err != nil {
		resp.Error = bodyPtr(c.err)
	}
	return resp
}

func bodyPtr(err error) *errors.ErrorBody {
	body := errors.BodyOf(err)
	return &body
}
