package process

import (
	"bytes"
	"context"
	stderrors "errors"
	"fmt"
	"sort"
	"time"

	"github.com/kbukum/cmdflow/conveyor"
	"github.com/kbukum/cmdflow/errors"
	"github.com/kbukum/cmdflow/logger"
	"github.com/kbukum/cmdflow/resilience"
)

// ExecName is the registry name of Exec.
const ExecName = "process.exec"

// Exec runs a local command configured entirely by its stage arguments:
//
//	binary        string    executable, required
//	args          []string  arguments
//	dir           string    working directory
//	env           map       extra environment variables
//	pipe_stdin    bool      feed the incoming stdout to the command stdin
//	fail_on_exit  bool      turn a non-zero exit into an error
//	timeout       string    time.ParseDuration limit for one attempt
//	retries       int       extra attempts on failure
//	retry_backoff string    time.ParseDuration wait after the first failure
//
// Because it is registered, conveyors using Exec can run in worker processes.
var Exec = conveyor.Register(ExecName, &Unit{})

// Unit runs a local subprocess. The incoming pair is forwarded to stdin when
// PipeStdin is set; the outgoing pair holds what the process wrote.
//
// A command that exits non-zero still produces its output unless FailOnExit
// is set. A command that cannot start always fails.
type Unit struct {
	Command    Command
	PipeStdin  bool
	FailOnExit bool
	// Timeout bounds each attempt. Zero means no limit.
	Timeout time.Duration
	// Retry, if set, re-runs failed attempts with backoff.
	Retry *resilience.Policy
}

// NewUnit returns a unit running binary with args.
func NewUnit(binary string, args ...string) *Unit {
	return &Unit{Command: Command{Binary: binary, Args: args}}
}

// Run implements conveyor.CommandUnit. Stage arguments override the fields of u.
func (u *Unit) Run(ctx context.Context, in conveyor.Pair, args conveyor.Args) (conveyor.Pair, error) {
	cfg, err := u.resolve(args)
	if err != nil {
		return conveyor.Pair{}, err
	}

	attempt := func(int) (*Result, error) {
		cmd := cfg.Command
		if cfg.PipeStdin {
			cmd.Stdin = bytes.NewReader(in.Stdout)
		}
		runCtx := ctx
		if cfg.Timeout > 0 {
			var cancel context.CancelFunc
			runCtx, cancel = context.WithTimeout(ctx, cfg.Timeout)
			defer cancel()
		}

		var res *Result
		err := conveyor.Await(ctx, func() error {
			var runErr error
			res, runErr = Run(runCtx, cmd)
			return runErr
		})
		var exitErr *ExitError
		if err != nil && stderrors.As(err, &exitErr) && !cfg.FailOnExit {
			return res, nil
		}
		if err != nil {
			return res, errors.CommandExecutionFailure(cmd.Binary, err).
				WithDetail("exit_code", res.Code())
		}
		return res, nil
	}

	var res *Result
	if cfg.Retry != nil {
		p := *cfg.Retry
		if p.OnRetry == nil {
			log := logger.Get("process").WithContext(ctx)
			p.OnRetry = func(n int, err error, wait time.Duration) {
				log.Warn("command failed, retrying", logger.MergeWithError(logger.Fields(
					"binary", cfg.Command.Binary, "attempt", n, "wait", wait.String(),
				), err))
			}
		}
		res, err = resilience.Retry(ctx, p, attempt)
	} else {
		res, err = attempt(1)
	}
	if err != nil {
		return conveyor.Pair{}, err
	}
	return res.Pair(), nil
}

func (u *Unit) resolve(args conveyor.Args) (Unit, error) {
	cfg := *u
	cfg.Command.Args = append([]string(nil), u.Command.Args...)
	cfg.Command.Env = append([]string(nil), u.Command.Env...)

	cfg.Command.Binary = args.NamedString("binary", cfg.Command.Binary)
	if list := args.NamedStrings("args"); list != nil {
		cfg.Command.Args = list
	}
	cfg.Command.Dir = args.NamedString("dir", cfg.Command.Dir)
	if env := args.NamedMap("env"); len(env) > 0 {
		keys := make([]string, 0, len(env))
		for k := range env {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			cfg.Command.Env = append(cfg.Command.Env, k+"="+env[k])
		}
	}
	cfg.PipeStdin = args.NamedBool("pipe_stdin", cfg.PipeStdin)
	cfg.FailOnExit = args.NamedBool("fail_on_exit", cfg.FailOnExit)
	if raw := args.NamedString("timeout", ""); raw != "" {
		d, err := time.ParseDuration(raw)
		if err != nil {
			return Unit{}, errors.InvalidInput("timeout", fmt.Sprintf("bad duration %q", raw))
		}
		cfg.Timeout = d
	}
	if n := args.NamedInt("retries", 0); n > 0 {
		p := resilience.Retries(n)
		cfg.Retry = &p
	}
	if raw := args.NamedString("retry_backoff", ""); raw != "" {
		d, err := time.ParseDuration(raw)
		if err != nil || d <= 0 {
			return Unit{}, errors.InvalidInput("retry_backoff", fmt.Sprintf("bad duration %q", raw))
		}
		if cfg.Retry != nil {
			p := *cfg.Retry
			p.Backoff = d
			cfg.Retry = &p
		}
	}

	if cfg.Command.Binary == "" {
		return Unit{}, errors.MissingField("binary")
	}
	return cfg, nil
}
