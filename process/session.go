package process

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"sync"
	"syscall"
	"time"
)

// Session is a long-running subprocess driven through its stdin and stdout.
type Session struct {
	cmd    *exec.Cmd
	stdin  io.WriteCloser
	rawOut *os.File
	stdout *bufio.Reader
	grace  time.Duration

	done    chan struct{}
	waitErr error
	once    sync.Once
}

// Start launches cmd and keeps pipes to its stdin and stdout. cmd.Stdin is
// ignored. Cancelling ctx terminates the process group.
func Start(ctx context.Context, cmd Command) (*Session, error) {
	if cmd.Binary == "" {
		return nil, fmt.Errorf("process: binary is required")
	}

	c := exec.CommandContext(ctx, cmd.Binary, cmd.Args...) //nolint:gosec // dynamic args are the purpose of this package
	c.Dir = cmd.Dir
	c.Env = mergeEnv(cmd.Env)
	c.Stderr = cmd.Stderr
	terminateGroup(c, cmd.gracePeriod())

	stdin, err := c.StdinPipe()
	if err != nil {
		return nil, fmt.Errorf("process: stdin pipe: %w", err)
	}
	// A plain pipe instead of StdoutPipe: Wait must not close the read end
	// before buffered responses are consumed.
	stdout, pw, err := os.Pipe()
	if err != nil {
		return nil, fmt.Errorf("process: stdout pipe: %w", err)
	}
	c.Stdout = pw
	if err := c.Start(); err != nil {
		stdout.Close()
		pw.Close()
		return nil, fmt.Errorf("process: start %s: %w", cmd.Binary, err)
	}
	pw.Close()

	s := &Session{
		cmd:    c,
		stdin:  stdin,
		rawOut: stdout,
		stdout: bufio.NewReaderSize(stdout, 64*1024),
		grace:  cmd.gracePeriod(),
		done:   make(chan struct{}),
	}
	go func() {
		s.waitErr = c.Wait()
		close(s.done)
	}()
	return s, nil
}

// Pid returns the process id.
func (s *Session) Pid() int { return s.cmd.Process.Pid }

// Stdin is the write end of the process stdin.
func (s *Session) Stdin() io.Writer { return s.stdin }

// Stdout is a buffered reader over the process stdout.
func (s *Session) Stdout() *bufio.Reader { return s.stdout }

// Done is closed once the process has exited.
func (s *Session) Done() <-chan struct{} { return s.done }

// Close closes stdin and waits for the process to exit on its own. After
// the grace period the process group gets SIGTERM, then SIGKILL.
func (s *Session) Close() error {
	s.once.Do(func() { _ = s.stdin.Close() })

	select {
	case <-s.done:
		return s.exitErr()
	case <-time.After(s.grace):
	}
	_ = syscall.Kill(-s.cmd.Process.Pid, syscall.SIGTERM)
	select {
	case <-s.done:
	case <-time.After(s.grace):
		_ = syscall.Kill(-s.cmd.Process.Pid, syscall.SIGKILL)
		<-s.done
	}
	return s.exitErr()
}

func (s *Session) exitErr() error {
	_ = s.rawOut.Close()
	if s.waitErr == nil {
		return nil
	}
	code := -1
	if s.cmd.ProcessState != nil {
		code = s.cmd.ProcessState.ExitCode()
	}
	return &ExitError{Code: code, Err: s.waitErr}
}
