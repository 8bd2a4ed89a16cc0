package process

import (
	"bytes"
	"time"

	"github.com/kbukum/cmdflow/conveyor"
)

// Result is what a finished subprocess left behind. Run returns it even when
// the process failed, so callers can report its output.
type Result struct {
	Stdout []byte
	Stderr []byte
	// ExitCode is -1 when the process never exited on its own.
	ExitCode int
	Duration time.Duration
}

// Pair returns the output as the pair a command unit hands to the next stage.
func (r *Result) Pair() conveyor.Pair {
	return conveyor.NewPair(r.Stdout, r.Stderr)
}

// Code returns the exit code, or -1 for a nil result.
func (r *Result) Code() int {
	if r == nil {
		return -1
	}
	return r.ExitCode
}

// StderrTail returns at most the last n bytes of stderr, trimmed.
func (r *Result) StderrTail(n int) string {
	if r == nil {
		return ""
	}
	b := bytes.TrimSpace(r.Stderr)
	if len(b) > n {
		b = b[len(b)-n:]
	}
	return string(b)
}
