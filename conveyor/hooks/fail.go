package hooks

import (
	"bytes"
	"context"

	"github.com/kbukum/cmdflow/conveyor"
	"github.com/kbukum/cmdflow/errors"
)

// FailOnStderr fails the call when stderr holds anything but whitespace.
func FailOnStderr(_ context.Context, in conveyor.Pair, _ conveyor.Args) error {
	msg := bytes.TrimSpace(in.Stderr)
	if len(msg) == 0 {
		return nil
	}
	return errors.New(errors.ErrCodeCommandFailed, string(msg)).
		WithDetail("stream", string(Stderr))
}
