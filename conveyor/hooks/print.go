package hooks

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"

	"github.com/kbukum/cmdflow/conveyor"
)

// Stream selects which half of a pair a hook works on.
type Stream string

const (
	Stdout Stream = "stdout"
	Stderr Stream = "stderr"
)

func (s Stream) pick(p conveyor.Pair) []byte {
	if s == Stderr {
		return p.Stderr
	}
	return p.Stdout
}

func streamArg(args conveyor.Args, def Stream) (Stream, error) {
	s := Stream(args.NamedString("stream", string(def)))
	if s != Stdout && s != Stderr {
		return "", fmt.Errorf("hooks: stream must be %q or %q, got %q", Stdout, Stderr, s)
	}
	return s, nil
}

// Printer returns a processor that writes the trimmed stream to w when it
// is not blank. A nil w means the process stdout at call time.
func Printer(w io.Writer, stream Stream) conveyor.ProcessorFunc {
	return func(_ context.Context, in conveyor.Pair, _ conveyor.Args) error {
		return printStream(w, stream.pick(in))
	}
}

func printStream(w io.Writer, data []byte) error {
	text := bytes.TrimSpace(data)
	if len(text) == 0 {
		return nil
	}
	if w == nil {
		w = os.Stdout
	}
	_, err := fmt.Fprintf(w, "%s\n", text)
	return err
}

// PrintStdout prints the trimmed stdout of the pair.
func PrintStdout(_ context.Context, in conveyor.Pair, _ conveyor.Args) error {
	return printStream(nil, in.Stdout)
}

// PrintStderr prints the trimmed stderr of the pair.
func PrintStderr(_ context.Context, in conveyor.Pair, _ conveyor.Args) error {
	return printStream(nil, in.Stderr)
}

// PrintAll prints stdout, then stderr.
func PrintAll(ctx context.Context, in conveyor.Pair, args conveyor.Args) error {
	if err := PrintStdout(ctx, in, args); err != nil {
		return err
	}
	return PrintStderr(ctx, in, args)
}

// PrintStream prints the stream named by the "stream" argument, stdout by default.
func PrintStream(_ context.Context, in conveyor.Pair, args conveyor.Args) error {
	s, err := streamArg(args, Stdout)
	if err != nil {
		return err
	}
	return printStream(nil, s.pick(in))
}
