package hooks

import (
	"bytes"
	"context"
	"os"

	"github.com/kbukum/cmdflow/conveyor"
	"github.com/kbukum/cmdflow/errors"
)

func pathArg(args conveyor.Args) (string, error) {
	path := args.NamedString("path", args.String(0))
	if path == "" {
		return "", errors.MissingField("path")
	}
	return path, nil
}

func redirect(stream Stream, in conveyor.Pair, args conveyor.Args) error {
	path, err := pathArg(args)
	if err != nil {
		return err
	}
	flags := os.O_CREATE | os.O_WRONLY | os.O_TRUNC
	if args.NamedBool("append", false) {
		flags = os.O_CREATE | os.O_WRONLY | os.O_APPEND
	}
	f, err := os.OpenFile(path, flags, 0o644)
	if err != nil {
		return err
	}
	if _, err := f.Write(bytes.TrimSpace(stream.pick(in))); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// RedirectStdout writes the trimmed stdout to the file named by the "path"
// argument (or the first positional one). The file is truncated unless
// "append" is true.
func RedirectStdout(_ context.Context, in conveyor.Pair, args conveyor.Args) error {
	return redirect(Stdout, in, args)
}

// RedirectStderr is RedirectStdout for stderr.
func RedirectStderr(_ context.Context, in conveyor.Pair, args conveyor.Args) error {
	return redirect(Stderr, in, args)
}

// Redirect writes the stream named by the "stream" argument.
func Redirect(_ context.Context, in conveyor.Pair, args conveyor.Args) error {
	s, err := streamArg(args, Stdout)
	if err != nil {
		return err
	}
	return redirect(s, in, args)
}
