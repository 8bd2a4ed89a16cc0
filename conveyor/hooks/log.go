package hooks

import (
	"bytes"
	"context"
	"os"

	"github.com/kbukum/cmdflow/conveyor"
	"github.com/kbukum/cmdflow/logger"
)

// LogStreams returns a processor that logs stderr at error level and stdout
// at info level. Matches of patterns, and of the "sensitive_patterns"
// argument, are masked first. A nil log uses the hooks component logger.
func LogStreams(log *logger.Logger, patterns ...string) conveyor.ProcessorFunc {
	return func(ctx context.Context, in conveyor.Pair, args conveyor.Args) error {
		l := log
		if l == nil {
			l = logger.Get("hooks")
		}
		return logPair(l.WithContext(ctx), in, args, patterns)
	}
}

// RedirectLogs appends masked stream log lines as JSON to the file named by
// the "path" argument.
func RedirectLogs(ctx context.Context, in conveyor.Pair, args conveyor.Args) error {
	path, err := pathArg(args)
	if err != nil {
		return err
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()

	l := logger.NewWithWriter(&logger.Config{Level: "info", Format: "json", Timestamp: true}, "cmdflow", f)
	return logPair(l.WithContext(ctx), in, args, nil)
}

func logPair(l *logger.Logger, in conveyor.Pair, args conveyor.Args, patterns []string) error {
	compiled, err := CompilePatterns(append(append([]string(nil), patterns...), args.NamedStrings("sensitive_patterns")...))
	if err != nil {
		return err
	}
	placeholder := args.NamedString("placeholder", DefaultPlaceholder)

	if msg := bytes.TrimSpace(in.Stderr); len(msg) > 0 {
		l.Error(Mask(string(msg), compiled, placeholder), logger.Fields(logger.FieldStream, string(Stderr)))
	}
	if msg := bytes.TrimSpace(in.Stdout); len(msg) > 0 {
		l.Info(Mask(string(msg), compiled, placeholder), logger.Fields(logger.FieldStream, string(Stdout)))
	}
	return nil
}
