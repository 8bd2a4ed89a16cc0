package hooks

import (
	"github.com/kbukum/cmdflow/conveyor"
)

// Names of the presets registered in conveyor.DefaultRegistry.
const (
	RaiseAndPrintName = "hooks.raise-and-print"
	PrintAllName      = "hooks.print-all"
	LogName           = "hooks.log"
)

func init() {
	conveyor.RegisterDecorator(RaiseAndPrintName, RaiseAndPrint())
	conveyor.RegisterDecorator(PrintAllName, PrintAllAfter())
	conveyor.RegisterDecorator(LogName, LogAfter())
}

// RaiseAndPrint fails on stderr and prints stdout, both before the unit runs.
func RaiseAndPrint() *conveyor.Decorator {
	return conveyor.NewDecorator().
		AddProcessor(FailOnStderr, conveyor.Before, conveyor.WithHookName("fail-on-stderr")).
		AddProcessor(PrintStdout, conveyor.Before, conveyor.WithHookName("print-stdout"))
}

// PrintAllAfter prints both streams of the unit output.
func PrintAllAfter() *conveyor.Decorator {
	return conveyor.NewDecorator().
		AddProcessor(PrintAll, conveyor.After, conveyor.WithHookName("print-all"))
}

// LogAfter logs the unit output with the given sensitive patterns masked.
func LogAfter(patterns ...string) *conveyor.Decorator {
	return conveyor.NewDecorator().
		AddProcessor(LogStreams(nil, patterns...), conveyor.After, conveyor.WithHookName("log-streams"))
}

// RedirectStdoutAfter writes the unit stdout to path.
func RedirectStdoutAfter(path string, appendMode bool) *conveyor.Decorator {
	return conveyor.NewDecorator().
		AddProcessor(RedirectStdout, conveyor.After,
			conveyor.WithHookName("redirect-stdout"),
			conveyor.WithHookNamed(map[string]any{"path": path, "append": appendMode}))
}

// RedirectStderrAfter writes the unit stderr to path.
func RedirectStderrAfter(path string, appendMode bool) *conveyor.Decorator {
	return conveyor.NewDecorator().
		AddProcessor(RedirectStderr, conveyor.After,
			conveyor.WithHookName("redirect-stderr"),
			conveyor.WithHookNamed(map[string]any{"path": path, "append": appendMode}))
}
