// Package hooks provides ready-made processors for conveyor decorators:
// printing, logging with secret masking, redirection to files and failing
// on stderr output.
//
// Hooks read their settings from the arguments bound when they are added,
// so decorators built from them can be registered by name and shipped to
// worker processes:
//
//	d := conveyor.NewDecorator().
//		AddProcessor(hooks.RedirectStdout, conveyor.After,
//			conveyor.WithHookNamed(map[string]any{"path": "build.log", "append": true}))
//
// The presets RaiseAndPrint, PrintAllAfter and LogAfter are registered in
// conveyor.DefaultRegistry as hooks.raise-and-print, hooks.print-all and
// hooks.log.
package hooks
