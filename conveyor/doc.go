// Package conveyor composes opaque command units into linear pipelines.
//
// A CommandUnit turns a stdout/stderr Pair into a new Pair. A Decorator
// wraps a unit with hooks evaluated in a fixed order:
//
//	pre-modifiers, pre-processors, unit, post-modifiers, post-processors
//
// A Conveyor chains units so that each stage consumes the Pair produced by
// the previous one:
//
//	c := conveyor.New().
//		AddCmdRunner(upper).
//		AddCmdRunner(lower, conveyor.WithDecorator(hooks.PrintAllAfter()))
//	out, err := c.Run(ctx, conveyor.FromStrings("Hello", ""))
//
// Units and decorators registered by name can be described with Spec and
// rebuilt elsewhere with FromSpec, which is how work crosses into worker
// processes.
package conveyor
