// Package dag schedules startables in dependency order.
//
// A Startable is anything with a name that can be started: a Node, which
// runs a conveyor, or a Dag, which runs its own graph. A Dag is built with
// a fluent API. Do selects startables, Then adds edges from the selection
// and moves the selection forward, When adds edges into the selection:
//
//	d := dag.New("release", dag.ThreadPool).
//		Do(fetch).Then(build, lint).Then(publish)
//	if err := d.Err(); err != nil {
//		return err
//	}
//	outcomes, err := d.Run(ctx)
//
// A failed registration leaves the graph unchanged and makes later fluent
// calls inert until Reset.
//
// Six strategies share one scheduler:
//   - Sync runs one startable at a time in SortedNames order
//   - Async interleaves startables on a single slot released by conveyor.Await
//   - Thread runs each startable on its own goroutine
//   - ThreadPool runs startables on a bounded goroutine pool
//   - Multiprocess runs each startable in a fresh worker process
//   - ProcessPool runs startables on a fixed set of worker processes
//
// A startable starts only after all of its predecessors completed. When
// one fails its transitive dependents are skipped with DEPENDENCY_FAILED
// and independent branches keep running. Start reports an Outcome for
// every startable and a *RunError when anything failed or was skipped.
//
// Worker strategies send a Descriptor of each startable to a copy of the
// current binary, so only conveyors built from registered units and
// decorators can run there. Binaries using them must call
// ServeWorkerProcess early in main when IsWorkerProcess reports true.
//
// Pipelines can also be declared in YAML and turned into a Dag with
// ResolvePipeline.
package dag
