package dag

import (
	"context"
	"fmt"
	"reflect"
	"sync"

	"github.com/google/uuid"

	"github.com/kbukum/cmdflow/errors"
	"github.com/kbukum/cmdflow/logger"
	"github.com/kbukum/cmdflow/observability"
)

// Dag is a named set of startables with ordering constraints, run under
// one Strategy. A Dag is itself a Startable, so dags nest.
//
// Registration is eager and rejects duplicate names, cycles and, under
// isolated strategies, startables that are not portable. The fluent
// Do/Then/When calls remember the first error; after it they do nothing
// and Start returns it.
type Dag struct {
	name     string
	strategy Strategy
	workers  int
	log      *logger.Logger
	metrics  *observability.Metrics
	worker   WorkerCommand

	mu     sync.Mutex
	order  []string
	nodes  map[string]Startable
	succ   map[string][]string
	pred   map[string][]string
	cursor []string
	err    error
}

// Option configures a Dag.
type Option func(*Dag)

// WithWorkers sets the concurrency limit. It is the pool size for
// ThreadPool and ProcessPool, and an optional cap for Async, Thread and
// Multiprocess, which are otherwise unbounded. Sync ignores it.
func WithWorkers(n int) Option {
	return func(d *Dag) { d.workers = n }
}

// WithLogger sets the logger used for run and startable events.
func WithLogger(l *logger.Logger) Option {
	return func(d *Dag) { d.log = l }
}

// WithMetrics records run and startable metrics.
func WithMetrics(m *observability.Metrics) Option {
	return func(d *Dag) { d.metrics = m }
}

// WithWorkerCommand sets the command started for worker processes. The
// default is the current executable.
func WithWorkerCommand(wc WorkerCommand) Option {
	return func(d *Dag) { d.worker = wc }
}

// New creates an empty dag. An invalid strategy is reported by Err and
// Start.
func New(name string, strategy Strategy, opts ...Option) *Dag {
	d := &Dag{
		name:     name,
		strategy: strategy,
		nodes:    make(map[string]Startable),
		succ:     make(map[string][]string),
		pred:     make(map[string][]string),
	}
	for _, opt := range opts {
		opt(d)
	}
	if !strategy.Valid() {
		d.err = errors.InvalidInput("strategy", fmt.Sprintf("unknown strategy %q", strategy))
	}
	if name == "" {
		d.err = errors.InvalidInput("name", "dag name is empty")
	}
	return d
}

// Name returns the dag name.
func (d *Dag) Name() string { return d.name }

// Strategy returns the strategy fixed at construction.
func (d *Dag) Strategy() Strategy { return d.strategy }

// Workers returns the configured concurrency limit, 0 when unset.
func (d *Dag) Workers() int { return d.workers }

// Err returns the first registration error of the fluent API.
func (d *Dag) Err() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.err
}

// ClearErr returns the registration error and makes the dag usable again.
// The failed call was rolled back, so everything registered before it is
// kept, and the selection is the one from before the failed call. Errors
// from New (an invalid name or strategy) are returned but not cleared.
func (d *Dag) ClearErr() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	err := d.err
	if d.strategy.Valid() && d.name != "" {
		d.err = nil
	}
	return err
}

// Do registers startables and makes them the current selection.
//
// A failed Do, Then or When changes nothing and is reported by Err. Later
// fluent calls and Start do nothing but report it until ClearErr or Reset.
func (d *Dag) Do(startables ...Startable) *Dag {
	return d.fluent(func() error {
		names, err := d.registerAll(startables)
		if err != nil {
			return err
		}
		d.cursor = names
		return nil
	})
}

// Then registers successors, orders every current selection before each of
// them, and makes them the current selection.
func (d *Dag) Then(successors ...Startable) *Dag {
	return d.fluent(func() error {
		if len(successors) == 0 {
			return errors.InvalidInput("successors", "Then requires at least one startable")
		}
		names, err := d.registerAll(successors)
		if err != nil {
			return err
		}
		for _, from := range d.cursor {
			for _, to := range names {
				if err := d.addEdge(from, to); err != nil {
					return err
				}
			}
		}
		d.cursor = names
		return nil
	})
}

// When registers predecessors and orders each of them before every current
// selection. The selection does not change.
func (d *Dag) When(predecessors ...Startable) *Dag {
	return d.fluent(func() error {
		if len(predecessors) == 0 {
			return errors.InvalidInput("predecessors", "When requires at least one startable")
		}
		names, err := d.registerAll(predecessors)
		if err != nil {
			return err
		}
		for _, from := range names {
			for _, to := range d.cursor {
				if err := d.addEdge(from, to); err != nil {
					return err
				}
			}
		}
		return nil
	})
}

// Add registers startables without ordering them.
func (d *Dag) Add(startables ...Startable) error {
	return d.atomic(func() error {
		_, err := d.registerAll(startables)
		return err
	})
}

// AddEdge registers both startables and orders from before to.
func (d *Dag) AddEdge(from, to Startable) error {
	return d.atomic(func() error {
		names, err := d.registerAll([]Startable{from, to})
		if err != nil {
			return err
		}
		return d.addEdge(names[0], names[1])
	})
}

// link orders two already registered startables by name.
func (d *Dag) link(from, to string) error {
	return d.atomic(func() error {
		for _, name := range []string{from, to} {
			if _, ok := d.nodes[name]; !ok {
				return errors.NotFound("startable", name)
			}
		}
		return d.addEdge(from, to)
	})
}

// fluent applies fn unless an earlier call failed, and remembers its error.
func (d *Dag) fluent(fn func() error) *Dag {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.err != nil {
		return d
	}
	if err := d.apply(fn); err != nil {
		d.err = err
	}
	return d
}

// atomic applies fn and returns its error without poisoning the dag.
func (d *Dag) atomic(fn func() error) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.err != nil {
		return d.err
	}
	return d.apply(fn)
}

// apply runs fn and restores the graph if it fails. Callers hold d.mu.
func (d *Dag) apply(fn func() error) error {
	snap := d.snapshot()
	if err := fn(); err != nil {
		d.restore(snap)
		return err
	}
	return nil
}

func (d *Dag) registerAll(startables []Startable) ([]string, error) {
	names := make([]string, 0, len(startables))
	for _, s := range startables {
		if err := d.register(s); err != nil {
			return nil, err
		}
		names = append(names, s.Name())
	}
	return names, nil
}

func (d *Dag) register(s Startable) error {
	if s == nil {
		return errors.InvalidInput("startable", "startable is nil")
	}
	name := s.Name()
	if name == "" {
		return errors.InvalidInput("name", "startable name is empty")
	}
	if child, ok := s.(*Dag); ok && child.contains(d) {
		return errors.CyclicDependency(d.name, name).WithDetail("reason", "dag would contain itself")
	}
	if existing, ok := d.nodes[name]; ok {
		if sameStartable(existing, s) {
			return nil
		}
		return errors.DuplicateName(name)
	}
	if d.strategy.Isolated() {
		if _, err := Describe(s); err != nil {
			return err
		}
	}
	d.order = append(d.order, name)
	d.nodes[name] = s
	return nil
}

// contains reports whether target is d or nested anywhere inside it.
func (d *Dag) contains(target *Dag) bool {
	if d == target {
		return true
	}
	for _, s := range d.Startables() {
		if child, ok := s.(*Dag); ok && child.contains(target) {
			return true
		}
	}
	return false
}

func sameStartable(a, b Startable) bool {
	ta, tb := reflect.TypeOf(a), reflect.TypeOf(b)
	if ta != tb || !ta.Comparable() {
		return false
	}
	return a == b
}

func (d *Dag) addEdge(from, to string) error {
	if from == to {
		return errors.CyclicDependency(from, to)
	}
	for _, s := range d.succ[from] {
		if s == to {
			return nil
		}
	}
	if reachable(d.succ, to, from) {
		return errors.CyclicDependency(from, to)
	}
	d.succ[from] = append(d.succ[from], to)
	d.pred[to] = append(d.pred[to], from)
	return nil
}

type snapshot struct {
	order  []string
	nodes  map[string]Startable
	succ   map[string][]string
	pred   map[string][]string
	cursor []string
}

func (d *Dag) snapshot() snapshot {
	s := snapshot{
		order:  append([]string(nil), d.order...),
		nodes:  make(map[string]Startable, len(d.nodes)),
		succ:   copyAdjacency(d.succ),
		pred:   copyAdjacency(d.pred),
		cursor: append([]string(nil), d.cursor...),
	}
	for k, v := range d.nodes {
		s.nodes[k] = v
	}
	return s
}

func (d *Dag) restore(s snapshot) {
	d.order, d.nodes, d.succ, d.pred, d.cursor = s.order, s.nodes, s.succ, s.pred, s.cursor
}

func copyAdjacency(m map[string][]string) map[string][]string {
	out := make(map[string][]string, len(m))
	for k, v := range m {
		out[k] = append([]string(nil), v...)
	}
	return out
}

// Names returns the registered names in registration order.
func (d *Dag) Names() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]string(nil), d.order...)
}

// Startables returns the registered startables in registration order.
func (d *Dag) Startables() []Startable {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]Startable, 0, len(d.order))
	for _, name := range d.order {
		out = append(out, d.nodes[name])
	}
	return out
}

// Startable returns the startable registered under name.
func (d *Dag) Startable(name string) (Startable, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	s, ok := d.nodes[name]
	return s, ok
}

// Edges returns every ordering constraint, grouped by source in
// registration order.
func (d *Dag) Edges() []Edge {
	d.mu.Lock()
	defer d.mu.Unlock()
	var edges []Edge
	for _, from := range d.order {
		for _, to := range d.succ[from] {
			edges = append(edges, Edge{From: from, To: to})
		}
	}
	return edges
}

// Predecessors returns the names that must complete before name starts.
func (d *Dag) Predecessors(name string) []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]string(nil), d.pred[name]...)
}

// Successors returns the names that wait for name.
func (d *Dag) Successors(name string) []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]string(nil), d.succ[name]...)
}

// SortedNames returns a topological order. Ties are broken by registration
// order, which is also the order Sync runs in.
func (d *Dag) SortedNames() []string {
	p := d.plan()
	return topoOrder(p.order, p.succ, p.pred)
}

// Levels groups names so that every name depends only on earlier levels.
func (d *Dag) Levels() [][]string {
	p := d.plan()
	return levels(p.order, p.succ, p.pred)
}

// Remove unregisters s and every edge touching it.
func (d *Dag) Remove(s Startable) {
	d.mu.Lock()
	defer d.mu.Unlock()
	name := s.Name()
	if existing, ok := d.nodes[name]; !ok || !sameStartable(existing, s) {
		return
	}
	delete(d.nodes, name)
	d.order = without(d.order, name)
	d.cursor = without(d.cursor, name)
	for _, to := range d.succ[name] {
		d.pred[to] = without(d.pred[to], name)
	}
	for _, from := range d.pred[name] {
		d.succ[from] = without(d.succ[from], name)
	}
	delete(d.succ, name)
	delete(d.pred, name)
}

// Reset unregisters everything and clears the registration error.
func (d *Dag) Reset() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.order = nil
	d.nodes = make(map[string]Startable)
	d.succ = make(map[string][]string)
	d.pred = make(map[string][]string)
	d.cursor = nil
	if d.strategy.Valid() && d.name != "" {
		d.err = nil
	}
}

func without(names []string, name string) []string {
	out := names[:0:0]
	for _, n := range names {
		if n != name {
			out = append(out, n)
		}
	}
	return out
}

// plan is an immutable copy of the graph taken when a run begins.
type plan struct {
	order []string
	nodes map[string]Startable
	succ  map[string][]string
	pred  map[string][]string
	err   error
}

func (d *Dag) plan() plan {
	d.mu.Lock()
	defer d.mu.Unlock()
	s := d.snapshot()
	return plan{order: s.order, nodes: s.nodes, succ: s.succ, pred: s.pred, err: d.err}
}

// Describe returns the portable form of the dag and everything in it.
func (d *Dag) Describe() (Descriptor, error) {
	p := d.plan()
	if p.err != nil {
		return Descriptor{}, p.err
	}
	spec := &DagSpec{Strategy: d.strategy, Workers: d.workers, Startables: make([]Descriptor, 0, len(p.order))}
	for _, name := range p.order {
		desc, err := Describe(p.nodes[name])
		if err != nil {
			return Descriptor{}, err
		}
		spec.Startables = append(spec.Startables, desc)
		for _, to := range p.succ[name] {
			spec.Edges = append(spec.Edges, Edge{From: name, To: to})
		}
	}
	return Descriptor{Kind: KindDag, Name: d.name, Dag: spec}, nil
}

func (d *Dag) eventLogger() *logger.Logger {
	if d.log != nil {
		return d.log
	}
	return logger.Get("dag")
}

// Start runs every registered startable, honoring the ordering
// constraints. A failed startable skips its transitive dependents while
// independent branches keep running.
//
// The Result carries an Outcome for every registered startable. The error
// is the registration error, if any, or a *RunError when something failed
// or was skipped. Cancelling ctx does not interrupt a run in progress.
func (d *Dag) Start(ctx context.Context) (Result, error) {
	p := d.plan()
	if p.err != nil {
		return Result{}, p.err
	}

	runID := logger.RunIDFromContext(ctx)
	if runID == "" {
		runID = uuid.NewString()
		ctx = logger.ContextWithRunID(ctx, runID)
	}
	ctx = logger.ContextWithDag(ctx, d.name)

	rc := observability.NewRunContext(d.name, d.strategy.String(), runID, d.metrics)
	ctx, span := rc.StartSpanForRun(ctx, "dag."+d.name+".start")
	log := d.eventLogger().WithContext(ctx).WithFields(logger.Fields(logger.FieldStrategy, d.strategy.String()))
	log.Debug("dag run started", logger.Fields("startables", len(p.order)))

	// Startables and worker processes outlive a cancelled ctx.
	run := context.WithoutCancel(ctx)
	disp, err := d.dispatcher(run, len(p.order))
	if err != nil {
		log.Error("dag run could not start", logger.MergeWithError(nil, err))
		rc.EndRun(ctx, span, string(StatusFailed), err)
		return Result{}, err
	}

	outcomes := d.schedule(run, p, disp, log)
	if cerr := disp.close(); cerr != nil {
		log.Warn("dispatcher did not shut down cleanly", logger.MergeWithError(nil, cerr))
	}

	err = runError(d.name, p.order, outcomes)
	status := StatusCompleted
	if err != nil {
		status = StatusFailed
	}
	fields := logger.Fields(
		logger.FieldStatus, string(status),
		"completed", len(outcomes.Names(StatusCompleted)),
		"failed", len(outcomes.Names(StatusFailed)),
		"skipped", len(outcomes.Names(StatusSkipped)),
	)
	fields = logger.MergeWithDuration(fields, rc.Duration())
	if err != nil {
		log.Warn("dag run finished with failures", logger.MergeWithError(fields, err))
	} else {
		log.Info("dag run finished", fields)
	}
	rc.EndRun(ctx, span, string(status), err)
	return Result{Children: outcomes}, err
}

// Run is Start returning the outcomes directly.
func (d *Dag) Run(ctx context.Context) (Outcomes, error) {
	res, err := d.Start(ctx)
	return res.Children, err
}

func (d *Dag) dispatcher(ctx context.Context, tasks int) (dispatcher, error) {
	n := d.strategy.workers(d.workers)
	switch d.strategy {
	case Sync:
		return newSyncDispatcher(), nil
	case Async:
		return newAsyncDispatcher(n, tasks), nil
	case Thread:
		return newThreadDispatcher(n, tasks), nil
	case ThreadPool:
		return newPoolDispatcher(n, tasks), nil
	case Multiprocess:
		return newMultiprocessDispatcher(d.worker, n, tasks), nil
	case ProcessPool:
		if tasks < n {
			n = tasks
		}
		return newProcessPoolDispatcher(ctx, d.worker, n, tasks, d.eventLogger())
	}
	return nil, errors.InvalidInput("strategy", fmt.Sprintf("unknown strategy %q", d.strategy))
}
