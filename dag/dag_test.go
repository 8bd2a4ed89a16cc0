package dag

import (
	"context"
	"reflect"
	"testing"

	"github.com/kbukum/cmdflow/conveyor"
	"github.com/kbukum/cmdflow/errors"
)

func TestDoThenBuildsEdges(t *testing.T) {
	a, b, c := emitNode("a", "A"), emitNode("b", "B"), emitNode("c", "C")
	d := New("fanout", Sync).Do(a).Then(b, c)
	if err := d.Err(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := []Edge{{From: "a", To: "b"}, {From: "a", To: "c"}}
	if got := d.Edges(); !reflect.DeepEqual(got, want) {
		t.Fatalf("expected edges %v, got %v", want, got)
	}
	if got := d.Names(); !reflect.DeepEqual(got, []string{"a", "b", "c"}) {
		t.Fatalf("expected registration order, got %v", got)
	}
	if got := d.Predecessors("c"); !reflect.DeepEqual(got, []string{"a"}) {
		t.Fatalf("expected a before c, got %v", got)
	}
}

func TestThenMovesSelection(t *testing.T) {
	a, b, c := emitNode("a", ""), emitNode("b", ""), emitNode("c", "")
	d := New("chain", Sync).Do(a).Then(b).Then(c)

	want := []Edge{{From: "a", To: "b"}, {From: "b", To: "c"}}
	if got := d.Edges(); !reflect.DeepEqual(got, want) {
		t.Fatalf("expected edges %v, got %v", want, got)
	}
}

func TestWhenKeepsSelection(t *testing.T) {
	a, b, c, e := emitNode("a", ""), emitNode("b", ""), emitNode("c", ""), emitNode("e", "")
	d := New("join", Sync).Do(c).When(a, b).Then(e)
	if err := d.Err(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if got := d.Predecessors("c"); !reflect.DeepEqual(got, []string{"a", "b"}) {
		t.Fatalf("expected a and b before c, got %v", got)
	}
	if got := d.Predecessors("e"); !reflect.DeepEqual(got, []string{"c"}) {
		t.Fatalf("expected c before e, got %v", got)
	}
}

func TestCycleRejected(t *testing.T) {
	a, b := emitNode("a", ""), emitNode("b", "")
	d := New("cycle", Sync)
	d.Do(a).Then(b)
	d.Do(b).Then(a)

	err := d.Err()
	if !errors.Is(err, errors.ErrCyclicDependency) {
		t.Fatalf("expected cyclic dependency, got %v", err)
	}
	if got := d.Edges(); !reflect.DeepEqual(got, []Edge{{From: "a", To: "b"}}) {
		t.Fatalf("expected edge set unchanged, got %v", got)
	}
	if _, err := d.Start(context.Background()); !errors.Is(err, errors.ErrCyclicDependency) {
		t.Fatalf("expected Start to report the registration error, got %v", err)
	}
}

func TestSelfEdgeRejected(t *testing.T) {
	a := emitNode("a", "")
	d := New("self", Sync)
	err := d.AddEdge(a, a)
	if !errors.Is(err, errors.ErrCyclicDependency) {
		t.Fatalf("expected cyclic dependency, got %v", err)
	}
	if len(d.Names()) != 0 {
		t.Fatalf("expected registration rolled back, got %v", d.Names())
	}
	// The non-fluent form does not poison the dag.
	if err := d.Add(a); err != nil {
		t.Fatalf("unexpected error after failed AddEdge: %v", err)
	}
}

func TestFailedCallRollsBack(t *testing.T) {
	a, b, c := emitNode("a", ""), emitNode("b", ""), emitNode("c", "")
	d := New("rollback", Sync)
	if err := d.AddEdge(a, b); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// b -> c is fine, b -> a closes a cycle; neither may remain.
	d.Do(b).Then(c, a)
	if !errors.Is(d.Err(), errors.ErrCyclicDependency) {
		t.Fatalf("expected cyclic dependency, got %v", d.Err())
	}
	if got := d.Names(); !reflect.DeepEqual(got, []string{"a", "b"}) {
		t.Fatalf("expected c rolled back, got %v", got)
	}
	if got := d.Edges(); !reflect.DeepEqual(got, []Edge{{From: "a", To: "b"}}) {
		t.Fatalf("expected only a -> b, got %v", got)
	}
}

func TestLaterCallsAreInert(t *testing.T) {
	a, b := emitNode("a", ""), emitNode("b", "")
	d := New("inert", Sync).Do(a).Then(a).Then(b)
	if !errors.Is(d.Err(), errors.ErrCyclicDependency) {
		t.Fatalf("expected cyclic dependency, got %v", d.Err())
	}
	if _, ok := d.Startable("b"); ok {
		t.Fatal("expected calls after the error to do nothing")
	}
}

func TestClearErrKeepsValidRegistrations(t *testing.T) {
	a, b, c := emitNode("a", "A"), emitNode("b", "B"), emitNode("c", "C")
	d := New("recover", Sync).Do(a).Then(b).Then(a)
	if _, err := d.Run(context.Background()); !errors.Is(err, errors.ErrCyclicDependency) {
		t.Fatalf("expected start to report the cycle, got %v", err)
	}

	if err := d.ClearErr(); !errors.Is(err, errors.ErrCyclicDependency) {
		t.Fatalf("expected ClearErr to return the cycle, got %v", err)
	}
	if d.Err() != nil {
		t.Fatalf("expected no error after ClearErr, got %v", d.Err())
	}
	d.Then(c)
	if err := d.Err(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := d.Edges(); !reflect.DeepEqual(got, []Edge{{From: "a", To: "b"}, {From: "b", To: "c"}}) {
		t.Fatalf("expected a -> b -> c, got %v", got)
	}
	outcomes, err := d.Run(context.Background())
	if err != nil || mustOutput(t, outcomes, "c") != "C" {
		t.Fatalf("expected the dag to run, got %v %v", outcomes, err)
	}

	bad := New("", Sync)
	if bad.ClearErr() == nil || bad.Err() == nil {
		t.Fatal("expected construction errors to stay")
	}
}

func TestDuplicateName(t *testing.T) {
	first := emitNode("build", "1")
	d := New("dup", Sync).Do(first).Do(first)
	if err := d.Err(); err != nil {
		t.Fatalf("expected re-registering the same node to be a no-op, got %v", err)
	}

	d.Do(emitNode("build", "2"))
	if !errors.Is(d.Err(), errors.ErrDuplicateName) {
		t.Fatalf("expected duplicate name error, got %v", d.Err())
	}
	if s, _ := d.Startable("build"); s != first {
		t.Fatal("expected the first startable to stay registered")
	}
}

func TestInvalidRegistrations(t *testing.T) {
	cases := []struct {
		name string
		dag  *Dag
		code errors.ErrorCode
	}{
		{"nil startable", New("x", Sync).Do(nil), errors.ErrCodeInvalidInput},
		{"empty name", New("x", Sync).Do(emitNode("", "")), errors.ErrCodeInvalidInput},
		{"empty then", New("x", Sync).Do(emitNode("a", "")).Then(), errors.ErrCodeInvalidInput},
		{"unknown strategy", New("x", Strategy("fibers")), errors.ErrCodeInvalidInput},
		{"empty dag name", New("", Sync), errors.ErrCodeInvalidInput},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := errors.CodeOf(tc.dag.Err()); got != tc.code {
				t.Fatalf("expected %s, got %v", tc.code, tc.dag.Err())
			}
		})
	}
}

func TestDagCannotContainItself(t *testing.T) {
	outer := New("outer", Sync)
	if err := outer.Add(outer); !errors.Is(err, errors.ErrCyclicDependency) {
		t.Fatalf("expected cyclic dependency, got %v", err)
	}

	inner := New("inner", Sync)
	if err := outer.Add(inner); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := inner.Add(outer); !errors.Is(err, errors.ErrCyclicDependency) {
		t.Fatalf("expected nesting cycle to be rejected, got %v", err)
	}
}

func TestNonPortableRejectedUnderIsolation(t *testing.T) {
	local := localNode("local", func(context.Context) error { return nil })
	for _, s := range Strategies() {
		t.Run(string(s), func(t *testing.T) {
			err := New("iso", s).Do(local).Err()
			if s.Isolated() {
				if !errors.Is(err, errors.ErrSerialization) {
					t.Fatalf("expected serialization error, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
		})
	}
}

func TestSortedNamesAndLevels(t *testing.T) {
	a, b, c, e := emitNode("a", ""), emitNode("b", ""), emitNode("c", ""), emitNode("e", "")
	d := New("diamond", Sync).Do(a).Then(c, b).Then(e)

	if got := d.SortedNames(); !reflect.DeepEqual(got, []string{"a", "c", "b", "e"}) {
		t.Fatalf("unexpected order %v", got)
	}
	want := [][]string{{"a"}, {"c", "b"}, {"e"}}
	if got := d.Levels(); !reflect.DeepEqual(got, want) {
		t.Fatalf("expected levels %v, got %v", want, got)
	}
}

func TestRemoveAndReset(t *testing.T) {
	a, b, c := emitNode("a", ""), emitNode("b", ""), emitNode("c", "")
	d := New("edit", Sync).Do(a).Then(b).Then(c)

	d.Remove(b)
	if got := d.Names(); !reflect.DeepEqual(got, []string{"a", "c"}) {
		t.Fatalf("expected b removed, got %v", got)
	}
	if len(d.Edges()) != 0 {
		t.Fatalf("expected edges through b removed, got %v", d.Edges())
	}

	d.Do(a).Then(a)
	if d.Err() == nil {
		t.Fatal("expected an error before Reset")
	}
	d.Reset()
	if d.Err() != nil || len(d.Names()) != 0 {
		t.Fatalf("expected an empty healthy dag, got %v %v", d.Names(), d.Err())
	}
}

func TestDescribeAndBuild(t *testing.T) {
	inner := New("inner", Thread).Do(emitNode("x", "X")).Then(emitNode("y", "Y"))
	outer := New("outer", Sync, WithWorkers(3)).Do(emitNode("pre", "P")).Then(inner)

	desc, err := outer.Describe()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if desc.Kind != KindDag || desc.Dag.Workers != 3 || len(desc.Dag.Startables) != 2 {
		t.Fatalf("unexpected descriptor %+v", desc)
	}

	rebuilt, err := Build(desc, nil)
	if err != nil {
		t.Fatalf("unexpected build error: %v", err)
	}
	d := rebuilt.(*Dag)
	if !reflect.DeepEqual(d.Edges(), outer.Edges()) || d.Strategy() != Sync {
		t.Fatalf("expected identical graph, got %v", d.Edges())
	}
	child, _ := d.Startable("inner")
	if got := child.(*Dag).Edges(); !reflect.DeepEqual(got, []Edge{{From: "x", To: "y"}}) {
		t.Fatalf("expected nested edges, got %v", got)
	}
}

func TestDescribeRejectsUnregisteredUnits(t *testing.T) {
	_, err := Describe(localNode("local", func(context.Context) error { return nil }))
	if !errors.Is(err, errors.ErrSerialization) {
		t.Fatalf("expected serialization error, got %v", err)
	}
}

func TestBuildUnknownUnit(t *testing.T) {
	desc := Descriptor{Kind: KindNode, Name: "n", Node: &NodeSpec{Conveyor: conveyor.Spec{
		Stages: []conveyor.StageSpec{{Unit: "dagtest.missing"}},
	}}}
	if _, err := Build(desc, nil); !errors.Is(err, errors.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
	if _, err := Build(Descriptor{Kind: "task"}, nil); !errors.Is(err, errors.ErrInvalidInput) {
		t.Fatalf("expected invalid kind, got %v", err)
	}
}

func TestParseStrategy(t *testing.T) {
	cases := map[string]Strategy{
		"sync":         Sync,
		"Async":        Async,
		"THREAD":       Thread,
		"thread_pool":  ThreadPool,
		"ThreadPool":   ThreadPool,
		"multiprocess": Multiprocess,
		"process-pool": ProcessPool,
	}
	for in, want := range cases {
		got, err := ParseStrategy(in)
		if err != nil || got != want {
			t.Errorf("ParseStrategy(%q): expected %s, got %s, %v", in, want, got, err)
		}
	}
	if _, err := ParseStrategy("fibers"); !errors.Is(err, errors.ErrInvalidInput) {
		t.Fatalf("expected invalid input, got %v", err)
	}
}

func TestStrategyWorkers(t *testing.T) {
	if Sync.workers(8) != 1 {
		t.Error("expected Sync to ignore workers")
	}
	if ThreadPool.workers(0) != DefaultThreadWorkers || ProcessPool.workers(0) != DefaultProcessWorkers {
		t.Error("expected pool defaults")
	}
	if Thread.workers(0) != 0 || Multiprocess.workers(0) != 0 || Async.workers(0) != 0 {
		t.Error("expected unbounded defaults")
	}
	if Multiprocess.workers(2) != 2 {
		t.Error("expected explicit cap")
	}
}
