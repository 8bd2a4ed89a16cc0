package dag

import (
	"context"
	stderrors "errors"
	"reflect"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/kbukum/cmdflow/conveyor"
	"github.com/kbukum/cmdflow/errors"
)

// diamond builds a -> (b, c) -> e with a fixed output per node.
func diamond(name string, s Strategy, opts ...Option) *Dag {
	a, b, c, e := emitNode("a", "A"), emitNode("b", "B"), emitNode("c", "C"), emitNode("e", "E")
	return New(name, s, opts...).Do(a).Then(b, c).Then(e)
}

func TestStrategiesProduceIdenticalResults(t *testing.T) {
	want, err := diamond("ref", Sync).Run(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	for _, s := range Strategies() {
		t.Run(string(s), func(t *testing.T) {
			got, err := diamond("same", s, WithWorkers(2)).Run(context.Background())
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if len(got) != len(want) {
				t.Fatalf("expected %d outcomes, got %d", len(want), len(got))
			}
			for name := range want {
				if mustOutput(t, got, name) != mustOutput(t, want, name) {
					t.Errorf("%s: expected %q, got %q", name, mustOutput(t, want, name), mustOutput(t, got, name))
				}
				if got[name].Status != StatusCompleted {
					t.Errorf("%s: expected completed, got %s", name, got[name].Status)
				}
			}
		})
	}
}

func TestSuccessorsStartAfterPredecessors(t *testing.T) {
	for _, s := range Strategies() {
		t.Run(string(s), func(t *testing.T) {
			dir := t.TempDir()
			a, b, c := stampNode(dir, "a", 20), stampNode(dir, "b", 20), stampNode(dir, "c", 5)
			e := stampNode(dir, "e", 0)
			if _, err := New("order", s).Do(a, b).Then(c).Then(e).Start(context.Background()); err != nil {
				t.Fatalf("unexpected error: %v", err)
			}

			edges := [][2]string{{"a", "c"}, {"b", "c"}, {"c", "e"}}
			for _, edge := range edges {
				from, to := readStamp(t, dir, edge[0]), readStamp(t, dir, edge[1])
				if to.start < from.end {
					t.Errorf("%s started before %s finished", edge[1], edge[0])
				}
			}
		})
	}
}

func TestSyncRunsInSortedOrder(t *testing.T) {
	var mu sync.Mutex
	var ran []string
	record := func(name string) *Node {
		return localNode(name, func(context.Context) error {
			mu.Lock()
			ran = append(ran, name)
			mu.Unlock()
			return nil
		})
	}
	d := New("sorted", Sync).Do(record("a")).Then(record("c"), record("b")).Then(record("e"))
	if _, err := d.Run(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !reflect.DeepEqual(ran, d.SortedNames()) {
		t.Fatalf("expected run order %v, got %v", d.SortedNames(), ran)
	}
}

func TestFailureSkipsOnlyDependents(t *testing.T) {
	for _, s := range Strategies() {
		t.Run(string(s), func(t *testing.T) {
			d := New("partial", s).
				Do(failNode("a")).Then(emitNode("b", "B")).Then(emitNode("c", "C"))
			d.Do(emitNode("x", "X"))

			outcomes, err := d.Run(context.Background())
			var re *RunError
			if !stderrors.As(err, &re) {
				t.Fatalf("expected *RunError, got %v", err)
			}
			if !reflect.DeepEqual(re.Failed, []string{"a"}) || !reflect.DeepEqual(re.Skipped, []string{"b", "c"}) {
				t.Fatalf("unexpected run error %+v", re)
			}
			if !errors.Is(err, errors.ErrCommandFailed) {
				t.Fatalf("expected the failure cause to unwrap, got %v", err)
			}

			if outcomes["a"].Status != StatusFailed {
				t.Errorf("expected a failed, got %s", outcomes["a"].Status)
			}
			for _, name := range []string{"b", "c"} {
				if outcomes[name].Status != StatusSkipped || !errors.Is(outcomes[name].Err, errors.ErrDependencyFailed) {
					t.Errorf("expected %s skipped by dependency, got %+v", name, outcomes[name])
				}
			}
			if mustOutput(t, outcomes, "x") != "X" {
				t.Errorf("expected independent branch to complete, got %+v", outcomes["x"])
			}
		})
	}
}

func TestPanicBecomesInternalError(t *testing.T) {
	for _, s := range Strategies() {
		t.Run(string(s), func(t *testing.T) {
			n := NewNode("boom", conveyor.New().AddCmdRunner(panicUnit))
			outcomes, err := New("panics", s).Do(n).Run(context.Background())
			if err == nil {
				t.Fatal("expected an error")
			}
			if got := errors.CodeOf(outcomes["boom"].Err); got != errors.ErrCodeInternal {
				t.Fatalf("expected internal error, got %v", outcomes["boom"].Err)
			}
		})
	}
}

func TestNestedDag(t *testing.T) {
	for _, s := range []Strategy{Sync, Thread, ProcessPool} {
		t.Run(string(s), func(t *testing.T) {
			inner := New("inner", Thread).Do(emitNode("x", "X")).Then(emitNode("y", "Y"))
			outer := New("outer", s).Do(emitNode("pre", "P")).Then(inner).Then(emitNode("post", "Q"))

			outcomes, err := outer.Run(context.Background())
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			children := outcomes["inner"].Result.Children
			if len(children) != 2 || mustOutput(t, children, "y") != "Y" {
				t.Fatalf("expected nested outcomes, got %+v", outcomes["inner"])
			}
			if mustOutput(t, outcomes, "post") != "Q" {
				t.Fatalf("expected post to run after inner, got %+v", outcomes["post"])
			}
		})
	}
}

func TestNestedFailureReachesParent(t *testing.T) {
	inner := New("inner", Sync).Do(failNode("bad"))
	outer := New("outer", Sync).Do(inner).Then(emitNode("post", ""))

	outcomes, err := outer.Run(context.Background())
	var re *RunError
	if !stderrors.As(err, &re) || !reflect.DeepEqual(re.Failed, []string{"inner"}) {
		t.Fatalf("expected inner to fail the parent, got %v", err)
	}
	if outcomes["post"].Status != StatusSkipped {
		t.Fatalf("expected post skipped, got %s", outcomes["post"].Status)
	}
	if outcomes["inner"].Result.Children["bad"].Status != StatusFailed {
		t.Fatalf("expected the nested outcome to be kept, got %+v", outcomes["inner"])
	}
}

func TestAsyncNeverRunsTwoAtOnce(t *testing.T) {
	var running, peak atomic.Int32
	enter := func() {
		if n := running.Add(1); n > peak.Load() {
			peak.Store(n)
		}
	}
	busy := func(name string) *Node {
		return localNode(name, func(ctx context.Context) error {
			enter()
			time.Sleep(5 * time.Millisecond)
			running.Add(-1)
			_ = conveyor.Await(ctx, func() error {
				time.Sleep(80 * time.Millisecond)
				return nil
			})
			enter()
			time.Sleep(5 * time.Millisecond)
			running.Add(-1)
			return nil
		})
	}

	d := New("coop", Async).Do(busy("a"), busy("b"), busy("c"), busy("d"))
	start := time.Now()
	if _, err := d.Run(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if peak.Load() != 1 {
		t.Fatalf("expected at most one startable running outside Await, saw %d", peak.Load())
	}
	// Four 80ms waits interleave; sequential would take at least 320ms.
	if elapsed := time.Since(start); elapsed > 300*time.Millisecond {
		t.Fatalf("expected waits to overlap, took %v", elapsed)
	}
}

func TestThreadRunsConcurrently(t *testing.T) {
	for _, s := range []Strategy{Thread, ThreadPool} {
		t.Run(string(s), func(t *testing.T) {
			sleepy := func(name string) *Node {
				return localNode(name, func(context.Context) error {
					time.Sleep(80 * time.Millisecond)
					return nil
				})
			}
			start := time.Now()
			d := New("parallel", s, WithWorkers(4)).Do(sleepy("a"), sleepy("b"), sleepy("c"), sleepy("d"))
			if _, err := d.Run(context.Background()); err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if elapsed := time.Since(start); elapsed > 300*time.Millisecond {
				t.Fatalf("expected parallel execution, took %v", elapsed)
			}
		})
	}
}

func TestThreadPoolRespectsLimit(t *testing.T) {
	var running, peak atomic.Int32
	node := func(name string) *Node {
		return localNode(name, func(context.Context) error {
			n := running.Add(1)
			for {
				p := peak.Load()
				if n <= p || peak.CompareAndSwap(p, n) {
					break
				}
			}
			time.Sleep(20 * time.Millisecond)
			running.Add(-1)
			return nil
		})
	}
	d := New("limited", ThreadPool, WithWorkers(2))
	for _, name := range []string{"a", "b", "c", "d", "e", "f"} {
		d.Do(node(name))
	}
	if _, err := d.Run(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if peak.Load() > 2 {
		t.Fatalf("expected at most 2 concurrent startables, saw %d", peak.Load())
	}
}

func TestCancelledContextDoesNotInterruptRun(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	var sawCancel atomic.Bool
	n := localNode("n", func(ctx context.Context) error {
		sawCancel.Store(ctx.Err() != nil)
		return nil
	})
	if _, err := New("uncancelled", Thread).Do(n).Run(ctx); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if sawCancel.Load() {
		t.Fatal("expected startables to run with a live context")
	}
}

func TestCancelMidRunLetsStartablesFinish(t *testing.T) {
	for _, s := range Strategies() {
		t.Run(string(s), func(t *testing.T) {
			dir := t.TempDir()
			ctx, cancel := context.WithCancel(context.Background())
			timer := time.AfterFunc(150*time.Millisecond, cancel)
			defer timer.Stop()
			defer cancel()

			outcomes, err := New("cancelled", s).Do(stampNode(dir, "a", 600)).Then(emitNode("b", "B")).Run(ctx)
			if err != nil {
				t.Fatalf("expected the run to complete, got %v", err)
			}
			if ctx.Err() == nil {
				t.Fatal("expected ctx to be cancelled during the run")
			}
			for _, name := range []string{"a", "b"} {
				if outcomes[name].Status != StatusCompleted {
					t.Errorf("%s: expected completed, got %s (%v)", name, outcomes[name].Status, outcomes[name].Err)
				}
			}
			readStamp(t, dir, "a")
		})
	}
}

func TestCancelledBeforeRunStillStarts(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	for _, s := range Strategies() {
		t.Run(string(s), func(t *testing.T) {
			if _, err := New("precancelled", s).Do(emitNode("a", "A")).Run(ctx); err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
		})
	}
}

func TestArgumentTypesMatchAcrossStrategies(t *testing.T) {
	node := func() *Node {
		return NewNode("types", conveyor.New().AddCmdRunner(typesUnit, conveyor.WithNamed(map[string]any{
			"text":  []byte("hi"),
			"count": 3,
			"big":   int64(1) << 60,
			"list":  []string{"a", "b"},
			"env":   map[string]string{"K": "V"},
			"rate":  0.5,
		})))
	}
	want, err := New("ref", Sync).Do(node()).Run(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	ref := mustOutput(t, want, "types")
	if !strings.Contains(ref, "count=int:3;") || !strings.Contains(ref, "text=[]uint8:[104 105];") {
		t.Fatalf("unexpected reference output %q", ref)
	}

	for _, s := range Strategies() {
		t.Run(string(s), func(t *testing.T) {
			got, err := New("typed", s).Do(node()).Run(context.Background())
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if out := mustOutput(t, got, "types"); out != ref {
				t.Fatalf("expected %q, got %q", ref, out)
			}
		})
	}
}

func TestIsolatedStrategiesRejectUnportableArguments(t *testing.T) {
	n := NewNode("bad", conveyor.New().AddCmdRunner(emitUnit, conveyor.WithNamed(map[string]any{"text": struct{}{}})))
	for _, s := range []Strategy{Multiprocess, ProcessPool} {
		d := New("strict", s).Do(n)
		if !errors.Is(d.Err(), errors.ErrSerialization) {
			t.Fatalf("%s: expected serialization error, got %v", s, d.Err())
		}
	}
	if err := New("local", Thread).Do(n).Err(); err != nil {
		t.Fatalf("expected local strategies to accept any argument, got %v", err)
	}
}

func TestEmptyDag(t *testing.T) {
	for _, s := range Strategies() {
		outcomes, err := New("empty", s).Run(context.Background())
		if err != nil || len(outcomes) != 0 {
			t.Fatalf("%s: expected empty outcomes, got %v %v", s, outcomes, err)
		}
	}
}

func TestWorkerStartFailure(t *testing.T) {
	missing := WithWorkerCommand(WorkerCommand{Path: "/nonexistent/cmdflow-worker"})

	outcomes, err := New("mp", Multiprocess, missing).Do(emitNode("a", "A")).Run(context.Background())
	if err == nil || !errors.Is(outcomes["a"].Err, errors.ErrWorkerFailed) {
		t.Fatalf("expected worker failure outcome, got %+v %v", outcomes["a"], err)
	}

	if _, err := New("pp", ProcessPool, missing).Do(emitNode("a", "A")).Run(context.Background()); !errors.Is(err, errors.ErrWorkerFailed) {
		t.Fatalf("expected pool start failure, got %v", err)
	}
}
