package dag

import (
	"strings"

	"github.com/kbukum/cmdflow/errors"
)

// Strategy selects how a Dag drains its ready set.
type Strategy string

const (
	// Sync runs one startable at a time on the caller goroutine.
	Sync Strategy = "sync"
	// Async interleaves startables on a single execution slot. A startable
	// gives up the slot only while it waits inside conveyor.Await.
	Async Strategy = "async"
	// Thread runs every ready startable on its own goroutine.
	Thread Strategy = "thread"
	// ThreadPool runs ready startables on a fixed number of goroutines.
	ThreadPool Strategy = "threadpool"
	// Multiprocess runs every ready startable in a fresh worker process.
	Multiprocess Strategy = "multiprocess"
	// ProcessPool runs ready startables on a fixed set of worker processes.
	ProcessPool Strategy = "processpool"
)

// Defaults for WithWorkers.
const (
	DefaultThreadWorkers  = 6
	DefaultProcessWorkers = 4
)

// Strategies lists every strategy.
func Strategies() []Strategy {
	return []Strategy{Sync, Async, Thread, ThreadPool, Multiprocess, ProcessPool}
}

// ParseStrategy accepts any casing and ignores '-' and '_', so "thread_pool"
// and "ThreadPool" both name ThreadPool.
func ParseStrategy(s string) (Strategy, error) {
	norm := strings.NewReplacer("-", "", "_", "").Replace(strings.ToLower(strings.TrimSpace(s)))
	st := Strategy(norm)
	if !st.Valid() {
		return "", errors.InvalidInput("strategy", "unknown strategy "+s)
	}
	return st, nil
}

// Valid reports whether s is one of the six strategies.
func (s Strategy) Valid() bool {
	switch s {
	case Sync, Async, Thread, ThreadPool, Multiprocess, ProcessPool:
		return true
	}
	return false
}

// Isolated reports whether startables run in separate processes and must
// therefore be portable.
func (s Strategy) Isolated() bool {
	return s == Multiprocess || s == ProcessPool
}

func (s Strategy) String() string { return string(s) }

// workers resolves the concurrency limit for s. Zero means unbounded.
func (s Strategy) workers(n int) int {
	if s == Sync {
		return 1
	}
	if n > 0 {
		return n
	}
	switch s {
	case ThreadPool:
		return DefaultThreadWorkers
	case ProcessPool:
		return DefaultProcessWorkers
	}
	return 0
}
