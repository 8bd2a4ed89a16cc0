package main

import (
	"os"

	"github.com/kbukum/cmdflow/cmd/cmdflow/cmd"
	"github.com/kbukum/cmdflow/dag"
)

func main() {
	// Multiprocess and ProcessPool re-run this binary as a worker.
	if dag.IsWorkerProcess() {
		os.Exit(dag.ServeWorkerProcess())
	}
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
