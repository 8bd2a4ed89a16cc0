package dag

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/kbukum/cmdflow/conveyor"
	"github.com/kbukum/cmdflow/errors"
)

// Startable is a named unit of work a Dag can schedule. Node and Dag both
// implement it, so dags nest.
type Startable interface {
	Name() string
	Start(ctx context.Context) (Result, error)
}

// Result is what a Startable produced. A Node fills Output, a Dag fills
// Children.
type Result struct {
	Output   *conveyor.Pair `json:"output,omitempty"`
	Children Outcomes       `json:"children,omitempty"`
}

// Status is the final state of a startable within one run.
type Status string

const (
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
	StatusSkipped   Status = "skipped"
)

// Outcome records how one startable finished.
type Outcome struct {
	Name     string
	Status   Status
	Result   Result
	Err      error
	Duration time.Duration
}

type outcomeJSON struct {
	Name       string            `json:"name"`
	Status     Status            `json:"status"`
	Result     Result            `json:"result"`
	Error      *errors.ErrorBody `json:"error,omitempty"`
	DurationMs int64             `json:"duration_ms"`
}

// MarshalJSON encodes Err in its portable form.
func (o Outcome) MarshalJSON() ([]byte, error) {
	out := outcomeJSON{
		Name:       o.Name,
		Status:     o.Status,
		Result:     o.Result,
		DurationMs: o.Duration.Milliseconds(),
	}
	if o.Err != nil {
		body := errors.BodyOf(o.Err)
		out.Error = &body
	}
	return json.Marshal(out)
}

// UnmarshalJSON rebuilds Err as an *errors.AppError.
func (o *Outcome) UnmarshalJSON(data []byte) error {
	var in outcomeJSON
	if err := json.Unmarshal(data, &in); err != nil {
		return err
	}
	*o = Outcome{
		Name:     in.Name,
		Status:   in.Status,
		Result:   in.Result,
		Duration: time.Duration(in.DurationMs) * time.Millisecond,
	}
	if in.Error != nil {
		o.Err = errors.FromBody(*in.Error)
	}
	return nil
}

// Outcomes maps startable names to how they finished.
type Outcomes map[string]Outcome

// Output returns the pair produced by the named node.
func (o Outcomes) Output(name string) (conveyor.Pair, bool) {
	out, ok := o[name]
	if !ok || out.Result.Output == nil {
		return conveyor.Pair{}, false
	}
	return *out.Result.Output, true
}

// Names returns the sorted names with the given status.
func (o Outcomes) Names(status Status) []string {
	var names []string
	for name, out := range o {
		if out.Status == status {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names
}

// Completed reports whether every startable completed.
func (o Outcomes) Completed() bool {
	for _, out := range o {
		if out.Status != StatusCompleted {
			return false
		}
	}
	return true
}

// RunError reports the startables of one run that failed or were skipped.
// It unwraps to every failure cause.
type RunError struct {
	Dag     string
	Failed  []string
	Skipped []string
	Errs    []error
}

func (e *RunError) Error() string {
	msg := fmt.Sprintf("dag %s: %d failed (%s)", e.Dag, len(e.Failed), strings.Join(e.Failed, ", "))
	if len(e.Skipped) > 0 {
		msg += fmt.Sprintf(", %d skipped", len(e.Skipped))
	}
	if len(e.Errs) > 0 {
		msg += ": " + e.Errs[0].Error()
	}
	return msg
}

func (e *RunError) Unwrap() []error { return e.Errs }

// runError builds the RunError for outcomes, or nil when all completed.
func runError(dag string, order []string, outcomes Outcomes) error {
	re := &RunError{Dag: dag}
	for _, name := range order {
		out := outcomes[name]
		switch out.Status {
		case StatusFailed:
			re.Failed = append(re.Failed, name)
			re.Errs = append(re.Errs, out.Err)
		case StatusSkipped:
			re.Skipped = append(re.Skipped, name)
		}
	}
	if len(re.Failed) == 0 && len(re.Skipped) == 0 {
		return nil
	}
	return re
}
