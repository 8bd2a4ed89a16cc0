package dag

import (
	"encoding/json"
	"fmt"

	"github.com/kbukum/cmdflow/conveyor"
	"github.com/kbukum/cmdflow/errors"
)

// Kind tells Build what a Descriptor describes.
type Kind string

const (
	KindNode Kind = "node"
	KindDag  Kind = "dag"
)

// Descriptor is the by-value form of a Startable. It is what crosses into
// worker processes.
type Descriptor struct {
	Kind Kind      `json:"kind"`
	Name string    `json:"name"`
	Node *NodeSpec `json:"node,omitempty"`
	Dag  *DagSpec  `json:"dag,omitempty"`
}

// NodeSpec describes a Node.
type NodeSpec struct {
	Conveyor conveyor.Spec `json:"conveyor"`
	Input    conveyor.Pair `json:"input"`
}

// DagSpec describes a Dag and everything registered in it.
type DagSpec struct {
	Strategy   Strategy     `json:"strategy"`
	Workers    int          `json:"workers,omitempty"`
	Startables []Descriptor `json:"startables"`
	Edges      []Edge       `json:"edges,omitempty"`
}

// Edge orders From before To.
type Edge struct {
	From string `json:"from" yaml:"from"`
	To   string `json:"to" yaml:"to"`
}

// Portable is implemented by startables that can describe themselves by
// value. Only portable startables can run under Multiprocess and
// ProcessPool.
type Portable interface {
	Startable
	Describe() (Descriptor, error)
}

// Describe returns the portable form of s.
func Describe(s Startable) (Descriptor, error) {
	p, ok := s.(Portable)
	if !ok {
		return Descriptor{}, errors.Serialization(fmt.Sprintf("startable %s", s.Name()), nil).
			WithDetail("reason", fmt.Sprintf("%T cannot describe itself", s))
	}
	desc, err := p.Describe()
	if err != nil {
		return Descriptor{}, err
	}
	if _, err := json.Marshal(desc); err != nil {
		return Descriptor{}, errors.Serialization(fmt.Sprintf("startable %s", s.Name()), err)
	}
	return desc, nil
}

// Build rebuilds a startable from its descriptor using units and
// decorators registered in r. A nil r means conveyor.DefaultRegistry.
func Build(desc Descriptor, r *conveyor.Registry) (Startable, error) {
	switch desc.Kind {
	case KindNode:
		if desc.Node == nil {
			return nil, errors.MissingField("node")
		}
		c, err := conveyor.FromSpec(desc.Node.Conveyor, r)
		if err != nil {
			return nil, err
		}
		return NewNode(desc.Name, c, WithInput(desc.Node.Input)), nil
	case KindDag:
		if desc.Dag == nil {
			return nil, errors.MissingField("dag")
		}
		d := New(desc.Name, desc.Dag.Strategy, WithWorkers(desc.Dag.Workers))
		for _, child := range desc.Dag.Startables {
			s, err := Build(child, r)
			if err != nil {
				return nil, err
			}
			if err := d.Add(s); err != nil {
				return nil, err
			}
		}
		for _, e := range desc.Dag.Edges {
			if err := d.link(e.From, e.To); err != nil {
				return nil, err
			}
		}
		if err := d.Err(); err != nil {
			return nil, err
		}
		return d, nil
	}
	return nil, errors.InvalidInput("kind", fmt.Sprintf("unknown startable kind %q", desc.Kind))
}

// request asks a worker to start one startable.
type request struct {
	ID        uint64     `json:"id"`
	RunID     string     `json:"run_id,omitempty"`
	Startable Descriptor `json:"startable"`
}

// response carries the result of a request back to the scheduler.
type response struct {
	ID     uint64            `json:"id"`
	Result Result            `json:"result"`
	Error  *errors.ErrorBody `json:"error,omitempty"`
}

func (r response) outcome() (Result, error) {
	if r.Error != nil {
		return r.Result, errors.FromBody(*r.Error)
	}
	return r.Result, nil
}
