package dag

import (
	"context"

	"github.com/kbukum/cmdflow/conveyor"
)

// Node is a Startable that runs a conveyor.
type Node struct {
	name     string
	conveyor *conveyor.Conveyor
	input    conveyor.Pair
}

// NodeOption configures a Node.
type NodeOption func(*Node)

// WithInput sets the pair the conveyor starts from. The default is Empty.
func WithInput(in conveyor.Pair) NodeOption {
	return func(n *Node) { n.input = in }
}

// NewNode creates a node named name that runs c. A nil c runs no stages.
func NewNode(name string, c *conveyor.Conveyor, opts ...NodeOption) *Node {
	if c == nil {
		c = conveyor.New()
	}
	n := &Node{name: name, conveyor: c}
	for _, opt := range opts {
		opt(n)
	}
	return n
}

// Name returns the node name.
func (n *Node) Name() string { return n.name }

// Conveyor returns the conveyor the node runs.
func (n *Node) Conveyor() *conveyor.Conveyor { return n.conveyor }

// Start runs the conveyor and returns its final pair.
func (n *Node) Start(ctx context.Context) (Result, error) {
	out, err := n.conveyor.Run(ctx, n.input)
	if err != nil {
		return Result{}, err
	}
	return Result{Output: &out}, nil
}

// Describe returns the portable form of the node. It fails when a stage
// is not registered by name.
func (n *Node) Describe() (Descriptor, error) {
	spec, err := n.conveyor.Spec()
	if err != nil {
		return Descriptor{}, err
	}
	return Descriptor{
		Kind: KindNode,
		Name: n.name,
		Node: &NodeSpec{Conveyor: spec, Input: n.input},
	}, nil
}
