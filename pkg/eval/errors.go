package eval

import (
	"errors"
	"fmt"

	"github.com/chazu/glyphgraph/pkg/graph"
)

// ErrSuperseded is returned by Session.Render when a newer render started
// before this one finished.
var ErrSuperseded = errors.New("render superseded by a newer request")

// MissingInputError reports a required input port with no incoming edge.
type MissingInputError struct {
	Node graph.NodeID
	Kind graph.Kind
	Port string
}

func (e *MissingInputError) Error() string {
	return fmt.Sprintf("node %s (%s): required input %q is not connected", e.Node.Short(), e.Kind, e.Port)
}

// UnknownNodeError reports a target or edge source that is not in the graph.
type UnknownNodeError struct {
	Node graph.NodeID
	From graph.NodeID // the node whose input referenced Node, if any
}

func (e *UnknownNodeError) Error() string {
	if e.From.IsZero() {
		return fmt.Sprintf("unknown node %q", e.Node)
	}
	return fmt.Sprintf("node %s: input from unknown node %q", e.From.Short(), e.Node)
}

// UnknownKindError reports a node whose kind has no operator.
type UnknownKindError struct {
	Node graph.NodeID
	Kind graph.Kind
}

func (e *UnknownKindError) Error() string {
	return fmt.Sprintf("node %s: unknown kind %q", e.Node.Short(), e.Kind)
}
