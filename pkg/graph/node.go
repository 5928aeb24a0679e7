package graph

// NodeID is an opaque node identifier, unique and stable across edits.
type NodeID string

// ZeroID is the empty node identifier.
const ZeroID NodeID = ""

// IsZero reports whether id is empty.
func (id NodeID) IsZero() bool { return id == ZeroID }

// Short returns an abbreviated form of id for messages.
func (id NodeID) Short() string {
	if len(id) > 16 {
		return string(id[:16]) + "…"
	}
	return string(id)
}

// Kind is the operator tag of a node, e.g. "rect" or "trace".
type Kind string

// DefaultPort is the output port name used when an edge names none.
const DefaultPort = "out"

// Params is the raw parameter bag of a node. Values are scalars, strings,
// vectors or point arrays as handed over by the editing surface.
type Params map[string]any

// Clone returns a shallow copy of p.
func (p Params) Clone() Params {
	out := make(Params, len(p))
	for k, v := range p {
		out[k] = v
	}
	return out
}

// Node is one operator instance in the graph.
type Node struct {
	ID     NodeID `json:"id" yaml:"id"`
	Kind   Kind   `json:"kind" yaml:"kind"`
	Params Params `json:"params,omitempty" yaml:"params,omitempty"`
}

// Edge connects an output port of Source to an input port of Target.
type Edge struct {
	Source     NodeID `json:"from" yaml:"from"`
	SourcePort string `json:"from_port,omitempty" yaml:"from_port,omitempty"`
	Target     NodeID `json:"to" yaml:"to"`
	TargetPort string `json:"port" yaml:"port"`
}
