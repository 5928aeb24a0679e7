package graph

import (
	"errors"
	"fmt"
	"sync"
)

var (
	// ErrDuplicateNode is returned when adding a node whose id already exists.
	ErrDuplicateNode = errors.New("duplicate node id")
	// ErrUnknownNode is returned when an edge or edit references a missing node.
	ErrUnknownNode = errors.New("unknown node")
	// ErrPortTaken is returned when a target port already has an incoming edge.
	ErrPortTaken = errors.New("target port already connected")
)

// Graph is the operator graph. It is safe for concurrent use: the editing
// surface may mutate it between (or during) evaluation passes, and readers
// always see a consistent snapshot of each node.
type Graph struct {
	mu      sync.RWMutex
	nodes   map[NodeID]Node
	order   []NodeID
	inbound map[NodeID]map[string]Edge
	out     map[NodeID][]Edge
}

// New creates an empty Graph.
func New() *Graph {
	return &Graph{
		nodes:   make(map[NodeID]Node),
		inbound: make(map[NodeID]map[string]Edge),
		out:     make(map[NodeID][]Edge),
	}
}

// AddNode adds n to the graph.
func (g *Graph) AddNode(n Node) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if n.ID.IsZero() {
		return fmt.Errorf("add node: empty id")
	}
	if _, exists := g.nodes[n.ID]; exists {
		return fmt.Errorf("add node %s: %w", n.ID.Short(), ErrDuplicateNode)
	}
	if n.Params == nil {
		n.Params = Params{}
	}
	g.nodes[n.ID] = n
	g.order = append(g.order, n.ID)
	return nil
}

// Connect adds an edge. Each target port accepts one edge; source ports fan
// out freely. An empty SourcePort means DefaultPort.
func (g *Graph) Connect(e Edge) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if e.SourcePort == "" {
		e.SourcePort = DefaultPort
	}
	if _, ok := g.nodes[e.Source]; !ok {
		return fmt.Errorf("connect from %s: %w", e.Source.Short(), ErrUnknownNode)
	}
	if _, ok := g.nodes[e.Target]; !ok {
		return fmt.Errorf("connect to %s: %w", e.Target.Short(), ErrUnknownNode)
	}
	ports := g.inbound[e.Target]
	if ports == nil {
		ports = make(map[string]Edge)
		g.inbound[e.Target] = ports
	}
	if _, taken := ports[e.TargetPort]; taken {
		return fmt.Errorf("connect %s.%s: %w", e.Target.Short(), e.TargetPort, ErrPortTaken)
	}
	ports[e.TargetPort] = e
	g.out[e.Source] = append(g.out[e.Source], e)
	return nil
}

// Disconnect removes the edge feeding target's port, if any.
func (g *Graph) Disconnect(target NodeID, port string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	e, ok := g.inbound[target][port]
	if !ok {
		return
	}
	delete(g.inbound[target], port)
	edges := g.out[e.Source]
	for i, oe := range edges {
		if oe == e {
			g.out[e.Source] = append(edges[:i:i], edges[i+1:]...)
			break
		}
	}
}

// SetParam replaces one parameter of a node. The node's parameter map is
// copied, so a pass that already read the node keeps its snapshot.
func (g *Graph) SetParam(id NodeID, key string, value any) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	n, ok := g.nodes[id]
	if !ok {
		return fmt.Errorf("set param on %s: %w", id.Short(), ErrUnknownNode)
	}
	p := n.Params.Clone()
	p[key] = value
	n.Params = p
	g.nodes[id] = n
	return nil
}

// Node returns the node with the given id.
func (g *Graph) Node(id NodeID) (Node, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	n, ok := g.nodes[id]
	return n, ok
}

// Nodes returns all nodes in insertion order.
func (g *Graph) Nodes() []Node {
	g.mu.RLock()
	defer g.mu.RUnlock()
	out := make([]Node, 0, len(g.order))
	for _, id := range g.order {
		out = append(out, g.nodes[id])
	}
	return out
}

// NodeCount returns the total number of nodes.
func (g *Graph) NodeCount() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return len(g.nodes)
}

// Inputs returns the incoming edges of id keyed by target port.
func (g *Graph) Inputs(id NodeID) map[string]Edge {
	g.mu.RLock()
	defer g.mu.RUnlock()
	out := make(map[string]Edge, len(g.inbound[id]))
	for p, e := range g.inbound[id] {
		out[p] = e
	}
	return out
}

// Edges returns every edge, grouped by target in node insertion order.
func (g *Graph) Edges() []Edge {
	g.mu.RLock()
	defer g.mu.RUnlock()
	var out []Edge
	for _, id := range g.order {
		for _, p := range sortedPorts(g.inbound[id]) {
			out = append(out, g.inbound[id][p])
		}
	}
	return out
}

// Ancestors returns every node on a backward path from id, excluding id.
func (g *Graph) Ancestors(id NodeID) map[NodeID]bool {
	g.mu.RLock()
	defer g.mu.RUnlock()
	seen := make(map[NodeID]bool)
	var walk func(NodeID)
	walk = func(n NodeID) {
		for _, e := range g.inbound[n] {
			if !seen[e.Source] {
				seen[e.Source] = true
				walk(e.Source)
			}
		}
	}
	walk(id)
	delete(seen, id)
	return seen
}

// Descendants returns every node on a forward path from id, excluding id.
func (g *Graph) Descendants(id NodeID) map[NodeID]bool {
	g.mu.RLock()
	defer g.mu.RUnlock()
	seen := make(map[NodeID]bool)
	var walk func(NodeID)
	walk = func(n NodeID) {
		for _, e := range g.out[n] {
			if !seen[e.Target] {
				seen[e.Target] = true
				walk(e.Target)
			}
		}
	}
	walk(id)
	delete(seen, id)
	return seen
}
