package graph

import (
	"fmt"
	"strings"
)

// CycleError reports a cycle in the subgraph reachable backward from a node.
// Path lists the nodes of the cycle in data-flow order, first node repeated
// at the end.
type CycleError struct {
	Path []NodeID
}

func (e *CycleError) Error() string {
	parts := make([]string, len(e.Path))
	for i, id := range e.Path {
		parts[i] = id.Short()
	}
	return "cycle detected: " + strings.Join(parts, " -> ")
}

// FindCycle checks the subgraph reachable backward from target using DFS
// with 3-colour marking. White (0) = unvisited, gray (1) = on the current
// DFS path, black (2) = fully explored. Meeting a gray node means a cycle.
// It returns nil when the subgraph is acyclic.
func (g *Graph) FindCycle(target NodeID) *CycleError {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.findCycleLocked(target, make(map[NodeID]int))
}

func (g *Graph) findCycleLocked(target NodeID, color map[NodeID]int) *CycleError {
	const (
		white = iota
		gray
		black
	)

	var stack []NodeID
	var found *CycleError

	var visit func(id NodeID) bool
	visit = func(id NodeID) bool {
		switch color[id] {
		case black:
			return false
		case gray:
			// Stack holds the consumer chain; reverse the looping tail so the
			// path reads in data-flow order.
			start := 0
			for i, s := range stack {
				if s == id {
					start = i
					break
				}
			}
			loop := append([]NodeID(nil), stack[start:]...)
			path := make([]NodeID, 0, len(loop)+1)
			for i := len(loop) - 1; i >= 0; i-- {
				path = append(path, loop[i])
			}
			path = append(path, path[0])
			found = &CycleError{Path: path}
			return true
		}

		color[id] = gray
		stack = append(stack, id)
		for _, p := range sortedPorts(g.inbound[id]) {
			if visit(g.inbound[id][p].Source) {
				return true
			}
		}
		stack = stack[:len(stack)-1]
		color[id] = black
		return false
	}

	visit(target)
	return found
}

// ValidationError describes one structural problem of the whole graph.
type ValidationError struct {
	NodeID  NodeID
	Message string
}

func (e ValidationError) Error() string {
	if e.NodeID.IsZero() {
		return e.Message
	}
	return fmt.Sprintf("node %s: %s", e.NodeID.Short(), e.Message)
}

// Validate runs structural checks over every node: one cycle error per
// disconnected cycle found and edges whose endpoints vanished. It is
// read-only and never mutates the graph.
func (g *Graph) Validate() []ValidationError {
	g.mu.RLock()
	defer g.mu.RUnlock()

	var errs []ValidationError
	color := make(map[NodeID]int)
	for _, id := range g.order {
		if color[id] != 0 {
			continue
		}
		if c := g.findCycleLocked(id, color); c != nil {
			errs = append(errs, ValidationError{NodeID: c.Path[0], Message: c.Error()})
			// One cycle error per component is sufficient; settle every
			// node left on the aborted DFS path.
			for n, c := range color {
				if c == 1 {
					color[n] = 2
				}
			}
		}
	}

	for _, id := range g.order {
		for _, p := range sortedPorts(g.inbound[id]) {
			e := g.inbound[id][p]
			if _, ok := g.nodes[e.Source]; !ok {
				errs = append(errs, ValidationError{
					NodeID:  id,
					Message: fmt.Sprintf("port %q references missing node %s", p, e.Source.Short()),
				})
			}
		}
	}
	return errs
}

// Order returns target and its ancestors in evaluation order: every node
// appears after all of its inputs, inputs visited in port order. Missing
// sources are skipped.
func (g *Graph) Order(target NodeID) ([]NodeID, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	if c := g.findCycleLocked(target, make(map[NodeID]int)); c != nil {
		return nil, c
	}

	var order []NodeID
	seen := make(map[NodeID]bool)
	var visit func(id NodeID)
	visit = func(id NodeID) {
		if seen[id] {
			return
		}
		seen[id] = true
		if _, ok := g.nodes[id]; !ok {
			return
		}
		for _, p := range sortedPorts(g.inbound[id]) {
			visit(g.inbound[id][p].Source)
		}
		order = append(order, id)
	}
	visit(target)
	return order, nil
}
