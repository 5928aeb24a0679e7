package eval

import (
	"context"
	"sync"

	"github.com/chazu/glyphgraph/pkg/fragment"
	"github.com/chazu/glyphgraph/pkg/graph"
)

// Session serializes preview renders for one editing surface. Every Render
// starts a new generation; a pass that finishes after a newer one started is
// discarded with ErrSuperseded. No timeouts are imposed.
type Session struct {
	eval *Evaluator

	mu         sync.Mutex
	generation uint64
}

// NewSession returns a session rendering through e.
func NewSession(e *Evaluator) *Session {
	return &Session{eval: e}
}

// Generation returns the generation of the most recent Render call.
func (s *Session) Generation() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.generation
}

// Render evaluates req and returns its fragment unless a newer Render was
// started in the meantime.
func (s *Session) Render(ctx context.Context, g *graph.Graph, req Request) (fragment.Fragment, error) {
	s.mu.Lock()
	s.generation++
	gen := s.generation
	s.mu.Unlock()

	f, err := s.eval.EvaluateWith(ctx, g, req)

	s.mu.Lock()
	current := s.generation
	s.mu.Unlock()
	if gen != current {
		return fragment.Empty, ErrSuperseded
	}
	return f, err
}
