// Package eval evaluates a node graph into a vector fragment.
//
// Evaluation is a depth-first walk from the target towards its ancestors.
// Each node runs at most once per pass, the distinct inputs of a node run
// concurrently, and results are cached under a key derived from the node,
// its decoded parameters and the hashes of its inputs, so editing one node
// only recomputes that node and its descendants.
package eval

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"github.com/chazu/glyphgraph/pkg/fragment"
	"github.com/chazu/glyphgraph/pkg/graph"
	"github.com/chazu/glyphgraph/pkg/ops"
	"github.com/chazu/glyphgraph/pkg/raster"
)

// ErrInvalidResolution is returned for a non-positive resolution.
var ErrInvalidResolution = errors.New("resolution must be positive")

// Request selects what one pass renders. A non-zero Cutoff replaces Target,
// so only the ancestors of Cutoff are touched.
type Request struct {
	Target     graph.NodeID
	Cutoff     graph.NodeID
	Resolution int
}

func (r Request) target() graph.NodeID {
	if !r.Cutoff.IsZero() {
		return r.Cutoff
	}
	return r.Target
}

// Option configures an Evaluator.
type Option func(*Evaluator)

// WithCacheCapacity bounds the fragment cache.
func WithCacheCapacity(n int) Option {
	return func(e *Evaluator) { e.cache = NewCache(n) }
}

// WithCache makes the evaluator share c.
func WithCache(c *Cache) Option {
	return func(e *Evaluator) { e.cache = c }
}

// Evaluator runs passes over graphs. It is safe for concurrent use; all
// passes share one cache.
type Evaluator struct {
	raster raster.Rasterizer
	cache  *Cache
	flight singleflight.Group

	computed atomic.Int64
	hits     atomic.Int64

	mu   sync.Mutex
	last PassStats
}

// New returns an evaluator that hands rasterization to r. A nil r makes
// every raster-backed operator degrade.
func New(r raster.Rasterizer, opts ...Option) *Evaluator {
	e := &Evaluator{raster: r}
	for _, o := range opts {
		o(e)
	}
	if e.cache == nil {
		e.cache = NewCache(DefaultCacheCapacity)
	}
	return e
}

// Cache returns the evaluator's fragment cache.
func (e *Evaluator) Cache() *Cache { return e.cache }

// Stats are cumulative evaluator counters.
type Stats struct {
	Computed int64 // operator executions
	Hits     int64 // nodes served from the cache
	Cache    CacheStats
}

// Stats returns the cumulative counters.
func (e *Evaluator) Stats() Stats {
	return Stats{Computed: e.computed.Load(), Hits: e.hits.Load(), Cache: e.cache.Stats()}
}

// PassStats describes the most recently finished pass.
type PassStats struct {
	Target   graph.NodeID
	Visited  []graph.NodeID          // nodes the pass touched, sorted
	Computed []graph.NodeID          // nodes whose operator ran, sorted
	Keys     map[graph.NodeID]string // cache keys of the nodes that resolved
	Duration time.Duration
}

// LastPass returns the stats of the most recently finished pass.
func (e *Evaluator) LastPass() PassStats {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.last
}

// Visited reports whether the last pass touched id.
func (e *Evaluator) Visited(id graph.NodeID) bool {
	return contains(e.LastPass().Visited, id)
}

// Computed reports whether the last pass ran the operator of id.
func (e *Evaluator) Computed(id graph.NodeID) bool {
	return contains(e.LastPass().Computed, id)
}

func contains(ids []graph.NodeID, id graph.NodeID) bool {
	i := sort.Search(len(ids), func(i int) bool { return ids[i] >= id })
	return i < len(ids) && ids[i] == id
}

// Evaluate renders target at resolution.
func (e *Evaluator) Evaluate(ctx context.Context, g *graph.Graph, target graph.NodeID, resolution int) (fragment.Fragment, error) {
	return e.EvaluateWith(ctx, g, Request{Target: target, Resolution: resolution})
}

// EvaluateWith runs one pass for req.
func (e *Evaluator) EvaluateWith(ctx context.Context, g *graph.Graph, req Request) (fragment.Fragment, error) {
	target := req.target()
	if req.Resolution <= 0 {
		return fragment.Empty, fmt.Errorf("%w: %d", ErrInvalidResolution, req.Resolution)
	}
	if _, ok := g.Node(target); !ok {
		return fragment.Empty, &UnknownNodeError{Node: target}
	}
	if cyc := g.FindCycle(target); cyc != nil {
		return fragment.Empty, cyc
	}

	start := time.Now()
	p := &pass{
		e: e,
		g: g,
		env: ops.Env{
			Resolution: req.Resolution,
			Raster:     e.raster,
			IDs:        fragment.NewMinter(),
		},
		memo:     make(map[graph.NodeID]*result),
		computed: make(map[graph.NodeID]bool),
	}
	r := p.eval(ctx, target)
	stats := p.stats(target, time.Since(start))

	e.mu.Lock()
	e.last = stats
	e.mu.Unlock()

	ops.Logger().Debug("eval: pass finished",
		"target", string(target),
		"resolution", req.Resolution,
		"visited", len(stats.Visited),
		"computed", len(stats.Computed),
		"duration", stats.Duration,
		"error", r.err)
	if r.err != nil {
		return fragment.Empty, r.err
	}
	return r.frag, nil
}

// Document renders target and wraps it into a complete SVG document.
func (e *Evaluator) Document(ctx context.Context, g *graph.Graph, target graph.NodeID, resolution int) (string, error) {
	f, err := e.Evaluate(ctx, g, target, resolution)
	if err != nil {
		return "", err
	}
	return fragment.Document(f, resolution), nil
}

// Invalidate drops the cached fragments of id and of every node downstream
// of it, returning the number of entries removed.
func (e *Evaluator) Invalidate(g *graph.Graph, id graph.NodeID) int {
	n := e.cache.DropNode(id)
	for d := range g.Descendants(id) {
		n += e.cache.DropNode(d)
	}
	return n
}

// result is the memoized outcome of one node within a pass.
type result struct {
	done chan struct{}
	frag fragment.Fragment
	hash string
	key  string
	err  error
}

type pass struct {
	e   *Evaluator
	g   *graph.Graph
	env ops.Env

	mu       sync.Mutex
	memo     map[graph.NodeID]*result
	computed map[graph.NodeID]bool
}

func (p *pass) stats(target graph.NodeID, d time.Duration) PassStats {
	p.mu.Lock()
	defer p.mu.Unlock()
	s := PassStats{Target: target, Duration: d, Keys: make(map[graph.NodeID]string)}
	for id, r := range p.memo {
		s.Visited = append(s.Visited, id)
		select {
		case <-r.done:
			if r.key != "" {
				s.Keys[id] = r.key
			}
		default:
		}
	}
	for id := range p.computed {
		s.Computed = append(s.Computed, id)
	}
	sort.Slice(s.Visited, func(i, j int) bool { return s.Visited[i] < s.Visited[j] })
	sort.Slice(s.Computed, func(i, j int) bool { return s.Computed[i] < s.Computed[j] })
	return s
}

// eval returns the memoized result for id, computing it on first use. The
// graph is acyclic here, so waiting on another goroutine's result cannot
// deadlock.
func (p *pass) eval(ctx context.Context, id graph.NodeID) *result {
	p.mu.Lock()
	if r, ok := p.memo[id]; ok {
		p.mu.Unlock()
		select {
		case <-r.done:
			return r
		case <-ctx.Done():
			return &result{err: ctx.Err()}
		}
	}
	r := &result{done: make(chan struct{})}
	p.memo[id] = r
	p.mu.Unlock()

	r.frag, r.key, r.err = p.compute(ctx, id)
	if r.err == nil {
		r.hash = r.frag.Hash()
	}
	close(r.done)
	return r
}

func (p *pass) compute(ctx context.Context, id graph.NodeID) (fragment.Fragment, string, error) {
	n, ok := p.g.Node(id)
	if !ok {
		return fragment.Empty, "", &UnknownNodeError{Node: id}
	}
	op, err := ops.Decode(n.Kind, n.Params)
	if err != nil {
		if errors.Is(err, ops.ErrUnknownKind) {
			return fragment.Empty, "", &UnknownKindError{Node: id, Kind: n.Kind}
		}
		return fragment.Empty, "", fmt.Errorf("node %s: %w", id.Short(), err)
	}

	edges := p.g.Inputs(id)
	ports := op.Ports()
	for _, port := range ports {
		if _, ok := edges[port.Name]; port.Required && !ok {
			return fragment.Empty, "", &MissingInputError{Node: id, Kind: n.Kind, Port: port.Name}
		}
	}

	// Not context-cancelling: a failing branch leaves its siblings running
	// so they still reach the cache.
	inputs := make([]*result, len(ports))
	var eg errgroup.Group
	for i, port := range ports {
		edge, ok := edges[port.Name]
		if !ok {
			continue
		}
		eg.Go(func() error {
			if _, ok := p.g.Node(edge.Source); !ok {
				return &UnknownNodeError{Node: edge.Source, From: id}
			}
			r := p.eval(ctx, edge.Source)
			if r.err != nil {
				return r.err
			}
			inputs[i] = r
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return fragment.Empty, "", err
	}

	in := make(ops.Inputs, len(ports))
	key := cacheKey(id, p.env.Resolution, n.Kind, op, ports, inputs)
	for i, port := range ports {
		if inputs[i] != nil {
			in[port.Name] = inputs[i].frag
		}
	}

	if f, ok := p.e.cache.Get(key); ok {
		p.e.hits.Add(1)
		return f, key, nil
	}
	f, err := p.run(ctx, key, id, op, in)
	if err != nil && isContextErr(err) && ctx.Err() == nil {
		// The shared computation belonged to a caller that gave up.
		f, err = p.apply(ctx, key, id, op, in)
	}
	return f, key, err
}

// run collapses concurrent computations of the same key, within and across
// passes.
func (p *pass) run(ctx context.Context, key string, id graph.NodeID, op ops.Operator, in ops.Inputs) (fragment.Fragment, error) {
	v, err, _ := p.e.flight.Do(key, func() (any, error) {
		if f, ok := p.e.cache.peek(key); ok {
			p.e.hits.Add(1)
			return f, nil
		}
		return p.apply(ctx, key, id, op, in)
	})
	if err != nil {
		return fragment.Empty, err
	}
	return v.(fragment.Fragment), nil
}

func (p *pass) apply(ctx context.Context, key string, id graph.NodeID, op ops.Operator, in ops.Inputs) (fragment.Fragment, error) {
	p.mu.Lock()
	p.computed[id] = true
	p.mu.Unlock()
	p.e.computed.Add(1)

	f, err := op.Apply(ctx, p.env, in)
	if err != nil {
		return fragment.Empty, err
	}
	if ctx.Err() != nil {
		return fragment.Empty, ctx.Err()
	}
	p.e.cache.Put(key, id, f)
	return f, nil
}

func isContextErr(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}

// cacheKey hashes everything a node's output depends on: its identity, the
// resolution, its kind and decoded parameters, and its inputs in port order.
func cacheKey(id graph.NodeID, res int, kind graph.Kind, op ops.Operator, ports []ops.Port, inputs []*result) string {
	h := sha256.New()
	fmt.Fprintf(h, "%s\x00%d\x00%s\x00", id, res, kind)
	fp, err := ops.Fingerprint(op)
	if err != nil {
		fp = []byte(fmt.Sprintf("%+v", op))
	}
	h.Write(fp)
	for i, port := range ports {
		if inputs[i] != nil {
			fmt.Fprintf(h, "\x00%s=%s", port.Name, inputs[i].hash)
		}
	}
	return hex.EncodeToString(h.Sum(nil))
}
