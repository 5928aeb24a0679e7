// Package ops is the operator library: one typed transform per node kind,
// turning parameters and upstream fragments into a new fragment.
//
// The set of operators is closed. Each kind has a parameter struct with
// explicit defaults; Decode fills it from a node's raw parameter bag and never
// fails on malformed values.
package ops

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"

	"github.com/chazu/glyphgraph/pkg/fragment"
	"github.com/chazu/glyphgraph/pkg/graph"
	"github.com/chazu/glyphgraph/pkg/raster"
)

// Operator kinds.
const (
	KindRect         graph.Kind = "rect"
	KindCircle       graph.Kind = "circle"
	KindPolygon      graph.Kind = "polygon"
	KindRing         graph.Kind = "ring"
	KindBeam         graph.Kind = "beam"
	KindSpline       graph.Kind = "spline"
	KindPen          graph.Kind = "pen"
	KindImage        graph.Kind = "image"
	KindWave         graph.Kind = "wave"
	KindTrace        graph.Kind = "trace"
	KindPixelate     graph.Kind = "pixelate"
	KindLayerBlur    graph.Kind = "layerblur"
	KindGlow         graph.Kind = "glow"
	KindNeon         graph.Kind = "neon"
	KindFill         graph.Kind = "fill"
	KindStroke       graph.Kind = "stroke"
	KindFade         graph.Kind = "fade"
	KindTransform    graph.Kind = "transform"
	KindMerge        graph.Kind = "merge"
	KindUnion        graph.Kind = "union"
	KindDifference   graph.Kind = "difference"
	KindIntersection graph.Kind = "intersection"
	KindExclusion    graph.Kind = "exclusion"
)

// ErrUnknownKind is returned by Decode for an unregistered kind.
var ErrUnknownKind = errors.New("unknown operator kind")

// Env carries what an operator may use during one evaluation pass.
type Env struct {
	Resolution int
	Raster     raster.Rasterizer
	IDs        *fragment.Minter
}

// Port describes one named input of an operator.
type Port struct {
	Name     string
	Required bool
}

// Inputs holds the fragments of the connected input ports.
type Inputs map[string]fragment.Fragment

// Operator is one node's transform.
type Operator interface {
	Kind() graph.Kind
	Ports() []Port
	// Apply computes the node's fragment. The only errors returned are
	// context errors; operator failures degrade to empty or pass-through
	// output.
	Apply(ctx context.Context, env Env, in Inputs) (fragment.Fragment, error)

	operator() // restricts implementations to this package
}

var registry = map[graph.Kind]func() Operator{
	KindRect:         func() Operator { return defaultRect() },
	KindCircle:       func() Operator { return defaultCircle() },
	KindPolygon:      func() Operator { return defaultPolygon() },
	KindRing:         func() Operator { return defaultRing() },
	KindBeam:         func() Operator { return defaultBeam() },
	KindSpline:       func() Operator { return defaultSpline() },
	KindPen:          func() Operator { return defaultPen() },
	KindImage:        func() Operator { return defaultImage() },
	KindWave:         func() Operator { return defaultWave() },
	KindTrace:        func() Operator { return defaultTrace() },
	KindPixelate:     func() Operator { return defaultPixelate() },
	KindLayerBlur:    func() Operator { return defaultLayerBlur() },
	KindGlow:         func() Operator { return defaultGlow() },
	KindNeon:         func() Operator { return defaultNeon() },
	KindFill:         func() Operator { return defaultFill() },
	KindStroke:       func() Operator { return defaultStroke() },
	KindFade:         func() Operator { return defaultFade() },
	KindTransform:    func() Operator { return defaultTransform() },
	KindMerge:        func() Operator { return &Merge{} },
	KindUnion:        func() Operator { return &Combine{Mode: KindUnion} },
	KindDifference:   func() Operator { return &Combine{Mode: KindDifference} },
	KindIntersection: func() Operator { return &Combine{Mode: KindIntersection} },
	KindExclusion:    func() Operator { return &Combine{Mode: KindExclusion} },
}

// Kinds returns every registered kind, sorted.
func Kinds() []graph.Kind {
	out := make([]graph.Kind, 0, len(registry))
	for k := range registry {
		out = append(out, k)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Decode builds the operator for kind from raw parameters. Missing or
// malformed fields keep their defaults.
func Decode(kind graph.Kind, params graph.Params) (Operator, error) {
	mk, ok := registry[kind]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownKind, kind)
	}
	op := mk()
	decodeParams(kind, params, op)
	if n, ok := op.(normalizer); ok {
		n.normalize()
	}
	return op, nil
}

// normalizer is implemented by operators that clamp decoded values.
type normalizer interface {
	normalize()
}

// Required returns the names of op's required ports.
func Required(op Operator) []string {
	var out []string
	for _, p := range op.Ports() {
		if p.Required {
			out = append(out, p.Name)
		}
	}
	return out
}

var (
	noPorts []Port
	inPort  = []Port{{Name: "in", Required: true}}
	optPort = []Port{{Name: "in"}}
	abPorts = []Port{{Name: "a", Required: true}, {Name: "b"}}
)

// Fingerprint returns the canonical JSON of op's decoded parameters.
func Fingerprint(op Operator) ([]byte, error) {
	return json.Marshal(op)
}
