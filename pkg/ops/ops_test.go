package ops

import (
	"context"
	"errors"
	"image"
	"image/color"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/chazu/glyphgraph/pkg/fragment"
	"github.com/chazu/glyphgraph/pkg/graph"
	"github.com/chazu/glyphgraph/pkg/raster"
)

// squareRaster draws an opaque white square over the middle half of every
// requested bitmap and counts calls.
type squareRaster struct {
	calls atomic.Int32
	last  atomic.Value // raster.Request
}

func (s *squareRaster) Rasterize(ctx context.Context, req raster.Request) (*image.RGBA, error) {
	s.calls.Add(1)
	s.last.Store(req)
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	img := image.NewRGBA(image.Rect(0, 0, req.Width, req.Height))
	for y := req.Height / 4; y < req.Height*3/4; y++ {
		for x := req.Width / 4; x < req.Width*3/4; x++ {
			img.SetRGBA(x, y, color.RGBA{R: 255, G: 255, B: 255, A: 255})
		}
	}
	return img, nil
}

var failingRaster = raster.Func(func(context.Context, raster.Request) (*image.RGBA, error) {
	return nil, &raster.Error{Width: 1, Height: 1, Err: errors.New("boom")}
})

func testEnv(r raster.Rasterizer) Env {
	return Env{Resolution: 256, Raster: r, IDs: fragment.NewMinterWithSalt("t")}
}

func mustDecode(t *testing.T, kind graph.Kind, params graph.Params) Operator {
	t.Helper()
	op, err := Decode(kind, params)
	if err != nil {
		t.Fatalf("Decode(%s): %v", kind, err)
	}
	return op
}

func apply(t *testing.T, op Operator, env Env, in Inputs) fragment.Fragment {
	t.Helper()
	f, err := op.Apply(context.Background(), env, in)
	if err != nil {
		t.Fatalf("%s.Apply: %v", op.Kind(), err)
	}
	return f
}

var square = fragment.Fragment{Markup: `<path d="M64 64 L192 64 L192 192 L64 192 Z" fill="#ff0000" stroke="#00ff00" stroke-width="3" fill-rule="evenodd"/>`}

func TestDecodeUnknownKind(t *testing.T) {
	_, err := Decode("teapot", nil)
	if !errors.Is(err, ErrUnknownKind) {
		t.Fatalf("expected ErrUnknownKind, got %v", err)
	}
}

func TestKindsCoverRegistry(t *testing.T) {
	kinds := Kinds()
	if len(kinds) != len(registry) {
		t.Fatalf("Kinds() = %d entries, registry has %d", len(kinds), len(registry))
	}
	for _, k := range kinds {
		op := mustDecode(t, k, nil)
		if op.Kind() != k {
			t.Errorf("Decode(%s).Kind() = %s", k, op.Kind())
		}
	}
}

func TestDecodeWeakAndPartial(t *testing.T) {
	op := mustDecode(t, KindRect, graph.Params{
		"width":  "0.25",
		"height": "not a number",
		"fill":   "#123456",
	})
	r := op.(*Rect)
	if r.Width != 0.25 {
		t.Errorf("width = %v, want 0.25", r.Width)
	}
	if r.Height != 0.5 {
		t.Errorf("height = %v, want default 0.5", r.Height)
	}
	if r.Fill != "#123456" {
		t.Errorf("fill = %q", r.Fill)
	}
}

func TestDecodeNormalizes(t *testing.T) {
	tr := mustDecode(t, KindTrace, graph.Params{"fidelity": 4}).(*Trace)
	if tr.Fidelity != 8 {
		t.Errorf("fidelity = %d, want clamp to 8", tr.Fidelity)
	}
	tr = mustDecode(t, KindTrace, graph.Params{"fidelity": 5000}).(*Trace)
	if tr.Fidelity != 1024 {
		t.Errorf("fidelity = %d, want clamp to 1024", tr.Fidelity)
	}
	c := mustDecode(t, KindCircle, graph.Params{"fill": `red" onload="x`}).(*Circle)
	if c.Fill != defaultFillColor {
		t.Errorf("unsafe colour kept: %q", c.Fill)
	}
}

func TestRectCentered(t *testing.T) {
	f := apply(t, mustDecode(t, KindRect, graph.Params{"radius": 0.05}), testEnv(nil), nil)
	if !strings.Contains(f.Markup, `translate(64 64)`) {
		t.Errorf("rect not centered: %s", f.Markup)
	}
	if strings.Count(f.Markup, "A") != 4 {
		t.Errorf("expected 4 arcs: %s", f.Markup)
	}
}

func TestCircleDefaultsToRound(t *testing.T) {
	f := apply(t, mustDecode(t, KindCircle, graph.Params{"rx": 0.25}), testEnv(nil), nil)
	if !strings.Contains(f.Markup, "A64 64") {
		t.Errorf("expected rx=ry=64: %s", f.Markup)
	}
}

func TestPolygonStarAndTension(t *testing.T) {
	star := apply(t, mustDecode(t, KindPolygon, nil), testEnv(nil), nil)
	if n := strings.Count(star.Markup, "L"); n != 9 {
		t.Errorf("star: %d line segments, want 9", n)
	}
	round := apply(t, mustDecode(t, KindPolygon, graph.Params{"outer_tension": 0.5}), testEnv(nil), nil)
	if !strings.Contains(round.Markup, "C") {
		t.Errorf("tension should produce cubics: %s", round.Markup)
	}
	poly := apply(t, mustDecode(t, KindPolygon, graph.Params{"star": false, "points": 6}), testEnv(nil), nil)
	if n := strings.Count(poly.Markup, "L"); n != 5 {
		t.Errorf("hexagon: %d line segments, want 5", n)
	}
}

func TestRingHole(t *testing.T) {
	f := apply(t, mustDecode(t, KindRing, graph.Params{"thickness": 0.1}), testEnv(nil), nil)
	if !strings.Contains(f.Markup, `fill-rule="evenodd"`) || strings.Count(f.Markup, "M") != 2 {
		t.Errorf("ring with hole: %s", f.Markup)
	}
}

func TestBeamGradient(t *testing.T) {
	f := apply(t, mustDecode(t, KindBeam, nil), testEnv(nil), nil)
	if len(f.Defs) != 1 || !strings.Contains(f.Defs[0], `id="beam-1-t"`) {
		t.Fatalf("defs = %v", f.Defs)
	}
	if !strings.Contains(f.Markup, `url(#beam-1-t)`) {
		t.Errorf("beam does not reference its gradient: %s", f.Markup)
	}
}

func TestSplineDropsMalformedPoints(t *testing.T) {
	op := mustDecode(t, KindSpline, graph.Params{
		"points": []any{
			map[string]any{"x": 0.1, "y": 0.1},
			map[string]any{"x": "oops"},
			[]any{0.9, 0.1, 0},
			"junk",
			map[string]any{"x": 0.5, "y": 0.9, "tension": 0.8},
		},
	}).(*Spline)
	if len(op.Points) != 3 {
		t.Fatalf("points = %d, want 3", len(op.Points))
	}
	f := apply(t, op, testEnv(nil), nil)
	if !strings.HasPrefix(f.Markup, `<path d="M25.6 25.6`) {
		t.Errorf("points not scaled: %s", f.Markup)
	}
	if !strings.Contains(f.Markup, `fill="none"`) || !strings.Contains(f.Markup, `stroke="#ffffff"`) {
		t.Errorf("open spline should be stroked: %s", f.Markup)
	}
}

func TestPointsFromNamedMapTypes(t *testing.T) {
	type pair []float64
	op := mustDecode(t, KindPen, graph.Params{
		"points": []any{
			graph.Params{"x": 0.1, "y": 0.2, "out": graph.Params{"x": 0.3, "y": 0.2}},
			map[any]any{"x": 0.5, "y": 0.5},
			pair{0.9, 0.8},
			graph.Params{"y": 0.4},
		},
	}).(*Pen)
	if len(op.Points) != 3 {
		t.Fatalf("points = %d, want 3", len(op.Points))
	}
	if op.Points[0].Out.X != 0.3 {
		t.Errorf("out handle = %v, want x 0.3", op.Points[0].Out)
	}
	if op.Points[2].X != 0.9 || op.Points[2].Y != 0.8 {
		t.Errorf("pair point = %+v", op.Points[2])
	}
}

func TestPenHandles(t *testing.T) {
	op := mustDecode(t, KindPen, graph.Params{
		"closed": true,
		"points": []any{
			map[string]any{"x": 0, "y": 0, "out": map[string]any{"x": 0.5, "y": 0}},
			map[string]any{"x": 1, "y": 1, "in": map[string]any{"x": 1, "y": 0.5}},
		},
	})
	f := apply(t, op, testEnv(nil), nil)
	if !strings.Contains(f.Markup, "C128 0 256 128 256 256") {
		t.Errorf("handles not used: %s", f.Markup)
	}
	if !strings.Contains(f.Markup, `fill="#ffffff"`) {
		t.Errorf("closed pen should be filled: %s", f.Markup)
	}
}

func TestImageRejectsRemoteHref(t *testing.T) {
	f := apply(t, mustDecode(t, KindImage, graph.Params{"href": "http://example.com/a.png"}), testEnv(nil), nil)
	if !f.IsEmpty() {
		t.Errorf("remote image accepted: %s", f.Markup)
	}
	f = apply(t, mustDecode(t, KindImage, graph.Params{"href": "data:image/png;base64,AAAA", "pixelated": true}), testEnv(nil), nil)
	if !strings.Contains(f.Markup, `image-rendering="pixelated"`) {
		t.Errorf("image: %s", f.Markup)
	}
}

func TestFillRewrite(t *testing.T) {
	f := apply(t, mustDecode(t, KindFill, graph.Params{"color": "#0000ff", "opacity": 0.5}), testEnv(nil), Inputs{"in": square})
	if strings.Contains(f.Markup, "#ff0000") {
		t.Errorf("old fill kept: %s", f.Markup)
	}
	for _, want := range []string{`fill="#0000ff"`, `fill-opacity="0.5"`, `fill-rule="evenodd"`, `stroke="#00ff00"`} {
		if !strings.Contains(f.Markup, want) {
			t.Errorf("missing %s: %s", want, f.Markup)
		}
	}
}

func TestStrokeRewrite(t *testing.T) {
	f := apply(t, mustDecode(t, KindStroke, graph.Params{"width": 4, "outline": true}), testEnv(nil), Inputs{"in": square})
	if strings.Count(f.Markup, "stroke-width") != 1 || !strings.Contains(f.Markup, `stroke-width="4"`) {
		t.Errorf("stroke-width: %s", f.Markup)
	}
	if !strings.Contains(f.Markup, `fill="none"`) {
		t.Errorf("outline keeps fill: %s", f.Markup)
	}
}

func TestRecolorAddsMissingFill(t *testing.T) {
	got := recolor(`<circle r="4"/><path d="M0 0" stroke="red" fill="none"/>`, "white")
	want := `<circle r="4" fill="white"/><path d="M0 0" stroke="white" fill="none"/>`
	if got != want {
		t.Errorf("recolor:\n got %s\nwant %s", got, want)
	}
}

func TestBinaryPassThrough(t *testing.T) {
	for _, k := range []graph.Kind{KindUnion, KindDifference, KindIntersection, KindExclusion} {
		f := apply(t, mustDecode(t, k, nil), testEnv(nil), Inputs{"a": square})
		if f.Hash() != square.Hash() {
			t.Errorf("%s without b should return a", k)
		}
	}
}

func TestDifferenceMask(t *testing.T) {
	b := fragment.Fragment{Markup: `<circle r="10" fill="#fff"/>`, Defs: []string{"<g id=\"shared\"/>"}}
	a := fragment.Fragment{Markup: square.Markup, Defs: []string{"<g id=\"shared\"/>"}}
	f := apply(t, mustDecode(t, KindDifference, nil), testEnv(nil), Inputs{"a": a, "b": b})
	if len(f.Defs) != 2 {
		t.Fatalf("defs = %v", f.Defs)
	}
	mask := f.Defs[1]
	if !strings.Contains(mask, `fill="white"/><circle r="10" fill="black"/>`) {
		t.Errorf("mask: %s", mask)
	}
	if !strings.HasPrefix(f.Markup, `<g mask="url(#mask-1-t)">`) {
		t.Errorf("markup: %s", f.Markup)
	}
}

func TestExclusionUsesTwoMasks(t *testing.T) {
	b := fragment.Fragment{Markup: `<circle r="10"/>`}
	f := apply(t, mustDecode(t, KindExclusion, nil), testEnv(nil), Inputs{"a": square, "b": b})
	if strings.Count(f.Markup, "mask=") != 2 {
		t.Errorf("exclusion: %s", f.Markup)
	}
}

func TestMergeOrder(t *testing.T) {
	in := Inputs{
		"in3": {Markup: "<c/>"},
		"in0": {Markup: "<a/>"},
		"in1": {Markup: "<b/>"},
	}
	f := apply(t, mustDecode(t, KindMerge, nil), testEnv(nil), in)
	if f.Markup != "<a/><b/><c/>" {
		t.Errorf("merge = %q", f.Markup)
	}
}

func TestLayerBlurDegenerate(t *testing.T) {
	r := &squareRaster{}
	f := apply(t, mustDecode(t, KindLayerBlur, graph.Params{"by": 0.2}), testEnv(r), Inputs{"in": square})
	if f.Hash() != square.Hash() || r.calls.Load() != 0 {
		t.Errorf("zero-length blur should pass through without rasterizing")
	}
	f = apply(t, mustDecode(t, KindLayerBlur, graph.Params{"radius": 0.2}), testEnv(r), Inputs{"in": square})
	if f.Hash() != square.Hash() || r.calls.Load() != 0 {
		t.Errorf("tiny radius should pass through without rasterizing")
	}
}

func TestLayerBlurLayers(t *testing.T) {
	r := &squareRaster{}
	f := apply(t, mustDecode(t, KindLayerBlur, graph.Params{"radius": 16}), testEnv(r), Inputs{"in": square})
	if r.calls.Load() != 1 {
		t.Fatalf("rasterized %d times, want 1", r.calls.Load())
	}
	if got := strings.Count(f.Markup, "<use "); got != LayerSteps+1 {
		t.Errorf("uses = %d, want %d", got, LayerSteps+1)
	}
	if got := len(f.Defs); got != 1+3*LayerSteps {
		t.Errorf("defs = %d", got)
	}
	if !strings.Contains(f.Defs[1], `x1="128" y1="51.2" x2="128" y2="204.8"`) {
		t.Errorf("first gradient: %s", f.Defs[1])
	}
	if !strings.Contains(f.Defs[1], `offset="0"`) || !strings.Contains(f.Defs[1], `offset="0.063"`) {
		t.Errorf("first gradient stops: %s", f.Defs[1])
	}
	if !strings.Contains(f.Defs[3], `stdDeviation="1"`) || !strings.Contains(f.Defs[len(f.Defs)-1], `stdDeviation="16"`) {
		t.Errorf("blur ramp: %s ... %s", f.Defs[3], f.Defs[len(f.Defs)-1])
	}
}

func TestLayerBlurFailurePassesThrough(t *testing.T) {
	f := apply(t, mustDecode(t, KindLayerBlur, nil), testEnv(failingRaster), Inputs{"in": square})
	if f.Hash() != square.Hash() {
		t.Errorf("failure should pass the input through")
	}
}

func TestTrace(t *testing.T) {
	r := &squareRaster{}
	f := apply(t, mustDecode(t, KindTrace, graph.Params{"fidelity": 32}), testEnv(r), Inputs{"in": square})
	req := r.last.Load().(raster.Request)
	if req.Width != 32 || req.Viewport != 256 {
		t.Errorf("request = %+v", req)
	}
	if !strings.HasPrefix(f.Markup, "<path d=\"M") || !strings.Contains(f.Markup, "Z") {
		t.Errorf("trace: %s", f.Markup)
	}

	if f := apply(t, mustDecode(t, KindTrace, nil), testEnv(r), nil); !f.IsEmpty() {
		t.Errorf("trace without input should be empty")
	}
	if f := apply(t, mustDecode(t, KindTrace, nil), testEnv(failingRaster), Inputs{"in": square}); !f.IsEmpty() {
		t.Errorf("trace failure should be empty")
	}
	if f := apply(t, mustDecode(t, KindTrace, nil), testEnv(nil), Inputs{"in": square}); !f.IsEmpty() {
		t.Errorf("trace without rasterizer should be empty")
	}
}

func TestTraceCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := mustDecode(t, KindTrace, nil).Apply(ctx, testEnv(&squareRaster{}), Inputs{"in": square})
	if !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}

func TestPixelate(t *testing.T) {
	r := &squareRaster{}
	f := apply(t, mustDecode(t, KindPixelate, graph.Params{"pixel_size": 16}), testEnv(r), Inputs{"in": square})
	if req := r.last.Load().(raster.Request); req.Width != 16 {
		t.Errorf("requested %d px, want 16", req.Width)
	}
	if !strings.Contains(f.Markup, `image-rendering="pixelated"`) || !strings.Contains(f.Markup, "data:image/png;base64,") {
		t.Errorf("pixelate: %.120s", f.Markup)
	}
	f = apply(t, mustDecode(t, KindPixelate, nil), testEnv(failingRaster), Inputs{"in": square})
	if f.Hash() != square.Hash() {
		t.Errorf("failure should pass the input through")
	}
}

func TestWaveDeterministic(t *testing.T) {
	op := mustDecode(t, KindWave, graph.Params{"seed": 7})
	env := testEnv(nil)
	env.Resolution = 64
	a := apply(t, op, env, nil)
	b := apply(t, op, env, nil)
	if a.Markup != b.Markup {
		t.Errorf("wave not deterministic")
	}
	if !strings.HasPrefix(a.Markup, `<image x="0" y="0" width="64" height="64" href="data:image/png;base64,`) {
		t.Errorf("wave: %.80s", a.Markup)
	}
	c := apply(t, mustDecode(t, KindWave, graph.Params{"seed": 8}), env, nil)
	if c.Markup == a.Markup {
		t.Errorf("different seeds gave the same output")
	}
}

func TestWaveFallsBackToGradient(t *testing.T) {
	env := testEnv(failingRaster)
	env.Resolution = 32
	with := apply(t, mustDecode(t, KindWave, nil), env, Inputs{"in": square})
	env.Raster = nil
	without := apply(t, mustDecode(t, KindWave, nil), env, nil)
	if with.Markup != without.Markup {
		t.Errorf("failed input should fall back to the gradient base")
	}
}

func TestGlowFilter(t *testing.T) {
	f := apply(t, mustDecode(t, KindGlow, graph.Params{"radius": 10}), testEnv(nil), Inputs{"in": square})
	if len(f.Defs) != 1 || !strings.Contains(f.Defs[0], `stdDeviation="5"`) || !strings.Contains(f.Defs[0], `stdDeviation="10"`) {
		t.Fatalf("glow defs: %v", f.Defs)
	}
	if !strings.Contains(f.Markup, `filter="url(#glow-1-t)"`) {
		t.Errorf("glow markup: %s", f.Markup)
	}
}

func TestFadeAndTransform(t *testing.T) {
	f := apply(t, mustDecode(t, KindFade, nil), testEnv(nil), Inputs{"in": square})
	if len(f.Defs) != 2 || !strings.Contains(f.Defs[0], `x1="128" y1="0" x2="128" y2="256"`) {
		t.Errorf("fade defs: %v", f.Defs)
	}
	tf := apply(t, mustDecode(t, KindTransform, graph.Params{"rotate": 45, "scale": 2}), testEnv(nil), Inputs{"in": square})
	if !strings.Contains(tf.Markup, `transform="translate(128 128) rotate(45) scale(2) translate(-128 -128)"`) {
		t.Errorf("transform: %s", tf.Markup)
	}
}
