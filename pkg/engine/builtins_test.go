package engine

import (
	"strings"
	"testing"

	"github.com/chazu/glyphgraph/pkg/graph"
)

// ---------------------------------------------------------------------------
// Preprocessing tests
// ---------------------------------------------------------------------------

func TestPreprocessKeywords(t *testing.T) {
	tests := []struct {
		name   string
		input  string
		expect string
	}{
		{
			name:   "simple keyword",
			input:  `(rect :width 0.5)`,
			expect: `(rect "__kw_width" 0.5)`,
		},
		{
			name:   "multiple keywords",
			input:  `(circle :rx 0.2 :ry 0.1)`,
			expect: `(circle "__kw_rx" 0.2 "__kw_ry" 0.1)`,
		},
		{
			name:   "keyword in string preserved",
			input:  `"thing with :keyword inside"`,
			expect: `"thing with :keyword inside"`,
		},
		{
			name:   "assignment operator preserved",
			input:  `(def x := 10)`,
			expect: `(def x := 10)`,
		},
		{
			name:   "kebab-case identifier",
			input:  `(def base-shape :radius-tl ref)`,
			expect: `(def base_shape "__kw_radius-tl" ref)`,
		},
		{
			name:   "minus operator preserved",
			input:  `(- 10 5)`,
			expect: `(- 10 5)`,
		},
		{
			name:   "comment converted to // style",
			input:  `;; comment with :keyword`,
			expect: `// comment with :keyword`,
		},
		{
			name:   "single semicolon comment",
			input:  `; simple comment`,
			expect: `// simple comment`,
		},
		{
			name:   "hyphen in keyword preserved",
			input:  `:pixel-size`,
			expect: `"__kw_pixel-size"`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := preprocessSource(tt.input)
			if got != tt.expect {
				t.Errorf("preprocessSource(%q) = %q, want %q", tt.input, got, tt.expect)
			}
		})
	}
}

func mustEval(t *testing.T, source string) *Script {
	t.Helper()
	s, evalErrs, err := NewEngine().Evaluate(source)
	if err != nil {
		t.Fatalf("fatal error: %v", err)
	}
	if len(evalErrs) > 0 {
		t.Fatalf("eval errors: %v", evalErrs)
	}
	if s == nil {
		t.Fatal("expected non-nil script")
	}
	return s
}

// ---------------------------------------------------------------------------
// Node declaration
// ---------------------------------------------------------------------------

func TestSimpleNode(t *testing.T) {
	s := mustEval(t, `(rect "base" :width 0.4 :radius-tl 0.05 :fill "#ff0000")`)
	if s.Graph.NodeCount() != 1 {
		t.Fatalf("expected 1 node, got %d", s.Graph.NodeCount())
	}
	n, ok := s.Graph.Node("base")
	if !ok {
		t.Fatal("expected node 'base'")
	}
	if n.Kind != "rect" {
		t.Errorf("kind = %s, want rect", n.Kind)
	}
	if n.Params["width"] != 0.4 {
		t.Errorf("width = %v", n.Params["width"])
	}
	if n.Params["radius_tl"] != 0.05 {
		t.Errorf("radius_tl = %v", n.Params["radius_tl"])
	}
	if n.Params["fill"] != "#ff0000" {
		t.Errorf("fill = %v", n.Params["fill"])
	}
	if s.Output != "base" {
		t.Errorf("output = %q, want base", s.Output)
	}
}

func TestGenericNodeBuiltin(t *testing.T) {
	s := mustEval(t, `(node :circle "c" :rx 0.3)`)
	n, ok := s.Graph.Node("c")
	if !ok || n.Kind != "circle" {
		t.Fatalf("node = %+v, %v", n, ok)
	}
	if n.Params["rx"] != 0.3 {
		t.Errorf("rx = %v", n.Params["rx"])
	}
}

func TestAnonymousIDsAreDeterministic(t *testing.T) {
	src := `(merge (rect) (rect) (circle))`
	a := mustEval(t, src)
	b := mustEval(t, src)
	for _, id := range []graph.NodeID{"rect-1", "rect-2", "circle-1", "merge-1"} {
		if _, ok := a.Graph.Node(id); !ok {
			t.Errorf("missing node %s", id)
		}
		if _, ok := b.Graph.Node(id); !ok {
			t.Errorf("second run: missing node %s", id)
		}
	}
	if a.Output != "merge-1" {
		t.Errorf("output = %q", a.Output)
	}
}

func TestPositionalInputsFillPortsInOrder(t *testing.T) {
	s := mustEval(t, `
(def a (rect "a"))
(def b (circle "b"))
(difference "d" a b)
`)
	in := s.Graph.Inputs("d")
	if in["a"].Source != "a" || in["b"].Source != "b" {
		t.Errorf("inputs = %+v", in)
	}
}

func TestKeywordInput(t *testing.T) {
	s := mustEval(t, `
(def shape (polygon "star" :points 6))
(glow "g" :in shape :radius 12)
`)
	in := s.Graph.Inputs("g")
	if in["in"].Source != "star" {
		t.Errorf("inputs = %+v", in)
	}
	n, _ := s.Graph.Node("g")
	if _, ok := n.Params["in"]; ok {
		t.Error("node reference leaked into params")
	}
	if n.Params["radius"] != int64(12) {
		t.Errorf("radius = %#v", n.Params["radius"])
	}
}

func TestWireAndOutput(t *testing.T) {
	s := mustEval(t, `
(def r (rect "r"))
(def f (fill "f" :color "#00ff00"))
(def c (circle "c"))
(wire r f :port "in")
(output f)
`)
	in := s.Graph.Inputs("f")
	if in["in"].Source != "r" || in["in"].SourcePort != graph.DefaultPort {
		t.Errorf("inputs = %+v", in)
	}
	if s.Output != "f" {
		t.Errorf("output = %q, want f", s.Output)
	}
}

func TestWireDefaultsToFreePort(t *testing.T) {
	s := mustEval(t, `
(def m (merge "m"))
(wire (rect "a") m)
(wire (rect "b") m)
`)
	in := s.Graph.Inputs("m")
	if in["in0"].Source != "a" || in["in1"].Source != "b" {
		t.Errorf("inputs = %+v", in)
	}
}

func TestPointBuiltins(t *testing.T) {
	s := mustEval(t, `
(spline "s" :closed true :points [(pt 0.1 0.1) (pt 0.9 0.1 :tension 0) (pt 0.5 0.9)])
(pen "p" :points [(bez 0 0 0 0 0.5 0) (bez 1 1)])
`)
	n, _ := s.Graph.Node("s")
	pts, ok := n.Params["points"].([]any)
	if !ok || len(pts) != 3 {
		t.Fatalf("points = %#v", n.Params["points"])
	}
	second := pts[1].(map[string]any)
	if second["x"] != 0.9 || second["tension"] != 0.0 {
		t.Errorf("second point = %#v", second)
	}
	if n.Params["closed"] != true {
		t.Errorf("closed = %#v", n.Params["closed"])
	}

	p, _ := s.Graph.Node("p")
	bez := p.Params["points"].([]any)[0].(map[string]any)
	out := bez["out"].(map[string]any)
	if out["x"] != 0.5 {
		t.Errorf("out handle = %#v", out)
	}
}

func TestBuiltinErrors(t *testing.T) {
	tests := []struct {
		name   string
		source string
		want   string
	}{
		{"unknown kind", `(node :teapot)`, "unknown operator kind"},
		{"duplicate id", `(rect "a") (circle "a")`, "duplicate"},
		{"port taken", `(def r (rect)) (def f (fill r)) (wire r f :port "in")`, "already"},
		{"too many inputs", `(fill (rect) (rect))`, "too many inputs"},
		{"bad port keyword", `(def r (rect)) (glow :shape r)`, "no input port"},
		{"wire needs refs", `(wire 1 2)`, "expected node reference"},
		{"pt needs numbers", `(pt "a" 1)`, "expected number"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, evalErrs, err := NewEngine().Evaluate(tt.source)
			if err != nil {
				t.Fatalf("fatal error: %v", err)
			}
			if s != nil {
				t.Fatal("expected nil script")
			}
			if len(evalErrs) == 0 {
				t.Fatal("expected an eval error")
			}
			if !strings.Contains(evalErrs[0].Message, tt.want) {
				t.Errorf("message = %q, want containing %q", evalErrs[0].Message, tt.want)
			}
		})
	}
}

func TestArithmeticStillWorks(t *testing.T) {
	s := mustEval(t, `(circle "c" :rx (/ 1.0 4))`)
	n, _ := s.Graph.Node("c")
	if n.Params["rx"] != 0.25 {
		t.Errorf("rx = %v, want 0.25", n.Params["rx"])
	}
}
