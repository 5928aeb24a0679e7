package engine

import (
	"fmt"
	"sort"
	"strings"

	zygo "github.com/glycerine/zygomys/zygo"

	"github.com/chazu/glyphgraph/pkg/graph"
	"github.com/chazu/glyphgraph/pkg/ops"
)

// ---------------------------------------------------------------------------
// Source preprocessing
// ---------------------------------------------------------------------------

// preprocessSource transforms graph script source code before passing it to
// zygomys. It performs two transformations:
//
//  1. Keyword conversion: :keyword -> "__kw_keyword" (string literal)
//     This avoids the need to register keyword symbols as globals, which
//     would conflict with user-defined variables of the same name.
//
//  2. Kebab-case to underscore: my-shape -> my_shape
//     zygomys does not allow hyphens in identifiers (it interprets them
//     as the subtraction operator). This converts kebab-case identifiers
//     to underscore form outside of strings and comments.
//
// Both transformations respect string literal boundaries and line comments.
func preprocessSource(source string) string {
	result := make([]byte, 0, len(source)+len(source)/4)
	b := []byte(source)
	i := 0
	for i < len(b) {
		// Skip double-quoted string literals.
		if b[i] == '"' {
			result = append(result, b[i])
			i++
			for i < len(b) && b[i] != '"' {
				if b[i] == '\\' && i+1 < len(b) {
					result = append(result, b[i], b[i+1])
					i += 2
					continue
				}
				result = append(result, b[i])
				i++
			}
			if i < len(b) {
				result = append(result, b[i])
				i++
			}
			continue
		}
		// Skip backtick-quoted string literals.
		if b[i] == '`' {
			result = append(result, b[i])
			i++
			for i < len(b) && b[i] != '`' {
				result = append(result, b[i])
				i++
			}
			if i < len(b) {
				result = append(result, b[i])
				i++
			}
			continue
		}
		// Convert ; line comments to // comments for zygomys.
		// zygomys uses // for line comments, not the traditional Lisp ;.
		if b[i] == ';' {
			result = append(result, '/', '/')
			i++
			// Skip additional ; characters (;; style).
			for i < len(b) && b[i] == ';' {
				i++
			}
			for i < len(b) && b[i] != '\n' {
				result = append(result, b[i])
				i++
			}
			continue
		}
		// Transform :keyword to "__kw_keyword".
		if b[i] == ':' && i+1 < len(b) {
			// Preserve := (assignment operator).
			if b[i+1] == '=' {
				result = append(result, b[i], b[i+1])
				i += 2
				continue
			}
			// Check for keyword: colon followed by a letter.
			if isLetter(b[i+1]) {
				j := i + 1
				for j < len(b) && isKWChar(b[j]) {
					j++
				}
				kwName := string(b[i+1 : j])
				result = append(result, '"')
				result = append(result, []byte(kwPrefix)...)
				result = append(result, []byte(kwName)...)
				result = append(result, '"')
				i = j
				continue
			}
		}
		// Transform kebab-case identifiers: alpha-alpha -> alpha_alpha.
		// Only when hyphen sits between identifier characters (not a minus operator).
		if b[i] == '-' && i > 0 && i+1 < len(b) &&
			isIdentChar(b[i-1]) && isIdentStartChar(b[i+1]) {
			result = append(result, '_')
			i++
			continue
		}
		result = append(result, b[i])
		i++
	}
	return string(result)
}

func isLetter(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isKWChar(c byte) bool {
	return isLetter(c) || (c >= '0' && c <= '9') || c == '-' || c == '_'
}

func isIdentChar(c byte) bool {
	return isLetter(c) || (c >= '0' && c <= '9') || c == '_'
}

func isIdentStartChar(c byte) bool {
	return isLetter(c)
}

// ---------------------------------------------------------------------------
// Custom Sexp types for passing Go values through the zygomys environment
// ---------------------------------------------------------------------------

// sexpNodeRef wraps a graph.NodeID so it can be passed between builtins.
type sexpNodeRef struct {
	id graph.NodeID
}

func (n *sexpNodeRef) SexpString(ps *zygo.PrintState) string {
	return fmt.Sprintf("(noderef %q)", n.id.Short())
}
func (n *sexpNodeRef) Type() *zygo.RegisteredType { return nil }

// sexpPoint is a control point built by pt or bez.
type sexpPoint struct {
	x, y    float64
	tension *float64
	in, out *[2]float64
}

func (p *sexpPoint) SexpString(ps *zygo.PrintState) string {
	if p.in != nil {
		return fmt.Sprintf("(bez %g %g %g %g %g %g)", p.x, p.y, p.in[0], p.in[1], p.out[0], p.out[1])
	}
	return fmt.Sprintf("(pt %g %g)", p.x, p.y)
}
func (p *sexpPoint) Type() *zygo.RegisteredType { return nil }

// value returns the point in the parameter shape operators decode.
func (p *sexpPoint) value() map[string]any {
	m := map[string]any{"x": p.x, "y": p.y}
	if p.tension != nil {
		m["tension"] = *p.tension
	}
	if p.in != nil {
		m["in"] = map[string]any{"x": p.in[0], "y": p.in[1]}
	}
	if p.out != nil {
		m["out"] = map[string]any{"x": p.out[0], "y": p.out[1]}
	}
	return m
}

// ---------------------------------------------------------------------------
// Keyword argument parsing
// ---------------------------------------------------------------------------

// kwPrefix is the marker prepended to keyword names by preprocessSource.
const kwPrefix = "__kw_"

// isKW checks if a Sexp is a preprocessed keyword string.
// Returns the keyword name (without prefix) and true if it is.
func isKW(s zygo.Sexp) (string, bool) {
	str, ok := s.(*zygo.SexpStr)
	if !ok {
		return "", false
	}
	if strings.HasPrefix(str.S, kwPrefix) {
		return str.S[len(kwPrefix):], true
	}
	return "", false
}

// kwArgs holds the result of parsing a mixed positional+keyword argument list.
type kwArgs struct {
	kw         map[string]zygo.Sexp
	positional []zygo.Sexp
}

// keys returns the keyword names in sorted order.
func (a kwArgs) keys() []string {
	out := make([]string, 0, len(a.kw))
	for k := range a.kw {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// parseArgs separates args into keyword and positional arguments.
// Keywords are identified by the __kw_ prefix added during preprocessing.
func parseArgs(args []zygo.Sexp) kwArgs {
	result := kwArgs{kw: make(map[string]zygo.Sexp)}
	i := 0
	for i < len(args) {
		name, ok := isKW(args[i])
		if ok {
			if i+1 < len(args) {
				result.kw[name] = args[i+1]
				i += 2
			} else {
				// Keyword at end with no value: treat as flag with nil.
				result.kw[name] = zygo.SexpNull
				i++
			}
		} else {
			result.positional = append(result.positional, args[i])
			i++
		}
	}
	return result
}

// ---------------------------------------------------------------------------
// Value extraction helpers
// ---------------------------------------------------------------------------

// toFloat64 extracts a float64 from a Sexp (SexpInt or SexpFloat).
func toFloat64(s zygo.Sexp) (float64, error) {
	switch v := s.(type) {
	case *zygo.SexpInt:
		return float64(v.Val), nil
	case *zygo.SexpFloat:
		return v.Val, nil
	}
	return 0, fmt.Errorf("expected number, got %T (%s)", s, s.SexpString(nil))
}

// toKeywordString extracts a keyword name or plain string from a Sexp.
// Handles both preprocessed keywords (__kw_rect) and plain strings ("rect").
func toKeywordString(s zygo.Sexp) (string, error) {
	str, ok := s.(*zygo.SexpStr)
	if !ok {
		return "", fmt.Errorf("expected keyword or string, got %T (%s)", s, s.SexpString(nil))
	}
	return strings.TrimPrefix(str.S, kwPrefix), nil
}

// toNodeRef extracts a NodeID from a sexpNodeRef.
func toNodeRef(s zygo.Sexp) (graph.NodeID, error) {
	if ref, ok := s.(*sexpNodeRef); ok {
		return ref.id, nil
	}
	return graph.ZeroID, fmt.Errorf("expected node reference, got %T (%s)", s, s.SexpString(nil))
}

// sexpListToSlice converts a SexpPair (Lisp list) or SexpArray to a Go slice.
func sexpListToSlice(s zygo.Sexp) ([]zygo.Sexp, error) {
	switch v := s.(type) {
	case *zygo.SexpPair:
		return zygo.ListToArray(v)
	case *zygo.SexpArray:
		return v.Val, nil
	case *zygo.SexpSentinel:
		if v == zygo.SexpNull {
			return nil, nil
		}
	}
	return nil, fmt.Errorf("expected list or array, got %T", s)
}

// toParam converts a script value into a parameter value.
func toParam(s zygo.Sexp) (any, error) {
	switch v := s.(type) {
	case *zygo.SexpInt:
		return v.Val, nil
	case *zygo.SexpFloat:
		return v.Val, nil
	case *zygo.SexpStr:
		return strings.TrimPrefix(v.S, kwPrefix), nil
	case *zygo.SexpBool:
		return v.Val, nil
	case *sexpPoint:
		return v.value(), nil
	case *sexpNodeRef:
		return nil, fmt.Errorf("node reference %s is not a parameter value", v.id.Short())
	case *zygo.SexpPair, *zygo.SexpArray:
		items, err := sexpListToSlice(v)
		if err != nil {
			return nil, err
		}
		out := make([]any, 0, len(items))
		for i, it := range items {
			p, err := toParam(it)
			if err != nil {
				return nil, fmt.Errorf("item %d: %w", i, err)
			}
			out = append(out, p)
		}
		return out, nil
	case *zygo.SexpSentinel:
		if v == zygo.SexpNull {
			return nil, nil
		}
	}
	return nil, fmt.Errorf("unsupported value %T (%s)", s, s.SexpString(nil))
}

// paramName maps a keyword to a parameter key: radius-tl -> radius_tl.
func paramName(kw string) string {
	return strings.ReplaceAll(kw, "-", "_")
}

// ---------------------------------------------------------------------------
// Graph building
// ---------------------------------------------------------------------------

// builder accumulates the graph of one evaluation. Anonymous node ids are
// numbered per evaluation so the same source always yields the same ids.
type builder struct {
	script *Script
	counts map[graph.Kind]int
}

func (b *builder) anonymousID(kind graph.Kind) graph.NodeID {
	for {
		b.counts[kind]++
		id := graph.NodeID(fmt.Sprintf("%s-%d", kind, b.counts[kind]))
		if _, taken := b.script.Graph.Node(id); !taken {
			return id
		}
	}
}

func hasPort(op ops.Operator, name string) bool {
	for _, p := range op.Ports() {
		if p.Name == name {
			return true
		}
	}
	return false
}

// freePort returns the first input port of target without an edge.
func (b *builder) freePort(target graph.NodeID) (string, bool) {
	n, ok := b.script.Graph.Node(target)
	if !ok {
		return "", false
	}
	op, err := ops.Decode(n.Kind, nil)
	if err != nil {
		return "", false
	}
	taken := b.script.Graph.Inputs(target)
	for _, p := range op.Ports() {
		if _, ok := taken[p.Name]; !ok {
			return p.Name, true
		}
	}
	return "", false
}

// node declares a node of kind. The first string positional is its id;
// node reference positionals feed the free input ports in order; keywords
// whose value is a node reference feed the port of that name, and all
// other keywords become parameters.
func (b *builder) node(kind graph.Kind, args []zygo.Sexp) (zygo.Sexp, error) {
	op, err := ops.Decode(kind, nil)
	if err != nil {
		return zygo.SexpNull, err
	}
	pa := parseArgs(args)

	var id graph.NodeID
	var inputs []graph.NodeID
	for i, p := range pa.positional {
		switch v := p.(type) {
		case *zygo.SexpStr:
			if !id.IsZero() {
				return zygo.SexpNull, fmt.Errorf("%s: argument %d: id already set to %q", kind, i, id)
			}
			id = graph.NodeID(v.S)
		case *sexpNodeRef:
			inputs = append(inputs, v.id)
		default:
			return zygo.SexpNull, fmt.Errorf("%s: argument %d: expected id or node reference, got %s", kind, i, p.SexpString(nil))
		}
	}
	if id.IsZero() {
		id = b.anonymousID(kind)
	}

	params := graph.Params{}
	wired := map[string]graph.NodeID{}
	for _, k := range pa.keys() {
		v := pa.kw[k]
		if ref, ok := v.(*sexpNodeRef); ok {
			if !hasPort(op, k) {
				return zygo.SexpNull, fmt.Errorf("%s: no input port %q", kind, k)
			}
			wired[k] = ref.id
			continue
		}
		val, err := toParam(v)
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("%s: %s: %w", kind, k, err)
		}
		params[paramName(k)] = val
	}

	g := b.script.Graph
	if err := g.AddNode(graph.Node{ID: id, Kind: kind, Params: params}); err != nil {
		return zygo.SexpNull, fmt.Errorf("%s %q: %w", kind, id, err)
	}
	for _, port := range sortedKeys(wired) {
		if err := g.Connect(graph.Edge{Source: wired[port], Target: id, TargetPort: port}); err != nil {
			return zygo.SexpNull, fmt.Errorf("%s %q: %w", kind, id, err)
		}
	}
	for _, src := range inputs {
		port, ok := b.freePort(id)
		if !ok {
			return zygo.SexpNull, fmt.Errorf("%s %q: too many inputs", kind, id)
		}
		if err := g.Connect(graph.Edge{Source: src, Target: id, TargetPort: port}); err != nil {
			return zygo.SexpNull, fmt.Errorf("%s %q: %w", kind, id, err)
		}
	}
	b.script.Output = id
	return &sexpNodeRef{id: id}, nil
}

func sortedKeys(m map[string]graph.NodeID) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// ---------------------------------------------------------------------------
// Builtin registration
// ---------------------------------------------------------------------------

// registerBuiltins installs the graph script builtins into a zygomys
// environment. The builtins populate s during evaluation.
//
// Source code must be preprocessed with preprocessSource() before evaluation so
// that :keyword tokens are converted to recognizable string literals.
func registerBuiltins(env *zygo.Zlisp, s *Script) {
	b := &builder{script: s, counts: map[graph.Kind]int{}}

	// -----------------------------------------------------------------------
	// (node "rect" "id" :width 0.4), or per kind: (rect "id" :width 0.4)
	// -----------------------------------------------------------------------
	env.AddFunction("node", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		if len(args) < 1 {
			return zygo.SexpNull, fmt.Errorf("node requires a kind")
		}
		kind, err := toKeywordString(args[0])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("node: kind: %w", err)
		}
		return b.node(graph.Kind(kind), args[1:])
	})
	for _, kind := range ops.Kinds() {
		env.AddFunction(string(kind), func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
			return b.node(kind, args)
		})
	}

	// -----------------------------------------------------------------------
	// (wire src dst :port "in" :from "out")
	// -----------------------------------------------------------------------
	env.AddFunction("wire", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		pa := parseArgs(args)
		if len(pa.positional) != 2 {
			return zygo.SexpNull, fmt.Errorf("wire requires a source and a target")
		}
		src, err := toNodeRef(pa.positional[0])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("wire: source: %w", err)
		}
		dst, err := toNodeRef(pa.positional[1])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("wire: target: %w", err)
		}
		e := graph.Edge{Source: src, Target: dst}
		if v, ok := pa.kw["port"]; ok {
			if e.TargetPort, err = toKeywordString(v); err != nil {
				return zygo.SexpNull, fmt.Errorf("wire: port: %w", err)
			}
		} else if p, ok := b.freePort(dst); ok {
			e.TargetPort = p
		} else {
			return zygo.SexpNull, fmt.Errorf("wire: %s has no free input port", dst.Short())
		}
		if v, ok := pa.kw["from"]; ok {
			if e.SourcePort, err = toKeywordString(v); err != nil {
				return zygo.SexpNull, fmt.Errorf("wire: from: %w", err)
			}
		}
		if err := s.Graph.Connect(e); err != nil {
			return zygo.SexpNull, fmt.Errorf("wire: %w", err)
		}
		return &sexpNodeRef{id: dst}, nil
	})

	// -----------------------------------------------------------------------
	// (pt x y :tension t)
	// -----------------------------------------------------------------------
	env.AddFunction("pt", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		pa := parseArgs(args)
		if len(pa.positional) != 2 {
			return zygo.SexpNull, fmt.Errorf("pt requires x and y")
		}
		p := &sexpPoint{}
		var err error
		if p.x, err = toFloat64(pa.positional[0]); err != nil {
			return zygo.SexpNull, fmt.Errorf("pt: x: %w", err)
		}
		if p.y, err = toFloat64(pa.positional[1]); err != nil {
			return zygo.SexpNull, fmt.Errorf("pt: y: %w", err)
		}
		if v, ok := pa.kw["tension"]; ok {
			t, err := toFloat64(v)
			if err != nil {
				return zygo.SexpNull, fmt.Errorf("pt: tension: %w", err)
			}
			p.tension = &t
		}
		return p, nil
	})

	// -----------------------------------------------------------------------
	// (bez x y in-x in-y out-x out-y)
	// -----------------------------------------------------------------------
	env.AddFunction("bez", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		if len(args) != 2 && len(args) != 6 {
			return zygo.SexpNull, fmt.Errorf("bez requires 2 or 6 numbers, got %d", len(args))
		}
		var v [6]float64
		for i, a := range args {
			f, err := toFloat64(a)
			if err != nil {
				return zygo.SexpNull, fmt.Errorf("bez: argument %d: %w", i, err)
			}
			v[i] = f
		}
		if len(args) == 2 {
			v[2], v[3], v[4], v[5] = v[0], v[1], v[0], v[1]
		}
		return &sexpPoint{x: v[0], y: v[1], in: &[2]float64{v[2], v[3]}, out: &[2]float64{v[4], v[5]}}, nil
	})

	// -----------------------------------------------------------------------
	// (output ref)
	// -----------------------------------------------------------------------
	env.AddFunction("output", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		if len(args) != 1 {
			return zygo.SexpNull, fmt.Errorf("output requires one node reference")
		}
		id, err := toNodeRef(args[0])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("output: %w", err)
		}
		s.Output = id
		return args[0], nil
	})
}
