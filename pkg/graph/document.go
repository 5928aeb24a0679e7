package graph

import (
	"bytes"
	"fmt"
	"io"

	"gopkg.in/yaml.v3"
)

// Document is the serialized form of a graph. JSON documents parse as YAML.
type Document struct {
	Output NodeID `yaml:"output,omitempty" json:"output,omitempty"`
	Nodes  []Node `yaml:"nodes" json:"nodes"`
	Edges  []Edge `yaml:"edges,omitempty" json:"edges,omitempty"`
}

// Decode reads a YAML or JSON graph document.
func Decode(r io.Reader) (*Graph, NodeID, error) {
	var doc Document
	dec := yaml.NewDecoder(r)
	if err := dec.Decode(&doc); err != nil && err != io.EOF {
		return nil, ZeroID, fmt.Errorf("decode graph document: %w", err)
	}
	g, err := doc.Build()
	if err != nil {
		return nil, ZeroID, err
	}
	return g, doc.Output, nil
}

// Build creates a Graph from the document.
func (d Document) Build() (*Graph, error) {
	g := New()
	for _, n := range d.Nodes {
		n.Params = normalizeParams(n.Params)
		if err := g.AddNode(n); err != nil {
			return nil, err
		}
	}
	for _, e := range d.Edges {
		if err := g.Connect(e); err != nil {
			return nil, err
		}
	}
	if !d.Output.IsZero() {
		if _, ok := g.Node(d.Output); !ok {
			return nil, fmt.Errorf("output %s: %w", d.Output.Short(), ErrUnknownNode)
		}
	}
	return g, nil
}

// Snapshot returns the document form of g.
func (g *Graph) Snapshot(output NodeID) Document {
	return Document{Output: output, Nodes: g.Nodes(), Edges: g.Edges()}
}

// Encode writes g as a YAML document.
func Encode(w io.Writer, g *Graph, output NodeID) error {
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(g.Snapshot(output)); err != nil {
		return fmt.Errorf("encode graph document: %w", err)
	}
	if err := enc.Close(); err != nil {
		return fmt.Errorf("encode graph document: %w", err)
	}
	_, err := w.Write(buf.Bytes())
	return err
}

// normalizeParams converts yaml's map[string]interface{} values nested in
// point arrays into plain maps so decoding sees one shape.
func normalizeParams(p Params) Params {
	if p == nil {
		return Params{}
	}
	out := make(Params, len(p))
	for k, v := range p {
		out[k] = normalizeValue(v)
	}
	return out
}

func normalizeMap(t map[string]any) map[string]any {
	m := make(map[string]any, len(t))
	for k, val := range t {
		m[k] = normalizeValue(val)
	}
	return m
}

func normalizeValue(v any) any {
	switch t := v.(type) {
	case map[any]any:
		m := make(map[string]any, len(t))
		for k, val := range t {
			m[fmt.Sprint(k)] = normalizeValue(val)
		}
		return m
	case map[string]any:
		return normalizeMap(t)
	case Params:
		return normalizeMap(t)
	case []any:
		out := make([]any, len(t))
		for i, val := range t {
			out[i] = normalizeValue(val)
		}
		return out
	}
	return v
}
