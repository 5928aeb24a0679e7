package ops

import (
	"context"
	"fmt"

	"github.com/chazu/glyphgraph/pkg/fragment"
	"github.com/chazu/glyphgraph/pkg/graph"
)

// Combine composites two fragments with masks. It is a visual operation:
// the geometry of a and b is left untouched.
type Combine struct {
	Mode graph.Kind `param:"-"`
}

func (*Combine) operator()          {}
func (c *Combine) Kind() graph.Kind { return c.Mode }
func (*Combine) Ports() []Port      { return abPorts }

func (c *Combine) Apply(_ context.Context, env Env, in Inputs) (fragment.Fragment, error) {
	a := in["a"]
	b, ok := in["b"]
	if !ok {
		return a, nil
	}
	switch c.Mode {
	case KindDifference:
		return subtract(env, a, b), nil
	case KindIntersection:
		return masked(env, a, b, "white", false), nil
	case KindExclusion:
		ab, ba := subtract(env, a, b), subtract(env, b, a)
		return union(ab, ba), nil
	default:
		return union(a, b), nil
	}
}

func union(a, b fragment.Fragment) fragment.Fragment {
	f := fragment.Combine(a, b)
	f.Markup = group("", f.Markup)
	return f
}

func subtract(env Env, a, b fragment.Fragment) fragment.Fragment {
	return masked(env, a, b, "black", true)
}

// masked draws a through a mask made from b painted c. With canvas set the
// mask starts from a white full-bleed rectangle, so b cuts holes.
func masked(env Env, a, b fragment.Fragment, c string, canvas bool) fragment.Fragment {
	id := env.IDs.Next("mask")
	content := recolor(b.Markup, c)
	if canvas {
		content = canvasRect(env.Resolution, "white") + content
	}
	mask := fmt.Sprintf(`<mask id="%s" maskUnits="userSpaceOnUse" x="0" y="0" width="%d" height="%d">%s</mask>`,
		id, env.Resolution, env.Resolution, content)
	return fragment.Fragment{
		Markup: group(attr("mask", "url(#"+id+")"), a.Markup),
		Defs:   fragment.MergeDefs(a.Defs, b.Defs, []string{mask}),
	}
}
