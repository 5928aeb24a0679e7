package ops

import (
	"context"
	"fmt"
	"math"

	"github.com/chazu/glyphgraph/pkg/fragment"
	"github.com/chazu/glyphgraph/pkg/graph"
)

func group(attrs, markup string) string {
	return "<g" + attrs + ">" + markup + "</g>"
}

// Glow adds a soft halo built from two blurs of the input.
type Glow struct {
	Radius    float64 `param:"radius"`
	Intensity float64 `param:"intensity"`
}

func defaultGlow() *Glow { return &Glow{Radius: 8, Intensity: 1.5} }

func (*Glow) operator()        {}
func (*Glow) Kind() graph.Kind { return KindGlow }
func (*Glow) Ports() []Port    { return inPort }
func (g *Glow) normalize() {
	g.Radius = nonNeg(g.Radius)
	g.Intensity = clamp(g.Intensity, 0, 100)
}

func (g *Glow) Apply(_ context.Context, env Env, in Inputs) (fragment.Fragment, error) {
	src := in["in"]
	if src.IsEmpty() {
		return src, nil
	}
	id := env.IDs.Next("glow")
	filter := fmt.Sprintf(`<filter id="%s" x="-50%%" y="-50%%" width="200%%" height="200%%">`+
		`<feGaussianBlur in="SourceGraphic" stdDeviation="%s" result="near"/>`+
		`<feGaussianBlur in="SourceGraphic" stdDeviation="%s" result="far"/>`+
		`<feMerge result="halo"><feMergeNode in="near"/><feMergeNode in="far"/></feMerge>`+
		`<feComponentTransfer in="halo" result="glow"><feFuncA type="linear" slope="%s"/></feComponentTransfer>`+
		`<feMerge><feMergeNode in="glow"/><feMergeNode in="SourceGraphic"/></feMerge></filter>`,
		id, num(g.Radius*0.5), num(g.Radius), num(g.Intensity))
	return src.Wrap(group(attr("filter", "url(#"+id+")"), src.Markup), filter), nil
}

// Neon is a glow tinted with Color, keeping the source on top.
type Neon struct {
	Radius    float64 `param:"radius"`
	Intensity float64 `param:"intensity"`
	Color     string  `param:"color"`
}

func defaultNeon() *Neon { return &Neon{Radius: 6, Intensity: 2, Color: "#00ffff"} }

func (*Neon) operator()        {}
func (*Neon) Kind() graph.Kind { return KindNeon }
func (*Neon) Ports() []Port    { return inPort }
func (n *Neon) normalize() {
	n.Radius = nonNeg(n.Radius)
	n.Intensity = clamp(n.Intensity, 0, 100)
	n.Color = cssColor(n.Color, "#00ffff")
}

func (n *Neon) Apply(_ context.Context, env Env, in Inputs) (fragment.Fragment, error) {
	src := in["in"]
	if src.IsEmpty() {
		return src, nil
	}
	id := env.IDs.Next("neon")
	filter := fmt.Sprintf(`<filter id="%s" x="-50%%" y="-50%%" width="200%%" height="200%%">`+
		`<feGaussianBlur in="SourceAlpha" stdDeviation="%s" result="near"/>`+
		`<feGaussianBlur in="SourceAlpha" stdDeviation="%s" result="far"/>`+
		`<feMerge result="halo"><feMergeNode in="near"/><feMergeNode in="far"/></feMerge>`+
		`<feFlood flood-color="%s" result="tint"/>`+
		`<feComposite in="tint" in2="halo" operator="in" result="tinted"/>`+
		`<feComponentTransfer in="tinted" result="glow"><feFuncA type="linear" slope="%s"/></feComponentTransfer>`+
		`<feMerge><feMergeNode in="glow"/><feMergeNode in="SourceGraphic"/></feMerge></filter>`,
		id, num(n.Radius*0.5), num(n.Radius), n.Color, num(n.Intensity))
	return src.Wrap(group(attr("filter", "url(#"+id+")"), src.Markup), filter), nil
}

// Fill repaints the fill of every drawable in the input.
type Fill struct {
	Color   string  `param:"color"`
	Opacity float64 `param:"opacity"`
}

func defaultFill() *Fill { return &Fill{Color: defaultFillColor, Opacity: 1} }

func (*Fill) operator()        {}
func (*Fill) Kind() graph.Kind { return KindFill }
func (*Fill) Ports() []Port    { return inPort }
func (f *Fill) normalize() {
	f.Color = cssColor(f.Color, defaultFillColor)
	f.Opacity = clamp(f.Opacity, 0, 1)
}

func (f *Fill) Apply(_ context.Context, _ Env, in Inputs) (fragment.Fragment, error) {
	src := in["in"]
	set := attr("fill", f.Color) + opacityAttr("fill-opacity", f.Opacity)
	return src.Wrap(repaint(src.Markup, []string{"fill", "fill-opacity"}, set)), nil
}

// Stroke repaints the outline of every drawable in the input. Width is in
// pixels. Outline also clears the fill.
type Stroke struct {
	Color   string  `param:"color"`
	Width   float64 `param:"width"`
	Opacity float64 `param:"opacity"`
	Outline bool    `param:"outline"`
}

func defaultStroke() *Stroke { return &Stroke{Color: defaultFillColor, Width: 2, Opacity: 1} }

func (*Stroke) operator()        {}
func (*Stroke) Kind() graph.Kind { return KindStroke }
func (*Stroke) Ports() []Port    { return inPort }
func (s *Stroke) normalize() {
	s.Color = cssColor(s.Color, defaultFillColor)
	s.Width = nonNeg(s.Width)
	s.Opacity = clamp(s.Opacity, 0, 1)
}

func (s *Stroke) Apply(_ context.Context, _ Env, in Inputs) (fragment.Fragment, error) {
	src := in["in"]
	strip := []string{"stroke", "stroke-width", "stroke-opacity"}
	set := attr("stroke", s.Color) + attr("stroke-width", num(s.Width)) + opacityAttr("stroke-opacity", s.Opacity)
	if s.Outline {
		strip = append(strip, "fill")
		set += attr("fill", "none")
	}
	return src.Wrap(repaint(src.Markup, strip, set)), nil
}

// Fade masks its input with a linear opacity ramp. Angle is in degrees; 90
// fades from top to bottom. Start and End are offsets along the ramp.
type Fade struct {
	Angle float64 `param:"angle"`
	Start float64 `param:"start"`
	End   float64 `param:"end"`
}

func defaultFade() *Fade { return &Fade{Angle: 90, End: 1} }

func (*Fade) operator()        {}
func (*Fade) Kind() graph.Kind { return KindFade }
func (*Fade) Ports() []Port    { return inPort }
func (f *Fade) normalize() {
	f.Start = clamp(f.Start, 0, 1)
	f.End = clamp(f.End, 0, 1)
	if math.IsNaN(f.Angle) || math.IsInf(f.Angle, 0) {
		f.Angle = 90
	}
}

func (f *Fade) Apply(_ context.Context, env Env, in Inputs) (fragment.Fragment, error) {
	src := in["in"]
	if src.IsEmpty() {
		return src, nil
	}
	res := float64(env.Resolution)
	rad := f.Angle * math.Pi / 180
	dx, dy := math.Cos(rad)*res/2, math.Sin(rad)*res/2
	c := res / 2
	gid, mid := env.IDs.Next("fade-grad"), env.IDs.Next("fade-mask")
	grad := fmt.Sprintf(`<linearGradient id="%s" gradientUnits="userSpaceOnUse" x1="%s" y1="%s" x2="%s" y2="%s">`+
		`<stop offset="%s" stop-color="white" stop-opacity="1"/><stop offset="%s" stop-color="white" stop-opacity="0"/></linearGradient>`,
		gid, num(c-dx), num(c-dy), num(c+dx), num(c+dy), num(f.Start), num(f.End))
	mask := fmt.Sprintf(`<mask id="%s" maskUnits="userSpaceOnUse" x="0" y="0" width="%d" height="%d">%s</mask>`,
		mid, env.Resolution, env.Resolution, canvasRect(env.Resolution, "url(#"+gid+")"))
	return src.Wrap(group(attr("mask", "url(#"+mid+")"), src.Markup), grad, mask), nil
}

// Transform moves, rotates and scales its input about the canvas centre. X
// and Y are fractions of the resolution, Rotate is in degrees.
type Transform struct {
	X      float64 `param:"x"`
	Y      float64 `param:"y"`
	Rotate float64 `param:"rotate"`
	Scale  float64 `param:"scale"`
}

func defaultTransform() *Transform { return &Transform{Scale: 1} }

func (*Transform) operator()        {}
func (*Transform) Kind() graph.Kind { return KindTransform }
func (*Transform) Ports() []Port    { return inPort }
func (t *Transform) normalize() {
	if math.IsNaN(t.Scale) || math.IsInf(t.Scale, 0) {
		t.Scale = 1
	}
}

func (t *Transform) Apply(_ context.Context, env Env, in Inputs) (fragment.Fragment, error) {
	src := in["in"]
	if src.IsEmpty() {
		return src, nil
	}
	res := float64(env.Resolution)
	c := res / 2
	tf := fmt.Sprintf("translate(%s %s) rotate(%s) scale(%s) translate(%s %s)",
		num(c+t.X*res), num(c+t.Y*res), num(t.Rotate), num(t.Scale), num(-c), num(-c))
	return src.Wrap(group(attr("transform", tf), src.Markup)), nil
}

// MergePorts is the number of inputs a Merge stacks.
const MergePorts = 8

var mergePorts = func() []Port {
	ps := make([]Port, MergePorts)
	for i := range ps {
		ps[i] = Port{Name: fmt.Sprintf("in%d", i)}
	}
	return ps
}()

// Merge stacks its connected inputs in port order.
type Merge struct{}

func (*Merge) operator()        {}
func (*Merge) Kind() graph.Kind { return KindMerge }
func (*Merge) Ports() []Port    { return mergePorts }

func (*Merge) Apply(_ context.Context, _ Env, in Inputs) (fragment.Fragment, error) {
	fs := make([]fragment.Fragment, 0, len(in))
	for _, p := range mergePorts {
		if f, ok := in[p.Name]; ok {
			fs = append(fs, f)
		}
	}
	return fragment.Combine(fs...), nil
}
