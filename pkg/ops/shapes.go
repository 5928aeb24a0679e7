package ops

import (
	"context"
	"math"
	"strings"

	"github.com/chazu/glyphgraph/pkg/fragment"
	"github.com/chazu/glyphgraph/pkg/graph"
	"github.com/chazu/glyphgraph/pkg/pathlib"
	v2 "github.com/deadsy/sdfx/vec/v2"
)

const defaultFillColor = "#ffffff"

// Rect is a rounded rectangle centered on the canvas. A negative corner
// radius inherits Radius.
type Rect struct {
	Width    float64 `param:"width"`
	Height   float64 `param:"height"`
	Radius   float64 `param:"radius"`
	RadiusTL float64 `param:"radius_tl"`
	RadiusTR float64 `param:"radius_tr"`
	RadiusBR float64 `param:"radius_br"`
	RadiusBL float64 `param:"radius_bl"`
	Fill     string  `param:"fill"`
}

func defaultRect() *Rect {
	return &Rect{Width: 0.5, Height: 0.5, RadiusTL: -1, RadiusTR: -1, RadiusBR: -1, RadiusBL: -1, Fill: defaultFillColor}
}

func (*Rect) operator()        {}
func (*Rect) Kind() graph.Kind { return KindRect }
func (*Rect) Ports() []Port    { return noPorts }
func (r *Rect) normalize() {
	r.Width, r.Height, r.Radius = nonNeg(r.Width), nonNeg(r.Height), nonNeg(r.Radius)
	r.Fill = cssColor(r.Fill, defaultFillColor)
}

func (r *Rect) corner(v float64) float64 {
	if v < 0 || math.IsNaN(v) {
		return r.Radius
	}
	return v
}

func (r *Rect) Apply(_ context.Context, env Env, _ Inputs) (fragment.Fragment, error) {
	res := float64(env.Resolution)
	w, h := r.Width*res, r.Height*res
	if w == 0 || h == 0 {
		return fragment.Empty, nil
	}
	d := pathlib.RoundedRect(w, h, pathlib.Corners{
		TL: r.corner(r.RadiusTL) * res,
		TR: r.corner(r.RadiusTR) * res,
		BR: r.corner(r.RadiusBR) * res,
		BL: r.corner(r.RadiusBL) * res,
	})
	return fragment.Fragment{Markup: translate((res-w)/2, (res-h)/2, pathElem(d, attr("fill", r.Fill)))}, nil
}

// Circle is an ellipse centered on the canvas. RY <= 0 makes a circle.
type Circle struct {
	RX   float64 `param:"rx"`
	RY   float64 `param:"ry"`
	Fill string  `param:"fill"`
}

func defaultCircle() *Circle { return &Circle{RX: 0.25, Fill: defaultFillColor} }

func (*Circle) operator()        {}
func (*Circle) Kind() graph.Kind { return KindCircle }
func (*Circle) Ports() []Port    { return noPorts }
func (c *Circle) normalize() {
	c.RX, c.RY = nonNeg(c.RX), nonNeg(c.RY)
	if c.RY == 0 {
		c.RY = c.RX
	}
	c.Fill = cssColor(c.Fill, defaultFillColor)
}

func (c *Circle) Apply(_ context.Context, env Env, _ Inputs) (fragment.Fragment, error) {
	res := float64(env.Resolution)
	if c.RX == 0 {
		return fragment.Empty, nil
	}
	d := pathlib.Ellipse(c.RX*res, c.RY*res)
	return fragment.Fragment{Markup: translate(res/2, res/2, pathElem(d, attr("fill", c.Fill)))}, nil
}

// Polygon is a star when Inner < 1 and Star is set, otherwise a regular
// polygon with Points sides. Non-zero tensions round the vertices.
type Polygon struct {
	Points       int     `param:"points"`
	Radius       float64 `param:"radius"`
	Inner        float64 `param:"inner"`
	Star         bool    `param:"star"`
	OuterTension float64 `param:"outer_tension"`
	InnerTension float64 `param:"inner_tension"`
	Fill         string  `param:"fill"`
}

func defaultPolygon() *Polygon {
	return &Polygon{Points: 5, Radius: 0.35, Inner: 0.5, Star: true, Fill: defaultFillColor}
}

func (*Polygon) operator()        {}
func (*Polygon) Kind() graph.Kind { return KindPolygon }
func (*Polygon) Ports() []Port    { return noPorts }
func (p *Polygon) normalize() {
	p.Points = clampInt(p.Points, 3, 128)
	p.Radius = nonNeg(p.Radius)
	p.Inner = clamp(p.Inner, 0, 1)
	p.OuterTension = clamp(p.OuterTension, 0, 1)
	p.InnerTension = clamp(p.InnerTension, 0, 1)
	p.Fill = cssColor(p.Fill, defaultFillColor)
}

func (p *Polygon) Apply(_ context.Context, env Env, _ Inputs) (fragment.Fragment, error) {
	res := float64(env.Resolution)
	r := p.Radius * res
	if r == 0 {
		return fragment.Empty, nil
	}
	var pts []v2.Vec
	star := p.Star && p.Inner < 1
	if star {
		pts = pathlib.StarPoints(p.Points, r, r*p.Inner)
	} else {
		pts = pathlib.PolygonPoints(p.Points, r)
	}
	var d string
	if p.OuterTension > pathlib.SharpTension || p.InnerTension > pathlib.SharpTension {
		rt := pathlib.RoleTensions{Outer: p.OuterTension, Inner: p.InnerTension}
		if !star {
			rt.Inner = p.OuterTension
		}
		d = pathlib.Spline(rt.Apply(pts), true)
	} else {
		d = pathlib.Polyline(pts, true)
	}
	return fragment.Fragment{Markup: translate(res/2, res/2, pathElem(d, attr("fill", p.Fill)))}, nil
}

// Ring is a wavy ring centered on the canvas. A positive Thickness cuts an
// inner hole of radius Radius-Thickness.
type Ring struct {
	Radius    float64 `param:"radius"`
	Amplitude float64 `param:"amplitude"`
	Frequency float64 `param:"frequency"`
	Thickness float64 `param:"thickness"`
	Fill      string  `param:"fill"`
}

func defaultRing() *Ring {
	return &Ring{Radius: 0.3, Amplitude: 0.03, Frequency: 8, Fill: defaultFillColor}
}

func (*Ring) operator()        {}
func (*Ring) Kind() graph.Kind { return KindRing }
func (*Ring) Ports() []Port    { return noPorts }
func (r *Ring) normalize() {
	r.Radius = nonNeg(r.Radius)
	r.Amplitude = clamp(r.Amplitude, -r.Radius, r.Radius)
	r.Frequency = clamp(r.Frequency, 0, 180)
	r.Thickness = clamp(r.Thickness, 0, r.Radius)
	r.Fill = cssColor(r.Fill, defaultFillColor)
}

func (r *Ring) Apply(_ context.Context, env Env, _ Inputs) (fragment.Fragment, error) {
	res := float64(env.Resolution)
	if r.Radius == 0 {
		return fragment.Empty, nil
	}
	d := pathlib.WavyRing(r.Radius*res, r.Amplitude*res, r.Frequency)
	if r.Thickness > 0 && r.Thickness < r.Radius {
		d += " " + pathlib.Ellipse((r.Radius-r.Thickness)*res, (r.Radius-r.Thickness)*res)
	}
	el := pathElem(d, attr("fill", r.Fill), attr("fill-rule", "evenodd"))
	return fragment.Fragment{Markup: translate(res/2, res/2, el)}, nil
}

// Beam is a trapezoidal light beam that fades from top to bottom.
type Beam struct {
	Length       float64 `param:"length"`
	Top          float64 `param:"top"`
	Bottom       float64 `param:"bottom"`
	Fill         string  `param:"fill"`
	OpacityStart float64 `param:"opacity_start"`
	OpacityEnd   float64 `param:"opacity_end"`
}

func defaultBeam() *Beam {
	return &Beam{Length: 0.6, Top: 0.02, Bottom: 0.15, Fill: defaultFillColor, OpacityStart: 1}
}

func (*Beam) operator()        {}
func (*Beam) Kind() graph.Kind { return KindBeam }
func (*Beam) Ports() []Port    { return noPorts }
func (b *Beam) normalize() {
	b.Length, b.Top, b.Bottom = nonNeg(b.Length), nonNeg(b.Top), nonNeg(b.Bottom)
	b.OpacityStart = clamp(b.OpacityStart, 0, 1)
	b.OpacityEnd = clamp(b.OpacityEnd, 0, 1)
	b.Fill = cssColor(b.Fill, defaultFillColor)
}

func (b *Beam) Apply(_ context.Context, env Env, _ Inputs) (fragment.Fragment, error) {
	res := float64(env.Resolution)
	length := b.Length * res
	if length == 0 {
		return fragment.Empty, nil
	}
	id := env.IDs.Next("beam")
	grad := `<linearGradient id="` + id + `" x1="0" y1="0" x2="0" y2="1">` +
		`<stop offset="0" stop-color="` + b.Fill + `" stop-opacity="` + num(b.OpacityStart) + `"/>` +
		`<stop offset="1" stop-color="` + b.Fill + `" stop-opacity="` + num(b.OpacityEnd) + `"/>` +
		`</linearGradient>`
	d := pathlib.Beam(length, b.Top*res, b.Bottom*res)
	return fragment.Fragment{
		Markup: translate(res/2, (res-length)/2, pathElem(d, attr("fill", "url(#"+id+")"))),
		Defs:   []string{grad},
	}, nil
}

// Paint holds the paint shared by the free-form path operators. Empty
// Fill and Stroke pick a default from Closed: closed paths are filled, open
// ones stroked.
type Paint struct {
	Closed      bool    `param:"closed"`
	Fill        string  `param:"fill"`
	Stroke      string  `param:"stroke"`
	StrokeWidth float64 `param:"stroke_width"`
}

func (s *Paint) normalizePaint() {
	fill, stroke := "none", defaultFillColor
	if s.Closed {
		fill, stroke = defaultFillColor, "none"
	}
	if s.Fill == "" {
		s.Fill = fill
	}
	if s.Stroke == "" {
		s.Stroke = stroke
	}
	s.Fill = cssColor(s.Fill, fill)
	s.Stroke = cssColor(s.Stroke, stroke)
	s.StrokeWidth = nonNeg(s.StrokeWidth)
}

func (s *Paint) element(d string, res float64) string {
	attrs := []string{attr("fill", s.Fill)}
	if s.Stroke != "none" {
		attrs = append(attrs, attr("stroke", s.Stroke), attr("stroke-width", num(s.StrokeWidth*res)),
			attr("stroke-linecap", "round"), attr("stroke-linejoin", "round"))
	}
	return pathElem(d, attrs...)
}

func scale(p v2.Vec, res float64) v2.Vec { return v2.Vec{X: p.X * res, Y: p.Y * res} }

// Spline is a tension spline through normalized points. Points without their
// own tension use Tension.
type Spline struct {
	Paint   `param:",squash"`
	Points  []Point `param:"points"`
	Tension float64 `param:"tension"`
}

func defaultSpline() *Spline {
	return &Spline{Paint: Paint{StrokeWidth: 0.01}, Tension: 0.5}
}

func (*Spline) operator()        {}
func (*Spline) Kind() graph.Kind { return KindSpline }
func (*Spline) Ports() []Port    { return noPorts }
func (s *Spline) normalize() {
	s.Tension = clamp(s.Tension, 0, 1)
	s.normalizePaint()
}

func (s *Spline) Apply(_ context.Context, env Env, _ Inputs) (fragment.Fragment, error) {
	res := float64(env.Resolution)
	pts := make([]pathlib.SplinePoint, 0, len(s.Points))
	for _, p := range s.Points {
		t := p.Tension
		if math.IsNaN(t) {
			t = s.Tension
		}
		pts = append(pts, pathlib.SplinePoint{P: scale(p.Vec(), res), Tension: t})
	}
	d := pathlib.Spline(pts, s.Closed)
	if d == "" {
		return fragment.Empty, nil
	}
	return fragment.Fragment{Markup: s.element(d, res)}, nil
}

// Pen is a free bezier path through normalized anchors with explicit handles.
type Pen struct {
	Paint  `param:",squash"`
	Points []Point `param:"points"`
}

func defaultPen() *Pen { return &Pen{Paint: Paint{StrokeWidth: 0.01}} }

func (*Pen) operator()        {}
func (*Pen) Kind() graph.Kind { return KindPen }
func (*Pen) Ports() []Port    { return noPorts }
func (p *Pen) normalize()     { p.normalizePaint() }

func (p *Pen) Apply(_ context.Context, env Env, _ Inputs) (fragment.Fragment, error) {
	res := float64(env.Resolution)
	pts := make([]pathlib.BezierPoint, 0, len(p.Points))
	for _, pt := range p.Points {
		pts = append(pts, pathlib.BezierPoint{
			P:   scale(pt.Vec(), res),
			In:  scale(pt.In, res),
			Out: scale(pt.Out, res),
		})
	}
	d := pathlib.Bezier(pts, p.Closed)
	if d == "" {
		return fragment.Empty, nil
	}
	return fragment.Fragment{Markup: p.element(d, res)}, nil
}

// Image embeds a data-URI bitmap at a normalized rectangle.
type Image struct {
	Href      string  `param:"href"`
	X         float64 `param:"x"`
	Y         float64 `param:"y"`
	Width     float64 `param:"width"`
	Height    float64 `param:"height"`
	Opacity   float64 `param:"opacity"`
	Pixelated bool    `param:"pixelated"`
}

func defaultImage() *Image { return &Image{Width: 1, Height: 1, Opacity: 1} }

func (*Image) operator()        {}
func (*Image) Kind() graph.Kind { return KindImage }
func (*Image) Ports() []Port    { return noPorts }
func (im *Image) normalize() {
	im.Width, im.Height = nonNeg(im.Width), nonNeg(im.Height)
	im.Opacity = clamp(im.Opacity, 0, 1)
	if !strings.HasPrefix(im.Href, "data:image/") || strings.ContainsAny(im.Href, "\"<> ") {
		im.Href = ""
	}
}

func (im *Image) Apply(_ context.Context, env Env, _ Inputs) (fragment.Fragment, error) {
	if im.Href == "" || im.Width == 0 || im.Height == 0 {
		return fragment.Empty, nil
	}
	res := float64(env.Resolution)
	var extra []string
	if im.Pixelated {
		extra = append(extra, attr("image-rendering", "pixelated"))
	}
	extra = append(extra, opacityAttr("opacity", im.Opacity))
	el := imageElem(im.Href, im.X*res, im.Y*res, im.Width*res, im.Height*res, extra...)
	return fragment.Fragment{Markup: el}, nil
}
