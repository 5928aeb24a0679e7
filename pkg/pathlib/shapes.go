package pathlib

import (
	"math"

	v2 "github.com/deadsy/sdfx/vec/v2"
)

// RingSteps is the number of angular samples used by WavyRing.
const RingSteps = 360

// Corners holds independent corner radii of a rounded rectangle.
type Corners struct {
	TL, TR, BR, BL float64
}

func clampRadius(r, limit float64) float64 {
	if r < 0 || math.IsNaN(r) {
		return 0
	}
	return math.Min(r, limit)
}

// RoundedRect returns a w×h rectangle with its top-left corner at the origin.
// Each corner gets one circular arc; a zero radius leaves a sharp corner.
func RoundedRect(w, h float64, c Corners) string {
	limit := math.Min(w, h) / 2
	tl := clampRadius(c.TL, limit)
	tr := clampRadius(c.TR, limit)
	br := clampRadius(c.BR, limit)
	bl := clampRadius(c.BL, limit)

	b := NewBuilder()
	b.MoveTo(v2.Vec{X: tl, Y: 0})
	b.LineTo(v2.Vec{X: w - tr, Y: 0})
	if tr > 0 {
		b.ArcTo(tr, tr, false, true, v2.Vec{X: w, Y: tr})
	}
	b.LineTo(v2.Vec{X: w, Y: h - br})
	if br > 0 {
		b.ArcTo(br, br, false, true, v2.Vec{X: w - br, Y: h})
	}
	b.LineTo(v2.Vec{X: bl, Y: h})
	if bl > 0 {
		b.ArcTo(bl, bl, false, true, v2.Vec{X: 0, Y: h - bl})
	}
	// Z closes a square top-left corner; skip zero-length edges.
	if tl > 0 && !(bl > 0 && h-bl == tl) {
		b.LineTo(v2.Vec{X: 0, Y: tl})
	}
	if tl > 0 {
		b.ArcTo(tl, tl, false, true, v2.Vec{X: tl, Y: 0})
	}
	b.Close()
	return b.String()
}

// Ellipse returns a closed ellipse centered at the origin, drawn as two
// mirrored half arcs.
func Ellipse(rx, ry float64) string {
	rx, ry = math.Abs(rx), math.Abs(ry)
	b := NewBuilder()
	b.MoveTo(v2.Vec{X: -rx, Y: 0})
	b.ArcTo(rx, ry, true, false, v2.Vec{X: rx, Y: 0})
	b.ArcTo(rx, ry, true, false, v2.Vec{X: -rx, Y: 0})
	b.Close()
	return b.String()
}

// StarPoints returns the 2·points vertices of a star centered at the origin.
// Vertex 0 points up; even vertices sit on the outer radius, odd ones on the
// inner radius.
func StarPoints(points int, outer, inner float64) []v2.Vec {
	if points < 2 {
		return nil
	}
	n := 2 * points
	pts := make([]v2.Vec, n)
	for i := 0; i < n; i++ {
		a := 2*math.Pi*float64(i)/float64(n) - math.Pi/2
		r := outer
		if i%2 == 1 {
			r = inner
		}
		pts[i] = v2.Vec{X: r * math.Cos(a), Y: r * math.Sin(a)}
	}
	return pts
}

// PolygonPoints returns the vertices of a regular polygon with the first
// vertex pointing up.
func PolygonPoints(sides int, r float64) []v2.Vec {
	if sides < 3 {
		return nil
	}
	pts := make([]v2.Vec, sides)
	for i := range pts {
		a := 2*math.Pi*float64(i)/float64(sides) - math.Pi/2
		pts[i] = v2.Vec{X: r * math.Cos(a), Y: r * math.Sin(a)}
	}
	return pts
}

// Star returns a closed star outline.
func Star(points int, outer, inner float64) string {
	return Polyline(StarPoints(points, outer, inner), true)
}

// WavyRingPoints samples r(θ) = radius + amplitude·sin(θ·frequency).
func WavyRingPoints(radius, amplitude, frequency float64) []v2.Vec {
	pts := make([]v2.Vec, RingSteps)
	for i := range pts {
		a := 2 * math.Pi * float64(i) / RingSteps
		r := radius + amplitude*math.Sin(a*frequency)
		pts[i] = v2.Vec{X: r * math.Cos(a), Y: r * math.Sin(a)}
	}
	return pts
}

// WavyRing returns a closed ring outline centered at the origin.
func WavyRing(radius, amplitude, frequency float64) string {
	return Polyline(WavyRingPoints(radius, amplitude, frequency), true)
}

// Beam returns a trapezoid whose tip edge lies on y=0 centered at the origin
// and whose base edge lies at y=length.
func Beam(length, topHalf, bottomHalf float64) string {
	return Polyline([]v2.Vec{
		{X: -topHalf, Y: 0},
		{X: topHalf, Y: 0},
		{X: bottomHalf, Y: length},
		{X: -bottomHalf, Y: length},
	}, true)
}
