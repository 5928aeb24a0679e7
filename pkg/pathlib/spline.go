package pathlib

import (
	"math"

	v2 "github.com/deadsy/sdfx/vec/v2"
)

// SharpTension is the tension at or below which a point has no tangent.
const SharpTension = 0.01

// SplinePoint is a spline vertex with its own tension in [0,1].
type SplinePoint struct {
	P       v2.Vec
	Tension float64
}

// RoleTensions assigns tension by vertex role: even indices are outer
// vertices, odd indices inner ones.
type RoleTensions struct {
	Outer float64
	Inner float64
}

// Apply pairs pts with their role tension.
func (rt RoleTensions) Apply(pts []v2.Vec) []SplinePoint {
	out := make([]SplinePoint, len(pts))
	for i, p := range pts {
		t := rt.Outer
		if i%2 == 1 {
			t = rt.Inner
		}
		out[i] = SplinePoint{P: p, Tension: t}
	}
	return out
}

func clampTension(t float64) float64 {
	if math.IsNaN(t) || t < 0 {
		return 0
	}
	return math.Min(t, 1)
}

// Spline interpolates pts with Catmull-Rom style cubic segments. The
// tangent leaving p0 toward p1 is (p1-prev)·t(p0)·0.25 and the tangent
// arriving at p1 is (p2-p0)·t(p1)·0.25. A segment whose two end tensions are
// both at or below SharpTension is drawn as a straight line.
func Spline(pts []SplinePoint, closed bool) string {
	n := len(pts)
	if n < 2 {
		return ""
	}
	at := func(i int) SplinePoint {
		if closed {
			return pts[((i%n)+n)%n]
		}
		if i < 0 {
			return pts[0]
		}
		if i >= n {
			return pts[n-1]
		}
		return pts[i]
	}

	segments := n - 1
	if closed {
		segments = n
	}

	b := NewBuilder()
	b.MoveTo(pts[0].P)
	for i := 0; i < segments; i++ {
		prev, p0, p1, p2 := at(i-1), at(i), at(i+1), at(i+2)
		t0 := clampTension(p0.Tension)
		t1 := clampTension(p1.Tension)
		if t0 <= SharpTension && t1 <= SharpTension {
			if closed && i == segments-1 {
				break // Z draws the closing line
			}
			b.LineTo(p1.P)
			continue
		}
		var c1, c2 v2.Vec
		c1, c2 = p0.P, p1.P
		if t0 > SharpTension {
			c1 = p0.P.Add(p1.P.Sub(prev.P).MulScalar(t0 * 0.25))
		}
		if t1 > SharpTension {
			c2 = p1.P.Sub(p2.P.Sub(p0.P).MulScalar(t1 * 0.25))
		}
		b.CubicTo(c1, c2, p1.P)
	}
	if closed {
		b.Close()
	}
	return b.String()
}
