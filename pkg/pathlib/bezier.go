package pathlib

import (
	"math"

	v2 "github.com/deadsy/sdfx/vec/v2"
)

// BezierPoint is an anchor with explicit incoming and outgoing handles.
type BezierPoint struct {
	P   v2.Vec
	In  v2.Vec
	Out v2.Vec
}

func finite(v v2.Vec) bool {
	return !math.IsNaN(v.X) && !math.IsNaN(v.Y) && !math.IsInf(v.X, 0) && !math.IsInf(v.Y, 0)
}

// Valid reports whether the anchor and both handles are finite.
func (p BezierPoint) Valid() bool {
	return finite(p.P) && finite(p.In) && finite(p.Out)
}

// Bezier renders a free bezier path. The segment from a to b uses a.Out and
// b.In as control points; the closing segment uses the last point's Out and
// the first point's In. Invalid points are skipped.
func Bezier(pts []BezierPoint, closed bool) string {
	valid := make([]BezierPoint, 0, len(pts))
	for _, p := range pts {
		if p.Valid() {
			valid = append(valid, p)
		}
	}
	if len(valid) < 2 {
		return ""
	}

	b := NewBuilder()
	b.MoveTo(valid[0].P)
	for i := 1; i < len(valid); i++ {
		b.CubicTo(valid[i-1].Out, valid[i].In, valid[i].P)
	}
	if closed {
		last, first := valid[len(valid)-1], valid[0]
		b.CubicTo(last.Out, first.In, first.P)
		b.Close()
	}
	return b.String()
}
