package pathlib

import (
	"math"
	"strconv"
	"strings"

	v2 "github.com/deadsy/sdfx/vec/v2"
)

// Builder accumulates path commands in the SVG path-data grammar.
type Builder struct {
	sb    strings.Builder
	empty bool
}

// NewBuilder returns an empty path builder.
func NewBuilder() *Builder {
	return &Builder{empty: true}
}

func (b *Builder) cmd(c byte, nums ...float64) {
	if !b.empty {
		b.sb.WriteByte(' ')
	}
	b.empty = false
	b.sb.WriteByte(c)
	for i, n := range nums {
		if i > 0 {
			b.sb.WriteByte(' ')
		}
		b.sb.WriteString(Num(n))
	}
}

// MoveTo starts a new subpath at p.
func (b *Builder) MoveTo(p v2.Vec) { b.cmd('M', p.X, p.Y) }

// LineTo draws a straight segment to p.
func (b *Builder) LineTo(p v2.Vec) { b.cmd('L', p.X, p.Y) }

// ArcTo draws an elliptical arc to p.
func (b *Builder) ArcTo(rx, ry float64, large, sweep bool, p v2.Vec) {
	b.cmd('A', rx, ry, 0, flag(large), flag(sweep), p.X, p.Y)
}

// CubicTo draws a cubic bezier segment with control points c1, c2 ending at p.
func (b *Builder) CubicTo(c1, c2, p v2.Vec) {
	b.cmd('C', c1.X, c1.Y, c2.X, c2.Y, p.X, p.Y)
}

// Close closes the current subpath.
func (b *Builder) Close() { b.cmd('Z') }

// String returns the accumulated path data.
func (b *Builder) String() string { return b.sb.String() }

func flag(v bool) float64 {
	if v {
		return 1
	}
	return 0
}

// Num formats a coordinate with at most three decimals and no trailing zeros.
func Num(v float64) string {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return "0"
	}
	r := math.Round(v*1000) / 1000
	if r == 0 {
		return "0" // also folds -0
	}
	return strconv.FormatFloat(r, 'f', -1, 64)
}

// Polyline renders pts as straight segments, closing with Z when closed is set.
func Polyline(pts []v2.Vec, closed bool) string {
	if len(pts) == 0 {
		return ""
	}
	b := NewBuilder()
	b.MoveTo(pts[0])
	for _, p := range pts[1:] {
		b.LineTo(p)
	}
	if closed {
		b.Close()
	}
	return b.String()
}
