// Package vectorize converts a sampled scalar field into outline paths with
// Marching Squares and a segment stitcher.
package vectorize

import (
	"fmt"

	"github.com/chazu/glyphgraph/pkg/pathlib"
	v2 "github.com/deadsy/sdfx/vec/v2"
)

// Field is a square grid of samples in [0,1].
type Field interface {
	Size() int
	At(x, y int) float64
}

// Options controls binarization and output scaling.
type Options struct {
	Threshold  float64 // a sample is inside when its value is >= Threshold
	Invert     bool    // swap inside and outside
	Resolution float64 // output size; grid coordinates are scaled by Resolution/Size
}

// Result is the traced outline.
type Result struct {
	Path     string // all subpaths, one fillable path
	Subpaths int
	Closed   int
}

// edge midpoints of a cell, in cell-local grid units
var (
	top    = v2.Vec{X: 0.5, Y: 0}
	right  = v2.Vec{X: 1, Y: 0.5}
	bottom = v2.Vec{X: 0.5, Y: 1}
	left   = v2.Vec{X: 0, Y: 0.5}
)

// cases maps the corner pattern (tl=8, tr=4, br=2, bl=1) to directed
// segments. Each segment keeps the inside on its right, which winds every
// outline clockwise on screen. Saddles (5, 10) emit two independent segments.
var cases = [16][][2]v2.Vec{
	0:  nil,
	1:  {{left, bottom}},
	2:  {{bottom, right}},
	3:  {{left, right}},
	4:  {{right, top}},
	5:  {{left, bottom}, {right, top}},
	6:  {{bottom, top}},
	7:  {{left, top}},
	8:  {{top, left}},
	9:  {{top, bottom}},
	10: {{top, left}, {bottom, right}},
	11: {{top, right}},
	12: {{right, left}},
	13: {{right, bottom}},
	14: {{bottom, left}},
	15: nil,
}

type segment struct {
	from, to       v2.Vec
	fromKey, toKey string
}

func key(p v2.Vec) string {
	return fmt.Sprintf("%.3f,%.3f", p.X, p.Y)
}

// Trace runs Marching Squares over f. Samples outside the grid count as
// outside, so every contour closes at the border.
func Trace(f Field, opt Options) Result {
	n := f.Size()
	if n <= 0 {
		return Result{}
	}
	inside := func(x, y int) bool {
		if x < 0 || y < 0 || x >= n || y >= n {
			return false
		}
		return (f.At(x, y) >= opt.Threshold) != opt.Invert
	}
	bit := func(b bool, v int) int {
		if b {
			return v
		}
		return 0
	}

	var segs []segment
	for cy := -1; cy < n; cy++ {
		for cx := -1; cx < n; cx++ {
			c := bit(inside(cx, cy), 8) |
				bit(inside(cx+1, cy), 4) |
				bit(inside(cx+1, cy+1), 2) |
				bit(inside(cx, cy+1), 1)
			origin := v2.Vec{X: float64(cx), Y: float64(cy)}
			for _, s := range cases[c] {
				from, to := origin.Add(s[0]), origin.Add(s[1])
				segs = append(segs, segment{from: from, to: to, fromKey: key(from), toKey: key(to)})
			}
		}
	}
	return stitch(segs, n, opt.Resolution)
}

// stitch joins directed segments into subpaths by following each segment's
// end to the segment starting there.
func stitch(segs []segment, n int, resolution float64) Result {
	if len(segs) == 0 {
		return Result{}
	}
	scale := resolution / float64(n)
	if resolution <= 0 {
		scale = 1
	}
	out := func(p v2.Vec) v2.Vec {
		return v2.Vec{X: (p.X + 0.5) * scale, Y: (p.Y + 0.5) * scale}
	}

	byStart := make(map[string]int, len(segs))
	for i, s := range segs {
		if _, dup := byStart[s.fromKey]; !dup {
			byStart[s.fromKey] = i
		}
	}

	limit := 2 * n * n
	visited := make([]bool, len(segs))
	b := pathlib.NewBuilder()
	var res Result
	for i := range segs {
		if visited[i] {
			continue
		}
		res.Subpaths++
		b.MoveTo(out(segs[i].from))
		cur, closed := i, false
		for steps := 0; steps < limit; steps++ {
			visited[cur] = true
			next, ok := byStart[segs[cur].toKey]
			if ok && next == i {
				closed = true
				break
			}
			b.LineTo(out(segs[cur].to))
			if !ok || visited[next] {
				break
			}
			cur = next
		}
		if closed {
			b.Close()
			res.Closed++
		}
	}
	res.Path = b.String()
	return res
}
