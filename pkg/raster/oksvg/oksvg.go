// Package oksvg implements the raster.Rasterizer interface on top of the
// github.com/srwiley/oksvg SVG parser and the github.com/srwiley/rasterx
// scanline rasterizer.
//
// oksvg ignores <image> elements, so embedded bitmaps (data URIs) found
// anywhere in the markup, directly or through <use href="#id">, are
// composited first with golang.org/x/image/draw; vector content is drawn on
// top. Bitmaps are placed by their own x, y, width and height; transforms
// and masks of enclosing groups are ignored. Filters and masks are not
// applied by this back-end.
package oksvg

import (
	"context"
	"fmt"
	"image"
	"strings"

	"github.com/chazu/glyphgraph/pkg/raster"
	svgicon "github.com/srwiley/oksvg"
	"github.com/srwiley/rasterx"
)

// Compile-time interface check.
var _ raster.Rasterizer = (*Rasterizer)(nil)

// Rasterizer renders SVG fragments into RGBA bitmaps.
type Rasterizer struct{}

// New returns a new Rasterizer.
func New() *Rasterizer {
	return &Rasterizer{}
}

// document builds a standalone SVG document for req.
func document(req raster.Request) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, `<svg xmlns="http://www.w3.org/2000/svg" width="%d" height="%d" viewBox="0 0 %d %d">`,
		req.Width, req.Height, req.Viewport, req.Viewport)
	if len(req.Defs) > 0 {
		sb.WriteString("<defs>")
		for _, d := range req.Defs {
			sb.WriteString(d)
		}
		sb.WriteString("</defs>")
	}
	sb.WriteString(req.Markup)
	sb.WriteString("</svg>")
	return sb.String()
}

// Rasterize draws req into a new Width×Height bitmap.
func (r *Rasterizer) Rasterize(ctx context.Context, req raster.Request) (*image.RGBA, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if req.Width <= 0 || req.Height <= 0 {
		return nil, &raster.Error{Width: req.Width, Height: req.Height, Err: fmt.Errorf("invalid size")}
	}
	if req.Viewport <= 0 {
		req.Viewport = req.Width
	}

	icon, err := svgicon.ReadIconStream(strings.NewReader(document(req)), svgicon.IgnoreErrorMode)
	if err != nil {
		return nil, &raster.Error{Width: req.Width, Height: req.Height, Err: err}
	}
	w, h := req.Width, req.Height
	icon.SetTarget(0, 0, float64(w), float64(h))

	img := image.NewRGBA(image.Rect(0, 0, w, h))
	scale := [2]float64{float64(w) / float64(req.Viewport), float64(h) / float64(req.Viewport)}
	if err := drawEmbedded(img, req, scale); err != nil {
		return nil, &raster.Error{Width: w, Height: h, Err: err}
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	scanner := rasterx.NewScannerGV(w, h, img, img.Bounds())
	dasher := rasterx.NewDasher(w, h, scanner)
	icon.Draw(dasher, 1.0)
	return img, nil
}
