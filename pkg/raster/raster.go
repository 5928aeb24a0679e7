// Package raster defines the external rasterizer interface. Implementations
// (oksvg) turn a vector fragment into pixels behind this interface, so the
// operators never depend on a specific back-end.
package raster

import (
	"context"
	"fmt"
	"image"
)

// Request describes one rasterization: the fragment markup and defs, the
// output bitmap size and the side of the square viewport the markup is
// authored in.
type Request struct {
	Markup   string
	Defs     []string
	Width    int
	Height   int
	Viewport int
}

// Rasterizer converts vector markup into an RGBA bitmap. Calls may block;
// callers pass a context for cancellation.
type Rasterizer interface {
	Rasterize(ctx context.Context, req Request) (*image.RGBA, error)
}

// Func adapts a plain function to the Rasterizer interface.
type Func func(ctx context.Context, req Request) (*image.RGBA, error)

// Rasterize calls f.
func (f Func) Rasterize(ctx context.Context, req Request) (*image.RGBA, error) {
	return f(ctx, req)
}

// Error reports that markup could not be rasterized.
type Error struct {
	Width, Height int
	Err           error
}

func (e *Error) Error() string {
	return fmt.Sprintf("rasterize %dx%d: %v", e.Width, e.Height, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }
