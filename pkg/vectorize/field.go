package vectorize

import (
	"image"

	"github.com/chazu/glyphgraph/pkg/raster"
)

// Channel selects which bitmap channel feeds the field.
type Channel string

const (
	ChannelAlpha     Channel = "alpha"
	ChannelLuminance Channel = "luminance"
)

// BitmapField samples a square RGBA bitmap.
type BitmapField struct {
	Img     *image.RGBA
	Channel Channel
}

// FromBitmap returns a field over img.
func FromBitmap(img *image.RGBA, ch Channel) BitmapField {
	return BitmapField{Img: img, Channel: ch}
}

// Size returns the smaller bitmap side.
func (b BitmapField) Size() int {
	r := b.Img.Bounds()
	return min(r.Dx(), r.Dy())
}

// At returns the selected channel at (x, y).
func (b BitmapField) At(x, y int) float64 {
	r := b.Img.Bounds()
	x, y = x+r.Min.X, y+r.Min.Y
	if b.Channel == ChannelLuminance {
		return raster.Luminance(b.Img, x, y)
	}
	return raster.Alpha(b.Img, x, y)
}
