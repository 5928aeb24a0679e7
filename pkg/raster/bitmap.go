package raster

import (
	"bytes"
	"encoding/base64"
	"errors"
	"fmt"
	"image"
	"image/png"
	"strings"
)

const pngDataPrefix = "data:image/png;base64,"

// Alpha returns the alpha of pixel (x, y) in [0,1].
func Alpha(img *image.RGBA, x, y int) float64 {
	i := img.PixOffset(x, y)
	return float64(img.Pix[i+3]) / 255
}

// Luminance returns the Rec. 709 luminance of pixel (x, y) in [0,1]. The
// buffer is premultiplied, so transparent pixels have zero luminance.
func Luminance(img *image.RGBA, x, y int) float64 {
	i := img.PixOffset(x, y)
	r := float64(img.Pix[i])
	g := float64(img.Pix[i+1])
	b := float64(img.Pix[i+2])
	return (0.2126*r + 0.7152*g + 0.0722*b) / 255
}

// EncodePNGDataURI encodes img as a base64 PNG data URI.
func EncodePNGDataURI(img image.Image) (string, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return "", fmt.Errorf("encode png: %w", err)
	}
	return pngDataPrefix + base64.StdEncoding.EncodeToString(buf.Bytes()), nil
}

// ErrNotDataURI is returned by DecodeDataURI for anything but a base64 data URI.
var ErrNotDataURI = errors.New("not a base64 image data URI")

// DecodeDataURI decodes a base64 image data URI. PNG is always supported;
// other formats need their decoder registered with package image.
func DecodeDataURI(uri string) (image.Image, error) {
	if !strings.HasPrefix(uri, "data:image/") {
		return nil, ErrNotDataURI
	}
	comma := strings.IndexByte(uri, ',')
	if comma < 0 || !strings.HasSuffix(uri[:comma], ";base64") {
		return nil, ErrNotDataURI
	}
	raw, err := base64.StdEncoding.DecodeString(uri[comma+1:])
	if err != nil {
		return nil, fmt.Errorf("decode data uri: %w", err)
	}
	img, _, err := image.Decode(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("decode image: %w", err)
	}
	return img, nil
}
