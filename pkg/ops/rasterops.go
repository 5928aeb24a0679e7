package ops

import (
	"context"
	"errors"
	"fmt"
	"image"
	"image/color"
	"math"
	"strconv"
	"strings"

	"github.com/chazu/glyphgraph/pkg/fragment"
	"github.com/chazu/glyphgraph/pkg/graph"
	"github.com/chazu/glyphgraph/pkg/noise"
	"github.com/chazu/glyphgraph/pkg/raster"
	"github.com/chazu/glyphgraph/pkg/vectorize"
)

var errNoRasterizer = errors.New("no rasterizer configured")

func rasterize(ctx context.Context, env Env, f fragment.Fragment, size int) (*image.RGBA, error) {
	if env.Raster == nil {
		return nil, &raster.Error{Width: size, Height: size, Err: errNoRasterizer}
	}
	return env.Raster.Rasterize(ctx, raster.Request{
		Markup:   f.Markup,
		Defs:     f.Defs,
		Width:    size,
		Height:   size,
		Viewport: env.Resolution,
	})
}

// recoverRaster decides what a failed rasterization means: context errors
// propagate, anything else is logged and the caller degrades.
func recoverRaster(ctx context.Context, kind graph.Kind, err error) error {
	if cerr := ctx.Err(); cerr != nil {
		return cerr
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	Logger().Warn("ops: rasterization failed", "kind", string(kind), "error", err)
	return nil
}

// parseHex converts #rgb, #rrggbb or #rrggbbaa to a colour. Anything else is
// white.
func parseHex(c string) color.NRGBA {
	white := color.NRGBA{R: 255, G: 255, B: 255, A: 255}
	s := strings.TrimPrefix(c, "#")
	if len(s) == len(c) {
		return white
	}
	if len(s) == 3 {
		s = string([]byte{s[0], s[0], s[1], s[1], s[2], s[2]})
	}
	if len(s) == 6 {
		s += "ff"
	}
	if len(s) != 8 {
		return white
	}
	v, err := strconv.ParseUint(s, 16, 32)
	if err != nil {
		return white
	}
	return color.NRGBA{R: uint8(v >> 24), G: uint8(v >> 16), B: uint8(v >> 8), A: uint8(v)}
}

func fullBleedImage(uri string, res int, extra ...string) string {
	return imageElem(uri, 0, 0, float64(res), float64(res), extra...)
}

// Wave thresholds a noise-perturbed base field into a bitmap. The base is a
// vertical gradient (1 at the top) or, with an input, the input's
// luminance.
type Wave struct {
	Seed      int     `param:"seed"`
	Waves     int     `param:"waves"`
	Frequency float64 `param:"frequency"`
	Amplitude float64 `param:"amplitude"`
	Threshold float64 `param:"threshold"`
	Softness  float64 `param:"softness"`
	Square    bool    `param:"square"`
	Color     string  `param:"color"`
}

func defaultWave() *Wave {
	return &Wave{Seed: 1, Waves: 5, Frequency: 3, Amplitude: 0.25, Threshold: 0.5, Softness: 0.05, Color: defaultFillColor}
}

func (*Wave) operator()        {}
func (*Wave) Kind() graph.Kind { return KindWave }
func (*Wave) Ports() []Port    { return optPort }
func (w *Wave) normalize() {
	w.Waves = clampInt(w.Waves, 0, 64)
	w.Frequency = clamp(w.Frequency, 0, 1000)
	w.Threshold = clamp(w.Threshold, 0, 1)
	w.Softness = clamp(w.Softness, 0, 1)
	w.Color = cssColor(w.Color, defaultFillColor)
}

func (w *Wave) Apply(ctx context.Context, env Env, in Inputs) (fragment.Fragment, error) {
	n := env.Resolution
	if n <= 0 {
		return fragment.Empty, nil
	}
	field := noise.Field{
		Oscillators: noise.Oscillators(uint32(w.Seed), w.Waves),
		Frequency:   w.Frequency,
		Square:      w.Square,
	}
	signal := make([]float64, n)
	for x := range signal {
		signal[x] = w.Amplitude * field.At(float64(x)/float64(n))
	}

	var base *image.RGBA
	if src, ok := in["in"]; ok {
		img, err := rasterize(ctx, env, src, n)
		if err != nil {
			if err := recoverRaster(ctx, KindWave, err); err != nil {
				return fragment.Empty, err
			}
		} else {
			base = img
		}
	}

	c := parseHex(w.Color)
	out := image.NewNRGBA(image.Rect(0, 0, n, n))
	for y := 0; y < n; y++ {
		if y%64 == 0 && ctx.Err() != nil {
			return fragment.Empty, ctx.Err()
		}
		gradient := 1 - float64(y)/float64(n)
		for x := 0; x < n; x++ {
			b := gradient
			if base != nil {
				b = raster.Luminance(base, x, y)
			}
			a := noise.SoftThreshold(b+signal[x], w.Threshold, w.Softness)
			if a == 0 {
				continue
			}
			out.SetNRGBA(x, y, color.NRGBA{R: c.R, G: c.G, B: c.B, A: uint8(math.Round(a * float64(c.A)))})
		}
	}
	uri, err := raster.EncodePNGDataURI(out)
	if err != nil {
		return fragment.Empty, nil
	}
	return fragment.Fragment{Markup: fullBleedImage(uri, n)}, nil
}

// Trace rasterizes its input at Fidelity and outlines the result.
type Trace struct {
	Fidelity  int     `param:"fidelity"`
	Threshold float64 `param:"threshold"`
	Invert    bool    `param:"invert"`
	Channel   string  `param:"channel"`
	Fill      string  `param:"fill"`
}

func defaultTrace() *Trace {
	return &Trace{Fidelity: 128, Threshold: 0.5, Channel: string(vectorize.ChannelAlpha), Fill: defaultFillColor}
}

func (*Trace) operator()        {}
func (*Trace) Kind() graph.Kind { return KindTrace }
func (*Trace) Ports() []Port    { return optPort }
func (t *Trace) normalize() {
	t.Fidelity = clampInt(t.Fidelity, 8, 1024)
	t.Threshold = clamp(t.Threshold, 0, 1)
	if t.Channel != string(vectorize.ChannelLuminance) {
		t.Channel = string(vectorize.ChannelAlpha)
	}
	t.Fill = cssColor(t.Fill, defaultFillColor)
}

func (t *Trace) Apply(ctx context.Context, env Env, in Inputs) (fragment.Fragment, error) {
	src, ok := in["in"]
	if !ok || src.IsEmpty() {
		return fragment.Empty, nil
	}
	img, err := rasterize(ctx, env, src, t.Fidelity)
	if err != nil {
		return fragment.Empty, recoverRaster(ctx, KindTrace, err)
	}
	res := vectorize.Trace(vectorize.FromBitmap(img, vectorize.Channel(t.Channel)), vectorize.Options{
		Threshold:  t.Threshold,
		Invert:     t.Invert,
		Resolution: float64(env.Resolution),
	})
	if res.Path == "" {
		return fragment.Empty, nil
	}
	return fragment.Fragment{Markup: pathElem(res.Path, attr("fill", t.Fill))}, nil
}

// Pixelate bakes its input into a low-resolution bitmap drawn with hard
// pixel edges.
type Pixelate struct {
	PixelSize int `param:"pixel_size"`
}

func defaultPixelate() *Pixelate { return &Pixelate{PixelSize: 8} }

func (*Pixelate) operator()        {}
func (*Pixelate) Kind() graph.Kind { return KindPixelate }
func (*Pixelate) Ports() []Port    { return inPort }
func (p *Pixelate) normalize()     { p.PixelSize = clampInt(p.PixelSize, 1, 1<<16) }

func (p *Pixelate) Apply(ctx context.Context, env Env, in Inputs) (fragment.Fragment, error) {
	src := in["in"]
	if src.IsEmpty() || env.Resolution <= 0 {
		return src, nil
	}
	size := max(1, int(math.Ceil(float64(env.Resolution)/float64(p.PixelSize))))
	img, err := rasterize(ctx, env, src, size)
	if err != nil {
		return src, recoverRaster(ctx, KindPixelate, err)
	}
	uri, err := raster.EncodePNGDataURI(img)
	if err != nil {
		return src, nil
	}
	return fragment.Fragment{Markup: fullBleedImage(uri, env.Resolution, attr("image-rendering", "pixelated"))}, nil
}

// LayerSteps is the number of blur layers a LayerBlur stacks.
const LayerSteps = 16

// LayerBlur blurs its input progressively from the sharp point A towards
// the blurry point B.
type LayerBlur struct {
	AX     float64 `param:"ax"`
	AY     float64 `param:"ay"`
	BX     float64 `param:"bx"`
	BY     float64 `param:"by"`
	Radius float64 `param:"radius"`
}

func defaultLayerBlur() *LayerBlur {
	return &LayerBlur{AX: 0.5, AY: 0.2, BX: 0.5, BY: 0.8, Radius: 12}
}

func (*LayerBlur) operator()        {}
func (*LayerBlur) Kind() graph.Kind { return KindLayerBlur }
func (*LayerBlur) Ports() []Port    { return inPort }
func (l *LayerBlur) normalize()     { l.Radius = nonNeg(l.Radius) }

func (l *LayerBlur) Apply(ctx context.Context, env Env, in Inputs) (fragment.Fragment, error) {
	src := in["in"]
	res := float64(env.Resolution)
	ax, ay, bx, by := l.AX*res, l.AY*res, l.BX*res, l.BY*res
	if src.IsEmpty() || math.Hypot(bx-ax, by-ay) < 1 || l.Radius < 0.5 {
		return src, nil
	}
	img, err := rasterize(ctx, env, src, env.Resolution)
	if err != nil {
		return src, recoverRaster(ctx, KindLayerBlur, err)
	}
	uri, err := raster.EncodePNGDataURI(img)
	if err != nil {
		return src, nil
	}

	srcID := env.IDs.Next("lb-src")
	defs := []string{`<image id="` + srcID + `" x="0" y="0" width="` + num(res) + `" height="` + num(res) + `" href="` + uri + `"/>`}
	var sb strings.Builder
	fmt.Fprintf(&sb, `<use href="#%s"/>`, srcID)
	for i := 1; i <= LayerSteps; i++ {
		gid, mid, fid := env.IDs.Next("lb-grad"), env.IDs.Next("lb-mask"), env.IDs.Next("lb-blur")
		defs = append(defs,
			fmt.Sprintf(`<linearGradient id="%s" gradientUnits="userSpaceOnUse" x1="%s" y1="%s" x2="%s" y2="%s">`+
				`<stop offset="%s" stop-color="white" stop-opacity="0"/><stop offset="%s" stop-color="white" stop-opacity="1"/></linearGradient>`,
				gid, num(ax), num(ay), num(bx), num(by),
				num(float64(i-1)/LayerSteps), num(float64(i)/LayerSteps)),
			fmt.Sprintf(`<mask id="%s" maskUnits="userSpaceOnUse" x="0" y="0" width="%d" height="%d">%s</mask>`,
				mid, env.Resolution, env.Resolution, canvasRect(env.Resolution, "url(#"+gid+")")),
			fmt.Sprintf(`<filter id="%s" x="-10%%" y="-10%%" width="120%%" height="120%%"><feGaussianBlur stdDeviation="%s"/></filter>`,
				fid, num(float64(i)/LayerSteps*l.Radius)),
		)
		fmt.Fprintf(&sb, `<g mask="url(#%s)"><use href="#%s" filter="url(#%s)"/></g>`, mid, srcID, fid)
	}
	return fragment.Fragment{Markup: sb.String(), Defs: defs}, nil
}
