package oksvg

import (
	"fmt"
	"image"
	"regexp"
	"strconv"
	"strings"

	"github.com/chazu/glyphgraph/pkg/raster"
	"golang.org/x/image/draw"
)

var (
	tagPattern  = regexp.MustCompile(`<(image|use)\b([^>]*)/?>`)
	attrPattern = regexp.MustCompile(`([\w:-]+)\s*=\s*"([^"]*)"`)
	defsPattern = regexp.MustCompile(`(?s)<defs>.*?</defs>`)
)

// attrs parses the attribute list of a single tag.
func attrs(s string) map[string]string {
	out := make(map[string]string)
	for _, m := range attrPattern.FindAllStringSubmatch(s, -1) {
		out[m[1]] = m[2]
	}
	return out
}

func href(a map[string]string) string {
	if v, ok := a["href"]; ok {
		return v
	}
	return a["xlink:href"]
}

func num(a map[string]string, key string, def float64) float64 {
	v, ok := a[key]
	if !ok {
		return def
	}
	f, err := strconv.ParseFloat(strings.TrimSuffix(v, "px"), 64)
	if err != nil {
		return def
	}
	return f
}

// imageDefs indexes <image id=...> elements found in the definitions.
func imageDefs(defs []string) map[string]map[string]string {
	out := make(map[string]map[string]string)
	for _, d := range defs {
		for _, m := range tagPattern.FindAllStringSubmatch(d, -1) {
			if m[1] != "image" {
				continue
			}
			a := attrs(m[2])
			if id := a["id"]; id != "" {
				out[id] = a
			}
		}
	}
	return out
}

// drawEmbedded composites every data-URI bitmap referenced by the markup.
func drawEmbedded(dst *image.RGBA, req raster.Request, scale [2]float64) error {
	markup := defsPattern.ReplaceAllString(req.Markup, "")
	if !strings.Contains(markup, "<image") && !strings.Contains(markup, "<use") {
		return nil
	}
	defs := imageDefs(req.Defs)
	for _, m := range tagPattern.FindAllStringSubmatch(markup, -1) {
		a := attrs(m[2])
		if m[1] == "use" {
			ref, ok := defs[strings.TrimPrefix(href(a), "#")]
			if !ok {
				continue
			}
			a = ref
		}
		uri := href(a)
		if !strings.HasPrefix(uri, "data:") {
			continue
		}
		src, err := raster.DecodeDataURI(uri)
		if err != nil {
			return fmt.Errorf("embedded image: %w", err)
		}
		x := num(a, "x", 0) * scale[0]
		y := num(a, "y", 0) * scale[1]
		w := num(a, "width", float64(req.Viewport)) * scale[0]
		h := num(a, "height", float64(req.Viewport)) * scale[1]
		rect := image.Rect(int(x+0.5), int(y+0.5), int(x+w+0.5), int(y+h+0.5))

		var interp draw.Interpolator = draw.ApproxBiLinear
		if a["image-rendering"] == "pixelated" || a["image-rendering"] == "optimizeSpeed" {
			interp = draw.NearestNeighbor
		}
		interp.Scale(dst, rect, src, src.Bounds(), draw.Over, nil)
	}
	return nil
}
