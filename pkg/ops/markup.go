package ops

import (
	"fmt"
	"html"
	"regexp"
	"strings"

	"github.com/chazu/glyphgraph/pkg/pathlib"
)

var num = pathlib.Num

func attr(name, value string) string {
	return fmt.Sprintf(` %s="%s"`, name, html.EscapeString(value))
}

// pathElem renders a path element with optional extra attributes.
func pathElem(d string, attrs ...string) string {
	return `<path d="` + d + `"` + strings.Join(attrs, "") + `/>`
}

// translate wraps markup in a group moved to (x, y).
func translate(x, y float64, markup string) string {
	return `<g transform="translate(` + num(x) + ` ` + num(y) + `)">` + markup + `</g>`
}

func opacityAttr(name string, v float64) string {
	if v >= 1 {
		return ""
	}
	return attr(name, num(clamp(v, 0, 1)))
}

// drawableTag matches the opening (or self-closing) tag of elements that take
// paint attributes.
var drawableTag = regexp.MustCompile(`<(path|rect|circle|ellipse|polygon|polyline|line)\b([^>]*?)(/?)>`)

var paintAttr = map[string]*regexp.Regexp{}

func paintAttrPattern(name string) *regexp.Regexp {
	if re, ok := paintAttr[name]; ok {
		return re
	}
	return regexp.MustCompile(`\s` + regexp.QuoteMeta(name) + `\s*=\s*"[^"]*"`)
}

func init() {
	for _, n := range []string{"fill", "stroke", "stroke-width", "fill-opacity", "stroke-opacity"} {
		paintAttr[n] = regexp.MustCompile(`\s` + regexp.QuoteMeta(n) + `\s*=\s*"[^"]*"`)
	}
}

// repaint strips the named attributes from every drawable tag and appends
// set in their place.
func repaint(markup string, strip []string, set string) string {
	return drawableTag.ReplaceAllStringFunc(markup, func(tag string) string {
		m := drawableTag.FindStringSubmatch(tag)
		attrs := m[2]
		for _, name := range strip {
			attrs = paintAttrPattern(name).ReplaceAllString(attrs, "")
		}
		return "<" + m[1] + attrs + set + m[3] + ">"
	})
}

var paintValue = regexp.MustCompile(`\s(fill|stroke)\s*=\s*"([^"]*)"`)

// recolor replaces every visible fill and stroke in markup with c, keeping
// widths and none values. Drawables without a fill get one, since the SVG
// default fill is black.
func recolor(markup, c string) string {
	return drawableTag.ReplaceAllStringFunc(markup, func(tag string) string {
		m := drawableTag.FindStringSubmatch(tag)
		hasFill := false
		attrs := paintValue.ReplaceAllStringFunc(m[2], func(a string) string {
			pm := paintValue.FindStringSubmatch(a)
			if pm[1] == "fill" {
				hasFill = true
			}
			if strings.TrimSpace(pm[2]) == "none" {
				return a
			}
			return attr(pm[1], c)
		})
		if !hasFill {
			attrs += attr("fill", c)
		}
		return "<" + m[1] + attrs + m[3] + ">"
	})
}

// canvasRect is a full-bleed rectangle of the given side.
func canvasRect(res int, fill string) string {
	return fmt.Sprintf(`<rect x="0" y="0" width="%d" height="%d" fill="%s"/>`, res, res, fill)
}

// imageElem embeds a bitmap URI covering (x, y, w, h).
func imageElem(href string, x, y, w, h float64, extra ...string) string {
	return `<image x="` + num(x) + `" y="` + num(y) + `" width="` + num(w) + `" height="` + num(h) +
		`" href="` + href + `"` + strings.Join(extra, "") + `/>`
}
