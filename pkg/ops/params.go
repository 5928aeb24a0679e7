package ops

import (
	"encoding/json"
	"math"
	"reflect"
	"regexp"
	"sort"
	"strconv"

	"github.com/chazu/glyphgraph/pkg/graph"
	v2 "github.com/deadsy/sdfx/vec/v2"
	"github.com/go-viper/mapstructure/v2"
)

// Point is a normalized control point as written in node parameters. Spline
// operators read the tension; pen reads the handles.
type Point struct {
	X, Y    float64
	Tension float64 // NaN when the point carries no tension
	In, Out v2.Vec  // absolute handle positions; the point itself when absent
}

// Vec returns the point position.
func (p Point) Vec() v2.Vec { return v2.Vec{X: p.X, Y: p.Y} }

// MarshalJSON encodes the point canonically. An unset tension is omitted.
func (p Point) MarshalJSON() ([]byte, error) {
	type handle struct{ X, Y float64 }
	out := struct {
		X, Y    float64
		Tension *float64 `json:",omitempty"`
		In, Out handle
	}{X: p.X, Y: p.Y, In: handle{p.In.X, p.In.Y}, Out: handle{p.Out.X, p.Out.Y}}
	if !math.IsNaN(p.Tension) {
		out.Tension = &p.Tension
	}
	return json.Marshal(out)
}

var pointsType = reflect.TypeOf([]Point(nil))

// pointsHook converts loosely shaped point lists. Items that are not
// {x, y} maps or [x, y] pairs with finite numbers are dropped.
func pointsHook(_ reflect.Type, to reflect.Type, data any) (any, error) {
	if to != pointsType {
		return data, nil
	}
	return parsePoints(data), nil
}

func parsePoints(data any) []Point {
	items, ok := data.([]any)
	if !ok {
		rv := reflect.ValueOf(data)
		if rv.Kind() != reflect.Slice {
			return nil
		}
		items = make([]any, rv.Len())
		for i := range items {
			items[i] = rv.Index(i).Interface()
		}
	}
	out := make([]Point, 0, len(items))
	for _, it := range items {
		if p, ok := parsePoint(it); ok {
			out = append(out, p)
		}
	}
	return out
}

func parsePoint(it any) (Point, bool) {
	switch v := it.(type) {
	case []any:
		if len(v) < 2 {
			return Point{}, false
		}
		x, okx := toFloat(v[0])
		y, oky := toFloat(v[1])
		if !okx || !oky {
			return Point{}, false
		}
		p := Point{X: x, Y: y, Tension: math.NaN()}
		if len(v) > 2 {
			if t, ok := toFloat(v[2]); ok {
				p.Tension = t
			}
		}
		p.In, p.Out = p.Vec(), p.Vec()
		return p, true
	case map[string]any:
		x, okx := toFloat(v["x"])
		y, oky := toFloat(v["y"])
		if !okx || !oky {
			return Point{}, false
		}
		p := Point{X: x, Y: y, Tension: math.NaN()}
		if t, ok := toFloat(v["tension"]); ok {
			p.Tension = t
		}
		p.In = handle(v["in"], p.Vec())
		p.Out = handle(v["out"], p.Vec())
		return p, true
	}
	return parseReflected(reflect.ValueOf(it))
}

// parseReflected handles named map and slice types, such as graph.Params
// nested inside a decoded document, or []float64 pairs.
func parseReflected(rv reflect.Value) (Point, bool) {
	switch rv.Kind() {
	case reflect.Map:
		m := make(map[string]any, rv.Len())
		iter := rv.MapRange()
		for iter.Next() {
			k := iter.Key()
			if k.Kind() == reflect.Interface {
				k = k.Elem()
			}
			if k.Kind() == reflect.String {
				m[k.String()] = iter.Value().Interface()
			}
		}
		return parsePoint(m)
	case reflect.Slice, reflect.Array:
		items := make([]any, rv.Len())
		for i := range items {
			items[i] = rv.Index(i).Interface()
		}
		return parsePoint(items)
	}
	return Point{}, false
}

func handle(v any, def v2.Vec) v2.Vec {
	if v == nil {
		return def
	}
	p, ok := parsePoint(v)
	if !ok {
		return def
	}
	return p.Vec()
}

func toFloat(v any) (float64, bool) {
	var f float64
	switch n := v.(type) {
	case float64:
		f = n
	case float32:
		f = float64(n)
	case int:
		f = float64(n)
	case int64:
		f = float64(n)
	case int32:
		f = float64(n)
	case uint64:
		f = float64(n)
	case json.Number:
		x, err := n.Float64()
		if err != nil {
			return 0, false
		}
		f = x
	case string:
		x, err := strconv.ParseFloat(n, 64)
		if err != nil {
			return 0, false
		}
		f = x
	default:
		return 0, false
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

func newDecoder(out any) (*mapstructure.Decoder, error) {
	return mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		DecodeHook:       mapstructure.DecodeHookFuncType(pointsHook),
		WeaklyTypedInput: true,
		TagName:          "param",
		Result:           out,
	})
}

// decodeParams fills op from params. When the bag as a whole does not
// decode, op is reset to defaults and each key is retried on its own, so
// one bad field never discards the others.
func decodeParams(kind graph.Kind, params graph.Params, op Operator) {
	if len(params) == 0 {
		return
	}
	dec, err := newDecoder(op)
	if err != nil {
		return
	}
	if err = dec.Decode(map[string]any(params)); err == nil {
		return
	}
	reflect.ValueOf(op).Elem().Set(reflect.ValueOf(registry[kind]()).Elem())

	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		dec, _ := newDecoder(op)
		if err := dec.Decode(map[string]any{k: params[k]}); err != nil {
			Logger().Debug("ops: parameter ignored",
				"kind", string(kind), "param", k, "error", err)
		}
	}
}

var colorPattern = regexp.MustCompile(`^(#[0-9A-Fa-f]{3,8}|[A-Za-z]+|(rgb|rgba|hsl|hsla)\([0-9.,%\s]+\))$`)

// cssColor returns c when it is a plain CSS colour, def otherwise.
func cssColor(c, def string) string {
	if colorPattern.MatchString(c) {
		return c
	}
	return def
}

func clamp(v, lo, hi float64) float64 {
	if math.IsNaN(v) {
		return lo
	}
	return math.Max(lo, math.Min(hi, v))
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// nonNeg maps negative and NaN values to 0.
func nonNeg(v float64) float64 {
	if math.IsNaN(v) || v < 0 {
		return 0
	}
	return v
}
