// Package fragment defines the vector fragment passed between operators and
// the document assembly around it.
package fragment

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
)

// Fragment is a self-contained SVG markup unit plus the definitions
// (gradients, filters, masks) it references by id.
type Fragment struct {
	Markup string   `json:"markup"`
	Defs   []string `json:"defs,omitempty"`
}

// Empty is the fragment of a branch that produced nothing.
var Empty = Fragment{}

// IsEmpty reports whether f draws nothing.
func (f Fragment) IsEmpty() bool {
	return strings.TrimSpace(f.Markup) == "" && len(f.Defs) == 0
}

// Wrap returns f with its markup replaced by markup, keeping f's defs and
// appending extra definitions.
func (f Fragment) Wrap(markup string, extra ...string) Fragment {
	return Fragment{Markup: markup, Defs: mergeDefs(f.Defs, extra)}
}

// Combine concatenates the markup of fs in order and merges their defs,
// dropping exact duplicates.
func Combine(fs ...Fragment) Fragment {
	var sb strings.Builder
	var defs []string
	for _, f := range fs {
		sb.WriteString(f.Markup)
		defs = mergeDefs(defs, f.Defs)
	}
	return Fragment{Markup: sb.String(), Defs: defs}
}

// MergeDefs merges definition lists preserving first-seen order.
func MergeDefs(lists ...[]string) []string {
	var out []string
	for _, l := range lists {
		out = mergeDefs(out, l)
	}
	return out
}

func mergeDefs(dst, src []string) []string {
	if len(src) == 0 {
		return dst
	}
	seen := make(map[string]struct{}, len(dst)+len(src))
	for _, d := range dst {
		seen[d] = struct{}{}
	}
	out := append([]string(nil), dst...)
	for _, d := range src {
		if _, ok := seen[d]; ok {
			continue
		}
		seen[d] = struct{}{}
		out = append(out, d)
	}
	return out
}

// Hash returns a structural hash of f: equal markup and defs give equal hashes.
func (f Fragment) Hash() string {
	h := sha256.New()
	fmt.Fprintf(h, "%d:%s", len(f.Markup), f.Markup)
	for _, d := range f.Defs {
		fmt.Fprintf(h, "|%d:%s", len(d), d)
	}
	return hex.EncodeToString(h.Sum(nil))
}

// Document wraps f into a complete SVG document of the given square size.
func Document(f Fragment, resolution int) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, `<svg xmlns="http://www.w3.org/2000/svg" xmlns:xlink="http://www.w3.org/1999/xlink" width="%d" height="%d" viewBox="0 0 %d %d">`,
		resolution, resolution, resolution, resolution)
	if len(f.Defs) > 0 {
		sb.WriteString("<defs>")
		for _, d := range f.Defs {
			sb.WriteString(d)
		}
		sb.WriteString("</defs>")
	}
	sb.WriteString(f.Markup)
	sb.WriteString("</svg>")
	return sb.String()
}
