// Package pathlib computes 2-D outline geometry for the shape operators and
// serializes it to SVG path data. Every function is pure.
package pathlib
