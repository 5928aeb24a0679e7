// Package noise provides a seeded, bit-reproducible wave field used by the
// procedural mask operators.
//
// The generator is mulberry32: a 32-bit counter advanced by 0x6D2B79F5 and
// mixed into a float in [0,1). All arithmetic wraps at 32 bits, so any
// re-implementation produces the same sequence for the same seed.
package noise

import "math"

const golden = 0x6D2B79F5

// Rand is a counter-based pseudo-random generator.
type Rand struct {
	state uint32
}

// New returns a generator seeded with seed.
func New(seed uint32) *Rand {
	return &Rand{state: seed}
}

// Uint32 returns the next mixed 32-bit value.
func (r *Rand) Uint32() uint32 {
	r.state += golden
	t := r.state
	t = (t ^ t>>15) * (t | 1)
	t ^= t + (t^t>>7)*(t|61)
	return t ^ t>>14
}

// Float64 returns the next value in [0,1).
func (r *Rand) Float64() float64 {
	return float64(r.Uint32()) / 4294967296.0
}

// Oscillator is one component of a wave field.
type Oscillator struct {
	Phase float64 // [0, 2π)
	Speed float64 // [0.5, 2.0)
}

// Oscillators derives n oscillators from seed. Each draws its phase first and
// its speed second.
func Oscillators(seed uint32, n int) []Oscillator {
	if n < 0 {
		n = 0
	}
	r := New(seed)
	out := make([]Oscillator, n)
	for i := range out {
		out[i].Phase = r.Float64() * 2 * math.Pi
		out[i].Speed = 0.5 + r.Float64()*1.5
	}
	return out
}

// Field is a 1-D sum of oscillators over a normalized horizontal position.
type Field struct {
	Oscillators []Oscillator
	Frequency   float64
	Square      bool // use the sign of each sine instead of the sine
}

// At evaluates the field at x in [0,1).
func (f Field) At(x float64) float64 {
	var sum float64
	for _, o := range f.Oscillators {
		v := math.Sin(x*f.Frequency*2*math.Pi*o.Speed + o.Phase)
		if f.Square {
			v = sign(v)
		}
		sum += v
	}
	return sum / math.Max(1, float64(len(f.Oscillators))*0.6)
}

func sign(v float64) float64 {
	switch {
	case v > 0:
		return 1
	case v < 0:
		return -1
	}
	return 0
}

// SoftThreshold maps v to 0 below threshold-softness, 1 above
// threshold+softness and ramps linearly between. A softness of 0.001 or less
// is a hard cut at threshold.
func SoftThreshold(v, threshold, softness float64) float64 {
	if softness <= 0.001 {
		if v >= threshold {
			return 1
		}
		return 0
	}
	lo, hi := threshold-softness, threshold+softness
	switch {
	case v <= lo:
		return 0
	case v >= hi:
		return 1
	}
	return (v - lo) / (hi - lo)
}
