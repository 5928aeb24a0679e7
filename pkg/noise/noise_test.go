package noise

import (
	"math"
	"testing"
)

func TestRandSequence(t *testing.T) {
	want := []float64{0.9797282677609473, 0.3067522644996643, 0.484205421525985, 0.817934412509203}
	r := New(12345)
	for i, w := range want {
		if got := r.Float64(); got != w {
			t.Errorf("value %d = %v, want %v", i, got, w)
		}
	}
}

func TestRandRepeatable(t *testing.T) {
	a, b := New(7), New(7)
	for i := 0; i < 1000; i++ {
		x, y := a.Uint32(), b.Uint32()
		if x != y {
			t.Fatalf("step %d: %d != %d", i, x, y)
		}
	}
	if New(7).Uint32() == New(8).Uint32() {
		t.Error("different seeds should diverge")
	}
}

func TestOscillatorsReference(t *testing.T) {
	want := []Oscillator{
		{Phase: 6.155814257024092, Speed: 0.9601283967494965},
		{Phase: 3.0423523901887672, Speed: 1.7269016187638044},
		{Phase: 3.200832845341564, Speed: 1.0212077907053754},
		{Phase: 0.46343230312988465, Speed: 1.6495947010116652},
		{Phase: 6.263245237829946, Speed: 1.7375337276607752},
	}
	got := Oscillators(12345, 5)
	if len(got) != len(want) {
		t.Fatalf("len = %d, want %d", len(got), len(want))
	}
	for i := range want {
		if math.Abs(got[i].Phase-want[i].Phase) > 1e-12 || math.Abs(got[i].Speed-want[i].Speed) > 1e-12 {
			t.Errorf("oscillator %d = %+v, want %+v", i, got[i], want[i])
		}
	}
	for _, o := range Oscillators(99, 64) {
		if o.Phase < 0 || o.Phase >= 2*math.Pi {
			t.Errorf("phase %v out of range", o.Phase)
		}
		if o.Speed < 0.5 || o.Speed >= 2 {
			t.Errorf("speed %v out of range", o.Speed)
		}
	}
}

func TestFieldNormalization(t *testing.T) {
	one := Field{Oscillators: []Oscillator{{Phase: math.Pi / 2, Speed: 1}}, Frequency: 1}
	if got := one.At(0); math.Abs(got-1) > 1e-12 {
		t.Errorf("single oscillator at phase π/2 = %v, want 1 (divisor clamps to 1)", got)
	}

	five := Field{Oscillators: make([]Oscillator, 5), Frequency: 3, Square: true}
	for i := range five.Oscillators {
		five.Oscillators[i] = Oscillator{Phase: math.Pi / 2, Speed: 1}
	}
	if got := five.At(0); math.Abs(got-5/3.0) > 1e-12 {
		t.Errorf("five square oscillators = %v, want %v", got, 5/3.0)
	}
	if got := (Field{}).At(0.3); got != 0 {
		t.Errorf("empty field = %v, want 0", got)
	}
}

func TestSoftThreshold(t *testing.T) {
	tests := []struct {
		name                string
		v, thresh, softness float64
		want                float64
	}{
		{"below ramp", 0.2, 0.5, 0.1, 0},
		{"above ramp", 0.7, 0.5, 0.1, 1},
		{"mid ramp", 0.5, 0.5, 0.1, 0.5},
		{"quarter ramp", 0.45, 0.5, 0.1, 0.25},
		{"hard cut at", 0.5, 0.5, 0.001, 1},
		{"hard cut below", 0.4999, 0.5, 0, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := SoftThreshold(tt.v, tt.thresh, tt.softness); math.Abs(got-tt.want) > 1e-9 {
				t.Errorf("SoftThreshold = %v, want %v", got, tt.want)
			}
		})
	}
}
