package dither

import (
	"math"
	"testing"

	"github.com/cwbudde/algo-djmix/internal/testutil"
)

func TestParseType(t *testing.T) {
	tests := []struct {
		name string
		want Type
		ok   bool
	}{
		{name: "none", want: None, ok: true},
		{name: "", want: None, ok: true},
		{name: "TPDF", want: Triangular, ok: true},
		{name: "rectangular", want: Rectangular, ok: true},
		{name: "gaussian", ok: false},
	}

	for _, tt := range tests {
		got, err := ParseType(tt.name)
		if (err == nil) != tt.ok || got != tt.want {
			t.Fatalf("ParseType(%q) got=%v, %v, want=%v", tt.name, got, err, tt.want)
		}
	}

	if got := Type(7).String(); got != "Type(7)" {
		t.Fatalf("String() got=%q, want=Type(7)", got)
	}
}

func TestNewQuantizerValidation(t *testing.T) {
	if _, err := NewQuantizer(4); err == nil {
		t.Fatal("NewQuantizer(4): expected error")
	}

	if _, err := NewQuantizer(16, WithType(Type(9))); err == nil {
		t.Fatal("NewQuantizer(type=9): expected error")
	}

	if _, err := NewQuantizer(16, WithNoiseShaping(make([]float64, 17))); err == nil {
		t.Fatal("NewQuantizer(order=17): expected error")
	}
}

func TestQuantizeWithoutDither(t *testing.T) {
	q, err := NewQuantizer(16, WithType(None))
	if err != nil {
		t.Fatalf("NewQuantizer() error = %v", err)
	}

	tests := []struct {
		in   float64
		want int
	}{
		{in: 0, want: 0},
		{in: 0.5, want: 16384},
		{in: -1, want: -32768},
		{in: 1, want: 32767},
		{in: 3, want: 32767},
		{in: -3, want: -32768},
		{in: math.NaN(), want: 0},
		{in: 1.4 / 32768, want: 1},
	}

	for _, tt := range tests {
		if got := q.Quantize(tt.in); got != tt.want {
			t.Fatalf("Quantize(%v) got=%d, want=%d", tt.in, got, tt.want)
		}
	}
}

func TestTriangularDitherIsUnbiased(t *testing.T) {
	q, err := NewQuantizer(16, WithSeed(7))
	if err != nil {
		t.Fatalf("NewQuantizer() error = %v", err)
	}

	const (
		n     = 100000
		level = 0.3
	)

	sum := 0.0
	for range n {
		code := q.Quantize(level / 32768)
		if code < -1 || code > 2 {
			t.Fatalf("Quantize() got=%d, want within 1.5 LSB of %v", code, level)
		}

		sum += float64(code)
	}

	if mean := sum / n; math.Abs(mean-level) > 0.02 {
		t.Fatalf("mean code got=%v, want=%v", mean, level)
	}
}

func TestFirstOrderShapingKeepsRunningErrorBounded(t *testing.T) {
	q, err := NewQuantizer(16, WithNoiseShaping(FirstOrder), WithSeed(3))
	if err != nil {
		t.Fatalf("NewQuantizer() error = %v", err)
	}

	in := testutil.DeterministicNoise(11, 0.5, 4096)
	acc := 0.0

	for i, x := range in {
		acc += float64(q.Quantize(x)) - x*32768
		if math.Abs(acc) > 1.5+1e-6 {
			t.Fatalf("running error at %d got=%v, want <= 1.5", i, acc)
		}
	}
}

func TestResetRepeatsSequence(t *testing.T) {
	q, err := NewQuantizer(16, WithNoiseShaping(FWeighted), WithSeed(5))
	if err != nil {
		t.Fatalf("NewQuantizer() error = %v", err)
	}

	in := testutil.DeterministicSine(997, 44100, 0.25, 256)
	first := make([]int, len(in))
	second := make([]int, len(in))

	q.QuantizeBlock(first, in)
	q.Reset()
	q.QuantizeBlock(second, in)

	for i := range first {
		if first[i] != second[i] {
			t.Fatalf("code %d after Reset got=%d, want=%d", i, second[i], first[i])
		}
	}
}
