package core

import (
	"errors"
	"math"
	"testing"
)

func TestClamp(t *testing.T) {
	tests := []struct {
		name     string
		value    float64
		min      float64
		max      float64
		expected float64
	}{
		{name: "inside", value: 0.5, min: 0, max: 1, expected: 0.5},
		{name: "below", value: -1, min: 0, max: 1, expected: 0},
		{name: "above", value: 2, min: 0, max: 1, expected: 1},
		{name: "swapped", value: 2, min: 1, max: 0, expected: 1},
		{name: "nan", value: math.NaN(), min: -3, max: 3, expected: -3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Clamp(tt.value, tt.min, tt.max)
			if got != tt.expected {
				t.Fatalf("Clamp() = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestLinearToDBFloor(t *testing.T) {
	if got := LinearToDB(0, 1e-10); got != -200 {
		t.Fatalf("LinearToDB(0) = %v, want -200", got)
	}

	if got := LinearToDB(DBToLinear(-6), 1e-10); math.Abs(got+6) > 1e-9 {
		t.Fatalf("LinearToDB(DBToLinear(-6)) = %v, want -6", got)
	}
}

func TestRoundTo(t *testing.T) {
	if got := RoundTo(120.26, 1); got != 120.3 {
		t.Fatalf("RoundTo() = %v, want 120.3", got)
	}
}

func TestNewBufferRejectsInvalidShape(t *testing.T) {
	if _, err := NewBuffer(0, 2, 10); !errors.Is(err, ErrInvalidSampleRate) {
		t.Fatalf("NewBuffer(sr=0) error = %v, want ErrInvalidSampleRate", err)
	}

	if _, err := NewBuffer(44100, 0, 10); !errors.Is(err, ErrNoChannels) {
		t.Fatalf("NewBuffer(ch=0) error = %v, want ErrNoChannels", err)
	}

	if _, err := BufferFrom(44100, make([]float64, 3), make([]float64, 4)); err == nil {
		t.Fatal("BufferFrom() with ragged channels: expected error")
	}
}

func TestBufferAccessors(t *testing.T) {
	b, err := NewBuffer(1000, 1, 2500)
	if err != nil {
		t.Fatalf("NewBuffer() error = %v", err)
	}

	if b.Len() != 2500 || b.NumChannels() != 1 {
		t.Fatalf("shape = %d x %d, want 1 x 2500", b.NumChannels(), b.Len())
	}

	if b.Duration() != 2.5 {
		t.Fatalf("Duration() = %v, want 2.5", b.Duration())
	}

	// Mono buffers answer for the right channel too.
	if &b.Channel(1)[0] != &b.Channel(0)[0] {
		t.Fatal("Channel(1) on mono buffer should alias channel 0")
	}

	var nilBuf *Buffer
	if nilBuf.Len() != 0 || nilBuf.Duration() != 0 {
		t.Fatal("nil buffer should report zero length")
	}
}

func TestParamGlidesTowardTarget(t *testing.T) {
	p := NewParam(0, 0.02)
	p.SetTarget(1)

	v1 := p.Advance(0.02)
	if math.Abs(v1-(1-math.Exp(-1))) > 1e-12 {
		t.Fatalf("after one tau got=%v, want=%v", v1, 1-math.Exp(-1))
	}

	for range 100 {
		p.Advance(0.02)
	}

	if !p.Settled() || p.Value() != 1 {
		t.Fatalf("param did not settle: value=%v target=%v", p.Value(), p.Target())
	}
}

func TestParamZeroTimeConstantJumps(t *testing.T) {
	p := NewParam(3, 0)
	p.SetTarget(-2)

	if got := p.Advance(0.001); got != -2 {
		t.Fatalf("Advance() = %v, want -2", got)
	}
}
