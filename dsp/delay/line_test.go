package delay

import (
	"math"
	"testing"

	"github.com/cwbudde/algo-djmix/dsp/interp"
)

func TestNewValidation(t *testing.T) {
	for _, size := range []int{-1, 0, 3} {
		if _, err := New(size); err == nil {
			t.Fatalf("New(%d): expected error", size)
		}
	}
}

func TestTapReadsHistory(t *testing.T) {
	l, err := New(8)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	for i := 1; i <= 10; i++ {
		l.Push(float64(i))
	}

	tests := []struct {
		delay int
		want  float64
	}{
		{delay: 1, want: 10},
		{delay: 2, want: 9},
		{delay: 7, want: 4},
		{delay: 8, want: 3},
	}

	for _, tt := range tests {
		if got := l.Tap(tt.delay); got != tt.want {
			t.Fatalf("Tap(%d) got=%v, want=%v", tt.delay, got, tt.want)
		}
	}
}

func TestReadInterpolates(t *testing.T) {
	for _, mode := range []interp.Mode{interp.Hermite, interp.Linear} {
		l, err := New(16, WithMode(mode))
		if err != nil {
			t.Fatalf("New() error = %v", err)
		}

		// A ramp is reproduced exactly by both interpolators.
		for i := range 16 {
			l.Push(float64(i))
		}

		if got := l.Read(2.5); math.Abs(got-13.5) > 1e-12 {
			t.Fatalf("%s Read(2.5) got=%v, want=13.5", mode, got)
		}

		if got := l.Read(4); got != 12 {
			t.Fatalf("%s Read(4) got=%v, want=12", mode, got)
		}
	}
}

func TestReadClamps(t *testing.T) {
	l, err := New(8)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	for i := range 8 {
		l.Push(float64(i))
	}

	if got := l.Read(0); got != 7 {
		t.Fatalf("Read(0) got=%v, want=7", got)
	}

	if got := l.Read(100); got != l.Read(l.MaxDelay()) {
		t.Fatalf("Read(100) got=%v, want=%v", got, l.Read(l.MaxDelay()))
	}
}

func TestReset(t *testing.T) {
	l, err := New(4)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	l.Push(1)
	l.Reset()

	if got := l.Tap(1); got != 0 {
		t.Fatalf("Tap(1) after Reset got=%v, want=0", got)
	}
}
