package testutil

import (
	"math"
	"testing"
)

func TestDeterministicSine(t *testing.T) {
	s := DeterministicSine(1000, 48000, 1.0, 48)
	if len(s) != 48 {
		t.Fatalf("len = %d, want 48", len(s))
	}
	// First sample of a sine at phase 0 should be 0.
	if math.Abs(s[0]) > 1e-15 {
		t.Fatalf("s[0] = %v, want 0", s[0])
	}
	for i, v := range s {
		if v < -1 || v > 1 {
			t.Fatalf("s[%d] = %v out of range", i, v)
		}
	}
}

func TestDeterministicNoise(t *testing.T) {
	a := DeterministicNoise(42, 1.0, 64)
	b := DeterministicNoise(42, 1.0, 64)
	if len(a) != 64 {
		t.Fatalf("len = %d, want 64", len(a))
	}
	for i := range a {
		if a[i] != b[i] {
			t.Fatalf("noise not deterministic at index %d", i)
		}
	}
}

func TestImpulseOutOfBounds(t *testing.T) {
	imp := Impulse(4, 10)
	for i, v := range imp {
		if v != 0 {
			t.Fatalf("imp[%d] = %v, want all zeros for out-of-bounds pos", i, v)
		}
	}
}

func TestClickTrackBeatSpacing(t *testing.T) {
	const sr = 8000.0
	x := ClickTrack(120, sr, 2, 1)
	if len(x) != 16000 {
		t.Fatalf("len = %d, want 16000", len(x))
	}

	// Clicks start at multiples of 4000 samples; the first sample of each
	// burst is sin(0) = 0, the energy follows right after.
	for _, beat := range []int{0, 4000, 8000, 12000} {
		if x[beat+1] == 0 {
			t.Fatalf("expected click energy after sample %d", beat)
		}
	}
	if x[2000] != 0 {
		t.Fatalf("x[2000] = %v, want silence between beats", x[2000])
	}
}

func TestStereoDuplicatesLeft(t *testing.T) {
	b := Stereo(48000, []float64{1, 2}, nil)
	if b.NumChannels() != 2 || b.Channels[1][1] != 2 {
		t.Fatalf("unexpected stereo buffer: %#v", b.Channels)
	}
	b.Channels[1][0] = 9
	if b.Channels[0][0] != 1 {
		t.Fatal("right channel must not alias left")
	}
}
