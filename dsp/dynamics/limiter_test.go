package dynamics

import (
	"math"
	"testing"

	"github.com/cwbudde/algo-djmix/dsp/core"
	"github.com/cwbudde/algo-djmix/internal/testutil"
)

func TestLimiterHoldsCeiling(t *testing.T) {
	const sr = 44100.0

	l, err := NewLimiter(sr)
	if err != nil {
		t.Fatalf("NewLimiter() error = %v", err)
	}

	left := testutil.DeterministicSine(1000, sr, core.DBToLinear(10), int(2*sr))
	right := append([]float64(nil), left...)

	for start := 0; start < len(left); start += 128 {
		end := min(start+128, len(left))
		l.ProcessStereo(left[start:end], right[start:end])
	}

	settle := int(0.05 * sr)
	limit := core.DBToLinear(l.Ceiling() + 0.5)

	if peak := testutil.PeakAbs(left[settle:]); peak > limit {
		t.Fatalf("peak after settle got=%.4f (%.2f dBFS), want <= %.4f",
			peak, core.LinearToDB(peak, 1e-10), limit)
	}

	testutil.RequireFinite(t, left)
}

func TestLimiterPassesQuietSignal(t *testing.T) {
	l, _ := NewLimiter(48000)

	in := testutil.DeterministicSine(440, 48000, 0.5, 4096)
	out := append([]float64(nil), in...)
	l.ProcessInPlace(out)

	testutil.RequireSliceNearlyEqual(t, out, in, 0)

	if got := l.ReductionDB(); got != 0 {
		t.Fatalf("ReductionDB() got=%v, want=0", got)
	}
}

func TestLimiterProcessInPlaceMatchesSample(t *testing.T) {
	l1, _ := NewLimiter(48000, WithCeiling(-3), WithLimiterRelease(0.08))
	l2, _ := NewLimiter(48000, WithCeiling(-3), WithLimiterRelease(0.08))

	in := []float64{0.0, 0.1, 0.5, 0.95, 1.3, -1.1, 0.8, -0.6, 0.2, 0.0}

	want := make([]float64, len(in))
	for i, x := range in {
		want[i] = l1.ProcessSample(x)
	}

	got := append([]float64(nil), in...)
	l2.ProcessInPlace(got)

	testutil.RequireSliceNearlyEqual(t, got, want, 1e-12)
}

func TestLimiterCeilingClamps(t *testing.T) {
	l, _ := NewLimiter(48000)

	l.SetCeiling(5)
	if l.Ceiling() != 0 {
		t.Fatalf("Ceiling() got=%v, want=0", l.Ceiling())
	}

	l.SetCeiling(-100)
	if l.Ceiling() != -60 {
		t.Fatalf("Ceiling() got=%v, want=-60", l.Ceiling())
	}
}

func TestNewLimiterRejectsSoftRatio(t *testing.T) {
	if _, err := NewLimiter(48000, WithLimiterRatio(4)); err == nil {
		t.Fatal("NewLimiter(ratio=4): expected error")
	}

	if _, err := NewLimiter(48000, WithCeiling(1)); err == nil {
		t.Fatal("NewLimiter(ceiling=+1): expected error")
	}

	l, err := NewLimiter(48000, WithLimiterRatio(20))
	if err != nil || l.Ratio() != 20 {
		t.Fatalf("NewLimiter(ratio=20) = %v, %v", l, err)
	}

	if math.IsNaN(l.ReductionDB()) {
		t.Fatal("ReductionDB() is NaN")
	}
}
