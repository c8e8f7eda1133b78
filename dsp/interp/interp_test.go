package interp

import (
	"math"
	"testing"
)

func TestHermite4IdentityOnLinearRamp(t *testing.T) {
	xm1, x0, x1, x2 := -1.0, 0.0, 1.0, 2.0
	for _, tc := range []struct {
		t float64
		w float64
	}{
		{t: 0.0, w: 0.0},
		{t: 0.25, w: 0.25},
		{t: 0.5, w: 0.5},
		{t: 1.0, w: 1.0},
	} {
		got := Hermite4(tc.t, xm1, x0, x1, x2)
		if math.Abs(got-tc.w) > 1e-12 {
			t.Fatalf("t=%v: got=%v, want=%v", tc.t, got, tc.w)
		}
	}
}

func TestHermite4HitsEndpoints(t *testing.T) {
	if got := Hermite4(0, 3, -2, 7, 1); got != -2 {
		t.Fatalf("t=0 got=%v, want=-2", got)
	}

	if got := Hermite4(1, 3, -2, 7, 1); math.Abs(got-7) > 1e-12 {
		t.Fatalf("t=1 got=%v, want=7", got)
	}
}

func TestLinear2(t *testing.T) {
	if got := Linear2(0.25, 2, 4); got != 2.5 {
		t.Fatalf("Linear2() got=%v, want=2.5", got)
	}
}

func TestModeString(t *testing.T) {
	if Hermite.String() != "hermite" || Linear.String() != "linear" || Mode(9).String() != "Mode(9)" {
		t.Fatal("unexpected Mode names")
	}
}
