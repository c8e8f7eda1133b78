package resample

import (
	"fmt"
	"math"

	"github.com/cwbudde/algo-djmix/dsp/window"
)

// designPhases builds a width·up tap lowpass at the tighter of the two
// Nyquist limits and splits it into up polyphase branches of width taps.
// The prototype is scaled so every branch has unity DC gain on average.
func designPhases(up, down int, p profile) ([][]float64, int, error) {
	n := p.tapsPerPhase * up
	fc := 0.5 / float64(max(up, down)) * p.cutoffScale

	if fc <= 0 || fc >= 0.5 {
		return nil, 0, fmt.Errorf("resample: invalid cutoff %.6f", fc)
	}

	taps := window.Generate(window.TypeKaiser, n, window.WithBeta(p.beta))
	center := float64(n-1) / 2

	var sum float64
	for i := range taps {
		taps[i] *= 2 * fc * sinc(2*fc*(float64(i)-center))
		sum += taps[i]
	}

	if sum == 0 {
		return nil, 0, fmt.Errorf("resample: degenerate filter for %d/%d", up, down)
	}

	gain := float64(up) / sum

	phases := make([][]float64, up)
	for ph := range phases {
		branch := make([]float64, 0, p.tapsPerPhase)
		for i := ph; i < n; i += up {
			branch = append(branch, taps[i]*gain)
		}

		phases[ph] = branch
	}

	return phases, p.tapsPerPhase, nil
}

// rationalApprox returns num/den close to v with den <= maxDen, using the
// continued fraction expansion of v.
func rationalApprox(v float64, maxDen int) (int, int) {
	if v <= 0 || math.IsNaN(v) || math.IsInf(v, 0) {
		return 1, 1
	}

	hPrev, h := 1.0, math.Floor(v)
	kPrev, k := 0.0, 1.0
	x := v

	for {
		frac := x - math.Floor(x)
		if frac < 1e-12 {
			break
		}

		x = 1 / frac
		a := math.Floor(x)

		kNext := a*k + kPrev
		if kNext > float64(maxDen) {
			break
		}

		hPrev, h = h, a*h+hPrev
		kPrev, k = k, kNext
	}

	num, den := int(math.Round(h)), int(math.Round(k))
	if num <= 0 || den <= 0 {
		return 1, 1
	}

	g := gcd(num, den)

	return num / g, den / g
}

func gcd(a, b int) int {
	for b != 0 {
		a, b = b, a%b
	}

	if a < 0 {
		return -a
	}

	if a == 0 {
		return 1
	}

	return a
}

func sinc(x float64) float64 {
	if math.Abs(x) < 1e-12 {
		return 1
	}

	return math.Sin(math.Pi*x) / (math.Pi * x)
}
