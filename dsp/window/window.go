// Package window provides the analysis windows used by the spectrum analyser
// and the offline feature extractor.
package window

import (
	"fmt"
	"math"

	"github.com/cwbudde/algo-vecmath"
)

// Type identifies a window function.
type Type int

const (
	TypeRectangular Type = iota
	TypeHann
	TypeBlackman
	TypeKaiser
)

func (t Type) String() string {
	switch t {
	case TypeRectangular:
		return "rectangular"
	case TypeHann:
		return "hann"
	case TypeBlackman:
		return "blackman"
	case TypeKaiser:
		return "kaiser"
	default:
		return fmt.Sprintf("Type(%d)", int(t))
	}
}

// Blackman coefficients as used by browser analyser nodes (alpha = 0.16).
const (
	blackmanA0 = 0.42
	blackmanA1 = 0.5
	blackmanA2 = 0.08
)

// Option configures window generation.
type Option func(*config)

type config struct {
	periodic bool
	beta     float64
}

// DefaultKaiserBeta is the shape used when WithBeta is not given.
const DefaultKaiserBeta = 7.5

// WithPeriodic generates the DFT-even variant, dividing by size instead of
// size-1. Analyser frames use the periodic form.
func WithPeriodic() Option {
	return func(cfg *config) { cfg.periodic = true }
}

// WithBeta sets the Kaiser shape parameter. Negative values are ignored.
func WithBeta(beta float64) Option {
	return func(cfg *config) {
		if beta >= 0 {
			cfg.beta = beta
		}
	}
}

// Generate returns size window coefficients of type t. Unknown types and
// non-positive sizes return nil.
func Generate(t Type, size int, opts ...Option) []float64 {
	if size <= 0 {
		return nil
	}

	cfg := config{beta: DefaultKaiserBeta}
	for _, opt := range opts {
		opt(&cfg)
	}

	out := make([]float64, size)
	if size == 1 {
		out[0] = 1
		return out
	}

	denom := float64(size - 1)
	if cfg.periodic {
		denom = float64(size)
	}

	for i := range out {
		x := float64(i) / denom
		switch t {
		case TypeRectangular:
			out[i] = 1
		case TypeHann:
			out[i] = 0.5 * (1 - math.Cos(2*math.Pi*x))
		case TypeBlackman:
			out[i] = blackmanA0 - blackmanA1*math.Cos(2*math.Pi*x) + blackmanA2*math.Cos(4*math.Pi*x)
		case TypeKaiser:
			t := 2*x - 1
			out[i] = besselI0(cfg.beta*math.Sqrt(math.Max(0, 1-t*t))) / besselI0(cfg.beta)
		default:
			return nil
		}
	}

	return out
}

// Apply multiplies buf in place by coeffs. Lengths must match.
func Apply(buf, coeffs []float64) error {
	if len(buf) != len(coeffs) {
		return fmt.Errorf("window: samples and coefficients must have same length: %d != %d", len(buf), len(coeffs))
	}

	if len(buf) == 0 {
		return nil
	}

	vecmath.MulBlockInPlace(buf, coeffs)

	return nil
}

// CoherentGain returns the mean coefficient value, the amplitude a windowed
// bin-centred sine keeps after the transform.
func CoherentGain(coeffs []float64) float64 {
	if len(coeffs) == 0 {
		return 0
	}

	var sum float64
	for _, c := range coeffs {
		sum += c
	}

	return sum / float64(len(coeffs))
}

// besselI0 evaluates the zeroth-order modified Bessel function by its power
// series.
func besselI0(x float64) float64 {
	sum, term := 1.0, 1.0
	q := x * x / 4

	for k := 1; k < 64; k++ {
		term *= q / float64(k*k)
		sum += term

		if term < 1e-16*sum {
			break
		}
	}

	return sum
}
