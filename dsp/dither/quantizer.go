package dither

import (
	"fmt"
	"math"
	"math/rand/v2"
)

const (
	minBits         = 8
	maxBits         = 24
	maxShapingOrder = 16
)

// Option configures a Quantizer.
type Option func(*config) error

type config struct {
	typ    Type
	seed   uint64
	shaper []float64
}

// WithType selects the dither distribution. The default is Triangular.
func WithType(t Type) Option {
	return func(cfg *config) error {
		if t < None || t > Triangular {
			return fmt.Errorf("dither type must be none, rectangular or triangular: %d", int(t))
		}

		cfg.typ = t

		return nil
	}
}

// WithSeed fixes the noise sequence.
func WithSeed(seed uint64) Option {
	return func(cfg *config) error {
		cfg.seed = seed
		return nil
	}
}

// WithNoiseShaping enables error feedback with the given filter, for example
// FirstOrder or FWeighted. Nil disables shaping.
func WithNoiseShaping(coeffs []float64) Option {
	return func(cfg *config) error {
		if len(coeffs) > maxShapingOrder {
			return fmt.Errorf("dither shaping order must be <= %d: %d", maxShapingOrder, len(coeffs))
		}

		for _, c := range coeffs {
			if math.IsNaN(c) || math.IsInf(c, 0) {
				return fmt.Errorf("dither shaping coefficients must be finite: %v", coeffs)
			}
		}

		cfg.shaper = append([]float64(nil), coeffs...)

		return nil
	}
}

// Quantizer maps samples in [-1, 1] to integer codes of a fixed bit depth.
// A full-scale input of 1.0 maps to 2^(bits-1), so positive peaks clip one
// code early, as 16-bit PCM writers usually do.
type Quantizer struct {
	bits    int
	scale   float64
	minCode float64
	maxCode float64
	typ     Type
	rng     *rand.Rand
	seed    uint64
	shaper  []float64
	errs    []float64
}

// NewQuantizer returns a quantizer for bits in [8, 24].
func NewQuantizer(bits int, opts ...Option) (*Quantizer, error) {
	if bits < minBits || bits > maxBits {
		return nil, fmt.Errorf("dither: bit depth must be in [%d, %d]: %d", minBits, maxBits, bits)
	}

	cfg := config{typ: Triangular, seed: 1}
	for _, opt := range opts {
		if err := opt(&cfg); err != nil {
			return nil, err
		}
	}

	full := math.Ldexp(1, bits-1)

	return &Quantizer{
		bits:    bits,
		scale:   full,
		minCode: -full,
		maxCode: full - 1,
		typ:     cfg.typ,
		rng:     rand.New(rand.NewPCG(cfg.seed, cfg.seed^0x9e3779b97f4a7c15)),
		seed:    cfg.seed,
		shaper:  cfg.shaper,
		errs:    make([]float64, len(cfg.shaper)),
	}, nil
}

// Bits returns the output bit depth.
func (q *Quantizer) Bits() int { return q.bits }

// Type returns the dither distribution.
func (q *Quantizer) Type() Type { return q.typ }

// Quantize returns the integer code for x.
func (q *Quantizer) Quantize(x float64) int {
	if math.IsNaN(x) {
		x = 0
	}

	v := x * q.scale
	for i, c := range q.shaper {
		v -= c * q.errs[i]
	}

	code := math.Round(v + q.noise())
	if code < q.minCode {
		code = q.minCode
	} else if code > q.maxCode {
		code = q.maxCode
	}

	if n := len(q.errs); n > 0 {
		copy(q.errs[1:], q.errs[:n-1])
		// Clipped samples feed back at most two codes.
		q.errs[0] = math.Max(-2, math.Min(2, code-v))
	}

	return int(code)
}

// QuantizeBlock writes the codes for src into dst, which must be at least
// as long as src.
func (q *Quantizer) QuantizeBlock(dst []int, src []float64) {
	for i, x := range src {
		dst[i] = q.Quantize(x)
	}
}

// Reset clears the shaping history and restarts the noise sequence.
func (q *Quantizer) Reset() {
	clear(q.errs)
	q.rng = rand.New(rand.NewPCG(q.seed, q.seed^0x9e3779b97f4a7c15))
}

func (q *Quantizer) noise() float64 {
	switch q.typ {
	case Rectangular:
		return q.rng.Float64() - 0.5
	case Triangular:
		return q.rng.Float64() - q.rng.Float64()
	default:
		return 0
	}
}
