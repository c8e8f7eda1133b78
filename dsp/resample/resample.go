package resample

import (
	"errors"
	"math"
)

var (
	// ErrInvalidRatio is returned for non-positive up or down factors.
	ErrInvalidRatio = errors.New("resample: invalid ratio")

	// ErrInvalidRate is returned for non-positive or non-finite rates.
	ErrInvalidRate = errors.New("resample: invalid sample rate")
)

// Quality trades filter length against stopband attenuation.
type Quality int

const (
	QualityFast Quality = iota
	QualityBalanced
	QualityBest
)

type profile struct {
	tapsPerPhase int
	cutoffScale  float64
	beta         float64
}

func (q Quality) profile() profile {
	switch q {
	case QualityFast:
		return profile{tapsPerPhase: 16, cutoffScale: 0.88, beta: 5}
	case QualityBest:
		return profile{tapsPerPhase: 64, cutoffScale: 0.96, beta: 9}
	default:
		return profile{tapsPerPhase: 32, cutoffScale: 0.92, beta: 7.5}
	}
}

type config struct {
	quality Quality
	maxDen  int
}

// Option configures a Converter.
type Option func(*config)

// WithQuality selects the filter profile. The default is QualityBalanced.
func WithQuality(q Quality) Option {
	return func(cfg *config) { cfg.quality = q }
}

// WithMaxDenominator bounds the denominator when NewForRates approximates
// the rate ratio. The default is 4096.
func WithMaxDenominator(n int) Option {
	return func(cfg *config) {
		if n > 0 {
			cfg.maxDen = n
		}
	}
}

func buildConfig(opts []Option) config {
	cfg := config{quality: QualityBalanced, maxDen: 4096}
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}

	return cfg
}

// Converter resamples a stream by the rational factor up/down. State is kept
// between Process calls, so chunked input yields the same output as one
// call over the whole signal.
type Converter struct {
	up, down int
	phases   [][]float64
	width    int
	center   float64

	// pos is the input index under the next output sample; phase is the
	// sub-sample offset in units of 1/up.
	pos   int
	phase int

	consumed int
	history  []float64
}

// NewConverter creates a converter for up/down, reduced to lowest terms.
func NewConverter(up, down int, opts ...Option) (*Converter, error) {
	if up <= 0 || down <= 0 {
		return nil, ErrInvalidRatio
	}

	g := gcd(up, down)
	up, down = up/g, down/g

	cfg := buildConfig(opts)

	phases, width, err := designPhases(up, down, cfg.quality.profile())
	if err != nil {
		return nil, err
	}

	return &Converter{
		up:     up,
		down:   down,
		phases: phases,
		width:  width,
		center: float64(width*up-1) / 2,
	}, nil
}

// NewForRates creates a converter from inRate to outRate.
func NewForRates(inRate, outRate float64, opts ...Option) (*Converter, error) {
	if !validRate(inRate) || !validRate(outRate) {
		return nil, ErrInvalidRate
	}

	cfg := buildConfig(opts)
	up, down := rationalApprox(outRate/inRate, cfg.maxDen)

	return NewConverter(up, down, opts...)
}

// Ratio returns the reduced conversion factors.
func (c *Converter) Ratio() (up, down int) { return c.up, c.down }

// Delay returns the filter group delay in output samples.
func (c *Converter) Delay() float64 { return c.center / float64(c.down) }

// OutputLen returns how many samples the next Process call of n input
// samples will produce.
func (c *Converter) OutputLen(n int) int {
	last := c.consumed + n - 1
	pos, phase := c.pos, c.phase

	count := 0
	for pos <= last {
		count++
		phase += c.down
		pos += phase / c.up
		phase %= c.up
	}

	return count
}

// Process converts one block of input.
func (c *Converter) Process(in []float64) []float64 {
	if len(in) == 0 {
		return nil
	}

	out := make([]float64, 0, c.OutputLen(len(in)))

	work := append(append(make([]float64, 0, len(c.history)+len(in)), c.history...), in...)
	first := c.consumed - len(c.history)
	last := c.consumed + len(in) - 1

	for c.pos <= last {
		var y float64
		for k, h := range c.phases[c.phase] {
			idx := c.pos - k
			if idx < first {
				break
			}

			y += h * work[idx-first]
		}

		out = append(out, y)

		c.phase += c.down
		c.pos += c.phase / c.up
		c.phase %= c.up
	}

	c.consumed += len(in)

	keep := min(c.width-1, len(work))
	c.history = append(c.history[:0], work[len(work)-keep:]...)

	return out
}

// Reset clears the stream state.
func (c *Converter) Reset() {
	c.pos = 0
	c.phase = 0
	c.consumed = 0
	c.history = c.history[:0]
}

func validRate(r float64) bool {
	return r > 0 && !math.IsNaN(r) && !math.IsInf(r, 0)
}
