package dynamics

import (
	"fmt"
	"math"

	"github.com/cwbudde/algo-djmix/dsp/core"
)

const (
	defaultLimiterCeilingDB = -1.0
	defaultLimiterRatio     = 100.0
	defaultLimiterAttack    = 0.001
	defaultLimiterRelease   = 0.05
	defaultLimiterSmoothing = 0.01

	minLimiterCeilingDB = -60.0
	maxLimiterCeilingDB = 0.0
	minLimiterRatio     = 20.0
)

// LimiterOption mutates limiter construction parameters.
type LimiterOption func(*limiterConfig) error

type limiterConfig struct {
	ceilingDB float64
	ratio     float64
	attack    float64
	release   float64
}

// WithCeiling sets the output ceiling in dBFS.
func WithCeiling(dB float64) LimiterOption {
	return func(cfg *limiterConfig) error {
		if dB < minLimiterCeilingDB || dB > maxLimiterCeilingDB || math.IsNaN(dB) {
			return fmt.Errorf("limiter ceiling must be in [%g, %g]: %f", minLimiterCeilingDB, maxLimiterCeilingDB, dB)
		}

		cfg.ceilingDB = dB

		return nil
	}
}

// WithLimiterRatio sets the ratio above the ceiling. Anything below 20:1 is
// not brick-wall and is rejected.
func WithLimiterRatio(ratio float64) LimiterOption {
	return func(cfg *limiterConfig) error {
		if ratio < minLimiterRatio || ratio > maxCompressorRatio || math.IsNaN(ratio) {
			return fmt.Errorf("limiter ratio must be in [%g, %g]: %f", minLimiterRatio, maxCompressorRatio, ratio)
		}

		cfg.ratio = ratio

		return nil
	}
}

// WithLimiterRelease sets the release time in seconds.
func WithLimiterRelease(seconds float64) LimiterOption {
	return func(cfg *limiterConfig) error {
		if seconds < 0 || seconds > maxCompressorTime || math.IsNaN(seconds) {
			return fmt.Errorf("limiter release must be in [0, %g]: %f", maxCompressorTime, seconds)
		}

		cfg.release = seconds

		return nil
	}
}

// Limiter is a brick-wall peak limiter: a hard-knee compressor with its
// threshold at the ceiling, a 1 ms attack and peak-aware detection. Ceiling
// changes glide with a 10 ms time constant.
type Limiter struct {
	comp *Compressor
}

// NewLimiter creates a limiter with a -1 dBFS ceiling.
func NewLimiter(sampleRate float64, opts ...LimiterOption) (*Limiter, error) {
	cfg := limiterConfig{
		ceilingDB: defaultLimiterCeilingDB,
		ratio:     defaultLimiterRatio,
		attack:    defaultLimiterAttack,
		release:   defaultLimiterRelease,
	}

	for _, opt := range opts {
		if err := opt(&cfg); err != nil {
			return nil, err
		}
	}

	comp, err := NewCompressor(sampleRate,
		WithThreshold(cfg.ceilingDB),
		WithKnee(0),
		WithRatio(cfg.ratio),
		WithAttack(cfg.attack),
		WithRelease(cfg.release),
		WithSmoothing(defaultLimiterSmoothing),
		WithInstantPeak(),
	)
	if err != nil {
		return nil, fmt.Errorf("limiter: %w", err)
	}

	return &Limiter{comp: comp}, nil
}

// SetCeiling glides the ceiling toward dB, clamped to [-60, 0].
func (l *Limiter) SetCeiling(dB float64) {
	l.comp.SetThreshold(core.Clamp(dB, minLimiterCeilingDB, maxLimiterCeilingDB))
}

// Ceiling returns the target ceiling in dBFS.
func (l *Limiter) Ceiling() float64 { return l.comp.Threshold() }

// Ratio returns the limiting ratio.
func (l *Limiter) Ratio() float64 { return l.comp.Ratio() }

// ProcessSample limits one mono sample.
func (l *Limiter) ProcessSample(x float64) float64 { return l.comp.ProcessSample(x) }

// ProcessInPlace limits a mono block in place.
func (l *Limiter) ProcessInPlace(buf []float64) { l.comp.ProcessInPlace(buf) }

// ProcessStereo limits a stereo block in place with linked detection.
func (l *Limiter) ProcessStereo(left, right []float64) { l.comp.ProcessStereo(left, right) }

// ReductionDB returns the current gain reduction in dB.
func (l *Limiter) ReductionDB() float64 { return l.comp.ReductionDB() }

// GetMetrics returns current metering values.
func (l *Limiter) GetMetrics() CompressorMetrics { return l.comp.GetMetrics() }

// Reset clears the envelope follower and metrics.
func (l *Limiter) Reset() { l.comp.Reset() }
