package spectrum

import (
	"fmt"
	"math"
	"sync"

	algofft "github.com/MeKo-Christian/algo-fft"
	"github.com/cwbudde/algo-djmix/dsp/core"
	"github.com/cwbudde/algo-djmix/dsp/window"
)

const (
	// DefaultFFTSize is the analyser frame length.
	DefaultFFTSize = 4096

	// DefaultSmoothing is the weight of the previous frame in the
	// magnitude average.
	DefaultSmoothing = 0.8

	minFFTSize = 32
	maxFFTSize = 32768
)

// AnalyserOption mutates analyser construction parameters.
type AnalyserOption func(*analyserConfig) error

type analyserConfig struct {
	fftSize   int
	smoothing float64
}

// WithFFTSize sets the frame length, a power of two in [32, 32768].
func WithFFTSize(n int) AnalyserOption {
	return func(cfg *analyserConfig) error {
		if n < minFFTSize || n > maxFFTSize || n&(n-1) != 0 {
			return fmt.Errorf("analyser fft size must be a power of two in [%d, %d]: %d", minFFTSize, maxFFTSize, n)
		}

		cfg.fftSize = n

		return nil
	}
}

// WithSmoothing sets the smoothing time constant in [0, 1].
func WithSmoothing(s float64) AnalyserOption {
	return func(cfg *analyserConfig) error {
		if s < 0 || s > 1 || math.IsNaN(s) {
			return fmt.Errorf("analyser smoothing must be in [0, 1]: %f", s)
		}

		cfg.smoothing = s

		return nil
	}
}

// Analyser taps a stereo signal and produces smoothed magnitude frames.
// Write is called from the audio path; Frame, TimeDomain and Snapshot may be
// called from another goroutine.
type Analyser struct {
	sampleRate float64
	fftSize    int
	smoothing  float64

	plan   *algofft.Plan[complex128]
	window []float64

	mu       sync.Mutex
	ring     []float64
	pos      int
	written  int
	frame    []complex128
	smoothed []float64
	snapped  []float64 // running average for Snapshot, separate from Frame's
	mags     []float64
}

// NewAnalyser creates an analyser with a 4096-point frame and 0.8 smoothing.
func NewAnalyser(sampleRate float64, opts ...AnalyserOption) (*Analyser, error) {
	if err := core.ValidateSampleRate(sampleRate); err != nil {
		return nil, fmt.Errorf("spectrum: %w", err)
	}

	cfg := analyserConfig{fftSize: DefaultFFTSize, smoothing: DefaultSmoothing}
	for _, opt := range opts {
		if err := opt(&cfg); err != nil {
			return nil, err
		}
	}

	plan, err := algofft.NewPlan64(cfg.fftSize)
	if err != nil {
		return nil, fmt.Errorf("spectrum: failed to create FFT plan: %w", err)
	}

	return &Analyser{
		sampleRate: sampleRate,
		fftSize:    cfg.fftSize,
		smoothing:  cfg.smoothing,
		plan:       plan,
		window:     window.Generate(window.TypeBlackman, cfg.fftSize, window.WithPeriodic()),
		ring:       make([]float64, cfg.fftSize),
		frame:      make([]complex128, cfg.fftSize),
		smoothed:   make([]float64, cfg.fftSize/2),
		snapped:    make([]float64, cfg.fftSize/2),
		mags:       make([]float64, cfg.fftSize/2),
	}, nil
}

// FFTSize returns the frame length.
func (a *Analyser) FFTSize() int { return a.fftSize }

// BinCount returns the number of magnitude bins, FFTSize/2.
func (a *Analyser) BinCount() int { return a.fftSize / 2 }

// SampleRate returns the sample rate in Hz.
func (a *Analyser) SampleRate() float64 { return a.sampleRate }

// Written returns the total number of frames written since the last reset.
func (a *Analyser) Written() int {
	a.mu.Lock()
	defer a.mu.Unlock()

	return a.written
}

// Write appends a stereo block, downmixed to mono. right may be nil.
func (a *Analyser) Write(left, right []float64) {
	a.mu.Lock()
	defer a.mu.Unlock()

	for i, l := range left {
		x := l
		if right != nil && i < len(right) {
			x = 0.5 * (l + right[i])
		}

		a.ring[a.pos] = x
		a.pos++
		if a.pos == a.fftSize {
			a.pos = 0
		}
	}

	a.written += len(left)
}

// TimeDomain copies the most recent FFTSize samples, oldest first, into dst
// and returns it. A nil or short dst is reallocated.
func (a *Analyser) TimeDomain(dst []float64) []float64 {
	a.mu.Lock()
	defer a.mu.Unlock()

	return a.timeDomainLocked(dst)
}

func (a *Analyser) timeDomainLocked(dst []float64) []float64 {
	dst = core.EnsureLen(dst, a.fftSize)
	n := copy(dst, a.ring[a.pos:])
	copy(dst[n:], a.ring[:a.pos])

	return dst
}

// Frame transforms the current window, folds it into the running average and
// returns a copy of the smoothed linear magnitudes (|X[k]| / FFTSize).
func (a *Analyser) Frame() []float64 {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.frameLocked(a.smoothed)

	return append([]float64(nil), a.smoothed...)
}

// frameLocked transforms the current window and folds it into avg.
func (a *Analyser) frameLocked(avg []float64) {
	for i := range a.frame {
		idx := (a.pos + i) % a.fftSize
		a.frame[i] = complex(a.ring[idx]*a.window[i], 0)
	}

	if err := a.plan.Forward(a.frame, a.frame); err != nil {
		return
	}

	MagnitudeInto(a.mags, a.frame)

	inv := 1 / float64(a.fftSize)
	s := a.smoothing
	for k, m := range a.mags {
		v := s*avg[k] + (1-s)*m*inv
		if math.IsNaN(v) || math.IsInf(v, 0) {
			v = 0
		}

		avg[k] = v
	}
}

// Snapshot computes a new frame and the metrics for it. Snapshots keep their
// own running average, so they do not disturb the Frame sequence.
func (a *Analyser) Snapshot() Snapshot {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.frameLocked(a.snapped)

	return ComputeSnapshot(a.timeDomainLocked(nil), a.snapped, a.sampleRate)
}

// Reset clears the sample history and the running average.
func (a *Analyser) Reset() {
	a.mu.Lock()
	defer a.mu.Unlock()

	clear(a.ring)
	clear(a.smoothed)
	clear(a.snapped)
	a.pos = 0
	a.written = 0
}
