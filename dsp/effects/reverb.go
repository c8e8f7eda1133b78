package effects

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/rand/v2"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/cwbudde/algo-djmix/dsp/conv"
	"github.com/cwbudde/algo-djmix/dsp/core"
)

const (
	defaultReverbDecay = 2.0
	minReverbDecay     = 0.1
	maxReverbDecay     = 10.0

	// maxReverbIRSeconds caps the generated impulse response length.
	maxReverbIRSeconds = 8.0

	reverbDiffusion = 0.1
)

// ReverbOption mutates reverb construction parameters.
type ReverbOption func(*reverbConfig) error

type reverbConfig struct {
	decay     float64
	seed      uint64
	blockSize int
	log       *zap.Logger
}

// WithReverbDecay sets the initial decay in seconds, in [0.1, 10].
func WithReverbDecay(seconds float64) ReverbOption {
	return func(cfg *reverbConfig) error {
		if seconds < minReverbDecay || seconds > maxReverbDecay || math.IsNaN(seconds) {
			return fmt.Errorf("reverb decay must be in [%g, %g]: %f", minReverbDecay, maxReverbDecay, seconds)
		}

		cfg.decay = seconds

		return nil
	}
}

// WithReverbSeed makes impulse response generation reproducible.
func WithReverbSeed(seed uint64) ReverbOption {
	return func(cfg *reverbConfig) error {
		cfg.seed = seed
		return nil
	}
}

// WithReverbBlockSize sets the convolver partition size, a power of two.
func WithReverbBlockSize(n int) ReverbOption {
	return func(cfg *reverbConfig) error {
		if n < 16 || n&(n-1) != 0 {
			return fmt.Errorf("reverb block size must be a power of two >= 16: %d", n)
		}

		cfg.blockSize = n

		return nil
	}
}

// WithReverbLogger sets the logger used for background impulse response
// failures. The default discards everything.
func WithReverbLogger(log *zap.Logger) ReverbOption {
	return func(cfg *reverbConfig) error {
		if log == nil {
			return fmt.Errorf("reverb logger must not be nil")
		}

		cfg.log = log

		return nil
	}
}

// Reverb is a convolution reverb fed by a synthetic stereo impulse response:
// decaying white noise with slightly decorrelated channels. Changing the
// decay regenerates the response in the background and swaps it in when
// ready; a newer request cancels an older one.
type Reverb struct {
	sampleRate float64
	blockSize  int
	conv       *conv.Convolver
	wet        core.Param
	log        *zap.Logger

	// idle is set while the convolver is skipped at wet level 0.
	idle bool

	bufL []float64
	bufR []float64

	mu     sync.Mutex
	decay  float64
	rng    *rand.Rand
	gen    uint64
	cancel context.CancelFunc
	done   chan struct{}
}

// NewReverb creates a reverb with a 2 s decay and wet level 0. The first
// impulse response is generated before NewReverb returns.
func NewReverb(sampleRate float64, opts ...ReverbOption) (*Reverb, error) {
	if err := validateSampleRate("reverb", sampleRate); err != nil {
		return nil, err
	}

	cfg := reverbConfig{
		decay:     defaultReverbDecay,
		seed:      uint64(time.Now().UnixNano()),
		blockSize: conv.DefaultBlockSize,
		log:       zap.NewNop(),
	}

	for _, opt := range opts {
		if err := opt(&cfg); err != nil {
			return nil, err
		}
	}

	c, err := conv.NewConvolver(cfg.blockSize)
	if err != nil {
		return nil, fmt.Errorf("reverb: %w", err)
	}

	r := &Reverb{
		sampleRate: sampleRate,
		blockSize:  cfg.blockSize,
		conv:       c,
		wet:        core.NewParam(0, wetSmoothing),
		log:        cfg.log,
		decay:      cfg.decay,
		rng:        rand.New(rand.NewPCG(cfg.seed, cfg.seed>>1)),
	}

	k, err := generateReverbKernel(context.Background(), sampleRate, cfg.decay, r.rng, cfg.blockSize)
	if err != nil {
		return nil, fmt.Errorf("reverb: %w", err)
	}

	if err := c.SetKernel(k); err != nil {
		return nil, fmt.Errorf("reverb: %w", err)
	}

	return r, nil
}

// Kind implements Unit.
func (r *Reverb) Kind() Kind { return KindReverb }

// SetWet implements Unit.
func (r *Reverb) SetWet(w float64) { r.wet.SetTarget(core.Clamp(w, 0, 1)) }

// Wet returns the target wet level.
func (r *Reverb) Wet() float64 { return r.wet.Target() }

// Decay returns the most recently requested decay in seconds.
func (r *Reverb) Decay() float64 {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.decay
}

// Latency returns the convolution latency in samples, which is zero.
func (r *Reverb) Latency() int { return r.conv.Latency() }

// SetDecay clamps seconds to [0.1, 10] and regenerates the impulse response
// asynchronously. The previous response keeps playing until the new one is
// installed.
func (r *Reverb) SetDecay(seconds float64) {
	seconds = core.Clamp(seconds, minReverbDecay, maxReverbDecay)

	r.mu.Lock()
	if r.cancel != nil {
		r.cancel()
	}

	ctx, cancel := context.WithCancel(context.Background())
	r.cancel = cancel
	r.decay = seconds
	r.gen++
	gen := r.gen
	rng := rand.New(rand.NewPCG(r.rng.Uint64(), r.rng.Uint64()))
	done := make(chan struct{})
	r.done = done
	r.mu.Unlock()

	go func() {
		defer close(done)
		defer cancel()

		k, err := generateReverbKernel(ctx, r.sampleRate, seconds, rng, r.blockSize)
		if err != nil {
			if !errors.Is(err, context.Canceled) {
				r.log.Error("reverb impulse response generation failed", zap.Float64("decay", seconds), zap.Error(err))
			}

			return
		}

		r.mu.Lock()
		defer r.mu.Unlock()

		if gen != r.gen {
			return
		}

		r.install(k, seconds)
	}()
}

// install swaps k in and logs when the convolver rejects it.
func (r *Reverb) install(k *conv.Kernel, decay float64) {
	if err := r.conv.SetKernel(k); err != nil {
		r.log.Error("reverb impulse response rejected", zap.Float64("decay", decay), zap.Error(err))
	}
}

// WaitIR blocks until the most recent impulse response regeneration has
// finished or was cancelled.
func (r *Reverb) WaitIR() {
	r.mu.Lock()
	done := r.done
	r.mu.Unlock()

	if done != nil {
		<-done
	}
}

// Close cancels any pending regeneration.
func (r *Reverb) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.cancel != nil {
		r.cancel()
		r.cancel = nil
	}
}

// Process implements Unit. While the wet level rests at 0 the convolver is
// not run; it restarts from silence when the level rises again.
func (r *Reverb) Process(inL, inR, outL, outR []float64) {
	from := r.wet.Value()
	to := r.wet.Advance(float64(len(inL)) / r.sampleRate)

	if from == 0 && to == 0 {
		r.idle = true
		return
	}

	if r.idle {
		r.conv.Reset()
		r.idle = false
	}

	r.bufL = core.EnsureLen(r.bufL, len(inL))
	r.bufR = core.EnsureLen(r.bufR, len(inL))

	if err := r.conv.Process(inL, rightOrLeft(inL, inR), r.bufL, r.bufR); err != nil {
		return
	}

	addRamped(outL, r.bufL, from, to)
	addRamped(outR, r.bufR, from, to)
}

// Reset implements Unit.
func (r *Reverb) Reset() {
	r.conv.Reset()
}

// generateReverbKernel renders sr·min(decay, 8) samples of
// noise·(1-i/len)^decay·(1 ± 0.1·rand), positive diffusion on the left and
// negative on the right, and prepares it for the convolver.
func generateReverbKernel(ctx context.Context, sampleRate, decay float64, rng *rand.Rand, blockSize int) (*conv.Kernel, error) {
	length := int(sampleRate * math.Min(decay, maxReverbIRSeconds))
	if length < 1 {
		length = 1
	}

	ir := [][]float64{make([]float64, length), make([]float64, length)}
	for ch, data := range ir {
		diffusion := 1.0
		if ch == 1 {
			diffusion = -1
		}

		for i := range data {
			if i%4096 == 0 {
				if err := ctx.Err(); err != nil {
					return nil, err
				}
			}

			env := math.Pow(1-float64(i)/float64(length), decay)
			data[i] = (rng.Float64()*2 - 1) * env * (1 + diffusion*reverbDiffusion*rng.Float64())
		}
	}

	return conv.NewKernel(blockSize, ir, conv.WithNormalize(sampleRate))
}
