package pads

import (
	"errors"
	"fmt"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/cwbudde/algo-djmix/dsp/biquad"
	"github.com/cwbudde/algo-djmix/dsp/core"
)

// ErrUnknownPad is returned when triggering a pad outside 1..8.
var ErrUnknownPad = errors.New("pads: unknown pad")

// ID numbers the eight pads.
type ID int

const (
	Kick ID = iota + 1
	Snare
	HiHat
	Clap
	Tom
	Ride
	FX1
	FX2
)

// Count is the number of pads.
const Count = 8

const (
	// DefaultMaxVoices caps simultaneously sounding layers.
	DefaultMaxVoices = 32

	noiseQ = 1.0

	levelSmoothing = 0.02
)

var padNames = [...]string{
	Kick:  "kick",
	Snare: "snare",
	HiHat: "hihat",
	Clap:  "clap",
	Tom:   "tom",
	Ride:  "ride",
	FX1:   "fx1",
	FX2:   "fx2",
}

func (id ID) String() string {
	if id < Kick || id > FX2 {
		return fmt.Sprintf("ID(%d)", int(id))
	}

	return padNames[id]
}

// sounds lists the layers each pad starts.
var sounds = [...][]layer{
	Kick: {tone(150, 0.01, 0.5, Sine)},
	Snare: {
		noise(0.2, 1000, biquad.Highpass),
		tone(200, 0.01, 0.1, Triangle),
	},
	HiHat: {noise(0.05, 7000, biquad.Highpass)},
	Clap: {
		noise(0.02, 2500, biquad.Bandpass),
		noise(0.02, 2500, biquad.Bandpass).after(0.01),
		noise(0.02, 2500, biquad.Bandpass).after(0.02),
	},
	Tom:  {tone(200, 50, 0.3, Sine)},
	Ride: {noise(0.4, 10000, biquad.Bandpass)},
	FX1:  {tone(4000, 100, 0.3, Sawtooth)},
	FX2:  {tone(200, 2000, 0.5, Sine).linearSweep()},
}

// Option mutates bank construction parameters.
type Option func(*config) error

type config struct {
	seed      uint64
	maxVoices int
}

// WithSeed makes the noise layers reproducible.
func WithSeed(seed uint64) Option {
	return func(cfg *config) error {
		cfg.seed = seed
		return nil
	}
}

// WithMaxVoices caps the number of sounding layers. When a trigger exceeds
// the cap the oldest layers are dropped.
func WithMaxVoices(n int) Option {
	return func(cfg *config) error {
		if n < 1 {
			return fmt.Errorf("pads: max voices must be positive: %d", n)
		}

		cfg.maxVoices = n

		return nil
	}
}

// Bank is the drum pad engine: eight synthesized percussion sounds mixed
// into the master bus. Trigger may be called from any goroutine; Process is
// meant for the render goroutine.
type Bank struct {
	sampleRate float64
	maxVoices  int

	mu     sync.Mutex
	rng    *rand.Rand
	level  core.Param
	voices []voice
}

// NewBank creates a silent bank at full level.
func NewBank(sampleRate float64, opts ...Option) (*Bank, error) {
	if err := core.ValidateSampleRate(sampleRate); err != nil {
		return nil, fmt.Errorf("pads: %w", err)
	}

	cfg := config{
		seed:      uint64(time.Now().UnixNano()),
		maxVoices: DefaultMaxVoices,
	}

	for _, opt := range opts {
		if err := opt(&cfg); err != nil {
			return nil, err
		}
	}

	return &Bank{
		sampleRate: sampleRate,
		maxVoices:  cfg.maxVoices,
		rng:        rand.New(rand.NewPCG(cfg.seed, cfg.seed>>1)),
		level:      core.NewParam(1, levelSmoothing),
		voices:     make([]voice, 0, cfg.maxVoices),
	}, nil
}

// Trigger starts every layer of pad id.
func (b *Bank) Trigger(id ID) error {
	if id < Kick || id > FX2 {
		return fmt.Errorf("%w: %d", ErrUnknownPad, int(id))
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	for _, l := range sounds[id] {
		if len(b.voices) >= b.maxVoices {
			copy(b.voices, b.voices[1:])
			b.voices = b.voices[:b.maxVoices-1]
		}

		b.voices = append(b.voices, newVoice(l, b.sampleRate))
	}

	return nil
}

// SetLevel sets the output level in [0, 1].
func (b *Bank) SetLevel(v float64) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.level.SetTarget(core.Clamp(v, 0, 1))
}

// Level returns the target output level.
func (b *Bank) Level() float64 {
	b.mu.Lock()
	defer b.mu.Unlock()

	return b.level.Target()
}

// Active returns the number of layers still sounding or waiting to start.
func (b *Bank) Active() int {
	b.mu.Lock()
	defer b.mu.Unlock()

	return len(b.voices)
}

// Process adds the sounding voices to left and right. right may be nil for
// a mono bus.
func (b *Bank) Process(left, right []float64) {
	b.mu.Lock()
	defer b.mu.Unlock()

	n := len(left)
	from := b.level.Value()
	to := b.level.Advance(float64(n) / b.sampleRate)

	if len(b.voices) == 0 || n == 0 {
		return
	}

	step := (to - from) / float64(n)
	g := from

	for i := range n {
		var y float64
		for k := range b.voices {
			if !b.voices[k].done() {
				y += b.voices[k].next(b.rng)
			}
		}

		g += step
		y *= g

		left[i] += y
		if right != nil {
			right[i] += y
		}
	}

	live := b.voices[:0]
	for _, v := range b.voices {
		if !v.done() {
			live = append(live, v)
		}
	}

	b.voices = live
}

// Reset silences every voice.
func (b *Bank) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.voices = b.voices[:0]
}
