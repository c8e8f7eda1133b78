package effects

import (
	"fmt"
	"sync"

	"github.com/cwbudde/algo-djmix/dsp/biquad"
	"github.com/cwbudde/algo-djmix/dsp/core"
)

// ReverbState is the serialisable reverb configuration.
type ReverbState struct {
	Wet   float64 `json:"wet"`
	Decay float64 `json:"decay"`
}

// DelayState is the serialisable delay configuration.
type DelayState struct {
	Time     float64 `json:"time"`
	Feedback float64 `json:"feedback"`
	Wet      float64 `json:"wet"`
}

// FilterState is the serialisable filter insert configuration.
type FilterState struct {
	Type      biquad.Type `json:"type"`
	Frequency float64     `json:"frequency"`
	Resonance float64     `json:"resonance"`
	Wet       float64     `json:"wet"`
	Active    bool        `json:"active"`
}

// DistortionState is the serialisable distortion configuration.
type DistortionState struct {
	Drive float64 `json:"drive"`
	Mix   float64 `json:"mix"`
}

// PhaserState is the serialisable phaser configuration.
type PhaserState struct {
	Rate  float64 `json:"rate"`
	Depth float64 `json:"depth"`
	Wet   float64 `json:"wet"`
}

// State holds every unit's parameters.
type State struct {
	Reverb     ReverbState     `json:"reverb"`
	Delay      DelayState      `json:"delay"`
	Filter     FilterState     `json:"filter"`
	Distortion DistortionState `json:"distortion"`
	Phaser     PhaserState     `json:"phaser"`
}

// ChainOption mutates chain construction parameters.
type ChainOption func(*chainConfig) error

type chainConfig struct {
	reverb []ReverbOption
	delay  []DelayOption
}

// WithReverbOptions forwards options to the reverb unit.
func WithReverbOptions(opts ...ReverbOption) ChainOption {
	return func(cfg *chainConfig) error {
		cfg.reverb = append(cfg.reverb, opts...)
		return nil
	}
}

// WithDelayOptions forwards options to the delay unit.
func WithDelayOptions(opts ...DelayOption) ChainOption {
	return func(cfg *chainConfig) error {
		cfg.delay = append(cfg.delay, opts...)
		return nil
	}
}

// Chain runs the five effect units on one input tap. The filter insert
// carries the dry path; reverb, delay, distortion and phaser are sends
// summed on top. Methods are safe for concurrent use.
type Chain struct {
	mu sync.Mutex

	sampleRate float64

	reverb     *Reverb
	delay      *Delay
	filter     *Filter
	distortion *Distortion
	phaser     *Phaser

	units []Unit

	inL []float64
	inR []float64
}

// NewChain creates a chain with every send at wet level 0 and the filter
// bypassed, so it starts out transparent.
func NewChain(sampleRate float64, opts ...ChainOption) (*Chain, error) {
	var cfg chainConfig
	for _, opt := range opts {
		if err := opt(&cfg); err != nil {
			return nil, err
		}
	}

	c := &Chain{sampleRate: sampleRate}

	var err error
	if c.reverb, err = NewReverb(sampleRate, cfg.reverb...); err != nil {
		return nil, fmt.Errorf("effects: %w", err)
	}

	if c.delay, err = NewDelay(sampleRate, cfg.delay...); err != nil {
		return nil, fmt.Errorf("effects: %w", err)
	}

	if c.filter, err = NewFilter(sampleRate); err != nil {
		return nil, fmt.Errorf("effects: %w", err)
	}

	if c.distortion, err = NewDistortion(sampleRate); err != nil {
		return nil, fmt.Errorf("effects: %w", err)
	}

	if c.phaser, err = NewPhaser(sampleRate); err != nil {
		return nil, fmt.Errorf("effects: %w", err)
	}

	c.units = []Unit{c.filter, c.reverb, c.delay, c.distortion, c.phaser}

	return c, nil
}

// Unit returns the unit of kind k, or nil.
func (c *Chain) Unit(k Kind) Unit {
	for _, u := range c.units {
		if u.Kind() == k {
			return u
		}
	}

	return nil
}

// Process runs the chain in place on a stereo block. right may be nil for
// mono input.
func (c *Chain) Process(left, right []float64) {
	c.mu.Lock()
	defer c.mu.Unlock()

	n := len(left)
	c.inL = core.EnsureLen(c.inL, n)
	copy(c.inL, left)
	clear(left)

	var inR []float64
	if right != nil {
		c.inR = core.EnsureLen(c.inR, n)
		copy(c.inR, right)
		clear(right)
		inR = c.inR
	}

	outR := right
	if outR == nil {
		c.inR = core.EnsureLen(c.inR, n)
		clear(c.inR)
		outR = c.inR
	}

	for _, u := range c.units {
		u.Process(c.inL, inR, left, outR)
	}
}

// SetWet sets the wet level of unit k.
func (c *Chain) SetWet(k Kind, w float64) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if u := c.Unit(k); u != nil {
		u.SetWet(w)
	}
}

// SetReverbDecay regenerates the reverb impulse response in the background.
func (c *Chain) SetReverbDecay(seconds float64) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.reverb.SetDecay(seconds)
}

// WaitReverb blocks until a pending impulse response regeneration is done.
func (c *Chain) WaitReverb() { c.reverb.WaitIR() }

// SetDelayTime glides the delay time.
func (c *Chain) SetDelayTime(seconds float64) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.delay.SetTime(seconds)
}

// SetDelayFeedback glides the delay feedback.
func (c *Chain) SetDelayFeedback(fb float64) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.delay.SetFeedback(fb)
}

// SetFilterType switches the insert filter response.
func (c *Chain) SetFilterType(t biquad.Type) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.filter.SetType(t)
}

// SetFilterFrequency glides the insert filter cutoff.
func (c *Chain) SetFilterFrequency(hz float64) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.filter.SetFrequency(hz)
}

// SetFilterResonance glides the insert filter Q.
func (c *Chain) SetFilterResonance(q float64) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.filter.SetResonance(q)
}

// ToggleFilter switches the insert filter in or out of the dry path and
// reports whether it is now active.
func (c *Chain) ToggleFilter() bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.filter.SetBypassed(!c.filter.Bypassed())

	return !c.filter.Bypassed()
}

// SetDistortionDrive sets the distortion drive.
func (c *Chain) SetDistortionDrive(drive float64) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.distortion.SetDrive(drive)
}

// SetPhaserRate glides the phaser LFO rate.
func (c *Chain) SetPhaserRate(hz float64) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.phaser.SetRate(hz)
}

// SetPhaserDepth glides the phaser sweep depth.
func (c *Chain) SetPhaserDepth(d float64) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.phaser.SetDepth(d)
}

// State returns the target parameters of every unit.
func (c *Chain) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()

	return State{
		Reverb: ReverbState{Wet: c.reverb.Wet(), Decay: c.reverb.Decay()},
		Delay: DelayState{
			Time:     c.delay.Time(),
			Feedback: c.delay.Feedback(),
			Wet:      c.delay.Wet(),
		},
		Filter: FilterState{
			Type:      c.filter.Type(),
			Frequency: c.filter.Frequency(),
			Resonance: c.filter.Resonance(),
			Wet:       c.filter.Wet(),
			Active:    !c.filter.Bypassed(),
		},
		Distortion: DistortionState{Drive: c.distortion.Drive(), Mix: c.distortion.Wet()},
		Phaser:     PhaserState{Rate: c.phaser.Rate(), Depth: c.phaser.Depth(), Wet: c.phaser.Wet()},
	}
}

// ApplyState glides every unit toward s. The reverb response is only
// regenerated when the decay changes.
func (c *Chain) ApplyState(s State) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.reverb.SetWet(s.Reverb.Wet)
	if s.Reverb.Decay != c.reverb.Decay() {
		c.reverb.SetDecay(s.Reverb.Decay)
	}

	c.delay.SetTime(s.Delay.Time)
	c.delay.SetFeedback(s.Delay.Feedback)
	c.delay.SetWet(s.Delay.Wet)

	c.filter.SetType(s.Filter.Type)
	c.filter.SetFrequency(s.Filter.Frequency)
	c.filter.SetResonance(s.Filter.Resonance)
	c.filter.SetWet(s.Filter.Wet)
	c.filter.SetBypassed(!s.Filter.Active)

	c.distortion.SetDrive(s.Distortion.Drive)
	c.distortion.SetWet(s.Distortion.Mix)

	c.phaser.SetRate(s.Phaser.Rate)
	c.phaser.SetDepth(s.Phaser.Depth)
	c.phaser.SetWet(s.Phaser.Wet)
}

// Reset clears every unit's signal state.
func (c *Chain) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()

	for _, u := range c.units {
		u.Reset()
	}
}

// Close stops background work.
func (c *Chain) Close() { c.reverb.Close() }
