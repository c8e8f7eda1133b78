package biquad

import (
	"fmt"
	"math"

	"github.com/cwbudde/algo-djmix/dsp/core"
)

const (
	minFrequencyHz = 10.0
	minQ           = 0.0001
	maxQ           = 100.0
	maxGainDB      = 40.0
	maxChannels    = 8
)

// FilterOption mutates filter construction parameters.
type FilterOption func(*filterConfig) error

type filterConfig struct {
	freq      float64
	q         float64
	gainDB    float64
	channels  int
	smoothing float64
}

func defaultFilterConfig() filterConfig {
	return filterConfig{
		freq:      350,
		q:         1,
		channels:  2,
		smoothing: core.DefaultSmoothing,
	}
}

// WithFrequency sets the initial corner or center frequency in Hz.
func WithFrequency(hz float64) FilterOption {
	return func(cfg *filterConfig) error {
		if hz <= 0 || math.IsNaN(hz) || math.IsInf(hz, 0) {
			return fmt.Errorf("biquad frequency must be > 0 and finite: %f", hz)
		}

		cfg.freq = hz

		return nil
	}
}

// WithQ sets the initial quality factor.
func WithQ(q float64) FilterOption {
	return func(cfg *filterConfig) error {
		if q <= 0 || math.IsNaN(q) || math.IsInf(q, 0) {
			return fmt.Errorf("biquad Q must be > 0 and finite: %f", q)
		}

		cfg.q = q

		return nil
	}
}

// WithGain sets the initial gain in dB for shelf and peaking types.
func WithGain(dB float64) FilterOption {
	return func(cfg *filterConfig) error {
		if math.IsNaN(dB) || math.IsInf(dB, 0) {
			return fmt.Errorf("biquad gain must be finite: %f", dB)
		}

		cfg.gainDB = dB

		return nil
	}
}

// WithChannels sets how many independent channel states the filter keeps.
func WithChannels(n int) FilterOption {
	return func(cfg *filterConfig) error {
		if n < 1 || n > maxChannels {
			return fmt.Errorf("biquad channels must be in [1, %d]: %d", maxChannels, n)
		}

		cfg.channels = n

		return nil
	}
}

// WithSmoothing sets the glide time constant in seconds for parameter changes.
func WithSmoothing(tau float64) FilterOption {
	return func(cfg *filterConfig) error {
		if tau < 0 || math.IsNaN(tau) || math.IsInf(tau, 0) {
			return fmt.Errorf("biquad smoothing must be >= 0 and finite: %f", tau)
		}

		cfg.smoothing = tau

		return nil
	}
}

// Filter is a multi-channel biquad whose frequency, Q and gain glide toward
// new values. Setters clamp out-of-range input instead of failing.
type Filter struct {
	sampleRate float64
	typ        Type

	freq core.Param
	q    core.Param
	gain core.Param

	coeffs   Coefficients
	sections []Section
}

// NewFilter creates a filter of type t.
func NewFilter(sampleRate float64, t Type, opts ...FilterOption) (*Filter, error) {
	if err := core.ValidateSampleRate(sampleRate); err != nil {
		return nil, fmt.Errorf("biquad: %w", err)
	}

	if t < Lowpass || t > Allpass {
		return nil, fmt.Errorf("biquad: invalid filter type %d", int(t))
	}

	cfg := defaultFilterConfig()
	for _, opt := range opts {
		if err := opt(&cfg); err != nil {
			return nil, err
		}
	}

	f := &Filter{
		sampleRate: sampleRate,
		typ:        t,
		sections:   make([]Section, cfg.channels),
	}
	f.freq = core.NewParam(f.clampFrequency(cfg.freq), cfg.smoothing)
	f.q = core.NewParam(core.Clamp(cfg.q, minQ, maxQ), cfg.smoothing)
	f.gain = core.NewParam(core.Clamp(cfg.gainDB, -maxGainDB, maxGainDB), cfg.smoothing)
	f.redesign()

	return f, nil
}

// SetType switches the response immediately. Channel state is kept.
func (f *Filter) SetType(t Type) {
	if t < Lowpass || t > Allpass || t == f.typ {
		return
	}

	f.typ = t
	f.redesign()
}

// SetFrequency glides the frequency toward hz.
func (f *Filter) SetFrequency(hz float64) {
	f.freq.SetTarget(f.clampFrequency(hz))
}

// SetQ glides the quality factor toward q.
func (f *Filter) SetQ(q float64) {
	f.q.SetTarget(core.Clamp(q, minQ, maxQ))
}

// SetGain glides the gain toward dB.
func (f *Filter) SetGain(dB float64) {
	f.gain.SetTarget(core.Clamp(dB, -maxGainDB, maxGainDB))
}

// GlideGain glides the gain toward dB with a one-off time constant tau.
func (f *Filter) GlideGain(dB, tau float64) {
	f.gain.SetTimeConstant(tau)
	f.SetGain(dB)
}

// Snap applies frequency, Q and gain without gliding.
func (f *Filter) Snap(hz, q, gainDB float64) {
	f.freq.Snap(f.clampFrequency(hz))
	f.q.Snap(core.Clamp(q, minQ, maxQ))
	f.gain.Snap(core.Clamp(gainDB, -maxGainDB, maxGainDB))
	f.redesign()
}

// Advance moves gliding parameters forward by dt seconds and redesigns the
// coefficients when anything moved.
func (f *Filter) Advance(dt float64) {
	if f.freq.Settled() && f.q.Settled() && f.gain.Settled() {
		return
	}

	f.freq.Advance(dt)
	f.q.Advance(dt)
	f.gain.Advance(dt)
	f.redesign()
}

// ProcessSample filters one sample on channel ch.
func (f *Filter) ProcessSample(ch int, x float64) float64 {
	return f.sections[ch].ProcessSample(x)
}

// ProcessBlock filters buf in place on channel ch without advancing parameters.
func (f *Filter) ProcessBlock(ch int, buf []float64) {
	f.sections[ch].ProcessBlock(buf)
}

// ProcessStereo advances parameters by the block duration and filters both
// channels in place. A mono filter processes left only.
func (f *Filter) ProcessStereo(left, right []float64) {
	f.Advance(float64(len(left)) / f.sampleRate)
	f.sections[0].ProcessBlock(left)

	if len(f.sections) > 1 && right != nil {
		f.sections[1].ProcessBlock(right)
	}
}

// Reset clears all channel states.
func (f *Filter) Reset() {
	for i := range f.sections {
		f.sections[i].Reset()
	}
}

// Type returns the response type.
func (f *Filter) Type() Type { return f.typ }

// Frequency returns the target frequency in Hz.
func (f *Filter) Frequency() float64 { return f.freq.Target() }

// Q returns the target quality factor.
func (f *Filter) Q() float64 { return f.q.Target() }

// Gain returns the target gain in dB.
func (f *Filter) Gain() float64 { return f.gain.Target() }

// CurrentGain returns the gain in dB currently applied, mid-glide included.
func (f *Filter) CurrentGain() float64 { return f.gain.Value() }

// Coefficients returns the coefficients currently applied.
func (f *Filter) Coefficients() Coefficients { return f.coeffs }

// SampleRate returns the sample rate in Hz.
func (f *Filter) SampleRate() float64 { return f.sampleRate }

func (f *Filter) clampFrequency(hz float64) float64 {
	return core.Clamp(hz, minFrequencyHz, f.sampleRate/2)
}

func (f *Filter) redesign() {
	f.coeffs = Design(f.typ, f.freq.Value(), f.q.Value(), f.gain.Value(), f.sampleRate)
	for i := range f.sections {
		f.sections[i].Coefficients = f.coeffs
	}
}
