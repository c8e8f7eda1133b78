package effects

import (
	"fmt"
	"math"

	"github.com/cwbudde/algo-djmix/dsp/biquad"
	"github.com/cwbudde/algo-djmix/dsp/core"
	"github.com/cwbudde/algo-djmix/dsp/delay"
	"github.com/cwbudde/algo-djmix/dsp/interp"
)

const (
	defaultDelayTimeSeconds = 0.3
	defaultDelayFeedback    = 0.4
	maxDelayTimeSeconds     = 5.0
	minDelayTimeSeconds     = 0.0
	maxDelayFeedback        = 0.95

	// delayLoopHighpassHz keeps low end from building up in the repeats.
	delayLoopHighpassHz = 200.0
)

// DelayOption mutates delay construction parameters.
type DelayOption func(*delayConfig) error

type delayConfig struct {
	time     float64
	feedback float64
}

// WithDelayTime sets the initial delay time in seconds, in [0, 5].
func WithDelayTime(seconds float64) DelayOption {
	return func(cfg *delayConfig) error {
		if seconds < minDelayTimeSeconds || seconds > maxDelayTimeSeconds || math.IsNaN(seconds) {
			return fmt.Errorf("delay time must be in [%g, %g]: %f", minDelayTimeSeconds, maxDelayTimeSeconds, seconds)
		}

		cfg.time = seconds

		return nil
	}
}

// WithDelayFeedback sets the initial feedback amount in [0, 0.95].
func WithDelayFeedback(feedback float64) DelayOption {
	return func(cfg *delayConfig) error {
		if feedback < 0 || feedback > maxDelayFeedback || math.IsNaN(feedback) {
			return fmt.Errorf("delay feedback must be in [0, %g]: %f", maxDelayFeedback, feedback)
		}

		cfg.feedback = feedback

		return nil
	}
}

// delayLine is one channel of the feedback delay.
type delayLine struct {
	line *delay.Line
	loop biquad.Section
}

// tick reads the delayed sample and writes input plus filtered feedback.
func (l *delayLine) tick(x, delaySamples, feedback float64) float64 {
	delayed := l.line.Read(delaySamples)
	l.line.Push(core.FlushDenormals(x + feedback*l.loop.ProcessSample(delayed)))

	return delayed
}

// Delay is a stereo feedback delay with up to 5 s of delay time. Repeats
// pass through a 200 Hz highpass before being fed back. Time, feedback and
// wet level glide toward new values.
type Delay struct {
	sampleRate float64

	time     core.Param
	feedback core.Param
	wet      core.Param

	lines [2]delayLine
	bufL  []float64
	bufR  []float64
}

// NewDelay creates a delay with 0.3 s time, 0.4 feedback and wet level 0.
func NewDelay(sampleRate float64, opts ...DelayOption) (*Delay, error) {
	if err := validateSampleRate("delay", sampleRate); err != nil {
		return nil, err
	}

	cfg := delayConfig{time: defaultDelayTimeSeconds, feedback: defaultDelayFeedback}
	for _, opt := range opts {
		if err := opt(&cfg); err != nil {
			return nil, err
		}
	}

	d := &Delay{
		sampleRate: sampleRate,
		time:       core.NewParam(cfg.time, wetSmoothing),
		feedback:   core.NewParam(cfg.feedback, wetSmoothing),
		wet:        core.NewParam(0, wetSmoothing),
	}

	size := int(math.Ceil(maxDelayTimeSeconds*sampleRate)) + 4
	hp := biquad.Design(biquad.Highpass, delayLoopHighpassHz, biquad.DefaultQ, 0, sampleRate)

	for i := range d.lines {
		line, err := delay.New(size, delay.WithMode(interp.Hermite))
		if err != nil {
			return nil, fmt.Errorf("delay: %w", err)
		}

		d.lines[i].line = line
		d.lines[i].loop.Coefficients = hp
	}

	return d, nil
}

// Kind implements Unit.
func (d *Delay) Kind() Kind { return KindDelay }

// SetWet implements Unit.
func (d *Delay) SetWet(w float64) { d.wet.SetTarget(core.Clamp(w, 0, 1)) }

// Wet returns the target wet level.
func (d *Delay) Wet() float64 { return d.wet.Target() }

// SetTime glides the delay time toward seconds, clamped to [0, 5].
func (d *Delay) SetTime(seconds float64) {
	d.time.SetTarget(core.Clamp(seconds, minDelayTimeSeconds, maxDelayTimeSeconds))
}

// Time returns the target delay time in seconds.
func (d *Delay) Time() float64 { return d.time.Target() }

// CurrentDelaySamples returns the delay currently applied, in samples.
func (d *Delay) CurrentDelaySamples() float64 { return d.delaySamples() }

// SetFeedback glides the feedback toward fb, clamped to [0, 0.95].
func (d *Delay) SetFeedback(fb float64) {
	d.feedback.SetTarget(core.Clamp(fb, 0, maxDelayFeedback))
}

// Feedback returns the target feedback amount.
func (d *Delay) Feedback() float64 { return d.feedback.Target() }

// Process implements Unit. The delay lines keep running at wet level 0 so
// raising the wet level brings back the pending repeats.
func (d *Delay) Process(inL, inR, outL, outR []float64) {
	n := len(inL)
	inR = rightOrLeft(inL, inR)

	d.bufL = core.EnsureLen(d.bufL, n)
	d.bufR = core.EnsureLen(d.bufR, n)

	dt := 1 / d.sampleRate
	for i := range n {
		d.time.Advance(dt)
		d.feedback.Advance(dt)

		ds := d.delaySamples()
		fb := d.feedback.Value()

		d.bufL[i] = d.lines[0].tick(inL[i], ds, fb)
		d.bufR[i] = d.lines[1].tick(inR[i], ds, fb)
	}

	from := d.wet.Value()
	to := d.wet.Advance(float64(n) / d.sampleRate)
	addRamped(outL, d.bufL, from, to)
	addRamped(outR, d.bufR, from, to)
}

// Reset implements Unit.
func (d *Delay) Reset() {
	for i := range d.lines {
		d.lines[i].line.Reset()
		d.lines[i].loop.Reset()
	}
}

// delaySamples converts the current time to samples. A minimum of one
// sample keeps the read position behind the write position.
func (d *Delay) delaySamples() float64 {
	return math.Max(1, d.time.Value()*d.sampleRate)
}
