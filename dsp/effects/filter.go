package effects

import (
	"fmt"

	"github.com/cwbudde/algo-djmix/dsp/biquad"
	"github.com/cwbudde/algo-djmix/dsp/core"
)

const (
	defaultFilterFrequency = 1000.0
	defaultFilterQ         = 1.0
)

// Filter is a switchable biquad inserted on the dry path. While bypassed the
// dry path passes the input untouched. When active, the wet level blends
// between the unfiltered (0) and filtered (1) signal; it starts at 1.
type Filter struct {
	sampleRate float64
	filter     *biquad.Filter
	bypassed   bool
	wet        core.Param

	bufL []float64
	bufR []float64
}

// NewFilter creates a bypassed 1 kHz lowpass with Q 1.
func NewFilter(sampleRate float64) (*Filter, error) {
	if err := validateSampleRate("filter", sampleRate); err != nil {
		return nil, err
	}

	f, err := biquad.NewFilter(sampleRate, biquad.Lowpass,
		biquad.WithFrequency(defaultFilterFrequency),
		biquad.WithQ(defaultFilterQ),
		biquad.WithSmoothing(wetSmoothing),
	)
	if err != nil {
		return nil, fmt.Errorf("filter: %w", err)
	}

	return &Filter{
		sampleRate: sampleRate,
		filter:     f,
		bypassed:   true,
		wet:        core.NewParam(1, wetSmoothing),
	}, nil
}

// Kind implements Unit.
func (f *Filter) Kind() Kind { return KindFilter }

// SetWet implements Unit.
func (f *Filter) SetWet(w float64) { f.wet.SetTarget(core.Clamp(w, 0, 1)) }

// Wet returns the target filtered share.
func (f *Filter) Wet() float64 { return f.wet.Target() }

// SetType switches the filter response.
func (f *Filter) SetType(t biquad.Type) { f.filter.SetType(t) }

// Type returns the filter response.
func (f *Filter) Type() biquad.Type { return f.filter.Type() }

// SetFrequency glides the cutoff toward hz.
func (f *Filter) SetFrequency(hz float64) { f.filter.SetFrequency(hz) }

// Frequency returns the target cutoff in Hz.
func (f *Filter) Frequency() float64 { return f.filter.Frequency() }

// SetResonance glides the Q toward q.
func (f *Filter) SetResonance(q float64) { f.filter.SetQ(q) }

// Resonance returns the target Q.
func (f *Filter) Resonance() float64 { return f.filter.Q() }

// SetBypassed routes the dry path around (true) or through (false) the
// filter. Filter state is cleared when it is switched back in.
func (f *Filter) SetBypassed(bypassed bool) {
	if f.bypassed && !bypassed {
		f.filter.Reset()
	}

	f.bypassed = bypassed
}

// Bypassed reports whether the filter is out of the dry path.
func (f *Filter) Bypassed() bool { return f.bypassed }

// Process implements Unit by adding the dry path to out.
func (f *Filter) Process(inL, inR, outL, outR []float64) {
	inR = rightOrLeft(inL, inR)

	if f.bypassed {
		for i := range inL {
			outL[i] += inL[i]
			outR[i] += inR[i]
		}

		return
	}

	n := len(inL)
	f.bufL = core.EnsureLen(f.bufL, n)
	f.bufR = core.EnsureLen(f.bufR, n)
	copy(f.bufL, inL)
	copy(f.bufR, inR)
	f.filter.ProcessStereo(f.bufL, f.bufR)

	from := f.wet.Value()
	to := f.wet.Advance(float64(n) / f.sampleRate)

	step := (to - from) / float64(max(n, 1))
	w := from
	for i := range n {
		w += step
		outL[i] += inL[i] + w*(f.bufL[i]-inL[i])
		outR[i] += inR[i] + w*(f.bufR[i]-inR[i])
	}
}

// Reset implements Unit.
func (f *Filter) Reset() { f.filter.Reset() }
