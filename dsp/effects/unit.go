package effects

import (
	"fmt"
	"math"
)

// Kind identifies an effect unit.
type Kind int

const (
	KindReverb Kind = iota
	KindDelay
	KindFilter
	KindDistortion
	KindPhaser
)

func (k Kind) String() string {
	switch k {
	case KindReverb:
		return "reverb"
	case KindDelay:
		return "delay"
	case KindFilter:
		return "filter"
	case KindDistortion:
		return "distortion"
	case KindPhaser:
		return "phaser"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// Unit is one effect in the chain.
type Unit interface {
	Kind() Kind

	// SetWet glides the wet level toward w, clamped to [0, 1].
	SetWet(w float64)
	Wet() float64

	// Process reads the input tap and adds the unit's output to out.
	// inR may be nil for mono input.
	Process(inL, inR, outL, outR []float64)

	Reset()
}

// wetSmoothing is the time constant for wet level changes.
const wetSmoothing = 0.02

func validateSampleRate(name string, sampleRate float64) error {
	if sampleRate <= 0 || math.IsNaN(sampleRate) || math.IsInf(sampleRate, 0) {
		return fmt.Errorf("%s sample rate must be > 0 and finite: %f", name, sampleRate)
	}

	return nil
}

func rightOrLeft(l, r []float64) []float64 {
	if r == nil {
		return l
	}

	return r
}

// addRamped adds src to dst with a gain that moves linearly from `from` to
// `to` across the block, so wet changes never step.
func addRamped(dst, src []float64, from, to float64) {
	n := min(len(dst), len(src))
	if n == 0 {
		return
	}

	if from == to {
		if from == 0 {
			return
		}

		for i := range n {
			dst[i] += src[i] * from
		}

		return
	}

	step := (to - from) / float64(n)
	g := from
	for i := range n {
		g += step
		dst[i] += src[i] * g
	}
}
