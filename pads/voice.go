package pads

import (
	"math"
	"math/rand/v2"

	"github.com/cwbudde/algo-djmix/dsp/biquad"
)

// Waveform selects the oscillator shape of a tone layer.
type Waveform int

const (
	Sine Waveform = iota
	Triangle
	Sawtooth
)

// envelopeFloor is the level every layer decays to at the end of its length.
const envelopeFloor = 0.001

// layer describes one synthesized component of a pad sound.
type layer struct {
	offset   float64 // start delay in seconds
	duration float64 // seconds

	// Tone layers sweep f0 to f1, exponentially unless linear is set.
	tone   bool
	wave   Waveform
	f0, f1 float64
	linear bool

	// Noise layers run white noise through a filter.
	filter biquad.Type
	freq   float64
}

func tone(f0, f1, duration float64, wave Waveform) layer {
	return layer{tone: true, wave: wave, f0: f0, f1: f1, duration: duration}
}

func noise(duration, freq float64, filter biquad.Type) layer {
	return layer{duration: duration, freq: freq, filter: filter}
}

// after delays the layer start by offset seconds.
func (l layer) after(offset float64) layer {
	l.offset = offset
	return l
}

// linearSweep makes a tone layer sweep its frequency linearly.
func (l layer) linearSweep() layer {
	l.linear = true
	return l
}

// peak returns the envelope start level: full scale for tones, half for
// noise.
func (l layer) peak() float64 {
	if l.tone {
		return 1
	}

	return 0.5
}

// voice is a playing layer with its oscillator, filter and envelope state.
type voice struct {
	delay  int
	age    int
	length int

	tone    bool
	wave    Waveform
	phase   float64
	step    float64 // phase increment in radians per sample
	stepMul float64 // exponential sweep factor per sample
	stepAdd float64 // linear sweep increment per sample

	filter *biquad.Section

	env    float64
	envMul float64
}

func newVoice(l layer, sampleRate float64) voice {
	length := max(int(l.duration*sampleRate), 1)
	peak := l.peak()

	v := voice{
		delay:  int(l.offset * sampleRate),
		length: length,
		tone:   l.tone,
		wave:   l.wave,
		env:    peak,
		envMul: math.Pow(envelopeFloor/peak, 1/float64(length)),
	}

	if l.tone {
		v.step = 2 * math.Pi * l.f0 / sampleRate
		end := 2 * math.Pi * l.f1 / sampleRate

		if l.linear {
			v.stepMul = 1
			v.stepAdd = (end - v.step) / float64(length)
		} else {
			v.stepMul = math.Pow(l.f1/l.f0, 1/float64(length))
		}

		return v
	}

	v.filter = biquad.NewSection(biquad.Design(l.filter, l.freq, noiseQ, 0, sampleRate))

	return v
}

// done reports whether the voice has played its full length.
func (v *voice) done() bool { return v.age >= v.length }

// next returns the next output sample and advances the voice.
func (v *voice) next(rng *rand.Rand) float64 {
	if v.delay > 0 {
		v.delay--
		return 0
	}

	var y float64
	if v.tone {
		y = waveSample(v.wave, v.phase)

		v.phase += v.step
		if v.phase > math.Pi {
			v.phase -= 2 * math.Pi
		}

		v.step = v.step*v.stepMul + v.stepAdd
	} else {
		y = v.filter.ProcessSample(rng.Float64()*2 - 1)
	}

	y *= v.env
	v.env *= v.envMul
	v.age++

	return y
}

// waveSample evaluates w at phase in (-π, π].
func waveSample(w Waveform, phase float64) float64 {
	switch w {
	case Triangle:
		return (2 / math.Pi) * math.Asin(math.Sin(phase))
	case Sawtooth:
		return phase / math.Pi
	default:
		return math.Sin(phase)
	}
}
