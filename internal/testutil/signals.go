package testutil

import (
	"math"
	"math/rand"

	"github.com/cwbudde/algo-djmix/dsp/core"
)

// DeterministicSine generates a deterministic sine wave.
func DeterministicSine(freqHz, sampleRate, amplitude float64, length int) []float64 {
	out := make([]float64, length)
	step := 2 * math.Pi * freqHz / sampleRate
	for i := range out {
		out[i] = amplitude * math.Sin(step*float64(i))
	}
	return out
}

// DeterministicNoise generates white noise with a fixed seed for reproducibility.
func DeterministicNoise(seed int64, amplitude float64, length int) []float64 {
	out := make([]float64, length)
	rng := rand.New(rand.NewSource(seed))
	for i := range out {
		out[i] = (rng.Float64()*2 - 1) * amplitude
	}
	return out
}

// Impulse generates a unit impulse at the given position.
func Impulse(length, pos int) []float64 {
	out := make([]float64, length)
	if pos >= 0 && pos < length {
		out[pos] = 1
	}
	return out
}

// ClickTrack renders a metronome: one short decaying 1.5 kHz burst per beat.
func ClickTrack(bpm, sampleRate, seconds, amplitude float64) []float64 {
	n := int(seconds * sampleRate)
	out := make([]float64, n)

	clickLen := int(0.005 * sampleRate)
	decay := 0.0015 * sampleRate
	step := 2 * math.Pi * 1500 / sampleRate
	period := 60 / bpm

	for beat := 0; ; beat++ {
		start := int(math.Round(float64(beat) * period * sampleRate))
		if start >= n {
			break
		}
		for j := 0; j < clickLen && start+j < n; j++ {
			out[start+j] += amplitude * math.Exp(-float64(j)/decay) * math.Sin(step*float64(j))
		}
	}
	return out
}

// Stereo wraps left and right channels in a core.Buffer. A nil right
// channel duplicates the left one.
func Stereo(sampleRate float64, left, right []float64) *core.Buffer {
	if right == nil {
		right = append([]float64(nil), left...)
	}
	return &core.Buffer{SampleRate: sampleRate, Channels: [][]float64{left, right}}
}

// Mono wraps one channel in a core.Buffer.
func Mono(sampleRate float64, data []float64) *core.Buffer {
	return &core.Buffer{SampleRate: sampleRate, Channels: [][]float64{data}}
}
