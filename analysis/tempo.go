package analysis

import (
	"math"

	"github.com/cwbudde/algo-djmix/dsp/core"
)

const (
	tempoDownsample     = 4
	tempoWindowSeconds  = 0.02
	tempoMinSearchBPM   = 60.0
	tempoMaxSearchBPM   = 200.0
	tempoMinBPM         = 70.0
	tempoMaxBPM         = 180.0
	tempoFallbackBPM    = 120.0
	tempoRoundingDigits = 1
)

// TempoEstimate is the result of EstimateTempo.
type TempoEstimate struct {
	BPM float64

	// Confidence is the winning autocorrelation relative to the onset
	// energy at lag zero, in [0, 1].
	Confidence float64

	// Degenerate is set when no lag produced a positive correlation, as
	// for silence or buffers shorter than two analysis windows. BPM then
	// reflects the shortest lag searched and carries no musical meaning.
	Degenerate bool
}

// DetectBPM returns the tempo of buf in [70, 180], rounded to 0.1 BPM.
func DetectBPM(buf *core.Buffer) float64 {
	return EstimateTempo(buf).BPM
}

// EstimateTempo runs onset autocorrelation on channel 0. The channel is
// rectified and decimated by 4, cut into 20 ms windows, and the positive
// energy flux between windows is autocorrelated over lags for 60–200 BPM.
// The first lag with the strictly largest normalised correlation wins and
// the result is folded into [70, 180] by octaves.
func EstimateTempo(buf *core.Buffer) TempoEstimate {
	if buf == nil || buf.NumChannels() == 0 || core.ValidateSampleRate(buf.SampleRate) != nil {
		return TempoEstimate{BPM: tempoFallbackBPM, Degenerate: true}
	}

	sr := buf.SampleRate
	windowSize := int(math.Floor(sr / tempoDownsample * tempoWindowSeconds))
	if windowSize < 1 {
		return TempoEstimate{BPM: tempoFallbackBPM, Degenerate: true}
	}

	effectiveRate := sr / tempoDownsample / float64(windowSize)
	minLag := max(1, int(math.Floor(effectiveRate*60/tempoMaxSearchBPM)))
	maxLag := int(math.Floor(effectiveRate * 60 / tempoMinSearchBPM))

	onsets := onsetFlux(buf.Channel(0), windowSize)

	var zeroLag float64
	for _, o := range onsets {
		zeroLag += o * o
	}

	if len(onsets) > 0 {
		zeroLag /= float64(len(onsets))
	}

	bestLag := minLag
	bestCorr := 0.0

	for lag := minLag; lag <= maxLag && 2*lag <= len(onsets); lag++ {
		norm := len(onsets) - lag

		var corr float64
		for i := range norm {
			corr += onsets[i] * onsets[i+lag]
		}

		corr /= float64(norm)
		if corr > bestCorr {
			bestCorr = corr
			bestLag = lag
		}
	}

	est := TempoEstimate{
		BPM:        foldTempo(effectiveRate * 60 / float64(bestLag)),
		Degenerate: bestCorr <= 0,
	}

	if zeroLag > 0 {
		est.Confidence = core.Clamp(bestCorr/zeroLag, 0, 1)
	}

	return est
}

// onsetFlux returns max(0, E_i − E_{i−1}) for consecutive windows of the
// rectified, decimated signal. Only complete windows are used.
func onsetFlux(channel []float64, windowSize int) []float64 {
	down := make([]float64, len(channel)/tempoDownsample)
	for i := range down {
		down[i] = math.Abs(channel[i*tempoDownsample])
	}

	if len(down) < 2*windowSize {
		return nil
	}

	onsets := make([]float64, 0, len(down)/windowSize)
	for i := windowSize; i+windowSize <= len(down); i += windowSize {
		var energy, prev float64
		for j := range windowSize {
			energy += down[i+j] * down[i+j]
			prev += down[i-windowSize+j] * down[i-windowSize+j]
		}

		onsets = append(onsets, math.Max(0, energy-prev))
	}

	return onsets
}

func foldTempo(bpm float64) float64 {
	if bpm <= 0 || math.IsNaN(bpm) || math.IsInf(bpm, 0) {
		return tempoFallbackBPM
	}

	for bpm < tempoMinBPM {
		bpm *= 2
	}

	for bpm > tempoMaxBPM {
		bpm /= 2
	}

	return core.RoundTo(bpm, tempoRoundingDigits)
}
