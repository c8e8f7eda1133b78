package spectrum

import (
	"math"

	"github.com/cwbudde/algo-djmix/dsp/core"
)

const (
	levelFloor      = 1e-10
	rolloffFraction = 0.85

	// lufsOffset approximates K-weighting as a flat offset on RMS.
	lufsOffset = 0.691
)

// Snapshot holds the level and timbre metrics of one analysis frame.
// LUFSEstimateDB is a simplified estimate, not a certified loudness reading.
type Snapshot struct {
	RMS                float64 `json:"rms"`
	RMSDB              float64 `json:"rmsDb"`
	Peak               float64 `json:"peak"`
	PeakDB             float64 `json:"peakDb"`
	CrestFactor        float64 `json:"crestFactor"`
	CrestDB            float64 `json:"crestDb"`
	SpectralCentroidHz float64 `json:"spectralCentroidHz"`
	SpectralRolloffHz  float64 `json:"spectralRolloffHz"`
	SpectralFlatness   float64 `json:"spectralFlatness"`
	LUFSEstimateDB     float64 `json:"lufsEstimateDb"`
}

// ComputeSnapshot derives metrics from time-domain samples and linear
// magnitude bins. Bin i sits at i·sampleRate/(2·len(mags)) Hz. Centroid and
// rolloff weight bins by energy (magnitude squared); flatness is the ratio of
// geometric to arithmetic mean over the non-zero bins above DC.
func ComputeSnapshot(samples, mags []float64, sampleRate float64) Snapshot {
	var s Snapshot

	var sumSquares float64
	for _, x := range samples {
		sumSquares += x * x

		if ax := math.Abs(x); ax > s.Peak {
			s.Peak = ax
		}
	}

	if len(samples) > 0 {
		s.RMS = math.Sqrt(sumSquares / float64(len(samples)))
	}

	s.RMSDB = core.LinearToDB(s.RMS, levelFloor)
	s.PeakDB = core.LinearToDB(s.Peak, levelFloor)
	s.CrestFactor = s.Peak / math.Max(s.RMS, levelFloor)
	s.CrestDB = core.LinearToDB(s.CrestFactor, levelFloor)
	s.LUFSEstimateDB = s.RMSDB - lufsOffset

	bins := len(mags)
	if bins == 0 || sampleRate <= 0 {
		return s
	}

	binHz := sampleRate / float64(2*bins)

	var weighted, total float64
	for i, m := range mags {
		e := m * m
		weighted += float64(i) * binHz * e
		total += e
	}

	if total > 0 {
		s.SpectralCentroidHz = weighted / total

		threshold := total * rolloffFraction
		var cumulative float64
		for i, m := range mags {
			cumulative += m * m
			if cumulative >= threshold {
				s.SpectralRolloffHz = float64(i) * binHz
				break
			}
		}
	}

	var logSum, sum float64
	valid := 0
	for _, m := range mags[1:] {
		if m > 0 {
			logSum += math.Log(m)
			sum += m
			valid++
		}
	}

	if valid > 0 && sum > 0 {
		s.SpectralFlatness = core.Clamp(math.Exp(logSum/float64(valid))/(sum/float64(valid)), 0, 1)
	}

	return s
}
