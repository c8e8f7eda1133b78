package worker

import (
	"errors"
	"fmt"
	"math"

	algofft "github.com/MeKo-Christian/algo-fft"
	"github.com/cwbudde/algo-vecmath"

	"github.com/cwbudde/algo-djmix/dsp/core"
	"github.com/cwbudde/algo-djmix/dsp/spectrum"
	"github.com/cwbudde/algo-djmix/dsp/window"
)

const (
	defaultSampleRate = 44100.0
	minChunkFFT       = 16
	maxChunkFFT       = 8192
	rolloffFraction   = 0.95
	silenceFloor      = 1e-10

	fingerprintWindow   = 4096
	fingerprintHop      = 2048
	fingerprintZone     = 5
	fingerprintMinMag   = 0.01
	maxFingerprintPairs = 500
)

var errEmptyChunk = errors.New("worker: empty audio chunk")

// fingerprintBands are the peak-picking bands in Hz.
var fingerprintBands = [...][2]float64{
	{0, 200},
	{200, 400},
	{400, 800},
	{800, 1600},
	{1600, 3200},
	{3200, 8000},
}

// frameSpectrum computes |X[k]|/n for the lower half of a Hann-windowed
// frame of power-of-two length n.
type frameSpectrum struct {
	plan   *algofft.Plan[complex128]
	window []float64
	frame  []complex128
	mags   []float64
}

func newFrameSpectrum(n int) (*frameSpectrum, error) {
	plan, err := algofft.NewPlan64(n)
	if err != nil {
		return nil, fmt.Errorf("worker: fft plan %d: %w", n, err)
	}

	return &frameSpectrum{
		plan:   plan,
		window: window.Generate(window.TypeHann, n),
		frame:  make([]complex128, n),
		mags:   make([]float64, n/2),
	}, nil
}

func (s *frameSpectrum) compute(x []float64) ([]float64, error) {
	for i, w := range s.window {
		s.frame[i] = complex(x[i]*w, 0)
	}

	if err := s.plan.Forward(s.frame, s.frame); err != nil {
		return nil, fmt.Errorf("worker: fft: %w", err)
	}

	spectrum.MagnitudeInto(s.mags, s.frame)
	vecmath.ScaleBlock(s.mags, s.mags, 1/float64(len(s.frame)))

	return s.mags, nil
}

// AnalyzeChunk computes level and spectral descriptors for one chunk of
// mono audio. The spectral part uses the largest power of two that fits in
// min(len, 8192) samples from the start of the chunk; chunks shorter than
// 16 samples get no spectral descriptors.
func AnalyzeChunk(samples []float64, sampleRate float64) (ChunkAnalysis, error) {
	n := len(samples)
	if n == 0 {
		return ChunkAnalysis{}, errEmptyChunk
	}

	if sampleRate <= 0 || math.IsNaN(sampleRate) || math.IsInf(sampleRate, 0) {
		sampleRate = defaultSampleRate
	}

	var sum, peak float64

	crossings := 0
	for i, x := range samples {
		sum += x * x
		peak = math.Max(peak, math.Abs(x))

		if i > 0 && (x >= 0) != (samples[i-1] >= 0) {
			crossings++
		}
	}

	rms := math.Sqrt(sum / float64(n))
	res := ChunkAnalysis{
		RMS:     rms,
		ZCR:     float64(crossings) / float64(n),
		Peak:    peak,
		DBFS:    core.RoundTo(core.LinearToDB(peak, silenceFloor), 1),
		Samples: n,
	}

	if rms > 0 {
		res.CrestFactor = core.RoundTo(peak/rms, 2)
	}

	size := floorPow2(min(n, maxChunkFFT))
	if size < minChunkFFT {
		return res, nil
	}

	fs, err := newFrameSpectrum(size)
	if err != nil {
		return ChunkAnalysis{}, err
	}

	mags, err := fs.compute(samples)
	if err != nil {
		return ChunkAnalysis{}, err
	}

	binHz := sampleRate / float64(size)

	var weighted, total float64
	for k, m := range mags {
		weighted += float64(k) * binHz * m
		total += m
	}

	if total > 0 {
		res.SpectralCentroid = math.Round(weighted / total)

		threshold := total * rolloffFraction
		cum := 0.0

		for k, m := range mags {
			cum += m
			if cum >= threshold {
				res.SpectralRolloff = math.Round(float64(k) * binHz)
				break
			}
		}
	}

	return res, nil
}

// ComputeFingerprint builds a constellation map of per-band spectral peaks
// over 4096-sample Hann windows with a 2048 hop and pairs every peak with
// the peaks of the following five windows.
func ComputeFingerprint(samples []float64, sampleRate float64) (Fingerprint, error) {
	if sampleRate <= 0 || math.IsNaN(sampleRate) || math.IsInf(sampleRate, 0) {
		sampleRate = defaultSampleRate
	}

	fp := Fingerprint{
		Hashes:   []HashPair{},
		Duration: float64(len(samples)) / sampleRate,
	}

	windows := (len(samples) - fingerprintWindow) / fingerprintHop
	if windows <= 0 {
		return fp, nil
	}

	fs, err := newFrameSpectrum(fingerprintWindow)
	if err != nil {
		return Fingerprint{}, err
	}

	binHz := sampleRate / fingerprintWindow

	var points []ConstellationPoint

	for w := range windows {
		mags, err := fs.compute(samples[w*fingerprintHop:])
		if err != nil {
			return Fingerprint{}, err
		}

		for _, band := range fingerprintBands {
			lo := int(math.Floor(band[0] / binHz))
			hi := min(int(math.Ceil(band[1]/binHz)), len(mags)-1)

			best, bestIdx := 0.0, lo
			for k := lo; k <= hi; k++ {
				if mags[k] > best {
					best, bestIdx = mags[k], k
				}
			}

			if best > fingerprintMinMag {
				points = append(points, ConstellationPoint{
					Time:      w,
					Frequency: math.Round(float64(bestIdx) * binHz),
					Magnitude: core.RoundTo(best, 3),
				})
			}
		}
	}

	fp.ConstellationPoints = len(points)

	reach := fingerprintZone * len(fingerprintBands)
	for i, anchor := range points {
		for j := i + 1; j < len(points) && j < i+reach; j++ {
			target := points[j]

			dt := target.Time - anchor.Time
			if dt <= 0 || dt > fingerprintZone {
				continue
			}

			fp.HashCount++
			if len(fp.Hashes) < maxFingerprintPairs {
				fp.Hashes = append(fp.Hashes, HashPair{
					Hash: fmt.Sprintf("%d|%d|%d", int(anchor.Frequency), int(target.Frequency), dt),
					Time: anchor.Time,
				})
			}
		}
	}

	return fp, nil
}

func floorPow2(n int) int {
	p := 1
	for p*2 <= n {
		p *= 2
	}

	return p
}
