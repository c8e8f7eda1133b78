package analysis

import (
	"fmt"
	"math"
	"sync"

	algofft "github.com/MeKo-Christian/algo-fft"

	"github.com/cwbudde/algo-djmix/dsp/core"
	"github.com/cwbudde/algo-djmix/dsp/spectrum"
	"github.com/cwbudde/algo-djmix/dsp/window"
)

const (
	keySegmentSize   = 8192
	keySegmentOffset = 0.25
	keyMinHz         = 50.0
	keyMaxHz         = 5000.0
)

// Krumhansl–Schmuckler key profiles, tonic first.
var (
	majorProfile = [12]float64{6.35, 2.23, 3.48, 2.33, 4.38, 4.09, 2.52, 5.19, 2.39, 3.66, 2.29, 2.88}
	minorProfile = [12]float64{6.33, 2.68, 3.52, 5.38, 2.60, 3.53, 2.54, 4.75, 3.98, 2.69, 3.34, 3.17}
)

// KeyResult describes a detected key.
type KeyResult struct {
	Key         string  `json:"key"`
	CamelotCode string  `json:"camelot"`
	Mode        Mode    `json:"mode"`
	PitchClass  int     `json:"pitchClass"`
	Score       float64 `json:"score"`
}

// KeyDetector estimates the musical key of a buffer.
type KeyDetector interface {
	DetectKey(buf *core.Buffer) KeyResult
}

// BinFoldDetector builds its chroma vector straight from the samples of an
// 8192-sample segment taken 25 % into the track, treating sample i as the
// energy of "bin" i at i·sr/8192 Hz. It is a cheap time-domain
// approximation; SpectralDetector runs the same search over a real
// spectrum.
type BinFoldDetector struct{}

// DetectKey implements KeyDetector.
func (BinFoldDetector) DetectKey(buf *core.Buffer) KeyResult {
	segment := keySegment(buf)
	if segment == nil {
		return matchProfiles([12]float64{})
	}

	energy := make([]float64, keySegmentSize/2)
	for i := 1; i < len(energy); i++ {
		energy[i] = segment[i] * segment[i]
	}

	return matchProfiles(foldChroma(energy, buf.SampleRate))
}

// SpectralDetector folds the power spectrum of a Hann-windowed 8192-point
// FFT into the chroma vector. It is safe for concurrent use.
type SpectralDetector struct {
	mu     sync.Mutex
	plan   *algofft.Plan[complex128]
	window []float64
	frame  []complex128
}

// NewSpectralDetector prepares the FFT plan.
func NewSpectralDetector() (*SpectralDetector, error) {
	plan, err := algofft.NewPlan64(keySegmentSize)
	if err != nil {
		return nil, fmt.Errorf("analysis: key fft plan: %w", err)
	}

	return &SpectralDetector{
		plan:   plan,
		window: window.Generate(window.TypeHann, keySegmentSize, window.WithPeriodic()),
		frame:  make([]complex128, keySegmentSize),
	}, nil
}

// DetectKey implements KeyDetector.
func (d *SpectralDetector) DetectKey(buf *core.Buffer) KeyResult {
	segment := keySegment(buf)
	if segment == nil {
		return matchProfiles([12]float64{})
	}

	if err := window.Apply(segment, d.window); err != nil {
		return matchProfiles([12]float64{})
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	for i, x := range segment {
		d.frame[i] = complex(x, 0)
	}

	if err := d.plan.Forward(d.frame, d.frame); err != nil {
		return matchProfiles([12]float64{})
	}

	return matchProfiles(foldChroma(spectrum.Power(d.frame[:keySegmentSize/2]), buf.SampleRate))
}

// keySegment copies the analysis segment of channel 0, zero-padded when the
// buffer is short. It returns nil for unusable buffers.
func keySegment(buf *core.Buffer) []float64 {
	if buf == nil || buf.NumChannels() == 0 || core.ValidateSampleRate(buf.SampleRate) != nil {
		return nil
	}

	ch := buf.Channel(0)
	start := int(math.Floor(float64(len(ch)) * keySegmentOffset))

	segment := make([]float64, keySegmentSize)
	if start < len(ch) {
		copy(segment, ch[start:])
	}

	return segment
}

// foldChroma accumulates energy[i] for bins 1..len-1 between 50 Hz and
// 5 kHz into the nearest equal-tempered pitch class, then normalises by
// the maximum.
func foldChroma(energy []float64, sampleRate float64) [12]float64 {
	var chroma [12]float64

	for bin := 1; bin < len(energy); bin++ {
		freq := float64(bin) * sampleRate / keySegmentSize
		if freq < keyMinHz || freq > keyMaxHz {
			continue
		}

		note := int(math.Round(12*math.Log2(freq/440) + 69))
		chroma[((note%12)+12)%12] += math.Abs(energy[bin])
	}

	peak := 0.0
	for _, c := range chroma {
		peak = math.Max(peak, c)
	}

	if peak > 0 {
		for i := range chroma {
			chroma[i] /= peak
		}
	}

	return chroma
}

// matchProfiles scores every rotation against the major, then the minor
// profile. The first strictly higher score wins.
func matchProfiles(chroma [12]float64) KeyResult {
	best := math.Inf(-1)
	bestPC, bestMode := 0, Major

	for shift := range 12 {
		var major, minor float64
		for i := range 12 {
			c := chroma[(i+shift)%12]
			major += c * majorProfile[i]
			minor += c * minorProfile[i]
		}

		if major > best {
			best, bestPC, bestMode = major, shift, Major
		}

		if minor > best {
			best, bestPC, bestMode = minor, shift, Minor
		}
	}

	return KeyResult{
		Key:         KeyName(bestPC, bestMode),
		CamelotCode: CamelotCode(bestPC, bestMode),
		Mode:        bestMode,
		PitchClass:  bestPC,
		Score:       best,
	}
}
