package analysis

import (
	"math"

	"github.com/cwbudde/algo-djmix/dsp/core"
)

// WaveformPoints is the number of display blocks extracted on load.
const WaveformPoints = 1000

// WaveformPeaks splits channel 0 into n equal blocks of floor(len/n)
// samples and returns the absolute peak of each. Trailing samples that do
// not fill a block are ignored; buffers shorter than n give all zeros.
func WaveformPeaks(buf *core.Buffer, n int) []float64 {
	if n <= 0 {
		return nil
	}

	peaks := make([]float64, n)
	if buf.NumChannels() == 0 {
		return peaks
	}

	ch := buf.Channel(0)
	block := len(ch) / n

	for i := range peaks {
		start := i * block
		for _, x := range ch[start : start+block] {
			peaks[i] = math.Max(peaks[i], math.Abs(x))
		}
	}

	return peaks
}
