package spectrum_test

import (
	"fmt"

	"github.com/cwbudde/algo-djmix/dsp/spectrum"
)

func ExampleMagnitude() {
	bins := []complex128{1 + 0i, 0 + 1i, -1 + 0i}
	mag := spectrum.Magnitude(bins)
	fmt.Printf("%.1f %.1f %.1f\n", mag[0], mag[1], mag[2])
	// Output:
	// 1.0 1.0 1.0
}

func ExampleComputeSnapshot() {
	samples := []float64{1, -1, 1, -1}
	s := spectrum.ComputeSnapshot(samples, nil, 44100)
	fmt.Printf("rms %.1f dB, crest %.1f\n", s.RMSDB, s.CrestFactor)
	// Output:
	// rms 0.0 dB, crest 1.0
}
