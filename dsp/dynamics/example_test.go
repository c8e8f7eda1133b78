package dynamics_test

import (
	"fmt"

	"github.com/cwbudde/algo-djmix/dsp/dynamics"
)

func ExampleCompressor() {
	comp, err := dynamics.NewCompressor(48000,
		dynamics.WithThreshold(-18),
		dynamics.WithKnee(6),
		dynamics.WithRatio(3),
		dynamics.WithAttack(0.003),
		dynamics.WithRelease(0.15),
	)
	if err != nil {
		panic(err)
	}

	fmt.Printf("Threshold: %.1f dB\n", comp.Threshold())
	fmt.Printf("Ratio: %.1f:1\n", comp.Ratio())
	fmt.Printf("Knee: %.1f dB\n", comp.Knee())
	// Output:
	// Threshold: -18.0 dB
	// Ratio: 3.0:1
	// Knee: 6.0 dB
}

func ExampleLimiter() {
	lim, _ := dynamics.NewLimiter(44100)

	left := []float64{0.2, 2.0, -2.0, 0.2}
	right := []float64{0.2, 2.0, -2.0, 0.2}
	lim.ProcessStereo(left, right)

	fmt.Printf("ceiling %.1f dBFS, ratio %.0f:1\n", lim.Ceiling(), lim.Ratio())
	fmt.Println(left[1] < 1)
	// Output:
	// ceiling -1.0 dBFS, ratio 100:1
	// true
}
