package loudness_test

import (
	"fmt"

	"github.com/cwbudde/algo-djmix/internal/testutil"
	"github.com/cwbudde/algo-djmix/measure/loudness"
)

func ExampleMeasure() {
	// 4 s of a -6 dBFS 1 kHz tone in mono.
	sig := testutil.DeterministicSine(1000, 48000, 0.5, 4*48000)

	r, err := loudness.Measure(testutil.Mono(48000, sig))
	if err != nil {
		panic(err)
	}

	fmt.Printf("integrated %.0f LUFS, peak %.0f dBFS\n", r.Integrated, r.PeakDB)
	// Output:
	// integrated -9 LUFS, peak -6 dBFS
}
