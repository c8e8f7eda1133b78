package dither_test

import (
	"fmt"

	"github.com/cwbudde/algo-djmix/dsp/dither"
)

func ExampleQuantizer_Quantize() {
	q, err := dither.NewQuantizer(16, dither.WithType(dither.None))
	if err != nil {
		panic(err)
	}

	fmt.Println(q.Quantize(0.25), q.Quantize(-0.25), q.Quantize(1.2))
	// Output: 8192 -8192 32767
}
