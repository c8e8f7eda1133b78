package render_test

import (
	"fmt"

	"github.com/cwbudde/algo-djmix/render"
)

func ExampleEnvelope() {
	for _, t := range []float64{0, 2.5, 10, 17.5, 20} {
		fmt.Println(render.Envelope(t, 20))
	}
	// Output:
	// 0
	// 0.5
	// 1
	// 0.5
	// 0
}
