package mastering_test

import (
	"fmt"

	"github.com/cwbudde/algo-djmix/mastering"
)

func ExampleBuildGraph() {
	s := mastering.DefaultState(44100)
	s.Convolver.IRLoaded = true

	for _, n := range mastering.BuildGraph(s).Nodes {
		if n.Kind == mastering.NodeEQBand && n.Index > 0 {
			continue
		}

		fmt.Println(n.ID)
	}
	// Output:
	// _input
	// compressor
	// makeup
	// eq0
	// convolver
	// limiter
	// analyser
	// _output
}
