package effects_test

import (
	"fmt"

	"github.com/cwbudde/algo-djmix/dsp/effects"
)

func ExampleChain() {
	chain, err := effects.NewChain(44100)
	if err != nil {
		panic(err)
	}
	defer chain.Close()

	chain.SetWet(effects.KindDelay, 0.3)
	chain.SetDelayTime(0.25)

	left := make([]float64, 512)
	right := make([]float64, 512)
	chain.Process(left, right)

	s := chain.State()
	fmt.Printf("delay %.2fs wet %.1f\n", s.Delay.Time, s.Delay.Wet)
	// Output: delay 0.25s wet 0.3
}
