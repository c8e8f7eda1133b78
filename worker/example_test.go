package worker_test

import (
	"context"
	"fmt"

	"github.com/cwbudde/algo-djmix/worker"
)

func ExampleBridge() {
	h, err := worker.NewHandler()
	if err != nil {
		panic(err)
	}

	b, err := worker.NewBridge(worker.NewLoopback(h))
	if err != nil {
		panic(err)
	}
	defer b.Close()

	res, err := b.AnalyzeChunk(context.Background(), []float64{0.5, -0.5, 0.5, -0.5}, 44100)
	if err != nil {
		panic(err)
	}

	fmt.Println(res.Peak, res.RMS, res.ZCR, res.CrestFactor)
	// Output: 0.5 0.5 0.75 1
}
