package resample_test

import (
	"fmt"

	"github.com/cwbudde/algo-djmix/dsp/core"
	"github.com/cwbudde/algo-djmix/dsp/resample"
)

func ExampleConvertBuffer() {
	buf, _ := core.NewBuffer(48000, 2, 48000)

	out, err := resample.ConvertBuffer(buf, 44100)
	if err != nil {
		fmt.Println(err)
		return
	}

	fmt.Println(out.SampleRate, out.NumChannels(), out.Len())
	// Output: 44100 2 44100
}
