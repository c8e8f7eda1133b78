package resample

import (
	"fmt"
	"math"

	"github.com/cwbudde/algo-djmix/dsp/core"
)

// ConvertBuffer returns buf at outRate with round(len·outRate/inRate)
// frames, aligned for the filter delay. A buffer already at outRate is
// returned as is.
func ConvertBuffer(buf *core.Buffer, outRate float64, opts ...Option) (*core.Buffer, error) {
	if buf == nil || buf.NumChannels() == 0 {
		return nil, core.ErrNoChannels
	}

	if !validRate(buf.SampleRate) || !validRate(outRate) {
		return nil, ErrInvalidRate
	}

	if buf.SampleRate == outRate {
		return buf, nil
	}

	frames := int(math.Round(float64(buf.Len()) * outRate / buf.SampleRate))
	chans := make([][]float64, buf.NumChannels())

	for ch := range chans {
		c, err := NewForRates(buf.SampleRate, outRate, opts...)
		if err != nil {
			return nil, fmt.Errorf("resample: channel %d: %w", ch, err)
		}

		up, down := c.Ratio()
		skip := int(math.Round(c.Delay()))
		flush := int(math.Ceil(float64(skip+1)*float64(down)/float64(up))) + c.width

		y := c.Process(buf.Channels[ch])
		y = append(y, c.Process(make([]float64, flush))...)

		out := make([]float64, frames)
		if skip < len(y) {
			copy(out, y[skip:])
		}

		chans[ch] = out
	}

	return core.BufferFrom(outRate, chans...)
}
