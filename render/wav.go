package render

import (
	"fmt"
	"io"
	"math"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"

	"github.com/cwbudde/algo-djmix/dsp/core"
	"github.com/cwbudde/algo-djmix/dsp/dither"
)

const (
	bitDepth     = 16
	wavFormatPCM = 1
	writeFrames  = 4096
)

// WAVOption configures WriteWAV.
type WAVOption func(*wavConfig) error

type wavConfig struct {
	enabled bool
	dither  dither.Type
	shaping []float64
	seed    uint64
}

// WithDither quantizes through a dither.Quantizer per channel instead of
// plain truncation. shaping may be nil.
func WithDither(t dither.Type, shaping []float64) WAVOption {
	return func(cfg *wavConfig) error {
		if t < dither.None || t > dither.Triangular {
			return fmt.Errorf("render dither type must be none, rectangular or triangular: %d", int(t))
		}

		cfg.enabled = true
		cfg.dither = t
		cfg.shaping = shaping

		return nil
	}
}

// WithDitherSeed fixes the dither noise sequence.
func WithDitherSeed(seed uint64) WAVOption {
	return func(cfg *wavConfig) error {
		cfg.seed = seed
		return nil
	}
}

// PCM16 converts a sample to a signed 16-bit code. Input is clamped to
// [-1, 1]; negative values scale by 32768 and positive values by 32767,
// truncating toward zero.
func PCM16(x float64) int {
	switch {
	case math.IsNaN(x):
		return 0
	case x < 0:
		return int(math.Max(x, -1) * 0x8000)
	default:
		return int(math.Min(x, 1) * 0x7FFF)
	}
}

// WriteWAV encodes buf as interleaved 16-bit PCM at the buffer's sample rate.
func WriteWAV(w io.WriteSeeker, buf *core.Buffer, opts ...WAVOption) error {
	if buf == nil || buf.NumChannels() == 0 {
		return fmt.Errorf("render: %w", core.ErrNoChannels)
	}

	if err := core.ValidateSampleRate(buf.SampleRate); err != nil {
		return fmt.Errorf("render: %w", err)
	}

	cfg := wavConfig{seed: 1}
	for _, opt := range opts {
		if err := opt(&cfg); err != nil {
			return err
		}
	}

	chans := buf.NumChannels()
	rate := int(math.Round(buf.SampleRate))

	convert := make([]func(float64) int, chans)
	for ch := range convert {
		convert[ch] = PCM16

		if cfg.enabled {
			q, err := dither.NewQuantizer(bitDepth,
				dither.WithType(cfg.dither),
				dither.WithNoiseShaping(cfg.shaping),
				dither.WithSeed(cfg.seed+uint64(ch)),
			)
			if err != nil {
				return fmt.Errorf("render: %w", err)
			}

			convert[ch] = q.Quantize
		}
	}

	enc := wav.NewEncoder(w, rate, bitDepth, chans, wavFormatPCM)
	ib := &audio.IntBuffer{
		Format:         &audio.Format{NumChannels: chans, SampleRate: rate},
		Data:           make([]int, 0, writeFrames*chans),
		SourceBitDepth: bitDepth,
	}

	for start := 0; start < buf.Len(); start += writeFrames {
		end := min(start+writeFrames, buf.Len())
		ib.Data = ib.Data[:0]

		for i := start; i < end; i++ {
			for ch := range chans {
				ib.Data = append(ib.Data, convert[ch](buf.Channels[ch][i]))
			}
		}

		if err := enc.Write(ib); err != nil {
			return fmt.Errorf("render: write wav: %w", err)
		}
	}

	if err := enc.Close(); err != nil {
		return fmt.Errorf("render: close wav: %w", err)
	}

	return nil
}
