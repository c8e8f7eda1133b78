package core

import (
	"errors"
	"fmt"
	"math"
)

var (
	// ErrInvalidSampleRate is returned when a sample rate is not positive and finite.
	ErrInvalidSampleRate = errors.New("core: sample rate must be positive and finite")

	// ErrNoChannels is returned when a buffer is created without channels.
	ErrNoChannels = errors.New("core: buffer needs at least one channel")
)

// Buffer is planar PCM audio: one float64 slice per channel, all of equal
// length, nominally in [-1, 1]. A Buffer handed to a deck is treated as
// read-only from then on.
type Buffer struct {
	SampleRate float64
	Channels   [][]float64
}

// NewBuffer allocates a silent buffer with the given shape.
func NewBuffer(sampleRate float64, numChannels, frames int) (*Buffer, error) {
	if err := ValidateSampleRate(sampleRate); err != nil {
		return nil, err
	}

	if numChannels < 1 {
		return nil, ErrNoChannels
	}

	if frames < 0 {
		return nil, fmt.Errorf("core: negative frame count: %d", frames)
	}

	chans := make([][]float64, numChannels)
	for i := range chans {
		chans[i] = make([]float64, frames)
	}

	return &Buffer{SampleRate: sampleRate, Channels: chans}, nil
}

// BufferFrom wraps existing channel slices. All channels must have the same
// length.
func BufferFrom(sampleRate float64, channels ...[]float64) (*Buffer, error) {
	if err := ValidateSampleRate(sampleRate); err != nil {
		return nil, err
	}

	if len(channels) == 0 {
		return nil, ErrNoChannels
	}

	n := len(channels[0])
	for i, ch := range channels[1:] {
		if len(ch) != n {
			return nil, fmt.Errorf("core: channel %d has %d frames, want %d", i+1, len(ch), n)
		}
	}

	return &Buffer{SampleRate: sampleRate, Channels: channels}, nil
}

// NumChannels returns the channel count.
func (b *Buffer) NumChannels() int {
	if b == nil {
		return 0
	}

	return len(b.Channels)
}

// Len returns the number of frames.
func (b *Buffer) Len() int {
	if b == nil || len(b.Channels) == 0 {
		return 0
	}

	return len(b.Channels[0])
}

// Duration returns the buffer length in seconds.
func (b *Buffer) Duration() float64 {
	if b == nil || b.SampleRate <= 0 {
		return 0
	}

	return float64(b.Len()) / b.SampleRate
}

// Channel returns channel i. Requests past the last channel return the last
// channel, so mono material can feed stereo consumers.
func (b *Buffer) Channel(i int) []float64 {
	if b == nil || len(b.Channels) == 0 {
		return nil
	}

	if i >= len(b.Channels) {
		i = len(b.Channels) - 1
	}

	if i < 0 {
		i = 0
	}

	return b.Channels[i]
}

// ValidateSampleRate checks that sampleRate is positive and finite.
func ValidateSampleRate(sampleRate float64) error {
	if sampleRate <= 0 || math.IsNaN(sampleRate) || math.IsInf(sampleRate, 0) {
		return fmt.Errorf("%w: %f", ErrInvalidSampleRate, sampleRate)
	}

	return nil
}

// EnsureLen returns a slice with the requested length, reusing buf capacity if possible.
func EnsureLen(buf []float64, n int) []float64 {
	if n <= 0 {
		return buf[:0]
	}

	if cap(buf) >= n {
		return buf[:n]
	}

	return make([]float64, n)
}

// Zero sets all values in buf to 0.
func Zero(buf []float64) {
	for i := range buf {
		buf[i] = 0
	}
}
