// Package delay provides the circular buffer behind the echo effect.
package delay

import (
	"fmt"
	"math"

	"github.com/cwbudde/algo-djmix/dsp/interp"
)

// Option configures a Line.
type Option func(*Line)

// WithMode selects the fractional read interpolator.
func WithMode(m interp.Mode) Option {
	return func(l *Line) { l.mode = m }
}

// Line is a circular delay line. A delay of 1 reads the most recently
// pushed sample.
type Line struct {
	buffer   []float64
	writePos int
	mode     interp.Mode
}

// New returns a delay line of fixed size.
func New(size int, opts ...Option) (*Line, error) {
	if size < 4 {
		return nil, fmt.Errorf("delay size must be >= 4: %d", size)
	}

	l := &Line{buffer: make([]float64, size)}
	for _, opt := range opts {
		opt(l)
	}

	return l, nil
}

// Len returns the buffer size.
func (l *Line) Len() int { return len(l.buffer) }

// MaxDelay returns the longest delay Read can serve.
func (l *Line) MaxDelay() float64 { return float64(len(l.buffer) - 2) }

// Push appends one sample.
func (l *Line) Push(sample float64) {
	l.buffer[l.writePos] = sample
	l.writePos++

	if l.writePos >= len(l.buffer) {
		l.writePos = 0
	}
}

// Tap reads an integer delay in samples.
func (l *Line) Tap(delay int) float64 {
	size := len(l.buffer)
	pos := (l.writePos - delay) % size

	if pos < 0 {
		pos += size
	}

	return l.buffer[pos]
}

// Read reads a fractional delay, clamped to [1, MaxDelay].
func (l *Line) Read(delay float64) float64 {
	delay = math.Max(1, math.Min(delay, l.MaxDelay()))

	p := int(delay)
	t := delay - float64(p)

	x0 := l.Tap(p)
	x1 := l.Tap(p + 1)

	if l.mode == interp.Linear {
		return interp.Linear2(t, x0, x1)
	}

	// At the minimum delay there is no newer sample; mirror x0.
	xm1 := x0
	if p > 1 {
		xm1 = l.Tap(p - 1)
	}

	return interp.Hermite4(t, xm1, x0, x1, l.Tap(p+2))
}

// Reset clears the line.
func (l *Line) Reset() {
	clear(l.buffer)
	l.writePos = 0
}
