package deck

import "github.com/cwbudde/algo-djmix/dsp/core"

// Source plays a buffer once from an offset, like a buffer source node. A
// finished source stays finished; the transport builds a new one on every
// play.
type Source struct {
	buf  *core.Buffer
	pos  int
	done bool
}

// NewSource returns a source starting offsetSeconds into buf. Offsets are
// clamped to the buffer.
func NewSource(buf *core.Buffer, offsetSeconds float64) *Source {
	pos := 0
	if buf != nil && offsetSeconds > 0 {
		pos = min(int(offsetSeconds*buf.SampleRate), buf.Len())
	}

	return &Source{buf: buf, pos: pos, done: buf == nil || pos >= buf.Len()}
}

// Read copies the next frames into left and right and zero-fills whatever
// the buffer could not provide. It returns the number of frames read.
func (s *Source) Read(left, right []float64) int {
	n := 0
	if !s.done {
		n = min(len(left), s.buf.Len()-s.pos)
		copy(left[:n], s.buf.Channel(0)[s.pos:s.pos+n])

		if right != nil {
			copy(right[:n], s.buf.Channel(1)[s.pos:s.pos+n])
		}

		s.pos += n
		s.done = s.pos >= s.buf.Len()
	}

	core.Zero(left[n:])

	if right != nil {
		core.Zero(right[n:])
	}

	return n
}

// Done reports whether the source reached the end of its buffer.
func (s *Source) Done() bool { return s.done }

// Position returns the playback position in seconds.
func (s *Source) Position() float64 {
	if s.buf == nil {
		return 0
	}

	return float64(s.pos) / s.buf.SampleRate
}
