package conv

import (
	"fmt"
	"sync/atomic"

	algofft "github.com/MeKo-Christian/algo-fft"
)

// Convolver is a stereo, uniformly partitioned convolver with zero latency:
// the first partition runs direct-form per sample, the remaining partitions
// run overlap-save one block ahead of when their output is due.
//
// Process is meant for a single audio goroutine. SetKernel may be called
// from any goroutine; the new kernel takes effect at the next block boundary.
// Without a kernel the convolver outputs silence.
type Convolver struct {
	blockSize int
	fftSize   int
	plan      *algofft.Plan[complex128]

	kernel  atomic.Pointer[Kernel]
	current *Kernel

	pos   int
	chans [2]convChannel

	scratch []complex128
	accum   []complex128
}

// convChannel holds the per-channel streaming state.
type convChannel struct {
	window  []float64      // previous block followed by the current block
	out     []float64      // tail contribution for the block being emitted
	fdl     [][]complex128 // frequency-domain delay line, fdl[fftHead] is newest
	fftHead int
}

// NewConvolver creates a convolver with the given partition size.
func NewConvolver(blockSize int) (*Convolver, error) {
	if !isPowerOf2(blockSize) || blockSize < 16 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidBlockSize, blockSize)
	}

	fftSize := 2 * blockSize

	plan, err := algofft.NewPlan64(fftSize)
	if err != nil {
		return nil, fmt.Errorf("conv: failed to create FFT plan: %w", err)
	}

	c := &Convolver{
		blockSize: blockSize,
		fftSize:   fftSize,
		plan:      plan,
		scratch:   make([]complex128, fftSize),
		accum:     make([]complex128, fftSize),
	}

	for i := range c.chans {
		c.chans[i].window = make([]float64, fftSize)
		c.chans[i].out = make([]float64, blockSize)
	}

	return c, nil
}

// SetKernel installs k atomically. A nil kernel mutes the convolver. The
// block size of k must match the convolver's.
func (c *Convolver) SetKernel(k *Kernel) error {
	if k != nil && k.blockSize != c.blockSize {
		return fmt.Errorf("%w: kernel block size %d, convolver %d", ErrLengthMismatch, k.blockSize, c.blockSize)
	}

	c.kernel.Store(k)

	return nil
}

// Kernel returns the most recently installed kernel.
func (c *Convolver) Kernel() *Kernel { return c.kernel.Load() }

// BlockSize returns the partition size.
func (c *Convolver) BlockSize() int { return c.blockSize }

// Latency returns the processing delay in samples, which is zero.
func (c *Convolver) Latency() int { return 0 }

// Process convolves inL/inR into outL/outR. All four slices must have the
// same length, which may be any size. inR may be nil for mono input, in
// which case it reuses inL. Output may alias input.
func (c *Convolver) Process(inL, inR, outL, outR []float64) error {
	if inR == nil {
		inR = inL
	}

	n := len(inL)
	if len(inR) != n || len(outL) != n || len(outR) != n {
		return fmt.Errorf("%w: in %d/%d, out %d/%d", ErrLengthMismatch, len(inL), len(inR), len(outL), len(outR))
	}

	left, right := &c.chans[0], &c.chans[1]
	b := c.blockSize

	for i := range n {
		if c.pos == 0 {
			c.loadKernel()
		}

		left.window[b+c.pos] = inL[i]
		right.window[b+c.pos] = inR[i]

		if k := c.current; k != nil {
			hl, _ := k.channel(0)
			hr, _ := k.channel(1)
			outL[i] = left.out[c.pos] + left.head(hl, b+c.pos)
			outR[i] = right.out[c.pos] + right.head(hr, b+c.pos)
		} else {
			outL[i] = 0
			outR[i] = 0
		}

		c.pos++
		if c.pos == b {
			c.pos = 0
			c.processBlock()
		}
	}

	return nil
}

// Reset clears all streaming state. The kernel is kept.
func (c *Convolver) Reset() {
	c.pos = 0
	for i := range c.chans {
		ch := &c.chans[i]
		clear(ch.window)
		clear(ch.out)

		for _, spec := range ch.fdl {
			clear(spec)
		}
	}
}

// loadKernel picks up a kernel installed by SetKernel.
func (c *Convolver) loadKernel() {
	k := c.kernel.Load()
	if k == c.current {
		return
	}

	c.current = k
	if k != nil {
		for i := range c.chans {
			c.chans[i].resize(max(k.Partitions()-1, 1), c.fftSize)
		}
	}
}

// processBlock prepares the tail contribution of every partition after the
// first for the next block.
func (c *Convolver) processBlock() {
	k := c.current

	for i := range c.chans {
		ch := &c.chans[i]
		if k == nil || k.Partitions() < 2 {
			clear(ch.out)
			for _, spec := range ch.fdl {
				clear(spec)
			}
		} else {
			_, tail := k.channel(i)
			c.convolveChannel(ch, tail)
		}

		// Slide: the current block becomes the previous one.
		copy(ch.window, ch.window[c.blockSize:])
	}
}

// convolveChannel multiplies the input spectrum of age j with partition
// j+1, which is the contribution due one block from now.
func (c *Convolver) convolveChannel(ch *convChannel, tail [][]complex128) {
	for i, x := range ch.window {
		c.scratch[i] = complex(x, 0)
	}

	ch.fftHead = (ch.fftHead + 1) % len(ch.fdl)
	newest := ch.fdl[ch.fftHead]
	if err := c.plan.Forward(newest, c.scratch); err != nil {
		clear(ch.out)
		return
	}

	clear(c.accum)

	p := len(ch.fdl)
	for j, h := range tail {
		x := ch.fdl[(ch.fftHead-j+p)%p]
		for i := range c.accum {
			c.accum[i] += x[i] * h[i]
		}
	}

	if err := c.plan.Inverse(c.scratch, c.accum); err != nil {
		clear(ch.out)
		return
	}

	// Overlap-save: the first half is circular wrap-around.
	for i := range ch.out {
		ch.out[i] = real(c.scratch[c.blockSize+i])
	}
}

// head applies the direct-form first partition at window index at.
func (ch *convChannel) head(taps []float64, at int) float64 {
	var y float64
	for m, h := range taps {
		y += h * ch.window[at-m]
	}

	return y
}

// resize grows or shrinks the delay line to n partitions, keeping the most
// recent input spectra so a kernel swap does not drop the signal history.
func (ch *convChannel) resize(n, fftSize int) {
	if n == len(ch.fdl) {
		return
	}

	fdl := make([][]complex128, n)
	for i := range fdl {
		fdl[i] = make([]complex128, fftSize)
	}

	// With fftHead at 0, the spectrum of age j lives at (n-j) mod n.
	old := len(ch.fdl)
	for j := range min(n, old) {
		copy(fdl[(n-j)%n], ch.fdl[(ch.fftHead-j+old)%old])
	}

	ch.fdl = fdl
	ch.fftHead = 0
}
