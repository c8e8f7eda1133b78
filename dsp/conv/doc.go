// Package conv provides the real-time convolution engine used for the
// mastering colorist and the reverb send.
//
// Convolver implements uniformly partitioned convolution with zero latency.
// The impulse response is split into partitions of the block size. The first
// partition is applied direct-form per sample. Every later partition is
// transformed once, and a frequency-domain delay line of input spectra is
// multiplied against them one block before their output is due.
//
// Impulse responses are prepared off the audio path as an immutable Kernel
// and swapped in atomically:
//
//	k, err := conv.NewKernel(512, ir.Channels, conv.WithNormalize(ir.SampleRate))
//	if err != nil { ... }
//	c.SetKernel(k) // safe while another goroutine calls Process
//
// Direct is a plain time-domain reference used to validate the engine.
package conv
