package conv

import (
	"fmt"
	"math"

	algofft "github.com/MeKo-Christian/algo-fft"
)

// Loudness calibration of a normalised impulse response, matching the
// browser ConvolverNode so colorist and reverb levels line up.
const (
	gainCalibration           = 0.00125
	gainCalibrationSampleRate = 44100.0
	minPower                  = 0.000125
)

// DefaultBlockSize is the partition size used by the mixer.
const DefaultBlockSize = 512

// KernelOption configures kernel preparation.
type KernelOption func(*kernelConfig)

type kernelConfig struct {
	normalize  bool
	sampleRate float64
}

// WithNormalize scales the impulse response to a calibrated power, the way
// a ConvolverNode with normalize=true does. sampleRate is the IR's rate.
func WithNormalize(sampleRate float64) KernelOption {
	return func(cfg *kernelConfig) {
		cfg.normalize = true
		cfg.sampleRate = sampleRate
	}
}

// Kernel is an impulse response prepared for a Convolver. Per channel, the
// first partition is kept as time-domain taps so the convolver can apply it
// without latency; later partitions are stored as spectra. A Kernel is
// immutable and may be shared between convolvers.
type Kernel struct {
	blockSize  int
	length     int
	partitions int
	scale      float64
	head       [][]float64      // [channel][<= blockSize]
	spectra    [][][]complex128 // [channel][partition-1][2*blockSize]
}

// NewKernel partitions and transforms ir. Channels beyond the second are
// ignored; a mono response serves both outputs.
func NewKernel(blockSize int, ir [][]float64, opts ...KernelOption) (*Kernel, error) {
	if !isPowerOf2(blockSize) || blockSize < 16 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidBlockSize, blockSize)
	}

	if len(ir) > 2 {
		ir = ir[:2]
	}

	length := 0
	for _, ch := range ir {
		length = max(length, len(ch))
	}

	if length == 0 {
		return nil, ErrEmptyKernel
	}

	var cfg kernelConfig
	for _, opt := range opts {
		opt(&cfg)
	}

	scale := 1.0
	if cfg.normalize {
		scale = NormalizationScale(ir, cfg.sampleRate)
	}

	fftSize := 2 * blockSize

	plan, err := algofft.NewPlan64(fftSize)
	if err != nil {
		return nil, fmt.Errorf("conv: failed to create FFT plan: %w", err)
	}

	partitions := (length + blockSize - 1) / blockSize
	k := &Kernel{
		blockSize:  blockSize,
		length:     length,
		partitions: partitions,
		scale:      scale,
		head:       make([][]float64, len(ir)),
		spectra:    make([][][]complex128, len(ir)),
	}

	padded := make([]complex128, fftSize)
	for ch, data := range ir {
		head := make([]float64, min(blockSize, len(data)))
		for i := range head {
			head[i] = data[i] * scale
		}

		k.head[ch] = head
		k.spectra[ch] = make([][]complex128, partitions-1)

		for p := 1; p < partitions; p++ {
			clear(padded)

			start := p * blockSize
			end := min(start+blockSize, len(data))
			for i := start; i < end; i++ {
				padded[i-start] = complex(data[i]*scale, 0)
			}

			spec := make([]complex128, fftSize)
			if err := plan.Forward(spec, padded); err != nil {
				return nil, fmt.Errorf("conv: failed to compute kernel FFT: %w", err)
			}

			k.spectra[ch][p-1] = spec
		}
	}

	return k, nil
}

// BlockSize returns the partition size.
func (k *Kernel) BlockSize() int { return k.blockSize }

// Len returns the impulse response length in samples.
func (k *Kernel) Len() int { return k.length }

// Partitions returns the number of partitions per channel, the direct-form
// head included.
func (k *Kernel) Partitions() int { return k.partitions }

// NumChannels returns 1 for a mono and 2 for a stereo kernel.
func (k *Kernel) NumChannels() int { return len(k.head) }

// Scale returns the normalisation factor applied to the impulse response.
func (k *Kernel) Scale() float64 { return k.scale }

// channel returns the head taps and tail spectra feeding output channel ch.
func (k *Kernel) channel(ch int) ([]float64, [][]complex128) {
	if ch >= len(k.head) {
		ch = len(k.head) - 1
	}

	return k.head[ch], k.spectra[ch]
}

// NormalizationScale returns the factor that brings ir to the calibrated
// convolver loudness: 0.00125 / rms, with rms floored at 0.000125 and scaled
// for sample rates other than 44.1 kHz.
func NormalizationScale(ir [][]float64, sampleRate float64) float64 {
	var (
		sum float64
		n   int
	)

	for _, ch := range ir {
		for _, x := range ch {
			sum += x * x
		}

		n += len(ch)
	}

	power := 0.0
	if n > 0 {
		power = math.Sqrt(sum / float64(n))
	}

	if power < minPower || math.IsNaN(power) {
		power = minPower
	}

	scale := gainCalibration / power
	if sampleRate > 0 {
		scale *= gainCalibrationSampleRate / sampleRate
	}

	return scale
}
