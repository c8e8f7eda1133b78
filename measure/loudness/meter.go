package loudness

import (
	"fmt"
	"math"

	"github.com/cwbudde/algo-djmix/dsp/biquad"
	"github.com/cwbudde/algo-djmix/dsp/core"
)

const (
	// K-weighting pre-filter.
	shelfFreq   = 1500.0
	shelfGainDB = 4.0
	highpassHz  = 38.0

	momentarySeconds = 0.4
	shortTermSeconds = 3.0

	// Gating blocks overlap by 75%.
	blockStepSeconds = momentarySeconds / 4

	absoluteGate = -70.0
	relativeGate = -10.0

	maxChannels = 8
)

// MeterOption configures a Meter.
type MeterOption func(*meterConfig) error

type meterConfig struct {
	channels int
}

// WithChannels sets the number of channel planes the meter expects.
func WithChannels(n int) MeterOption {
	return func(cfg *meterConfig) error {
		if n < 1 || n > maxChannels {
			return fmt.Errorf("loudness channels must be in [1, %d]: %d", maxChannels, n)
		}

		cfg.channels = n

		return nil
	}
}

// Meter is a streaming BS.1770 meter over planar channel blocks. Every
// channel is weighted 1, which is correct for mono and stereo.
type Meter struct {
	sampleRate float64
	channels   int

	shelf []*biquad.Section
	hp    []*biquad.Section

	// Ring buffers of channel-summed K-weighted squares.
	mom      window
	short    window
	step     int
	sinceBlk int
	blocks   []float64

	maxMom   float64
	maxShort float64
	peaks    []float64
}

type window struct {
	sq  []float64
	pos int
	sum float64
}

func newWindow(n int) window { return window{sq: make([]float64, max(n, 1))} }

func (w *window) push(x float64) {
	w.sum += x - w.sq[w.pos]
	if w.sum < 0 {
		w.sum = 0
	}

	w.sq[w.pos] = x
	w.pos++

	if w.pos == len(w.sq) {
		w.pos = 0
	}
}

func (w *window) mean() float64 { return w.sum / float64(len(w.sq)) }

func (w *window) reset() {
	clear(w.sq)
	w.pos = 0
	w.sum = 0
}

// NewMeter creates a stereo meter unless WithChannels says otherwise.
func NewMeter(sampleRate float64, opts ...MeterOption) (*Meter, error) {
	if err := core.ValidateSampleRate(sampleRate); err != nil {
		return nil, fmt.Errorf("loudness: %w", err)
	}

	cfg := meterConfig{channels: 2}
	for _, opt := range opts {
		if err := opt(&cfg); err != nil {
			return nil, err
		}
	}

	shelf := biquad.Design(biquad.Highshelf, shelfFreq, biquad.DefaultQ, shelfGainDB, sampleRate)
	hp := biquad.Design(biquad.Highpass, highpassHz, biquad.DefaultQ, 0, sampleRate)

	m := &Meter{
		sampleRate: sampleRate,
		channels:   cfg.channels,
		shelf:      make([]*biquad.Section, cfg.channels),
		hp:         make([]*biquad.Section, cfg.channels),
		mom:        newWindow(int(math.Round(momentarySeconds * sampleRate))),
		short:      newWindow(int(math.Round(shortTermSeconds * sampleRate))),
		step:       max(int(math.Round(blockStepSeconds*sampleRate)), 1),
		peaks:      make([]float64, cfg.channels),
	}

	for ch := range cfg.channels {
		m.shelf[ch] = biquad.NewSection(shelf)
		m.hp[ch] = biquad.NewSection(hp)
	}

	m.Reset()

	return m, nil
}

// Reset clears filters, windows, gating blocks and peaks.
func (m *Meter) Reset() {
	for ch := range m.channels {
		m.shelf[ch].Reset()
		m.hp[ch].Reset()
		m.peaks[ch] = 0
	}

	m.mom.reset()
	m.short.reset()
	m.sinceBlk = 0
	m.blocks = m.blocks[:0]
	m.maxMom = 0
	m.maxShort = 0
}

// Process meters one block given as channel planes of equal length. Missing
// planes reuse the last one given; extra planes are ignored.
func (m *Meter) Process(planes ...[]float64) {
	if len(planes) == 0 {
		return
	}

	n := len(planes[0])

	for i := range n {
		var sq float64

		for ch := range m.channels {
			x := planes[min(ch, len(planes)-1)][i]

			if a := math.Abs(x); a > m.peaks[ch] {
				m.peaks[ch] = a
			}

			y := m.hp[ch].ProcessSample(m.shelf[ch].ProcessSample(x))
			sq += y * y
		}

		m.mom.push(sq)
		m.short.push(sq)

		m.sinceBlk++
		if m.sinceBlk >= m.step {
			m.sinceBlk = 0

			z := m.mom.mean()
			m.blocks = append(m.blocks, z)
			m.maxMom = max(m.maxMom, z)
			m.maxShort = max(m.maxShort, m.short.mean())
		}
	}
}

// ProcessBuffer meters every channel of buf.
func (m *Meter) ProcessBuffer(buf *core.Buffer) {
	if buf == nil || buf.NumChannels() == 0 {
		return
	}

	planes := make([][]float64, m.channels)
	for ch := range planes {
		planes[ch] = buf.Channel(ch)
	}

	m.Process(planes...)
}

// Momentary returns the loudness of the last 400 ms in LUFS.
func (m *Meter) Momentary() float64 { return toLUFS(m.mom.mean()) }

// ShortTerm returns the loudness of the last 3 s in LUFS.
func (m *Meter) ShortTerm() float64 { return toLUFS(m.short.mean()) }

// MaxMomentary returns the loudest momentary block seen since Reset.
func (m *Meter) MaxMomentary() float64 { return toLUFS(m.maxMom) }

// MaxShortTerm returns the loudest short-term value seen since Reset,
// sampled at the gating block rate.
func (m *Meter) MaxShortTerm() float64 { return toLUFS(m.maxShort) }

// Integrated returns the gated program loudness since Reset, or -Inf when
// no block passes the gates.
func (m *Meter) Integrated() float64 {
	var (
		sum   float64
		count int
	)

	for _, z := range m.blocks {
		if toLUFS(z) > absoluteGate {
			sum += z
			count++
		}
	}

	if count == 0 {
		return math.Inf(-1)
	}

	gate := toLUFS(sum/float64(count)) + relativeGate
	sum, count = 0, 0

	for _, z := range m.blocks {
		if l := toLUFS(z); l > absoluteGate && l > gate {
			sum += z
			count++
		}
	}

	if count == 0 {
		return math.Inf(-1)
	}

	return toLUFS(sum / float64(count))
}

// Peaks returns the per-channel sample peak since Reset.
func (m *Meter) Peaks() []float64 {
	return append([]float64(nil), m.peaks...)
}

// PeakDB returns the highest channel peak in dBFS.
func (m *Meter) PeakDB() float64 {
	var p float64
	for _, v := range m.peaks {
		p = max(p, v)
	}

	return core.LinearToDB(p, 1e-10)
}

func toLUFS(meanSquare float64) float64 {
	if meanSquare <= 0 {
		return -120
	}

	return -0.691 + 10*math.Log10(meanSquare)
}
