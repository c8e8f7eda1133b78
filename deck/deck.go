package deck

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"sync"

	"github.com/cwbudde/algo-djmix/analysis"
	"github.com/cwbudde/algo-djmix/dsp/biquad"
	"github.com/cwbudde/algo-djmix/dsp/core"
	"github.com/cwbudde/algo-djmix/dsp/resample"
)

// ID names one of the two decks.
type ID string

const (
	A ID = "A"
	B ID = "B"
)

// Band selects one of the deck EQ bands.
type Band int

const (
	High Band = iota
	Mid
	Low
)

var bandNames = [...]string{High: "hi", Mid: "mid", Low: "lo"}

func (b Band) String() string {
	if b < High || b > Low {
		return fmt.Sprintf("Band(%d)", int(b))
	}

	return bandNames[b]
}

// ParseBand maps "hi", "mid" or "lo" to a Band.
func ParseBand(name string) (Band, error) {
	for i, n := range bandNames {
		if n == strings.ToLower(strings.TrimSpace(name)) {
			return Band(i), nil
		}
	}

	return 0, fmt.Errorf("deck: unknown EQ band %q", name)
}

const maxVolume = 2.0

// Analysis is everything the mixer knows about a loaded track.
type Analysis struct {
	Name            string        `json:"name"`
	DurationSeconds float64       `json:"duration"`
	SampleRate      float64       `json:"sampleRate"`
	BPM             float64       `json:"bpm"`
	TempoConfidence float64       `json:"tempoConfidence"`
	Key             string        `json:"key"`
	Mode            analysis.Mode `json:"mode"`
	CamelotCode     string        `json:"camelot"`
	WaveformPeaks   []float64     `json:"-"`
}

// Option configures a Deck.
type Option func(*config) error

type config struct {
	keys    analysis.KeyDetector
	quality resample.Quality
}

// WithKeyDetector replaces the default bin-fold key detector.
func WithKeyDetector(kd analysis.KeyDetector) Option {
	return func(cfg *config) error {
		if kd == nil {
			return fmt.Errorf("deck: key detector must not be nil")
		}

		cfg.keys = kd

		return nil
	}
}

// WithResampleQuality sets the filter profile used when a file's rate
// differs from the deck rate.
func WithResampleQuality(q resample.Quality) Option {
	return func(cfg *config) error {
		cfg.quality = q
		return nil
	}
}

// Deck is one of the mixer's two players. Its signal path is
// source → hi shelf 3.2 kHz → mid peak 1 kHz → lo shelf 320 Hz → volume.
type Deck struct {
	id         ID
	sampleRate float64
	cfg        config

	mu       sync.Mutex
	buf      *core.Buffer
	analysis Analysis
	loaded   bool
	source   *Source

	eq     [3]*biquad.Filter
	volume core.Param

	bufR []float64
}

// New creates an empty deck rendering at sampleRate.
func New(id ID, sampleRate float64, opts ...Option) (*Deck, error) {
	if err := core.ValidateSampleRate(sampleRate); err != nil {
		return nil, fmt.Errorf("deck: %w", err)
	}

	cfg := config{keys: analysis.BinFoldDetector{}, quality: resample.QualityBalanced}
	for _, opt := range opts {
		if err := opt(&cfg); err != nil {
			return nil, err
		}
	}

	d := &Deck{
		id:         id,
		sampleRate: sampleRate,
		cfg:        cfg,
		volume:     core.NewParam(1, core.DefaultSmoothing),
	}

	bands := [3]struct {
		typ  biquad.Type
		freq float64
		q    float64
	}{
		High: {typ: biquad.Highshelf, freq: 3200, q: biquad.DefaultQ},
		Mid:  {typ: biquad.Peaking, freq: 1000, q: 1},
		Low:  {typ: biquad.Lowshelf, freq: 320, q: biquad.DefaultQ},
	}

	for i, b := range bands {
		f, err := biquad.NewFilter(sampleRate, b.typ, biquad.WithFrequency(b.freq), biquad.WithQ(b.q))
		if err != nil {
			return nil, fmt.Errorf("deck: %s EQ: %w", Band(i), err)
		}

		d.eq[i] = f
	}

	return d, nil
}

// ID returns the deck id.
func (d *Deck) ID() ID { return d.id }

// SampleRate returns the deck's render rate.
func (d *Deck) SampleRate() float64 { return d.sampleRate }

// Load decodes a WAV file and loads it. Decoding failures are returned as
// *DecodeError.
func (d *Deck) Load(ctx context.Context, name string, data []byte) (Analysis, error) {
	buf, err := Decode(data)
	if err != nil {
		return Analysis{}, &DecodeError{Name: name, Err: err}
	}

	return d.LoadBuffer(ctx, name, buf)
}

// LoadBuffer converts buf to the deck rate, analyses it and commits it,
// replacing the current track. A playing deck is stopped first. Nothing
// changes when ctx ends before the commit.
func (d *Deck) LoadBuffer(ctx context.Context, name string, buf *core.Buffer) (Analysis, error) {
	if buf == nil || buf.Len() == 0 {
		return Analysis{}, &DecodeError{Name: name, Err: ErrEmptyAudio}
	}

	if err := ctx.Err(); err != nil {
		return Analysis{}, err
	}

	buf, err := resample.ConvertBuffer(buf, d.sampleRate, resample.WithQuality(d.cfg.quality))
	if err != nil {
		return Analysis{}, &DecodeError{Name: name, Err: err}
	}

	if err := ctx.Err(); err != nil {
		return Analysis{}, err
	}

	tempo := analysis.EstimateTempo(buf)
	key := d.cfg.keys.DetectKey(buf)
	peaks := analysis.WaveformPeaks(buf, analysis.WaveformPoints)

	if err := ctx.Err(); err != nil {
		return Analysis{}, err
	}

	a := Analysis{
		Name:            TrackName(name),
		DurationSeconds: buf.Duration(),
		SampleRate:      buf.SampleRate,
		BPM:             tempo.BPM,
		TempoConfidence: tempo.Confidence,
		Key:             key.Key,
		Mode:            key.Mode,
		CamelotCode:     key.CamelotCode,
		WaveformPeaks:   peaks,
	}

	d.mu.Lock()
	d.source = nil
	d.buf = buf
	d.analysis = a
	d.loaded = true
	d.mu.Unlock()

	return a, nil
}

// TrackName strips directories and the extension from a file name.
func TrackName(name string) string {
	base := filepath.Base(name)
	if base == "." || base == string(filepath.Separator) {
		return ""
	}

	return strings.TrimSuffix(base, filepath.Ext(base))
}

// IsLoaded reports whether a track has been committed.
func (d *Deck) IsLoaded() bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	return d.loaded
}

// Analysis returns the committed track's analysis.
func (d *Deck) Analysis() Analysis {
	d.mu.Lock()
	defer d.mu.Unlock()

	return d.analysis
}

// Name returns the loaded track name.
func (d *Deck) Name() string { return d.Analysis().Name }

// Duration returns the loaded track length in seconds, 0 when empty.
func (d *Deck) Duration() float64 { return d.Analysis().DurationSeconds }

// Buffer returns the committed audio. Callers must not modify it.
func (d *Deck) Buffer() *core.Buffer {
	d.mu.Lock()
	defer d.mu.Unlock()

	return d.buf
}

// Play starts a fresh source at offsetSeconds, dropping any current one.
// An empty deck stays silent.
func (d *Deck) Play(offsetSeconds float64) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if !d.loaded {
		return
	}

	d.source = NewSource(d.buf, offsetSeconds)
}

// Stop drops the current source.
func (d *Deck) Stop() {
	d.mu.Lock()
	d.source = nil
	d.mu.Unlock()
}

// Playing reports whether a source is running.
func (d *Deck) Playing() bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	return d.source != nil && !d.source.Done()
}

// Position returns the source position in seconds, 0 without a source.
func (d *Deck) Position() float64 {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.source == nil {
		return 0
	}

	return d.source.Position()
}

// SetEQ glides band b toward dB, clamped to ±40 dB.
func (d *Deck) SetEQ(b Band, dB float64) {
	if b < High || b > Low {
		return
	}

	d.mu.Lock()
	d.eq[b].SetGain(dB)
	d.mu.Unlock()
}

// EQ returns the target gain of band b in dB.
func (d *Deck) EQ(b Band) float64 {
	if b < High || b > Low {
		return 0
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	return d.eq[b].Gain()
}

// SetVolume glides the deck gain toward v, clamped to [0, 2].
func (d *Deck) SetVolume(v float64) {
	d.mu.Lock()
	d.volume.SetTarget(core.Clamp(v, 0, maxVolume))
	d.mu.Unlock()
}

// Volume returns the target deck gain.
func (d *Deck) Volume() float64 {
	d.mu.Lock()
	defer d.mu.Unlock()

	return d.volume.Target()
}

// Process renders the next block into left and right, overwriting them.
// Without a running source the output is silent but the EQ and volume
// glides still advance.
func (d *Deck) Process(left, right []float64) {
	d.mu.Lock()
	defer d.mu.Unlock()

	n := len(left)
	if right == nil {
		d.bufR = core.EnsureLen(d.bufR, n)
		right = d.bufR
	}

	if d.source != nil {
		d.source.Read(left, right)
	} else {
		core.Zero(left)
		core.Zero(right)
	}

	for _, f := range d.eq {
		f.ProcessStereo(left, right)
	}

	from := d.volume.Value()
	to := d.volume.Advance(float64(n) / d.sampleRate)
	applyRamp(left, from, to)
	applyRamp(right, from, to)
}

// Reset clears filter state and drops the source.
func (d *Deck) Reset() {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.source = nil
	for _, f := range d.eq {
		f.Reset()
	}
}

func applyRamp(buf []float64, from, to float64) {
	n := len(buf)
	if from == to {
		if from != 1 {
			for i := range buf {
				buf[i] *= from
			}
		}

		return
	}

	step := (to - from) / float64(n)
	for i := range buf {
		buf[i] *= from + step*float64(i+1)
	}
}
