package mastering

import (
	"fmt"
	"math"

	"github.com/cwbudde/algo-djmix/dsp/biquad"
	"github.com/cwbudde/algo-djmix/dsp/core"
)

const (
	dynLowHz         = 100.0
	dynHighHz        = 16000.0
	dynNyquistFactor = 0.95
	dynQ             = 2.5
	dynAlpha         = 0.05
	dynBinSpread     = 2
	dynMaxCutDB      = -12.0
	dynSlope         = 3.0
	dynDisableTau    = 0.05

	maxDynamicBands = 64
)

// DynamicBand is the runtime state of one suppressor band.
type DynamicBand struct {
	CenterFrequencyHz    float64 `json:"freq"`
	RunningAverageEnergy float64 `json:"avgEnergy"`
	CurrentGainDB        float64 `json:"gain"`
}

type dynBand struct {
	DynamicBand

	gain   core.Param
	filter *biquad.Filter
}

// DynamicEQ is a bank of peaking filters that cut bands whose energy jumps
// above their own running average.
type DynamicEQ struct {
	sampleRate float64
	cfg        DynamicEQState
	bands      []dynBand
}

// NewDynamicEQ creates the bank described by cfg. The Enabled flag of cfg
// is taken as the initial state.
func NewDynamicEQ(sampleRate float64, cfg DynamicEQState) (*DynamicEQ, error) {
	if err := core.ValidateSampleRate(sampleRate); err != nil {
		return nil, fmt.Errorf("dynamic eq: %w", err)
	}

	if cfg.BandCount < 2 || cfg.BandCount > maxDynamicBands {
		return nil, fmt.Errorf("dynamic eq band count must be in [2, %d]: %d", maxDynamicBands, cfg.BandCount)
	}

	cfg = clampDynamicConfig(cfg)
	d := &DynamicEQ{sampleRate: sampleRate, cfg: cfg, bands: make([]dynBand, cfg.BandCount)}

	for i, hz := range DynamicBandFrequencies(cfg.BandCount, sampleRate) {
		f, err := biquad.NewFilter(sampleRate, biquad.Peaking, biquad.WithFrequency(hz), biquad.WithQ(dynQ))
		if err != nil {
			return nil, fmt.Errorf("dynamic eq band %d: %w", i, err)
		}

		d.bands[i] = dynBand{
			DynamicBand: DynamicBand{CenterFrequencyHz: hz},
			gain:        core.NewParam(0, cfg.ReleaseSeconds),
			filter:      f,
		}
	}

	return d, nil
}

// DynamicBandFrequencies returns n log-spaced centres from 100 Hz to 16 kHz,
// capped at 95 % of Nyquist.
func DynamicBandFrequencies(n int, sampleRate float64) []float64 {
	if n < 2 {
		return nil
	}

	out := make([]float64, n)
	for i := range out {
		hz := dynLowHz * math.Pow(dynHighHz/dynLowHz, float64(i)/float64(n-1))
		out[i] = math.Min(hz, sampleRate/2*dynNyquistFactor)
	}

	return out
}

func clampDynamicConfig(cfg DynamicEQState) DynamicEQState {
	cfg.ThresholdRatio = core.Clamp(cfg.ThresholdRatio, 1, 100)
	cfg.AttenuationFactor = core.Clamp(cfg.AttenuationFactor, 0, 1)
	cfg.AttackSeconds = core.Clamp(cfg.AttackSeconds, 0, 1)
	cfg.ReleaseSeconds = core.Clamp(cfg.ReleaseSeconds, 0, 1)

	return cfg
}

// Enabled reports whether Update adjusts the bands.
func (d *DynamicEQ) Enabled() bool { return d.cfg.Enabled }

// Config returns the current configuration.
func (d *DynamicEQ) Config() DynamicEQState { return d.cfg }

// SetEnabled turns suppression on or off. Disabling releases every band
// toward 0 dB with a 50 ms time constant.
func (d *DynamicEQ) SetEnabled(on bool) {
	d.cfg.Enabled = on
	if on {
		return
	}

	for i := range d.bands {
		b := &d.bands[i]
		b.gain.SetTimeConstant(dynDisableTau)
		b.gain.SetTarget(0)
		b.filter.GlideGain(0, dynDisableTau)
	}
}

// Configure applies new thresholds and time constants. The band count and
// the enabled flag are left alone.
func (d *DynamicEQ) Configure(cfg DynamicEQState) {
	cfg = clampDynamicConfig(cfg)
	cfg.BandCount = d.cfg.BandCount
	cfg.Enabled = d.cfg.Enabled
	d.cfg = cfg
}

// Update feeds one analysis frame of linear magnitudes, where bin k sits at
// k·sampleRate/(2·len(mags)) Hz. frameSeconds is the time since the
// previous frame and drives the attack/release smoothing. While disabled the
// frame is ignored and the gains keep releasing toward 0 dB.
func (d *DynamicEQ) Update(mags []float64, frameSeconds float64) {
	if !d.cfg.Enabled {
		for i := range d.bands {
			b := &d.bands[i]
			b.CurrentGainDB = b.gain.Advance(frameSeconds)
		}

		return
	}

	if len(mags) == 0 {
		return
	}

	bins := len(mags)
	for i := range d.bands {
		b := &d.bands[i]

		center := int(math.Round(b.CenterFrequencyHz * float64(2*bins) / d.sampleRate))
		lo := max(0, center-dynBinSpread)
		hi := min(bins-1, center+dynBinSpread)

		var energy float64
		if lo <= hi {
			for k := lo; k <= hi; k++ {
				energy += mags[k]
			}

			energy /= float64(hi - lo + 1)
		}

		b.RunningAverageEnergy = b.RunningAverageEnergy*(1-dynAlpha) + energy*dynAlpha

		ratio := 0.0
		if b.RunningAverageEnergy > 0 {
			ratio = energy / b.RunningAverageEnergy
		}

		target := 0.0
		if ratio > d.cfg.ThresholdRatio {
			excess := ratio - d.cfg.ThresholdRatio
			target = math.Max(dynMaxCutDB, -excess*dynSlope*(1-d.cfg.AttenuationFactor))
		}

		tau := d.cfg.ReleaseSeconds
		if target < b.gain.Value() {
			tau = d.cfg.AttackSeconds
		}

		b.gain.SetTimeConstant(tau)
		b.gain.SetTarget(target)
		b.CurrentGainDB = b.gain.Advance(frameSeconds)
		b.filter.SetGain(b.CurrentGainDB)
	}
}

// Bands returns a copy of the runtime band state.
func (d *DynamicEQ) Bands() []DynamicBand {
	out := make([]DynamicBand, len(d.bands))
	for i, b := range d.bands {
		out[i] = b.DynamicBand
		out[i].CurrentGainDB = b.gain.Value()
	}

	return out
}

// Len returns the number of bands.
func (d *DynamicEQ) Len() int { return len(d.bands) }

// ProcessBand filters a stereo block through band i in place.
func (d *DynamicEQ) ProcessBand(i int, left, right []float64) {
	d.bands[i].filter.ProcessStereo(left, right)
}

// Process runs the whole bank in place.
func (d *DynamicEQ) Process(left, right []float64) {
	for i := range d.bands {
		d.ProcessBand(i, left, right)
	}
}

// Reset clears filter state, running averages and gains.
func (d *DynamicEQ) Reset() {
	for i := range d.bands {
		b := &d.bands[i]
		b.filter.Reset()
		b.filter.Snap(b.CenterFrequencyHz, dynQ, 0)
		b.gain.Snap(0)
		b.RunningAverageEnergy = 0
		b.CurrentGainDB = 0
	}
}
