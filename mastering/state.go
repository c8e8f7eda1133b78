package mastering

import "github.com/cwbudde/algo-djmix/dsp/biquad"

// BandCount is the number of parametric EQ bands.
const BandCount = 8

// CompressorState holds the bus compressor settings.
type CompressorState struct {
	ThresholdDB    float64 `json:"threshold"`
	KneeDB         float64 `json:"knee"`
	Ratio          float64 `json:"ratio"`
	AttackSeconds  float64 `json:"attack"`
	ReleaseSeconds float64 `json:"release"`
	MakeupGain     float64 `json:"makeupGain"`
}

// Band is one parametric EQ band. Type is fixed per position.
type Band struct {
	Type        biquad.Type `json:"type"`
	FrequencyHz float64     `json:"freq"`
	Q           float64     `json:"q"`
	GainDB      float64     `json:"gain"`
}

// ConvolverState describes the colorist.
type ConvolverState struct {
	IRLoaded bool    `json:"irLoaded"`
	IRName   string  `json:"irName,omitempty"`
	WetMix   float64 `json:"wet"`
}

// LimiterState holds the brick-wall ceiling.
type LimiterState struct {
	CeilingDB float64 `json:"ceiling"`
}

// DynamicEQState configures the resonance suppressor.
type DynamicEQState struct {
	Enabled           bool    `json:"enabled"`
	BandCount         int     `json:"bandCount"`
	ThresholdRatio    float64 `json:"threshold"`
	AttenuationFactor float64 `json:"attenuation"`
	AttackSeconds     float64 `json:"attack"`
	ReleaseSeconds    float64 `json:"release"`
}

// State is the complete, serialisable master chain configuration.
type State struct {
	SampleRate float64         `json:"sampleRate"`
	Compressor CompressorState `json:"compressor"`
	EQ         [BandCount]Band `json:"eq"`
	Convolver  ConvolverState  `json:"convolver"`
	Limiter    LimiterState    `json:"limiter"`
	DynamicEQ  DynamicEQState  `json:"dynamicEQ"`
}

// DefaultBands returns the fixed EQ layout with flat gains.
func DefaultBands() [BandCount]Band {
	const bw = biquad.DefaultQ

	return [BandCount]Band{
		{Type: biquad.Highpass, FrequencyHz: 30, Q: bw},
		{Type: biquad.Lowshelf, FrequencyHz: 80, Q: bw},
		{Type: biquad.Peaking, FrequencyHz: 250, Q: 1},
		{Type: biquad.Peaking, FrequencyHz: 800, Q: 1},
		{Type: biquad.Peaking, FrequencyHz: 2500, Q: 1},
		{Type: biquad.Peaking, FrequencyHz: 6300, Q: 1},
		{Type: biquad.Highshelf, FrequencyHz: 10000, Q: bw},
		{Type: biquad.Lowpass, FrequencyHz: 18000, Q: bw},
	}
}

// DefaultDynamicEQ returns the suppressor defaults: disabled, 16 bands,
// threshold 3, attenuation 0.5, 5 ms attack, 50 ms release.
func DefaultDynamicEQ() DynamicEQState {
	return DynamicEQState{
		BandCount:         16,
		ThresholdRatio:    3,
		AttenuationFactor: 0.5,
		AttackSeconds:     0.005,
		ReleaseSeconds:    0.05,
	}
}

// DefaultState returns the chain defaults at sampleRate.
func DefaultState(sampleRate float64) State {
	return State{
		SampleRate: sampleRate,
		Compressor: CompressorState{
			ThresholdDB:    -18,
			KneeDB:         6,
			Ratio:          3,
			AttackSeconds:  0.003,
			ReleaseSeconds: 0.15,
			MakeupGain:     1.2,
		},
		EQ:        DefaultBands(),
		Limiter:   LimiterState{CeilingDB: -1},
		DynamicEQ: DefaultDynamicEQ(),
	}
}
