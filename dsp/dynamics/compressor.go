package dynamics

import (
	"fmt"
	"math"

	"github.com/cwbudde/algo-djmix/dsp/core"
)

const (
	defaultCompressorThresholdDB = -24.0
	defaultCompressorRatio       = 12.0
	defaultCompressorKneeDB      = 30.0
	defaultCompressorAttack      = 0.003
	defaultCompressorRelease     = 0.25

	minCompressorThresholdDB = -100.0
	maxCompressorThresholdDB = 0.0
	minCompressorRatio       = 1.0
	maxCompressorRatio       = 100.0
	minCompressorKneeDB      = 0.0
	maxCompressorKneeDB      = 40.0
	maxCompressorTime        = 1.0
	maxCompressorMakeup      = 4.0

	// log2Of10Div20 converts decibels to the log2 domain: log2(10) / 20.
	log2Of10Div20 = 0.166096404744
)

// CompressorMetrics holds metering information for visualization and analysis.
type CompressorMetrics struct {
	InputPeak     float64 // Maximum input level since last reset
	OutputPeak    float64 // Maximum output level since last reset
	GainReduction float64 // Minimum gain (maximum reduction) since last reset
}

// CompressorOption mutates compressor construction parameters.
type CompressorOption func(*compressorConfig) error

type compressorConfig struct {
	thresholdDB float64
	ratio       float64
	kneeDB      float64
	attack      float64
	release     float64
	makeup      float64
	smoothing   float64
	instantPeak bool
}

// The defaults are those of a browser DynamicsCompressorNode.
func defaultCompressorConfig() compressorConfig {
	return compressorConfig{
		thresholdDB: defaultCompressorThresholdDB,
		ratio:       defaultCompressorRatio,
		kneeDB:      defaultCompressorKneeDB,
		attack:      defaultCompressorAttack,
		release:     defaultCompressorRelease,
		makeup:      1,
		smoothing:   core.DefaultSmoothing,
	}
}

// WithThreshold sets the threshold in dBFS.
func WithThreshold(dB float64) CompressorOption {
	return func(cfg *compressorConfig) error {
		if dB < minCompressorThresholdDB || dB > maxCompressorThresholdDB || math.IsNaN(dB) {
			return fmt.Errorf("compressor threshold must be in [%g, %g]: %f",
				minCompressorThresholdDB, maxCompressorThresholdDB, dB)
		}

		cfg.thresholdDB = dB

		return nil
	}
}

// WithRatio sets the compression ratio.
func WithRatio(ratio float64) CompressorOption {
	return func(cfg *compressorConfig) error {
		if ratio < minCompressorRatio || ratio > maxCompressorRatio || math.IsNaN(ratio) {
			return fmt.Errorf("compressor ratio must be in [%g, %g]: %f",
				minCompressorRatio, maxCompressorRatio, ratio)
		}

		cfg.ratio = ratio

		return nil
	}
}

// WithKnee sets the soft-knee width in dB. Zero selects a hard knee.
func WithKnee(dB float64) CompressorOption {
	return func(cfg *compressorConfig) error {
		if dB < minCompressorKneeDB || dB > maxCompressorKneeDB || math.IsNaN(dB) {
			return fmt.Errorf("compressor knee must be in [%g, %g]: %f",
				minCompressorKneeDB, maxCompressorKneeDB, dB)
		}

		cfg.kneeDB = dB

		return nil
	}
}

// WithAttack sets the attack time in seconds.
func WithAttack(seconds float64) CompressorOption {
	return func(cfg *compressorConfig) error {
		if seconds < 0 || seconds > maxCompressorTime || math.IsNaN(seconds) {
			return fmt.Errorf("compressor attack must be in [0, %g]: %f", maxCompressorTime, seconds)
		}

		cfg.attack = seconds

		return nil
	}
}

// WithRelease sets the release time in seconds.
func WithRelease(seconds float64) CompressorOption {
	return func(cfg *compressorConfig) error {
		if seconds < 0 || seconds > maxCompressorTime || math.IsNaN(seconds) {
			return fmt.Errorf("compressor release must be in [0, %g]: %f", maxCompressorTime, seconds)
		}

		cfg.release = seconds

		return nil
	}
}

// WithMakeupGain sets a linear output gain applied after compression.
func WithMakeupGain(linear float64) CompressorOption {
	return func(cfg *compressorConfig) error {
		if linear < 0 || linear > maxCompressorMakeup || math.IsNaN(linear) {
			return fmt.Errorf("compressor makeup gain must be in [0, %g]: %f", maxCompressorMakeup, linear)
		}

		cfg.makeup = linear

		return nil
	}
}

// WithSmoothing sets the time constant in seconds used when threshold, knee,
// ratio or makeup change at runtime.
func WithSmoothing(tau float64) CompressorOption {
	return func(cfg *compressorConfig) error {
		if tau < 0 || math.IsNaN(tau) || math.IsInf(tau, 0) {
			return fmt.Errorf("compressor smoothing must be >= 0 and finite: %f", tau)
		}

		cfg.smoothing = tau

		return nil
	}
}

// WithInstantPeak makes the gain computer look at the larger of the envelope
// and the instantaneous level, so nothing faster than the attack time slips
// through. Limiters use this.
func WithInstantPeak() CompressorOption {
	return func(cfg *compressorConfig) error {
		cfg.instantPeak = true
		return nil
	}
}

// Compressor is a soft-knee compressor with logarithmic-domain gain
// calculation. Stereo input is detected linked: both channels receive the
// gain computed from the louder one.
//
// Threshold, knee, ratio and makeup glide toward new values at block
// boundaries; attack and release apply immediately. Not safe for concurrent
// use.
type Compressor struct {
	sampleRate float64

	threshold core.Param
	ratio     core.Param
	knee      core.Param
	makeup    core.Param

	attack      float64
	release     float64
	instantPeak bool

	// Envelope follower state
	peakLevel float64
	lastGain  float64

	// Computed coefficients
	attackCoeff      float64
	releaseCoeff     float64
	thresholdLog2    float64
	kneeWidthLog2    float64
	invKneeWidthLog2 float64
	ratioFactor      float64

	metrics CompressorMetrics
}

// NewCompressor creates a compressor. Without options it behaves like a
// browser DynamicsCompressorNode: -24 dB threshold, 30 dB knee, 12:1 ratio,
// 3 ms attack, 250 ms release.
func NewCompressor(sampleRate float64, opts ...CompressorOption) (*Compressor, error) {
	if err := core.ValidateSampleRate(sampleRate); err != nil {
		return nil, fmt.Errorf("compressor: %w", err)
	}

	cfg := defaultCompressorConfig()
	for _, opt := range opts {
		if err := opt(&cfg); err != nil {
			return nil, err
		}
	}

	c := &Compressor{
		sampleRate:  sampleRate,
		threshold:   core.NewParam(cfg.thresholdDB, cfg.smoothing),
		ratio:       core.NewParam(cfg.ratio, cfg.smoothing),
		knee:        core.NewParam(cfg.kneeDB, cfg.smoothing),
		makeup:      core.NewParam(cfg.makeup, cfg.smoothing),
		attack:      cfg.attack,
		release:     cfg.release,
		instantPeak: cfg.instantPeak,
		lastGain:    1,
	}

	c.updateCoefficients()
	c.updateTimeConstants()
	c.ResetMetrics()

	return c, nil
}

// SetThreshold glides the threshold toward dB, clamped to [-100, 0].
func (c *Compressor) SetThreshold(dB float64) {
	c.threshold.SetTarget(core.Clamp(dB, minCompressorThresholdDB, maxCompressorThresholdDB))
}

// SetRatio glides the ratio toward r, clamped to [1, 100].
func (c *Compressor) SetRatio(r float64) {
	c.ratio.SetTarget(core.Clamp(r, minCompressorRatio, maxCompressorRatio))
}

// SetKnee glides the knee width toward dB, clamped to [0, 40].
func (c *Compressor) SetKnee(dB float64) {
	c.knee.SetTarget(core.Clamp(dB, minCompressorKneeDB, maxCompressorKneeDB))
}

// SetAttack sets the attack time in seconds, clamped to [0, 1].
func (c *Compressor) SetAttack(seconds float64) {
	c.attack = core.Clamp(seconds, 0, maxCompressorTime)
	c.updateTimeConstants()
}

// SetRelease sets the release time in seconds, clamped to [0, 1].
func (c *Compressor) SetRelease(seconds float64) {
	c.release = core.Clamp(seconds, 0, maxCompressorTime)
	c.updateTimeConstants()
}

// SetMakeupGain glides the linear makeup gain toward g, clamped to [0, 4].
func (c *Compressor) SetMakeupGain(g float64) {
	c.makeup.SetTarget(core.Clamp(g, 0, maxCompressorMakeup))
}

// Threshold returns the target threshold in dB.
func (c *Compressor) Threshold() float64 { return c.threshold.Target() }

// Ratio returns the target compression ratio.
func (c *Compressor) Ratio() float64 { return c.ratio.Target() }

// Knee returns the target knee width in dB.
func (c *Compressor) Knee() float64 { return c.knee.Target() }

// Attack returns the attack time in seconds.
func (c *Compressor) Attack() float64 { return c.attack }

// Release returns the release time in seconds.
func (c *Compressor) Release() float64 { return c.release }

// MakeupGain returns the target linear makeup gain.
func (c *Compressor) MakeupGain() float64 { return c.makeup.Target() }

// SampleRate returns the sample rate in Hz.
func (c *Compressor) SampleRate() float64 { return c.sampleRate }

// Advance moves gliding parameters forward by dt seconds.
func (c *Compressor) Advance(dt float64) {
	if c.threshold.Settled() && c.ratio.Settled() && c.knee.Settled() && c.makeup.Settled() {
		return
	}

	c.threshold.Advance(dt)
	c.ratio.Advance(dt)
	c.knee.Advance(dt)
	c.makeup.Advance(dt)
	c.updateCoefficients()
}

// ProcessSample processes one mono sample without advancing parameters.
func (c *Compressor) ProcessSample(input float64) float64 {
	gain := c.detect(math.Abs(input))
	output := input * gain * c.makeup.Value()
	c.updateMetrics(math.Abs(input), math.Abs(output), gain)

	return output
}

// ProcessInPlace compresses a mono block, advancing parameters by its duration.
func (c *Compressor) ProcessInPlace(buf []float64) {
	c.Advance(float64(len(buf)) / c.sampleRate)

	for i := range buf {
		buf[i] = c.ProcessSample(buf[i])
	}
}

// ProcessStereo compresses a stereo block in place with linked detection.
// A nil right channel falls back to mono processing of left.
func (c *Compressor) ProcessStereo(left, right []float64) {
	if right == nil {
		c.ProcessInPlace(left)
		return
	}

	c.Advance(float64(len(left)) / c.sampleRate)
	makeup := c.makeup.Value()

	n := min(len(left), len(right))
	for i := range n {
		level := math.Max(math.Abs(left[i]), math.Abs(right[i]))
		gain := c.detect(level) * makeup

		left[i] *= gain
		right[i] *= gain

		c.updateMetrics(level, math.Max(math.Abs(left[i]), math.Abs(right[i])), c.lastGain)
	}
}

// ReductionDB returns the gain reduction applied to the most recent sample,
// as a non-positive dB value.
func (c *Compressor) ReductionDB() float64 {
	return core.LinearToDB(c.lastGain, 1e-10)
}

// CalculateOutputLevel computes the steady-state output level for a given
// input magnitude. This allows visualizing the compression curve.
func (c *Compressor) CalculateOutputLevel(inputMagnitude float64) float64 {
	inputMagnitude = math.Abs(inputMagnitude)
	return inputMagnitude * c.calculateGain(inputMagnitude) * c.makeup.Value()
}

// Reset clears the envelope follower and metrics.
func (c *Compressor) Reset() {
	c.peakLevel = 0
	c.lastGain = 1
	c.ResetMetrics()
}

// GetMetrics returns current metering values.
func (c *Compressor) GetMetrics() CompressorMetrics {
	return c.metrics
}

// ResetMetrics clears metering state.
func (c *Compressor) ResetMetrics() {
	c.metrics = CompressorMetrics{GainReduction: 1.0}
}

func (c *Compressor) detect(level float64) float64 {
	if level > c.peakLevel {
		c.peakLevel += (level - c.peakLevel) * c.attackCoeff
	} else {
		c.peakLevel = level + (c.peakLevel-level)*c.releaseCoeff
	}

	c.peakLevel = core.FlushDenormals(c.peakLevel)

	detected := c.peakLevel
	if c.instantPeak && level > detected {
		detected = level
	}

	c.lastGain = c.calculateGain(detected)

	return c.lastGain
}

func (c *Compressor) updateCoefficients() {
	c.thresholdLog2 = c.threshold.Value() * log2Of10Div20
	c.kneeWidthLog2 = c.knee.Value() * log2Of10Div20

	if c.kneeWidthLog2 > 0 {
		c.invKneeWidthLog2 = 1.0 / c.kneeWidthLog2
	} else {
		c.invKneeWidthLog2 = 0
	}

	c.ratioFactor = 1.0 - 1.0/c.ratio.Value()
}

// updateTimeConstants recalculates attack and release coefficients. A zero
// time means the follower jumps straight to the input level.
func (c *Compressor) updateTimeConstants() {
	if c.attack <= 0 {
		c.attackCoeff = 1
	} else {
		c.attackCoeff = 1.0 - math.Exp(-math.Ln2/(c.attack*c.sampleRate))
	}

	if c.release <= 0 {
		c.releaseCoeff = 0
	} else {
		c.releaseCoeff = math.Exp(-math.Ln2 / (c.release * c.sampleRate))
	}
}

// calculateGain computes the gain multiplier with a quadratic soft knee
// around the threshold in the log2 domain.
func (c *Compressor) calculateGain(peakLevel float64) float64 {
	if peakLevel <= 0 {
		return 1.0
	}

	overshoot := mathLog2(peakLevel) - c.thresholdLog2

	if c.kneeWidthLog2 <= 0 {
		if overshoot <= 0 {
			return 1.0
		}

		return mathPower2(-overshoot * c.ratioFactor)
	}

	halfWidth := c.kneeWidthLog2 * 0.5

	var effectiveOvershoot float64

	switch {
	case overshoot < -halfWidth:
		return 1.0
	case overshoot > halfWidth:
		effectiveOvershoot = overshoot
	default:
		// (overshoot + w/2)^2 / (2w)
		scratch := overshoot + halfWidth
		effectiveOvershoot = scratch * scratch * 0.5 * c.invKneeWidthLog2
	}

	return mathPower2(-effectiveOvershoot * c.ratioFactor)
}

func (c *Compressor) updateMetrics(inputLevel, outputLevel, gain float64) {
	if inputLevel > c.metrics.InputPeak {
		c.metrics.InputPeak = inputLevel
	}

	if outputLevel > c.metrics.OutputPeak {
		c.metrics.OutputPeak = outputLevel
	}

	if gain < c.metrics.GainReduction {
		c.metrics.GainReduction = gain
	}
}
