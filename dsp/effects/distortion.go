package effects

import (
	"math"

	"github.com/cwbudde/algo-djmix/dsp/biquad"
	"github.com/cwbudde/algo-djmix/dsp/core"
)

const (
	curveLength = 44100

	distortionPostGain   = 0.5
	distortionDriveScale = 0.3
	maxDistortionDrive   = 100.0

	oversampling = 4
)

// DistortionCurve returns the shaping curve for drive: curveLength points
// over x in [-1, 1]. Drive 0 is the identity.
func DistortionCurve(drive float64) []float64 {
	curve := make([]float64, curveLength)
	deg := math.Pi / 180

	for i := range curve {
		x := float64(i)*2/curveLength - 1
		if drive == 0 {
			curve[i] = x
			continue
		}

		curve[i] = (3 + drive) * x * 20 * deg / (math.Pi + drive*math.Abs(x))
	}

	return curve
}

// shape looks x up in curve with linear interpolation. Input outside
// [-1, 1] takes the end values.
func shape(curve []float64, x float64) float64 {
	n := len(curve)
	v := (x + 1) / 2 * float64(n-1)

	switch {
	case math.IsNaN(v) || v <= 0:
		return curve[0]
	case v >= float64(n-1):
		return curve[n-1]
	}

	i := int(v)
	frac := v - float64(i)

	return curve[i] + frac*(curve[i+1]-curve[i])
}

// shaperChannel oversamples one channel around the curve lookup.
type shaperChannel struct {
	prev float64
	aa   [2]biquad.Section
}

func (s *shaperChannel) process(curve []float64, x float64) float64 {
	var y float64

	for k := 1; k <= oversampling; k++ {
		up := s.prev + (x-s.prev)*float64(k)/oversampling
		v := shape(curve, up)
		v = s.aa[0].ProcessSample(v)
		y = s.aa[1].ProcessSample(v)
	}

	s.prev = x

	return y
}

func (s *shaperChannel) reset() {
	s.prev = 0
	s.aa[0].Reset()
	s.aa[1].Reset()
}

// Distortion is a waveshaper with pre gain 1 + 0.3·drive, a fixed 0.5 post
// gain and 4x oversampling around the curve.
type Distortion struct {
	sampleRate float64
	drive      float64
	curve      []float64

	pre core.Param
	wet core.Param

	chans [2]shaperChannel
	bufL  []float64
	bufR  []float64
}

// NewDistortion creates a distortion with drive 0 and wet level 0.
func NewDistortion(sampleRate float64) (*Distortion, error) {
	if err := validateSampleRate("distortion", sampleRate); err != nil {
		return nil, err
	}

	d := &Distortion{
		sampleRate: sampleRate,
		curve:      DistortionCurve(0),
		pre:        core.NewParam(1, wetSmoothing),
		wet:        core.NewParam(0, wetSmoothing),
	}

	// Anti-alias at 0.45 of the base rate, evaluated at the oversampled rate.
	aa := biquad.Design(biquad.Lowpass, 0.45*sampleRate, biquad.DefaultQ, 0, oversampling*sampleRate)
	for i := range d.chans {
		d.chans[i].aa[0].Coefficients = aa
		d.chans[i].aa[1].Coefficients = aa
	}

	return d, nil
}

// Kind implements Unit.
func (d *Distortion) Kind() Kind { return KindDistortion }

// SetWet implements Unit.
func (d *Distortion) SetWet(w float64) { d.wet.SetTarget(core.Clamp(w, 0, 1)) }

// Wet returns the target wet level.
func (d *Distortion) Wet() float64 { return d.wet.Target() }

// SetDrive clamps drive to [0, 100], replaces the curve and glides the pre
// gain.
func (d *Distortion) SetDrive(drive float64) {
	drive = core.Clamp(drive, 0, maxDistortionDrive)
	if drive == d.drive {
		return
	}

	d.drive = drive
	d.curve = DistortionCurve(drive)
	d.pre.SetTarget(1 + drive*distortionDriveScale)
}

// Drive returns the current drive amount.
func (d *Distortion) Drive() float64 { return d.drive }

// Process implements Unit.
func (d *Distortion) Process(inL, inR, outL, outR []float64) {
	n := len(inL)
	dt := float64(n) / d.sampleRate

	from := d.wet.Value()
	to := d.wet.Advance(dt)

	if from == 0 && to == 0 {
		d.pre.Advance(dt)
		return
	}

	inR = rightOrLeft(inL, inR)
	d.bufL = core.EnsureLen(d.bufL, n)
	d.bufR = core.EnsureLen(d.bufR, n)

	g0 := d.pre.Value()
	g1 := d.pre.Advance(dt)
	step := (g1 - g0) / float64(max(n, 1))

	g := g0
	for i := range n {
		g += step
		d.bufL[i] = distortionPostGain * d.chans[0].process(d.curve, g*inL[i])
		d.bufR[i] = distortionPostGain * d.chans[1].process(d.curve, g*inR[i])
	}

	addRamped(outL, d.bufL, from, to)
	addRamped(outR, d.bufR, from, to)
}

// Reset implements Unit.
func (d *Distortion) Reset() {
	for i := range d.chans {
		d.chans[i].reset()
	}
}
