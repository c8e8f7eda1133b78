package effects

import (
	"math"

	"github.com/cwbudde/algo-djmix/dsp/biquad"
	"github.com/cwbudde/algo-djmix/dsp/core"
)

const (
	phaserStages        = 4
	phaserBaseHz        = 1000.0
	phaserStageSpacing  = 500.0
	phaserQ             = 0.5
	phaserFeedback      = 0.3
	phaserSweepHz       = 3000.0
	defaultPhaserRate   = 1.0
	defaultPhaserDepth  = 0.5
	maxPhaserRate       = 20.0
	phaserControlPeriod = 32
)

// Phaser sweeps four allpass stages with a shared sine LFO. The last stage
// output is fed back into the first with gain 0.3.
type Phaser struct {
	sampleRate float64

	rate  core.Param
	depth core.Param
	wet   core.Param

	phase   float64
	counter int

	stages   [2][phaserStages]biquad.Section
	feedback [2]float64

	bufL []float64
	bufR []float64
}

// NewPhaser creates a phaser with rate 1 Hz, depth 0.5 and wet level 0.
func NewPhaser(sampleRate float64) (*Phaser, error) {
	if err := validateSampleRate("phaser", sampleRate); err != nil {
		return nil, err
	}

	p := &Phaser{
		sampleRate: sampleRate,
		rate:       core.NewParam(defaultPhaserRate, wetSmoothing),
		depth:      core.NewParam(defaultPhaserDepth, wetSmoothing),
		wet:        core.NewParam(0, wetSmoothing),
	}
	p.updateStages()

	return p, nil
}

// Kind implements Unit.
func (p *Phaser) Kind() Kind { return KindPhaser }

// SetWet implements Unit.
func (p *Phaser) SetWet(w float64) { p.wet.SetTarget(core.Clamp(w, 0, 1)) }

// Wet returns the target wet level.
func (p *Phaser) Wet() float64 { return p.wet.Target() }

// SetRate glides the LFO rate toward hz, clamped to [0, 20].
func (p *Phaser) SetRate(hz float64) { p.rate.SetTarget(core.Clamp(hz, 0, maxPhaserRate)) }

// Rate returns the target LFO rate in Hz.
func (p *Phaser) Rate() float64 { return p.rate.Target() }

// SetDepth glides the sweep depth toward d, clamped to [0, 1]. Depth 1
// sweeps each stage by ±3 kHz.
func (p *Phaser) SetDepth(d float64) { p.depth.SetTarget(core.Clamp(d, 0, 1)) }

// Depth returns the target sweep depth.
func (p *Phaser) Depth() float64 { return p.depth.Target() }

// StageFrequency returns the current center frequency of stage i.
func (p *Phaser) StageFrequency(i int) float64 {
	lfo := math.Sin(2 * math.Pi * p.phase)
	f := phaserBaseHz + phaserStageSpacing*float64(i) + lfo*p.depth.Value()*phaserSweepHz

	return core.Clamp(f, 10, 0.49*p.sampleRate)
}

// Process implements Unit. The allpass network keeps running at wet level 0.
func (p *Phaser) Process(inL, inR, outL, outR []float64) {
	n := len(inL)
	inR = rightOrLeft(inL, inR)

	p.bufL = core.EnsureLen(p.bufL, n)
	p.bufR = core.EnsureLen(p.bufR, n)

	dt := 1 / p.sampleRate
	for i := range n {
		if p.counter == 0 {
			p.updateStages()
		}

		p.counter = (p.counter + 1) % phaserControlPeriod

		p.bufL[i] = p.tick(0, inL[i])
		p.bufR[i] = p.tick(1, inR[i])

		p.phase += p.rate.Advance(dt) * dt
		p.phase -= math.Floor(p.phase)
		p.depth.Advance(dt)
	}

	from := p.wet.Value()
	to := p.wet.Advance(float64(n) / p.sampleRate)
	addRamped(outL, p.bufL, from, to)
	addRamped(outR, p.bufR, from, to)
}

func (p *Phaser) tick(ch int, x float64) float64 {
	y := x + phaserFeedback*p.feedback[ch]
	for s := range p.stages[ch] {
		y = p.stages[ch][s].ProcessSample(y)
	}

	p.feedback[ch] = core.FlushDenormals(y)

	return y
}

func (p *Phaser) updateStages() {
	for s := range phaserStages {
		c := biquad.Design(biquad.Allpass, p.StageFrequency(s), phaserQ, 0, p.sampleRate)
		p.stages[0][s].Coefficients = c
		p.stages[1][s].Coefficients = c
	}
}

// Reset implements Unit.
func (p *Phaser) Reset() {
	for ch := range p.stages {
		for s := range p.stages[ch] {
			p.stages[ch][s].Reset()
		}

		p.feedback[ch] = 0
	}

	p.phase = 0
	p.counter = 0
}
