package core

import "math"

// DefaultSmoothing is the time constant used for live parameter changes.
const DefaultSmoothing = 0.02

// Param is a control value that glides toward its target along a one-pole
// exponential curve, like a setTargetAtTime automation. Processors advance it
// once per block, so a parameter change never produces a step in the signal.
type Param struct {
	value  float64
	target float64
	tau    float64
}

// NewParam returns a settled parameter at v with time constant tau seconds.
func NewParam(v, tau float64) Param {
	return Param{value: v, target: v, tau: tau}
}

// SetTarget schedules a glide toward v.
func (p *Param) SetTarget(v float64) {
	p.target = v
}

// Snap jumps to v immediately.
func (p *Param) Snap(v float64) {
	p.value = v
	p.target = v
}

// SetTimeConstant changes the glide time constant.
func (p *Param) SetTimeConstant(tau float64) {
	p.tau = tau
}

// Advance moves the value toward the target by dt seconds and returns it.
func (p *Param) Advance(dt float64) float64 {
	if p.value == p.target {
		return p.value
	}

	if p.tau <= 0 {
		p.value = p.target
		return p.value
	}

	if dt <= 0 {
		return p.value
	}

	p.value = p.target + (p.value-p.target)*math.Exp(-dt/p.tau)
	if math.Abs(p.value-p.target) < 1e-9 {
		p.value = p.target
	}

	return p.value
}

// Value returns the current (possibly gliding) value.
func (p *Param) Value() float64 { return p.value }

// Target returns the value being glided toward.
func (p *Param) Target() float64 { return p.target }

// Settled reports whether the value has reached its target.
func (p *Param) Settled() bool { return p.value == p.target }
