// Package pads implements the drum pad bank: eight percussion sounds
// synthesized on trigger and summed into the master bus.
//
// Each pad starts one or more layers. A tone layer is an oscillator whose
// frequency sweeps between two values; a noise layer is white noise through
// a highpass or bandpass biquad. Every layer decays exponentially from its
// start level to -60 dB over its length and is then dropped.
//
//	b, _ := pads.NewBank(48000)
//	_ = b.Trigger(pads.Kick)
//	b.Process(left, right) // adds the kick into the block
package pads
