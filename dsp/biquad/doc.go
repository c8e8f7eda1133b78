// Package biquad provides second-order IIR sections and the RBJ cookbook
// designs behind every filter type used by the mixer: the deck EQs, the
// mastering EQ bands, the dynamic EQ bank, the filter insert, the delay
// feedback highpass and the phaser allpass stages.
//
// Sections run in Direct Form II Transposed. [Filter] wraps one coefficient
// set shared by several channels and glides frequency, Q and gain changes
// so live edits do not click.
package biquad
