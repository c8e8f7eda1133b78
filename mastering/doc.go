// Package mastering implements the master bus of the mixer:
//
//	input → compressor → makeup → 8-band EQ → [dynamic EQ] → [colorist] → limiter → analyser → output
//
// The dynamic EQ bank is present only while enabled and the convolution
// colorist only once an impulse response is loaded. BuildGraph derives the
// node list from a State; Chain relinks its stages from that list whenever
// a topology-affecting setting changes, so toggling never leaves partial
// connections behind.
package mastering
