// Package effects provides the creative effects that run beside the
// mastering chain.
//
// All units read the same input tap. Reverb, Delay, Distortion and Phaser are
// sends: each adds its wet signal to a shared output bus. Filter is an insert
// on the dry path. The dry path always runs, so with every wet control at 0
// the chain is transparent.
//
// Units are not safe for concurrent use on their own; Chain serialises
// control changes against Process.
package effects
