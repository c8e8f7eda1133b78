// Package dither quantizes floating-point audio to signed integer PCM with
// optional dither noise and error-feedback noise shaping.
//
// A Quantizer is stateful (it keeps the shaping error history and its own
// random source) and must not be shared between channels.
package dither
