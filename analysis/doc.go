// Package analysis extracts mixing metadata from decoded PCM: tempo, musical
// key with its Camelot code, harmonic compatibility between keys and the
// peak envelope used for waveform display.
//
// All functions are synchronous and read the buffer without modifying it.
package analysis
