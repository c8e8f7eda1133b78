// Package render bounces an automix timeline to a stereo 44.1 kHz buffer and
// writes it as 16-bit PCM WAV.
//
// Every track is placed at its timeline start with a 5 s linear fade-in and a
// 5 s linear fade-out ending at its last sample. Overlapping tracks are summed
// without further gain staging.
package render
