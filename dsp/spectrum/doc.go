// Package spectrum provides the mixer's spectral analyser and the metrics
// derived from it.
//
// Analyser mirrors a browser AnalyserNode: it keeps the most recent FFTSize
// samples of a mono downmix, transforms them under a Blackman window and
// smooths the magnitudes over time. ComputeSnapshot turns one frame of
// samples and magnitudes into level and timbre metrics.
package spectrum
