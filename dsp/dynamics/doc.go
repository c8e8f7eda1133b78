// Package dynamics provides the mastering dynamics stages.
//
// Included processors:
//   - Compressor: soft-knee compressor with log2-domain gain computation,
//     stereo-linked detection and smoothed parameters.
//   - Limiter: brick-wall limiter built on a high-ratio, hard-knee compressor.
//
// Setters clamp out-of-range values; only constructor options return errors.
package dynamics
