// Package loudness measures ITU-R BS.1770 loudness of rendered mixes:
// momentary (400 ms), short-term (3 s) and gated integrated loudness in
// LUFS, plus sample peak.
package loudness
