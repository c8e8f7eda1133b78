// Package interp provides the fractional-sample interpolators used by the
// delay lines behind the echo effect.
//
//   - [Linear2]:  2-point linear interpolation
//   - [Hermite4]: 4-point cubic Hermite (the default)
package interp
