package core

import "math"

// MinDB is the floor used when a level of zero has to be shown in decibels.
const MinDB = -200.0

// Clamp limits value to the inclusive range [min, max]. NaN maps to min.
func Clamp(value, min, max float64) float64 {
	if min > max {
		min, max = max, min
	}

	if value < min || math.IsNaN(value) {
		return min
	}

	if value > max {
		return max
	}

	return value
}

// DBToLinear converts dB to linear amplitude (20*log10 convention).
func DBToLinear(db float64) float64 {
	return math.Pow(10, db/20)
}

// LinearToDB converts linear amplitude to dB, flooring the input at floor
// so silent signals give a finite value.
func LinearToDB(linear, floor float64) float64 {
	return 20 * math.Log10(math.Max(math.Abs(linear), floor))
}

// FlushDenormals converts tiny values in feedback paths to exact zero.
func FlushDenormals(x float64) float64 {
	const epsilon = 1e-30
	if x > -epsilon && x < epsilon {
		return 0
	}

	return x
}

// RoundTo rounds x to the given number of decimal places.
func RoundTo(x float64, decimals int) float64 {
	p := math.Pow(10, float64(decimals))
	return math.Round(x*p) / p
}
