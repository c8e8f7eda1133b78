//go:build fastmath

package dynamics

import (
	"math"

	"github.com/meko-christian/algo-approx"
)

// mathLog2 computes log2(x) as ln(x) / ln(2) with the fast approximation.
func mathLog2(x float64) float64 {
	return approx.FastLog(x) / math.Ln2
}

// mathPower2 computes 2^x as e^(x*ln(2)) with the fast approximation.
func mathPower2(x float64) float64 {
	return approx.FastExp(x * math.Ln2)
}
