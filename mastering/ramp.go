package mastering

import "github.com/cwbudde/algo-vecmath"

// scaleRamped multiplies buf by a gain moving linearly from from to to.
func scaleRamped(buf []float64, from, to float64) {
	if from == to {
		if from != 1 {
			vecmath.ScaleBlock(buf, buf, from)
		}

		return
	}

	step := (to - from) / float64(len(buf))
	g := from
	for i := range buf {
		g += step
		buf[i] *= g
	}
}

// addRamped adds src scaled by a linear gain ramp into dst.
func addRamped(dst, src []float64, from, to float64) {
	n := min(len(dst), len(src))
	if from == to {
		if from == 0 {
			return
		}

		vecmath.ScaleBlock(src[:n], src[:n], from)
		vecmath.AddBlockInPlace(dst[:n], src[:n])

		return
	}

	step := (to - from) / float64(n)
	g := from
	for i := range n {
		g += step
		dst[i] += src[i] * g
	}
}
