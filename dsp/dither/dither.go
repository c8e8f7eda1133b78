package dither

import (
	"fmt"
	"strings"
)

// Type selects the dither noise distribution.
type Type int

const (
	// None rounds to the nearest code without noise.
	None Type = iota
	// Rectangular adds uniform noise of one LSB peak to peak.
	Rectangular
	// Triangular adds the sum of two uniform draws (TPDF), two LSB peak to peak.
	Triangular
)

var typeNames = [...]string{
	None:        "none",
	Rectangular: "rectangular",
	Triangular:  "triangular",
}

func (t Type) String() string {
	if t < 0 || int(t) >= len(typeNames) {
		return fmt.Sprintf("Type(%d)", int(t))
	}

	return typeNames[t]
}

// ParseType maps "none", "rpdf"/"rectangular" or "tpdf"/"triangular" to a Type.
func ParseType(name string) (Type, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "none", "off":
		return None, nil
	case "rpdf", "rectangular":
		return Rectangular, nil
	case "tpdf", "triangular":
		return Triangular, nil
	}

	return None, fmt.Errorf("dither: unknown type %q", name)
}

// Error-feedback shaping filters. Each slice weights the previous
// quantization errors, most recent first.
var (
	// FirstOrder pushes the error spectrum up by 6 dB per octave.
	FirstOrder = []float64{1}

	// FWeighted is a 9th-order filter that follows the inverse of the
	// F-weighted hearing threshold at 44.1 kHz.
	FWeighted = []float64{
		2.412, -3.370, 3.937, -4.174, 3.353,
		-2.205, 1.281, -0.569, 0.0847,
	}
)
