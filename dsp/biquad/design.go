package biquad

import (
	"fmt"
	"math"
	"strings"
)

// Type selects a filter response. The set matches the Web Audio
// BiquadFilterNode types the mixer exposes.
type Type int

const (
	Lowpass Type = iota
	Highpass
	Bandpass
	Lowshelf
	Highshelf
	Peaking
	Notch
	Allpass
)

// DefaultQ is the Butterworth quality factor.
const DefaultQ = 1 / math.Sqrt2

var typeNames = [...]string{
	Lowpass:   "lowpass",
	Highpass:  "highpass",
	Bandpass:  "bandpass",
	Lowshelf:  "lowshelf",
	Highshelf: "highshelf",
	Peaking:   "peaking",
	Notch:     "notch",
	Allpass:   "allpass",
}

func (t Type) String() string {
	if t < 0 || int(t) >= len(typeNames) {
		return fmt.Sprintf("Type(%d)", int(t))
	}

	return typeNames[t]
}

// HasGain reports whether the gain parameter affects this response.
func (t Type) HasGain() bool {
	return t == Lowshelf || t == Highshelf || t == Peaking
}

// ParseType maps a lower-case type name to a Type.
func ParseType(name string) (Type, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	for i, n := range typeNames {
		if n == name {
			return Type(i), nil
		}
	}

	return 0, fmt.Errorf("biquad: unknown filter type %q", name)
}

// MarshalText implements encoding.TextMarshaler.
func (t Type) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (t *Type) UnmarshalText(b []byte) error {
	parsed, err := ParseType(string(b))
	if err != nil {
		return err
	}

	*t = parsed

	return nil
}

// Design computes RBJ cookbook coefficients. Frequencies at or beyond the
// Nyquist limit, or an invalid sample rate, give the identity section for
// pass-style types, matching how a browser engine degrades.
func Design(t Type, freq, q, gainDB, sampleRate float64) Coefficients {
	if sampleRate <= 0 || math.IsNaN(sampleRate) || math.IsInf(sampleRate, 0) {
		return Identity
	}

	nyquist := sampleRate / 2
	if math.IsNaN(freq) || freq <= 0 || freq >= nyquist {
		return edgeResponse(t, freq, gainDB)
	}

	if q <= 0 || math.IsNaN(q) || math.IsInf(q, 0) {
		q = DefaultQ
	}

	w0 := 2 * math.Pi * freq / sampleRate
	cw := math.Cos(w0)
	sw := math.Sin(w0)
	alpha := sw / (2 * q)
	a := math.Pow(10, gainDB/40)

	switch t {
	case Lowpass:
		return normalize((1-cw)/2, 1-cw, (1-cw)/2, 1+alpha, -2*cw, 1-alpha)
	case Highpass:
		return normalize((1+cw)/2, -(1 + cw), (1+cw)/2, 1+alpha, -2*cw, 1-alpha)
	case Bandpass:
		return normalize(alpha, 0, -alpha, 1+alpha, -2*cw, 1-alpha)
	case Notch:
		return normalize(1, -2*cw, 1, 1+alpha, -2*cw, 1-alpha)
	case Allpass:
		return normalize(1-alpha, -2*cw, 1+alpha, 1+alpha, -2*cw, 1-alpha)
	case Peaking:
		return normalize(1+alpha*a, -2*cw, 1-alpha*a, 1+alpha/a, -2*cw, 1-alpha/a)
	case Lowshelf:
		beta := 2 * math.Sqrt(a) * alpha
		return normalize(
			a*((a+1)-(a-1)*cw+beta),
			2*a*((a-1)-(a+1)*cw),
			a*((a+1)-(a-1)*cw-beta),
			(a+1)+(a-1)*cw+beta,
			-2*((a-1)+(a+1)*cw),
			(a+1)+(a-1)*cw-beta,
		)
	case Highshelf:
		beta := 2 * math.Sqrt(a) * alpha
		return normalize(
			a*((a+1)+(a-1)*cw+beta),
			-2*a*((a-1)+(a+1)*cw),
			a*((a+1)+(a-1)*cw-beta),
			(a+1)-(a-1)*cw+beta,
			2*((a-1)-(a+1)*cw),
			(a+1)-(a-1)*cw-beta,
		)
	default:
		return Identity
	}
}

// edgeResponse returns the limiting response for frequencies outside (0, nyquist).
func edgeResponse(t Type, freq, gainDB float64) Coefficients {
	high := freq > 0
	g := math.Pow(10, gainDB/20)

	switch t {
	case Lowpass:
		if high {
			return Identity
		}
		return Coefficients{}
	case Highpass:
		if high {
			return Coefficients{}
		}
		return Identity
	case Lowshelf:
		if high {
			return Coefficients{B0: g}
		}
		return Identity
	case Highshelf:
		if high {
			return Identity
		}
		return Coefficients{B0: g}
	case Bandpass:
		return Coefficients{}
	default:
		return Identity
	}
}

func normalize(b0, b1, b2, a0, a1, a2 float64) Coefficients {
	if a0 == 0 || math.IsNaN(a0) || math.IsInf(a0, 0) {
		return Identity
	}

	inv := 1 / a0

	return Coefficients{
		B0: b0 * inv,
		B1: b1 * inv,
		B2: b2 * inv,
		A1: a1 * inv,
		A2: a2 * inv,
	}
}
