package analysis

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// ErrInvalidCamelot is returned by ParseCamelot for malformed codes.
var ErrInvalidCamelot = errors.New("analysis: invalid camelot code")

// NoteNames lists the pitch classes from C upward.
var NoteNames = [12]string{"C", "C#", "D", "D#", "E", "F", "F#", "G", "G#", "A", "A#", "B"}

var camelotMajor = [12]string{"8B", "3B", "10B", "5B", "12B", "7B", "2B", "9B", "4B", "11B", "6B", "1B"}

var camelotMinor = [12]string{"5A", "12A", "7A", "2A", "9A", "4A", "11A", "6A", "1A", "8A", "3A", "10A"}

// Mode is the tonal mode of a key.
type Mode int

const (
	Major Mode = iota
	Minor
)

func (m Mode) String() string {
	if m == Minor {
		return "minor"
	}

	return "major"
}

// MarshalText implements encoding.TextMarshaler.
func (m Mode) MarshalText() ([]byte, error) {
	return []byte(m.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (m *Mode) UnmarshalText(b []byte) error {
	switch string(b) {
	case "major":
		*m = Major
	case "minor":
		*m = Minor
	default:
		return fmt.Errorf("analysis: unknown mode %q", b)
	}

	return nil
}

// CamelotCode maps a pitch class (0 = C) and mode to its Camelot wheel
// code. Out-of-range pitch classes wrap.
func CamelotCode(pitchClass int, mode Mode) string {
	pc := ((pitchClass % 12) + 12) % 12
	if mode == Minor {
		return camelotMinor[pc]
	}

	return camelotMajor[pc]
}

// KeyName returns the conventional key label, e.g. "F#" or "Am".
func KeyName(pitchClass int, mode Mode) string {
	name := NoteNames[((pitchClass%12)+12)%12]
	if mode == Minor {
		return name + "m"
	}

	return name
}

// ParseCamelot splits a code such as "8A" into its wheel number (1–12) and
// letter (A for minor, B for major).
func ParseCamelot(code string) (int, byte, error) {
	code = strings.ToUpper(strings.TrimSpace(code))
	if len(code) < 2 {
		return 0, 0, fmt.Errorf("%w: %q", ErrInvalidCamelot, code)
	}

	letter := code[len(code)-1]
	if letter != 'A' && letter != 'B' {
		return 0, 0, fmt.Errorf("%w: %q", ErrInvalidCamelot, code)
	}

	num, err := strconv.Atoi(code[:len(code)-1])
	if err != nil || num < 1 || num > 12 {
		return 0, 0, fmt.Errorf("%w: %q", ErrInvalidCamelot, code)
	}

	return num, letter, nil
}

// HarmonicScore rates how well two Camelot keys mix, from 0 to 100:
// identical keys 100, relative major/minor 90, adjacent on the wheel 80,
// two steps apart 60, otherwise 50 − 8·|Δnumber| floored at 0. Invalid or
// empty codes score 0. The score is symmetric.
func HarmonicScore(a, b string) int {
	numA, letterA, err := ParseCamelot(a)
	if err != nil {
		return 0
	}

	numB, letterB, err := ParseCamelot(b)
	if err != nil {
		return 0
	}

	if numA == numB && letterA == letterB {
		return 100
	}

	if numA == numB {
		return 90
	}

	diff := numA - numB
	if diff < 0 {
		diff = -diff
	}

	if letterA == letterB {
		switch diff {
		case 1, 11:
			return 80
		case 2, 10:
			return 60
		}
	}

	return max(0, 50-8*diff)
}
