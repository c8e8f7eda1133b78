package loudness

import (
	"fmt"

	"github.com/cwbudde/algo-djmix/dsp/core"
)

// Report summarizes a whole rendered program.
type Report struct {
	Integrated   float64 `json:"integratedLufs"`
	MaxShortTerm float64 `json:"maxShortTermLufs"`
	MaxMomentary float64 `json:"maxMomentaryLufs"`
	PeakDB       float64 `json:"peakDbfs"`
}

func (r Report) String() string {
	return fmt.Sprintf("%.1f LUFS integrated, %.1f LUFS max short-term, %.1f dBFS peak",
		r.Integrated, r.MaxShortTerm, r.PeakDB)
}

// Measure meters buf from the start in one pass.
func Measure(buf *core.Buffer) (Report, error) {
	if buf == nil || buf.NumChannels() == 0 {
		return Report{}, fmt.Errorf("loudness: %w", core.ErrNoChannels)
	}

	m, err := NewMeter(buf.SampleRate, WithChannels(min(buf.NumChannels(), maxChannels)))
	if err != nil {
		return Report{}, err
	}

	m.ProcessBuffer(buf)

	return Report{
		Integrated:   m.Integrated(),
		MaxShortTerm: m.MaxShortTerm(),
		MaxMomentary: m.MaxMomentary(),
		PeakDB:       m.PeakDB(),
	}, nil
}
