package loudness

import (
	"errors"
	"math"
	"testing"

	"github.com/cwbudde/algo-djmix/dsp/core"
	"github.com/cwbudde/algo-djmix/internal/testutil"
)

const testSampleRate = 48000.0

// A full-scale 1 kHz sine reads about -3.03 LUFS in mono: the K-weighting
// shelf adds roughly 0.67 dB at 1 kHz.
const sineLUFS = -3.03

func newTestMeter(t *testing.T, channels int) *Meter {
	t.Helper()

	m, err := NewMeter(testSampleRate, WithChannels(channels))
	if err != nil {
		t.Fatalf("NewMeter() error = %v", err)
	}

	return m
}

func TestMeterSine(t *testing.T) {
	m := newTestMeter(t, 1)
	m.Process(testutil.DeterministicSine(1000, testSampleRate, 1, int(testSampleRate*4)))

	tests := []struct {
		name string
		got  float64
	}{
		{name: "momentary", got: m.Momentary()},
		{name: "short-term", got: m.ShortTerm()},
		{name: "integrated", got: m.Integrated()},
	}

	for _, tt := range tests {
		if math.Abs(tt.got-sineLUFS) > 0.25 {
			t.Errorf("%s got=%.3f, want=%.3f", tt.name, tt.got, sineLUFS)
		}
	}

	if p := m.PeakDB(); math.Abs(p) > 0.01 {
		t.Errorf("PeakDB() got=%v, want=0", p)
	}
}

func TestMeterStereoSumsChannelPower(t *testing.T) {
	m := newTestMeter(t, 2)
	sig := testutil.DeterministicSine(1000, testSampleRate, 1, int(testSampleRate*4))
	m.Process(sig, sig)

	want := sineLUFS + 10*math.Log10(2)
	if got := m.Integrated(); math.Abs(got-want) > 0.25 {
		t.Fatalf("Integrated() got=%.3f, want=%.3f", got, want)
	}
}

func TestMeterSilence(t *testing.T) {
	m := newTestMeter(t, 2)
	m.Process(make([]float64, int(testSampleRate)))

	if got := m.Momentary(); got != -120 {
		t.Fatalf("Momentary() got=%v, want=-120", got)
	}

	if got := m.Integrated(); !math.IsInf(got, -1) {
		t.Fatalf("Integrated() got=%v, want=-Inf", got)
	}
}

func TestMeterGatesQuietTail(t *testing.T) {
	m := newTestMeter(t, 1)
	m.Process(testutil.DeterministicSine(1000, testSampleRate, 1, int(testSampleRate*10)))
	loud := m.Integrated()

	m.Process(testutil.DeterministicSine(1000, testSampleRate, 1e-4, int(testSampleRate*10)))

	if got := m.Integrated(); math.Abs(got-loud) > 0.1 {
		t.Fatalf("Integrated() after -80 dB tail got=%.3f, want=%.3f", got, loud)
	}
}

func TestMeterResetForgetsHistory(t *testing.T) {
	m := newTestMeter(t, 1)
	m.Process(testutil.DeterministicSine(1000, testSampleRate, 1, int(testSampleRate)))
	m.Reset()

	if got := m.Integrated(); !math.IsInf(got, -1) {
		t.Fatalf("Integrated() after Reset got=%v, want=-Inf", got)
	}

	if got := m.Peaks()[0]; got != 0 {
		t.Fatalf("Peaks() after Reset got=%v, want=0", got)
	}
}

func TestNewMeterValidation(t *testing.T) {
	if _, err := NewMeter(0); !errors.Is(err, core.ErrInvalidSampleRate) {
		t.Fatalf("NewMeter(0) error = %v, want ErrInvalidSampleRate", err)
	}

	if _, err := NewMeter(testSampleRate, WithChannels(0)); err == nil {
		t.Fatal("NewMeter(channels=0): expected error")
	}
}

func TestMeasure(t *testing.T) {
	sig := testutil.DeterministicSine(1000, testSampleRate, 0.5, int(testSampleRate*4))

	r, err := Measure(testutil.Mono(testSampleRate, sig))
	if err != nil {
		t.Fatalf("Measure() error = %v", err)
	}

	want := sineLUFS + 20*math.Log10(0.5)
	if math.Abs(r.Integrated-want) > 0.25 {
		t.Fatalf("Measure() integrated got=%.3f, want=%.3f", r.Integrated, want)
	}

	if r.MaxMomentary < r.Integrated-0.5 {
		t.Fatalf("Measure() max momentary got=%.3f, want >= %.3f", r.MaxMomentary, r.Integrated-0.5)
	}

	if math.Abs(r.PeakDB-20*math.Log10(0.5)) > 0.01 {
		t.Fatalf("Measure() peak got=%.3f, want=%.3f", r.PeakDB, 20*math.Log10(0.5))
	}

	if _, err := Measure(nil); !errors.Is(err, core.ErrNoChannels) {
		t.Fatalf("Measure(nil) error = %v, want ErrNoChannels", err)
	}
}
