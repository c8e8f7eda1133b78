package resample

import (
	"errors"
	"math"
	"testing"

	"github.com/cwbudde/algo-djmix/internal/testutil"
)

func TestNewConverterValidation(t *testing.T) {
	if _, err := NewConverter(0, 1); !errors.Is(err, ErrInvalidRatio) {
		t.Fatalf("NewConverter(0, 1) error = %v, want ErrInvalidRatio", err)
	}

	if _, err := NewForRates(0, 48000); !errors.Is(err, ErrInvalidRate) {
		t.Fatalf("NewForRates(0, 48000) error = %v, want ErrInvalidRate", err)
	}
}

func TestRatios(t *testing.T) {
	tests := []struct {
		in, out  float64
		up, down int
	}{
		{in: 44100, out: 48000, up: 160, down: 147},
		{in: 48000, out: 44100, up: 147, down: 160},
		{in: 22050, out: 44100, up: 2, down: 1},
		{in: 96000, out: 48000, up: 1, down: 2},
	}

	for _, tt := range tests {
		c, err := NewForRates(tt.in, tt.out)
		if err != nil {
			t.Fatalf("NewForRates(%v, %v) error = %v", tt.in, tt.out, err)
		}

		if up, down := c.Ratio(); up != tt.up || down != tt.down {
			t.Fatalf("NewForRates(%v, %v) ratio got=%d/%d, want=%d/%d", tt.in, tt.out, up, down, tt.up, tt.down)
		}
	}

	c, err := NewConverter(320, 294)
	if err != nil {
		t.Fatalf("NewConverter() error = %v", err)
	}

	if up, down := c.Ratio(); up != 160 || down != 147 {
		t.Fatalf("reduced ratio got=%d/%d, want=160/147", up, down)
	}
}

func TestOutputLenMatchesProcess(t *testing.T) {
	c, err := NewConverter(3, 2)
	if err != nil {
		t.Fatalf("NewConverter() error = %v", err)
	}

	in := testutil.DeterministicSine(1000, 48000, 1, 257)
	want := c.OutputLen(len(in))

	if got := len(c.Process(in)); got != want {
		t.Fatalf("len(Process()) got=%d, want=%d", got, want)
	}
}

func TestChunkedMatchesWhole(t *testing.T) {
	whole, err := NewConverter(160, 147)
	if err != nil {
		t.Fatalf("NewConverter() error = %v", err)
	}

	chunked, err := NewConverter(160, 147)
	if err != nil {
		t.Fatalf("NewConverter() error = %v", err)
	}

	in := testutil.DeterministicSine(1000, 44100, 1, 8192)
	want := whole.Process(in)

	var got []float64
	for i := 0; i < len(in); i += 257 {
		got = append(got, chunked.Process(in[i:min(len(in), i+257)])...)
	}

	testutil.RequireSliceNearlyEqual(t, got, want, 1e-12)
}

func TestConvertBuffer(t *testing.T) {
	const in, out = 48000.0, 44100.0

	left := testutil.DeterministicSine(1000, in, 0.5, int(in))
	buf := testutil.Stereo(in, left, nil)

	got, err := ConvertBuffer(buf, out)
	if err != nil {
		t.Fatalf("ConvertBuffer() error = %v", err)
	}

	if got.SampleRate != out || got.Len() != int(out) || got.NumChannels() != 2 {
		t.Fatalf("ConvertBuffer() shape got=%v Hz %dx%d", got.SampleRate, got.NumChannels(), got.Len())
	}

	mid := got.Channel(0)[1000 : len(got.Channel(0))-1000]
	if rms, want := testutil.RMS(mid), 0.5/math.Sqrt2; math.Abs(rms-want)/want > 0.01 {
		t.Fatalf("RMS got=%v, want=%v", rms, want)
	}

	// Project the middle section onto sin and cos at 1 kHz. After delay
	// compensation the phase should stay within half an output sample.
	var sinSum, cosSum float64
	for i := 1000; i < len(got.Channel(0))-1000; i++ {
		w := 2 * math.Pi * 1000 * float64(i) / out
		sinSum += got.Channel(0)[i] * math.Sin(w)
		cosSum += got.Channel(0)[i] * math.Cos(w)
	}

	if phase := math.Atan2(cosSum, sinSum); math.Abs(phase) > 0.1 {
		t.Fatalf("phase offset got=%v rad, want within 0.1", phase)
	}

	same, err := ConvertBuffer(buf, in)
	if err != nil || same != buf {
		t.Fatalf("ConvertBuffer(same rate) got=%p, %v; want the input buffer", same, err)
	}
}

func TestConvertBufferDCGain(t *testing.T) {
	dc := make([]float64, 4000)
	for i := range dc {
		dc[i] = 0.5
	}

	got, err := ConvertBuffer(testutil.Mono(22050, dc), 44100)
	if err != nil {
		t.Fatalf("ConvertBuffer() error = %v", err)
	}

	for i, v := range got.Channel(0)[200:7800] {
		if math.Abs(v-0.5) > 0.01 {
			t.Fatalf("sample %d got=%v, want=0.5", i+200, v)
		}
	}
}
