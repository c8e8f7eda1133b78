package analysis

import (
	"math"
	"testing"

	"github.com/cwbudde/algo-djmix/dsp/core"
	"github.com/cwbudde/algo-djmix/internal/testutil"
)

func TestDetectBPMClickTrack(t *testing.T) {
	const sr = 44100.0

	buf := testutil.Mono(sr, testutil.ClickTrack(120, sr, 30, 0.8))

	est := EstimateTempo(buf)
	if math.Abs(est.BPM-120) > 0.5 {
		t.Fatalf("EstimateTempo() got=%v BPM, want=120±0.5", est.BPM)
	}

	if est.Degenerate {
		t.Fatal("click track flagged as degenerate")
	}

	if est.Confidence <= 0 || est.Confidence > 1 {
		t.Fatalf("Confidence got=%v, want in (0, 1]", est.Confidence)
	}
}

func TestDetectBPMSilenceUsesShortestLag(t *testing.T) {
	buf := testutil.Mono(44100, make([]float64, 10*44100))

	est := EstimateTempo(buf)
	if est.BPM != 100.2 {
		t.Fatalf("EstimateTempo(silence) got=%v, want=100.2", est.BPM)
	}

	if !est.Degenerate || est.Confidence != 0 {
		t.Fatalf("silence estimate got=%+v, want degenerate with zero confidence", est)
	}
}

func TestDetectBPMAlwaysInRange(t *testing.T) {
	tests := []struct {
		name string
		buf  *core.Buffer
	}{
		{name: "noise", buf: testutil.Mono(44100, testutil.DeterministicNoise(1, 0.5, 5*44100))},
		{name: "noise 48k stereo", buf: testutil.Stereo(48000, testutil.DeterministicNoise(2, 0.5, 5*48000), nil)},
		{name: "fast clicks", buf: testutil.Mono(44100, testutil.ClickTrack(190, 44100, 20, 0.5))},
		{name: "slow clicks", buf: testutil.Mono(44100, testutil.ClickTrack(65, 44100, 20, 0.5))},
		{name: "short", buf: testutil.Mono(44100, make([]float64, 100))},
		{name: "empty", buf: testutil.Mono(44100, nil)},
		{name: "nil", buf: nil},
		{name: "bad rate", buf: testutil.Mono(0, make([]float64, 100))},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := DetectBPM(tt.buf)
			if math.IsNaN(got) || got < 70 || got > 180 {
				t.Fatalf("DetectBPM() got=%v, want in [70, 180]", got)
			}

			if core.RoundTo(got, 1) != got {
				t.Fatalf("DetectBPM() got=%v, want one decimal", got)
			}
		})
	}
}

func TestDetectBPMShortBufferIsDegenerate(t *testing.T) {
	est := EstimateTempo(testutil.Mono(44100, make([]float64, 100)))
	if !est.Degenerate {
		t.Fatalf("EstimateTempo(short) got=%+v, want degenerate", est)
	}
}

// chordSegment places unit "bins" for A, C and E inside the key segment of a
// buffer whose sample rate makes bin i correspond to i Hz.
func chordSegment() *core.Buffer {
	const sr = keySegmentSize

	data := make([]float64, 4*keySegmentSize)
	start := keySegmentSize
	for _, hz := range []int{440, 523, 659} {
		data[start+hz] = 1
	}

	return testutil.Mono(sr, data)
}

func TestBinFoldDetector(t *testing.T) {
	got := BinFoldDetector{}.DetectKey(chordSegment())

	if got.Key != "Am" || got.CamelotCode != "8A" || got.Mode != Minor || got.PitchClass != 9 {
		t.Fatalf("DetectKey() got=%+v, want Am / 8A", got)
	}

	if math.Abs(got.Score-16.46) > 1e-9 {
		t.Fatalf("Score got=%v, want=16.46", got.Score)
	}
}

func TestKeyDetectorsOnSilence(t *testing.T) {
	spectral, err := NewSpectralDetector()
	if err != nil {
		t.Fatalf("NewSpectralDetector() error = %v", err)
	}

	detectors := map[string]KeyDetector{
		"binfold":  BinFoldDetector{},
		"spectral": spectral,
	}

	for name, d := range detectors {
		t.Run(name, func(t *testing.T) {
			for _, buf := range []*core.Buffer{
				testutil.Mono(44100, make([]float64, 44100)),
				testutil.Mono(44100, make([]float64, 10)),
				nil,
			} {
				got := d.DetectKey(buf)
				if got.Key != "C" || got.CamelotCode != "8B" || got.Mode != Major {
					t.Fatalf("DetectKey(silence) got=%+v, want C / 8B", got)
				}
			}
		})
	}
}

func TestSpectralDetectorChord(t *testing.T) {
	const sr = 44100.0

	n := 4 * int(sr)
	data := make([]float64, n)
	for _, hz := range []float64{440, 523.25, 659.26} {
		tone := testutil.DeterministicSine(hz, sr, 0.3, n)
		for i := range data {
			data[i] += tone[i]
		}
	}

	d, err := NewSpectralDetector()
	if err != nil {
		t.Fatalf("NewSpectralDetector() error = %v", err)
	}

	got := d.DetectKey(testutil.Mono(sr, data))
	if got.Key != "Am" || got.CamelotCode != "8A" {
		t.Fatalf("DetectKey() got=%+v, want Am / 8A", got)
	}
}

func TestCamelotTable(t *testing.T) {
	seen := make(map[string]bool)

	for pc := range 12 {
		major := CamelotCode(pc, Major)
		relMinor := CamelotCode((pc+9)%12, Minor)

		if major[:len(major)-1] != relMinor[:len(relMinor)-1] {
			t.Fatalf("%s major %s and relative minor %s differ in number", NoteNames[pc], major, relMinor)
		}

		seen[major] = true
		seen[relMinor] = true
	}

	if len(seen) != 24 {
		t.Fatalf("distinct codes got=%d, want=24", len(seen))
	}

	if got := CamelotCode(-3, Minor); got != "8A" {
		t.Fatalf("CamelotCode(-3, minor) got=%q, want=8A", got)
	}

	if got := KeyName(6, Major); got != "F#" {
		t.Fatalf("KeyName(6, major) got=%q, want=F#", got)
	}
}

func TestParseCamelot(t *testing.T) {
	num, letter, err := ParseCamelot(" 12a ")
	if err != nil || num != 12 || letter != 'A' {
		t.Fatalf("ParseCamelot() got=%d %c %v, want 12 A", num, letter, err)
	}

	for _, bad := range []string{"", "8", "0A", "13B", "8C", "xB", "?"} {
		if _, _, err := ParseCamelot(bad); err == nil {
			t.Fatalf("ParseCamelot(%q): expected error", bad)
		}
	}
}

func TestHarmonicScore(t *testing.T) {
	tests := []struct {
		a, b string
		want int
	}{
		{a: "8A", b: "8A", want: 100},
		{a: "8A", b: "8B", want: 90},
		{a: "8A", b: "9A", want: 80},
		{a: "12A", b: "1A", want: 80},
		{a: "8A", b: "10A", want: 60},
		{a: "1B", b: "11B", want: 60},
		{a: "8A", b: "3A", want: 10},
		{a: "8A", b: "9B", want: 42},
		{a: "1A", b: "12B", want: 0},
		{a: "", b: "8A", want: 0},
		{a: "13A", b: "8A", want: 0},
		{a: "?", b: "?", want: 0},
	}

	for _, tt := range tests {
		t.Run(tt.a+"-"+tt.b, func(t *testing.T) {
			if got := HarmonicScore(tt.a, tt.b); got != tt.want {
				t.Fatalf("HarmonicScore(%q, %q) got=%d, want=%d", tt.a, tt.b, got, tt.want)
			}
		})
	}
}

func TestHarmonicScoreSymmetricAndBounded(t *testing.T) {
	var codes []string
	for pc := range 12 {
		codes = append(codes, CamelotCode(pc, Major), CamelotCode(pc, Minor))
	}

	for _, a := range codes {
		if HarmonicScore(a, a) != 100 {
			t.Fatalf("HarmonicScore(%q, %q) != 100", a, a)
		}

		for _, b := range codes {
			ab, ba := HarmonicScore(a, b), HarmonicScore(b, a)
			if ab != ba {
				t.Fatalf("HarmonicScore not symmetric for %s/%s: %d vs %d", a, b, ab, ba)
			}

			if ab < 0 || ab > 100 {
				t.Fatalf("HarmonicScore(%q, %q) got=%d, out of range", a, b, ab)
			}
		}
	}
}

func TestWaveformPeaks(t *testing.T) {
	data := make([]float64, 2500)
	for i := range data {
		data[i] = float64(i) / 2500
		if i%2 == 0 {
			data[i] = -data[i]
		}
	}

	peaks := WaveformPeaks(testutil.Mono(44100, data), WaveformPoints)
	if len(peaks) != WaveformPoints {
		t.Fatalf("len got=%d, want=%d", len(peaks), WaveformPoints)
	}

	for i, p := range peaks {
		want := float64(2*i+1) / 2500
		if p != want {
			t.Fatalf("peaks[%d] got=%v, want=%v", i, p, want)
		}
	}

	short := WaveformPeaks(testutil.Mono(44100, make([]float64, 10)), WaveformPoints)
	if len(short) != WaveformPoints || testutil.PeakAbs(short) != 0 {
		t.Fatal("short buffer should give all-zero peaks")
	}

	if WaveformPeaks(nil, 0) != nil {
		t.Fatal("WaveformPeaks(n=0) should be nil")
	}
}
