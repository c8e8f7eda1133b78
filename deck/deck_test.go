package deck

import (
	"context"
	"errors"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"

	"github.com/cwbudde/algo-djmix/analysis"
	"github.com/cwbudde/algo-djmix/internal/testutil"
)

// encodeWAV writes interleaved integer samples as a PCM WAV file and
// returns its bytes.
func encodeWAV(t *testing.T, sampleRate, bitDepth, channels int, data []int) []byte {
	t.Helper()

	path := filepath.Join(t.TempDir(), "test.wav")

	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	enc := wav.NewEncoder(f, sampleRate, bitDepth, channels, 1)
	buf := &audio.IntBuffer{
		Format:         &audio.Format{NumChannels: channels, SampleRate: sampleRate},
		Data:           data,
		SourceBitDepth: bitDepth,
	}

	if err := enc.Write(buf); err != nil {
		t.Fatalf("encode: %v", err)
	}

	if err := enc.Close(); err != nil {
		t.Fatalf("close encoder: %v", err)
	}

	if err := f.Close(); err != nil {
		t.Fatalf("close file: %v", err)
	}

	b, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}

	return b
}

func newTestDeck(t *testing.T, sampleRate float64) *Deck {
	t.Helper()

	d, err := New(A, sampleRate)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	return d
}

func ramp(n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = float64(i) / float64(n)
	}

	return out
}

func TestDecode16BitStereo(t *testing.T) {
	data := encodeWAV(t, 8000, 16, 2, []int{16384, -16384, 0, 32767})

	buf, err := Decode(data)
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}

	if buf.SampleRate != 8000 || buf.NumChannels() != 2 || buf.Len() != 2 {
		t.Fatalf("Decode() shape got=%v Hz %dx%d, want 8000 Hz 2x2", buf.SampleRate, buf.NumChannels(), buf.Len())
	}

	testutil.RequireSliceNearlyEqual(t, buf.Channel(0), []float64{0.5, 0}, 1e-12)
	testutil.RequireSliceNearlyEqual(t, buf.Channel(1), []float64{-0.5, 32767.0 / 32768}, 1e-12)
}

func TestLoadRejectsGarbage(t *testing.T) {
	d := newTestDeck(t, 8000)

	_, err := d.Load(context.Background(), "notes.txt", []byte("definitely not a wav file"))

	var decErr *DecodeError
	if !errors.As(err, &decErr) {
		t.Fatalf("Load() error = %v, want *DecodeError", err)
	}

	if decErr.Name != "notes.txt" || !errors.Is(err, ErrUnsupportedFormat) {
		t.Fatalf("DecodeError got=%+v, want name notes.txt wrapping ErrUnsupportedFormat", decErr)
	}

	if d.IsLoaded() {
		t.Fatal("deck loaded after failed decode")
	}
}

func TestLoadAnalysesAndCommits(t *testing.T) {
	const sr = 44100.0

	click := testutil.ClickTrack(120, sr, 30, 0.8)
	pcm := make([]int, len(click))
	for i, v := range click {
		pcm[i] = int(math.Round(v * 32767))
	}

	d := newTestDeck(t, sr)

	a, err := d.Load(context.Background(), "crate/Click Track.wav", encodeWAV(t, int(sr), 16, 1, pcm))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if !d.IsLoaded() || d.Name() != "Click Track" {
		t.Fatalf("deck state got loaded=%v name=%q", d.IsLoaded(), d.Name())
	}

	if math.Abs(a.BPM-120) > 0.5 {
		t.Fatalf("BPM got=%v, want=120±0.5", a.BPM)
	}

	if math.Abs(a.DurationSeconds-30) > 1e-9 || a.SampleRate != sr {
		t.Fatalf("duration/rate got=%v s @ %v Hz", a.DurationSeconds, a.SampleRate)
	}

	if len(a.WaveformPeaks) != analysis.WaveformPoints {
		t.Fatalf("len(WaveformPeaks) got=%d, want=%d", len(a.WaveformPeaks), analysis.WaveformPoints)
	}

	if _, _, err := analysis.ParseCamelot(a.CamelotCode); err != nil {
		t.Fatalf("CamelotCode %q: %v", a.CamelotCode, err)
	}
}

func TestLoadConvertsSampleRate(t *testing.T) {
	d := newTestDeck(t, 44100)

	a, err := d.LoadBuffer(context.Background(), "half.wav", testutil.Mono(22050, ramp(22050)))
	if err != nil {
		t.Fatalf("LoadBuffer() error = %v", err)
	}

	if a.SampleRate != 44100 || d.Buffer().Len() != 44100 {
		t.Fatalf("converted buffer got=%v Hz, %d frames; want 44100 Hz, 44100 frames", a.SampleRate, d.Buffer().Len())
	}

	if math.Abs(a.DurationSeconds-1) > 1e-9 {
		t.Fatalf("DurationSeconds got=%v, want=1", a.DurationSeconds)
	}
}

func TestLoadCancelledKeepsPreviousTrack(t *testing.T) {
	d := newTestDeck(t, 8000)

	if _, err := d.LoadBuffer(context.Background(), "first.wav", testutil.Mono(8000, ramp(8000))); err != nil {
		t.Fatalf("LoadBuffer() error = %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := d.LoadBuffer(ctx, "second.wav", testutil.Mono(8000, ramp(4000))); !errors.Is(err, context.Canceled) {
		t.Fatalf("LoadBuffer(cancelled) error = %v, want context.Canceled", err)
	}

	if d.Name() != "first" || d.Buffer().Len() != 8000 {
		t.Fatalf("deck got name=%q len=%d, want the first track", d.Name(), d.Buffer().Len())
	}
}

func TestLoadStopsPlayingSource(t *testing.T) {
	d := newTestDeck(t, 8000)
	ctx := context.Background()

	if _, err := d.LoadBuffer(ctx, "a.wav", testutil.Mono(8000, ramp(8000))); err != nil {
		t.Fatalf("LoadBuffer() error = %v", err)
	}

	d.Play(0)
	if !d.Playing() {
		t.Fatal("deck not playing after Play")
	}

	if _, err := d.LoadBuffer(ctx, "b.wav", testutil.Mono(8000, ramp(8000))); err != nil {
		t.Fatalf("LoadBuffer() error = %v", err)
	}

	if d.Playing() || d.Name() != "b" {
		t.Fatalf("after reload got playing=%v name=%q, want stopped deck b", d.Playing(), d.Name())
	}
}

func TestProcessFlatEQIsTransparent(t *testing.T) {
	const sr = 8000.0

	src := testutil.DeterministicNoise(5, 0.5, 1000)
	d := newTestDeck(t, sr)

	if _, err := d.LoadBuffer(context.Background(), "noise", testutil.Stereo(sr, src, nil)); err != nil {
		t.Fatalf("LoadBuffer() error = %v", err)
	}

	d.Play(0.05)

	left := make([]float64, 256)
	right := make([]float64, 256)
	d.Process(left, right)

	want := src[400:656]
	testutil.RequireSliceNearlyEqual(t, left, want, 1e-9)
	testutil.RequireSliceNearlyEqual(t, right, want, 1e-9)

	if math.Abs(d.Position()-656/sr) > 1e-12 {
		t.Fatalf("Position() got=%v, want=%v", d.Position(), 656/sr)
	}
}

func TestProcessSourceRunsOut(t *testing.T) {
	d := newTestDeck(t, 8000)

	if _, err := d.LoadBuffer(context.Background(), "short", testutil.Mono(8000, ramp(100))); err != nil {
		t.Fatalf("LoadBuffer() error = %v", err)
	}

	d.Play(0)

	left := make([]float64, 256)
	d.Process(left, nil)

	if testutil.PeakAbs(left[110:]) > 1e-3 {
		t.Fatalf("tail after end of buffer got peak=%v, want silence", testutil.PeakAbs(left[110:]))
	}

	if d.Playing() {
		t.Fatal("Playing() after the source ran out")
	}
}

func TestProcessWithoutSourceIsSilent(t *testing.T) {
	d := newTestDeck(t, 8000)

	left := []float64{1, 1, 1}
	right := []float64{1, 1, 1}
	d.Process(left, right)

	if testutil.PeakAbs(left) != 0 || testutil.PeakAbs(right) != 0 {
		t.Fatal("empty deck produced output")
	}
}

func TestVolumeAndEQClamp(t *testing.T) {
	d := newTestDeck(t, 8000)

	d.SetVolume(5)
	if d.Volume() != maxVolume {
		t.Fatalf("Volume() got=%v, want=%v", d.Volume(), maxVolume)
	}

	d.SetVolume(-1)
	if d.Volume() != 0 {
		t.Fatalf("Volume() got=%v, want=0", d.Volume())
	}

	d.SetEQ(High, 100)
	if d.EQ(High) != 40 {
		t.Fatalf("EQ(High) got=%v, want=40", d.EQ(High))
	}

	d.SetEQ(Low, -6)
	if d.EQ(Low) != -6 || d.EQ(Mid) != 0 {
		t.Fatalf("EQ got low=%v mid=%v, want -6 and 0", d.EQ(Low), d.EQ(Mid))
	}
}

func TestParseBand(t *testing.T) {
	for _, b := range []Band{High, Mid, Low} {
		got, err := ParseBand(b.String())
		if err != nil || got != b {
			t.Fatalf("ParseBand(%q) = %v, %v", b.String(), got, err)
		}
	}

	if _, err := ParseBand("sub"); err == nil {
		t.Fatal("ParseBand(sub): expected error")
	}
}

func TestTrackName(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{in: "song.wav", want: "song"},
		{in: "a/b/Deep House.mp3.wav", want: "Deep House.mp3"},
		{in: "noext", want: "noext"},
		{in: "", want: ""},
	}

	for _, tt := range tests {
		if got := TrackName(tt.in); got != tt.want {
			t.Fatalf("TrackName(%q) got=%q, want=%q", tt.in, got, tt.want)
		}
	}
}
