package render

import (
	"errors"
	"fmt"
	"math"

	"github.com/cwbudde/algo-djmix/automix"
	"github.com/cwbudde/algo-djmix/dsp/core"
	"github.com/cwbudde/algo-djmix/dsp/resample"
)

const (
	// SampleRate is the render output rate in Hz.
	SampleRate = 44100

	// FadeSeconds is the length of each track's fade-in and fade-out.
	FadeSeconds = 5.0
)

// ErrEmptyTimeline is returned when the tracks span no time.
var ErrEmptyTimeline = errors.New("render: timeline is empty")

// Option configures Mix.
type Option func(*config) error

type config struct {
	progress func(done, total int)
	quality  resample.Quality
}

// WithProgress registers fn to be called with the number of tracks placed so
// far, once before the first track and once after each.
func WithProgress(fn func(done, total int)) Option {
	return func(cfg *config) error {
		cfg.progress = fn
		return nil
	}
}

// WithResampleQuality selects the converter used for tracks that are not
// already at SampleRate.
func WithResampleQuality(q resample.Quality) Option {
	return func(cfg *config) error {
		cfg.quality = q
		return nil
	}
}

// Duration returns the timeline length: the latest track end, never negative.
func Duration(tracks []automix.Track) float64 {
	total := 0.0
	for _, t := range tracks {
		total = math.Max(total, t.EndSeconds())
	}

	return total
}

// Mix renders tracks into a stereo buffer of exactly ceil(Duration·44100)
// frames. Tracks without audio are skipped. Mono tracks feed both channels.
func Mix(tracks []automix.Track, opts ...Option) (*core.Buffer, error) {
	cfg := config{quality: resample.QualityBalanced}
	for _, opt := range opts {
		if err := opt(&cfg); err != nil {
			return nil, err
		}
	}

	total := Duration(tracks)
	if total <= 0 {
		return nil, ErrEmptyTimeline
	}

	frames := int(math.Ceil(total * SampleRate))

	out, err := core.NewBuffer(SampleRate, 2, frames)
	if err != nil {
		return nil, fmt.Errorf("render: %w", err)
	}

	report := func(done int) {
		if cfg.progress != nil {
			cfg.progress(done, len(tracks))
		}
	}

	report(0)

	for i, t := range tracks {
		if t.Audio != nil && t.Audio.Len() > 0 {
			src, err := resample.ConvertBuffer(t.Audio, SampleRate, resample.WithQuality(cfg.quality))
			if err != nil {
				return nil, fmt.Errorf("render: track %q: %w", t.Name, err)
			}

			place(out, src, t.StartTimeSeconds, t.DurationSeconds)
		}

		report(i + 1)
	}

	return out, nil
}

// place adds src into dst from start seconds on, shaped by the fade envelope.
func place(dst, src *core.Buffer, start, duration float64) {
	first := int(math.Round(start * SampleRate))
	if first < 0 {
		first = 0
	}

	n := min(src.Len(), dst.Len()-first)
	if n <= 0 {
		return
	}

	env := make([]float64, n)
	for i := range env {
		env[i] = Envelope(float64(i)/SampleRate, duration)
	}

	for ch := range dst.Channels {
		in := src.Channel(ch)
		o := dst.Channels[ch][first : first+n]

		for i := range o {
			o[i] += in[i] * env[i]
		}
	}
}

// Envelope returns the track gain t seconds after the track starts. The gain
// rises from 0 to 1 over FadeSeconds, holds, and falls linearly to 0 at
// duration. The fall starts no earlier than the end of the rise, so tracks of
// FadeSeconds or less only fade in.
func Envelope(t, duration float64) float64 {
	if t < 0 || t >= duration {
		return 0
	}

	g := math.Min(1, t/FadeSeconds)
	if duration <= FadeSeconds {
		return g
	}

	hold := math.Max(FadeSeconds, duration-FadeSeconds)
	if t > hold {
		g = math.Min(g, (duration-t)/(duration-hold))
	}

	return g
}
