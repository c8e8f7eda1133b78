package automix

import (
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/cwbudde/algo-djmix/deck"
	"github.com/cwbudde/algo-djmix/dsp/core"
)

// ErrDeckNotLoaded is returned by TrackFromDeck for an empty deck.
var ErrDeckNotLoaded = errors.New("automix: deck has no track loaded")

// Track is one entry on the mix timeline. WaveformPeaks and Audio are
// shared read-only with the deck the track came from.
type Track struct {
	ID               string       `json:"id"`
	Name             string       `json:"name"`
	DurationSeconds  float64      `json:"duration"`
	BPM              float64      `json:"bpm"`
	Key              string       `json:"key"`
	CamelotCode      string       `json:"camelot"`
	StartTimeSeconds float64      `json:"startTime"`
	WaveformPeaks    []float64    `json:"-"`
	Audio            *core.Buffer `json:"-"`
}

// EndSeconds returns the timeline position where the track stops.
func (t Track) EndSeconds() float64 { return t.StartTimeSeconds + t.DurationSeconds }

// TrackFromDeck builds a Track from the deck's current analysis and audio.
func TrackFromDeck(d *deck.Deck) (Track, error) {
	if d == nil || !d.IsLoaded() {
		return Track{}, ErrDeckNotLoaded
	}

	a := d.Analysis()

	return Track{
		ID:              uuid.NewString(),
		Name:            a.Name,
		DurationSeconds: a.DurationSeconds,
		BPM:             a.BPM,
		Key:             a.Key,
		CamelotCode:     a.CamelotCode,
		WaveformPeaks:   a.WaveformPeaks,
		Audio:           d.Buffer(),
	}, nil
}

func (t Track) String() string {
	return fmt.Sprintf("%s (%.1f BPM, %s)", t.Name, t.BPM, t.Key)
}
