package automix

import (
	"errors"
	"fmt"
	"math"
	"strings"
	"sync"

	"github.com/google/uuid"
)

// ErrTrackNotFound is returned when an id is not on the timeline.
var ErrTrackNotFound = errors.New("automix: track not found")

// TrackListEntry is one line of an exported track list.
type TrackListEntry struct {
	Index            int     `json:"index"`
	StartTimeSeconds float64 `json:"startTime"`
	Name             string  `json:"name"`
	BPM              float64 `json:"bpm"`
	Key              string  `json:"key"`
	CamelotCode      string  `json:"camelot"`
}

// Timeline is an ordered set of tracks with start positions. It is safe for
// concurrent use.
type Timeline struct {
	mu     sync.RWMutex
	tracks []Track
}

// NewTimeline returns an empty timeline.
func NewTimeline() *Timeline {
	return &Timeline{}
}

// Add appends t so that it starts OverlapSeconds before the last track
// ends. A missing id is generated. The placed track is returned.
func (tl *Timeline) Add(t Track) Track {
	tl.mu.Lock()
	defer tl.mu.Unlock()

	if t.ID == "" {
		t.ID = uuid.NewString()
	}

	t.StartTimeSeconds = 0
	if n := len(tl.tracks); n > 0 {
		t.StartTimeSeconds = nextStart(tl.tracks[n-1])
	}

	tl.tracks = append(tl.tracks, t)

	return t
}

// Move sets the start time of a track, clamped to >= 0.
func (tl *Timeline) Move(id string, startSeconds float64) error {
	tl.mu.Lock()
	defer tl.mu.Unlock()

	i := tl.indexLocked(id)
	if i < 0 {
		return fmt.Errorf("%w: %s", ErrTrackNotFound, id)
	}

	if math.IsNaN(startSeconds) {
		startSeconds = 0
	}

	tl.tracks[i].StartTimeSeconds = math.Max(0, startSeconds)

	return nil
}

// Remove deletes a track. The others keep their positions.
func (tl *Timeline) Remove(id string) error {
	tl.mu.Lock()
	defer tl.mu.Unlock()

	i := tl.indexLocked(id)
	if i < 0 {
		return fmt.Errorf("%w: %s", ErrTrackNotFound, id)
	}

	tl.tracks = append(tl.tracks[:i], tl.tracks[i+1:]...)

	return nil
}

// Tracks returns a copy of the tracks in timeline order.
func (tl *Timeline) Tracks() []Track {
	tl.mu.RLock()
	defer tl.mu.RUnlock()

	return append([]Track(nil), tl.tracks...)
}

// Len returns the number of tracks.
func (tl *Timeline) Len() int {
	tl.mu.RLock()
	defer tl.mu.RUnlock()

	return len(tl.tracks)
}

// AutoMix reorders the timeline with Sequence and returns the new order.
func (tl *Timeline) AutoMix() []Track {
	tl.mu.Lock()
	defer tl.mu.Unlock()

	tl.tracks = Sequence(tl.tracks)

	return append([]Track(nil), tl.tracks...)
}

// TotalDuration is the latest end time of any track, 0 when empty.
func (tl *Timeline) TotalDuration() float64 {
	tl.mu.RLock()
	defer tl.mu.RUnlock()

	var end float64
	for _, t := range tl.tracks {
		end = math.Max(end, t.EndSeconds())
	}

	return end
}

// TrackList returns the export entries in timeline order, 1-based.
func (tl *Timeline) TrackList() []TrackListEntry {
	tl.mu.RLock()
	defer tl.mu.RUnlock()

	entries := make([]TrackListEntry, len(tl.tracks))
	for i, t := range tl.tracks {
		entries[i] = TrackListEntry{
			Index:            i + 1,
			StartTimeSeconds: t.StartTimeSeconds,
			Name:             t.Name,
			BPM:              t.BPM,
			Key:              t.Key,
			CamelotCode:      t.CamelotCode,
		}
	}

	return entries
}

const trackListRule = "═══════════════════════════════════"

// FormatTrackList renders entries as a plain-text track list:
//
//	01. [0:00] name
//	    128 BPM | Am | 8A
func FormatTrackList(title string, entries []TrackListEntry) string {
	var b strings.Builder

	if title != "" {
		fmt.Fprintf(&b, "%s\n  %s\n%s\n\n", trackListRule, title, trackListRule)
	}

	for _, e := range entries {
		fmt.Fprintf(&b, "%02d. [%s] %s\n", e.Index, FormatClock(e.StartTimeSeconds), e.Name)
		fmt.Fprintf(&b, "    %s BPM | %s | %s\n\n", formatBPM(e.BPM), e.Key, e.CamelotCode)
	}

	if title != "" {
		b.WriteString(trackListRule + "\n")
	}

	return b.String()
}

// FormatClock renders seconds as m:ss, truncating fractions.
func FormatClock(seconds float64) string {
	if seconds < 0 || math.IsNaN(seconds) {
		seconds = 0
	}

	total := int(seconds)

	return fmt.Sprintf("%d:%02d", total/60, total%60)
}

func formatBPM(bpm float64) string {
	if bpm == math.Trunc(bpm) {
		return fmt.Sprintf("%.0f", bpm)
	}

	return fmt.Sprintf("%.1f", bpm)
}

func (tl *Timeline) indexLocked(id string) int {
	for i, t := range tl.tracks {
		if t.ID == id {
			return i
		}
	}

	return -1
}
