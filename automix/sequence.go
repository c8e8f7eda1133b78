package automix

import (
	"math"

	"github.com/cwbudde/algo-djmix/analysis"
)

// OverlapSeconds is how long consecutive tracks play together.
const OverlapSeconds = 15.0

const (
	harmonicWeight = 0.6
	tempoWeight    = 0.4
	bpmPenalty     = 5.0
)

// TransitionScore rates moving from a to b: 0.6 of the harmonic score plus
// 0.4 of a tempo score that loses 5 points per BPM of difference.
func TransitionScore(a, b Track) float64 {
	harmonic := float64(analysis.HarmonicScore(a.CamelotCode, b.CamelotCode))
	tempo := math.Max(0, 100-bpmPenalty*math.Abs(a.BPM-b.BPM))

	return harmonicWeight*harmonic + tempoWeight*tempo
}

// Sequence orders tracks greedily: starting from tracks[0], it keeps
// appending the remaining track with the best TransitionScore from the last
// one placed. Ties go to the earliest candidate. Start times are then laid
// out back to back with OverlapSeconds of overlap. The input is not
// modified; fewer than two tracks are returned as a copy.
func Sequence(tracks []Track) []Track {
	out := make([]Track, 0, len(tracks))
	if len(tracks) < 2 {
		return append(out, tracks...)
	}

	remaining := append([]Track(nil), tracks[1:]...)
	out = append(out, tracks[0])

	for len(remaining) > 0 {
		last := out[len(out)-1]
		bestIdx, bestScore := 0, -1.0

		for i, cand := range remaining {
			if s := TransitionScore(last, cand); s > bestScore {
				bestIdx, bestScore = i, s
			}
		}

		out = append(out, remaining[bestIdx])
		remaining = append(remaining[:bestIdx], remaining[bestIdx+1:]...)
	}

	layout(out)

	return out
}

// layout rewrites start times: 0 for the first track, then the previous end
// minus the overlap, never negative.
func layout(tracks []Track) {
	for i := range tracks {
		if i == 0 {
			tracks[i].StartTimeSeconds = 0
			continue
		}

		tracks[i].StartTimeSeconds = nextStart(tracks[i-1])
	}
}

func nextStart(prev Track) float64 {
	return math.Max(0, prev.EndSeconds()-OverlapSeconds)
}
