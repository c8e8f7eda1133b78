package session

import "github.com/cwbudde/algo-djmix/dsp/core"

// Play starts both loaded decks from the current position. Every call
// creates fresh sources.
func (s *Session) Play() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.playing {
		return
	}

	for _, d := range s.decks {
		d.Play(s.offset)
	}

	s.playing = true
	s.elapsed = 0
	s.log.Debug("transport play")
}

// Pause stops the decks and remembers the position.
func (s *Session) Pause() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.pauseLocked()
}

func (s *Session) pauseLocked() {
	if !s.playing {
		return
	}

	s.offset = s.currentTimeLocked()
	s.playing = false
	s.elapsed = 0

	for _, d := range s.decks {
		d.Stop()
	}
}

// Stop pauses and rewinds to the start.
func (s *Session) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.pauseLocked()
	s.offset = 0
}

// Seek moves the transport to seconds, clamped to [0, TotalDuration]. A
// playing transport restarts its sources at the new position.
func (s *Session) Seek(seconds float64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	wasPlaying := s.playing
	s.pauseLocked()
	s.offset = core.Clamp(seconds, 0, s.totalDuration())

	if wasPlaying {
		for _, d := range s.decks {
			d.Play(s.offset)
		}

		s.playing = true
	}
}

// Playing reports whether the transport runs.
func (s *Session) Playing() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.playing
}

// CurrentTime returns the transport position in seconds, counted in
// rendered frames.
func (s *Session) CurrentTime() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.currentTimeLocked()
}

func (s *Session) currentTimeLocked() float64 {
	if !s.playing {
		return s.offset
	}

	return s.offset + float64(s.elapsed)/s.sampleRate
}

// TotalDuration returns the longer of the two loaded tracks in seconds.
func (s *Session) TotalDuration() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.totalDuration()
}

func (s *Session) totalDuration() float64 {
	var longest float64
	for _, d := range s.decks {
		if d.IsLoaded() {
			longest = max(longest, d.Duration())
		}
	}

	return longest
}
