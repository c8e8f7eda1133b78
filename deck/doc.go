// Package deck holds one loaded track of the two-deck mixer: its decoded
// PCM, its analysis, a 3-band EQ with volume, and the one-shot source that
// plays it.
//
// A Deck is populated by Load, which decodes, converts to the deck rate and
// analyses the audio before committing anything. A failed or cancelled load
// leaves the previous track in place.
package deck
