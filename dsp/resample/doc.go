// Package resample converts decoded audio between sample rates with a
// polyphase Kaiser-windowed sinc filter.
//
// Decks and impulse responses arrive at whatever rate the file was written
// in; ConvertBuffer brings them to the session rate once, at load time.
// Converter is the streaming form for block-wise use.
package resample
