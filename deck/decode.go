package deck

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/go-audio/wav"

	"github.com/cwbudde/algo-djmix/dsp/core"
)

var (
	// ErrUnsupportedFormat is returned for data that is not integer PCM WAV.
	ErrUnsupportedFormat = errors.New("deck: unsupported audio format")

	// ErrEmptyAudio is returned for files without sample frames.
	ErrEmptyAudio = errors.New("deck: no audio frames")
)

const wavFormatPCM = 1

// DecodeError reports a file that could not be turned into PCM.
type DecodeError struct {
	Name string
	Err  error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("deck: decode %q: %v", e.Name, e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }

// Decode parses an integer PCM WAV file into a planar buffer with samples in
// [-1, 1). 8-bit files are unsigned and centred on 128.
func Decode(data []byte) (*core.Buffer, error) {
	dec := wav.NewDecoder(bytes.NewReader(data))
	if !dec.IsValidFile() {
		return nil, ErrUnsupportedFormat
	}

	if dec.WavAudioFormat != wavFormatPCM {
		return nil, fmt.Errorf("%w: wav format tag %d", ErrUnsupportedFormat, dec.WavAudioFormat)
	}

	pcm, err := dec.FullPCMBuffer()
	if err != nil {
		return nil, fmt.Errorf("read pcm: %w", err)
	}

	chans := pcm.Format.NumChannels
	if chans < 1 {
		return nil, ErrUnsupportedFormat
	}

	frames := len(pcm.Data) / chans
	if frames == 0 {
		return nil, ErrEmptyAudio
	}

	buf, err := core.NewBuffer(float64(pcm.Format.SampleRate), chans, frames)
	if err != nil {
		return nil, err
	}

	depth := int(dec.BitDepth)
	if depth < 8 || depth > 32 {
		return nil, fmt.Errorf("%w: %d-bit samples", ErrUnsupportedFormat, depth)
	}

	offset := 0.0
	scale := 1 / float64(int64(1)<<(depth-1))

	if depth == 8 {
		offset = 128
	}

	for i := range frames {
		for ch := range chans {
			buf.Channels[ch][i] = (float64(pcm.Data[i*chans+ch]) - offset) * scale
		}
	}

	return buf, nil
}
