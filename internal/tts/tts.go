// Package tts defines the interface for text-to-speech synthesis.
//
// The compiler calls a Synthesizer once per speakable sentence, passing the
// voice chosen for that sentence. Backends return a complete audio clip in a
// container the audio package can decode (raw PCM, WAV or MP3).
package tts

import (
	"context"
	"errors"
)

// Audio content types produced by synthesizers.
const (
	ContentTypePCM = "audio/pcm"
	ContentTypeWAV = "audio/wav"
	ContentTypeMP3 = "audio/mpeg"
)

// ErrEmptyText is returned when Synthesize is called with no text.
var ErrEmptyText = errors.New("empty text for synthesis")

// SynthesizeOpts controls synthesis behavior.
type SynthesizeOpts struct {
	// Voice is the backend voice identifier (e.g., "alloy", "en_US-lessac-medium").
	Voice string

	// Language is the coarse language of the text ("ko" or "en").
	Language string

	// Speed is the speaking-rate multiplier (1.0 is normal).
	Speed float64

	// Instructions is an optional style prompt for backends that accept one.
	Instructions string
}

// Synthesizer converts text to audio.
type Synthesizer interface {
	// Name returns the backend identifier (e.g., "openai", "piper").
	Name() string

	// Synthesize generates one audio clip for text.
	Synthesize(ctx context.Context, text string, opts SynthesizeOpts) (*SynthesizeResult, error)

	// Close releases any resources held by the synthesizer.
	Close() error
}

// SynthesizeResult holds the output of TTS synthesis.
type SynthesizeResult struct {
	// Audio is the encoded clip.
	Audio []byte

	// ContentType is the MIME type of Audio (one of the ContentType constants).
	ContentType string

	// SampleRate is the audio sample rate in Hz. Required for raw PCM.
	SampleRate int

	// Channels is the number of audio channels. Required for raw PCM.
	Channels int
}
