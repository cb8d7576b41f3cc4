package compile

import (
	"errors"
	"fmt"
)

// ErrEmptyScript is returned when a script has no speakable text.
var ErrEmptyScript = errors.New("script contains no speakable text")

// ErrNoAudio is wrapped in a SynthesisError when a backend answers with an
// empty body.
var ErrNoAudio = errors.New("backend returned no audio")

// ConfigurationError reports an invalid run setting. It is raised before any
// synthesis happens.
type ConfigurationError struct {
	Field string
	Err   error
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("invalid %s: %v", e.Field, e.Err)
}

func (e *ConfigurationError) Unwrap() error { return e.Err }

// SynthesisError reports a failed backend call for one sentence.
type SynthesisError struct {
	Index int // sentence index in the script
	Voice string
	Text  string
	Err   error
}

func (e *SynthesisError) Error() string {
	return fmt.Sprintf("synthesizing sentence %d (voice %s): %v", e.Index, e.Voice, e.Err)
}

func (e *SynthesisError) Unwrap() error { return e.Err }

// DecodeError reports audio that could not be decoded or joined.
type DecodeError struct {
	Index int // sentence index, -1 when the failure is not tied to one sentence
	Err   error
}

func (e *DecodeError) Error() string {
	if e.Index < 0 {
		return fmt.Sprintf("assembling audio: %v", e.Err)
	}
	return fmt.Sprintf("decoding audio for sentence %d: %v", e.Index, e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }
