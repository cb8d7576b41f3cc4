// Package ttstest provides an in-memory tts.Synthesizer for tests.
package ttstest

import (
	"context"
	"encoding/binary"
	"sync"

	"github.com/nadzzz/enlisten/internal/tts"
)

// SampleRate of every clip the fake returns.
const SampleRate = 24000

// Synthesizer returns a short tone of raw PCM per call and records the
// requests it receives. Err, when set, is returned from every call.
type Synthesizer struct {
	// Samples per clip; zero means 240 (10 ms).
	Samples int
	Err     error

	mu    sync.Mutex
	texts []string
	opts  []tts.SynthesizeOpts
}

func (s *Synthesizer) Name() string { return "fake" }
func (s *Synthesizer) Close() error { return nil }

func (s *Synthesizer) Synthesize(_ context.Context, text string, opts tts.SynthesizeOpts) (*tts.SynthesizeResult, error) {
	s.mu.Lock()
	s.texts = append(s.texts, text)
	s.opts = append(s.opts, opts)
	s.mu.Unlock()

	if s.Err != nil {
		return nil, s.Err
	}
	n := s.Samples
	if n == 0 {
		n = 240
	}
	pcm := make([]byte, 2*n)
	for i := 0; i < n; i++ {
		binary.LittleEndian.PutUint16(pcm[2*i:], uint16(1000))
	}
	return &tts.SynthesizeResult{
		Audio:       pcm,
		ContentType: tts.ContentTypePCM,
		SampleRate:  SampleRate,
		Channels:    1,
	}, nil
}

// Texts returns the texts synthesized so far.
func (s *Synthesizer) Texts() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.texts...)
}

// Voices returns the voice of each call so far.
func (s *Synthesizer) Voices() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, len(s.opts))
	for i, o := range s.opts {
		out[i] = o.Voice
	}
	return out
}
