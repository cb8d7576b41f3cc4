// Package message defines the data types flowing between transports and the
// dispatcher.
package message

import (
	"encoding/base64"
	"time"
)

// CompileRequest represents an incoming compile request from any transport.
type CompileRequest struct {
	// ID is a unique identifier for this request (UUID). Transports assign one
	// when the caller does not.
	ID string `json:"id"`

	// Source identifies the sender (e.g., "classroom-pc", "lms-worker").
	Source string `json:"source,omitempty"`

	// Script is the annotated listening-test script.
	Script string `json:"script"`

	// Settings override the configured compile defaults for this request.
	Settings Settings `json:"settings,omitempty"`

	// PlanOnly skips synthesis and returns the cue list alone.
	PlanOnly bool `json:"plan_only,omitempty"`

	// Targets lists additional services that should receive the result.
	// The original sender always receives the result regardless of this list.
	Targets []Target `json:"targets,omitempty"`

	// ReplyTo is a transport-specific reply address (an MQTT topic).
	ReplyTo string `json:"reply_to,omitempty"`

	// Timestamp is when the request was received.
	Timestamp time.Time `json:"timestamp"`
}

// Settings are per-request overrides. Zero values keep the configured default.
type Settings struct {
	Speed         float64 `json:"speed,omitempty"`
	KoreanVoice   string  `json:"korean_voice,omitempty"`
	FemaleVoice   string  `json:"female_voice,omitempty"` // voice name, "random" or "order"
	MaleVoice     string  `json:"male_voice,omitempty"`
	LineGapMs     int     `json:"line_gap_ms,omitempty"`
	QuestionGapMs int     `json:"question_gap_ms,omitempty"`
	Container     string  `json:"container,omitempty"` // wav or mp3
	Seed          uint64  `json:"seed,omitempty"`

	// Announce overrides how question numbers are spoken.
	AnnounceLanguage string `json:"announce_language,omitempty"` // ko or en
	Numerals         string `json:"numerals,omitempty"`          // digits or words
	Pause            *bool  `json:"pause,omitempty"`
}

// Target defines a downstream service that should receive the result.
type Target struct {
	// ServiceName is a human-readable identifier (e.g., "lms", "archive").
	ServiceName string `json:"service_name"`

	// Endpoint is the address to reach this target (URL, host:port or MQTT topic).
	Endpoint string `json:"endpoint"`

	// Protocol is the protocol to use ("http", "grpc", "mqtt").
	Protocol string `json:"protocol"`
}

// Cue is one planned sentence as reported to callers.
type Cue struct {
	Index     int    `json:"index"`
	Source    string `json:"source"`
	Question  int    `json:"question,omitempty"`
	Speaker   string `json:"speaker,omitempty"`
	Language  string `json:"language"`
	Voice     string `json:"voice"`
	Role      string `json:"role"`
	Boundary  bool   `json:"boundary,omitempty"`
	Text      string `json:"text"`
	Speakable bool   `json:"speakable"`
}

// CompileResult is the outcome of processing a request.
type CompileResult struct {
	// RequestID is the original request ID.
	RequestID string `json:"request_id"`

	// RunID identifies the compile run in logs.
	RunID string `json:"run_id,omitempty"`

	// Sentences is the cue list the track was built from.
	Sentences []Cue `json:"sentences"`

	// Audio is the finished track as a base64-encoded string.
	Audio string `json:"audio,omitempty"`

	// ContentType is the MIME type of Audio (e.g., "audio/wav").
	ContentType string `json:"content_type,omitempty"`

	DurationMs   int64 `json:"duration_ms,omitempty"`
	Chunks       int   `json:"chunks,omitempty"`
	LineGaps     int   `json:"line_gaps,omitempty"`
	QuestionGaps int   `json:"question_gaps,omitempty"`

	// Disclosure states that the voice is AI-generated.
	Disclosure string `json:"disclosure,omitempty"`

	// RoutedTo lists the targets that received the result.
	RoutedTo []string `json:"routed_to,omitempty"`

	// Error is set if processing failed at any stage.
	Error string `json:"error,omitempty"`

	// ErrorKind classifies Error ("configuration", "synthesis", "decode", "empty_script", "cancelled", "internal").
	ErrorKind string `json:"error_kind,omitempty"`
}

// SetAudioBytes base64-encodes raw audio bytes into Audio.
func (r *CompileResult) SetAudioBytes(audio []byte) {
	if len(audio) > 0 {
		r.Audio = base64.StdEncoding.EncodeToString(audio)
	}
}

// AudioBytes decodes Audio.
func (r *CompileResult) AudioBytes() ([]byte, error) {
	return base64.StdEncoding.DecodeString(r.Audio)
}

// VoiceCatalog lists the voices available to the random and order policies.
type VoiceCatalog struct {
	Backend string   `json:"backend"`
	Korean  string   `json:"korean"`
	Female  []string `json:"female"`
	Male    []string `json:"male"`
}
