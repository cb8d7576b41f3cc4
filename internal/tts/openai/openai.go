// Package openai implements the TTS Synthesizer using OpenAI's speech API.
//
// Each call posts one sentence to /v1/audio/speech and returns the whole
// response body as a clip. Requests are paced with a token-bucket limiter so
// long scripts do not trip the account's rate limit.
package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/nadzzz/enlisten/internal/config"
	"github.com/nadzzz/enlisten/internal/tts"
)

const (
	defaultBaseURL = "https://api.openai.com/v1"

	// pcmSampleRate is the fixed rate of OpenAI's "pcm" response format (mono s16le).
	pcmSampleRate = 24000
)

// Synthesizer uses the OpenAI speech endpoint.
type Synthesizer struct {
	apiKey  string
	baseURL string
	model   string
	format  string
	client  *http.Client
	limiter *rate.Limiter
}

// New creates a new OpenAI synthesizer from config.
func New(cfg config.OpenAIConfig) *Synthesizer {
	base := strings.TrimRight(cfg.BaseURL, "/")
	if base == "" {
		base = defaultBaseURL
	}
	format := cfg.ResponseFormat
	if format == "" {
		format = "pcm"
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}

	limiter := rate.NewLimiter(rate.Inf, 1)
	if cfg.RequestsPerMinute > 0 {
		limiter = rate.NewLimiter(rate.Every(time.Minute/time.Duration(cfg.RequestsPerMinute)), 1)
	}

	return &Synthesizer{
		apiKey:  cfg.APIKey,
		baseURL: base,
		model:   cfg.Model,
		format:  format,
		client:  &http.Client{Timeout: timeout},
		limiter: limiter,
	}
}

// Name returns the backend identifier.
func (s *Synthesizer) Name() string { return "openai" }

// Synthesize sends text to the speech endpoint and returns the clip.
func (s *Synthesizer) Synthesize(ctx context.Context, text string, opts tts.SynthesizeOpts) (*tts.SynthesizeResult, error) {
	if strings.TrimSpace(text) == "" {
		return nil, tts.ErrEmptyText
	}
	if opts.Voice == "" {
		return nil, fmt.Errorf("no voice selected")
	}

	if err := s.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limit wait cancelled: %w", err)
	}

	reqBody := speechRequest{
		Model:          s.model,
		Input:          text,
		Voice:          opts.Voice,
		Speed:          opts.Speed,
		Instructions:   opts.Instructions,
		ResponseFormat: s.format,
	}
	bodyBytes, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("marshalling speech request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+"/audio/speech", bytes.NewReader(bodyBytes))
	if err != nil {
		return nil, fmt.Errorf("creating speech request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+s.apiKey)
	req.Header.Set("Content-Type", "application/json")

	slog.Debug("openai synthesize", "text_length", len(text), "voice", opts.Voice, "speed", opts.Speed, "format", s.format)

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("speech request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return nil, fmt.Errorf("speech failed (status %d): %s", resp.StatusCode, respBody)
	}

	audio, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading speech response: %w", err)
	}

	result := &tts.SynthesizeResult{
		Audio:       audio,
		ContentType: contentTypeForFormat(s.format),
	}
	if s.format == "pcm" {
		result.SampleRate = pcmSampleRate
		result.Channels = 1
	}
	return result, nil
}

// Close is a no-op for the OpenAI synthesizer.
func (s *Synthesizer) Close() error { return nil }

type speechRequest struct {
	Model          string  `json:"model"`
	Input          string  `json:"input"`
	Voice          string  `json:"voice"`
	Speed          float64 `json:"speed,omitempty"`
	Instructions   string  `json:"instructions,omitempty"`
	ResponseFormat string  `json:"response_format"`
}

func contentTypeForFormat(format string) string {
	switch format {
	case "wav":
		return tts.ContentTypeWAV
	case "mp3":
		return tts.ContentTypeMP3
	default:
		return tts.ContentTypePCM
	}
}
