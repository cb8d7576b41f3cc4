// Package dispatch implements the request routing engine.
//
// The dispatcher receives compile requests from transports, resolves the
// request's settings over the configured defaults, runs a fresh compile and
// routes the result to any requested targets. The sender always receives
// the result.
package dispatch

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/nadzzz/enlisten/internal/compile"
	"github.com/nadzzz/enlisten/internal/config"
	"github.com/nadzzz/enlisten/internal/message"
	"github.com/nadzzz/enlisten/internal/transport"
	"github.com/nadzzz/enlisten/internal/tts"
)

// Dispatcher is the central routing engine.
type Dispatcher struct {
	synthesizer  tts.Synthesizer
	defaults     config.CompileConfig
	instructions string
	transports   map[string]transport.Transport
	inFlight     atomic.Int64
}

// New creates a Dispatcher that compiles with synthesizer using defaults.
// instructions is the style prompt passed to backends that accept one.
func New(synthesizer tts.Synthesizer, defaults config.CompileConfig, instructions string, transports []transport.Transport) *Dispatcher {
	tm := make(map[string]transport.Transport, len(transports))
	for _, t := range transports {
		tm[t.Name()] = t
	}
	return &Dispatcher{
		synthesizer:  synthesizer,
		defaults:     defaults,
		instructions: instructions,
		transports:   tm,
	}
}

// InFlight returns the number of requests currently being processed.
func (d *Dispatcher) InFlight() int64 {
	return d.inFlight.Load()
}

// Backend returns the synthesis backend name.
func (d *Dispatcher) Backend() string {
	return d.synthesizer.Name()
}

// Voices reports the configured voice catalog.
func (d *Dispatcher) Voices() message.VoiceCatalog {
	return message.VoiceCatalog{
		Backend: d.synthesizer.Name(),
		Korean:  d.defaults.KoreanVoice,
		Female:  d.defaults.Voices.Female,
		Male:    d.defaults.Voices.Male,
	}
}

// Resolve applies per-request overrides to the configured defaults.
func Resolve(defaults config.CompileConfig, s message.Settings) config.CompileConfig {
	cfg := defaults
	if s.Speed != 0 {
		cfg.Speed = s.Speed
	}
	if s.KoreanVoice != "" {
		cfg.KoreanVoice = s.KoreanVoice
	}
	if s.FemaleVoice != "" {
		cfg.FemaleVoice = s.FemaleVoice
	}
	if s.MaleVoice != "" {
		cfg.MaleVoice = s.MaleVoice
	}
	if s.LineGapMs != 0 {
		cfg.LineGap = time.Duration(s.LineGapMs) * time.Millisecond
	}
	if s.QuestionGapMs != 0 {
		cfg.QuestionGap = time.Duration(s.QuestionGapMs) * time.Millisecond
	}
	if s.Container != "" {
		cfg.Container = strings.ToLower(s.Container)
	}
	if s.Seed != 0 {
		cfg.Seed = s.Seed
	}
	if s.AnnounceLanguage != "" {
		cfg.Announce.Language = s.AnnounceLanguage
	}
	if s.Numerals != "" {
		cfg.Announce.Numerals = s.Numerals
	}
	if s.Pause != nil {
		cfg.Announce.Pause = *s.Pause
	}
	return cfg
}

// Compiler builds a compiler for one request.
func (d *Dispatcher) Compiler(s message.Settings) (*compile.Compiler, error) {
	opts, err := compile.OptionsFromConfig(Resolve(d.defaults, s), d.instructions)
	if err != nil {
		return nil, err
	}
	return compile.New(d.synthesizer, opts)
}

// Handle processes a single request through the full pipeline.
// This function is passed as the transport.Handler to each transport.
func (d *Dispatcher) Handle(ctx context.Context, req *message.CompileRequest) (*message.CompileResult, error) {
	d.inFlight.Add(1)
	defer d.inFlight.Add(-1)

	if req.ID == "" {
		req.ID = uuid.NewString()
	}
	start := time.Now()
	logger := slog.With("request_id", req.ID, "source", req.Source)
	logger.Info("dispatch started", "plan_only", req.PlanOnly, "script_bytes", len(req.Script))

	result := &message.CompileResult{RequestID: req.ID}

	c, err := d.Compiler(req.Settings)
	if err != nil {
		setError(result, err)
		logger.Error("invalid settings", "error", err)
		return result, nil
	}

	if req.PlanOnly {
		plan, err := c.Plan(req.Script)
		if err != nil {
			setError(result, err)
			logger.Error("planning failed", "error", err)
			return result, nil
		}
		result.Sentences = Cues(plan)
		logger.Info("plan complete", "sentences", len(result.Sentences), "duration", time.Since(start))
		return result, nil
	}

	art, err := c.Compile(ctx, req.Script)
	if err != nil {
		setError(result, err)
		logger.Error("compile failed", "error", err)
		return result, nil
	}
	result.RunID = art.RunID
	result.Sentences = Cues(art.Plan)
	result.SetAudioBytes(art.Audio)
	result.ContentType = art.ContentType
	result.DurationMs = art.Duration.Milliseconds()
	result.Chunks = art.Chunks
	result.LineGaps = art.LineGaps
	result.QuestionGaps = art.QuestionGaps
	result.Disclosure = art.Disclosure

	d.route(ctx, logger, req.Targets, result)

	logger.Info("dispatch complete", "duration", time.Since(start), "routed_to", len(result.RoutedTo))

	// The result is always returned to the sender via the transport that received the request.
	return result, nil
}

// route forwards result to each target whose protocol has a transport.
// Delivery failures are logged and never fail the request.
func (d *Dispatcher) route(ctx context.Context, logger *slog.Logger, targets []message.Target, result *message.CompileResult) {
	if len(targets) == 0 {
		return
	}
	payload, err := json.Marshal(result)
	if err != nil {
		logger.Error("marshalling result", "error", err)
		return
	}

	for _, target := range targets {
		t, ok := d.transports[target.Protocol]
		if !ok {
			logger.Warn("no transport for target protocol", "protocol", target.Protocol, "target", target.ServiceName)
			continue
		}

		if err := t.Send(ctx, target, payload); err != nil {
			logger.Error("failed to send to target", "target", target.ServiceName, "error", err)
			continue
		}

		result.RoutedTo = append(result.RoutedTo, target.ServiceName)
		logger.Info("routed to target", "target", target.ServiceName)
	}
}

// Cues converts a plan into the wire cue list.
func Cues(p *compile.Plan) []message.Cue {
	if p == nil {
		return nil
	}
	out := make([]message.Cue, len(p.Cues))
	for i, c := range p.Cues {
		out[i] = message.Cue{
			Index:     c.Index,
			Source:    c.Source,
			Speaker:   string(c.Speaker),
			Language:  string(c.Language),
			Voice:     c.Voice,
			Role:      string(c.Role),
			Boundary:  c.Boundary,
			Text:      c.Text,
			Speakable: c.Speakable,
		}
		if c.Question != nil {
			out[i].Question = c.Question.Number
		}
	}
	return out
}

func setError(r *message.CompileResult, err error) {
	r.Error = err.Error()
	r.ErrorKind = ErrorKind(err)
}

// ErrorKind classifies a compile error for callers. A backend call cut short
// by cancellation is reported as cancelled, not as a synthesis failure.
func ErrorKind(err error) string {
	var (
		cfgErr   *compile.ConfigurationError
		synthErr *compile.SynthesisError
		decErr   *compile.DecodeError
	)
	switch {
	case errors.Is(err, compile.ErrEmptyScript):
		return "empty_script"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "cancelled"
	case errors.As(err, &cfgErr):
		return "configuration"
	case errors.As(err, &synthErr):
		return "synthesis"
	case errors.As(err, &decErr):
		return "decode"
	default:
		return "internal"
	}
}

