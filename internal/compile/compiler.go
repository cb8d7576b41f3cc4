// Package compile turns a listening-test script into one audio track.
//
// A run plans the script (segment, annotate, cast, render), synthesizes each
// speakable cue in order and splices the clips with inter-line and
// inter-question silences. Runs are all-or-nothing: the first failure aborts
// the run and no partial track is returned.
package compile

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/google/uuid"

	"github.com/nadzzz/enlisten/internal/audio"
	"github.com/nadzzz/enlisten/internal/tts"
)

// Artifact is the exported result of a run.
type Artifact struct {
	RunID        string          `json:"run_id"`
	Audio        []byte          `json:"-"`
	ContentType  string          `json:"content_type"`
	Container    audio.Container `json:"container"`
	Format       audio.Format    `json:"format"`
	Duration     time.Duration   `json:"duration"`
	Sentences    int             `json:"sentences"`
	Chunks       int             `json:"chunks"`
	LineGaps     int             `json:"line_gaps"`
	QuestionGaps int             `json:"question_gaps"`
	Disclosure   string          `json:"disclosure"`
	Plan         *Plan           `json:"plan"`
}

// Compiler runs scripts against one synthesis backend. A Compiler holds no
// per-run state and may be used from several goroutines.
type Compiler struct {
	synth tts.Synthesizer
	opts  Options
}

// New validates opts and returns a Compiler.
func New(synth tts.Synthesizer, opts Options) (*Compiler, error) {
	if synth == nil {
		return nil, &ConfigurationError{Field: "backend", Err: fmt.Errorf("no synthesizer")}
	}
	if err := opts.validate(); err != nil {
		return nil, err
	}
	return &Compiler{synth: synth, opts: opts}, nil
}

// Options returns the compiler's settings.
func (c *Compiler) Options() Options { return c.opts }

// Plan previews the voice and text decisions for text without synthesizing.
func (c *Compiler) Plan(text string) (*Plan, error) {
	return c.buildPlan(text)
}

// Compile synthesizes text into a finished track.
func (c *Compiler) Compile(ctx context.Context, text string) (*Artifact, error) {
	runID := uuid.NewString()
	log := slog.With("run_id", runID, "backend", c.synth.Name())
	start := time.Now()

	plan, err := c.buildPlan(text)
	if err != nil {
		return nil, err
	}
	log.Info("compile started", "sentences", len(plan.Cues), "speakable", plan.Speakable, "questions", plan.Questions)

	tl := NewTimeline()
	for _, cue := range plan.Cues {
		if cue.Question != nil {
			tl.EnterQuestion(cue.Question.Number, c.opts.QuestionGap)
		}
		if !cue.Speakable {
			log.Debug("skipping unspeakable sentence", "index", cue.Index)
			continue
		}

		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("compile cancelled before sentence %d: %w", cue.Index, err)
		}

		res, err := c.synth.Synthesize(ctx, cue.Text, tts.SynthesizeOpts{
			Voice:        cue.Voice,
			Language:     string(cue.Language),
			Speed:        c.opts.Speed,
			Instructions: c.opts.Instructions,
		})
		if err == nil && (res == nil || len(res.Audio) == 0) {
			err = ErrNoAudio
		}
		if err != nil {
			return nil, &SynthesisError{Index: cue.Index, Voice: cue.Voice, Text: cue.Text, Err: err}
		}
		clip, err := audio.Decode(res)
		if err != nil {
			return nil, &DecodeError{Index: cue.Index, Err: err}
		}
		if c.opts.SampleRate > 0 {
			if clip, err = clip.Resample(c.opts.SampleRate); err != nil {
				return nil, &DecodeError{Index: cue.Index, Err: err}
			}
		}
		log.Debug("sentence synthesized", "index", cue.Index, "voice", cue.Voice, "duration", clip.Duration())

		tl.AppendClip(clip, c.opts.LineGap)
	}

	track, err := tl.Render()
	if err != nil {
		return nil, &DecodeError{Index: -1, Err: err}
	}
	encoded, err := audio.Encode(ctx, track, c.opts.Container)
	if err != nil {
		return nil, fmt.Errorf("encoding %s: %w", c.opts.Container, err)
	}

	art := &Artifact{
		RunID:        runID,
		Audio:        encoded,
		ContentType:  c.opts.Container.ContentType(),
		Container:    c.opts.Container,
		Format:       track.Format,
		Duration:     track.Duration(),
		Sentences:    len(plan.Cues),
		Chunks:       tl.Chunks(),
		LineGaps:     tl.LineGaps(),
		QuestionGaps: tl.QuestionGaps(),
		Disclosure:   c.opts.Disclosure,
		Plan:         plan,
	}
	log.Info("compile finished",
		"duration", art.Duration.Round(time.Millisecond),
		"chunks", art.Chunks,
		"question_gaps", art.QuestionGaps,
		"size", humanize.Bytes(uint64(len(encoded))),
		"elapsed", time.Since(start).Round(time.Millisecond),
	)
	return art, nil
}
