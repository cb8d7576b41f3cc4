package compile

import (
	"fmt"
	"time"

	"github.com/nadzzz/enlisten/internal/audio"
	"github.com/nadzzz/enlisten/internal/config"
	"github.com/nadzzz/enlisten/internal/script"
	"github.com/nadzzz/enlisten/internal/voice"
)

// Options are the run-level settings for a Compiler.
type Options struct {
	Speed        float64
	Policies     voice.Policies
	FemaleVoices []string
	MaleVoices   []string
	LineGap      time.Duration
	QuestionGap  time.Duration
	Announcer    script.Announcer
	Instructions string
	Container    audio.Container
	Disclosure   string

	// Seed fixes the random voice draws. Zero picks a fresh seed per run.
	Seed uint64

	// MaxSentences caps script length; zero means unlimited.
	MaxSentences int

	// SampleRate is the track rate every clip is resampled to. Zero keeps
	// the first clip's rate.
	SampleRate int
}

// DefaultOptions mirrors the configuration defaults.
func DefaultOptions() Options {
	return Options{
		Speed: 1.0,
		Policies: voice.Policies{
			Korean: voice.FixedVoice("nova"),
			Female: voice.FixedVoice("alloy"),
			Male:   voice.FixedVoice("echo"),
		},
		FemaleVoices: []string{"alloy", "fable", "nova", "shimmer"},
		MaleVoices:   []string{"echo", "onyx"},
		LineGap:      700 * time.Millisecond,
		QuestionGap:  10 * time.Second,
		Announcer:    script.DefaultAnnouncer(),
		Container:    audio.WAV,
		Disclosure:   config.DefaultDisclosure,
		SampleRate:   24000,
	}
}

// OptionsFromConfig converts configuration into compiler options. instructions
// is the backend style prompt, empty for backends that do not take one.
func OptionsFromConfig(cfg config.CompileConfig, instructions string) (Options, error) {
	if err := cfg.Validate(); err != nil {
		return Options{}, &ConfigurationError{Field: "compile", Err: err}
	}

	var pols voice.Policies
	for _, p := range []struct {
		field string
		raw   string
		dst   *voice.Policy
	}{
		{"korean_voice", cfg.KoreanVoice, &pols.Korean},
		{"female_voice", cfg.FemaleVoice, &pols.Female},
		{"male_voice", cfg.MaleVoice, &pols.Male},
	} {
		pol, err := voice.ParsePolicy(p.raw)
		if err != nil {
			return Options{}, &ConfigurationError{Field: p.field, Err: err}
		}
		*p.dst = pol
	}

	return Options{
		Speed:        cfg.Speed,
		Policies:     pols,
		FemaleVoices: cfg.Voices.Female,
		MaleVoices:   cfg.Voices.Male,
		LineGap:      cfg.LineGap,
		QuestionGap:  cfg.QuestionGap,
		Announcer: script.Announcer{
			Language: script.Language(cfg.Announce.Language),
			Numerals: script.Numerals(cfg.Announce.Numerals),
			Pause:    cfg.Announce.Pause,
		},
		Instructions: instructions,
		Container:    audio.Container(cfg.Container),
		Disclosure:   cfg.Disclosure,
		Seed:         cfg.Seed,
		MaxSentences: cfg.MaxSentences,
		SampleRate:   cfg.SampleRate,
	}, nil
}

// validate checks the settings that matter once a run starts.
func (o Options) validate() error {
	if o.Speed < config.MinSpeed || o.Speed > config.MaxSpeed {
		return &ConfigurationError{Field: "speed", Err: fmt.Errorf("%.2f not in [%.2f, %.2f]", o.Speed, config.MinSpeed, config.MaxSpeed)}
	}
	if o.LineGap < 0 {
		return &ConfigurationError{Field: "line_gap", Err: fmt.Errorf("negative duration %s", o.LineGap)}
	}
	if o.QuestionGap < 0 {
		return &ConfigurationError{Field: "question_gap", Err: fmt.Errorf("negative duration %s", o.QuestionGap)}
	}
	if err := o.Policies.Validate(); err != nil {
		return &ConfigurationError{Field: "voices", Err: err}
	}
	if o.SampleRate < 0 {
		return &ConfigurationError{Field: "sample_rate", Err: fmt.Errorf("negative rate %d", o.SampleRate)}
	}
	switch o.Container {
	case audio.WAV, audio.MP3:
	default:
		return &ConfigurationError{Field: "container", Err: fmt.Errorf("unsupported %q", o.Container)}
	}
	return nil
}
