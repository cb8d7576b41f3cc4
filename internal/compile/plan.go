package compile

import (
	"fmt"
	"math/rand/v2"

	"github.com/nadzzz/enlisten/internal/script"
	"github.com/nadzzz/enlisten/internal/voice"
)

// Cue is one sentence after annotation, casting and rendering.
type Cue struct {
	Index     int                    `json:"index"`
	Source    string                 `json:"source"`
	Question  *script.QuestionNumber `json:"question,omitempty"`
	Speaker   script.Speaker         `json:"speaker,omitempty"`
	Language  script.Language        `json:"language"`
	Voice     string                 `json:"voice"`
	Role      voice.Role             `json:"role"`
	Boundary  bool                   `json:"boundary,omitempty"`
	Text      string                 `json:"text"`
	Speakable bool                   `json:"speakable"`
}

// Plan is the full cue list for a script, ready for synthesis.
type Plan struct {
	Cues      []Cue       `json:"cues"`
	Speakable int         `json:"speakable"`
	Questions int         `json:"questions"`
	Voices    voice.State `json:"-"`
}

// buildPlan runs segmentation, annotation, casting and rendering. Each call
// owns a fresh selector state.
func (c *Compiler) buildPlan(text string) (*Plan, error) {
	if !script.HasSpeakableText(text) {
		return nil, ErrEmptyScript
	}

	sentences := script.Segment(script.SplitLines(text))
	if c.opts.MaxSentences > 0 && len(sentences) > c.opts.MaxSentences {
		return nil, &ConfigurationError{
			Field: "script",
			Err:   fmt.Errorf("%d sentences exceeds the limit of %d", len(sentences), c.opts.MaxSentences),
		}
	}

	var rng *rand.Rand
	if c.opts.Seed != 0 {
		rng = rand.New(rand.NewPCG(c.opts.Seed, c.opts.Seed>>1|1))
	}
	sel, err := voice.NewSelector(c.opts.FemaleVoices, c.opts.MaleVoices, rng)
	if err != nil {
		return nil, &ConfigurationError{Field: "voices", Err: err}
	}
	caster, err := voice.NewCaster(sel, c.opts.Policies)
	if err != nil {
		return nil, &ConfigurationError{Field: "voices", Err: err}
	}

	plan := &Plan{Cues: make([]Cue, 0, len(sentences))}
	for _, s := range sentences {
		a := script.Annotate(s)
		cast := caster.Cast(a)
		rendered, speakable := c.opts.Announcer.Render(a.Question, a.Text)
		// A remainder of bare punctuation ("2번." leaves ".") is not spoken.
		speakable = speakable && script.HasSpokenContent(a.Text)

		plan.Cues = append(plan.Cues, Cue{
			Index:     s.Index,
			Source:    s.Text,
			Question:  a.Question,
			Speaker:   a.Speaker,
			Language:  a.Language,
			Voice:     cast.Voice,
			Role:      cast.Role,
			Boundary:  cast.Boundary,
			Text:      rendered,
			Speakable: speakable,
		})
		if speakable {
			plan.Speakable++
		}
		if cast.Boundary {
			plan.Questions++
		}
	}
	plan.Voices = caster.State()

	if plan.Speakable == 0 {
		return nil, ErrEmptyScript
	}
	return plan, nil
}
