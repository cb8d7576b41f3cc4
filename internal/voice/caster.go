package voice

import (
	"github.com/nadzzz/enlisten/internal/script"
)

// Casting is the voice decision for one sentence.
type Casting struct {
	Voice string `json:"voice"`
	Role  Role   `json:"role"`

	// Boundary is true when the sentence opened a new question.
	Boundary bool `json:"boundary,omitempty"`

	// Continued is true when the voice was carried over from the previous sentence.
	Continued bool `json:"continued,omitempty"`
}

// Caster applies voice policies across the sentences of one run.
type Caster struct {
	sel      *Selector
	policies Policies
	state    State
	role     Role
	question *int
}

// NewCaster starts a run: rotation counters are zero and each gender role's
// current voice is selected once up front.
func NewCaster(sel *Selector, policies Policies) (*Caster, error) {
	if err := policies.Validate(); err != nil {
		return nil, err
	}
	c := &Caster{sel: sel, policies: policies}
	c.state.CurrentFemale = sel.Select(RoleFemale, policies.Female, &c.state)
	c.state.CurrentMale = sel.Select(RoleMale, policies.Male, &c.state)
	return c, nil
}

// State returns a copy of the run's current voice state.
func (c *Caster) State() State {
	return c.state
}

// Cast decides the voice for the next sentence.
//
// A new question number rotates every random/order role. An explicit speaker
// tag selects that role's current voice, Korean text without a tag uses the
// korean voice, and anything else keeps the previous sentence's voice
// (falling back to the female voice when there is none yet). A question
// number alone never switches the active voice.
func (c *Caster) Cast(a script.Annotation) Casting {
	var out Casting

	if a.Question != nil && (c.question == nil || *c.question != a.Question.Number) {
		n := a.Question.Number
		c.question = &n
		c.rotate(RoleFemale, c.policies.Female)
		c.rotate(RoleMale, c.policies.Male)
		out.Boundary = true
	}

	switch {
	case a.Speaker == script.Female:
		c.activate(RoleFemale, c.state.CurrentFemale)
	case a.Speaker == script.Male:
		c.activate(RoleMale, c.state.CurrentMale)
	case a.Language == script.Korean:
		c.activate(RoleKorean, c.policies.Korean.Voice)
	case c.state.Active == "":
		c.activate(RoleFemale, c.state.CurrentFemale)
	default:
		out.Continued = true
	}

	out.Voice = c.state.Active
	out.Role = c.role
	return out
}

func (c *Caster) rotate(role Role, p Policy) {
	if !p.Rotates() {
		return
	}
	c.sel.Advance(role, p, &c.state)
	*c.state.current(role) = c.sel.Select(role, p, &c.state)
}

func (c *Caster) activate(role Role, v string) {
	c.role = role
	c.state.Active = v
}
