package voice

import (
	"fmt"
	"math/rand/v2"
	"slices"
)

// State is the mutable voice state of one compilation run. It is created
// fresh per run and must not be shared between runs.
type State struct {
	// FemaleSequence and MaleSequence are the rotation counters.
	FemaleSequence int
	MaleSequence   int

	// CurrentFemale and CurrentMale are the voices last assigned to each role.
	CurrentFemale string
	CurrentMale   string

	// Active is the voice used by the most recent sentence.
	Active string
}

func (s *State) counter(role Role) *int {
	if role == RoleMale {
		return &s.MaleSequence
	}
	return &s.FemaleSequence
}

func (s *State) current(role Role) *string {
	if role == RoleMale {
		return &s.CurrentMale
	}
	return &s.CurrentFemale
}

// Selector maps (role, policy, state) to a concrete voice.
type Selector struct {
	female []string
	male   []string
	rng    *rand.Rand
}

// NewSelector builds a selector over disjoint, non-empty voice sets.
// rng drives the random policy; a nil rng uses a randomly seeded source.
func NewSelector(female, male []string, rng *rand.Rand) (*Selector, error) {
	if len(female) == 0 {
		return nil, fmt.Errorf("%s: %w", RoleFemale, ErrEmptyVoiceSet)
	}
	if len(male) == 0 {
		return nil, fmt.Errorf("%s: %w", RoleMale, ErrEmptyVoiceSet)
	}
	for _, v := range female {
		if slices.Contains(male, v) {
			return nil, fmt.Errorf("%w: %q", ErrOverlappingVoiceSets, v)
		}
	}
	if rng == nil {
		rng = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	return &Selector{
		female: slices.Clone(female),
		male:   slices.Clone(male),
		rng:    rng,
	}, nil
}

// Voices returns the voice set of a gender role.
func (s *Selector) Voices(role Role) []string {
	if role == RoleMale {
		return s.male
	}
	return s.female
}

// Select returns the voice for role under policy. Random draws a fresh
// voice on every call; order indexes the role's set by its rotation counter.
func (s *Selector) Select(role Role, p Policy, st *State) string {
	switch p.Kind {
	case Random:
		set := s.Voices(role)
		return set[s.rng.IntN(len(set))]
	case Order:
		set := s.Voices(role)
		return set[*st.counter(role)%len(set)]
	default:
		return p.Voice
	}
}

// Advance bumps the rotation counter of role. It is a no-op for fixed policies.
func (s *Selector) Advance(role Role, p Policy, st *State) {
	if !p.Rotates() {
		return
	}
	*st.counter(role)++
}
