// Package voice assigns synthesis voices to script sentences.
//
// Each role (female, male, korean) has a Policy: a fixed voice, a uniform
// random pick, or a round-robin rotation. A Caster walks a script's
// annotations in order and keeps per-run State so that voices rotate once per
// question and stay stable across untagged continuation lines.
package voice

import (
	"errors"
	"fmt"
	"strings"
)

// Role is a voice-selection bucket, independent of backend voice names.
type Role string

const (
	RoleFemale Role = "female"
	RoleMale   Role = "male"
	RoleKorean Role = "korean"
)

// Kind is the rule a Policy follows.
type Kind string

const (
	Fixed  Kind = "fixed"
	Random Kind = "random"
	Order  Kind = "order"
)

var (
	// ErrEmptyPolicy is returned when a role has no policy configured.
	ErrEmptyPolicy = errors.New("voice policy is empty")

	// ErrEmptyVoiceSet is returned when a rotating role has no voices.
	ErrEmptyVoiceSet = errors.New("voice set is empty")

	// ErrOverlappingVoiceSets is returned when female and male sets share a voice.
	ErrOverlappingVoiceSets = errors.New("female and male voice sets overlap")

	// ErrKoreanPolicy is returned when the korean role is not a fixed voice.
	ErrKoreanPolicy = errors.New("korean voice must be a fixed voice")
)

// Policy governs how a role's concrete voice is chosen.
type Policy struct {
	Kind  Kind
	Voice string // set when Kind is Fixed
}

// FixedVoice returns a policy that always selects voice.
func FixedVoice(voice string) Policy {
	return Policy{Kind: Fixed, Voice: voice}
}

// ParsePolicy reads "random", "order" (or its older spelling "sequential"),
// or any other non-empty string as a fixed voice identifier.
func ParsePolicy(s string) (Policy, error) {
	s = strings.TrimSpace(s)
	switch strings.ToLower(s) {
	case "":
		return Policy{}, ErrEmptyPolicy
	case "random":
		return Policy{Kind: Random}, nil
	case "order", "sequential":
		return Policy{Kind: Order}, nil
	default:
		return FixedVoice(s), nil
	}
}

// MustParsePolicy is like ParsePolicy but panics on error.
func MustParsePolicy(s string) Policy {
	p, err := ParsePolicy(s)
	if err != nil {
		panic(fmt.Sprintf("voice: %v", err))
	}
	return p
}

// Rotates reports whether the policy changes voice at question boundaries.
func (p Policy) Rotates() bool {
	return p.Kind == Random || p.Kind == Order
}

func (p Policy) String() string {
	if p.Kind == Fixed {
		return p.Voice
	}
	return string(p.Kind)
}

// Policies is the full per-run voice configuration.
type Policies struct {
	Korean Policy
	Female Policy
	Male   Policy
}

// Validate checks that every role has a usable policy.
func (p Policies) Validate() error {
	var errs []error
	for _, rp := range []struct {
		role Role
		p    Policy
	}{{RoleKorean, p.Korean}, {RoleFemale, p.Female}, {RoleMale, p.Male}} {
		switch {
		case rp.p.Kind == "":
			errs = append(errs, fmt.Errorf("%s: %w", rp.role, ErrEmptyPolicy))
		case rp.p.Kind == Fixed && strings.TrimSpace(rp.p.Voice) == "":
			errs = append(errs, fmt.Errorf("%s: %w", rp.role, ErrEmptyPolicy))
		}
	}
	if p.Korean.Kind != "" && p.Korean.Kind != Fixed {
		errs = append(errs, ErrKoreanPolicy)
	}
	return errors.Join(errs...)
}
