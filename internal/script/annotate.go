package script

import (
	"regexp"
	"strconv"
	"strings"
	"unicode"
)

// Speaker is the gender role named by a speaker tag.
type Speaker string

const (
	// NoSpeaker means the sentence carries no speaker tag.
	NoSpeaker Speaker = ""

	// Male is selected by an "M:" tag.
	Male Speaker = "male"

	// Female is selected by a "W:" tag.
	Female Speaker = "female"
)

// QuestionNumber is a question-number annotation such as "3.", "12 번" or "7".
type QuestionNumber struct {
	// Token is the exact text that was matched, trimmed.
	Token string `json:"token"`

	// Number is the numeric value of the token's digits.
	Number int `json:"number"`
}

// Annotation is everything derived from a single sentence.
type Annotation struct {
	Question *QuestionNumber `json:"question,omitempty"`
	Speaker  Speaker         `json:"speaker,omitempty"`
	Language Language        `json:"language"`

	// Text is the residual spoken text after annotations were stripped.
	Text string `json:"text"`
}

var (
	questionPattern = regexp.MustCompile(`^(\d{1,2})(\s*\.?\s*번?)`)
	speakerPattern  = regexp.MustCompile(`^([MW])\s*:`)
)

// matcher consumes one leading marker from a left-trimmed sentence.
// It returns the number of bytes consumed and whether it matched.
type matcher interface {
	match(text string, a *Annotation) (consumed int, ok bool)
}

type questionMatcher struct{}

func (questionMatcher) match(text string, a *Annotation) (int, bool) {
	loc := questionPattern.FindStringSubmatchIndex(text)
	if loc == nil {
		return 0, false
	}
	// "2024 was..." must not be read as question 20.
	if next := loc[3]; next < len(text) && isASCIIDigit(text[next]) {
		return 0, false
	}
	n, err := strconv.Atoi(text[loc[2]:loc[3]])
	if err != nil {
		return 0, false
	}
	a.Question = &QuestionNumber{
		Token:  strings.TrimSpace(text[loc[0]:loc[1]]),
		Number: n,
	}
	return loc[1], true
}

type speakerMatcher struct{}

func (speakerMatcher) match(text string, a *Annotation) (int, bool) {
	loc := speakerPattern.FindStringSubmatchIndex(text)
	if loc == nil {
		return 0, false
	}
	if text[loc[2]:loc[3]] == "M" {
		a.Speaker = Male
	} else {
		a.Speaker = Female
	}
	return loc[1], true
}

// annotators run in order; each may consume its own leading marker.
var annotators = []matcher{questionMatcher{}, speakerMatcher{}}

// ExtractQuestionNumber strips a leading question number from text.
// When none is present it returns nil and the left-trimmed text.
func ExtractQuestionNumber(text string) (*QuestionNumber, string) {
	var a Annotation
	rest, _ := apply(questionMatcher{}, strings.TrimLeftFunc(text, unicode.IsSpace), &a)
	return a.Question, rest
}

// ExtractSpeaker strips a leading "M:" or "W:" tag from text.
func ExtractSpeaker(text string) (Speaker, string) {
	var a Annotation
	rest, _ := apply(speakerMatcher{}, strings.TrimLeftFunc(text, unicode.IsSpace), &a)
	return a.Speaker, rest
}

// Annotate extracts the question number, then the speaker tag, and
// classifies the language of what is left.
func Annotate(s Sentence) Annotation {
	var a Annotation
	rest := strings.TrimLeftFunc(s.Text, unicode.IsSpace)
	for _, m := range annotators {
		rest, _ = apply(m, rest, &a)
	}
	a.Text = strings.TrimSpace(rest)
	a.Language = Classify(a.Text)
	return a
}

func apply(m matcher, text string, a *Annotation) (string, bool) {
	n, ok := m.match(text, a)
	if !ok {
		return strings.TrimSpace(text), false
	}
	return strings.TrimSpace(text[n:]), true
}

func isASCIIDigit(b byte) bool {
	return b >= '0' && b <= '9'
}
