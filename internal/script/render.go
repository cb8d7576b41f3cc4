package script

import (
	"fmt"
	"strconv"
	"strings"
)

// Numerals selects how question numbers are spelled in announcements.
type Numerals string

const (
	// Digits keeps the number as digits ("3번.") and leaves reading to the voice.
	Digits Numerals = "digits"

	// Words spells the number out ("삼번.", "Number three.").
	Words Numerals = "words"
)

// PauseMarker is spoken between an announcement and the question text when
// pauses are enabled. Synthesis engines read it as a short breath.
const PauseMarker = "'.....'"

// Announcer renders the final string handed to synthesis.
type Announcer struct {
	// Language is the language of the "question number" announcement.
	Language Language

	// Numerals controls digit vs. word rendering of the number.
	Numerals Numerals

	// Pause inserts PauseMarker on its own line after the announcement.
	Pause bool
}

// DefaultAnnouncer announces "N번." ahead of the question text.
func DefaultAnnouncer() Announcer {
	return Announcer{Language: Korean, Numerals: Digits}
}

// Render prefixes a spoken announcement for q (when non-nil) to the
// remainder. The second return value is false when the remainder is empty,
// in which case nothing should be synthesized.
func (an Announcer) Render(q *QuestionNumber, remainder string) (string, bool) {
	remainder = strings.TrimSpace(remainder)
	if remainder == "" {
		return "", false
	}
	if q == nil {
		return remainder, true
	}

	sep := " "
	if an.Pause {
		sep = "\n" + PauseMarker + "\n"
	}
	return an.Announce(q.Number) + sep + remainder, true
}

// Announce returns the announcement for question n alone.
func (an Announcer) Announce(n int) string {
	if an.Language == English {
		num := strconv.Itoa(n)
		if an.Numerals == Words {
			num = englishCardinal(n)
		}
		return fmt.Sprintf("Number %s.", num)
	}

	num := strconv.Itoa(n)
	if an.Numerals == Words {
		num = sinoKorean(n)
	}
	return num + "번."
}

var englishOnes = []string{
	"zero", "one", "two", "three", "four", "five", "six", "seven", "eight", "nine",
	"ten", "eleven", "twelve", "thirteen", "fourteen", "fifteen", "sixteen",
	"seventeen", "eighteen", "nineteen",
}

var englishTens = []string{
	"", "", "twenty", "thirty", "forty", "fifty", "sixty", "seventy", "eighty", "ninety",
}

// englishCardinal spells 0..99; larger values fall back to digits.
func englishCardinal(n int) string {
	switch {
	case n < 0 || n > 99:
		return strconv.Itoa(n)
	case n < 20:
		return englishOnes[n]
	case n%10 == 0:
		return englishTens[n/10]
	default:
		return englishTens[n/10] + "-" + englishOnes[n%10]
	}
}

var koreanDigits = []string{"영", "일", "이", "삼", "사", "오", "육", "칠", "팔", "구"}

// sinoKorean spells 0..99 with Sino-Korean numerals; larger values fall back to digits.
func sinoKorean(n int) string {
	switch {
	case n < 0 || n > 99:
		return strconv.Itoa(n)
	case n < 10:
		return koreanDigits[n]
	}

	var b strings.Builder
	if tens := n / 10; tens > 1 {
		b.WriteString(koreanDigits[tens])
	}
	b.WriteString("십")
	if ones := n % 10; ones > 0 {
		b.WriteString(koreanDigits[ones])
	}
	return b.String()
}
