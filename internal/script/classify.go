// Package script turns raw listening-test scripts into annotated sentences.
//
// A script is plain text where each logical sentence may carry a question
// number ("3.", "12번") and a speaker tag ("M:", "W:"). The package splits
// lines into sentences, strips those annotations, decides whether the
// remaining text is Korean or English, and renders the final string that is
// handed to speech synthesis.
package script

import (
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

// Language is the coarse language class of a text fragment.
type Language string

const (
	// Korean marks text dominated by Hangul syllables.
	Korean Language = "ko"

	// English marks everything else, including text with no letters at all.
	English Language = "en"
)

// Classify returns Korean when the text holds more Hangul syllables than
// ASCII Latin letters, and English otherwise. Ties resolve to English.
//
// This is a character-count heuristic, not a language detector.
func Classify(text string) Language {
	hangul, latin := countScripts(norm.NFC.String(text))
	if hangul > latin {
		return Korean
	}
	return English
}

// HasSpeakableText reports whether the text contains at least one Latin
// letter or Hangul syllable.
func HasSpeakableText(text string) bool {
	hangul, latin := countScripts(norm.NFC.String(text))
	return hangul+latin > 0
}

// HasSpokenContent reports whether text holds a letter or digit in any
// script. A sentence remainder without one, like the "." left over from
// "2번.", is not sent to synthesis; "1998." and "25,000." are.
func HasSpokenContent(text string) bool {
	return strings.IndexFunc(text, func(r rune) bool {
		return unicode.IsLetter(r) || unicode.IsDigit(r)
	}) >= 0
}

func countScripts(text string) (hangul, latin int) {
	for _, r := range text {
		switch {
		case isHangulSyllable(r):
			hangul++
		case isLatinLetter(r):
			latin++
		}
	}
	return hangul, latin
}

func isHangulSyllable(r rune) bool {
	return r >= '가' && r <= '힣'
}

func isLatinLetter(r rune) bool {
	return (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z')
}
