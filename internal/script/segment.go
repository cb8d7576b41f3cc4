package script

import (
	"strings"
)

// Sentence is one logical utterance built from one or more script lines.
type Sentence struct {
	// Index is the zero-based position of the sentence in the script.
	Index int `json:"index"`

	// Text is the merged, trimmed sentence text including any annotations.
	Text string `json:"text"`
}

// SplitLines splits raw script text into lines, accepting both \n and \r\n.
func SplitLines(raw string) []string {
	raw = strings.ReplaceAll(raw, "\r\n", "\n")
	return strings.Split(raw, "\n")
}

// Segment merges lines into sentences. A sentence ends on a line whose
// trimmed text ends in '.', '?' or '!'; any trailing text left over after the
// last line is emitted as a final sentence.
//
// Blank lines only contribute a separating space, so paragraphs broken by
// empty lines mid-utterance are joined rather than split.
func Segment(lines []string) []Sentence {
	var (
		sentences []Sentence
		acc       strings.Builder
	)

	flush := func() {
		text := strings.Join(strings.Fields(acc.String()), " ")
		acc.Reset()
		if text == "" {
			return
		}
		sentences = append(sentences, Sentence{Index: len(sentences), Text: text})
	}

	for _, line := range lines {
		line = strings.TrimSpace(line)
		acc.WriteByte(' ')
		acc.WriteString(line)
		if endsSentence(line) {
			flush()
		}
	}
	flush()

	return sentences
}

func endsSentence(line string) bool {
	return strings.HasSuffix(line, ".") ||
		strings.HasSuffix(line, "?") ||
		strings.HasSuffix(line, "!")
}
