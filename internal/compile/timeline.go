package compile

import (
	"fmt"
	"time"

	"github.com/nadzzz/enlisten/internal/audio"
)

// segment is either a synthesized clip or a stretch of silence.
type segment struct {
	clip    *audio.Clip
	silence time.Duration
}

// Timeline accumulates the segments of one run in playing order.
// Silences are stored as durations and rendered in the track format once
// the first clip fixes it.
type Timeline struct {
	segments []segment

	question     int
	seenQuestion bool
	chunks       int
	lineGaps     int
	questionGaps int
}

// NewTimeline returns an empty timeline.
func NewTimeline() *Timeline {
	return &Timeline{}
}

// EnterQuestion records question n. When n opens a new question and a
// previous one exists, gap is appended and true is returned.
func (t *Timeline) EnterQuestion(n int, gap time.Duration) bool {
	if !t.seenQuestion {
		t.seenQuestion = true
		t.question = n
		return false
	}
	if n == t.question {
		return false
	}
	t.question = n
	t.segments = append(t.segments, segment{silence: gap})
	t.questionGaps++
	return true
}

// AppendClip appends a clip followed by the inter-line gap.
func (t *Timeline) AppendClip(c *audio.Clip, gap time.Duration) {
	t.segments = append(t.segments, segment{clip: c}, segment{silence: gap})
	t.chunks++
	t.lineGaps++
}

// Chunks returns the number of clips appended.
func (t *Timeline) Chunks() int { return t.chunks }

// LineGaps returns the number of inter-line silences appended.
func (t *Timeline) LineGaps() int { return t.lineGaps }

// QuestionGaps returns the number of inter-question silences appended.
func (t *Timeline) QuestionGaps() int { return t.questionGaps }

// Render joins all segments into one clip in the format of the first clip.
func (t *Timeline) Render() (*audio.Clip, error) {
	var format audio.Format
	for _, s := range t.segments {
		if s.clip != nil {
			format = s.clip.Format
			break
		}
	}
	if format.SampleRate == 0 {
		return nil, ErrEmptyScript
	}

	clips := make([]*audio.Clip, 0, len(t.segments))
	for _, s := range t.segments {
		if s.clip != nil {
			clips = append(clips, s.clip)
		} else {
			clips = append(clips, audio.Silence(format, s.silence))
		}
	}
	out, err := audio.Concat(clips...)
	if err != nil {
		return nil, fmt.Errorf("joining %d segments: %w", len(clips), err)
	}
	return out, nil
}
