// Package audio decodes synthesized clips into PCM, joins them with silences
// and encodes the finished track.
//
// All processing is done on interleaved signed 16-bit samples; that is what
// every supported backend produces natively.
package audio

import (
	"errors"
	"fmt"
	"math"
	"time"
)

// ErrFormatMismatch is returned when clips with different sample rates are
// joined.
var ErrFormatMismatch = errors.New("audio format mismatch")

// Format describes interleaved 16-bit PCM.
type Format struct {
	SampleRate int
	Channels   int
}

func (f Format) String() string {
	return fmt.Sprintf("%dHz/%dch", f.SampleRate, f.Channels)
}

// Clip is a run of interleaved 16-bit samples.
type Clip struct {
	Format  Format
	Samples []int16
}

// Frames returns the number of sample frames (samples per channel).
func (c *Clip) Frames() int {
	if c.Format.Channels <= 0 {
		return 0
	}
	return len(c.Samples) / c.Format.Channels
}

// Duration returns the playing time of the clip.
func (c *Clip) Duration() time.Duration {
	if c.Format.SampleRate <= 0 {
		return 0
	}
	return time.Duration(c.Frames()) * time.Second / time.Duration(c.Format.SampleRate)
}

// Silence returns d of digital silence in format f.
func Silence(f Format, d time.Duration) *Clip {
	frames := int(int64(d) * int64(f.SampleRate) / int64(time.Second))
	if frames < 0 {
		frames = 0
	}
	return &Clip{Format: f, Samples: make([]int16, frames*f.Channels)}
}

// Convert returns c with its channel count changed to channels. Mono is
// duplicated to stereo; stereo is averaged down to mono.
func (c *Clip) Convert(channels int) (*Clip, error) {
	switch {
	case c.Format.Channels == channels:
		return c, nil
	case c.Format.Channels == 1 && channels == 2:
		out := make([]int16, len(c.Samples)*2)
		for i, s := range c.Samples {
			out[2*i] = s
			out[2*i+1] = s
		}
		return &Clip{Format: Format{SampleRate: c.Format.SampleRate, Channels: 2}, Samples: out}, nil
	case c.Format.Channels == 2 && channels == 1:
		out := make([]int16, len(c.Samples)/2)
		for i := range out {
			out[i] = int16((int32(c.Samples[2*i]) + int32(c.Samples[2*i+1])) / 2)
		}
		return &Clip{Format: Format{SampleRate: c.Format.SampleRate, Channels: 1}, Samples: out}, nil
	default:
		return nil, fmt.Errorf("%w: cannot convert %d channels to %d", ErrFormatMismatch, c.Format.Channels, channels)
	}
}

// Resample returns c converted to rate by linear interpolation between
// neighbouring frames. The channel count is kept.
func (c *Clip) Resample(rate int) (*Clip, error) {
	if rate <= 0 {
		return nil, fmt.Errorf("%w: invalid target rate %d", ErrFormatMismatch, rate)
	}
	if c.Format.SampleRate == rate {
		return c, nil
	}
	if c.Format.SampleRate <= 0 || c.Format.Channels <= 0 {
		return nil, fmt.Errorf("%w: cannot resample %s", ErrFormatMismatch, c.Format)
	}

	ch := c.Format.Channels
	in := c.Frames()
	n := int(int64(in) * int64(rate) / int64(c.Format.SampleRate))
	out := make([]int16, n*ch)
	step := float64(c.Format.SampleRate) / float64(rate)
	for i := 0; i < n; i++ {
		pos := float64(i) * step
		j := int(pos)
		frac := pos - float64(j)
		k := min(j+1, in-1)
		for x := 0; x < ch; x++ {
			a := float64(c.Samples[j*ch+x])
			b := float64(c.Samples[k*ch+x])
			out[i*ch+x] = int16(math.Round(a + (b-a)*frac))
		}
	}
	return &Clip{Format: Format{SampleRate: rate, Channels: ch}, Samples: out}, nil
}

// Concat joins clips in order. The result uses the first clip's format;
// later clips are converted to its channel count. A differing sample rate
// is an error.
func Concat(clips ...*Clip) (*Clip, error) {
	if len(clips) == 0 {
		return &Clip{}, nil
	}
	format := clips[0].Format

	total := 0
	for _, c := range clips {
		total += c.Frames() * format.Channels
	}
	out := make([]int16, 0, total)

	for i, c := range clips {
		if c.Format.SampleRate != format.SampleRate {
			return nil, fmt.Errorf("%w: clip %d is %s, track is %s", ErrFormatMismatch, i, c.Format, format)
		}
		conv, err := c.Convert(format.Channels)
		if err != nil {
			return nil, fmt.Errorf("clip %d: %w", i, err)
		}
		out = append(out, conv.Samples...)
	}
	return &Clip{Format: format, Samples: out}, nil
}
