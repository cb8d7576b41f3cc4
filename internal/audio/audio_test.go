package audio

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/nadzzz/enlisten/internal/tts"
)

var mono24k = Format{SampleRate: 24000, Channels: 1}

func TestSilence(t *testing.T) {
	tests := []struct {
		name   string
		format Format
		d      time.Duration
		want   int
	}{
		{"line gap mono", mono24k, 700 * time.Millisecond, 16800},
		{"question gap mono", mono24k, 10 * time.Second, 240000},
		{"stereo", Format{SampleRate: 44100, Channels: 2}, time.Second, 88200},
		{"zero", mono24k, 0, 0},
		{"negative", mono24k, -time.Second, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := Silence(tt.format, tt.d)
			if len(c.Samples) != tt.want {
				t.Errorf("samples = %d, want %d", len(c.Samples), tt.want)
			}
			for _, s := range c.Samples {
				if s != 0 {
					t.Fatal("silence contains non-zero sample")
				}
			}
			if tt.d > 0 && c.Duration() != tt.d {
				t.Errorf("duration = %v, want %v", c.Duration(), tt.d)
			}
		})
	}
}

func TestDecodePCM(t *testing.T) {
	res := &tts.SynthesizeResult{
		Audio:       []byte{0x01, 0x00, 0xff, 0xff, 0x00, 0x80},
		ContentType: tts.ContentTypePCM,
		SampleRate:  24000,
		Channels:    1,
	}
	clip, err := Decode(res)
	if err != nil {
		t.Fatal(err)
	}
	want := []int16{1, -1, -32768}
	if len(clip.Samples) != len(want) {
		t.Fatalf("samples = %v", clip.Samples)
	}
	for i := range want {
		if clip.Samples[i] != want[i] {
			t.Errorf("sample %d = %d, want %d", i, clip.Samples[i], want[i])
		}
	}
	if clip.Format != mono24k {
		t.Errorf("format = %v", clip.Format)
	}
}

func TestDecodeErrors(t *testing.T) {
	tests := []struct {
		name string
		res  *tts.SynthesizeResult
	}{
		{"nil", nil},
		{"empty", &tts.SynthesizeResult{ContentType: tts.ContentTypePCM, SampleRate: 24000, Channels: 1}},
		{"pcm without rate", &tts.SynthesizeResult{Audio: []byte{0, 0}, ContentType: tts.ContentTypePCM}},
		{"odd pcm", &tts.SynthesizeResult{Audio: []byte{0, 0, 0}, ContentType: tts.ContentTypePCM, SampleRate: 24000, Channels: 1}},
		{"bad wav", &tts.SynthesizeResult{Audio: []byte("not a wav file at all"), ContentType: tts.ContentTypeWAV}},
		{"bad mp3", &tts.SynthesizeResult{Audio: []byte("not an mp3"), ContentType: tts.ContentTypeMP3}},
		{"opus", &tts.SynthesizeResult{Audio: []byte{1}, ContentType: "audio/opus"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Decode(tt.res); err == nil {
				t.Error("expected error")
			}
		})
	}

	_, err := Decode(&tts.SynthesizeResult{Audio: []byte{1}, ContentType: "audio/opus"})
	if !errors.Is(err, ErrUnsupportedContentType) {
		t.Errorf("err = %v, want ErrUnsupportedContentType", err)
	}
}

func TestWAVRoundTrip(t *testing.T) {
	clip := &Clip{Format: Format{SampleRate: 22050, Channels: 2}, Samples: []int16{0, 1, -1, 1000, -32768, 32767}}
	data, err := EncodeWAV(clip)
	if err != nil {
		t.Fatal(err)
	}
	if string(data[:4]) != "RIFF" || string(data[8:12]) != "WAVE" {
		t.Fatalf("header = %q", data[:12])
	}

	got, err := Decode(&tts.SynthesizeResult{Audio: data, ContentType: tts.ContentTypeWAV})
	if err != nil {
		t.Fatal(err)
	}
	if got.Format != clip.Format {
		t.Errorf("format = %v, want %v", got.Format, clip.Format)
	}
	if len(got.Samples) != len(clip.Samples) {
		t.Fatalf("samples = %v, want %v", got.Samples, clip.Samples)
	}
	for i := range clip.Samples {
		if got.Samples[i] != clip.Samples[i] {
			t.Errorf("sample %d = %d, want %d", i, got.Samples[i], clip.Samples[i])
		}
	}
}

func TestConcat(t *testing.T) {
	a := &Clip{Format: mono24k, Samples: []int16{1, 2}}
	gap := &Clip{Format: mono24k, Samples: make([]int16, 2)}
	b := &Clip{Format: Format{SampleRate: 24000, Channels: 2}, Samples: []int16{10, 20, 30, 30}}

	got, err := Concat(a, gap, b)
	if err != nil {
		t.Fatal(err)
	}
	want := []int16{1, 2, 0, 0, 15, 30}
	if len(got.Samples) != len(want) {
		t.Fatalf("samples = %v, want %v", got.Samples, want)
	}
	for i := range want {
		if got.Samples[i] != want[i] {
			t.Errorf("sample %d = %d, want %d", i, got.Samples[i], want[i])
		}
	}
	if got.Format != mono24k {
		t.Errorf("format = %v", got.Format)
	}
}

func TestConcatRateMismatch(t *testing.T) {
	a := &Clip{Format: mono24k, Samples: []int16{1}}
	b := &Clip{Format: Format{SampleRate: 22050, Channels: 1}, Samples: []int16{1}}
	if _, err := Concat(a, b); !errors.Is(err, ErrFormatMismatch) {
		t.Errorf("err = %v, want ErrFormatMismatch", err)
	}
}

func TestConvertMonoToStereo(t *testing.T) {
	c := &Clip{Format: mono24k, Samples: []int16{5, -5}}
	got, err := c.Convert(2)
	if err != nil {
		t.Fatal(err)
	}
	want := []int16{5, 5, -5, -5}
	for i := range want {
		if got.Samples[i] != want[i] {
			t.Errorf("sample %d = %d, want %d", i, got.Samples[i], want[i])
		}
	}
}

func TestEncodeUnknownContainer(t *testing.T) {
	if _, err := Encode(context.Background(), Silence(mono24k, time.Millisecond), "flac"); err == nil {
		t.Error("expected error")
	}
}

func TestWriteSeeker(t *testing.T) {
	ws := &writeSeeker{}
	ws.Write([]byte("hello world"))
	if _, err := ws.Seek(0, io.SeekStart); err != nil {
		t.Fatal(err)
	}
	ws.Write([]byte("J"))
	if _, err := ws.Seek(-5, io.SeekEnd); err != nil {
		t.Fatal(err)
	}
	ws.Write([]byte("W"))
	if got := string(ws.buf); got != "Jello World" {
		t.Errorf("buf = %q", got)
	}
	if _, err := ws.Seek(-100, io.SeekCurrent); err == nil {
		t.Error("expected error seeking before start")
	}
}

func TestResample(t *testing.T) {
	ramp := &Clip{Format: Format{SampleRate: 2, Channels: 1}, Samples: []int16{0, 100, 200, 300}}
	up, err := ramp.Resample(4)
	if err != nil {
		t.Fatal(err)
	}
	want := []int16{0, 50, 100, 150, 200, 250, 300, 300}
	if len(up.Samples) != len(want) {
		t.Fatalf("got %d samples, want %d", len(up.Samples), len(want))
	}
	for i := range want {
		if up.Samples[i] != want[i] {
			t.Errorf("sample %d = %d, want %d", i, up.Samples[i], want[i])
		}
	}

	ko := &Clip{Format: Format{SampleRate: 16000, Channels: 2}, Samples: make([]int16, 2*1600)}
	for i := range ko.Samples {
		ko.Samples[i] = 1000
	}
	got, err := ko.Resample(22050)
	if err != nil {
		t.Fatal(err)
	}
	if got.Format != (Format{SampleRate: 22050, Channels: 2}) || got.Frames() != 2205 {
		t.Errorf("format = %s frames = %d", got.Format, got.Frames())
	}
	if got.Duration() != ko.Duration() {
		t.Errorf("duration changed: %s -> %s", ko.Duration(), got.Duration())
	}
	for i, s := range got.Samples {
		if s != 1000 {
			t.Fatalf("sample %d = %d, want 1000", i, s)
		}
	}

	if same, _ := ko.Resample(16000); same != ko {
		t.Error("resample to the same rate should return the clip")
	}
	if _, err := ko.Resample(0); !errors.Is(err, ErrFormatMismatch) {
		t.Errorf("err = %v, want ErrFormatMismatch", err)
	}
}
