package audio

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"github.com/go-audio/wav"
	"github.com/hajimehoshi/go-mp3"

	"github.com/nadzzz/enlisten/internal/tts"
)

// ErrUnsupportedContentType is returned for audio the decoder cannot read.
var ErrUnsupportedContentType = errors.New("unsupported audio content type")

// Decode converts a synthesis result into a PCM clip.
func Decode(res *tts.SynthesizeResult) (*Clip, error) {
	if res == nil || len(res.Audio) == 0 {
		return nil, errors.New("empty audio")
	}
	switch res.ContentType {
	case tts.ContentTypePCM:
		return decodePCM(res.Audio, res.SampleRate, res.Channels)
	case tts.ContentTypeWAV, "audio/x-wav", "audio/wave":
		return decodeWAV(res.Audio)
	case tts.ContentTypeMP3, "audio/mp3":
		return decodeMP3(res.Audio)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedContentType, res.ContentType)
	}
}

// decodePCM reads raw little-endian signed 16-bit samples.
func decodePCM(data []byte, sampleRate, channels int) (*Clip, error) {
	if sampleRate <= 0 || channels <= 0 {
		return nil, fmt.Errorf("raw pcm without format (rate=%d channels=%d)", sampleRate, channels)
	}
	if len(data)%2 != 0 {
		return nil, fmt.Errorf("raw pcm has odd byte length %d", len(data))
	}
	samples := make([]int16, len(data)/2)
	for i := range samples {
		samples[i] = int16(binary.LittleEndian.Uint16(data[2*i:]))
	}
	return &Clip{Format: Format{SampleRate: sampleRate, Channels: channels}, Samples: samples}, nil
}

func decodeWAV(data []byte) (*Clip, error) {
	d := wav.NewDecoder(bytes.NewReader(data))
	if !d.IsValidFile() {
		return nil, errors.New("invalid wav file")
	}
	if d.BitDepth != 16 {
		return nil, fmt.Errorf("unsupported wav bit depth %d", d.BitDepth)
	}
	buf, err := d.FullPCMBuffer()
	if err != nil {
		return nil, fmt.Errorf("reading wav samples: %w", err)
	}

	samples := make([]int16, len(buf.Data))
	for i, s := range buf.Data {
		samples[i] = int16(s)
	}
	return &Clip{
		Format:  Format{SampleRate: int(d.SampleRate), Channels: int(d.NumChans)},
		Samples: samples,
	}, nil
}

// decodeMP3 decodes to interleaved stereo, which is what go-mp3 always yields.
func decodeMP3(data []byte) (*Clip, error) {
	d, err := mp3.NewDecoder(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("opening mp3: %w", err)
	}
	raw, err := io.ReadAll(d)
	if err != nil {
		return nil, fmt.Errorf("reading mp3 samples: %w", err)
	}
	raw = raw[:len(raw)-len(raw)%4]
	if len(raw) == 0 {
		return nil, errors.New("mp3 contains no audio frames")
	}
	return decodePCM(raw, d.SampleRate(), 2)
}
