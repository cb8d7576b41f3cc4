package audio

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"strconv"

	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

// Container is an output file format.
type Container string

const (
	WAV Container = "wav"
	MP3 Container = "mp3"
)

// ContentType returns the MIME type for the container.
func (c Container) ContentType() string {
	if c == MP3 {
		return "audio/mpeg"
	}
	return "audio/wav"
}

// ErrFFmpegNotFound is returned when MP3 output is requested without ffmpeg on PATH.
var ErrFFmpegNotFound = errors.New("ffmpeg not found in PATH (required for mp3 output)")

// Encode serialises clip into the requested container.
func Encode(ctx context.Context, clip *Clip, container Container) ([]byte, error) {
	switch container {
	case WAV, "":
		return EncodeWAV(clip)
	case MP3:
		return encodeMP3(ctx, clip)
	default:
		return nil, fmt.Errorf("unsupported container %q", container)
	}
}

// EncodeWAV writes clip as a 16-bit PCM WAV file.
func EncodeWAV(clip *Clip) ([]byte, error) {
	if clip.Format.SampleRate <= 0 || clip.Format.Channels <= 0 {
		return nil, fmt.Errorf("cannot encode clip with format %s", clip.Format)
	}

	data := make([]int, len(clip.Samples))
	for i, s := range clip.Samples {
		data[i] = int(s)
	}

	ws := &writeSeeker{}
	enc := wav.NewEncoder(ws, clip.Format.SampleRate, 16, clip.Format.Channels, 1)
	buf := &goaudio.IntBuffer{
		Format: &goaudio.Format{
			NumChannels: clip.Format.Channels,
			SampleRate:  clip.Format.SampleRate,
		},
		Data:           data,
		SourceBitDepth: 16,
	}
	if err := enc.Write(buf); err != nil {
		return nil, fmt.Errorf("writing wav samples: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, fmt.Errorf("finalising wav: %w", err)
	}
	return ws.buf, nil
}

// encodeMP3 pipes raw PCM through ffmpeg.
func encodeMP3(ctx context.Context, clip *Clip) ([]byte, error) {
	path, err := exec.LookPath("ffmpeg")
	if err != nil {
		return nil, ErrFFmpegNotFound
	}

	pcm := make([]byte, 2*len(clip.Samples))
	for i, s := range clip.Samples {
		pcm[2*i] = byte(s)
		pcm[2*i+1] = byte(uint16(s) >> 8)
	}

	cmd := exec.CommandContext(ctx, path,
		"-hide_banner", "-loglevel", "error",
		"-f", "s16le",
		"-ar", strconv.Itoa(clip.Format.SampleRate),
		"-ac", strconv.Itoa(clip.Format.Channels),
		"-i", "pipe:0",
		"-f", "mp3", "-b:a", "128k",
		"pipe:1",
	)
	var stdout, stderr bytes.Buffer
	cmd.Stdin = bytes.NewReader(pcm)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("ffmpeg: %w: %s", err, bytes.TrimSpace(stderr.Bytes()))
	}
	return stdout.Bytes(), nil
}

// writeSeeker is an in-memory io.WriteSeeker; the wav encoder seeks back to
// patch chunk sizes on Close.
type writeSeeker struct {
	buf []byte
	pos int
}

func (w *writeSeeker) Write(p []byte) (int, error) {
	if need := w.pos + len(p); need > len(w.buf) {
		if need > cap(w.buf) {
			grown := make([]byte, need, 2*need)
			copy(grown, w.buf)
			w.buf = grown
		} else {
			w.buf = w.buf[:need]
		}
	}
	n := copy(w.buf[w.pos:], p)
	w.pos += n
	return n, nil
}

func (w *writeSeeker) Seek(offset int64, whence int) (int64, error) {
	var abs int64
	switch whence {
	case io.SeekStart:
		abs = offset
	case io.SeekCurrent:
		abs = int64(w.pos) + offset
	case io.SeekEnd:
		abs = int64(len(w.buf)) + offset
	default:
		return 0, errors.New("invalid whence")
	}
	if abs < 0 {
		return 0, errors.New("negative position")
	}
	w.pos = int(abs)
	return abs, nil
}
