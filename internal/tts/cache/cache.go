// Package cache wraps a tts.Synthesizer with an on-disk, zstd-compressed
// result cache. Re-compiling a script after editing one line only pays for
// the sentences that changed.
package cache

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/gob"
	"encoding/hex"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"

	"github.com/dustin/go-humanize"
	"github.com/klauspost/compress/zstd"

	"github.com/nadzzz/enlisten/internal/tts"
)

// entry is the on-disk representation of a synthesis result.
type entry struct {
	ContentType string
	SampleRate  int
	Channels    int
	Audio       []byte
}

// Synthesizer is a caching tts.Synthesizer decorator.
type Synthesizer struct {
	next tts.Synthesizer
	dir  string
	enc  *zstd.Encoder
	dec  *zstd.Decoder
}

// New wraps next with a cache rooted at dir. level is the zstd compression
// level (1 fastest .. 4 best); values outside that range use the default.
func New(next tts.Synthesizer, dir string, level int) (*Synthesizer, error) {
	if dir == "" {
		userCache, err := os.UserCacheDir()
		if err != nil {
			return nil, fmt.Errorf("resolving cache dir: %w", err)
		}
		dir = filepath.Join(userCache, "enlisten")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating cache dir: %w", err)
	}

	encLevel := zstd.SpeedDefault
	if level >= int(zstd.SpeedFastest) && level <= int(zstd.SpeedBestCompression) {
		encLevel = zstd.EncoderLevel(level)
	}
	enc, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(encLevel))
	if err != nil {
		return nil, fmt.Errorf("creating zstd encoder: %w", err)
	}
	dec, err := zstd.NewReader(nil)
	if err != nil {
		enc.Close()
		return nil, fmt.Errorf("creating zstd decoder: %w", err)
	}

	return &Synthesizer{next: next, dir: dir, enc: enc, dec: dec}, nil
}

// Name reports the wrapped backend's name.
func (s *Synthesizer) Name() string { return s.next.Name() }

// Dir returns the cache directory.
func (s *Synthesizer) Dir() string { return s.dir }

// Synthesize returns a cached result when one exists, otherwise it calls
// the wrapped backend and stores the result. Cache I/O failures are logged
// and never fail the call.
func (s *Synthesizer) Synthesize(ctx context.Context, text string, opts tts.SynthesizeOpts) (*tts.SynthesizeResult, error) {
	key := Key(s.next.Name(), text, opts)
	path := s.path(key)

	if res, err := s.load(path); err == nil {
		slog.Debug("tts cache hit", "key", key[:12], "size", humanize.Bytes(uint64(len(res.Audio))))
		return res, nil
	} else if !errors.Is(err, fs.ErrNotExist) {
		slog.Warn("tts cache read failed", "key", key[:12], "error", err)
	}

	res, err := s.next.Synthesize(ctx, text, opts)
	if err != nil {
		return nil, err
	}

	if err := s.store(path, res); err != nil {
		slog.Warn("tts cache write failed", "key", key[:12], "error", err)
	}
	return res, nil
}

// Close closes the codecs and the wrapped backend.
func (s *Synthesizer) Close() error {
	s.dec.Close()
	if err := s.enc.Close(); err != nil {
		return err
	}
	return s.next.Close()
}

// Key derives the cache key for one synthesis request.
func Key(backend, text string, opts tts.SynthesizeOpts) string {
	h := sha256.New()
	for _, part := range []string{
		backend,
		text,
		opts.Voice,
		opts.Language,
		strconv.FormatFloat(opts.Speed, 'f', 3, 64),
		opts.Instructions,
	} {
		h.Write([]byte(part))
		h.Write([]byte{0})
	}
	return hex.EncodeToString(h.Sum(nil))
}

func (s *Synthesizer) path(key string) string {
	return filepath.Join(s.dir, key[:2], key+".zst")
}

func (s *Synthesizer) load(path string) (*tts.SynthesizeResult, error) {
	compressed, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	raw, err := s.dec.DecodeAll(compressed, nil)
	if err != nil {
		return nil, fmt.Errorf("decompressing: %w", err)
	}
	var e entry
	if err := gob.NewDecoder(bytes.NewReader(raw)).Decode(&e); err != nil {
		return nil, fmt.Errorf("decoding entry: %w", err)
	}
	return &tts.SynthesizeResult{
		Audio:       e.Audio,
		ContentType: e.ContentType,
		SampleRate:  e.SampleRate,
		Channels:    e.Channels,
	}, nil
}

func (s *Synthesizer) store(path string, res *tts.SynthesizeResult) error {
	var buf bytes.Buffer
	e := entry{
		ContentType: res.ContentType,
		SampleRate:  res.SampleRate,
		Channels:    res.Channels,
		Audio:       res.Audio,
	}
	if err := gob.NewEncoder(&buf).Encode(e); err != nil {
		return fmt.Errorf("encoding entry: %w", err)
	}
	compressed := s.enc.EncodeAll(buf.Bytes(), nil)

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	// Write-then-rename so concurrent runs never observe a partial file.
	tmp, err := os.CreateTemp(filepath.Dir(path), ".tmp-*")
	if err != nil {
		return err
	}
	if _, err := tmp.Write(compressed); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return err
	}
	return os.Rename(tmp.Name(), path)
}
