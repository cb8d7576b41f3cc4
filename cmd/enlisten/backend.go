package main

import (
	"fmt"
	"log/slog"

	"github.com/nadzzz/enlisten/internal/config"
	"github.com/nadzzz/enlisten/internal/tts"
	"github.com/nadzzz/enlisten/internal/tts/cache"
	openaitts "github.com/nadzzz/enlisten/internal/tts/openai"
	"github.com/nadzzz/enlisten/internal/tts/piper"
)

// newSynthesizer builds the configured backend, wrapped by the disk cache
// when enabled. Credentials are only checked when validate is set, so plan
// previews work without an API key.
func newSynthesizer(cfg config.TTSConfig, validate bool) (tts.Synthesizer, error) {
	if validate {
		if err := cfg.Validate(); err != nil {
			return nil, err
		}
	}

	var synth tts.Synthesizer
	switch cfg.Backend {
	case "openai":
		synth = openaitts.New(cfg.OpenAI)
		slog.Debug("using OpenAI speech backend", "model", cfg.OpenAI.Model, "format", cfg.OpenAI.ResponseFormat)
	case "piper":
		synth = piper.New(cfg.Piper)
		slog.Debug("using Piper speech backend", "endpoint", cfg.Piper.Endpoint)
	default:
		return nil, fmt.Errorf("unknown tts backend %q", cfg.Backend)
	}

	if !cfg.Cache.Enabled {
		return synth, nil
	}
	cached, err := cache.New(synth, cfg.Cache.Dir, cfg.Cache.CompressionLevel)
	if err != nil {
		synth.Close()
		return nil, err
	}
	slog.Debug("synthesis cache enabled", "dir", cached.Dir())
	return cached, nil
}
