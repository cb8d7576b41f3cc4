package config

import (
	"bytes"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/spf13/pflag"
)

// chdir moves into an empty directory so no enlisten.yaml or .env is found.
func chdir(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Chdir(dir)
	return dir
}

func TestLoadDefaults(t *testing.T) {
	chdir(t)
	t.Setenv("OPENAI_API_KEY", "sk-test")

	cfg, err := Load("", nil)
	if err != nil {
		t.Fatal(err)
	}

	if cfg.Compile.Speed != 1.0 {
		t.Errorf("speed = %v, want 1.0", cfg.Compile.Speed)
	}
	if cfg.Compile.LineGap != 700*time.Millisecond || cfg.Compile.QuestionGap != 10*time.Second {
		t.Errorf("gaps = %s/%s", cfg.Compile.LineGap, cfg.Compile.QuestionGap)
	}
	if cfg.Compile.KoreanVoice != "nova" || cfg.Compile.FemaleVoice != "alloy" || cfg.Compile.MaleVoice != "echo" {
		t.Errorf("voices = %+v", cfg.Compile)
	}
	if len(cfg.Compile.Voices.Female) != 4 || len(cfg.Compile.Voices.Male) != 2 {
		t.Errorf("voice sets = %+v", cfg.Compile.Voices)
	}
	if cfg.TTS.OpenAI.APIKey != "sk-test" {
		t.Errorf("api key = %q", cfg.TTS.OpenAI.APIKey)
	}
	if cfg.Compile.Disclosure != DefaultDisclosure {
		t.Errorf("disclosure = %q", cfg.Compile.Disclosure)
	}
	if err := cfg.Compile.Validate(); err != nil {
		t.Errorf("defaults do not validate: %v", err)
	}
	if err := cfg.TTS.Validate(); err != nil {
		t.Errorf("tts defaults do not validate: %v", err)
	}
}

func TestLoadFileEnvAndFlags(t *testing.T) {
	dir := chdir(t)
	path := filepath.Join(dir, "custom.yaml")
	yaml := `
tts:
  backend: piper
  piper:
    endpoint: piper:10200
compile:
  speed: 1.2
  female_voice: random
  line_gap: 1s
`
	if err := os.WriteFile(path, []byte(yaml), 0o644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("ENLISTEN_COMPILE_MALE_VOICE", "onyx")

	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	fs.Float64("speed", 0, "")
	fs.Duration("question-gap", 0, "")
	if err := fs.Parse([]string{"--question-gap=3s"}); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path, fs)
	if err != nil {
		t.Fatal(err)
	}

	if cfg.TTS.Backend != "piper" || cfg.TTS.Piper.Endpoint != "piper:10200" {
		t.Errorf("tts = %+v", cfg.TTS)
	}
	if cfg.Compile.Speed != 1.2 {
		t.Errorf("speed = %v, want file value 1.2 (unset flag must not override)", cfg.Compile.Speed)
	}
	if cfg.Compile.FemaleVoice != "random" {
		t.Errorf("female_voice = %q", cfg.Compile.FemaleVoice)
	}
	if cfg.Compile.MaleVoice != "onyx" {
		t.Errorf("male_voice = %q, want env override", cfg.Compile.MaleVoice)
	}
	if cfg.Compile.LineGap != time.Second {
		t.Errorf("line_gap = %s", cfg.Compile.LineGap)
	}
	if cfg.Compile.QuestionGap != 3*time.Second {
		t.Errorf("question_gap = %s, want flag value 3s", cfg.Compile.QuestionGap)
	}
}

func TestLoadMissingExplicitFile(t *testing.T) {
	chdir(t)
	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml"), nil); err == nil {
		t.Error("expected error for missing explicit config file")
	}
}

func TestLoadCredentialsFromDotEnv(t *testing.T) {
	dir := chdir(t)
	t.Setenv("OPENAI_API_KEY", "")
	os.Unsetenv("OPENAI_API_KEY")
	if err := os.WriteFile(filepath.Join(dir, ".env"), []byte("OPENAI_API_KEY=sk-dotenv\n"), 0o600); err != nil {
		t.Fatal(err)
	}

	creds, err := LoadCredentials()
	if err != nil {
		t.Fatal(err)
	}
	if creds.OpenAIAPIKey != "sk-dotenv" {
		t.Errorf("key = %q", creds.OpenAIAPIKey)
	}
}

func TestResolveEnvRef(t *testing.T) {
	t.Setenv("ENLISTEN_TEST_REF", "value")
	tests := []struct {
		in, want string
	}{
		{"${ENLISTEN_TEST_REF}", "value"},
		{"${ENLISTEN_TEST_UNSET}", ""},
		{"literal", "literal"},
		{"${partial", "${partial"},
	}
	for _, tt := range tests {
		if got := resolveEnvRef(tt.in); got != tt.want {
			t.Errorf("resolveEnvRef(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func validCompile() CompileConfig {
	return CompileConfig{
		Speed:       1.0,
		KoreanVoice: "nova",
		FemaleVoice: "alloy",
		MaleVoice:   "echo",
		Voices:      VoiceSets{Female: []string{"alloy"}, Male: []string{"echo"}},
		LineGap:     700 * time.Millisecond,
		QuestionGap: 10 * time.Second,
		Container:   "wav",
		Announce:    AnnounceConfig{Language: "ko", Numerals: "digits"},
		SampleRate:  24000,
	}
}

func TestCompileConfigValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*CompileConfig)
		want   string
	}{
		{"valid", func(*CompileConfig) {}, ""},
		{"slow", func(c *CompileConfig) { c.Speed = 0.5 }, "speed"},
		{"fast", func(c *CompileConfig) { c.Speed = 1.9 }, "speed"},
		{"short line gap", func(c *CompileConfig) { c.LineGap = 100 * time.Millisecond }, "line_gap"},
		{"long question gap", func(c *CompileConfig) { c.QuestionGap = 30 * time.Second }, "question_gap"},
		{"no male set", func(c *CompileConfig) { c.Voices.Male = nil }, "voices.male"},
		{"no korean voice", func(c *CompileConfig) { c.KoreanVoice = " " }, "korean_voice"},
		{"bad container", func(c *CompileConfig) { c.Container = "ogg" }, "container"},
		{"bad announce", func(c *CompileConfig) { c.Announce.Language = "ja" }, "announce language"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := validCompile()
			tt.mutate(&c)
			err := c.Validate()
			if tt.want == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Errorf("got %v, want error mentioning %q", err, tt.want)
			}
		})
	}
}

func TestTTSConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     TTSConfig
		wantErr bool
	}{
		{"openai with key", TTSConfig{Backend: "openai", OpenAI: OpenAIConfig{APIKey: "k", ResponseFormat: "pcm"}}, false},
		{"openai without key", TTSConfig{Backend: "openai", OpenAI: OpenAIConfig{ResponseFormat: "pcm"}}, true},
		{"openai bad format", TTSConfig{Backend: "openai", OpenAI: OpenAIConfig{APIKey: "k", ResponseFormat: "flac"}}, true},
		{"piper endpoint", TTSConfig{Backend: "piper", Piper: PiperConfig{Endpoint: "h:1"}}, false},
		{"piper per language", TTSConfig{Backend: "piper", Piper: PiperConfig{Endpoints: map[string]string{"ko": "h:1"}}}, false},
		{"piper none", TTSConfig{Backend: "piper"}, true},
		{"unknown", TTSConfig{Backend: "espeak"}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.cfg.Validate(); (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestNewHandler(t *testing.T) {
	tests := []struct {
		format string
		check  func(string) bool
	}{
		{"json", func(s string) bool { return strings.HasPrefix(s, "{") && strings.Contains(s, `"msg":"hello"`) }},
		{"text", func(s string) bool { return strings.Contains(s, "msg=hello") }},
		{"pretty", func(s string) bool { return strings.Contains(s, "hello") && !strings.HasPrefix(s, "{") }},
	}
	for _, tt := range tests {
		t.Run(tt.format, func(t *testing.T) {
			var buf bytes.Buffer
			logger := slog.New(NewHandler(&buf, LoggingConfig{Level: "info", Format: tt.format}))
			logger.Debug("hidden")
			logger.Info("hello", "n", 1)
			out := buf.String()
			if strings.Contains(out, "hidden") {
				t.Errorf("debug record written at info level: %q", out)
			}
			if !tt.check(out) {
				t.Errorf("unexpected %s output: %q", tt.format, out)
			}
		})
	}
}
