// Package config handles loading and validating the enlisten configuration.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// Config is the root configuration for enlisten.
type Config struct {
	Server     ServerConfig     `mapstructure:"server" yaml:"server"`
	Transports TransportsConfig `mapstructure:"transports" yaml:"transports"`
	TTS        TTSConfig        `mapstructure:"tts" yaml:"tts"`
	Compile    CompileConfig    `mapstructure:"compile" yaml:"compile"`
	Logging    LoggingConfig    `mapstructure:"logging" yaml:"logging"`
}

// ServerConfig holds the health check server settings.
type ServerConfig struct {
	HealthPort int `mapstructure:"health_port" yaml:"health_port"`
}

// TransportsConfig holds the configuration for each transport layer.
type TransportsConfig struct {
	GRPC GRPCConfig `mapstructure:"grpc" yaml:"grpc"`
	HTTP HTTPConfig `mapstructure:"http" yaml:"http"`
	MQTT MQTTConfig `mapstructure:"mqtt" yaml:"mqtt"`
}

// GRPCConfig configures the gRPC transport.
type GRPCConfig struct {
	Enabled bool `mapstructure:"enabled" yaml:"enabled"`
	Port    int  `mapstructure:"port" yaml:"port"`
}

// HTTPConfig configures the HTTP transport.
type HTTPConfig struct {
	Enabled bool `mapstructure:"enabled" yaml:"enabled"`
	Port    int  `mapstructure:"port" yaml:"port"`
}

// MQTTConfig configures the MQTT transport.
type MQTTConfig struct {
	Enabled  bool   `mapstructure:"enabled" yaml:"enabled"`
	Broker   string `mapstructure:"broker" yaml:"broker"`
	ClientID string `mapstructure:"client_id" yaml:"client_id"`
	Topic    string `mapstructure:"topic" yaml:"topic"` // request topic filter, e.g. "enlisten/compile/#"
	Prefix   string `mapstructure:"prefix" yaml:"prefix"` // results go to <prefix>/results/<id>
	QoS      byte   `mapstructure:"qos" yaml:"qos"`
}

// TTSConfig selects and configures the text-to-speech backend.
type TTSConfig struct {
	Backend string       `mapstructure:"backend" yaml:"backend"` // "openai" or "piper"
	OpenAI  OpenAIConfig `mapstructure:"openai" yaml:"openai"`
	Piper   PiperConfig  `mapstructure:"piper" yaml:"piper"`
	Cache   CacheConfig  `mapstructure:"cache" yaml:"cache"`
}

// OpenAIConfig holds OpenAI speech API settings.
type OpenAIConfig struct {
	APIKey            string        `mapstructure:"api_key" yaml:"-"`
	BaseURL           string        `mapstructure:"base_url" yaml:"base_url"`
	Model             string        `mapstructure:"model" yaml:"model"`
	ResponseFormat    string        `mapstructure:"response_format" yaml:"response_format"` // pcm, wav, mp3
	Instructions      string        `mapstructure:"instructions" yaml:"instructions"`
	RequestsPerMinute int           `mapstructure:"requests_per_minute" yaml:"requests_per_minute"`
	Timeout           time.Duration `mapstructure:"timeout" yaml:"timeout"`
}

// PiperConfig holds Piper TTS settings (Wyoming protocol).
//
// For a single Piper instance that serves all voices, set Endpoint.
// For per-language instances, set Endpoints which maps "ko"/"en" to
// individual Wyoming TCP endpoints; Endpoint is then the fallback.
type PiperConfig struct {
	Endpoint  string            `mapstructure:"endpoint" yaml:"endpoint"`
	Endpoints map[string]string `mapstructure:"endpoints" yaml:"endpoints,omitempty"`
	Timeout   time.Duration     `mapstructure:"timeout" yaml:"timeout"`
}

// CacheConfig configures the on-disk synthesis cache.
type CacheConfig struct {
	Enabled          bool   `mapstructure:"enabled" yaml:"enabled"`
	Dir              string `mapstructure:"dir" yaml:"dir"`
	CompressionLevel int    `mapstructure:"compression_level" yaml:"compression_level"` // zstd level 1-4; other values use the default level
}

// CompileConfig holds the run-level defaults for script compilation.
// Requests may override any of them.
type CompileConfig struct {
	Speed        float64        `mapstructure:"speed" yaml:"speed"`
	KoreanVoice  string         `mapstructure:"korean_voice" yaml:"korean_voice"`
	FemaleVoice  string         `mapstructure:"female_voice" yaml:"female_voice"` // voice name, "random" or "order"
	MaleVoice    string         `mapstructure:"male_voice" yaml:"male_voice"`
	Voices       VoiceSets      `mapstructure:"voices" yaml:"voices"`
	LineGap      time.Duration  `mapstructure:"line_gap" yaml:"line_gap"`
	QuestionGap  time.Duration  `mapstructure:"question_gap" yaml:"question_gap"`
	Container    string         `mapstructure:"container" yaml:"container"` // wav or mp3
	Announce     AnnounceConfig `mapstructure:"announce" yaml:"announce"`
	Disclosure   string         `mapstructure:"disclosure" yaml:"disclosure"`
	Seed         uint64         `mapstructure:"seed" yaml:"seed,omitempty"` // 0 = random seed per run
	SampleRate   int            `mapstructure:"sample_rate" yaml:"sample_rate"`
	MaxSentences int            `mapstructure:"max_sentences" yaml:"max_sentences"`
}

// VoiceSets are the voices the random and order policies draw from.
type VoiceSets struct {
	Female []string `mapstructure:"female" yaml:"female"`
	Male   []string `mapstructure:"male" yaml:"male"`
}

// AnnounceConfig controls how question numbers are spoken.
type AnnounceConfig struct {
	Language string `mapstructure:"language" yaml:"language"` // ko or en
	Numerals string `mapstructure:"numerals" yaml:"numerals"` // digits or words
	Pause    bool   `mapstructure:"pause" yaml:"pause"`
}

// LoggingConfig holds structured logging settings.
type LoggingConfig struct {
	Level  string `mapstructure:"level" yaml:"level"`   // debug, info, warn, error
	Format string `mapstructure:"format" yaml:"format"` // json, text, pretty
}

// Credentials are secrets read from the environment (and .env).
type Credentials struct {
	OpenAIAPIKey string `env:"OPENAI_API_KEY"`
}

// Bounds mirror the ranges offered to script authors.
const (
	MinSpeed       = 0.55
	MaxSpeed       = 1.85
	MinLineGap     = 200 * time.Millisecond
	MaxLineGap     = 2 * time.Second
	MinQuestionGap = 1 * time.Second
	MaxQuestionGap = 25 * time.Second
)

// DefaultDisclosure is shown next to every generated track.
const DefaultDisclosure = "해당 음성은 AI로 생성된 음성입니다. (This voice was generated by AI.)"

// flagKeys maps CLI flag names to configuration keys.
var flagKeys = map[string]string{
	"speed":        "compile.speed",
	"korean-voice": "compile.korean_voice",
	"female-voice": "compile.female_voice",
	"male-voice":   "compile.male_voice",
	"line-gap":     "compile.line_gap",
	"question-gap": "compile.question_gap",
	"container":    "compile.container",
	"seed":         "compile.seed",
	"backend":      "tts.backend",
	"log-level":    "logging.level",
	"log-format":   "logging.format",
}

// Load reads the configuration from file, environment variables, flags and
// defaults. If configFile is non-empty it is used directly; otherwise the
// standard search order applies: ./enlisten.yaml, ./configs/enlisten.yaml,
// /etc/enlisten/enlisten.yaml. flags may be nil.
func Load(configFile string, flags *pflag.FlagSet) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName("enlisten")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./configs")
		v.AddConfigPath("/etc/enlisten")
	}

	// Environment variables: ENLISTEN_COMPILE_SPEED, ENLISTEN_TTS_BACKEND, etc.
	v.SetEnvPrefix("ENLISTEN")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if flags != nil {
		for name, key := range flagKeys {
			if f := flags.Lookup(name); f != nil {
				if err := v.BindPFlag(key, f); err != nil {
					return nil, fmt.Errorf("binding flag %q: %w", name, err)
				}
			}
		}
	}

	// Read config file (optional; env vars and defaults are sufficient)
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("reading config: %w", err)
		}
		slog.Debug("no config file found, using defaults and environment variables")
	} else {
		slog.Debug("loaded config file", "path", v.ConfigFileUsed())
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshalling config: %w", err)
	}

	creds, err := LoadCredentials()
	if err != nil {
		return nil, err
	}
	cfg.TTS.OpenAI.APIKey = resolveEnvRef(cfg.TTS.OpenAI.APIKey)
	if cfg.TTS.OpenAI.APIKey == "" {
		cfg.TTS.OpenAI.APIKey = creds.OpenAIAPIKey
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.health_port", 8081)
	v.SetDefault("transports.grpc.enabled", false)
	v.SetDefault("transports.grpc.port", 50051)
	v.SetDefault("transports.http.enabled", true)
	v.SetDefault("transports.http.port", 8080)
	v.SetDefault("transports.mqtt.enabled", false)
	v.SetDefault("transports.mqtt.broker", "tcp://localhost:1883")
	v.SetDefault("transports.mqtt.client_id", "enlisten")
	v.SetDefault("transports.mqtt.topic", "enlisten/compile/#")
	v.SetDefault("transports.mqtt.prefix", "enlisten")
	v.SetDefault("transports.mqtt.qos", 1)
	v.SetDefault("tts.backend", "openai")
	v.SetDefault("tts.openai.api_key", "${OPENAI_API_KEY}")
	v.SetDefault("tts.openai.base_url", "https://api.openai.com/v1")
	v.SetDefault("tts.openai.model", "gpt-4o-mini-tts")
	v.SetDefault("tts.openai.response_format", "pcm")
	v.SetDefault("tts.openai.instructions", "Speak in a calm, clear, and educational tone.")
	v.SetDefault("tts.openai.requests_per_minute", 50)
	v.SetDefault("tts.openai.timeout", "60s")
	v.SetDefault("tts.piper.endpoint", "localhost:10200")
	v.SetDefault("tts.piper.timeout", "30s")
	v.SetDefault("tts.cache.enabled", false)
	v.SetDefault("tts.cache.dir", "")
	v.SetDefault("tts.cache.compression_level", 3)
	v.SetDefault("compile.speed", 1.0)
	v.SetDefault("compile.korean_voice", "nova")
	v.SetDefault("compile.female_voice", "alloy")
	v.SetDefault("compile.male_voice", "echo")
	v.SetDefault("compile.voices.female", []string{"alloy", "fable", "nova", "shimmer"})
	v.SetDefault("compile.voices.male", []string{"echo", "onyx"})
	v.SetDefault("compile.line_gap", "700ms")
	v.SetDefault("compile.question_gap", "10s")
	v.SetDefault("compile.container", "wav")
	v.SetDefault("compile.announce.language", "ko")
	v.SetDefault("compile.announce.numerals", "digits")
	v.SetDefault("compile.announce.pause", false)
	v.SetDefault("compile.disclosure", DefaultDisclosure)
	v.SetDefault("compile.seed", 0)
	v.SetDefault("compile.sample_rate", 24000)
	v.SetDefault("compile.max_sentences", 500)
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
}

// LoadCredentials loads a .env file from the working directory when present
// and parses credentials from the environment.
func LoadCredentials() (Credentials, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return Credentials{}, fmt.Errorf("loading .env: %w", err)
	}
	creds, err := env.ParseAs[Credentials]()
	if err != nil {
		return Credentials{}, fmt.Errorf("parsing credentials: %w", err)
	}
	return creds, nil
}

// resolveEnvRef replaces "${VAR_NAME}" patterns with the corresponding env var value.
// An unset variable resolves to the empty string.
func resolveEnvRef(val string) string {
	if strings.HasPrefix(val, "${") && strings.HasSuffix(val, "}") {
		return os.Getenv(val[2 : len(val)-1])
	}
	return val
}

// Validate checks the compile defaults against the supported ranges.
func (c CompileConfig) Validate() error {
	var errs []error
	if c.Speed < MinSpeed || c.Speed > MaxSpeed {
		errs = append(errs, fmt.Errorf("speed %.2f out of range [%.2f, %.2f]", c.Speed, MinSpeed, MaxSpeed))
	}
	if c.LineGap < MinLineGap || c.LineGap > MaxLineGap {
		errs = append(errs, fmt.Errorf("line_gap %s out of range [%s, %s]", c.LineGap, MinLineGap, MaxLineGap))
	}
	if c.QuestionGap < MinQuestionGap || c.QuestionGap > MaxQuestionGap {
		errs = append(errs, fmt.Errorf("question_gap %s out of range [%s, %s]", c.QuestionGap, MinQuestionGap, MaxQuestionGap))
	}
	if strings.TrimSpace(c.KoreanVoice) == "" {
		errs = append(errs, errors.New("korean_voice is required"))
	}
	if strings.TrimSpace(c.FemaleVoice) == "" {
		errs = append(errs, errors.New("female_voice is required"))
	}
	if strings.TrimSpace(c.MaleVoice) == "" {
		errs = append(errs, errors.New("male_voice is required"))
	}
	if len(c.Voices.Female) == 0 {
		errs = append(errs, errors.New("voices.female must not be empty"))
	}
	if len(c.Voices.Male) == 0 {
		errs = append(errs, errors.New("voices.male must not be empty"))
	}
	switch c.Container {
	case "wav", "mp3":
	default:
		errs = append(errs, fmt.Errorf("unsupported container %q", c.Container))
	}
	switch c.Announce.Language {
	case "ko", "en":
	default:
		errs = append(errs, fmt.Errorf("unsupported announce language %q", c.Announce.Language))
	}
	switch c.Announce.Numerals {
	case "digits", "words":
	default:
		errs = append(errs, fmt.Errorf("unsupported announce numerals %q", c.Announce.Numerals))
	}
	if c.SampleRate <= 0 {
		errs = append(errs, fmt.Errorf("sample_rate must be positive, got %d", c.SampleRate))
	}
	return errors.Join(errs...)
}

// Validate checks backend settings.
func (c TTSConfig) Validate() error {
	switch c.Backend {
	case "openai":
		switch c.OpenAI.ResponseFormat {
		case "pcm", "wav", "mp3":
		default:
			return fmt.Errorf("unsupported openai response_format %q", c.OpenAI.ResponseFormat)
		}
		if c.OpenAI.APIKey == "" {
			return errors.New("OPENAI_API_KEY is not set")
		}
	case "piper":
		if c.Piper.Endpoint == "" && len(c.Piper.Endpoints) == 0 {
			return errors.New("no piper endpoint configured")
		}
	default:
		return fmt.Errorf("unknown tts backend %q", c.Backend)
	}
	return nil
}
