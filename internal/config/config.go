// Package config provides environment-driven configuration for intervox commands.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Defaults for the server and the local rate limiter.
const (
	DefaultPort            = "8080"
	DefaultLogLevel        = "info"
	DefaultRateLimitMax    = 30
	DefaultRateLimitWindow = time.Minute
	DefaultAudioCheck      = "basic"
)

// Config holds everything the server needs at startup.
type Config struct {
	Port     string
	LogLevel string

	// Provider credentials
	OpenAIKey        string
	ElevenLabsKey    string
	ElevenLabsVoice  string
	OpenAIBaseURL    string
	ChatModel        string
	TranscribeModel  string

	// Local transcription rate limiter
	RateLimitMax    int
	RateLimitWindow time.Duration

	// Audio validation mode: "basic" or "enhanced"
	AudioCheck string
}

// Load reads configuration from the environment.
// OPENAI_API_KEY is required; everything else has a default.
func Load() (*Config, error) {
	key := os.Getenv("OPENAI_API_KEY")
	if key == "" {
		return nil, fmt.Errorf("config: OPENAI_API_KEY environment variable is required")
	}

	cfg := &Config{
		Port:            envOr("PORT", DefaultPort),
		LogLevel:        envOr("LOG_LEVEL", DefaultLogLevel),
		OpenAIKey:       key,
		ElevenLabsKey:   os.Getenv("ELEVENLABS_API_KEY"),
		ElevenLabsVoice: os.Getenv("ELEVENLABS_VOICE_ID"),
		OpenAIBaseURL:   os.Getenv("OPENAI_BASE_URL"),
		ChatModel:       envOr("CHAT_MODEL", "gpt-4o-mini"),
		TranscribeModel: envOr("TRANSCRIBE_MODEL", "whisper-1"),
		RateLimitMax:    envInt("RATE_LIMIT_MAX", DefaultRateLimitMax),
		RateLimitWindow: envDuration("RATE_LIMIT_WINDOW", DefaultRateLimitWindow),
		AudioCheck:      envOr("AUDIO_CHECK", DefaultAudioCheck),
	}

	if cfg.AudioCheck != "basic" && cfg.AudioCheck != "enhanced" {
		return nil, fmt.Errorf("config: AUDIO_CHECK must be \"basic\" or \"enhanced\", got %q", cfg.AudioCheck)
	}

	return cfg, nil
}

// HasElevenLabs reports whether an ElevenLabs fallback can be configured.
func (c *Config) HasElevenLabs() bool {
	return c.ElevenLabsKey != "" && c.ElevenLabsVoice != ""
}

func envOr(name, def string) string {
	if v := os.Getenv(name); v != "" {
		return v
	}
	return def
}

func envInt(name string, def int) int {
	if v := os.Getenv(name); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			return n
		}
	}
	return def
}

func envDuration(name string, def time.Duration) time.Duration {
	if v := os.Getenv(name); v != "" {
		if d, err := time.ParseDuration(v); err == nil && d > 0 {
			return d
		}
	}
	return def
}

