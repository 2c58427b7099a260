package stt

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"github.com/intervox-ai/intervox/pkg/retry"
)

const providerWhisper = "whisper"

// Config holds Whisper provider configuration.
// Use functional options (WithXxx) to set these values.
type Config struct {
	APIKey  string
	BaseURL string
	Model   string
	Timeout time.Duration
	Policy  retry.Policy
	Logger  *slog.Logger
}

// Option is a functional option for configuring the Whisper provider.
type Option func(*Config)

// WithAPIKey sets the API key for the provider.
func WithAPIKey(key string) Option {
	return func(c *Config) { c.APIKey = key }
}

// WithBaseURL overrides the default API base URL.
func WithBaseURL(url string) Option {
	return func(c *Config) { c.BaseURL = url }
}

// WithModel sets the transcription model.
func WithModel(model string) Option {
	return func(c *Config) { c.Model = model }
}

// WithTimeout sets the request timeout.
func WithTimeout(timeout time.Duration) Option {
	return func(c *Config) { c.Timeout = timeout }
}

// WithPolicy sets the retry policy for failed requests.
func WithPolicy(p retry.Policy) Option {
	return func(c *Config) { c.Policy = p }
}

// WithLogger sets the structured logger for the provider.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Config) { c.Logger = logger }
}

// DefaultConfig returns sensible default configuration.
func DefaultConfig() *Config {
	policy := retry.DefaultPolicy()
	policy.Classify = ClassifyError
	return &Config{
		Model:   openai.Whisper1,
		Timeout: 30 * time.Second,
		Policy:  policy,
		Logger:  slog.Default(),
	}
}

// ClassifyError maps provider errors to retry classes: 429 is rate limited,
// 5xx and network failures are transient, any other API status is fatal.
func ClassifyError(err error) retry.Class {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		switch {
		case apiErr.HTTPStatusCode == 429:
			return retry.RateLimited
		case apiErr.HTTPStatusCode >= 500:
			return retry.Transient
		default:
			return retry.Fatal
		}
	}
	var provErr *APIError
	if errors.As(err, &provErr) {
		switch {
		case provErr.IsRateLimited():
			return retry.RateLimited
		case provErr.IsServerError():
			return retry.Transient
		default:
			return retry.Fatal
		}
	}
	return retry.Transient
}

// Whisper implements Provider using the OpenAI transcription API.
type Whisper struct {
	client *openai.Client
	config *Config
	logger *slog.Logger
}

// NewWhisper creates a new OpenAI Whisper provider.
func NewWhisper(opts ...Option) (*Whisper, error) {
	cfg := DefaultConfig()
	for _, opt := range opts {
		opt(cfg)
	}

	if cfg.APIKey == "" {
		return nil, ErrNoAPIKey
	}

	clientConfig := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientConfig.BaseURL = cfg.BaseURL
	}

	return &Whisper{
		client: openai.NewClientWithConfig(clientConfig),
		config: cfg,
		logger: cfg.Logger.With("component", "stt.whisper"),
	}, nil
}

// Transcribe converts a complete audio clip to text.
// Rate-limit responses back off exponentially and server errors linearly,
// per the configured retry policy; other API errors fail immediately.
func (w *Whisper) Transcribe(ctx context.Context, req *Request) (*Result, error) {
	if len(req.Audio) == 0 {
		return nil, ErrNoAudio
	}

	filename := "audio." + req.Format
	if req.Format == "" {
		filename = "audio.wav"
	}

	start := time.Now()

	var resp openai.AudioResponse
	err := w.config.Policy.Do(ctx, func() error {
		var callErr error
		resp, callErr = w.client.CreateTranscription(ctx, openai.AudioRequest{
			Model:    w.config.Model,
			FilePath: filename, // filename hint for the API
			Reader:   bytes.NewReader(req.Audio),
			Prompt:   req.Prompt,
			Language: req.Language,
		})
		if callErr != nil {
			w.logger.Warn("transcription attempt failed", "error", callErr)
		}
		return callErr
	})
	if err != nil {
		return nil, WrapError(providerWhisper, err)
	}

	latency := time.Since(start).Milliseconds()

	w.logger.Debug("transcribed audio",
		"bytes", len(req.Audio),
		"chars", len(resp.Text),
		"latency_ms", latency,
	)

	return &Result{
		Text:      resp.Text,
		Language:  req.Language,
		Model:     w.config.Model,
		LatencyMs: latency,
	}, nil
}

// Health checks API connectivity and key validity via the models endpoint.
func (w *Whisper) Health(ctx context.Context) error {
	_, err := w.client.ListModels(ctx)
	if err != nil {
		return WrapError(providerWhisper, err)
	}
	return nil
}

// Close releases resources.
func (w *Whisper) Close() error {
	return nil
}

// Verify Whisper implements Provider at compile time.
var _ Provider = (*Whisper)(nil)
