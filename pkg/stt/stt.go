// Package stt provides a unified interface for speech-to-text providers.
//
// The package currently ships an OpenAI Whisper implementation plus a mock
// for tests. All providers implement the Provider interface so callers can
// switch backends without changing code.
//
// Example usage:
//
//	provider, _ := stt.NewWhisper(
//	    stt.WithAPIKey(os.Getenv("OPENAI_API_KEY")),
//	)
//	defer provider.Close()
//
//	result, _ := provider.Transcribe(ctx, &stt.Request{Audio: clip, Format: "wav"})
//	// result.Text contains the transcript
package stt

import (
	"context"
)

// Provider defines the speech-to-text provider interface.
type Provider interface {
	// Transcribe converts a complete audio clip to text.
	Transcribe(ctx context.Context, req *Request) (*Result, error)

	// Health checks provider connectivity and API key validity.
	Health(ctx context.Context) error

	// Close releases any resources held by the provider.
	Close() error
}

// Request describes one transcription call.
type Request struct {
	// Audio is the complete clip in the container named by Format.
	Audio []byte

	// Format is the audio container: "wav", "mp3" or "webm".
	// Raw PCM16 should be wrapped with audio.EncodePCM16WAV first.
	Format string

	// Language is an ISO-639-1 hint, e.g. "en". Empty means auto-detect.
	Language string

	// Prompt optionally biases recognition toward expected vocabulary.
	Prompt string
}

// Result is a completed transcription.
type Result struct {
	// Text is the transcript. May be empty for silent clips.
	Text string

	// Language echoes the request hint.
	Language string

	// Model that produced the transcript.
	Model string

	// LatencyMs is the provider round trip in milliseconds.
	LatencyMs int64
}
