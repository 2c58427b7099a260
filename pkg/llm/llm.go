// Package llm provides a chat-completion client for interviewer replies.
//
// The HTTP client speaks the OpenAI chat API shape and therefore works with
// any compatible backend (OpenAI, Groq, Ollama, vLLM). The pipeline calls
// it exactly once per turn; there is no retry at this stage.
package llm

import (
	"context"
	"time"
)

// Role identifies a message author.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is one chat message.
type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// ChatRequest describes one completion call.
type ChatRequest struct {
	// Model overrides the configured default when non-empty.
	Model string

	// Messages is the full prompt: system prompt, truncated context,
	// then the new user utterance.
	Messages []Message

	// Temperature controls response randomness. Zero uses the default.
	Temperature float64

	// MaxTokens limits response length. Zero uses the default.
	MaxTokens int
}

// Usage reports token accounting from the provider.
type Usage struct {
	PromptTokens     int
	CompletionTokens int
	TotalTokens      int
}

// ChatResponse is a completed chat call.
type ChatResponse struct {
	// Content is the assistant reply text.
	Content string

	// FinishReason is the provider's stop reason.
	FinishReason string

	// Usage is token accounting, when the provider reports it.
	Usage Usage

	// Model that produced the reply.
	Model string

	// LatencyMs is the provider round trip in milliseconds.
	LatencyMs int64
}

// Client defines the chat-completion provider interface.
type Client interface {
	// Chat generates a completion for the given request.
	Chat(ctx context.Context, req *ChatRequest) (*ChatResponse, error)

	// Health checks API connectivity.
	Health(ctx context.Context) error

	// Close releases resources.
	Close() error
}

// Default generation parameters.
const (
	DefaultTimeout     = 60 * time.Second
	DefaultMaxTokens   = 512
	DefaultTemperature = 0.7
)
