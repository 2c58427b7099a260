package pipeline

import (
	"github.com/intervox-ai/intervox/pkg/interview"
)

// Action selects which stage(s) of the pipeline a request runs.
type Action string

const (
	// ActionPipeline runs the full STT -> LLM -> TTS chain.
	ActionPipeline Action = "pipeline"
	// ActionSTT runs transcription only.
	ActionSTT Action = "stt"
	// ActionLLM runs the chat stage only.
	ActionLLM Action = "llm"
	// ActionTTS runs synthesis only.
	ActionTTS Action = "tts"
	// ActionStatus reports provider availability and limiter headroom.
	ActionStatus Action = "stt-status"
)

// Valid reports whether the action is one the orchestrator handles.
func (a Action) Valid() bool {
	switch a {
	case ActionPipeline, ActionSTT, ActionLLM, ActionTTS, ActionStatus:
		return true
	}
	return false
}

// Request is one pipeline invocation.
type Request struct {
	// Action selects the stage(s) to run.
	Action Action `json:"action"`

	// Audio is the base64-encoded clip. Required for stt and pipeline.
	Audio string `json:"audio,omitempty"`

	// Text is input for the tts action.
	Text string `json:"text,omitempty"`

	// Message is input for the llm action.
	Message string `json:"message,omitempty"`

	// Context is prior conversation turns. Truncated to the most recent
	// ContextWindow turns before the LLM stage.
	Context []interview.Turn `json:"context,omitempty"`

	// Format is the audio container: "wav", "mp3" or "webm" (default).
	Format string `json:"format,omitempty"`

	// Language is the transcription language hint (default "en").
	Language string `json:"language,omitempty"`

	// Voice optionally overrides the TTS voice for this request.
	Voice string `json:"voice,omitempty"`

	// Provider optionally selects per-stage providers by name. Only the
	// tts entry has alternates ("openai", "elevenlabs"); unknown names
	// fall back to the default chain.
	Provider *ProviderSelection `json:"provider,omitempty"`

	// InterviewConfig carries the question list and cursor, when the
	// caller is running a structured interview.
	InterviewConfig *interview.Config `json:"interviewConfig,omitempty"`
}

// ProviderSelection names the provider to use for each stage.
type ProviderSelection struct {
	STT string `json:"stt,omitempty"`
	LLM string `json:"llm,omitempty"`
	TTS string `json:"tts,omitempty"`
}

// Failure codes carried in Response.Code.
const (
	CodeRateLimited     = "RATE_LIMITED"
	CodeInvalidAudio    = "INVALID_AUDIO"
	CodeAudioTooShort   = "AUDIO_TOO_SHORT"
	CodeEmptyTranscript = "EMPTY_TRANSCRIPT"
	CodeProviderError   = "PROVIDER_ERROR"
	CodeMissingInput    = "MISSING_INPUT"
)

// Pipeline steps reported on failure.
const (
	StepSTT = "stt"
	StepLLM = "llm"
	StepTTS = "tts"
)

// Response is the result of one invocation. Stage failures are encoded
// here rather than returned as errors: the HTTP layer serves them as 200
// with success=false so clients can react per step.
type Response struct {
	Success bool `json:"success"`

	// Step names the failed stage ("stt", "llm", "tts") on failure.
	Step string `json:"step,omitempty"`

	// Error is a human-readable failure description.
	Error string `json:"error,omitempty"`

	// Code is a machine-readable failure code.
	Code string `json:"code,omitempty"`

	// Suggestion tells the caller how to recover, when known.
	Suggestion string `json:"suggestion,omitempty"`

	// RetryAfter is seconds until the rate limiter admits again.
	RetryAfter float64 `json:"retryAfter,omitempty"`

	// Transcript is the recognized user speech.
	Transcript string `json:"transcript,omitempty"`

	// Response is the assistant reply text.
	Response string `json:"response,omitempty"`

	// Audio is the base64-encoded synthesized reply.
	Audio string `json:"audio,omitempty"`

	// Format is the synthesized audio container ("mp3" or "pcm").
	Format string `json:"format,omitempty"`

	// NextQuestion is the next literal question, omitted when complete.
	NextQuestion string `json:"nextQuestion,omitempty"`

	// IsComplete reports whether the question list is exhausted.
	IsComplete bool `json:"isComplete"`

	// Metadata carries per-stage timings, models, and the request ID.
	Metadata map[string]interface{} `json:"metadata,omitempty"`
}

// Status is the stt-status payload.
type Status struct {
	Success            bool `json:"success"`
	STTConfigured      bool `json:"sttConfigured"`
	LLMConfigured      bool `json:"llmConfigured"`
	TTSConfigured      bool `json:"ttsConfigured"`
	RateLimitRemaining int  `json:"rateLimitRemaining"`
	RateLimitMax       int  `json:"rateLimitMax"`
}
