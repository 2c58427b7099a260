// Package pipeline orchestrates one voice interview turn: speech-to-text,
// a single chat completion, then text-to-speech, in strict order. Each
// stage failure is tagged with the step that failed so clients can react
// precisely. One Orchestrator is constructed per process and shared by
// all request handlers.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/intervox-ai/intervox/pkg/audio"
	"github.com/intervox-ai/intervox/pkg/interview"
	"github.com/intervox-ai/intervox/pkg/llm"
	"github.com/intervox-ai/intervox/pkg/ratelimit"
	"github.com/intervox-ai/intervox/pkg/stt"
	"github.com/intervox-ai/intervox/pkg/tts"
)

// ContextWindow bounds how many prior turns reach the LLM prompt.
const ContextWindow = 10

// SpokenWordsPerMinute drives the reply duration estimate shown to clients.
const SpokenWordsPerMinute = 150

// Config wires the orchestrator's collaborators.
type Config struct {
	STT     stt.Provider
	LLM     llm.Client
	TTS     tts.Provider
	Limiter *ratelimit.Limiter
	Checker audio.Checker
	Logger  *slog.Logger

	// TTSNamed maps provider names ("openai", "elevenlabs") to concrete
	// providers, for per-request selection. Optional; requests naming an
	// unknown provider use TTS.
	TTSNamed map[string]tts.Provider
}

// Validate checks that the required stages are present.
func (c *Config) Validate() error {
	if c.STT == nil {
		return errors.New("pipeline: STT provider required")
	}
	if c.LLM == nil {
		return errors.New("pipeline: LLM client required")
	}
	if c.TTS == nil {
		return errors.New("pipeline: TTS provider required")
	}
	return nil
}

// Orchestrator runs pipeline requests against the configured providers.
type Orchestrator struct {
	stt      stt.Provider
	llm      llm.Client
	tts      tts.Provider
	ttsNamed map[string]tts.Provider
	limiter  *ratelimit.Limiter
	checker  audio.Checker
	logger   *slog.Logger
}

// New creates an orchestrator. Limiter and Checker are optional; when nil,
// admission always succeeds and clips are accepted unchecked.
func New(cfg Config) (*Orchestrator, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Orchestrator{
		stt:      cfg.STT,
		llm:      cfg.LLM,
		tts:      cfg.TTS,
		ttsNamed: cfg.TTSNamed,
		limiter:  cfg.Limiter,
		checker:  cfg.Checker,
		logger:   logger.With("component", "pipeline"),
	}, nil
}

// Pipeline runs the full STT -> LLM -> TTS chain for one turn.
func (o *Orchestrator) Pipeline(ctx context.Context, req *Request) *Response {
	start := time.Now()
	requestID := uuid.NewString()
	log := o.logger.With("request_id", requestID)

	transcript, sttMeta, fail := o.transcribe(ctx, req)
	if fail != nil {
		return fail
	}

	reply, llmMeta, fail := o.chat(ctx, req, transcript)
	if fail != nil {
		fail.Transcript = transcript
		return fail
	}

	result, fail := o.synthesize(ctx, reply, req)
	if fail != nil {
		fail.Transcript = transcript
		fail.Response = reply
		return fail
	}

	resp := &Response{
		Success:    true,
		Transcript: transcript,
		Response:   reply,
		Audio:      audio.EncodeBase64(result.Audio),
		Format:     encodingToFormat(result.Format.Encoding),
		Metadata: map[string]interface{}{
			"requestId":       requestID,
			"sttLatencyMs":    sttMeta.latencyMs,
			"sttModel":        sttMeta.model,
			"llmLatencyMs":    llmMeta.latencyMs,
			"llmModel":        llmMeta.model,
			"ttsLatencyMs":    result.LatencyMs,
			"durationSeconds": EstimateSpokenSeconds(reply),
			"totalMs":         time.Since(start).Milliseconds(),
		},
	}
	applyProgress(resp, req.InterviewConfig)

	log.Info("pipeline turn complete",
		"transcript_chars", len(transcript),
		"reply_chars", len(reply),
		"audio_bytes", len(result.Audio),
		"total_ms", time.Since(start).Milliseconds(),
	)

	return resp
}

// TranscribeOnly runs the STT stage alone.
func (o *Orchestrator) TranscribeOnly(ctx context.Context, req *Request) *Response {
	transcript, meta, fail := o.transcribe(ctx, req)
	if fail != nil {
		return fail
	}
	return &Response{
		Success:    true,
		Transcript: transcript,
		Metadata: map[string]interface{}{
			"sttLatencyMs": meta.latencyMs,
			"sttModel":     meta.model,
		},
	}
}

// ChatOnly runs the LLM stage alone, using Message as the user utterance.
func (o *Orchestrator) ChatOnly(ctx context.Context, req *Request) *Response {
	message := req.Message
	if message == "" {
		message = req.Text
	}
	if strings.TrimSpace(message) == "" {
		return &Response{
			Success: false,
			Step:    StepLLM,
			Error:   "message is required for the llm action",
			Code:    CodeMissingInput,
		}
	}

	reply, meta, fail := o.chat(ctx, req, message)
	if fail != nil {
		return fail
	}

	resp := &Response{
		Success:  true,
		Response: reply,
		Metadata: map[string]interface{}{
			"llmLatencyMs": meta.latencyMs,
			"llmModel":     meta.model,
		},
	}
	applyProgress(resp, req.InterviewConfig)
	return resp
}

// SynthesizeOnly runs the TTS stage alone.
func (o *Orchestrator) SynthesizeOnly(ctx context.Context, req *Request) *Response {
	if strings.TrimSpace(req.Text) == "" {
		return &Response{
			Success: false,
			Step:    StepTTS,
			Error:   "text is required for the tts action",
			Code:    CodeMissingInput,
		}
	}

	result, fail := o.synthesize(ctx, req.Text, req)
	if fail != nil {
		return fail
	}

	return &Response{
		Success: true,
		Audio:   audio.EncodeBase64(result.Audio),
		Format:  encodingToFormat(result.Format.Encoding),
		Metadata: map[string]interface{}{
			"ttsLatencyMs":    result.LatencyMs,
			"durationSeconds": EstimateSpokenSeconds(req.Text),
		},
	}
}

// Status reports configuration and limiter headroom without touching
// any provider.
func (o *Orchestrator) Status(context.Context) *Status {
	s := &Status{
		Success:       true,
		STTConfigured: o.stt != nil,
		LLMConfigured: o.llm != nil,
		TTSConfigured: o.tts != nil,
	}
	if o.limiter != nil {
		s.RateLimitRemaining = o.limiter.Remaining()
		s.RateLimitMax = o.limiter.Max()
	}
	return s
}

type stageMeta struct {
	latencyMs int64
	model     string
}

// transcribe handles admission, decoding, quality checking, and the STT
// call. A non-nil *Response is a tagged stage failure.
func (o *Orchestrator) transcribe(ctx context.Context, req *Request) (string, stageMeta, *Response) {
	if o.limiter != nil && !o.limiter.Allow() {
		wait := o.limiter.WaitTime()
		return "", stageMeta{}, &Response{
			Success:    false,
			Step:       StepSTT,
			Error:      "transcription rate limit reached",
			Code:       CodeRateLimited,
			RetryAfter: math.Ceil(wait.Seconds()),
			Suggestion: fmt.Sprintf("wait %.0f seconds and retry", math.Ceil(wait.Seconds())),
		}
	}

	clip, err := audio.DecodeBase64(req.Audio)
	if err != nil {
		return "", stageMeta{}, &Response{
			Success:    false,
			Step:       StepSTT,
			Error:      err.Error(),
			Code:       CodeInvalidAudio,
			Suggestion: "send the recording as base64-encoded audio",
		}
	}

	format := req.Format
	if format == "" {
		format = "webm"
	}

	if o.checker != nil {
		if err := o.checker.Check(clip, format); err != nil {
			code := CodeInvalidAudio
			if errors.Is(err, audio.ErrTooShort) || errors.Is(err, audio.ErrSilent) {
				code = CodeAudioTooShort
			}
			return "", stageMeta{}, &Response{
				Success:    false,
				Step:       StepSTT,
				Error:      err.Error(),
				Code:       code,
				Suggestion: "record a longer, louder clip",
			}
		}
	}

	if o.limiter != nil {
		o.limiter.Record()
	}

	language := req.Language
	if language == "" {
		language = "en"
	}

	result, err := o.stt.Transcribe(ctx, &stt.Request{
		Audio:    clip,
		Format:   format,
		Language: language,
	})
	if err != nil {
		o.logger.Warn("transcription failed", "error", err)
		return "", stageMeta{}, &Response{
			Success: false,
			Step:    StepSTT,
			Error:   err.Error(),
			Code:    CodeProviderError,
		}
	}

	transcript := strings.TrimSpace(result.Text)
	if transcript == "" {
		// Nothing recognized: do not spend LLM or TTS calls on silence.
		return "", stageMeta{}, &Response{
			Success:    false,
			Step:       StepSTT,
			Error:      "no speech recognized in the recording",
			Code:       CodeEmptyTranscript,
			Suggestion: "speak closer to the microphone and try again",
		}
	}

	return transcript, stageMeta{latencyMs: result.LatencyMs, model: result.Model}, nil
}

// chat builds the prompt and makes the single LLM call for this turn.
func (o *Orchestrator) chat(ctx context.Context, req *Request, transcript string) (string, stageMeta, *Response) {
	messages := make([]llm.Message, 0, ContextWindow+2)
	messages = append(messages, llm.Message{
		Role:    llm.RoleSystem,
		Content: interview.SystemPrompt(req.InterviewConfig),
	})

	turns := req.Context
	if len(turns) > ContextWindow {
		turns = turns[len(turns)-ContextWindow:]
	}
	for _, turn := range turns {
		role := llm.RoleUser
		if turn.Role == interview.RoleAssistant {
			role = llm.RoleAssistant
		}
		messages = append(messages, llm.Message{Role: role, Content: turn.Content})
	}

	messages = append(messages, llm.Message{Role: llm.RoleUser, Content: transcript})

	resp, err := o.llm.Chat(ctx, &llm.ChatRequest{Messages: messages})
	if err != nil {
		o.logger.Warn("chat stage failed", "error", err)
		return "", stageMeta{}, &Response{
			Success: false,
			Step:    StepLLM,
			Error:   err.Error(),
			Code:    CodeProviderError,
		}
	}

	return resp.Content, stageMeta{latencyMs: resp.LatencyMs, model: resp.Model}, nil
}

// synthesize runs the TTS stage, honoring the request's provider and
// voice selection when present.
func (o *Orchestrator) synthesize(ctx context.Context, text string, req *Request) (*tts.AudioResult, *Response) {
	target := o.tts
	if req.Provider != nil && req.Provider.TTS != "" {
		if p, ok := o.ttsNamed[req.Provider.TTS]; ok {
			target = p
		}
	}

	var result *tts.AudioResult
	var err error
	if vs, ok := target.(tts.VoiceSynthesizer); ok && req.Voice != "" {
		result, err = vs.SynthesizeVoice(ctx, text, req.Voice)
	} else {
		result, err = target.Synthesize(ctx, text)
	}
	if err != nil {
		o.logger.Warn("synthesis failed", "error", err)
		return nil, &Response{
			Success: false,
			Step:    StepTTS,
			Error:   err.Error(),
			Code:    CodeProviderError,
		}
	}
	return result, nil
}

// applyProgress computes NextQuestion and IsComplete from the cursor.
// The cursor names the question the interviewer weaves into this turn's
// reply, so the question advertised as upcoming is the one after it.
func applyProgress(resp *Response, cfg *interview.Config) {
	if cfg == nil {
		return
	}
	next := cfg.CurrentIndex + 1
	if cfg.Complete() || next >= len(cfg.Questions) {
		resp.IsComplete = true
		return
	}
	resp.NextQuestion = cfg.Questions[next]
}

// EstimateSpokenSeconds estimates how long the reply takes to speak at a
// conversational pace. Display-only; minimum one second.
func EstimateSpokenSeconds(text string) int {
	words := len(strings.Fields(text))
	secs := int(math.Round(float64(words) / SpokenWordsPerMinute * 60))
	if secs < 1 {
		secs = 1
	}
	return secs
}

// encodingToFormat maps a TTS encoding to the wire format name.
func encodingToFormat(enc tts.Encoding) string {
	switch enc {
	case tts.EncodingMP3:
		return "mp3"
	default:
		return "pcm"
	}
}
