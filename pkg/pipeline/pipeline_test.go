package pipeline_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/intervox-ai/intervox/pkg/audio"
	"github.com/intervox-ai/intervox/pkg/interview"
	"github.com/intervox-ai/intervox/pkg/llm"
	"github.com/intervox-ai/intervox/pkg/pipeline"
	"github.com/intervox-ai/intervox/pkg/ratelimit"
	"github.com/intervox-ai/intervox/pkg/stt"
	"github.com/intervox-ai/intervox/pkg/tts"
)

type fixture struct {
	stt  *stt.Mock
	llm  *llm.Mock
	tts  *tts.Mock
	orch *pipeline.Orchestrator
}

func newFixture(t *testing.T, cfg pipeline.Config) *fixture {
	t.Helper()

	f := &fixture{
		stt: stt.NewMock(),
		llm: llm.NewMock("Tell me more"),
		tts: tts.NewMock([]byte("reply-audio")),
	}
	if cfg.STT == nil {
		cfg.STT = f.stt
	} else if m, ok := cfg.STT.(*stt.Mock); ok {
		f.stt = m
	}
	if cfg.LLM == nil {
		cfg.LLM = f.llm
	} else if m, ok := cfg.LLM.(*llm.Mock); ok {
		f.llm = m
	}
	if cfg.TTS == nil {
		cfg.TTS = f.tts
	} else if m, ok := cfg.TTS.(*tts.Mock); ok {
		f.tts = m
	}

	orch, err := pipeline.New(cfg)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	f.orch = orch
	return f
}

func clipBase64() string {
	pcm := make([]byte, 4000)
	return audio.EncodeBase64(pcm)
}

func TestPipelineSuccess(t *testing.T) {
	sttMock := stt.NewMock()
	sttMock.Text = "I have 3 years of React experience"

	f := newFixture(t, pipeline.Config{STT: sttMock})

	resp := f.orch.Pipeline(context.Background(), &pipeline.Request{
		Action: pipeline.ActionPipeline,
		Audio:  clipBase64(),
		Format: "wav",
		InterviewConfig: &interview.Config{
			Type:      interview.TypeTechnical,
			Questions: []string{"q1", "q2", "q3", "q4", "q5"},
		},
	})

	if !resp.Success {
		t.Fatalf("expected success, got step=%s error=%s", resp.Step, resp.Error)
	}
	if resp.Transcript != "I have 3 years of React experience" {
		t.Errorf("unexpected transcript: %q", resp.Transcript)
	}
	if resp.Response != "Tell me more" {
		t.Errorf("unexpected response: %q", resp.Response)
	}
	if resp.IsComplete {
		t.Error("interview with 5 questions at index 0 must not be complete")
	}
	if resp.NextQuestion != "q2" {
		t.Errorf("expected next question q2, got %q", resp.NextQuestion)
	}
	if resp.Audio == "" {
		t.Error("expected synthesized audio in response")
	}
	if resp.Metadata["requestId"] == "" {
		t.Error("expected a request id in metadata")
	}
}

func TestPipelineSTTFailureSkipsLaterStages(t *testing.T) {
	f := newFixture(t, pipeline.Config{
		STT: stt.WithError(errors.New("whisper down")),
	})

	resp := f.orch.Pipeline(context.Background(), &pipeline.Request{
		Audio: clipBase64(),
	})

	if resp.Success {
		t.Fatal("expected failure")
	}
	if resp.Step != pipeline.StepSTT {
		t.Errorf("expected step stt, got %q", resp.Step)
	}
	if f.llm.CallCount("Chat") != 0 {
		t.Errorf("LLM must not be called after STT failure, got %d calls", f.llm.CallCount("Chat"))
	}
	if f.tts.CallCount("Synthesize") != 0 {
		t.Errorf("TTS must not be called after STT failure, got %d calls", f.tts.CallCount("Synthesize"))
	}
}

func TestPipelineEmptyTranscriptAborts(t *testing.T) {
	sttMock := stt.NewMock()
	sttMock.Text = "   "

	f := newFixture(t, pipeline.Config{STT: sttMock})

	resp := f.orch.Pipeline(context.Background(), &pipeline.Request{Audio: clipBase64()})

	if resp.Success {
		t.Fatal("expected failure")
	}
	if resp.Step != pipeline.StepSTT || resp.Code != pipeline.CodeEmptyTranscript {
		t.Errorf("expected stt/EMPTY_TRANSCRIPT, got %s/%s", resp.Step, resp.Code)
	}
	if f.llm.CallCount("Chat") != 0 || f.tts.CallCount("Synthesize") != 0 {
		t.Error("no provider calls expected after empty transcript")
	}
}

func TestPipelineLLMFailure(t *testing.T) {
	f := newFixture(t, pipeline.Config{
		LLM: llm.WithError(errors.New("model overloaded")),
	})

	resp := f.orch.Pipeline(context.Background(), &pipeline.Request{Audio: clipBase64()})

	if resp.Success {
		t.Fatal("expected failure")
	}
	if resp.Step != pipeline.StepLLM {
		t.Errorf("expected step llm, got %q", resp.Step)
	}
	if resp.Transcript == "" {
		t.Error("transcript should survive an LLM failure")
	}
	if f.tts.CallCount("Synthesize") != 0 {
		t.Error("TTS must not be called after LLM failure")
	}
}

func TestPipelineTTSFailure(t *testing.T) {
	f := newFixture(t, pipeline.Config{
		TTS: tts.NewFailingMock(errors.New("voice service down")),
	})

	resp := f.orch.Pipeline(context.Background(), &pipeline.Request{Audio: clipBase64()})

	if resp.Success {
		t.Fatal("expected failure")
	}
	if resp.Step != pipeline.StepTTS {
		t.Errorf("expected step tts, got %q", resp.Step)
	}
	if resp.Transcript == "" || resp.Response == "" {
		t.Error("transcript and reply should survive a TTS failure")
	}
}

func TestPipelineRateLimited(t *testing.T) {
	limiter := ratelimit.New(1, time.Minute)
	limiter.Record()

	f := newFixture(t, pipeline.Config{Limiter: limiter})

	resp := f.orch.Pipeline(context.Background(), &pipeline.Request{Audio: clipBase64()})

	if resp.Success {
		t.Fatal("expected rate-limited failure")
	}
	if resp.Code != pipeline.CodeRateLimited {
		t.Errorf("expected RATE_LIMITED, got %q", resp.Code)
	}
	if resp.RetryAfter <= 0 {
		t.Errorf("expected positive retryAfter, got %v", resp.RetryAfter)
	}
	if f.stt.CallCount("Transcribe") != 0 {
		t.Error("STT must not be called when rate limited")
	}
}

func TestPipelineCompleteInterview(t *testing.T) {
	f := newFixture(t, pipeline.Config{})

	resp := f.orch.Pipeline(context.Background(), &pipeline.Request{
		Audio: clipBase64(),
		InterviewConfig: &interview.Config{
			Questions:    []string{"a", "b", "c"},
			CurrentIndex: 3,
		},
	})

	if !resp.Success {
		t.Fatalf("expected success, got %s", resp.Error)
	}
	if !resp.IsComplete {
		t.Error("index == len(questions) must report isComplete")
	}
	if resp.NextQuestion != "" {
		t.Errorf("complete interview must omit nextQuestion, got %q", resp.NextQuestion)
	}
}

func TestPipelineContextTruncation(t *testing.T) {
	f := newFixture(t, pipeline.Config{})

	turns := make([]interview.Turn, 24)
	for i := range turns {
		turns[i] = interview.Turn{Role: interview.RoleUser, Content: "older"}
	}

	resp := f.orch.Pipeline(context.Background(), &pipeline.Request{
		Audio:   clipBase64(),
		Context: turns,
	})
	if !resp.Success {
		t.Fatalf("expected success, got %s", resp.Error)
	}

	req := f.llm.LastRequest()
	if req == nil {
		t.Fatal("expected a recorded chat request")
	}
	// system + 10 context turns + new utterance
	if len(req.Messages) != 12 {
		t.Errorf("expected 12 messages after truncation, got %d", len(req.Messages))
	}
}

func TestTranscribeOnly(t *testing.T) {
	f := newFixture(t, pipeline.Config{})

	resp := f.orch.TranscribeOnly(context.Background(), &pipeline.Request{Audio: clipBase64()})
	if !resp.Success {
		t.Fatalf("expected success, got %s", resp.Error)
	}
	if resp.Transcript != "mock transcript" {
		t.Errorf("unexpected transcript: %q", resp.Transcript)
	}
	if f.llm.CallCount("Chat") != 0 || f.tts.CallCount("Synthesize") != 0 {
		t.Error("stt action must not touch LLM or TTS")
	}
}

func TestChatOnlyRequiresMessage(t *testing.T) {
	f := newFixture(t, pipeline.Config{})

	resp := f.orch.ChatOnly(context.Background(), &pipeline.Request{})
	if resp.Success || resp.Code != pipeline.CodeMissingInput {
		t.Errorf("expected MISSING_INPUT failure, got %+v", resp)
	}
}

func TestSynthesizeOnly(t *testing.T) {
	f := newFixture(t, pipeline.Config{})

	resp := f.orch.SynthesizeOnly(context.Background(), &pipeline.Request{Text: "Hello there"})
	if !resp.Success {
		t.Fatalf("expected success, got %s", resp.Error)
	}
	if resp.Audio == "" || resp.Format == "" {
		t.Error("expected audio and format in response")
	}
}

func TestSynthesizeProviderSelection(t *testing.T) {
	alternate := tts.NewMock([]byte("alternate-audio"))

	f := newFixture(t, pipeline.Config{
		TTSNamed: map[string]tts.Provider{"elevenlabs": alternate},
	})

	resp := f.orch.SynthesizeOnly(context.Background(), &pipeline.Request{
		Text:     "Hello there",
		Provider: &pipeline.ProviderSelection{TTS: "elevenlabs"},
	})
	if !resp.Success {
		t.Fatalf("expected success, got %s", resp.Error)
	}
	if alternate.CallCount("Synthesize") != 1 {
		t.Errorf("expected the selected provider to synthesize, got %d calls", alternate.CallCount("Synthesize"))
	}
	if f.tts.CallCount("Synthesize") != 0 {
		t.Error("default provider must not be called when another is selected")
	}
}

func TestSynthesizeUnknownProviderFallsBack(t *testing.T) {
	f := newFixture(t, pipeline.Config{})

	resp := f.orch.SynthesizeOnly(context.Background(), &pipeline.Request{
		Text:     "Hello there",
		Provider: &pipeline.ProviderSelection{TTS: "nonexistent"},
	})
	if !resp.Success {
		t.Fatalf("expected success, got %s", resp.Error)
	}
	if f.tts.CallCount("Synthesize") != 1 {
		t.Errorf("expected fallback to the default provider, got %d calls", f.tts.CallCount("Synthesize"))
	}
}

func TestSynthesizeVoiceOverride(t *testing.T) {
	f := newFixture(t, pipeline.Config{})

	resp := f.orch.SynthesizeOnly(context.Background(), &pipeline.Request{
		Text:  "Hello there",
		Voice: "shimmer",
	})
	if !resp.Success {
		t.Fatalf("expected success, got %s", resp.Error)
	}
	if f.tts.LastVoice() != "shimmer" {
		t.Errorf("expected voice override to reach the provider, got %q", f.tts.LastVoice())
	}
}

func TestStatus(t *testing.T) {
	limiter := ratelimit.New(10, time.Minute)
	limiter.Record()

	f := newFixture(t, pipeline.Config{Limiter: limiter})

	s := f.orch.Status(context.Background())
	if !s.Success || !s.STTConfigured || !s.LLMConfigured || !s.TTSConfigured {
		t.Errorf("unexpected status: %+v", s)
	}
	if s.RateLimitRemaining != 9 || s.RateLimitMax != 10 {
		t.Errorf("unexpected limiter fields: %+v", s)
	}
}

func TestEstimateSpokenSeconds(t *testing.T) {
	for _, tc := range []struct {
		words int
		want  int
	}{
		{0, 1},   // minimum one second
		{1, 1},   // rounds down to zero, clamped
		{150, 60},
		{75, 30},
	} {
		text := ""
		for i := 0; i < tc.words; i++ {
			text += "word "
		}
		if got := pipeline.EstimateSpokenSeconds(text); got != tc.want {
			t.Errorf("EstimateSpokenSeconds(%d words) = %d, want %d", tc.words, got, tc.want)
		}
	}
}

func TestActionValid(t *testing.T) {
	for _, tc := range []struct {
		action pipeline.Action
		want   bool
	}{
		{pipeline.ActionPipeline, true},
		{pipeline.ActionSTT, true},
		{pipeline.ActionLLM, true},
		{pipeline.ActionTTS, true},
		{pipeline.ActionStatus, true},
		{pipeline.Action("upload"), false},
	} {
		if got := tc.action.Valid(); got != tc.want {
			t.Errorf("Valid(%q) = %v, want %v", tc.action, got, tc.want)
		}
	}
}
