package web_test

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/intervox-ai/intervox/pkg/audio"
	"github.com/intervox-ai/intervox/pkg/interview"
	"github.com/intervox-ai/intervox/pkg/llm"
	"github.com/intervox-ai/intervox/pkg/pipeline"
	"github.com/intervox-ai/intervox/pkg/ratelimit"
	"github.com/intervox-ai/intervox/pkg/stt"
	"github.com/intervox-ai/intervox/pkg/tts"
	"github.com/intervox-ai/intervox/pkg/web"
)

func newTestServer(t *testing.T, cfg pipeline.Config) (*web.Server, *interview.Transcript) {
	t.Helper()

	if cfg.STT == nil {
		m := stt.NewMock()
		m.Text = "I have 3 years of React experience"
		cfg.STT = m
	}
	if cfg.LLM == nil {
		cfg.LLM = llm.NewMock("Tell me more")
	}
	if cfg.TTS == nil {
		cfg.TTS = tts.NewMock([]byte("reply-audio"))
	}

	orch, err := pipeline.New(cfg)
	require.NoError(t, err)

	transcript := interview.NewTranscript()
	return web.NewServer(web.Config{
		Port:         "0",
		Orchestrator: orch,
		Transcript:   transcript,
	}), transcript
}

func postPipeline(t *testing.T, s *web.Server, body interface{}) *http.Response {
	t.Helper()
	data, err := json.Marshal(body)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/api/voice/pipeline", bytes.NewReader(data))
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.App().Test(req, -1)
	require.NoError(t, err)
	return resp
}

func decodeBody(t *testing.T, resp *http.Response) map[string]interface{} {
	t.Helper()
	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(data, &out))
	return out
}

func clip() string {
	return audio.EncodeBase64(make([]byte, 4000))
}

func TestPipelineEndpoint(t *testing.T) {
	s, transcript := newTestServer(t, pipeline.Config{})

	resp := postPipeline(t, s, map[string]interface{}{
		"action": "pipeline",
		"audio":  clip(),
		"format": "wav",
		"interviewConfig": map[string]interface{}{
			"type":         "technical",
			"questions":    []string{"q1", "q2", "q3", "q4", "q5"},
			"currentIndex": 0,
		},
	})
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	body := decodeBody(t, resp)
	assert.Equal(t, true, body["success"])
	assert.Equal(t, "I have 3 years of React experience", body["transcript"])
	assert.Equal(t, "Tell me more", body["response"])
	assert.Equal(t, false, body["isComplete"])
	assert.Equal(t, "q2", body["nextQuestion"])
	assert.NotEmpty(t, body["audio"])

	// The turn lands in the shared transcript.
	assert.Equal(t, 2, transcript.Len())
}

func TestInvalidActionRejected(t *testing.T) {
	s, _ := newTestServer(t, pipeline.Config{})

	resp := postPipeline(t, s, map[string]interface{}{"action": "upload"})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	body := decodeBody(t, resp)
	assert.Equal(t, false, body["success"])
	assert.Contains(t, body["error"], "invalid action")
}

func TestStageFailureServedAs200(t *testing.T) {
	s, transcript := newTestServer(t, pipeline.Config{
		LLM: llm.WithError(errors.New("model overloaded")),
	})

	resp := postPipeline(t, s, map[string]interface{}{
		"action": "pipeline",
		"audio":  clip(),
	})
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	body := decodeBody(t, resp)
	assert.Equal(t, false, body["success"])
	assert.Equal(t, "llm", body["step"])

	// Failed turns never reach the transcript.
	assert.Equal(t, 0, transcript.Len())
}

func TestRateLimitedServedAs429(t *testing.T) {
	limiter := ratelimit.New(1, time.Minute)
	limiter.Record()

	s, _ := newTestServer(t, pipeline.Config{Limiter: limiter})

	resp := postPipeline(t, s, map[string]interface{}{
		"action": "pipeline",
		"audio":  clip(),
	})
	assert.Equal(t, http.StatusTooManyRequests, resp.StatusCode)

	body := decodeBody(t, resp)
	assert.Equal(t, false, body["success"])
	assert.Equal(t, pipeline.CodeRateLimited, body["code"])
	assert.Greater(t, body["retryAfter"].(float64), 0.0)
}

func TestStatusAction(t *testing.T) {
	limiter := ratelimit.New(10, time.Minute)
	s, _ := newTestServer(t, pipeline.Config{Limiter: limiter})

	resp := postPipeline(t, s, map[string]interface{}{"action": "stt-status"})
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	body := decodeBody(t, resp)
	assert.Equal(t, true, body["success"])
	assert.Equal(t, true, body["sttConfigured"])
	assert.Equal(t, float64(10), body["rateLimitMax"])
}

func TestHealthEndpoint(t *testing.T) {
	s, _ := newTestServer(t, pipeline.Config{})

	req := httptest.NewRequest(http.MethodGet, "/api/voice/pipeline", nil)
	resp, err := s.App().Test(req, -1)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	body := decodeBody(t, resp)
	assert.Equal(t, true, body["success"])
	status, ok := body["status"].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, true, status["sttConfigured"])
}

func TestSTTAction(t *testing.T) {
	s, _ := newTestServer(t, pipeline.Config{})

	resp := postPipeline(t, s, map[string]interface{}{
		"action": "stt",
		"audio":  clip(),
	})
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	body := decodeBody(t, resp)
	assert.Equal(t, true, body["success"])
	assert.Equal(t, "I have 3 years of React experience", body["transcript"])
	assert.Empty(t, body["response"])
}

func TestTTSActionRequiresText(t *testing.T) {
	s, _ := newTestServer(t, pipeline.Config{})

	resp := postPipeline(t, s, map[string]interface{}{"action": "tts"})
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	body := decodeBody(t, resp)
	assert.Equal(t, false, body["success"])
	assert.Equal(t, pipeline.CodeMissingInput, body["code"])
}
