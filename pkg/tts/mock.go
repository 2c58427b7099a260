package tts

import (
	"context"
	"sync"
	"time"
)

// Mock is a test double that records calls and returns scripted audio.
type Mock struct {
	mu     sync.Mutex
	calls  []string
	texts  []string
	voices []string

	// Audio is returned by every Synthesize call.
	Audio []byte

	// Err, when set, is returned by every method.
	Err error
}

// NewMock creates a mock provider returning fixed audio bytes.
func NewMock(audio []byte) *Mock {
	if audio == nil {
		audio = []byte("mock-audio")
	}
	return &Mock{Audio: audio}
}

// NewFailingMock creates a mock provider that fails every call.
func NewFailingMock(err error) *Mock {
	return &Mock{Err: err}
}

// Synthesize returns the scripted audio.
func (m *Mock) Synthesize(ctx context.Context, text string) (*AudioResult, error) {
	return m.SynthesizeVoice(ctx, text, "")
}

// SynthesizeVoice returns the scripted audio, recording the voice.
func (m *Mock) SynthesizeVoice(_ context.Context, text, voice string) (*AudioResult, error) {
	m.mu.Lock()
	m.calls = append(m.calls, "Synthesize")
	m.texts = append(m.texts, text)
	m.voices = append(m.voices, voice)
	m.mu.Unlock()

	if m.Err != nil {
		return nil, m.Err
	}
	return &AudioResult{
		Audio: m.Audio,
		Format: AudioFormat{
			Encoding:   EncodingMP3,
			SampleRate: 44100,
			Channels:   1,
		},
		CharCount: len(text),
		Duration:  time.Second,
		LatencyMs: 1,
	}, nil
}

// Health returns the scripted error, if any.
func (m *Mock) Health(context.Context) error {
	m.mu.Lock()
	m.calls = append(m.calls, "Health")
	m.mu.Unlock()
	return m.Err
}

// Close is a no-op.
func (m *Mock) Close() error { return nil }

// CallCount returns how many times the named method was called.
func (m *Mock) CallCount(name string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, c := range m.calls {
		if c == name {
			n++
		}
	}
	return n
}

// LastText returns the most recently synthesized text, or "".
func (m *Mock) LastText() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.texts) == 0 {
		return ""
	}
	return m.texts[len(m.texts)-1]
}

// LastVoice returns the most recently requested voice override, or "".
func (m *Mock) LastVoice() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.voices) == 0 {
		return ""
	}
	return m.voices[len(m.voices)-1]
}

// Verify Mock implements Provider at compile time.
var (
	_ Provider         = (*Mock)(nil)
	_ VoiceSynthesizer = (*Mock)(nil)
)
