package stt

import (
	"context"
	"sync"
)

// Mock is a test double that records calls and returns scripted transcripts.
type Mock struct {
	mu    sync.Mutex
	calls []string

	// Text is returned for every Transcribe call. Defaults to a fixed phrase.
	Text string

	// Err, when set, is returned by every method.
	Err error
}

// NewMock creates a mock provider that returns a fixed transcript.
func NewMock() *Mock {
	return &Mock{Text: "mock transcript"}
}

// WithError creates a mock provider that fails every call.
func WithError(err error) *Mock {
	return &Mock{Err: err}
}

// Transcribe returns the scripted text.
func (m *Mock) Transcribe(_ context.Context, req *Request) (*Result, error) {
	m.record("Transcribe")
	if m.Err != nil {
		return nil, m.Err
	}
	if len(req.Audio) == 0 {
		return nil, ErrNoAudio
	}
	return &Result{
		Text:      m.Text,
		Language:  req.Language,
		Model:     "mock",
		LatencyMs: 1,
	}, nil
}

// Health returns the scripted error, if any.
func (m *Mock) Health(context.Context) error {
	m.record("Health")
	return m.Err
}

// Close is a no-op.
func (m *Mock) Close() error {
	m.record("Close")
	return nil
}

// Calls returns the ordered list of recorded method names.
func (m *Mock) Calls() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, len(m.calls))
	copy(out, m.calls)
	return out
}

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

// Reset clears recorded calls.
func (m *Mock) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = m.calls[:0]
}

func (m *Mock) record(name string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, name)
}

// Verify Mock implements Provider at compile time.
var _ Provider = (*Mock)(nil)
