package llm

import (
	"context"
	"sync"
)

// Mock is a test double that records calls and returns scripted replies.
type Mock struct {
	mu       sync.Mutex
	calls    []string
	requests []*ChatRequest

	// Replies are returned in order; the last one repeats when exhausted.
	Replies []string

	// Err, when set, is returned by every method.
	Err error
}

// NewMock creates a mock client with a single fixed reply.
func NewMock(replies ...string) *Mock {
	if len(replies) == 0 {
		replies = []string{"mock reply"}
	}
	return &Mock{Replies: replies}
}

// WithError creates a mock client that fails every call.
func WithError(err error) *Mock {
	return &Mock{Err: err}
}

// Chat returns the next scripted reply.
func (m *Mock) Chat(_ context.Context, req *ChatRequest) (*ChatResponse, error) {
	m.mu.Lock()
	m.calls = append(m.calls, "Chat")
	m.requests = append(m.requests, req)
	idx := len(m.requests) - 1
	m.mu.Unlock()

	if m.Err != nil {
		return nil, m.Err
	}
	if len(req.Messages) == 0 {
		return nil, ErrNoMessages
	}

	if idx >= len(m.Replies) {
		idx = len(m.Replies) - 1
	}
	return &ChatResponse{
		Content:      m.Replies[idx],
		FinishReason: "stop",
		Model:        "mock",
		LatencyMs:    1,
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

// LastRequest returns the most recent chat request, or nil.
func (m *Mock) LastRequest() *ChatRequest {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.requests) == 0 {
		return nil
	}
	return m.requests[len(m.requests)-1]
}

// Verify Mock implements Client at compile time.
var _ Client = (*Mock)(nil)
