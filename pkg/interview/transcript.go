package interview

import (
	"sync"
	"time"
)

// Transcript is the append-only ordered log of conversation turns.
// A completed pipeline turn appends exactly one user turn and one
// assistant turn atomically, so readers never observe an odd half.
type Transcript struct {
	mu    sync.Mutex
	turns []Turn
}

// NewTranscript creates an empty transcript.
func NewTranscript() *Transcript {
	return &Transcript{}
}

// Append adds a user turn and an assistant turn under one lock.
// Missing timestamps are filled with the current time.
func (t *Transcript) Append(user, assistant Turn) {
	now := time.Now()
	user.Role = RoleUser
	assistant.Role = RoleAssistant
	if user.Timestamp.IsZero() {
		user.Timestamp = now
	}
	if assistant.Timestamp.IsZero() {
		assistant.Timestamp = now
	}

	t.mu.Lock()
	t.turns = append(t.turns, user, assistant)
	t.mu.Unlock()
}

// Reset clears the whole log.
func (t *Transcript) Reset() {
	t.mu.Lock()
	t.turns = nil
	t.mu.Unlock()
}

// Len returns the number of turns.
func (t *Transcript) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.turns)
}

// Turns returns a copy of the full log in order.
func (t *Transcript) Turns() []Turn {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]Turn, len(t.turns))
	copy(out, t.turns)
	return out
}

// Recent returns a copy of the last n turns, oldest first.
// Used to truncate the prompt context.
func (t *Transcript) Recent(n int) []Turn {
	t.mu.Lock()
	defer t.mu.Unlock()
	if n <= 0 || len(t.turns) == 0 {
		return nil
	}
	if n > len(t.turns) {
		n = len(t.turns)
	}
	out := make([]Turn, n)
	copy(out, t.turns[len(t.turns)-n:])
	return out
}
