// Package interview holds the conversation state for a mock interview:
// an append-only transcript, the fixed question list with its cursor, and
// the system prompt builder that frames the LLM as the interviewer.
package interview

import (
	"time"
)

// Type selects the interview style.
type Type string

const (
	TypeTechnical  Type = "technical"
	TypeBehavioral Type = "behavioral"
	TypeMixed      Type = "mixed"
)

// Valid reports whether the type is one of the known interview styles.
func (t Type) Valid() bool {
	switch t {
	case TypeTechnical, TypeBehavioral, TypeMixed:
		return true
	}
	return false
}

// Turn is one conversation entry. Turns are immutable once appended.
type Turn struct {
	// Role is "user" or "assistant".
	Role string `json:"role"`

	// Content is the turn text.
	Content string `json:"content"`

	// Timestamp is when the turn was recorded.
	Timestamp time.Time `json:"timestamp,omitempty"`

	// Metadata carries optional per-turn annotations (latencies, provider).
	Metadata map[string]interface{} `json:"metadata,omitempty"`
}

// Turn roles.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Config describes one interview session: its style, the ordered question
// list, and the cursor into it.
//
// Invariant: 0 <= CurrentIndex <= len(Questions). CurrentIndex points at
// the question the interviewer asks in the current turn; callers advance
// it once that turn completes, so the question reported as upcoming is
// always the one after the cursor.
type Config struct {
	Type         Type     `json:"type"`
	Questions    []string `json:"questions"`
	CurrentIndex int      `json:"currentIndex"`
}

// Complete reports whether every question has been asked.
func (c *Config) Complete() bool {
	return c.CurrentIndex >= len(c.Questions)
}

// NextQuestion returns the question at the cursor, or "" when the
// interview is complete.
func (c *Config) NextQuestion() string {
	if c == nil || c.Complete() {
		return ""
	}
	return c.Questions[c.CurrentIndex]
}

// Advance moves the cursor forward by one, clamped to len(Questions).
func (c *Config) Advance() {
	if c.CurrentIndex < len(c.Questions) {
		c.CurrentIndex++
	}
}
