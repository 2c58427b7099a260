// Package hub provides a thread-safe websocket broadcast hub
// using the idiomatic Go channel-based fan-out pattern. The server uses
// it to stream pipeline events (transcripts, stage timings, session
// state) to observers on /ws/events.
package hub

import (
	"encoding/json"
	"time"
)

// Event kinds broadcast by the server.
const (
	EventTranscript = "transcript"
	EventReply      = "reply"
	EventStage      = "stage"
	EventError      = "error"
)

// Event is one entry on the live feed.
type Event struct {
	// Type is one of the Event* constants.
	Type string `json:"type"`

	// Timestamp is when the event was emitted.
	Timestamp time.Time `json:"timestamp"`

	// Payload is event-specific data.
	Payload map[string]interface{} `json:"payload,omitempty"`
}

// NewEvent creates a timestamped event.
func NewEvent(kind string, payload map[string]interface{}) Event {
	return Event{Type: kind, Timestamp: time.Now(), Payload: payload}
}

// Encode marshals the event for the wire.
func (e Event) Encode() ([]byte, error) {
	return json.Marshal(e)
}
