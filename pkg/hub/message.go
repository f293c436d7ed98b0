// Package hub fans dashboard events out to every connected websocket
// client using a single goroutine that owns the client set.
package hub

import (
	"encoding/json"
	"fmt"
	"time"
)

// Event types published on the dashboard feed.
const (
	EventToolInvocation = "tool_invocation"
	EventSessionState   = "session_state"
	EventRoomsChanged   = "rooms_changed"
)

// Envelope is the JSON frame every client receives.
type Envelope struct {
	Type      string `json:"type"`
	Timestamp int64  `json:"ts"`
	Data      any    `json:"data,omitempty"`
}

// Message is one pre-encoded frame queued for broadcast.
type Message struct {
	Data []byte
}

// NewEventMessage encodes an Envelope stamped with the current time.
func NewEventMessage(eventType string, data any) (Message, error) {
	raw, err := json.Marshal(Envelope{
		Type:      eventType,
		Timestamp: time.Now().UnixMilli(),
		Data:      data,
	})
	if err != nil {
		return Message{}, fmt.Errorf("hub: encode %s event: %w", eventType, err)
	}
	return Message{Data: raw}, nil
}
