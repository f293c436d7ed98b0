// Package protocol defines the WebSocket frames exchanged between a
// participant client and the assistant server.
package protocol

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// MessageType identifies the type of WebSocket message
type MessageType string

const (
	// Participant → server
	TypeJoin  MessageType = "join"
	TypeAudio MessageType = "audio" // also server → participant
	TypeLeave MessageType = "leave"

	// Server → participant
	TypeState      MessageType = "state"
	TypeTranscript MessageType = "transcript"
	TypeError      MessageType = "error"
	TypeInterrupt  MessageType = "interrupt" // drop queued playback
	TypeAudioDone  MessageType = "audio_done"

	// Bidirectional
	TypePing MessageType = "ping"
	TypePong MessageType = "pong"
)

// ErrUnknownType indicates a frame whose type is not part of the protocol.
var ErrUnknownType = errors.New("protocol: unknown message type")

// Message is the base wrapper for all WebSocket messages
type Message struct {
	Type      MessageType     `json:"type"`
	Timestamp int64           `json:"ts,omitempty"` // Unix milliseconds
	Data      json.RawMessage `json:"data,omitempty"`
}

// NewMessage creates a new message with the current timestamp
func NewMessage(msgType MessageType, data any) (*Message, error) {
	var rawData json.RawMessage
	if data != nil {
		var err error
		rawData, err = json.Marshal(data)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal message data: %w", err)
		}
	}

	return &Message{
		Type:      msgType,
		Timestamp: time.Now().UnixMilli(),
		Data:      rawData,
	}, nil
}

// ParseData unmarshals the message data into the provided struct
func (m *Message) ParseData(v any) error {
	if m.Data == nil {
		return nil
	}
	return json.Unmarshal(m.Data, v)
}

// Bytes returns the JSON-encoded message
func (m *Message) Bytes() ([]byte, error) {
	return json.Marshal(m)
}

// ParseMessage parses a JSON message from bytes and rejects unknown types.
func ParseMessage(data []byte) (*Message, error) {
	var msg Message
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, fmt.Errorf("failed to parse message: %w", err)
	}
	switch msg.Type {
	case TypeJoin, TypeAudio, TypeLeave, TypeState, TypeTranscript, TypeError,
		TypeInterrupt, TypeAudioDone, TypePing, TypePong:
		return &msg, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownType, msg.Type)
	}
}

// JoinData announces the participant.
type JoinData struct {
	Identity string `json:"identity"`
}

// AudioData carries PCM16 mono audio.
type AudioData struct {
	Format     string `json:"format,omitempty"`      // "pcm16"
	SampleRate int    `json:"sample_rate,omitempty"` // e.g., 24000
	Data       string `json:"data"`                  // base64 encoded
}

// StateData reports the session lifecycle state.
type StateData struct {
	SessionID string `json:"session_id"`
	State     string `json:"state"`
}

// TranscriptData carries a transcript fragment.
type TranscriptData struct {
	Role  string `json:"role"`
	Text  string `json:"text"`
	Final bool   `json:"final"`
}

// ErrorData reports a problem to the participant.
type ErrorData struct {
	Message string `json:"message"`
}

// PingData contains ping information
type PingData struct {
	ID        string `json:"id"`
	Timestamp int64  `json:"ts"`
}

// PongData contains pong response
type PongData struct {
	ID        string `json:"id"`
	PingTS    int64  `json:"ping_ts"`
	PongTS    int64  `json:"pong_ts"`
	LatencyMs int64  `json:"latency_ms"`
}
