package conversation

import "time"

// Role identifies the author of a message or transcript.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleSystem    Role = "system"
)

// ConnectionState represents the WebSocket connection state.
type ConnectionState int

const (
	// StateDisconnected indicates no active connection.
	StateDisconnected ConnectionState = iota
	// StateConnecting indicates connection is being established.
	StateConnecting
	// StateConnected indicates an active connection.
	StateConnected
)

// String returns a human-readable connection state.
func (s ConnectionState) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	default:
		return "unknown"
	}
}

// Tool is a function advertised to the agent. Parameters is a complete JSON
// Schema object.
type Tool struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Parameters  map[string]any `json:"parameters"`
}

// TurnDetection configures voice activity detection (VAD) for turn-taking.
type TurnDetection struct {
	// Type specifies the VAD mode: "server_vad" or "none".
	Type string

	// Threshold is the VAD sensitivity (0.0-1.0, higher = less sensitive).
	Threshold float64

	// PrefixPaddingMs is the audio to include before speech detection (ms).
	PrefixPaddingMs int

	// SilenceDurationMs is how long silence indicates end of turn (ms).
	SilenceDurationMs int
}

// SessionOptions configures a conversation session.
type SessionOptions struct {
	// Instructions is the system instruction for the agent.
	Instructions string

	// Voice is the TTS voice to use.
	Voice string

	// Temperature controls response randomness.
	Temperature float64

	// MaxResponseTokens limits response length.
	MaxResponseTokens int

	// TurnDetection configures VAD settings.
	TurnDetection *TurnDetection

	// Tools available to the agent during this session.
	Tools []Tool
}

// DefaultSessionOptions returns SessionOptions with sensible defaults.
func DefaultSessionOptions() SessionOptions {
	return SessionOptions{
		Temperature:       0.8,
		MaxResponseTokens: 4096,
		TurnDetection: &TurnDetection{
			Type:              "server_vad",
			Threshold:         0.5,
			PrefixPaddingMs:   300,
			SilenceDurationMs: 500,
		},
	}
}

// Metrics tracks connection and usage statistics.
type Metrics struct {
	ConnectionTime    time.Time
	MessagesSent      int64
	MessagesReceived  int64
	ToolCallsReceived int64
}
