// Package conversation provides the realtime model session the assistant
// talks through. It hides the WebSocket protocol behind a Provider that can
// connect, be configured with instructions and tools, have messages posted
// into it, and report function calls back.
//
// Example usage:
//
//	provider, err := conversation.NewOpenAI(
//	    conversation.WithAPIKey(os.Getenv("OPENAI_API_KEY")),
//	)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer provider.Close()
//
//	provider.OnToolCall(func(id, name string, args map[string]any) {
//	    result := dispatch(name, args)
//	    provider.SubmitToolResult(id, result)
//	})
//
//	if err := provider.Connect(ctx); err != nil {
//	    log.Fatal(err)
//	}
package conversation

import "context"

// Provider defines the interface for realtime conversation providers.
// Implementations handle the full loop: STT → LLM → TTS.
type Provider interface {
	// Connect establishes the connection to the conversation service.
	// Call this after setting up event handlers.
	Connect(ctx context.Context) error

	// Close gracefully shuts down the connection and releases resources.
	Close() error

	// IsConnected returns true if the provider has an active connection.
	IsConnected() bool

	// ConfigureSession sets instructions, voice and tools.
	// Call this after Connect but before sending audio.
	ConfigureSession(opts SessionOptions) error

	// SendAudio streams PCM16 mono audio to the conversation service.
	SendAudio(audio []byte) error

	// InsertMessage adds a text message authored by role to the conversation.
	InsertMessage(role Role, text string) error

	// CreateResponse asks the model to produce its next response.
	CreateResponse() error

	// SubmitToolResult returns the result of a tool call to the agent and
	// asks it to continue.
	SubmitToolResult(callID, result string) error

	// OnAudio sets the callback for receiving audio from the agent.
	OnAudio(fn func(audio []byte))

	// OnAudioDone sets the callback for when the agent finishes speaking.
	OnAudioDone(fn func())

	// OnTranscript sets the callback for transcript events.
	OnTranscript(fn func(role Role, text string, isFinal bool))

	// OnToolCall sets the callback for function calls from the agent.
	// Use SubmitToolResult to return the result.
	OnToolCall(fn func(id, name string, args map[string]any))

	// OnError sets the callback for non-fatal error events.
	OnError(fn func(err error))

	// OnInterruption sets the callback for when the user interrupts the agent.
	OnInterruption(fn func())

	// OnClose sets the callback for when the connection ends. err is nil on
	// a normal closure.
	OnClose(fn func(err error))
}
