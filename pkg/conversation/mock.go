package conversation

import (
	"context"
	"sync"
)

// Message is a text item inserted into a conversation.
type Message struct {
	Role Role
	Text string
}

// Mock is a mock implementation of Provider for testing. Captured calls are
// read through the accessor methods, which are safe for concurrent use.
type Mock struct {
	mu sync.RWMutex

	connected bool

	onAudio        func(audio []byte)
	onAudioDone    func()
	onTranscript   func(role Role, text string, isFinal bool)
	onToolCall     func(id, name string, args map[string]any)
	onError        func(err error)
	onInterruption func()
	onClose        func(err error)

	// Configurable behavior
	ConnectFunc          func(ctx context.Context) error
	ConfigureSessionFunc func(opts SessionOptions) error
	InsertMessageFunc    func(role Role, text string) error
	SubmitToolResultFunc func(callID, result string) error

	audioSent      [][]byte
	sessionOptions *SessionOptions
	messages       []Message
	responses      int
	toolResults    map[string]string
	closeCalls     int
}

// NewMock creates a new Mock provider.
func NewMock() *Mock {
	return &Mock{
		toolResults: make(map[string]string),
	}
}

// Connect implements Provider.
func (m *Mock) Connect(ctx context.Context) error {
	if m.ConnectFunc != nil {
		if err := m.ConnectFunc(ctx); err != nil {
			return err
		}
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.connected {
		return ErrAlreadyConnected
	}
	m.connected = true
	return nil
}

// Close implements Provider.
func (m *Mock) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.connected = false
	m.closeCalls++
	return nil
}

// IsConnected implements Provider.
func (m *Mock) IsConnected() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.connected
}

// SendAudio implements Provider.
func (m *Mock) SendAudio(audio []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.connected {
		return ErrNotConnected
	}
	m.audioSent = append(m.audioSent, audio)
	return nil
}

// ConfigureSession implements Provider.
func (m *Mock) ConfigureSession(opts SessionOptions) error {
	if m.ConfigureSessionFunc != nil {
		if err := m.ConfigureSessionFunc(opts); err != nil {
			return err
		}
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.connected {
		return ErrNotConnected
	}
	m.sessionOptions = &opts
	return nil
}

// InsertMessage implements Provider.
func (m *Mock) InsertMessage(role Role, text string) error {
	if m.InsertMessageFunc != nil {
		if err := m.InsertMessageFunc(role, text); err != nil {
			return err
		}
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.connected {
		return ErrNotConnected
	}
	m.messages = append(m.messages, Message{Role: role, Text: text})
	return nil
}

// CreateResponse implements Provider.
func (m *Mock) CreateResponse() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.connected {
		return ErrNotConnected
	}
	m.responses++
	return nil
}

// SubmitToolResult implements Provider.
func (m *Mock) SubmitToolResult(callID, result string) error {
	if m.SubmitToolResultFunc != nil {
		if err := m.SubmitToolResultFunc(callID, result); err != nil {
			return err
		}
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.connected {
		return ErrNotConnected
	}
	m.toolResults[callID] = result
	m.responses++
	return nil
}

// OnAudio implements Provider.
func (m *Mock) OnAudio(fn func(audio []byte)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.onAudio = fn
}

// OnAudioDone implements Provider.
func (m *Mock) OnAudioDone(fn func()) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.onAudioDone = fn
}

// OnTranscript implements Provider.
func (m *Mock) OnTranscript(fn func(role Role, text string, isFinal bool)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.onTranscript = fn
}

// OnToolCall implements Provider.
func (m *Mock) OnToolCall(fn func(id, name string, args map[string]any)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.onToolCall = fn
}

// OnError implements Provider.
func (m *Mock) OnError(fn func(err error)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.onError = fn
}

// OnInterruption implements Provider.
func (m *Mock) OnInterruption(fn func()) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.onInterruption = fn
}

// OnClose implements Provider.
func (m *Mock) OnClose(fn func(err error)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.onClose = fn
}

// Test helpers

// SimulateAudio triggers the OnAudio callback with the given audio.
func (m *Mock) SimulateAudio(audio []byte) {
	m.mu.RLock()
	fn := m.onAudio
	m.mu.RUnlock()
	if fn != nil {
		fn(audio)
	}
}

// SimulateAudioDone triggers the OnAudioDone callback.
func (m *Mock) SimulateAudioDone() {
	m.mu.RLock()
	fn := m.onAudioDone
	m.mu.RUnlock()
	if fn != nil {
		fn()
	}
}

// SimulateTranscript triggers the OnTranscript callback.
func (m *Mock) SimulateTranscript(role Role, text string, isFinal bool) {
	m.mu.RLock()
	fn := m.onTranscript
	m.mu.RUnlock()
	if fn != nil {
		fn(role, text, isFinal)
	}
}

// SimulateToolCall triggers the OnToolCall callback.
func (m *Mock) SimulateToolCall(id, name string, args map[string]any) {
	m.mu.RLock()
	fn := m.onToolCall
	m.mu.RUnlock()
	if fn != nil {
		fn(id, name, args)
	}
}

// SimulateError triggers the OnError callback.
func (m *Mock) SimulateError(err error) {
	m.mu.RLock()
	fn := m.onError
	m.mu.RUnlock()
	if fn != nil {
		fn(err)
	}
}

// SimulateInterruption triggers the OnInterruption callback.
func (m *Mock) SimulateInterruption() {
	m.mu.RLock()
	fn := m.onInterruption
	m.mu.RUnlock()
	if fn != nil {
		fn()
	}
}

// SimulateClose marks the mock disconnected and triggers OnClose.
func (m *Mock) SimulateClose(err error) {
	m.mu.Lock()
	m.connected = false
	fn := m.onClose
	m.mu.Unlock()
	if fn != nil {
		fn(err)
	}
}

// AudioSent returns copies of the audio frames sent so far.
func (m *Mock) AudioSent() [][]byte {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([][]byte(nil), m.audioSent...)
}

// SessionOptions returns the options from the last ConfigureSession call.
func (m *Mock) SessionOptions() *SessionOptions {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.sessionOptions
}

// Messages returns the inserted messages in order.
func (m *Mock) Messages() []Message {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]Message(nil), m.messages...)
}

// Responses returns how many responses were requested, including the
// continuation after each tool result.
func (m *Mock) Responses() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.responses
}

// ToolResults returns a copy of submitted tool results keyed by call ID.
func (m *Mock) ToolResults() map[string]string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make(map[string]string, len(m.toolResults))
	for k, v := range m.toolResults {
		out[k] = v
	}
	return out
}

// CloseCalls returns how many times Close was called.
func (m *Mock) CloseCalls() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.closeCalls
}

var _ Provider = (*Mock)(nil)
