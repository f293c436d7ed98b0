package conversation

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
)

// OpenAI implements Provider for the OpenAI Realtime API.
type OpenAI struct {
	config *Config
	logger *slog.Logger

	mu        sync.RWMutex
	writeMu   sync.Mutex
	conn      *websocket.Conn
	state     ConnectionState
	closing   bool
	cancelCtx context.CancelFunc
	connected time.Time

	onAudio        func(audio []byte)
	onAudioDone    func()
	onTranscript   func(role Role, text string, isFinal bool)
	onToolCall     func(id, name string, args map[string]any)
	onError        func(err error)
	onInterruption func()
	onClose        func(err error)

	messagesSent      atomic.Int64
	messagesReceived  atomic.Int64
	toolCallsReceived atomic.Int64
}

// NewOpenAI creates a new OpenAI Realtime conversation provider.
func NewOpenAI(opts ...Option) (*OpenAI, error) {
	cfg := DefaultConfig()
	cfg.Apply(opts...)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &OpenAI{
		config: cfg,
		logger: cfg.Logger.With("component", "conversation.openai"),
		state:  StateDisconnected,
	}, nil
}

// Connect establishes the WebSocket connection to OpenAI.
func (o *OpenAI) Connect(ctx context.Context) error {
	o.mu.Lock()
	if o.state != StateDisconnected {
		o.mu.Unlock()
		return ErrAlreadyConnected
	}
	o.state = StateConnecting
	o.closing = false
	o.mu.Unlock()

	endpoint := fmt.Sprintf("%s?model=%s", o.config.BaseURL, url.QueryEscape(o.config.Model))

	headers := http.Header{}
	headers.Set("Authorization", "Bearer "+o.config.APIKey)
	headers.Set("OpenAI-Beta", "realtime=v1")

	dialer := websocket.Dialer{
		HandshakeTimeout: o.config.Timeout,
	}

	o.logger.Info("connecting to OpenAI Realtime API", "model", o.config.Model)

	conn, resp, err := dialer.DialContext(ctx, endpoint, headers)
	if err != nil {
		o.mu.Lock()
		o.state = StateDisconnected
		o.mu.Unlock()
		if resp != nil {
			return NewConnectionError(
				fmt.Sprintf("dial failed with status %d", resp.StatusCode),
				err,
				resp.StatusCode >= 500,
			)
		}
		return NewConnectionError("dial failed", err, true)
	}

	msgCtx, cancel := context.WithCancel(context.Background())

	o.mu.Lock()
	o.conn = conn
	o.state = StateConnected
	o.cancelCtx = cancel
	o.connected = time.Now()
	o.mu.Unlock()

	go o.handleMessages(msgCtx, conn)

	o.logger.Info("connected to OpenAI Realtime API")
	return nil
}

// Close gracefully closes the connection.
func (o *OpenAI) Close() error {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.state == StateDisconnected {
		return nil
	}
	o.closing = true

	if o.cancelCtx != nil {
		o.cancelCtx()
	}

	if o.conn != nil {
		deadline := time.Now().Add(time.Second)
		o.writeMu.Lock()
		_ = o.conn.WriteControl(
			websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			deadline,
		)
		o.writeMu.Unlock()
		o.conn.Close()
		o.conn = nil
	}

	o.state = StateDisconnected
	o.logger.Info("disconnected from OpenAI Realtime API")
	return nil
}

// IsConnected returns true if connected.
func (o *OpenAI) IsConnected() bool {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.state == StateConnected
}

// send writes one JSON event. Writes are serialized; gorilla connections
// support a single concurrent writer.
func (o *OpenAI) send(msg any, what string) error {
	o.mu.RLock()
	conn := o.conn
	state := o.state
	o.mu.RUnlock()

	if state != StateConnected || conn == nil {
		return ErrNotConnected
	}

	o.writeMu.Lock()
	_ = conn.SetWriteDeadline(time.Now().Add(o.config.WriteTimeout))
	err := conn.WriteJSON(msg)
	o.writeMu.Unlock()

	if err != nil {
		return NewConnectionError(what+" failed", err, true)
	}
	o.messagesSent.Add(1)
	return nil
}

// SendAudio sends audio to the conversation.
func (o *OpenAI) SendAudio(audio []byte) error {
	return o.send(map[string]any{
		"type":  "input_audio_buffer.append",
		"audio": base64.StdEncoding.EncodeToString(audio),
	}, "send audio")
}

// ConfigureSession configures the conversation session.
func (o *OpenAI) ConfigureSession(opts SessionOptions) error {
	voice := opts.Voice
	if voice == "" {
		voice = o.config.Voice
	}

	apiTools := make([]map[string]any, len(opts.Tools))
	for i, tool := range opts.Tools {
		params := tool.Parameters
		if params == nil {
			params = map[string]any{"type": "object", "properties": map[string]any{}}
		}
		apiTools[i] = map[string]any{
			"type":        "function",
			"name":        tool.Name,
			"description": tool.Description,
			"parameters":  params,
		}
	}

	turnDetection := map[string]any{
		"type":                "server_vad",
		"threshold":           0.5,
		"prefix_padding_ms":   300,
		"silence_duration_ms": 500,
	}
	if td := opts.TurnDetection; td != nil {
		turnDetection["type"] = td.Type
		if td.Threshold > 0 {
			turnDetection["threshold"] = td.Threshold
		}
		if td.PrefixPaddingMs > 0 {
			turnDetection["prefix_padding_ms"] = td.PrefixPaddingMs
		}
		if td.SilenceDurationMs > 0 {
			turnDetection["silence_duration_ms"] = td.SilenceDurationMs
		}
	}

	session := map[string]any{
		"modalities":          []string{"text", "audio"},
		"instructions":        opts.Instructions,
		"voice":               voice,
		"input_audio_format":  "pcm16",
		"output_audio_format": "pcm16",
		"input_audio_transcription": map[string]any{
			"model": "whisper-1",
		},
		"turn_detection": turnDetection,
		"tools":          apiTools,
		"tool_choice":    "auto",
	}
	if opts.Temperature > 0 {
		session["temperature"] = opts.Temperature
	}
	if opts.MaxResponseTokens > 0 {
		session["max_response_output_tokens"] = opts.MaxResponseTokens
	}

	return o.send(map[string]any{
		"type":    "session.update",
		"session": session,
	}, "configure session")
}

// InsertMessage adds a text item to the conversation.
func (o *OpenAI) InsertMessage(role Role, text string) error {
	var contentType string
	switch role {
	case RoleUser, RoleSystem:
		contentType = "input_text"
	case RoleAssistant:
		contentType = "text"
	default:
		return fmt.Errorf("%w: %q", ErrInvalidRole, role)
	}

	return o.send(map[string]any{
		"type": "conversation.item.create",
		"item": map[string]any{
			"type": "message",
			"role": string(role),
			"content": []map[string]any{
				{"type": contentType, "text": text},
			},
		},
	}, "insert message")
}

// CreateResponse asks the model to respond.
func (o *OpenAI) CreateResponse() error {
	return o.send(map[string]string{"type": "response.create"}, "create response")
}

// SubmitToolResult submits the result of a tool call.
func (o *OpenAI) SubmitToolResult(callID, result string) error {
	err := o.send(map[string]any{
		"type": "conversation.item.create",
		"item": map[string]any{
			"type":    "function_call_output",
			"call_id": callID,
			"output":  result,
		},
	}, "submit tool result")
	if err != nil {
		return err
	}

	if err := o.CreateResponse(); err != nil {
		return err
	}

	o.logger.Debug("submitted tool result",
		"call_id", callID,
		"result_len", len(result),
	)
	return nil
}

// Metrics returns a snapshot of connection statistics.
func (o *OpenAI) Metrics() Metrics {
	o.mu.RLock()
	connected := o.connected
	o.mu.RUnlock()
	return Metrics{
		ConnectionTime:    connected,
		MessagesSent:      o.messagesSent.Load(),
		MessagesReceived:  o.messagesReceived.Load(),
		ToolCallsReceived: o.toolCallsReceived.Load(),
	}
}

// OnAudio sets the audio callback.
func (o *OpenAI) OnAudio(fn func(audio []byte)) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.onAudio = fn
}

// OnAudioDone sets the audio done callback.
func (o *OpenAI) OnAudioDone(fn func()) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.onAudioDone = fn
}

// OnTranscript sets the transcript callback.
func (o *OpenAI) OnTranscript(fn func(role Role, text string, isFinal bool)) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.onTranscript = fn
}

// OnToolCall sets the tool call callback.
func (o *OpenAI) OnToolCall(fn func(id, name string, args map[string]any)) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.onToolCall = fn
}

// OnError sets the error callback.
func (o *OpenAI) OnError(fn func(err error)) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.onError = fn
}

// OnInterruption sets the interruption callback.
func (o *OpenAI) OnInterruption(fn func()) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.onInterruption = fn
}

// OnClose sets the close callback.
func (o *OpenAI) OnClose(fn func(err error)) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.onClose = fn
}

// handleMessages reads events until the connection ends, then reports the
// closure once.
func (o *OpenAI) handleMessages(ctx context.Context, conn *websocket.Conn) {
	var closeErr error
	defer func() {
		o.mu.Lock()
		if o.closing {
			closeErr = nil
		}
		if o.conn == conn {
			o.conn = nil
		}
		o.state = StateDisconnected
		fn := o.onClose
		o.mu.Unlock()
		if fn != nil {
			fn(closeErr)
		}
	}()

	for {
		if ctx.Err() != nil {
			return
		}

		_, data, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() != nil || websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				o.logger.Info("connection closed normally")
				return
			}
			o.logger.Error("read error", "error", err)
			closeErr = NewConnectionError("read failed", err, true)
			return
		}

		o.messagesReceived.Add(1)

		var msg map[string]any
		if err := json.Unmarshal(data, &msg); err != nil {
			o.logger.Warn("failed to parse message", "error", err)
			continue
		}

		o.handleMessage(msg)
	}
}

// handleMessage processes a single message.
func (o *OpenAI) handleMessage(msg map[string]any) {
	msgType, _ := msg["type"].(string)

	switch msgType {
	case "session.created":
		o.logger.Info("session created")

	case "session.updated":
		o.logger.Debug("session updated")

	case "input_audio_buffer.speech_started":
		o.logger.Debug("speech started")
		o.emitInterruption()

	case "conversation.item.input_audio_transcription.completed":
		if transcript, ok := msg["transcript"].(string); ok {
			o.emitTranscript(RoleUser, transcript, true)
		}

	case "response.audio.delta":
		if delta, ok := msg["delta"].(string); ok {
			if audio, err := base64.StdEncoding.DecodeString(delta); err == nil {
				o.emitAudio(audio)
			}
		}

	case "response.audio.done":
		o.emitAudioDone()

	case "response.audio_transcript.delta":
		if delta, ok := msg["delta"].(string); ok {
			o.emitTranscript(RoleAssistant, delta, false)
		}

	case "response.audio_transcript.done":
		if transcript, ok := msg["transcript"].(string); ok {
			o.emitTranscript(RoleAssistant, transcript, true)
		}

	case "response.function_call_arguments.done":
		o.handleFunctionCall(msg)

	case "error":
		if errData, ok := msg["error"].(map[string]any); ok {
			errMsg, _ := errData["message"].(string)
			errCode, _ := errData["code"].(string)
			apiErr := NewAPIError(0, errCode, errMsg)
			apiErr.Type, _ = errData["type"].(string)
			o.emitError(apiErr)
		}
	}
}

// handleFunctionCall decodes the call arguments. Malformed argument JSON is
// passed on as an empty object so the dispatcher reports what is missing.
func (o *OpenAI) handleFunctionCall(msg map[string]any) {
	name, _ := msg["name"].(string)
	callID, _ := msg["call_id"].(string)
	argsStr, _ := msg["arguments"].(string)

	var args map[string]any
	if err := json.Unmarshal([]byte(argsStr), &args); err != nil || args == nil {
		if err != nil {
			o.logger.Warn("malformed tool arguments", "name", name, "error", err)
		}
		args = make(map[string]any)
	}

	o.toolCallsReceived.Add(1)
	o.logger.Info("tool call received", "name", name, "call_id", callID)

	o.emitToolCall(callID, name, args)
}

func (o *OpenAI) emitAudio(audio []byte) {
	o.mu.RLock()
	fn := o.onAudio
	o.mu.RUnlock()
	if fn != nil {
		fn(audio)
	}
}

func (o *OpenAI) emitAudioDone() {
	o.mu.RLock()
	fn := o.onAudioDone
	o.mu.RUnlock()
	if fn != nil {
		fn()
	}
}

func (o *OpenAI) emitTranscript(role Role, text string, isFinal bool) {
	o.mu.RLock()
	fn := o.onTranscript
	o.mu.RUnlock()
	if fn != nil {
		fn(role, text, isFinal)
	}
}

func (o *OpenAI) emitToolCall(id, name string, args map[string]any) {
	o.mu.RLock()
	fn := o.onToolCall
	o.mu.RUnlock()
	if fn != nil {
		fn(id, name, args)
	}
}

func (o *OpenAI) emitInterruption() {
	o.mu.RLock()
	fn := o.onInterruption
	o.mu.RUnlock()
	if fn != nil {
		fn()
	}
}

func (o *OpenAI) emitError(err error) {
	o.mu.RLock()
	fn := o.onError
	o.mu.RUnlock()
	if fn != nil {
		fn(err)
	}
}

var _ Provider = (*OpenAI)(nil)
