// Package session drives one conversation from connection to termination.
//
// A Session connects the model, waits for a participant, hands the model its
// instructions and tools, speaks a greeting, and then routes every function
// call to the tool dispatcher until the participant leaves or the model
// connection closes.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/KakuleMalambo/voice-assistant/internal/metrics"
	"github.com/KakuleMalambo/voice-assistant/pkg/conversation"
	"github.com/KakuleMalambo/voice-assistant/pkg/tools"
)

// DefaultInstructions is the system instruction given to the model.
const DefaultInstructions = `You are a friendly voice assistant for a household. Keep answers short and conversational; they are spoken aloud.

You can check the weather, search the web, read the temperature of every room, and set the temperature of a room.

Use searchWeb for anything current or time-sensitive (news, prices, schedules, recent events, anything that may have changed since your training) instead of answering from memory. Answer general knowledge questions directly without searching.

Use weather for weather questions. Use getRoomTemperatures before reporting room temperatures, and setRoomTemperature when asked to change one. If a tool reports an error, tell the user plainly what went wrong.`

// DefaultGreeting is the assistant's opening line.
const DefaultGreeting = "Hello! I'm your home assistant. I can check the weather, search the web, or adjust the temperature in any room. What can I do for you?"

// ErrInvalidConfig indicates a Config missing a required collaborator.
var ErrInvalidConfig = errors.New("session: invalid config")

// Config holds the collaborators of one session.
type Config struct {
	Provider   conversation.Provider
	Room       Room
	Dispatcher *tools.Dispatcher

	Instructions string
	Greeting     string
	Voice        string

	Logger  *slog.Logger
	Metrics *metrics.Metrics

	// OnStateChange is called synchronously on every transition.
	OnStateChange func(State)
}

// Session is one live conversation. Run may be called once.
type Session struct {
	id     string
	cfg    Config
	logger *slog.Logger

	mu          sync.Mutex
	state       State
	participant Participant
	terminated  bool
	inflight    sync.WaitGroup
	toolCtx     context.Context

	closeOnce sync.Once
	closed    chan struct{}
	closeErr  error
}

// New validates cfg and creates a session with a fresh ID.
func New(cfg Config) (*Session, error) {
	switch {
	case cfg.Provider == nil:
		return nil, fmt.Errorf("%w: provider is required", ErrInvalidConfig)
	case cfg.Room == nil:
		return nil, fmt.Errorf("%w: room is required", ErrInvalidConfig)
	case cfg.Dispatcher == nil:
		return nil, fmt.Errorf("%w: dispatcher is required", ErrInvalidConfig)
	}
	if cfg.Instructions == "" {
		cfg.Instructions = DefaultInstructions
	}
	if cfg.Greeting == "" {
		cfg.Greeting = DefaultGreeting
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	id := uuid.NewString()
	return &Session{
		id:     id,
		cfg:    cfg,
		logger: cfg.Logger.With("component", "session", "session_id", id),
		state:  StateConnecting,
		closed: make(chan struct{}),
	}, nil
}

// ID returns the session identifier.
func (s *Session) ID() string {
	return s.id
}

// State returns the current lifecycle state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Participant returns the joined participant, or nil before one joins.
func (s *Session) Participant() Participant {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.participant
}

func (s *Session) setState(st State) {
	s.mu.Lock()
	prev := s.state
	s.state = st
	s.mu.Unlock()

	s.logger.Info("session state", "from", prev.String(), "to", st.String())
	if s.cfg.OnStateChange != nil {
		s.cfg.OnStateChange(st)
	}
}

// Run drives the session until the participant leaves, the model connection
// closes, or ctx is done. Only a failure before the session is active is
// returned as an error, apart from an abnormal model disconnect.
func (s *Session) Run(ctx context.Context) (err error) {
	s.cfg.Metrics.SessionStarted()
	defer func() { s.cfg.Metrics.SessionEnded(err) }()

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	s.mu.Lock()
	s.toolCtx = context.WithoutCancel(runCtx)
	s.mu.Unlock()

	p := s.cfg.Provider
	p.OnToolCall(s.handleToolCall)
	p.OnAudio(s.forwardAudio)
	p.OnAudioDone(s.forwardAudioDone)
	p.OnTranscript(s.forwardTranscript)
	p.OnInterruption(s.forwardInterruption)
	p.OnError(func(err error) {
		s.logger.Warn("conversation error", "error", err)
	})
	p.OnClose(func(err error) {
		s.closeOnce.Do(func() {
			s.closeErr = err
			close(s.closed)
		})
		cancel()
	})

	defer s.terminate()

	// Connecting
	if err := p.Connect(runCtx); err != nil {
		return fmt.Errorf("session: connect: %w", err)
	}

	// AwaitingParticipant
	s.setState(StateAwaitingParticipant)
	participant, err := s.cfg.Room.WaitForParticipant(runCtx)
	if err != nil {
		if s.providerClosed() {
			return s.closedErr("waiting for participant")
		}
		return fmt.Errorf("session: wait for participant: %w", err)
	}
	s.mu.Lock()
	s.participant = participant
	s.mu.Unlock()
	s.logger.Info("participant joined", "identity", participant.Identity())

	// Initializing
	s.setState(StateInitializing)
	opts := conversation.DefaultSessionOptions()
	opts.Instructions = s.cfg.Instructions
	opts.Voice = s.cfg.Voice
	opts.Tools = s.cfg.Dispatcher.Registry().Descriptors()
	if err := p.ConfigureSession(opts); err != nil {
		return fmt.Errorf("session: configure: %w", err)
	}

	// Greeting
	s.setState(StateGreeting)
	if err := p.InsertMessage(conversation.RoleAssistant, s.cfg.Greeting); err != nil {
		return fmt.Errorf("session: greeting: %w", err)
	}
	if err := p.CreateResponse(); err != nil {
		return fmt.Errorf("session: greeting response: %w", err)
	}

	// Active
	s.setState(StateActive)
	return s.serve(runCtx, participant)
}

// serve pumps participant audio to the model until something ends the
// session. Tool calls are served by the provider callback meanwhile.
func (s *Session) serve(ctx context.Context, participant Participant) error {
	audio := participant.Audio()
	for {
		select {
		case <-s.closed:
			return s.closedErr("active")
		case <-ctx.Done():
			if s.providerClosed() {
				return s.closedErr("active")
			}
			s.logger.Info("session canceled")
			return nil
		case <-participant.Left():
			s.logger.Info("participant left", "identity", participant.Identity())
			return nil
		case frame, ok := <-audio:
			if !ok {
				s.logger.Info("participant audio ended", "identity", participant.Identity())
				return nil
			}
			if err := s.cfg.Provider.SendAudio(frame); err != nil {
				s.logger.Debug("send audio failed", "error", err)
			}
		}
	}
}

func (s *Session) providerClosed() bool {
	select {
	case <-s.closed:
		return true
	default:
		return false
	}
}

func (s *Session) closedErr(during string) error {
	if s.closeErr == nil {
		s.logger.Info("conversation closed", "during", during)
		return nil
	}
	return fmt.Errorf("session: conversation closed while %s: %w", during, s.closeErr)
}

// terminate moves to Terminated, closes the model connection and waits for
// in-flight tool calls. Their results are dropped.
func (s *Session) terminate() {
	s.mu.Lock()
	if s.terminated {
		s.mu.Unlock()
		return
	}
	s.terminated = true
	s.mu.Unlock()

	s.setState(StateTerminated)
	if err := s.cfg.Provider.Close(); err != nil {
		s.logger.Warn("close conversation", "error", err)
	}

	done := make(chan struct{})
	go func() {
		s.inflight.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(30 * time.Second):
		s.logger.Warn("tool calls still running after termination")
	}
}

// handleToolCall runs one function call on its own goroutine. The call is
// not canceled when the session ends; it completes and its result is
// discarded.
func (s *Session) handleToolCall(callID, name string, args map[string]any) {
	s.mu.Lock()
	if s.terminated {
		s.mu.Unlock()
		s.logger.Warn("tool call after termination ignored", "tool", name, "call_id", callID)
		return
	}
	s.inflight.Add(1)
	ctx := s.toolCtx
	s.mu.Unlock()

	go func() {
		defer s.inflight.Done()

		res, err := s.cfg.Dispatcher.Invoke(ctx, name, args)
		if err != nil {
			s.logger.Error("tool call rejected", "tool", name, "call_id", callID, "error", err)
			res = tools.Failure(fmt.Sprintf("Error: no tool named %q is available.", name))
		}

		s.mu.Lock()
		terminated := s.terminated
		s.mu.Unlock()
		if terminated {
			s.logger.Info("discarding tool result after termination", "tool", name, "call_id", callID)
			return
		}

		if err := s.cfg.Provider.SubmitToolResult(callID, res.Text); err != nil {
			s.logger.Warn("submit tool result", "tool", name, "call_id", callID, "error", err)
		}
	}()
}

func (s *Session) forwardAudio(audio []byte) {
	participant := s.Participant()
	if participant == nil {
		return
	}
	if err := participant.PlayAudio(audio); err != nil {
		s.logger.Debug("play audio failed", "error", err)
	}
}

func (s *Session) forwardTranscript(role conversation.Role, text string, final bool) {
	if final {
		s.logger.Debug("transcript", "role", string(role), "text", text)
	}
	participant := s.Participant()
	if participant == nil {
		return
	}
	if err := participant.SendTranscript(role, text, final); err != nil {
		s.logger.Debug("send transcript failed", "error", err)
	}
}

func (s *Session) forwardAudioDone() {
	participant := s.Participant()
	if participant == nil {
		return
	}
	if err := participant.EndTurn(); err != nil {
		s.logger.Debug("send turn end failed", "error", err)
	}
}

func (s *Session) forwardInterruption() {
	participant := s.Participant()
	if participant == nil {
		return
	}
	s.logger.Debug("user interrupted the assistant")
	if err := participant.Interrupt(); err != nil {
		s.logger.Debug("send interrupt failed", "error", err)
	}
}
