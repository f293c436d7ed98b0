package web

import (
	"context"
	"log/slog"
	"sync"

	"github.com/gofiber/contrib/websocket"

	"github.com/KakuleMalambo/voice-assistant/pkg/conversation"
	"github.com/KakuleMalambo/voice-assistant/pkg/protocol"
	"github.com/KakuleMalambo/voice-assistant/pkg/session"
)

const (
	// audioBuffer is how many inbound frames may queue before new ones are
	// dropped.
	audioBuffer = 64

	// maxFrameSize bounds one participant frame: a second of base64 PCM16
	// at 24 kHz is about 64 KiB, so this leaves room for a few seconds.
	maxFrameSize = 256 << 10
)

// participantConn adapts one participant websocket to session.Participant.
type participantConn struct {
	conn   *websocket.Conn
	logger *slog.Logger

	identity string
	audio    chan []byte
	left     chan struct{}
	leftOnce sync.Once

	writeMu sync.Mutex
}

func newParticipantConn(conn *websocket.Conn, logger *slog.Logger) *participantConn {
	return &participantConn{
		conn:   conn,
		logger: logger,
		audio:  make(chan []byte, audioBuffer),
		left:   make(chan struct{}),
	}
}

func (p *participantConn) Identity() string      { return p.identity }
func (p *participantConn) Audio() <-chan []byte  { return p.audio }
func (p *participantConn) Left() <-chan struct{} { return p.left }

func (p *participantConn) PlayAudio(audio []byte) error {
	msg, err := protocol.NewAudioMessage(audio)
	if err != nil {
		return err
	}
	return p.send(msg)
}

func (p *participantConn) SendTranscript(role conversation.Role, text string, final bool) error {
	msg, err := protocol.NewTranscriptMessage(string(role), text, final)
	if err != nil {
		return err
	}
	return p.send(msg)
}

func (p *participantConn) Interrupt() error {
	msg, err := protocol.NewInterruptMessage()
	if err != nil {
		return err
	}
	return p.send(msg)
}

func (p *participantConn) EndTurn() error {
	msg, err := protocol.NewAudioDoneMessage()
	if err != nil {
		return err
	}
	return p.send(msg)
}

func (p *participantConn) sendState(sessionID string, st session.State) {
	msg, err := protocol.NewStateMessage(sessionID, st.String())
	if err == nil {
		err = p.send(msg)
	}
	if err != nil {
		p.logger.Debug("send state failed", "error", err)
	}
}

func (p *participantConn) sendError(text string) {
	msg, err := protocol.NewErrorMessage(text)
	if err == nil {
		err = p.send(msg)
	}
	if err != nil {
		p.logger.Debug("send error frame failed", "error", err)
	}
}

// send serializes writes; the websocket allows one writer at a time.
func (p *participantConn) send(msg *protocol.Message) error {
	data, err := msg.Bytes()
	if err != nil {
		return err
	}
	p.writeMu.Lock()
	defer p.writeMu.Unlock()
	return p.conn.WriteMessage(websocket.TextMessage, data)
}

// pushAudio queues an inbound frame, dropping it when the session is not
// keeping up.
func (p *participantConn) pushAudio(frame []byte) {
	select {
	case p.audio <- frame:
	default:
		p.logger.Debug("dropping participant audio frame")
	}
}

func (p *participantConn) leave() {
	p.leftOnce.Do(func() { close(p.left) })
}

// connRoom is the room for a single participant connection: it opens when
// the join frame arrives.
type connRoom struct {
	joined chan session.Participant
	once   sync.Once
}

func newConnRoom() *connRoom {
	return &connRoom{joined: make(chan session.Participant, 1)}
}

func (r *connRoom) join(p session.Participant) bool {
	ok := false
	r.once.Do(func() {
		r.joined <- p
		ok = true
	})
	return ok
}

func (r *connRoom) WaitForParticipant(ctx context.Context) (session.Participant, error) {
	select {
	case p := <-r.joined:
		return p, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}
