package web

import (
	"context"
	"errors"

	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"

	"github.com/KakuleMalambo/voice-assistant/pkg/hub"
	"github.com/KakuleMalambo/voice-assistant/pkg/protocol"
	"github.com/KakuleMalambo/voice-assistant/pkg/session"
	"github.com/KakuleMalambo/voice-assistant/pkg/tools"
)

// ToolInfo describes a registered tool.
type ToolInfo struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Parameters  map[string]any `json:"parameters"`
}

// InvokeRequest is the body of a manual tool invocation.
type InvokeRequest struct {
	Args map[string]any `json:"args"`
}

// InvokeResponse is what a manual tool invocation returns.
type InvokeResponse struct {
	Tool   string `json:"tool"`
	Result string `json:"result"`
	Failed bool   `json:"failed"`
}

func (s *Server) handleHealth(c *fiber.Ctx) error {
	clients := 0
	if s.cfg.Hub != nil {
		clients = s.cfg.Hub.ClientCount()
	}
	return c.JSON(fiber.Map{
		"status":            "ok",
		"version":           Version,
		"sessions":          s.SessionCount(),
		"dashboard_clients": clients,
	})
}

func (s *Server) handleListTools(c *fiber.Ctx) error {
	if s.cfg.Dispatcher == nil {
		return c.JSON([]ToolInfo{})
	}
	descs := s.cfg.Dispatcher.Registry().Descriptors()
	out := make([]ToolInfo, 0, len(descs))
	for _, d := range descs {
		out = append(out, ToolInfo{Name: d.Name, Description: d.Description, Parameters: d.Parameters})
	}
	return c.JSON(out)
}

// handleInvokeTool runs a tool by hand, outside any session.
func (s *Server) handleInvokeTool(c *fiber.Ctx) error {
	if s.cfg.Dispatcher == nil {
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{"error": "tools are not configured"})
	}
	name := c.Params("name")

	var req InvokeRequest
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&req); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
		}
	}
	if req.Args == nil {
		req.Args = map[string]any{}
	}

	res, err := s.cfg.Dispatcher.Invoke(c.UserContext(), name, req.Args)
	if errors.Is(err, tools.ErrUnknownTool) {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": err.Error()})
	}
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}
	return c.JSON(InvokeResponse{Tool: name, Result: res.Text, Failed: res.Failed})
}

func (s *Server) handleListRooms(c *fiber.Ctx) error {
	if s.cfg.Store == nil {
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{"error": "room store is not configured"})
	}
	doc, err := s.cfg.Store.ReadAll(c.UserContext())
	if err != nil {
		s.logger.Warn("read rooms", "error", err)
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{"error": err.Error()})
	}
	return c.JSON(doc.House.Rooms)
}

// handleParticipant runs one session for the lifetime of the socket.
func (s *Server) handleParticipant(conn *websocket.Conn) {
	s.wg.Add(1)
	defer s.wg.Done()

	p := newParticipantConn(conn, s.logger)

	if s.cfg.NewProvider == nil {
		p.sendError("no conversation provider is configured")
		return
	}
	provider, err := s.cfg.NewProvider()
	if err != nil {
		s.logger.Error("create provider", "error", err)
		p.sendError("could not start a conversation: " + err.Error())
		return
	}

	room := newConnRoom()
	var sess *session.Session
	sess, err = session.New(session.Config{
		Provider:     provider,
		Room:         room,
		Dispatcher:   s.cfg.Dispatcher,
		Instructions: s.cfg.Instructions,
		Greeting:     s.cfg.Greeting,
		Voice:        s.cfg.Voice,
		Logger:       s.cfg.Logger,
		Metrics:      s.cfg.Metrics,
		OnStateChange: func(st session.State) {
			id := sess.ID()
			p.sendState(id, st)
			s.publish(hub.EventSessionState, protocol.StateData{SessionID: id, State: st.String()})
		},
	})
	if err != nil {
		s.logger.Error("create session", "error", err)
		p.sendError(err.Error())
		_ = provider.Close()
		return
	}

	s.track(sess)
	defer s.untrack(sess)

	ctx, cancel := context.WithCancel(s.baseCtx)
	defer cancel()

	done := make(chan struct{})
	go func() {
		defer close(done)
		if err := sess.Run(ctx); err != nil {
			s.logger.Warn("session ended with error", "session", sess.ID(), "error", err)
			p.sendError(err.Error())
		}
		// Unblocks the read loop below.
		_ = conn.Close()
	}()

	s.readLoop(conn, p, room)

	p.leave()
	cancel()
	<-done
}

func (s *Server) readLoop(conn *websocket.Conn, p *participantConn, room *connRoom) {
	conn.SetReadLimit(maxFrameSize)
	joined := false
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return
		}

		msg, err := protocol.ParseMessage(data)
		if err != nil {
			p.sendError(err.Error())
			continue
		}

		switch msg.Type {
		case protocol.TypeJoin:
			join, err := msg.GetJoinData()
			if err != nil {
				p.sendError("invalid join frame")
				continue
			}
			if joined {
				p.sendError("already joined")
				continue
			}
			p.identity = join.Identity
			if p.identity == "" {
				p.identity = conn.Query("identity", "anonymous")
			}
			joined = room.join(p)

		case protocol.TypeAudio:
			audio, err := msg.GetAudioData()
			if err != nil {
				p.sendError("invalid audio frame")
				continue
			}
			pcm, err := audio.Decode()
			if err != nil {
				p.sendError("invalid audio encoding")
				continue
			}
			p.pushAudio(pcm)

		case protocol.TypeLeave:
			return

		case protocol.TypePing:
			ping, err := msg.GetPingData()
			if err != nil {
				continue
			}
			pong, err := protocol.NewPongMessage(ping.ID, ping.Timestamp)
			if err == nil {
				_ = p.send(pong)
			}

		default:
			p.sendError("unexpected frame type " + string(msg.Type))
		}
	}
}
