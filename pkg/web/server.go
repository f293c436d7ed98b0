// Package web is the HTTP and WebSocket front door of the assistant: a
// participant socket that runs one session per connection, a dashboard event
// feed, and a small REST API over the tools and rooms.
package web

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"sync"
	"time"

	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/KakuleMalambo/voice-assistant/internal/metrics"
	"github.com/KakuleMalambo/voice-assistant/pkg/conversation"
	"github.com/KakuleMalambo/voice-assistant/pkg/house"
	"github.com/KakuleMalambo/voice-assistant/pkg/hub"
	"github.com/KakuleMalambo/voice-assistant/pkg/session"
	"github.com/KakuleMalambo/voice-assistant/pkg/tools"
)

// Version is reported by the health endpoint.
var Version = "dev"

// ProviderFactory creates the conversation for a new session.
type ProviderFactory func() (conversation.Provider, error)

// Config holds the server collaborators.
type Config struct {
	Port       string
	Store      house.Store
	Dispatcher *tools.Dispatcher
	Hub        *hub.Hub

	NewProvider ProviderFactory

	Instructions string
	Greeting     string
	Voice        string

	Metrics  *metrics.Metrics
	Gatherer prometheus.Gatherer
	Logger   *slog.Logger
}

// Server is the web front door.
type Server struct {
	cfg    Config
	app    *fiber.App
	logger *slog.Logger

	baseCtx    context.Context
	cancelBase context.CancelFunc

	mu       sync.RWMutex
	sessions map[string]*session.Session
	wg       sync.WaitGroup
}

// NewServer creates the server and registers every route.
func NewServer(cfg Config) *Server {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Gatherer == nil {
		cfg.Gatherer = prometheus.DefaultGatherer
	}
	baseCtx, cancel := context.WithCancel(context.Background())

	s := &Server{
		cfg:        cfg,
		logger:     cfg.Logger.With("component", "web"),
		baseCtx:    baseCtx,
		cancelBase: cancel,
		sessions:   make(map[string]*session.Session),
	}

	app := fiber.New(fiber.Config{
		AppName:               "voice-assistant",
		DisableStartupMessage: true,
	})

	app.Use(recover.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowMethods: "GET,POST,OPTIONS",
		AllowHeaders: "Content-Type,Authorization",
	}))

	app.Get("/health", s.handleHealth)
	app.Get("/metrics", adaptor.HTTPHandler(promhttp.HandlerFor(cfg.Gatherer, promhttp.HandlerOpts{})))

	api := app.Group("/api")
	api.Get("/tools", s.handleListTools)
	api.Post("/tools/:name", s.handleInvokeTool)
	api.Get("/rooms", s.handleListRooms)

	app.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})
	app.Get("/ws/session", websocket.New(s.handleParticipant))
	if cfg.Hub != nil {
		app.Get("/ws/events", cfg.Hub.Handler())
	}

	s.app = app
	return s
}

// App exposes the fiber app, mainly for tests.
func (s *Server) App() *fiber.App {
	return s.app
}

// Run listens on the configured port until ctx is done.
func (s *Server) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", ":"+s.cfg.Port)
	if err != nil {
		return fmt.Errorf("web: listen: %w", err)
	}
	return s.Serve(ctx, ln)
}

// Serve serves on ln until ctx is done, then ends every session and shuts
// the app down.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("listening", "addr", ln.Addr().String())
		errCh <- s.app.Listener(ln)
	}()

	select {
	case err := <-errCh:
		s.cancelBase()
		return err
	case <-ctx.Done():
	}

	s.logger.Info("shutting down", "sessions", s.SessionCount())
	s.cancelBase()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := s.app.ShutdownWithContext(shutdownCtx); err != nil {
		return fmt.Errorf("web: shutdown: %w", err)
	}
	s.wg.Wait()
	return nil
}

// SessionCount returns the number of running sessions.
func (s *Server) SessionCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

func (s *Server) track(sess *session.Session) {
	s.mu.Lock()
	s.sessions[sess.ID()] = sess
	s.mu.Unlock()
}

func (s *Server) untrack(sess *session.Session) {
	s.mu.Lock()
	delete(s.sessions, sess.ID())
	s.mu.Unlock()
}

func (s *Server) publish(eventType string, data any) {
	if s.cfg.Hub == nil {
		return
	}
	if err := s.cfg.Hub.Publish(eventType, data); err != nil {
		s.logger.Warn("publish event", "type", eventType, "error", err)
	}
}

// ToolObserver publishes every tool invocation on h, followed by the room
// list after a successful temperature change.
func ToolObserver(h *hub.Hub, store house.Store, logger *slog.Logger) tools.Observer {
	if logger == nil {
		logger = slog.Default()
	}
	return func(ev tools.Event) {
		if err := h.Publish(hub.EventToolInvocation, ev); err != nil {
			logger.Warn("publish tool event", "error", err)
		}
		if ev.Tool != tools.NameSetRoomTemperature || ev.Result.Failed || store == nil {
			return
		}
		doc, err := store.ReadAll(context.Background())
		if err != nil {
			logger.Warn("read rooms for dashboard", "error", err)
			return
		}
		if err := h.Publish(hub.EventRoomsChanged, doc.House.Rooms); err != nil {
			logger.Warn("publish rooms event", "error", err)
		}
	}
}
