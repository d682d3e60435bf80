// Package web serves the companion's status dashboard API: current mode,
// recent turns, manual expression triggers, a websocket event stream and
// Prometheus metrics.
package web

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/websocket/v2"

	"github.com/teslashibe/go-emo/pkg/emotions"
	"github.com/teslashibe/go-emo/pkg/hub"
	"github.com/teslashibe/go-emo/pkg/session"
)

// maxTurns is the number of turns kept for /api/turns.
const maxTurns = 50

// StateSource reports the session state.
type StateSource interface {
	State() session.State
}

// StateFunc adapts a function to StateSource.
type StateFunc func() session.State

// State calls f.
func (f StateFunc) State() session.State { return f() }

// Expresser starts an expression in the background.
type Expresser interface {
	Express(ctx context.Context, e emotions.Emotion)
}

// Catalog lists the animation steps of an expression.
type Catalog interface {
	Steps(e emotions.Emotion) ([]emotions.Step, error)
}

// Options configures the server. Metrics may be nil.
type Options struct {
	Addr    string
	State   StateSource
	Express Expresser
	Catalog Catalog
	Metrics http.Handler
	Logger  *slog.Logger
}

// Status is returned by /api/status and sent to new stream clients.
type Status struct {
	Mode              session.Mode `json:"mode"`
	LastInteractionAt time.Time    `json:"last_interaction_at"`
	IdleSeconds       float64      `json:"idle_seconds"`
	Turns             int          `json:"turns"`
	Clients           int          `json:"clients"`
	Uptime            string       `json:"uptime"`
}

// Server is the dashboard server. It also observes the session loop.
type Server struct {
	app     *fiber.App
	opts    Options
	hub     *hub.Hub
	logger  *slog.Logger
	started time.Time

	// ctx scopes background expressions triggered over HTTP.
	ctx context.Context

	mu         sync.RWMutex
	turns      []session.Turn
	turnsTotal int
}

// NewServer builds the fiber app and routes.
func NewServer(opts Options) *Server {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	logger := opts.Logger.With("component", "web")
	s := &Server{
		opts:    opts,
		hub:     hub.New(opts.Logger),
		logger:  logger,
		started: time.Now(),
		ctx:     context.Background(),
		turns:   make([]session.Turn, 0, maxTurns),
	}

	app := fiber.New(fiber.Config{
		AppName:               "emo",
		DisableStartupMessage: true,
	})
	app.Use(recover.New())
	app.Use(cors.New())

	api := app.Group("/api")
	api.Get("/status", s.handleStatus)
	api.Get("/turns", s.handleTurns)
	api.Get("/emotions", s.handleEmotions)
	api.Get("/emotions/:name", s.handleEmotion)
	api.Post("/emotions/:name", s.handleTrigger)

	if opts.Metrics != nil {
		app.Get("/metrics", adaptor.HTTPHandler(opts.Metrics))
	}

	app.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})
	app.Get("/ws/events", websocket.New(s.handleEventsWS))

	s.app = app
	return s
}

// App returns the fiber app, for tests.
func (s *Server) App() *fiber.App {
	return s.app
}

// Run starts the hub and listens on Addr until ctx is done.
func (s *Server) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.opts.Addr)
	if err != nil {
		return err
	}
	return s.Serve(ctx, ln)
}

// Serve is Run on an existing listener.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	s.ctx = ctx
	go s.hub.Run(ctx)

	errc := make(chan error, 1)
	go func() {
		s.logger.Info("dashboard listening", "addr", ln.Addr().String())
		errc <- s.app.Listener(ln)
	}()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.app.ShutdownWithContext(shutdownCtx); err != nil && !errors.Is(err, context.DeadlineExceeded) {
			return err
		}
		return nil
	}
}

func (s *Server) status() Status {
	st := s.opts.State.State()
	s.mu.RLock()
	turns := s.turnsTotal
	s.mu.RUnlock()
	return Status{
		Mode:              st.Mode,
		LastInteractionAt: st.LastInteractionAt,
		IdleSeconds:       time.Since(st.LastInteractionAt).Seconds(),
		Turns:             turns,
		Clients:           s.hub.ClientCount(),
		Uptime:            time.Since(s.started).Round(time.Second).String(),
	}
}

// Turns returns the recent turns, newest last.
func (s *Server) Turns() []session.Turn {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]session.Turn(nil), s.turns...)
}

func (s *Server) CycleStarted(session.State) {}

func (s *Server) Sampled(loudness float64) {
	s.hub.Publish(hub.Event{Type: hub.EventLoudness, Data: loudness})
}

func (s *Server) Transitioned(from, to session.State, action session.Action) {
	s.hub.Publish(hub.Event{Type: hub.EventTransition, Data: map[string]any{
		"from":   from.Mode,
		"to":     to.Mode,
		"action": action.String(),
	}})
}

func (s *Server) Transcribed(string) {}

func (s *Server) TurnFinished(t session.Turn) {
	s.mu.Lock()
	if len(s.turns) == maxTurns {
		s.turns = append(s.turns[:0], s.turns[1:]...)
	}
	s.turns = append(s.turns, t)
	s.turnsTotal++
	s.mu.Unlock()

	s.hub.Publish(hub.Event{Type: hub.EventTurn, Data: t})
}

var _ session.Observer = (*Server)(nil)
