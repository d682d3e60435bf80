package web

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"

	"github.com/teslashibe/go-emo/pkg/emotions"
	"github.com/teslashibe/go-emo/pkg/hub"
)

// handleStatus returns the current mode and counters
func (s *Server) handleStatus(c *fiber.Ctx) error {
	return c.JSON(s.status())
}

// handleTurns returns the recent interaction turns
func (s *Server) handleTurns(c *fiber.Ctx) error {
	return c.JSON(s.Turns())
}

// EmotionInfo describes one expression for the dashboard.
type EmotionInfo struct {
	Name     string `json:"name"`
	Animated bool   `json:"animated"`
	Steps    int    `json:"steps"`
	Error    string `json:"error,omitempty"`
}

func (s *Server) handleEmotions(c *fiber.Ctx) error {
	all := emotions.All()
	out := make([]EmotionInfo, 0, len(all))
	for _, e := range all {
		info := EmotionInfo{Name: e.String(), Animated: e.Animated()}
		if e.Animated() && s.opts.Catalog != nil {
			steps, err := s.opts.Catalog.Steps(e)
			if err != nil {
				info.Error = err.Error()
			}
			info.Steps = len(steps)
		}
		out = append(out, info)
	}
	return c.JSON(out)
}

func (s *Server) handleEmotion(c *fiber.Ctx) error {
	e, err := emotions.ParseEmotion(c.Params("name"))
	if err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": err.Error()})
	}
	if !e.Animated() || s.opts.Catalog == nil {
		return c.JSON(fiber.Map{"name": e.String(), "steps": []emotions.Step{}})
	}
	steps, err := s.opts.Catalog.Steps(e)
	if err != nil {
		status := fiber.StatusInternalServerError
		if errors.Is(err, emotions.ErrNoFrames) {
			status = fiber.StatusNotFound
		}
		return c.Status(status).JSON(fiber.Map{"error": err.Error()})
	}
	return c.JSON(fiber.Map{"name": e.String(), "steps": steps})
}

// handleTrigger starts an expression in the background
func (s *Server) handleTrigger(c *fiber.Ctx) error {
	e, err := emotions.ParseEmotion(c.Params("name"))
	if err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": err.Error()})
	}
	if s.opts.Express == nil {
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
			"error": "expression trigger not configured",
		})
	}

	s.opts.Express.Express(s.ctx, e)
	s.hub.Publish(hub.Event{Type: hub.EventExpression, Data: e})
	s.logger.Info("manual expression", "emotion", e)

	return c.Status(fiber.StatusAccepted).JSON(fiber.Map{
		"success": true,
		"emotion": e.String(),
	})
}

// handleEventsWS streams session events, starting with a status snapshot
func (s *Server) handleEventsWS(c *websocket.Conn) {
	client := hub.NewClient(s.hub, c)
	if client == nil {
		return
	}
	if err := client.Send(hub.Event{Type: hub.EventStatus, Data: s.status()}); err != nil {
		s.logger.Debug("send status snapshot", "error", err)
	}
	client.Run()
}
