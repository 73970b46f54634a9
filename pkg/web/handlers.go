package web

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"

	"github.com/teslashibe/go-pidog/pkg/camera"
	"github.com/teslashibe/go-pidog/pkg/hub"
)

// handleStatus returns the robot's current state
func (s *Server) handleStatus(c *fiber.Ctx) error {
	return c.JSON(s.Status())
}

// handleListActions returns the action catalog
func (s *Server) handleListActions(c *fiber.Ctx) error {
	if s.actions == nil {
		return c.JSON([]ActionInfo{})
	}
	return c.JSON(s.actions)
}

// handleTriggerAction runs a catalog action manually
func (s *Server) handleTriggerAction(c *fiber.Ctx) error {
	name := c.Params("name")

	if !s.knownAction(name) {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "unknown action: " + name,
		})
	}
	if s.OnActionTrigger == nil {
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
			"error": "action trigger not configured",
		})
	}
	if err := s.OnActionTrigger(name); err != nil {
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	s.AddLog("action", "Manual: "+name)

	return c.Status(fiber.StatusAccepted).JSON(fiber.Map{
		"action": name,
	})
}

func (s *Server) knownAction(name string) bool {
	for _, a := range s.actions {
		if a.Name == name {
			return true
		}
	}
	return false
}

// handleGetLogs returns recent log entries
func (s *Server) handleGetLogs(c *fiber.Ctx) error {
	s.logsMu.RLock()
	defer s.logsMu.RUnlock()
	return c.JSON(s.logs)
}

// handleGetConversation returns recent conversation
func (s *Server) handleGetConversation(c *fiber.Ctx) error {
	s.conversationMu.RLock()
	defer s.conversationMu.RUnlock()
	return c.JSON(s.conversation)
}

// handleGetCamera returns the camera configuration
func (s *Server) handleGetCamera(c *fiber.Ctx) error {
	if s.cameraManager == nil {
		return fiber.ErrNotFound
	}
	return c.JSON(fiber.Map{
		"config":       s.cameraManager.GetConfigJSON(),
		"capabilities": camera.Capabilities(),
	})
}

// handleUpdateCamera applies a partial camera configuration or preset
func (s *Server) handleUpdateCamera(c *fiber.Ctx) error {
	if s.cameraManager == nil {
		return fiber.ErrNotFound
	}

	var params map[string]interface{}
	if err := c.BodyParser(&params); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "invalid body: " + err.Error(),
		})
	}
	if err := s.cameraManager.UpdateConfig(params); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": err.Error(),
		})
	}
	return c.JSON(s.cameraManager.GetConfigJSON())
}

// handleCameraFrame returns the latest frame as JPEG
func (s *Server) handleCameraFrame(c *fiber.Ctx) error {
	if s.frames == nil {
		return fiber.ErrNotFound
	}
	f, ok := s.frames.Latest()
	if !ok {
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
			"error": "no frame yet",
		})
	}
	c.Set(fiber.HeaderContentType, "image/jpeg")
	c.Set(fiber.HeaderCacheControl, "no-store")
	return c.Send(f.JPEG)
}

// handleWS attaches a websocket connection to h until it closes.
func (s *Server) handleWS(h *hub.Hub) func(*websocket.Conn) {
	return func(conn *websocket.Conn) {
		hub.NewClient(h, conn).Run()
	}
}
