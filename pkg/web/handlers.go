package web

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"

	"github.com/a11ykit/go-sense/pkg/hub"
)

func (s *Server) handleStatus(c *fiber.Ctx) error {
	s.stateMu.RLock()
	defer s.stateMu.RUnlock()
	return c.JSON(s.state)
}

func (s *Server) handleCaptions(c *fiber.Ctx) error {
	s.captionsMu.RLock()
	defer s.captionsMu.RUnlock()
	return c.JSON(s.captions)
}

func (s *Server) handleDetectStart(c *fiber.Ctx) error {
	if s.controls.DetectStart == nil {
		return c.Status(fiber.StatusNotImplemented).JSON(fiber.Map{"error": "detection not configured"})
	}
	if err := s.controls.DetectStart(); err != nil {
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": err.Error()})
	}
	return c.JSON(fiber.Map{"detecting": true})
}

func (s *Server) handleDetectStop(c *fiber.Ctx) error {
	if s.controls.DetectStop == nil {
		return c.Status(fiber.StatusNotImplemented).JSON(fiber.Map{"error": "detection not configured"})
	}
	s.controls.DetectStop()
	return c.JSON(fiber.Map{"detecting": false})
}

func (s *Server) handleHearingMode(c *fiber.Ctx) error {
	if s.controls.HearingMode == nil {
		return c.Status(fiber.StatusNotImplemented).JSON(fiber.Map{"error": "hearing routing not configured"})
	}
	mode := c.Params("mode")
	if err := s.controls.HearingMode(mode); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}
	return c.JSON(fiber.Map{"hearing_mode": mode})
}

// NarrateRequest is the narration start request body.
type NarrateRequest struct {
	Items   []string `json:"items"`
	Speed   string   `json:"speed"`
	Loop    bool     `json:"loop"`
	Chunked bool     `json:"chunked"`
}

func (s *Server) handleNarrateStart(c *fiber.Ctx) error {
	if s.controls.NarrateStart == nil {
		return c.Status(fiber.StatusNotImplemented).JSON(fiber.Map{"error": "narration not configured"})
	}

	var req NarrateRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
	}

	if err := s.controls.NarrateStart(req.Items, req.Speed, req.Loop, req.Chunked); err != nil {
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": err.Error()})
	}
	return c.JSON(fiber.Map{"narrating": true, "items": len(req.Items)})
}

func (s *Server) handleNarrateStop(c *fiber.Ctx) error {
	if s.controls.NarrateStop == nil {
		return c.Status(fiber.StatusNotImplemented).JSON(fiber.Map{"error": "narration not configured"})
	}
	s.controls.NarrateStop()
	return c.JSON(fiber.Map{"narrating": false})
}

// LanguageRequest is the language switch request body.
type LanguageRequest struct {
	Lang string `json:"lang"`
}

func (s *Server) handleLanguage(c *fiber.Ctx) error {
	if s.controls.SetLanguage == nil {
		return c.Status(fiber.StatusNotImplemented).JSON(fiber.Map{"error": "language switching not configured"})
	}

	var req LanguageRequest
	if err := c.BodyParser(&req); err != nil || req.Lang == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "lang required"})
	}

	s.controls.SetLanguage(req.Lang)
	return c.JSON(fiber.Map{"lang": req.Lang})
}

// handleStatusWS streams status updates, sending the current state on
// connect.
func (s *Server) handleStatusWS(c *websocket.Conn) {
	s.stateMu.RLock()
	c.WriteJSON(s.state)
	s.stateMu.RUnlock()

	hub.NewClient(s.statusHub, c).Run()
}

// handleCaptionsWS streams caption lines, replaying recent history on
// connect.
func (s *Server) handleCaptionsWS(c *websocket.Conn) {
	s.captionsMu.RLock()
	for _, entry := range s.captions {
		c.WriteJSON(entry)
	}
	s.captionsMu.RUnlock()

	hub.NewClient(s.captionHub, c).Run()
}

func (s *Server) handleOverlayWS(c *websocket.Conn) {
	hub.NewClient(s.overlayHub, c).Run()
}

func (s *Server) handleCameraWS(c *websocket.Conn) {
	hub.NewClient(s.cameraHub, c).Run()
}

// handleAudioWS is the live-audio ingest socket: the client streams
// RTP/opus packets up as binary messages and receives the processed
// PCM16 back on the same connection.
func (s *Server) handleAudioWS(c *websocket.Conn) {
	defer c.Close()

	if s.controls.Audio == nil {
		c.WriteJSON(fiber.Map{"error": "audio ingest not configured"})
		return
	}

	for {
		mt, data, err := c.ReadMessage()
		if err != nil {
			return
		}
		if mt != websocket.BinaryMessage {
			continue
		}

		pcm, err := s.controls.Audio(data)
		if err != nil {
			s.logger.Debug("audio packet dropped", "error", err)
			continue
		}
		if len(pcm) == 0 {
			continue
		}
		if err := c.WriteMessage(websocket.BinaryMessage, pcm); err != nil {
			return
		}
	}
}
