// Package web serves the sense dashboard: live overlay frames, caption
// streams and pipeline status over websockets, plus a small control API.
package web

import (
	"log/slog"
	"sync"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/websocket/v2"

	"github.com/a11ykit/go-sense/pkg/detect"
	"github.com/a11ykit/go-sense/pkg/hub"
)

// State is the pipeline status shown on the dashboard.
type State struct {
	Detecting       bool    `json:"detecting"`
	Listening       bool    `json:"listening"`
	Speaking        bool    `json:"speaking"`
	Narrating       bool    `json:"narrating"`
	HearingMode     string  `json:"hearing_mode"`
	Lang            string  `json:"lang"`
	AudioRMS        float64 `json:"audio_rms"`
	AudioDBFS       float64 `json:"audio_dbfs"`
	SessionID       string  `json:"session_id"`
	FramesProcessed int64   `json:"frames_processed"`
}

// CaptionEntry is one caption line on the dashboard.
type CaptionEntry struct {
	Time   string `json:"time"`
	Source string `json:"source"` // "detection" or "transcript"
	Text   string `json:"text"`
}

// Overlay is one cycle's detection list for box drawing.
type Overlay struct {
	Detections []detect.Detection `json:"detections"`
}

// Controls are the pipeline operations the dashboard can trigger. Nil
// callbacks make the matching endpoint return an error.
type Controls struct {
	DetectStart  func() error
	DetectStop   func()
	HearingMode  func(mode string) error
	NarrateStart func(items []string, speed string, loop, chunked bool) error
	NarrateStop  func()
	SetLanguage  func(lang string)

	// Audio processes one live-audio ingest packet (RTP-wrapped opus)
	// and returns the processed PCM16 to stream back to the client. Nil
	// disables the audio socket.
	Audio func(packet []byte) ([]byte, error)
}

// Server is the dashboard server.
type Server struct {
	app    *fiber.App
	port   string
	logger *slog.Logger

	controls Controls

	stateMu sync.RWMutex
	state   State

	captionsMu sync.RWMutex
	captions   []CaptionEntry

	statusHub  *hub.Hub
	captionHub *hub.Hub
	overlayHub *hub.Hub
	cameraHub  *hub.Hub
}

// NewServer creates a dashboard server on the given port.
func NewServer(port string, controls Controls) *Server {
	s := &Server{
		port:       port,
		controls:   controls,
		logger:     slog.Default().With("component", "web"),
		captions:   make([]CaptionEntry, 0, 100),
		statusHub:  hub.New("status"),
		captionHub: hub.New("captions"),
		overlayHub: hub.New("overlay"),
		cameraHub:  hub.New("camera"),
	}

	app := fiber.New(fiber.Config{
		AppName:               "Sense Dashboard",
		DisableStartupMessage: true,
	})

	app.Use(cors.New())
	app.Static("/", "./web")

	api := app.Group("/api")
	api.Get("/status", s.handleStatus)
	api.Get("/captions", s.handleCaptions)
	api.Post("/detection/start", s.handleDetectStart)
	api.Post("/detection/stop", s.handleDetectStop)
	api.Post("/hearing/:mode", s.handleHearingMode)
	api.Post("/narration/start", s.handleNarrateStart)
	api.Post("/narration/stop", s.handleNarrateStop)
	api.Post("/language", s.handleLanguage)

	app.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})
	app.Get("/ws/status", websocket.New(s.handleStatusWS))
	app.Get("/ws/captions", websocket.New(s.handleCaptionsWS))
	app.Get("/ws/overlay", websocket.New(s.handleOverlayWS))
	app.Get("/ws/camera", websocket.New(s.handleCameraWS))
	app.Get("/ws/audio", websocket.New(s.handleAudioWS))

	s.app = app
	return s
}

// Start runs the hubs and the HTTP listener. Blocks.
func (s *Server) Start() error {
	s.logger.Info("dashboard listening", "port", s.port)

	go s.statusHub.Run()
	go s.captionHub.Run()
	go s.overlayHub.Run()
	go s.cameraHub.Run()

	return s.app.Listen(":" + s.port)
}

// StartAsync runs the server in a goroutine.
func (s *Server) StartAsync() {
	go func() {
		if err := s.Start(); err != nil {
			s.logger.Error("dashboard server failed", "error", err)
		}
	}()
}

// UpdateState applies a mutation to the status and broadcasts it.
func (s *Server) UpdateState(update func(*State)) {
	s.stateMu.Lock()
	update(&s.state)
	state := s.state
	s.stateMu.Unlock()

	s.statusHub.BroadcastJSON(state)
}

// PushCaption records and broadcasts one caption line.
func (s *Server) PushCaption(source, text string) {
	entry := CaptionEntry{
		Time:   time.Now().Format("15:04:05"),
		Source: source,
		Text:   text,
	}

	s.captionsMu.Lock()
	s.captions = append(s.captions, entry)
	if len(s.captions) > 100 {
		s.captions = s.captions[1:]
	}
	s.captionsMu.Unlock()

	s.captionHub.BroadcastJSON(entry)
}

// SendOverlay broadcasts one cycle's detection list. An empty list
// clears the boxes.
func (s *Server) SendOverlay(dets []detect.Detection) {
	if dets == nil {
		dets = []detect.Detection{}
	}
	s.overlayHub.BroadcastJSON(Overlay{Detections: dets})
}

// SendFrame broadcasts a JPEG camera frame.
func (s *Server) SendFrame(jpeg []byte) {
	if len(jpeg) == 0 {
		return
	}
	s.cameraHub.BroadcastBinary(jpeg)
}

// Shutdown stops the HTTP listener.
func (s *Server) Shutdown() error {
	return s.app.Shutdown()
}
