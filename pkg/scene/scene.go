// Package scene runs the per-frame detection loop: capture a frame,
// detect objects, diff presence, announce entries, render overlays.
//
// A Session owns all loop state. Stopping is a hard reset, not a pause:
// the presence set, captions, speech and overlays are all cleared, and a
// detector result arriving after the stop is discarded. Starting again
// begins from an empty scene.
package scene

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/a11ykit/go-sense/pkg/announce"
	"github.com/a11ykit/go-sense/pkg/camera"
	"github.com/a11ykit/go-sense/pkg/caption"
	"github.com/a11ykit/go-sense/pkg/detect"
	"github.com/a11ykit/go-sense/pkg/presence"
)

// ErrSessionActive is returned when starting a session that is already
// running.
var ErrSessionActive = errors.New("scene: session already active")

// DefaultInterval paces the detection loop at 10 cycles per second.
const DefaultInterval = 100 * time.Millisecond

// Frame is one rendered cycle: the captured image plus the full
// detection list for overlay drawing. A zero Frame clears the overlay.
type Frame struct {
	JPEG       []byte             `json:"-"`
	Detections []detect.Detection `json:"detections"`
}

// Stats counts session activity.
type Stats struct {
	Frames     int64            `json:"frames"`
	Detections int64            `json:"detections"`
	Errors     int64            `json:"errors"`
	Classes    map[string]int64 `json:"classes"`
}

// Config holds session configuration.
type Config struct {
	// Interval paces detection cycles. Zero means DefaultInterval.
	Interval time.Duration
}

// Session is one detection run over a frame source.
type Session struct {
	id       string
	source   camera.Source
	detector detect.Detector
	tracker  *presence.Tracker
	router   *announce.Router
	captions *caption.Buffer
	interval time.Duration
	logger   *slog.Logger

	mu     sync.Mutex
	active bool
	gen    uint64
	cancel context.CancelFunc

	frames     atomic.Int64
	detections atomic.Int64
	errCount   atomic.Int64
	classMu    sync.Mutex
	classes    map[string]int64

	// OnFrame receives each cycle's frame and detections for overlay
	// rendering. Called with a zero Frame when the session stops, so the
	// sink clears stale boxes. Must not block.
	OnFrame func(Frame)

	// OnError receives the fatal error that ended the session. Detector
	// failures are fatal: the loop stops and is not retried.
	OnError func(error)
}

// NewSession creates a detection session. The router's caption buffer is
// passed separately so a stop can clear it.
func NewSession(source camera.Source, detector detect.Detector, router *announce.Router, captions *caption.Buffer, cfg Config) *Session {
	interval := cfg.Interval
	if interval <= 0 {
		interval = DefaultInterval
	}
	id := uuid.NewString()
	return &Session{
		id:       id,
		source:   source,
		detector: detector,
		tracker:  presence.NewTracker(),
		router:   router,
		captions: captions,
		interval: interval,
		classes:  make(map[string]int64),
		logger:   slog.Default().With("component", "scene.session", "session", id),
	}
}

// ID returns the session identifier.
func (s *Session) ID() string { return s.id }

// Active reports whether the loop is running.
func (s *Session) Active() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.active
}

// Start begins the detection loop from an empty presence set.
func (s *Session) Start() error {
	s.mu.Lock()
	if s.active {
		s.mu.Unlock()
		return ErrSessionActive
	}
	ctx, cancel := context.WithCancel(context.Background())
	s.active = true
	s.gen++
	gen := s.gen
	s.cancel = cancel
	s.tracker.Reset()
	s.mu.Unlock()

	s.logger.Info("detection started")
	go s.loop(ctx, gen)
	return nil
}

// Stop ends the loop and hard-resets derived state: presence set,
// captions, in-flight speech and rendered overlays are all cleared.
func (s *Session) Stop() {
	s.mu.Lock()
	if !s.active {
		s.mu.Unlock()
		return
	}
	s.active = false
	s.gen++
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
	s.tracker.Reset()
	s.mu.Unlock()

	s.router.Cancel()
	s.captions.Clear()
	if s.OnFrame != nil {
		s.OnFrame(Frame{})
	}
	s.logger.Info("detection stopped")
}

// Stats returns a snapshot of session counters.
func (s *Session) Stats() Stats {
	s.classMu.Lock()
	classes := make(map[string]int64, len(s.classes))
	for k, v := range s.classes {
		classes[k] = v
	}
	s.classMu.Unlock()

	return Stats{
		Frames:     s.frames.Load(),
		Detections: s.detections.Load(),
		Errors:     s.errCount.Load(),
		Classes:    classes,
	}
}

// loop runs detection cycles until canceled or a detector failure.
func (s *Session) loop(ctx context.Context, gen uint64) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		jpeg, err := s.source.Frame()
		switch {
		case errors.Is(err, camera.ErrNoFrame):
			// Device not ready yet; try again next cycle.
		case err != nil:
			s.fail(gen, err)
			return
		default:
			dets, err := s.detector.Detect(jpeg)
			if err != nil {
				s.fail(gen, err)
				return
			}
			if !s.apply(gen, jpeg, dets) {
				return
			}
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// apply feeds one detection result through diff, announce and render.
// Returns false if the session stopped while the detector was busy; the
// result is then discarded without touching any state.
func (s *Session) apply(gen uint64, jpeg []byte, dets []detect.Detection) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.active || s.gen != gen {
		return false
	}

	// Fixed per-cycle order: diff, then captions and speech, then render.
	diff := s.tracker.Update(dets)
	s.router.HandleDiff(diff)

	s.frames.Add(1)
	s.detections.Add(int64(len(dets)))
	s.classMu.Lock()
	for _, d := range dets {
		s.classes[d.Label]++
	}
	s.classMu.Unlock()

	if s.OnFrame != nil {
		s.OnFrame(Frame{JPEG: jpeg, Detections: dets})
	}
	return true
}

// fail ends the session on a fatal error, clearing derived display
// state before surfacing the error.
func (s *Session) fail(gen uint64, err error) {
	s.mu.Lock()
	if !s.active || s.gen != gen {
		s.mu.Unlock()
		return
	}
	s.active = false
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
	s.tracker.Reset()
	s.mu.Unlock()

	s.errCount.Add(1)
	s.router.Cancel()
	s.captions.Clear()
	if s.OnFrame != nil {
		s.OnFrame(Frame{})
	}

	s.logger.Error("detection failed", "error", err)
	if s.OnError != nil {
		s.OnError(err)
	}
}
