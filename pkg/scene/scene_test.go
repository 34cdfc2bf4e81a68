package scene

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/a11ykit/go-sense/pkg/announce"
	"github.com/a11ykit/go-sense/pkg/camera"
	"github.com/a11ykit/go-sense/pkg/caption"
	"github.com/a11ykit/go-sense/pkg/detect"
	"github.com/a11ykit/go-sense/pkg/speech"
)

func waitFor(t *testing.T, cond func() bool, msg string) {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal(msg)
}

func det(label string) detect.Detection {
	return detect.Detection{Label: label, Confidence: 0.8}
}

// harness bundles a session with its observable sinks.
type harness struct {
	session  *Session
	captions *caption.Buffer
	engine   *speech.MockEngine
	detector *detect.Mock

	mu     sync.Mutex
	frames []Frame
	errs   []error
}

func newHarness(detector *detect.Mock, cfg Config) *harness {
	h := &harness{
		captions: caption.NewBuffer(8),
		engine:   speech.NewMockEngine(),
		detector: detector,
	}
	router := announce.NewRouter(h.captions, speech.NewQueue(h.engine), "en-US")
	h.session = NewSession(camera.NewStatic([]byte("frame")), detector, router, h.captions, cfg)
	h.session.OnFrame = func(f Frame) {
		h.mu.Lock()
		h.frames = append(h.frames, f)
		h.mu.Unlock()
	}
	h.session.OnError = func(err error) {
		h.mu.Lock()
		h.errs = append(h.errs, err)
		h.mu.Unlock()
	}
	return h
}

func (h *harness) frameCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.frames)
}

func (h *harness) errCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.errs)
}

func TestSession_AnnouncesOnEntry(t *testing.T) {
	detector := detect.NewMock(
		[]detect.Detection{det("chair")},
	)
	h := newHarness(detector, Config{Interval: 10 * time.Millisecond})

	if err := h.session.Start(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer h.session.Stop()

	waitFor(t, func() bool { return h.captions.Len() == 1 }, "announcement never captioned")
	if got := h.captions.Lines()[0].Text; got != "Detected chair" {
		t.Errorf("caption = %q, want %q", got, "Detected chair")
	}

	// Stable presence across many cycles announces once
	waitFor(t, func() bool { return detector.Calls() >= 5 }, "loop never cycled")
	if h.captions.Len() != 1 {
		t.Errorf("expected one announcement for stable presence, got %d", h.captions.Len())
	}
}

func TestSession_RendersEveryCycle(t *testing.T) {
	detector := detect.NewMock(
		[]detect.Detection{det("chair"), det("person")},
	)
	h := newHarness(detector, Config{Interval: 10 * time.Millisecond})

	h.session.Start()
	defer h.session.Stop()

	waitFor(t, func() bool { return h.frameCount() >= 3 }, "frames never rendered")

	h.mu.Lock()
	defer h.mu.Unlock()
	// Each rendered frame carries the full, unfiltered detection list
	for i, f := range h.frames {
		if len(f.Detections) != 2 {
			t.Errorf("frame %d carried %d detections, want 2", i, len(f.Detections))
		}
	}
}

func TestSession_DetectorFailureIsFatal(t *testing.T) {
	boom := errors.New("inference crashed")
	detector := detect.NewMock()
	detector.DetectFunc = func(jpeg []byte) ([]detect.Detection, error) {
		if detector.Calls() < 3 {
			return []detect.Detection{det("chair")}, nil
		}
		return nil, boom
	}
	h := newHarness(detector, Config{Interval: 5 * time.Millisecond})

	h.session.Start()

	waitFor(t, func() bool { return h.errCount() == 1 }, "error never surfaced")

	h.mu.Lock()
	if !errors.Is(h.errs[0], boom) {
		t.Errorf("surfaced error = %v, want %v", h.errs[0], boom)
	}
	last := h.frames[len(h.frames)-1]
	h.mu.Unlock()

	if h.session.Active() {
		t.Error("session must stop on detector failure")
	}
	if h.captions.Len() != 0 {
		t.Error("captions must be cleared on failure")
	}
	if len(last.Detections) != 0 || last.JPEG != nil {
		t.Error("overlay must be cleared on failure")
	}

	// Not retried automatically
	calls := detector.Calls()
	time.Sleep(50 * time.Millisecond)
	if detector.Calls() != calls {
		t.Error("loop must not keep detecting after a fatal error")
	}
}

func TestSession_StopIsHardReset(t *testing.T) {
	detector := detect.NewMock(
		[]detect.Detection{det("chair")},
	)
	h := newHarness(detector, Config{Interval: 10 * time.Millisecond})

	h.session.Start()
	waitFor(t, func() bool { return h.captions.Len() == 1 }, "announcement never captioned")

	h.session.Stop()

	if h.session.Active() {
		t.Error("session still active after stop")
	}
	if h.captions.Len() != 0 {
		t.Error("captions must be cleared on stop")
	}

	h.mu.Lock()
	last := h.frames[len(h.frames)-1]
	h.mu.Unlock()
	if len(last.Detections) != 0 {
		t.Error("overlay must be cleared on stop")
	}

	// Restart begins from an empty presence set: the same chair is a
	// fresh entry and announces again.
	h.session.Start()
	defer h.session.Stop()
	waitFor(t, func() bool { return h.captions.Len() == 1 }, "re-entry never announced")
}

func TestSession_StartWhileActiveRefused(t *testing.T) {
	h := newHarness(detect.NewMock(), Config{Interval: 10 * time.Millisecond})

	h.session.Start()
	defer h.session.Stop()

	if err := h.session.Start(); !errors.Is(err, ErrSessionActive) {
		t.Errorf("expected ErrSessionActive, got %v", err)
	}
}

func TestSession_StaleResultDiscarded(t *testing.T) {
	release := make(chan struct{})
	started := make(chan struct{}, 1)
	detector := detect.NewMock()
	detector.DetectFunc = func(jpeg []byte) ([]detect.Detection, error) {
		select {
		case started <- struct{}{}:
		default:
		}
		<-release
		return []detect.Detection{det("chair")}, nil
	}
	h := newHarness(detector, Config{Interval: 5 * time.Millisecond})

	h.session.Start()
	<-started

	// Stop while the detector is mid-flight, then let it return
	h.session.Stop()
	close(release)

	time.Sleep(50 * time.Millisecond)
	if h.captions.Len() != 0 {
		t.Error("stale detection result must not announce")
	}
	if h.session.Stats().Frames != 0 {
		t.Error("stale detection result must not count as a frame")
	}
}

func TestSession_Stats(t *testing.T) {
	detector := detect.NewMock(
		[]detect.Detection{det("chair"), det("person")},
	)
	h := newHarness(detector, Config{Interval: 5 * time.Millisecond})

	h.session.Start()
	defer h.session.Stop()

	waitFor(t, func() bool { return h.session.Stats().Frames >= 3 }, "stats never accumulated")

	stats := h.session.Stats()
	if stats.Detections < stats.Frames*2 {
		t.Errorf("detections = %d for %d frames", stats.Detections, stats.Frames)
	}
	if stats.Classes["chair"] == 0 || stats.Classes["person"] == 0 {
		t.Errorf("per-class counts missing: %v", stats.Classes)
	}
}
