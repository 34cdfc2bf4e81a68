package camera

import "sync"

// Static implements Source over a fixed frame sequence. When the
// sequence runs out, the last frame repeats. Useful in tests and as a
// file-backed source.
type Static struct {
	// FrameErr, if set, fails every Frame call.
	FrameErr error

	mu     sync.Mutex
	frames [][]byte
	cursor int
	calls  int
	closed bool
}

// NewStatic creates a source serving the given JPEG frames in order.
func NewStatic(frames ...[]byte) *Static {
	return &Static{frames: frames}
}

// Frame returns the next frame in the sequence.
func (s *Static) Frame() ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil, ErrCameraClosed
	}
	s.calls++
	if s.FrameErr != nil {
		return nil, s.FrameErr
	}
	if len(s.frames) == 0 {
		return nil, ErrNoFrame
	}

	frame := s.frames[s.cursor]
	if s.cursor < len(s.frames)-1 {
		s.cursor++
	}
	return frame, nil
}

// Calls returns the number of Frame invocations.
func (s *Static) Calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

// Close marks the source closed.
func (s *Static) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

// Compile-time interface check.
var _ Source = (*Static)(nil)
