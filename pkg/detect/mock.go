package detect

import (
	"sync"
)

// Mock implements Detector for testing.
// Frames are served from a script: each Detect call returns the next
// entry, repeating the last one once the script is exhausted.
type Mock struct {
	// DetectFunc, if set, overrides the scripted behavior.
	DetectFunc func(jpeg []byte) ([]Detection, error)

	mu     sync.Mutex
	script [][]Detection
	cursor int
	calls  int
	closed bool
}

// NewMock creates a mock detector that replays the given frames.
func NewMock(frames ...[]Detection) *Mock {
	return &Mock{script: frames}
}

// Detect returns the next scripted frame.
func (m *Mock) Detect(jpeg []byte) ([]Detection, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.calls++
	if m.DetectFunc != nil {
		fn := m.DetectFunc
		m.mu.Unlock()
		dets, err := fn(jpeg)
		m.mu.Lock()
		return dets, err
	}

	if len(m.script) == 0 {
		return nil, nil
	}
	frame := m.script[m.cursor]
	if m.cursor < len(m.script)-1 {
		m.cursor++
	}
	return frame, nil
}

// Close marks the mock closed.
func (m *Mock) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

// Calls returns the number of Detect invocations.
func (m *Mock) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// Verify Mock implements Detector at compile time.
var _ Detector = (*Mock)(nil)
