package transcribe

import (
	"context"
	"sync"
)

// MockSession implements Session for testing. Events are pushed by the
// test; End terminates the session as if the backend hung up.
type MockSession struct {
	results chan Event
	done    chan struct{}

	mu     sync.Mutex
	err    error
	closed bool
	audio  [][]byte
}

// NewMockSession creates an open mock session.
func NewMockSession() *MockSession {
	return &MockSession{
		results: make(chan Event, 16),
		done:    make(chan struct{}),
	}
}

// Push delivers a result event to the pipeline.
func (s *MockSession) Push(event Event) {
	s.mu.Lock()
	closed := s.closed
	s.mu.Unlock()
	if closed {
		return
	}
	s.results <- event
}

// PushFinal delivers a single-fragment final result.
func (s *MockSession) PushFinal(text string) {
	s.Push(Event{Fragments: []Fragment{{Text: text, Final: true}}})
}

// End terminates the session as the backend would (network hiccup,
// silence timeout). err may be nil.
func (s *MockSession) End(err error) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	s.err = err
	s.mu.Unlock()

	close(s.results)
	close(s.done)
}

// SendAudio records one audio chunk.
func (s *MockSession) SendAudio(pcm []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrSessionClosed
	}
	buf := make([]byte, len(pcm))
	copy(buf, pcm)
	s.audio = append(s.audio, buf)
	return nil
}

// Audio returns the chunks received so far.
func (s *MockSession) Audio() [][]byte {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([][]byte, len(s.audio))
	copy(out, s.audio)
	return out
}

// Results streams events.
func (s *MockSession) Results() <-chan Event { return s.results }

// Done is closed on termination.
func (s *MockSession) Done() <-chan struct{} { return s.done }

// Err returns the terminal error.
func (s *MockSession) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

// Close stops the session.
func (s *MockSession) Close() error {
	s.End(nil)
	return nil
}

// MockRecognizer implements Recognizer for testing. Each Start call
// returns the next prepared session; Sessions records the languages
// requested.
type MockRecognizer struct {
	// Unavailable makes Available return false.
	Unavailable bool

	// StartErr, if set, fails every Start call.
	StartErr error

	mu       sync.Mutex
	prepared []*MockSession
	started  []string
}

// NewMockRecognizer creates a recognizer serving the given sessions in
// order. When the prepared list runs out, fresh sessions are created on
// demand.
func NewMockRecognizer(sessions ...*MockSession) *MockRecognizer {
	return &MockRecognizer{prepared: sessions}
}

// Start returns the next prepared session.
func (m *MockRecognizer) Start(ctx context.Context, lang string) (Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.StartErr != nil {
		return nil, m.StartErr
	}

	m.started = append(m.started, lang)

	var sess *MockSession
	if len(m.prepared) > 0 {
		sess = m.prepared[0]
		m.prepared = m.prepared[1:]
	} else {
		sess = NewMockSession()
	}

	// Honor context cancellation like a real backend: the session ends
	// when the pipeline tears it down.
	go func() {
		<-ctx.Done()
		sess.End(nil)
	}()

	return sess, nil
}

// Available reports backend availability.
func (m *MockRecognizer) Available() bool { return !m.Unavailable }

// Close is a no-op.
func (m *MockRecognizer) Close() error { return nil }

// Started returns the languages of all opened sessions, in order.
func (m *MockRecognizer) Started() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, len(m.started))
	copy(out, m.started)
	return out
}

// StartCount returns how many sessions have been opened.
func (m *MockRecognizer) StartCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.started)
}

// Compile-time interface checks.
var (
	_ Session    = (*MockSession)(nil)
	_ Recognizer = (*MockRecognizer)(nil)
)
