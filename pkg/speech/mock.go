package speech

import (
	"context"
	"sync"
	"time"
)

// MockEngine implements Engine for testing.
// Playback is simulated: each utterance "plays" for PerChar multiplied by
// its text length, honoring context cancellation.
type MockEngine struct {
	// PerChar is the simulated playback time per character.
	// Zero means utterances complete immediately.
	PerChar time.Duration

	// SpeakFunc, if set, overrides the simulated playback.
	SpeakFunc func(ctx context.Context, u Utterance) error

	mu       sync.Mutex
	calls    []MockCall
	speaking bool
}

// MockCall records one Speak invocation.
type MockCall struct {
	Text     string
	Lang     string
	Rate     float64
	Start    time.Time
	Err      error
	Canceled bool
}

// NewMockEngine creates a mock engine with instant playback.
func NewMockEngine() *MockEngine {
	return &MockEngine{}
}

// Speak simulates playback and records the call.
func (m *MockEngine) Speak(ctx context.Context, u Utterance) error {
	m.mu.Lock()
	idx := len(m.calls)
	m.calls = append(m.calls, MockCall{
		Text:  u.Text,
		Lang:  u.Lang,
		Rate:  u.Rate,
		Start: time.Now(),
	})
	m.speaking = true
	fn := m.SpeakFunc
	m.mu.Unlock()

	var err error
	switch {
	case fn != nil:
		err = fn(ctx, u)
	case m.PerChar > 0:
		select {
		case <-time.After(time.Duration(len(u.Text)) * m.PerChar):
		case <-ctx.Done():
			err = ctx.Err()
		}
	default:
		err = ctx.Err()
	}

	m.mu.Lock()
	m.calls[idx].Err = err
	m.calls[idx].Canceled = ctx.Err() != nil
	m.speaking = false
	m.mu.Unlock()
	return err
}

// Close marks the engine closed.
func (m *MockEngine) Close() error {
	return nil
}

// Speaking reports whether a simulated utterance is in flight.
func (m *MockEngine) Speaking() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.speaking
}

// Calls returns all recorded Speak invocations.
func (m *MockEngine) Calls() []MockCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]MockCall, len(m.calls))
	copy(out, m.calls)
	return out
}

// Texts returns the spoken texts in submission order.
func (m *MockEngine) Texts() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, len(m.calls))
	for i, c := range m.calls {
		out[i] = c.Text
	}
	return out
}

// Reset clears recorded calls.
func (m *MockEngine) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = nil
}

// MockSynthesizer implements Synthesizer for testing.
// It returns silent PCM sized to give roughly natural speech pacing
// (~20ms per character).
type MockSynthesizer struct {
	// SynthesizeFunc, if set, overrides the default behavior.
	SynthesizeFunc func(ctx context.Context, u Utterance) (*Clip, error)

	// VoiceList is returned by Voices.
	VoiceList []Voice

	mu    sync.Mutex
	calls int
}

// Synthesize returns silent audio proportional to the text length.
func (m *MockSynthesizer) Synthesize(ctx context.Context, u Utterance) (*Clip, error) {
	m.mu.Lock()
	m.calls++
	fn := m.SynthesizeFunc
	m.mu.Unlock()

	if fn != nil {
		return fn(ctx, u)
	}

	const sampleRate = 22050
	perChar := 20 * time.Millisecond
	samples := int(time.Duration(len(u.Text)) * perChar * sampleRate / time.Second)

	return &Clip{
		Audio:      make([]byte, samples*2),
		SampleRate: sampleRate,
		Duration:   time.Duration(len(u.Text)) * perChar,
	}, nil
}

// Voices returns the configured voice list.
func (m *MockSynthesizer) Voices(ctx context.Context) ([]Voice, error) {
	return m.VoiceList, nil
}

// Close is a no-op.
func (m *MockSynthesizer) Close() error {
	return nil
}

// Calls returns the number of Synthesize invocations.
func (m *MockSynthesizer) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// MockSink implements Sink for testing. Playback completes immediately
// unless Realtime is set, in which case it sleeps for the clip duration
// scaled by the rate.
type MockSink struct {
	Realtime bool

	mu     sync.Mutex
	played []time.Duration
}

// Play records the clip and optionally simulates real-time playback.
func (s *MockSink) Play(ctx context.Context, clip *Clip, rate float64) error {
	s.mu.Lock()
	s.played = append(s.played, clip.Duration)
	s.mu.Unlock()

	if !s.Realtime {
		return ctx.Err()
	}

	d := clip.Duration
	if rate > 0 {
		d = time.Duration(float64(d) / rate)
	}
	select {
	case <-time.After(d):
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close is a no-op.
func (s *MockSink) Close() error {
	return nil
}

// Played returns the durations of clips submitted for playback.
func (s *MockSink) Played() []time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]time.Duration, len(s.played))
	copy(out, s.played)
	return out
}

// Compile-time interface checks.
var (
	_ Engine      = (*MockEngine)(nil)
	_ Synthesizer = (*MockSynthesizer)(nil)
	_ Sink        = (*MockSink)(nil)
)
