package speech

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

// blockingEngine speaks until its context is canceled or release is closed.
type blockingEngine struct {
	mu      sync.Mutex
	started []string
	results []error
	release chan struct{}
}

func newBlockingEngine() *blockingEngine {
	return &blockingEngine{release: make(chan struct{})}
}

func (e *blockingEngine) Speak(ctx context.Context, u Utterance) error {
	e.mu.Lock()
	e.started = append(e.started, u.Text)
	e.mu.Unlock()

	var err error
	select {
	case <-ctx.Done():
		err = ctx.Err()
	case <-e.release:
	}

	e.mu.Lock()
	e.results = append(e.results, err)
	e.mu.Unlock()
	return err
}

func (e *blockingEngine) Close() error { return nil }

func (e *blockingEngine) startedTexts() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]string, len(e.started))
	copy(out, e.started)
	return out
}

func waitFor(t *testing.T, cond func() bool, msg string) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal(msg)
}

func TestQueue_PreemptsActiveUtterance(t *testing.T) {
	engine := newBlockingEngine()
	q := NewQueue(engine)

	q.Submit(Utterance{Text: "first"})
	waitFor(t, func() bool { return len(engine.startedTexts()) == 1 }, "first utterance never started")

	// Submitting B while A is active cancels A and starts B
	q.Submit(Utterance{Text: "second"})
	waitFor(t, func() bool { return len(engine.startedTexts()) == 2 }, "second utterance never started")

	engine.mu.Lock()
	firstErr := engine.results[0]
	engine.mu.Unlock()
	if !errors.Is(firstErr, context.Canceled) {
		t.Errorf("expected first utterance canceled, got %v", firstErr)
	}

	close(engine.release)
	waitFor(t, func() bool { return !q.Active() }, "queue never went idle")
}

func TestQueue_AtMostOneActive(t *testing.T) {
	mock := NewMockEngine()
	mock.PerChar = 5 * time.Millisecond
	q := NewQueue(mock)

	for _, text := range []string{"a", "b", "c", "d"} {
		q.Submit(Utterance{Text: text})
	}

	waitFor(t, func() bool { return !q.Active() && !mock.Speaking() }, "queue never settled")

	// Every call except the last must have been canceled or completed;
	// none may overlap. The mock serializes via the queue, so started
	// count equals submissions.
	calls := mock.Calls()
	if len(calls) != 4 {
		t.Fatalf("expected 4 speak calls, got %d", len(calls))
	}
	last := calls[len(calls)-1]
	if last.Canceled {
		t.Error("final utterance should not be canceled")
	}
}

func TestQueue_ErrorSwallowed(t *testing.T) {
	mock := NewMockEngine()
	mock.SpeakFunc = func(ctx context.Context, u Utterance) error {
		return errors.New("engine exploded")
	}
	q := NewQueue(mock)

	done := make(chan Utterance, 1)
	q.OnDone = func(u Utterance) { done <- u }

	q.Submit(Utterance{Text: "hello"})
	waitFor(t, func() bool { return !q.Active() }, "queue never settled")

	// Failure must not reach OnDone and must not panic the pipeline
	select {
	case <-done:
		t.Error("OnDone fired for a failed utterance")
	case <-time.After(50 * time.Millisecond):
	}
}

func TestQueue_CancelStopsPlayback(t *testing.T) {
	engine := newBlockingEngine()
	q := NewQueue(engine)

	q.Submit(Utterance{Text: "ongoing"})
	waitFor(t, func() bool { return len(engine.startedTexts()) == 1 }, "utterance never started")

	q.Cancel()
	waitFor(t, func() bool {
		engine.mu.Lock()
		defer engine.mu.Unlock()
		return len(engine.results) == 1
	}, "utterance never stopped")

	if q.Active() {
		t.Error("queue should be idle after Cancel")
	}
}

func TestQueue_OnDoneAfterCompletion(t *testing.T) {
	mock := NewMockEngine()
	q := NewQueue(mock)

	done := make(chan Utterance, 1)
	q.OnDone = func(u Utterance) { done <- u }

	q.Submit(Utterance{Text: "finished"})

	select {
	case u := <-done:
		if u.Text != "finished" {
			t.Errorf("unexpected utterance: %q", u.Text)
		}
	case <-time.After(time.Second):
		t.Fatal("OnDone never fired")
	}
}
