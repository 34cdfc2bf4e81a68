package speech

import (
	"context"
	"errors"
	"log/slog"
	"sync"
)

// Queue serializes speech requests onto an engine with preemptive,
// cancel-and-replace semantics: submitting a new utterance cancels any
// in-flight one and starts the new one immediately. No backlog
// accumulates; only the most recent request matters.
//
// Engine errors are swallowed and logged; speech is best-effort and the
// caption path is authoritative.
type Queue struct {
	engine Engine
	logger *slog.Logger

	mu     sync.Mutex
	cancel context.CancelFunc
	gen    uint64
	active bool

	// OnDone, if set, is called when an utterance finishes playing
	// without being preempted. Used by tests and the dashboard.
	OnDone func(u Utterance)
}

// NewQueue creates a queue over the given engine.
func NewQueue(engine Engine) *Queue {
	return &Queue{
		engine: engine,
		logger: slog.Default().With("component", "speech.queue"),
	}
}

// Submit cancels any active utterance and starts speaking u.
func (q *Queue) Submit(u Utterance) {
	q.mu.Lock()
	if q.cancel != nil {
		q.cancel()
	}
	ctx, cancel := context.WithCancel(context.Background())
	q.cancel = cancel
	q.gen++
	gen := q.gen
	q.active = true
	q.mu.Unlock()

	go q.run(ctx, cancel, gen, u)
}

func (q *Queue) run(ctx context.Context, cancel context.CancelFunc, gen uint64, u Utterance) {
	defer cancel()

	err := q.engine.Speak(ctx, u)

	q.mu.Lock()
	if q.gen == gen {
		q.active = false
		q.cancel = nil
	}
	stale := q.gen != gen
	q.mu.Unlock()

	if stale || errors.Is(err, context.Canceled) {
		return
	}
	if err != nil {
		q.logger.Warn("utterance failed", "error", err, "chars", len(u.Text))
		return
	}
	if q.OnDone != nil {
		q.OnDone(u)
	}
}

// Cancel stops any active utterance without starting a new one.
func (q *Queue) Cancel() {
	q.mu.Lock()
	if q.cancel != nil {
		q.cancel()
		q.cancel = nil
	}
	q.gen++
	q.active = false
	q.mu.Unlock()
}

// Active reports whether an utterance is currently in flight.
func (q *Queue) Active() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.active
}
