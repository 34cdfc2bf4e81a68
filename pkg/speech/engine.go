package speech

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// PlaybackEngine implements Engine over a Synthesizer and a Sink.
type PlaybackEngine struct {
	synth  Synthesizer
	sink   Sink
	logger *slog.Logger

	mu     sync.Mutex
	closed bool
}

// NewEngine creates an engine playing synthesized clips through the sink.
func NewEngine(synth Synthesizer, sink Sink) *PlaybackEngine {
	return &PlaybackEngine{
		synth:  synth,
		sink:   sink,
		logger: slog.Default().With("component", "speech.engine"),
	}
}

// Speak synthesizes and plays the utterance.
func (e *PlaybackEngine) Speak(ctx context.Context, u Utterance) error {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return ErrEngineClosed
	}
	e.mu.Unlock()

	clip, err := e.synth.Synthesize(ctx, u)
	if err != nil {
		return fmt.Errorf("speech: synthesize: %w", err)
	}

	if ctx.Err() != nil {
		return ctx.Err()
	}

	rate := u.Rate
	if rate <= 0 {
		rate = 1.0
	}

	start := time.Now()
	if err := e.sink.Play(ctx, clip, rate); err != nil {
		return fmt.Errorf("speech: play: %w", err)
	}

	e.logger.Debug("utterance complete",
		"chars", len(u.Text),
		"elapsed", time.Since(start),
	)
	return nil
}

// Close releases the engine, the synthesizer and the sink.
func (e *PlaybackEngine) Close() error {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return nil
	}
	e.closed = true
	e.mu.Unlock()

	err := e.synth.Close()
	if serr := e.sink.Close(); err == nil {
		err = serr
	}
	return err
}

// Verify PlaybackEngine implements Engine at compile time.
var _ Engine = (*PlaybackEngine)(nil)
