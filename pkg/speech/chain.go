package speech

import (
	"context"
	"fmt"
	"log/slog"
)

// Chain implements Synthesizer by trying multiple backends in order.
// The first successful backend wins; if all fail, returns an aggregate
// error. Speech is best-effort, so a fallback improves availability
// without changing caller code.
type Chain struct {
	synths []Synthesizer
	logger *slog.Logger
}

// NewChain creates a synthesizer chain that tries backends in order.
// At least one backend is required.
func NewChain(synths ...Synthesizer) (*Chain, error) {
	if len(synths) == 0 {
		return nil, ErrAllSynthesizersFailed
	}

	return &Chain{
		synths: synths,
		logger: slog.Default().With("component", "speech.chain"),
	}, nil
}

// Synthesize tries each backend until one succeeds.
func (c *Chain) Synthesize(ctx context.Context, u Utterance) (*Clip, error) {
	var errs []error

	for i, s := range c.synths {
		clip, err := s.Synthesize(ctx, u)
		if err == nil {
			if i > 0 {
				c.logger.Info("fallback synthesizer succeeded",
					"index", i,
					"chars", len(u.Text),
				)
			}
			return clip, nil
		}

		errs = append(errs, err)
		c.logger.Warn("synthesizer failed, trying next",
			"index", i,
			"error", err,
		)

		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
	}

	return nil, &ChainError{Errors: errs}
}

// Voices returns the voice list of the first backend that answers.
func (c *Chain) Voices(ctx context.Context) ([]Voice, error) {
	var lastErr error
	for _, s := range c.synths {
		voices, err := s.Voices(ctx)
		if err == nil {
			return voices, nil
		}
		lastErr = err
	}
	return nil, lastErr
}

// Close closes all backends.
func (c *Chain) Close() error {
	var lastErr error
	for _, s := range c.synths {
		if err := s.Close(); err != nil {
			lastErr = err
		}
	}
	return lastErr
}

// ChainError aggregates errors from all backends in a chain.
type ChainError struct {
	Errors []error
}

// Error implements the error interface.
func (e *ChainError) Error() string {
	if len(e.Errors) == 0 {
		return "speech chain: no errors recorded"
	}
	if len(e.Errors) == 1 {
		return fmt.Sprintf("speech chain: %v", e.Errors[0])
	}
	return fmt.Sprintf("speech chain: all %d synthesizers failed, last error: %v", len(e.Errors), e.Errors[len(e.Errors)-1])
}

// Unwrap returns the last error in the chain.
func (e *ChainError) Unwrap() error {
	if len(e.Errors) == 0 {
		return nil
	}
	return e.Errors[len(e.Errors)-1]
}

// Verify Chain implements Synthesizer at compile time.
var _ Synthesizer = (*Chain)(nil)
