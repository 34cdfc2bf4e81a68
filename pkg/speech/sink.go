package speech

import (
	"context"
	"time"
)

// PacedSink plays clips without a local audio device: it paces on the
// clip's duration (scaled by rate) and hands the samples to an optional
// consumer, e.g. a websocket audio stream. Utterance-complete timing
// therefore matches real playback.
type PacedSink struct {
	// OnClip, if set, receives every clip before its playback window.
	OnClip func(*Clip)
}

// Play delivers the clip and waits out its playback duration.
func (s *PacedSink) Play(ctx context.Context, clip *Clip, rate float64) error {
	if s.OnClip != nil {
		s.OnClip(clip)
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
func (s *PacedSink) Close() error {
	return nil
}

// Compile-time interface check.
var _ Sink = (*PacedSink)(nil)
