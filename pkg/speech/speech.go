// Package speech provides text-to-speech synthesis and playback for the
// sense pipeline.
//
// The package separates three concerns: a Synthesizer turns an utterance
// into an audio clip, an Engine plays one utterance at a time, and a Queue
// serializes competing requests onto an engine with cancel-and-replace
// semantics. An Arbiter shares one engine between the detection
// announcement channel and the narration channel under a configurable
// priority policy.
package speech

import (
	"context"
	"errors"
	"time"
)

// Sentinel errors for synthesis and playback.
var (
	// ErrNoEndpoint is returned when the remote synthesizer URL is missing.
	ErrNoEndpoint = errors.New("speech: endpoint required")

	// ErrEngineClosed is returned when speaking through a closed engine.
	ErrEngineClosed = errors.New("speech: engine closed")

	// ErrChannelBusy is returned when a higher-priority channel holds
	// the engine and the policy forbids preemption.
	ErrChannelBusy = errors.New("speech: engine held by higher-priority channel")

	// ErrAllSynthesizersFailed is returned when every synthesizer in a
	// chain fails.
	ErrAllSynthesizersFailed = errors.New("speech: all synthesizers failed")
)

// Utterance is one unit of synthesized speech.
type Utterance struct {
	// Text is the content to speak.
	Text string

	// Lang is a BCP 47 language tag (e.g., "en-US").
	Lang string

	// Rate is the playback rate multiplier; 1.0 is normal speed.
	// Zero is treated as 1.0.
	Rate float64

	// Voice is an optional voice ID. Empty means the backend picks a
	// voice from the language tag alone.
	Voice string
}

// Clip is synthesized audio ready for playback.
type Clip struct {
	// Audio contains PCM16 little-endian mono samples.
	Audio []byte

	// SampleRate in Hz.
	SampleRate int

	// Duration is the playback duration at rate 1.0.
	Duration time.Duration
}

// Synthesizer converts utterances to audio clips.
type Synthesizer interface {
	// Synthesize converts the utterance to a clip.
	Synthesize(ctx context.Context, u Utterance) (*Clip, error)

	// Voices lists the voices the backend offers.
	Voices(ctx context.Context) ([]Voice, error)

	// Close releases any resources held by the synthesizer.
	Close() error
}

// Engine plays utterances. Implementations guarantee at most one
// utterance is audible at a time per engine.
type Engine interface {
	// Speak synthesizes and plays the utterance, blocking until playback
	// completes or ctx is canceled. A canceled context stops playback
	// and returns ctx.Err().
	Speak(ctx context.Context, u Utterance) error

	// Close releases the engine. In-flight playback is stopped.
	Close() error
}

// Sink plays a clip to an audio output.
type Sink interface {
	// Play writes the clip to the output at the given rate, blocking
	// until done or ctx is canceled.
	Play(ctx context.Context, clip *Clip, rate float64) error

	// Close releases the output device.
	Close() error
}
