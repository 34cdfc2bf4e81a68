// Package narrate reads an ordered list of text items aloud, one at a
// time, with configurable speed, granularity and looping.
//
// Narration is deliberately sequential where detection announcements are
// preemptive: the queue speaks item N to completion, pauses, then speaks
// item N+1. It runs on its own speech channel so announcements and
// narration never cancel each other by accident.
package narrate

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/a11ykit/go-sense/pkg/speech"
)

// ErrQueueActive is returned when starting a queue that is already
// narrating. Stop it first.
var ErrQueueActive = errors.New("narrate: queue already active")

// Speed is a narration speed tier.
type Speed int

const (
	// SpeedNormal is the default reading speed.
	SpeedNormal Speed = iota

	// SpeedSlow reads slower with longer pauses between items.
	SpeedSlow

	// SpeedFast reads faster with shorter pauses between items.
	SpeedFast
)

// String returns the speed name.
func (s Speed) String() string {
	switch s {
	case SpeedSlow:
		return "slow"
	case SpeedFast:
		return "fast"
	default:
		return "normal"
	}
}

// ParseSpeed maps a speed name to a Speed. Unknown names mean
// SpeedNormal.
func ParseSpeed(s string) Speed {
	switch s {
	case "slow":
		return SpeedSlow
	case "fast":
		return SpeedFast
	default:
		return SpeedNormal
	}
}

// Profile pairs a playback rate with an inter-item pause. Rate and pause
// are independent knobs, not derived from one another.
type Profile struct {
	// Rate is the playback rate multiplier passed to the speech engine.
	Rate float64

	// Pause is the silence between one item completing and the next
	// starting.
	Pause time.Duration
}

// Profile returns the playback profile for the speed tier.
func (s Speed) Profile() Profile {
	switch s {
	case SpeedSlow:
		return Profile{Rate: 0.8, Pause: 500 * time.Millisecond}
	case SpeedFast:
		return Profile{Rate: 1.3, Pause: 100 * time.Millisecond}
	default:
		return Profile{Rate: 1.0, Pause: 250 * time.Millisecond}
	}
}

// Granularity selects how the item list maps onto utterances.
type Granularity int

const (
	// PerItem speaks each list entry as one utterance.
	PerItem Granularity = iota

	// Chunked concatenates all entries and splits the result into
	// fixed-size character chunks. Useful when the entries are so short
	// that item-by-item reading sounds choppy.
	Chunked
)

// DefaultChunkSize is the chunk length, in runes, for Chunked narration.
const DefaultChunkSize = 200

// Config holds the parameters of one narration run.
type Config struct {
	// Lang is the BCP 47 language tag for synthesis and voice selection.
	Lang string

	// Speed selects the playback profile.
	Speed Speed

	// Loop wraps the cursor back to the first item after the last.
	Loop bool

	// Granularity selects per-item or chunked reading.
	Granularity Granularity

	// ChunkSize is the chunk length for Chunked granularity, in runes.
	// Zero means DefaultChunkSize.
	ChunkSize int

	// Voices is the available voice inventory. The best locale match is
	// picked; with no voices the utterance carries only the language tag.
	Voices []speech.Voice
}

// Queue narrates one item list at a time through a speech engine.
type Queue struct {
	engine speech.Engine
	logger *slog.Logger

	mu     sync.Mutex
	items  []string
	cursor int
	active bool
	cancel context.CancelFunc
	gen    uint64

	// OnItem, if set, observes each item as it starts speaking.
	OnItem func(index int, text string)

	// OnDone, if set, fires when a non-looping run finishes its last
	// item. It does not fire on Stop.
	OnDone func()
}

// NewQueue creates a narration queue over the engine.
func NewQueue(engine speech.Engine) *Queue {
	return &Queue{
		engine: engine,
		logger: slog.Default().With("component", "narrate.queue"),
	}
}

// Start begins narrating the items under the given configuration. An
// empty item list is a no-op, not an error. Starting while a run is
// active returns ErrQueueActive.
func (q *Queue) Start(items []string, cfg Config) error {
	utterances := buildUtterances(items, cfg)
	if len(utterances) == 0 {
		return nil
	}

	profile := cfg.Speed.Profile()

	var voice string
	if v := speech.PickVoice(cfg.Voices, cfg.Lang); v != nil {
		voice = v.ID
	}

	q.mu.Lock()
	if q.active {
		q.mu.Unlock()
		return ErrQueueActive
	}
	ctx, cancel := context.WithCancel(context.Background())
	q.items = utterances
	q.cursor = 0
	q.active = true
	q.cancel = cancel
	q.gen++
	gen := q.gen
	q.mu.Unlock()

	q.logger.Debug("narration started",
		"items", len(utterances), "speed", cfg.Speed.String(), "loop", cfg.Loop)

	go q.run(ctx, gen, utterances, cfg, profile, voice)
	return nil
}

// Stop ends the current run: the in-flight utterance is canceled and the
// queue is cleared. Completions arriving after Stop are no-ops.
func (q *Queue) Stop() {
	q.mu.Lock()
	if !q.active {
		q.mu.Unlock()
		return
	}
	q.active = false
	q.gen++
	if q.cancel != nil {
		q.cancel()
		q.cancel = nil
	}
	q.items = nil
	q.cursor = 0
	q.mu.Unlock()

	q.logger.Debug("narration stopped")
}

// Active reports whether a run is in progress.
func (q *Queue) Active() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.active
}

// Cursor returns the index of the item currently being (or about to be)
// spoken.
func (q *Queue) Cursor() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.cursor
}

// run speaks items in order until the run ends or is stopped.
func (q *Queue) run(ctx context.Context, gen uint64, items []string, cfg Config, profile Profile, voice string) {
	for {
		q.mu.Lock()
		if !q.active || q.gen != gen {
			q.mu.Unlock()
			return
		}
		idx := q.cursor
		q.mu.Unlock()

		text := items[idx]
		if fn := q.OnItem; fn != nil {
			fn(idx, text)
		}

		err := q.engine.Speak(ctx, speech.Utterance{
			Text:  text,
			Lang:  cfg.Lang,
			Rate:  profile.Rate,
			Voice: voice,
		})
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			// A failed utterance ends the run rather than skipping
			// ahead; the cursor only ever advances on completion.
			q.logger.Warn("narration utterance failed", "index", idx, "error", err)
			q.finish(gen, false)
			return
		}

		// Completion: advance, guarded against a Stop that raced the
		// utterance's tail end.
		q.mu.Lock()
		if !q.active || q.gen != gen {
			q.mu.Unlock()
			return
		}
		q.cursor++
		if q.cursor >= len(items) {
			if !cfg.Loop {
				q.mu.Unlock()
				q.finish(gen, true)
				return
			}
			q.cursor = 0
		}
		q.mu.Unlock()

		select {
		case <-time.After(profile.Pause):
		case <-ctx.Done():
			return
		}
	}
}

// finish deactivates the run if it is still the current one.
func (q *Queue) finish(gen uint64, completed bool) {
	q.mu.Lock()
	if !q.active || q.gen != gen {
		q.mu.Unlock()
		return
	}
	q.active = false
	if q.cancel != nil {
		q.cancel()
		q.cancel = nil
	}
	q.items = nil
	q.mu.Unlock()

	if completed {
		q.logger.Debug("narration finished")
		if fn := q.OnDone; fn != nil {
			fn()
		}
	}
}

// buildUtterances maps the item list onto utterance texts per the
// configured granularity. Blank items are dropped.
func buildUtterances(items []string, cfg Config) []string {
	kept := make([]string, 0, len(items))
	for _, item := range items {
		if s := strings.TrimSpace(item); s != "" {
			kept = append(kept, s)
		}
	}
	if len(kept) == 0 {
		return nil
	}

	if cfg.Granularity != Chunked {
		return kept
	}

	size := cfg.ChunkSize
	if size <= 0 {
		size = DefaultChunkSize
	}
	return chunkText(strings.Join(kept, " "), size)
}

// chunkText splits text into rune chunks of at most size.
func chunkText(text string, size int) []string {
	runes := []rune(text)
	chunks := make([]string, 0, (len(runes)+size-1)/size)
	for start := 0; start < len(runes); start += size {
		end := start + size
		if end > len(runes) {
			end = len(runes)
		}
		chunks = append(chunks, string(runes[start:end]))
	}
	return chunks
}
