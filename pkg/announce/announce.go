// Package announce turns presence enter events into captions and speech.
package announce

import (
	"fmt"
	"sync"
	"time"

	"github.com/a11ykit/go-sense/pkg/caption"
	"github.com/a11ykit/go-sense/pkg/presence"
	"github.com/a11ykit/go-sense/pkg/speech"
)

// Event is one announcement produced for a class entering the scene.
type Event struct {
	Text        string    `json:"text"`
	SourceClass string    `json:"source_class"`
	Timestamp   time.Time `json:"timestamp"`
}

// Router consumes presence diffs, formats announcement text and forwards
// it to the caption buffer and, unless muted, to the speech queue.
//
// Captions are authoritative: they are pushed before and regardless of
// speech submission, so a caption always appears even when speech is
// suppressed or the engine fails.
type Router struct {
	captions *caption.Buffer
	queue    *speech.Queue

	mu   sync.Mutex
	lang string

	// Muted reports whether speech output is currently suppressed
	// (hearing mode "mute"). Nil means never muted.
	Muted func() bool

	// OnAnnounce, if set, observes every announcement event.
	OnAnnounce func(Event)
}

// NewRouter creates a router feeding the given caption buffer and
// speech queue. lang is the announcement language tag.
func NewRouter(captions *caption.Buffer, queue *speech.Queue, lang string) *Router {
	return &Router{
		captions: captions,
		queue:    queue,
		lang:     lang,
	}
}

// HandleDiff announces every class that entered the scene this cycle.
// Exited classes produce no output; the presence tracker already forgot
// them so a later re-entry announces again.
func (r *Router) HandleDiff(diff presence.Diff) {
	for _, label := range diff.Entered {
		r.announce(label)
	}
}

// Cancel stops any announcement currently being spoken.
func (r *Router) Cancel() {
	r.queue.Cancel()
}

// SetLanguage switches the language tag used for future announcements.
func (r *Router) SetLanguage(lang string) {
	r.mu.Lock()
	r.lang = lang
	r.mu.Unlock()
}

func (r *Router) language() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.lang
}

func (r *Router) announce(label string) {
	event := Event{
		Text:        fmt.Sprintf("Detected %s", label),
		SourceClass: label,
		Timestamp:   time.Now(),
	}

	// Caption first, speech second. Fixed order per cycle.
	r.captions.Push(event.Text)

	if r.Muted == nil || !r.Muted() {
		r.queue.Submit(speech.Utterance{
			Text: event.Text,
			Lang: r.language(),
			Rate: 1.0,
		})
	}

	if r.OnAnnounce != nil {
		r.OnAnnounce(event)
	}
}
