package announce

import (
	"testing"
	"time"

	"github.com/a11ykit/go-sense/pkg/caption"
	"github.com/a11ykit/go-sense/pkg/presence"
	"github.com/a11ykit/go-sense/pkg/speech"
)

func settle(engine *speech.MockEngine, q *speech.Queue) {
	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		if !q.Active() && !engine.Speaking() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestRouter_AnnouncesEnteredClasses(t *testing.T) {
	engine := speech.NewMockEngine()
	q := speech.NewQueue(engine)
	captions := caption.NewBuffer(5)
	r := NewRouter(captions, q, "en-US")

	r.HandleDiff(presence.Diff{Entered: []string{"person"}})
	settle(engine, q)

	lines := captions.Lines()
	if len(lines) != 1 || lines[0].Text != "Detected person" {
		t.Fatalf("unexpected captions: %+v", lines)
	}

	texts := engine.Texts()
	if len(texts) != 1 || texts[0] != "Detected person" {
		t.Fatalf("unexpected speech: %v", texts)
	}
}

func TestRouter_ExitsAreSilent(t *testing.T) {
	engine := speech.NewMockEngine()
	q := speech.NewQueue(engine)
	captions := caption.NewBuffer(5)
	r := NewRouter(captions, q, "en-US")

	r.HandleDiff(presence.Diff{Exited: []string{"chair"}})
	settle(engine, q)

	if captions.Len() != 0 {
		t.Error("exited classes must not caption")
	}
	if len(engine.Texts()) != 0 {
		t.Error("exited classes must not speak")
	}
}

func TestRouter_MutedStillCaptions(t *testing.T) {
	engine := speech.NewMockEngine()
	q := speech.NewQueue(engine)
	captions := caption.NewBuffer(5)
	r := NewRouter(captions, q, "en-US")
	r.Muted = func() bool { return true }

	r.HandleDiff(presence.Diff{Entered: []string{"dog"}})
	settle(engine, q)

	if captions.Len() != 1 {
		t.Error("caption must appear even when muted")
	}
	if len(engine.Texts()) != 0 {
		t.Error("no speech expected while muted")
	}
}

func TestRouter_SetLanguageAppliesToLaterAnnouncements(t *testing.T) {
	engine := speech.NewMockEngine()
	q := speech.NewQueue(engine)
	captions := caption.NewBuffer(5)
	r := NewRouter(captions, q, "en-US")

	r.HandleDiff(presence.Diff{Entered: []string{"person"}})
	settle(engine, q)

	r.SetLanguage("pt-BR")
	r.HandleDiff(presence.Diff{Entered: []string{"dog"}})
	settle(engine, q)

	calls := engine.Calls()
	if len(calls) != 2 {
		t.Fatalf("expected 2 utterances, got %d", len(calls))
	}
	if calls[0].Lang != "en-US" {
		t.Errorf("first utterance lang = %q, want en-US", calls[0].Lang)
	}
	if calls[1].Lang != "pt-BR" {
		t.Errorf("second utterance lang = %q, want pt-BR", calls[1].Lang)
	}
}

func TestRouter_EventMetadata(t *testing.T) {
	engine := speech.NewMockEngine()
	q := speech.NewQueue(engine)
	captions := caption.NewBuffer(5)
	r := NewRouter(captions, q, "en-US")

	var events []Event
	r.OnAnnounce = func(e Event) { events = append(events, e) }

	r.HandleDiff(presence.Diff{Entered: []string{"cup", "book"}})
	settle(engine, q)

	if len(events) != 2 {
		t.Fatalf("expected 2 events, got %d", len(events))
	}
	if events[0].SourceClass != "cup" || events[1].SourceClass != "book" {
		t.Errorf("events out of order: %+v", events)
	}
	if events[0].Timestamp.IsZero() {
		t.Error("expected timestamp set")
	}
	// Both captions present regardless of speech preemption
	if captions.Len() != 2 {
		t.Errorf("expected 2 captions, got %d", captions.Len())
	}
}
