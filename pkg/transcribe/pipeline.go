package transcribe

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"time"
	"unicode"

	"github.com/a11ykit/go-sense/pkg/caption"
)

// State is the pipeline lifecycle state.
type State int

const (
	// Stopped: no session, no restarts.
	Stopped State = iota

	// Starting: opening a recognition session.
	Starting

	// Listening: session open, results flowing.
	Listening

	// Ending: session terminated on its own; about to restart.
	Ending
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case Stopped:
		return "stopped"
	case Starting:
		return "starting"
	case Listening:
		return "listening"
	case Ending:
		return "ending"
	default:
		return "unknown"
	}
}

// DefaultDebounce is the emission debounce window. Rapid-fire partial
// finalizations inside the window collapse into one caption line.
const DefaultDebounce = 50 * time.Millisecond

// Config holds pipeline configuration.
type Config struct {
	// Lang is the target language tag.
	Lang string

	// Debounce is the caption emission delay. Zero means DefaultDebounce.
	Debounce time.Duration
}

// Pipeline owns the continuous recognition session: it starts it,
// normalizes, deduplicates and debounces incoming text, and restarts the
// session automatically when it ends while it should still be listening.
type Pipeline struct {
	rec      Recognizer
	captions *caption.Buffer
	debounce time.Duration
	logger   *slog.Logger

	mu            sync.Mutex
	state         State
	shouldListen  bool
	session       Session
	lang          string
	lastEmitted   string
	pendingTimer  *time.Timer
	pendingSeq    uint64
	sessionCancel context.CancelFunc
	gen           uint64

	// OnState, if set, observes state transitions.
	OnState func(State)
}

// NewPipeline creates a transcription pipeline emitting caption lines
// into the given buffer.
func NewPipeline(rec Recognizer, captions *caption.Buffer, cfg Config) *Pipeline {
	debounce := cfg.Debounce
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	return &Pipeline{
		rec:      rec,
		captions: captions,
		debounce: debounce,
		lang:     cfg.Lang,
		logger:   slog.Default().With("component", "transcribe.pipeline"),
	}
}

// State returns the current pipeline state.
func (p *Pipeline) State() State {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

// Start begins continuous transcription. Returns ErrUnavailable when no
// recognition backend exists; the pipeline then stays Stopped and the
// transcription captions simply never populate.
func (p *Pipeline) Start() error {
	if p.rec == nil || !p.rec.Available() {
		p.logger.Warn("recognition backend unavailable, transcription disabled")
		return ErrUnavailable
	}

	p.mu.Lock()
	if p.shouldListen {
		p.mu.Unlock()
		return nil
	}
	p.shouldListen = true
	p.gen++
	gen := p.gen
	p.mu.Unlock()

	go p.run(gen)
	return nil
}

// Stop ends transcription: clears the restart flag so no new session
// opens, closes the current session, cancels any pending caption
// emission, clears the caption buffer and resets dedup state.
func (p *Pipeline) Stop() {
	p.mu.Lock()
	p.shouldListen = false
	p.gen++
	p.session = nil
	if p.sessionCancel != nil {
		p.sessionCancel()
		p.sessionCancel = nil
	}
	if p.pendingTimer != nil {
		p.pendingTimer.Stop()
		p.pendingTimer = nil
	}
	p.lastEmitted = ""
	p.setStateLocked(Stopped)
	p.mu.Unlock()

	p.captions.Clear()
}

// Feed forwards a PCM16 chunk to the open recognition session. Chunks
// arriving while no session is listening are dropped; live audio has no
// value once the moment has passed.
func (p *Pipeline) Feed(pcm []byte) {
	p.mu.Lock()
	sess := p.session
	listening := p.state == Listening
	p.mu.Unlock()

	if !listening || sess == nil {
		return
	}
	if err := sess.SendAudio(pcm); err != nil {
		p.logger.Debug("audio chunk dropped", "error", err)
	}
}

// SetLanguage switches the target language. An open session is torn
// down and reopened with the new language rather than mutated in place.
func (p *Pipeline) SetLanguage(lang string) {
	p.mu.Lock()
	if p.lang == lang {
		p.mu.Unlock()
		return
	}
	p.lang = lang
	cancel := p.sessionCancel
	p.mu.Unlock()

	// Ending the session while shouldListen is set makes the run loop
	// reopen it with the updated language.
	if cancel != nil {
		cancel()
	}
}

// run is the session loop for one Start generation. It opens sessions
// until the pipeline is stopped, restarting whenever a session ends on
// its own.
func (p *Pipeline) run(gen uint64) {
	for {
		p.mu.Lock()
		if !p.shouldListen || p.gen != gen {
			p.mu.Unlock()
			return
		}
		lang := p.lang
		p.setStateLocked(Starting)
		p.mu.Unlock()

		ctx, cancel := context.WithCancel(context.Background())

		p.mu.Lock()
		if p.gen != gen {
			p.mu.Unlock()
			cancel()
			return
		}
		p.sessionCancel = cancel
		p.mu.Unlock()

		sess, err := p.rec.Start(ctx, lang)
		if err != nil {
			cancel()
			p.logger.Warn("failed to open recognition session", "error", err, "lang", lang)
			p.mu.Lock()
			if p.gen == gen {
				p.shouldListen = false
				p.sessionCancel = nil
				p.setStateLocked(Stopped)
			}
			p.mu.Unlock()
			return
		}

		p.mu.Lock()
		if p.gen != gen {
			p.mu.Unlock()
			cancel()
			sess.Close()
			return
		}
		p.session = sess
		p.setStateLocked(Listening)
		p.mu.Unlock()

		p.logger.Debug("recognition session open", "lang", lang)
		p.consume(gen, sess)
		cancel()

		p.mu.Lock()
		if p.session == sess {
			p.session = nil
		}
		if p.gen != gen || !p.shouldListen {
			p.mu.Unlock()
			return
		}
		p.sessionCancel = nil
		p.setStateLocked(Ending)
		p.mu.Unlock()

		if err := sess.Err(); err != nil {
			p.logger.Warn("recognition session ended, restarting", "error", err)
		} else {
			p.logger.Debug("recognition session ended, restarting")
		}
	}
}

// consume drains one session until it terminates.
func (p *Pipeline) consume(gen uint64, sess Session) {
	for {
		select {
		case event, ok := <-sess.Results():
			if !ok {
				return
			}
			p.handleEvent(gen, event)
		case <-sess.Done():
			return
		}
	}
}

// handleEvent normalizes one result event and schedules its emission.
func (p *Pipeline) handleEvent(gen uint64, event Event) {
	text := strings.TrimSpace(event.FinalText())
	if text == "" || !meaningful(text) {
		return
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if p.gen != gen || !p.shouldListen {
		return
	}

	// Exact-match dedup: the engine may re-announce the same phrase.
	if text == p.lastEmitted {
		return
	}
	p.lastEmitted = text

	// A later event within the debounce window replaces the pending
	// emission so bursts collapse into one caption line.
	if p.pendingTimer != nil {
		p.pendingTimer.Stop()
	}
	p.pendingSeq++
	seq := p.pendingSeq
	p.pendingTimer = time.AfterFunc(p.debounce, func() {
		p.emit(gen, seq, text)
	})
}

// emit pushes a debounced caption line if the pipeline is still live and
// no later emission has replaced this one. The seq check covers a timer
// that fired just before its replacement was scheduled.
func (p *Pipeline) emit(gen, seq uint64, text string) {
	p.mu.Lock()
	if p.gen != gen || !p.shouldListen || seq != p.pendingSeq {
		p.mu.Unlock()
		return
	}
	p.pendingTimer = nil
	p.mu.Unlock()

	p.captions.Push(text)
}

// setStateLocked updates the state and fires OnState outside the lock.
func (p *Pipeline) setStateLocked(s State) {
	if p.state == s {
		return
	}
	p.state = s
	if p.OnState != nil {
		go p.OnState(s)
	}
}

// meaningful reports whether the text contains at least one letter or
// digit; punctuation-only fragments are discarded.
func meaningful(text string) bool {
	for _, r := range text {
		if unicode.IsLetter(r) || unicode.IsNumber(r) {
			return true
		}
	}
	return false
}
