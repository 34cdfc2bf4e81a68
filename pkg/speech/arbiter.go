package speech

import (
	"context"
	"log/slog"
	"sync"
)

// Channel identifies a consumer of the shared speech engine.
type Channel int

const (
	// ChannelAnnounce carries detection announcements.
	ChannelAnnounce Channel = iota

	// ChannelNarrate carries readable-content narration.
	ChannelNarrate
)

// String returns the channel name.
func (c Channel) String() string {
	switch c {
	case ChannelAnnounce:
		return "announce"
	case ChannelNarrate:
		return "narrate"
	default:
		return "unknown"
	}
}

// Policy decides what happens when both channels want the engine.
type Policy int

const (
	// PolicyLastWriteWins lets the newest request preempt whatever is
	// playing, regardless of channel. This is the default.
	PolicyLastWriteWins Policy = iota

	// PolicyAnnounceWins lets announcements preempt narration, while
	// narration is refused when an announcement is playing.
	PolicyAnnounceWins

	// PolicyNarrateWins lets narration preempt announcements, while
	// announcements are refused when narration is playing.
	PolicyNarrateWins
)

// ParsePolicy maps a policy name to a Policy. Unknown names mean
// PolicyLastWriteWins.
func ParsePolicy(s string) Policy {
	switch s {
	case "announce":
		return PolicyAnnounceWins
	case "narrate":
		return PolicyNarrateWins
	default:
		return PolicyLastWriteWins
	}
}

// Arbiter shares a single speech engine between the announcement and
// narration channels. Which side yields is a policy decision, not a
// hardcoded rule.
type Arbiter struct {
	engine Engine
	policy Policy
	logger *slog.Logger

	mu      sync.Mutex
	holder  Channel
	holding bool
	cancel  context.CancelFunc
	gen     uint64
}

// NewArbiter creates an arbiter over the engine with the given policy.
func NewArbiter(engine Engine, policy Policy) *Arbiter {
	return &Arbiter{
		engine: engine,
		policy: policy,
		logger: slog.Default().With("component", "speech.arbiter"),
	}
}

// Channel returns an Engine handle bound to the given channel. All
// speech for that channel must go through its handle.
func (a *Arbiter) Channel(ch Channel) Engine {
	return &channelHandle{arbiter: a, ch: ch}
}

// Holder returns the channel currently holding the engine, if any.
func (a *Arbiter) Holder() (Channel, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.holder, a.holding
}

// wins reports whether ch may take the engine from holder.
func (a *Arbiter) wins(ch, holder Channel) bool {
	switch a.policy {
	case PolicyAnnounceWins:
		return ch == ChannelAnnounce || holder != ChannelAnnounce
	case PolicyNarrateWins:
		return ch == ChannelNarrate || holder != ChannelNarrate
	default:
		return true
	}
}

// acquire takes the engine for ch, preempting a lower-priority holder.
func (a *Arbiter) acquire(ctx context.Context, ch Channel) (context.Context, context.CancelFunc, uint64, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.holding && a.holder != ch {
		if !a.wins(ch, a.holder) {
			return nil, nil, 0, ErrChannelBusy
		}
		a.logger.Debug("preempting channel", "holder", a.holder.String(), "by", ch.String())
		if a.cancel != nil {
			a.cancel()
		}
	} else if a.holding && a.cancel != nil {
		// Same channel replacing its own utterance
		a.cancel()
	}

	speakCtx, cancel := context.WithCancel(ctx)
	a.gen++
	a.holder = ch
	a.holding = true
	a.cancel = cancel
	return speakCtx, cancel, a.gen, nil
}

// release gives up the engine if the grant is still the active one; a
// preempting channel may have taken over already.
func (a *Arbiter) release(gen uint64) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.holding && a.gen == gen {
		a.holding = false
		a.cancel = nil
	}
}

// channelHandle is the per-channel Engine facade.
type channelHandle struct {
	arbiter *Arbiter
	ch      Channel
}

// Speak acquires the shared engine per policy and plays the utterance.
func (h *channelHandle) Speak(ctx context.Context, u Utterance) error {
	speakCtx, cancel, gen, err := h.arbiter.acquire(ctx, h.ch)
	if err != nil {
		return err
	}
	defer h.arbiter.release(gen)
	defer cancel()

	return h.arbiter.engine.Speak(speakCtx, u)
}

// Close is a no-op on handles; the owner closes the underlying engine.
func (h *channelHandle) Close() error {
	return nil
}

// Verify channelHandle implements Engine at compile time.
var _ Engine = (*channelHandle)(nil)
