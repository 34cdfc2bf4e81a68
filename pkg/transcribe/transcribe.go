// Package transcribe provides continuous speech transcription with
// automatic session recovery.
//
// A Recognizer opens continuous recognition sessions; the underlying
// session is intermittent (network hiccups, silence timeouts), so the
// Pipeline wraps it in a state machine that restarts sessions while
// transcription should be running, making the transcript appear
// continuous to the user.
package transcribe

import (
	"context"
	"errors"
)

// Sentinel errors.
var (
	// ErrUnavailable is returned when no recognition backend exists in
	// this environment. The pipeline then stays permanently stopped.
	ErrUnavailable = errors.New("transcribe: recognition backend unavailable")

	// ErrSessionClosed is returned when using a closed session.
	ErrSessionClosed = errors.New("transcribe: session closed")
)

// Fragment is one transcript alternative within a result event.
type Fragment struct {
	// Text is the transcript text.
	Text string

	// Final marks a finalized fragment; interim fragments are
	// provisional and may be revised by later events.
	Final bool
}

// Event is one incremental recognition result carrying zero or more
// fragments.
type Event struct {
	Fragments []Fragment
}

// FinalText concatenates the final fragments of the event.
func (e Event) FinalText() string {
	var out string
	for _, f := range e.Fragments {
		if f.Final {
			out += f.Text
		}
	}
	return out
}

// Session is one open continuous recognition session.
type Session interface {
	// SendAudio writes a PCM16 chunk upstream for recognition.
	SendAudio(pcm []byte) error

	// Results streams incremental result events. The channel closes
	// when the session ends.
	Results() <-chan Event

	// Done is closed when the session has terminated, whether by
	// Close, error, or on its own.
	Done() <-chan struct{}

	// Err returns the terminal error, if any, once Done is closed.
	Err() error

	// Close stops the session. Safe to call more than once.
	Close() error
}

// Recognizer opens continuous recognition sessions.
type Recognizer interface {
	// Start opens a session transcribing speech in the given language.
	// The session obeys ctx: canceling it ends the session.
	Start(ctx context.Context, lang string) (Session, error)

	// Available reports whether the backend can open sessions at all.
	// Checked once when the pipeline starts.
	Available() bool

	// Close releases the recognizer.
	Close() error
}
