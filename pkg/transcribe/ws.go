package transcribe

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// DefaultSampleRate is the PCM16 rate recognition backends expect.
const DefaultSampleRate = 16000

// WSConfig holds websocket recognizer configuration.
type WSConfig struct {
	// URL is the streaming recognition endpoint (wss://...).
	// Empty means the backend is unavailable.
	URL string

	// APIKey is sent in the Authorization header.
	APIKey string

	// SampleRate of the PCM16 audio fed to sessions.
	SampleRate int

	// HandshakeTimeout bounds the websocket dial.
	HandshakeTimeout time.Duration
}

// DefaultWSConfig returns production defaults.
func DefaultWSConfig(url, apiKey string) WSConfig {
	return WSConfig{
		URL:              url,
		APIKey:           apiKey,
		SampleRate:       DefaultSampleRate,
		HandshakeTimeout: 10 * time.Second,
	}
}

// WSRecognizer opens continuous recognition sessions over a websocket
// streaming API. The protocol: a JSON config message opens the session,
// binary messages carry PCM16 audio upstream, JSON result/end messages
// flow downstream.
type WSRecognizer struct {
	config WSConfig
	logger *slog.Logger
}

// NewWSRecognizer creates a websocket streaming recognizer.
func NewWSRecognizer(cfg WSConfig) *WSRecognizer {
	if cfg.SampleRate <= 0 {
		cfg.SampleRate = DefaultSampleRate
	}
	if cfg.HandshakeTimeout <= 0 {
		cfg.HandshakeTimeout = 10 * time.Second
	}
	return &WSRecognizer{
		config: cfg,
		logger: slog.Default().With("component", "transcribe.ws"),
	}
}

// Available reports whether an endpoint is configured.
func (r *WSRecognizer) Available() bool {
	return r.config.URL != ""
}

// sessionConfig is the opening message of a session.
type sessionConfig struct {
	Type           string `json:"type"`
	Lang           string `json:"lang"`
	SampleRate     int    `json:"sample_rate"`
	Continuous     bool   `json:"continuous"`
	InterimResults bool   `json:"interim_results"`
}

// wireMessage is one downstream message.
type wireMessage struct {
	Type      string `json:"type"` // "result", "end", "error"
	Fragments []struct {
		Text  string `json:"text"`
		Final bool   `json:"final"`
	} `json:"fragments,omitempty"`
	Error string `json:"error,omitempty"`
}

// Start dials the endpoint and opens a continuous session.
func (r *WSRecognizer) Start(ctx context.Context, lang string) (Session, error) {
	if !r.Available() {
		return nil, ErrUnavailable
	}

	dialer := websocket.Dialer{HandshakeTimeout: r.config.HandshakeTimeout}

	var header http.Header
	if r.config.APIKey != "" {
		header = http.Header{"Authorization": {"Bearer " + r.config.APIKey}}
	}

	conn, resp, err := dialer.DialContext(ctx, r.config.URL, header)
	if err != nil {
		if resp != nil {
			return nil, fmt.Errorf("transcribe: dial failed with status %d: %w", resp.StatusCode, err)
		}
		return nil, fmt.Errorf("transcribe: dial failed: %w", err)
	}

	cfg := sessionConfig{
		Type:           "start",
		Lang:           lang,
		SampleRate:     r.config.SampleRate,
		Continuous:     true,
		InterimResults: true,
	}
	if err := conn.WriteJSON(cfg); err != nil {
		conn.Close()
		return nil, fmt.Errorf("transcribe: send session config: %w", err)
	}

	sess := &wsSession{
		conn:    conn,
		results: make(chan Event, 16),
		done:    make(chan struct{}),
		logger:  r.logger,
	}

	go sess.readLoop()
	go func() {
		select {
		case <-ctx.Done():
			sess.Close()
		case <-sess.done:
		}
	}()

	r.logger.Debug("recognition session dialed", "lang", lang)
	return sess, nil
}

// Close releases the recognizer. Sessions hold their own connections.
func (r *WSRecognizer) Close() error {
	return nil
}

// wsSession is one open websocket recognition session.
type wsSession struct {
	conn    *websocket.Conn
	results chan Event
	done    chan struct{}
	logger  *slog.Logger

	mu     sync.Mutex
	err    error
	closed bool
}

// readLoop drains downstream messages until the connection ends.
// It is the only sender on results and closes the channel on exit.
func (s *wsSession) readLoop() {
	defer func() {
		s.terminate(nil)
		close(s.results)
	}()

	for {
		var msg wireMessage
		if err := s.conn.ReadJSON(&msg); err != nil {
			s.setErr(err)
			return
		}

		switch msg.Type {
		case "result":
			event := Event{Fragments: make([]Fragment, 0, len(msg.Fragments))}
			for _, f := range msg.Fragments {
				event.Fragments = append(event.Fragments, Fragment{Text: f.Text, Final: f.Final})
			}
			select {
			case s.results <- event:
			case <-s.done:
				return
			}
		case "end":
			return
		case "error":
			s.setErr(fmt.Errorf("transcribe: backend error: %s", msg.Error))
			return
		default:
			s.logger.Debug("unknown message type", "type", msg.Type)
		}
	}
}

// SendAudio writes a PCM16 chunk upstream.
func (s *wsSession) SendAudio(pcm []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrSessionClosed
	}
	return s.conn.WriteMessage(websocket.BinaryMessage, pcm)
}

// Results streams result events.
func (s *wsSession) Results() <-chan Event { return s.results }

// Done is closed on termination.
func (s *wsSession) Done() <-chan struct{} { return s.done }

// Err returns the terminal error.
func (s *wsSession) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

// Close stops the session and closes the connection.
func (s *wsSession) Close() error {
	s.terminate(nil)
	return nil
}

func (s *wsSession) setErr(err error) {
	s.mu.Lock()
	if s.err == nil {
		s.err = err
	}
	s.mu.Unlock()
}

// terminate closes the session exactly once.
func (s *wsSession) terminate(err error) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	if err != nil && s.err == nil {
		s.err = err
	}
	s.mu.Unlock()

	// Best-effort stop message before closing
	s.conn.WriteJSON(map[string]string{"type": "stop"})
	s.conn.Close()
	close(s.done)
}

// Compile-time interface checks.
var (
	_ Recognizer = (*WSRecognizer)(nil)
	_ Session    = (*wsSession)(nil)
)
