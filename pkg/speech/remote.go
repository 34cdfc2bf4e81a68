package speech

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/a11ykit/go-sense/internal/httpc"
)

// Remote defaults.
const (
	defaultSampleRate = 22050
	defaultTimeout    = 15 * time.Second
)

// Option configures the remote synthesizer.
type Option func(*remoteConfig)

type remoteConfig struct {
	endpoint   string
	apiKey     string
	sampleRate int
	timeout    time.Duration
	logger     *slog.Logger
}

// WithEndpoint sets the synthesis server base URL.
func WithEndpoint(url string) Option {
	return func(c *remoteConfig) { c.endpoint = url }
}

// WithAPIKey sets the API key sent as a bearer token.
func WithAPIKey(key string) Option {
	return func(c *remoteConfig) { c.apiKey = key }
}

// WithSampleRate sets the requested PCM sample rate.
func WithSampleRate(rate int) Option {
	return func(c *remoteConfig) { c.sampleRate = rate }
}

// WithTimeout sets the per-request timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *remoteConfig) { c.timeout = d }
}

// WithLogger sets a custom logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *remoteConfig) { c.logger = logger }
}

// Remote implements Synthesizer against an HTTP text-to-speech server
// exposing POST /synthesize and GET /voices.
type Remote struct {
	config remoteConfig
	client *http.Client
	logger *slog.Logger
}

// NewRemote creates a remote HTTP synthesizer.
func NewRemote(opts ...Option) (*Remote, error) {
	cfg := remoteConfig{
		sampleRate: defaultSampleRate,
		timeout:    defaultTimeout,
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	if cfg.endpoint == "" {
		return nil, ErrNoEndpoint
	}

	return &Remote{
		config: cfg,
		client: httpc.NewClient(cfg.timeout),
		logger: cfg.logger.With("component", "speech.remote"),
	}, nil
}

type synthesizeRequest struct {
	Text       string  `json:"text"`
	Lang       string  `json:"lang"`
	Voice      string  `json:"voice,omitempty"`
	Rate       float64 `json:"rate,omitempty"`
	SampleRate int     `json:"sample_rate"`
}

// APIError is an error response from the synthesis server.
type APIError struct {
	StatusCode int
	Message    string
}

// Error implements the error interface.
func (e *APIError) Error() string {
	return fmt.Sprintf("speech: API error %d: %s", e.StatusCode, e.Message)
}

// IsRetryable returns true for rate-limit and server-side errors.
func (e *APIError) IsRetryable() bool {
	return e.StatusCode == http.StatusTooManyRequests || e.StatusCode >= 500
}

// Synthesize converts the utterance to a PCM16 clip.
func (r *Remote) Synthesize(ctx context.Context, u Utterance) (*Clip, error) {
	start := time.Now()

	payload := synthesizeRequest{
		Text:       u.Text,
		Lang:       u.Lang,
		Voice:      u.Voice,
		Rate:       u.Rate,
		SampleRate: r.config.sampleRate,
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("speech: marshal payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", r.config.endpoint+"/synthesize", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("speech: create request: %w", err)
	}
	r.setHeaders(req)

	resp, err := r.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("speech: synthesize request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, r.parseError(resp)
	}

	audio, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("speech: read response: %w", err)
	}

	clip := &Clip{
		Audio:      audio,
		SampleRate: r.config.sampleRate,
		Duration:   pcmDuration(len(audio), r.config.sampleRate),
	}

	r.logger.Debug("synthesized utterance",
		"chars", len(u.Text),
		"bytes", len(audio),
		"latency_ms", time.Since(start).Milliseconds(),
	)
	return clip, nil
}

// Voices lists the server's available voices.
func (r *Remote) Voices(ctx context.Context) ([]Voice, error) {
	req, err := http.NewRequestWithContext(ctx, "GET", r.config.endpoint+"/voices", nil)
	if err != nil {
		return nil, fmt.Errorf("speech: create request: %w", err)
	}
	r.setHeaders(req)

	resp, err := r.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("speech: voices request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, r.parseError(resp)
	}

	var voices []Voice
	if err := json.NewDecoder(resp.Body).Decode(&voices); err != nil {
		return nil, fmt.Errorf("speech: decode voices: %w", err)
	}
	return voices, nil
}

// Close releases the synthesizer. The HTTP client needs no teardown.
func (r *Remote) Close() error {
	return nil
}

func (r *Remote) setHeaders(req *http.Request) {
	req.Header.Set("Content-Type", "application/json")
	if r.config.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+r.config.apiKey)
	}
}

func (r *Remote) parseError(resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))

	var apiErr struct {
		Message string `json:"message"`
		Error   string `json:"error"`
	}
	msg := string(body)
	if err := json.Unmarshal(body, &apiErr); err == nil {
		if apiErr.Message != "" {
			msg = apiErr.Message
		} else if apiErr.Error != "" {
			msg = apiErr.Error
		}
	}

	return &APIError{StatusCode: resp.StatusCode, Message: msg}
}

// pcmDuration returns the playback duration of PCM16 mono audio.
func pcmDuration(bytes, sampleRate int) time.Duration {
	if sampleRate <= 0 {
		return 0
	}
	samples := bytes / 2
	return time.Duration(samples) * time.Second / time.Duration(sampleRate)
}

// Verify Remote implements Synthesizer at compile time.
var _ Synthesizer = (*Remote)(nil)
