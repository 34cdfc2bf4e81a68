package speech

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestRemote_Synthesize(t *testing.T) {
	pcm := make([]byte, 22050*2) // one second of PCM16 at 22.05kHz

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/synthesize" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer secret" {
			t.Errorf("missing bearer token, got %q", got)
		}

		var req synthesizeRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		if req.Text != "hello" || req.Lang != "en-US" {
			t.Errorf("unexpected request: %+v", req)
		}

		w.Write(pcm)
	}))
	defer srv.Close()

	r, err := NewRemote(WithEndpoint(srv.URL), WithAPIKey("secret"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	clip, err := r.Synthesize(context.Background(), Utterance{Text: "hello", Lang: "en-US"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if clip.SampleRate != 22050 {
		t.Errorf("expected 22050 sample rate, got %d", clip.SampleRate)
	}
	if clip.Duration != time.Second {
		t.Errorf("expected 1s duration, got %v", clip.Duration)
	}
}

func TestRemote_APIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		json.NewEncoder(w).Encode(map[string]string{"message": "slow down"})
	}))
	defer srv.Close()

	r, _ := NewRemote(WithEndpoint(srv.URL))

	_, err := r.Synthesize(context.Background(), Utterance{Text: "hi"})
	if err == nil {
		t.Fatal("expected error")
	}

	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected APIError, got %T", err)
	}
	if apiErr.StatusCode != http.StatusTooManyRequests {
		t.Errorf("expected 429, got %d", apiErr.StatusCode)
	}
	if !apiErr.IsRetryable() {
		t.Error("429 should be retryable")
	}
	if apiErr.Message != "slow down" {
		t.Errorf("unexpected message %q", apiErr.Message)
	}
}

func TestRemote_Voices(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/voices" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		json.NewEncoder(w).Encode([]Voice{{ID: "v1", Name: "Joe", Locale: "en-US"}})
	}))
	defer srv.Close()

	r, _ := NewRemote(WithEndpoint(srv.URL))

	voices, err := r.Voices(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(voices) != 1 || voices[0].Locale != "en-US" {
		t.Errorf("unexpected voices: %+v", voices)
	}
}

func TestRemote_RequiresEndpoint(t *testing.T) {
	if _, err := NewRemote(); !errors.Is(err, ErrNoEndpoint) {
		t.Errorf("expected ErrNoEndpoint, got %v", err)
	}
}
