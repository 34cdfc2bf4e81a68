package speech

import (
	"context"
	"errors"
	"testing"
)

func failingSynth(err error) *MockSynthesizer {
	return &MockSynthesizer{
		SynthesizeFunc: func(ctx context.Context, u Utterance) (*Clip, error) {
			return nil, err
		},
	}
}

func TestChain_FirstSuccessWins(t *testing.T) {
	good := &MockSynthesizer{}
	bad := failingSynth(errors.New("down"))

	chain, err := NewChain(good, bad)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	clip, err := chain.Synthesize(context.Background(), Utterance{Text: "hi"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if clip == nil || len(clip.Audio) == 0 {
		t.Error("expected audio from first synthesizer")
	}
	if bad.Calls() != 0 {
		t.Error("second synthesizer should not be tried")
	}
}

func TestChain_FallsBack(t *testing.T) {
	bad := failingSynth(errors.New("down"))
	good := &MockSynthesizer{}

	chain, _ := NewChain(bad, good)

	clip, err := chain.Synthesize(context.Background(), Utterance{Text: "hi"})
	if err != nil {
		t.Fatalf("expected fallback to succeed, got %v", err)
	}
	if clip == nil {
		t.Fatal("expected clip from fallback")
	}
	if good.Calls() != 1 {
		t.Errorf("expected fallback to be called once, got %d", good.Calls())
	}
}

func TestChain_AllFail(t *testing.T) {
	errA := errors.New("a down")
	errB := errors.New("b down")

	chain, _ := NewChain(failingSynth(errA), failingSynth(errB))

	_, err := chain.Synthesize(context.Background(), Utterance{Text: "hi"})
	if err == nil {
		t.Fatal("expected error")
	}

	var chainErr *ChainError
	if !errors.As(err, &chainErr) {
		t.Fatalf("expected ChainError, got %T", err)
	}
	if len(chainErr.Errors) != 2 {
		t.Errorf("expected 2 aggregated errors, got %d", len(chainErr.Errors))
	}
	if !errors.Is(err, errB) {
		t.Error("expected Unwrap to yield the last error")
	}
}

func TestChain_RequiresSynthesizer(t *testing.T) {
	if _, err := NewChain(); err == nil {
		t.Error("expected error for empty chain")
	}
}
