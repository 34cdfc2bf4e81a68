package hearing

import (
	"errors"
	"testing"

	"github.com/pion/rtp"
	opus "gopkg.in/hraban/opus.v2"
)

// opusRTPPacket builds a real RTP packet carrying one 20ms opus frame of
// silence with the given channel count.
func opusRTPPacket(t *testing.T, channels int) []byte {
	t.Helper()

	enc, err := opus.NewEncoder(DefaultSampleRate, channels, opus.AppVoIP)
	if err != nil {
		t.Fatalf("create encoder: %v", err)
	}

	pcm := make([]int16, 960*channels) // 20ms at 48kHz
	buf := make([]byte, 4000)
	n, err := enc.Encode(pcm, buf)
	if err != nil {
		t.Fatalf("encode frame: %v", err)
	}

	pkt := rtp.Packet{
		Header: rtp.Header{
			Version:        2,
			PayloadType:    111,
			SequenceNumber: 1,
			Timestamp:      960,
			SSRC:           0x1234,
		},
		Payload: buf[:n],
	}
	raw, err := pkt.Marshal()
	if err != nil {
		t.Fatalf("marshal rtp packet: %v", err)
	}
	return raw
}

func TestRTPSource_DecodesMono(t *testing.T) {
	src, err := NewRTPSource(DefaultSampleRate, 1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer src.Close()

	samples, err := src.DecodePacket(opusRTPPacket(t, 1))
	if err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	if len(samples) != 960 {
		t.Errorf("expected 960 samples, got %d", len(samples))
	}

	stats := src.Stats()
	if stats.Packets != 1 || stats.Samples != 960 || stats.DecodeErrors != 0 {
		t.Errorf("unexpected stats: %+v", stats)
	}
}

func TestRTPSource_MixesStereoDownToMono(t *testing.T) {
	src, err := NewRTPSource(DefaultSampleRate, 2)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer src.Close()

	samples, err := src.DecodePacket(opusRTPPacket(t, 2))
	if err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	// One 20ms frame per channel mixed down to a single mono frame.
	if len(samples) != 960 {
		t.Errorf("expected 960 mono samples, got %d", len(samples))
	}
	if got := src.Stats().Samples; got != 960 {
		t.Errorf("samples stat = %d, want 960", got)
	}
}

func TestRTPSource_RejectsMalformedPacket(t *testing.T) {
	src, err := NewRTPSource(DefaultSampleRate, 1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer src.Close()

	if _, err := src.DecodePacket([]byte{0x80}); err == nil {
		t.Fatal("expected unmarshal error for truncated packet")
	}
	// Nothing reached the decoder.
	if got := src.Stats().Packets; got != 0 {
		t.Errorf("packets stat = %d, want 0", got)
	}
}

func TestRTPSource_CountsDecodeErrors(t *testing.T) {
	src, err := NewRTPSource(DefaultSampleRate, 1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer src.Close()

	pkt := rtp.Packet{
		Header: rtp.Header{Version: 2, PayloadType: 111, SSRC: 0x1234},
	}
	raw, err := pkt.Marshal()
	if err != nil {
		t.Fatalf("marshal rtp packet: %v", err)
	}

	if _, err := src.DecodePacket(raw); err == nil {
		t.Fatal("expected decode error for empty payload")
	}
	stats := src.Stats()
	if stats.Packets != 1 || stats.DecodeErrors != 1 {
		t.Errorf("unexpected stats: %+v", stats)
	}
}

func TestRTPSource_ClosedFailsDecode(t *testing.T) {
	src, err := NewRTPSource(DefaultSampleRate, 1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	src.Close()

	if _, err := src.DecodePayload([]byte{0x01}); !errors.Is(err, ErrSourceClosed) {
		t.Errorf("expected ErrSourceClosed, got %v", err)
	}
}
