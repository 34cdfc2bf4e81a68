package hearing

import (
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/pion/rtp"
	opus "gopkg.in/hraban/opus.v2"
)

// maxOpusFrame is the largest opus frame: 120ms at 48kHz.
const maxOpusFrame = 5760

// RTPSourceStats counts decoded traffic.
type RTPSourceStats struct {
	Packets      int64 `json:"packets"`
	Bytes        int64 `json:"bytes"`
	Samples      int64 `json:"samples"`
	DecodeErrors int64 `json:"decode_errors"`
}

// RTPSource turns RTP packets carrying opus payloads into PCM16 sample
// buffers for the hearing route. This is the ingest path for live tab or
// microphone audio arriving over the network.
type RTPSource struct {
	sampleRate int
	channels   int

	mu      sync.Mutex
	decoder *opus.Decoder
	frame   []int16
	closed  bool

	packets      atomic.Int64
	bytes        atomic.Int64
	samples      atomic.Int64
	decodeErrors atomic.Int64
}

// NewRTPSource creates a source decoding opus at the given rate and
// channel count.
func NewRTPSource(sampleRate, channels int) (*RTPSource, error) {
	if sampleRate <= 0 {
		sampleRate = DefaultSampleRate
	}
	if channels <= 0 {
		channels = 1
	}

	decoder, err := opus.NewDecoder(sampleRate, channels)
	if err != nil {
		return nil, fmt.Errorf("hearing: create opus decoder: %w", err)
	}

	return &RTPSource{
		sampleRate: sampleRate,
		channels:   channels,
		decoder:    decoder,
		frame:      make([]int16, maxOpusFrame*channels),
	}, nil
}

// SampleRate returns the decoded sample rate in Hz.
func (s *RTPSource) SampleRate() int { return s.sampleRate }

// DecodePacket unmarshals one raw RTP packet and decodes its opus
// payload. Stereo payloads are mixed down to mono. The returned buffer
// is owned by the caller.
func (s *RTPSource) DecodePacket(raw []byte) ([]int16, error) {
	var pkt rtp.Packet
	if err := pkt.Unmarshal(raw); err != nil {
		return nil, fmt.Errorf("hearing: unmarshal rtp packet: %w", err)
	}
	return s.DecodePayload(pkt.Payload)
}

// DecodePayload decodes one opus payload to PCM16.
func (s *RTPSource) DecodePayload(payload []byte) ([]int16, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil, ErrSourceClosed
	}

	s.packets.Add(1)
	s.bytes.Add(int64(len(payload)))

	n, err := s.decoder.Decode(payload, s.frame)
	if err != nil {
		s.decodeErrors.Add(1)
		return nil, fmt.Errorf("hearing: opus decode: %w", err)
	}

	out := make([]int16, n*s.channels)
	copy(out, s.frame[:n*s.channels])
	if s.channels == 2 {
		out = StereoToMono(out)
	}

	s.samples.Add(int64(len(out)))
	return out, nil
}

// Stats returns decode counters.
func (s *RTPSource) Stats() RTPSourceStats {
	return RTPSourceStats{
		Packets:      s.packets.Load(),
		Bytes:        s.bytes.Load(),
		Samples:      s.samples.Load(),
		DecodeErrors: s.decodeErrors.Load(),
	}
}

// Close releases the source. Further decodes fail with ErrSourceClosed.
func (s *RTPSource) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}
