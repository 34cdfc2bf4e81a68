// Package hearing simulates hearing conditions by routing live audio
// through a filter chain selected by the active mode.
//
// The route is a linear node chain, source → filter → gain → destination,
// rebuilt from scratch on every mode change. Old nodes are disconnected
// before new ones connect and are never reused, so a stale route can
// never leak audio into the output.
package hearing

import (
	"errors"
	"log/slog"
	"math"
	"sync"

	"github.com/google/uuid"
)

// ErrSourceClosed is returned when reading from a closed audio source.
var ErrSourceClosed = errors.New("hearing: source closed")

// Fixed filter cutoffs for the frequency-shaping modes, in Hz.
const (
	// LowPassCutoff muffles high frequencies, simulating high-frequency
	// hearing loss.
	LowPassCutoff = 1000.0

	// HighPassCutoff removes low frequencies, simulating low-frequency
	// hearing loss.
	HighPassCutoff = 2000.0
)

// DefaultSampleRate is the route's processing rate in Hz.
const DefaultSampleRate = 48000

// Mode is a hearing simulation mode.
type Mode int

const (
	// ModeNormal leaves audio untouched; the route is disconnected from
	// the destination entirely.
	ModeNormal Mode = iota

	// ModeMute routes audio through a zero-gain stage: connected but
	// silent, so level meters keep their timing.
	ModeMute

	// ModeLowPass keeps only frequencies below LowPassCutoff.
	ModeLowPass

	// ModeHighPass keeps only frequencies above HighPassCutoff.
	ModeHighPass
)

// String returns the mode name.
func (m Mode) String() string {
	switch m {
	case ModeMute:
		return "mute"
	case ModeLowPass:
		return "lowpass"
	case ModeHighPass:
		return "highpass"
	default:
		return "normal"
	}
}

// ParseMode maps a mode name to a Mode. Unknown names mean ModeNormal.
func ParseMode(s string) Mode {
	switch s {
	case "mute":
		return ModeMute
	case "lowpass":
		return ModeLowPass
	case "highpass":
		return ModeHighPass
	default:
		return ModeNormal
	}
}

// Node is one stage of an audio route. Nodes process float64 samples in
// [-1, 1]; a disconnected node outputs silence.
type Node interface {
	// ID is the node's unique identity. Never reused across rebuilds.
	ID() string

	// Process filters one buffer in place.
	Process(buf []float64)

	// Disconnect detaches the node; subsequent Process calls zero the
	// buffer.
	Disconnect()

	// Connected reports whether the node is attached to the route.
	Connected() bool
}

// baseNode carries identity and connection state for concrete nodes.
type baseNode struct {
	id string

	mu        sync.Mutex
	connected bool
}

func newBaseNode() baseNode {
	return baseNode{id: uuid.NewString(), connected: true}
}

func (n *baseNode) ID() string { return n.id }

func (n *baseNode) Disconnect() {
	n.mu.Lock()
	n.connected = false
	n.mu.Unlock()
}

func (n *baseNode) Connected() bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.connected
}

// GainNode scales samples by a fixed gain.
type GainNode struct {
	baseNode
	gain float64
}

// NewGainNode creates a gain stage. Gain 0 is the mute stage.
func NewGainNode(gain float64) *GainNode {
	return &GainNode{baseNode: newBaseNode(), gain: gain}
}

// Gain returns the node's gain.
func (n *GainNode) Gain() float64 { return n.gain }

// Process scales the buffer, or silences it when disconnected.
func (n *GainNode) Process(buf []float64) {
	if !n.Connected() {
		zero(buf)
		return
	}
	if n.gain == 1.0 {
		return
	}
	for i := range buf {
		buf[i] *= n.gain
	}
}

// FilterKind selects the biquad response.
type FilterKind int

const (
	// LowPass attenuates above the cutoff.
	LowPass FilterKind = iota

	// HighPass attenuates below the cutoff.
	HighPass
)

// BiquadNode is a second-order low-pass or high-pass filter
// (RBJ audio-EQ cookbook coefficients, Q = 1/sqrt(2)).
type BiquadNode struct {
	baseNode
	kind   FilterKind
	cutoff float64

	b0, b1, b2 float64
	a1, a2     float64

	x1, x2 float64
	y1, y2 float64
}

// NewBiquadNode creates a filter at the given cutoff for the sample rate.
func NewBiquadNode(kind FilterKind, cutoff float64, sampleRate int) *BiquadNode {
	n := &BiquadNode{baseNode: newBaseNode(), kind: kind, cutoff: cutoff}

	w0 := 2 * math.Pi * cutoff / float64(sampleRate)
	cosw0 := math.Cos(w0)
	alpha := math.Sin(w0) / math.Sqrt2

	var b0, b1, b2 float64
	switch kind {
	case HighPass:
		b0 = (1 + cosw0) / 2
		b1 = -(1 + cosw0)
		b2 = (1 + cosw0) / 2
	default:
		b0 = (1 - cosw0) / 2
		b1 = 1 - cosw0
		b2 = (1 - cosw0) / 2
	}
	a0 := 1 + alpha
	n.b0 = b0 / a0
	n.b1 = b1 / a0
	n.b2 = b2 / a0
	n.a1 = (-2 * cosw0) / a0
	n.a2 = (1 - alpha) / a0
	return n
}

// Kind returns the filter response.
func (n *BiquadNode) Kind() FilterKind { return n.kind }

// Cutoff returns the cutoff frequency in Hz.
func (n *BiquadNode) Cutoff() float64 { return n.cutoff }

// Process filters the buffer, or silences it when disconnected.
func (n *BiquadNode) Process(buf []float64) {
	if !n.Connected() {
		zero(buf)
		return
	}
	for i, x := range buf {
		y := n.b0*x + n.b1*n.x1 + n.b2*n.x2 - n.a1*n.y1 - n.a2*n.y2
		n.x2, n.x1 = n.x1, x
		n.y2, n.y1 = n.y1, y
		buf[i] = y
	}
}

// Route is one built node chain. A route belongs to exactly one mode
// activation; mode changes build a fresh route.
type Route struct {
	id    string
	mode  Mode
	nodes []Node
}

// ID is the route's unique identity.
func (r *Route) ID() string { return r.id }

// Mode returns the mode this route was built for.
func (r *Route) Mode() Mode { return r.mode }

// Nodes returns the chain in processing order.
func (r *Route) Nodes() []Node { return r.nodes }

// Process runs one buffer through the chain in place. Any disconnected
// node silences the output.
func (r *Route) Process(buf []float64) {
	for _, n := range r.nodes {
		n.Process(buf)
	}
}

// Disconnect detaches every node in the chain.
func (r *Route) Disconnect() {
	for _, n := range r.nodes {
		n.Disconnect()
	}
}

// Graph owns the active route and the shared destination. Mode changes
// rebuild the route: disconnect old nodes first, then connect fresh ones.
type Graph struct {
	sampleRate int
	logger     *slog.Logger
	analyser   *Analyser

	mu    sync.Mutex
	mode  Mode
	route *Route
}

// NewGraph creates a route graph in ModeNormal.
func NewGraph(sampleRate int) *Graph {
	if sampleRate <= 0 {
		sampleRate = DefaultSampleRate
	}
	return &Graph{
		sampleRate: sampleRate,
		analyser:   NewAnalyser(),
		logger:     slog.Default().With("component", "hearing.graph"),
	}
}

// Mode returns the active mode.
func (g *Graph) Mode() Mode {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.mode
}

// Route returns the active route, or nil in ModeNormal.
func (g *Graph) Route() *Route {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.route
}

// Analyser returns the shared output level meter. It survives rebuilds;
// only the filter chain is torn down.
func (g *Graph) Analyser() *Analyser { return g.analyser }

// SetMode switches the hearing mode, rebuilding the route. The previous
// route's nodes are disconnected before the new chain connects.
func (g *Graph) SetMode(mode Mode) {
	g.mu.Lock()
	old := g.route
	if old != nil {
		old.Disconnect()
	}
	g.mode = mode
	g.route = buildRoute(mode, g.sampleRate)
	g.mu.Unlock()

	g.logger.Debug("hearing route rebuilt", "mode", mode.String())
}

// Process runs one PCM16 buffer through the active route and returns the
// result. In ModeNormal the input passes through untouched.
func (g *Graph) Process(samples []int16) []int16 {
	g.mu.Lock()
	route := g.route
	g.mu.Unlock()

	if route == nil {
		g.analyser.Observe(samplesToFloat(samples))
		return samples
	}

	buf := samplesToFloat(samples)
	route.Process(buf)
	g.analyser.Observe(buf)
	return floatToSamples(buf)
}

// buildRoute constructs the node chain for the mode. ModeNormal has no
// route: normal hearing needs no simulated audio path.
func buildRoute(mode Mode, sampleRate int) *Route {
	var nodes []Node
	switch mode {
	case ModeMute:
		nodes = []Node{NewGainNode(0)}
	case ModeLowPass:
		nodes = []Node{NewBiquadNode(LowPass, LowPassCutoff, sampleRate), NewGainNode(1)}
	case ModeHighPass:
		nodes = []Node{NewBiquadNode(HighPass, HighPassCutoff, sampleRate), NewGainNode(1)}
	default:
		return nil
	}
	return &Route{id: uuid.NewString(), mode: mode, nodes: nodes}
}

func zero(buf []float64) {
	for i := range buf {
		buf[i] = 0
	}
}

func samplesToFloat(samples []int16) []float64 {
	buf := make([]float64, len(samples))
	for i, s := range samples {
		buf[i] = float64(s) / 32768.0
	}
	return buf
}

func floatToSamples(buf []float64) []int16 {
	out := make([]int16, len(buf))
	for i, v := range buf {
		switch {
		case v > 1.0:
			out[i] = 32767
		case v < -1.0:
			out[i] = -32768
		default:
			out[i] = int16(v * 32767)
		}
	}
	return out
}
