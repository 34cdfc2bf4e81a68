package hearing

import (
	"math"
	"sync"
)

// silenceFloor is the dBFS reported for a fully silent buffer.
const silenceFloor = -96.0

// Level is one output level measurement.
type Level struct {
	// RMS is the root-mean-square amplitude in [0, 1].
	RMS float64 `json:"rms"`

	// DBFS is the level in decibels relative to full scale; 0 is the
	// loudest possible, silenceFloor the quietest reported.
	DBFS float64 `json:"dbfs"`
}

// Analyser is the route's destination-side level meter. It persists
// across route rebuilds; disconnected routes feed it silence.
type Analyser struct {
	mu    sync.Mutex
	level Level

	// OnLevel, if set, observes each measurement.
	OnLevel func(Level)
}

// NewAnalyser creates a level meter at the silence floor.
func NewAnalyser() *Analyser {
	return &Analyser{level: Level{DBFS: silenceFloor}}
}

// Observe measures one buffer of float samples in [-1, 1].
func (a *Analyser) Observe(buf []float64) {
	level := measure(buf)

	a.mu.Lock()
	a.level = level
	fn := a.OnLevel
	a.mu.Unlock()

	if fn != nil {
		fn(level)
	}
}

// Level returns the most recent measurement.
func (a *Analyser) Level() Level {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.level
}

func measure(buf []float64) Level {
	if len(buf) == 0 {
		return Level{DBFS: silenceFloor}
	}

	var sum float64
	for _, v := range buf {
		sum += v * v
	}
	rms := math.Sqrt(sum / float64(len(buf)))

	dbfs := silenceFloor
	if rms > 0 {
		dbfs = 20 * math.Log10(rms)
		if dbfs < silenceFloor {
			dbfs = silenceFloor
		}
	}
	return Level{RMS: rms, DBFS: dbfs}
}
