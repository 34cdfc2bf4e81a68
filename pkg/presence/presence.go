// Package presence tracks which object classes are visible across frames
// and computes enter/exit events between consecutive detection cycles.
package presence

import (
	"github.com/a11ykit/go-sense/pkg/detect"
)

// Diff describes the change in visible classes between two cycles.
type Diff struct {
	// Entered lists classes visible now that were absent in the previous
	// cycle, in detector output order.
	Entered []string

	// Exited lists classes from the previous cycle no longer visible.
	Exited []string
}

// Tracker owns the presence set for one detection session.
// It is not safe for concurrent use; the scene loop is single-flight.
type Tracker struct {
	current map[string]struct{}
}

// NewTracker creates a tracker with an empty presence set.
func NewTracker() *Tracker {
	return &Tracker{current: make(map[string]struct{})}
}

// Update replaces the presence set with the classes from the given
// detections and returns the enter/exit diff against the previous set.
// Membership is a set test: repeated instances of one class in a single
// frame collapse to one entry.
func (t *Tracker) Update(dets []detect.Detection) Diff {
	labels := detect.Labels(dets)

	next := make(map[string]struct{}, len(labels))
	var diff Diff

	for _, label := range labels {
		next[label] = struct{}{}
		if _, ok := t.current[label]; !ok {
			diff.Entered = append(diff.Entered, label)
		}
	}

	for label := range t.current {
		if _, ok := next[label]; !ok {
			diff.Exited = append(diff.Exited, label)
		}
	}

	t.current = next
	return diff
}

// Present reports whether a class is in the current presence set.
func (t *Tracker) Present(label string) bool {
	_, ok := t.current[label]
	return ok
}

// Labels returns the current presence set as an unordered slice.
func (t *Tracker) Labels() []string {
	out := make([]string, 0, len(t.current))
	for label := range t.current {
		out = append(out, label)
	}
	return out
}

// Reset clears the presence set. Used when a detection session stops so
// that a restart re-announces everything currently visible.
func (t *Tracker) Reset() {
	t.current = make(map[string]struct{})
}
