// Package caption provides a bounded, newest-first log of caption lines.
//
// Two buffers exist in practice: one fed by detection announcements and one
// by live transcription. The display picks whichever matches the active
// hearing mode; the buffers themselves are identical and lossy by design.
package caption

import (
	"sync"
)

// DefaultMaxLines is the default caption buffer depth.
const DefaultMaxLines = 6

// Entry is a single caption line.
type Entry struct {
	Text  string `json:"text"`
	Order uint64 `json:"order"`
}

// Buffer holds the most recent caption lines, newest first.
// Pushing beyond the maximum silently drops the oldest line.
type Buffer struct {
	mu      sync.Mutex
	entries []Entry
	max     int
	next    uint64

	// OnChange, if set, is called with a snapshot after every mutation.
	// Used to broadcast caption updates to the dashboard.
	OnChange func(lines []Entry)
}

// NewBuffer creates a caption buffer keeping at most max lines.
// A max of zero or less falls back to DefaultMaxLines.
func NewBuffer(max int) *Buffer {
	if max <= 0 {
		max = DefaultMaxLines
	}
	return &Buffer{max: max}
}

// Push prepends a caption line, truncating to the configured maximum.
func (b *Buffer) Push(text string) {
	b.mu.Lock()
	entry := Entry{Text: text, Order: b.next}
	b.next++

	b.entries = append([]Entry{entry}, b.entries...)
	if len(b.entries) > b.max {
		b.entries = b.entries[:b.max]
	}
	snapshot := b.snapshotLocked()
	onChange := b.OnChange
	b.mu.Unlock()

	if onChange != nil {
		onChange(snapshot)
	}
}

// Lines returns a copy of the current captions, newest first.
func (b *Buffer) Lines() []Entry {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.snapshotLocked()
}

// Len returns the number of captions currently held.
func (b *Buffer) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.entries)
}

// Clear drops all captions. Order numbering is not reset, so a consumer
// can tell a cleared buffer from a fresh one.
func (b *Buffer) Clear() {
	b.mu.Lock()
	b.entries = nil
	snapshot := b.snapshotLocked()
	onChange := b.OnChange
	b.mu.Unlock()

	if onChange != nil {
		onChange(snapshot)
	}
}

func (b *Buffer) snapshotLocked() []Entry {
	out := make([]Entry, len(b.entries))
	copy(out, b.entries)
	return out
}
