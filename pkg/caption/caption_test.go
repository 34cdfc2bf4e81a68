package caption

import (
	"fmt"
	"testing"
)

func TestBuffer_NewestFirst(t *testing.T) {
	b := NewBuffer(4)

	b.Push("first")
	b.Push("second")
	b.Push("third")

	lines := b.Lines()
	if len(lines) != 3 {
		t.Fatalf("expected 3 lines, got %d", len(lines))
	}
	if lines[0].Text != "third" {
		t.Errorf("expected newest line at index 0, got %q", lines[0].Text)
	}
	if lines[2].Text != "first" {
		t.Errorf("expected oldest line last, got %q", lines[2].Text)
	}
}

func TestBuffer_BoundedDrop(t *testing.T) {
	b := NewBuffer(3)

	for i := 0; i < 10; i++ {
		b.Push(fmt.Sprintf("line %d", i))
	}

	lines := b.Lines()
	if len(lines) != 3 {
		t.Fatalf("expected buffer capped at 3, got %d", len(lines))
	}
	if lines[0].Text != "line 9" {
		t.Errorf("expected most recent line first, got %q", lines[0].Text)
	}
	if lines[2].Text != "line 7" {
		t.Errorf("expected oldest kept line to be line 7, got %q", lines[2].Text)
	}
}

func TestBuffer_OrderMonotonic(t *testing.T) {
	b := NewBuffer(2)

	b.Push("a")
	b.Push("b")
	b.Push("c")

	lines := b.Lines()
	if lines[0].Order != 2 || lines[1].Order != 1 {
		t.Errorf("expected orders 2,1 got %d,%d", lines[0].Order, lines[1].Order)
	}
}

func TestBuffer_Clear(t *testing.T) {
	b := NewBuffer(3)
	b.Push("a")
	b.Push("b")

	b.Clear()
	if b.Len() != 0 {
		t.Fatalf("expected empty buffer after clear, got %d", b.Len())
	}

	// Numbering continues after clear
	b.Push("c")
	if got := b.Lines()[0].Order; got != 2 {
		t.Errorf("expected order to continue at 2, got %d", got)
	}
}

func TestBuffer_OnChange(t *testing.T) {
	b := NewBuffer(3)

	var got [][]Entry
	b.OnChange = func(lines []Entry) {
		got = append(got, lines)
	}

	b.Push("hello")
	b.Clear()

	if len(got) != 2 {
		t.Fatalf("expected 2 change notifications, got %d", len(got))
	}
	if len(got[0]) != 1 || got[0][0].Text != "hello" {
		t.Errorf("unexpected first snapshot: %+v", got[0])
	}
	if len(got[1]) != 0 {
		t.Errorf("expected empty snapshot after clear, got %+v", got[1])
	}
}

func TestBuffer_DefaultMax(t *testing.T) {
	b := NewBuffer(0)
	for i := 0; i < DefaultMaxLines+5; i++ {
		b.Push("x")
	}
	if b.Len() != DefaultMaxLines {
		t.Errorf("expected default max %d, got %d", DefaultMaxLines, b.Len())
	}
}
