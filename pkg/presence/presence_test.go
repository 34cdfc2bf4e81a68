package presence

import (
	"sort"
	"testing"

	"github.com/a11ykit/go-sense/pkg/detect"
)

func dets(labels ...string) []detect.Detection {
	out := make([]detect.Detection, len(labels))
	for i, l := range labels {
		out[i] = detect.Detection{Label: l, Confidence: 0.8}
	}
	return out
}

func TestTracker_EnterExit(t *testing.T) {
	tr := NewTracker()

	// Cycle 1: chair appears
	diff := tr.Update(dets("chair"))
	if len(diff.Entered) != 1 || diff.Entered[0] != "chair" {
		t.Fatalf("expected entered=[chair], got %v", diff.Entered)
	}
	if len(diff.Exited) != 0 {
		t.Fatalf("expected no exits, got %v", diff.Exited)
	}

	// Cycle 2: empty frame, chair exits
	diff = tr.Update(nil)
	if len(diff.Entered) != 0 {
		t.Fatalf("expected no entries, got %v", diff.Entered)
	}
	if len(diff.Exited) != 1 || diff.Exited[0] != "chair" {
		t.Fatalf("expected exited=[chair], got %v", diff.Exited)
	}
}

func TestTracker_StablePresenceEntersOnce(t *testing.T) {
	tr := NewTracker()

	entered := 0
	for i := 0; i < 5; i++ {
		diff := tr.Update(dets("person"))
		entered += len(diff.Entered)
	}
	if entered != 1 {
		t.Errorf("class present across 5 cycles should enter exactly once, got %d", entered)
	}
}

func TestTracker_ReentryAfterExit(t *testing.T) {
	tr := NewTracker()

	tr.Update(dets("dog"))
	tr.Update(nil) // dog exits

	diff := tr.Update(dets("dog"))
	if len(diff.Entered) != 1 || diff.Entered[0] != "dog" {
		t.Errorf("expected re-entry after full exit, got %v", diff.Entered)
	}
}

func TestTracker_DuplicatesCollapse(t *testing.T) {
	tr := NewTracker()

	diff := tr.Update(dets("person", "person", "person"))
	if len(diff.Entered) != 1 {
		t.Errorf("expected duplicates to collapse to one entry, got %v", diff.Entered)
	}

	// Going from three instances to one is not a change in presence
	diff = tr.Update(dets("person"))
	if len(diff.Entered) != 0 || len(diff.Exited) != 0 {
		t.Errorf("expected empty diff, got %+v", diff)
	}
}

func TestTracker_EnteredFollowsDetectorOrder(t *testing.T) {
	tr := NewTracker()

	diff := tr.Update(dets("cup", "book", "laptop"))
	want := []string{"cup", "book", "laptop"}
	if len(diff.Entered) != len(want) {
		t.Fatalf("expected %d entries, got %v", len(want), diff.Entered)
	}
	for i, l := range want {
		if diff.Entered[i] != l {
			t.Errorf("entry %d: expected %q, got %q", i, l, diff.Entered[i])
		}
	}
}

func TestTracker_DiffSetInvariants(t *testing.T) {
	tr := NewTracker()

	tr.Update(dets("person", "chair"))
	prev := tr.Labels()
	sort.Strings(prev)

	diff := tr.Update(dets("chair", "dog"))

	// entered ∩ previous = ∅
	for _, e := range diff.Entered {
		for _, p := range prev {
			if e == p {
				t.Errorf("entered class %q was already present", e)
			}
		}
	}

	// exited ⊆ previous
	for _, x := range diff.Exited {
		found := false
		for _, p := range prev {
			if x == p {
				found = true
			}
		}
		if !found {
			t.Errorf("exited class %q was not previously present", x)
		}
	}
}

func TestTracker_Reset(t *testing.T) {
	tr := NewTracker()

	tr.Update(dets("tv"))
	tr.Reset()

	if tr.Present("tv") {
		t.Error("expected empty set after reset")
	}

	diff := tr.Update(dets("tv"))
	if len(diff.Entered) != 1 {
		t.Errorf("expected re-entry after reset, got %v", diff.Entered)
	}
}
