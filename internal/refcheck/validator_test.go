package refcheck

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/starford/ansuz/internal/models"
	"github.com/starford/ansuz/internal/tree"
)

func seq() []models.ContentNode {
	// A (refs C, refs X) > [B, C > [D]]
	return []models.ContentNode{
		{ID: "A", Level: 0, Kind: models.KindParagraph, Heading: "A", Inlines: []models.Inline{
			{Kind: models.InlineText, Text: "see "},
			{Kind: models.InlineRef, TargetID: "C", TargetTitle: "C"},
			{Kind: models.InlineText, Text: " and "},
			{Kind: models.InlineRef, TargetID: "X", TargetTitle: "Gone"},
		}},
		{ID: "B", Level: 1, Kind: models.KindParagraph, Heading: "B"},
		{ID: "C", Level: 1, Kind: models.KindParagraph, Heading: "C"},
		{ID: "D", Level: 2, Kind: models.KindParagraph, Heading: "D", Inlines: []models.Inline{
			{Kind: models.InlineRef, TargetID: "B", TargetTitle: "B"},
		}},
	}
}

func TestFindInvalid_NonLeafAndMissing(t *testing.T) {
	nodes := seq()
	tr, _ := tree.Build(nodes)

	got := FindInvalid(nodes, tr)
	if len(got) != 2 {
		t.Fatalf("invalid refs = %v, want 2 entries", got)
	}
	// C exists but is non-leaf; X does not exist.
	if got[0].SourceID != "A" || got[0].TargetID != "C" || got[0].TargetTitle != "C" {
		t.Errorf("first = %+v", got[0])
	}
	if got[1].TargetID != "X" || got[1].TargetTitle != "Gone" {
		t.Errorf("second = %+v, want marker title for missing target", got[1])
	}
}

func TestFindInvalid_Soundness(t *testing.T) {
	nodes := seq()
	tr, _ := tree.Build(nodes)
	flagged := make(map[[2]string]bool)
	for _, iv := range FindInvalid(nodes, tr) {
		flagged[[2]string{iv.SourceID, iv.TargetID}] = true
	}
	for _, cn := range nodes {
		for _, ref := range cn.Refs() {
			want := !tr.IsLeaf(ref.TargetID)
			if flagged[[2]string{cn.ID, ref.TargetID}] != want {
				t.Errorf("ref %s->%s: flagged=%v, want %v", cn.ID, ref.TargetID, !want, want)
			}
		}
	}
}

func TestRemoveInvalid_StripsOnlyInvalid(t *testing.T) {
	nodes := seq()
	tr, _ := tree.Build(nodes)

	cleaned, removed := RemoveInvalid(nodes, tr)
	if removed != 2 {
		t.Fatalf("removed = %d, want 2", removed)
	}
	for _, ref := range cleaned[0].Refs() {
		if ref.TargetID == "C" || ref.TargetID == "X" {
			t.Errorf("invalid ref %s survived cleanup", ref.TargetID)
		}
	}
	// The valid D->B reference stays.
	if refs := cleaned[3].Refs(); len(refs) != 1 || refs[0].TargetID != "B" {
		t.Errorf("D.refs = %v, want the valid reference kept", refs)
	}
	// Surrounding text spans are intact.
	if got := cleaned[0].PlainText(); got != "see  and " {
		t.Errorf("plain text = %q", got)
	}
	// Input is untouched.
	if len(nodes[0].Inlines) != 4 {
		t.Error("input sequence was mutated")
	}
}

func TestRemoveInvalid_Idempotent(t *testing.T) {
	nodes := seq()
	tr, _ := tree.Build(nodes)

	cleaned, _ := RemoveInvalid(nodes, tr)
	again, removed := RemoveInvalid(cleaned, tr)
	if removed != 0 {
		t.Errorf("second pass removed %d, want 0", removed)
	}
	if len(again) != len(cleaned) {
		t.Errorf("second pass changed sequence length")
	}
}

func TestScheduler_DebouncesBursts(t *testing.T) {
	var runs atomic.Int32
	s := NewScheduler(20*time.Millisecond, func() { runs.Add(1) })
	defer s.Stop()

	for i := 0; i < 10; i++ {
		s.Touch()
		time.Sleep(2 * time.Millisecond)
	}
	time.Sleep(60 * time.Millisecond)
	if got := runs.Load(); got != 1 {
		t.Errorf("runs = %d, want 1 after a single burst", got)
	}
}

func TestScheduler_ReentrancyGuard(t *testing.T) {
	var runs atomic.Int32
	var s *Scheduler
	done := make(chan struct{})
	s = NewScheduler(10*time.Millisecond, func() {
		runs.Add(1)
		// A cleanup pass edits content, which would normally Touch again.
		s.Touch()
		close(done)
	})
	defer s.Stop()

	s.Touch()
	<-done
	time.Sleep(40 * time.Millisecond)
	if got := runs.Load(); got != 1 {
		t.Errorf("runs = %d, want 1 (self-touch must be dropped)", got)
	}
}

func TestScheduler_Flush(t *testing.T) {
	var runs atomic.Int32
	s := NewScheduler(time.Hour, func() { runs.Add(1) })
	defer s.Stop()

	s.Touch()
	s.Flush()
	if got := runs.Load(); got != 1 {
		t.Errorf("runs = %d, want 1 after flush", got)
	}
	// Flush with nothing pending is a no-op.
	s.Flush()
	if got := runs.Load(); got != 1 {
		t.Errorf("runs = %d after idle flush, want 1", got)
	}
}
