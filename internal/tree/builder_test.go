package tree

import (
	"strings"
	"testing"

	"github.com/starford/ansuz/internal/models"
)

func text(s string) []models.Inline {
	return []models.Inline{{Kind: models.InlineText, Text: s}}
}

func node(id string, level int) models.ContentNode {
	return models.ContentNode{
		ID:      id,
		Level:   level,
		Kind:    models.KindParagraph,
		Heading: id,
		Inlines: text("body of " + id),
	}
}

func TestBuild_Empty(t *testing.T) {
	tr, anomalies := Build(nil)
	if len(tr.RootIDs) != 0 || len(tr.Nodes) != 0 {
		t.Errorf("empty input => empty tree, got roots=%v nodes=%v", tr.RootIDs, tr.Nodes)
	}
	if len(anomalies) != 0 {
		t.Errorf("unexpected anomalies: %v", anomalies)
	}
}

func TestBuild_SingleRootLeaf(t *testing.T) {
	tr, _ := Build([]models.ContentNode{node("A", 0)})
	if len(tr.RootIDs) != 1 || tr.RootIDs[0] != "A" {
		t.Fatalf("roots = %v, want [A]", tr.RootIDs)
	}
	if !tr.Nodes["A"].IsLeaf {
		t.Error("single root must be a leaf")
	}
}

func TestBuild_ThreeLevelNesting(t *testing.T) {
	tr, anomalies := Build([]models.ContentNode{
		node("A", 0),
		node("B", 1),
		node("C", 1),
		node("D", 2),
	})
	if len(anomalies) != 0 {
		t.Fatalf("unexpected anomalies: %v", anomalies)
	}
	if len(tr.RootIDs) != 1 || tr.RootIDs[0] != "A" {
		t.Fatalf("roots = %v, want [A]", tr.RootIDs)
	}
	a := tr.Nodes["A"]
	if len(a.Children) != 2 || a.Children[0] != "B" || a.Children[1] != "C" {
		t.Errorf("A.children = %v, want [B C]", a.Children)
	}
	c := tr.Nodes["C"]
	if len(c.Children) != 1 || c.Children[0] != "D" {
		t.Errorf("C.children = %v, want [D]", c.Children)
	}
	for id, wantLeaf := range map[string]bool{"A": false, "B": true, "C": false, "D": true} {
		if got := tr.Nodes[id].IsLeaf; got != wantLeaf {
			t.Errorf("%s.isLeaf = %v, want %v", id, got, wantLeaf)
		}
	}
}

func TestBuild_LeafInvariant(t *testing.T) {
	tr, _ := Build([]models.ContentNode{
		node("A", 0), node("B", 1), node("C", 2), node("D", 1), node("E", 0),
	})
	for id, n := range tr.Nodes {
		if n.IsLeaf != (len(n.Children) == 0) {
			t.Errorf("node %s violates leaf invariant: isLeaf=%v children=%v", id, n.IsLeaf, n.Children)
		}
	}
}

func TestBuild_SiblingsAtSameLevel(t *testing.T) {
	tr, _ := Build([]models.ContentNode{node("A", 0), node("B", 1), node("C", 1)})
	a := tr.Nodes["A"]
	if len(a.Children) != 2 {
		t.Fatalf("A.children = %v, want two siblings", a.Children)
	}
	if tr.Nodes["B"].ParentID != "A" || tr.Nodes["C"].ParentID != "A" {
		t.Error("consecutive same-level nodes must share the parent")
	}
}

func TestBuild_IndentJumpAttachesToNearestSmaller(t *testing.T) {
	tr, anomalies := Build([]models.ContentNode{node("A", 0), node("B", 3)})
	if tr.Nodes["B"].ParentID != "A" {
		t.Errorf("B.parent = %q, want A", tr.Nodes["B"].ParentID)
	}
	if len(anomalies) != 1 || !strings.Contains(anomalies[0], "jumps") {
		t.Errorf("anomalies = %v, want one jump report", anomalies)
	}
}

func TestBuild_OrphanIndentFallsBackToRoot(t *testing.T) {
	tr, anomalies := Build([]models.ContentNode{node("A", 2), node("B", 0)})
	if len(tr.RootIDs) != 2 || tr.RootIDs[0] != "A" {
		t.Errorf("roots = %v, want [A B]", tr.RootIDs)
	}
	if len(anomalies) != 1 {
		t.Errorf("anomalies = %v, want one fallback report", anomalies)
	}
}

func TestBuild_ReferencesPassThroughUnfiltered(t *testing.T) {
	a := node("A", 0)
	a.Inlines = append(a.Inlines, models.Inline{Kind: models.InlineRef, TargetID: "C", TargetTitle: "C"})
	tr, _ := Build([]models.ContentNode{a, node("B", 1), node("C", 1)})

	if got := tr.Nodes["A"].Refs; len(got) != 1 || got[0] != "C" {
		t.Errorf("A.refs = %v, want [C]", got)
	}
	if len(tr.Refs) != 1 || tr.Refs[0] != (models.RefPair{FromID: "A", ToID: "C"}) {
		t.Errorf("tree refs = %v", tr.Refs)
	}
}

func TestBuild_TitleFallsBackToBodyText(t *testing.T) {
	cn := models.ContentNode{ID: "X", Kind: models.KindParagraph, Inlines: text("plain body")}
	tr, _ := Build([]models.ContentNode{cn})
	if tr.Nodes["X"].Title != "plain body" {
		t.Errorf("title = %q", tr.Nodes["X"].Title)
	}

	empty := models.ContentNode{ID: "Y", Kind: models.KindParagraph}
	tr, _ = Build([]models.ContentNode{empty})
	if tr.Nodes["Y"].Title != "Untitled" {
		t.Errorf("empty block title = %q, want synthesized", tr.Nodes["Y"].Title)
	}
}
