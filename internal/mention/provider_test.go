package mention

import (
	"testing"

	"github.com/starford/ansuz/internal/models"
	"github.com/starford/ansuz/internal/tree"
)

// Root R with leaves X, Y, Z; the current block W references Y already.
func fixture() ([]models.ContentNode, *models.BlockTree) {
	nodes := []models.ContentNode{
		{ID: "R", Level: 0, Kind: models.KindParagraph, Heading: "Root"},
		{ID: "X", Level: 1, Kind: models.KindParagraph, Heading: "Xenon", Inlines: []models.Inline{
			{Kind: models.InlineText, Text: "a noble gas"},
		}},
		{ID: "Y", Level: 1, Kind: models.KindParagraph, Heading: "Yttrium"},
		{ID: "Z", Level: 1, Kind: models.KindParagraph, Heading: "Zinc"},
		{ID: "W", Level: 1, Kind: models.KindParagraph, Heading: "Working block", Inlines: []models.Inline{
			{Kind: models.InlineRef, TargetID: "Y", TargetTitle: "Yttrium"},
		}},
	}
	t, _ := tree.Build(nodes)
	return nodes, t
}

func byID(nodes []models.ContentNode) map[string]models.ContentNode {
	m := make(map[string]models.ContentNode, len(nodes))
	for _, n := range nodes {
		m[n.ID] = n
	}
	return m
}

func TestCandidates_ExcludesSelfAndAlreadyReferenced(t *testing.T) {
	nodes, tr := fixture()
	got := Candidates(tr, byID(nodes), "W", "")
	if len(got) != 2 || got[0].ID != "X" || got[1].ID != "Z" {
		t.Fatalf("candidates = %+v, want exactly [X Z]", got)
	}
}

func TestCandidates_ExcludesNonLeaves(t *testing.T) {
	nodes, tr := fixture()
	for _, c := range Candidates(tr, byID(nodes), "W", "") {
		if c.ID == "R" {
			t.Error("non-leaf root offered as candidate")
		}
	}
}

func TestCandidates_CaseInsensitiveSubstring(t *testing.T) {
	nodes, tr := fixture()
	got := Candidates(tr, byID(nodes), "W", "xEn")
	if len(got) != 1 || got[0].ID != "X" {
		t.Fatalf("candidates = %+v, want [X]", got)
	}
	if got[0].Preview != "a noble gas" {
		t.Errorf("preview = %q", got[0].Preview)
	}
	if got := Candidates(tr, byID(nodes), "W", "no-such"); len(got) != 0 {
		t.Errorf("candidates = %+v, want none", got)
	}
}

func TestCandidates_IncrementalNarrowingReusesSnapshot(t *testing.T) {
	nodes, tr := fixture()
	content := byID(nodes)
	// Same snapshot queried repeatedly, as within one mention session.
	if got := Candidates(tr, content, "W", "z"); len(got) != 1 || got[0].ID != "Z" {
		t.Fatalf("candidates = %+v, want [Z]", got)
	}
	if got := Candidates(tr, content, "W", "zi"); len(got) != 1 || got[0].ID != "Z" {
		t.Fatalf("candidates = %+v, want [Z]", got)
	}
}

func TestSelect(t *testing.T) {
	sel := Select(Candidate{ID: "X", Title: "Xenon"})
	if sel.RefID != "X" || sel.RefTitle != "Xenon" {
		t.Errorf("selection = %+v", sel)
	}
}
