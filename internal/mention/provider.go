// Package mention computes the candidate set for the inline "@" reference
// autocomplete.
//
// Candidates are leaf blocks only, minus the block being edited and minus
// targets it already references. The provider is a pure function of a tree
// snapshot: the editing surface rebuilds the tree once per edit burst and
// re-queries cheaply as the user types within one mention session.
package mention

import (
	"strings"

	"github.com/starford/ansuz/internal/models"
)

// Candidate is one referenceable block offered by the autocomplete.
type Candidate struct {
	ID      string `json:"id"`
	Title   string `json:"title"`
	Preview string `json:"preview"`
}

// previewMaxLen caps the content preview shown next to each candidate.
const previewMaxLen = 80

// Candidates returns the referenceable leaves for the block currentID is
// editing, filtered case-insensitively by query, in document order.
func Candidates(t *models.BlockTree, content map[string]models.ContentNode, currentID, query string) []Candidate {
	already := make(map[string]bool)
	if cur := t.Node(currentID); cur != nil {
		for _, ref := range cur.Refs {
			already[ref] = true
		}
	}
	q := strings.ToLower(strings.TrimSpace(query))

	var out []Candidate
	t.Walk(func(n *models.BlockNode, _ int) {
		if !n.IsLeaf || n.ID == currentID || already[n.ID] {
			return
		}
		if q != "" && !strings.Contains(strings.ToLower(n.Title), q) {
			return
		}
		out = append(out, Candidate{
			ID:      n.ID,
			Title:   n.Title,
			Preview: preview(content[n.ID]),
		})
	})
	return out
}

func preview(cn models.ContentNode) string {
	text := strings.TrimSpace(cn.PlainText())
	runes := []rune(text)
	if len(runes) > previewMaxLen {
		return string(runes[:previewMaxLen]) + "…"
	}
	return text
}

// Selection is what the editing surface splices into inline content when
// the user picks a candidate. Cancellation needs no model-side action.
type Selection struct {
	RefID    string `json:"ref_id"`
	RefTitle string `json:"ref_title"`
}

// Select converts a chosen candidate into an insertion request.
func Select(c Candidate) Selection {
	return Selection{RefID: c.ID, RefTitle: c.Title}
}
