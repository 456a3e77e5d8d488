// Package refcheck detects and removes inline references that no longer
// point at a leaf block.
//
// References may only target leaves: a reference to a composite block
// would silently change meaning whenever children are added or removed.
// When the tree is restructured, previously valid references can become
// invalid; this package finds them and strips them without corrupting the
// surrounding inline content.
package refcheck

import "github.com/starford/ansuz/internal/models"

// FindInvalid scans the content sequence and reports every reference whose
// target id is missing from the tree or resolves to a non-leaf node.
// Results are in document order.
func FindInvalid(nodes []models.ContentNode, t *models.BlockTree) []models.InvalidRef {
	var out []models.InvalidRef
	for _, cn := range nodes {
		for _, ref := range cn.Refs() {
			if t.IsLeaf(ref.TargetID) {
				continue
			}
			title := ref.TargetTitle
			if target := t.Node(ref.TargetID); target != nil {
				title = target.Title
			}
			out = append(out, models.InvalidRef{
				SourceID:    cn.ID,
				TargetID:    ref.TargetID,
				TargetTitle: title,
			})
		}
	}
	return out
}

// RemoveInvalid returns a copy of the content sequence with every invalid
// reference span stripped, plus the number of spans removed. Spans are
// removed in reverse document-position order so that earlier removals
// never shift the positions of spans still to be processed. Calling it
// again on its own output removes nothing.
func RemoveInvalid(nodes []models.ContentNode, t *models.BlockTree) ([]models.ContentNode, int) {
	removed := 0
	out := make([]models.ContentNode, len(nodes))
	copy(out, nodes)

	for i := len(out) - 1; i >= 0; i-- {
		inl := out[i].Inlines
		for j := len(inl) - 1; j >= 0; j-- {
			in := inl[j]
			if in.Kind != models.InlineRef || t.IsLeaf(in.TargetID) {
				continue
			}
			// Deleting at j leaves indices < j untouched. Copy rather
			// than splice in place: the input sequence is a shared
			// snapshot and must not be mutated.
			cp := make([]models.Inline, 0, len(inl)-1)
			cp = append(cp, inl[:j]...)
			cp = append(cp, inl[j+1:]...)
			inl = cp
			removed++
		}
		out[i].Inlines = inl
	}
	return out, removed
}
