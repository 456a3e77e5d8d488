// Package tree reconstructs the logical block tree from the flat,
// indent-tagged content sequence emitted by the editing surface.
//
// The surface has no native nesting: each block carries an indentation
// level, and parent/child edges are re-derived on every rebuild by the
// nearest-smaller-level rule. Rebuilding from scratch keeps the tree from
// ever drifting out of sync with the visible content.
package tree

import (
	"fmt"

	"github.com/starford/ansuz/internal/models"
)

// untitled is the synthesized label for blocks with no heading and no text.
const untitled = "Untitled"

// Build derives a BlockTree from the content sequence. It never fails:
// malformed indentation is resolved by the nearest-smaller-level rule and
// reported as a human-readable anomaly instead of an error.
//
// A node at level 0 is a root. Any other node's parent is the nearest
// preceding node with a strictly smaller level; if none exists the node
// falls back to being a root. Leaf status is computed only after every
// edge is resolved.
func Build(nodes []models.ContentNode) (*models.BlockTree, []string) {
	t := models.NewBlockTree()
	var anomalies []string

	// First pass: materialize nodes so backward scans can resolve against
	// the full sequence.
	for _, cn := range nodes {
		title := cn.Title()
		if title == "" {
			title = untitled
		}
		t.Nodes[cn.ID] = &models.BlockNode{
			ID:    cn.ID,
			Title: title,
		}
	}

	// Second pass: resolve parents in document order.
	for i, cn := range nodes {
		if cn.Level <= 0 {
			t.RootIDs = append(t.RootIDs, cn.ID)
			continue
		}

		parentIdx := -1
		for j := i - 1; j >= 0; j-- {
			if nodes[j].Level < cn.Level {
				parentIdx = j
				break
			}
		}
		if parentIdx < 0 {
			// No eligible ancestor: keep the document intact by treating
			// the node as a root, but tell the user.
			t.RootIDs = append(t.RootIDs, cn.ID)
			anomalies = append(anomalies,
				fmt.Sprintf("block %q (level %d) has no parent candidate; treated as top-level", t.Nodes[cn.ID].Title, cn.Level))
			continue
		}

		parent := nodes[parentIdx]
		if cn.Level > parent.Level+1 {
			anomalies = append(anomalies,
				fmt.Sprintf("block %q jumps from level %d to %d; attached under %q", t.Nodes[cn.ID].Title, parent.Level, cn.Level, t.Nodes[parent.ID].Title))
		}
		t.Nodes[cn.ID].ParentID = parent.ID
		t.Nodes[parent.ID].Children = append(t.Nodes[parent.ID].Children, cn.ID)
	}

	// Leaf status falls out of the resolved edges.
	for _, n := range t.Nodes {
		n.IsLeaf = len(n.Children) == 0
	}

	// References pass through unfiltered; validity is the refcheck
	// package's concern.
	for _, cn := range nodes {
		for _, ref := range cn.Refs() {
			t.Nodes[cn.ID].Refs = append(t.Nodes[cn.ID].Refs, ref.TargetID)
			t.Refs = append(t.Refs, models.RefPair{FromID: cn.ID, ToID: ref.TargetID})
		}
	}

	return t, anomalies
}
