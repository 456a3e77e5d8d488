// Package models defines the domain types for Ansuz.
package models

import "strings"

// NodeKind classifies a flat content node by its editor block type.
type NodeKind string

// Known block kinds emitted by the editing surface. Unknown kinds are
// preserved verbatim and rendered as plain text on export.
const (
	KindParagraph NodeKind = "paragraph"
	KindHeading   NodeKind = "heading"
	KindListItem  NodeKind = "list_item"
	KindCode      NodeKind = "code"
	KindQuote     NodeKind = "quote"
	KindMathBlock NodeKind = "math_block"
	KindImage     NodeKind = "image"
	KindFile      NodeKind = "file"
	KindVideo     NodeKind = "video"
	KindAudio     NodeKind = "audio"
)

// InlineKind classifies one inline span within a content node.
type InlineKind string

const (
	InlineText InlineKind = "text"
	InlineRef  InlineKind = "ref"
	InlineMath InlineKind = "math"
)

// Mark is an inline formatting flag on a text span.
type Mark string

const (
	MarkBold   Mark = "bold"
	MarkItalic Mark = "italic"
	MarkCode   Mark = "code"
	MarkStrike Mark = "strike"
)

// Inline is one span of a content node's inline sequence: plain text
// (optionally marked), a reference pill, or an inline formula.
type Inline struct {
	Kind        InlineKind `json:"kind"`
	Text        string     `json:"text,omitempty"`
	Marks       []Mark     `json:"marks,omitempty"`
	TargetID    string     `json:"target_id,omitempty"`
	TargetTitle string     `json:"target_title,omitempty"`
	Formula     string     `json:"formula,omitempty"`
}

// ContentNode is one flat, indent-tagged unit of the editor surface's
// native block sequence. The logical tree is always re-derived from an
// ordered slice of these; see the tree package.
type ContentNode struct {
	ID      string   `json:"id"`
	Level   int      `json:"level"`
	Kind    NodeKind `json:"kind"`
	Heading string   `json:"heading,omitempty"`
	Inlines []Inline `json:"inlines,omitempty"`
	// SrcURL is the target of image/file/video/audio kinds.
	SrcURL string `json:"src_url,omitempty"`
}

// PlainText flattens the inline sequence to display text: reference
// spans contribute their target title, math spans their formula.
func (n ContentNode) PlainText() string {
	var b strings.Builder
	for _, in := range n.Inlines {
		switch in.Kind {
		case InlineRef:
			b.WriteString(in.TargetTitle)
		case InlineMath:
			b.WriteString(in.Formula)
		default:
			b.WriteString(in.Text)
		}
	}
	return b.String()
}

// Refs returns the node's reference spans in document order.
func (n ContentNode) Refs() []Inline {
	var out []Inline
	for _, in := range n.Inlines {
		if in.Kind == InlineRef {
			out = append(out, in)
		}
	}
	return out
}

// titleMaxLen caps titles derived from body text when a node has no heading.
const titleMaxLen = 50

// Title derives the node's display label: the leading heading if present,
// otherwise the first 50 characters of the plain text.
func (n ContentNode) Title() string {
	if n.Heading != "" {
		return n.Heading
	}
	text := strings.TrimSpace(n.PlainText())
	runes := []rune(text)
	if len(runes) > titleMaxLen {
		return string(runes[:titleMaxLen]) + "…"
	}
	return text
}

// BlockNode is one structural unit of the reconstructed document tree.
type BlockNode struct {
	ID       string   `json:"id"`
	ParentID string   `json:"parent_id,omitempty"`
	Title    string   `json:"title"`
	Children []string `json:"children,omitempty"`
	Refs     []string `json:"refs,omitempty"`
	IsLeaf   bool     `json:"is_leaf"`
}

// RefPair is one directed reference edge, kept flattened on the tree for
// O(1) whole-tree enumeration.
type RefPair struct {
	FromID string `json:"from_id"`
	ToID   string `json:"to_id"`
}

// BlockTree is the reconstructed hierarchical representation of a note.
// It is rebuilt from scratch on every structural change and treated as an
// immutable snapshot by all consumers.
type BlockTree struct {
	Nodes   map[string]*BlockNode `json:"nodes"`
	RootIDs []string              `json:"root_ids"`
	Refs    []RefPair             `json:"refs,omitempty"`
}

// NewBlockTree returns an empty tree.
func NewBlockTree() *BlockTree {
	return &BlockTree{Nodes: make(map[string]*BlockNode)}
}

// Node returns the node with the given id, or nil.
func (t *BlockTree) Node(id string) *BlockNode {
	return t.Nodes[id]
}

// IsLeaf reports whether id resolves to a leaf node. Missing ids are not
// leaves: only existing terminal nodes are reference-eligible.
func (t *BlockTree) IsLeaf(id string) bool {
	n := t.Nodes[id]
	return n != nil && n.IsLeaf
}

// Walk visits every node depth-first in document order.
func (t *BlockTree) Walk(visit func(n *BlockNode, depth int)) {
	var rec func(id string, depth int)
	rec = func(id string, depth int) {
		n := t.Nodes[id]
		if n == nil {
			return
		}
		visit(n, depth)
		for _, c := range n.Children {
			rec(c, depth+1)
		}
	}
	for _, r := range t.RootIDs {
		rec(r, 0)
	}
}
