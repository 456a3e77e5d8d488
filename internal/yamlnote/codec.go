// Package yamlnote converts block trees to and from the YAML interchange
// format used by the "Export YAML" / "Import YAML" actions.
//
// The wire shape mirrors the tree as nesting rather than a flat map, since
// YAML expresses nesting naturally: a note wraps an ordered list of
// top-level blocks, each block optionally carrying refs and children.
// Inline references are rendered inside content as [[Title|id]] tokens so
// that import can resolve targets without guessing by title.
package yamlnote

import (
	"bytes"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/starford/ansuz/internal/models"
)

// Block is one serialized block. Refs and Children are omitted when empty
// to keep exports stable and diffable. Kind is omitted for paragraphs, the
// dominant case in hand-written files.
type Block struct {
	ID       string   `yaml:"id"`
	Title    string   `yaml:"title"`
	Kind     string   `yaml:"kind,omitempty"`
	Content  string   `yaml:"content"`
	SrcURL   string   `yaml:"src_url,omitempty"`
	Refs     []string `yaml:"refs,omitempty"`
	Children []Block  `yaml:"children,omitempty"`
}

// Note is the top-level interchange document.
type Note struct {
	ID     string  `yaml:"id"`
	Title  string  `yaml:"title"`
	Blocks []Block `yaml:"blocks"`
}

// Marshal serializes a tree snapshot to YAML. content maps node id to the
// flat content node carrying the inline spans; nodes missing from the map
// serialize with empty content.
func Marshal(t *models.BlockTree, content map[string]models.ContentNode, noteID, noteTitle string) ([]byte, error) {
	doc := Note{
		ID:     noteID,
		Title:  noteTitle,
		Blocks: []Block{},
	}
	for _, rootID := range t.RootIDs {
		doc.Blocks = append(doc.Blocks, buildBlock(t, content, rootID))
	}

	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(doc); err != nil {
		return nil, fmt.Errorf("yamlnote: encode: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, fmt.Errorf("yamlnote: close encoder: %w", err)
	}
	return buf.Bytes(), nil
}

func buildBlock(t *models.BlockTree, content map[string]models.ContentNode, id string) Block {
	n := t.Node(id)
	b := Block{ID: id, Title: n.Title}
	if cn, ok := content[id]; ok {
		b.Content = renderContent(cn)
		b.SrcURL = cn.SrcURL
		if cn.Kind != "" && cn.Kind != models.KindParagraph {
			b.Kind = string(cn.Kind)
		}
	}
	b.Refs = append(b.Refs, n.Refs...)
	for _, childID := range n.Children {
		b.Children = append(b.Children, buildBlock(t, content, childID))
	}
	return b
}

// renderContent flattens inline spans to interchange text: references
// become [[Title|id]] tokens, inline math becomes $formula$, and style
// marks wrap text in Markdown delimiters so import can restore them.
func renderContent(cn models.ContentNode) string {
	var b strings.Builder
	for _, in := range cn.Inlines {
		switch in.Kind {
		case models.InlineRef:
			fmt.Fprintf(&b, "[[%s|%s]]", in.TargetTitle, in.TargetID)
		case models.InlineMath:
			fmt.Fprintf(&b, "$%s$", in.Formula)
		default:
			b.WriteString(renderMarked(in.Text, in.Marks))
		}
	}
	return b.String()
}

// renderMarked wraps text in mark delimiters, first mark innermost.
func renderMarked(text string, marks []models.Mark) string {
	for _, m := range marks {
		switch m {
		case models.MarkCode:
			text = "`" + text + "`"
		case models.MarkBold:
			text = "**" + text + "**"
		case models.MarkItalic:
			text = "*" + text + "*"
		case models.MarkStrike:
			text = "~~" + text + "~~"
		}
	}
	return text
}
