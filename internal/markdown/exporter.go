// Package markdown flattens a block tree into Markdown text for the
// "Export Markdown" action.
package markdown

import (
	"fmt"
	"strings"

	"github.com/starford/ansuz/internal/models"
)

// Mode selects the export layout.
type Mode string

const (
	// ModeHierarchical maps nesting depth to heading levels (the default).
	ModeHierarchical Mode = "hierarchical"
	// ModeFlat keeps block-kind-specific rendering and expresses nesting
	// with indentation instead of heading escalation.
	ModeFlat Mode = "flat"
)

// Options control an export. Title, when set, is emitted as a leading H1.
type Options struct {
	Mode  Mode
	Title string
}

// maxHeading is the deepest Markdown heading level.
const maxHeading = 6

// Export renders the tree. It never fails: unknown block kinds fall back
// to their plain text, or are skipped when empty.
func Export(t *models.BlockTree, content map[string]models.ContentNode, opts Options) string {
	var b strings.Builder
	if opts.Title != "" {
		fmt.Fprintf(&b, "# %s\n\n", opts.Title)
	}

	flat := opts.Mode == ModeFlat
	t.Walk(func(n *models.BlockNode, depth int) {
		cn, ok := content[n.ID]
		if !ok {
			cn = models.ContentNode{ID: n.ID, Heading: n.Title}
		}
		if flat {
			renderFlat(&b, n, cn, depth)
		} else {
			renderHeading(&b, n, cn, depth)
		}
	})
	return b.String()
}

// renderHeading emits one node as a heading line: depth 0 → ##, clamped
// at ######.
func renderHeading(b *strings.Builder, n *models.BlockNode, cn models.ContentNode, depth int) {
	level := depth + 2
	if level > maxHeading {
		level = maxHeading
	}
	line := renderInlines(cn)
	if line == "" {
		line = n.Title
	}
	fmt.Fprintf(b, "%s %s\n\n", strings.Repeat("#", level), line)
}

func renderFlat(b *strings.Builder, n *models.BlockNode, cn models.ContentNode, depth int) {
	indent := strings.Repeat("  ", depth)
	text := renderInlines(cn)

	switch cn.Kind {
	case models.KindHeading:
		level := depth + 2
		if level > maxHeading {
			level = maxHeading
		}
		if text == "" {
			text = n.Title
		}
		fmt.Fprintf(b, "%s%s %s\n\n", indent, strings.Repeat("#", level), text)
	case models.KindListItem:
		fmt.Fprintf(b, "%s- %s\n", indent, text)
	case models.KindCode:
		fmt.Fprintf(b, "%s```\n%s\n%s```\n\n", indent, text, indent)
	case models.KindQuote:
		fmt.Fprintf(b, "%s> %s\n\n", indent, text)
	case models.KindMathBlock:
		fmt.Fprintf(b, "%s$$\n%s%s\n%s$$\n\n", indent, indent, text, indent)
	case models.KindImage:
		fmt.Fprintf(b, "%s%s\n\n", indent, renderMedia("image", n.Title, cn.SrcURL, true))
	case models.KindFile, models.KindVideo, models.KindAudio:
		fmt.Fprintf(b, "%s%s\n\n", indent, renderMedia(string(cn.Kind), n.Title, cn.SrcURL, false))
	case models.KindParagraph:
		fmt.Fprintf(b, "%s%s\n\n", indent, text)
	default:
		// Unrecognized kind: plain text if there is any, otherwise skip.
		if text != "" {
			fmt.Fprintf(b, "%s%s\n\n", indent, text)
		}
	}
}

// renderMedia emits link/image syntax when a URL is known, otherwise a
// bracketed type tag so the export still carries the information.
func renderMedia(kind, title, url string, image bool) string {
	if url == "" {
		return fmt.Sprintf("[%s] %s", kind, title)
	}
	if image {
		return fmt.Sprintf("![%s](%s)", title, url)
	}
	return fmt.Sprintf("[%s](%s)", title, url)
}

// renderInlines converts the inline spans to Markdown notation: style
// marks wrap text in delimiters, references become [[Title]], inline math
// becomes $formula$.
func renderInlines(cn models.ContentNode) string {
	var b strings.Builder
	for _, in := range cn.Inlines {
		switch in.Kind {
		case models.InlineRef:
			fmt.Fprintf(&b, "[[%s]]", in.TargetTitle)
		case models.InlineMath:
			fmt.Fprintf(&b, "$%s$", in.Formula)
		default:
			b.WriteString(applyMarks(in.Text, in.Marks))
		}
	}
	out := b.String()
	if out == "" {
		return cn.Heading
	}
	return out
}

func applyMarks(text string, marks []models.Mark) string {
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
