package yamlnote

import (
	"regexp"
	"strings"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"

	"github.com/starford/ansuz/internal/apperr"
	"github.com/starford/ansuz/internal/models"
)

// inlineTokenRe matches one interchange token: a [[...]] reference, a
// $...$ math span, or a mark-delimited run. Alternation order matters;
// the regexp package prefers earlier alternatives at the same position.
var inlineTokenRe = regexp.MustCompile(
	`\[\[.*?\]\]` +
		`|\$[^$\n]+\$` +
		"|`[^`\n]+`" +
		`|~~.+?~~` +
		`|\*\*\*.+?\*\*\*` +
		`|\*\*.+?\*\*` +
		`|\*[^*\s][^*\n]*\*`)

// Unmarshal parses interchange YAML. Input missing a top-level blocks list
// is rejected with *apperr.ParseError; optional fields (refs, children)
// may be absent.
func Unmarshal(data []byte) (*Note, error) {
	// Pre-parse into a map first: yaml.Unmarshal into the struct
	// cannot distinguish "blocks: []" from no blocks key at all.
	var raw map[string]any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, &apperr.ParseError{Reason: "malformed YAML", Err: err}
	}
	if raw == nil {
		return nil, &apperr.ParseError{Reason: "empty document"}
	}
	if _, ok := raw["blocks"]; !ok {
		return nil, &apperr.ParseError{Reason: "missing top-level blocks list"}
	}

	var doc Note
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, &apperr.ParseError{Reason: "unexpected document shape", Err: err}
	}
	return &doc, nil
}

// ToContentNodes flattens a parsed note back into the editor's native
// sequence, re-deriving inline spans from [[...]], $...$ and mark tokens.
// Blocks without an id are assigned a fresh one; blocks without a kind
// default to paragraph.
func ToContentNodes(doc *Note) []models.ContentNode {
	var out []models.ContentNode
	var rec func(blocks []Block, level int)
	rec = func(blocks []Block, level int) {
		for _, b := range blocks {
			id := b.ID
			if id == "" {
				id = uuid.NewString()
			}
			kind := models.NodeKind(b.Kind)
			if kind == "" {
				kind = models.KindParagraph
			}
			out = append(out, models.ContentNode{
				ID:      id,
				Level:   level,
				Kind:    kind,
				Heading: b.Title,
				Inlines: parseInlines(b.Content, b.Refs),
				SrcURL:  b.SrcURL,
			})
			rec(b.Children, level+1)
		}
	}
	rec(doc.Blocks, 0)
	return out
}

// parseInlines splits content into text, reference, math and marked-text
// spans. A [[Title|id]] token carries its own target; a bare [[Title]]
// token falls back to claiming the first unclaimed entry of the block's
// refs list, which is how legacy hand-written files encode targets.
func parseInlines(content string, refs []string) []models.Inline {
	if content == "" {
		return nil
	}
	var out []models.Inline
	claimed := make(map[int]bool, len(refs))
	last := 0

	for _, loc := range inlineTokenRe.FindAllStringIndex(content, -1) {
		if loc[0] > last {
			out = append(out, models.Inline{Kind: models.InlineText, Text: content[last:loc[0]]})
		}
		last = loc[1]
		token := content[loc[0]:loc[1]]

		switch {
		case strings.HasPrefix(token, "[["):
			out = append(out, parseRefToken(token, refs, claimed))
		case strings.HasPrefix(token, "$"):
			out = append(out, models.Inline{Kind: models.InlineMath, Formula: token[1 : len(token)-1]})
		default:
			text, marks := peelMarks(token)
			out = append(out, models.Inline{Kind: models.InlineText, Text: text, Marks: marks})
		}
	}
	if last < len(content) {
		out = append(out, models.Inline{Kind: models.InlineText, Text: content[last:]})
	}
	return out
}

func parseRefToken(token string, refs []string, claimed map[int]bool) models.Inline {
	inner := token[2 : len(token)-2]
	title, target := inner, ""
	if i := strings.LastIndex(inner, "|"); i >= 0 {
		title, target = inner[:i], strings.TrimSpace(inner[i+1:])
	}
	if target == "" {
		target = claimRef(refs, claimed)
	}
	if target == "" {
		// No resolvable target: keep the token as visible text so
		// nothing the user wrote is silently discarded.
		return models.Inline{Kind: models.InlineText, Text: token}
	}
	return models.Inline{Kind: models.InlineRef, TargetID: target, TargetTitle: strings.TrimSpace(title)}
}

// peelMarks strips mark delimiters outside-in and returns the marks in
// render order, first mark innermost.
func peelMarks(token string) (string, []models.Mark) {
	var outer []models.Mark
	for {
		switch {
		case len(token) > 4 && strings.HasPrefix(token, "~~") && strings.HasSuffix(token, "~~"):
			token, outer = token[2:len(token)-2], append(outer, models.MarkStrike)
		case len(token) > 4 && strings.HasPrefix(token, "**") && strings.HasSuffix(token, "**"):
			token, outer = token[2:len(token)-2], append(outer, models.MarkBold)
		case len(token) > 2 && strings.HasPrefix(token, "*") && strings.HasSuffix(token, "*"):
			token, outer = token[1:len(token)-1], append(outer, models.MarkItalic)
		case len(token) > 2 && strings.HasPrefix(token, "`") && strings.HasSuffix(token, "`"):
			token, outer = token[1:len(token)-1], append(outer, models.MarkCode)
		default:
			marks := make([]models.Mark, 0, len(outer))
			for i := len(outer) - 1; i >= 0; i-- {
				marks = append(marks, outer[i])
			}
			if len(marks) == 0 {
				marks = nil
			}
			return token, marks
		}
	}
}

func claimRef(refs []string, claimed map[int]bool) string {
	for i, r := range refs {
		if !claimed[i] && r != "" {
			claimed[i] = true
			return r
		}
	}
	return ""
}
