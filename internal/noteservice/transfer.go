package noteservice

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/starford/ansuz/internal/apperr"
	"github.com/starford/ansuz/internal/markdown"
	"github.com/starford/ansuz/internal/models"
	"github.com/starford/ansuz/internal/tree"
	"github.com/starford/ansuz/internal/yamlnote"
)

// ExportFile is a download payload plus its suggested file name.
type ExportFile struct {
	Name string
	Data []byte
}

// ExportYAML serializes a note to the YAML interchange format. When an
// export directory is configured the payload is also written there for
// round-trip editing; the import watcher ignores the write itself and
// only reacts to later external edits.
func (s *Service) ExportYAML(_ context.Context, id string) (*ExportFile, error) {
	n, err := s.store.Get(id)
	if err != nil {
		return nil, err
	}
	t, _ := tree.Build(n.Content)
	data, err := yamlnote.Marshal(t, contentByID(n.Content), n.ID, n.Title)
	if err != nil {
		return nil, err
	}

	out := &ExportFile{Name: exportName(n, ".yaml"), Data: data}
	if s.files != nil {
		if err := s.files.Write(out.Name, data); err != nil {
			return nil, fmt.Errorf("write export: %w", err)
		}
	}
	return out, nil
}

// ExportMarkdown renders a note as Markdown in the requested mode.
func (s *Service) ExportMarkdown(_ context.Context, id string, mode markdown.Mode) (*ExportFile, error) {
	n, err := s.store.Get(id)
	if err != nil {
		return nil, err
	}
	t, _ := tree.Build(n.Content)
	text := markdown.Export(t, contentByID(n.Content), markdown.Options{Mode: mode, Title: n.Title})

	out := &ExportFile{Name: exportName(n, ".md"), Data: []byte(text)}
	if s.files != nil {
		if err := s.files.Write(out.Name, out.Data); err != nil {
			return nil, fmt.Errorf("write export: %w", err)
		}
	}
	return out, nil
}

// ImportYAML replaces a note's content with a parsed interchange document.
// The structural validation report is always returned; unless force is
// set, an invalid report aborts before anything is written, so a failed
// import never touches the stored note.
func (s *Service) ImportYAML(ctx context.Context, id string, data []byte, force bool) (*TreeResult, yamlnote.Report, error) {
	existing, err := s.store.Get(id)
	if err != nil {
		return nil, yamlnote.Report{}, err
	}

	doc, report, err := decodeImport(data, force)
	if doc == nil {
		return nil, report, err
	}

	title := doc.Title
	if title == "" {
		title = existing.Title
	}
	res, err := s.UpdateContent(ctx, id, title, yamlnote.ToContentNodes(doc))
	if err != nil {
		return nil, report, err
	}
	return res, report, nil
}

// ImportNewYAML creates a fresh note from an interchange document. A
// document whose id already names a stored note is rejected with
// apperr.ErrAlreadyExists; replacing is an explicit operation, never a
// side effect of creating.
func (s *Service) ImportNewYAML(_ context.Context, data []byte, force bool) (*models.Note, yamlnote.Report, error) {
	doc, report, err := decodeImport(data, force)
	if doc == nil {
		return nil, report, err
	}
	if doc.ID != "" {
		if _, err := s.store.Get(doc.ID); err == nil {
			return nil, report, fmt.Errorf("note %q: %w", doc.ID, apperr.ErrAlreadyExists)
		}
	}
	n, err := s.createFromDoc(doc)
	return n, report, err
}

// SyncYAML applies an interchange document from disk: a document whose id
// names a stored note replaces that note's content, anything else creates
// a new note. This is the import watcher's entry point, where both cases
// are routine.
func (s *Service) SyncYAML(ctx context.Context, data []byte, force bool) (*models.Note, yamlnote.Report, error) {
	doc, report, err := decodeImport(data, force)
	if doc == nil {
		return nil, report, err
	}
	if doc.ID != "" {
		if _, err := s.store.Get(doc.ID); err == nil {
			if _, err := s.UpdateContent(ctx, doc.ID, doc.Title, yamlnote.ToContentNodes(doc)); err != nil {
				return nil, report, err
			}
			saved, err := s.store.Get(doc.ID)
			return saved, report, err
		}
	}
	n, err := s.createFromDoc(doc)
	return n, report, err
}

// decodeImport validates and parses an interchange payload. A nil doc
// means stop: either err is set, or the report failed and force was not.
func decodeImport(data []byte, force bool) (*yamlnote.Note, yamlnote.Report, error) {
	report := yamlnote.Validate(data)
	doc, err := yamlnote.Unmarshal(data)
	if err != nil {
		return nil, report, err
	}
	if !report.Valid && !force {
		return nil, report, nil
	}
	return doc, report, nil
}

func (s *Service) createFromDoc(doc *yamlnote.Note) (*models.Note, error) {
	id := doc.ID
	if id == "" {
		id = uuid.NewString()
	}
	content := yamlnote.ToContentNodes(doc)
	t, _ := tree.Build(content)
	n := models.Note{ID: id, Title: doc.Title, Content: content}
	if err := s.store.Upsert(n, t.Refs); err != nil {
		return nil, err
	}
	if s.events != nil {
		s.events.PublishNoteUpdated(id)
	}
	return s.store.Get(id)
}

// exportName builds a stable, filesystem-safe download name from the note
// title, falling back to the id.
func exportName(n *models.Note, ext string) string {
	base := strings.TrimSpace(n.Title)
	if base == "" {
		base = n.ID
	}
	var b strings.Builder
	for _, r := range base {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			b.WriteRune(r)
		case r == ' ':
			b.WriteRune('-')
		}
	}
	name := strings.ToLower(strings.Trim(b.String(), "-"))
	if name == "" {
		name = n.ID
	}
	return name + ext
}
