package api

import (
	"github.com/starford/ansuz/internal/mention"
	"github.com/starford/ansuz/internal/models"
	"github.com/starford/ansuz/internal/noteservice"
	"github.com/starford/ansuz/internal/store"
	"github.com/starford/ansuz/internal/yamlnote"
)

// CreateNoteRequest is the request body for creating a note.
type CreateNoteRequest struct {
	Title string `json:"title" example:"Sorting Algorithms" validate:"required"`
}

// UpdateNoteRequest is the request body for replacing a note's content.
// Content carries the flat block sequence in document order; the server
// rebuilds the hierarchy from the block levels.
type UpdateNoteRequest struct {
	Title   string               `json:"title" example:"Sorting Algorithms"`
	Content []models.ContentNode `json:"content" validate:"required"`
}

// NoteListResponse wraps note listings.
type NoteListResponse struct {
	Notes []models.NoteMetadata `json:"notes" validate:"required"`
	Total int                   `json:"total" example:"42" validate:"required"`
}

// TreeResponse is the rebuilt hierarchy for a note, including any
// structural anomalies corrected during the rebuild.
type TreeResponse = noteservice.TreeResult

// InvalidRefsResponse lists references that point at missing or non-leaf
// blocks.
type InvalidRefsResponse struct {
	Invalid []models.InvalidRef `json:"invalid" validate:"required"`
}

// CleanRefsResponse reports how many invalid references were removed.
type CleanRefsResponse struct {
	Removed int `json:"removed" example:"2" validate:"required"`
}

// MentionsResponse wraps autocomplete candidates for the mention picker.
type MentionsResponse struct {
	Candidates []mention.Candidate `json:"candidates" validate:"required"`
}

// ImportResponse is returned by the import endpoints. Report is always
// present; Tree and Note are set only when the import was applied.
type ImportResponse struct {
	Report yamlnote.Report         `json:"report"`
	Tree   *noteservice.TreeResult `json:"tree,omitempty"`
	Note   *models.Note            `json:"note,omitempty"`
}

// GraphResponse wraps the cross-note reference graph.
type GraphResponse struct {
	Edges []store.RefEdge `json:"edges" validate:"required"`
}

// MediaUploadResponse is returned after a successful media upload.
type MediaUploadResponse struct {
	Filename string `json:"filename" example:"diagram.png" validate:"required"`
	Size     int64  `json:"size" example:"12345" validate:"required"`
	URL      string `json:"url" example:"/media/diagram.png" validate:"required"`
}
