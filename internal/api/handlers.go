package api

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/starford/ansuz/internal/apperr"
	"github.com/starford/ansuz/internal/markdown"
	"github.com/starford/ansuz/internal/mention"
	"github.com/starford/ansuz/internal/models"
	"github.com/starford/ansuz/internal/noteservice"
	"github.com/starford/ansuz/internal/store"
)

// Handler holds API route handlers.
type Handler struct {
	svc *noteservice.Service
}

// NewHandler creates a new Handler.
func NewHandler(svc *noteservice.Service) *Handler {
	return &Handler{svc: svc}
}

func noteID(r *http.Request) string {
	return chi.URLParam(r, "id")
}

// ListNotes handles GET /api/notes.
//
//	@Summary		List notes ordered by last update
//	@Tags			notes
//	@Produce		json
//	@Success		200	{object}	NoteListResponse
//	@Security		BearerAuth
//	@Router			/notes [get]
func (h *Handler) ListNotes(w http.ResponseWriter, r *http.Request) {
	items, err := h.svc.ListNotes(r.Context())
	if err != nil {
		slog.Error("list notes failed", slog.String("error", err.Error()))
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusOK, NoteListResponse{Notes: items, Total: len(items)})
}

// GetNote handles GET /api/notes/{id}.
//
//	@Summary		Get a single note with its full content
//	@Tags			notes
//	@Produce		json
//	@Param			id	path		string	true	"Note id"
//	@Success		200	{object}	models.Note
//	@Failure		404	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/notes/{id} [get]
func (h *Handler) GetNote(w http.ResponseWriter, r *http.Request) {
	id := noteID(r)
	note, err := h.svc.GetNote(r.Context(), id)
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			writeError(w, http.StatusNotFound, "not found")
		} else {
			slog.Error("get note failed", slog.String("id", id), slog.String("error", err.Error()))
			writeError(w, http.StatusInternalServerError, "internal error")
		}
		return
	}
	writeJSON(w, http.StatusOK, note)
}

// CreateNote handles POST /api/notes.
//
//	@Summary		Create an empty note
//	@Tags			notes
//	@Accept			json
//	@Produce		json
//	@Param			body	body		CreateNoteRequest	true	"Note to create"
//	@Success		201		{object}	models.Note
//	@Failure		400		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/notes [post]
func (h *Handler) CreateNote(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)
	var req CreateNoteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if req.Title == "" {
		writeError(w, http.StatusBadRequest, "title is required")
		return
	}
	note, err := h.svc.CreateNote(r.Context(), req.Title)
	if err != nil {
		slog.Error("create note failed", slog.String("title", req.Title), slog.String("error", err.Error()))
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusCreated, note)
}

// UpdateNote handles PUT /api/notes/{id}. It replaces the note's block
// sequence, rebuilds the hierarchy, and schedules reference validation.
//
//	@Summary		Replace a note's content
//	@Tags			notes
//	@Accept			json
//	@Produce		json
//	@Param			id		path		string				true	"Note id"
//	@Param			body	body		UpdateNoteRequest	true	"New content"
//	@Success		200		{object}	TreeResponse
//	@Failure		400		{object}	errResponse
//	@Failure		404		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/notes/{id} [put]
func (h *Handler) UpdateNote(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, 10<<20)
	id := noteID(r)
	var req UpdateNoteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	res, err := h.svc.UpdateContent(r.Context(), id, req.Title, req.Content)
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			writeError(w, http.StatusNotFound, "not found")
		} else {
			slog.Error("update note failed", slog.String("id", id), slog.String("error", err.Error()))
			writeError(w, http.StatusInternalServerError, "internal error")
		}
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// DeleteNote handles DELETE /api/notes/{id}.
//
//	@Summary		Delete a note
//	@Tags			notes
//	@Param			id	path	string	true	"Note id"
//	@Success		204	"Note deleted"
//	@Failure		404	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/notes/{id} [delete]
func (h *Handler) DeleteNote(w http.ResponseWriter, r *http.Request) {
	id := noteID(r)
	if err := h.svc.DeleteNote(r.Context(), id); err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			writeError(w, http.StatusNotFound, "not found")
			return
		}
		slog.Error("delete note failed", slog.String("id", id), slog.String("error", err.Error()))
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// GetTree handles GET /api/notes/{id}/tree.
//
//	@Summary		Get the rebuilt block hierarchy of a note
//	@Tags			tree
//	@Produce		json
//	@Param			id	path		string	true	"Note id"
//	@Success		200	{object}	TreeResponse
//	@Failure		404	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/notes/{id}/tree [get]
func (h *Handler) GetTree(w http.ResponseWriter, r *http.Request) {
	id := noteID(r)
	res, err := h.svc.GetTree(r.Context(), id)
	if err != nil {
		h.notFoundOr500(w, id, "get tree", err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// InvalidRefs handles GET /api/notes/{id}/refs/invalid.
//
//	@Summary		List references pointing at missing or non-leaf blocks
//	@Tags			refs
//	@Produce		json
//	@Param			id	path		string	true	"Note id"
//	@Success		200	{object}	InvalidRefsResponse
//	@Failure		404	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/notes/{id}/refs/invalid [get]
func (h *Handler) InvalidRefs(w http.ResponseWriter, r *http.Request) {
	id := noteID(r)
	invalid, err := h.svc.InvalidRefs(r.Context(), id)
	if err != nil {
		h.notFoundOr500(w, id, "invalid refs", err)
		return
	}
	if invalid == nil {
		invalid = []models.InvalidRef{}
	}
	writeJSON(w, http.StatusOK, InvalidRefsResponse{Invalid: invalid})
}

// CleanRefs handles POST /api/notes/{id}/refs/clean. It removes invalid
// references immediately instead of waiting for the debounced pass.
//
//	@Summary		Remove all invalid references from a note
//	@Tags			refs
//	@Produce		json
//	@Param			id	path		string	true	"Note id"
//	@Success		200	{object}	CleanRefsResponse
//	@Failure		404	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/notes/{id}/refs/clean [post]
func (h *Handler) CleanRefs(w http.ResponseWriter, r *http.Request) {
	id := noteID(r)
	removed, err := h.svc.CleanRefs(r.Context(), id)
	if err != nil {
		h.notFoundOr500(w, id, "clean refs", err)
		return
	}
	writeJSON(w, http.StatusOK, CleanRefsResponse{Removed: removed})
}

// Mentions handles GET /api/notes/{id}/mentions?node=&q=.
//
//	@Summary		Autocomplete candidates for the mention picker
//	@Tags			mentions
//	@Produce		json
//	@Param			id		path		string	true	"Note id"
//	@Param			node	query		string	true	"Block being edited"
//	@Param			q		query		string	false	"Title filter"
//	@Success		200		{object}	MentionsResponse
//	@Failure		404		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/notes/{id}/mentions [get]
func (h *Handler) Mentions(w http.ResponseWriter, r *http.Request) {
	id := noteID(r)
	node := r.URL.Query().Get("node")
	query := r.URL.Query().Get("q")
	cands, err := h.svc.Mentions(r.Context(), id, node, query)
	if err != nil {
		h.notFoundOr500(w, id, "mentions", err)
		return
	}
	if cands == nil {
		cands = []mention.Candidate{}
	}
	writeJSON(w, http.StatusOK, MentionsResponse{Candidates: cands})
}

// ExportYAML handles GET /api/notes/{id}/export/yaml.
//
//	@Summary		Export a note as interchange YAML
//	@Tags			export
//	@Produce		application/yaml
//	@Param			id	path	string	true	"Note id"
//	@Success		200	{string}	string	"YAML document"
//	@Failure		404	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/notes/{id}/export/yaml [get]
func (h *Handler) ExportYAML(w http.ResponseWriter, r *http.Request) {
	id := noteID(r)
	out, err := h.svc.ExportYAML(r.Context(), id)
	if err != nil {
		h.notFoundOr500(w, id, "export yaml", err)
		return
	}
	w.Header().Set("Content-Type", "application/yaml; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="`+out.Name+`"`)
	w.Write(out.Data) //nolint:errcheck // client gone
}

// ExportMarkdown handles GET /api/notes/{id}/export/markdown?mode=.
//
//	@Summary		Export a note as Markdown
//	@Tags			export
//	@Produce		text/markdown
//	@Param			id		path	string	true	"Note id"
//	@Param			mode	query	string	false	"Layout"	Enums(hierarchical, flat)
//	@Success		200		{string}	string	"Markdown document"
//	@Failure		400		{object}	errResponse
//	@Failure		404		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/notes/{id}/export/markdown [get]
func (h *Handler) ExportMarkdown(w http.ResponseWriter, r *http.Request) {
	id := noteID(r)
	mode := markdown.ModeHierarchical
	switch q := r.URL.Query().Get("mode"); q {
	case "", string(markdown.ModeHierarchical):
	case string(markdown.ModeFlat):
		mode = markdown.ModeFlat
	default:
		writeError(w, http.StatusBadRequest, "unknown mode: "+q)
		return
	}
	out, err := h.svc.ExportMarkdown(r.Context(), id, mode)
	if err != nil {
		h.notFoundOr500(w, id, "export markdown", err)
		return
	}
	w.Header().Set("Content-Type", "text/markdown; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="`+out.Name+`"`)
	w.Write(out.Data) //nolint:errcheck // client gone
}

// ImportNote handles POST /api/notes/{id}/import?force=. The body is a raw
// interchange YAML document. A structurally invalid document is rejected
// with 422 and the full report unless force=true.
//
//	@Summary		Replace a note's content from interchange YAML
//	@Tags			import
//	@Accept			application/yaml
//	@Produce		json
//	@Param			id		path		string	true	"Note id"
//	@Param			force	query		bool	false	"Apply despite validation errors"
//	@Success		200		{object}	ImportResponse
//	@Failure		400		{object}	errResponse
//	@Failure		404		{object}	errResponse
//	@Failure		422		{object}	ImportResponse
//	@Security		BearerAuth
//	@Router			/notes/{id}/import [post]
func (h *Handler) ImportNote(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, 10<<20)
	id := noteID(r)
	data, err := io.ReadAll(r.Body)
	if err != nil {
		writeError(w, http.StatusBadRequest, "failed to read body")
		return
	}
	force, _ := strconv.ParseBool(r.URL.Query().Get("force"))

	res, report, err := h.svc.ImportYAML(r.Context(), id, data, force)
	switch {
	case apperr.IsParse(err):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, apperr.ErrNotFound):
		writeError(w, http.StatusNotFound, "not found")
	case err != nil:
		slog.Error("import failed", slog.String("id", id), slog.String("error", err.Error()))
		writeError(w, http.StatusInternalServerError, "internal error")
	case res == nil:
		writeJSON(w, http.StatusUnprocessableEntity, ImportResponse{Report: report})
	default:
		writeJSON(w, http.StatusOK, ImportResponse{Report: report, Tree: res})
	}
}

// ImportNewNote handles POST /api/notes/import?force=. It creates a fresh
// note from a raw interchange YAML document.
//
//	@Summary		Create a note from interchange YAML
//	@Tags			import
//	@Accept			application/yaml
//	@Produce		json
//	@Param			force	query		bool	false	"Apply despite validation errors"
//	@Success		201		{object}	ImportResponse
//	@Failure		400		{object}	errResponse
//	@Failure		409		{object}	errResponse
//	@Failure		422		{object}	ImportResponse
//	@Security		BearerAuth
//	@Router			/notes/import [post]
func (h *Handler) ImportNewNote(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, 10<<20)
	data, err := io.ReadAll(r.Body)
	if err != nil {
		writeError(w, http.StatusBadRequest, "failed to read body")
		return
	}
	force, _ := strconv.ParseBool(r.URL.Query().Get("force"))

	note, report, err := h.svc.ImportNewYAML(r.Context(), data, force)
	switch {
	case apperr.IsParse(err):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, apperr.ErrAlreadyExists):
		writeError(w, http.StatusConflict, err.Error())
	case err != nil:
		slog.Error("import failed", slog.String("error", err.Error()))
		writeError(w, http.StatusInternalServerError, "internal error")
	case note == nil:
		writeJSON(w, http.StatusUnprocessableEntity, ImportResponse{Report: report})
	default:
		writeJSON(w, http.StatusCreated, ImportResponse{Report: report, Note: note})
	}
}

// Graph handles GET /api/graph.
//
//	@Summary		Get the cross-note reference graph
//	@Tags			graph
//	@Produce		json
//	@Success		200	{object}	GraphResponse
//	@Security		BearerAuth
//	@Router			/graph [get]
func (h *Handler) Graph(w http.ResponseWriter, r *http.Request) {
	edges, err := h.svc.Graph(r.Context())
	if err != nil {
		slog.Error("graph failed", slog.String("error", err.Error()))
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	if edges == nil {
		edges = []store.RefEdge{}
	}
	writeJSON(w, http.StatusOK, GraphResponse{Edges: edges})
}

func (h *Handler) notFoundOr500(w http.ResponseWriter, id, op string, err error) {
	if errors.Is(err, apperr.ErrNotFound) {
		writeError(w, http.StatusNotFound, "not found")
		return
	}
	slog.Error(op+" failed", slog.String("id", id), slog.String("error", err.Error()))
	writeError(w, http.StatusInternalServerError, "internal error")
}
