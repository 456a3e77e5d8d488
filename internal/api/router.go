package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/starford/ansuz/internal/exportfs"
	"github.com/starford/ansuz/internal/noteservice"
)

// NewRouter creates a chi router with all API routes mounted.
// authEnabled controls whether Bearer token auth is enforced.
// sseHandler, if non-nil, is mounted at GET /events inside the auth group.
// files, if non-nil, backs the media upload and download routes.
func NewRouter(svc *noteservice.Service, authEnabled bool, token string, sseHandler http.Handler, files *exportfs.Dir) chi.Router {
	h := NewHandler(svc)
	mh := NewMediaHandler(files)

	r := chi.NewRouter()
	r.Use(AuthMiddleware(authEnabled, token))

	// Notes CRUD.
	r.Get("/notes", h.ListNotes)
	r.Post("/notes", h.CreateNote)
	r.Post("/notes/import", h.ImportNewNote)
	r.Get("/notes/{id}", h.GetNote)
	r.Put("/notes/{id}", h.UpdateNote)
	r.Delete("/notes/{id}", h.DeleteNote)

	// Hierarchy and references.
	r.Get("/notes/{id}/tree", h.GetTree)
	r.Get("/notes/{id}/refs/invalid", h.InvalidRefs)
	r.Post("/notes/{id}/refs/clean", h.CleanRefs)
	r.Get("/notes/{id}/mentions", h.Mentions)

	// Interchange.
	r.Get("/notes/{id}/export/yaml", h.ExportYAML)
	r.Get("/notes/{id}/export/markdown", h.ExportMarkdown)
	r.Post("/notes/{id}/import", h.ImportNote)

	// Graph.
	r.Get("/graph", h.Graph)

	// Media upload and download.
	r.Post("/media", mh.Upload)
	r.Get("/media/{filename}", mh.ServeFile)

	// SSE endpoint (protected by same auth middleware).
	if sseHandler != nil {
		r.Get("/events", sseHandler.ServeHTTP)
	}

	return r
}
