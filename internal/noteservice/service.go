// Package noteservice coordinates the block-note editing core: it persists
// content sequences, rebuilds trees, schedules reference validation, and
// drives exports and imports.
package noteservice

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/starford/ansuz/internal/exportfs"
	"github.com/starford/ansuz/internal/mention"
	"github.com/starford/ansuz/internal/models"
	"github.com/starford/ansuz/internal/refcheck"
	"github.com/starford/ansuz/internal/store"
	"github.com/starford/ansuz/internal/tree"
)

// Events receives editor notifications. Implemented by the SSE broker; a
// nil Events drops them.
type Events interface {
	PublishNoteUpdated(noteID string)
	PublishInvalidRefs(noteID string, refs []models.InvalidRef)
	PublishRefsCleaned(noteID string, removed int)
}

// TreeResult is a rebuilt tree snapshot plus any structural anomalies the
// builder corrected silently (indentation jumps, orphaned levels).
type TreeResult struct {
	Tree      *models.BlockTree `json:"tree"`
	Anomalies []string          `json:"anomalies,omitempty"`
}

// Service coordinates store, codec, and validation operations.
type Service struct {
	store    store.NoteStore
	files    *exportfs.Dir
	events   Events
	logger   *slog.Logger
	debounce time.Duration

	mu         sync.Mutex
	schedulers map[string]*refcheck.Scheduler
}

// NewService creates a note service. files may be nil when no export
// directory is configured; exports are then returned to the caller only.
func NewService(st store.NoteStore, files *exportfs.Dir, events Events, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		store:      st,
		files:      files,
		events:     events,
		logger:     logger,
		debounce:   refcheck.DefaultDebounce,
		schedulers: make(map[string]*refcheck.Scheduler),
	}
}

// SetDebounce overrides the validation debounce delay. Used by tests.
func (s *Service) SetDebounce(d time.Duration) { s.debounce = d }

// Close stops all pending validation timers.
func (s *Service) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, sched := range s.schedulers {
		sched.Stop()
	}
	s.schedulers = make(map[string]*refcheck.Scheduler)
}

// CreateNote creates an empty note and returns it.
func (s *Service) CreateNote(_ context.Context, title string) (*models.Note, error) {
	n := models.Note{
		ID:      uuid.NewString(),
		Title:   title,
		Content: []models.ContentNode{},
	}
	if err := s.store.Upsert(n, nil); err != nil {
		return nil, err
	}
	return s.store.Get(n.ID)
}

// GetNote loads a note with its content sequence.
func (s *Service) GetNote(_ context.Context, id string) (*models.Note, error) {
	return s.store.Get(id)
}

// ListNotes returns metadata for every note.
func (s *Service) ListNotes(_ context.Context) ([]models.NoteMetadata, error) {
	return s.store.List()
}

// DeleteNote removes a note and cancels any pending validation for it.
func (s *Service) DeleteNote(_ context.Context, id string) error {
	s.mu.Lock()
	if sched, ok := s.schedulers[id]; ok {
		sched.Stop()
		delete(s.schedulers, id)
	}
	s.mu.Unlock()
	return s.store.Delete(id)
}

// UpdateContent replaces a note's content sequence with the fully-applied
// result of an edit burst, rebuilds the tree, persists, and schedules a
// debounced validation pass. The rebuilt snapshot is returned for diagram
// rendering.
func (s *Service) UpdateContent(_ context.Context, id, title string, content []models.ContentNode) (*TreeResult, error) {
	existing, err := s.store.Get(id)
	if err != nil {
		return nil, err
	}
	if title == "" {
		title = existing.Title
	}

	t, anomalies := tree.Build(content)
	n := models.Note{
		ID:        id,
		Title:     title,
		Content:   content,
		CreatedAt: existing.CreatedAt,
	}
	if err := s.store.Upsert(n, t.Refs); err != nil {
		return nil, err
	}

	if s.events != nil {
		s.events.PublishNoteUpdated(id)
	}
	s.scheduler(id).Touch()

	return &TreeResult{Tree: t, Anomalies: anomalies}, nil
}

// GetTree rebuilds the tree snapshot for a note.
func (s *Service) GetTree(ctx context.Context, id string) (*TreeResult, error) {
	n, err := s.store.Get(id)
	if err != nil {
		return nil, err
	}
	t, anomalies := tree.Build(n.Content)
	return &TreeResult{Tree: t, Anomalies: anomalies}, nil
}

// InvalidRefs lists the note's currently-invalid references.
func (s *Service) InvalidRefs(_ context.Context, id string) ([]models.InvalidRef, error) {
	n, err := s.store.Get(id)
	if err != nil {
		return nil, err
	}
	t, _ := tree.Build(n.Content)
	return refcheck.FindInvalid(n.Content, t), nil
}

// CleanRefs immediately removes every invalid reference and persists the
// cleaned sequence. It returns the number of references removed.
func (s *Service) CleanRefs(_ context.Context, id string) (int, error) {
	n, err := s.store.Get(id)
	if err != nil {
		return 0, err
	}
	t, _ := tree.Build(n.Content)
	cleaned, removed := refcheck.RemoveInvalid(n.Content, t)
	if removed == 0 {
		return 0, nil
	}

	// The cleaned sequence has fewer references; rebuild so the stored
	// edge table matches.
	ct, _ := tree.Build(cleaned)
	n.Content = cleaned
	if err := s.store.Upsert(*n, ct.Refs); err != nil {
		return 0, err
	}
	if s.events != nil {
		s.events.PublishRefsCleaned(id, removed)
	}
	return removed, nil
}

// Mentions computes "@"-autocomplete candidates for the block being edited.
func (s *Service) Mentions(_ context.Context, id, currentNodeID, query string) ([]mention.Candidate, error) {
	n, err := s.store.Get(id)
	if err != nil {
		return nil, err
	}
	t, _ := tree.Build(n.Content)
	return mention.Candidates(t, contentByID(n.Content), currentNodeID, query), nil
}

// Graph returns every stored reference edge across all notes.
func (s *Service) Graph(_ context.Context) ([]store.RefEdge, error) {
	return s.store.Graph()
}

// scheduler returns the per-note debounced validator, creating it on first
// use. The callback validates, warns, auto-removes, and persists; its own
// edits cannot re-trigger it thanks to the scheduler's re-entrancy guard.
func (s *Service) scheduler(id string) *refcheck.Scheduler {
	s.mu.Lock()
	defer s.mu.Unlock()
	if sched, ok := s.schedulers[id]; ok {
		return sched
	}
	sched := refcheck.NewScheduler(s.debounce, func() { s.validatePass(id) })
	s.schedulers[id] = sched
	return sched
}

func (s *Service) validatePass(id string) {
	n, err := s.store.Get(id)
	if err != nil {
		s.logger.Warn("validate: load failed", slog.String("note_id", id), slog.String("error", err.Error()))
		return
	}
	t, _ := tree.Build(n.Content)
	invalid := refcheck.FindInvalid(n.Content, t)
	if len(invalid) == 0 {
		return
	}

	if s.events != nil {
		s.events.PublishInvalidRefs(id, invalid)
	}

	cleaned, removed := refcheck.RemoveInvalid(n.Content, t)
	ct, _ := tree.Build(cleaned)
	n.Content = cleaned
	if err := s.store.Upsert(*n, ct.Refs); err != nil {
		s.logger.Warn("validate: persist failed", slog.String("note_id", id), slog.String("error", err.Error()))
		return
	}
	s.logger.Info("validate: removed invalid references",
		slog.String("note_id", id), slog.Int("removed", removed))
	if s.events != nil {
		s.events.PublishRefsCleaned(id, removed)
	}
}

// FlushValidation runs any pending validation pass for a note immediately.
// Used in tests and on shutdown.
func (s *Service) FlushValidation(id string) {
	s.mu.Lock()
	sched, ok := s.schedulers[id]
	s.mu.Unlock()
	if ok {
		sched.Flush()
	}
}

func contentByID(nodes []models.ContentNode) map[string]models.ContentNode {
	m := make(map[string]models.ContentNode, len(nodes))
	for _, n := range nodes {
		m[n.ID] = n
	}
	return m
}
