package store

import "github.com/starford/ansuz/internal/models"

// NoteStore defines the persistence operations the service layer needs.
// Consumers should depend on this interface rather than the concrete *DB
// type to facilitate testing with mocks.
type NoteStore interface {
	Upsert(n models.Note, refs []models.RefPair) error
	Get(id string) (*models.Note, error)
	List() ([]models.NoteMetadata, error)
	Delete(id string) error
	Graph() ([]RefEdge, error)
	Close() error
}

// Verify *DB satisfies NoteStore at compile time.
var _ NoteStore = (*DB)(nil)
