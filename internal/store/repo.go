package store

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/starford/ansuz/internal/apperr"
	"github.com/starford/ansuz/internal/models"
)

// RefEdge is one stored reference edge, qualified by the owning note.
type RefEdge struct {
	NoteID string `json:"note_id"`
	Source string `json:"source"`
	Target string `json:"target"`
}

// Upsert inserts or replaces a note and its reference edges in one
// transaction. CreatedAt is preserved on update; UpdatedAt is bumped.
func (db *DB) Upsert(n models.Note, refs []models.RefPair) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return fmt.Errorf("store: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // best-effort on failure path

	contentJSON, err := json.Marshal(n.Content)
	if err != nil {
		return fmt.Errorf("store: marshal content: %w", err)
	}

	now := time.Now().UTC()
	created := n.CreatedAt
	if created.IsZero() {
		created = now
	}
	_, err = tx.Exec(`
		INSERT INTO notes (id, title, content, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			title      = excluded.title,
			content    = excluded.content,
			updated_at = excluded.updated_at
	`, n.ID, n.Title, string(contentJSON), created, now)
	if err != nil {
		return fmt.Errorf("store: upsert note: %w", err)
	}

	// Replace reference edges: delete old then bulk insert.
	_, _ = tx.Exec(`DELETE FROM refs WHERE note_id = ?`, n.ID)
	if len(refs) > 0 {
		stmt, err := tx.Prepare(`INSERT OR IGNORE INTO refs (note_id, source, target) VALUES (?, ?, ?)`)
		if err != nil {
			return fmt.Errorf("store: prepare ref insert: %w", err)
		}
		defer stmt.Close()
		for _, r := range refs {
			if _, err := stmt.Exec(n.ID, r.FromID, r.ToID); err != nil {
				return fmt.Errorf("store: insert ref: %w", err)
			}
		}
	}

	return tx.Commit()
}

// Get loads a note by id, including its content sequence.
func (db *DB) Get(id string) (*models.Note, error) {
	var n models.Note
	var contentJSON string
	err := db.conn.QueryRow(`
		SELECT id, title, content, created_at, updated_at
		FROM notes WHERE id = ?
	`, id).Scan(&n.ID, &n.Title, &contentJSON, &n.CreatedAt, &n.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperr.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("store: get note: %w", err)
	}
	if err := json.Unmarshal([]byte(contentJSON), &n.Content); err != nil {
		return nil, fmt.Errorf("store: decode content of %s: %w", id, err)
	}
	return &n, nil
}

// List returns metadata for every note, most recently updated first.
func (db *DB) List() ([]models.NoteMetadata, error) {
	rows, err := db.conn.Query(`SELECT id, title, updated_at FROM notes ORDER BY updated_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("store: list notes: %w", err)
	}
	defer rows.Close()

	var out []models.NoteMetadata
	for rows.Next() {
		var m models.NoteMetadata
		if err := rows.Scan(&m.ID, &m.Title, &m.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

// Delete removes a note and its reference edges.
func (db *DB) Delete(id string) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return fmt.Errorf("store: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	res, err := tx.Exec(`DELETE FROM notes WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("store: delete note: %w", err)
	}
	if affected, _ := res.RowsAffected(); affected == 0 {
		return apperr.ErrNotFound
	}
	_, _ = tx.Exec(`DELETE FROM refs WHERE note_id = ?`, id)

	return tx.Commit()
}

// Graph returns every stored reference edge across all notes.
func (db *DB) Graph() ([]RefEdge, error) {
	rows, err := db.conn.Query(`SELECT note_id, source, target FROM refs ORDER BY note_id, source`)
	if err != nil {
		return nil, fmt.Errorf("store: graph: %w", err)
	}
	defer rows.Close()

	var out []RefEdge
	for rows.Next() {
		var e RefEdge
		if err := rows.Scan(&e.NoteID, &e.Source, &e.Target); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}
