package models

import "time"

// Note is the persisted document: metadata plus the native flat content
// sequence. The BlockTree is never stored; it is re-derived on demand.
type Note struct {
	ID        string        `json:"id"`
	Title     string        `json:"title"`
	Content   []ContentNode `json:"content"`
	CreatedAt time.Time     `json:"created_at"`
	UpdatedAt time.Time     `json:"updated_at"`
}

// NoteMetadata is a lightweight representation returned by list operations.
type NoteMetadata struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	UpdatedAt time.Time `json:"updated_at"`
}

// InvalidRef describes one reference that no longer resolves to a leaf
// node (the target is missing or has grown children).
type InvalidRef struct {
	SourceID    string `json:"source_id"`
	TargetID    string `json:"target_id"`
	TargetTitle string `json:"target_title"`
}
