// Package testutil provides shared test helpers for setting up stores and
// canned content sequences.
package testutil

import (
	"os"
	"testing"

	"github.com/starford/ansuz/internal/models"
	"github.com/starford/ansuz/internal/store"
)

// TestStore creates a temporary SQLite note store that is automatically
// cleaned up.
func TestStore(t *testing.T) *store.DB {
	t.Helper()
	dbFile, err := os.CreateTemp("", "ansuz-test-*.db")
	if err != nil {
		t.Fatal(err)
	}
	dbFile.Close()
	t.Cleanup(func() { os.Remove(dbFile.Name()) })

	db, err := store.Open(dbFile.Name())
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

// Text wraps a string in a single plain inline span.
func Text(s string) []models.Inline {
	return []models.Inline{{Kind: models.InlineText, Text: s}}
}

// Ref builds an inline reference span.
func Ref(targetID, targetTitle string) models.Inline {
	return models.Inline{Kind: models.InlineRef, TargetID: targetID, TargetTitle: targetTitle}
}

// Block builds a paragraph content node with a heading and body text.
func Block(id string, level int, heading string, inlines ...models.Inline) models.ContentNode {
	return models.ContentNode{
		ID:      id,
		Level:   level,
		Kind:    models.KindParagraph,
		Heading: heading,
		Inlines: inlines,
	}
}
