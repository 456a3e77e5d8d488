package store_test

import (
	"errors"
	"testing"
	"time"

	"github.com/starford/ansuz/internal/apperr"
	"github.com/starford/ansuz/internal/models"
	"github.com/starford/ansuz/internal/testutil"
)

func TestUpsertGetRoundTrip(t *testing.T) {
	db := testutil.TestStore(t)

	note := models.Note{
		ID:    "n1",
		Title: "Graph Theory",
		Content: []models.ContentNode{
			testutil.Block("A", 0, "Graphs", testutil.Ref("B", "Edges")),
			testutil.Block("B", 1, "Edges"),
		},
	}
	refs := []models.RefPair{{FromID: "A", ToID: "B"}}
	if err := db.Upsert(note, refs); err != nil {
		t.Fatalf("upsert: %v", err)
	}

	got, err := db.Get("n1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Title != "Graph Theory" || len(got.Content) != 2 {
		t.Errorf("note = %+v", got)
	}
	if got.Content[0].Refs()[0].TargetID != "B" {
		t.Error("inline reference lost in storage round trip")
	}
	if got.CreatedAt.IsZero() || got.UpdatedAt.IsZero() {
		t.Error("timestamps not set")
	}
}

func TestUpsertPreservesCreatedAt(t *testing.T) {
	db := testutil.TestStore(t)

	note := models.Note{ID: "n1", Title: "v1"}
	if err := db.Upsert(note, nil); err != nil {
		t.Fatal(err)
	}
	first, _ := db.Get("n1")

	time.Sleep(10 * time.Millisecond)
	note.Title = "v2"
	if err := db.Upsert(note, nil); err != nil {
		t.Fatal(err)
	}
	second, _ := db.Get("n1")

	if !second.CreatedAt.Equal(first.CreatedAt) {
		t.Errorf("created_at changed on update: %v -> %v", first.CreatedAt, second.CreatedAt)
	}
	if !second.UpdatedAt.After(first.UpdatedAt) {
		t.Errorf("updated_at not bumped: %v -> %v", first.UpdatedAt, second.UpdatedAt)
	}
}

func TestGetMissing(t *testing.T) {
	db := testutil.TestStore(t)
	if _, err := db.Get("nope"); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestDelete(t *testing.T) {
	db := testutil.TestStore(t)
	if err := db.Upsert(models.Note{ID: "n1"}, []models.RefPair{{FromID: "A", ToID: "B"}}); err != nil {
		t.Fatal(err)
	}
	if err := db.Delete("n1"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := db.Get("n1"); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound after delete", err)
	}
	if err := db.Delete("n1"); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("second delete err = %v, want ErrNotFound", err)
	}
	edges, err := db.Graph()
	if err != nil {
		t.Fatal(err)
	}
	if len(edges) != 0 {
		t.Errorf("edges = %v, want refs removed with the note", edges)
	}
}

func TestListAndGraph(t *testing.T) {
	db := testutil.TestStore(t)
	if err := db.Upsert(models.Note{ID: "n1", Title: "One"}, []models.RefPair{{FromID: "A", ToID: "B"}}); err != nil {
		t.Fatal(err)
	}
	if err := db.Upsert(models.Note{ID: "n2", Title: "Two"}, []models.RefPair{{FromID: "C", ToID: "D"}}); err != nil {
		t.Fatal(err)
	}

	notes, err := db.List()
	if err != nil {
		t.Fatal(err)
	}
	if len(notes) != 2 {
		t.Fatalf("notes = %+v", notes)
	}

	edges, err := db.Graph()
	if err != nil {
		t.Fatal(err)
	}
	if len(edges) != 2 {
		t.Fatalf("edges = %+v", edges)
	}
	if edges[0].NoteID != "n1" || edges[0].Source != "A" || edges[0].Target != "B" {
		t.Errorf("edge = %+v", edges[0])
	}
}
