package noteservice

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/starford/ansuz/internal/apperr"
	"github.com/starford/ansuz/internal/exportfs"
	"github.com/starford/ansuz/internal/markdown"
	"github.com/starford/ansuz/internal/models"
	"github.com/starford/ansuz/internal/testutil"
)

type fakeEvents struct {
	mu      sync.Mutex
	updated []string
	invalid [][]models.InvalidRef
	cleaned []int
}

func (f *fakeEvents) PublishNoteUpdated(noteID string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.updated = append(f.updated, noteID)
}

func (f *fakeEvents) PublishInvalidRefs(_ string, refs []models.InvalidRef) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.invalid = append(f.invalid, refs)
}

func (f *fakeEvents) PublishRefsCleaned(_ string, removed int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.cleaned = append(f.cleaned, removed)
}

func newService(t *testing.T) (*Service, *fakeEvents) {
	t.Helper()
	ev := &fakeEvents{}
	svc := NewService(testutil.TestStore(t), nil, ev, nil)
	// Long debounce keeps the pass from firing mid-test; tests that need
	// it call FlushValidation explicitly.
	svc.SetDebounce(time.Hour)
	t.Cleanup(svc.Close)
	return svc, ev
}

// seqWithBadRef: A > [B, C > [D]]; A references non-leaf C.
func seqWithBadRef() []models.ContentNode {
	return []models.ContentNode{
		testutil.Block("A", 0, "A", testutil.Ref("C", "C")),
		testutil.Block("B", 1, "B"),
		testutil.Block("C", 1, "C"),
		testutil.Block("D", 2, "D"),
	}
}

func TestUpdateContent_RebuildsAndPersists(t *testing.T) {
	svc, ev := newService(t)
	ctx := context.Background()

	n, err := svc.CreateNote(ctx, "My Note")
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	res, err := svc.UpdateContent(ctx, n.ID, "My Note", seqWithBadRef())
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if len(res.Tree.RootIDs) != 1 || res.Tree.RootIDs[0] != "A" {
		t.Errorf("roots = %v", res.Tree.RootIDs)
	}

	got, err := svc.GetNote(ctx, n.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if len(got.Content) != 4 {
		t.Errorf("content = %d nodes, want 4", len(got.Content))
	}

	ev.mu.Lock()
	defer ev.mu.Unlock()
	if len(ev.updated) != 1 {
		t.Errorf("note.updated events = %v", ev.updated)
	}
}

func TestUpdateContent_MissingNote(t *testing.T) {
	svc, _ := newService(t)
	_, err := svc.UpdateContent(context.Background(), "nope", "t", nil)
	if !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestDebouncedValidation_AutoCleans(t *testing.T) {
	svc, ev := newService(t)
	ctx := context.Background()

	n, _ := svc.CreateNote(ctx, "n")
	if _, err := svc.UpdateContent(ctx, n.ID, "n", seqWithBadRef()); err != nil {
		t.Fatal(err)
	}
	svc.FlushValidation(n.ID)

	got, _ := svc.GetNote(ctx, n.ID)
	for _, cn := range got.Content {
		if len(cn.Refs()) != 0 {
			t.Errorf("invalid reference survived the debounced pass: %+v", cn.Refs())
		}
	}

	ev.mu.Lock()
	defer ev.mu.Unlock()
	if len(ev.invalid) != 1 || len(ev.invalid[0]) != 1 || ev.invalid[0][0].TargetID != "C" {
		t.Errorf("invalid events = %+v", ev.invalid)
	}
	if len(ev.cleaned) != 1 || ev.cleaned[0] != 1 {
		t.Errorf("cleaned events = %+v", ev.cleaned)
	}
}

func TestCleanRefs_Idempotent(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()

	n, _ := svc.CreateNote(ctx, "n")
	if _, err := svc.UpdateContent(ctx, n.ID, "n", seqWithBadRef()); err != nil {
		t.Fatal(err)
	}

	removed, err := svc.CleanRefs(ctx, n.ID)
	if err != nil || removed != 1 {
		t.Fatalf("first clean: removed=%d err=%v, want 1", removed, err)
	}
	removed, err = svc.CleanRefs(ctx, n.ID)
	if err != nil || removed != 0 {
		t.Fatalf("second clean: removed=%d err=%v, want 0", removed, err)
	}
}

func TestMentions(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()

	n, _ := svc.CreateNote(ctx, "n")
	content := []models.ContentNode{
		testutil.Block("R", 0, "Root"),
		testutil.Block("X", 1, "Xenon"),
		testutil.Block("Y", 1, "Yttrium"),
		testutil.Block("W", 1, "Current", testutil.Ref("Y", "Yttrium")),
	}
	if _, err := svc.UpdateContent(ctx, n.ID, "n", content); err != nil {
		t.Fatal(err)
	}

	got, err := svc.Mentions(ctx, n.ID, "W", "")
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 || got[0].ID != "X" {
		t.Errorf("candidates = %+v, want [X]", got)
	}
}

func TestExportAndImport_RoundTrip(t *testing.T) {
	dir, err := exportfs.New(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	svc := NewService(testutil.TestStore(t), dir, nil, nil)
	t.Cleanup(svc.Close)
	ctx := context.Background()

	n, _ := svc.CreateNote(ctx, "Sorting Algorithms")
	content := []models.ContentNode{
		testutil.Block("A", 0, "Sorting", testutil.Ref("B", "Quicksort")),
		testutil.Block("B", 1, "Quicksort"),
	}
	if _, err := svc.UpdateContent(ctx, n.ID, "Sorting Algorithms", content); err != nil {
		t.Fatal(err)
	}

	exp, err := svc.ExportYAML(ctx, n.ID)
	if err != nil {
		t.Fatalf("export: %v", err)
	}
	if exp.Name != "sorting-algorithms.yaml" {
		t.Errorf("export name = %q", exp.Name)
	}
	if onDisk, err := dir.Read(exp.Name); err != nil || string(onDisk) != string(exp.Data) {
		t.Errorf("export not written to directory: %v", err)
	}

	res, report, err := svc.ImportYAML(ctx, n.ID, exp.Data, false)
	if err != nil {
		t.Fatalf("import: %v", err)
	}
	if !report.Valid {
		t.Fatalf("report = %+v", report)
	}
	if res == nil || len(res.Tree.RootIDs) != 1 || res.Tree.RootIDs[0] != "A" {
		t.Errorf("imported tree = %+v", res)
	}
}

func TestImportYAML_ParseFailureLeavesNoteUntouched(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()

	n, _ := svc.CreateNote(ctx, "n")
	if _, err := svc.UpdateContent(ctx, n.ID, "n", seqWithBadRef()); err != nil {
		t.Fatal(err)
	}
	before, _ := svc.GetNote(ctx, n.ID)

	_, _, err := svc.ImportYAML(ctx, n.ID, []byte("id: x\ntitle: y\n"), false)
	if !apperr.IsParse(err) {
		t.Fatalf("err = %v, want ParseError", err)
	}

	after, _ := svc.GetNote(ctx, n.ID)
	if len(after.Content) != len(before.Content) || !after.UpdatedAt.Equal(before.UpdatedAt) {
		t.Error("failed import modified the stored note")
	}
}

func TestImportYAML_InvalidReportBlocksUnlessForced(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()
	n, _ := svc.CreateNote(ctx, "n")

	// Parses fine but fails structural validation (ref to unknown block).
	input := []byte("id: x\ntitle: y\nblocks:\n  - id: a\n    title: A\n    refs: [ghost]\n")

	res, report, err := svc.ImportYAML(ctx, n.ID, input, false)
	if err != nil || res != nil || report.Valid {
		t.Fatalf("res=%v report=%+v err=%v, want blocked import", res, report, err)
	}

	res, report, err = svc.ImportYAML(ctx, n.ID, input, true)
	if err != nil || res == nil {
		t.Fatalf("forced import failed: res=%v err=%v", res, err)
	}
	if report.Valid {
		t.Error("report must still carry the violations")
	}
}

func TestImportNewYAML_CreatesNote(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()

	input := []byte("id: fresh\ntitle: Fresh Note\nblocks:\n  - id: a\n    title: A\n    content: hello\n")
	n, report, err := svc.ImportNewYAML(ctx, input, false)
	if err != nil || !report.Valid {
		t.Fatalf("import: %v, report %+v", err, report)
	}
	if n.ID != "fresh" || n.Title != "Fresh Note" || len(n.Content) != 1 {
		t.Errorf("note = %+v", n)
	}
}

func TestExportMarkdown(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()

	n, _ := svc.CreateNote(ctx, "Trees")
	content := []models.ContentNode{
		testutil.Block("A", 0, "Trees"),
		testutil.Block("B", 1, "Binary Trees"),
	}
	if _, err := svc.UpdateContent(ctx, n.ID, "Trees", content); err != nil {
		t.Fatal(err)
	}

	exp, err := svc.ExportMarkdown(ctx, n.ID, markdown.ModeHierarchical)
	if err != nil {
		t.Fatalf("export: %v", err)
	}
	if !strings.HasSuffix(string(exp.Data), "## Trees\n\n### Binary Trees\n\n") {
		t.Errorf("markdown = %q", exp.Data)
	}
	if exp.Name != "trees.md" {
		t.Errorf("name = %q", exp.Name)
	}
}

func TestImportNewYAML_RejectsExistingID(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()

	input := []byte("id: taken\ntitle: First\nblocks:\n  - id: a\n    title: A\n")
	if _, _, err := svc.ImportNewYAML(ctx, input, false); err != nil {
		t.Fatalf("first import: %v", err)
	}

	_, _, err := svc.ImportNewYAML(ctx, []byte("id: taken\ntitle: Other\nblocks:\n  - id: b\n    title: B\n"), false)
	if !errors.Is(err, apperr.ErrAlreadyExists) {
		t.Fatalf("err = %v, want ErrAlreadyExists", err)
	}
	n, err := svc.GetNote(ctx, "taken")
	if err != nil || n.Title != "First" {
		t.Errorf("stored note = %+v, %v; collision must not touch it", n, err)
	}
}

func TestSyncYAML_CreatesThenReplaces(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()

	n, _, err := svc.SyncYAML(ctx, []byte("id: disk\ntitle: Draft\nblocks:\n  - id: a\n    title: A\n"), false)
	if err != nil || n.ID != "disk" {
		t.Fatalf("create: %+v, %v", n, err)
	}

	n, _, err = svc.SyncYAML(ctx, []byte("id: disk\ntitle: Final\nblocks:\n  - id: a\n    title: A\n  - id: b\n    title: B\n"), false)
	if err != nil {
		t.Fatalf("replace: %v", err)
	}
	if n.Title != "Final" || len(n.Content) != 2 {
		t.Errorf("note = %+v, want replaced content", n)
	}
}

func TestExportYAMLThenSync_PreservesBlocks(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()

	n, _ := svc.CreateNote(ctx, "Euler")
	content := []models.ContentNode{
		{ID: "A", Level: 0, Kind: models.KindCode, Heading: "Snippet", Inlines: []models.Inline{
			{Kind: models.InlineText, Text: "return x", Marks: []models.Mark{models.MarkCode}},
		}},
		{ID: "B", Level: 0, Kind: models.KindMathBlock, Heading: "Identity", Inlines: []models.Inline{
			{Kind: models.InlineMath, Formula: `e^{i\pi}=-1`},
		}},
	}
	if _, err := svc.UpdateContent(ctx, n.ID, "Euler", content); err != nil {
		t.Fatal(err)
	}

	exp, err := svc.ExportYAML(ctx, n.ID)
	if err != nil {
		t.Fatalf("export: %v", err)
	}
	if _, _, err := svc.SyncYAML(ctx, exp.Data, false); err != nil {
		t.Fatalf("sync: %v", err)
	}

	got, err := svc.GetNote(ctx, n.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(got.Content) != 2 {
		t.Fatalf("content = %+v", got.Content)
	}
	if got.Content[0].Kind != models.KindCode || got.Content[1].Kind != models.KindMathBlock {
		t.Errorf("kinds = %q, %q; export must round-trip losslessly",
			got.Content[0].Kind, got.Content[1].Kind)
	}
	in := got.Content[1].Inlines
	if len(in) != 1 || in[0].Kind != models.InlineMath || in[0].Formula != `e^{i\pi}=-1` {
		t.Errorf("math span = %+v", in)
	}
	in = got.Content[0].Inlines
	if len(in) != 1 || len(in[0].Marks) != 1 || in[0].Marks[0] != models.MarkCode {
		t.Errorf("code span = %+v", in)
	}
}
