package exportfs

import (
	"testing"
)

func tempDir(t *testing.T) *Dir {
	t.Helper()
	d, err := New(t.TempDir())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return d
}

func TestWriteAndRead(t *testing.T) {
	d := tempDir(t)
	content := []byte("id: n1\ntitle: Hello\nblocks: []\n")
	if err := d.Write("n1.yaml", content); err != nil {
		t.Fatalf("Write: %v", err)
	}
	got, err := d.Read("n1.yaml")
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if string(got) != string(content) {
		t.Errorf("content mismatch: got %q", got)
	}
}

func TestWriteCreatesSubdirs(t *testing.T) {
	d := tempDir(t)
	if err := d.Write("exports/deep/n1.md", []byte("# x")); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if _, err := d.Read("exports/deep/n1.md"); err != nil {
		t.Fatalf("Read: %v", err)
	}
}

func TestPathTraversalRejected(t *testing.T) {
	d := tempDir(t)
	for _, name := range []string{"../escape.yaml", "/abs.yaml", "a/../../b.yaml", ""} {
		if err := d.Write(name, []byte("x")); err == nil {
			t.Errorf("Write(%q) succeeded, want traversal rejection", name)
		}
	}
}

func TestListFiltersByExtension(t *testing.T) {
	d := tempDir(t)
	_ = d.Write("a.yaml", []byte("a"))
	_ = d.Write("b.YAML", []byte("b"))
	_ = d.Write("c.md", []byte("c"))

	files, err := d.List(".yaml")
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(files) != 2 {
		t.Errorf("files = %+v, want the two yaml files", files)
	}
	all, err := d.List()
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(all) != 3 {
		t.Errorf("files = %+v, want all three", all)
	}
}

func TestSelfWroteConsumesRecord(t *testing.T) {
	d := tempDir(t)
	if err := d.Write("note.yaml", []byte("id: n\n")); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if !d.SelfWrote("note.yaml") {
		t.Error("own write not remembered")
	}
	if d.SelfWrote("note.yaml") {
		t.Error("record must be consumed by the first check")
	}
	if d.SelfWrote("other.yaml") {
		t.Error("never-written file reported as self-written")
	}
}
