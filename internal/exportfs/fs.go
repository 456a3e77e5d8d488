// Package exportfs manages the export directory: the sandboxed area where
// YAML and Markdown download payloads are written, and from which edited
// YAML files are re-imported.
package exportfs

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

// selfWriteWindow is how long a Write is remembered for SelfWrote. Long
// enough to outlive the import watcher's debounce, short enough that a
// user edit shortly after an export is still picked up.
const selfWriteWindow = 5 * time.Second

// Dir provides atomic file operations rooted at the export directory.
type Dir struct {
	root string // absolute path

	mu     sync.Mutex
	recent map[string]time.Time // base name → last Write
}

// FileInfo is a lightweight listing entry.
type FileInfo struct {
	Name string
	Size int64
}

// New creates a Dir rooted at the given directory, creating it if needed.
func New(root string) (*Dir, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("exportfs: resolve root: %w", err)
	}
	if err := os.MkdirAll(abs, 0o755); err != nil {
		return nil, fmt.Errorf("exportfs: create root: %w", err)
	}
	return &Dir{root: abs, recent: make(map[string]time.Time)}, nil
}

// Root returns the absolute export directory path.
func (d *Dir) Root() string { return d.root }

// safePath resolves a relative name against the root and rejects any
// result that escapes it (directory traversal).
func (d *Dir) safePath(name string) (string, error) {
	if name == "" {
		return "", fmt.Errorf("exportfs: empty file name")
	}
	cleaned := filepath.Clean(name)
	if filepath.IsAbs(cleaned) {
		return "", fmt.Errorf("exportfs: absolute paths not allowed: %s", name)
	}
	joined := filepath.Join(d.root, cleaned)
	abs, err := filepath.Abs(joined)
	if err != nil {
		return "", fmt.Errorf("exportfs: resolve path: %w", err)
	}
	if !strings.HasPrefix(abs, d.root+string(os.PathSeparator)) {
		return "", fmt.Errorf("exportfs: path escapes export root: %s", name)
	}
	return abs, nil
}

// Write atomically writes content: tmp file → fsync → rename.
func (d *Dir) Write(name string, content []byte) error {
	abs, err := d.safePath(name)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(abs), 0o755); err != nil {
		return fmt.Errorf("exportfs: mkdir: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(abs), ".ansuz-tmp-*")
	if err != nil {
		return fmt.Errorf("exportfs: create temp: %w", err)
	}
	tmpName := tmp.Name()

	success := false
	defer func() {
		if !success {
			_ = tmp.Close()
			_ = os.Remove(tmpName)
		}
	}()

	if _, err := tmp.Write(content); err != nil {
		return fmt.Errorf("exportfs: write temp: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		return fmt.Errorf("exportfs: fsync: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("exportfs: close temp: %w", err)
	}
	if err := os.Rename(tmpName, abs); err != nil {
		return fmt.Errorf("exportfs: rename: %w", err)
	}
	success = true
	d.markWrite(filepath.Base(abs))
	return nil
}

func (d *Dir) markWrite(name string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	cutoff := time.Now().Add(-selfWriteWindow)
	for n, at := range d.recent {
		if at.Before(cutoff) {
			delete(d.recent, n)
		}
	}
	d.recent[name] = time.Now()
}

// SelfWrote reports whether this Dir wrote the named file within the last
// few seconds, and consumes the record. The import watcher uses it to tell
// the service's own exports apart from external edits, so an export never
// triggers a re-import of the note it came from.
func (d *Dir) SelfWrote(name string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	at, ok := d.recent[name]
	if !ok {
		return false
	}
	delete(d.recent, name)
	return time.Since(at) <= selfWriteWindow
}

// Read returns the raw bytes of a file in the export directory.
func (d *Dir) Read(name string) ([]byte, error) {
	abs, err := d.safePath(name)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(abs)
	if err != nil {
		return nil, fmt.Errorf("exportfs: read %s: %w", name, err)
	}
	return data, nil
}

// List returns every file under the root with one of the given extensions
// (e.g. ".yaml"). Extensions are matched case-insensitively.
func (d *Dir) List(exts ...string) ([]FileInfo, error) {
	var out []FileInfo
	err := filepath.WalkDir(d.root, func(p string, entry fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if entry.IsDir() || !matchExt(entry.Name(), exts) {
			return nil
		}
		info, err := entry.Info()
		if err != nil {
			return err
		}
		rel, _ := filepath.Rel(d.root, p)
		out = append(out, FileInfo{Name: rel, Size: info.Size()})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("exportfs: list: %w", err)
	}
	return out, nil
}

func matchExt(name string, exts []string) bool {
	if len(exts) == 0 {
		return true
	}
	got := strings.ToLower(filepath.Ext(name))
	for _, e := range exts {
		if got == strings.ToLower(e) {
			return true
		}
	}
	return false
}
