// Package importer watches the export directory and re-imports YAML
// interchange files as they are edited, so a user can round-trip a note
// through an external editor.
package importer

import (
	"context"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/starford/ansuz/internal/apperr"
	"github.com/starford/ansuz/internal/exportfs"
	"github.com/starford/ansuz/internal/noteservice"
)

// Reporter receives the structured validation report of a file-driven
// import. Implemented by the SSE broker; nil drops reports.
type Reporter interface {
	PublishImportReport(source string, errors []string)
}

// debounceDelay batches rapid editor write bursts (most editors write a
// file several times in quick succession on save).
const debounceDelay = 200 * time.Millisecond

// Watch starts an fsnotify watcher on the export directory and processes
// YAML file changes until ctx is cancelled. Each changed file is imported
// through the interchange codec; parse failures and validation reports are
// logged and surfaced through rep, and never touch stored notes.
func Watch(ctx context.Context, svc *noteservice.Service, dir *exportfs.Dir, logger *slog.Logger, rep Reporter) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()

	if err := w.Add(dir.Root()); err != nil {
		return err
	}

	logger.Info("importer: started", slog.String("root", dir.Root()))

	// Loop-owned state: pending file set plus one debounce timer, so no
	// locks are needed.
	pending := make(map[string]struct{})
	var timer *time.Timer
	var timerCh <-chan time.Time

	schedule := func() {
		if timer == nil {
			timer = time.NewTimer(debounceDelay)
			timerCh = timer.C
		} else {
			timer.Reset(debounceDelay)
		}
	}

	for {
		select {
		case <-ctx.Done():
			if timer != nil {
				timer.Stop()
			}
			logger.Info("importer: stopped")
			return nil

		case <-timerCh:
			for name := range pending {
				importFile(ctx, svc, dir, logger, rep, name)
				delete(pending, name)
			}

		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if ev.Op&(fsnotify.Create|fsnotify.Write) == 0 {
				continue
			}
			name := filepath.Base(ev.Name)
			if !strings.HasSuffix(strings.ToLower(name), ".yaml") {
				continue
			}
			// Skip our own atomic-write temp files.
			if strings.HasPrefix(name, ".ansuz-tmp-") {
				continue
			}
			pending[name] = struct{}{}
			schedule()

		case watchErr, ok := <-w.Errors:
			if !ok {
				return nil
			}
			logger.Error("importer: watch error", slog.String("error", watchErr.Error()))
		}
	}
}

func importFile(ctx context.Context, svc *noteservice.Service, dir *exportfs.Dir, logger *slog.Logger, rep Reporter, name string) {
	// Exports land in the watched directory too; re-importing what the
	// service itself just wrote would be a feedback loop.
	if dir.SelfWrote(name) {
		logger.Debug("importer: skipping own export", slog.String("file", name))
		return
	}

	data, err := dir.Read(name)
	if err != nil {
		logger.Warn("importer: read failed", slog.String("file", name), slog.String("error", err.Error()))
		return
	}

	_, report, err := svc.SyncYAML(ctx, data, false)
	switch {
	case apperr.IsParse(err):
		logger.Warn("importer: parse failed", slog.String("file", name), slog.String("error", err.Error()))
		if rep != nil {
			rep.PublishImportReport(name, []string{err.Error()})
		}
	case err != nil:
		logger.Warn("importer: import failed", slog.String("file", name), slog.String("error", err.Error()))
	case !report.Valid:
		logger.Warn("importer: validation failed", slog.String("file", name), slog.Int("errors", len(report.Errors)))
		if rep != nil {
			rep.PublishImportReport(name, report.Errors)
		}
	default:
		logger.Info("importer: imported", slog.String("file", name))
	}
}
