package index

import (
	"context"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/starford/semindex/internal/models"
	"github.com/starford/semindex/internal/storage"
)

// DefaultDebounce is the quiet period before a rescan after vault changes.
const DefaultDebounce = 300 * time.Millisecond

// ChangeCallback receives scan results that need driver action and differ
// from what was last reported.
type ChangeCallback func(results []models.ScanResult)

// LoadFunc returns the current index. The watcher calls it before every
// rescan so it observes updates made by other commands.
type LoadFunc func() (Entries, error)

// Watch starts an fsnotify watcher on the vault root and rescans after each
// burst of note changes until ctx is cancelled. It never writes to the
// index: indexing requires a summary only the external driver can supply.
//
// New directories created at runtime are automatically added to the watch
// list. Hidden directories are not watched.
func Watch(ctx context.Context, vault storage.Provider, load LoadFunc, debounce time.Duration, logger *slog.Logger, cb ChangeCallback) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()

	root := vault.Root()
	if err := addDirsRecursive(w, root); err != nil {
		return err
	}
	if debounce <= 0 {
		debounce = DefaultDebounce
	}

	logger.Info("watcher: started", slog.String("root", root))

	reported := make(map[string]models.ScanResult)
	rescan := func() {
		entries, err := load()
		if err != nil {
			logger.Warn("watcher: load index failed", slog.String("error", err.Error()))
			return
		}
		results, err := Scan(vault, entries)
		if err != nil {
			logger.Warn("watcher: scan failed", slog.String("error", err.Error()))
			return
		}
		fresh := diffReported(reported, Pending(results))
		if len(fresh) > 0 && cb != nil {
			cb(fresh)
		}
	}

	// timer debounces bursts of events into a single rescan.
	var timer *time.Timer
	var timerCh <-chan time.Time
	schedule := func() {
		if timer == nil {
			timer = time.NewTimer(debounce)
			timerCh = timer.C
		} else {
			timer.Reset(debounce)
		}
	}

	rescan()

	for {
		select {
		case <-ctx.Done():
			if timer != nil {
				timer.Stop()
			}
			logger.Info("watcher: stopped")
			return nil

		case <-timerCh:
			rescan()

		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			rel, relErr := filepath.Rel(root, ev.Name)
			if relErr != nil {
				continue
			}

			// Handle new directories: add to watcher.
			if ev.Op&fsnotify.Create != 0 {
				if info, statErr := os.Stat(ev.Name); statErr == nil && info.IsDir() {
					if strings.HasPrefix(filepath.Base(ev.Name), ".") {
						continue
					}
					if addErr := addDirsRecursive(w, ev.Name); addErr != nil {
						logger.Warn("watcher: add new dir failed",
							slog.String("path", ev.Name),
							slog.String("error", addErr.Error()))
					} else {
						logger.Debug("watcher: watching new dir", slog.String("path", ev.Name))
					}
					schedule()
					continue
				}
			}

			switch {
			case ev.Op&(fsnotify.Remove|fsnotify.Rename) != 0:
				// A removed directory arrives as a single event for the
				// directory itself, so any removal triggers a rescan.
				schedule()
			case ev.Op&(fsnotify.Create|fsnotify.Write) != 0 && vault.IsNote(filepath.ToSlash(rel)):
				logger.Debug("watcher: note changed", slog.String("path", filepath.ToSlash(rel)))
				schedule()
			}

		case watchErr, ok := <-w.Errors:
			if !ok {
				return nil
			}
			logger.Error("watcher: error", slog.String("error", watchErr.Error()))
		}
	}
}

// diffReported returns the pending results that are new or changed since the
// previous report and forgets paths that no longer need action.
func diffReported(reported map[string]models.ScanResult, pending []models.ScanResult) []models.ScanResult {
	var fresh []models.ScanResult
	current := make(map[string]struct{}, len(pending))
	for _, r := range pending {
		current[r.Path] = struct{}{}
		if prev, ok := reported[r.Path]; ok && prev.Status == r.Status && prev.LiveHash == r.LiveHash {
			continue
		}
		reported[r.Path] = r
		fresh = append(fresh, r)
	}
	for p := range reported {
		if _, ok := current[p]; !ok {
			delete(reported, p)
		}
	}
	return fresh
}

// addDirsRecursive adds root and all its non-hidden subdirectories to the watcher.
func addDirsRecursive(w *fsnotify.Watcher, root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if path != root && strings.HasPrefix(d.Name(), ".") {
			return filepath.SkipDir
		}
		return w.Add(path)
	})
}
