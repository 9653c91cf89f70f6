package index

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/starford/semindex/internal/checksum"
	"github.com/starford/semindex/internal/models"
)

// eventually polls fn every tick until it returns true or timeout elapses.
func eventually(t *testing.T, timeout, tick time.Duration, fn func() bool, msg string) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if fn() {
			return
		}
		time.Sleep(tick)
	}
	t.Error(msg)
}

type recorder struct {
	mu      sync.Mutex
	results []models.ScanResult
}

func (r *recorder) record(results []models.ScanResult) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.results = append(r.results, results...)
}

func (r *recorder) has(status models.ScanStatus, path string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, res := range r.results {
		if res.Status == status && res.Path == path {
			return true
		}
	}
	return false
}

func (r *recorder) count(path string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, res := range r.results {
		if res.Path == path {
			n++
		}
	}
	return n
}

func startWatch(t *testing.T, files map[string]string, entries Entries) (string, *recorder) {
	t.Helper()
	vault := testVault(t, files)
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	rec := &recorder{}
	load := func() (Entries, error) { return entries.Clone(), nil }
	go Watch(ctx, vault, load, 50*time.Millisecond, discardLogger(), rec.record)
	return vault.Root(), rec
}

func TestWatcher_ReportsExistingBacklog(t *testing.T) {
	_, rec := startWatch(t, map[string]string{"a.md": "a"}, Entries{})
	eventually(t, 2*time.Second, 20*time.Millisecond, func() bool {
		return rec.has(models.StatusNeedsIndex, "a.md")
	}, "initial scan should report a.md")
}

func TestWatcher_NewNoteReported(t *testing.T) {
	root, rec := startWatch(t, map[string]string{"a.md": "a"}, Entries{})
	eventually(t, 2*time.Second, 20*time.Millisecond, func() bool {
		return rec.has(models.StatusNeedsIndex, "a.md")
	}, "initial scan should report a.md")

	time.Sleep(100 * time.Millisecond)
	require.NoError(t, os.WriteFile(filepath.Join(root, "b.md"), []byte("b"), 0o644))
	eventually(t, 2*time.Second, 20*time.Millisecond, func() bool {
		return rec.has(models.StatusNeedsIndex, "b.md")
	}, "new note should be reported")

	// a.md did not change again, so it is reported only once.
	require.Equal(t, 1, rec.count("a.md"))
}

func TestWatcher_NewDirectoryWatched(t *testing.T) {
	root, rec := startWatch(t, nil, Entries{})
	time.Sleep(100 * time.Millisecond)

	require.NoError(t, os.MkdirAll(filepath.Join(root, "topics", "go"), 0o755))
	time.Sleep(100 * time.Millisecond)
	require.NoError(t, os.WriteFile(filepath.Join(root, "topics", "go", "n.md"), []byte("n"), 0o644))

	eventually(t, 2*time.Second, 20*time.Millisecond, func() bool {
		return rec.has(models.StatusNeedsIndex, "topics/go/n.md")
	}, "note in new directory should be reported")
}

func TestWatcher_DeletedNoteReportedOrphaned(t *testing.T) {
	entries := Entries{"a.md": {SourcePath: "a.md", ContentHash: checksum.SumString("a")}}
	root, rec := startWatch(t, map[string]string{"a.md": "a"}, entries)
	time.Sleep(150 * time.Millisecond)

	require.NoError(t, os.Remove(filepath.Join(root, "a.md")))
	eventually(t, 2*time.Second, 20*time.Millisecond, func() bool {
		return rec.has(models.StatusOrphaned, "a.md")
	}, "removed note should be reported orphaned")
}

func TestDiffReported(t *testing.T) {
	reported := map[string]models.ScanResult{}
	a := models.ScanResult{Status: models.StatusNeedsIndex, Path: "a.md", LiveHash: "1"}

	require.Len(t, diffReported(reported, []models.ScanResult{a}), 1)
	require.Empty(t, diffReported(reported, []models.ScanResult{a}))

	a2 := a
	a2.LiveHash = "2"
	require.Len(t, diffReported(reported, []models.ScanResult{a2}), 1)

	// Once a path stops needing action it is forgotten, so it is reported again later.
	require.Empty(t, diffReported(reported, nil))
	require.Len(t, diffReported(reported, []models.ScanResult{a2}), 1)
}
