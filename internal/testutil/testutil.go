// Package testutil provides shared test helpers for setting up vaults and services.
package testutil

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/starford/semindex/internal/index"
	"github.com/starford/semindex/internal/lock"
	"github.com/starford/semindex/internal/misslog"
	"github.com/starford/semindex/internal/storage"
	"github.com/starford/semindex/internal/vaultservice"
)

// Metadata locations used by Service, relative to the vault root.
const (
	IndexFile   = "meta/semantic-index.json"
	MissLogFile = "meta/miss-log.jsonl"
	LockFile    = "meta/.semindex.lock"
)

// WriteNote writes content to rel inside dir, creating parent directories.
func WriteNote(t *testing.T, dir, rel, content string) {
	t.Helper()
	abs := filepath.Join(dir, filepath.FromSlash(rel))
	if err := os.MkdirAll(filepath.Dir(abs), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(abs, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

// Vault creates a temporary vault holding files (path to content).
func Vault(t *testing.T, files map[string]string) (string, *storage.FS) {
	t.Helper()
	dir := t.TempDir()
	for rel, content := range files {
		WriteNote(t, dir, rel, content)
	}
	fs, err := storage.NewFS(dir)
	if err != nil {
		t.Fatal(err)
	}
	return dir, fs
}

// Service creates a vault holding files and a service over it backed by a
// JSON index, a miss log and a writer lock under meta/.
func Service(t *testing.T, files map[string]string, opts ...vaultservice.Option) (*vaultservice.Service, string) {
	t.Helper()
	dir, fs := Vault(t, files)
	backend := index.NewJSONStore(filepath.Join(dir, IndexFile))
	misses := misslog.New(filepath.Join(dir, MissLogFile))
	all := append([]vaultservice.Option{
		vaultservice.WithLock(lock.New(filepath.Join(dir, LockFile)), lock.DefaultTimeout),
	}, opts...)
	svc := vaultservice.New(fs, backend, misses, all...)
	t.Cleanup(func() { _ = svc.Close() })
	return svc, dir
}
