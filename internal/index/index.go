// Package index maintains the note index: persistence backends, change
// detection against the vault, entry updates, orphan handling and stats.
package index

import (
	"fmt"
	"sort"

	"github.com/starford/semindex/internal/models"
)

// Entries maps a note's source path to its index entry. Each path appears
// at most once by construction.
type Entries map[string]models.Entry

// Paths returns the entry paths in lexical order.
func (e Entries) Paths() []string {
	out := make([]string, 0, len(e))
	for p := range e {
		out = append(out, p)
	}
	sort.Strings(out)
	return out
}

// Sorted returns the entries ordered by source path.
func (e Entries) Sorted() []models.Entry {
	out := make([]models.Entry, 0, len(e))
	for _, p := range e.Paths() {
		out = append(out, e[p])
	}
	return out
}

// Clone returns a deep copy, so a pending mutation can be persisted before
// it becomes visible to the caller.
func (e Entries) Clone() Entries {
	out := make(Entries, len(e))
	for p, entry := range e {
		out[p] = entry.Clone()
	}
	return out
}

// Backend is the durable IndexStore. Load of an absent document yields an
// empty Entries; Load of an unparseable one fails with apperr.ErrCorruptIndex.
// Save is atomic from the caller's point of view.
type Backend interface {
	Load() (Entries, error)
	Save(Entries) error
	// Location describes where the document lives, for diagnostics.
	Location() string
	Close() error
}

// Backend kinds accepted by Open.
const (
	BackendJSON   = "json"
	BackendSQLite = "sqlite"
)

// Open returns the backend of the given kind persisted at path.
func Open(kind, path string) (Backend, error) {
	switch kind {
	case "", BackendJSON:
		return NewJSONStore(path), nil
	case BackendSQLite:
		return OpenSQLite(path)
	default:
		return nil, fmt.Errorf("index: unknown backend %q", kind)
	}
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
