// Package storage defines the read-only vault file-system abstraction and
// the atomic write primitives used for index metadata.
package storage

import "github.com/starford/semindex/internal/models"

// Provider is the interface for vault file operations. Notes are owned by
// the external agent, so the provider never writes them.
type Provider interface {
	// Root returns the absolute vault directory.
	Root() string
	// List returns metadata for every note under dir (relative to vault root),
	// sorted by path.
	List(dir string) ([]models.NoteMetadata, error)
	// Read returns the raw bytes of the note at path (relative to vault root).
	Read(path string) ([]byte, error)
	// Exists reports whether a regular file backs path.
	Exists(path string) (bool, error)
	// IsNote reports whether path follows the vault's note convention.
	IsNote(path string) bool
}
