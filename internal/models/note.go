// Package models defines the domain types for semindex.
package models

import (
	"slices"
	"time"
)

// Entry is the indexed metadata for one note file.
type Entry struct {
	SourcePath  string   `json:"source_path"`
	ContentHash string   `json:"content_hash"`
	Summary     string   `json:"summary"`
	Keywords    []string `json:"keywords"`
	Related     []string `json:"related"`
}

// Clone returns a deep copy of e.
func (e Entry) Clone() Entry {
	e.Keywords = slices.Clone(e.Keywords)
	e.Related = slices.Clone(e.Related)
	return e
}

// Equal reports whether two entries hold the same data.
func (e Entry) Equal(o Entry) bool {
	return e.SourcePath == o.SourcePath &&
		e.ContentHash == o.ContentHash &&
		e.Summary == o.Summary &&
		slices.Equal(e.Keywords, o.Keywords) &&
		slices.Equal(e.Related, o.Related)
}

// NoteMetadata is a lightweight representation of a note file on disk.
type NoteMetadata struct {
	Path     string `json:"path"`
	Checksum string `json:"checksum"`
}

// MissRecord is one line of the miss log.
type MissRecord struct {
	ID           string    `json:"id,omitempty"`
	Timestamp    time.Time `json:"timestamp"`
	Query        string    `json:"query"`
	ExpectedPath string    `json:"expected_path"`
	Reason       string    `json:"reason,omitempty"`
}

// FileView is a note's raw content plus hints for the external summariser.
type FileView struct {
	Path        string   `json:"path"`
	Content     string   `json:"content"`
	ContentHash string   `json:"content_hash"`
	Title       string   `json:"title,omitempty"`
	Tags        []string `json:"tags,omitempty"`
	Links       []string `json:"links,omitempty"`
	Indexed     bool     `json:"indexed"`
	Stale       bool     `json:"stale"`
}
