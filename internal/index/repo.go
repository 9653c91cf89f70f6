package index

import (
	"encoding/json"
	"fmt"

	"github.com/starford/semindex/internal/apperr"
	"github.com/starford/semindex/internal/models"
)

// Load returns every stored entry.
func (s *SQLiteStore) Load() (Entries, error) {
	rows, err := s.conn.Query(`
		SELECT source_path, content_hash, summary, keywords, related
		FROM entries
		ORDER BY source_path
	`)
	if err != nil {
		return nil, classifySQLite("index: load", s.path, err)
	}
	defer rows.Close()

	out := Entries{}
	for rows.Next() {
		var (
			e                 models.Entry
			keywords, related string
		)
		if err := rows.Scan(&e.SourcePath, &e.ContentHash, &e.Summary, &keywords, &related); err != nil {
			return nil, classifySQLite("index: scan row", s.path, err)
		}
		if err := json.Unmarshal([]byte(keywords), &e.Keywords); err != nil {
			return nil, apperr.Corrupt("index: decode keywords", e.SourcePath, err)
		}
		if err := json.Unmarshal([]byte(related), &e.Related); err != nil {
			return nil, apperr.Corrupt("index: decode related", e.SourcePath, err)
		}
		e.Keywords = nonNil(e.Keywords)
		e.Related = nonNil(e.Related)
		out[e.SourcePath] = e
	}
	if err := rows.Err(); err != nil {
		return nil, classifySQLite("index: load", s.path, err)
	}
	return out, nil
}

// Save replaces the stored entry set within a transaction.
func (s *SQLiteStore) Save(entries Entries) error {
	tx, err := s.conn.Begin()
	if err != nil {
		return apperr.IO("index: begin tx", s.path, err)
	}
	defer tx.Rollback() //nolint:errcheck // best-effort on failure path

	if _, err := tx.Exec(`DELETE FROM entries`); err != nil {
		return apperr.IO("index: clear entries", s.path, err)
	}
	stmt, err := tx.Prepare(`
		INSERT INTO entries (source_path, content_hash, summary, keywords, related)
		VALUES (?, ?, ?, ?, ?)
	`)
	if err != nil {
		return apperr.IO("index: prepare insert", s.path, err)
	}
	defer stmt.Close()

	for _, e := range entries.Sorted() {
		kw, err := json.Marshal(nonNil(e.Keywords))
		if err != nil {
			return fmt.Errorf("index: encode keywords: %w", err)
		}
		rel, err := json.Marshal(nonNil(e.Related))
		if err != nil {
			return fmt.Errorf("index: encode related: %w", err)
		}
		if _, err := stmt.Exec(e.SourcePath, e.ContentHash, e.Summary, string(kw), string(rel)); err != nil {
			return apperr.IO("index: insert entry", e.SourcePath, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return apperr.IO("index: commit", s.path, err)
	}
	return nil
}
