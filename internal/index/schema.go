package index

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/mattn/go-sqlite3"

	"github.com/starford/semindex/internal/apperr"
)

const coreSchemaSQL = `
CREATE TABLE IF NOT EXISTS entries (
	source_path  TEXT PRIMARY KEY,
	content_hash TEXT NOT NULL DEFAULT '',
	summary      TEXT NOT NULL DEFAULT '',
	keywords     TEXT NOT NULL DEFAULT '[]',
	related      TEXT NOT NULL DEFAULT '[]'
);

CREATE TABLE IF NOT EXISTS meta (
	key   TEXT PRIMARY KEY,
	value TEXT NOT NULL
);
`

// SQLiteStore persists the index in a SQLite database. Each Save replaces
// the entry set inside one transaction.
type SQLiteStore struct {
	path string
	conn *sql.DB
}

// OpenSQLite opens (or creates) the database at path and applies the schema.
// A file that is not a SQLite database fails with apperr.ErrCorruptIndex.
func OpenSQLite(path string) (*SQLiteStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, apperr.IO("index: open db", path, err)
	}
	conn, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, apperr.IO("index: open db", path, err)
	}
	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, classifySQLite("index: ping", path, err)
	}
	if _, err := conn.Exec(coreSchemaSQL); err != nil {
		conn.Close()
		return nil, classifySQLite("index: apply schema", path, err)
	}
	if _, err := conn.Exec(`INSERT OR IGNORE INTO meta (key, value) VALUES ('version', ?)`,
		strconv.Itoa(documentVersion)); err != nil {
		conn.Close()
		return nil, classifySQLite("index: write meta", path, err)
	}
	if err := checkSchemaVersion(conn, path); err != nil {
		conn.Close()
		return nil, err
	}
	return &SQLiteStore{path: path, conn: conn}, nil
}

// checkSchemaVersion rejects databases written by a newer or unknown layout.
func checkSchemaVersion(conn *sql.DB, path string) error {
	var raw string
	if err := conn.QueryRow(`SELECT value FROM meta WHERE key = 'version'`).Scan(&raw); err != nil {
		return classifySQLite("index: read meta", path, err)
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v < 1 || v > documentVersion {
		return apperr.Corrupt("index: read meta", path, fmt.Errorf("unsupported schema version %q", raw))
	}
	return nil
}

// Location returns the database path.
func (s *SQLiteStore) Location() string { return s.path }

// Close closes the underlying database connection.
func (s *SQLiteStore) Close() error {
	return s.conn.Close()
}

// classifySQLite maps damaged-database errors to ErrCorruptIndex and
// everything else to ErrIO.
func classifySQLite(op, path string, err error) error {
	var se sqlite3.Error
	if errors.As(err, &se) && (se.Code == sqlite3.ErrNotADB || se.Code == sqlite3.ErrCorrupt) {
		return apperr.Corrupt(op, path, err)
	}
	return apperr.IO(op, path, err)
}
