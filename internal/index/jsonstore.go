package index

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/starford/semindex/internal/apperr"
	"github.com/starford/semindex/internal/models"
	"github.com/starford/semindex/internal/storage"
)

// documentVersion is written into every saved index document.
const documentVersion = 1

// JSONStore persists the index as a single JSON document.
type JSONStore struct {
	path string
}

// NewJSONStore returns a store backed by the document at path. The file is
// not touched until Load or Save.
func NewJSONStore(path string) *JSONStore {
	return &JSONStore{path: path}
}

type document struct {
	Version int             `json:"version"`
	Entries json.RawMessage `json:"entries"`
}

type savedDocument struct {
	Version int            `json:"version"`
	Entries []models.Entry `json:"entries"`
}

// Location returns the document path.
func (s *JSONStore) Location() string { return s.path }

// Close is a no-op.
func (s *JSONStore) Close() error { return nil }

// Load reads the document. A missing file is an empty index.
func (s *JSONStore) Load() (Entries, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return Entries{}, nil
		}
		return nil, apperr.IO("index: load", s.path, err)
	}
	entries, err := decodeDocument(data)
	if err != nil {
		return nil, apperr.Corrupt("index: load", s.path, err)
	}
	return entries, nil
}

func decodeDocument(data []byte) (Entries, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return nil, fmt.Errorf("document is not a JSON object")
	}
	var doc document
	if err := json.Unmarshal(trimmed, &doc); err != nil {
		return nil, err
	}
	if doc.Version < 1 {
		return nil, fmt.Errorf("document has no version")
	}
	if doc.Version > documentVersion {
		return nil, fmt.Errorf("unsupported document version %d", doc.Version)
	}

	raw := bytes.TrimSpace(doc.Entries)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return nil, fmt.Errorf("document has no entries")
	}
	out := Entries{}

	var list []models.Entry
	switch raw[0] {
	case '[':
		if err := json.Unmarshal(raw, &list); err != nil {
			return nil, err
		}
	case '{':
		// Legacy layout keyed by path.
		var keyed map[string]models.Entry
		if err := json.Unmarshal(raw, &keyed); err != nil {
			return nil, err
		}
		for key, e := range keyed {
			if e.SourcePath == "" {
				e.SourcePath = key
			}
			if e.SourcePath != key {
				return nil, fmt.Errorf("entry key %q does not match source_path %q", key, e.SourcePath)
			}
			list = append(list, e)
		}
	default:
		return nil, fmt.Errorf("entries must be an array")
	}

	for i, e := range list {
		if e.SourcePath == "" {
			return nil, fmt.Errorf("entry %d has no source_path", i)
		}
		if _, dup := out[e.SourcePath]; dup {
			return nil, fmt.Errorf("duplicate entry for %q", e.SourcePath)
		}
		e.Keywords = nonNil(e.Keywords)
		e.Related = nonNil(e.Related)
		out[e.SourcePath] = e
	}
	return out, nil
}

// Save writes the whole index atomically, entries sorted by path.
func (s *JSONStore) Save(entries Entries) error {
	doc := savedDocument{Version: documentVersion, Entries: entries.Sorted()}
	for i := range doc.Entries {
		doc.Entries[i].Keywords = nonNil(doc.Entries[i].Keywords)
		doc.Entries[i].Related = nonNil(doc.Entries[i].Related)
	}
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("index: encode: %w", err)
	}
	data = append(data, '\n')
	if err := storage.WriteAtomic(s.path, data); err != nil {
		return apperr.IO("index: save", s.path, err)
	}
	return nil
}
