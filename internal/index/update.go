package index

import (
	"fmt"
	"log/slog"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/starford/semindex/internal/apperr"
	"github.com/starford/semindex/internal/checksum"
	"github.com/starford/semindex/internal/models"
	"github.com/starford/semindex/internal/storage"
)

// UpdateRequest carries an externally authored summary for one note.
type UpdateRequest struct {
	Path     string   `json:"path"`
	Summary  string   `json:"summary"`
	Keywords []string `json:"keywords"`
	Related  []string `json:"related,omitempty"`
}

// Validate validates the request.
func (r *UpdateRequest) Validate() error {
	return validation.ValidateStruct(r,
		validation.Field(&r.Path, validation.Required),
		validation.Field(&r.Summary, validation.Required),
	)
}

// Indexer applies updates to the index and persists each one immediately.
type Indexer struct {
	vault          storage.Provider
	backend        Backend
	logger         *slog.Logger
	requireRelated bool
}

// IndexerOption configures an Indexer.
type IndexerOption func(*Indexer)

// WithRequireRelated makes Update reject related paths that are not entries.
func WithRequireRelated(require bool) IndexerOption {
	return func(ix *Indexer) {
		ix.requireRelated = require
	}
}

// NewIndexer creates an Indexer writing through to backend.
func NewIndexer(vault storage.Provider, backend Backend, logger *slog.Logger, opts ...IndexerOption) *Indexer {
	if logger == nil {
		logger = slog.Default()
	}
	ix := &Indexer{vault: vault, backend: backend, logger: logger}
	for _, opt := range opts {
		opt(ix)
	}
	return ix
}

// Update creates or overwrites the entry for req.Path. The content hash is
// taken from the file as it is now, not from any earlier scan. entries is
// modified only after the backend has persisted the change; on any error
// both entries and the persisted store are left untouched.
func (ix *Indexer) Update(entries Entries, req UpdateRequest) (models.Entry, error) {
	if err := req.Validate(); err != nil {
		return models.Entry{}, apperr.Invalid("update", req.Path, err)
	}
	path, err := storage.NormalizePath(req.Path)
	if err != nil {
		return models.Entry{}, apperr.Invalid("update", req.Path, err)
	}
	related, err := normalizeRelated(req.Related)
	if err != nil {
		return models.Entry{}, apperr.Invalid("update", path, err)
	}

	data, err := ix.vault.Read(path)
	if err != nil {
		return models.Entry{}, err
	}

	if ix.requireRelated {
		if missing := unresolved(entries, path, related); len(missing) > 0 {
			return models.Entry{}, apperr.New(apperr.ErrDanglingRelated, "update", path,
				fmt.Errorf("unknown: %s", strings.Join(missing, ", ")))
		}
	}

	entry := models.Entry{
		SourcePath:  path,
		ContentHash: checksum.Sum(data),
		Summary:     singleLine(req.Summary),
		Keywords:    NormalizeKeywords(req.Keywords),
		Related:     related,
	}

	if prev, ok := entries[path]; ok && prev.Equal(entry) {
		ix.logger.Debug("index: entry unchanged", slog.String("path", path))
		return entry, nil
	}

	next := entries.Clone()
	next[path] = entry
	if err := ix.backend.Save(next); err != nil {
		return models.Entry{}, err
	}
	entries[path] = entry.Clone()

	ix.logger.Debug("index: updated",
		slog.String("path", path),
		slog.String("hash", entry.ContentHash),
		slog.Int("keywords", len(entry.Keywords)))
	return entry, nil
}

// NormalizeKeywords lowercases, trims and deduplicates keywords, keeping
// first-seen order. The result is never nil.
func NormalizeKeywords(in []string) []string {
	out := make([]string, 0, len(in))
	seen := make(map[string]struct{}, len(in))
	for _, k := range in {
		k = strings.ToLower(strings.TrimSpace(k))
		if k == "" {
			continue
		}
		if _, dup := seen[k]; dup {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, k)
	}
	return out
}

func normalizeRelated(in []string) ([]string, error) {
	out := make([]string, 0, len(in))
	seen := make(map[string]struct{}, len(in))
	for _, r := range in {
		if strings.TrimSpace(r) == "" {
			continue
		}
		p, err := storage.NormalizePath(r)
		if err != nil {
			return nil, fmt.Errorf("related: %w", err)
		}
		if _, dup := seen[p]; dup {
			continue
		}
		seen[p] = struct{}{}
		out = append(out, p)
	}
	return out, nil
}

func singleLine(s string) string {
	return strings.TrimSpace(strings.NewReplacer("\r\n", " ", "\n", " ", "\r", " ").Replace(s))
}

// SplitList splits a comma-separated argument, trimming blanks.
func SplitList(csv string) []string {
	var out []string
	for _, part := range strings.Split(csv, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
