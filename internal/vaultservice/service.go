// Package vaultservice coordinates the vault, the index store, search and the
// miss log behind the verbs exposed by the CLI, the HTTP API and MCP.
package vaultservice

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/starford/semindex/internal/apperr"
	"github.com/starford/semindex/internal/checksum"
	"github.com/starford/semindex/internal/index"
	"github.com/starford/semindex/internal/lock"
	"github.com/starford/semindex/internal/misslog"
	"github.com/starford/semindex/internal/models"
	"github.com/starford/semindex/internal/parser"
	"github.com/starford/semindex/internal/search"
	"github.com/starford/semindex/internal/storage"
)

// Service is the single entry point for index operations. Every call loads
// the store afresh so external edits between calls are observed.
type Service struct {
	vault       storage.Provider
	backend     index.Backend
	indexer     *index.Indexer
	misses      *misslog.Log
	lock        *lock.FileLock
	lockTimeout time.Duration
	searchLimit int
	debounce    time.Duration
	logger      *slog.Logger
	requireRel  bool
}

// Option configures a Service.
type Option func(*Service)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

// WithLock serialises writing verbs through a cross-process file lock.
func WithLock(l *lock.FileLock, timeout time.Duration) Option {
	return func(s *Service) {
		s.lock = l
		s.lockTimeout = timeout
	}
}

// WithSearchLimit sets the default number of search results.
func WithSearchLimit(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.searchLimit = n
		}
	}
}

// WithRequireRelated rejects updates whose related paths are not entries.
func WithRequireRelated(require bool) Option {
	return func(s *Service) { s.requireRel = require }
}

// WithDebounce sets the watcher debounce interval.
func WithDebounce(d time.Duration) Option {
	return func(s *Service) { s.debounce = d }
}

// New creates a Service.
func New(vault storage.Provider, backend index.Backend, misses *misslog.Log, opts ...Option) *Service {
	s := &Service{
		vault:       vault,
		backend:     backend,
		misses:      misses,
		searchLimit: search.DefaultLimit,
		debounce:    index.DefaultDebounce,
		lockTimeout: lock.DefaultTimeout,
		logger:      slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.indexer = index.NewIndexer(vault, backend, s.logger, index.WithRequireRelated(s.requireRel))
	return s
}

// Close releases the index backend.
func (s *Service) Close() error {
	return s.backend.Close()
}

func (s *Service) load() (index.Entries, error) {
	return s.backend.Load()
}

func (s *Service) exclusive(fn func() error) error {
	if s.lock == nil {
		return fn()
	}
	return s.lock.With(s.lockTimeout, fn)
}

// Scan classifies every note and every entry.
func (s *Service) Scan() ([]models.ScanResult, error) {
	entries, err := s.load()
	if err != nil {
		return nil, err
	}
	return index.Scan(s.vault, entries)
}

// Preview returns up to n leading lines of a note, for scan listings.
func (s *Service) Preview(path string, n int) []string {
	if n <= 0 {
		return nil
	}
	data, err := s.vault.Read(path)
	if err != nil {
		return nil
	}
	lines := strings.Split(strings.TrimRight(string(data), "\n"), "\n")
	if len(lines) > n {
		lines = lines[:n]
	}
	return lines
}

// File returns a note's content with summariser hints and its index state.
func (s *Service) File(path string) (models.FileView, error) {
	norm, err := storage.NormalizePath(path)
	if err != nil {
		return models.FileView{}, apperr.Invalid("file", path, err)
	}
	data, err := s.vault.Read(norm)
	if err != nil {
		return models.FileView{}, err
	}
	hints := parser.Parse(data)
	view := models.FileView{
		Path:        norm,
		Content:     string(data),
		ContentHash: checksum.Sum(data),
		Title:       hints.Title,
		Tags:        hints.Tags,
		Links:       hints.Links,
	}

	entries, err := s.load()
	if err != nil {
		s.logger.Warn("file: index unavailable", slog.String("path", norm), slog.String("error", err.Error()))
		return view, nil
	}
	if e, ok := entries[norm]; ok {
		view.Indexed = true
		view.Stale = e.ContentHash != view.ContentHash
	}
	return view, nil
}

// Update records a summary for one note and persists it immediately.
func (s *Service) Update(req index.UpdateRequest) (models.Entry, error) {
	var entry models.Entry
	err := s.exclusive(func() error {
		entries, err := s.load()
		if err != nil {
			return err
		}
		entry, err = s.indexer.Update(entries, req)
		return err
	})
	if err != nil {
		return models.Entry{}, err
	}
	s.logger.Info("entry updated", slog.String("path", entry.SourcePath), slog.String("hash", entry.ContentHash))
	return entry, nil
}

// Search ranks entries against query. A non-positive limit uses the default.
func (s *Service) Search(query string, limit int) (models.SearchReport, error) {
	entries, err := s.load()
	if err != nil {
		return models.SearchReport{}, err
	}
	if limit <= 0 {
		limit = s.searchLimit
	}
	return search.Search(entries, query, limit), nil
}

// Miss appends a failed-search record to the miss log.
func (s *Service) Miss(query, expectedPath, reason string) (models.MissRecord, error) {
	var rec models.MissRecord
	err := s.exclusive(func() error {
		var err error
		rec, err = s.misses.Record(query, expectedPath, reason)
		return err
	})
	return rec, err
}

// Misses returns every recorded miss in append order.
func (s *Service) Misses() ([]models.MissRecord, error) {
	return s.misses.List()
}

// Stats aggregates index diagnostics and the miss count.
func (s *Service) Stats() (models.Stats, error) {
	entries, err := s.load()
	if err != nil {
		return models.Stats{}, err
	}
	st, err := index.ComputeStats(s.vault, entries)
	if err != nil {
		return models.Stats{}, err
	}
	n, err := s.misses.Count()
	if err != nil {
		s.logger.Warn("stats: miss log unreadable", slog.String("error", err.Error()))
	}
	st.MissCount = n
	return st, nil
}

// Prune removes orphaned entries, or only lists them when dryRun is set.
func (s *Service) Prune(dryRun bool) ([]string, error) {
	var removed []string
	err := s.exclusive(func() error {
		entries, err := s.load()
		if err != nil {
			return err
		}
		removed, err = index.Prune(s.vault, s.backend, entries, dryRun)
		return err
	})
	if err != nil {
		return nil, err
	}
	if !dryRun && len(removed) > 0 {
		s.logger.Info("pruned orphaned entries", slog.Int("count", len(removed)))
	}
	return removed, nil
}

// Watch reports newly pending notes until ctx is cancelled.
func (s *Service) Watch(ctx context.Context, cb index.ChangeCallback) error {
	return index.Watch(ctx, s.vault, s.load, s.debounce, s.logger, cb)
}
