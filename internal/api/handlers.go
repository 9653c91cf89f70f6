package api

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/starford/semindex/internal/index"
	"github.com/starford/semindex/internal/vaultservice"
)

// Handler holds API route handlers.
type Handler struct {
	svc    *vaultservice.Service
	logger *slog.Logger
}

// NewHandler creates a new Handler.
func NewHandler(svc *vaultservice.Service, logger *slog.Logger) *Handler {
	return &Handler{svc: svc, logger: logger}
}

// wildcardPath extracts the vault path from the URL wildcard.
// Supports encoded slashes from OpenAPI clients (e.g. topics%2Fnote.md).
func wildcardPath(r *http.Request) string {
	raw := strings.TrimPrefix(chi.URLParam(r, "*"), "/")
	if raw == "" {
		return ""
	}
	decoded, err := url.PathUnescape(raw)
	if err != nil {
		return raw
	}
	return decoded
}

// Scan handles GET /api/scan.
//
//	@Summary		Classify every note and entry
//	@Tags			index
//	@Produce		json
//	@Success		200		{object}	ScanResponse
//	@Failure		500		{object}	errResponse
//	@Router			/scan [get]
func (h *Handler) Scan(w http.ResponseWriter, _ *http.Request) {
	results, err := h.svc.Scan()
	if err != nil {
		h.writeError(w, "scan", err)
		return
	}
	writeJSON(w, http.StatusOK, ScanResponse{Results: results, Pending: len(index.Pending(results))})
}

// GetNote handles GET /api/notes/*.
//
//	@Summary		Read a note with its live hash and summariser hints
//	@Tags			notes
//	@Produce		json
//	@Param			path	path		string	true	"Note path"
//	@Success		200		{object}	models.FileView
//	@Failure		404		{object}	errResponse
//	@Router			/notes/{path} [get]
func (h *Handler) GetNote(w http.ResponseWriter, r *http.Request) {
	path := wildcardPath(r)
	if path == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("path is required"))
		return
	}
	view, err := h.svc.File(path)
	if err != nil {
		h.writeError(w, "get note", err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

// UpdateEntry handles PUT /api/entries/*.
//
//	@Summary		Record a summary for a note
//	@Tags			index
//	@Accept			json
//	@Produce		json
//	@Param			path	path		string				true	"Note path"
//	@Param			body	body		UpdateEntryRequest	true	"Summary, keywords and related paths"
//	@Success		200		{object}	models.Entry
//	@Failure		400		{object}	errResponse
//	@Failure		404		{object}	errResponse
//	@Router			/entries/{path} [put]
func (h *Handler) UpdateEntry(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)
	path := wildcardPath(r)
	if path == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("path is required"))
		return
	}
	var req UpdateEntryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return
	}
	entry, err := h.svc.Update(index.UpdateRequest{
		Path:     path,
		Summary:  req.Summary,
		Keywords: req.Keywords,
		Related:  req.Related,
	})
	if err != nil {
		h.writeError(w, "update entry", err)
		return
	}
	writeJSON(w, http.StatusOK, entry)
}

// Search handles GET /api/search?q=...&limit=...
//
//	@Summary		Rank entries by keyword and summary matches
//	@Tags			search
//	@Produce		json
//	@Param			q		query		string	true	"Search query"
//	@Param			limit	query		int		false	"Max results"
//	@Success		200		{object}	models.SearchReport
//	@Failure		400		{object}	errResponse
//	@Router			/search [get]
func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	if !r.URL.Query().Has("q") {
		writeJSON(w, http.StatusBadRequest, errorBody("query parameter 'q' is required"))
		return
	}
	q := r.URL.Query().Get("q")
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	report, err := h.svc.Search(q, limit)
	if err != nil {
		h.writeError(w, "search", err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

// RecordMiss handles POST /api/misses.
//
//	@Summary		Log a search that failed to surface the expected note
//	@Tags			misses
//	@Accept			json
//	@Produce		json
//	@Param			body	body		MissRequest	true	"Miss"
//	@Success		201		{object}	models.MissRecord
//	@Failure		400		{object}	errResponse
//	@Router			/misses [post]
func (h *Handler) RecordMiss(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)
	var req MissRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return
	}
	rec, err := h.svc.Miss(req.Query, req.ExpectedPath, req.Reason)
	if err != nil {
		h.writeError(w, "record miss", err)
		return
	}
	writeJSON(w, http.StatusCreated, rec)
}

// ListMisses handles GET /api/misses.
//
//	@Summary		List the miss log
//	@Tags			misses
//	@Produce		json
//	@Success		200		{object}	MissesResponse
//	@Router			/misses [get]
func (h *Handler) ListMisses(w http.ResponseWriter, _ *http.Request) {
	recs, err := h.svc.Misses()
	if err != nil {
		h.writeError(w, "list misses", err)
		return
	}
	writeJSON(w, http.StatusOK, MissesResponse{Misses: recs, Total: len(recs)})
}

// Stats handles GET /api/stats.
//
//	@Summary		Index diagnostics
//	@Tags			index
//	@Produce		json
//	@Success		200		{object}	models.Stats
//	@Router			/stats [get]
func (h *Handler) Stats(w http.ResponseWriter, _ *http.Request) {
	st, err := h.svc.Stats()
	if err != nil {
		h.writeError(w, "stats", err)
		return
	}
	writeJSON(w, http.StatusOK, st)
}

// Prune handles POST /api/prune?dry_run=true.
//
//	@Summary		Remove entries whose notes no longer exist
//	@Tags			index
//	@Produce		json
//	@Param			dry_run	query		bool	false	"Only list what would be removed"
//	@Success		200		{object}	PruneResponse
//	@Router			/prune [post]
func (h *Handler) Prune(w http.ResponseWriter, r *http.Request) {
	dryRun, _ := strconv.ParseBool(r.URL.Query().Get("dry_run"))
	removed, err := h.svc.Prune(dryRun)
	if err != nil {
		h.writeError(w, "prune", err)
		return
	}
	if removed == nil {
		removed = []string{}
	}
	writeJSON(w, http.StatusOK, PruneResponse{Removed: removed, DryRun: dryRun})
}
