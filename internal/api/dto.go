package api

import "github.com/starford/semindex/internal/models"

// UpdateEntryRequest is the request body for PUT /api/entries/*.
type UpdateEntryRequest struct {
	Summary  string   `json:"summary" example:"notes on agent identity drift" validate:"required"`
	Keywords []string `json:"keywords" example:"identity,drift"`
	Related  []string `json:"related,omitempty"`
}

// MissRequest is the request body for POST /api/misses.
type MissRequest struct {
	Query        string `json:"query" example:"identity drift" validate:"required"`
	ExpectedPath string `json:"expected_path" example:"notes/a.md" validate:"required"`
	Reason       string `json:"reason,omitempty"`
}

// ScanResponse wraps a scan listing.
type ScanResponse struct {
	Results []models.ScanResult `json:"results" validate:"required"`
	Pending int                 `json:"pending" example:"3"`
}

// MissesResponse wraps the miss log.
type MissesResponse struct {
	Misses []models.MissRecord `json:"misses" validate:"required"`
	Total  int                 `json:"total" example:"2"`
}

// PruneResponse lists orphaned entries removed, or that would be removed.
type PruneResponse struct {
	Removed []string `json:"removed" validate:"required"`
	DryRun  bool     `json:"dry_run"`
}
