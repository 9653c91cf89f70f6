package models

// ScanStatus classifies a path during a vault scan.
type ScanStatus string

const (
	StatusUnchanged  ScanStatus = "UNCHANGED"
	StatusNeedsIndex ScanStatus = "NEEDS_INDEX"
	StatusOrphaned   ScanStatus = "ORPHANED"
)

// ScanResult is the classification of one path. LiveHash is set for
// UNCHANGED and NEEDS_INDEX; StoredHash is set whenever an entry exists.
type ScanResult struct {
	Status     ScanStatus `json:"status"`
	Path       string     `json:"path"`
	LiveHash   string     `json:"live_hash,omitempty"`
	StoredHash string     `json:"stored_hash,omitempty"`
}

// SearchHit is one ranked search result.
type SearchHit struct {
	Path                string   `json:"path"`
	Score               float64  `json:"score"`
	Summary             string   `json:"summary"`
	Keywords            []string `json:"keywords"`
	MatchedKeywords     []string `json:"matched_keywords"`
	MatchedSummaryTerms []string `json:"matched_summary_terms"`
	Related             []string `json:"related"`
}

// SearchReport is the structured search output used for downstream re-ranking.
type SearchReport struct {
	Query          string      `json:"query"`
	QueryTerms     []string    `json:"query_terms"`
	CandidateCount int         `json:"candidate_count"`
	Candidates     []SearchHit `json:"candidates"`
}

// Stats aggregates index diagnostics.
type Stats struct {
	EntryCount           int      `json:"entry_count"`
	TotalKeywordCount    int      `json:"total_keyword_count"`
	DistinctKeywordCount int      `json:"distinct_keyword_count"`
	StaleEntryCount      int      `json:"stale_entry_count"`
	StaleEntries         []string `json:"stale_entries,omitempty"`
	VaultFileCount       int      `json:"vault_file_count"`
	DanglingRelatedCount int      `json:"dangling_related_count"`
	MissCount            int      `json:"miss_count"`
	SampleKeywords       []string `json:"sample_keywords,omitempty"`
}
