// Package search ranks index entries by keyword overlap with a query.
package search

import (
	"sort"
	"strings"

	"github.com/starford/semindex/internal/index"
	"github.com/starford/semindex/internal/models"
)

// DefaultLimit caps the ranked list unless the caller asks for more.
const DefaultLimit = 10

// Score weights.
const (
	KeywordWeight = 1.0
	SummaryWeight = 0.5
)

// Terms splits a query into lowercase, whitespace-separated, deduplicated
// terms in sorted order.
func Terms(query string) []string {
	fields := strings.Fields(strings.ToLower(query))
	seen := make(map[string]struct{}, len(fields))
	out := make([]string, 0, len(fields))
	for _, f := range fields {
		if _, dup := seen[f]; dup {
			continue
		}
		seen[f] = struct{}{}
		out = append(out, f)
	}
	sort.Strings(out)
	return out
}

// Search scores every entry against query and returns the ranked hits,
// highest score first, ties broken by path. limit <= 0 means DefaultLimit.
//
// Per entry, each query term adds KeywordWeight if it equals one of the
// entry's keywords, otherwise SummaryWeight if it is a substring of the
// summary. Entries scoring zero are dropped.
func Search(entries index.Entries, query string, limit int) models.SearchReport {
	if limit <= 0 {
		limit = DefaultLimit
	}
	terms := Terms(query)
	report := models.SearchReport{
		Query:      query,
		QueryTerms: terms,
		Candidates: []models.SearchHit{},
	}
	if len(terms) == 0 {
		return report
	}

	var hits []models.SearchHit
	for _, e := range entries {
		if hit, ok := score(e, terms); ok {
			hits = append(hits, hit)
		}
	}
	sort.Slice(hits, func(i, j int) bool {
		if hits[i].Score != hits[j].Score {
			return hits[i].Score > hits[j].Score
		}
		return hits[i].Path < hits[j].Path
	})
	if len(hits) > limit {
		hits = hits[:limit]
	}
	if hits != nil {
		report.Candidates = hits
	}
	report.CandidateCount = len(report.Candidates)
	return report
}

func score(e models.Entry, terms []string) (models.SearchHit, bool) {
	keywords := make(map[string]struct{}, len(e.Keywords))
	for _, k := range e.Keywords {
		keywords[strings.ToLower(k)] = struct{}{}
	}
	summary := strings.ToLower(e.Summary)

	hit := models.SearchHit{
		Path:                e.SourcePath,
		Summary:             e.Summary,
		Keywords:            nonNil(e.Keywords),
		Related:             nonNil(e.Related),
		MatchedKeywords:     []string{},
		MatchedSummaryTerms: []string{},
	}
	for _, t := range terms {
		if _, ok := keywords[t]; ok {
			hit.Score += KeywordWeight
			hit.MatchedKeywords = append(hit.MatchedKeywords, t)
		} else if strings.Contains(summary, t) {
			hit.Score += SummaryWeight
			hit.MatchedSummaryTerms = append(hit.MatchedSummaryTerms, t)
		}
	}
	return hit, hit.Score > 0
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
