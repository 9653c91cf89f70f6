package index

import (
	"sort"
	"strings"

	"github.com/starford/semindex/internal/models"
	"github.com/starford/semindex/internal/storage"
)

// sampleKeywordCount bounds Stats.SampleKeywords.
const sampleKeywordCount = 20

// ComputeStats aggregates entry and keyword counts. Stale entries are the
// ones Scan would report as ORPHANED.
func ComputeStats(vault storage.Provider, entries Entries) (models.Stats, error) {
	st := models.Stats{EntryCount: len(entries)}

	distinct := make(map[string]struct{})
	for _, e := range entries {
		st.TotalKeywordCount += len(e.Keywords)
		for _, k := range e.Keywords {
			distinct[strings.ToLower(k)] = struct{}{}
		}
	}
	st.DistinctKeywordCount = len(distinct)

	all := make([]string, 0, len(distinct))
	for k := range distinct {
		all = append(all, k)
	}
	sort.Strings(all)
	if len(all) > sampleKeywordCount {
		all = all[:sampleKeywordCount]
	}
	st.SampleKeywords = all

	stale, err := Orphans(vault, entries)
	if err != nil {
		return models.Stats{}, err
	}
	st.StaleEntryCount = len(stale)
	st.StaleEntries = stale

	metas, err := vault.List("")
	if err != nil {
		return models.Stats{}, err
	}
	st.VaultFileCount = len(metas)

	for _, refs := range DanglingRelated(entries) {
		st.DanglingRelatedCount += len(refs)
	}
	return st, nil
}

// DanglingRelated maps each entry path to the related references that do
// not resolve to an entry. Entries with none are omitted.
func DanglingRelated(entries Entries) map[string][]string {
	out := make(map[string][]string)
	for p, e := range entries {
		if missing := unresolved(entries, p, e.Related); len(missing) > 0 {
			out[p] = missing
		}
	}
	return out
}

func unresolved(entries Entries, self string, related []string) []string {
	var missing []string
	for _, r := range related {
		if r == self {
			continue
		}
		if _, ok := entries[r]; !ok {
			missing = append(missing, r)
		}
	}
	return missing
}

// Prune removes orphaned entries and persists the result. With dryRun it
// only reports what would be removed. entries is updated in place after a
// successful save.
func Prune(vault storage.Provider, backend Backend, entries Entries, dryRun bool) ([]string, error) {
	orphans, err := Orphans(vault, entries)
	if err != nil {
		return nil, err
	}
	if dryRun || len(orphans) == 0 {
		return orphans, nil
	}
	next := entries.Clone()
	for _, p := range orphans {
		delete(next, p)
	}
	if err := backend.Save(next); err != nil {
		return nil, err
	}
	for _, p := range orphans {
		delete(entries, p)
	}
	return orphans, nil
}
