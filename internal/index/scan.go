package index

import (
	"sort"

	"github.com/starford/semindex/internal/checksum"
	"github.com/starford/semindex/internal/models"
	"github.com/starford/semindex/internal/storage"
)

// Scan walks the vault and classifies every note file and every stored entry:
//   - files whose live hash equals the stored hash are UNCHANGED
//   - files with no entry or a different hash are NEEDS_INDEX
//   - entries whose backing file no longer exists are ORPHANED
//
// Results are ordered by path. Scan never modifies entries.
func Scan(vault storage.Provider, entries Entries) ([]models.ScanResult, error) {
	metas, err := vault.List("")
	if err != nil {
		return nil, err
	}

	out := make([]models.ScanResult, 0, len(metas)+len(entries))
	disk := make(map[string]struct{}, len(metas))
	for _, m := range metas {
		disk[m.Path] = struct{}{}
		out = append(out, classify(m.Path, m.Checksum, entries))
	}

	// Entries that the walk did not visit: either the file is gone, or it
	// exists outside the note convention and is still classified by hash.
	for _, p := range entries.Paths() {
		if _, ok := disk[p]; ok {
			continue
		}
		exists, err := vault.Exists(p)
		if err != nil {
			return nil, err
		}
		if !exists {
			out = append(out, models.ScanResult{
				Status:     models.StatusOrphaned,
				Path:       p,
				StoredHash: entries[p].ContentHash,
			})
			continue
		}
		data, err := vault.Read(p)
		if err != nil {
			return nil, err
		}
		out = append(out, classify(p, checksum.Sum(data), entries))
	}

	sort.SliceStable(out, func(i, j int) bool { return out[i].Path < out[j].Path })
	return out, nil
}

func classify(path, live string, entries Entries) models.ScanResult {
	r := models.ScanResult{Status: models.StatusNeedsIndex, Path: path, LiveHash: live}
	if e, ok := entries[path]; ok {
		r.StoredHash = e.ContentHash
		if e.ContentHash == live {
			r.Status = models.StatusUnchanged
		}
	}
	return r
}

// Orphans returns the paths of entries whose backing file is missing, in
// lexical order. It agrees with the ORPHANED results of Scan.
func Orphans(vault storage.Provider, entries Entries) ([]string, error) {
	var out []string
	for _, p := range entries.Paths() {
		exists, err := vault.Exists(p)
		if err != nil {
			return nil, err
		}
		if !exists {
			out = append(out, p)
		}
	}
	return out, nil
}

// Pending filters results down to those that require driver action.
func Pending(results []models.ScanResult) []models.ScanResult {
	var out []models.ScanResult
	for _, r := range results {
		if r.Status != models.StatusUnchanged {
			out = append(out, r)
		}
	}
	return out
}
