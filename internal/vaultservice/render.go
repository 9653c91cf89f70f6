package vaultservice

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/starford/semindex/internal/index"
	"github.com/starford/semindex/internal/models"
)

// summaryWidth caps summaries in human search output.
const summaryWidth = 100

// PreviewFunc returns the leading lines shown under a pending note.
type PreviewFunc func(path string) []string

// WriteScan prints one line per classified path, with a hash and preview
// under each NEEDS_INDEX note, followed by a pending count.
func WriteScan(w io.Writer, results []models.ScanResult, preview PreviewFunc) error {
	for _, r := range results {
		if _, err := fmt.Fprintf(w, "%-12s %s\n", r.Status, r.Path); err != nil {
			return err
		}
		if r.Status != models.StatusNeedsIndex {
			continue
		}
		fmt.Fprintf(w, "  hash: %s\n", r.LiveHash)
		if preview == nil {
			continue
		}
		for _, line := range preview(r.Path) {
			fmt.Fprintf(w, "  | %s\n", line)
		}
	}
	pending := len(index.Pending(results))
	if pending == 0 {
		_, err := fmt.Fprintln(w, "All files indexed and up to date.")
		return err
	}
	_, err := fmt.Fprintf(w, "%d file(s) need indexing.\n", pending)
	return err
}

// WriteFile prints a note's content followed by its hash and hints.
func WriteFile(w io.Writer, v models.FileView) error {
	fmt.Fprint(w, v.Content)
	if !strings.HasSuffix(v.Content, "\n") {
		fmt.Fprintln(w)
	}
	fmt.Fprintln(w, "---")
	fmt.Fprintf(w, "Content hash: %s\n", v.ContentHash)
	if v.Title != "" {
		fmt.Fprintf(w, "Title: %s\n", v.Title)
	}
	if len(v.Tags) > 0 {
		fmt.Fprintf(w, "Tags: %s\n", strings.Join(v.Tags, ", "))
	}
	if len(v.Links) > 0 {
		fmt.Fprintf(w, "Links: %s\n", strings.Join(v.Links, ", "))
	}
	state := "not indexed"
	switch {
	case v.Indexed && v.Stale:
		state = "indexed, stale"
	case v.Indexed:
		state = "indexed, current"
	}
	_, err := fmt.Fprintf(w, "Index: %s\n", state)
	return err
}

// WriteEntry prints an index entry as indented JSON.
func WriteEntry(w io.Writer, e models.Entry) error {
	return WriteJSON(w, e)
}

// WriteSearch prints ranked hits for a human reader.
func WriteSearch(w io.Writer, report models.SearchReport) error {
	if len(report.Candidates) == 0 {
		_, err := fmt.Fprintf(w, "No matches for: %s\n", report.Query)
		return err
	}
	for _, hit := range report.Candidates {
		fmt.Fprintf(w, "[%.1f] %s\n", hit.Score, hit.Path)
		fmt.Fprintf(w, "    %s\n", truncate(hit.Summary, summaryWidth))
		matched := append(append([]string{}, hit.MatchedKeywords...), hit.MatchedSummaryTerms...)
		if _, err := fmt.Fprintf(w, "    matched keywords: %s\n", strings.Join(matched, ", ")); err != nil {
			return err
		}
	}
	return nil
}

// WriteMisses prints the miss log.
func WriteMisses(w io.Writer, recs []models.MissRecord) error {
	if len(recs) == 0 {
		_, err := fmt.Fprintln(w, "No misses logged yet.")
		return err
	}
	fmt.Fprintf(w, "Miss log: %d entries\n", len(recs))
	for _, r := range recs {
		fmt.Fprintf(w, "  [%s] %q -> %s\n", r.Timestamp.Format("2006-01-02"), r.Query, r.ExpectedPath)
		if r.Reason != "" {
			if _, err := fmt.Fprintf(w, "      reason: %s\n", r.Reason); err != nil {
				return err
			}
		}
	}
	return nil
}

// WriteStats prints index diagnostics.
func WriteStats(w io.Writer, st models.Stats) error {
	fmt.Fprintf(w, "Entries:            %d\n", st.EntryCount)
	fmt.Fprintf(w, "Vault files:        %d\n", st.VaultFileCount)
	fmt.Fprintf(w, "Keywords (total):   %d\n", st.TotalKeywordCount)
	fmt.Fprintf(w, "Keywords (unique):  %d\n", st.DistinctKeywordCount)
	fmt.Fprintf(w, "Stale entries:      %d\n", st.StaleEntryCount)
	for _, p := range st.StaleEntries {
		fmt.Fprintf(w, "  - %s\n", p)
	}
	fmt.Fprintf(w, "Dangling related:   %d\n", st.DanglingRelatedCount)
	fmt.Fprintf(w, "Misses:             %d\n", st.MissCount)
	if len(st.SampleKeywords) > 0 {
		fmt.Fprintf(w, "Sample keywords:    %s\n", strings.Join(st.SampleKeywords, ", "))
	}
	return nil
}

// WritePrune prints removed (or removable) orphan paths.
func WritePrune(w io.Writer, paths []string, dryRun bool) error {
	verb := "Removed"
	if dryRun {
		verb = "Would remove"
	}
	if len(paths) == 0 {
		_, err := fmt.Fprintln(w, "No orphaned entries.")
		return err
	}
	fmt.Fprintf(w, "%s %d orphaned entr%s:\n", verb, len(paths), plural(len(paths)))
	for _, p := range paths {
		if _, err := fmt.Fprintf(w, "  - %s\n", p); err != nil {
			return err
		}
	}
	return nil
}

// WriteJSON prints v as 2-space indented JSON.
func WriteJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}

func plural(n int) string {
	if n == 1 {
		return "y"
	}
	return "ies"
}
