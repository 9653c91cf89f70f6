package index

import (
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/starford/semindex/internal/apperr"
	"github.com/starford/semindex/internal/checksum"
	"github.com/starford/semindex/internal/models"
	"github.com/starford/semindex/internal/storage"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// testVault creates a temp vault containing files and returns its provider.
func testVault(t *testing.T, files map[string]string) *storage.FS {
	t.Helper()
	dir := t.TempDir()
	for rel, content := range files {
		writeNote(t, dir, rel, content)
	}
	fs, err := storage.NewFS(dir)
	require.NoError(t, err)
	return fs
}

func writeNote(t *testing.T, root, rel, content string) {
	t.Helper()
	abs := filepath.Join(root, filepath.FromSlash(rel))
	require.NoError(t, os.MkdirAll(filepath.Dir(abs), 0o755))
	require.NoError(t, os.WriteFile(abs, []byte(content), 0o644))
}

func testJSONStore(t *testing.T, vault storage.Provider) *JSONStore {
	t.Helper()
	return NewJSONStore(filepath.Join(vault.Root(), "meta", "semantic-index.json"))
}

func sampleEntries() Entries {
	return Entries{
		"b.md": {SourcePath: "b.md", ContentHash: "2222222222222222", Summary: "second", Keywords: []string{"beta"}, Related: []string{"a.md"}},
		"a.md": {SourcePath: "a.md", ContentHash: "1111111111111111", Summary: "first", Keywords: []string{"alpha", "one"}, Related: []string{}},
	}
}

func TestEntries_SortedAndClone(t *testing.T) {
	e := sampleEntries()
	assert.Equal(t, []string{"a.md", "b.md"}, e.Paths())
	assert.Equal(t, "a.md", e.Sorted()[0].SourcePath)

	c := e.Clone()
	c["a.md"].Keywords[0] = "mutated"
	assert.Equal(t, "alpha", e["a.md"].Keywords[0], "clone must not share slices")
}

func TestOpen_UnknownBackend(t *testing.T) {
	_, err := Open("redis", "x")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown backend")
}

func TestJSONStore_MissingDocumentIsEmpty(t *testing.T) {
	s := NewJSONStore(filepath.Join(t.TempDir(), "meta", "semantic-index.json"))
	entries, err := s.Load()
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestJSONStore_RoundTrip(t *testing.T) {
	s := NewJSONStore(filepath.Join(t.TempDir(), "meta", "semantic-index.json"))
	want := sampleEntries()
	require.NoError(t, s.Save(want))

	got, err := s.Load()
	require.NoError(t, err)
	assert.Equal(t, want, got)

	// Saving what was loaded changes nothing on disk.
	before, err := os.ReadFile(s.Location())
	require.NoError(t, err)
	require.NoError(t, s.Save(got))
	after, err := os.ReadFile(s.Location())
	require.NoError(t, err)
	assert.Equal(t, string(before), string(after))

	leftovers, _ := filepath.Glob(filepath.Join(filepath.Dir(s.Location()), ".semindex-tmp-*"))
	assert.Empty(t, leftovers)
}

func TestJSONStore_SavedDocumentShape(t *testing.T) {
	s := NewJSONStore(filepath.Join(t.TempDir(), "idx.json"))
	require.NoError(t, s.Save(Entries{
		"n.md": {SourcePath: "n.md", ContentHash: "h", Summary: "s"},
	}))
	data, err := os.ReadFile(s.Location())
	require.NoError(t, err)
	assert.JSONEq(t, `{"version":1,"entries":[{"source_path":"n.md","content_hash":"h","summary":"s","keywords":[],"related":[]}]}`, string(data))
}

func TestJSONStore_CorruptDocument(t *testing.T) {
	cases := map[string]string{
		"garbage":        "not json at all",
		"truncated":      `{"version":1,"entries":[{"source_path":"a.md"`,
		"top-level list": `[]`,
		"empty file":     ``,
		"bad entries":    `{"version":1,"entries":42}`,
		"no path":        `{"version":1,"entries":[{"summary":"x"}]}`,
		"duplicate":      `{"version":1,"entries":[{"source_path":"a.md"},{"source_path":"a.md"}]}`,
		"future version": `{"version":99,"entries":[]}`,
		"empty object":   `{}`,
		"misspelt key":   `{"version":1,"entires":[{"source_path":"a.md"}]}`,
		"unrelated":      `{"hello":"world"}`,
		"null entries":   `{"version":1,"entries":null}`,
		"no version":     `{"entries":[]}`,
		"zero version":   `{"version":0,"entries":[]}`,
	}
	for name, content := range cases {
		t.Run(name, func(t *testing.T) {
			p := filepath.Join(t.TempDir(), "idx.json")
			require.NoError(t, os.WriteFile(p, []byte(content), 0o644))
			_, err := NewJSONStore(p).Load()
			require.Error(t, err)
			assert.ErrorIs(t, err, apperr.ErrCorruptIndex)

			// The corrupt document is left in place for inspection.
			data, _ := os.ReadFile(p)
			assert.Equal(t, content, string(data))
		})
	}
}

func TestJSONStore_EmptySaveLoads(t *testing.T) {
	s := NewJSONStore(filepath.Join(t.TempDir(), "idx.json"))
	require.NoError(t, s.Save(Entries{}))
	got, err := s.Load()
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestJSONStore_UnrecognisedDocumentIsNotEmpty(t *testing.T) {
	bad := `{"version":1,"entires":[{"source_path":"b.md"}]}`
	vault := testVault(t, map[string]string{"a.md": "a", "meta/semantic-index.json": bad})
	store := testJSONStore(t, vault)

	_, err := store.Load()
	require.ErrorIs(t, err, apperr.ErrCorruptIndex)

	data, err := os.ReadFile(store.Location())
	require.NoError(t, err)
	assert.Equal(t, bad, string(data))
}

func TestJSONStore_LegacyKeyedEntries(t *testing.T) {
	p := filepath.Join(t.TempDir(), "idx.json")
	legacy := `{"version":1,"entries":{"notes/a.md":{"source_path":"notes/a.md","content_hash":"abc","summary":"s","keywords":["x"],"related":[]},"notes/b.md":{"content_hash":"def","summary":"t","keywords":[]}}}`
	require.NoError(t, os.WriteFile(p, []byte(legacy), 0o644))

	entries, err := NewJSONStore(p).Load()
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "notes/b.md", entries["notes/b.md"].SourcePath)
	assert.Equal(t, []string{}, entries["notes/b.md"].Related)
}

func TestSQLiteStore_RoundTrip(t *testing.T) {
	s, err := OpenSQLite(filepath.Join(t.TempDir(), "meta", "semantic-index.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })

	empty, err := s.Load()
	require.NoError(t, err)
	assert.Empty(t, empty)

	want := sampleEntries()
	require.NoError(t, s.Save(want))
	got, err := s.Load()
	require.NoError(t, err)
	assert.Equal(t, want, got)

	// Save replaces the full set.
	delete(want, "b.md")
	require.NoError(t, s.Save(want))
	got, err = s.Load()
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestSQLiteStore_NewerSchemaVersion(t *testing.T) {
	p := filepath.Join(t.TempDir(), "semantic-index.db")
	s, err := OpenSQLite(p)
	require.NoError(t, err)
	_, err = s.conn.Exec(`UPDATE meta SET value = '99' WHERE key = 'version'`)
	require.NoError(t, err)
	require.NoError(t, s.Close())

	_, err = OpenSQLite(p)
	require.ErrorIs(t, err, apperr.ErrCorruptIndex)
}

func TestSQLiteStore_NotADatabase(t *testing.T) {
	p := filepath.Join(t.TempDir(), "semantic-index.db")
	garbage := make([]byte, 4096)
	for i := range garbage {
		garbage[i] = byte('x')
	}
	require.NoError(t, os.WriteFile(p, garbage, 0o644))

	_, err := OpenSQLite(p)
	require.Error(t, err)
	assert.ErrorIs(t, err, apperr.ErrCorruptIndex)
}

func TestSQLiteStore_CorruptRow(t *testing.T) {
	s, err := OpenSQLite(filepath.Join(t.TempDir(), "semantic-index.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })

	_, err = s.conn.Exec(`INSERT INTO entries (source_path, keywords) VALUES ('a.md', '{not json')`)
	require.NoError(t, err)
	_, err = s.Load()
	assert.ErrorIs(t, err, apperr.ErrCorruptIndex)
}

// failingBackend fails every Save.
type failingBackend struct{ Entries }

func (f *failingBackend) Load() (Entries, error) { return f.Entries.Clone(), nil }
func (f *failingBackend) Save(Entries) error {
	return apperr.IO("index: save", "mem", errors.New("disk full"))
}
func (f *failingBackend) Location() string { return "mem" }
func (f *failingBackend) Close() error     { return nil }

func TestScan_Scenario(t *testing.T) {
	vault := testVault(t, map[string]string{"notes/a.md": "hello"})
	store := testJSONStore(t, vault)
	entries, err := store.Load()
	require.NoError(t, err)

	results, err := Scan(vault, entries)
	require.NoError(t, err)
	require.Equal(t, []models.ScanResult{{
		Status:   models.StatusNeedsIndex,
		Path:     "notes/a.md",
		LiveHash: checksum.SumString("hello"),
	}}, results)

	ix := NewIndexer(vault, store, discardLogger())
	entry, err := ix.Update(entries, UpdateRequest{
		Path:     "notes/a.md",
		Summary:  "greeting note",
		Keywords: SplitList("hello,greeting"),
	})
	require.NoError(t, err)
	assert.Len(t, entry.Keywords, 2)

	reloaded, err := store.Load()
	require.NoError(t, err)
	results, err = Scan(vault, reloaded)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, models.StatusUnchanged, results[0].Status)
	assert.Equal(t, "notes/a.md", results[0].Path)
}

func TestScan_ClassifiesExhaustively(t *testing.T) {
	vault := testVault(t, map[string]string{
		"same.md":        "same",
		"changed.md":     "new text",
		"new.md":         "fresh",
		"sub/deep.md":    "deep",
		"ignored.txt":    "not a note",
		".hidden/h.md":   "hidden",
		"legacy/old.txt": "kept outside the convention",
	})
	entries := Entries{
		"same.md":        {SourcePath: "same.md", ContentHash: checksum.SumString("same")},
		"changed.md":     {SourcePath: "changed.md", ContentHash: checksum.SumString("old text")},
		"gone.md":        {SourcePath: "gone.md", ContentHash: "0000000000000000"},
		"legacy/old.txt": {SourcePath: "legacy/old.txt", ContentHash: checksum.SumString("kept outside the convention")},
	}

	results, err := Scan(vault, entries)
	require.NoError(t, err)

	got := make(map[string]models.ScanStatus)
	var order []string
	for _, r := range results {
		_, dup := got[r.Path]
		require.False(t, dup, "path %s classified twice", r.Path)
		got[r.Path] = r.Status
		order = append(order, r.Path)
	}
	assert.Equal(t, map[string]models.ScanStatus{
		"same.md":        models.StatusUnchanged,
		"changed.md":     models.StatusNeedsIndex,
		"new.md":         models.StatusNeedsIndex,
		"sub/deep.md":    models.StatusNeedsIndex,
		"gone.md":        models.StatusOrphaned,
		"legacy/old.txt": models.StatusUnchanged,
	}, got)
	assert.IsIncreasing(t, order)

	again, err := Scan(vault, entries)
	require.NoError(t, err)
	assert.Equal(t, results, again, "scan must be deterministic")
}

func TestOrphansAgreeWithScan(t *testing.T) {
	vault := testVault(t, map[string]string{"kept.md": "k"})
	entries := Entries{
		"kept.md":      {SourcePath: "kept.md"},
		"gone.md":      {SourcePath: "gone.md"},
		"dir/gone2.md": {SourcePath: "dir/gone2.md"},
		"../escape.md": {SourcePath: "../escape.md"},
	}
	orphans, err := Orphans(vault, entries)
	require.NoError(t, err)

	results, err := Scan(vault, entries)
	require.NoError(t, err)
	var fromScan []string
	for _, r := range results {
		if r.Status == models.StatusOrphaned {
			fromScan = append(fromScan, r.Path)
		}
	}
	assert.Equal(t, fromScan, orphans)
	assert.Equal(t, []string{"../escape.md", "dir/gone2.md", "gone.md"}, orphans)
}

func TestUpdate_NoteNotFoundLeavesStoreUnchanged(t *testing.T) {
	vault := testVault(t, map[string]string{"a.md": "a"})
	store := testJSONStore(t, vault)
	require.NoError(t, store.Save(sampleEntries()))
	entries, err := store.Load()
	require.NoError(t, err)
	before, err := os.ReadFile(store.Location())
	require.NoError(t, err)

	ix := NewIndexer(vault, store, discardLogger())
	_, err = ix.Update(entries, UpdateRequest{Path: "missing.md", Summary: "x", Keywords: []string{"k"}})
	require.Error(t, err)
	assert.ErrorIs(t, err, apperr.ErrNoteNotFound)
	assert.Contains(t, err.Error(), "missing.md")

	after, err := os.ReadFile(store.Location())
	require.NoError(t, err)
	assert.Equal(t, string(before), string(after))
	reloaded, err := store.Load()
	require.NoError(t, err)
	assert.Equal(t, sampleEntries(), reloaded)
	assert.NotContains(t, entries, "missing.md")
}

func TestUpdate_Idempotent(t *testing.T) {
	vault := testVault(t, map[string]string{"n.md": "content"})
	store := testJSONStore(t, vault)
	entries := Entries{}
	ix := NewIndexer(vault, store, discardLogger())
	req := UpdateRequest{Path: "n.md", Summary: "a note", Keywords: []string{"One", "two"}, Related: []string{"other.md"}}

	first, err := ix.Update(entries, req)
	require.NoError(t, err)
	second, err := ix.Update(entries, req)
	require.NoError(t, err)
	assert.Equal(t, first, second)
	assert.Len(t, entries, 1)
}

// countingBackend counts Save calls on top of a real store.
type countingBackend struct {
	Backend
	saves int
}

func (c *countingBackend) Save(e Entries) error {
	c.saves++
	return c.Backend.Save(e)
}

func TestUpdate_UnchangedEntryIsNotRewritten(t *testing.T) {
	vault := testVault(t, map[string]string{"n.md": "content"})
	store := &countingBackend{Backend: testJSONStore(t, vault)}
	entries := Entries{}
	ix := NewIndexer(vault, store, discardLogger())
	req := UpdateRequest{Path: "n.md", Summary: "a note", Keywords: []string{"one"}}

	_, err := ix.Update(entries, req)
	require.NoError(t, err)
	_, err = ix.Update(entries, req)
	require.NoError(t, err)
	assert.Equal(t, 1, store.saves)

	req.Keywords = []string{"one", "two"}
	_, err = ix.Update(entries, req)
	require.NoError(t, err)
	assert.Equal(t, 2, store.saves)
}

func TestUpdate_UsesCurrentContentHash(t *testing.T) {
	vault := testVault(t, map[string]string{"n.md": "v1"})
	store := testJSONStore(t, vault)
	entries := Entries{}

	scan, err := Scan(vault, entries)
	require.NoError(t, err)
	require.Equal(t, checksum.SumString("v1"), scan[0].LiveHash)

	// The note changes after the scan that flagged it.
	writeNote(t, vault.Root(), "n.md", "v2")

	entry, err := NewIndexer(vault, store, discardLogger()).Update(entries, UpdateRequest{Path: "n.md", Summary: "s"})
	require.NoError(t, err)
	assert.Equal(t, checksum.SumString("v2"), entry.ContentHash)
}

func TestUpdate_Normalization(t *testing.T) {
	vault := testVault(t, map[string]string{"notes/n.md": "x"})
	entries := Entries{}
	entry, err := NewIndexer(vault, testJSONStore(t, vault), discardLogger()).Update(entries, UpdateRequest{
		Path:     "./notes/n.md",
		Summary:  "line one\nline two",
		Keywords: []string{" Identity", "DRIFT", "identity", "", "drift "},
		Related:  []string{"./a.md", "a.md", " ", "b/../c.md"},
	})
	require.NoError(t, err)
	assert.Equal(t, "notes/n.md", entry.SourcePath)
	assert.Equal(t, "line one line two", entry.Summary)
	assert.Equal(t, []string{"identity", "drift"}, entry.Keywords)
	assert.Equal(t, []string{"a.md", "c.md"}, entry.Related)
	assert.Contains(t, entries, "notes/n.md")
}

func TestUpdate_InvalidInput(t *testing.T) {
	vault := testVault(t, map[string]string{"n.md": "x"})
	ix := NewIndexer(vault, testJSONStore(t, vault), discardLogger())
	cases := []UpdateRequest{
		{Path: "", Summary: "s"},
		{Path: "n.md", Summary: ""},
		{Path: "../n.md", Summary: "s"},
		{Path: "n.md", Summary: "s", Related: []string{"/etc/passwd"}},
	}
	for _, req := range cases {
		_, err := ix.Update(Entries{}, req)
		assert.ErrorIs(t, err, apperr.ErrInvalidInput, "req %+v", req)
	}
}

func TestUpdate_RequireRelatedPolicy(t *testing.T) {
	vault := testVault(t, map[string]string{"a.md": "a", "b.md": "b"})
	store := testJSONStore(t, vault)
	entries := Entries{}
	strict := NewIndexer(vault, store, discardLogger(), WithRequireRelated(true))

	_, err := strict.Update(entries, UpdateRequest{Path: "a.md", Summary: "a", Related: []string{"b.md"}})
	assert.ErrorIs(t, err, apperr.ErrDanglingRelated)
	assert.Empty(t, entries)

	_, err = strict.Update(entries, UpdateRequest{Path: "b.md", Summary: "b", Related: []string{"b.md"}})
	require.NoError(t, err, "self reference resolves")
	_, err = strict.Update(entries, UpdateRequest{Path: "a.md", Summary: "a", Related: []string{"b.md"}})
	require.NoError(t, err)

	lenient := NewIndexer(vault, store, discardLogger())
	_, err = lenient.Update(entries, UpdateRequest{Path: "a.md", Summary: "a", Related: []string{"nowhere.md"}})
	require.NoError(t, err)
	assert.Equal(t, map[string][]string{"a.md": {"nowhere.md"}}, DanglingRelated(entries))
}

func TestUpdate_SaveFailureLeavesEntriesUntouched(t *testing.T) {
	vault := testVault(t, map[string]string{"a.md": "a"})
	backend := &failingBackend{Entries: Entries{}}
	entries := Entries{}
	_, err := NewIndexer(vault, backend, discardLogger()).Update(entries, UpdateRequest{Path: "a.md", Summary: "s"})
	assert.ErrorIs(t, err, apperr.ErrIO)
	assert.Empty(t, entries)
}

func TestComputeStats(t *testing.T) {
	vault := testVault(t, map[string]string{"a.md": "a", "b.md": "b", "c.md": "unindexed"})
	entries := Entries{
		"a.md":    {SourcePath: "a.md", Keywords: []string{"identity", "drift"}, Related: []string{"b.md"}},
		"b.md":    {SourcePath: "b.md", Keywords: []string{"drift", "memory"}, Related: []string{"ghost.md"}},
		"gone.md": {SourcePath: "gone.md", Keywords: []string{"lost"}},
	}
	st, err := ComputeStats(vault, entries)
	require.NoError(t, err)
	assert.Equal(t, 3, st.EntryCount)
	assert.Equal(t, 5, st.TotalKeywordCount)
	assert.Equal(t, 4, st.DistinctKeywordCount)
	assert.Equal(t, 1, st.StaleEntryCount)
	assert.Equal(t, []string{"gone.md"}, st.StaleEntries)
	assert.Equal(t, 3, st.VaultFileCount)
	assert.Equal(t, 1, st.DanglingRelatedCount)
	assert.Equal(t, []string{"drift", "identity", "lost", "memory"}, st.SampleKeywords)
}

func TestComputeStats_Empty(t *testing.T) {
	vault := testVault(t, nil)
	st, err := ComputeStats(vault, Entries{})
	require.NoError(t, err)
	assert.Equal(t, models.Stats{SampleKeywords: []string{}}, st)
}

func TestPrune(t *testing.T) {
	vault := testVault(t, map[string]string{"kept.md": "k"})
	store := testJSONStore(t, vault)
	entries := Entries{
		"kept.md": {SourcePath: "kept.md"},
		"gone.md": {SourcePath: "gone.md"},
	}
	require.NoError(t, store.Save(entries))

	removed, err := Prune(vault, store, entries, true)
	require.NoError(t, err)
	assert.Equal(t, []string{"gone.md"}, removed)
	assert.Len(t, entries, 2, "dry run keeps entries")

	removed, err = Prune(vault, store, entries, false)
	require.NoError(t, err)
	assert.Equal(t, []string{"gone.md"}, removed)
	assert.Equal(t, []string{"kept.md"}, entries.Paths())

	reloaded, err := store.Load()
	require.NoError(t, err)
	assert.Equal(t, []string{"kept.md"}, reloaded.Paths())
}

func TestSplitList(t *testing.T) {
	assert.Equal(t, []string{"hello", "greeting"}, SplitList("hello, greeting"))
	assert.Empty(t, SplitList(""))
	assert.Equal(t, []string{"a"}, SplitList(" ,a,, "))
}
