package mcpserver

// EntryContractURI identifies the entry contract resource.
const EntryContractURI = "semindex://entry-contract"

// EntryContract tells an LLM driver how to write index entries that search
// will find.
const EntryContract = `# semindex Entry Contract

The index holds one entry per note. Entries are written only by you, after
reading the note; semindex never summarises on its own.

## Workflow

1. Call ` + "`scan_vault`" + `. Every ` + "`NEEDS_INDEX`" + ` path is new or changed since its entry was written.
2. For each one, call ` + "`read_note`" + ` and read the content and hints.
3. Call ` + "`update_entry`" + ` with a summary and keywords. The content hash is
   taken when the update is applied, so re-read the note if it may have changed.
4. ` + "`ORPHANED`" + ` paths have an entry but no file. They are reported, never removed
   automatically.

## Fields

- **summary**: one sentence, plain text, no line breaks. Describe what the note
  is about in words a future query would use. Summary matches score 0.5 per
  query term found anywhere in the summary.
- **keywords**: comma-separated, 3 to 8 terms. Lowercase single words work best:
  each query word that equals a keyword scores 1.0. Prefer the words a reader
  would search for over the words the note happens to use.
- **related**: optional comma-separated vault paths (e.g. ` + "`notes/b.md`" + `).
  The note's own wikilinks and tags from ` + "`read_note`" + ` are good candidates.

## Misses

When ` + "`search_index`" + ` fails to surface a note you know is relevant, call
` + "`log_miss`" + ` with the query, the expected path and a short reason. The miss
log is reviewed to improve summaries and keywords.

## Example

` + "```" + `
path:     notes/agents/identity.md
summary:  notes on agent identity drift over long-running sessions
keywords: identity, drift, agents, memory
related:  notes/agents/memory.md
` + "```" + `
`
