// Package mcpserver provides an MCP (Model Context Protocol) server
// that exposes the semindex verbs as tools for an LLM driver via stdio transport.
package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/starford/semindex/internal/index"
	"github.com/starford/semindex/internal/vaultservice"
)

// Server wraps the MCP server with semindex tools.
type Server struct {
	mcp *server.MCPServer
	svc *vaultservice.Service
}

// New creates a new MCP server with all semindex tools registered.
func New(svc *vaultservice.Service, version string) *Server {
	s := &Server{svc: svc}

	s.mcp = server.NewMCPServer(
		"semindex",
		version,
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
	)

	s.mcp.AddTool(mcp.NewTool("scan_vault",
		mcp.WithDescription("Classify every note as UNCHANGED, NEEDS_INDEX or ORPHANED against the index."),
	), s.scanVault)

	s.mcp.AddTool(mcp.NewTool("read_note",
		mcp.WithDescription("Read a note's raw content, live content hash and summariser hints (title, tags, wikilinks)."),
		mcp.WithString("path", mcp.Required(), mcp.Description("Vault-relative path to the note (e.g. folder/note.md)")),
	), s.readNote)

	s.mcp.AddTool(mcp.NewTool("update_entry",
		mcp.WithDescription("Record the summary and keywords for a note. "+
			"Read the contract first via the "+EntryContractURI+" resource."),
		mcp.WithString("path", mcp.Required(), mcp.Description("Vault-relative path to the note")),
		mcp.WithString("summary", mcp.Required(), mcp.Description("One-sentence summary")),
		mcp.WithString("keywords", mcp.Required(), mcp.Description("Comma-separated keywords")),
		mcp.WithString("related", mcp.Description("Optional comma-separated related note paths")),
	), s.updateEntry)

	s.mcp.AddTool(mcp.NewTool("search_index",
		mcp.WithDescription("Rank index entries by keyword (1.0) and summary (0.5) matches. Returns candidates for re-ranking."),
		mcp.WithString("query", mcp.Required(), mcp.Description("Search query string")),
		mcp.WithNumber("limit", mcp.Description("Maximum number of candidates (default 10)")),
	), s.searchIndex)

	s.mcp.AddTool(mcp.NewTool("log_miss",
		mcp.WithDescription("Record a search that failed to surface a note that should have matched."),
		mcp.WithString("query", mcp.Required(), mcp.Description("The query that missed")),
		mcp.WithString("expected_path", mcp.Required(), mcp.Description("Path of the note that should have been found")),
		mcp.WithString("reason", mcp.Description("Why it should have matched")),
	), s.logMiss)

	s.mcp.AddTool(mcp.NewTool("list_misses",
		mcp.WithDescription("List every recorded search miss."),
	), s.listMisses)

	s.mcp.AddTool(mcp.NewTool("index_stats",
		mcp.WithDescription("Entry and keyword counts, stale entries and miss count."),
	), s.indexStats)

	s.mcp.AddResource(
		mcp.NewResource(EntryContractURI, "Entry Contract",
			mcp.WithResourceDescription("How to write summaries and keywords that search will find."),
			mcp.WithMIMEType("text/markdown"),
		),
		s.readEntryContract,
	)

	return s
}

// ServeStdio starts the MCP server on stdin/stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcp)
}

// MCPServer returns the underlying server for testing.
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcp
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(string(out)), nil
}

func (s *Server) scanVault(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	results, err := s.svc.Scan()
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	var b strings.Builder
	for _, r := range results {
		fmt.Fprintf(&b, "%s %s\n", r.Status, r.Path)
	}
	fmt.Fprintf(&b, "pending: %d", len(index.Pending(results)))
	return mcp.NewToolResultText(b.String()), nil
}

func (s *Server) readNote(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := req.RequireString("path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	view, err := s.svc.File(path)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(view)
}

func (s *Server) updateEntry(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := req.RequireString("path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	summary, err := req.RequireString("summary")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	keywords, err := req.RequireString("keywords")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	entry, err := s.svc.Update(index.UpdateRequest{
		Path:     path,
		Summary:  summary,
		Keywords: index.SplitList(keywords),
		Related:  index.SplitList(req.GetString("related", "")),
	})
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(entry)
}

func (s *Server) searchIndex(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	query, err := req.RequireString("query")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	report, err := s.svc.Search(query, req.GetInt("limit", 0))
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(report)
}

func (s *Server) logMiss(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	query, err := req.RequireString("query")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	expected, err := req.RequireString("expected_path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	rec, err := s.svc.Miss(query, expected, req.GetString("reason", ""))
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("logged miss %s", rec.ID)), nil
}

func (s *Server) listMisses(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	recs, err := s.svc.Misses()
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(recs)
}

func (s *Server) indexStats(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	st, err := s.svc.Stats()
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(st)
}

func (s *Server) readEntryContract(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      EntryContractURI,
			MIMEType: "text/markdown",
			Text:     EntryContract,
		},
	}, nil
}
