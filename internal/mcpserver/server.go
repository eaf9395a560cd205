// Package mcpserver provides an MCP (Model Context Protocol) server
// that exposes quill tools for LLM integration via stdio transport.
package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/starford/quill/internal/filter"
	"github.com/starford/quill/internal/noteservice"
)

const contractURI = "quill://note-format"

// Server wraps the MCP server with quill tools.
type Server struct {
	mcp *server.MCPServer
	svc *noteservice.Service
}

// New creates a new MCP server with all quill tools registered.
func New(svc *noteservice.Service, version string) *Server {
	s := &Server{svc: svc}

	s.mcp = server.NewMCPServer(
		"Quill",
		version,
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
	)

	s.mcp.AddTool(mcp.NewTool("list_categories",
		mcp.WithDescription("List note categories with their note counts, newest first."),
		mcp.WithString("match", mcp.Description("Optional glob on the category title, e.g. \"go*\"")),
	), s.listCategories)

	s.mcp.AddTool(mcp.NewTool("list_notes",
		mcp.WithDescription("List the notes of a category with their titles and descriptions."),
		mcp.WithString("category", mcp.Required(), mcp.Description("Category title")),
		mcp.WithString("match", mcp.Description("Optional glob on the note title")),
		mcp.WithString("since", mcp.Description("Only notes modified since this date or span (e.g. 2024-01-31, 7d, 36h)")),
	), s.listNotes)

	s.mcp.AddTool(mcp.NewTool("read_note",
		mcp.WithDescription("Read the full content of a note, header included."),
		mcp.WithString("category", mcp.Required(), mcp.Description("Category title")),
		mcp.WithString("title", mcp.Required(), mcp.Description("Note title")),
	), s.readNote)

	s.mcp.AddTool(mcp.NewTool("search_notes",
		mcp.WithDescription("Search note titles, descriptions and bodies."),
		mcp.WithString("query", mcp.Required(), mcp.Description("Search query string")),
		mcp.WithNumber("limit", mcp.Description("Max results (default 20)")),
	), s.searchNotes)

	s.mcp.AddTool(mcp.NewTool("create_category",
		mcp.WithDescription("Create a new, empty category."),
		mcp.WithString("title", mcp.Required(), mcp.Description("Category title; becomes a directory name")),
	), s.createCategory)

	s.mcp.AddTool(mcp.NewTool("create_note",
		mcp.WithDescription("Create a note in a category. The header is written from title and "+
			"description; read the contract first via the get_note_contract tool or the "+
			contractURI+" resource."),
		mcp.WithString("category", mcp.Required(), mcp.Description("Existing category title")),
		mcp.WithString("title", mcp.Required(), mcp.Description("Single-line note title")),
		mcp.WithString("description", mcp.Description("Optional single-line description")),
	), s.createNote)

	s.mcp.AddTool(mcp.NewTool("get_note_contract",
		mcp.WithDescription("Returns the quill note format contract. "+
			"Call this before creating notes to understand how they are stored."),
	), s.getNoteContract)

	s.mcp.AddResource(
		mcp.NewResource(contractURI, "Note Format Contract",
			mcp.WithResourceDescription("Header format every note must follow."),
			mcp.WithMIMEType("text/markdown"),
		),
		s.readNoteFormatResource,
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

func toolError(err error) *mcp.CallToolResult {
	return mcp.NewToolResultError(err.Error())
}

// rescan re-reads the tree so edits made outside the server since the last
// call are visible. It returns a tool error result on failure.
func (s *Server) rescan(ctx context.Context) *mcp.CallToolResult {
	if err := s.svc.Refresh(ctx); err != nil {
		return toolError(err)
	}
	return nil
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, err
	}
	return mcp.NewToolResultText(string(out)), nil
}

func (s *Server) listCategories(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	match, err := filter.Glob(req.GetString("match", ""))
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if res := s.rescan(ctx); res != nil {
		return res, nil
	}
	cats, err := s.svc.Categories(ctx, noteservice.OrderModified, match)
	if err != nil {
		return toolError(err), nil
	}
	return jsonResult(cats)
}

func (s *Server) listNotes(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	category, err := req.RequireString("category")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	match, err := filter.Glob(req.GetString("match", ""))
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	since, err := filter.ParseSince(req.GetString("since", ""), time.Now())
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if res := s.rescan(ctx); res != nil {
		return res, nil
	}
	notes, err := s.svc.Notes(ctx, category, noteservice.OrderModified, match, since)
	if err != nil {
		return toolError(err), nil
	}
	return jsonResult(notes)
}

func (s *Server) readNote(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	category, err := req.RequireString("category")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	title, err := req.RequireString("title")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if res := s.rescan(ctx); res != nil {
		return res, nil
	}
	note, err := s.svc.Content(ctx, category, title)
	if err != nil {
		return toolError(err), nil
	}
	return mcp.NewToolResultText(note.Content), nil
}

func (s *Server) searchNotes(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	query, err := req.RequireString("query")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if res := s.rescan(ctx); res != nil {
		return res, nil
	}
	results, err := s.svc.Search(ctx, query, req.GetInt("limit", 20))
	if err != nil {
		return toolError(err), nil
	}
	return jsonResult(results)
}

func (s *Server) createCategory(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	title, err := req.RequireString("title")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	c, err := s.svc.CreateCategory(ctx, title)
	if err != nil {
		return toolError(err), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("created: %s", c.Title)), nil
}

func (s *Server) createNote(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	category, err := req.RequireString("category")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	title, err := req.RequireString("title")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	n, err := s.svc.CreateNote(ctx, category, title, req.GetString("description", ""))
	if err != nil {
		return toolError(err), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("created: %s/%s", n.Category, n.Title)), nil
}

func (s *Server) getNoteContract(_ context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultText(NoteFormatContract), nil
}

func (s *Server) readNoteFormatResource(_ context.Context, _ mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      contractURI,
			MIMEType: "text/markdown",
			Text:     NoteFormatContract,
		},
	}, nil
}
