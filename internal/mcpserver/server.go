// Package mcpserver provides an MCP (Model Context Protocol) server
// that exposes one user's notes as tools over stdio.
package mcpserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/starford/notely/internal/apperr"
	"github.com/starford/notely/internal/noteservice"
	"github.com/starford/notely/internal/token"
)

// Server wraps the MCP server with note tools. Every tool acts as owner.
type Server struct {
	mcp   *server.MCPServer
	notes *noteservice.Service
	owner token.Identity
}

// New creates a new MCP server with all note tools registered.
func New(notes *noteservice.Service, owner token.Identity) *Server {
	s := &Server{notes: notes, owner: owner}

	s.mcp = server.NewMCPServer(
		"notely",
		"1.0.0",
		server.WithToolCapabilities(false),
	)

	s.mcp.AddTool(mcp.NewTool("list_notes",
		mcp.WithDescription("List your notes, newest first. All filters are optional and combine with AND."),
		mcp.WithString("tag", mcp.Description("Only notes carrying this exact tag")),
		mcp.WithString("title", mcp.Description("Case-insensitive substring of the title")),
		mcp.WithString("search", mcp.Description("Case-insensitive substring of the title or content")),
	), s.listNotes)

	s.mcp.AddTool(mcp.NewTool("get_note",
		mcp.WithDescription("Read a single note by id."),
		mcp.WithNumber("id", mcp.Required(), mcp.Description("Note id")),
	), s.getNote)

	s.mcp.AddTool(mcp.NewTool("create_note",
		mcp.WithDescription("Create a new note."),
		mcp.WithString("title", mcp.Required(), mcp.Description("Note title")),
		mcp.WithString("content", mcp.Required(), mcp.Description("Note body")),
		mcp.WithString("tags", mcp.Description("Comma-separated tag names")),
	), s.createNote)

	s.mcp.AddTool(mcp.NewTool("delete_note",
		mcp.WithDescription("Delete a note by id."),
		mcp.WithNumber("id", mcp.Required(), mcp.Description("Note id")),
	), s.deleteNote)

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

func optionalString(req mcp.CallToolRequest, key string) string {
	if v, err := req.RequireString(key); err == nil {
		return v
	}
	return ""
}

// toolError renders err as a tool failure without leaking internals.
func toolError(err error) *mcp.CallToolResult {
	switch {
	case errors.Is(err, apperr.ErrNotFound):
		return mcp.NewToolResultError("note not found")
	case errors.Is(err, apperr.ErrValidation):
		return mcp.NewToolResultError(apperr.Message(err, "invalid request"))
	default:
		return mcp.NewToolResultError("internal error")
	}
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("mcpserver: encode result: %w", err)
	}
	return mcp.NewToolResultText(string(out)), nil
}

func (s *Server) listNotes(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	notes, err := s.notes.List(ctx, s.owner.ID, noteservice.Filter{
		Tag:    optionalString(req, "tag"),
		Title:  optionalString(req, "title"),
		Search: optionalString(req, "search"),
	})
	if err != nil {
		return toolError(err), nil
	}
	return jsonResult(notes)
}

func (s *Server) getNote(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := noteID(req)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	note, err := s.notes.Get(ctx, s.owner.ID, id)
	if err != nil {
		return toolError(err), nil
	}
	return jsonResult(note)
}

func (s *Server) createNote(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	title, err := req.RequireString("title")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	content, err := req.RequireString("content")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	note, err := s.notes.Create(ctx, s.owner.ID, noteservice.NoteRequest{
		Title:   title,
		Content: content,
		Tags:    splitTags(optionalString(req, "tags")),
	})
	if err != nil {
		return toolError(err), nil
	}
	return jsonResult(note)
}

func (s *Server) deleteNote(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := noteID(req)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if err := s.notes.Delete(ctx, s.owner.ID, id); err != nil {
		return toolError(err), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("deleted: %d", id)), nil
}

// noteID reads the "id" argument. JSON numbers arrive as float64, so
// fractional values are rejected instead of truncated.
func noteID(req mcp.CallToolRequest) (int64, error) {
	f, err := req.RequireFloat("id")
	if err != nil {
		return 0, err
	}
	if f != math.Trunc(f) || f < 1 || f >= math.MaxInt64 {
		return 0, fmt.Errorf("id must be a positive whole number, got %v", f)
	}
	return int64(f), nil
}

// splitTags turns "a, b,,c" into [a b c].
func splitTags(raw string) []string {
	var tags []string
	for _, t := range strings.Split(raw, ",") {
		if t = strings.TrimSpace(t); t != "" {
			tags = append(tags, t)
		}
	}
	return tags
}
