// Package mcpserver provides an MCP (Model Context Protocol) server
// that exposes Ansuz tools for LLM integration via stdio transport.
package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/starford/ansuz/internal/exportfs"
	"github.com/starford/ansuz/internal/markdown"
	"github.com/starford/ansuz/internal/noteservice"
)

// Server wraps the MCP server with Ansuz tools.
type Server struct {
	mcp   *server.MCPServer
	svc   *noteservice.Service
	files *exportfs.Dir
}

// New creates a new MCP server with all Ansuz tools registered. files may
// be nil; the upload_media tool then reports that uploads are disabled.
func New(svc *noteservice.Service, files *exportfs.Dir) *Server {
	s := &Server{svc: svc, files: files}

	s.mcp = server.NewMCPServer(
		"Ansuz",
		"1.0.0",
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
	)

	s.mcp.AddTool(mcp.NewTool("list_notes",
		mcp.WithDescription("List all notes with their ids, titles, and last update time."),
	), s.listNotes)

	s.mcp.AddTool(mcp.NewTool("read_note",
		mcp.WithDescription("Render a note as Markdown. Nesting depth maps to heading levels."),
		mcp.WithString("id", mcp.Required(), mcp.Description("Note id")),
		mcp.WithString("mode", mcp.Description("Layout: hierarchical (default) or flat")),
	), s.readNote)

	s.mcp.AddTool(mcp.NewTool("export_note_yaml",
		mcp.WithDescription("Export a note as an interchange YAML document. Block nesting is "+
			"expressed through children lists and cross-references through [[Title|id]] tokens. "+
			"Read the contract first via the get_note_contract tool or the ansuz://note-format resource."),
		mcp.WithString("id", mcp.Required(), mcp.Description("Note id")),
	), s.exportNoteYAML)

	s.mcp.AddTool(mcp.NewTool("import_note_yaml",
		mcp.WithDescription("Create or replace a note from an interchange YAML document. "+
			"The document MUST follow the canonical note format (see get_note_contract). "+
			"A structurally invalid document is rejected with the full validation report "+
			"unless force is set."),
		mcp.WithString("yaml", mcp.Required(), mcp.Description("Interchange YAML document")),
		mcp.WithString("id", mcp.Description("Existing note id to replace (empty to create a new note)")),
		mcp.WithBoolean("force", mcp.Description("Apply despite validation errors")),
	), s.importNoteYAML)

	s.mcp.AddTool(mcp.NewTool("find_invalid_refs",
		mcp.WithDescription("List references in a note that point at missing or non-leaf blocks."),
		mcp.WithString("id", mcp.Required(), mcp.Description("Note id")),
	), s.findInvalidRefs)

	s.mcp.AddTool(mcp.NewTool("get_note_contract",
		mcp.WithDescription("Returns the canonical Ansuz interchange format contract. "+
			"Call this before creating or importing notes to ensure correct structure."),
	), s.getNoteContract)

	s.mcp.AddTool(mcp.NewTool("upload_media",
		mcp.WithDescription("Download or decode a media file and store it for use in media blocks. "+
			"Returns the src_url to put in the block, the block kind it belongs in "+
			"(image, audio, video or file), and an equivalent Markdown snippet."),
		mcp.WithString("url", mcp.Required(), mcp.Description("HTTP(S) URL or base64 data URI")),
		mcp.WithString("filename", mcp.Description("Optional filename override")),
	), s.uploadMedia)

	// Resource: interchange format contract.
	s.mcp.AddResource(
		mcp.NewResource("ansuz://note-format", "Note Format Contract",
			mcp.WithResourceDescription("Canonical interchange YAML format that all imported notes must follow."),
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

func (s *Server) listNotes(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	notes, err := s.svc.ListNotes(ctx)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	out, _ := json.MarshalIndent(notes, "", "  ")
	return mcp.NewToolResultText(string(out)), nil
}

func (s *Server) readNote(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := req.RequireString("id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	mode := markdown.ModeHierarchical
	if m := req.GetString("mode", ""); m == string(markdown.ModeFlat) {
		mode = markdown.ModeFlat
	}
	out, err := s.svc.ExportMarkdown(ctx, id, mode)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("not found: %s", id)), nil
	}
	return mcp.NewToolResultText(string(out.Data)), nil
}

func (s *Server) exportNoteYAML(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := req.RequireString("id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	out, err := s.svc.ExportYAML(ctx, id)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("not found: %s", id)), nil
	}
	return mcp.NewToolResultText(string(out.Data)), nil
}

func (s *Server) importNoteYAML(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	doc, err := req.RequireString("yaml")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	id := req.GetString("id", "")
	force := req.GetBool("force", false)

	if id != "" {
		res, report, impErr := s.svc.ImportYAML(ctx, id, []byte(doc), force)
		if impErr != nil {
			return mcp.NewToolResultError(impErr.Error()), nil
		}
		if res == nil {
			out, _ := json.MarshalIndent(report, "", "  ")
			return mcp.NewToolResultError("validation failed:\n" + string(out)), nil
		}
		return mcp.NewToolResultText(fmt.Sprintf("replaced: %s", id)), nil
	}

	note, report, impErr := s.svc.ImportNewYAML(ctx, []byte(doc), force)
	if impErr != nil {
		return mcp.NewToolResultError(impErr.Error()), nil
	}
	if note == nil {
		out, _ := json.MarshalIndent(report, "", "  ")
		return mcp.NewToolResultError("validation failed:\n" + string(out)), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("created: %s", note.ID)), nil
}

func (s *Server) findInvalidRefs(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := req.RequireString("id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	invalid, err := s.svc.InvalidRefs(ctx, id)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("not found: %s", id)), nil
	}
	if len(invalid) == 0 {
		return mcp.NewToolResultText("no invalid references"), nil
	}
	out, _ := json.MarshalIndent(invalid, "", "  ")
	return mcp.NewToolResultText(string(out)), nil
}

func (s *Server) getNoteContract(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultText(NoteFormatContract), nil
}

func (s *Server) readNoteFormatResource(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      "ansuz://note-format",
			MIMEType: "text/markdown",
			Text:     NoteFormatContract,
		},
	}, nil
}
