// Package mcpserver provides an MCP (Model Context Protocol) server
// that exposes Daybook tools for LLM integration via stdio transport.
package mcpserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/starford/daybook/internal/apperr"
	"github.com/starford/daybook/internal/models"
	"github.com/starford/daybook/internal/notes"
)

const contractURI = "daybook://note-format"

// Session is the part of the orchestrator the tools use.
type Session interface {
	State() models.ReadState
	MutateNote(ctx context.Context, originalDate string, note models.Note) error
	DeleteNote(ctx context.Context, date string) error
	EditNote(ctx context.Context, date string, fn func(models.Note) (models.Note, error)) error
}

// Server wraps the MCP server with Daybook tools.
type Server struct {
	mcp  *server.MCPServer
	sess Session
}

// New creates a new MCP server with all Daybook tools registered.
func New(sess Session, version string) *Server {
	s := &Server{sess: sess}

	s.mcp = server.NewMCPServer(
		"Daybook",
		version,
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
	)

	s.mcp.AddTool(mcp.NewTool("list_notes",
		mcp.WithDescription("List journal days, newest first, with the headers of their content items."),
		mcp.WithString("from", mcp.Description("Optional inclusive lower bound, YYYYMMDD")),
		mcp.WithString("to", mcp.Description("Optional inclusive upper bound, YYYYMMDD")),
	), s.listNotes)

	s.mcp.AddTool(mcp.NewTool("read_note",
		mcp.WithDescription("Read one day's note as JSON."),
		mcp.WithString("date", mcp.Required(), mcp.Description("Date key, YYYYMMDD")),
	), s.readNote)

	s.mcp.AddTool(mcp.NewTool("upsert_content",
		mcp.WithDescription("Add a content item to a day, or replace the item with the given id. "+
			"Read the format via get_note_contract or the "+contractURI+" resource first."),
		mcp.WithString("date", mcp.Required(), mcp.Description("Date key, YYYYMMDD")),
		mcp.WithString("header", mcp.Description("Short title, at most 100 characters")),
		mcp.WithString("content", mcp.Description("Body text")),
		mcp.WithString("id", mcp.Description("Existing item id to replace; empty adds a new item")),
	), s.upsertContent)

	s.mcp.AddTool(mcp.NewTool("delete_note",
		mcp.WithDescription("Delete a whole day's note."),
		mcp.WithString("date", mcp.Required(), mcp.Description("Date key, YYYYMMDD")),
	), s.deleteNote)

	s.mcp.AddTool(mcp.NewTool("session_state",
		mcp.WithDescription("Report the bound file, encryption, and whether there are unsaved edits."),
	), s.sessionState)

	s.mcp.AddTool(mcp.NewTool("get_note_contract",
		mcp.WithDescription("Returns the Daybook note format. Call this before writing notes."),
	), s.getNoteContract)

	s.mcp.AddResource(
		mcp.NewResource(contractURI, "Note Format",
			mcp.WithResourceDescription("How journal notes and content items are shaped."),
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

func jsonResult(v any) *mcp.CallToolResult {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(err.Error())
	}
	return mcp.NewToolResultText(string(out))
}

type noteSummary struct {
	Date    string   `json:"date"`
	Headers []string `json:"headers"`
}

func (s *Server) listNotes(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	from := req.GetString("from", "")
	to := req.GetString("to", "")

	out := []noteSummary{}
	for _, n := range notes.SortByDateDesc(s.sess.State().Notes) {
		if (from != "" && n.Date < from) || (to != "" && n.Date > to) {
			continue
		}
		headers := make([]string, 0, len(n.Items))
		for _, it := range n.Items {
			headers = append(headers, it.Header)
		}
		out = append(out, noteSummary{Date: n.Date, Headers: headers})
	}
	return jsonResult(out), nil
}

func (s *Server) readNote(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	date, err := req.RequireString("date")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	c := s.sess.State().Notes
	i := c.Find(date)
	if i < 0 {
		return mcp.NewToolResultError(fmt.Sprintf("not found: %s", date)), nil
	}
	return jsonResult(c[i]), nil
}

func (s *Server) upsertContent(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	date, err := req.RequireString("date")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	item := models.ContentItem{
		ID:     strings.TrimSpace(req.GetString("id", "")),
		Header: req.GetString("header", ""),
		Body:   req.GetString("content", ""),
	}
	if item.ID == "" {
		item.ID = notes.NewContent().ID
		err = s.sess.EditNote(ctx, date, func(n models.Note) (models.Note, error) {
			return notes.AddContent(n, item), nil
		})
		if errors.Is(err, apperr.ErrNotFound) {
			n := notes.NewNote()
			n.Date = date
			n.Items = []models.ContentItem{item}
			err = s.sess.MutateNote(ctx, "", n)
		}
	} else {
		err = s.sess.EditNote(ctx, date, func(n models.Note) (models.Note, error) {
			return notes.UpdateContent(n, item.ID, item)
		})
	}
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(item), nil
}

func (s *Server) deleteNote(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	date, err := req.RequireString("date")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if err := s.sess.DeleteNote(ctx, date); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("deleted: %s", date)), nil
}

type stateSummary struct {
	DisplayName  string `json:"display_name"`
	NoteCount    int    `json:"note_count"`
	IsDirty      bool   `json:"is_dirty"`
	IsAutoSaving bool   `json:"is_auto_saving"`
	IsHandleLost bool   `json:"is_handle_lost"`
	IsEncrypted  bool   `json:"is_encrypted"`
	FileCapable  bool   `json:"file_capable"`
}

func (s *Server) sessionState(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	st := s.sess.State()
	return jsonResult(stateSummary{
		DisplayName:  st.DisplayName,
		NoteCount:    len(st.Notes),
		IsDirty:      st.IsDirty,
		IsAutoSaving: st.IsAutoSaving,
		IsHandleLost: st.IsHandleLost,
		IsEncrypted:  st.IsEncrypted,
		FileCapable:  st.FileCapable,
	}), nil
}

func (s *Server) getNoteContract(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultText(NoteFormatContract), nil
}

func (s *Server) readNoteFormatResource(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      contractURI,
			MIMEType: "text/markdown",
			Text:     NoteFormatContract,
		},
	}, nil
}
