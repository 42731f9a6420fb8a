// Package mcpserver provides an MCP (Model Context Protocol) server
// that exposes the notes client as tools for LLM integration via stdio transport.
package mcpserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/starford/notegate/internal/controller"
	"github.com/starford/notegate/internal/view"
)

const stateURI = "notegate://state"

// Controller is the subset of the sync controller exposed as tools.
type Controller interface {
	Snapshot() controller.Snapshot
	WaitIdle(ctx context.Context) (controller.Snapshot, error)
	Refresh()
	Probe()
	Reload()
	CreateNote(title, content string)
	LoginURL() string
}

// Server wraps the MCP server with notegate tools.
type Server struct {
	mcp     *server.MCPServer
	ctrl    Controller
	timeout time.Duration
}

// New creates a new MCP server with all tools registered. Each tool waits at
// most timeout for the controller to settle.
func New(ctrl Controller, timeout time.Duration) *Server {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	s := &Server{ctrl: ctrl, timeout: timeout}

	s.mcp = server.NewMCPServer(
		"notegate",
		"1.0.0",
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
	)

	s.mcp.AddTool(mcp.NewTool("session_status",
		mcp.WithDescription("Report whether the backend session is authenticated, with subject and scopes when known."),
	), s.sessionStatus)

	s.mcp.AddTool(mcp.NewTool("probe_session",
		mcp.WithDescription("Ask the backend again whether the session is authenticated. "+
			"An authenticated result reloads the notes."),
	), s.probeSession)

	s.mcp.AddTool(mcp.NewTool("list_notes",
		mcp.WithDescription("List the current notes in server order. Requires an authenticated session."),
	), s.listNotes)

	s.mcp.AddTool(mcp.NewTool("refresh_notes",
		mcp.WithDescription("Reload the notes collection from the backend and list it."),
	), s.refreshNotes)

	s.mcp.AddTool(mcp.NewTool("create_note",
		mcp.WithDescription("Create a note. The title must not be blank. "+
			"The notes are reloaded after a successful create."),
		mcp.WithString("title", mcp.Required(), mcp.Description("Note title")),
		mcp.WithString("content", mcp.Description("Note body")),
	), s.createNote)

	s.mcp.AddTool(mcp.NewTool("login_url",
		mcp.WithDescription("Return the URL a user must open in a browser to sign in. "+
			"Call reload_session after signing in."),
	), s.loginURL)

	s.mcp.AddTool(mcp.NewTool("reload_session",
		mcp.WithDescription("Discard client state and probe the session again, as after completing a login."),
	), s.reloadSession)

	s.mcp.AddResource(
		mcp.NewResource(stateURI, "Client State",
			mcp.WithResourceDescription("Current session and notes view as JSON."),
			mcp.WithMIMEType("application/json"),
		),
		s.readStateResource,
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

// settle waits for in-flight operations and projects the result.
func (s *Server) settle(ctx context.Context) (controller.Snapshot, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	return s.ctrl.WaitIdle(ctx)
}

// outcome reports why an operation started after before did not take
// effect by after.
func outcome(before, after controller.Snapshot, fallback string) error {
	if after.Generation != before.Generation {
		return errors.New("session was reloaded before the operation finished")
	}
	if err := after.Err(); err != nil {
		if after.Banner != "" {
			return errors.New(after.Banner)
		}
		return err
	}
	return errors.New(fallback)
}

func jsonText(v any) *mcp.CallToolResult {
	out, _ := json.MarshalIndent(v, "", "  ")
	return mcp.NewToolResultText(string(out))
}

func formatNotes(notes []view.Note) string {
	if len(notes) == 0 {
		return "no notes"
	}
	lines := make([]string, 0, len(notes))
	for _, n := range notes {
		lines = append(lines, fmt.Sprintf("%s\t%s", n.ID, n.Title))
	}
	return strings.Join(lines, "\n")
}

func (s *Server) sessionStatus(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	snap, err := s.settle(ctx)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	v := view.Project(snap)
	return jsonText(map[string]any{"phase": v.Phase, "session": v.Session}), nil
}

func (s *Server) probeSession(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	s.ctrl.Probe()
	return s.sessionStatus(ctx, req)
}

func (s *Server) listNotes(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	snap, err := s.settle(ctx)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return notesResult(view.Project(snap)), nil
}

func notesResult(v view.View) *mcp.CallToolResult {
	if !v.ShowNotes {
		return mcp.NewToolResultError(controller.LoginPromptMessage + " Use login_url.")
	}
	return mcp.NewToolResultText(formatNotes(v.Notes))
}

func (s *Server) refreshNotes(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	before, err := s.settle(ctx)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if !before.Auth.IsAuthenticated() {
		return notesResult(view.Project(before)), nil
	}

	s.ctrl.Refresh()
	after, err := s.settle(ctx)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if after.Generation != before.Generation || after.Listed <= before.Listed {
		return mcp.NewToolResultError(outcome(before, after, "notes were not reloaded").Error()), nil
	}
	return notesResult(view.Project(after)), nil
}

func (s *Server) createNote(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	title, err := req.RequireString("title")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	content := req.GetString("content", "")

	before, err := s.settle(ctx)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	s.ctrl.CreateNote(title, content)
	after, err := s.settle(ctx)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if after.Generation != before.Generation || after.Created <= before.Created {
		return mcp.NewToolResultError(outcome(before, after, "note was not created").Error()), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("created: %s (%d notes)", strings.TrimSpace(title), len(after.Notes))), nil
}

func (s *Server) loginURL(_ context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultText(s.ctrl.LoginURL()), nil
}

func (s *Server) reloadSession(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	s.ctrl.Reload()
	return s.sessionStatus(ctx, req)
}

func (s *Server) readStateResource(_ context.Context, _ mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	out, err := json.Marshal(view.Project(s.ctrl.Snapshot()))
	if err != nil {
		return nil, err
	}
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      stateURI,
			MIMEType: "application/json",
			Text:     string(out),
		},
	}, nil
}
