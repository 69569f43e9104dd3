// Package mcp exposes the note service as Model Context Protocol tools.
package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"time"

	"github.com/ViniZap4/lumi-notes/domain"
	"github.com/ViniZap4/lumi-notes/notes"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// NewServer registers the note tools. Every call runs with token.
func NewServer(svc *notes.Service, token string) *server.MCPServer {
	s := server.NewMCPServer(
		"lumi-notes",
		"1.0.0",
		server.WithToolCapabilities(true),
	)
	t := tools{svc: svc, token: token}

	s.AddTool(
		mcp.NewTool("create_note",
			mcp.WithDescription("Create a note and return its id."),
			mcp.WithString("text",
				mcp.Required(),
				mcp.Description("Note text (markdown is fine)"),
			),
		),
		t.create,
	)

	s.AddTool(
		mcp.NewTool("get_note",
			mcp.WithDescription("Get a note's text by id."),
			mcp.WithNumber("id", mcp.Required(), mcp.Description("Note id")),
		),
		t.get,
	)

	s.AddTool(
		mcp.NewTool("get_note_info",
			mcp.WithDescription("Get a note's creation and last update time."),
			mcp.WithNumber("id", mcp.Required(), mcp.Description("Note id")),
		),
		t.info,
	)

	s.AddTool(
		mcp.NewTool("update_note",
			mcp.WithDescription("Replace a note's text."),
			mcp.WithNumber("id", mcp.Required(), mcp.Description("Note id")),
			mcp.WithString("text", mcp.Required(), mcp.Description("New text")),
		),
		t.update,
	)

	s.AddTool(
		mcp.NewTool("delete_note",
			mcp.WithDescription("Delete a note permanently."),
			mcp.WithNumber("id", mcp.Required(), mcp.Description("Note id")),
		),
		t.delete,
	)

	s.AddTool(
		mcp.NewTool("list_notes",
			mcp.WithDescription("List the ids of all notes."),
		),
		t.list,
	)

	return s
}

type tools struct {
	svc   *notes.Service
	token string
}

type noteResult struct {
	ID        int64     `json:"id"`
	Text      string    `json:"text"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (t tools) create(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	text, err := req.RequireString("text")
	if err != nil {
		return mcp.NewToolResultError("text is required"), nil
	}

	note, err := t.svc.Create(ctx, t.token, text)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to create note: %v", err)), nil
	}
	return jsonResult(map[string]int64{"id": note.ID})
}

func (t tools) get(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := noteID(req)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	note, err := t.svc.Read(ctx, t.token, id)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to get note: %v", err)), nil
	}
	return jsonResult(noteResult{ID: note.ID, Text: note.Text, CreatedAt: note.CreatedAt, UpdatedAt: note.UpdatedAt})
}

func (t tools) info(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := noteID(req)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	info, err := t.svc.Info(ctx, t.token, id)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to get note info: %v", err)), nil
	}
	return jsonResult(info)
}

func (t tools) update(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := noteID(req)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	text, err := req.RequireString("text")
	if err != nil {
		return mcp.NewToolResultError("text is required"), nil
	}

	note, err := t.svc.Update(ctx, t.token, id, text)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to update note: %v", err)), nil
	}
	return jsonResult(noteResult{ID: note.ID, Text: note.Text, CreatedAt: note.CreatedAt, UpdatedAt: note.UpdatedAt})
}

func (t tools) delete(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := noteID(req)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	if err := t.svc.Delete(ctx, t.token, id); err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to delete note: %v", err)), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("note %d deleted", id)), nil
}

func (t tools) list(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	ids, err := t.svc.List(ctx, t.token)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to list notes: %v", err)), nil
	}
	return jsonResult(map[string][]int64{"notes": ids})
}

// noteID reads the id argument, rejecting anything but a positive whole
// number.
func noteID(req mcp.CallToolRequest) (int64, error) {
	raw, err := req.RequireFloat("id")
	if err != nil {
		return 0, fmt.Errorf("%w: %v", domain.ErrInvalidID, err)
	}
	if raw != math.Trunc(raw) || raw < 1 || raw >= math.MaxInt64 {
		return 0, fmt.Errorf("%w: %v", domain.ErrInvalidID, raw)
	}
	return int64(raw), nil
}

func jsonResult(v interface{}) (*mcp.CallToolResult, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, err
	}
	return mcp.NewToolResultText(string(data)), nil
}
