package mcpserver

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log"

	"tabular/internal/service"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// Server is the MCP server for the extraction pipeline. It exposes tools,
// resources, and prompts so AI agents can extract tables from documents,
// inspect stored results, and push them to external databases.
type Server struct {
	mcp      *server.MCPServer
	emitter  EventEmitter
	approval *ApprovalQueue

	// Services (injected from app layer)
	extract *service.ExtractService
	export  *service.ExportService
}

// Deps holds all dependencies passed from the app layer to the MCP server.
type Deps struct {
	Emitter    EventEmitter
	Extract    *service.ExtractService
	Export     *service.ExportService
	ApprovalDB *sql.DB // When set, use SQLite-based approval (standalone mode)
}

// New creates and configures a new MCP server with all tools and resources.
func New(ctx context.Context, deps Deps) *Server {
	approval := NewApprovalQueue(ctx, deps.Emitter)
	if deps.ApprovalDB != nil {
		approval.SetDB(deps.ApprovalDB)
	}
	s := &Server{
		emitter:  deps.Emitter,
		approval: approval,
		extract:  deps.Extract,
		export:   deps.Export,
	}

	s.mcp = server.NewMCPServer(
		"tabular-mcp",
		"1.0.0",
		server.WithToolCapabilities(true),
		server.WithResourceCapabilities(true, false),
		server.WithPromptCapabilities(true),
	)

	s.registerExtractionTools()
	s.registerTableTools()
	s.registerJobTools()
	s.registerExportTools()
	s.registerResources()
	s.registerPrompts()

	return s
}

// ServeStdio starts the MCP server on stdin/stdout.
func (s *Server) ServeStdio() error {
	log.Println("[MCP] Starting stdio server...")
	return server.ServeStdio(s.mcp)
}

// Approve forwards a user approval to the approval queue.
func (s *Server) Approve(actionID string) {
	s.approval.Approve(actionID)
}

// Reject forwards a user rejection to the approval queue.
func (s *Server) Reject(actionID string) {
	s.approval.Reject(actionID)
}

// Emit implements EventEmitter by forwarding lifecycle events to all
// connected clients as MCP notifications.
func (s *Server) Emit(_ context.Context, event string, data any) {
	params := map[string]any{}
	if data != nil {
		if b, err := json.Marshal(data); err == nil {
			_ = json.Unmarshal(b, &params)
		}
	}
	s.mcp.SendNotificationToAllClients(event, params)
}

// ── Helpers ────────────────────────────────────────────────

// textResult creates a simple text tool result.
func textResult(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.TextContent{Type: "text", Text: text},
		},
	}
}

// jsonResult serializes v to JSON and wraps it in a text tool result.
func jsonResult(v any) (*mcp.CallToolResult, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal result: %w", err)
	}
	return textResult(string(data)), nil
}
