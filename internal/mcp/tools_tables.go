package mcpserver

import (
	"context"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
)

func (s *Server) registerTableTools() {
	s.mcp.AddTool(mcp.NewTool("list_tables",
		mcp.WithDescription("List all stored tables with their metadata (no row data)"),
	), s.handleListTables)

	s.mcp.AddTool(mcp.NewTool("get_table",
		mcp.WithDescription("Get a stored table including columns, inferred types, and all rows"),
		mcp.WithString("tableId", mcp.Description("Table ID"), mcp.Required()),
	), s.handleGetTable)

	s.mcp.AddTool(mcp.NewTool("delete_table",
		mcp.WithDescription("🛑 DESTRUCTIVE: Delete a stored table. Requires user approval."),
		mcp.WithString("tableId", mcp.Description("Table ID"), mcp.Required()),
		mcp.WithToolAnnotation(mcp.ToolAnnotation{DestructiveHint: boolPtr(true)}),
	), s.handleDeleteTable)
}

func (s *Server) handleListTables(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	tables, err := s.extract.ListTables()
	if err != nil {
		return nil, fmt.Errorf("list tables: %w", err)
	}
	return jsonResult(tables)
}

func (s *Server) handleGetTable(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	tableID := req.GetString("tableId", "")
	if tableID == "" {
		return nil, fmt.Errorf("tableId is required")
	}
	table, err := s.extract.GetTable(tableID)
	if err != nil {
		return nil, fmt.Errorf("get table: %w", err)
	}
	return jsonResult(table)
}

func (s *Server) handleDeleteTable(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	tableID := req.GetString("tableId", "")
	if tableID == "" {
		return nil, fmt.Errorf("tableId is required")
	}

	approved, err := s.approval.Request("delete_table",
		fmt.Sprintf("Delete stored table %s", tableID))
	if err != nil || !approved {
		return textResult("Action rejected by user"), nil
	}

	if err := s.extract.DeleteTable(tableID); err != nil {
		return nil, fmt.Errorf("delete table: %w", err)
	}
	return textResult(fmt.Sprintf("Table %s deleted", tableID)), nil
}
