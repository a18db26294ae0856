package mcpserver

import (
	"context"
	"fmt"

	"tabular/internal/extract"
	"tabular/internal/normalize"

	"github.com/mark3labs/mcp-go/mcp"
)

func (s *Server) registerExtractionTools() {
	s.mcp.AddTool(mcp.NewTool("extract_table",
		mcp.WithDescription("Extract a table from a document (PDF, image, CSV, text) and store it. Calls the configured model API, which is billed per request. Use get_table afterwards to read the rows."),
		mcp.WithString("documentPath", mcp.Description("Path to the source document"), mcp.Required()),
		mcp.WithString("instructions", mcp.Description("Extra extraction instructions, e.g. which table to pick on a multi-table page")),
		mcp.WithString("name", mcp.Description("Name for the stored table (defaults to the file name)")),
	), s.handleExtractTable)

	s.mcp.AddTool(mcp.NewTool("preview_extraction",
		mcp.WithDescription("Extract a table from a document without persisting anything. Returns the normalized rows, truncated to maxRows."),
		mcp.WithString("documentPath", mcp.Description("Path to the source document"), mcp.Required()),
		mcp.WithString("instructions", mcp.Description("Extra extraction instructions")),
		mcp.WithNumber("maxRows", mcp.Description("Maximum rows to return (default 10)")),
	), s.handlePreviewExtraction)

	s.mcp.AddTool(mcp.NewTool("normalize_records",
		mcp.WithDescription(`Normalize a JSON array of records into a typed table without calling the model: sanitizes column names, cleans values (thousands separators, null markers), and infers column types. Use this when you already have the raw records.`),
		mcp.WithString("recordsJSON", mcp.Description(`JSON array of objects, e.g. [{"Name": "a", "Amount": "1,200"}]`), mcp.Required()),
	), s.handleNormalizeRecords)
}

func (s *Server) handleExtractTable(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path := req.GetString("documentPath", "")
	if path == "" {
		return nil, fmt.Errorf("documentPath is required")
	}
	instructions := req.GetString("instructions", "")
	name := req.GetString("name", "")

	stored, err := s.extract.Extract(ctx, path, instructions, name)
	if err != nil {
		return nil, fmt.Errorf("extract table: %w", err)
	}

	// Rows stay behind get_table so large tables don't flood the response.
	return jsonResult(map[string]any{
		"id":          stored.ID,
		"name":        stored.Name,
		"rowCount":    stored.RowCount,
		"columns":     stored.Data.Columns,
		"columnTypes": stored.Data.ColumnTypes,
	})
}

func (s *Server) handlePreviewExtraction(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path := req.GetString("documentPath", "")
	if path == "" {
		return nil, fmt.Errorf("documentPath is required")
	}
	instructions := req.GetString("instructions", "")
	maxRows := int(getFloat(req.GetArguments(), "maxRows", 10))

	table, err := s.extract.Preview(ctx, path, instructions, maxRows)
	if err != nil {
		return nil, fmt.Errorf("preview extraction: %w", err)
	}
	return jsonResult(table)
}

func (s *Server) handleNormalizeRecords(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	recordsJSON := req.GetString("recordsJSON", "")
	if recordsJSON == "" {
		return nil, fmt.Errorf("recordsJSON is required")
	}

	records, err := extract.ParseRecords(recordsJSON)
	if err != nil {
		return nil, fmt.Errorf("parse records: %w", err)
	}
	return jsonResult(normalize.Table(records))
}
