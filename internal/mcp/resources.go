package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
)

func (s *Server) registerResources() {
	// ── tabular://tables ───────────────────────────────
	s.mcp.AddResource(mcp.NewResource(
		"tabular://tables",
		"All Stored Tables",
		mcp.WithMIMEType("application/json"),
	), s.handleTablesResource)

	// ── tabular://jobs ─────────────────────────────────
	s.mcp.AddResource(mcp.NewResource(
		"tabular://jobs",
		"All Extraction Jobs",
		mcp.WithMIMEType("application/json"),
	), s.handleJobsResource)

	// ── tabular://table/{tableId} ──────────────────────
	s.mcp.AddResourceTemplate(
		mcp.NewResourceTemplate(
			"tabular://table/{tableId}",
			"Stored Table Data",
		),
		s.handleTableResource,
	)
}

func (s *Server) handleTablesResource(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	tables, err := s.extract.ListTables()
	if err != nil {
		return nil, err
	}

	type tableSummary struct {
		ID       string `json:"id"`
		Name     string `json:"name"`
		RowCount int    `json:"rowCount"`
	}

	var summaries []tableSummary
	for _, t := range tables {
		summaries = append(summaries, tableSummary{ID: t.ID, Name: t.Name, RowCount: t.RowCount})
	}

	data, _ := json.MarshalIndent(summaries, "", "  ")
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      "tabular://tables",
			MIMEType: "application/json",
			Text:     string(data),
		},
	}, nil
}

func (s *Server) handleJobsResource(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	jobs, err := s.extract.ListJobs()
	if err != nil {
		return nil, err
	}

	data, _ := json.MarshalIndent(jobs, "", "  ")
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      "tabular://jobs",
			MIMEType: "application/json",
			Text:     string(data),
		},
	}, nil
}

func (s *Server) handleTableResource(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	uri := req.Params.URI
	tableID := strings.TrimPrefix(uri, "tabular://table/")
	if tableID == "" || tableID == uri {
		return nil, fmt.Errorf("could not extract tableId from URI: %s", uri)
	}

	table, err := s.extract.GetTable(tableID)
	if err != nil {
		return nil, err
	}

	data, _ := json.MarshalIndent(table, "", "  ")
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      uri,
			MIMEType: "application/json",
			Text:     string(data),
		},
	}, nil
}
