package mcpserver

import (
	"context"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
)

func (s *Server) registerPrompts() {
	s.mcp.AddPrompt(mcp.NewPrompt("extract_and_export",
		mcp.WithPromptDescription("Guide through extracting a table from a document and delivering it to a database"),
		mcp.WithArgument("documentPath",
			mcp.ArgumentDescription("Path to the source document"),
			mcp.RequiredArgument(),
		),
		mcp.WithArgument("target",
			mcp.ArgumentDescription("Where the data should end up (e.g. postgres warehouse, local sqlite file)"),
			mcp.RequiredArgument(),
		),
	), s.handleExtractAndExportPrompt)

	s.mcp.AddPrompt(mcp.NewPrompt("recurring_extraction",
		mcp.WithPromptDescription("Set up a scheduled extraction job that keeps a table fresh from a changing document"),
		mcp.WithArgument("documentPath",
			mcp.ArgumentDescription("Path to the source document"),
			mcp.RequiredArgument(),
		),
		mcp.WithArgument("schedule",
			mcp.ArgumentDescription("How often to re-extract (e.g. every hour, daily at 6am, on file change)"),
			mcp.RequiredArgument(),
		),
	), s.handleRecurringExtractionPrompt)
}

func (s *Server) handleExtractAndExportPrompt(ctx context.Context, req mcp.GetPromptRequest) (*mcp.GetPromptResult, error) {
	documentPath := req.Params.Arguments["documentPath"]
	target := req.Params.Arguments["target"]
	return &mcp.GetPromptResult{
		Description: fmt.Sprintf("Extract %s and export to %s", documentPath, target),
		Messages: []mcp.PromptMessage{
			{
				Role: mcp.RoleUser,
				Content: mcp.TextContent{
					Type: "text",
					Text: fmt.Sprintf(`Extract the table from "%s" and deliver it to %s. Follow these steps:

1. First, use preview_extraction to check what the document contains and whether the columns look right
2. If the preview looks wrong, retry with an instructions hint describing which table to pick
3. Run extract_table to store the full result
4. Check list_connections for an existing connection matching the target; otherwise create one with create_connection
5. Use test_connection to confirm the database is reachable
6. Export with export_table, choosing a clear target table name and replace mode unless the user wants to accumulate data

Report the stored table ID and how many rows were written.`, documentPath, target),
				},
			},
		},
	}, nil
}

func (s *Server) handleRecurringExtractionPrompt(ctx context.Context, req mcp.GetPromptRequest) (*mcp.GetPromptResult, error) {
	documentPath := req.Params.Arguments["documentPath"]
	schedule := req.Params.Arguments["schedule"]
	return &mcp.GetPromptResult{
		Description: fmt.Sprintf("Keep %s extracted %s", documentPath, schedule),
		Messages: []mcp.PromptMessage{
			{
				Role: mcp.RoleUser,
				Content: mcp.TextContent{
					Type: "text",
					Text: fmt.Sprintf(`Set up a recurring extraction for "%s" running %s. Follow these steps:

1. Use preview_extraction once to confirm the document parses into the expected columns
2. Create the job with create_extraction_job:
   - triggerType "schedule" with a cron expression in triggerConfig, or "file_watch" if it should re-run on every save
   - a descriptive name and tableName so the stored table is easy to find
   - optionally sinkId/sinkTable so each run also delivers to a database
3. Run it once immediately with run_extraction_job to verify the full pipeline
4. Check list_run_logs to confirm the run succeeded and note the row counts

The job will keep re-extracting on its trigger; the stored table is always the latest result.`, documentPath, schedule),
				},
			},
		},
	}, nil
}
