package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"

	"tabular/internal/service"

	"github.com/mark3labs/mcp-go/mcp"
)

const transformsDoc = `Optional JSON array of transforms applied after normalization, in order. Each transform has {type, config}. Available types:
- filter: {field, op (eq|neq|gt|lt|contains), value} — drop rows not matching condition
- rename: {mapping: {oldName: newName}} — rename columns
- select: {fields: ["col1","col2"]} — keep only specified columns
- sort: {field, direction (asc|desc)} — sort rows
- limit: {count} — cap number of rows
- dedupe: {field} — keep the first row per value
Example: [{"type":"filter","config":{"field":"Amount","op":"gt","value":100}},{"type":"sort","config":{"field":"Amount","direction":"desc"}}]`

func (s *Server) registerJobTools() {
	s.mcp.AddTool(mcp.NewTool("create_extraction_job",
		mcp.WithDescription("Create a recurring extraction job (document → stored table, optionally → database sink). Jobs run manually, on a cron schedule, or when the source file changes."),
		mcp.WithString("name", mcp.Description("Job name (defaults to the source file name)")),
		mcp.WithString("sourcePath", mcp.Description("Path to the source document"), mcp.Required()),
		mcp.WithString("instructions", mcp.Description("Extra extraction instructions")),
		mcp.WithString("transformsJSON", mcp.Description(transformsDoc)),
		mcp.WithString("tableName", mcp.Description("Name for the stored result table")),
		mcp.WithString("sinkId", mcp.Description("Export connection ID to deliver results to (optional)")),
		mcp.WithString("sinkTable", mcp.Description("Target table/collection name in the sink")),
		mcp.WithString("writeMode", mcp.Description("Sink write mode: replace (default) or append")),
		mcp.WithString("triggerType", mcp.Description("manual (default), schedule, or file_watch")),
		mcp.WithString("triggerConfig", mcp.Description("Cron expression for schedule, watched path for file_watch (defaults to sourcePath)")),
		mcp.WithBoolean("enabled", mcp.Description("Whether schedule/file_watch triggers are active (default true)")),
	), s.handleCreateJob)

	s.mcp.AddTool(mcp.NewTool("update_extraction_job",
		mcp.WithDescription("Replace an extraction job's configuration. All fields must be re-specified; omitted ones reset to their defaults."),
		mcp.WithString("jobId", mcp.Description("Job ID"), mcp.Required()),
		mcp.WithString("name", mcp.Description("Job name")),
		mcp.WithString("sourcePath", mcp.Description("Path to the source document"), mcp.Required()),
		mcp.WithString("instructions", mcp.Description("Extra extraction instructions")),
		mcp.WithString("transformsJSON", mcp.Description(transformsDoc)),
		mcp.WithString("tableName", mcp.Description("Name for the stored result table")),
		mcp.WithString("sinkId", mcp.Description("Export connection ID")),
		mcp.WithString("sinkTable", mcp.Description("Target table/collection name in the sink")),
		mcp.WithString("writeMode", mcp.Description("replace or append")),
		mcp.WithString("triggerType", mcp.Description("manual, schedule, or file_watch")),
		mcp.WithString("triggerConfig", mcp.Description("Cron expression or watched path")),
		mcp.WithBoolean("enabled", mcp.Description("Whether triggers are active")),
	), s.handleUpdateJob)

	s.mcp.AddTool(mcp.NewTool("list_extraction_jobs",
		mcp.WithDescription("List all extraction jobs with their trigger and last-run status"),
	), s.handleListJobs)

	s.mcp.AddTool(mcp.NewTool("run_extraction_job",
		mcp.WithDescription("🛑 DESTRUCTIVE: Execute an extraction job now. Calls the model API and may overwrite the stored table and sink data. Requires user approval."),
		mcp.WithString("jobId", mcp.Description("Job ID"), mcp.Required()),
		mcp.WithToolAnnotation(mcp.ToolAnnotation{DestructiveHint: boolPtr(true)}),
	), s.handleRunJob)

	s.mcp.AddTool(mcp.NewTool("delete_extraction_job",
		mcp.WithDescription("🛑 DESTRUCTIVE: Delete an extraction job and its run history. Requires user approval."),
		mcp.WithString("jobId", mcp.Description("Job ID"), mcp.Required()),
		mcp.WithToolAnnotation(mcp.ToolAnnotation{DestructiveHint: boolPtr(true)}),
	), s.handleDeleteJob)

	s.mcp.AddTool(mcp.NewTool("list_run_logs",
		mcp.WithDescription("List the most recent runs of an extraction job, newest first"),
		mcp.WithString("jobId", mcp.Description("Job ID"), mcp.Required()),
	), s.handleListRunLogs)
}

// jobInputFromArgs builds the service DTO shared by create and update.
func jobInputFromArgs(args map[string]any) (service.CreateJobInput, error) {
	input := service.CreateJobInput{Enabled: getBool(args, "enabled", true)}
	input.Name, _ = args["name"].(string)
	input.SourcePath, _ = args["sourcePath"].(string)
	input.Instructions, _ = args["instructions"].(string)
	input.TableName, _ = args["tableName"].(string)
	input.SinkID, _ = args["sinkId"].(string)
	input.SinkTable, _ = args["sinkTable"].(string)
	input.WriteMode, _ = args["writeMode"].(string)
	input.TriggerType, _ = args["triggerType"].(string)
	input.TriggerConfig, _ = args["triggerConfig"].(string)

	// transformsJSON may come as a string or as a raw JSON array
	var transformsStr string
	switch v := args["transformsJSON"].(type) {
	case string:
		transformsStr = v
	default:
		if v != nil {
			b, _ := json.Marshal(v)
			transformsStr = string(b)
		}
	}
	if transformsStr != "" {
		if err := parseJSON(transformsStr, &input.Transforms); err != nil {
			return input, fmt.Errorf("parse transforms: %w", err)
		}
	}
	return input, nil
}

func (s *Server) handleCreateJob(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := jobInputFromArgs(req.GetArguments())
	if err != nil {
		return nil, err
	}
	job, err := s.extract.CreateJob(ctx, input)
	if err != nil {
		return nil, err
	}
	return jsonResult(job)
}

func (s *Server) handleUpdateJob(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	jobID := req.GetString("jobId", "")
	if jobID == "" {
		return nil, fmt.Errorf("jobId is required")
	}
	input, err := jobInputFromArgs(req.GetArguments())
	if err != nil {
		return nil, err
	}
	if err := s.extract.UpdateJob(ctx, jobID, input); err != nil {
		return nil, fmt.Errorf("update extraction job: %w", err)
	}
	job, err := s.extract.GetJob(jobID)
	if err != nil {
		return nil, err
	}
	return jsonResult(job)
}

func (s *Server) handleListJobs(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	jobs, err := s.extract.ListJobs()
	if err != nil {
		return nil, fmt.Errorf("list extraction jobs: %w", err)
	}
	return jsonResult(jobs)
}

func (s *Server) handleRunJob(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	jobID := req.GetString("jobId", "")
	if jobID == "" {
		return nil, fmt.Errorf("jobId is required")
	}

	approved, err := s.approval.Request("run_extraction_job",
		fmt.Sprintf("Run extraction job %s (calls the model API, may overwrite stored table and sink data)", jobID))
	if err != nil || !approved {
		return textResult("Action rejected by user"), nil
	}

	result, err := s.extract.RunJob(ctx, jobID)
	if err != nil {
		return nil, fmt.Errorf("run extraction job: %w", err)
	}
	return jsonResult(result)
}

func (s *Server) handleDeleteJob(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	jobID := req.GetString("jobId", "")
	if jobID == "" {
		return nil, fmt.Errorf("jobId is required")
	}

	approved, err := s.approval.Request("delete_extraction_job",
		fmt.Sprintf("Delete extraction job %s and its run history", jobID))
	if err != nil || !approved {
		return textResult("Action rejected by user"), nil
	}

	if err := s.extract.DeleteJob(ctx, jobID); err != nil {
		return nil, fmt.Errorf("delete extraction job: %w", err)
	}
	return textResult(fmt.Sprintf("Job %s deleted", jobID)), nil
}

func (s *Server) handleListRunLogs(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	jobID := req.GetString("jobId", "")
	if jobID == "" {
		return nil, fmt.Errorf("jobId is required")
	}
	logs, err := s.extract.ListRunLogs(jobID)
	if err != nil {
		return nil, fmt.Errorf("list run logs: %w", err)
	}
	return jsonResult(logs)
}
