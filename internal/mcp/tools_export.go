package mcpserver

import (
	"context"
	"fmt"

	"tabular/internal/domain"
	"tabular/internal/service"

	"github.com/mark3labs/mcp-go/mcp"
)

func (s *Server) registerExportTools() {
	s.mcp.AddTool(mcp.NewTool("create_connection",
		mcp.WithDescription("Register a database connection for exporting tables. Supported drivers: mysql, postgres, mongodb, sqlite. The password is stored separately from the connection record."),
		mcp.WithString("name", mcp.Description("Display name for the connection"), mcp.Required()),
		mcp.WithString("driver", mcp.Description("mysql, postgres, mongodb, or sqlite"), mcp.Required()),
		mcp.WithString("host", mcp.Description("Host name, file path (sqlite), or full URI (mongodb)"), mcp.Required()),
		mcp.WithNumber("port", mcp.Description("Port (defaults per driver)")),
		mcp.WithString("database", mcp.Description("Database name")),
		mcp.WithString("username", mcp.Description("User name")),
		mcp.WithString("password", mcp.Description("Password (kept out of the connection record)")),
		mcp.WithString("sslMode", mcp.Description("postgres: disable/require/verify-full, mysql: require enables TLS")),
		mcp.WithString("extraJson", mcp.Description("Driver-specific options as a JSON object, e.g. {\"replicaSet\":\"rs0\"}")),
	), s.handleCreateConnection)

	s.mcp.AddTool(mcp.NewTool("list_connections",
		mcp.WithDescription("List registered export connections (passwords omitted)"),
	), s.handleListConnections)

	s.mcp.AddTool(mcp.NewTool("test_connection",
		mcp.WithDescription("Ping an export connection to verify it is reachable"),
		mcp.WithString("connectionId", mcp.Description("Connection ID"), mcp.Required()),
	), s.handleTestConnection)

	s.mcp.AddTool(mcp.NewTool("delete_connection",
		mcp.WithDescription("🛑 DESTRUCTIVE: Delete an export connection and its stored password. Requires user approval."),
		mcp.WithString("connectionId", mcp.Description("Connection ID"), mcp.Required()),
		mcp.WithToolAnnotation(mcp.ToolAnnotation{DestructiveHint: boolPtr(true)}),
	), s.handleDeleteConnection)

	s.mcp.AddTool(mcp.NewTool("export_table",
		mcp.WithDescription("🛑 DESTRUCTIVE: Write a stored table to a database connection. Replace mode drops the target table first. Requires user approval."),
		mcp.WithString("tableId", mcp.Description("Stored table ID"), mcp.Required()),
		mcp.WithString("connectionId", mcp.Description("Connection ID"), mcp.Required()),
		mcp.WithString("targetTable", mcp.Description("Target table/collection name (defaults to a sanitized table name)")),
		mcp.WithString("writeMode", mcp.Description("replace (default) or append")),
		mcp.WithToolAnnotation(mcp.ToolAnnotation{DestructiveHint: boolPtr(true)}),
	), s.handleExportTable)
}

func (s *Server) handleCreateConnection(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := req.GetArguments()

	input := service.CreateConnectionInput{Port: int(getFloat(args, "port", 0))}
	input.Name, _ = args["name"].(string)
	input.Driver, _ = args["driver"].(string)
	input.Host, _ = args["host"].(string)
	input.Database, _ = args["database"].(string)
	input.Username, _ = args["username"].(string)
	input.Password, _ = args["password"].(string)
	input.SSLMode, _ = args["sslMode"].(string)
	input.ExtraJSON, _ = args["extraJson"].(string)

	if input.Name == "" || input.Driver == "" || input.Host == "" {
		return nil, fmt.Errorf("name, driver and host are required")
	}

	conn, err := s.export.CreateConnection(input)
	if err != nil {
		return nil, fmt.Errorf("create connection: %w", err)
	}
	return jsonResult(conn)
}

func (s *Server) handleListConnections(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	conns, err := s.export.ListConnections()
	if err != nil {
		return nil, fmt.Errorf("list connections: %w", err)
	}
	return jsonResult(conns)
}

func (s *Server) handleTestConnection(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	connID := req.GetString("connectionId", "")
	if connID == "" {
		return nil, fmt.Errorf("connectionId is required")
	}
	if err := s.export.TestConnection(ctx, connID); err != nil {
		return nil, fmt.Errorf("test connection: %w", err)
	}
	return textResult("Connection OK"), nil
}

func (s *Server) handleDeleteConnection(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	connID := req.GetString("connectionId", "")
	if connID == "" {
		return nil, fmt.Errorf("connectionId is required")
	}

	approved, err := s.approval.Request("delete_connection",
		fmt.Sprintf("Delete export connection %s and its stored password", connID))
	if err != nil || !approved {
		return textResult("Action rejected by user"), nil
	}

	if err := s.export.DeleteConnection(connID); err != nil {
		return nil, fmt.Errorf("delete connection: %w", err)
	}
	return textResult(fmt.Sprintf("Connection %s deleted", connID)), nil
}

func (s *Server) handleExportTable(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := req.GetArguments()
	tableID, _ := args["tableId"].(string)
	connID, _ := args["connectionId"].(string)
	targetTable, _ := args["targetTable"].(string)
	writeMode, _ := args["writeMode"].(string)

	if tableID == "" || connID == "" {
		return nil, fmt.Errorf("tableId and connectionId are required")
	}

	mode := domain.WriteMode(writeMode)
	desc := fmt.Sprintf("Export table %s to connection %s", tableID, connID)
	if targetTable != "" {
		desc += fmt.Sprintf(" as %s", truncate(targetTable, 60))
	}
	if mode == "" || mode == domain.WriteReplace {
		desc += " (replaces existing data)"
	}

	approved, err := s.approval.Request("export_table", desc)
	if err != nil || !approved {
		return textResult("Action rejected by user"), nil
	}

	rows, err := s.export.ExportTable(ctx, tableID, connID, targetTable, mode)
	if err != nil {
		return nil, fmt.Errorf("export table: %w", err)
	}
	return jsonResult(map[string]any{"rowsWritten": rows})
}
