package mcpserver

import (
	"context"
	"encoding/json"
	"testing"

	"tabular/internal/domain"

	"github.com/mark3labs/mcp-go/mcp"
)

func TestGetFloat(t *testing.T) {
	args := map[string]any{"maxRows": float64(25), "name": "report"}
	if got := getFloat(args, "maxRows", 10); got != 25 {
		t.Errorf("getFloat = %v, want 25", got)
	}
	if got := getFloat(args, "missing", 10); got != 10 {
		t.Errorf("getFloat fallback = %v, want 10", got)
	}
	if got := getFloat(args, "name", 10); got != 10 {
		t.Errorf("getFloat wrong type = %v, want fallback 10", got)
	}
}

func TestGetBool(t *testing.T) {
	args := map[string]any{"enabled": false, "name": "report"}
	if got := getBool(args, "enabled", true); got {
		t.Error("getBool should return the stored false")
	}
	if got := getBool(args, "missing", true); !got {
		t.Error("getBool should fall back to true")
	}
	if got := getBool(args, "name", true); !got {
		t.Error("getBool should fall back on wrong type")
	}
}

func TestTruncate(t *testing.T) {
	if got := truncate("short", 10); got != "short" {
		t.Errorf("truncate = %q", got)
	}
	if got := truncate("exactly-10", 10); got != "exactly-10" {
		t.Errorf("truncate at limit = %q", got)
	}
	if got := truncate("a-rather-long-identifier", 8); got != "a-rather..." {
		t.Errorf("truncate over limit = %q", got)
	}
}

func TestParseJSON(t *testing.T) {
	var target struct {
		Count int `json:"count"`
	}
	if err := parseJSON(`{"count": 3}`, &target); err != nil {
		t.Fatalf("parseJSON: %v", err)
	}
	if target.Count != 3 {
		t.Errorf("count = %d", target.Count)
	}
	if err := parseJSON(`{not json`, &target); err == nil {
		t.Error("expected error for invalid JSON")
	}
}

func TestHandleNormalizeRecords(t *testing.T) {
	s := &Server{}
	req := mcp.CallToolRequest{}
	req.Params.Arguments = map[string]any{
		"recordsJSON": `[{"Name": "alpha", "Amount": "1,200"}, {"Name": "beta", "Amount": "---"}]`,
	}

	result, err := s.handleNormalizeRecords(context.Background(), req)
	if err != nil {
		t.Fatalf("handleNormalizeRecords: %v", err)
	}

	text, ok := result.Content[0].(mcp.TextContent)
	if !ok {
		t.Fatalf("expected text content, got %T", result.Content[0])
	}

	var table domain.ParsedTable
	if err := json.Unmarshal([]byte(text.Text), &table); err != nil {
		t.Fatalf("unmarshal result: %v", err)
	}
	if len(table.Columns) != 2 || table.Columns[0] != "Name" || table.Columns[1] != "Amount" {
		t.Errorf("columns = %v", table.Columns)
	}
	if table.ColumnTypes["Amount"] != domain.ColTypeNumber {
		t.Errorf("Amount type = %v", table.ColumnTypes["Amount"])
	}
	if table.Rows[0]["Amount"] != float64(1200) {
		t.Errorf("Amount = %v", table.Rows[0]["Amount"])
	}
	if table.Rows[1]["Amount"] != nil {
		t.Errorf("null marker should map to nil, got %v", table.Rows[1]["Amount"])
	}
}

func TestHandleNormalizeRecords_RequiresInput(t *testing.T) {
	s := &Server{}
	req := mcp.CallToolRequest{}
	if _, err := s.handleNormalizeRecords(context.Background(), req); err == nil {
		t.Error("expected error when recordsJSON is missing")
	}
}
