package extract_test

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"tabular/internal/domain"
	"tabular/internal/extract"
	"tabular/internal/transform"
)

// ─────────────────────────────────────────────────────────────
// Engine tests — stub client, in-memory store, no network
// ─────────────────────────────────────────────────────────────

type stubClient struct {
	response string
	err      error
	lastReq  extract.Request
}

func (c *stubClient) Generate(_ context.Context, req extract.Request) (string, error) {
	c.lastReq = req
	if c.err != nil {
		return "", c.err
	}
	return c.response, nil
}

type memTableStore struct {
	tables map[string]*domain.ExtractedTable
	nextID int
}

func newMemTableStore() *memTableStore {
	return &memTableStore{tables: map[string]*domain.ExtractedTable{}}
}

func (m *memTableStore) SaveTable(t *domain.ExtractedTable) error {
	m.nextID++
	t.ID = fmt.Sprintf("tbl-%d", m.nextID)
	m.tables[t.ID] = t
	return nil
}

func (m *memTableStore) UpsertForJob(t *domain.ExtractedTable) error {
	for id, existing := range m.tables {
		if existing.JobID == t.JobID && t.JobID != "" {
			t.ID = id
			m.tables[id] = t
			return nil
		}
	}
	return m.SaveTable(t)
}

func (m *memTableStore) GetTable(id string) (*domain.ExtractedTable, error) {
	t, ok := m.tables[id]
	if !ok {
		return nil, fmt.Errorf("table not found: %s", id)
	}
	return t, nil
}

func (m *memTableStore) ListTables() ([]domain.ExtractedTable, error) {
	var out []domain.ExtractedTable
	for _, t := range m.tables {
		out = append(out, *t)
	}
	return out, nil
}

func (m *memTableStore) DeleteTable(id string) error {
	delete(m.tables, id)
	return nil
}

func writeSourceFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("write source file: %v", err)
	}
	return path
}

func mustTransforms(t *testing.T, data string) []transform.Config {
	t.Helper()
	var configs []transform.Config
	if err := json.Unmarshal([]byte(data), &configs); err != nil {
		t.Fatalf("decode transforms: %v", err)
	}
	return configs
}

func TestEngine_Run_Success(t *testing.T) {
	client := &stubClient{response: `[{"Item": "Widget", "Price ": "1,250"}, {"Item": "Bolt", "Price ": "NIL"}]`}
	store := newMemTableStore()
	engine := &extract.Engine{
		Extractor: extract.NewExtractor(client, "test-model"),
		Tables:    store,
	}

	job := &extract.Job{
		ID:         "job-1",
		Name:       "Inventory",
		SourcePath: writeSourceFile(t, "inventory.csv", "Item,Price\nWidget,1250\n"),
	}

	result, err := engine.Run(context.Background(), job)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Status != "success" {
		t.Fatalf("expected success, got %q (%s)", result.Status, result.Error)
	}
	if result.RowsExtracted != 2 || result.RowsKept != 2 {
		t.Errorf("expected 2 extracted / 2 kept, got %d / %d", result.RowsExtracted, result.RowsKept)
	}
	if result.TableID == "" {
		t.Fatal("expected a stored table ID")
	}

	stored, err := store.GetTable(result.TableID)
	if err != nil {
		t.Fatalf("stored table missing: %v", err)
	}
	if stored.Name != "Inventory" {
		t.Errorf("expected job name as fallback table name, got %q", stored.Name)
	}
	if stored.Model != "test-model" {
		t.Errorf("expected model provenance, got %q", stored.Model)
	}
	if stored.Data.ColumnTypes["Price"] != domain.ColTypeNumber {
		t.Errorf("expected normalized number column, got %v", stored.Data.ColumnTypes)
	}
	if v, ok := stored.Data.Rows[0]["Price"].(float64); !ok || v != 1250 {
		t.Errorf("expected coerced 1250, got %v", stored.Data.Rows[0]["Price"])
	}
}

func TestEngine_Run_UpsertKeepsTableID(t *testing.T) {
	client := &stubClient{response: `[{"A": "1"}]`}
	store := newMemTableStore()
	engine := &extract.Engine{Extractor: extract.NewExtractor(client, "m"), Tables: store}

	job := &extract.Job{ID: "job-2", Name: "T", SourcePath: writeSourceFile(t, "t.txt", "A\n1\n")}

	first, err := engine.Run(context.Background(), job)
	if err != nil {
		t.Fatalf("first run: %v", err)
	}
	second, err := engine.Run(context.Background(), job)
	if err != nil {
		t.Fatalf("second run: %v", err)
	}
	if first.TableID != second.TableID {
		t.Errorf("expected stable table ID across runs, got %s then %s", first.TableID, second.TableID)
	}
	if len(store.tables) != 1 {
		t.Errorf("expected exactly one stored table, got %d", len(store.tables))
	}
}

func TestEngine_Run_AppliesTransforms(t *testing.T) {
	client := &stubClient{response: `[{"N": "3"}, {"N": "1"}, {"N": "2"}]`}
	store := newMemTableStore()
	engine := &extract.Engine{Extractor: extract.NewExtractor(client, "m"), Tables: store}

	job := &extract.Job{
		ID:         "job-3",
		Name:       "Sorted",
		SourcePath: writeSourceFile(t, "n.txt", "N\n"),
	}
	job.Transforms = mustTransforms(t, `[{"type":"sort","config":{"field":"N","direction":"desc"}},{"type":"limit","config":{"count":1}}]`)

	result, err := engine.Run(context.Background(), job)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.RowsExtracted != 3 || result.RowsKept != 1 {
		t.Fatalf("expected 3 extracted / 1 kept, got %d / %d", result.RowsExtracted, result.RowsKept)
	}

	stored, _ := store.GetTable(result.TableID)
	if v, ok := stored.Data.Rows[0]["N"].(float64); !ok || v != 3 {
		t.Errorf("expected largest row kept, got %v", stored.Data.Rows[0]["N"])
	}
}

func TestEngine_Run_MissingSource(t *testing.T) {
	client := &stubClient{response: "[]"}
	store := newMemTableStore()
	engine := &extract.Engine{Extractor: extract.NewExtractor(client, "m"), Tables: store}

	job := &extract.Job{ID: "job-4", SourcePath: filepath.Join(t.TempDir(), "missing.pdf")}
	result, err := engine.Run(context.Background(), job)
	if err == nil {
		t.Fatal("expected an error for a missing source file")
	}
	if result.Status != "error" || result.Error == "" {
		t.Errorf("expected error status with message, got %+v", result)
	}
	if len(store.tables) != 0 {
		t.Errorf("nothing should be stored on failure, got %d tables", len(store.tables))
	}
}

func TestEngine_Run_UnparseableResponse(t *testing.T) {
	client := &stubClient{response: "Sorry, no table here."}
	store := newMemTableStore()
	engine := &extract.Engine{Extractor: extract.NewExtractor(client, "m"), Tables: store}

	job := &extract.Job{ID: "job-5", SourcePath: writeSourceFile(t, "x.txt", "text")}
	result, err := engine.Run(context.Background(), job)
	if err == nil {
		t.Fatal("expected an error for an unparseable response")
	}
	if result.Status != "error" {
		t.Errorf("expected error status, got %q", result.Status)
	}
}

func TestExtractor_TextualDocumentInlined(t *testing.T) {
	client := &stubClient{response: "[]"}
	x := extract.NewExtractor(client, "m")

	doc := extract.Document{MIMEType: "text/csv", Data: []byte("A,B\n1,2\n")}
	_, _, err := x.ExtractTable(context.Background(), doc, "keep only column A")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if client.lastReq.Doc != nil {
		t.Error("textual documents must ride inside the prompt, not as an attachment")
	}
	if !strings.Contains(client.lastReq.Prompt, "A,B") {
		t.Error("document body missing from prompt")
	}
	if !strings.Contains(client.lastReq.Prompt, "keep only column A") {
		t.Error("caller instructions missing from prompt")
	}
}

func TestExtractor_BinaryDocumentAttached(t *testing.T) {
	client := &stubClient{response: "[]"}
	x := extract.NewExtractor(client, "m")

	doc := extract.Document{MIMEType: "application/pdf", Data: []byte("%PDF-1.4")}
	_, _, err := x.ExtractTable(context.Background(), doc, "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if client.lastReq.Doc == nil || client.lastReq.Doc.MIMEType != "application/pdf" {
		t.Error("binary documents must be attached as inline data")
	}
}
