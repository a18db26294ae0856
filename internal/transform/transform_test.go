package transform_test

import (
	"testing"

	"tabular/internal/domain"
	"tabular/internal/transform"
)

// ─────────────────────────────────────────────────────────────
// Table refinement tests
// ─────────────────────────────────────────────────────────────

func sampleTable() *domain.ParsedTable {
	return &domain.ParsedTable{
		Columns: []string{"Name", "Amount"},
		ColumnTypes: map[string]domain.ColumnType{
			"Name":   domain.ColTypeString,
			"Amount": domain.ColTypeNumber,
		},
		Rows: []map[string]any{
			{"Name": "alpha", "Amount": float64(10)},
			{"Name": "beta", "Amount": float64(30)},
			{"Name": "gamma", "Amount": nil},
			{"Name": "alpha", "Amount": float64(20)},
		},
	}
}

func TestBuild_SkipsMalformedConfigs(t *testing.T) {
	chain := transform.Build([]transform.Config{
		{Type: "filter", Config: map[string]any{"field": "Amount", "op": "gt", "value": float64(5)}},
		{Type: "filter", Config: map[string]any{"op": "gt"}},  // missing field
		{Type: "bogus", Config: map[string]any{"x": "y"}},     // unknown type
		{Type: "limit", Config: map[string]any{"count": "5"}}, // count must be numeric
		{Type: "limit", Config: map[string]any{"count": float64(2)}},
	})
	if len(chain) != 2 {
		t.Fatalf("expected 2 transformers, got %d", len(chain))
	}
}

func TestFilter_Gt(t *testing.T) {
	f := &transform.Filter{Field: "Amount", Op: "gt", Value: float64(15)}
	got := f.Apply(sampleTable())

	if len(got.Rows) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(got.Rows))
	}
	for _, row := range got.Rows {
		if row["Amount"].(float64) <= 15 {
			t.Errorf("row %v should have been filtered", row)
		}
	}
}

func TestFilter_GtSkipsNil(t *testing.T) {
	f := &transform.Filter{Field: "Amount", Op: "gt", Value: float64(-100)}
	got := f.Apply(sampleTable())
	for _, row := range got.Rows {
		if row["Amount"] == nil {
			t.Error("nil cells must not satisfy ordered comparisons")
		}
	}
}

func TestFilter_Contains(t *testing.T) {
	f := &transform.Filter{Field: "Name", Op: "contains", Value: "ALPH"}
	got := f.Apply(sampleTable())
	if len(got.Rows) != 2 {
		t.Fatalf("expected case-insensitive contains to keep 2 rows, got %d", len(got.Rows))
	}
}

func TestFilter_Eq(t *testing.T) {
	f := &transform.Filter{Field: "Name", Op: "eq", Value: "beta"}
	got := f.Apply(sampleTable())
	if len(got.Rows) != 1 || got.Rows[0]["Amount"].(float64) != 30 {
		t.Fatalf("unexpected eq result: %v", got.Rows)
	}
}

func TestRename_RewritesEverything(t *testing.T) {
	r := &transform.Rename{Mapping: map[string]string{"Amount": "Total Value"}}
	got := r.Apply(sampleTable())

	if got.Columns[1] != "Total_Value" {
		t.Fatalf("expected sanitized new name Total_Value, got %q", got.Columns[1])
	}
	if got.ColumnTypes["Total_Value"] != domain.ColTypeNumber {
		t.Errorf("type did not follow the rename: %v", got.ColumnTypes)
	}
	if _, stale := got.ColumnTypes["Amount"]; stale {
		t.Error("old type entry should be gone")
	}
	if got.Rows[0]["Total_Value"].(float64) != 10 {
		t.Errorf("row cell did not follow the rename: %v", got.Rows[0])
	}
}

func TestRename_IgnoresCollision(t *testing.T) {
	r := &transform.Rename{Mapping: map[string]string{"Amount": "Name"}}
	got := r.Apply(sampleTable())
	if got.Columns[1] != "Amount" {
		t.Errorf("colliding rename must be ignored, got columns %v", got.Columns)
	}
}

func TestSelect_KeepsListedOrder(t *testing.T) {
	s := &transform.Select{Fields: []string{"Amount", "Missing", "Name", "Amount"}}
	got := s.Apply(sampleTable())

	want := []string{"Amount", "Name"}
	if len(got.Columns) != 2 || got.Columns[0] != want[0] || got.Columns[1] != want[1] {
		t.Fatalf("columns = %v, want %v", got.Columns, want)
	}
	if len(got.Rows[0]) != 2 {
		t.Errorf("rows should only carry selected columns: %v", got.Rows[0])
	}
}

func TestSort_NumericDesc(t *testing.T) {
	s := &transform.Sort{Field: "Amount", Direction: "desc"}
	got := s.Apply(sampleTable())

	if got.Rows[0]["Amount"].(float64) != 30 {
		t.Errorf("expected 30 first, got %v", got.Rows[0]["Amount"])
	}
	if got.Rows[len(got.Rows)-1]["Amount"] != nil {
		t.Errorf("expected nil last in desc order, got %v", got.Rows[len(got.Rows)-1]["Amount"])
	}
}

func TestSort_DoesNotMutateInput(t *testing.T) {
	in := sampleTable()
	s := &transform.Sort{Field: "Amount", Direction: "desc"}
	_ = s.Apply(in)
	if in.Rows[0]["Amount"].(float64) != 10 {
		t.Error("input table was mutated by sort")
	}
}

func TestLimit(t *testing.T) {
	l := &transform.Limit{Count: 2}
	got := l.Apply(sampleTable())
	if len(got.Rows) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(got.Rows))
	}
}

func TestDedupe_KeepsFirst(t *testing.T) {
	d := &transform.Dedupe{Field: "Name"}
	got := d.Apply(sampleTable())

	if len(got.Rows) != 3 {
		t.Fatalf("expected 3 rows after dedupe, got %d", len(got.Rows))
	}
	if got.Rows[0]["Amount"].(float64) != 10 {
		t.Errorf("dedupe must keep the first occurrence, got %v", got.Rows[0])
	}
}

func TestApply_RunsInOrder(t *testing.T) {
	chain := transform.Build([]transform.Config{
		{Type: "sort", Config: map[string]any{"field": "Amount", "direction": "desc"}},
		{Type: "limit", Config: map[string]any{"count": float64(1)}},
	})
	got := transform.Apply(sampleTable(), chain)

	if len(got.Rows) != 1 || got.Rows[0]["Amount"].(float64) != 30 {
		t.Fatalf("expected the single largest row, got %v", got.Rows)
	}
}
