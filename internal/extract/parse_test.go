package extract_test

import (
	"testing"

	"tabular/internal/extract"
)

// ─────────────────────────────────────────────────────────────
// Response parsing tests
// ─────────────────────────────────────────────────────────────

func TestParseRecords_Direct(t *testing.T) {
	records, err := extract.ParseRecords(`[{"Name": "Ravi", "Amount": "1,200"}]`)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("expected 1 record, got %d", len(records))
	}
	v, ok := records[0].Get("Amount")
	if !ok || v != "1,200" {
		t.Errorf("expected raw value preserved, got %v", v)
	}
}

func TestParseRecords_PreservesKeyOrder(t *testing.T) {
	records, err := extract.ParseRecords(`[{"Zeta": "1", "Alpha": "2", "Mid": "3"}]`)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := []string{"Zeta", "Alpha", "Mid"}
	i := 0
	for pair := records[0].Oldest(); pair != nil; pair = pair.Next() {
		if pair.Key != want[i] {
			t.Errorf("key %d = %q, want %q", i, pair.Key, want[i])
		}
		i++
	}
	if i != 3 {
		t.Errorf("expected 3 keys, got %d", i)
	}
}

func TestParseRecords_FencedBlock(t *testing.T) {
	raw := "Here is the table you asked for:\n```json\n[{\"A\": \"1\"}]\n```\nLet me know if you need more."
	records, err := extract.ParseRecords(raw)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("expected 1 record, got %d", len(records))
	}
}

func TestParseRecords_FencedBlockNoLanguageTag(t *testing.T) {
	records, err := extract.ParseRecords("```\n[{\"A\": \"1\"}, {\"A\": \"2\"}]\n```")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("expected 2 records, got %d", len(records))
	}
}

func TestParseRecords_ArrayBuriedInProse(t *testing.T) {
	raw := `The extracted table follows. [{"City": "Pune"}, {"City": "Nashik"}] Rows: 2.`
	records, err := extract.ParseRecords(raw)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("expected 2 records, got %d", len(records))
	}
}

func TestParseRecords_EnvelopeObject(t *testing.T) {
	// A response wrapped in an object still yields the inner array.
	records, err := extract.ParseRecords(`{"table": [{"K": "v"}]}`)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("expected 1 record, got %d", len(records))
	}
}

func TestParseRecords_EmptyArray(t *testing.T) {
	records, err := extract.ParseRecords("[]")
	if err != nil {
		t.Fatalf("empty array is a valid no-table result, got error: %v", err)
	}
	if records == nil || len(records) != 0 {
		t.Fatalf("expected empty non-nil slice, got %v", records)
	}
}

func TestParseRecords_NoArrayAnywhere(t *testing.T) {
	_, err := extract.ParseRecords("I could not find a table in this document.")
	if err == nil {
		t.Fatal("expected an error when no strategy matches")
	}
}

func TestParseRecords_MalformedJSON(t *testing.T) {
	_, err := extract.ParseRecords(`[{"A": "1",}]`)
	if err == nil {
		t.Fatal("expected an error for a broken array")
	}
}
