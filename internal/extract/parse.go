package extract

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"tabular/internal/domain"
)

// ── Response parsing ──────────────────────────────────────────
// Models are asked for a bare JSON array but dress it up often enough:
// fenced in markdown, wrapped in prose, nested in an envelope. Parsing runs
// an ordered chain of total strategies; the first that yields an array wins,
// and exhausting the chain is one defined failure.

type parseStrategy struct {
	name string
	fn   func(string) ([]domain.RawRecord, bool)
}

var parseStrategies = []parseStrategy{
	{"direct", parseDirect},
	{"fenced", parseFenced},
	{"bare_array", parseBareArray},
}

var (
	fencedBlock = regexp.MustCompile("(?s)```(?:json)?\\s*(.*?)```")
	bareArray   = regexp.MustCompile(`(?s)\[.*\]`)
)

// ParseRecords extracts the record array from a raw model response. An empty
// array is a valid result (the document had no table).
func ParseRecords(raw string) ([]domain.RawRecord, error) {
	trimmed := strings.TrimSpace(raw)
	for _, s := range parseStrategies {
		if records, ok := s.fn(trimmed); ok {
			return records, nil
		}
	}
	return nil, fmt.Errorf("no JSON record array found in model response (%d bytes)", len(raw))
}

// parseDirect accepts a response that is exactly the requested array.
func parseDirect(s string) ([]domain.RawRecord, bool) {
	return tryRecords(s)
}

// parseFenced pulls the array out of the first markdown code fence.
func parseFenced(s string) ([]domain.RawRecord, bool) {
	m := fencedBlock.FindStringSubmatch(s)
	if m == nil {
		return nil, false
	}
	return tryRecords(strings.TrimSpace(m[1]))
}

// parseBareArray grabs everything between the first '[' and the last ']'.
func parseBareArray(s string) ([]domain.RawRecord, bool) {
	m := bareArray.FindString(s)
	if m == "" {
		return nil, false
	}
	return tryRecords(m)
}

// tryRecords decodes a candidate as an array of records, preserving each
// object's key order.
func tryRecords(s string) ([]domain.RawRecord, bool) {
	if s == "" || s[0] != '[' {
		return nil, false
	}
	var records []domain.RawRecord
	if err := json.Unmarshal([]byte(s), &records); err != nil {
		return nil, false
	}
	if records == nil {
		records = []domain.RawRecord{}
	}
	return records, true
}
