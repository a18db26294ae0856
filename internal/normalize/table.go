package normalize

import (
	"math"
	"strconv"
	"strings"
	"time"

	"tabular/internal/domain"
)

// ── Table normalization ───────────────────────────────────────
// Raw extractor records become a ParsedTable in four passes: derive columns
// from the first record, clean every cell, infer one type per column from a
// bounded sample, then coerce number columns to real numeric values.

// typeSampleRows bounds the inference sample: the first 100 rows decide a
// column's type without scanning the whole table.
const typeSampleRows = 100

// Table converts raw extractor records into a typed table. It is total:
// ragged or malformed input degrades to string typing or nil cells, never an
// error.
func Table(records []domain.RawRecord) *domain.ParsedTable {
	if len(records) == 0 || records[0] == nil {
		return domain.EmptyTable()
	}

	// Columns come from the first record's keys in document order. Models
	// occasionally emit junk "null"/"undefined" headers; drop those outright.
	var originalKeys []string
	for pair := records[0].Oldest(); pair != nil; pair = pair.Next() {
		if pair.Key == "null" || pair.Key == "undefined" {
			continue
		}
		originalKeys = append(originalKeys, pair.Key)
	}
	if len(originalKeys) == 0 {
		return domain.EmptyTable()
	}

	columns, fallback := columnNames(originalKeys)

	// Clean every record against every column. Lookups use the original
	// header key; short records yield nil cells rather than errors.
	rows := make([]map[string]any, 0, len(records))
	for _, rec := range records {
		row := make(map[string]any, len(columns))
		for i, key := range originalKeys {
			var raw any
			if rec != nil {
				if v, ok := rec.Get(key); ok {
					raw = v
				}
			}
			row[columns[i]] = CleanValue(raw)
		}
		rows = append(rows, row)
	}

	// One type per column, decided conjunctively over the sample: a single
	// non-conforming value disqualifies a candidate type. Columns named by
	// the positional fallback had junk headers and stay strings.
	columnTypes := make(map[string]domain.ColumnType, len(columns))
	for i, col := range columns {
		if fallback[i] {
			columnTypes[col] = domain.ColTypeString
			continue
		}
		columnTypes[col] = inferColumnType(sampleColumn(rows, col))
	}

	// Number columns get real numbers. Boolean and date columns keep their
	// cleaned strings; their ColumnTypes entry is advisory.
	for col, ct := range columnTypes {
		if ct != domain.ColTypeNumber {
			continue
		}
		for _, row := range rows {
			cell, ok := row[col].(string)
			if !ok {
				continue
			}
			if f, numOK := toNumber(cell); numOK {
				row[col] = f
			} else {
				// A cell past the sample window can defy the column type.
				// Degrade it to nil rather than leave a mistyped string.
				row[col] = nil
			}
		}
	}

	return &domain.ParsedTable{Columns: columns, ColumnTypes: columnTypes, Rows: rows}
}

// sampleColumn collects the non-nil cleaned values for col from the first
// typeSampleRows rows.
func sampleColumn(rows []map[string]any, col string) []string {
	limit := len(rows)
	if limit > typeSampleRows {
		limit = typeSampleRows
	}
	var samples []string
	for _, row := range rows[:limit] {
		if s, ok := row[col].(string); ok {
			samples = append(samples, s)
		}
	}
	return samples
}

// inferColumnType picks the first candidate every sampled value qualifies
// for, in precedence order boolean, number, date, string. An empty sample
// (all-null column) stays string.
func inferColumnType(samples []string) domain.ColumnType {
	if len(samples) == 0 {
		return domain.ColTypeString
	}
	if all(samples, isBooleanString) {
		return domain.ColTypeBoolean
	}
	if all(samples, isNumberString) {
		return domain.ColTypeNumber
	}
	if all(samples, looksLikeDate) {
		return domain.ColTypeDate
	}
	return domain.ColTypeString
}

func all(values []string, pred func(string) bool) bool {
	for _, v := range values {
		if !pred(v) {
			return false
		}
	}
	return true
}

// isBooleanString matches only the exact lowercase literals. "True" or
// "TRUE" pushes a column past boolean in the precedence order.
func isBooleanString(s string) bool {
	return s == "true" || s == "false"
}

func isNumberString(s string) bool {
	_, ok := toNumber(s)
	return ok
}

// toNumber coerces a cleaned cell to a number. Thousands separators were
// stripped during cleaning, so the remaining grammar is plain decimal or
// exponent form. NaN is rejected; a NaN cell is no number.
func toNumber(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, false
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) {
		return 0, false
	}
	return f, true
}

// dateLayouts approximate a lenient date parser: ISO forms first, then the
// slashed and dashed day orders and spelled-out months seen in scanned
// documents.
var dateLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
	"2006/01/02",
	"2/1/2006",
	"1/2/2006",
	"2-1-2006",
	"Jan 2, 2006",
	"January 2, 2006",
	"2 Jan 2006",
}

// looksLikeDate reports whether a sampled value reads as a calendar date.
// The length guard keeps short fraction-like strings ("1/2") from passing.
func looksLikeDate(s string) bool {
	s = strings.TrimSpace(s)
	if len(s) <= 5 {
		return false
	}
	for _, layout := range dateLayouts {
		if _, err := time.Parse(layout, s); err == nil {
			return true
		}
	}
	return false
}
