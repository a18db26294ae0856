package transform

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"tabular/internal/domain"
	"tabular/internal/normalize"
)

// ── Table refinement ──────────────────────────────────────────
// Declarative post-normalization transforms. Each transformer rewrites a
// whole ParsedTable so columns, types, and rows stay consistent (a rename
// touches all three). Configs are stored as JSON on jobs; entries the
// builder cannot understand are skipped, never fatal.

// Config is one declarative transform: {"type": "filter", "config": {...}}.
type Config struct {
	Type   string         `json:"type"`
	Config map[string]any `json:"config"`
}

// Transformer rewrites a table. Implementations never mutate the input.
type Transformer interface {
	Apply(t *domain.ParsedTable) *domain.ParsedTable
}

// Apply runs a transformer chain in order.
func Apply(t *domain.ParsedTable, chain []Transformer) *domain.ParsedTable {
	for _, tr := range chain {
		t = tr.Apply(t)
	}
	return t
}

// Build converts declarative configs into a transformer chain, skipping
// malformed entries.
func Build(configs []Config) []Transformer {
	var chain []Transformer
	for _, c := range configs {
		switch c.Type {
		case "filter":
			field, _ := c.Config["field"].(string)
			op, _ := c.Config["op"].(string)
			if field != "" && op != "" {
				chain = append(chain, &Filter{Field: field, Op: op, Value: c.Config["value"]})
			}
		case "rename":
			mapping, _ := c.Config["mapping"].(map[string]any)
			m := make(map[string]string, len(mapping))
			for k, v := range mapping {
				if s, ok := v.(string); ok && s != "" {
					m[k] = s
				}
			}
			if len(m) > 0 {
				chain = append(chain, &Rename{Mapping: m})
			}
		case "select":
			fields, _ := c.Config["fields"].([]any)
			var keep []string
			for _, f := range fields {
				if s, ok := f.(string); ok && s != "" {
					keep = append(keep, s)
				}
			}
			if len(keep) > 0 {
				chain = append(chain, &Select{Fields: keep})
			}
		case "sort":
			field, _ := c.Config["field"].(string)
			direction, _ := c.Config["direction"].(string)
			if direction == "" {
				direction = "asc"
			}
			if field != "" {
				chain = append(chain, &Sort{Field: field, Direction: direction})
			}
		case "limit":
			if count, ok := c.Config["count"].(float64); ok && count > 0 {
				chain = append(chain, &Limit{Count: int(count)})
			}
		case "dedupe":
			field, _ := c.Config["field"].(string)
			if field != "" {
				chain = append(chain, &Dedupe{Field: field})
			}
		}
	}
	return chain
}

// cloneMeta copies columns and types so a transformer never aliases its
// input's metadata. The copies stay non-nil for empty tables.
func cloneMeta(t *domain.ParsedTable) ([]string, map[string]domain.ColumnType) {
	columns := make([]string, len(t.Columns))
	copy(columns, t.Columns)
	types := make(map[string]domain.ColumnType, len(t.ColumnTypes))
	for k, v := range t.ColumnTypes {
		types[k] = v
	}
	return columns, types
}

// ── Filter ────────────────────────────────────────────────────

// Filter keeps rows whose field matches the condition.
type Filter struct {
	Field string
	Op    string // "eq" | "neq" | "gt" | "lt" | "contains"
	Value any
}

func (f *Filter) Apply(t *domain.ParsedTable) *domain.ParsedTable {
	columns, types := cloneMeta(t)
	rows := make([]map[string]any, 0, len(t.Rows))
	for _, row := range t.Rows {
		if f.match(row[f.Field]) {
			rows = append(rows, row)
		}
	}
	return &domain.ParsedTable{Columns: columns, ColumnTypes: types, Rows: rows}
}

func (f *Filter) match(cell any) bool {
	switch f.Op {
	case "eq":
		return compareValues(cell, f.Value) == 0
	case "neq":
		return compareValues(cell, f.Value) != 0
	case "gt":
		return cell != nil && compareValues(cell, f.Value) > 0
	case "lt":
		return cell != nil && compareValues(cell, f.Value) < 0
	case "contains":
		return strings.Contains(strings.ToLower(toString(cell)), strings.ToLower(toString(f.Value)))
	}
	return false
}

// ── Rename ────────────────────────────────────────────────────

// Rename maps column names to new names, rewriting columns, types, and rows
// together. Targets are sanitized to the same identifier form as derived
// columns; a rename that sanitizes away or collides with another column is
// ignored.
type Rename struct {
	Mapping map[string]string // old name → new name
}

func (r *Rename) Apply(t *domain.ParsedTable) *domain.ParsedTable {
	columns, types := cloneMeta(t)

	taken := make(map[string]bool, len(columns))
	for _, c := range columns {
		taken[c] = true
	}

	applied := make(map[string]string)
	for i, col := range columns {
		target, ok := r.Mapping[col]
		if !ok {
			continue
		}
		name := normalize.SanitizeColumn(target)
		if name == "" || name == col || taken[name] {
			continue
		}
		delete(taken, col)
		taken[name] = true
		applied[col] = name
		columns[i] = name
		types[name] = types[col]
		delete(types, col)
	}
	if len(applied) == 0 {
		return t
	}

	rows := make([]map[string]any, 0, len(t.Rows))
	for _, row := range t.Rows {
		next := make(map[string]any, len(row))
		for k, v := range row {
			if nk, ok := applied[k]; ok {
				k = nk
			}
			next[k] = v
		}
		rows = append(rows, next)
	}
	return &domain.ParsedTable{Columns: columns, ColumnTypes: types, Rows: rows}
}

// ── Select ────────────────────────────────────────────────────

// Select keeps only the listed columns, in the listed order. Unknown names
// and duplicates are ignored.
type Select struct {
	Fields []string
}

func (s *Select) Apply(t *domain.ParsedTable) *domain.ParsedTable {
	known := make(map[string]bool, len(t.Columns))
	for _, c := range t.Columns {
		known[c] = true
	}

	columns := make([]string, 0, len(s.Fields))
	types := make(map[string]domain.ColumnType, len(s.Fields))
	picked := make(map[string]bool, len(s.Fields))
	for _, f := range s.Fields {
		if !known[f] || picked[f] {
			continue
		}
		picked[f] = true
		columns = append(columns, f)
		types[f] = t.ColumnTypes[f]
	}

	rows := make([]map[string]any, 0, len(t.Rows))
	for _, row := range t.Rows {
		next := make(map[string]any, len(columns))
		for _, c := range columns {
			next[c] = row[c]
		}
		rows = append(rows, next)
	}
	return &domain.ParsedTable{Columns: columns, ColumnTypes: types, Rows: rows}
}

// ── Sort ──────────────────────────────────────────────────────

// Sort orders rows by one column. Direction "desc" reverses; ties keep their
// original order.
type Sort struct {
	Field     string
	Direction string
}

func (s *Sort) Apply(t *domain.ParsedTable) *domain.ParsedTable {
	columns, types := cloneMeta(t)
	rows := make([]map[string]any, len(t.Rows))
	copy(rows, t.Rows)

	sort.SliceStable(rows, func(i, j int) bool {
		c := compareValues(rows[i][s.Field], rows[j][s.Field])
		if s.Direction == "desc" {
			return c > 0
		}
		return c < 0
	})
	return &domain.ParsedTable{Columns: columns, ColumnTypes: types, Rows: rows}
}

// ── Limit ─────────────────────────────────────────────────────

// Limit caps the row count.
type Limit struct {
	Count int
}

func (l *Limit) Apply(t *domain.ParsedTable) *domain.ParsedTable {
	if len(t.Rows) <= l.Count {
		return t
	}
	columns, types := cloneMeta(t)
	rows := make([]map[string]any, l.Count)
	copy(rows, t.Rows[:l.Count])
	return &domain.ParsedTable{Columns: columns, ColumnTypes: types, Rows: rows}
}

// ── Dedupe ────────────────────────────────────────────────────

// Dedupe keeps the first row for each distinct value of a key column.
type Dedupe struct {
	Field string
}

func (d *Dedupe) Apply(t *domain.ParsedTable) *domain.ParsedTable {
	columns, types := cloneMeta(t)
	seen := make(map[string]bool, len(t.Rows))
	rows := make([]map[string]any, 0, len(t.Rows))
	for _, row := range t.Rows {
		key := toString(row[d.Field])
		if seen[key] {
			continue
		}
		seen[key] = true
		rows = append(rows, row)
	}
	return &domain.ParsedTable{Columns: columns, ColumnTypes: types, Rows: rows}
}

// ── Value helpers ─────────────────────────────────────────────

// compareValues orders two cells: numerically when both read as numbers,
// lexically otherwise. nil sorts before everything.
func compareValues(a, b any) int {
	if a == nil && b == nil {
		return 0
	}
	if a == nil {
		return -1
	}
	if b == nil {
		return 1
	}
	af, aok := toFloat(a)
	bf, bok := toFloat(b)
	if aok && bok {
		switch {
		case af < bf:
			return -1
		case af > bf:
			return 1
		}
		return 0
	}
	return strings.Compare(toString(a), toString(b))
}

func toFloat(v any) (float64, bool) {
	switch t := v.(type) {
	case float64:
		return t, true
	case int:
		return float64(t), true
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(t), 64)
		return f, err == nil
	}
	return 0, false
}

func toString(v any) string {
	if v == nil {
		return ""
	}
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprint(v)
}
