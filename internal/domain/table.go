package domain

import (
	"time"

	orderedmap "github.com/wk8/go-ordered-map/v2"
)

// ColumnType is the inferred data type of a normalized table column.
type ColumnType string

const (
	ColTypeString  ColumnType = "string"
	ColTypeNumber  ColumnType = "number"
	ColTypeDate    ColumnType = "date"
	ColTypeBoolean ColumnType = "boolean"
)

// RawRecord is one row as the document extractor returned it, keyed by the
// source table's header text. Key order follows the document and decides the
// output column order, so records decode through an ordered map.
type RawRecord = *orderedmap.OrderedMap[string, any]

// ParsedTable is the normalized form of an extracted table: sanitized column
// names in first-seen order, one inferred type per column, uniform rows.
// Cells are nil, string, or float64 (number columns only). Boolean and date
// columns keep cleaned string cells; their ColumnTypes entry is advisory.
type ParsedTable struct {
	Columns     []string              `json:"columns"`
	ColumnTypes map[string]ColumnType `json:"columnTypes"`
	Rows        []map[string]any      `json:"rows"`
}

// EmptyTable returns the canonical zero-row table. Slices and maps are
// non-nil so the JSON form is always {"columns":[],"columnTypes":{},"rows":[]}.
func EmptyTable() *ParsedTable {
	return &ParsedTable{
		Columns:     []string{},
		ColumnTypes: map[string]ColumnType{},
		Rows:        []map[string]any{},
	}
}

// ExtractedTable is a stored extraction result with its provenance.
type ExtractedTable struct {
	ID         string       `json:"id"`
	JobID      string       `json:"jobId,omitempty"` // empty for ad-hoc extractions
	Name       string       `json:"name"`
	SourcePath string       `json:"sourcePath"`
	Model      string       `json:"model,omitempty"`
	RowCount   int          `json:"rowCount"`
	Data       *ParsedTable `json:"data,omitempty"`
	CreatedAt  time.Time    `json:"createdAt"`
	UpdatedAt  time.Time    `json:"updatedAt"`
}

// TableStore provides persistence for extraction results.
type TableStore interface {
	SaveTable(t *ExtractedTable) error
	UpsertForJob(t *ExtractedTable) error
	GetTable(id string) (*ExtractedTable, error)
	ListTables() ([]ExtractedTable, error)
	DeleteTable(id string) error
}

// WriteMode controls how exported rows land in an external database.
type WriteMode string

const (
	// WriteReplace drops and recreates the target table before writing.
	WriteReplace WriteMode = "replace"
	// WriteAppend adds rows, creating the target only if it is absent.
	WriteAppend WriteMode = "append"
)
