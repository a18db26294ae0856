package storage

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"tabular/internal/domain"

	"github.com/google/uuid"
)

// TableStore implements persistence for normalized extraction results.
// Table data is serialized to JSON columns, one blob per aspect, so the
// schema never has to chase the shape of extracted documents.
type TableStore struct {
	db *DB
}

// NewTableStore creates a new TableStore.
func NewTableStore(db *DB) *TableStore {
	return &TableStore{db: db}
}

func marshalTableData(d *domain.ParsedTable) (columns, types, rows string) {
	if d == nil {
		return "[]", "{}", "[]"
	}
	c, _ := json.Marshal(d.Columns)
	t, _ := json.Marshal(d.ColumnTypes)
	r, _ := json.Marshal(d.Rows)
	return string(c), string(t), string(r)
}

func unmarshalTableData(columns, types, rows string) *domain.ParsedTable {
	d := domain.EmptyTable()
	json.Unmarshal([]byte(columns), &d.Columns)
	json.Unmarshal([]byte(types), &d.ColumnTypes)
	json.Unmarshal([]byte(rows), &d.Rows)
	return d
}

// SaveTable inserts a new table with a fresh ID.
func (s *TableStore) SaveTable(t *domain.ExtractedTable) error {
	now := time.Now()
	t.ID = uuid.New().String()
	t.CreatedAt = now
	t.UpdatedAt = now
	if t.Name == "" {
		t.Name = "Untitled"
	}

	columns, types, rows := marshalTableData(t.Data)
	_, err := s.db.conn.Exec(
		`INSERT INTO extracted_tables (id, job_id, name, source_path, model, row_count,
		 columns_json, column_types_json, rows_json, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		t.ID, t.JobID, t.Name, t.SourcePath, t.Model, t.RowCount,
		columns, types, rows, t.CreatedAt, t.UpdatedAt,
	)
	return err
}

// UpsertForJob keeps one stored table per job: the first run inserts, later
// runs rewrite the data in place so the table ID stays stable.
func (s *TableStore) UpsertForJob(t *domain.ExtractedTable) error {
	if t.JobID == "" {
		return s.SaveTable(t)
	}

	var existingID string
	var createdAt time.Time
	err := s.db.conn.QueryRow(
		`SELECT id, created_at FROM extracted_tables WHERE job_id = ? LIMIT 1`, t.JobID,
	).Scan(&existingID, &createdAt)
	if err == sql.ErrNoRows {
		return s.SaveTable(t)
	}
	if err != nil {
		return err
	}

	t.ID = existingID
	t.CreatedAt = createdAt
	t.UpdatedAt = time.Now()
	if t.Name == "" {
		t.Name = "Untitled"
	}

	columns, types, rows := marshalTableData(t.Data)
	_, err = s.db.conn.Exec(
		`UPDATE extracted_tables SET name=?, source_path=?, model=?, row_count=?,
		 columns_json=?, column_types_json=?, rows_json=?, updated_at=? WHERE id=?`,
		t.Name, t.SourcePath, t.Model, t.RowCount,
		columns, types, rows, t.UpdatedAt, t.ID,
	)
	return err
}

// GetTable loads one table including its data.
func (s *TableStore) GetTable(id string) (*domain.ExtractedTable, error) {
	t := &domain.ExtractedTable{}
	var columns, types, rows string

	err := s.db.conn.QueryRow(
		`SELECT id, job_id, name, source_path, model, row_count,
		 columns_json, column_types_json, rows_json, created_at, updated_at
		 FROM extracted_tables WHERE id = ?`, id,
	).Scan(
		&t.ID, &t.JobID, &t.Name, &t.SourcePath, &t.Model, &t.RowCount,
		&columns, &types, &rows, &t.CreatedAt, &t.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("table not found: %s", id)
	}
	if err != nil {
		return nil, err
	}

	t.Data = unmarshalTableData(columns, types, rows)
	return t, nil
}

// ListTables returns table metadata without row data, newest first.
func (s *TableStore) ListTables() ([]domain.ExtractedTable, error) {
	rows, err := s.db.conn.Query(
		`SELECT id, job_id, name, source_path, model, row_count, created_at, updated_at
		 FROM extracted_tables ORDER BY updated_at DESC`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var tables []domain.ExtractedTable
	for rows.Next() {
		var t domain.ExtractedTable
		if err := rows.Scan(&t.ID, &t.JobID, &t.Name, &t.SourcePath, &t.Model,
			&t.RowCount, &t.CreatedAt, &t.UpdatedAt); err != nil {
			return nil, err
		}
		tables = append(tables, t)
	}
	return tables, rows.Err()
}

// DeleteTable removes a stored table.
func (s *TableStore) DeleteTable(id string) error {
	_, err := s.db.conn.Exec(`DELETE FROM extracted_tables WHERE id = ?`, id)
	return err
}
