package sink

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"strings"
	"time"

	"tabular/internal/domain"
)

// sqlSink is the shared delivery path for MySQL, Postgres, and SQLite.
type sqlSink struct {
	db      *sql.DB
	dialect dialect
}

func newSQLSink(conn *domain.DatabaseConnection, password string, d dialect) (*sqlSink, error) {
	db, err := sql.Open(d.DriverName(), d.DSN(conn, password))
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", d.DriverName(), err)
	}
	// Deliveries run one table at a time; the pool stays tiny.
	db.SetMaxOpenConns(2)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(10 * time.Minute)

	return &sqlSink{db: db, dialect: d}, nil
}

func (s *sqlSink) TestConnection(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	return s.db.PingContext(ctx)
}

func (s *sqlSink) WriteTable(ctx context.Context, table string, t *domain.ParsedTable, mode domain.WriteMode) (int, error) {
	if t == nil || len(t.Columns) == 0 {
		return 0, fmt.Errorf("table has no columns to write")
	}

	if mode == domain.WriteReplace {
		drop := fmt.Sprintf("DROP TABLE IF EXISTS %s", s.dialect.QuoteIdent(table))
		if _, err := s.db.ExecContext(ctx, drop); err != nil {
			return 0, fmt.Errorf("drop table: %w", err)
		}
	}

	create := createTableSQL(s.dialect, table, t)
	if _, err := s.db.ExecContext(ctx, create); err != nil {
		return 0, fmt.Errorf("create table: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, insertSQL(s.dialect, table, t.Columns))
	if err != nil {
		return 0, fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close()

	written := 0
	for _, row := range t.Rows {
		select {
		case <-ctx.Done():
			return 0, ctx.Err()
		default:
		}

		args := make([]any, len(t.Columns))
		for i, col := range t.Columns {
			args[i] = row[col]
		}
		if _, err := stmt.ExecContext(ctx, args...); err != nil {
			return 0, fmt.Errorf("insert row %d: %w", written+1, err)
		}
		written++
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit: %w", err)
	}

	log.Printf("[SINK] wrote %d row(s) to %s", written, table)
	return written, nil
}

func (s *sqlSink) Close() error {
	return s.db.Close()
}

// createTableSQL builds the CREATE TABLE statement. Number columns get the
// dialect's float type; everything else lands as TEXT since cleaned values
// for boolean and date columns remain strings.
func createTableSQL(d dialect, table string, t *domain.ParsedTable) string {
	defs := make([]string, 0, len(t.Columns))
	for _, col := range t.Columns {
		colType := "TEXT"
		if t.ColumnTypes[col] == domain.ColTypeNumber {
			colType = d.NumberType()
		}
		defs = append(defs, fmt.Sprintf("%s %s", d.QuoteIdent(col), colType))
	}
	return fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (%s)", d.QuoteIdent(table), strings.Join(defs, ", "))
}

// insertSQL builds the parameterized INSERT statement for one row.
func insertSQL(d dialect, table string, columns []string) string {
	quoted := make([]string, len(columns))
	marks := make([]string, len(columns))
	for i, col := range columns {
		quoted[i] = d.QuoteIdent(col)
		marks[i] = d.Placeholder(i + 1)
	}
	return fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		d.QuoteIdent(table), strings.Join(quoted, ", "), strings.Join(marks, ", "))
}
