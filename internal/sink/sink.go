package sink

import (
	"context"
	"fmt"

	"tabular/internal/domain"
)

// ── Sinks ─────────────────────────────────────────────────────
// A Sink delivers a normalized table into an external database. The SQL
// engines share one implementation parameterized by dialect; MongoDB gets
// its own document-shaped one.

// Sink writes parsed tables into an external system.
type Sink interface {
	// TestConnection verifies the target is reachable.
	TestConnection(ctx context.Context) error

	// WriteTable creates or extends the named table and writes every row.
	// Returns the number of rows written.
	WriteTable(ctx context.Context, table string, t *domain.ParsedTable, mode domain.WriteMode) (int, error)

	// Close releases the underlying connection.
	Close() error
}

// New creates a Sink for the given connection. The password is resolved by
// the caller from the secret store; it never lives on the connection record.
func New(conn *domain.DatabaseConnection, password string) (Sink, error) {
	switch conn.Driver {
	case domain.DatabaseDriverPostgres:
		return newSQLSink(conn, password, postgresDialect{})
	case domain.DatabaseDriverMySQL:
		return newSQLSink(conn, password, mysqlDialect{})
	case domain.DatabaseDriverSQLite:
		return newSQLSink(conn, password, sqliteDialect{})
	case domain.DatabaseDriverMongoDB:
		return newMongoSink(conn, password)
	default:
		return nil, fmt.Errorf("unsupported driver: %s", conn.Driver)
	}
}

// dialect covers the differences between SQL engines that matter for
// delivery: driver registration name, DSN shape, identifier quoting,
// parameter placeholders, and the numeric column type.
type dialect interface {
	DriverName() string
	DSN(conn *domain.DatabaseConnection, password string) string
	QuoteIdent(name string) string
	Placeholder(n int) string // 1-based position
	NumberType() string
}
