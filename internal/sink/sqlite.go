package sink

import (
	"strings"

	"tabular/internal/domain"

	_ "modernc.org/sqlite"
)

type sqliteDialect struct{}

func (sqliteDialect) DriverName() string { return "sqlite" }

// DSN treats Host as the database file path. No credentials apply.
func (sqliteDialect) DSN(conn *domain.DatabaseConnection, _ string) string {
	return conn.Host + "?_journal_mode=WAL&_busy_timeout=5000"
}

func (sqliteDialect) QuoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

func (sqliteDialect) Placeholder(int) string { return "?" }

func (sqliteDialect) NumberType() string { return "REAL" }
