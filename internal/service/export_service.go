package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"tabular/internal/domain"
	"tabular/internal/normalize"
	"tabular/internal/secret"
	"tabular/internal/sink"
	"tabular/internal/storage"
)

// ─────────────────────────────────────────────────────────────
// Export Service — connection management and table delivery
// ─────────────────────────────────────────────────────────────

// CreateConnectionInput is the service-layer DTO for creating/updating
// export connections. The password travels here once and lands in the
// secret store, never in SQLite.
type CreateConnectionInput struct {
	Name      string `json:"name"`
	Driver    string `json:"driver"`
	Host      string `json:"host"`
	Port      int    `json:"port"`
	Database  string `json:"database"`
	Username  string `json:"username"`
	Password  string `json:"password"`
	SSLMode   string `json:"sslMode"`
	ExtraJSON string `json:"extraJson"`
}

// ExportService manages export connections and writes stored tables to
// external databases. It pools live sinks per connection ID.
type ExportService struct {
	conns   *storage.ConnectionStore
	tables  *storage.TableStore
	secrets secret.SecretStore

	mu     sync.Mutex
	active map[string]sink.Sink
}

// NewExportService creates an ExportService.
func NewExportService(
	conns *storage.ConnectionStore,
	tables *storage.TableStore,
	secrets secret.SecretStore,
) *ExportService {
	return &ExportService{
		conns:   conns,
		tables:  tables,
		secrets: secrets,
		active:  make(map[string]sink.Sink),
	}
}

// ── Connection CRUD ────────────────────────────────────────

func (s *ExportService) ListConnections() ([]domain.DatabaseConnection, error) {
	return s.conns.ListConnections()
}

func (s *ExportService) GetConnection(id string) (*domain.DatabaseConnection, error) {
	return s.conns.GetConnection(id)
}

func (s *ExportService) CreateConnection(input CreateConnectionInput) (*domain.DatabaseConnection, error) {
	driver := domain.DatabaseDriver(input.Driver)
	switch driver {
	case domain.DatabaseDriverMySQL, domain.DatabaseDriverPostgres,
		domain.DatabaseDriverMongoDB, domain.DatabaseDriverSQLite:
	default:
		return nil, fmt.Errorf("unsupported driver: %s", input.Driver)
	}

	conn := &domain.DatabaseConnection{
		Name:      input.Name,
		Driver:    driver,
		Host:      input.Host,
		Port:      input.Port,
		Database:  input.Database,
		Username:  input.Username,
		SSLMode:   input.SSLMode,
		ExtraJSON: input.ExtraJSON,
	}
	if err := s.conns.CreateConnection(conn); err != nil {
		return nil, fmt.Errorf("create connection: %w", err)
	}
	if input.Password != "" && s.secrets != nil {
		_ = s.secrets.Set("db:"+conn.ID, []byte(input.Password))
	}
	return conn, nil
}

func (s *ExportService) UpdateConnection(id string, input CreateConnectionInput) error {
	conn, err := s.conns.GetConnection(id)
	if err != nil {
		return err
	}
	conn.Name = input.Name
	conn.Driver = domain.DatabaseDriver(input.Driver)
	conn.Host = input.Host
	conn.Port = input.Port
	conn.Database = input.Database
	conn.Username = input.Username
	conn.SSLMode = input.SSLMode
	conn.ExtraJSON = input.ExtraJSON
	if err := s.conns.UpdateConnection(conn); err != nil {
		return err
	}
	if input.Password != "" && s.secrets != nil {
		_ = s.secrets.Set("db:"+id, []byte(input.Password))
	}
	// Invalidate the pooled sink so the next write re-connects with new config.
	s.closeSink(id)
	return nil
}

func (s *ExportService) DeleteConnection(id string) error {
	s.closeSink(id)
	if s.secrets != nil {
		_ = s.secrets.Delete("db:" + id)
	}
	return s.conns.DeleteConnection(id)
}

// ── Test + Export ──────────────────────────────────────────

func (s *ExportService) TestConnection(ctx context.Context, id string) error {
	sk, err := s.getOrCreate(id)
	if err != nil {
		return err
	}
	return sk.TestConnection(ctx)
}

// ExportTable writes a stored table to the given connection. An empty
// targetTable falls back to the sanitized table name; an empty mode defaults
// to replace. Returns the number of rows written.
func (s *ExportService) ExportTable(ctx context.Context, tableID, connectionID, targetTable string, mode domain.WriteMode) (int, error) {
	table, err := s.tables.GetTable(tableID)
	if err != nil {
		return 0, err
	}
	if table.Data == nil {
		return 0, fmt.Errorf("table %s has no data", tableID)
	}

	if targetTable == "" {
		targetTable = normalize.SanitizeColumn(table.Name)
	}
	if targetTable == "" {
		targetTable = "tabular_export"
	}
	if mode == "" {
		mode = domain.WriteReplace
	}

	sk, err := s.getOrCreate(connectionID)
	if err != nil {
		return 0, err
	}

	writeCtx, cancel := context.WithTimeout(ctx, 2*time.Minute)
	defer cancel()

	rows, err := sk.WriteTable(writeCtx, targetTable, table.Data, mode)
	if err != nil {
		return 0, fmt.Errorf("write table %s: %w", targetTable, err)
	}
	return rows, nil
}

// ── Sink Pool ──────────────────────────────────────────────

func (s *ExportService) getOrCreate(id string) (sink.Sink, error) {
	s.mu.Lock()
	if sk, ok := s.active[id]; ok {
		s.mu.Unlock()
		return sk, nil
	}
	s.mu.Unlock()

	conn, err := s.conns.GetConnection(id)
	if err != nil {
		return nil, fmt.Errorf("get connection %s: %w", id, err)
	}

	var password string
	if s.secrets != nil {
		if pw, err := s.secrets.Get("db:" + id); err == nil {
			password = string(pw)
		}
	}

	sk, err := sink.New(conn, password)
	if err != nil {
		return nil, fmt.Errorf("open sink: %w", err)
	}

	s.mu.Lock()
	s.active[id] = sk
	s.mu.Unlock()
	return sk, nil
}

func (s *ExportService) closeSink(id string) {
	s.mu.Lock()
	if sk, ok := s.active[id]; ok {
		_ = sk.Close()
		delete(s.active, id)
	}
	s.mu.Unlock()
}

// Close tears down all pooled sinks.
func (s *ExportService) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, sk := range s.active {
		_ = sk.Close()
		delete(s.active, id)
	}
}
