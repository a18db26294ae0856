package storage

import (
	"database/sql"
	"fmt"
	"time"

	"tabular/internal/domain"

	"github.com/google/uuid"
)

// ConnectionStore manages export connection records in SQLite.
type ConnectionStore struct {
	db *DB
}

// NewConnectionStore creates a new ConnectionStore.
func NewConnectionStore(db *DB) *ConnectionStore {
	return &ConnectionStore{db: db}
}

func (s *ConnectionStore) CreateConnection(c *domain.DatabaseConnection) error {
	now := time.Now()
	if c.ID == "" {
		c.ID = uuid.New().String()
	}
	c.CreatedAt = now
	c.UpdatedAt = now

	_, err := s.db.conn.Exec(
		`INSERT INTO db_connections (id, name, driver, host, port, database_name, username, ssl_mode, extra_json, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		c.ID, c.Name, c.Driver, c.Host, c.Port, c.Database, c.Username, c.SSLMode, c.ExtraJSON, c.CreatedAt, c.UpdatedAt,
	)
	return err
}

func (s *ConnectionStore) GetConnection(id string) (*domain.DatabaseConnection, error) {
	row := s.db.conn.QueryRow(
		`SELECT id, name, driver, host, port, database_name, username, ssl_mode, extra_json, created_at, updated_at
		 FROM db_connections WHERE id = ?`, id,
	)

	c := &domain.DatabaseConnection{}
	err := row.Scan(&c.ID, &c.Name, &c.Driver, &c.Host, &c.Port, &c.Database, &c.Username, &c.SSLMode, &c.ExtraJSON, &c.CreatedAt, &c.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("database connection not found: %s", id)
	}
	return c, err
}

func (s *ConnectionStore) ListConnections() ([]domain.DatabaseConnection, error) {
	rows, err := s.db.conn.Query(
		`SELECT id, name, driver, host, port, database_name, username, ssl_mode, extra_json, created_at, updated_at
		 FROM db_connections ORDER BY name`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var conns []domain.DatabaseConnection
	for rows.Next() {
		var c domain.DatabaseConnection
		if err := rows.Scan(&c.ID, &c.Name, &c.Driver, &c.Host, &c.Port, &c.Database, &c.Username, &c.SSLMode, &c.ExtraJSON, &c.CreatedAt, &c.UpdatedAt); err != nil {
			return nil, err
		}
		conns = append(conns, c)
	}
	return conns, rows.Err()
}

func (s *ConnectionStore) UpdateConnection(c *domain.DatabaseConnection) error {
	c.UpdatedAt = time.Now()
	_, err := s.db.conn.Exec(
		`UPDATE db_connections SET name=?, driver=?, host=?, port=?, database_name=?, username=?, ssl_mode=?, extra_json=?, updated_at=?
		 WHERE id=?`,
		c.Name, c.Driver, c.Host, c.Port, c.Database, c.Username, c.SSLMode, c.ExtraJSON, c.UpdatedAt, c.ID,
	)
	return err
}

func (s *ConnectionStore) DeleteConnection(id string) error {
	_, err := s.db.conn.Exec(`DELETE FROM db_connections WHERE id = ?`, id)
	return err
}
