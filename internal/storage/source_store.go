package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"anthemengine/internal/domain"
)

// SourceStore manages source connection records in SQLite.
type SourceStore struct {
	db *DB
}

// NewSourceStore creates a new SourceStore.
func NewSourceStore(db *DB) *SourceStore {
	return &SourceStore{db: db}
}

const sourceColumns = `id, name, driver, host, port, database_name, username, ssl_mode, extra_json, created_at, updated_at`

// Create inserts c, assigning a new id when c.ID is empty.
func (s *SourceStore) Create(ctx context.Context, c *domain.SourceConnection) error {
	if c.ID == "" {
		c.ID = uuid.New().String()
	}
	if c.ExtraJSON == "" {
		c.ExtraJSON = "{}"
	}
	now := time.Now().UTC()
	c.CreatedAt = now
	c.UpdatedAt = now

	_, err := s.db.Conn().ExecContext(ctx,
		`INSERT INTO sources (`+sourceColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		c.ID, c.Name, c.Driver, c.Host, c.Port, c.Database, c.Username, c.SSLMode, c.ExtraJSON, c.CreatedAt, c.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert source: %w", err)
	}
	return nil
}

// Get returns the connection with the given id.
func (s *SourceStore) Get(ctx context.Context, id string) (*domain.SourceConnection, error) {
	row := s.db.Conn().QueryRowContext(ctx, `SELECT `+sourceColumns+` FROM sources WHERE id = ?`, id)
	return scanSource(row, id)
}

// GetByName returns the connection with the given name.
func (s *SourceStore) GetByName(ctx context.Context, name string) (*domain.SourceConnection, error) {
	row := s.db.Conn().QueryRowContext(ctx, `SELECT `+sourceColumns+` FROM sources WHERE name = ?`, name)
	return scanSource(row, name)
}

// List returns all connections ordered by name.
func (s *SourceStore) List(ctx context.Context) ([]domain.SourceConnection, error) {
	rows, err := s.db.Conn().QueryContext(ctx, `SELECT `+sourceColumns+` FROM sources ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var conns []domain.SourceConnection
	for rows.Next() {
		var c domain.SourceConnection
		if err := rows.Scan(&c.ID, &c.Name, &c.Driver, &c.Host, &c.Port, &c.Database, &c.Username, &c.SSLMode, &c.ExtraJSON, &c.CreatedAt, &c.UpdatedAt); err != nil {
			return nil, err
		}
		conns = append(conns, c)
	}
	return conns, rows.Err()
}

// Update overwrites the stored fields of c.
func (s *SourceStore) Update(ctx context.Context, c *domain.SourceConnection) error {
	c.UpdatedAt = time.Now().UTC()
	res, err := s.db.Conn().ExecContext(ctx,
		`UPDATE sources SET name=?, driver=?, host=?, port=?, database_name=?, username=?, ssl_mode=?, extra_json=?, updated_at=?
		 WHERE id=?`,
		c.Name, c.Driver, c.Host, c.Port, c.Database, c.Username, c.SSLMode, c.ExtraJSON, c.UpdatedAt, c.ID,
	)
	if err != nil {
		return fmt.Errorf("update source: %w", err)
	}
	return requireAffected(res, "source connection", c.ID)
}

// Delete removes the connection with the given id.
func (s *SourceStore) Delete(ctx context.Context, id string) error {
	res, err := s.db.Conn().ExecContext(ctx, `DELETE FROM sources WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete source: %w", err)
	}
	return requireAffected(res, "source connection", id)
}

func scanSource(row *sql.Row, key string) (*domain.SourceConnection, error) {
	c := &domain.SourceConnection{}
	err := row.Scan(&c.ID, &c.Name, &c.Driver, &c.Host, &c.Port, &c.Database, &c.Username, &c.SSLMode, &c.ExtraJSON, &c.CreatedAt, &c.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("source connection not found: %s: %w", key, ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return c, nil
}

func requireAffected(res sql.Result, what, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("%s not found: %s: %w", what, id, ErrNotFound)
	}
	return nil
}
