package dbclient

import (
	"context"
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"

	"anthemengine/internal/domain"
)

// ErrInvalidSelect is returned when a Select names no table or an
// identifier the connector refuses to quote.
var ErrInvalidSelect = errors.New("dbclient: invalid select")

// Select is a single-table equality query. Identifiers are quoted by the
// connector and Equals is always sent as a bound parameter.
type Select struct {
	Table   string   `json:"table"`
	Columns []string `json:"columns"`
	Where   string   `json:"where,omitempty"`
	Equals  any      `json:"equals,omitempty"`
	OrderBy []string `json:"orderBy,omitempty"`
	Limit   int      `json:"limit,omitempty"`
}

// QueryPage is the result of a Select.
type QueryPage struct {
	Columns []string `json:"columns"`
	Rows    [][]any  `json:"rows"`
}

// Maps returns the rows keyed by column name. NULL columns are omitted.
func (p *QueryPage) Maps() []map[string]any {
	out := make([]map[string]any, 0, len(p.Rows))
	for _, row := range p.Rows {
		m := make(map[string]any, len(p.Columns))
		for i, col := range p.Columns {
			if i < len(row) && row[i] != nil {
				m[col] = row[i]
			}
		}
		out = append(out, m)
	}
	return out
}

// SchemaInfo describes the tables or collections of a source.
type SchemaInfo struct {
	Tables []TableInfo `json:"tables"`
}

// TableInfo describes a table/collection.
type TableInfo struct {
	Name    string       `json:"name"`
	Columns []ColumnInfo `json:"columns"`
}

// ColumnInfo describes a column/field.
type ColumnInfo struct {
	Name string `json:"name"`
	Type string `json:"type"`
}

// Connector abstracts interaction with an external record store.
type Connector interface {
	// TestConnection verifies connectivity.
	TestConnection(ctx context.Context) error

	// Select runs a single-table equality query.
	Select(ctx context.Context, s Select) (*QueryPage, error)

	// Introspect lists tables and their columns.
	Introspect(ctx context.Context) (*SchemaInfo, error)

	// Close releases the connection pool.
	Close() error
}

// NewConnector creates a Connector for the given source connection.
// The password must be provided separately (from SecretStore).
func NewConnector(conn *domain.SourceConnection, password string, logger logrus.FieldLogger) (Connector, error) {
	log := logger.WithFields(logrus.Fields{"component": "dbclient", "driver": conn.Driver, "connection": conn.Name})
	switch conn.Driver {
	case domain.SourceDriverSQLite:
		return newSQLiteConnector(conn, log)
	case domain.SourceDriverMySQL:
		return newSQLConnector("mysql", buildMySQLDSN(conn, password), log)
	case domain.SourceDriverPostgres:
		return newSQLConnector("postgres", buildPostgresDSN(conn, password), log)
	case domain.SourceDriverMongoDB:
		return newMongoConnector(conn, password, log)
	default:
		return nil, fmt.Errorf("unsupported driver: %s", conn.Driver)
	}
}
