package sources

import (
	"context"
	"fmt"

	"anthemengine/internal/dbclient"
	"anthemengine/internal/records"
)

// ── Database Source ────────────────────────────────────────
// Reads records from a stored source connection.
// Reuses the dbclient.Connector infrastructure via a provider interface.

// DBProvider resolves a stored connection id to a live connector.
// The app layer implements this and injects it at startup.
type DBProvider interface {
	Connector(ctx context.Context, connectionID string) (dbclient.Connector, error)
}

var dbProvider DBProvider

// SetDBProvider is called by the app at startup.
func SetDBProvider(p DBProvider) { dbProvider = p }

type databaseSource struct{}

func init() { records.RegisterSource(&databaseSource{}) }

func (s *databaseSource) Spec() records.SourceSpec {
	return records.SourceSpec{
		Type:  "database",
		Label: "Database Connection",
		ConfigFields: []records.ConfigField{
			{Key: "connectionId", Label: "Connection", Required: true, Help: "Id of a connection added with `anthem sources add`"},
			{Key: "tablePrefix", Label: "Table Prefix", Help: "Prepended to every object name (e.g. 'sf_')"},
		},
	}
}

func (s *databaseSource) Fetch(ctx context.Context, cfg records.SourceConfig, q records.Query) ([]records.Record, error) {
	connID, _ := cfg["connectionId"].(string)
	if connID == "" {
		return nil, fmt.Errorf("connectionId is required")
	}
	if dbProvider == nil {
		return nil, fmt.Errorf("database provider not initialized")
	}

	conn, err := dbProvider.Connector(ctx, connID)
	if err != nil {
		return nil, fmt.Errorf("connect: %w", err)
	}

	prefix, _ := cfg["tablePrefix"].(string)
	page, err := conn.Select(ctx, dbclient.Select{
		Table:   prefix + q.Object,
		Columns: q.Fields,
		Where:   q.Where,
		Equals:  q.Equals,
		OrderBy: q.OrderBy,
		Limit:   q.Limit,
	})
	if err != nil {
		return nil, err
	}

	out := make([]records.Record, 0, len(page.Rows))
	for _, row := range page.Maps() {
		out = append(out, records.Record{Data: row})
	}
	return out, nil
}
