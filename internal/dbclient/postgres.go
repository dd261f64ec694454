package dbclient

import (
	"fmt"
	"strings"

	"anthemengine/internal/domain"

	_ "github.com/lib/pq"
)

// buildPostgresDSN constructs a key/value connection string from a SourceConnection.
func buildPostgresDSN(conn *domain.SourceConnection, password string) string {
	port := conn.Port
	if port == 0 {
		port = 5432
	}
	sslMode := conn.SSLMode
	if sslMode == "" {
		sslMode = "disable"
	}
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		pqValue(conn.Host), port, pqValue(conn.Username), pqValue(password), pqValue(conn.Database), pqValue(sslMode),
	)
}

// pqValue quotes a connection-string value so spaces and quotes survive.
func pqValue(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, `'`, `\'`)
	return "'" + s + "'"
}
