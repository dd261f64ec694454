package dbclient

import (
	"fmt"

	"github.com/go-sql-driver/mysql"

	"anthemengine/internal/domain"
)

// buildMySQLDSN constructs a MySQL DSN from a SourceConnection.
func buildMySQLDSN(conn *domain.SourceConnection, password string) string {
	port := conn.Port
	if port == 0 {
		port = 3306
	}
	cfg := mysql.NewConfig()
	cfg.User = conn.Username
	cfg.Passwd = password
	cfg.Net = "tcp"
	cfg.Addr = fmt.Sprintf("%s:%d", conn.Host, port)
	cfg.DBName = conn.Database
	cfg.ParseTime = true
	cfg.Params = map[string]string{"charset": "utf8mb4"}
	if conn.SSLMode == "require" {
		cfg.TLSConfig = "true"
	}
	return cfg.FormatDSN()
}
