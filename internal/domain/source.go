package domain

import "time"

// SourceDriver represents the type of database engine behind a record source.
type SourceDriver string

const (
	SourceDriverMySQL    SourceDriver = "mysql"
	SourceDriverPostgres SourceDriver = "postgres"
	SourceDriverMongoDB  SourceDriver = "mongodb"
	SourceDriverSQLite   SourceDriver = "sqlite"
)

// Drivers lists the supported drivers.
var Drivers = []SourceDriver{SourceDriverSQLite, SourceDriverPostgres, SourceDriverMySQL, SourceDriverMongoDB}

// SourceConnection holds the metadata for connecting to an external record store.
// The password is stored separately in the SecretStore.
type SourceConnection struct {
	ID        string       `json:"id"`
	Name      string       `json:"name"`
	Driver    SourceDriver `json:"driver"`
	Host      string       `json:"host"`     // hostname or file path (sqlite)
	Port      int          `json:"port"`     // 0 for sqlite
	Database  string       `json:"database"` // db name or empty for sqlite
	Username  string       `json:"username"`
	SSLMode   string       `json:"sslMode"`
	ExtraJSON string       `json:"extraJson"` // driver-specific options
	CreatedAt time.Time    `json:"createdAt"`
	UpdatedAt time.Time    `json:"updatedAt"`
}

// SecretKey is the SecretStore key holding this connection's password.
func (c *SourceConnection) SecretKey() string {
	return "source:" + c.ID
}
