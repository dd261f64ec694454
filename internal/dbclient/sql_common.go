package dbclient

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/samber/lo"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cast"
)

// sqlConnector is the shared implementation for MySQL, Postgres, and SQLite.
type sqlConnector struct {
	driverName string
	db         *sql.DB
	logger     logrus.FieldLogger
}

// newSQLConnector creates a generic SQL connector.
func newSQLConnector(driverName, dsn string, logger logrus.FieldLogger) (*sqlConnector, error) {
	db, err := sql.Open(driverName, dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", driverName, err)
	}
	db.SetMaxOpenConns(5)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(10 * time.Minute)
	if driverName == "sqlite" {
		db.SetMaxOpenConns(1)
	}

	return &sqlConnector{driverName: driverName, db: db, logger: logger}, nil
}

func (c *sqlConnector) TestConnection(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	return c.db.PingContext(ctx)
}

// ── Select ─────────────────────────────────────────────────

func (c *sqlConnector) Select(ctx context.Context, s Select) (*QueryPage, error) {
	query, args, err := buildSelect(c.driverName, s)
	if err != nil {
		return nil, err
	}
	c.logger.WithField("table", s.Table).Debugf("select: %s", query)

	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	rows, err := c.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query: %w", err)
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("columns: %w", err)
	}

	types, err := rows.ColumnTypes()
	if err != nil {
		return nil, fmt.Errorf("column types: %w", err)
	}
	dbTypes := make([]string, len(types))
	for j, ct := range types {
		dbTypes[j] = ct.DatabaseTypeName()
	}

	page := &QueryPage{Columns: cols}
	for rows.Next() {
		values := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for j := range values {
			ptrs[j] = &values[j]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}
		for j, v := range values {
			values[j] = normalizeValue(v, dbTypes[j])
		}
		page.Rows = append(page.Rows, values)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate: %w", err)
	}
	return page, nil
}

// buildSelect renders s for driver. Identifiers are quoted and the
// equality value is bound as a parameter.
func buildSelect(driver string, s Select) (string, []any, error) {
	if s.Table == "" {
		return "", nil, fmt.Errorf("%w: table is required", ErrInvalidSelect)
	}
	table, err := quoteIdent(driver, s.Table)
	if err != nil {
		return "", nil, err
	}

	cols := "*"
	if len(s.Columns) > 0 {
		quoted := make([]string, 0, len(s.Columns))
		for _, col := range lo.Uniq(s.Columns) {
			q, err := quoteIdent(driver, col)
			if err != nil {
				return "", nil, err
			}
			quoted = append(quoted, q)
		}
		cols = strings.Join(quoted, ", ")
	}

	var (
		b    strings.Builder
		args []any
	)
	fmt.Fprintf(&b, "SELECT %s FROM %s", cols, table)
	if s.Where != "" {
		where, err := quoteIdent(driver, s.Where)
		if err != nil {
			return "", nil, err
		}
		fmt.Fprintf(&b, " WHERE %s = %s", where, placeholder(driver, 1))
		args = append(args, s.Equals)
	}
	if len(s.OrderBy) > 0 {
		order := make([]string, 0, len(s.OrderBy))
		for _, col := range s.OrderBy {
			q, err := quoteIdent(driver, col)
			if err != nil {
				return "", nil, err
			}
			order = append(order, q)
		}
		fmt.Fprintf(&b, " ORDER BY %s", strings.Join(order, ", "))
	}
	if s.Limit > 0 {
		fmt.Fprintf(&b, " LIMIT %d", s.Limit)
	}
	return b.String(), args, nil
}

// quoteIdent quotes a table or column name. Dotted names are quoted per
// segment so schema-qualified tables work.
func quoteIdent(driver, name string) (string, error) {
	if strings.TrimSpace(name) == "" || strings.ContainsRune(name, 0) {
		return "", fmt.Errorf("%w: bad identifier %q", ErrInvalidSelect, name)
	}
	q := `"`
	if driver == "mysql" {
		q = "`"
	}
	parts := strings.Split(name, ".")
	for i, p := range parts {
		if p == "" {
			return "", fmt.Errorf("%w: bad identifier %q", ErrInvalidSelect, name)
		}
		parts[i] = q + strings.ReplaceAll(p, q, q+q) + q
	}
	return strings.Join(parts, "."), nil
}

func placeholder(driver string, n int) string {
	if driver == "postgres" {
		return fmt.Sprintf("$%d", n)
	}
	return "?"
}

// normalizeValue converts driver byte slices to strings. Times stay
// time.Time so the encoder can format them.
// normalizeValue converts driver byte slices to Go values. Postgres NUMERIC
// and MySQL DECIMAL arrive as text and are parsed as numbers.
func normalizeValue(v any, dbType string) any {
	switch val := v.(type) {
	case []byte:
		if isDecimalType(dbType) {
			if f, err := cast.ToFloat64E(string(val)); err == nil {
				return f
			}
		}
		return string(val)
	case string:
		if isDecimalType(dbType) {
			if f, err := cast.ToFloat64E(val); err == nil {
				return f
			}
		}
		return val
	default:
		return val
	}
}

func isDecimalType(dbType string) bool {
	if i := strings.IndexByte(dbType, '('); i >= 0 {
		dbType = dbType[:i]
	}
	switch strings.ToUpper(strings.TrimSpace(dbType)) {
	case "NUMERIC", "DECIMAL", "UNSIGNED DECIMAL":
		return true
	}
	return false
}

// ── Introspection ──────────────────────────────────────────

func (c *sqlConnector) Introspect(ctx context.Context) (*SchemaInfo, error) {
	ctx, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()

	switch c.driverName {
	case "sqlite":
		return c.introspectSQLite(ctx)
	default:
		return c.introspectInfoSchema(ctx)
	}
}

// introspectInfoSchema works for MySQL and Postgres via INFORMATION_SCHEMA.
func (c *sqlConnector) introspectInfoSchema(ctx context.Context) (*SchemaInfo, error) {
	schemaExpr := "DATABASE()"
	if c.driverName == "postgres" {
		schemaExpr = "CURRENT_SCHEMA()"
	}
	tableNames, err := c.scanStrings(ctx,
		`SELECT TABLE_NAME FROM INFORMATION_SCHEMA.TABLES
		 WHERE TABLE_SCHEMA = `+schemaExpr+` ORDER BY TABLE_NAME`)
	if err != nil {
		return nil, fmt.Errorf("list tables: %w", err)
	}

	schema := &SchemaInfo{}
	for _, tbl := range tableNames {
		colRows, err := c.db.QueryContext(ctx,
			`SELECT COLUMN_NAME, DATA_TYPE FROM INFORMATION_SCHEMA.COLUMNS
			 WHERE TABLE_NAME = `+placeholder(c.driverName, 1)+` ORDER BY ORDINAL_POSITION`, tbl)
		if err != nil {
			schema.Tables = append(schema.Tables, TableInfo{Name: tbl})
			continue
		}

		var cols []ColumnInfo
		for colRows.Next() {
			var ci ColumnInfo
			if err := colRows.Scan(&ci.Name, &ci.Type); err != nil {
				continue
			}
			cols = append(cols, ci)
		}
		colRows.Close()

		schema.Tables = append(schema.Tables, TableInfo{Name: tbl, Columns: cols})
	}

	return schema, nil
}

// introspectSQLite uses sqlite_master + PRAGMA table_info.
func (c *sqlConnector) introspectSQLite(ctx context.Context) (*SchemaInfo, error) {
	tableNames, err := c.scanStrings(ctx,
		`SELECT name FROM sqlite_master WHERE type='table' AND name NOT LIKE 'sqlite_%' ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("list tables: %w", err)
	}

	schema := &SchemaInfo{}
	for _, tbl := range tableNames {
		quoted, _ := quoteIdent("sqlite", tbl)
		pragmaRows, err := c.db.QueryContext(ctx, "PRAGMA table_info("+quoted+")")
		if err != nil {
			schema.Tables = append(schema.Tables, TableInfo{Name: tbl})
			continue
		}

		var cols []ColumnInfo
		for pragmaRows.Next() {
			var cid int
			var name, colType string
			var notNull, pk int
			var dfltValue sql.NullString
			if err := pragmaRows.Scan(&cid, &name, &colType, &notNull, &dfltValue, &pk); err != nil {
				continue
			}
			cols = append(cols, ColumnInfo{Name: name, Type: colType})
		}
		pragmaRows.Close()

		schema.Tables = append(schema.Tables, TableInfo{Name: tbl, Columns: cols})
	}

	return schema, nil
}

func (c *sqlConnector) scanStrings(ctx context.Context, query string) ([]string, error) {
	rows, err := c.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var s string
		if err := rows.Scan(&s); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

func (c *sqlConnector) Close() error {
	return c.db.Close()
}
