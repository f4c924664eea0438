package db

import (
	"fmt"
	"strings"

	// goqu dialects used by the statement builders.
	_ "github.com/doug-martin/goqu/v9/dialect/mysql"
	_ "github.com/doug-martin/goqu/v9/dialect/postgres"
	_ "github.com/doug-martin/goqu/v9/dialect/sqlite3"
)

// Dialect identifies the SQL backend family behind a connection string.
type Dialect string

const (
	DialectPostgres Dialect = "postgres"
	DialectMySQL    Dialect = "mysql"
	DialectSQLite   Dialect = "sqlite"
)

// ParseDialect picks the backend family from the scheme of a connection string.
func ParseDialect(connString string) (Dialect, error) {
	lower := strings.ToLower(strings.TrimSpace(connString))
	switch {
	case strings.HasPrefix(lower, "postgres://"), strings.HasPrefix(lower, "postgresql://"):
		return DialectPostgres, nil
	case strings.HasPrefix(lower, "mysql://"):
		return DialectMySQL, nil
	case strings.HasPrefix(lower, "sqlite:"), strings.HasPrefix(lower, "file:"):
		return DialectSQLite, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnsupportedDialect, redact(connString))
}

// RandomFunc returns the backend's random-ordering primitive.
func (d Dialect) RandomFunc() string {
	if d == DialectMySQL {
		return "RAND()"
	}
	return "RANDOM()"
}

// goquName maps the dialect to the name goqu registers it under.
func (d Dialect) goquName() string {
	if d == DialectSQLite {
		return "sqlite3"
	}
	return string(d)
}

// migrationDir is the directory of migrations.FS holding this dialect's schema.
func (d Dialect) migrationDir() string {
	return string(d)
}

// redact strips everything after the scheme so credentials never reach logs.
func redact(connString string) string {
	if i := strings.Index(connString, "://"); i >= 0 {
		return connString[:i+3] + "..."
	}
	if i := strings.Index(connString, ":"); i >= 0 {
		return connString[:i+1] + "..."
	}
	return "..."
}
