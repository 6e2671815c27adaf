// Package dialect hides the differences between the SQL databases the store runs on.
package dialect

import (
	"fmt"
	"strconv"
	"strings"
)

// Dialect represents a SQL database dialect.
type Dialect interface {
	// Name returns the dialect name, also used to select the migration set.
	Name() string

	// DriverName returns the database/sql driver name to use.
	DriverName() string

	// Rebind converts ? placeholders to the dialect's format.
	Rebind(query string) string

	// PragmaStatements returns statements executed once per new database handle.
	PragmaStatements() []string

	// SingleWriter reports whether the database serializes all access through one connection.
	SingleWriter() bool
}

// Type names a supported database.
type Type string

const (
	SQLite   Type = "sqlite"
	Postgres Type = "postgres"
)

// New creates a Dialect for the given type.
func New(t Type) (Dialect, error) {
	switch t {
	case SQLite:
		return sqliteDialect{}, nil
	case Postgres:
		return postgresDialect{}, nil
	default:
		return nil, fmt.Errorf("unsupported dialect: %s", t)
	}
}

// FromDriverName returns the dialect for a configured driver name.
func FromDriverName(driverName string) (Dialect, error) {
	switch strings.ToLower(strings.TrimSpace(driverName)) {
	case "sqlite", "sqlite3":
		return sqliteDialect{}, nil
	case "postgres", "postgresql", "pgx":
		return postgresDialect{}, nil
	default:
		return nil, fmt.Errorf("unsupported driver: %s", driverName)
	}
}

type sqliteDialect struct{}

func (sqliteDialect) Name() string { return string(SQLite) }

func (sqliteDialect) DriverName() string { return "sqlite" }

func (sqliteDialect) Rebind(query string) string { return query }

func (sqliteDialect) PragmaStatements() []string {
	return []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA busy_timeout=5000",
	}
}

func (sqliteDialect) SingleWriter() bool { return true }

type postgresDialect struct{}

func (postgresDialect) Name() string { return string(Postgres) }

func (postgresDialect) DriverName() string { return "pgx" }

// Rebind converts ? placeholders to $1, $2, etc. Placeholders inside
// single-quoted literals are left alone.
func (postgresDialect) Rebind(query string) string {
	var b strings.Builder
	b.Grow(len(query) + 8)

	idx := 1
	inLiteral := false
	for _, ch := range query {
		switch {
		case ch == '\'':
			inLiteral = !inLiteral
			b.WriteRune(ch)
		case ch == '?' && !inLiteral:
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(idx))
			idx++
		default:
			b.WriteRune(ch)
		}
	}
	return b.String()
}

func (postgresDialect) PragmaStatements() []string { return nil }

func (postgresDialect) SingleWriter() bool { return false }
