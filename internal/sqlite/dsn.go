package sqlite

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/mesh-intelligence/codemarshall/pkg/types"
)

// dialect selects the SQL flavour for DDL and placeholders.
type dialect int

const (
	dialectSQLite dialect = iota
	dialectPostgres
)

func (d dialect) String() string {
	if d == dialectPostgres {
		return types.BackendPostgres
	}
	return types.BackendSQLite
}

// rebind turns ? placeholders into $1, $2, ... for Postgres. Queries in this
// package never contain a literal question mark.
func (d dialect) rebind(query string) string {
	if d != dialectPostgres || !strings.Contains(query, "?") {
		return query
	}
	var sb strings.Builder
	sb.Grow(len(query) + 8)
	n := 0
	for i := 0; i < len(query); i++ {
		if query[i] == '?' {
			n++
			sb.WriteByte('$')
			sb.WriteString(strconv.Itoa(n))
			continue
		}
		sb.WriteByte(query[i])
	}
	return sb.String()
}

func (d dialect) configurePool(db *sql.DB) {
	if d == dialectSQLite {
		// One connection serializes writers and keeps :memory: databases alive.
		db.SetMaxOpenConns(1)
		db.SetMaxIdleConns(1)
		return
	}
	db.SetMaxOpenConns(maxOpenConns)
	db.SetMaxIdleConns(maxIdleConns)
	db.SetConnMaxIdleTime(connMaxIdleTime)
	db.SetConnMaxLifetime(connMaxLifetime)
}

// target is a parsed connection string.
type target struct {
	driver  string
	dsn     string
	dialect dialect
	path    string // SQLite file path; empty for :memory: and Postgres
}

const memoryPath = ":memory:"

// sqlitePragmas apply to every new SQLite connection.
var sqlitePragmas = []string{
	"_pragma=foreign_keys(1)",
	"_pragma=busy_timeout(5000)",
}

// parseDatabaseURL maps a connection string to a driver and DSN.
//
//	sqlite:///data/snippets.db   relative path data/snippets.db
//	sqlite:////var/snippets.db   absolute path /var/snippets.db
//	sqlite://:memory:            in-memory database
//	snippets.db                  bare file path
//	postgres://user@host/db      pgx
func parseDatabaseURL(raw string) (target, error) {
	backend, err := types.Config{DatabaseURL: raw}.Backend()
	if err != nil {
		return target{}, fmt.Errorf("%w: %q", err, schemeOf(raw))
	}
	if backend == types.BackendPostgres {
		return target{driver: "pgx", dsn: raw, dialect: dialectPostgres}, nil
	}

	rest := raw
	if _, after, found := strings.Cut(raw, "://"); found {
		rest = after
	}
	rest, query, _ := strings.Cut(rest, "?")

	var path string
	switch {
	case rest == memoryPath || rest == "/"+memoryPath || rest == "":
		path = memoryPath
	case !strings.Contains(raw, "://"):
		path = rest
	case strings.HasPrefix(rest, "/"):
		path = rest[1:]
	default:
		path = rest
	}

	params := append([]string{}, sqlitePragmas...)
	if query != "" {
		params = append(params, query)
	}
	t := target{
		driver:  "sqlite",
		dsn:     path + "?" + strings.Join(params, "&"),
		dialect: dialectSQLite,
	}
	if path != memoryPath {
		t.path = path
	}
	return t, nil
}

// prepare creates the parent directory of a SQLite database file.
func (t target) prepare() error {
	if t.path == "" {
		return nil
	}
	dir := filepath.Dir(t.path)
	if dir == "." {
		return nil
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating database directory %s: %w", dir, err)
	}
	return nil
}

func schemeOf(raw string) string {
	scheme, _, _ := strings.Cut(raw, "://")
	return scheme
}
