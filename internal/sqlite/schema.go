package sqlite

import (
	"context"
	"database/sql"
	"fmt"
)

// Schema DDL for SQLite. Every statement is idempotent so migrate can run on
// each attach.
const (
	sqliteCreateUsers = `CREATE TABLE IF NOT EXISTS users (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    username VARCHAR(20) NOT NULL UNIQUE,
    created_at DATETIME NOT NULL
);`

	sqliteCreateCollections = `CREATE TABLE IF NOT EXISTS collections (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    name VARCHAR(50) NOT NULL UNIQUE
);`

	sqliteCreateSnippets = `CREATE TABLE IF NOT EXISTS snippets (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    title VARCHAR(100) NOT NULL,
    description VARCHAR(500),
    language TEXT NOT NULL,
    code TEXT NOT NULL,
    collection_id INTEGER NOT NULL REFERENCES collections(id),
    user_id INTEGER NOT NULL REFERENCES users(id)
);`
)

// Schema DDL for Postgres.
const (
	pgCreateUsers = `CREATE TABLE IF NOT EXISTS users (
    id BIGSERIAL PRIMARY KEY,
    username VARCHAR(20) NOT NULL UNIQUE,
    created_at TIMESTAMPTZ NOT NULL
);`

	pgCreateCollections = `CREATE TABLE IF NOT EXISTS collections (
    id BIGSERIAL PRIMARY KEY,
    name VARCHAR(50) NOT NULL UNIQUE
);`

	pgCreateSnippets = `CREATE TABLE IF NOT EXISTS snippets (
    id BIGSERIAL PRIMARY KEY,
    title VARCHAR(100) NOT NULL,
    description VARCHAR(500),
    language TEXT NOT NULL,
    code TEXT NOT NULL,
    collection_id BIGINT NOT NULL REFERENCES collections(id),
    user_id BIGINT NOT NULL REFERENCES users(id)
);`
)

// Index DDL shared by both dialects.
const (
	idxSnippetsLanguage   = `CREATE INDEX IF NOT EXISTS idx_snippets_language ON snippets(language);`
	idxSnippetsCollection = `CREATE INDEX IF NOT EXISTS idx_snippets_collection ON snippets(collection_id);`
	idxSnippetsUser       = `CREATE INDEX IF NOT EXISTS idx_snippets_user ON snippets(user_id);`
)

// indexDDL lists all CREATE INDEX statements.
var indexDDL = []string{
	idxSnippetsLanguage,
	idxSnippetsCollection,
	idxSnippetsUser,
}

// schemaDDL lists the CREATE TABLE statements for d in dependency order.
func schemaDDL(d dialect) []string {
	if d == dialectPostgres {
		return []string{pgCreateUsers, pgCreateCollections, pgCreateSnippets}
	}
	return []string{sqliteCreateUsers, sqliteCreateCollections, sqliteCreateSnippets}
}

// migrate creates any missing tables and indexes in one transaction.
func migrate(ctx context.Context, db *sql.DB, d dialect) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	for _, stmt := range append(schemaDDL(d), indexDDL...) {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("executing %q: %w", firstLine(stmt), err)
		}
	}
	return tx.Commit()
}

func firstLine(s string) string {
	for i := 0; i < len(s); i++ {
		if s[i] == '\n' {
			return s[:i]
		}
	}
	return s
}
