// Package sqlite implements the SQL storage backend for codemarshall.
// SQLite (modernc.org/sqlite) is the default engine; postgres:// URLs are
// served through the pgx stdlib driver with the same queries.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/rs/zerolog"
	_ "modernc.org/sqlite"

	"github.com/mesh-intelligence/codemarshall/pkg/types"
)

// Compile-time interface check: Backend must implement Store.
var _ types.Store = (*Backend)(nil)

// Pool settings for server databases. SQLite is pinned to one connection.
const (
	maxOpenConns    = 5
	maxIdleConns    = 2
	connMaxIdleTime = 2 * time.Minute
	connMaxLifetime = 30 * time.Minute
	pingTimeout     = 5 * time.Second
)

// openFunc matches sql.Open. Tests swap it to simulate an unreachable database.
type openFunc func(driverName, dataSourceName string) (*sql.DB, error)

// Backend implements the Store interface on top of database/sql.
type Backend struct {
	mu       sync.RWMutex
	attached bool
	config   types.Config
	db       *sql.DB
	dialect  dialect
	log      zerolog.Logger
	open     openFunc
	sleep    func(ctx context.Context, d time.Duration) error
}

// NewBackend creates a new backend instance.
// The backend is not attached; call Attach with a Config to connect.
func NewBackend(log zerolog.Logger) *Backend {
	return &Backend{
		log:   log.With().Str("component", "store").Logger(),
		open:  sql.Open,
		sleep: sleepContext,
	}
}

// Open creates a backend and attaches it to the database named by cfg.
func Open(ctx context.Context, cfg types.Config, log zerolog.Logger) (*Backend, error) {
	b := NewBackend(log)
	if err := b.Attach(ctx, cfg); err != nil {
		return nil, err
	}
	return b, nil
}

// Attach connects to the database, retrying a fixed number of times, and
// creates the schema if it is missing.
// Returns ErrAlreadyAttached if already attached.
func (b *Backend) Attach(ctx context.Context, config types.Config) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.attached {
		return types.ErrAlreadyAttached
	}

	if err := config.Validate(); err != nil {
		return err
	}

	t, err := parseDatabaseURL(config.DatabaseURL)
	if err != nil {
		return err
	}
	if err := t.prepare(); err != nil {
		return err
	}

	db, err := b.connect(ctx, t, config.ConnectRetries, config.ConnectDelay)
	if err != nil {
		return err
	}

	if err := migrate(ctx, db, t.dialect); err != nil {
		db.Close()
		return fmt.Errorf("migrating schema: %w", err)
	}
	b.log.Debug().Str("dialect", t.dialect.String()).Msg("schema ready")

	b.db = db
	b.dialect = t.dialect
	b.config = config
	b.attached = true
	return nil
}

// connect opens the pool and pings it. Each failed attempt is logged and
// followed by a fixed delay; the last error is returned once retries run out.
func (b *Backend) connect(ctx context.Context, t target, retries int, delay time.Duration) (*sql.DB, error) {
	var lastErr error
	for attempt := 1; attempt <= retries; attempt++ {
		db, err := b.openAndPing(ctx, t)
		if err == nil {
			b.log.Debug().Int("attempt", attempt).Str("driver", t.driver).Msg("connected")
			return db, nil
		}
		lastErr = err
		b.log.Warn().Err(err).Int("attempt", attempt).Int("retries", retries).Msg("database connection failed")
		if attempt == retries {
			break
		}
		if err := b.sleep(ctx, delay); err != nil {
			return nil, err
		}
	}
	return nil, fmt.Errorf("connecting after %d attempts: %w", retries, lastErr)
}

func (b *Backend) openAndPing(ctx context.Context, t target) (*sql.DB, error) {
	db, err := b.open(t.driver, t.dsn)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	t.dialect.configurePool(db)

	pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}
	return db, nil
}

// Detach releases the connection pool. After Detach, all operations return
// ErrStoreDetached. Detach is idempotent.
func (b *Backend) Detach() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if !b.attached {
		return nil // idempotent
	}

	b.attached = false
	if b.db != nil {
		db := b.db
		b.db = nil
		if err := db.Close(); err != nil {
			return fmt.Errorf("closing database: %w", err)
		}
	}
	return nil
}

// unitOfWork runs fn inside one transaction. The transaction commits only if
// fn returns nil and is rolled back on every other path, panics included.
func (b *Backend) unitOfWork(ctx context.Context, op string, fn func(tx *sql.Tx) error) error {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if !b.attached {
		return types.ErrStoreDetached
	}

	log := b.log.With().Str("op", op).Str("uow", newUnitID()).Logger()
	start := time.Now()

	tx, err := b.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	if err := fn(tx); err != nil {
		log.Debug().Err(err).Dur("elapsed", time.Since(start)).Msg("rolled back")
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing %s: %w", op, err)
	}
	log.Debug().Dur("elapsed", time.Since(start)).Msg("committed")
	return nil
}

// q rewrites a query written with ? placeholders for the attached dialect.
func (b *Backend) q(query string) string {
	return b.dialect.rebind(query)
}

// newUnitID generates a UUID v7 to correlate the log lines of one unit of work.
func newUnitID() string {
	id, err := uuid.NewV7()
	if err != nil {
		// Fallback to UUID v4 if v7 generation fails
		return uuid.New().String()
	}
	return id.String()
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
