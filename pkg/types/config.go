package types

import (
	"errors"
	"strings"
	"time"
)

// Config holds what a store needs to connect.
type Config struct {
	DatabaseURL    string        `json:"database_url" yaml:"database_url"`
	ConnectRetries int           `json:"connect_retries" yaml:"connect_retries"`
	ConnectDelay   time.Duration `json:"connect_delay" yaml:"connect_delay"`
}

// Supported backend names.
const (
	BackendSQLite   = "sqlite"
	BackendPostgres = "postgres"
)

// Connection defaults.
const (
	DefaultConnectRetries = 3
	DefaultConnectDelay   = time.Second
)

// Config validation errors.
var (
	ErrDatabaseURLEmpty    = errors.New("database URL must not be empty")
	ErrBackendUnknown      = errors.New("unknown backend")
	ErrConnectRetriesValue = errors.New("connect retries must be positive")
	ErrConnectDelayValue   = errors.New("connect delay must not be negative")
)

// Backend returns the backend named by the URL scheme. A value without a
// scheme is a SQLite file path.
func (c Config) Backend() (string, error) {
	scheme, _, found := strings.Cut(c.DatabaseURL, "://")
	if !found {
		return BackendSQLite, nil
	}
	switch strings.ToLower(scheme) {
	case "sqlite", "sqlite3":
		return BackendSQLite, nil
	case "postgres", "postgresql":
		return BackendPostgres, nil
	default:
		return "", ErrBackendUnknown
	}
}

// Validate checks that the Config is well-formed.
func (c Config) Validate() error {
	if strings.TrimSpace(c.DatabaseURL) == "" {
		return ErrDatabaseURLEmpty
	}
	if _, err := c.Backend(); err != nil {
		return err
	}
	if c.ConnectRetries < 1 {
		return ErrConnectRetriesValue
	}
	if c.ConnectDelay < 0 {
		return ErrConnectDelayValue
	}
	return nil
}
