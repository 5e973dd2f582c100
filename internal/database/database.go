// Package database provides catalog database connection management for
// ontocat. The catalog lives in sqlite by default; mysql is supported for
// shared deployments.
package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/go-sql-driver/mysql" // MySQL driver
	_ "github.com/mattn/go-sqlite3"    // SQLite driver

	"github.com/ontocat/ontocat/internal/config"
	"github.com/ontocat/ontocat/internal/sqlutil"
)

// Dialect names the SQL dialect of the catalog database.
type Dialect string

const (
	// DialectSQLite is the default file-backed catalog.
	DialectSQLite Dialect = "sqlite"
	// DialectMySQL is the shared server-backed catalog.
	DialectMySQL Dialect = "mysql"
)

// ParseDialect converts a configuration string to a Dialect. An empty
// string selects sqlite.
func ParseDialect(s string) (Dialect, error) {
	switch s {
	case "", "sqlite", "sqlite3":
		return DialectSQLite, nil
	case "mysql":
		return DialectMySQL, nil
	default:
		return "", fmt.Errorf("unknown catalog driver %q (sqlite or mysql)", s)
	}
}

// QuoteIdentifier quotes a table or column name in the dialect's
// identifier style: backticks on mysql, double quotes on sqlite.
func (d Dialect) QuoteIdentifier(name string) string {
	if d == DialectMySQL {
		return sqlutil.QuoteIdentifier(name)
	}
	return sqlutil.QuoteIdentifierANSI(name)
}

// Manager handles the catalog database connection.
type Manager struct {
	DB      *sql.DB
	dialect Dialect
	config  *config.CatalogConfig
}

// NewManager creates a new database manager from configuration.
func NewManager(cfg *config.CatalogConfig) (*Manager, error) {
	if cfg == nil {
		return nil, fmt.Errorf("catalog configuration is nil")
	}
	dialect, err := ParseDialect(cfg.Driver)
	if err != nil {
		return nil, err
	}
	return &Manager{
		dialect: dialect,
		config:  cfg,
	}, nil
}

// Dialect returns the configured catalog dialect.
func (m *Manager) Dialect() Dialect {
	return m.dialect
}

// Connect establishes the catalog connection with retry.
func (m *Manager) Connect(ctx context.Context) error {
	db, err := m.connectWithRetry(ctx)
	if err != nil {
		return fmt.Errorf("failed to connect to catalog database: %w", err)
	}
	m.DB = db
	return nil
}

// connectWithRetry attempts to connect with exponential backoff.
func (m *Manager) connectWithRetry(ctx context.Context) (*sql.DB, error) {
	var db *sql.DB
	var err error

	maxRetries := 3
	backoff := time.Second

	for i := 0; i < maxRetries; i++ {
		db, err = m.connect()
		if err == nil {
			if pingErr := db.PingContext(ctx); pingErr == nil {
				return db, nil
			} else {
				db.Close()
				err = pingErr
			}
		}

		if i < maxRetries-1 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(backoff):
				backoff *= 2 // Exponential backoff
			}
		}
	}

	return nil, fmt.Errorf("failed after %d retries: %w", maxRetries, err)
}

// connect creates a database connection for the configured dialect.
func (m *Manager) connect() (*sql.DB, error) {
	switch m.dialect {
	case DialectMySQL:
		return m.connectMySQL()
	default:
		return m.connectSQLite()
	}
}

func (m *Manager) connectMySQL() (*sql.DB, error) {
	dsn := BuildDSN(m.config)

	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, err
	}

	// Configure connection pool
	if m.config.MaxConnections > 0 {
		db.SetMaxOpenConns(m.config.MaxConnections)
	}
	if m.config.MaxIdleConnections > 0 {
		db.SetMaxIdleConns(m.config.MaxIdleConnections)
	}
	db.SetConnMaxLifetime(10 * time.Minute)

	return db, nil
}

func (m *Manager) connectSQLite() (*sql.DB, error) {
	path := m.config.Path
	if path == "" {
		return nil, fmt.Errorf("sqlite catalog path is empty")
	}

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, err
	}

	// WAL allows concurrent reads while a build writes.
	if _, err := db.Exec("PRAGMA journal_mode = WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}
	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}
	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to set busy timeout: %w", err)
	}

	return db, nil
}

// BuildDSN constructs a MySQL DSN from configuration.
func BuildDSN(cfg *config.CatalogConfig) string {
	// Format: user:password@tcp(host:port)/database?params
	dsn := fmt.Sprintf("%s:%s@tcp(%s:%d)/",
		cfg.User,
		cfg.Password,
		cfg.Host,
		cfg.Port,
	)

	if cfg.Database != "" {
		dsn += cfg.Database
	}

	params := "?parseTime=true&timeout=10s&readTimeout=30s&writeTimeout=30s"
	switch cfg.TLS {
	case "disable":
		params += "&tls=false"
	case "required":
		params += "&tls=true"
	case "preferred", "":
		params += "&tls=preferred"
	}

	return dsn + params
}

// Close closes the catalog connection gracefully.
func (m *Manager) Close() error {
	if m.DB == nil {
		return nil
	}
	if err := m.DB.Close(); err != nil {
		return fmt.Errorf("catalog close: %w", err)
	}
	m.DB = nil
	return nil
}

// Ping verifies the connection is alive.
func (m *Manager) Ping(ctx context.Context) error {
	if m.DB == nil {
		return fmt.Errorf("catalog is not connected")
	}
	if err := m.DB.PingContext(ctx); err != nil {
		return fmt.Errorf("catalog ping failed: %w", err)
	}
	return nil
}
