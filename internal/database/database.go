// Package database opens the docvault SQL pool and provides the transaction and
// conflict helpers shared by every repository.
package database

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/go-sql-driver/mysql"
	_ "github.com/lib/pq"
)

// Supported values of DB_DRIVER.
const (
	DriverPostgres = "postgres"
	DriverMySQL    = "mysql"
)

// Config holds database configuration settings.
type Config struct {
	Driver             string
	ConnectionString   string
	MaxOpenConnections int
	MaxIdleConnections int
	ConnMaxLifetime    time.Duration
	// PingRetries is the number of extra ping attempts made while the database is starting up.
	PingRetries uint64
}

// Connect opens the pool and waits for the database to answer a ping.
func Connect(cfg Config) (*sql.DB, error) {
	dsn, err := NormalizeDSN(cfg.Driver, cfg.ConnectionString)
	if err != nil {
		return nil, err
	}

	db, err := sql.Open(cfg.Driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(cfg.MaxOpenConnections)
	db.SetMaxIdleConns(cfg.MaxIdleConnections)
	db.SetConnMaxLifetime(cfg.ConnMaxLifetime)

	policy := backoff.WithMaxRetries(backoff.NewExponentialBackOff(), cfg.PingRetries)
	if err := backoff.Retry(func() error {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return db.PingContext(ctx)
	}, policy); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return db, nil
}

// NormalizeDSN returns the connection string the driver needs. MySQL DSNs are forced to
// parseTime=true in UTC because repositories scan DATETIME columns into time.Time and
// scan job cutoffs compare against UTC timestamps. An optional mysql:// prefix is accepted
// so one DB_CONNECTION_STRING also serves migrations.
func NormalizeDSN(driver, dsn string) (string, error) {
	switch driver {
	case DriverPostgres:
		return dsn, nil
	case DriverMySQL:
		cfg, err := mysql.ParseDSN(strings.TrimPrefix(dsn, "mysql://"))
		if err != nil {
			return "", fmt.Errorf("invalid mysql connection string: %w", err)
		}
		cfg.ParseTime = true
		cfg.Loc = time.UTC
		return cfg.FormatDSN(), nil
	default:
		return "", fmt.Errorf("sql: unknown driver %q", driver)
	}
}

// MigrationURL returns the golang-migrate database URL for the same connection. MySQL
// migrations hold several statements per file, so multiStatements is switched on.
func MigrationURL(driver, dsn string) (string, error) {
	if driver != DriverMySQL {
		return dsn, nil
	}
	cfg, err := mysql.ParseDSN(strings.TrimPrefix(dsn, "mysql://"))
	if err != nil {
		return "", fmt.Errorf("invalid mysql connection string: %w", err)
	}
	cfg.ParseTime = true
	cfg.MultiStatements = true
	return "mysql://" + cfg.FormatDSN(), nil
}
