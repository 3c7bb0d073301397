// Package testutil provides helpers for tests that need a real database.
//
// Environment Variables:
//   - TEST_POSTGRES_DSN: PostgreSQL connection string
//   - TEST_MYSQL_DSN: MySQL connection string (parseTime=true&multiStatements=true)
//
// Tests calling SetupPostgresDB or SetupMySQLDB are skipped when the matching variable is
// unset, so `go test ./...` runs without any database.
//
//	db := testutil.SetupPostgresDB(t)
//	defer testutil.TeardownDB(t, db)
//
// Migrations are discovered by walking up from the working directory until a
// "migrations/{dbType}" directory is found.
package testutil

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	_ "github.com/go-sql-driver/mysql"
	"github.com/golang-migrate/migrate/v4"
	migratedb "github.com/golang-migrate/migrate/v4/database"
	"github.com/golang-migrate/migrate/v4/database/mysql"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/google/uuid"
	_ "github.com/lib/pq"
	"github.com/stretchr/testify/require"
)

// Tables in dependency order, children first.
var tables = []string{
	"audit_events",
	"audit_streams",
	"quarantine_overrides",
	"scan_jobs",
	"documents",
	"master_keys",
	"permission_overrides",
	"clients",
}

// GetPostgresTestDSN returns TEST_POSTGRES_DSN.
func GetPostgresTestDSN() string {
	return os.Getenv("TEST_POSTGRES_DSN")
}

// GetMySQLTestDSN returns TEST_MYSQL_DSN.
func GetMySQLTestDSN() string {
	return os.Getenv("TEST_MYSQL_DSN")
}

// SetupPostgresDB opens the PostgreSQL test database, migrates it and empties every table.
func SetupPostgresDB(t *testing.T) *sql.DB {
	t.Helper()

	dsn := GetPostgresTestDSN()
	if dsn == "" {
		t.Skip("TEST_POSTGRES_DSN not set")
	}
	return OpenPostgresDB(t, dsn)
}

// OpenPostgresDB opens, migrates and empties the PostgreSQL database at dsn.
func OpenPostgresDB(t *testing.T, dsn string) *sql.DB {
	t.Helper()

	db, err := sql.Open("postgres", dsn)
	require.NoError(t, err, "failed to connect to postgres")
	require.NoError(t, db.Ping(), "failed to ping postgres database")

	driver, err := postgres.WithInstance(db, &postgres.Config{})
	require.NoError(t, err, "failed to create postgres driver")
	runMigrations(t, driver, "postgresql", "postgres")

	CleanupPostgresDB(t, db)
	return db
}

// SetupMySQLDB opens the MySQL test database, migrates it and empties every table.
func SetupMySQLDB(t *testing.T) *sql.DB {
	t.Helper()

	dsn := GetMySQLTestDSN()
	if dsn == "" {
		t.Skip("TEST_MYSQL_DSN not set")
	}

	db, err := sql.Open("mysql", dsn)
	require.NoError(t, err, "failed to connect to mysql")
	require.NoError(t, db.Ping(), "failed to ping mysql database")

	driver, err := mysql.WithInstance(db, &mysql.Config{})
	require.NoError(t, err, "failed to create mysql driver")
	runMigrations(t, driver, "mysql", "mysql")

	CleanupMySQLDB(t, db)
	return db
}

// TeardownDB closes the database connection.
func TeardownDB(t *testing.T, db *sql.DB) {
	t.Helper()
	if db != nil {
		require.NoError(t, db.Close(), "failed to close database connection")
	}
}

// CleanupPostgresDB truncates every table.
func CleanupPostgresDB(t *testing.T, db *sql.DB) {
	t.Helper()

	query := "TRUNCATE TABLE "
	for i, table := range tables {
		if i > 0 {
			query += ", "
		}
		query += table
	}
	_, err := db.Exec(query + " CASCADE")
	require.NoError(t, err, "failed to truncate postgres tables")
}

// CleanupMySQLDB truncates every table with foreign key checks disabled.
func CleanupMySQLDB(t *testing.T, db *sql.DB) {
	t.Helper()

	// FOREIGN_KEY_CHECKS is per session, so pin one connection.
	conn, err := db.Conn(context.Background())
	require.NoError(t, err)
	defer func() { _ = conn.Close() }()

	ctx := context.Background()
	_, err = conn.ExecContext(ctx, "SET FOREIGN_KEY_CHECKS = 0")
	require.NoError(t, err, "failed to disable foreign key checks")

	for _, table := range tables {
		_, err = conn.ExecContext(ctx, "TRUNCATE TABLE "+table)
		require.NoError(t, err, "failed to truncate "+table+" table")
	}

	_, err = conn.ExecContext(ctx, "SET FOREIGN_KEY_CHECKS = 1")
	require.NoError(t, err, "failed to enable foreign key checks")
}

func runMigrations(t *testing.T, driver migratedb.Driver, dir, name string) {
	t.Helper()

	migrationsPath, err := getMigrationsPath(dir)
	require.NoError(t, err, "failed to find migrations path")

	m, err := migrate.NewWithDatabaseInstance(fmt.Sprintf("file://%s", migrationsPath), name, driver)
	require.NoError(t, err, "failed to create migrate instance for "+name)

	// The migrate instance is not closed: that would close the caller's *sql.DB.
	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		require.NoError(t, err, fmt.Sprintf("failed to run %s migrations from %s", name, migrationsPath))
	}
}

// getMigrationsPath walks up from the working directory to find migrations/{dbType}.
func getMigrationsPath(dbType string) (string, error) {
	dir, err := os.Getwd()
	if err != nil {
		return "", fmt.Errorf("failed to get working directory: %w", err)
	}

	for {
		migrationsPath := filepath.Join(dir, "migrations", dbType)
		if _, err := os.Stat(migrationsPath); err == nil {
			return migrationsPath, nil
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			return "", fmt.Errorf("migrations directory not found for %s (started from %s)", dbType, dir)
		}
		dir = parent
	}
}

func uuidToDriverValue(id uuid.UUID, driver string) (any, error) {
	if driver == "postgres" {
		return id, nil
	}
	return id.MarshalBinary()
}

// CreateTestDocument inserts a legacy plaintext document row and returns its id. Rows
// referencing documents (scan jobs, quarantine overrides) need one.
func CreateTestDocument(t *testing.T, db *sql.DB, driver, storageKey string) uuid.UUID {
	t.Helper()

	docID := uuid.Must(uuid.NewV7())
	idValue, err := uuidToDriverValue(docID, driver)
	require.NoError(t, err)
	now := time.Now().UTC()

	query := `INSERT INTO documents (id, filename, storage_key, encryption_version, scan_status, created_at, updated_at)
			  VALUES ($1, $2, $3, 0, 'clean', $4, $5)`
	if driver != "postgres" {
		query = `INSERT INTO documents (id, filename, storage_key, encryption_version, scan_status, created_at, updated_at)
			  VALUES (?, ?, ?, 0, 'clean', ?, ?)`
	}

	_, err = db.ExecContext(context.Background(), query, idValue, "fixture.txt", storageKey, now, now)
	require.NoError(t, err, "failed to create test document")
	return docID
}
