package shared

import (
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
	_ "modernc.org/sqlite"
)

// NewDatabase opens a connection to a SQLite database at the specified path.
//
// driver is [DriverSQLite3] (cgo, mattn) or [DriverSQLite] (pure Go, modernc); empty selects sqlite3.
// The path can be ":memory:" for an in-memory database.
func NewDatabase(driver, path string) (*sql.DB, error) {
	switch driver {
	case "":
		driver = DriverSQLite3
	case DriverSQLite3, DriverSQLite:
	default:
		return nil, fmt.Errorf("%w: unsupported database driver %q", ErrInvalidConfig, driver)
	}

	db, err := sql.Open(driver, path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Each new connection to ":memory:" is a fresh database.
	if path == ":memory:" {
		db.SetMaxOpenConns(1)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return db, nil
}

// ConfigureDatabase sets connection pool settings for the database.
// Recommended for production use to limit connections and improve performance.
func ConfigureDatabase(db *sql.DB, maxOpenConns, maxIdleConns int) {
	if maxOpenConns > 0 {
		db.SetMaxOpenConns(maxOpenConns)
	}
	if maxIdleConns > 0 {
		db.SetMaxIdleConns(maxIdleConns)
	}
}

// OpenDatabase opens the backend database described by cfg and applies pending migrations.
func OpenDatabase(cfg DatabaseConfig) (*sql.DB, error) {
	db, err := NewDatabase(cfg.Driver, cfg.Path)
	if err != nil {
		return nil, err
	}
	ConfigureDatabase(db, cfg.MaxOpenConns, cfg.MaxIdleConns)

	if err := RunMigrations(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	return db, nil
}
