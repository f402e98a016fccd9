package database

import (
	"context"
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite" // SQLite driver
)

// Open opens a connection to the SQLite database at path (":memory:" for an
// in-memory store) and wraps it in the statement-guarded SafeDB.
func Open(dbPath string) (*SafeDB, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	// Enable foreign keys
	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	return &SafeDB{db: db}, nil
}

// Wrap wraps an existing database handle in the statement guard. Used by tests
// that build their own in-memory database.
func Wrap(db *sql.DB) *SafeDB {
	return &SafeDB{db: db}
}

// Queryer is the common surface of SafeDB and Tx. Repository methods that must
// run both standalone and inside a transaction accept a Queryer.
type Queryer interface {
	Query(query string, args ...any) (*sql.Rows, error)
	QueryRow(query string, args ...any) *Row
	Exec(query string, args ...any) (sql.Result, error)
}

// SafeDB wraps *sql.DB so that every statement passes the safety policy in
// CheckStatement before reaching the driver.
type SafeDB struct {
	db *sql.DB
}

// DB exposes the underlying handle for schema migration, which runs
// multi-statement DDL scripts and is exempt from the single-statement guard.
func (s *SafeDB) DB() *sql.DB {
	return s.db
}

// Close closes the underlying database handle.
func (s *SafeDB) Close() error {
	return s.db.Close()
}

// HealthCheck performs a simple health check on the database.
func (s *SafeDB) HealthCheck() error {
	return s.db.Ping()
}

// Query executes a guarded read statement.
func (s *SafeDB) Query(query string, args ...any) (*sql.Rows, error) {
	if err := CheckStatement(query, args); err != nil {
		return nil, err
	}
	return s.db.Query(query, args...)
}

// QueryRow executes a guarded single-row read. A guard trip surfaces on Scan.
func (s *SafeDB) QueryRow(query string, args ...any) *Row {
	if err := CheckStatement(query, args); err != nil {
		return &Row{err: err}
	}
	return &Row{row: s.db.QueryRow(query, args...)}
}

// Exec executes a guarded write statement.
func (s *SafeDB) Exec(query string, args ...any) (sql.Result, error) {
	if err := CheckStatement(query, args); err != nil {
		return nil, err
	}
	return s.db.Exec(query, args...)
}

// ExecTx runs fn inside a transaction. The transaction commits when fn returns
// nil and rolls back otherwise, so multi-statement business operations are
// visible atomically or not at all.
func (s *SafeDB) ExecTx(ctx context.Context, fn func(tx *Tx) error) error {
	sqlTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	if err := fn(&Tx{tx: sqlTx}); err != nil {
		if rbErr := sqlTx.Rollback(); rbErr != nil {
			return fmt.Errorf("rollback failed: %v (original error: %w)", rbErr, err)
		}
		return err
	}

	if err := sqlTx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// Tx wraps *sql.Tx with the same statement guard as SafeDB.
type Tx struct {
	tx *sql.Tx
}

// Query executes a guarded read statement inside the transaction.
func (t *Tx) Query(query string, args ...any) (*sql.Rows, error) {
	if err := CheckStatement(query, args); err != nil {
		return nil, err
	}
	return t.tx.Query(query, args...)
}

// QueryRow executes a guarded single-row read inside the transaction.
func (t *Tx) QueryRow(query string, args ...any) *Row {
	if err := CheckStatement(query, args); err != nil {
		return &Row{err: err}
	}
	return &Row{row: t.tx.QueryRow(query, args...)}
}

// Exec executes a guarded write statement inside the transaction.
func (t *Tx) Exec(query string, args ...any) (sql.Result, error) {
	if err := CheckStatement(query, args); err != nil {
		return nil, err
	}
	return t.tx.Exec(query, args...)
}

// Row mirrors sql.Row but can carry a guard error, which then surfaces on
// Scan like any other query error.
type Row struct {
	row *sql.Row
	err error
}

// Scan copies the row's columns into dest, or returns the deferred error.
func (r *Row) Scan(dest ...any) error {
	if r.err != nil {
		return r.err
	}
	return r.row.Scan(dest...)
}
