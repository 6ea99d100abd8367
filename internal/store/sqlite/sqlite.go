package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/mattn/go-sqlite3"

	"github.com/lu-zhengda/mailsync/internal/store"
)

// dbtx is the subset of database/sql shared by *sql.DB and *sql.Tx, so
// entity queries run identically inside and outside a transaction.
type dbtx interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// conn carries the entity query methods. It is embedded by both DB and Tx.
type conn struct {
	db dbtx
}

// DB wraps a sql.DB connection to a SQLite database.
type DB struct {
	conn
	sqlDB *sql.DB
}

// Tx is one open store transaction.
type Tx struct {
	conn
}

var _ store.Store = (*DB)(nil)
var _ store.Tx = (*Tx)(nil)

// New opens a SQLite database at the given DSN and runs migrations.
// Use ":memory:" for an in-memory database.
func New(dsn string) (*DB, error) {
	connStr := dsn
	if dsn != ":memory:" {
		connStr = dsn + "?_journal_mode=WAL&_foreign_keys=on"
	} else {
		connStr = ":memory:?_foreign_keys=on"
	}

	db, err := sql.Open("sqlite3", connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	s := &DB{conn: conn{db: db}, sqlDB: db}
	if err := s.migrate(); err != nil {
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return s, nil
}

func (s *DB) migrate() error {
	if _, err := s.sqlDB.Exec(schema); err != nil {
		return fmt.Errorf("failed to apply schema: %w", err)
	}
	return nil
}

// InTransaction runs fn inside a single transaction. Any error from fn
// rolls back every mutation made through the Tx.
func (s *DB) InTransaction(ctx context.Context, fn func(tx store.Tx) error) error {
	sqlTx, err := s.sqlDB.BeginTx(ctx, nil)
	if err != nil {
		return classify(fmt.Errorf("failed to begin transaction: %w", err))
	}
	defer sqlTx.Rollback()

	if err := fn(&Tx{conn: conn{db: sqlTx}}); err != nil {
		return classify(err)
	}

	if err := sqlTx.Commit(); err != nil {
		return classify(fmt.Errorf("failed to commit transaction: %w", err))
	}
	return nil
}

// Close closes the underlying database connection.
func (s *DB) Close() error {
	return s.sqlDB.Close()
}

// classify tags unrecoverable sqlite failures with store.ErrDegraded so
// callers can distinguish them from transient errors worth retrying.
func classify(err error) error {
	var sqErr sqlite3.Error
	if !errors.As(err, &sqErr) {
		return err
	}
	switch sqErr.Code {
	case sqlite3.ErrIoErr, sqlite3.ErrCorrupt, sqlite3.ErrNotADB, sqlite3.ErrCantOpen, sqlite3.ErrFull:
		return fmt.Errorf("%w: %v", store.ErrDegraded, err)
	}
	return err
}
