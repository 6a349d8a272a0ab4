// Package sqlite implements the repository interfaces using SQLite as the storage backend.
//
// WHY SQLITE?
// SQLite is an embedded database — no separate server to install or manage.
// A single-file database is plenty for a boards app, and ":memory:" gives
// tests a fresh isolated database per test.
//
// WHY modernc.org/sqlite INSTEAD OF github.com/mattn/go-sqlite3?
// mattn/go-sqlite3 uses CGo, which needs a C compiler and makes
// cross-compilation painful. modernc.org/sqlite is a pure Go translation of
// the SQLite sources — works everywhere Go works.
//
// CONSTRAINTS AS THE SOURCE OF TRUTH:
// The membership invariant (one row per board/identity pair) and the identity
// invariant (one row per email) are enforced HERE, by UNIQUE constraints, not
// by application-level checks. Two concurrent inserts for the same pair race
// inside SQLite and exactly one wins; the loser's error is translated to a
// typed conflict in errors.go. Application-level "check then insert" would
// leave a window between the check and the insert.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	// Side-effect import: registers the "sqlite" driver with database/sql.
	_ "modernc.org/sqlite"

	"github.com/mlecanu/ilconto/internal/repository"
)

// compile-time check that *DB implements the full store contract
var _ repository.Store = (*DB)(nil)

// dbtx is the subset of *sql.DB and *sql.Tx the entity methods need.
// Holding this interface instead of *sql.DB directly is what lets the same
// methods run either on the pool or inside a transaction (see InTx).
type dbtx interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// DB wraps a sql.DB connection pool and provides repository methods.
type DB struct {
	conn *sql.DB
	q    dbtx // the pool normally, a *sql.Tx inside InTx
}

// New creates a new SQLite database connection and runs migrations.
//
// dbPath examples:
//   - "data/ilconto.db" → file-based database (persistent)
//   - ":memory:"        → in-memory database (great for tests, lost on close)
func New(dbPath string) (*DB, error) {
	conn, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("sqlite: opening database: %w", err)
	}

	// Each pool connection to ":memory:" would get its OWN empty database.
	// Pin the pool to a single connection so every query sees the same data.
	if strings.Contains(dbPath, ":memory:") {
		conn.SetMaxOpenConns(1)
	}

	// Ping forces an immediate connection so a bad path or permissions issue
	// surfaces here rather than on the first query.
	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: pinging database: %w", err)
	}

	// WAL mode allows concurrent reads while a write is in progress —
	// important for a web server where multiple requests hit the DB.
	if _, err := conn.Exec("PRAGMA journal_mode=WAL"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: setting WAL mode: %w", err)
	}

	// Foreign keys are OFF by default in SQLite. We rely on them: deleting a
	// board must cascade to its memberships.
	if _, err := conn.Exec("PRAGMA foreign_keys=ON"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: enabling foreign keys: %w", err)
	}

	db := &DB{conn: conn}
	db.q = conn

	if err := db.migrate(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: running migrations: %w", err)
	}

	return db, nil
}

// Close closes the database connection pool.
func (db *DB) Close() error {
	return db.conn.Close()
}

// InTx runs fn against a Store bound to a single transaction.
//
// fn receives a shallow copy of db whose query target is the transaction, so
// every repository method called on it participates in the same tx. If fn
// returns an error the tx is rolled back and the error propagated; otherwise
// the tx commits.
//
// Transactions do not nest: calling InTx on a Store that is already inside a
// transaction just runs fn on the same transaction.
func (db *DB) InTx(ctx context.Context, fn func(repository.Store) error) error {
	if _, ok := db.q.(*sql.Tx); ok {
		return fn(db)
	}

	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("sqlite: beginning transaction: %w", err)
	}

	txdb := &DB{conn: db.conn, q: tx}
	if err := fn(txdb); err != nil {
		// Rollback error is secondary — the fn error is what the caller acts on.
		tx.Rollback()
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("sqlite: committing transaction: %w", err)
	}
	return nil
}

// migrate creates the schema. CREATE TABLE IF NOT EXISTS keeps this safe to
// run on every start.
func (db *DB) migrate() error {
	_, err := db.conn.Exec(`
		CREATE TABLE IF NOT EXISTS identities (
			id              TEXT PRIMARY KEY,
			email           TEXT NOT NULL UNIQUE,
			username        TEXT NOT NULL,
			password_hash   TEXT NOT NULL DEFAULT '',
			is_staff        INTEGER NOT NULL DEFAULT 0,
			is_activated    INTEGER NOT NULL DEFAULT 0,
			email_verified  INTEGER NOT NULL DEFAULT 0,
			activation_hash TEXT NOT NULL DEFAULT '',
			created_at      DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
			updated_at      DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		);
	`)
	if err != nil {
		return fmt.Errorf("creating identities table: %w", err)
	}

	_, err = db.conn.Exec(`
		CREATE TABLE IF NOT EXISTS boards (
			id         TEXT PRIMARY KEY,
			title      TEXT NOT NULL,
			created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
			updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		);
	`)
	if err != nil {
		return fmt.Errorf("creating boards table: %w", err)
	}

	// UNIQUE(board_id, identity_id) carries the no-double-enrolment invariant.
	// ON DELETE CASCADE: a membership cannot outlive its board or identity.
	_, err = db.conn.Exec(`
		CREATE TABLE IF NOT EXISTS board_members (
			id          TEXT PRIMARY KEY,
			board_id    TEXT NOT NULL REFERENCES boards(id) ON DELETE CASCADE,
			identity_id TEXT NOT NULL REFERENCES identities(id) ON DELETE CASCADE,
			username    TEXT NOT NULL,
			score       INTEGER NOT NULL,
			created_at  DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
			updated_at  DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
			UNIQUE(board_id, identity_id)
		);
		CREATE INDEX IF NOT EXISTS idx_board_members_board_id ON board_members(board_id);
		CREATE INDEX IF NOT EXISTS idx_board_members_identity_id ON board_members(identity_id);
	`)
	if err != nil {
		return fmt.Errorf("creating board_members table: %w", err)
	}

	return nil
}
