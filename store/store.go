// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package store

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"fmt"

	"github.com/georgysavva/scany/v2/sqlscan"
	"github.com/lib/pq"
)

// ErrNotFound is returned when a keyed lookup matches no row.
var ErrNotFound = errors.New("not found")

// DBTX is satisfied by both *sql.DB and *sql.Tx.
type DBTX interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Store runs queries against the pool, or against a transaction when
// obtained through InTx.
type Store struct {
	db *sql.DB
	q  DBTX

	// shareLock is appended to reads that must block concurrent writers of
	// the row until the transaction ends. Empty on SQLite.
	shareLock string
}

func New(db *sql.DB) *Store {
	return &Store{db: db, q: db, shareLock: shareLockClause(db.Driver())}
}

func shareLockClause(d driver.Driver) string {
	if _, ok := d.(*pq.Driver); ok {
		return " FOR SHARE"
	}
	return ""
}

// DB returns the underlying pool.
func (s *Store) DB() *sql.DB {
	return s.db
}

// InTx runs fn inside a transaction. fn's error rolls the transaction back.
// Calling InTx on a store that is already inside a transaction reuses it.
func (s *Store) InTx(ctx context.Context, fn func(tx *Store) error) error {
	if _, ok := s.q.(*sql.Tx); ok {
		return fn(s)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := fn(&Store{db: s.db, q: tx, shareLock: s.shareLock}); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

func (s *Store) get(ctx context.Context, dst any, query string, args ...any) error {
	err := sqlscan.Get(ctx, s.q, dst, query, args...)
	if sqlscan.NotFound(err) || errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	return err
}

func (s *Store) selectAll(ctx context.Context, dst any, query string, args ...any) error {
	return sqlscan.Select(ctx, s.q, dst, query, args...)
}

func (s *Store) count(ctx context.Context, query string, args ...any) (int, error) {
	var n int
	if err := s.q.QueryRowContext(ctx, query, args...).Scan(&n); err != nil {
		return 0, err
	}
	return n, nil
}

func (s *Store) execAffected(ctx context.Context, query string, args ...any) (int64, error) {
	res, err := s.q.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
