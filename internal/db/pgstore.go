//-------------------------------------------------------------------------
//
// pgEdge E-commerce Loader
//
// Portions copyright (c) 2025 - 2026, pgEdge, Inc.
// This software is released under The PostgreSQL License
//
//-------------------------------------------------------------------------

package db

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/pgEdge/pgedge-ecomload/internal/loader"
)

// PgStore is a PostgreSQL store backed by a pgx pool.
type PgStore struct {
	pool *pgxpool.Pool
}

// NewPgStore wraps an existing pool.
func NewPgStore(pool *pgxpool.Pool) *PgStore {
	return &PgStore{pool: pool}
}

// Pool returns the underlying pool.
func (s *PgStore) Pool() *pgxpool.Pool { return s.pool }

// Dialect returns the PostgreSQL dialect.
func (s *PgStore) Dialect() loader.Dialect { return PostgresDialect{} }

// SQLDialect returns the PostgreSQL dialect.
func (s *PgStore) SQLDialect() Dialect { return PostgresDialect{} }

// Begin opens a transaction.
func (s *PgStore) Begin(ctx context.Context) (loader.Tx, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, err
	}
	return &pgTx{tx: tx}, nil
}

// Exec runs a statement outside any load transaction.
func (s *PgStore) Exec(ctx context.Context, query string, args ...any) (int64, error) {
	tag, err := s.pool.Exec(ctx, query, args...)
	if err != nil {
		return 0, classifyPg(err)
	}
	return tag.RowsAffected(), nil
}

// Query runs a statement and calls fn for each row.
func (s *PgStore) Query(ctx context.Context, query string, args []any, fn func(scan func(dest ...any) error) error) error {
	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		if err := fn(rows.Scan); err != nil {
			return err
		}
	}
	return rows.Err()
}

// Close closes the pool.
func (s *PgStore) Close() error {
	s.pool.Close()
	return nil
}

// pgTx isolates every statement in a savepoint, since PostgreSQL aborts
// the whole transaction after any failed statement.
type pgTx struct {
	tx pgx.Tx
}

func (t *pgTx) InsertRow(ctx context.Context, query string, args ...any) error {
	sp, err := t.tx.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to create savepoint: %w", err)
	}
	if _, err := sp.Exec(ctx, query, args...); err != nil {
		_ = sp.Rollback(ctx)
		return classifyPg(err)
	}
	return sp.Commit(ctx)
}

func (t *pgTx) LookupValue(ctx context.Context, query string, key string) (any, bool, error) {
	sp, err := t.tx.Begin(ctx)
	if err != nil {
		return nil, false, fmt.Errorf("failed to create savepoint: %w", err)
	}

	var v any
	err = sp.QueryRow(ctx, query, key).Scan(&v)
	if err != nil && !errors.Is(err, pgx.ErrNoRows) {
		_ = sp.Rollback(ctx)
		return nil, false, err
	}
	if cerr := sp.Commit(ctx); cerr != nil {
		return nil, false, fmt.Errorf("failed to release savepoint: %w", cerr)
	}
	if err != nil {
		return nil, false, nil
	}
	return v, true, nil
}

func (t *pgTx) Commit(ctx context.Context) error {
	return t.tx.Commit(ctx)
}

func (t *pgTx) Rollback(ctx context.Context) error {
	if err := t.tx.Rollback(ctx); err != nil && !errors.Is(err, pgx.ErrTxClosed) {
		return err
	}
	return nil
}

// classifyPg marks integrity constraint violations (SQLSTATE class 23).
func classifyPg(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && strings.HasPrefix(pgErr.Code, "23") {
		return fmt.Errorf("%w: %w", loader.ErrConstraintViolation, err)
	}
	return err
}
