package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/go-sql-driver/mysql"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"github.com/pgEdge/pgedge-ecomload/internal/loader"
)

// SQLStore is a database/sql backed store, used for MySQL and SQLite.
// Both engines roll back only the failed statement, so rows need no
// savepoints.
type SQLStore struct {
	db           *sql.DB
	dialect      Dialect
	isConstraint func(error) bool
}

func openSQL(ctx context.Context, driverName, dsn string, dialect Dialect, isConstraint func(error) bool) (*SQLStore, error) {
	db, err := sql.Open(driverName, dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", driverName, err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	return &SQLStore{db: db, dialect: dialect, isConstraint: isConstraint}, nil
}

// DB returns the underlying handle.
func (s *SQLStore) DB() *sql.DB { return s.db }

// Dialect returns the store's dialect.
func (s *SQLStore) Dialect() loader.Dialect { return s.dialect }

// SQLDialect returns the store's dialect.
func (s *SQLStore) SQLDialect() Dialect { return s.dialect }

// Begin opens a transaction.
func (s *SQLStore) Begin(ctx context.Context) (loader.Tx, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	return &sqlTx{tx: tx, classify: s.classify}, nil
}

// Exec runs a statement outside any load transaction.
func (s *SQLStore) Exec(ctx context.Context, query string, args ...any) (int64, error) {
	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, s.classify(err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, nil
	}
	return n, nil
}

// Query runs a statement and calls fn for each row.
func (s *SQLStore) Query(ctx context.Context, query string, args []any, fn func(scan func(dest ...any) error) error) error {
	rows, err := s.db.QueryContext(ctx, query, args...)
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

// Close closes the database handle.
func (s *SQLStore) Close() error {
	return s.db.Close()
}

func (s *SQLStore) classify(err error) error {
	if err != nil && s.isConstraint(err) {
		return fmt.Errorf("%w: %w", loader.ErrConstraintViolation, err)
	}
	return err
}

type sqlTx struct {
	tx       *sql.Tx
	classify func(error) error
}

func (t *sqlTx) InsertRow(ctx context.Context, query string, args ...any) error {
	if _, err := t.tx.ExecContext(ctx, query, args...); err != nil {
		return t.classify(err)
	}
	return nil
}

func (t *sqlTx) LookupValue(ctx context.Context, query string, key string) (any, bool, error) {
	var v any
	err := t.tx.QueryRowContext(ctx, query, key).Scan(&v)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return v, true, nil
}

func (t *sqlTx) Commit(context.Context) error {
	return t.tx.Commit()
}

func (t *sqlTx) Rollback(context.Context) error {
	if err := t.tx.Rollback(); err != nil && !errors.Is(err, sql.ErrTxDone) {
		return err
	}
	return nil
}

// MySQL server errors raised by integrity constraints.
var mysqlConstraintErrors = map[uint16]bool{
	1048: true, // column cannot be null
	1062: true, // duplicate entry
	1216: true, // child row: foreign key fails (legacy)
	1217: true, // parent row: foreign key fails (legacy)
	1451: true, // cannot delete or update a parent row
	1452: true, // cannot add or update a child row
}

func isMySQLConstraint(err error) bool {
	var myErr *mysql.MySQLError
	return errors.As(err, &myErr) && mysqlConstraintErrors[myErr.Number]
}

func isSQLiteConstraint(err error) bool {
	var liteErr *sqlite.Error
	return errors.As(err, &liteErr) && liteErr.Code()&0xff == sqlite3.SQLITE_CONSTRAINT
}
