//-------------------------------------------------------------------------
//
// pgEdge E-commerce Loader
//
// Portions copyright (c) 2025 - 2026, pgEdge, Inc.
// This software is released under The PostgreSQL License
//
//-------------------------------------------------------------------------

package loader

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Store is a relational target the loader writes to.
type Store interface {
	// Dialect returns the SQL dialect of the store.
	Dialect() Dialect

	// Begin opens the single transaction a run writes through.
	Begin(ctx context.Context) (Tx, error)

	// Close releases the connection.
	Close() error
}

// Tx is an open store transaction.
//
// InsertRow must isolate each row: a failed insert leaves the transaction
// usable for the rows that follow. Rollback after Commit is a no-op.
type Tx interface {
	Querier
	InsertRow(ctx context.Context, query string, args ...any) error
	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error
}

// Sink inserts clean records into one table through an open transaction.
type Sink struct {
	contract *TableContract
	tx       Tx
	query    string
}

// NewSink prepares a sink for contract on tx.
func NewSink(tx Tx, d Dialect, contract *TableContract) *Sink {
	return &Sink{
		contract: contract,
		tx:       tx,
		query:    contract.InsertSQL(d),
	}
}

// Query returns the parameterized insert statement.
func (s *Sink) Query() string { return s.query }

// Insert writes one record. Failures are returned as *InsertRowError.
func (s *Sink) Insert(ctx context.Context, row int, rec CleanRecord) error {
	if rec.Len() != len(s.contract.Columns) {
		return &InsertRowError{
			Row: row,
			Err: fmt.Errorf("record has %d values, %s has %d columns", rec.Len(), s.contract.Table, len(s.contract.Columns)),
		}
	}
	if err := s.tx.InsertRow(ctx, s.query, rec.values...); err != nil {
		return &InsertRowError{Row: row, Err: err}
	}
	return nil
}

// InsertAll writes records to the contract's table inside one transaction,
// one statement per record. Row failures are recorded in the report and do
// not stop the batch; the transaction is committed once every record has
// been attempted. The returned error is non-nil only if the transaction
// could not be opened or committed.
func InsertAll(ctx context.Context, store Store, contract *TableContract, records []CleanRecord) (*InsertReport, error) {
	report := &InsertReport{
		RunID:     uuid.NewString(),
		Table:     contract.Table,
		StartedAt: time.Now(),
	}

	tx, err := store.Begin(ctx)
	if err != nil {
		return report, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback(context.WithoutCancel(ctx))
	}()

	sink := NewSink(tx, store.Dialect(), contract)
	for i, rec := range records {
		row := i + 1
		if err := sink.Insert(ctx, row, rec); err != nil {
			report.failed(row, 0, FailureInsert, err)
			continue
		}
		report.inserted()
	}

	if err := tx.Commit(ctx); err != nil {
		return report, fmt.Errorf("failed to commit %s: %w", contract.Table, err)
	}
	report.FinishedAt = time.Now()
	return report, nil
}
