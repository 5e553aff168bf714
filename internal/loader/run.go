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
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/pgEdge/pgedge-ecomload/internal/logging"
)

// RunState is the lifecycle state of a load run.
type RunState int

const (
	StateNotStarted RunState = iota
	StateConnected
	StateStreaming
	StateCommitted
	StateClosed
	StateFailed
)

func (s RunState) String() string {
	switch s {
	case StateNotStarted:
		return "not_started"
	case StateConnected:
		return "connected"
	case StateStreaming:
		return "streaming"
	case StateCommitted:
		return "committed"
	case StateClosed:
		return "closed"
	case StateFailed:
		return "failed"
	default:
		return fmt.Sprintf("RunState(%d)", int(s))
	}
}

// RunConfig configures a single source-to-table load.
type RunConfig struct {
	// Store is an already open store. The run does not close it.
	Store Store

	// Connect opens a store when Store is nil. The run closes what it opens.
	Connect func(ctx context.Context) (Store, error)

	Contract *TableContract
	Source   Source

	// CacheLookups memoizes foreign key lookups for the run.
	CacheLookups bool

	// Clock returns the execution time. Defaults to time.Now.
	Clock func() time.Time

	// Logger receives row-level events. Defaults to logging.ForRun.
	Logger *zerolog.Logger

	// ProgressInterval is how often, in rows, progress is logged. Zero
	// means DefaultProgressInterval; a negative value disables progress.
	ProgressInterval int64
}

// Run loads one source file into one table.
type Run struct {
	cfg    RunConfig
	id     string
	state  RunState
	log    zerolog.Logger
	report *InsertReport
}

// NewRun validates cfg and creates a run in the NotStarted state.
func NewRun(cfg RunConfig) (*Run, error) {
	if cfg.Contract == nil {
		return nil, fmt.Errorf("run requires a table contract")
	}
	if err := cfg.Contract.Validate(); err != nil {
		return nil, fmt.Errorf("invalid table contract: %w", err)
	}
	if cfg.Source == nil {
		return nil, fmt.Errorf("run requires a source")
	}
	if cfg.Store == nil && cfg.Connect == nil {
		return nil, fmt.Errorf("run requires a store or a connect function")
	}
	if cfg.Clock == nil {
		cfg.Clock = time.Now
	}
	if cfg.ProgressInterval == 0 {
		cfg.ProgressInterval = DefaultProgressInterval
	}

	id := uuid.NewString()
	log := logging.ForRun(id, cfg.Contract.Table)
	if cfg.Logger != nil {
		log = logging.WithRun(*cfg.Logger, id, cfg.Contract.Table)
	}

	return &Run{
		cfg:   cfg,
		id:    id,
		state: StateNotStarted,
		log:   log,
		report: &InsertReport{
			RunID:  id,
			Table:  cfg.Contract.Table,
			Source: cfg.Source.Path(),
		},
	}, nil
}

// ID returns the run identifier.
func (r *Run) ID() string { return r.id }

// State returns the current lifecycle state.
func (r *Run) State() RunState { return r.state }

// Report returns the report accumulated so far.
func (r *Run) Report() *InsertReport { return r.report }

// Load is a convenience wrapper for NewRun followed by Execute.
func Load(ctx context.Context, cfg RunConfig) (*InsertReport, error) {
	run, err := NewRun(cfg)
	if err != nil {
		return nil, err
	}
	return run.Execute(ctx)
}

// Execute runs the load. Row-level failures are recorded in the report and
// never fail the run; the returned error is non-nil only when the store or
// source could not be opened, the context was cancelled, or the commit
// failed. The transaction is rolled back and every handle is closed on all
// exit paths.
func (r *Run) Execute(ctx context.Context) (report *InsertReport, err error) {
	if r.state != StateNotStarted {
		return r.report, fmt.Errorf("run %s already executed", r.id)
	}
	r.report.StartedAt = r.cfg.Clock()
	defer func() {
		r.report.FinishedAt = r.cfg.Clock()
		if r.state != StateFailed {
			r.state = StateClosed
		}
	}()

	store := r.cfg.Store
	if store == nil {
		store, err = r.cfg.Connect(ctx)
		if err != nil {
			r.fail(err, "Failed to connect to database")
			var ce *ConnectionError
			if !errors.As(err, &ce) {
				err = &ConnectionError{Target: r.cfg.Contract.Table, Err: err}
			}
			return r.report, err
		}
		defer func() {
			if cerr := store.Close(); cerr != nil {
				r.log.Warn().Err(cerr).Msg("Failed to close database connection")
			}
		}()
	}
	r.state = StateConnected

	it, err := r.cfg.Source.Open()
	if err != nil {
		r.fail(err, "Failed to open source")
		return r.report, err
	}
	defer it.Close()

	tx, err := store.Begin(ctx)
	if err != nil {
		r.fail(err, "Failed to begin transaction")
		return r.report, &ConnectionError{Driver: store.Dialect().Name(), Target: r.cfg.Contract.Table, Err: err}
	}
	defer func() {
		if rerr := tx.Rollback(context.WithoutCancel(ctx)); rerr != nil {
			r.log.Warn().Err(rerr).Msg("Failed to roll back transaction")
		}
	}()

	transformer, err := r.newTransformer(tx, store.Dialect())
	if err != nil {
		r.fail(err, "Failed to prepare transform")
		return r.report, err
	}
	sink := NewSink(tx, store.Dialect(), r.cfg.Contract)
	progress := NewProgressReporter(r.log, r.cfg.ProgressInterval)

	r.log.Info().
		Str("source", r.cfg.Source.Path()).
		Bool("cache_lookups", r.cfg.CacheLookups).
		Msg("Starting load")

	r.state = StateStreaming
	if err := r.stream(ctx, it, transformer, sink, progress); err != nil {
		return r.report, err
	}

	if err := tx.Commit(ctx); err != nil {
		r.log.Error().Err(err).Msg("Failed to commit transaction")
		return r.report, fmt.Errorf("failed to commit %s: %w", r.cfg.Contract.Table, err)
	}
	r.state = StateCommitted

	r.log.Info().
		Int("attempted", r.report.Attempted).
		Int("inserted", r.report.Inserted).
		Int("skipped", r.report.Skipped).
		Int("failed", r.report.Failed).
		Msg("Load committed")

	return r.report, nil
}

func (r *Run) stream(ctx context.Context, it Iterator, tr *Transformer, sink *Sink, progress *ProgressReporter) error {
	lastRow := 0
	for {
		if err := ctx.Err(); err != nil {
			r.log.Warn().Err(err).Int("row", lastRow).Msg("Load cancelled; rolling back")
			return fmt.Errorf("load of %s cancelled: %w", r.cfg.Contract.Table, err)
		}

		raw, err := it.Next()
		if errors.Is(err, io.EOF) {
			return nil
		}

		var ts *TransformSkip
		switch {
		case errors.As(err, &ts):
			lastRow = ts.Row
			r.skipped(ts)
			progress.Update(1, r.report)
			continue
		case err != nil:
			r.report.failed(lastRow+1, 0, FailureRead, err)
			r.log.Error().Err(err).Int("row", lastRow+1).Msg("Failed to read source; committing rows read so far")
			return nil
		}
		lastRow = raw.Row

		clean, err := tr.Transform(ctx, raw)
		if err != nil {
			if !errors.As(err, &ts) {
				ts = skip(raw, "", "transform failed", err)
			}
			r.skipped(ts)
			progress.Update(1, r.report)
			continue
		}

		if err := sink.Insert(ctx, raw.Row, clean); err != nil {
			r.report.failed(raw.Row, raw.Line, FailureInsert, err)
			logging.Row(r.log.Warn(), raw.Row, raw.Line).
				Err(err).
				Interface("record", clean.values).
				Msg("Row insert failed")
		} else {
			r.report.inserted()
		}
		progress.Update(1, r.report)
	}
}

func (r *Run) newTransformer(q Querier, d Dialect) (*Transformer, error) {
	resolvers := make(map[string]Resolver)
	for _, col := range r.cfg.Contract.Columns {
		if col.FK == nil {
			continue
		}
		var res Resolver = NewLookupResolver(q, d, *col.FK)
		if r.cfg.CacheLookups {
			res = NewCachingResolver(res)
		}
		resolvers[col.Name] = res
	}

	tr, err := NewTransformer(r.cfg.Contract, resolvers)
	if err != nil {
		return nil, err
	}
	tr.Clock = r.cfg.Clock
	tr.OnAnomaly = func(raw RawRecord, column, reason string) {
		logging.Row(r.log.Warn(), raw.Row, raw.Line).
			Str("column", column).
			Msg(reason)
	}
	return tr, nil
}

func (r *Run) skipped(ts *TransformSkip) {
	r.report.skipped(ts)
	logging.Row(r.log.Warn(), ts.Row, ts.Line).
		Str("column", ts.Column).
		Str("reason", ts.Reason).
		AnErr("cause", ts.Err).
		Msg("Row skipped")
}

func (r *Run) fail(err error, msg string) {
	r.state = StateFailed
	r.log.Error().Err(err).Msg(msg)
}
