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
	"fmt"
	"strings"
	"time"

	"github.com/pgEdge/pgedge-ecomload/internal/loader"
	"github.com/pgEdge/pgedge-ecomload/internal/logging"
	"github.com/pgEdge/pgedge-ecomload/pkg/version"
)

const runsTable = "ecomload_runs"

// RunRecord is one row of the load-run ledger.
type RunRecord struct {
	RunID      string    `json:"run_id" yaml:"run_id"`
	Table      string    `json:"table" yaml:"table"`
	Source     string    `json:"source" yaml:"source"`
	StartedAt  time.Time `json:"started_at" yaml:"started_at"`
	FinishedAt time.Time `json:"finished_at" yaml:"finished_at"`
	Attempted  int64     `json:"attempted" yaml:"attempted"`
	Inserted   int64     `json:"inserted" yaml:"inserted"`
	Skipped    int64     `json:"skipped" yaml:"skipped"`
	Failed     int64     `json:"failed" yaml:"failed"`
	Version    string    `json:"version" yaml:"version"`
}

var runsColumns = []struct {
	name string
	typ  loader.ColumnType
}{
	{"run_id", loader.TypeText},
	{"table_name", loader.TypeText},
	{"source_path", loader.TypeText},
	{"started_at", loader.TypeTimestamp},
	{"finished_at", loader.TypeTimestamp},
	{"attempted", loader.TypeInt},
	{"inserted", loader.TypeInt},
	{"skipped", loader.TypeInt},
	{"failed", loader.TypeInt},
	{"version", loader.TypeText},
}

func runsColumnList(d Dialect) string {
	names := make([]string, len(runsColumns))
	for i, c := range runsColumns {
		names[i] = d.QuoteIdent(c.name)
	}
	return strings.Join(names, ", ")
}

// ensureRunsTable creates the ledger table if it doesn't exist.
func ensureRunsTable(ctx context.Context, conn Conn) error {
	d := conn.SQLDialect()
	defs := make([]string, len(runsColumns))
	for i, c := range runsColumns {
		defs[i] = d.QuoteIdent(c.name) + " " + d.ColumnType(c.typ, i == 0) + " NOT NULL"
	}
	stmt := fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (\n    %s,\n    PRIMARY KEY (%s)\n)",
		d.QuoteIdent(runsTable), strings.Join(defs, ",\n    "), d.QuoteIdent("run_id"))

	if _, err := conn.Exec(ctx, stmt); err != nil {
		return fmt.Errorf("failed to create %s table: %w", runsTable, err)
	}
	return nil
}

// SaveRun records a finished load in the ledger.
func SaveRun(ctx context.Context, conn Conn, report *loader.InsertReport) error {
	if err := ensureRunsTable(ctx, conn); err != nil {
		return err
	}

	d := conn.SQLDialect()
	params := make([]string, len(runsColumns))
	for i := range runsColumns {
		params[i] = d.Placeholder(i + 1)
	}
	stmt := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		d.QuoteIdent(runsTable), runsColumnList(d), strings.Join(params, ", "))

	_, err := conn.Exec(ctx, stmt,
		report.RunID,
		report.Table,
		report.Source,
		report.StartedAt.UTC(),
		report.FinishedAt.UTC(),
		int64(report.Attempted),
		int64(report.Inserted),
		int64(report.Skipped),
		int64(report.Failed),
		version.Short(),
	)
	if err != nil {
		return fmt.Errorf("failed to save run %s: %w", report.RunID, err)
	}

	logging.Debug().
		Str("run_id", report.RunID).
		Str("table", report.Table).
		Msg("Saved run")

	return nil
}

// ListRuns returns the most recent runs, newest first. A non-positive
// limit returns every run.
func ListRuns(ctx context.Context, conn Conn, limit int) ([]RunRecord, error) {
	if err := ensureRunsTable(ctx, conn); err != nil {
		return nil, err
	}

	d := conn.SQLDialect()
	query := fmt.Sprintf("SELECT %s FROM %s ORDER BY %s DESC",
		runsColumnList(d), d.QuoteIdent(runsTable), d.QuoteIdent("started_at"))
	if limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", limit)
	}

	var runs []RunRecord
	err := conn.Query(ctx, query, nil, func(scan func(dest ...any) error) error {
		var r RunRecord
		if err := scan(&r.RunID, &r.Table, &r.Source, &r.StartedAt, &r.FinishedAt,
			&r.Attempted, &r.Inserted, &r.Skipped, &r.Failed, &r.Version); err != nil {
			return err
		}
		runs = append(runs, r)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	return runs, nil
}
