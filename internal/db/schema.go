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
	"slices"
	"strings"

	"github.com/pgEdge/pgedge-ecomload/internal/loader"
	"github.com/pgEdge/pgedge-ecomload/internal/logging"
)

// CreateTableSQL returns the DDL for one table contract.
func CreateTableSQL(d Dialect, c *loader.TableContract) string {
	var defs []string
	for _, col := range c.Columns {
		key := col.Name == c.PrimaryKey || col.FK != nil || slices.Contains(c.Unique, col.Name)
		def := d.QuoteIdent(col.Name) + " " + d.ColumnType(col.Type, key)
		if !col.Nullable {
			def += " NOT NULL"
		}
		defs = append(defs, def)
	}
	if c.PrimaryKey != "" {
		defs = append(defs, fmt.Sprintf("PRIMARY KEY (%s)", d.QuoteIdent(c.PrimaryKey)))
	}
	for _, name := range c.Unique {
		defs = append(defs, fmt.Sprintf("UNIQUE (%s)", d.QuoteIdent(name)))
	}
	for _, col := range c.Columns {
		if col.FK == nil {
			continue
		}
		defs = append(defs, fmt.Sprintf("FOREIGN KEY (%s) REFERENCES %s (%s)",
			d.QuoteIdent(col.Name), d.QuoteIdent(col.FK.Table), d.QuoteIdent(col.FK.TargetColumn)))
	}

	return fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (\n    %s\n)",
		d.QuoteIdent(c.Table), strings.Join(defs, ",\n    "))
}

// CreateSchema creates the tables for contracts, which must be in
// dependency order, along with the run ledger.
func CreateSchema(ctx context.Context, conn Conn, contracts []*loader.TableContract) error {
	d := conn.SQLDialect()

	for _, stmt := range d.Extensions() {
		if _, err := conn.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("failed to create extension: %w", err)
		}
	}

	for _, c := range contracts {
		if _, err := conn.Exec(ctx, CreateTableSQL(d, c)); err != nil {
			return fmt.Errorf("failed to create table %s: %w", c.Table, err)
		}
		logging.Debug().Str("table", c.Table).Msg("Created table")
	}

	if err := ensureRunsTable(ctx, conn); err != nil {
		return err
	}

	logging.Info().
		Str("driver", d.Name()).
		Int("tables", len(contracts)).
		Msg("Schema created")
	return nil
}

// DropSchema drops the tables for contracts, given in dependency order,
// along with the run ledger.
func DropSchema(ctx context.Context, conn Conn, contracts []*loader.TableContract) error {
	d := conn.SQLDialect()

	for _, c := range slices.Backward(contracts) {
		if _, err := conn.Exec(ctx, d.DropTable(c.Table)); err != nil {
			return fmt.Errorf("failed to drop table %s: %w", c.Table, err)
		}
	}
	if _, err := conn.Exec(ctx, d.DropTable(runsTable)); err != nil {
		return fmt.Errorf("failed to drop table %s: %w", runsTable, err)
	}

	logging.Info().
		Str("driver", d.Name()).
		Int("tables", len(contracts)).
		Msg("Schema dropped")
	return nil
}
