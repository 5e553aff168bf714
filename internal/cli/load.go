package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/pgEdge/pgedge-ecomload/internal/db"
	"github.com/pgEdge/pgedge-ecomload/internal/loader"
	"github.com/pgEdge/pgedge-ecomload/internal/logging"
	"github.com/pgEdge/pgedge-ecomload/internal/tables"
)

var (
	loadTables       []string
	loadAll          bool
	loadFile         string
	loadDataDir      string
	loadNoCache      bool
	loadNoRecord     bool
	loadShowFailures bool
	loadCreateSchema bool
)

var loadCmd = &cobra.Command{
	Use:   "load",
	Short: "Load source files into their tables",
	Long: `Load one or more source files into their target tables. Tables are
loaded in dependency order, so natural keys referencing addresses, users,
products, cards, orders and transactions resolve against rows loaded
earlier in the same invocation.

Row-level problems are reported in the summary and do not stop the load.
The command exits non-zero only when a store or source cannot be opened,
a commit fails, or the load is interrupted.

Example:
  pgedge-ecomload load --all --data-dir ./data
  pgedge-ecomload load --table address --table user
  pgedge-ecomload load --table product --file ./flipkart.json`,
	RunE: runLoad,
}

func init() {
	loadCmd.Flags().StringSliceVar(&loadTables, "table", nil,
		"table to load (repeatable)")
	loadCmd.Flags().BoolVar(&loadAll, "all", false,
		"load every table")
	loadCmd.Flags().StringVar(&loadFile, "file", "",
		"source file override (requires exactly one --table)")
	loadCmd.Flags().StringVar(&loadDataDir, "data-dir", "",
		"directory source files are read from")
	loadCmd.Flags().BoolVar(&loadNoCache, "no-cache", false,
		"disable foreign key lookup caching (the CLI caches by default; the library does not)")
	loadCmd.Flags().BoolVar(&loadNoRecord, "no-record", false,
		"do not record runs in the run ledger")
	loadCmd.Flags().BoolVar(&loadShowFailures, "show-failures", false,
		"print every skipped or failed row")
	loadCmd.Flags().BoolVar(&loadCreateSchema, "create-schema", false,
		"create missing tables, and the tables they reference, before loading")
}

func runLoad(cmd *cobra.Command, args []string) error {
	// Override config with CLI flags
	if loadDataDir != "" {
		cfg.Load.DataDir = loadDataDir
	}
	if loadNoCache {
		cfg.Load.CacheLookups = false
	}
	if loadNoRecord {
		cfg.Load.RecordRuns = false
	}

	// Validate configuration
	if err := cfg.ValidateLoad(); err != nil {
		return err
	}

	contracts, err := selectTables(loadTables, loadAll)
	if err != nil {
		return err
	}
	if loadFile != "" {
		if len(contracts) != 1 {
			return fmt.Errorf("--file requires exactly one --table")
		}
		cfg.Load.Files[contracts[0].Table] = loadFile
	}

	ctx, cancel := signalContext()
	defer cancel()

	conn, err := db.Connect(ctx, cfg.Database)
	if err != nil {
		return err
	}
	defer conn.Close()

	if loadCreateSchema {
		// referenced tables must exist for foreign keys and lookups
		schema, err := tables.WithDependencies(tableNames(contracts))
		if err != nil {
			return err
		}
		if err := db.CreateSchema(ctx, conn, schema); err != nil {
			return err
		}
	}

	logging.Info().
		Str("driver", cfg.Database.Driver).
		Int("tables", len(contracts)).
		Bool("cache_lookups", cfg.Load.CacheLookups).
		Msg("Starting load")

	var reports []*loader.InsertReport
	for _, c := range contracts {
		report, err := loadTable(ctx, conn, c)
		if report != nil {
			reports = append(reports, report)
		}
		if err != nil {
			printReports(cmd, reports)
			return err
		}
	}

	printReports(cmd, reports)
	return nil
}

func loadTable(ctx context.Context, conn db.Conn, c *loader.TableContract) (*loader.InsertReport, error) {
	path := cfg.SourcePath(c.Table, c.File)
	report, err := loader.Load(ctx, loader.RunConfig{
		Store:            conn,
		Contract:         c,
		Source:           loader.NewSource(c.Source, path, c.Fields()),
		CacheLookups:     cfg.Load.CacheLookups,
		ProgressInterval: cfg.Load.ProgressInterval,
	})
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return report, fmt.Errorf("load of %s interrupted: %w", c.Table, err)
		}
		return report, err
	}

	if cfg.Load.RecordRuns {
		// the ledger is advisory; a failure here does not undo the load
		if err := db.SaveRun(ctx, conn, report); err != nil {
			logging.Warn().
				Err(err).
				Str("table", c.Table).
				Msg("Failed to record run")
		}
	}
	return report, nil
}

// selectTables resolves the requested tables into dependency order.
func selectTables(names []string, all bool) ([]*loader.TableContract, error) {
	switch {
	case all && len(names) > 0:
		return nil, fmt.Errorf("--all and --table are mutually exclusive")
	case all:
		return tables.All(), nil
	case len(names) == 0:
		return nil, fmt.Errorf("specify --table or --all")
	}
	return tables.Order(names)
}

func tableNames(contracts []*loader.TableContract) []string {
	names := make([]string, len(contracts))
	for i, c := range contracts {
		names[i] = c.Table
	}
	return names
}

func printReports(cmd *cobra.Command, reports []*loader.InsertReport) {
	for _, r := range reports {
		cmd.Println(r.Summary())
		if !loadShowFailures {
			continue
		}
		for _, f := range r.Failures {
			cmd.Printf("  row %d (line %d) %s %s: %s\n", f.Row, f.Line, f.Kind, f.Column, f.Reason)
		}
	}
}
