//-------------------------------------------------------------------------
//
// pgEdge E-commerce Loader
//
// Portions copyright (c) 2025 - 2026, pgEdge, Inc.
// This software is released under The PostgreSQL License
//
//-------------------------------------------------------------------------

// Package cli implements the command-line interface for pgedge-ecomload.
package cli

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/pgEdge/pgedge-ecomload/internal/config"
	"github.com/pgEdge/pgedge-ecomload/internal/logging"
	"github.com/pgEdge/pgedge-ecomload/pkg/version"
)

var (
	// Global flags
	cfgFile   string
	driver    string
	dsn       string
	logLevel  string
	logFormat string

	// Global config
	cfg *config.Config

	rootCmd = &cobra.Command{
		Use:   "pgedge-ecomload",
		Short: "Load e-commerce CSV and JSON exports into a relational database",
		Long: `pgedge-ecomload reads tabular e-commerce exports (addresses, users,
products, carts, wishlists, cards, orders, order items, transactions and
invoices), cleans every row against a fixed column contract, resolves
natural keys to surrogate keys in already loaded tables, and inserts the
result into PostgreSQL, MySQL or SQLite.

Each table is loaded in a single transaction. Rows that cannot be cleaned
or inserted are reported and skipped; they never abort the load.`,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return initConfig()
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}
)

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	// Global flags
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "",
		"config file (default: ./pgedge-ecomload.yaml)")
	rootCmd.PersistentFlags().StringVar(&driver, "driver", "",
		"database driver (postgres, mysql, sqlite)")
	rootCmd.PersistentFlags().StringVar(&dsn, "dsn", "",
		"connection string, or the database file for sqlite")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "",
		"log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "",
		"log format (console, json)")

	// Add subcommands
	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(loadCmd)
	rootCmd.AddCommand(schemaCmd)
	rootCmd.AddCommand(generateCmd)
	rootCmd.AddCommand(totalsCmd)
	rootCmd.AddCommand(tablesCmd)
	rootCmd.AddCommand(runsCmd)
}

func initConfig() error {
	var err error
	cfg, err = config.Load(cfgFile)
	if err != nil {
		return err
	}

	// Override with CLI flags
	if driver != "" {
		cfg.Database.Driver = driver
	}
	if dsn != "" {
		cfg.Database.DSN = dsn
	}
	if logLevel != "" {
		cfg.LogLevel = logLevel
	}
	if logFormat != "" {
		cfg.LogFormat = logFormat
	}

	// Reinitialize logger with config
	logging.Init(logging.Config{
		Level:  cfg.LogLevel,
		Format: cfg.LogFormat,
	})

	return nil
}

// signalContext returns a context cancelled on SIGINT or SIGTERM.
func signalContext() (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		select {
		case sig := <-sigChan:
			logging.Info().
				Str("signal", sig.String()).
				Msg("Received shutdown signal")
			cancel()
		case <-ctx.Done():
		}
	}()

	return ctx, func() {
		signal.Stop(sigChan)
		cancel()
	}
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		cmd.Println(version.Info())
	},
}
