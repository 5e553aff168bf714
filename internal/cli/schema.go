package cli

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/pgEdge/pgedge-ecomload/internal/db"
	"github.com/pgEdge/pgedge-ecomload/internal/logging"
	"github.com/pgEdge/pgedge-ecomload/internal/tables"
)

var schemaPrint bool

var schemaCmd = &cobra.Command{
	Use:   "schema",
	Short: "Create or drop the target tables",
}

var schemaCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Create every target table and the run ledger",
	Long: `Create every target table for the configured driver, in dependency
order, together with the run ledger. Existing tables are left untouched.

Example:
  pgedge-ecomload schema create --driver sqlite --dsn ./ecommerce.db
  pgedge-ecomload schema create --driver mysql --print`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if schemaPrint {
			d, err := db.DialectFor(cfg.Database.Driver)
			if err != nil {
				return err
			}
			for _, c := range tables.All() {
				cmd.Println(db.CreateTableSQL(d, c) + ";")
			}
			return nil
		}
		return withConn(func(ctx context.Context, conn db.Conn) error {
			if err := db.CreateSchema(ctx, conn, tables.All()); err != nil {
				return err
			}
			logging.Info().Msg("Schema created")
			return nil
		})
	},
}

var schemaDropCmd = &cobra.Command{
	Use:   "drop",
	Short: "Drop every target table and the run ledger",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withConn(func(ctx context.Context, conn db.Conn) error {
			if err := db.DropSchema(ctx, conn, tables.All()); err != nil {
				return err
			}
			logging.Info().Msg("Schema dropped")
			return nil
		})
	},
}

func init() {
	schemaCreateCmd.Flags().BoolVar(&schemaPrint, "print", false,
		"print the DDL instead of executing it")
	schemaCmd.AddCommand(schemaCreateCmd)
	schemaCmd.AddCommand(schemaDropCmd)
}

// withConn validates the database settings, connects, and runs fn.
func withConn(fn func(ctx context.Context, conn db.Conn) error) error {
	if err := cfg.Validate(); err != nil {
		return err
	}

	ctx, cancel := signalContext()
	defer cancel()

	conn, err := db.Connect(ctx, cfg.Database)
	if err != nil {
		return err
	}
	defer conn.Close()

	return fn(ctx, conn)
}
