package cli

import (
	"context"
	"time"

	"github.com/spf13/cobra"

	"github.com/pgEdge/pgedge-ecomload/internal/db"
)

var runsLimit int

var runsCmd = &cobra.Command{
	Use:   "runs",
	Short: "Show recorded load runs",
	Long: `Show the most recent load runs from the run ledger, newest first.
Runs are recorded by 'load' unless --no-record is given.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withConn(func(ctx context.Context, conn db.Conn) error {
			runs, err := db.ListRuns(ctx, conn, runsLimit)
			if err != nil {
				return err
			}
			if len(runs) == 0 {
				cmd.Println("No runs recorded.")
				return nil
			}
			cmd.Printf("%-36s  %-14s  %-20s  %9s  %9s  %8s  %7s\n",
				"RUN", "TABLE", "STARTED", "ATTEMPTED", "INSERTED", "SKIPPED", "FAILED")
			for _, r := range runs {
				cmd.Printf("%-36s  %-14s  %-20s  %9d  %9d  %8d  %7d\n",
					r.RunID, r.Table, r.StartedAt.UTC().Format(time.DateTime),
					r.Attempted, r.Inserted, r.Skipped, r.Failed)
			}
			return nil
		})
	},
}

var totalsCmd = &cobra.Command{
	Use:   "totals",
	Short: "Recompute order totals from their items",
	Long: `Set every order's total_amount to the sum of its order items' prices.
Orders without items are left unchanged.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withConn(func(ctx context.Context, conn db.Conn) error {
			n, err := db.RecomputeOrderTotals(ctx, conn)
			if err != nil {
				return err
			}
			cmd.Printf("Updated %d orders\n", n)
			return nil
		})
	},
}

func init() {
	runsCmd.Flags().IntVar(&runsLimit, "limit", 20,
		"maximum number of runs to show")
}
