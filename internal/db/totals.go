package db

import (
	"context"
	"fmt"

	"github.com/pgEdge/pgedge-ecomload/internal/logging"
)

// RecomputeOrderTotals sets each order's total_amount to the sum of its
// order item prices. Orders without items keep their loaded total.
func RecomputeOrderTotals(ctx context.Context, conn Conn) (int64, error) {
	d := conn.SQLDialect()
	orders := d.QuoteIdent("orders")
	items := d.QuoteIdent("order_items")
	orderID := d.QuoteIdent("order_id")

	stmt := fmt.Sprintf(`UPDATE %[1]s SET %[3]s = (
    SELECT SUM(%[4]s) FROM %[2]s WHERE %[2]s.%[5]s = %[1]s.%[5]s
) WHERE EXISTS (
    SELECT 1 FROM %[2]s WHERE %[2]s.%[5]s = %[1]s.%[5]s
)`, orders, items, d.QuoteIdent("total_amount"), d.QuoteIdent("price"), orderID)

	n, err := conn.Exec(ctx, stmt)
	if err != nil {
		return 0, fmt.Errorf("failed to update order totals: %w", err)
	}

	logging.Info().Int64("orders", n).Msg("Updated order totals")
	return n, nil
}
