package tables

import (
	"github.com/pgEdge/pgedge-ecomload/internal/loader"
)

// Order statuses.
const (
	StatusPending    = "pending"
	StatusProcessing = "processing"
	StatusShipped    = "shipped"
	StatusDelivered  = "delivered"
)

// Statuses lists every order status.
var Statuses = []string{StatusPending, StatusProcessing, StatusShipped, StatusDelivered}

// Orders holds order headers.
var Orders = &loader.TableContract{
	Table:       "orders",
	Source:      loader.Delimited,
	File:        "orders_data.csv",
	Description: "Order headers",
	PrimaryKey:  "order_id",
	Columns: []loader.Column{
		{Name: "order_id", Field: "order_id", Type: loader.TypeText},
		{Name: "user_id", Field: "user_id", Type: loader.TypeText, FK: references("user", "user_id")},
		{Name: "order_date", Field: "order_date", Type: loader.TypeTimestamp},
		{Name: "total_amount", Field: "total_amount", Type: loader.TypeFloat},
		{Name: "status", Field: "status", Type: loader.TypeText},
	},
}

// OrderItems holds order lines. price is the line total.
var OrderItems = &loader.TableContract{
	Table:       "order_items",
	Source:      loader.Delimited,
	File:        "order_items_data.csv",
	Description: "Order lines",
	PrimaryKey:  "order_item_id",
	Columns: []loader.Column{
		{Name: "order_item_id", Field: "order_item_id", Type: loader.TypeText},
		{Name: "order_id", Field: "order_id", Type: loader.TypeText, FK: references("orders", "order_id")},
		{Name: "product_id", Field: "product_id", Type: loader.TypeText, FK: references("product", "product_id")},
		{Name: "quantity", Field: "quantity", Type: loader.TypeInt},
		{Name: "price", Field: "price", Type: loader.TypeFloat},
	},
}

// Transactions holds order payments. A payment whose card is unknown is
// kept with a null card.
var Transactions = &loader.TableContract{
	Table:       "transactions",
	Source:      loader.Delimited,
	File:        "transaction_data.csv",
	Description: "Order payments",
	PrimaryKey:  "transaction_id",
	Columns: []loader.Column{
		{Name: "transaction_id", Field: "transaction_id", Type: loader.TypeText},
		{Name: "order_id", Field: "order_id", Type: loader.TypeText, FK: references("orders", "order_id")},
		{Name: "card_id", Field: "card_id", Type: loader.TypeText, Nullable: true, FK: references("card", "card_id")},
		{Name: "amount", Field: "amount", Type: loader.TypeFloat},
		{Name: "transaction_date", Field: "transaction_date", Type: loader.TypeTimestamp},
	},
}

// Invoices holds payment receipts.
var Invoices = &loader.TableContract{
	Table:       "invoices",
	Source:      loader.Delimited,
	File:        "invoice_data.csv",
	Description: "Payment receipts",
	PrimaryKey:  "invoice_id",
	Columns: []loader.Column{
		{Name: "invoice_id", Field: "invoice_id", Type: loader.TypeText},
		{Name: "transaction_id", Field: "transaction_id", Type: loader.TypeText, FK: references("transactions", "transaction_id")},
		{Name: "payment_amount", Field: "payment_amount", Type: loader.TypeFloat},
		{Name: "payment_date", Field: "payment_date", Type: loader.TypeTimestamp},
	},
}

func init() {
	Register(Orders)
	Register(OrderItems)
	Register(Transactions)
	Register(Invoices)
}
