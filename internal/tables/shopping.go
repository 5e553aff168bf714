package tables

import (
	"github.com/pgEdge/pgedge-ecomload/internal/loader"
)

// Cart holds products users have added to their carts.
var Cart = &loader.TableContract{
	Table:       "cart",
	Source:      loader.Delimited,
	File:        "cart_data.csv",
	Description: "Shopping cart lines",
	PrimaryKey:  "cart_id",
	Columns: []loader.Column{
		{Name: "cart_id", Field: "cart_id", Type: loader.TypeText},
		{Name: "user_id", Field: "user_id", Type: loader.TypeText, FK: references("user", "user_id")},
		{Name: "product_id", Field: "product_id", Type: loader.TypeText, FK: references("product", "product_id")},
		{Name: "quantity", Field: "quantity", Type: loader.TypeInt},
		{Name: "created_at", Field: "created_at", Type: loader.TypeTimestamp},
	},
}

// Wishlist holds products users have saved for later.
var Wishlist = &loader.TableContract{
	Table:       "wishlist",
	Source:      loader.Delimited,
	File:        "wishlist_data.csv",
	Description: "Saved products",
	PrimaryKey:  "wishlist_id",
	Columns: []loader.Column{
		{Name: "wishlist_id", Field: "wishlist_id", Type: loader.TypeText},
		{Name: "user_id", Field: "user_id", Type: loader.TypeText, FK: references("user", "user_id")},
		{Name: "product_id", Field: "product_id", Type: loader.TypeText, FK: references("product", "product_id")},
		{Name: "created_at", Field: "created_at", Type: loader.TypeTimestamp},
	},
}

// Card holds users' payment cards.
var Card = &loader.TableContract{
	Table:       "card",
	Source:      loader.Delimited,
	File:        "card_data.csv",
	Description: "Payment cards",
	PrimaryKey:  "card_id",
	Columns: []loader.Column{
		{Name: "card_id", Field: "card_id", Type: loader.TypeText},
		{Name: "card_number", Field: "card_number", Type: loader.TypeText},
		{Name: "card_holder_name", Field: "card_holder_name", Type: loader.TypeText},
		{Name: "card_type", Field: "card_type", Type: loader.TypeText},
		{Name: "expiration_date", Field: "expiration_date", Type: loader.TypeDate},
		{Name: "cvv", Field: "cvv", Type: loader.TypeInt},
		{Name: "user_id", Field: "user_id", Type: loader.TypeText, FK: references("user", "user_id")},
		{Name: "created_at", Field: "created_at", Type: loader.TypeTimestamp},
	},
}

func init() {
	Register(Cart)
	Register(Wishlist)
	Register(Card)
}
