package tables

import (
	"github.com/pgEdge/pgedge-ecomload/internal/loader"
)

// CrawlTimestampLayout is the layout of product crawl timestamps.
const CrawlTimestampLayout = "2006-01-02 15:04:05 -0700"

// Product holds the catalog, loaded from a JSON array of scraped listings.
var Product = &loader.TableContract{
	Table:       "product",
	Source:      loader.Document,
	File:        "product_data.json",
	Description: "Product catalog",
	PrimaryKey:  "product_id",
	Columns: []loader.Column{
		{Name: "product_id", Field: "uniq_id", Type: loader.TypeText},
		{Name: "crawl_timestamp", Field: "crawl_timestamp", Type: loader.TypeTimestamp, Layouts: []string{CrawlTimestampLayout}},
		{Name: "product_url", Field: "product_url", Type: loader.TypeText, Nullable: true},
		{Name: "product_name", Field: "product_name", Type: loader.TypeText},
		{Name: "categories", Field: "product_category_tree", Type: loader.TypeText, Nullable: true},
		{Name: "pid", Field: "pid", Type: loader.TypeText, Nullable: true},
		{Name: "retail_price", Field: "retail_price", Type: loader.TypeFloat},
		{Name: "discounted_price", Field: "discounted_price", Type: loader.TypeFloat},
		{Name: "image_urls", Field: "image", Type: loader.TypeJSON},
		{Name: "is_FK_Advantage_product", Field: "is_FK_Advantage_product", Type: loader.TypeBool},
		{Name: "product_description", Field: "description", Type: loader.TypeText, Nullable: true},
		{Name: "product_rating", Field: "product_rating", Type: loader.TypeText, Nullable: true},
		{Name: "overall_rating", Field: "overall_rating", Type: loader.TypeText, Nullable: true},
		{Name: "brand", Field: "brand", Type: loader.TypeText, Nullable: true},
		{Name: "product_specifications", Field: "product_specifications", Type: loader.TypeText, Nullable: true},
		{Name: "stock_quantity", Type: loader.TypeInt, Const: int64(0)},
		{Name: "quantity_unit", Type: loader.TypeText, Const: "pcs"},
		{Name: "created_at", Type: loader.TypeTimestamp, Now: true},
	},
}

func init() {
	Register(Product)
}
