package tables

import (
	"github.com/pgEdge/pgedge-ecomload/internal/loader"
)

// Address holds postal addresses. The source's address_uuid becomes the
// surrogate key; its address_id is kept as the natural key users refer to.
var Address = &loader.TableContract{
	Table:       "address",
	Source:      loader.Delimited,
	File:        "address_data.csv",
	Description: "Postal addresses with optional point locations",
	PrimaryKey:  "address_id",
	Unique:      []string{"address_ref"},
	Columns: []loader.Column{
		{Name: "address_id", Field: "address_uuid", Type: loader.TypeText},
		{Name: "address_ref", Field: "address_id", Type: loader.TypeText},
		{Name: "primary_address", Field: "primary_address", Type: loader.TypeText},
		{Name: "secondary_address", Field: "secondary_address", Type: loader.TypeText, Nullable: true},
		{Name: "district", Field: "district", Type: loader.TypeText, Nullable: true},
		{Name: "city_id", Field: "city_id", Type: loader.TypeText},
		{Name: "postal_code", Field: "postal_code", Type: loader.TypeText, Nullable: true},
		{Name: "phone", Field: "phone", Type: loader.TypeText, Nullable: true},
		{Name: "location", Field: "location", Type: loader.TypeGeometry, Nullable: true},
		{Name: "last_update", Field: "last_update", Type: loader.TypeTimestamp},
	},
}

func init() {
	Register(Address)
}
