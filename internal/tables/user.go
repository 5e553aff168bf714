package tables

import (
	"github.com/pgEdge/pgedge-ecomload/internal/loader"
)

// User holds customer accounts. address_id in the source is the address
// natural key and is resolved to the address surrogate key; unknown
// addresses are stored as null.
var User = &loader.TableContract{
	Table:       "user",
	Source:      loader.Delimited,
	File:        "user_data.csv",
	Description: "Customer accounts",
	PrimaryKey:  "user_id",
	Unique:      []string{"username", "email"},
	Columns: []loader.Column{
		{Name: "user_id", Field: "user_id", Type: loader.TypeText},
		{Name: "first_name", Field: "first_name", Type: loader.TypeText},
		{Name: "last_name", Field: "last_name", Type: loader.TypeText},
		{Name: "username", Field: "username", Type: loader.TypeText},
		{Name: "email", Field: "email", Type: loader.TypeText},
		{
			Name:     "address_id",
			Field:    "address_id",
			Type:     loader.TypeText,
			Nullable: true,
			FK:       &loader.ForeignKey{Table: "address", MatchColumn: "address_ref", TargetColumn: "address_id"},
		},
		{Name: "created_at", Field: "created_at", Type: loader.TypeTimestamp},
		{Name: "last_update", Field: "last_update", Type: loader.TypeTimestamp},
	},
}

func init() {
	Register(User)
}
