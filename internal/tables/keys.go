package tables

import (
	"github.com/pgEdge/pgedge-ecomload/internal/loader"
)

// references returns a foreign key that checks key exists as the primary
// key of table and stores it unchanged.
func references(table, key string) *loader.ForeignKey {
	return &loader.ForeignKey{Table: table, MatchColumn: key, TargetColumn: key}
}
