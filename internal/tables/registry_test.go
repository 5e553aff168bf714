//-------------------------------------------------------------------------
//
// pgEdge E-commerce Loader
//
// Copyright (c) 2025 - 2026, pgEdge, Inc.
// This software is released under The PostgreSQL License
//
//-------------------------------------------------------------------------

package tables_test

import (
	"slices"
	"testing"

	"github.com/pgEdge/pgedge-ecomload/internal/tables"
)

var knownTables = []string{
	"address",
	"card",
	"cart",
	"invoices",
	"order_items",
	"orders",
	"product",
	"transactions",
	"user",
	"wishlist",
}

func TestGet(t *testing.T) {
	for _, name := range knownTables {
		t.Run(name, func(t *testing.T) {
			c, err := tables.Get(name)
			if err != nil {
				t.Fatalf("Failed to get table '%s': %v", name, err)
			}
			if c.Table != name {
				t.Errorf("Table name mismatch: expected '%s', got '%s'", name, c.Table)
			}
			if c.Description == "" {
				t.Error("Table description should not be empty")
			}
			if c.File == "" {
				t.Error("Table source file should not be empty")
			}
			if c.PrimaryKey == "" {
				t.Error("Table primary key should not be empty")
			}
		})
	}
}

func TestGetInvalidTable(t *testing.T) {
	if _, err := tables.Get("nonexistent"); err == nil {
		t.Error("Expected error for nonexistent table, got nil")
	}
	if _, err := tables.Get(""); err == nil {
		t.Error("Expected error for empty table name, got nil")
	}
}

func TestList(t *testing.T) {
	got := tables.List()
	if !slices.Equal(got, knownTables) {
		t.Errorf("List() = %v, want %v", got, knownTables)
	}
}

func TestAllDependencyOrder(t *testing.T) {
	all := tables.All()
	if len(all) != len(knownTables) {
		t.Fatalf("All() returned %d tables, want %d", len(all), len(knownTables))
	}

	position := make(map[string]int, len(all))
	for i, c := range all {
		position[c.Table] = i
	}

	for _, c := range all {
		for _, dep := range c.Dependencies() {
			if position[dep] >= position[c.Table] {
				t.Errorf("Table %s loads before its dependency %s", c.Table, dep)
			}
		}
	}

	if all[0].Table != "address" {
		t.Errorf("First table = %s, want address", all[0].Table)
	}
	if all[len(all)-1].Table != "invoices" {
		t.Errorf("Last table = %s, want invoices", all[len(all)-1].Table)
	}
}

func TestOrderSubset(t *testing.T) {
	ordered, err := tables.Order([]string{"invoices", "user", "address"})
	if err != nil {
		t.Fatalf("Order() error: %v", err)
	}

	var names []string
	for _, c := range ordered {
		names = append(names, c.Table)
	}
	want := []string{"address", "user", "invoices"}
	if !slices.Equal(names, want) {
		t.Errorf("Order() = %v, want %v", names, want)
	}

	if _, err := tables.Order([]string{"user", "bogus"}); err == nil {
		t.Error("Expected error for unknown table in Order()")
	}
}

func TestForeignKeysReferenceKeys(t *testing.T) {
	for _, c := range tables.All() {
		for _, col := range c.Columns {
			if col.FK == nil {
				continue
			}
			dep, err := tables.Get(col.FK.Table)
			if err != nil {
				t.Errorf("%s.%s references unknown table %s", c.Table, col.Name, col.FK.Table)
				continue
			}
			if dep.PrimaryKey != col.FK.TargetColumn {
				t.Errorf("%s.%s targets %s.%s, which is not the primary key",
					c.Table, col.Name, dep.Table, col.FK.TargetColumn)
			}
			if col.FK.MatchColumn != dep.PrimaryKey && !slices.Contains(dep.Unique, col.FK.MatchColumn) {
				t.Errorf("%s.%s matches on %s.%s, which is not unique",
					c.Table, col.Name, dep.Table, col.FK.MatchColumn)
			}
		}
	}
}

func TestUserAddressIsOptional(t *testing.T) {
	col, ok := tables.User.Column("address_id")
	if !ok {
		t.Fatal("user has no address_id column")
	}
	if !col.Nullable {
		t.Error("user.address_id should be nullable")
	}
	if col.FK == nil || col.FK.MatchColumn != "address_ref" {
		t.Errorf("user.address_id should resolve through address_ref, got %+v", col.FK)
	}
}

func TestWithDependencies(t *testing.T) {
	tests := []struct {
		names []string
		want  []string
	}{
		{[]string{"address"}, []string{"address"}},
		{[]string{"user"}, []string{"address", "user"}},
		{[]string{"wishlist"}, []string{"address", "product", "user", "wishlist"}},
		{[]string{"user", "address"}, []string{"address", "user"}},
	}

	for _, tt := range tests {
		got, err := tables.WithDependencies(tt.names)
		if err != nil {
			t.Fatalf("WithDependencies(%v) error: %v", tt.names, err)
		}
		var names []string
		for _, c := range got {
			names = append(names, c.Table)
		}
		if !slices.Equal(names, tt.want) {
			t.Errorf("WithDependencies(%v) = %v, want %v", tt.names, names, tt.want)
		}
	}

	if _, err := tables.WithDependencies([]string{"customers"}); err == nil {
		t.Error("expected error for unknown table")
	}
}
