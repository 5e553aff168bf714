package loader

import (
	"fmt"
	"slices"
	"strings"
)

// ColumnType is the basic type of a contract column.
type ColumnType int

// Column types understood by the Row Transform.
const (
	TypeText ColumnType = iota
	TypeFloat
	TypeInt
	TypeTimestamp
	TypeDate
	TypeBool
	TypeJSON
	TypeGeometry
)

func (t ColumnType) String() string {
	switch t {
	case TypeText:
		return "text"
	case TypeFloat:
		return "float"
	case TypeInt:
		return "int"
	case TypeTimestamp:
		return "timestamp"
	case TypeDate:
		return "date"
	case TypeBool:
		return "bool"
	case TypeJSON:
		return "json"
	case TypeGeometry:
		return "geometry"
	default:
		return fmt.Sprintf("ColumnType(%d)", int(t))
	}
}

// SourceKind selects the Source adapter for a contract.
type SourceKind int

const (
	// Delimited is a CSV file whose first line is a header.
	Delimited SourceKind = iota
	// Document is a JSON file holding an array of objects.
	Document
)

func (k SourceKind) String() string {
	if k == Document {
		return "document"
	}
	return "delimited"
}

// ForeignKey describes how a natural key in the source resolves to a
// surrogate key stored in a dependency table.
type ForeignKey struct {
	// Table is the dependency table.
	Table string
	// MatchColumn is the dependency column compared to the natural key.
	MatchColumn string
	// TargetColumn is the dependency column returned as the surrogate key.
	TargetColumn string
}

// Column is one entry of a table's column contract.
type Column struct {
	// Name is the target column.
	Name string

	// Field is the raw record field the value comes from. Empty for
	// computed columns, which take Const or the execution time.
	Field string

	Type     ColumnType
	Nullable bool

	// Layouts are the declared time layouts tried before lenient parsing.
	Layouts []string

	// FK, when set, makes the column a foreign key.
	FK *ForeignKey

	// Const is the value of a computed column.
	Const any

	// Now makes a computed column take the transform's execution time.
	Now bool
}

// Computed reports whether the column has no raw source field.
func (c Column) Computed() bool {
	return c.Field == ""
}

// TableContract is the static column contract for one target table.
type TableContract struct {
	// Table is the target table name.
	Table string

	// Source is the kind of file the table is loaded from.
	Source SourceKind

	// File is the default source file name.
	File string

	// Description is a human-readable summary.
	Description string

	// PrimaryKey is the surrogate key column.
	PrimaryKey string

	// Unique lists columns, other than the primary key, holding natural keys.
	Unique []string

	Columns []Column
}

// ColumnNames returns the target column names in order.
func (c *TableContract) ColumnNames() []string {
	names := make([]string, len(c.Columns))
	for i, col := range c.Columns {
		names[i] = col.Name
	}
	return names
}

// Fields returns the raw field names a source must provide, in column order.
func (c *TableContract) Fields() []string {
	var fields []string
	for _, col := range c.Columns {
		if col.Computed() || slices.Contains(fields, col.Field) {
			continue
		}
		fields = append(fields, col.Field)
	}
	return fields
}

// Dependencies returns the tables referenced by foreign keys, deduplicated.
func (c *TableContract) Dependencies() []string {
	var deps []string
	for _, col := range c.Columns {
		if col.FK == nil || col.FK.Table == c.Table || slices.Contains(deps, col.FK.Table) {
			continue
		}
		deps = append(deps, col.FK.Table)
	}
	return deps
}

// Validate checks the contract for internal consistency.
func (c *TableContract) Validate() error {
	if c.Table == "" {
		return fmt.Errorf("table name is required")
	}
	if len(c.Columns) == 0 {
		return fmt.Errorf("table %s has no columns", c.Table)
	}
	seen := make(map[string]bool, len(c.Columns))
	for _, col := range c.Columns {
		if col.Name == "" {
			return fmt.Errorf("table %s has a column without a name", c.Table)
		}
		if seen[col.Name] {
			return fmt.Errorf("table %s declares column %s twice", c.Table, col.Name)
		}
		seen[col.Name] = true
		if col.Computed() && col.Const == nil && !col.Now && !col.Nullable {
			return fmt.Errorf("table %s column %s has no source field and no default", c.Table, col.Name)
		}
		if col.FK != nil && (col.FK.Table == "" || col.FK.MatchColumn == "" || col.FK.TargetColumn == "") {
			return fmt.Errorf("table %s column %s has an incomplete foreign key", c.Table, col.Name)
		}
		if col.FK != nil && col.Type != TypeText {
			return fmt.Errorf("table %s column %s: foreign keys must be text", c.Table, col.Name)
		}
	}
	if c.PrimaryKey != "" && !seen[c.PrimaryKey] {
		return fmt.Errorf("table %s primary key %s is not a column", c.Table, c.PrimaryKey)
	}
	for _, name := range c.Unique {
		if !seen[name] {
			return fmt.Errorf("table %s unique column %s is not a column", c.Table, name)
		}
	}
	return nil
}

// Column returns the column named name.
func (c *TableContract) Column(name string) (Column, bool) {
	for _, col := range c.Columns {
		if col.Name == name {
			return col, true
		}
	}
	return Column{}, false
}

// InsertSQL renders the parameterized insert template for a dialect.
func (c *TableContract) InsertSQL(d Dialect) string {
	cols := make([]string, len(c.Columns))
	params := make([]string, len(c.Columns))
	for i, col := range c.Columns {
		cols[i] = d.QuoteIdent(col.Name)
		p := d.Placeholder(i + 1)
		if col.Type == TypeGeometry {
			p = d.GeometryExpr(p)
		}
		params[i] = p
	}
	return fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		d.QuoteIdent(c.Table),
		strings.Join(cols, ", "),
		strings.Join(params, ", "),
	)
}

// Raw converts a CleanRecord of this contract back into a RawRecord keyed by
// source field. Computed columns are omitted. Foreign keys that translate a
// natural key into a surrogate key give back the natural key.
func (c *TableContract) Raw(row int, rec CleanRecord) RawRecord {
	raw := RawRecord{Row: row}
	for i, col := range c.Columns {
		if col.Computed() || i >= len(rec.values) {
			continue
		}
		if key, ok := rec.naturals[col.Name]; ok {
			raw.Set(col.Field, key)
			continue
		}
		raw.Set(col.Field, rec.values[i])
	}
	return raw
}

// Dialect abstracts the SQL differences between target stores.
type Dialect interface {
	// Name identifies the dialect.
	Name() string
	// Placeholder returns the n-th (1-based) bind parameter marker.
	Placeholder(n int) string
	// QuoteIdent quotes a table or column identifier.
	QuoteIdent(name string) string
	// GeometryExpr wraps a placeholder in the geometry constructor.
	GeometryExpr(placeholder string) string
}
