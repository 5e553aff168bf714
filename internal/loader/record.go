package loader

import (
	"slices"
)

// RawRecord is one row as read from a source file: an ordered mapping from
// field name to an untyped scalar. Absent fields read as nil.
type RawRecord struct {
	// Row is the 1-based data row index in file order.
	Row int

	// Line is the source line the row started on, when known.
	Line int

	keys   []string
	values map[string]any
}

// NewRawRecord builds a RawRecord from parallel key and value slices.
func NewRawRecord(row int, keys []string, values []any) RawRecord {
	r := RawRecord{
		Row:    row,
		keys:   make([]string, 0, len(keys)),
		values: make(map[string]any, len(keys)),
	}
	for i, k := range keys {
		var v any
		if i < len(values) {
			v = values[i]
		}
		r.Set(k, v)
	}
	return r
}

// RawRecordFromMap builds a RawRecord from a decoded document object.
// Keys are ordered lexically since objects carry no order.
func RawRecordFromMap(row int, m map[string]any) RawRecord {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	r := RawRecord{Row: row, keys: keys, values: make(map[string]any, len(m))}
	for k, v := range m {
		r.values[k] = v
	}
	return r
}

// Set assigns a field, appending it to the key order if new.
func (r *RawRecord) Set(key string, value any) {
	if r.values == nil {
		r.values = make(map[string]any)
	}
	if _, ok := r.values[key]; !ok {
		r.keys = append(r.keys, key)
	}
	r.values[key] = value
}

// Get returns the value of a field and whether the field was present.
func (r RawRecord) Get(key string) (any, bool) {
	v, ok := r.values[key]
	return v, ok
}

// Keys returns the field names in order.
func (r RawRecord) Keys() []string {
	return slices.Clone(r.keys)
}

// Len returns the number of fields.
func (r RawRecord) Len() int {
	return len(r.keys)
}

// CleanRecord is a typed tuple matching a TableContract's columns exactly in
// count and order. Nil entries are SQL NULL. It is never mutated after the
// transform creates it.
type CleanRecord struct {
	columns []string
	values  []any

	// naturals holds the source natural keys of foreign key columns whose
	// stored value is a translated surrogate key.
	naturals map[string]string
}

func newCleanRecord(columns []string, values []any) CleanRecord {
	return CleanRecord{columns: columns, values: values}
}

// Columns returns the column names in contract order.
func (c CleanRecord) Columns() []string {
	return slices.Clone(c.columns)
}

// Values returns a copy of the typed values in contract order.
func (c CleanRecord) Values() []any {
	return slices.Clone(c.values)
}

// Value returns the value of a named column.
func (c CleanRecord) Value(column string) (any, bool) {
	i := slices.Index(c.columns, column)
	if i < 0 {
		return nil, false
	}
	return c.values[i], true
}

// NaturalKey returns the source key a translated foreign key column was
// resolved from.
func (c CleanRecord) NaturalKey(column string) (string, bool) {
	key, ok := c.naturals[column]
	return key, ok
}

// Len returns the number of columns.
func (c CleanRecord) Len() int {
	return len(c.values)
}
