//-------------------------------------------------------------------------
//
// pgEdge E-commerce Loader
//
// Portions copyright (c) 2025 - 2026, pgEdge, Inc.
// This software is released under The PostgreSQL License
//
//-------------------------------------------------------------------------

// Package loader implements the tabular loader used by every entity.
//
// A run drains a Source row by row. Each RawRecord goes through the Row
// Transform, which coerces it to the table's column contract and resolves
// foreign keys, and the resulting CleanRecord is inserted by the Sink inside
// a single transaction per source file. Malformed rows and rejected inserts
// are recorded in the InsertReport and never abort the run; only connection
// and file-open failures are fatal.
package loader
