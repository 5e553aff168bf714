//-------------------------------------------------------------------------
//
// pgEdge E-commerce Loader
//
// Portions copyright (c) 2025 - 2026, pgEdge, Inc.
// This software is released under The PostgreSQL License
//
//-------------------------------------------------------------------------

package db

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/pgEdge/pgedge-ecomload/internal/config"
	"github.com/pgEdge/pgedge-ecomload/internal/loader"
)

// Dialect extends the loader's SQL dialect with what DDL needs.
type Dialect interface {
	loader.Dialect

	// ColumnType maps a column type to SQL. key is true for primary key,
	// unique and foreign key columns.
	ColumnType(t loader.ColumnType, key bool) string

	// Extensions are created before any table.
	Extensions() []string

	// DropTable returns the statement dropping a table.
	DropTable(table string) string
}

// DialectFor returns the dialect of a configured driver.
func DialectFor(driver string) (Dialect, error) {
	switch driver {
	case config.DriverPostgres:
		return PostgresDialect{}, nil
	case config.DriverMySQL:
		return MySQLDialect{}, nil
	case config.DriverSQLite:
		return SQLiteDialect{}, nil
	default:
		return nil, fmt.Errorf("unsupported database driver: %s", driver)
	}
}

// PostgresDialect is PostgreSQL with PostGIS.
type PostgresDialect struct{}

func (PostgresDialect) Name() string { return config.DriverPostgres }

func (PostgresDialect) Placeholder(n int) string { return "$" + strconv.Itoa(n) }

func (PostgresDialect) QuoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

func (PostgresDialect) GeometryExpr(p string) string { return "ST_GeomFromText(" + p + ")" }

func (PostgresDialect) ColumnType(t loader.ColumnType, _ bool) string {
	switch t {
	case loader.TypeFloat:
		return "DOUBLE PRECISION"
	case loader.TypeInt:
		return "BIGINT"
	case loader.TypeTimestamp:
		return "TIMESTAMPTZ"
	case loader.TypeDate:
		return "DATE"
	case loader.TypeBool:
		return "BOOLEAN"
	case loader.TypeJSON:
		return "JSONB"
	case loader.TypeGeometry:
		return "geometry(Point)"
	default:
		return "TEXT"
	}
}

func (PostgresDialect) Extensions() []string {
	return []string{"CREATE EXTENSION IF NOT EXISTS postgis"}
}

func (d PostgresDialect) DropTable(table string) string {
	return "DROP TABLE IF EXISTS " + d.QuoteIdent(table) + " CASCADE"
}

// MySQLDialect is MySQL 8 with InnoDB.
type MySQLDialect struct{}

func (MySQLDialect) Name() string { return config.DriverMySQL }

func (MySQLDialect) Placeholder(int) string { return "?" }

func (MySQLDialect) QuoteIdent(name string) string {
	return "`" + strings.ReplaceAll(name, "`", "``") + "`"
}

func (MySQLDialect) GeometryExpr(p string) string { return "ST_GeomFromText(" + p + ")" }

func (MySQLDialect) ColumnType(t loader.ColumnType, key bool) string {
	switch t {
	case loader.TypeFloat:
		return "DOUBLE"
	case loader.TypeInt:
		return "BIGINT"
	case loader.TypeTimestamp:
		return "DATETIME(6)"
	case loader.TypeDate:
		return "DATE"
	case loader.TypeBool:
		return "BOOLEAN"
	case loader.TypeJSON:
		return "JSON"
	case loader.TypeGeometry:
		return "POINT"
	default:
		// MySQL cannot index unbounded TEXT
		if key {
			return "VARCHAR(255)"
		}
		return "TEXT"
	}
}

func (MySQLDialect) Extensions() []string { return nil }

func (d MySQLDialect) DropTable(table string) string {
	return "DROP TABLE IF EXISTS " + d.QuoteIdent(table)
}

// SQLiteDialect stores geometry as well-known text.
type SQLiteDialect struct{}

func (SQLiteDialect) Name() string { return config.DriverSQLite }

func (SQLiteDialect) Placeholder(int) string { return "?" }

func (SQLiteDialect) QuoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

func (SQLiteDialect) GeometryExpr(p string) string { return p }

func (SQLiteDialect) ColumnType(t loader.ColumnType, _ bool) string {
	switch t {
	case loader.TypeFloat:
		return "REAL"
	case loader.TypeInt:
		return "INTEGER"
	case loader.TypeTimestamp:
		return "TIMESTAMP"
	case loader.TypeDate:
		return "DATE"
	case loader.TypeBool:
		return "BOOLEAN"
	default:
		return "TEXT"
	}
}

func (SQLiteDialect) Extensions() []string { return nil }

func (d SQLiteDialect) DropTable(table string) string {
	return "DROP TABLE IF EXISTS " + d.QuoteIdent(table)
}
