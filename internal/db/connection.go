// Package db provides store connections, dialects and DDL for pgedge-ecomload.
package db

import (
	"context"
	"fmt"
	"net"
	"net/url"
	"strconv"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/pgEdge/pgedge-ecomload/internal/config"
	"github.com/pgEdge/pgedge-ecomload/internal/loader"
	"github.com/pgEdge/pgedge-ecomload/internal/logging"
)

// ApplicationName identifies the loader's sessions on the server.
const ApplicationName = "pgedge-ecomload"

// Conn is an open store that can also run ad-hoc statements outside a load
// transaction (DDL, the run ledger, order totals).
type Conn interface {
	loader.Store

	// Exec runs a statement and returns the number of rows affected.
	Exec(ctx context.Context, query string, args ...any) (int64, error)

	// Query runs a statement and calls fn once per result row.
	Query(ctx context.Context, query string, args []any, fn func(scan func(dest ...any) error) error) error

	// SQLDialect returns the full dialect, including DDL helpers.
	SQLDialect() Dialect
}

// DefaultPoolConfig returns default connection pool configuration.
func DefaultPoolConfig() *pgxpool.Config {
	poolCfg, _ := pgxpool.ParseConfig("")

	// A load holds one connection for its transaction plus the run ledger.
	poolCfg.MaxConns = 4
	poolCfg.MinConns = 1
	poolCfg.MaxConnLifetime = 30 * time.Minute
	poolCfg.MaxConnIdleTime = 5 * time.Minute
	poolCfg.HealthCheckPeriod = 30 * time.Second

	return poolCfg
}

// Connect opens the configured store and verifies it is reachable.
// Failures are returned as *loader.ConnectionError.
func Connect(ctx context.Context, cfg config.DatabaseConfig) (Conn, error) {
	switch cfg.Driver {
	case config.DriverPostgres:
		return ConnectPostgres(ctx, PostgresConnString(cfg))
	case config.DriverMySQL:
		return ConnectMySQL(ctx, MySQLDSN(cfg))
	case config.DriverSQLite:
		return ConnectSQLite(ctx, cfg.DSN)
	default:
		return nil, &loader.ConnectionError{
			Driver: cfg.Driver,
			Err:    fmt.Errorf("unsupported database driver: %s", cfg.Driver),
		}
	}
}

// PostgresConnString builds a connection URL from discrete settings unless
// a DSN is configured.
func PostgresConnString(cfg config.DatabaseConfig) string {
	if cfg.DSN != "" {
		return cfg.DSN
	}
	port := cfg.Port
	if port == 0 {
		port = 5432
	}
	u := url.URL{
		Scheme: "postgres",
		Host:   net.JoinHostPort(cfg.Host, strconv.Itoa(port)),
		Path:   "/" + cfg.Name,
	}
	if cfg.User != "" {
		if cfg.Password != "" {
			u.User = url.UserPassword(cfg.User, cfg.Password)
		} else {
			u.User = url.User(cfg.User)
		}
	}
	q := url.Values{}
	if cfg.SSLMode != "" {
		q.Set("sslmode", cfg.SSLMode)
	}
	q.Set("application_name", ApplicationName)
	u.RawQuery = q.Encode()
	return u.String()
}

// MySQLDSN builds a go-sql-driver DSN from discrete settings unless a DSN
// is configured.
func MySQLDSN(cfg config.DatabaseConfig) string {
	if cfg.DSN != "" {
		return cfg.DSN
	}
	port := cfg.Port
	if port == 0 {
		port = 3306
	}
	mc := mysql.NewConfig()
	mc.User = cfg.User
	mc.Passwd = cfg.Password
	mc.Net = "tcp"
	mc.Addr = net.JoinHostPort(cfg.Host, strconv.Itoa(port))
	mc.DBName = cfg.Name
	mc.ParseTime = true
	mc.Loc = time.UTC
	mc.Params = map[string]string{"charset": "utf8mb4"}
	if cfg.SSLMode == "require" {
		mc.TLSConfig = "true"
	}
	return mc.FormatDSN()
}

// ConnectPostgres establishes a connection pool to PostgreSQL.
func ConnectPostgres(ctx context.Context, connString string) (*PgStore, error) {
	poolCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, &loader.ConnectionError{
			Driver: "postgres",
			Err:    fmt.Errorf("failed to parse connection string: %w", err),
		}
	}
	target := poolCfg.ConnConfig.Host + "/" + poolCfg.ConnConfig.Database

	// Apply default pool settings
	defaults := DefaultPoolConfig()
	poolCfg.MaxConns = defaults.MaxConns
	poolCfg.MinConns = defaults.MinConns
	poolCfg.MaxConnLifetime = defaults.MaxConnLifetime
	poolCfg.MaxConnIdleTime = defaults.MaxConnIdleTime
	poolCfg.HealthCheckPeriod = defaults.HealthCheckPeriod

	logging.Debug().
		Str("host", poolCfg.ConnConfig.Host).
		Uint16("port", poolCfg.ConnConfig.Port).
		Str("database", poolCfg.ConnConfig.Database).
		Msg("Connecting to database")

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, &loader.ConnectionError{
			Driver: "postgres",
			Target: target,
			Err:    fmt.Errorf("failed to create connection pool: %w", err),
		}
	}

	// Verify connection
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, &loader.ConnectionError{
			Driver: "postgres",
			Target: target,
			Err:    fmt.Errorf("failed to ping database: %w", err),
		}
	}

	logging.Info().
		Str("host", poolCfg.ConnConfig.Host).
		Str("database", poolCfg.ConnConfig.Database).
		Msg("Connected to database")

	return &PgStore{pool: pool}, nil
}

// ConnectMySQL opens a MySQL database through database/sql.
func ConnectMySQL(ctx context.Context, dsn string) (*SQLStore, error) {
	target := dsn
	if mc, err := mysql.ParseDSN(dsn); err == nil {
		target = mc.Addr + "/" + mc.DBName
	}

	store, err := openSQL(ctx, "mysql", dsn, MySQLDialect{}, isMySQLConstraint)
	if err != nil {
		return nil, &loader.ConnectionError{Driver: "mysql", Target: target, Err: err}
	}
	store.db.SetMaxOpenConns(4)
	store.db.SetMaxIdleConns(2)
	store.db.SetConnMaxLifetime(10 * time.Minute)

	logging.Info().Str("target", target).Msg("Connected to database")
	return store, nil
}

// ConnectSQLite opens a SQLite database file with foreign keys enforced.
func ConnectSQLite(ctx context.Context, path string) (*SQLStore, error) {
	if path == "" {
		return nil, &loader.ConnectionError{Driver: "sqlite", Err: fmt.Errorf("database path is required")}
	}
	dsn := fmt.Sprintf("%s?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)", path)

	store, err := openSQL(ctx, "sqlite", dsn, SQLiteDialect{}, isSQLiteConstraint)
	if err != nil {
		return nil, &loader.ConnectionError{Driver: "sqlite", Target: path, Err: err}
	}
	// Lookups run inside the load transaction, so one connection suffices.
	store.db.SetMaxOpenConns(1)
	store.db.SetMaxIdleConns(1)

	logging.Info().Str("target", path).Msg("Connected to database")
	return store, nil
}
