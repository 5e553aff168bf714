//-------------------------------------------------------------------------
//
// pgEdge E-commerce Loader
//
// Copyright (c) 2025 - 2026, pgEdge, Inc.
// This software is released under The PostgreSQL License
//
//-------------------------------------------------------------------------

// Package testutil provides utilities for integration testing against
// PostgreSQL. A server is taken from ECOMLOAD_TEST_CONN when set; otherwise
// a throwaway PostGIS container is started with testcontainers.
package testutil

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
)

const (
	// ConnEnv names the variable holding an existing server's connection
	// string.
	ConnEnv = "ECOMLOAD_TEST_CONN"

	// PostgisImage is the container image used when ConnEnv is unset.
	PostgisImage = "postgis/postgis:17-3.5"

	// TestDBPrefix is the prefix for test databases.
	TestDBPrefix = "ecomload_test_"
)

// Postgres returns a connection string for a server usable by integration
// tests, skipping the test when none is available.
func Postgres(t *testing.T) string {
	t.Helper()

	if connStr := os.Getenv(ConnEnv); connStr != "" {
		if !reachable(connStr) {
			t.Skipf("PostgreSQL at %s is not reachable, skipping integration test", ConnEnv)
		}
		return connStr
	}

	connStr, err := startContainer(t)
	if err != nil {
		t.Skipf("PostgreSQL container not available, skipping integration test: %v", err)
	}
	return connStr
}

func reachable(connStr string) bool {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	pool, err := pgxpool.New(ctx, connStr)
	if err != nil {
		return false
	}
	defer pool.Close()

	return pool.Ping(ctx) == nil
}

func startContainer(t *testing.T) (string, error) {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	ctr, err := postgres.Run(ctx,
		PostgisImage,
		postgres.WithUsername("postgres"),
		postgres.WithPassword(randomName()),
		postgres.WithDatabase("postgres"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second),
		),
	)
	if err != nil {
		return "", fmt.Errorf("start postgres: %w", err)
	}
	t.Cleanup(func() {
		if err := ctr.Terminate(context.Background()); err != nil {
			t.Logf("Warning: failed to terminate container: %v", err)
		}
	})

	connStr, err := ctr.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		return "", fmt.Errorf("get connection string: %w", err)
	}
	return connStr, nil
}

func randomName() string {
	b := make([]byte, 8)
	if _, err := rand.Read(b); err != nil {
		panic(err)
	}
	return hex.EncodeToString(b)
}

// CreateTestDB creates a uniquely named database on the server and returns
// its connection string. The database is dropped when the test passes; on
// failure it remains for diagnostic purposes.
func CreateTestDB(t *testing.T, baseConnStr string) string {
	t.Helper()

	dbName := TestDBPrefix + randomName()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	pool, err := pgxpool.New(ctx, baseConnStr)
	if err != nil {
		t.Fatalf("Failed to connect to postgres: %v", err)
	}
	defer pool.Close()

	if _, err := pool.Exec(ctx, fmt.Sprintf("CREATE DATABASE %s", dbName)); err != nil {
		t.Fatalf("Failed to create test database: %v", err)
	}

	t.Cleanup(func() {
		if t.Failed() {
			t.Logf("Test failed - keeping database %s for diagnostics", dbName)
			return
		}
		DropTestDB(t, baseConnStr, dbName)
	})

	config, err := pgxpool.ParseConfig(baseConnStr)
	if err != nil {
		t.Fatalf("Failed to parse connection string: %v", err)
	}

	// ConnString() doesn't reflect changes made to ConnConfig.Database
	cc := config.ConnConfig
	if cc.Password != "" {
		return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=disable",
			cc.User, cc.Password, cc.Host, cc.Port, dbName)
	}
	return fmt.Sprintf("postgres://%s@%s:%d/%s?sslmode=disable",
		cc.User, cc.Host, cc.Port, dbName)
}

// DropTestDB drops the test database.
func DropTestDB(t *testing.T, baseConnStr, dbName string) {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	pool, err := pgxpool.New(ctx, baseConnStr)
	if err != nil {
		t.Logf("Warning: Failed to connect to drop test database: %v", err)
		return
	}
	defer pool.Close()

	// Terminate connections to the database
	_, _ = pool.Exec(ctx, `
        SELECT pg_terminate_backend(pid)
        FROM pg_stat_activity
        WHERE datname = $1 AND pid <> pg_backend_pid()
    `, dbName)

	if _, err := pool.Exec(ctx, fmt.Sprintf("DROP DATABASE IF EXISTS %s", dbName)); err != nil {
		t.Logf("Warning: Failed to drop test database: %v", err)
	}
}

// HasPostGIS reports whether the postgis extension can be installed.
func HasPostGIS(t *testing.T, pool *pgxpool.Pool) bool {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	var available bool
	err := pool.QueryRow(ctx, `
        SELECT EXISTS (
            SELECT 1 FROM pg_available_extensions WHERE name = 'postgis'
        )
    `).Scan(&available)
	if err != nil {
		return false
	}
	return available
}

// SkipIfNoPostGIS skips the test if postgis is not available.
func SkipIfNoPostGIS(t *testing.T, pool *pgxpool.Pool) {
	t.Helper()
	if !HasPostGIS(t, pool) {
		t.Skip("postgis extension not available, skipping test")
	}
}
