package loader_test

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pgEdge/pgedge-ecomload/internal/db"
	"github.com/pgEdge/pgedge-ecomload/internal/loader"
	"github.com/pgEdge/pgedge-ecomload/internal/tables"
)

const addressHeader = "address_id,address_uuid,primary_address,secondary_address,district,city_id,postal_code,phone,location,last_update\n"

func openStore(t *testing.T) db.Conn {
	t.Helper()
	ctx := context.Background()

	conn, err := db.ConnectSQLite(ctx, filepath.Join(t.TempDir(), "ecommerce.db"))
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })

	require.NoError(t, db.CreateSchema(ctx, conn, tables.All()))
	return conn
}

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func addressRow(i int) string {
	return fmt.Sprintf("A-%d,uuid-%d,%d Main Street,,Central,C-1,1000%d,555-%04d,POINT(%d 1),2024-01-01 10:00:00\n", i, i, i, i%10, i, i)
}

func countRows(t *testing.T, conn db.Conn, table string) int {
	t.Helper()
	var n int
	err := conn.Query(context.Background(),
		"SELECT COUNT(*) FROM "+conn.SQLDialect().QuoteIdent(table), nil,
		func(scan func(dest ...any) error) error { return scan(&n) })
	require.NoError(t, err)
	return n
}

func load(t *testing.T, conn db.Conn, contract *loader.TableContract, path string) *loader.InsertReport {
	t.Helper()
	report, err := loader.Load(context.Background(), loader.RunConfig{
		Store:        conn,
		Contract:     contract,
		Source:       loader.NewSource(contract.Source, path, contract.Fields()),
		CacheLookups: true,
	})
	require.NoError(t, err)
	return report
}

func assertBalanced(t *testing.T, r *loader.InsertReport) {
	t.Helper()
	assert.Equal(t, r.Attempted, r.Inserted+r.Skipped+r.Failed, "report counts must balance")
	assert.Len(t, r.Failures, r.Skipped+r.Failed)
}

func TestRunDuplicateKeyFailsOneRowAndCommits(t *testing.T) {
	conn := openStore(t)

	var b strings.Builder
	b.WriteString(addressHeader)
	for i := 1; i <= 1000; i++ {
		b.WriteString(addressRow(i))
	}

	// Row 500 is already in the store.
	first := load(t, conn, tables.Address, writeFile(t, "existing.csv", addressHeader+addressRow(500)))
	require.Equal(t, 1, first.Inserted)

	report := load(t, conn, tables.Address, writeFile(t, "address_data.csv", b.String()))

	assert.Equal(t, 1000, report.Attempted)
	assert.Equal(t, 999, report.Inserted)
	assert.Equal(t, 0, report.Skipped)
	assert.Equal(t, 1, report.Failed)
	assertBalanced(t, report)

	require.Len(t, report.Failures, 1)
	assert.Equal(t, 500, report.Failures[0].Row)
	assert.Equal(t, 501, report.Failures[0].Line)
	assert.Equal(t, loader.FailureInsert, report.Failures[0].Kind)
	assert.Contains(t, report.Failures[0].Reason, loader.ErrConstraintViolation.Error())

	assert.Equal(t, 1000, countRows(t, conn, "address"))
}

func TestRunPartialFailureIsolation(t *testing.T) {
	conn := openStore(t)

	content := addressHeader +
		addressRow(1) +
		"A-2,,2 Main Street,,,C-1,,,,2024-01-01\n" + // no surrogate key
		addressRow(3) +
		"A-4,uuid-4,4 Main Street\n" + // wrong field count
		addressRow(5) +
		"A-6,uuid-6,,,,C-1,,,,2024-01-01\n" + // no primary address
		"A-7,uuid-7,7 Main Street,,,C-1,,,LINESTRING(0 0),not-a-date\n" + // nulled and defaulted, still loads
		addressRow(8)

	report := load(t, conn, tables.Address, writeFile(t, "address_data.csv", content))

	assert.Equal(t, 8, report.Attempted)
	assert.Equal(t, 5, report.Inserted)
	assert.Equal(t, 3, report.Skipped)
	assert.Equal(t, 0, report.Failed)
	assertBalanced(t, report)

	var rows []int
	for _, f := range report.Failures {
		assert.Equal(t, loader.FailureSkip, f.Kind)
		rows = append(rows, f.Row)
	}
	assert.Equal(t, []int{2, 4, 6}, rows)
	assert.Equal(t, 5, countRows(t, conn, "address"))

	var location any
	err := conn.Query(context.Background(),
		`SELECT "location" FROM "address" WHERE "address_id" = ?`, []any{"uuid-7"},
		func(scan func(dest ...any) error) error { return scan(&location) })
	require.NoError(t, err)
	assert.Nil(t, location)
}

func TestRunResolvesAddressForUsers(t *testing.T) {
	conn := openStore(t)
	load(t, conn, tables.Address, writeFile(t, "address_data.csv", addressHeader+addressRow(1)+addressRow(2)))

	users := "user_id,first_name,last_name,username,email,address_id,created_at,last_update\n" +
		"u-1,Ada,Lovelace,ada,ada@example.com,A-1,2024-01-01,2024-01-02\n" +
		"u-2,Alan,Turing,alan,alan@example.com,A-404,2024-01-01,2024-01-02\n" +
		"u-3,Grace,Hopper,grace,grace@example.com,,2024-01-01,2024-01-02\n"
	report := load(t, conn, tables.User, writeFile(t, "user_data.csv", users))

	assert.Equal(t, 3, report.Inserted)
	assertBalanced(t, report)

	got := map[string]any{}
	err := conn.Query(context.Background(),
		`SELECT "user_id", "address_id" FROM "user" ORDER BY "user_id"`, nil,
		func(scan func(dest ...any) error) error {
			var id string
			var addr any
			if err := scan(&id, &addr); err != nil {
				return err
			}
			got[id] = addr
			return nil
		})
	require.NoError(t, err)

	assert.Equal(t, "uuid-1", fmt.Sprint(got["u-1"]))
	assert.Nil(t, got["u-2"])
	assert.Nil(t, got["u-3"])
}

func TestRunBeforeDependencyIsLoaded(t *testing.T) {
	conn := openStore(t)

	carts := "cart_id,user_id,product_id,quantity,created_at\n" +
		"c-1,u-1,p-1,2,2024-01-01\n" +
		"c-2,u-2,p-1,1,2024-01-01\n"
	report := load(t, conn, tables.Cart, writeFile(t, "cart_data.csv", carts))

	assert.Equal(t, 2, report.Attempted)
	assert.Equal(t, 0, report.Inserted)
	assert.Equal(t, 2, report.Skipped)
	assert.Equal(t, 0, report.Failed, "missing dependencies never reach the store")
	for _, f := range report.Failures {
		assert.Equal(t, "user_id", f.Column)
	}

	users := "user_id,first_name,last_name,username,email,address_id,created_at,last_update\n" +
		"u-1,Ada,Lovelace,ada,ada@example.com,A-1,2024-01-01,2024-01-02\n"
	report = load(t, conn, tables.User, writeFile(t, "user_data.csv", users))
	assert.Equal(t, 1, report.Inserted, "optional address is nulled before addresses exist")
}

func TestRunLoadsProductDocument(t *testing.T) {
	conn := openStore(t)

	doc := `[
  {"uniq_id": "p-1", "crawl_timestamp": "2016-03-25 22:59:23 +0000", "product_name": "Shorts",
   "retail_price": "999", "discounted_price": "379", "image": "[\"http://img/1.jpeg\"]",
   "is_FK_Advantage_product": "FALSE", "product_rating": "No rating available"},
  {"uniq_id": "p-2", "crawl_timestamp": "2016-03-25 22:59:23 +0000", "product_name": "Sofa",
   "is_FK_Advantage_product": "TRUE"},
  {"uniq_id": "p-3", "crawl_timestamp": "2016-03-25 22:59:23 +0000", "image": "[broken"}
]`
	report := load(t, conn, tables.Product, writeFile(t, "product_data.json", doc))

	assert.Equal(t, 3, report.Attempted)
	assert.Equal(t, 2, report.Inserted)
	assert.Equal(t, 1, report.Skipped)
	assertBalanced(t, report)

	var image, unit string
	var price float64
	err := conn.Query(context.Background(),
		`SELECT "image_urls", "retail_price", "quantity_unit" FROM "product" WHERE "product_id" = ?`, []any{"p-2"},
		func(scan func(dest ...any) error) error { return scan(&image, &price, &unit) })
	require.NoError(t, err)
	assert.Equal(t, "[]", image)
	assert.Equal(t, 0.0, price)
	assert.Equal(t, "pcs", unit)
}

func TestRunStates(t *testing.T) {
	conn := openStore(t)
	path := writeFile(t, "address_data.csv", addressHeader+addressRow(1))

	run, err := loader.NewRun(loader.RunConfig{
		Store:    conn,
		Contract: tables.Address,
		Source:   loader.NewCSVSource(path, tables.Address.Fields()),
	})
	require.NoError(t, err)
	assert.Equal(t, loader.StateNotStarted, run.State())

	report, err := run.Execute(context.Background())
	require.NoError(t, err)
	assert.Equal(t, loader.StateClosed, run.State())
	assert.Equal(t, run.ID(), report.RunID)
	assert.Equal(t, path, report.Source)
	assert.False(t, report.FinishedAt.Before(report.StartedAt))

	_, err = run.Execute(context.Background())
	assert.Error(t, err, "a run executes once")
}

func TestRunMissingSourceFails(t *testing.T) {
	conn := openStore(t)

	run, err := loader.NewRun(loader.RunConfig{
		Store:    conn,
		Contract: tables.Address,
		Source:   loader.NewCSVSource(filepath.Join(t.TempDir(), "absent.csv"), tables.Address.Fields()),
	})
	require.NoError(t, err)

	_, err = run.Execute(context.Background())
	var readErr *loader.SourceReadError
	require.ErrorAs(t, err, &readErr)
	assert.Equal(t, loader.StateFailed, run.State())
}

func TestRunConnectFailure(t *testing.T) {
	path := writeFile(t, "address_data.csv", addressHeader+addressRow(1))

	run, err := loader.NewRun(loader.RunConfig{
		Connect: func(ctx context.Context) (loader.Store, error) {
			return nil, errors.New("connection refused")
		},
		Contract: tables.Address,
		Source:   loader.NewCSVSource(path, tables.Address.Fields()),
	})
	require.NoError(t, err)

	_, err = run.Execute(context.Background())
	var connErr *loader.ConnectionError
	require.ErrorAs(t, err, &connErr)
	assert.Equal(t, loader.StateFailed, run.State())
}

func TestRunClosesStoreItOpens(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "ecommerce.db")
	setup, err := db.ConnectSQLite(context.Background(), dbPath)
	require.NoError(t, err)
	require.NoError(t, db.CreateSchema(context.Background(), setup, tables.All()))
	require.NoError(t, setup.Close())

	var opened *db.SQLStore
	report, err := loader.Load(context.Background(), loader.RunConfig{
		Connect: func(ctx context.Context) (loader.Store, error) {
			opened, err = db.ConnectSQLite(ctx, dbPath)
			return opened, err
		},
		Contract: tables.Address,
		Source:   loader.NewCSVSource(writeFile(t, "address_data.csv", addressHeader+addressRow(1)), tables.Address.Fields()),
	})
	require.NoError(t, err)
	assert.Equal(t, 1, report.Inserted)
	assert.Error(t, opened.DB().Ping(), "store should be closed after the run")
}

func TestRunCancelledRollsBack(t *testing.T) {
	conn := openStore(t)
	ctx, cancel := context.WithCancel(context.Background())

	var b strings.Builder
	b.WriteString(addressHeader)
	for i := 1; i <= 10; i++ {
		b.WriteString(addressRow(i))
	}

	calls := 0
	_, err := loader.Load(ctx, loader.RunConfig{
		Store:    conn,
		Contract: tables.Address,
		Source:   loader.NewCSVSource(writeFile(t, "address_data.csv", b.String()), tables.Address.Fields()),
		Clock: func() time.Time {
			calls++
			if calls == 5 {
				cancel()
			}
			return time.Now()
		},
	})
	require.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 0, countRows(t, conn, "address"))
}

func TestInsertAll(t *testing.T) {
	conn := openStore(t)

	path := writeFile(t, "address_data.csv", addressHeader+addressRow(1)+addressRow(2)+addressRow(1))
	src := loader.NewCSVSource(path, tables.Address.Fields())
	it, err := src.Open()
	require.NoError(t, err)
	defer it.Close()

	tr, err := loader.NewTransformer(tables.Address, nil)
	require.NoError(t, err)

	var records []loader.CleanRecord
	for {
		raw, err := it.Next()
		if err != nil {
			break
		}
		rec, err := tr.Transform(context.Background(), raw)
		require.NoError(t, err)
		records = append(records, rec)
	}

	report, err := loader.InsertAll(context.Background(), conn, tables.Address, records)
	require.NoError(t, err)
	assert.Equal(t, 3, report.Attempted)
	assert.Equal(t, 2, report.Inserted)
	assert.Equal(t, 1, report.Failed)
	assert.Equal(t, 3, report.Failures[0].Row)
	assertBalanced(t, report)
	assert.Equal(t, 2, countRows(t, conn, "address"))
}

func TestRunLogsProgressAndSkips(t *testing.T) {
	conn := openStore(t)

	var b strings.Builder
	b.WriteString(addressHeader)
	for i := 1; i <= 5; i++ {
		b.WriteString(addressRow(i))
	}
	b.WriteString("A-6,uuid-6,6 Main Street,,,C-1,,,,2024-01-01 10:00:00\n")
	path := writeFile(t, "address_data.csv", b.String())

	var buf bytes.Buffer
	log := zerolog.New(&buf)
	report, err := loader.Load(context.Background(), loader.RunConfig{
		Store:            conn,
		Contract:         tables.Address,
		Source:           loader.NewCSVSource(path, tables.Address.Fields()),
		Logger:           &log,
		ProgressInterval: 2,
	})
	require.NoError(t, err)
	assert.Equal(t, 6, report.Inserted)

	out := buf.String()
	assert.Equal(t, 3, strings.Count(out, `"message":"Loading data"`))
	assert.Contains(t, out, `"run_id":"`+report.RunID+`"`)
	assert.Contains(t, out, `"message":"Load committed"`)
}
