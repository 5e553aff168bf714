package datagen_test

import (
	"context"
	"encoding/csv"
	"os"
	"path/filepath"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pgEdge/pgedge-ecomload/internal/datagen"
	"github.com/pgEdge/pgedge-ecomload/internal/db"
	"github.com/pgEdge/pgedge-ecomload/internal/loader"
	"github.com/pgEdge/pgedge-ecomload/internal/tables"
)

var anchor = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

func generate(t *testing.T, dir string, seed uint64) *datagen.Summary {
	t.Helper()
	g, err := datagen.NewGenerator(datagen.Config{
		OutDir:   dir,
		Users:    25,
		Products: 10,
		Seed:     seed,
		Now:      anchor,
	})
	require.NoError(t, err)

	summary, err := g.Generate(context.Background())
	require.NoError(t, err)
	return summary
}

func readCSV(t *testing.T, path string) []map[string]string {
	t.Helper()
	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	records, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	require.NotEmpty(t, records)

	var rows []map[string]string
	for _, rec := range records[1:] {
		row := make(map[string]string, len(rec))
		for i, h := range records[0] {
			row[h] = rec[i]
		}
		rows = append(rows, row)
	}
	return rows
}

func TestNewGeneratorValidates(t *testing.T) {
	_, err := datagen.NewGenerator(datagen.Config{OutDir: t.TempDir(), Users: 0, Products: 1})
	assert.Error(t, err)
	_, err = datagen.NewGenerator(datagen.Config{OutDir: t.TempDir(), Users: 1, Products: 0})
	assert.Error(t, err)
}

func TestGenerateWritesEveryTable(t *testing.T) {
	dir := t.TempDir()
	summary := generate(t, dir, 42)

	for _, c := range tables.All() {
		path, ok := summary.Files[c.Table]
		require.True(t, ok, "no file for %s", c.Table)
		assert.Equal(t, filepath.Join(dir, c.File), path)
		assert.FileExists(t, path)
	}
	assert.Equal(t, 25, summary.Rows["user"])
	assert.Equal(t, 25, summary.Rows["address"])
	assert.Equal(t, 10, summary.Rows["product"])
	assert.Equal(t, summary.Rows["orders"], summary.Rows["transactions"])
	assert.Equal(t, summary.Rows["transactions"], summary.Rows["invoices"])
}

func TestGenerateIsReproducible(t *testing.T) {
	a, b := t.TempDir(), t.TempDir()
	generate(t, a, 99)
	generate(t, b, 99)

	for _, c := range tables.All() {
		left, err := os.ReadFile(filepath.Join(a, c.File))
		require.NoError(t, err)
		right, err := os.ReadFile(filepath.Join(b, c.File))
		require.NoError(t, err)
		assert.Equal(t, string(left), string(right), c.File)
	}
}

func TestGenerateOrderTotals(t *testing.T) {
	dir := t.TempDir()
	generate(t, dir, 7)

	sums := map[string]float64{}
	for _, item := range readCSV(t, filepath.Join(dir, tables.OrderItems.File)) {
		price, err := strconv.ParseFloat(item["price"], 64)
		require.NoError(t, err)
		sums[item["order_id"]] += price
	}

	orders := readCSV(t, filepath.Join(dir, tables.Orders.File))
	require.NotEmpty(t, orders)
	for _, o := range orders {
		total, err := strconv.ParseFloat(o["total_amount"], 64)
		require.NoError(t, err)
		assert.InDelta(t, sums[o["order_id"]], total, 0.005, "order %s", o["order_id"])
		assert.Contains(t, tables.Statuses, o["status"])
	}

	for _, c := range readCSV(t, filepath.Join(dir, tables.Card.File)) {
		assert.True(t, datagen.LuhnValid(c["card_number"]), c["card_number"])
	}
}

func TestGeneratedFilesLoadCleanly(t *testing.T) {
	dir := t.TempDir()
	summary := generate(t, dir, 2024)
	ctx := context.Background()

	conn, err := db.ConnectSQLite(ctx, filepath.Join(t.TempDir(), "ecommerce.db"))
	require.NoError(t, err)
	defer conn.Close()
	require.NoError(t, db.CreateSchema(ctx, conn, tables.All()))

	for _, c := range tables.All() {
		report, err := loader.Load(ctx, loader.RunConfig{
			Store:        conn,
			Contract:     c,
			Source:       loader.NewSource(c.Source, summary.Files[c.Table], c.Fields()),
			CacheLookups: true,
		})
		require.NoError(t, err, c.Table)
		assert.Equal(t, summary.Rows[c.Table], report.Inserted, "%s: %v", c.Table, report.Failures)
		assert.Zero(t, report.Skipped+report.Failed, "%s: %v", c.Table, report.Failures)
	}

	updated, err := db.RecomputeOrderTotals(ctx, conn)
	require.NoError(t, err)
	assert.Equal(t, int64(summary.Rows["orders"]), updated)
}
