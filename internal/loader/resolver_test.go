package loader

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testDialect struct{}

func (testDialect) Name() string                  { return "test" }
func (testDialect) Placeholder(int) string        { return "?" }
func (testDialect) QuoteIdent(name string) string { return `"` + name + `"` }
func (testDialect) GeometryExpr(p string) string  { return "GEOM(" + p + ")" }

type mapQuerier struct {
	rows    map[string]any
	queries []string
	err     error
}

func (q *mapQuerier) LookupValue(_ context.Context, query string, key string) (any, bool, error) {
	q.queries = append(q.queries, query)
	if q.err != nil {
		return nil, false, q.err
	}
	v, ok := q.rows[key]
	return v, ok, nil
}

func TestLookupResolver(t *testing.T) {
	q := &mapQuerier{rows: map[string]any{"A-1": "uuid-1", "A-2": []byte("uuid-2")}}
	r := NewLookupResolver(q, testDialect{}, ForeignKey{Table: "address", MatchColumn: "address_ref", TargetColumn: "address_id"})

	assert.Equal(t, `SELECT "address_id" FROM "address" WHERE "address_ref" = ?`, r.Query())

	v, err := r.Resolve(context.Background(), "A-1")
	require.NoError(t, err)
	assert.Equal(t, "uuid-1", v)

	v, err = r.Resolve(context.Background(), "A-2")
	require.NoError(t, err)
	assert.Equal(t, "uuid-2", v)

	_, err = r.Resolve(context.Background(), "A-404")
	assert.ErrorIs(t, err, ErrForeignKeyNotFound)

	q.err = errors.New("connection reset")
	_, err = r.Resolve(context.Background(), "A-1")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrForeignKeyNotFound)
}

func TestCachingResolver(t *testing.T) {
	calls := map[string]int{}
	next := ResolverFunc(func(_ context.Context, key string) (string, error) {
		calls[key]++
		switch key {
		case "hit":
			return "surrogate", nil
		case "flaky":
			return "", errors.New("timeout")
		default:
			return "", ErrForeignKeyNotFound
		}
	})
	r := NewCachingResolver(next)
	ctx := context.Background()

	for range 3 {
		v, err := r.Resolve(ctx, "hit")
		require.NoError(t, err)
		assert.Equal(t, "surrogate", v)

		_, err = r.Resolve(ctx, "miss")
		assert.ErrorIs(t, err, ErrForeignKeyNotFound)

		_, err = r.Resolve(ctx, "flaky")
		assert.Error(t, err)
	}

	assert.Equal(t, 1, calls["hit"])
	assert.Equal(t, 1, calls["miss"])
	assert.Equal(t, 3, calls["flaky"], "lookup errors are not cached")
	assert.Equal(t, 5, r.Lookups())
}
