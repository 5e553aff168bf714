//-------------------------------------------------------------------------
//
// pgEdge E-commerce Loader
//
// Portions copyright (c) 2025 - 2026, pgEdge, Inc.
// This software is released under The PostgreSQL License
//
//-------------------------------------------------------------------------

package loader

import (
	"context"
	"errors"
	"fmt"
)

// Resolver maps a natural key to the surrogate key of a dependency row.
// A miss is reported as ErrForeignKeyNotFound.
type Resolver interface {
	Resolve(ctx context.Context, key string) (string, error)
}

// ResolverFunc adapts a function to the Resolver interface.
type ResolverFunc func(ctx context.Context, key string) (string, error)

// Resolve calls f.
func (f ResolverFunc) Resolve(ctx context.Context, key string) (string, error) {
	return f(ctx, key)
}

// Querier runs single-value point lookups. ok is false when no row matched.
type Querier interface {
	LookupValue(ctx context.Context, query string, key string) (value any, ok bool, err error)
}

// LookupResolver resolves keys with one point query per call.
type LookupResolver struct {
	q     Querier
	fk    ForeignKey
	query string
}

// NewLookupResolver creates a resolver for fk that queries through q.
func NewLookupResolver(q Querier, d Dialect, fk ForeignKey) *LookupResolver {
	return &LookupResolver{
		q:  q,
		fk: fk,
		query: fmt.Sprintf("SELECT %s FROM %s WHERE %s = %s",
			d.QuoteIdent(fk.TargetColumn),
			d.QuoteIdent(fk.Table),
			d.QuoteIdent(fk.MatchColumn),
			d.Placeholder(1),
		),
	}
}

// Query returns the lookup statement.
func (r *LookupResolver) Query() string { return r.query }

// Resolve looks up key in the dependency table.
func (r *LookupResolver) Resolve(ctx context.Context, key string) (string, error) {
	v, ok, err := r.q.LookupValue(ctx, r.query, key)
	if err != nil {
		return "", fmt.Errorf("failed to look up %s.%s: %w", r.fk.Table, r.fk.MatchColumn, err)
	}
	if !ok || v == nil {
		return "", ErrForeignKeyNotFound
	}
	s, err := toText(v)
	if err != nil {
		return "", fmt.Errorf("failed to read %s.%s: %w", r.fk.Table, r.fk.TargetColumn, err)
	}
	return s, nil
}

// CachingResolver memoizes hits and misses of another resolver for the
// lifetime of one run. It is not safe for concurrent use.
type CachingResolver struct {
	next   Resolver
	hits   map[string]string
	misses map[string]struct{}

	lookups int
}

// NewCachingResolver wraps next.
func NewCachingResolver(next Resolver) *CachingResolver {
	return &CachingResolver{
		next:   next,
		hits:   make(map[string]string),
		misses: make(map[string]struct{}),
	}
}

// Resolve returns the cached result for key, asking next on first use.
// Lookup errors other than a miss are not cached.
func (r *CachingResolver) Resolve(ctx context.Context, key string) (string, error) {
	if v, ok := r.hits[key]; ok {
		return v, nil
	}
	if _, ok := r.misses[key]; ok {
		return "", ErrForeignKeyNotFound
	}

	r.lookups++
	v, err := r.next.Resolve(ctx, key)
	switch {
	case err == nil:
		r.hits[key] = v
	case errors.Is(err, ErrForeignKeyNotFound):
		r.misses[key] = struct{}{}
	}
	return v, err
}

// Lookups returns how many keys were passed through to the wrapped resolver.
func (r *CachingResolver) Lookups() int { return r.lookups }
