//-------------------------------------------------------------------------
//
// pgEdge E-commerce Loader
//
// Portions copyright (c) 2025 - 2026, pgEdge, Inc.
// This software is released under The PostgreSQL License
//
//-------------------------------------------------------------------------

// Package tables declares the table contract of every e-commerce entity.
package tables

import (
	"fmt"
	"slices"
	"strings"
	"sync"

	"github.com/pgEdge/pgedge-ecomload/internal/loader"
)

var (
	registry = make(map[string]*loader.TableContract)
	mu       sync.RWMutex
)

// Register adds a table contract to the registry. It panics if the
// contract is invalid.
func Register(c *loader.TableContract) {
	if err := c.Validate(); err != nil {
		panic(fmt.Sprintf("tables: %v", err))
	}

	mu.Lock()
	defer mu.Unlock()
	registry[c.Table] = c
}

// Get retrieves a table contract by name.
func Get(name string) (*loader.TableContract, error) {
	mu.RLock()
	defer mu.RUnlock()

	c, ok := registry[name]
	if !ok {
		return nil, fmt.Errorf("unknown table: %s", name)
	}
	return c, nil
}

// List returns all registered table names, sorted.
func List() []string {
	mu.RLock()
	defer mu.RUnlock()

	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// All returns all registered contracts in dependency order.
func All() []*loader.TableContract {
	ordered, err := Order(List())
	if err != nil {
		// Registered contracts are validated and the set is closed.
		panic(fmt.Sprintf("tables: %v", err))
	}
	return ordered
}

// Order returns the named contracts so that every table comes after the
// tables its foreign keys reference. Tables at the same depth are sorted
// by name. Dependencies outside names are not added.
func Order(names []string) ([]*loader.TableContract, error) {
	selected := make(map[string]*loader.TableContract, len(names))
	for _, name := range names {
		c, err := Get(name)
		if err != nil {
			return nil, err
		}
		selected[name] = c
	}

	depth := make(map[string]int, len(selected))
	visiting := make(map[string]bool)

	var visit func(name string) (int, error)
	visit = func(name string) (int, error) {
		if d, ok := depth[name]; ok {
			return d, nil
		}
		if visiting[name] {
			return 0, fmt.Errorf("dependency cycle at table %s", name)
		}
		visiting[name] = true
		defer delete(visiting, name)

		c, err := Get(name)
		if err != nil {
			return 0, err
		}
		d := 0
		for _, dep := range c.Dependencies() {
			dd, err := visit(dep)
			if err != nil {
				return 0, err
			}
			d = max(d, dd+1)
		}
		depth[name] = d
		return d, nil
	}

	ordered := make([]*loader.TableContract, 0, len(selected))
	for name, c := range selected {
		if _, err := visit(name); err != nil {
			return nil, err
		}
		ordered = append(ordered, c)
	}

	slices.SortFunc(ordered, func(a, b *loader.TableContract) int {
		if da, db := depth[a.Table], depth[b.Table]; da != db {
			return da - db
		}
		return strings.Compare(a.Table, b.Table)
	})
	return ordered, nil
}

// WithDependencies returns the named contracts plus every table they
// reference, directly or transitively, in dependency order.
func WithDependencies(names []string) ([]*loader.TableContract, error) {
	seen := make(map[string]bool)
	var closure []string

	var walk func(name string) error
	walk = func(name string) error {
		if seen[name] {
			return nil
		}
		seen[name] = true
		c, err := Get(name)
		if err != nil {
			return err
		}
		closure = append(closure, name)
		for _, dep := range c.Dependencies() {
			if err := walk(dep); err != nil {
				return err
			}
		}
		return nil
	}

	for _, name := range names {
		if err := walk(name); err != nil {
			return nil, err
		}
	}
	return Order(closure)
}
