// Package registry holds the read-only catalog of queryable entities.
//
// A Registry is built once at startup and handed to the validator and the
// query builder by value; nothing mutates it afterwards, so concurrent
// readers need no synchronization.
package registry

import (
	"errors"
	"fmt"
	"sort"

	"github.com/kailas-cloud/viewdex/internal/domain"
	"github.com/kailas-cloud/viewdex/internal/domain/registry/column"
)

// Registry maps entity names to their definitions.
type Registry struct {
	entities map[string]Entity
	names    []string
}

// New validates and creates a Registry. Entity names are unique case-insensitively.
func New(entities ...Entity) (*Registry, error) {
	r := &Registry{entities: make(map[string]Entity, len(entities))}
	var errs []error
	for _, e := range entities {
		if err := e.validate(); err != nil {
			errs = append(errs, err)
			continue
		}
		if prev, dup := r.entities[e.Key()]; dup {
			errs = append(errs, fmt.Errorf("duplicate entity %q (conflicts with %q)", e.Name(), prev.Name()))
			continue
		}
		r.entities[e.Key()] = e
		r.names = append(r.names, e.Name())
	}
	if len(errs) > 0 {
		return nil, fmt.Errorf("invalid registry: %w", errors.Join(errs...))
	}
	sort.Strings(r.names)
	return r, nil
}

// MustNew calls New and panics on error.
func MustNew(entities ...Entity) *Registry {
	r, err := New(entities...)
	if err != nil {
		panic(err)
	}
	return r
}

// LookupEntity returns the entity with the given name (case-insensitive).
func (r *Registry) LookupEntity(name string) (Entity, error) {
	e, ok := r.entities[column.Key(name)]
	if !ok {
		return Entity{}, &domain.ViolationError{Kind: domain.ErrEntityNotFound, Entity: name}
	}
	return e, nil
}

// LookupColumn returns the named column of the named entity.
func (r *Registry) LookupColumn(entity, name string) (column.Column, error) {
	e, err := r.LookupEntity(entity)
	if err != nil {
		return column.Column{}, err
	}
	c, ok := e.Column(name)
	if !ok {
		return column.Column{}, domain.NewColumnViolation(domain.ErrColumnNotFound, e.Name(), name, "")
	}
	return c, nil
}

// Entities returns all entities sorted by name.
func (r *Registry) Entities() []Entity {
	out := make([]Entity, 0, len(r.names))
	for _, n := range r.names {
		out = append(out, r.entities[column.Key(n)])
	}
	return out
}

// Len returns the number of entities.
func (r *Registry) Len() int { return len(r.entities) }
