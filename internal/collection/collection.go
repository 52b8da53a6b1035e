// Package collection provides a keyed entity store with pluggable identity.
//
// The same container serves log files (keyed by absolute path) and watchers
// (keyed by session id). Identity is supplied by a Comparer rather than by
// reference equality, so callers may remove an entity using an equivalent
// value instead of the original pointer.
package collection

import (
	"errors"
	"fmt"
	"sync"
)

// ErrNotFound is matched by every NotFoundError via errors.Is.
var ErrNotFound = errors.New("entity not found")

// ErrDuplicate is returned by Add when an entity with the same id is already stored.
var ErrDuplicate = errors.New("entity already present")

// NotFoundError reports a lookup or removal miss.
type NotFoundError struct {
	ID string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("entity %q not found", e.ID)
}

func (e *NotFoundError) Is(target error) bool {
	return target == ErrNotFound
}

// Comparer supplies equality and id matching for entities of type T.
type Comparer[T any] interface {
	Equal(a, b T) bool
	HasID(entity T, id string) bool
	ID(entity T) string
}

// Collection is an insertion-ordered set of entities, unique by id.
// It is safe for concurrent use.
type Collection[T any] struct {
	mu       sync.RWMutex
	comparer Comparer[T]
	items    []T
}

// New creates an empty collection using cmp for identity.
func New[T any](cmp Comparer[T]) *Collection[T] {
	return &Collection[T]{comparer: cmp}
}

// FindByID returns the entity with the given id.
func (c *Collection[T]) FindByID(id string) (T, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	for _, item := range c.items {
		if c.comparer.HasID(item, id) {
			return item, nil
		}
	}
	var zero T
	return zero, &NotFoundError{ID: id}
}

// Contains reports whether an entity with the given id is stored.
func (c *Collection[T]) Contains(id string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.indexOfID(id) >= 0
}

// Add appends entity. It fails with ErrDuplicate if its id is already present.
func (c *Collection[T]) Add(entity T) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	id := c.comparer.ID(entity)
	if c.indexOfID(id) >= 0 {
		return fmt.Errorf("add %q: %w", id, ErrDuplicate)
	}
	c.items = append(c.items, entity)
	return nil
}

// AddIfAbsent returns the stored entity for id, or stores and returns the one
// produced by create. The check and the insert happen under one lock.
func (c *Collection[T]) AddIfAbsent(id string, create func() (T, error)) (T, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if idx := c.indexOfID(id); idx >= 0 {
		return c.items[idx], false, nil
	}
	entity, err := create()
	if err != nil {
		var zero T
		return zero, false, err
	}
	c.items = append(c.items, entity)
	return entity, true, nil
}

// Remove deletes the stored entity equal to entity.
func (c *Collection[T]) Remove(entity T) error {
	return c.RemoveIf(entity, nil)
}

// RemoveIf deletes the stored entity equal to entity when keep is nil or
// returns false for it. It returns a NotFoundError when no equal entity is
// stored; a refusal by keep is not an error and leaves the entity in place.
func (c *Collection[T]) RemoveIf(entity T, keep func(T) bool) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	for i, item := range c.items {
		if !c.comparer.Equal(item, entity) {
			continue
		}
		if keep != nil && keep(item) {
			return nil
		}
		c.items = append(c.items[:i], c.items[i+1:]...)
		return nil
	}
	return &NotFoundError{ID: c.comparer.ID(entity)}
}

// FindAll returns a snapshot of all entities in insertion order.
func (c *Collection[T]) FindAll() []T {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make([]T, len(c.items))
	copy(out, c.items)
	return out
}

// Len returns the number of stored entities.
func (c *Collection[T]) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.items)
}

// indexOfID must be called with the lock held.
func (c *Collection[T]) indexOfID(id string) int {
	for i, item := range c.items {
		if c.comparer.HasID(item, id) {
			return i
		}
	}
	return -1
}
