// Package store provides the shared ordered container that holds the
// canonical podcast and episode collections. One writer (the controller
// goroutine) mutates a store while the rendering goroutine reads it;
// every mutation is observed atomically, never torn.
package store

import "sync"

// Entity is anything a Store can hold. Clone must return an owned copy
// safe to mutate without affecting the stored value.
type Entity[T any] interface {
	Key() int64
	Clone() T
}

// Store maps identifiers to entities while preserving a canonical
// display order and a derived filtered order. The three parts are
// always mutated together under one lock.
//
// Callbacks passed to Read, Borrow, and the package-level projection
// functions run while the lock is held and must not call back into the
// same store. When nesting stores (podcasts, then a podcast's
// episodes), always acquire outer before inner.
type Store[T Entity[T]] struct {
	mu       sync.RWMutex
	byID     map[int64]T
	order    []int64
	filtered []int64
}

// New creates a store holding items in the given canonical order.
func New[T Entity[T]](items []T) *Store[T] {
	s := &Store[T]{}
	s.InsertOrdered(items)
	return s
}

// InsertOrdered replaces the mapping and canonical order in one atomic
// step, as after a fresh read from storage. The filtered order resets
// to the canonical order; callers maintaining an active filter must
// recompute it with SetFiltered afterwards.
func (s *Store[T]) InsertOrdered(items []T) {
	byID := make(map[int64]T, len(items))
	order := make([]int64, 0, len(items))
	for _, item := range items {
		id := item.Key()
		byID[id] = item
		order = append(order, id)
	}
	filtered := make([]int64, len(order))
	copy(filtered, order)

	s.mu.Lock()
	s.byID = byID
	s.order = order
	s.filtered = filtered
	s.mu.Unlock()
}

// ReplaceAll is InsertOrdered under the name used when refreshing a
// sub-collection from storage.
func (s *Store[T]) ReplaceAll(items []T) {
	s.InsertOrdered(items)
}

// Replace swaps the entity stored under id, leaving both orders
// untouched. It is a silent no-op when id is absent; callers are
// expected to have validated existence already.
func (s *Store[T]) Replace(id int64, item T) {
	s.mu.Lock()
	if _, ok := s.byID[id]; ok {
		s.byID[id] = item
	}
	s.mu.Unlock()
}

// Clone returns an owned copy of the entity under id. The copy can be
// mutated outside the lock and written back with Replace, so no lock is
// held across unrelated work like network or filesystem calls.
func (s *Store[T]) Clone(id int64) (T, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	item, ok := s.byID[id]
	if !ok {
		var zero T
		return zero, false
	}
	return item.Clone(), true
}

// Len returns the number of entities in the mapping.
func (s *Store[T]) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.byID)
}

// Order returns a copy of the canonical order.
func (s *Store[T]) Order() []int64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]int64, len(s.order))
	copy(out, s.order)
	return out
}

// Filtered returns a copy of the filtered order.
func (s *Store[T]) Filtered() []int64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]int64, len(s.filtered))
	copy(out, s.filtered)
	return out
}

// SetFiltered installs a new filtered order. The ids must be a subset
// of the canonical order.
func (s *Store[T]) SetFiltered(ids []int64) {
	s.mu.Lock()
	s.filtered = ids
	s.mu.Unlock()
}

// Read runs fn under the shared lock for composite reads the simple
// helpers cannot express.
func (s *Store[T]) Read(fn func(byID map[int64]T, order []int64, filtered []int64)) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	fn(s.byID, s.order, s.filtered)
}

// Borrow runs fn under the exclusive lock, giving it the mapping, the
// canonical order, and a mutable reference to the filtered order.
func (s *Store[T]) Borrow(fn func(byID map[int64]T, order []int64, filtered *[]int64)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fn(s.byID, s.order, &s.filtered)
}

// Map projects every entity in canonical order (or reversed) through
// fn. Methods cannot introduce type parameters, hence the free
// functions for projections.
func Map[T Entity[T], R any](s *Store[T], fn func(T) R, reverse bool) []R {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]R, 0, len(s.order))
	if reverse {
		for i := len(s.order) - 1; i >= 0; i-- {
			out = append(out, fn(s.byID[s.order[i]]))
		}
		return out
	}
	for _, id := range s.order {
		out = append(out, fn(s.byID[id]))
	}
	return out
}

// MapSingle projects the entity under id through fn.
func MapSingle[T Entity[T], R any](s *Store[T], id int64, fn func(T) R) (R, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	item, ok := s.byID[id]
	if !ok {
		var zero R
		return zero, false
	}
	return fn(item), true
}

// FilterMap projects entities in canonical order, keeping the results
// fn reports as ok.
func FilterMap[T Entity[T], R any](s *Store[T], fn func(T) (R, bool)) []R {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []R
	for _, id := range s.order {
		if r, ok := fn(s.byID[id]); ok {
			out = append(out, r)
		}
	}
	return out
}
