// Package snapshot keeps short-lived read copies of store collections.
package snapshot

import (
	"sync"
	"time"
)

// MergeByID returns list with saved replacing the element of the same id in
// place, or appended when no element matches. The input slice is not modified.
func MergeByID[T any](list []T, saved T, idOf func(T) string) []T {
	id := idOf(saved)
	out := make([]T, len(list), len(list)+1)
	copy(out, list)
	for i := range out {
		if idOf(out[i]) == id {
			out[i] = saved
			return out
		}
	}
	return append(out, saved)
}

// RemoveByID returns list without the element of the given id.
func RemoveByID[T any](list []T, id string, idOf func(T) string) []T {
	out := make([]T, 0, len(list))
	for _, item := range list {
		if idOf(item) != id {
			out = append(out, item)
		}
	}
	return out
}

// List caches a collection for ttl after each full load. Writers call Upsert
// or Remove only after the store accepted the change.
type List[T any] struct {
	mu       sync.RWMutex
	items    []T
	loadedAt time.Time
	ttl      time.Duration
	idOf     func(T) string
	now      func() time.Time
}

func New[T any](ttl time.Duration, idOf func(T) string) *List[T] {
	return &List[T]{ttl: ttl, idOf: idOf, now: time.Now}
}

// Get returns a copy of the cached items and whether they are still fresh.
func (l *List[T]) Get() ([]T, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if l.ttl <= 0 || l.loadedAt.IsZero() || l.now().Sub(l.loadedAt) > l.ttl {
		return nil, false
	}
	out := make([]T, len(l.items))
	copy(out, l.items)
	return out, true
}

func (l *List[T]) Replace(items []T) {
	cp := make([]T, len(items))
	copy(cp, items)
	l.mu.Lock()
	l.items = cp
	l.loadedAt = l.now()
	l.mu.Unlock()
}

func (l *List[T]) Upsert(saved T) {
	l.mu.Lock()
	l.items = MergeByID(l.items, saved, l.idOf)
	l.mu.Unlock()
}

func (l *List[T]) Remove(id string) {
	l.mu.Lock()
	l.items = RemoveByID(l.items, id, l.idOf)
	l.mu.Unlock()
}

func (l *List[T]) Invalidate() {
	l.mu.Lock()
	l.items = nil
	l.loadedAt = time.Time{}
	l.mu.Unlock()
}
