package registry

import (
	"fmt"
	"sync"
)

// Key is the constraint for registry keys. The string form is used in error
// messages and logs.
type Key interface {
	comparable
	String() string
}

// DuplicateError is returned when a key is registered more than once.
type DuplicateError struct {
	Key string
}

func (e *DuplicateError) Error() string {
	return fmt.Sprintf("'%s' is already registered", e.Key)
}

// UnknownError is returned when a key has not been registered.
type UnknownError struct {
	Key string
}

func (e *UnknownError) Error() string {
	return fmt.Sprintf("'%s' is not registered", e.Key)
}

// Registry holds values keyed by K, in registration order. All operations
// are concurrency-safe.
type Registry[K Key, V any] struct {
	mu      sync.RWMutex
	entries map[K]V
	order   []K
}

// New creates and initializes a new, empty Registry.
func New[K Key, V any]() *Registry[K, V] {
	return &Registry[K, V]{
		entries: make(map[K]V),
	}
}

// Register stores value under key. It returns a *DuplicateError if the key
// already exists; the existing value is left untouched.
func (r *Registry[K, V]) Register(key K, value V) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.entries[key]; exists {
		return &DuplicateError{Key: key.String()}
	}
	r.entries[key] = value
	r.order = append(r.order, key)
	return nil
}

// Lookup returns the value stored under key, or an *UnknownError.
func (r *Registry[K, V]) Lookup(key K) (V, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	value, ok := r.entries[key]
	if !ok {
		var zero V
		return zero, &UnknownError{Key: key.String()}
	}
	return value, nil
}

// Contains reports whether key has been registered.
func (r *Registry[K, V]) Contains(key K) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.entries[key]
	return ok
}

// Index returns the registration index of key, or -1 if it is unknown.
func (r *Registry[K, V]) Index(key K) int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for i, k := range r.order {
		if k == key {
			return i
		}
	}
	return -1
}

// Keys returns a copy of all keys in registration order.
func (r *Registry[K, V]) Keys() []K {
	r.mu.RLock()
	defer r.mu.RUnlock()
	keys := make([]K, len(r.order))
	copy(keys, r.order)
	return keys
}

// Values returns all values in registration order.
func (r *Registry[K, V]) Values() []V {
	r.mu.RLock()
	defer r.mu.RUnlock()
	values := make([]V, 0, len(r.order))
	for _, k := range r.order {
		values = append(values, r.entries[k])
	}
	return values
}

// Len returns the number of registered keys.
func (r *Registry[K, V]) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.order)
}
