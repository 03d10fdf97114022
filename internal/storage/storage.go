// Package storage defines the Engine contract a single backend server keeps
// durable: a scalar key-value map, a set of append-only lists, and a
// monotonic logical clock. Engine has no notion of bins, replicas, or
// networking; that belongs to the layers above it.
package storage

import "context"

// Engine is the storage contract a backend server wraps. Implementations
// must be safe for concurrent use.
type Engine interface {
	// Get returns the value stored at key, or ok=false if unset.
	Get(ctx context.Context, key string) (value string, ok bool, err error)
	// Set stores value at key, overwriting any prior value.
	Set(ctx context.Context, key, value string) error
	// Keys returns every scalar key starting with prefix and ending with
	// suffix. Either may be empty.
	Keys(ctx context.Context, prefix, suffix string) ([]string, error)

	// ListGet returns the full contents of the list at key, in append
	// order. A never-appended-to key returns an empty, non-nil slice.
	ListGet(ctx context.Context, key string) ([]string, error)
	// ListAppend appends value to the list at key.
	ListAppend(ctx context.Context, key, value string) error
	// ListRemove removes every element equal to value from the list at
	// key and returns how many were removed.
	ListRemove(ctx context.Context, key, value string) (int, error)
	// ListKeys returns every list key starting with prefix and ending
	// with suffix.
	ListKeys(ctx context.Context, prefix, suffix string) ([]string, error)

	// Clock advances the backend's logical clock to at least atLeast and
	// returns the new value, max(previous+1, atLeast). Clock(0) therefore
	// still advances the clock by one.
	Clock(ctx context.Context, atLeast uint64) (uint64, error)

	Close() error
}
