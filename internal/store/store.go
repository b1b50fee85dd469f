package store

import "context"

// PointerStore loads and saves the rotation pointer.
type PointerStore interface {
	// Load returns the persisted value. A store that has never been written
	// returns 0 and no error.
	Load(ctx context.Context) (int, error)

	// Save replaces the persisted value.
	Save(ctx context.Context, value int) error

	// Close releases any resources held by the store.
	Close() error
}
