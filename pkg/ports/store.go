package ports

import "context"

// ContentStore is the key-value capability used to persist narrative progress.
// Values are opaque strings (JSON documents or flat prose). Writes are
// last-writer-wins.
type ContentStore interface {
	// Get returns the value stored under key.
	// Returns domain.ErrKeyNotFound if the key does not exist.
	Get(ctx context.Context, key string) (string, error)

	// Set stores value under key, overwriting any previous value.
	Set(ctx context.Context, key, value string) error

	// Delete removes key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error

	// Keys lists the stored keys that start with prefix, sorted.
	Keys(ctx context.Context, prefix string) ([]string, error)
}
