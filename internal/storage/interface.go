// Package storage provides durable key/value storage for client state.
package storage

import "errors"

// ErrInvalidKey is returned for keys that cannot be stored.
var ErrInvalidKey = errors.New("invalid storage key")

// KV is a durable store of opaque values addressed by string keys.
type KV interface {
	// Get returns the value for key and whether it exists.
	Get(key string) ([]byte, bool, error)
	// Put stores value under key, replacing any previous value.
	Put(key string, value []byte) error
	// Delete removes key. Deleting a missing key is not an error.
	Delete(key string) error
	// Keys lists the stored keys starting with prefix, sorted.
	Keys(prefix string) ([]string, error)
	// Close releases the backend.
	Close() error
}
