package storage

import "github.com/pkg/errors"

// ErrClosed is returned by a backend used after Close
var ErrClosed = errors.New("storage backend closed")

// Backend is a synchronous string key-value store
type Backend interface {
	// Get returns the value of key and whether it exists
	Get(key string) (string, bool, error)
	Set(key, value string) error
	// SetAll writes every entry at once. On error none of them is written.
	SetAll(entries map[string]string) error
	// Remove deletes key. Removing a missing key is not an error.
	Remove(key string) error
	// Entries returns a snapshot of every key and value
	Entries() (map[string]string, error)
	Clear() error
	Close() error
}

// PrefixLister is implemented by backends that can list keys in order without reading values
type PrefixLister interface {
	KeysWithPrefix(prefix string) ([]string, error)
}
