// Package storage provides origin-scoped durable key/value storage for a
// device. Values are opaque JSON documents owned by the stores in
// internal/store.
package storage

import "errors"

// ErrNotFound is returned by Get when a key has never been written or
// was removed.
var ErrNotFound = errors.New("storage: key not found")

// Storage is the durable storage of one device.
type Storage interface {
	Get(key string) ([]byte, error)
	Set(key string, value []byte) error
	Remove(key string) error
}
