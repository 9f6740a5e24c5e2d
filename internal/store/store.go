// Package store persists the small amount of state btclink keeps between
// runs: the type of the last connected wallet.
package store

import (
	"fmt"

	linkerr "github.com/mrz1836/btclink/pkg/errors"
)

// Backend names accepted by Open.
const (
	BackendFile    = "file"
	BackendKeyring = "keyring"
	BackendMemory  = "memory"
)

// Store is a string key-value store.
type Store interface {
	// Get returns the value for key. ok is false when the key is absent.
	Get(key string) (value string, ok bool, err error)

	// Set stores value under key.
	Set(key, value string) error

	// Remove deletes key. Removing an absent key is not an error.
	Remove(key string) error
}

// Open returns the store for backend. path is only used by the file backend.
func Open(backend, path string) (Store, error) {
	switch backend {
	case BackendFile, "":
		return NewFileStore(path)
	case BackendKeyring:
		return NewKeyringStore(ServiceName), nil
	case BackendMemory:
		return NewMemoryStore(), nil
	default:
		return nil, linkerr.WithDetails(
			linkerr.WithSuggestion(linkerr.ErrConfigInvalid, "use one of: file, keyring, memory"),
			map[string]string{"store": fmt.Sprintf("%q", backend)},
		)
	}
}
