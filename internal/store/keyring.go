package store

import (
	"errors"

	"github.com/zalando/go-keyring"
)

// ServiceName is the keyring service entries are filed under.
const ServiceName = "btclink"

// KeyringStore keeps values in the OS keychain, one entry per key.
type KeyringStore struct {
	service string
}

// NewKeyringStore creates a store filing entries under service.
func NewKeyringStore(service string) *KeyringStore {
	return &KeyringStore{service: service}
}

// Get implements Store.
func (k *KeyringStore) Get(key string) (string, bool, error) {
	v, err := keyring.Get(k.service, key)
	if errors.Is(err, keyring.ErrNotFound) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return v, true, nil
}

// Set implements Store.
func (k *KeyringStore) Set(key, value string) error {
	return keyring.Set(k.service, key, value)
}

// Remove implements Store.
func (k *KeyringStore) Remove(key string) error {
	if err := keyring.Delete(k.service, key); err != nil && !errors.Is(err, keyring.ErrNotFound) {
		return err
	}
	return nil
}

// ProbeKeyring tests if the OS keyring is available by writing, reading and
// deleting a throwaway entry.
func ProbeKeyring() bool {
	const (
		probeService = "btclink-probe"
		probeUser    = "probe"
		probeValue   = "test"
	)

	if err := keyring.Set(probeService, probeUser, probeValue); err != nil {
		return false
	}

	val, err := keyring.Get(probeService, probeUser)
	if err != nil || val != probeValue {
		_ = keyring.Delete(probeService, probeUser)
		return false
	}

	return keyring.Delete(probeService, probeUser) == nil
}
