// Package keyring persists passwords in the OS keyring, keyed by the
// same scope keys the session cache uses.
package keyring

import (
	"errors"

	"github.com/zalando/go-keyring"
)

const serviceName = "lockmark"

// SavePassword stores a password in the OS keyring
func SavePassword(scopeKey string, password string) error {
	return keyring.Set(serviceName, scopeKey, password)
}

// GetPassword retrieves a password from the OS keyring
func GetPassword(scopeKey string) (string, error) {
	return keyring.Get(serviceName, scopeKey)
}

// DeletePassword removes a password from the OS keyring
func DeletePassword(scopeKey string) error {
	return keyring.Delete(serviceName, scopeKey)
}

// HasPassword checks if a password is stored in the keyring
func HasPassword(scopeKey string) bool {
	_, err := keyring.Get(serviceName, scopeKey)
	return err == nil
}

// IsNotFound reports whether err means the key has no stored password
func IsNotFound(err error) bool {
	return errors.Is(err, keyring.ErrNotFound)
}

// UseMock swaps the OS keyring for an in-memory one
func UseMock() {
	keyring.MockInit()
}
