package credential

import (
	"errors"
	"fmt"
	"sync"

	"github.com/99designs/keyring"
)

// TokenKey is the keyring entry holding the backend session token.
const TokenKey = "session-token"

// ErrNotFound is returned by Get when no entry exists for the key.
var ErrNotFound = errors.New("credential not found")

var (
	ringOnce sync.Once
	ring     keyring.Keyring
	ringErr  error
)

// openRing opens the system keyring once and caches it for the process.
func openRing() (keyring.Keyring, error) {
	ringOnce.Do(func() {
		ring, ringErr = keyring.Open(keyring.Config{
			ServiceName: "mesa-client",
			AllowedBackends: []keyring.BackendType{
				keyring.KeychainBackend,
				keyring.SecretServiceBackend,
				keyring.WinCredBackend,
				keyring.PassBackend,
				keyring.FileBackend,
			},
			FileDir:                  "~/.config/mesa/credentials",
			FilePasswordFunc:         keyring.FixedStringPrompt("mesa-client-file-key"),
			KeychainTrustApplication: true,
		})
	})
	if ringErr != nil {
		return nil, fmt.Errorf("opening keyring: %w", ringErr)
	}
	return ring, nil
}

// Get retrieves a credential value from the system keyring. Returns
// ErrNotFound when the entry does not exist.
func Get(key string) (string, error) {
	r, err := openRing()
	if err != nil {
		return "", err
	}

	item, err := r.Get(key)
	if errors.Is(err, keyring.ErrKeyNotFound) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("getting credential %q: %w", key, err)
	}
	return string(item.Data), nil
}

// Set stores a credential value in the system keyring.
func Set(key, value string) error {
	r, err := openRing()
	if err != nil {
		return err
	}

	if err := r.Set(keyring.Item{Key: key, Data: []byte(value)}); err != nil {
		return fmt.Errorf("setting credential %q: %w", key, err)
	}
	return nil
}

// Delete removes a credential from the system keyring. Deleting a missing
// entry is not an error.
func Delete(key string) error {
	r, err := openRing()
	if err != nil {
		return err
	}

	err = r.Remove(key)
	if err != nil && !errors.Is(err, keyring.ErrKeyNotFound) {
		return fmt.Errorf("deleting credential %q: %w", key, err)
	}
	return nil
}
