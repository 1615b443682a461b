// Package credential keeps the session token in the system keyring.
package credential

import (
	"errors"
	"fmt"
	"path/filepath"

	"github.com/99designs/keyring"

	"github.com/nhle/crafthub/internal/model"
)

const (
	serviceName = "crafthub"

	// SessionTokenKey is the keyring item holding the signed identity token.
	SessionTokenKey = "session-token"
)

// ErrNoToken is returned when no session token is stored.
var ErrNoToken = errors.New("no stored session token")

// Vault reads and writes credentials in a keyring.
type Vault struct {
	ring keyring.Keyring
}

// NewVault wraps an already opened keyring.
func NewVault(ring keyring.Keyring) *Vault {
	return &Vault{ring: ring}
}

// Open returns a Vault over the system keyring, falling back to an
// encrypted file under the config directory.
func Open() (*Vault, error) {
	ring, err := keyring.Open(keyring.Config{
		ServiceName: serviceName,
		AllowedBackends: []keyring.BackendType{
			keyring.KeychainBackend,
			keyring.SecretServiceBackend,
			keyring.WinCredBackend,
			keyring.PassBackend,
			keyring.FileBackend,
		},
		FileDir:                  filepath.Join(model.ConfigDir(), "credentials"),
		FilePasswordFunc:         keyring.FixedStringPrompt("crafthub-file-key"),
		KeychainTrustApplication: true,
	})
	if err != nil {
		return nil, fmt.Errorf("opening keyring: %w", err)
	}
	return NewVault(ring), nil
}

// Get retrieves a credential value by key.
func (v *Vault) Get(key string) (string, error) {
	item, err := v.ring.Get(key)
	if err != nil {
		return "", fmt.Errorf("getting credential %q: %w", key, err)
	}
	return string(item.Data), nil
}

// Set stores a credential value by key.
func (v *Vault) Set(key, value string) error {
	err := v.ring.Set(keyring.Item{
		Key:         key,
		Data:        []byte(value),
		Label:       "CraftHub " + key,
		Description: "CraftHub credential",
	})
	if err != nil {
		return fmt.Errorf("setting credential %q: %w", key, err)
	}
	return nil
}

// Delete removes a credential by key.
func (v *Vault) Delete(key string) error {
	if err := v.ring.Remove(key); err != nil {
		return fmt.Errorf("deleting credential %q: %w", key, err)
	}
	return nil
}

// SessionToken returns the stored identity token or ErrNoToken.
func (v *Vault) SessionToken() (string, error) {
	token, err := v.Get(SessionTokenKey)
	if errors.Is(err, keyring.ErrKeyNotFound) {
		return "", ErrNoToken
	}
	if err != nil {
		return "", err
	}
	return token, nil
}

// StoreSessionToken saves the identity token for later runs.
func (v *Vault) StoreSessionToken(token string) error {
	return v.Set(SessionTokenKey, token)
}

// ClearSessionToken signs the user out. A missing token is not an error.
func (v *Vault) ClearSessionToken() error {
	err := v.Delete(SessionTokenKey)
	if errors.Is(err, keyring.ErrKeyNotFound) {
		return nil
	}
	return err
}
