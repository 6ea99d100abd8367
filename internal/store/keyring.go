package store

import (
	"fmt"

	"github.com/zalando/go-keyring"
)

const serviceName = "mailsync"

// KeyringSessionStore persists opaque session tokens in the OS keyring
// (macOS Keychain, Windows Credential Manager, or Linux Secret Service).
type KeyringSessionStore struct{}

// NewKeyringSessionStore returns a new KeyringSessionStore.
func NewKeyringSessionStore() *KeyringSessionStore {
	return &KeyringSessionStore{}
}

// SaveSession stores the session token for the given account ID.
func (k *KeyringSessionStore) SaveSession(accountID, token string) error {
	if err := keyring.Set(serviceName, accountID, token); err != nil {
		return fmt.Errorf("failed to save session to keyring: %w", err)
	}
	return nil
}

// Session retrieves the session token for the given account ID.
func (k *KeyringSessionStore) Session(accountID string) (string, error) {
	token, err := keyring.Get(serviceName, accountID)
	if err != nil {
		return "", fmt.Errorf("failed to load session from keyring: %w", err)
	}
	return token, nil
}

// DeleteSession removes the session token for the given account ID.
func (k *KeyringSessionStore) DeleteSession(accountID string) error {
	if err := keyring.Delete(serviceName, accountID); err != nil {
		return fmt.Errorf("failed to delete session from keyring: %w", err)
	}
	return nil
}
