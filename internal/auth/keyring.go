package auth

import (
	"fmt"

	"github.com/99designs/keyring"
)

const (
	keyringService  = "graphmail"
	refreshTokenKey = "refresh_token"
)

// keyringStore keeps the OAuth refresh token in the system keyring,
// falling back to an encrypted file backend on platforms without one.
type keyringStore struct{}

func newKeyringStore() *keyringStore {
	return &keyringStore{}
}

func openRing() (keyring.Keyring, error) {
	ring, err := keyring.Open(keyring.Config{
		ServiceName: keyringService,
		AllowedBackends: []keyring.BackendType{
			keyring.KeychainBackend,
			keyring.SecretServiceBackend,
			keyring.WinCredBackend,
			keyring.PassBackend,
			keyring.FileBackend,
		},
		FileDir:                  "~/.graphmail/credentials",
		FilePasswordFunc:         keyring.FixedStringPrompt("graphmail-file-key"),
		KeychainTrustApplication: true,
	})
	if err != nil {
		return nil, fmt.Errorf("opening keyring: %w", err)
	}
	return ring, nil
}

func (s *keyringStore) Save(token string) error {
	ring, err := openRing()
	if err != nil {
		return err
	}
	if err := ring.Set(keyring.Item{Key: refreshTokenKey, Data: []byte(token)}); err != nil {
		return fmt.Errorf("storing refresh token: %w", err)
	}
	return nil
}

func (s *keyringStore) Load() (string, error) {
	ring, err := openRing()
	if err != nil {
		return "", err
	}
	item, err := ring.Get(refreshTokenKey)
	if err != nil {
		return "", fmt.Errorf("reading refresh token: %w", err)
	}
	return string(item.Data), nil
}

func (s *keyringStore) Delete() error {
	ring, err := openRing()
	if err != nil {
		return err
	}
	if err := ring.Remove(refreshTokenKey); err != nil {
		return fmt.Errorf("deleting refresh token: %w", err)
	}
	return nil
}
