package credential

import (
	"errors"
	"fmt"

	"github.com/99designs/keyring"
)

const serviceName = "canvastodo"

// CanvasAPIKey is the keyring entry holding the Canvas bearer token.
const CanvasAPIKey = "canvas-api-key"

// ErrNoAPIKey is returned when the keyring works but holds no Canvas token.
var ErrNoAPIKey = errors.New("no API key stored in the keyring")

// openKeyring returns the keyring holding the Canvas token. The file
// backend is the last resort on machines without a desktop keyring.
func openKeyring() (keyring.Keyring, error) {
	ring, err := keyring.Open(keyring.Config{
		ServiceName: serviceName,
		AllowedBackends: []keyring.BackendType{
			keyring.KeychainBackend,
			keyring.SecretServiceBackend,
			keyring.WinCredBackend,
			keyring.PassBackend,
			keyring.FileBackend,
		},
		FileDir:                  "~/.config/canvastodo/credentials",
		FilePasswordFunc:         keyring.FixedStringPrompt("canvastodo-file-key"),
		KeychainTrustApplication: true,
	})
	if err != nil {
		return nil, fmt.Errorf("opening keyring: %w", err)
	}
	return ring, nil
}

// GetAPIKey returns the stored Canvas token. A keyring without one yields
// ErrNoAPIKey; any other error means the keyring itself is unusable.
func GetAPIKey() (string, error) {
	ring, err := openKeyring()
	if err != nil {
		return "", err
	}
	return apiKey(ring)
}

// SetAPIKey stores the Canvas token.
func SetAPIKey(token string) error {
	ring, err := openKeyring()
	if err != nil {
		return err
	}
	return storeAPIKey(ring, token)
}

// DeleteAPIKey removes the Canvas token. Removing a token that is not
// stored succeeds.
func DeleteAPIKey() error {
	ring, err := openKeyring()
	if err != nil {
		return err
	}
	return removeAPIKey(ring)
}

func apiKey(ring keyring.Keyring) (string, error) {
	item, err := ring.Get(CanvasAPIKey)
	if errors.Is(err, keyring.ErrKeyNotFound) {
		return "", ErrNoAPIKey
	}
	if err != nil {
		return "", fmt.Errorf("reading API key from keyring: %w", err)
	}
	if len(item.Data) == 0 {
		return "", ErrNoAPIKey
	}
	return string(item.Data), nil
}

func storeAPIKey(ring keyring.Keyring, token string) error {
	err := ring.Set(keyring.Item{
		Key:         CanvasAPIKey,
		Data:        []byte(token),
		Label:       "Canvas API token",
		Description: "Bearer token used by canvastodo",
	})
	if err != nil {
		return fmt.Errorf("storing API key in keyring: %w", err)
	}
	return nil
}

func removeAPIKey(ring keyring.Keyring) error {
	err := ring.Remove(CanvasAPIKey)
	if err != nil && !errors.Is(err, keyring.ErrKeyNotFound) {
		return fmt.Errorf("removing API key from keyring: %w", err)
	}
	return nil
}
