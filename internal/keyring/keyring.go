// Package keyring keeps transport credentials in the OS keyring.
package keyring

import (
	"errors"
	"fmt"

	"github.com/zalando/go-keyring"

	"github.com/shanky101/habit-tracker-mobile-sub000/internal/constants"
)

var (
	// ErrNotFound is returned when no credentials are found in the keyring
	ErrNotFound = errors.New("credentials not found in keyring")
	// ErrKeyringUnavailable is returned when the OS keyring is not available
	ErrKeyringUnavailable = errors.New("OS keyring is not available")
)

func get(account string) (string, error) {
	secret, err := keyring.Get(constants.AppName, account)
	if err != nil {
		if errors.Is(err, keyring.ErrNotFound) {
			return "", ErrNotFound
		}
		return "", fmt.Errorf("%w: %v", ErrKeyringUnavailable, err)
	}
	return secret, nil
}

func set(account, secret string) error {
	if secret == "" {
		return fmt.Errorf("%s cannot be empty", account)
	}
	if err := keyring.Set(constants.AppName, account, secret); err != nil {
		return fmt.Errorf("failed to store %s in keyring: %w", account, err)
	}
	return nil
}

func remove(account string) error {
	err := keyring.Delete(constants.AppName, account)
	if err != nil {
		if errors.Is(err, keyring.ErrNotFound) {
			return ErrNotFound
		}
		return fmt.Errorf("failed to delete %s from keyring: %w", account, err)
	}
	return nil
}

// DropboxToken returns the stored Dropbox OAuth access token.
func DropboxToken() (string, error) { return get(constants.KeyringDropboxToken) }

func SetDropboxToken(token string) error { return set(constants.KeyringDropboxToken, token) }

func DeleteDropboxToken() error { return remove(constants.KeyringDropboxToken) }

// PostgresConnectionString returns the stored snapshot server connection string.
func PostgresConnectionString() (string, error) { return get(constants.KeyringPostgresConn) }

func SetPostgresConnectionString(connStr string) error {
	return set(constants.KeyringPostgresConn, connStr)
}

func DeletePostgresConnectionString() error { return remove(constants.KeyringPostgresConn) }

// IsAvailable checks if the OS keyring is available on the current system.
// It is a best-effort check.
func IsAvailable() bool {
	_, err := keyring.Get(constants.AppName, "test-availability")
	return err == nil || errors.Is(err, keyring.ErrNotFound)
}
