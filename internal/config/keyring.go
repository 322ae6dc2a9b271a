package config

import (
	"fmt"

	"github.com/sirupsen/logrus"
	"github.com/zalando/go-keyring"
)

const (
	// KeyringService is the service name in the OS keychain
	KeyringService = "neointerface"

	keyringProbeItem = "test-availability"
)

// KeyringManager stores Neo4j passwords in the OS keychain, one item per
// user@host pair.
type KeyringManager struct {
	logger logrus.FieldLogger
}

// NewKeyringManager creates a new keyring manager
func NewKeyringManager(logger logrus.FieldLogger) *KeyringManager {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &KeyringManager{
		logger: logger.WithField("component", "keyring"),
	}
}

// PasswordItem is the keychain item name for a user on a host.
func PasswordItem(user, host string) string {
	return fmt.Sprintf("%s@%s", user, host)
}

// SavePassword stores the password for user@host.
// macOS: Keychain Access; Windows: Credential Manager; Linux: Secret Service.
func (km *KeyringManager) SavePassword(user, host, password string) error {
	if password == "" {
		return fmt.Errorf("password cannot be empty")
	}

	item := PasswordItem(user, host)
	if err := keyring.Set(KeyringService, item, password); err != nil {
		km.logger.WithError(err).Error("failed to save password to keychain")
		return fmt.Errorf("failed to save to OS keychain: %w", err)
	}

	km.logger.WithField("item", item).Info("password saved to keychain")
	return nil
}

// GetPassword returns "" without error when nothing is stored.
func (km *KeyringManager) GetPassword(user, host string) (string, error) {
	password, err := keyring.Get(KeyringService, PasswordItem(user, host))
	if err == keyring.ErrNotFound {
		return "", nil
	}
	if err != nil {
		km.logger.WithError(err).Error("failed to get password from keychain")
		return "", fmt.Errorf("failed to read from OS keychain: %w", err)
	}

	km.logger.Debug("password retrieved from keychain")
	return password, nil
}

// DeletePassword removes the stored password; a missing item is not an error.
func (km *KeyringManager) DeletePassword(user, host string) error {
	err := keyring.Delete(KeyringService, PasswordItem(user, host))
	if err == keyring.ErrNotFound {
		return nil
	}
	if err != nil {
		km.logger.WithError(err).Error("failed to delete password from keychain")
		return fmt.Errorf("failed to delete from OS keychain: %w", err)
	}

	km.logger.Info("password deleted from keychain")
	return nil
}

// IsAvailable checks if OS keychain is available.
// Returns false on headless systems without a secret service.
func (km *KeyringManager) IsAvailable() bool {
	_, err := keyring.Get(KeyringService, keyringProbeItem)
	if err == keyring.ErrNotFound {
		return true
	}
	if err != nil {
		km.logger.WithError(err).Debug("keychain not available")
		return false
	}
	return true
}
