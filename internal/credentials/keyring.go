package credentials

import (
	"fmt"

	"github.com/zalando/go-keyring"
)

const (
	// KeyringServicePrefix is the prefix for all tracksync keyring entries
	KeyringServicePrefix = "tracksync"

	// Keyring account names for the two halves of an OAuth app credential
	keyringClientIDAccount     = "client_id"
	keyringClientSecretAccount = "client_secret"
)

// getServiceName returns the keyring service name for a provider
func getServiceName(provider string) string {
	return fmt.Sprintf("%s-%s", KeyringServicePrefix, provider)
}

// SetAppCredentials stores the OAuth client id and secret in the OS keyring
func SetAppCredentials(provider, clientID, clientSecret string) error {
	if provider == "" {
		return fmt.Errorf("provider name cannot be empty")
	}
	if clientID == "" {
		return fmt.Errorf("client id cannot be empty")
	}
	if clientSecret == "" {
		return fmt.Errorf("client secret cannot be empty")
	}

	serviceName := getServiceName(provider)
	if err := keyring.Set(serviceName, keyringClientIDAccount, clientID); err != nil {
		return fmt.Errorf("failed to store client id in keyring: %w", err)
	}
	if err := keyring.Set(serviceName, keyringClientSecretAccount, clientSecret); err != nil {
		return fmt.Errorf("failed to store client secret in keyring: %w", err)
	}
	return nil
}

// GetAppCredentials retrieves the OAuth client id and secret from the OS keyring
func GetAppCredentials(provider string) (clientID, clientSecret string, err error) {
	if provider == "" {
		return "", "", fmt.Errorf("provider name cannot be empty")
	}

	serviceName := getServiceName(provider)
	clientID, err = keyring.Get(serviceName, keyringClientIDAccount)
	if err != nil {
		if err == keyring.ErrNotFound {
			return "", "", fmt.Errorf("no app credentials found in keyring for provider %q", provider)
		}
		return "", "", fmt.Errorf("failed to retrieve client id from keyring: %w", err)
	}

	clientSecret, err = keyring.Get(serviceName, keyringClientSecretAccount)
	if err != nil {
		if err == keyring.ErrNotFound {
			return "", "", fmt.Errorf("no app credentials found in keyring for provider %q", provider)
		}
		return "", "", fmt.Errorf("failed to retrieve client secret from keyring: %w", err)
	}

	return clientID, clientSecret, nil
}

// DeleteAppCredentials removes the OAuth app credential from the OS keyring
func DeleteAppCredentials(provider string) error {
	if provider == "" {
		return fmt.Errorf("provider name cannot be empty")
	}

	serviceName := getServiceName(provider)
	err := keyring.Delete(serviceName, keyringClientSecretAccount)
	if err != nil && err != keyring.ErrNotFound {
		return fmt.Errorf("failed to delete client secret from keyring: %w", err)
	}
	idErr := keyring.Delete(serviceName, keyringClientIDAccount)
	if idErr != nil && idErr != keyring.ErrNotFound {
		return fmt.Errorf("failed to delete client id from keyring: %w", idErr)
	}
	if err == keyring.ErrNotFound && idErr == keyring.ErrNotFound {
		return fmt.Errorf("no app credentials found in keyring for provider %q", provider)
	}
	return nil
}

// IsAvailable checks if the keyring is accessible
// This is useful for providing helpful error messages when keyring is not available
func IsAvailable() bool {
	// Probe with a service name that never holds real credentials. ErrNotFound
	// means the keyring answered, so it is usable.
	testService := "tracksync-keyring-test"
	testUser := "test"

	_, err := keyring.Get(testService, testUser)
	return err == nil || err == keyring.ErrNotFound
}
