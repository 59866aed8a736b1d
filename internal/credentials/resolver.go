package credentials

import (
	"fmt"
)

// Source indicates where the app credential was found
type Source string

const (
	SourceEnv     Source = "env"
	SourceKeyring Source = "keyring"
	SourceConfig  Source = "config"
	SourceNone    Source = "none"
)

// AppCredentials is the resolved OAuth application credential for one provider
type AppCredentials struct {
	ClientID     string
	ClientSecret string
	Source       Source
}

// Resolver locates the OAuth client id/secret for a provider. Environment
// variables win over the OS keyring, which wins over config file values,
// so deployments can override a workstation setup without touching it.
type Resolver struct{}

// NewResolver creates a new app credential resolver
func NewResolver() *Resolver {
	return &Resolver{}
}

// Resolve attempts to find the app credential using the priority order:
// 1. Environment variables (TRACKSYNC_{PROVIDER}_CLIENT_ID / _CLIENT_SECRET)
// 2. OS keyring
// 3. Values from the config file, passed in by the caller
//
// Returns credentials with Source indicating where they were found.
func (r *Resolver) Resolve(provider, configClientID, configClientSecret string) (*AppCredentials, error) {
	if provider == "" {
		return nil, fmt.Errorf("provider name is required for credential resolution")
	}

	if HasAppCredentials(provider) {
		return &AppCredentials{
			ClientID:     GetClientID(provider),
			ClientSecret: GetClientSecret(provider),
			Source:       SourceEnv,
		}, nil
	}

	if IsAvailable() {
		clientID, clientSecret, err := GetAppCredentials(provider)
		if err == nil {
			return &AppCredentials{
				ClientID:     clientID,
				ClientSecret: clientSecret,
				Source:       SourceKeyring,
			}, nil
		}
		// Keyring miss or access problem, fall through to config
	}

	if configClientID != "" && configClientSecret != "" {
		return &AppCredentials{
			ClientID:     configClientID,
			ClientSecret: configClientSecret,
			Source:       SourceConfig,
		}, nil
	}

	return nil, fmt.Errorf("no app credentials found for provider %q (tried: environment variables, keyring, config)", provider)
}
