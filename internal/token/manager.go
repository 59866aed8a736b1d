package token

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"tracksync/internal/remote"
	"tracksync/internal/store"
	"tracksync/internal/utils"
)

// DefaultSafetyMargin is how close to expiry a token may get before we
// refresh it instead of handing it out.
const DefaultSafetyMargin = 10 * time.Minute

// ErrNoCredential is returned when the user has never connected the tracker
var ErrNoCredential = errors.New("no tracker credential stored")

// RefreshError means the provider rejected the refresh token. The
// credential is unrecoverable until the user re-authorizes; callers must
// surface that instead of retrying.
type RefreshError struct {
	UserID string
	Err    error
}

func (e *RefreshError) Error() string {
	return fmt.Sprintf("token refresh failed for user %s: %v", e.UserID, e.Err)
}

func (e *RefreshError) Unwrap() error {
	return e.Err
}

// Manager owns the access/refresh token pair per (user, provider). It is
// the only component that mutates credential rows after the initial
// OAuth exchange.
type Manager struct {
	store        *store.Store
	auth         remote.Authenticator
	provider     string
	clientID     string
	clientSecret string
	safetyMargin time.Duration

	// Serializes refresh exchanges. Refreshes are infrequent and
	// idempotent from the provider's perspective, so one writer at a
	// time with last-write-wins is enough.
	mu sync.Mutex
}

// NewManager creates a token manager for one provider
func NewManager(s *store.Store, auth remote.Authenticator, provider, clientID, clientSecret string, safetyMargin time.Duration) *Manager {
	if safetyMargin <= 0 {
		safetyMargin = DefaultSafetyMargin
	}
	return &Manager{
		store:        s,
		auth:         auth,
		provider:     provider,
		clientID:     clientID,
		clientSecret: clientSecret,
		safetyMargin: safetyMargin,
	}
}

// EnsureValidToken returns an access token whose expiry is more than the
// safety margin in the future, refreshing first when it is not.
func (m *Manager) EnsureValidToken(userID string) (string, error) {
	cred, err := m.loadCredential(userID)
	if err != nil {
		return "", err
	}

	if time.Until(cred.ExpiresAt) > m.safetyMargin {
		if err := m.store.TouchCredential(cred.ID); err != nil {
			utils.Warnf("failed to stamp last-used on credential %s: %v", cred.ID, err)
		}
		return cred.AccessToken, nil
	}

	return m.refresh(cred)
}

// ForceRefresh performs a refresh exchange regardless of expiry. The
// orchestrator calls this once after a 401 before its single retry.
func (m *Manager) ForceRefresh(userID string) (string, error) {
	cred, err := m.loadCredential(userID)
	if err != nil {
		return "", err
	}
	return m.refresh(cred)
}

// Credential returns the stored credential for status reporting.
// Mutating the result has no effect on the store.
func (m *Manager) Credential(userID string) (*store.Credential, error) {
	return m.loadCredential(userID)
}

// Disconnect removes the stored credential. Only an explicit user action
// reaches this; sync flows never delete credentials.
func (m *Manager) Disconnect(userID string) error {
	err := m.store.DeleteCredential(userID, m.provider)
	if errors.Is(err, store.ErrCredentialNotFound) {
		return ErrNoCredential
	}
	return err
}

// RefreshExpiring refreshes every credential whose expiry falls within
// the safety margin. Used by the scheduled token sweep. Per-credential
// failures are logged and counted, not fatal.
func (m *Manager) RefreshExpiring() (refreshed, failed int, err error) {
	cutoff := time.Now().Add(m.safetyMargin)
	creds, err := m.store.ListCredentialsExpiringBefore(cutoff)
	if err != nil {
		return 0, 0, err
	}

	for i := range creds {
		cred := creds[i]
		if cred.Provider != m.provider {
			continue
		}
		if _, err := m.refresh(&cred); err != nil {
			utils.Warnf("token sweep: refresh failed for user %s: %v", cred.UserID, err)
			failed++
			continue
		}
		refreshed++
	}
	return refreshed, failed, nil
}

func (m *Manager) loadCredential(userID string) (*store.Credential, error) {
	cred, err := m.store.GetCredential(userID, m.provider)
	if errors.Is(err, store.ErrCredentialNotFound) {
		return nil, ErrNoCredential
	}
	if err != nil {
		return nil, err
	}
	return cred, nil
}

// refresh performs the exchange and persists the new pair atomically
func (m *Manager) refresh(cred *store.Credential) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.clientID == "" || m.clientSecret == "" {
		return "", utils.ErrSecretNotFound(m.provider)
	}

	utils.Debugf("refreshing token for user %s (expires %s)", cred.UserID, cred.ExpiresAt.Format(time.RFC3339))

	pair, err := m.auth.RefreshToken(m.clientID, m.clientSecret, cred.RefreshToken)
	if err != nil {
		return "", &RefreshError{UserID: cred.UserID, Err: err}
	}

	// Some providers rotate the refresh token on every exchange, some
	// return only a new access token. Keep the old one when absent.
	refreshToken := pair.RefreshToken
	if refreshToken == "" {
		refreshToken = cred.RefreshToken
	}

	if err := m.store.UpdateCredentialTokens(cred.ID, pair.AccessToken, refreshToken, pair.ExpiresAt); err != nil {
		return "", fmt.Errorf("failed to persist refreshed tokens: %w", err)
	}
	if err := m.store.TouchCredential(cred.ID); err != nil {
		utils.Warnf("failed to stamp last-used on credential %s: %v", cred.ID, err)
	}

	return pair.AccessToken, nil
}
