package store

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// ErrCredentialNotFound is returned when no credential row exists for a
// (user, provider) pair.
var ErrCredentialNotFound = errors.New("credential not found")

// Credential is the stored token pair for one (user, provider) pair
type Credential struct {
	ID           string
	UserID       string
	Provider     string
	AccessToken  string
	RefreshToken string
	ExpiresAt    time.Time
	WorkspaceKey string
	LastUsedAt   *time.Time
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// GetCredential returns the credential for a (user, provider) pair
func (s *Store) GetCredential(userID, provider string) (*Credential, error) {
	row := s.QueryRow(`
		SELECT id, user_id, provider, access_token, refresh_token, expires_at,
		       workspace_key, last_used_at, created_at, updated_at
		FROM remote_credentials
		WHERE user_id = ? AND provider = ?
	`, userID, provider)

	cred, err := scanCredential(row)
	if err == sql.ErrNoRows {
		return nil, ErrCredentialNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load credential: %w", err)
	}
	return cred, nil
}

// SaveCredential inserts or replaces the credential for its (user, provider)
// pair. Used by the initial OAuth exchange and by tests.
func (s *Store) SaveCredential(cred *Credential) error {
	if cred.ID == "" {
		cred.ID = uuid.NewString()
	}
	now := time.Now()
	if cred.CreatedAt.IsZero() {
		cred.CreatedAt = now
	}
	cred.UpdatedAt = now

	_, err := s.Exec(`
		INSERT INTO remote_credentials (id, user_id, provider, access_token, refresh_token,
		    expires_at, workspace_key, last_used_at, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(user_id, provider) DO UPDATE SET
		    access_token = excluded.access_token,
		    refresh_token = excluded.refresh_token,
		    expires_at = excluded.expires_at,
		    workspace_key = excluded.workspace_key,
		    updated_at = excluded.updated_at
	`,
		cred.ID, cred.UserID, cred.Provider, cred.AccessToken, cred.RefreshToken,
		cred.ExpiresAt.Unix(), NullString(cred.WorkspaceKey),
		TimeToNullInt64(cred.LastUsedAt), cred.CreatedAt.Unix(), cred.UpdatedAt.Unix(),
	)
	if err != nil {
		return fmt.Errorf("failed to save credential: %w", err)
	}
	return nil
}

// UpdateCredentialTokens persists a refreshed token pair in one statement
// so the access token, refresh token, and expiry never diverge.
func (s *Store) UpdateCredentialTokens(credID, accessToken, refreshToken string, expiresAt time.Time) error {
	res, err := s.Exec(`
		UPDATE remote_credentials
		SET access_token = ?, refresh_token = ?, expires_at = ?, updated_at = ?
		WHERE id = ?
	`, accessToken, refreshToken, expiresAt.Unix(), time.Now().Unix(), credID)
	if err != nil {
		return fmt.Errorf("failed to update credential tokens: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrCredentialNotFound
	}
	return nil
}

// TouchCredential stamps last_used_at on every successful token use
func (s *Store) TouchCredential(credID string) error {
	_, err := s.Exec(`
		UPDATE remote_credentials SET last_used_at = ? WHERE id = ?
	`, time.Now().Unix(), credID)
	return err
}

// DeleteCredential removes the credential for a (user, provider) pair.
// Only explicit disconnect calls this; sync never deletes credentials.
func (s *Store) DeleteCredential(userID, provider string) error {
	res, err := s.Exec(`
		DELETE FROM remote_credentials WHERE user_id = ? AND provider = ?
	`, userID, provider)
	if err != nil {
		return fmt.Errorf("failed to delete credential: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrCredentialNotFound
	}
	return nil
}

// ListCredentialsExpiringBefore returns credentials whose expiry falls
// before the cutoff, for the proactive refresh sweep.
func (s *Store) ListCredentialsExpiringBefore(cutoff time.Time) ([]Credential, error) {
	rows, err := s.Query(`
		SELECT id, user_id, provider, access_token, refresh_token, expires_at,
		       workspace_key, last_used_at, created_at, updated_at
		FROM remote_credentials
		WHERE expires_at < ?
		ORDER BY expires_at ASC
	`, cutoff.Unix())
	if err != nil {
		return nil, fmt.Errorf("failed to list expiring credentials: %w", err)
	}
	defer rows.Close()

	var creds []Credential
	for rows.Next() {
		cred, err := scanCredential(rows)
		if err != nil {
			return nil, err
		}
		creds = append(creds, *cred)
	}
	return creds, rows.Err()
}

// rowScanner is satisfied by both *sql.Row and *sql.Rows
type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanCredential(row rowScanner) (*Credential, error) {
	var cred Credential
	var expiresAt, createdAt, updatedAt int64
	var workspaceKey sql.NullString
	var lastUsedAt sql.NullInt64

	err := row.Scan(
		&cred.ID, &cred.UserID, &cred.Provider, &cred.AccessToken, &cred.RefreshToken,
		&expiresAt, &workspaceKey, &lastUsedAt, &createdAt, &updatedAt,
	)
	if err != nil {
		return nil, err
	}

	cred.ExpiresAt = time.Unix(expiresAt, 0)
	cred.WorkspaceKey = workspaceKey.String
	cred.LastUsedAt = NullInt64ToTimePtr(lastUsedAt)
	cred.CreatedAt = time.Unix(createdAt, 0)
	cred.UpdatedAt = time.Unix(updatedAt, 0)
	return &cred, nil
}
