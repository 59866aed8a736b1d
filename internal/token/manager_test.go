package token

import (
	"errors"
	"path/filepath"
	"testing"
	"time"

	"tracksync/internal/remote"
	"tracksync/internal/store"
)

const testProvider = "jira"

func newTestManager(t *testing.T, mock *remote.MockClient, margin time.Duration) (*Manager, *store.Store) {
	t.Helper()
	s, err := store.Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("failed to open store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return NewManager(s, mock, testProvider, "client-id", "client-secret", margin), s
}

func saveCredential(t *testing.T, s *store.Store, userID string, expiresIn time.Duration) *store.Credential {
	t.Helper()
	cred := &store.Credential{
		UserID:       userID,
		Provider:     testProvider,
		AccessToken:  "access-old",
		RefreshToken: "refresh-old",
		ExpiresAt:    time.Now().Add(expiresIn),
	}
	if err := s.SaveCredential(cred); err != nil {
		t.Fatalf("failed to save credential: %v", err)
	}
	return cred
}

func TestEnsureValidTokenFreshSkipsRefresh(t *testing.T) {
	mock := remote.NewMockClient()
	mgr, s := newTestManager(t, mock, 10*time.Minute)
	saveCredential(t, s, "user-1", 2*time.Hour)

	token, err := mgr.EnsureValidToken("user-1")
	if err != nil {
		t.Fatalf("EnsureValidToken failed: %v", err)
	}
	if token != "access-old" {
		t.Errorf("token = %q, want stored access token", token)
	}
	if mock.RefreshCalls != 0 {
		t.Errorf("RefreshCalls = %d, want 0", mock.RefreshCalls)
	}

	cred, err := mgr.Credential("user-1")
	if err != nil {
		t.Fatalf("Credential failed: %v", err)
	}
	if cred.LastUsedAt == nil {
		t.Error("expected last_used_at to be stamped on token use")
	}
}

func TestEnsureValidTokenRefreshesNearExpiry(t *testing.T) {
	mock := remote.NewMockClient()
	mock.RefreshPair = &remote.TokenPair{
		AccessToken:  "access-new",
		RefreshToken: "refresh-new",
		ExpiresAt:    time.Now().Add(time.Hour),
	}
	mgr, s := newTestManager(t, mock, 10*time.Minute)
	saveCredential(t, s, "user-1", time.Minute)

	token, err := mgr.EnsureValidToken("user-1")
	if err != nil {
		t.Fatalf("EnsureValidToken failed: %v", err)
	}
	if token != "access-new" {
		t.Errorf("token = %q, want refreshed access token", token)
	}
	if mock.RefreshCalls != 1 {
		t.Errorf("RefreshCalls = %d, want exactly 1", mock.RefreshCalls)
	}

	// New pair must be persisted atomically
	cred, err := s.GetCredential("user-1", testProvider)
	if err != nil {
		t.Fatalf("GetCredential failed: %v", err)
	}
	if cred.AccessToken != "access-new" {
		t.Errorf("stored access token = %q, want access-new", cred.AccessToken)
	}
	if cred.RefreshToken != "refresh-new" {
		t.Errorf("stored refresh token = %q, want refresh-new", cred.RefreshToken)
	}
	if time.Until(cred.ExpiresAt) < 50*time.Minute {
		t.Errorf("stored expiry %s not advanced", cred.ExpiresAt)
	}
}

func TestEnsureValidTokenNoCredential(t *testing.T) {
	mock := remote.NewMockClient()
	mgr, _ := newTestManager(t, mock, 10*time.Minute)

	_, err := mgr.EnsureValidToken("nobody")
	if !errors.Is(err, ErrNoCredential) {
		t.Errorf("err = %v, want ErrNoCredential", err)
	}
	if mock.RefreshCalls != 0 {
		t.Errorf("RefreshCalls = %d, want 0", mock.RefreshCalls)
	}
}

func TestRefreshRejectedKeepsStoredTokens(t *testing.T) {
	mock := remote.NewMockClient()
	mock.RefreshErr = remote.NewStatusError("RefreshToken", 401, "invalid_grant")
	mgr, s := newTestManager(t, mock, 10*time.Minute)
	saveCredential(t, s, "user-1", time.Minute)

	_, err := mgr.EnsureValidToken("user-1")
	var refreshErr *RefreshError
	if !errors.As(err, &refreshErr) {
		t.Fatalf("err = %v, want *RefreshError", err)
	}
	if refreshErr.UserID != "user-1" {
		t.Errorf("RefreshError.UserID = %q, want user-1", refreshErr.UserID)
	}
	if !remote.IsUnauthorized(refreshErr) {
		t.Error("expected unwrapping to reach the remote unauthorized error")
	}

	// A failed exchange must not clobber what is stored
	cred, err := s.GetCredential("user-1", testProvider)
	if err != nil {
		t.Fatalf("GetCredential failed: %v", err)
	}
	if cred.AccessToken != "access-old" || cred.RefreshToken != "refresh-old" {
		t.Errorf("stored tokens changed after failed refresh: %q/%q", cred.AccessToken, cred.RefreshToken)
	}
}

func TestRefreshKeepsOldRefreshTokenWhenProviderOmitsIt(t *testing.T) {
	mock := remote.NewMockClient()
	mock.RefreshPair = &remote.TokenPair{
		AccessToken: "access-new",
		ExpiresAt:   time.Now().Add(time.Hour),
	}
	mgr, s := newTestManager(t, mock, 10*time.Minute)
	saveCredential(t, s, "user-1", time.Minute)

	if _, err := mgr.EnsureValidToken("user-1"); err != nil {
		t.Fatalf("EnsureValidToken failed: %v", err)
	}

	cred, err := s.GetCredential("user-1", testProvider)
	if err != nil {
		t.Fatalf("GetCredential failed: %v", err)
	}
	if cred.RefreshToken != "refresh-old" {
		t.Errorf("refresh token = %q, want the previous one retained", cred.RefreshToken)
	}
}

func TestForceRefreshIgnoresExpiry(t *testing.T) {
	mock := remote.NewMockClient()
	mock.RefreshPair = &remote.TokenPair{
		AccessToken:  "access-new",
		RefreshToken: "refresh-new",
		ExpiresAt:    time.Now().Add(time.Hour),
	}
	mgr, s := newTestManager(t, mock, 10*time.Minute)
	saveCredential(t, s, "user-1", 5*time.Hour)

	token, err := mgr.ForceRefresh("user-1")
	if err != nil {
		t.Fatalf("ForceRefresh failed: %v", err)
	}
	if token != "access-new" {
		t.Errorf("token = %q, want access-new", token)
	}
	if mock.RefreshCalls != 1 {
		t.Errorf("RefreshCalls = %d, want 1", mock.RefreshCalls)
	}
}

func TestRefreshExpiringSweep(t *testing.T) {
	mock := remote.NewMockClient()
	mock.RefreshPair = &remote.TokenPair{
		AccessToken:  "access-new",
		RefreshToken: "refresh-new",
		ExpiresAt:    time.Now().Add(time.Hour),
	}
	mgr, s := newTestManager(t, mock, 10*time.Minute)

	saveCredential(t, s, "near-expiry", time.Minute)
	saveCredential(t, s, "still-fresh", 3*time.Hour)

	refreshed, failed, err := mgr.RefreshExpiring()
	if err != nil {
		t.Fatalf("RefreshExpiring failed: %v", err)
	}
	if refreshed != 1 || failed != 0 {
		t.Errorf("refreshed = %d, failed = %d, want 1, 0", refreshed, failed)
	}
	if mock.RefreshCalls != 1 {
		t.Errorf("RefreshCalls = %d, want 1", mock.RefreshCalls)
	}
}

func TestRefreshExpiringCountsFailures(t *testing.T) {
	mock := remote.NewMockClient()
	mock.RefreshErr = remote.NewStatusError("RefreshToken", 401, "invalid_grant")
	mgr, s := newTestManager(t, mock, 10*time.Minute)
	saveCredential(t, s, "near-expiry", time.Minute)

	refreshed, failed, err := mgr.RefreshExpiring()
	if err != nil {
		t.Fatalf("RefreshExpiring failed: %v", err)
	}
	if refreshed != 0 || failed != 1 {
		t.Errorf("refreshed = %d, failed = %d, want 0, 1", refreshed, failed)
	}
}

func TestDisconnect(t *testing.T) {
	mock := remote.NewMockClient()
	mgr, s := newTestManager(t, mock, 10*time.Minute)
	saveCredential(t, s, "user-1", time.Hour)

	if err := mgr.Disconnect("user-1"); err != nil {
		t.Fatalf("Disconnect failed: %v", err)
	}
	if _, err := mgr.EnsureValidToken("user-1"); !errors.Is(err, ErrNoCredential) {
		t.Errorf("err after disconnect = %v, want ErrNoCredential", err)
	}
	if err := mgr.Disconnect("user-1"); !errors.Is(err, ErrNoCredential) {
		t.Errorf("second disconnect err = %v, want ErrNoCredential", err)
	}
}
