package credentials

import (
	"strings"
	"testing"
)

func TestGetServiceName(t *testing.T) {
	tests := []struct {
		provider string
		want     string
	}{
		{"jira", "tracksync-jira"},
		{"jira-cloud", "tracksync-jira-cloud"},
	}

	for _, tt := range tests {
		if got := getServiceName(tt.provider); got != tt.want {
			t.Errorf("getServiceName(%q) = %q, want %q", tt.provider, got, tt.want)
		}
	}
}

func TestSetAppCredentials_Validation(t *testing.T) {
	tests := []struct {
		name         string
		provider     string
		clientID     string
		clientSecret string
		wantErr      string
	}{
		{"empty provider", "", "id", "secret", "provider name cannot be empty"},
		{"empty client id", "jira", "", "secret", "client id cannot be empty"},
		{"empty client secret", "jira", "id", "", "client secret cannot be empty"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := SetAppCredentials(tt.provider, tt.clientID, tt.clientSecret)
			if err == nil {
				t.Fatal("expected validation error, got nil")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("error = %q, want it to contain %q", err.Error(), tt.wantErr)
			}
		})
	}
}

func TestGetAppCredentials_Validation(t *testing.T) {
	if _, _, err := GetAppCredentials(""); err == nil {
		t.Error("expected error for empty provider name")
	}
}

func TestDeleteAppCredentials_Validation(t *testing.T) {
	if err := DeleteAppCredentials(""); err == nil {
		t.Error("expected error for empty provider name")
	}
}

func TestIsAvailable(t *testing.T) {
	// Just exercise the probe; availability depends on the host
	_ = IsAvailable()
}
