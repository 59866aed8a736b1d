package credentials

import "testing"

func TestNormalizeProviderName(t *testing.T) {
	tests := []struct {
		name     string
		provider string
		want     string
	}{
		{"simple", "jira", "JIRA"},
		{"hyphenated", "jira-cloud", "JIRA_CLOUD"},
		{"already upper", "JIRA", "JIRA"},
		{"mixed", "Jira-Server", "JIRA_SERVER"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := normalizeProviderName(tt.provider); got != tt.want {
				t.Errorf("normalizeProviderName(%q) = %q, want %q", tt.provider, got, tt.want)
			}
		})
	}
}

func TestGetEnvVarName(t *testing.T) {
	got := getEnvVarName("jira-cloud", "client_secret")
	want := "TRACKSYNC_JIRA_CLOUD_CLIENT_SECRET"
	if got != want {
		t.Errorf("getEnvVarName = %q, want %q", got, want)
	}
}

func TestGetClientID(t *testing.T) {
	t.Setenv("TRACKSYNC_JIRA_CLIENT_ID", "app-123")

	if got := GetClientID("jira"); got != "app-123" {
		t.Errorf("GetClientID = %q, want app-123", got)
	}
	if got := GetClientID("other"); got != "" {
		t.Errorf("GetClientID for unset provider = %q, want empty", got)
	}
	if got := GetClientID(""); got != "" {
		t.Errorf("GetClientID for empty provider = %q, want empty", got)
	}
}

func TestGetClientSecret(t *testing.T) {
	t.Setenv("TRACKSYNC_JIRA_CLIENT_SECRET", "s3cret")

	if got := GetClientSecret("jira"); got != "s3cret" {
		t.Errorf("GetClientSecret = %q, want s3cret", got)
	}
	if got := GetClientSecret(""); got != "" {
		t.Errorf("GetClientSecret for empty provider = %q, want empty", got)
	}
}

func TestHasAppCredentials(t *testing.T) {
	t.Setenv("TRACKSYNC_JIRA_CLIENT_ID", "app-123")

	if HasAppCredentials("jira") {
		t.Error("HasAppCredentials = true with only client id set")
	}

	t.Setenv("TRACKSYNC_JIRA_CLIENT_SECRET", "s3cret")
	if !HasAppCredentials("jira") {
		t.Error("HasAppCredentials = false with both halves set")
	}
}
