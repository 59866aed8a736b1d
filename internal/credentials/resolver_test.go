package credentials

import (
	"strings"
	"testing"
)

func TestResolver_Resolve_EnvironmentVariables(t *testing.T) {
	t.Setenv("TRACKSYNC_JIRA_CLIENT_ID", "env-id")
	t.Setenv("TRACKSYNC_JIRA_CLIENT_SECRET", "env-secret")

	creds, err := NewResolver().Resolve("jira", "", "")
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if creds.ClientID != "env-id" || creds.ClientSecret != "env-secret" {
		t.Errorf("got %q/%q, want env values", creds.ClientID, creds.ClientSecret)
	}
	if creds.Source != SourceEnv {
		t.Errorf("Source = %q, want %q", creds.Source, SourceEnv)
	}
}

func TestResolver_Resolve_Priority_EnvOverConfig(t *testing.T) {
	t.Setenv("TRACKSYNC_JIRA_CLIENT_ID", "env-id")
	t.Setenv("TRACKSYNC_JIRA_CLIENT_SECRET", "env-secret")

	creds, err := NewResolver().Resolve("jira", "config-id", "config-secret")
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if creds.Source != SourceEnv {
		t.Errorf("Source = %q, want env to win over config", creds.Source)
	}
	if creds.ClientSecret != "env-secret" {
		t.Errorf("ClientSecret = %q, want env value", creds.ClientSecret)
	}
}

func TestResolver_Resolve_ConfigFallback(t *testing.T) {
	creds, err := NewResolver().Resolve("provider-without-env", "config-id", "config-secret")
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if creds.ClientID != "config-id" || creds.ClientSecret != "config-secret" {
		t.Errorf("got %q/%q, want config values", creds.ClientID, creds.ClientSecret)
	}
	if creds.Source != SourceConfig {
		t.Errorf("Source = %q, want %q", creds.Source, SourceConfig)
	}
}

func TestResolver_Resolve_NoCredentials(t *testing.T) {
	_, err := NewResolver().Resolve("provider-without-anything", "", "")
	if err == nil {
		t.Fatal("expected error when no source has credentials")
	}
	if !strings.Contains(err.Error(), "no app credentials found") {
		t.Errorf("error = %q, want a no-credentials message", err.Error())
	}
}

func TestResolver_Resolve_EmptyProvider(t *testing.T) {
	_, err := NewResolver().Resolve("", "id", "secret")
	if err == nil {
		t.Fatal("expected error for empty provider name")
	}
}
