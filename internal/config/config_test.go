package config

import (
	"os"
	"path/filepath"
	"testing"
)

const validYAML = `
provider:
  name: jira
  base_url: https://tracker.example.com
  auth_url: https://auth.example.com
  client_id: app-123

sync:
  page_size: 25
`

func TestParseConfigValid(t *testing.T) {
	cfg, err := parseConfig([]byte(validYAML), "test.yaml")
	if err != nil {
		t.Fatalf("parseConfig failed: %v", err)
	}
	if cfg.Provider.Name != "jira" {
		t.Errorf("provider name = %q, want jira", cfg.Provider.Name)
	}
	if cfg.Provider.BaseURL != "https://tracker.example.com" {
		t.Errorf("base url = %q", cfg.Provider.BaseURL)
	}
	if cfg.Sync.PageSize != 25 {
		t.Errorf("page size = %d, want 25", cfg.Sync.PageSize)
	}
}

func TestParseConfigAppliesDefaults(t *testing.T) {
	cfg, err := parseConfig([]byte(`
provider:
  name: jira
  base_url: https://tracker.example.com
`), "test.yaml")
	if err != nil {
		t.Fatalf("parseConfig failed: %v", err)
	}

	if cfg.Provider.AuthURL != cfg.Provider.BaseURL {
		t.Errorf("auth url = %q, want base url fallback", cfg.Provider.AuthURL)
	}
	if cfg.Sync.TokenSafetyMarginMinutes != 10 {
		t.Errorf("safety margin = %d, want default 10", cfg.Sync.TokenSafetyMarginMinutes)
	}
	if cfg.Sync.PageSize != 50 {
		t.Errorf("page size = %d, want default 50", cfg.Sync.PageSize)
	}
	if cfg.Sync.DefaultRole != "member" {
		t.Errorf("default role = %q, want member", cfg.Sync.DefaultRole)
	}
	if cfg.Sync.Jobs.UserImportIntervalHours != 24 {
		t.Errorf("user import interval = %d, want default 24", cfg.Sync.Jobs.UserImportIntervalHours)
	}
	if cfg.Ledger.InterruptedAfterMinutes != 60 {
		t.Errorf("interrupted after = %d, want default 60", cfg.Ledger.InterruptedAfterMinutes)
	}
}

func TestParseConfigInvalidYAML(t *testing.T) {
	_, err := parseConfig([]byte("provider: [not a mapping"), "test.yaml")
	if err == nil {
		t.Error("expected error for malformed YAML")
	}
}

func TestParseConfigValidation(t *testing.T) {
	_, err := parseConfig([]byte(`
provider:
  name: jira
  base_url: not-a-url
`), "test.yaml")
	if err == nil {
		t.Error("expected validation error for malformed base url")
	}

	_, err = parseConfig([]byte(`
provider:
  base_url: https://tracker.example.com
`), "test.yaml")
	if err == nil {
		t.Error("expected validation error for missing provider name")
	}
}

func TestSampleConfigParses(t *testing.T) {
	cfg, err := parseConfig(sampleConfig, "config.sample.yaml")
	if err != nil {
		t.Fatalf("embedded sample config does not parse: %v", err)
	}
	if cfg.Provider.Name == "" {
		t.Error("sample config has no provider name")
	}
}

func TestDurationAccessors(t *testing.T) {
	cfg, err := parseConfig([]byte(validYAML), "test.yaml")
	if err != nil {
		t.Fatalf("parseConfig failed: %v", err)
	}
	if cfg.TokenSafetyMargin().Minutes() != 10 {
		t.Errorf("TokenSafetyMargin = %v, want 10m", cfg.TokenSafetyMargin())
	}
	if cfg.InterruptedAfter().Minutes() != 60 {
		t.Errorf("InterruptedAfter = %v, want 1h", cfg.InterruptedAfter())
	}
}

func TestSetCustomConfigPath(t *testing.T) {
	original := customConfigPath
	defer func() { customConfigPath = original }()

	dir := t.TempDir()
	SetCustomConfigPath(dir)
	if customConfigPath != filepath.Join(dir, CONFIG_FILE_PATH) {
		t.Errorf("dir path: got %q", customConfigPath)
	}

	file := filepath.Join(dir, "my.yaml")
	if err := os.WriteFile(file, []byte("{}"), 0644); err != nil {
		t.Fatal(err)
	}
	SetCustomConfigPath(file)
	if customConfigPath != file {
		t.Errorf("file path: got %q", customConfigPath)
	}

	SetCustomConfigPath("")
	if customConfigPath != filepath.Join(".", CONFIG_DIR_PATH, CONFIG_FILE_PATH) {
		t.Errorf("empty path: got %q", customConfigPath)
	}
}

func TestConfigDataFromPathMissingFileFallsBack(t *testing.T) {
	data, err := configDataFromPath(filepath.Join(t.TempDir(), "nope.yaml"))
	if err != nil {
		t.Fatalf("configDataFromPath failed: %v", err)
	}
	if len(data) == 0 {
		t.Error("expected embedded sample as fallback")
	}
}

func TestWriteSampleConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")
	if err := WriteSampleConfig(path); err != nil {
		t.Fatalf("WriteSampleConfig failed: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("sample config not written: %v", err)
	}
	if _, err := parseConfig(data, path); err != nil {
		t.Errorf("written sample does not parse: %v", err)
	}
}
