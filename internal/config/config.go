package config

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"tracksync/internal/utils"

	_ "embed"
)

var configOnce sync.Once

var globalConfig *Config

var customConfigPath string // Custom config path set via --config flag

//go:embed config.sample.yaml
var sampleConfig []byte

const (
	CONFIG_DIR_PATH  = "tracksync"
	CONFIG_FILE_PATH = "config.yaml"
	CONFIG_DIR_PERM  = 0755
	CONFIG_FILE_PERM = 0644
)

// Config represents the application configuration
type Config struct {
	Provider ProviderConfig `yaml:"provider" validate:"required"`
	Database DatabaseConfig `yaml:"database"`
	Sync     SyncConfig     `yaml:"sync"`
	Ledger   LedgerConfig   `yaml:"ledger"`
}

// ProviderConfig describes the remote tracker and its OAuth application
type ProviderConfig struct {
	Name    string `yaml:"name" validate:"required"`
	BaseURL string `yaml:"base_url" validate:"required,url"`
	AuthURL string `yaml:"auth_url" validate:"omitempty,url"`

	// Fallback app credential; the env and keyring take priority
	ClientID     string `yaml:"client_id"`
	ClientSecret string `yaml:"client_secret"`
}

// DatabaseConfig locates the local store
type DatabaseConfig struct {
	Path string `yaml:"path"`
}

// SyncConfig tunes the sync flows
type SyncConfig struct {
	TokenSafetyMarginMinutes int        `yaml:"token_safety_margin_minutes" validate:"min=0,max=1440"`
	PageSize                 int        `yaml:"page_size" validate:"min=0,max=100"`
	DefaultRole              string     `yaml:"default_role"`
	Jobs                     JobsConfig `yaml:"jobs"`
}

// JobsConfig sets the daemon's job intervals
type JobsConfig struct {
	UserImportIntervalHours   int `yaml:"user_import_interval_hours" validate:"min=0"`
	ProjectSyncIntervalHours  int `yaml:"project_sync_interval_hours" validate:"min=0"`
	TaskSyncIntervalHours     int `yaml:"task_sync_interval_hours" validate:"min=0"`
	TokenSweepIntervalMinutes int `yaml:"token_sweep_interval_minutes" validate:"min=0"`
}

// LedgerConfig tunes sync run reporting
type LedgerConfig struct {
	InterruptedAfterMinutes int `yaml:"interrupted_after_minutes" validate:"min=0"`
}

// applyDefaults fills zero values with working defaults
func (c *Config) applyDefaults() {
	if c.Provider.AuthURL == "" {
		c.Provider.AuthURL = c.Provider.BaseURL
	}
	if c.Sync.TokenSafetyMarginMinutes == 0 {
		c.Sync.TokenSafetyMarginMinutes = 10
	}
	if c.Sync.PageSize == 0 {
		c.Sync.PageSize = 50
	}
	if c.Sync.DefaultRole == "" {
		c.Sync.DefaultRole = "member"
	}
	if c.Sync.Jobs.UserImportIntervalHours == 0 {
		c.Sync.Jobs.UserImportIntervalHours = 24
	}
	if c.Sync.Jobs.ProjectSyncIntervalHours == 0 {
		c.Sync.Jobs.ProjectSyncIntervalHours = 6
	}
	if c.Sync.Jobs.TaskSyncIntervalHours == 0 {
		c.Sync.Jobs.TaskSyncIntervalHours = 12
	}
	if c.Sync.Jobs.TokenSweepIntervalMinutes == 0 {
		c.Sync.Jobs.TokenSweepIntervalMinutes = 60
	}
	if c.Ledger.InterruptedAfterMinutes == 0 {
		c.Ledger.InterruptedAfterMinutes = 60
	}
}

func (c Config) Validate() error {
	validate := validator.New()
	if err := validate.Struct(c); err != nil {
		return err
	}
	return nil
}

// TokenSafetyMargin returns the refresh margin as a duration
func (c *Config) TokenSafetyMargin() time.Duration {
	return time.Duration(c.Sync.TokenSafetyMarginMinutes) * time.Minute
}

// InterruptedAfter returns the stale-run threshold as a duration
func (c *Config) InterruptedAfter() time.Duration {
	return time.Duration(c.Ledger.InterruptedAfterMinutes) * time.Minute
}

// SetCustomConfigPath sets a custom config path to use instead of the
// default user config directory.
// If path is empty or ".", it uses "./tracksync/config.yaml".
// If path is a directory, it looks for "config.yaml" inside it.
// If path is a file, it uses that file directly.
// This must be called before GetConfig() is called for the first time.
func SetCustomConfigPath(path string) {
	if path == "" || path == "." {
		customConfigPath = filepath.Join(".", CONFIG_DIR_PATH, CONFIG_FILE_PATH)
	} else {
		info, err := os.Stat(path)
		if err == nil && info.IsDir() {
			customConfigPath = filepath.Join(path, CONFIG_FILE_PATH)
		} else {
			customConfigPath = path
		}
	}
}

func GetConfig() *Config {
	configOnce.Do(func() {
		config, err := loadUserOrSampleConfig()
		if err != nil {
			log.Fatal(err)
		}
		globalConfig = config
	})
	return globalConfig
}

func loadUserOrSampleConfig() (*Config, error) {
	configPath, err := GetConfigPath()
	if err != nil {
		return nil, err
	}
	// A path the operator pointed at explicitly must exist; only the
	// default location silently falls back to the embedded sample.
	if customConfigPath != "" {
		if _, statErr := os.Stat(configPath); os.IsNotExist(statErr) {
			return nil, utils.ErrConfigFileNotFound(configPath)
		}
	}
	configData, err := configDataFromPath(configPath)
	if err != nil {
		return nil, err
	}
	return parseConfig(configData, configPath)
}

func GetConfigPath() (string, error) {
	// If a custom config path was set, use it even when the file does
	// not exist yet; that allows creating a config there.
	if customConfigPath != "" {
		return customConfigPath, nil
	}

	dir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("failed to get user config dir: %w", err)
	}
	return filepath.Join(dir, CONFIG_DIR_PATH, CONFIG_FILE_PATH), nil
}

func createConfigDir(configPath string) error {
	return os.MkdirAll(filepath.Dir(configPath), CONFIG_DIR_PERM)
}

func WriteConfigFile(configPath string, data []byte) error {
	return os.WriteFile(configPath, data, CONFIG_FILE_PERM)
}

// WriteSampleConfig materializes the embedded sample at configPath
func WriteSampleConfig(configPath string) error {
	if err := createConfigDir(configPath); err != nil {
		return err
	}
	return WriteConfigFile(configPath, sampleConfig)
}

func parseConfig(configData []byte, configPath string) (*Config, error) {
	var configObj Config
	if err := yaml.Unmarshal(configData, &configObj); err != nil {
		return nil, utils.WrapWithSuggestion(
			fmt.Errorf("invalid YAML in config file %s: %w", configPath, err),
			"Fix the syntax error or regenerate the file with 'tracksync config init'",
		)
	}

	configObj.applyDefaults()

	if err := configObj.Validate(); err != nil {
		return nil, utils.ErrInvalidConfig(configPath, err.Error())
	}
	return &configObj, nil
}

func configDataFromPath(configPath string) ([]byte, error) {
	configData, err := os.ReadFile(configPath)
	if os.IsNotExist(err) {
		// A daemon must come up without prompting: run on the embedded
		// sample and tell the operator where the real file belongs.
		utils.Warnf("no config at %s, using built-in defaults", configPath)
		return sampleConfig, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read config %s: %w", configPath, err)
	}
	return configData, nil
}
