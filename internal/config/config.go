// Package config manages the engine configuration: a YAML file under
// the user config directory, overridable through CLIPVAULT_* environment
// variables.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"gopkg.in/yaml.v3"
)

// Config is the externally supplied configuration surface.
type Config struct {
	// DataDir holds the database file, the external blob directory, and
	// the legacy history file. Empty means the platform default.
	DataDir string `yaml:"data_dir,omitempty"`

	LogLevel string `yaml:"log_level"`

	// EnableExternalStorage routes payloads above LargeFileThreshold to
	// the blob directory. Toggling either triggers a bulk migration
	// pass, not a lazy one.
	EnableExternalStorage bool  `yaml:"enable_external_storage"`
	LargeFileThreshold    int64 `yaml:"large_file_threshold"`

	MaxHistoryCount     int  `yaml:"max_history_count"`
	CountCleanupEnabled bool `yaml:"count_cleanup_enabled"`

	MaxAgeDays        int  `yaml:"max_age_days"`
	AgeCleanupEnabled bool `yaml:"age_cleanup_enabled"`
}

// DefaultConfig returns the defaults applied when keys are missing.
func DefaultConfig() *Config {
	return &Config{
		LogLevel:              "info",
		EnableExternalStorage: true,
		LargeFileThreshold:    1 << 20, // 1 MiB
		MaxHistoryCount:       10000,
		CountCleanupEnabled:   true,
		MaxAgeDays:            30,
		AgeCleanupEnabled:     false,
	}
}

// Validate checks the configuration bounds.
func (c *Config) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.LogLevel, validation.In("debug", "info", "warn", "error")),
		validation.Field(&c.LargeFileThreshold, validation.Required, validation.Min(int64(1))),
		validation.Field(&c.MaxHistoryCount, validation.Required, validation.Min(1), validation.Max(1000000)),
		validation.Field(&c.MaxAgeDays, validation.Min(0)),
	)
}

// StorageSettingsChanged reports whether the hybrid-storage settings
// differ from prev, which means a bulk migration pass is due.
func (c *Config) StorageSettingsChanged(prev *Config) bool {
	return c.EnableExternalStorage != prev.EnableExternalStorage ||
		c.LargeFileThreshold != prev.LargeFileThreshold
}

// DatabasePath, BlobDir, and LegacyHistoryPath locate the engine's files
// under the data directory.
func (c *Config) DatabasePath() string {
	return filepath.Join(c.DataDir, "clipvault.db")
}

func (c *Config) BlobDir() string {
	return filepath.Join(c.DataDir, "large_files")
}

func (c *Config) LegacyHistoryPath() string {
	return filepath.Join(c.DataDir, "history.yaml")
}

// Manager loads and saves the configuration file.
type Manager struct {
	configPath string
}

// NewManager returns a manager for the default config location,
// ~/.config/clipvault/config.yaml.
func NewManager() (*Manager, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("config: resolve home directory: %w", err)
	}
	return &Manager{
		configPath: filepath.Join(homeDir, ".config", "clipvault", "config.yaml"),
	}, nil
}

// NewManagerWithPath returns a manager for a custom config file path.
func NewManagerWithPath(configPath string) *Manager {
	return &Manager{configPath: configPath}
}

// Path returns the config file path.
func (m *Manager) Path() string {
	return m.configPath
}

// Load reads the configuration, layering file values over the defaults
// and environment overrides over both. A missing file is not an error.
func (m *Manager) Load() (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(m.configPath)
	if err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("config: read %s: %w", m.configPath, err)
	}
	if err == nil {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("config: parse %s: %w", m.configPath, err)
		}
	}

	if err := applyEnv(cfg); err != nil {
		return nil, err
	}
	if cfg.DataDir == "" {
		dir, err := defaultDataDir()
		if err != nil {
			return nil, err
		}
		cfg.DataDir = dir
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config: invalid configuration: %w", err)
	}
	return cfg, nil
}

// Save writes the configuration file, creating its directory if needed.
func (m *Manager) Save(cfg *Config) error {
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("config: invalid configuration: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(m.configPath), 0o755); err != nil {
		return fmt.Errorf("config: create config directory: %w", err)
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("config: marshal: %w", err)
	}
	if err := os.WriteFile(m.configPath, data, 0o644); err != nil {
		return fmt.Errorf("config: write %s: %w", m.configPath, err)
	}
	return nil
}

func defaultDataDir() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("config: resolve home directory: %w", err)
	}
	return filepath.Join(homeDir, ".local", "share", "clipvault"), nil
}

func applyEnv(cfg *Config) error {
	if v := os.Getenv("CLIPVAULT_DATA_DIR"); v != "" {
		cfg.DataDir = v
	}
	if v := os.Getenv("CLIPVAULT_LOG_LEVEL"); v != "" {
		cfg.LogLevel = v
	}
	if err := envBool("CLIPVAULT_ENABLE_EXTERNAL_STORAGE", &cfg.EnableExternalStorage); err != nil {
		return err
	}
	if err := envInt64("CLIPVAULT_LARGE_FILE_THRESHOLD", &cfg.LargeFileThreshold); err != nil {
		return err
	}
	if err := envInt("CLIPVAULT_MAX_HISTORY_COUNT", &cfg.MaxHistoryCount); err != nil {
		return err
	}
	if err := envBool("CLIPVAULT_COUNT_CLEANUP_ENABLED", &cfg.CountCleanupEnabled); err != nil {
		return err
	}
	if err := envInt("CLIPVAULT_MAX_AGE_DAYS", &cfg.MaxAgeDays); err != nil {
		return err
	}
	return envBool("CLIPVAULT_AGE_CLEANUP_ENABLED", &cfg.AgeCleanupEnabled)
}

func envBool(key string, dst *bool) error {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	parsed, err := strconv.ParseBool(v)
	if err != nil {
		return fmt.Errorf("config: %s: %w", key, err)
	}
	*dst = parsed
	return nil
}

func envInt(key string, dst *int) error {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	parsed, err := strconv.Atoi(v)
	if err != nil {
		return fmt.Errorf("config: %s: %w", key, err)
	}
	*dst = parsed
	return nil
}

func envInt64(key string, dst *int64) error {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	parsed, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return fmt.Errorf("config: %s: %w", key, err)
	}
	*dst = parsed
	return nil
}
