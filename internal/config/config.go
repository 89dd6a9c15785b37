// Package config provides configuration management for hydra.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config represents the application configuration structure
type Config struct {
	NoColor        bool          `mapstructure:"no-color"`         // Disable host-colored prompts and markers
	SeparateOutput bool          `mapstructure:"separate-output"`  // Capture mode: whole per-host blocks instead of interleaved lines
	TerminalWidth  int           `mapstructure:"terminal-width"`   // Display width override (0 = auto-detect)
	AllowEmptyLine bool          `mapstructure:"allow-empty-line"` // Print blank output lines instead of suppressing them
	CursorControl  bool          `mapstructure:"cursor-control"`   // Pass cursor-control sequences through unmodified
	DefaultKey     string        `mapstructure:"default-key"`      // Default SSH private key path
	HostTags       string        `mapstructure:"host-tags"`        // Tag filter for the hosts file
	ConnectTimeout time.Duration `mapstructure:"connect-timeout"`  // Per-attempt connection timeout
	ConnectRetries int           `mapstructure:"connect-retries"`  // Connection retry attempts after the first
	LogLevel       string        `mapstructure:"log-level"`        // Log level (info, error)
	LogFormat      string        `mapstructure:"log-format"`       // Log format (json, text)
}

// Manager defines the interface for configuration management
type Manager interface {
	// Load reads configuration from all sources (file, env vars)
	Load() (*Config, error)

	// SetDefaults establishes default configuration values
	SetDefaults()

	// Validate ensures configuration values are valid and consistent
	Validate(config *Config) error
}

// ViperManager implements the Manager interface using Viper
type ViperManager struct {
	v *viper.Viper
}

// NewManager creates a new configuration manager
func NewManager() Manager {
	return &ViperManager{
		v: viper.New(),
	}
}

// SetDefaults establishes default configuration values
func (m *ViperManager) SetDefaults() {
	m.v.SetDefault("no-color", false)
	m.v.SetDefault("separate-output", false)
	m.v.SetDefault("terminal-width", 0)
	m.v.SetDefault("allow-empty-line", false)
	m.v.SetDefault("cursor-control", false)
	m.v.SetDefault("default-key", "")
	m.v.SetDefault("host-tags", "")
	m.v.SetDefault("connect-timeout", 10*time.Second)
	m.v.SetDefault("connect-retries", 2)
	m.v.SetDefault("log-level", "error")
	m.v.SetDefault("log-format", "text")
}

// Load reads configuration from defaults, an optional config file under
// ~/.config/hydra, and HYDRA_ environment variables, in rising precedence.
func (m *ViperManager) Load() (*Config, error) {
	m.SetDefaults()

	m.v.SetConfigName("config")
	m.v.AddConfigPath(".")
	if homeDir, err := os.UserHomeDir(); err == nil {
		m.v.AddConfigPath(filepath.Join(homeDir, ".config", "hydra"))
	}

	m.v.SetEnvPrefix("HYDRA")
	m.v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	m.v.AutomaticEnv()

	m.v.SetConfigType("yaml")
	if err := m.v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var config Config
	if err := m.v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	if err := m.Validate(&config); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return &config, nil
}

// Validate ensures configuration values are valid and consistent
func (m *ViperManager) Validate(config *Config) error {
	if config.TerminalWidth < 0 {
		return fmt.Errorf("terminal-width must be non-negative, got %d", config.TerminalWidth)
	}

	if config.ConnectTimeout <= 0 {
		return fmt.Errorf("connect-timeout must be positive, got %v", config.ConnectTimeout)
	}

	if config.ConnectRetries < 0 {
		return fmt.Errorf("connect-retries must be non-negative, got %d", config.ConnectRetries)
	}

	validLogLevels := map[string]bool{
		"info":  true,
		"error": true,
	}
	if !validLogLevels[config.LogLevel] {
		return fmt.Errorf("invalid log level '%s': must be one of 'info' or 'error'", config.LogLevel)
	}

	validLogFormats := map[string]bool{
		"json": true,
		"text": true,
	}
	if !validLogFormats[config.LogFormat] {
		return fmt.Errorf("invalid log format '%s': must be one of 'json' or 'text'", config.LogFormat)
	}

	return nil
}
