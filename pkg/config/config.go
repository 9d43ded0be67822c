// Package config loads and persists the ropebwt tool configuration.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/ldenti/ropebwt2/pkg/rope"
)

// Config holds the settings shared by the CLI and the HTTP server.
type Config struct {
	Server  Server  `yaml:"server"`
	Rope    Rope    `yaml:"rope"`
	Logging Logging `yaml:"logging"`
}

// Server contains the HTTP server settings.
type Server struct {
	Bind   string `yaml:"bind"`
	Port   int    `yaml:"port"`
	APIKey string `yaml:"api_key"`
}

// Rope contains the default rope geometry for newly created indexes.
type Rope struct {
	MaxNodes int `yaml:"max_nodes"`
	BlockLen int `yaml:"block_len"`
}

// Logging contains logging configuration.
type Logging struct {
	Level string `yaml:"level"`
}

// DefaultConfig returns the defaults used when no file is present.
func DefaultConfig() *Config {
	return &Config{
		Server: Server{
			Bind: "127.0.0.1",
			Port: 8080,
		},
		Rope: Rope{
			MaxNodes: rope.DefaultMaxNodes,
			BlockLen: rope.DefaultBlockLen,
		},
		Logging: Logging{
			Level: "info",
		},
	}
}

// LoadConfig reads a configuration file.
func LoadConfig(configPath string) (*Config, error) {
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return nil, fmt.Errorf("config file does not exist: %s", configPath)
	}

	if !filepath.IsAbs(configPath) {
		absPath, err := filepath.Abs(configPath)
		if err != nil {
			return nil, fmt.Errorf("invalid config path: %w", err)
		}
		configPath = absPath
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := DefaultConfig()
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	return config, nil
}

// SaveConfig writes the configuration with restrictive permissions.
func SaveConfig(config *Config, configPath string) error {
	configDir := filepath.Dir(configPath)
	if err := os.MkdirAll(configDir, 0750); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(config)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(configPath, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// GetDefaultConfigPath returns the per-user default configuration path.
func GetDefaultConfigPath() string {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "./ropebwt.yaml"
	}
	return filepath.Join(homeDir, ".config", "ropebwt", "config.yaml")
}

// ConfigExists checks whether a configuration file exists.
func ConfigExists(configPath string) bool {
	_, err := os.Stat(configPath)
	return !os.IsNotExist(err)
}
