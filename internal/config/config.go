package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/emmett/lens/internal/ocr"

	"gopkg.in/yaml.v3"
)

// SystemConfigPath is consulted when no explicit or user config exists
var SystemConfigPath = "/etc/lens/config.yaml"

// UserConfigName is the config file looked up in the home directory
const UserConfigName = ".lensrc"

// Config represents the application configuration
type Config struct {
	// Recognition settings passed to EasyOCR on every run
	Recognition ocr.Settings `yaml:"recognition"`

	// Output settings
	Output struct {
		Format string `yaml:"format"`
		File   string `yaml:"file"`
	} `yaml:"output"`

	// Models settings
	Models struct {
		// AutoDownload fetches missing weights before the first run
		AutoDownload bool `yaml:"auto_download"`
	} `yaml:"models"`

	// Server settings
	Server struct {
		GRPCPort int    `yaml:"grpc_port"`
		HTTPAddr string `yaml:"http_addr"`

		// RateLimit caps recognition runs per second (0 = unlimited)
		RateLimit float64 `yaml:"rate_limit"`
		RateBurst int     `yaml:"rate_burst"`
	} `yaml:"server"`
}

// DefaultConfig returns a configuration with default values
func DefaultConfig() *Config {
	cfg := &Config{}

	cfg.Recognition = ocr.DefaultSettings()

	// Output defaults
	cfg.Output.Format = "console"
	cfg.Output.File = ""

	cfg.Models.AutoDownload = false

	// Server defaults
	cfg.Server.GRPCPort = 50051
	cfg.Server.HTTPAddr = ":8080"
	cfg.Server.RateLimit = 0
	cfg.Server.RateBurst = 1

	return cfg
}

// Settings returns a snapshot of the recognition settings
func (c *Config) Settings() ocr.Settings {
	return c.Recognition
}

// Validate checks the configuration for values that cannot work
func (c *Config) Validate() error {
	if err := c.Recognition.Validate(); err != nil {
		return fmt.Errorf("recognition: %w", err)
	}

	switch c.Output.Format {
	case "console", "json", "text", "tsv":
	default:
		return fmt.Errorf("output: unknown format %q", c.Output.Format)
	}

	if c.Server.GRPCPort < 0 || c.Server.GRPCPort > 65535 {
		return fmt.Errorf("server: invalid grpc_port %d", c.Server.GRPCPort)
	}
	if c.Server.RateLimit < 0 {
		return fmt.Errorf("server: rate_limit must not be negative")
	}

	return nil
}

// Load loads configuration from file
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	return Parse(data)
}

// Parse decodes a yaml document over the defaults. Environment variables
// are expanded and unknown keys are rejected.
func Parse(data []byte) (*Config, error) {
	cfg := DefaultConfig()

	data = []byte(os.ExpandEnv(string(data)))

	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)

	if err := decoder.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// LoadWithFallback attempts to load configuration from multiple locations
// Priority: explicit path > ~/.lensrc > /etc/lens/config.yaml
func LoadWithFallback(explicitPath string) (*Config, error) {
	// If explicit path is provided, use it
	if explicitPath != "" {
		return Load(explicitPath)
	}

	if path := UserConfigPath(); path != "" {
		if _, err := os.Stat(path); err == nil {
			return Load(path)
		}
	}

	if _, err := os.Stat(SystemConfigPath); err == nil {
		return Load(SystemConfigPath)
	}

	// No config file found, return defaults
	return DefaultConfig(), nil
}

// UserConfigPath returns ~/.lensrc, or "" when the home directory is unknown
func UserConfigPath() string {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(homeDir, UserConfigName)
}

// Save saves the configuration to a file
func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	// Create directory if it doesn't exist
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// Init writes the default configuration to path, or to UserConfigPath when
// path is empty, and returns where it was written. An existing file is
// never overwritten.
func Init(path string) (string, error) {
	if path == "" {
		path = UserConfigPath()
	}
	if path == "" {
		return "", errors.New("cannot determine home directory for config file")
	}

	if _, err := os.Stat(path); err == nil {
		return path, fmt.Errorf("config file already exists: %s", path)
	} else if !errors.Is(err, os.ErrNotExist) {
		return path, fmt.Errorf("failed to check config file: %w", err)
	}

	if err := DefaultConfig().Save(path); err != nil {
		return path, err
	}
	return path, nil
}
