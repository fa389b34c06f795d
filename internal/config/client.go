package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/adrg/xdg"
	"github.com/goccy/go-json"
)

// ClientConfig holds the CLI configuration.
type ClientConfig struct {
	ServerURL   string
	Token       string
	Owner       string
	DataPath    string
	LogLevel    string
	LogFile     string
	HTTPTimeout time.Duration

	// CredentialsPath is where login stores the token.
	CredentialsPath string
}

// ClientFlags carries the values of the CLI's persistent flags. Empty
// fields fall through to the environment.
type ClientFlags struct {
	ServerURL   string
	Token       string
	Owner       string
	DataPath    string
	LogLevel    string
	HTTPTimeout string
	EnvFile     string
}

// RecordsPath is the Badger directory for local records.
func (c *ClientConfig) RecordsPath() string {
	return filepath.Join(c.DataPath, "records")
}

// CursorPath is the SQLite file holding sync cursors.
func (c *ClientConfig) CursorPath() string {
	return filepath.Join(c.DataPath, "cursor.db")
}

// LoadClientConfig resolves the CLI configuration with precedence:
// 1. Command-line flags (highest priority).
// 2. Environment variables (LISTO_*).
// 3. .env file.
// 4. Credentials saved by login.
// 5. Default values (lowest priority).
func LoadClientConfig(flags ClientFlags) (*ClientConfig, error) {
	envFile := flags.EnvFile
	if envFile == "" {
		envFile = ".env"
	}
	_ = loadEnvFile(envFile)

	cfg := &ClientConfig{
		ServerURL:       getConfigValue(flags.ServerURL, "LISTO_SERVER_URL", ""),
		Token:           getConfigValue(flags.Token, "LISTO_TOKEN", ""),
		Owner:           getConfigValue(flags.Owner, "LISTO_OWNER", ""),
		DataPath:        getConfigValue(flags.DataPath, "LISTO_DATA_PATH", ""),
		LogLevel:        getConfigValue(flags.LogLevel, "LISTO_LOG_LEVEL", "info"),
		LogFile:         getConfigValue("", "LISTO_LOG_FILE", filepath.Join(xdg.StateHome, appDir, "listo.log")),
		CredentialsPath: getConfigValue("", "LISTO_CREDENTIALS", filepath.Join(xdg.ConfigHome, appDir, "credentials.json")),
	}

	var err error
	if cfg.HTTPTimeout, err = getDurationConfigValue(flags.HTTPTimeout, "LISTO_HTTP_TIMEOUT", "30s"); err != nil {
		return nil, fmt.Errorf("invalid HTTP timeout: %w", err)
	}

	creds, err := LoadCredentials(cfg.CredentialsPath)
	if err != nil {
		return nil, err
	}
	if creds != nil {
		if cfg.ServerURL == "" {
			cfg.ServerURL = creds.ServerURL
		}
		if cfg.Token == "" {
			cfg.Token = creds.Token
		}
		if cfg.Owner == "" {
			cfg.Owner = creds.Owner
		}
	}

	if cfg.ServerURL == "" {
		cfg.ServerURL = "http://localhost:8080"
	}

	expanded, err := expandPath(cfg.DataPath, filepath.Join(xdg.DataHome, appDir))
	if err != nil {
		return nil, fmt.Errorf("invalid data path: %w", err)
	}
	cfg.DataPath = expanded

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return cfg, nil
}

// Validate checks the client configuration.
func (c *ClientConfig) Validate() error {
	if err := validateLogLevel(c.LogLevel); err != nil {
		return err
	}
	if c.DataPath == "" {
		return errors.New("data path cannot be empty after expansion")
	}
	if !strings.HasPrefix(c.ServerURL, "http://") && !strings.HasPrefix(c.ServerURL, "https://") {
		return fmt.Errorf("invalid server URL: %s (must start with http:// or https://)", c.ServerURL)
	}
	if c.HTTPTimeout <= 0 {
		return errors.New("HTTP timeout must be positive")
	}
	return nil
}

// Credentials is what login remembers between runs.
type Credentials struct {
	ServerURL string `json:"server_url"`
	Token     string `json:"token"`
	Owner     string `json:"owner"`
	ExpiresAt int64  `json:"expires_at,omitempty"`
}

// LoadCredentials reads saved credentials. A missing file is not an error.
func LoadCredentials(path string) (*Credentials, error) {
	data, err := os.ReadFile(path) //#nosec G304 -- path comes from config
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("read credentials: %w", err)
	}

	var creds Credentials
	if err := json.Unmarshal(data, &creds); err != nil {
		return nil, fmt.Errorf("parse credentials %s: %w", path, err)
	}
	return &creds, nil
}

// SaveCredentials writes creds readable by the current user only.
func SaveCredentials(path string, creds *Credentials) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}
	data, err := json.MarshalIndent(creds, "", "  ")
	if err != nil {
		return fmt.Errorf("encode credentials: %w", err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("write credentials: %w", err)
	}
	return nil
}

// ClearCredentials removes saved credentials.
func ClearCredentials(path string) error {
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("remove credentials: %w", err)
	}
	return nil
}
