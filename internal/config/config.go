// Package config provides application configuration management with support for
// environment variables, command-line flags, and .env files.
package config

import (
	"bufio"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// Config holds the application configuration.
type Config struct {
	App     AppConfig
	Logger  LoggerConfig
	Storage StorageConfig
	Remote  RemoteConfig
	Sync    SyncConfig
	Server  ServerConfig
}

// AppConfig holds application-level configuration.
type AppConfig struct {
	Environment string
}

// LoggerConfig holds logging configuration.
type LoggerConfig struct {
	Level string
}

// StorageConfig holds local durable store configuration.
type StorageConfig struct {
	// DataPath is the base directory for the local database and search index.
	// Defaults to ~/.shelfmark when unset.
	DataPath string
}

// RemoteConfig holds remote sync endpoint configuration.
type RemoteConfig struct {
	// BaseURL of the Shelfmark server, e.g. https://sync.example.com
	BaseURL string
	// Token is the bearer token for the sync API. Token issuance and refresh
	// are handled outside this process.
	Token string
	// UserID scopes settings and snapshots on the multi-tenant remote. A
	// local-only install keeps the default.
	UserID string
	// Timeout bounds every remote call so a stalled push or pull surfaces as
	// a sync error instead of wedging the syncing flag.
	Timeout time.Duration
	// RequestsPerSecond / Burst feed the outbound rate limiter.
	RequestsPerSecond float64
	Burst             int
	// RetryAttempts bounds the retry loop around push/pull calls.
	RetryAttempts int
}

// SyncConfig holds sync manager configuration.
type SyncConfig struct {
	// Lookback is the changes window requested when no checkpoint exists yet.
	Lookback time.Duration
	// Interval between background sync attempts; 0 disables the ticker and
	// leaves only the connectivity and explicit triggers.
	Interval time.Duration
	// ProbeInterval paces the connectivity watcher that syncs as soon as the
	// remote becomes reachable again; 0 disables it.
	ProbeInterval time.Duration
}

// ServerConfig holds the local control API configuration.
type ServerConfig struct {
	Port         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
}

// LoadConfig loads configuration from multiple sources with precedence:
// 1. Command-line flags (highest priority).
// 2. Environment variables.
// 3. .env file.
// 4. Default values (lowest priority).
func LoadConfig() (*Config, error) {
	// A fresh FlagSet keeps LoadConfig re-entrant for tests.
	fs := flag.NewFlagSet("shelfmark", flag.ContinueOnError)
	env := fs.String("env", "", "Environment (development, staging, production)")
	logLevel := fs.String("log-level", "", "Log level (debug, info, warn, error)")
	dataPath := fs.String("data-path", "", "Base path for local data storage")
	remoteURL := fs.String("remote-url", "", "Shelfmark server base URL")
	remoteToken := fs.String("remote-token", "", "Bearer token for the sync API")
	remoteUser := fs.String("remote-user", "", "User ID on the sync endpoint (default: local)")
	remoteTimeout := fs.String("remote-timeout", "", "Remote call timeout (default: 30s)")
	syncInterval := fs.String("sync-interval", "", "Background sync interval, 0 to disable (default: 15m)")
	serverPort := fs.String("port", "", "Local control API port (default: 8484)")
	envFile := fs.String("env-file", "", "Path to .env file")

	if err := fs.Parse(os.Args[1:]); err != nil {
		return nil, fmt.Errorf("parse flags: %w", err)
	}

	// Load .env file if it exists (silently ignore if not found).
	envFilePath := *envFile
	if envFilePath == "" {
		envFilePath = ".env"
	}
	_ = loadEnvFile(envFilePath)

	cfg := &Config{
		App: AppConfig{
			Environment: getConfigValue(*env, "ENV", "development"),
		},
		Logger: LoggerConfig{
			Level: getConfigValue(*logLevel, "LOG_LEVEL", "info"),
		},
		Storage: StorageConfig{
			DataPath: getConfigValue(*dataPath, "DATA_PATH", defaultDataPath()),
		},
		Remote: RemoteConfig{
			BaseURL:           getConfigValue(*remoteURL, "REMOTE_URL", ""),
			Token:             getConfigValue(*remoteToken, "REMOTE_TOKEN", ""),
			UserID:            getConfigValue(*remoteUser, "REMOTE_USER_ID", "local"),
			RequestsPerSecond: 2.0,
			Burst:             4,
			RetryAttempts:     getIntConfigValue("", "REMOTE_RETRY_ATTEMPTS", 3),
		},
		Server: ServerConfig{
			Port: getConfigValue(*serverPort, "SERVER_PORT", "8484"),
		},
	}

	var err error
	cfg.Remote.Timeout, err = parseDurationValue(*remoteTimeout, "REMOTE_TIMEOUT", "30s")
	if err != nil {
		return nil, err
	}
	cfg.Sync.Interval, err = parseDurationValue(*syncInterval, "SYNC_INTERVAL", "15m")
	if err != nil {
		return nil, err
	}
	cfg.Sync.Lookback, err = parseDurationValue("", "SYNC_LOOKBACK", "24h")
	if err != nil {
		return nil, err
	}
	cfg.Sync.ProbeInterval, err = parseDurationValue("", "SYNC_PROBE_INTERVAL", "30s")
	if err != nil {
		return nil, err
	}
	cfg.Server.ReadTimeout, err = parseDurationValue("", "SERVER_READ_TIMEOUT", "15s")
	if err != nil {
		return nil, err
	}
	cfg.Server.WriteTimeout, err = parseDurationValue("", "SERVER_WRITE_TIMEOUT", "15s")
	if err != nil {
		return nil, err
	}
	cfg.Server.IdleTimeout, err = parseDurationValue("", "SERVER_IDLE_TIMEOUT", "60s")
	if err != nil {
		return nil, err
	}

	return cfg, nil
}

// defaultDataPath returns ~/.shelfmark, falling back to the working directory
// when the home directory cannot be determined.
func defaultDataPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".shelfmark"
	}
	return filepath.Join(home, ".shelfmark")
}

// parseDurationValue resolves a duration with the usual precedence and parses it.
func parseDurationValue(flagValue, envKey, defaultValue string) (time.Duration, error) {
	raw := getConfigValue(flagValue, envKey, defaultValue)
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", strings.ToLower(envKey), raw, err)
	}
	return d, nil
}

// getConfigValue returns a string from flag, env var, or default.
func getConfigValue(flagValue, envKey, defaultValue string) string {
	// Priority 1: Command-line flag.
	if flagValue != "" {
		return flagValue
	}

	// Priority 2: Environment variable.
	if envValue := os.Getenv(envKey); envValue != "" {
		return envValue
	}

	// Priority 3: Default value.
	return defaultValue
}

// getIntConfigValue returns an int from flag, env var, or default.
func getIntConfigValue(flagValue, envKey string, defaultValue int) int {
	strValue := getConfigValue(flagValue, envKey, "")
	if strValue == "" {
		return defaultValue
	}
	var result int
	if _, err := fmt.Sscanf(strValue, "%d", &result); err != nil {
		return defaultValue
	}
	return result
}

// loadEnvFile loads environment variables from a .env file.
// Format: KEY=value (one per line, # for comments).
func loadEnvFile(path string) error {
	file, err := os.Open(path) //#nosec G304 -- Config file path from user input is expected
	if err != nil {
		return err
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	lineNum := 0

	for scanner.Scan() {
		lineNum++
		line := strings.TrimSpace(scanner.Text())

		// Skip empty lines and comments.
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		// Parse KEY=value.
		parts := strings.SplitN(line, "=", 2)
		if len(parts) != 2 {
			return fmt.Errorf("invalid format at line %d: %s", lineNum, line)
		}

		key := strings.TrimSpace(parts[0])
		value := strings.Trim(strings.TrimSpace(parts[1]), `"'`)

		// Only set if not already set (env vars take precedence over .env file).
		if os.Getenv(key) == "" {
			if err := os.Setenv(key, value); err != nil {
				return fmt.Errorf("failed to set env var %s: %w", key, err)
			}
		}
	}

	return scanner.Err()
}
