// Package config provides application configuration management with support for environment variables, command-line flags, and .env files.
package config

import (
	"bufio"
	"errors"
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
	Server  ServerConfig
	Storage StorageConfig
	Auth    AuthConfig
	Google  GoogleConfig
	Mail    MailConfig
	Redis   RedisConfig
}

// AppConfig holds application-level configuration.
type AppConfig struct {
	Environment string
	// ClientURL is the web client origin, used for CORS and links in emails.
	ClientURL string
}

// IsProduction reports whether the app runs in the production environment.
func (a AppConfig) IsProduction() bool {
	return a.Environment == "production"
}

// LoggerConfig holds logging configuration.
type LoggerConfig struct {
	Level string
}

// ServerConfig holds server configuration.
type ServerConfig struct {
	Name         string
	Host         string        // Bind address (default: all interfaces)
	Port         string        // Server port (default: 5000)
	ReadTimeout  time.Duration // HTTP read timeout (default: 15s)
	WriteTimeout time.Duration // HTTP write timeout (default: 15s)
	IdleTimeout  time.Duration // HTTP idle timeout (default: 60s)
}

// Addr returns the listen address.
func (s ServerConfig) Addr() string {
	return s.Host + ":" + s.Port
}

// StorageConfig holds on-disk storage configuration.
type StorageConfig struct {
	// DataPath holds the badger store, the sqlite audit log, the search
	// index and the token key.
	DataPath string
}

// BadgerPath returns the directory of the document store.
func (s StorageConfig) BadgerPath() string { return filepath.Join(s.DataPath, "badger") }

// AuditPath returns the sqlite moderation log file.
func (s StorageConfig) AuditPath() string { return filepath.Join(s.DataPath, "audit.db") }

// SearchPath returns the search index directory.
func (s StorageConfig) SearchPath() string { return filepath.Join(s.DataPath, "search") }

// AuthConfig holds authentication configuration.
type AuthConfig struct {
	// TokenKey is the hex-encoded PASETO v4 symmetric key. Empty means the
	// key stored under the data path is used.
	TokenKey string
	// Token lifetimes
	AccessTokenDuration  time.Duration // e.g., 168h
	VerificationDuration time.Duration // email verification link lifetime
	ResetDuration        time.Duration // password reset link lifetime
}

// GoogleConfig holds Google sign-in configuration.
type GoogleConfig struct {
	// ClientID is the expected audience of Google ID tokens. Empty disables
	// Google sign-in.
	ClientID string
}

// Mail providers.
const (
	MailProviderLog  = "log"
	MailProviderSMTP = "smtp"
	MailProviderSES  = "ses"
)

// MailConfig holds outbound notification configuration.
type MailConfig struct {
	Provider     string // log, smtp or ses
	From         string
	SMTPHost     string
	SMTPPort     int
	SMTPUser     string
	SMTPPassword string
	SESRegion    string
	QueueSize    int // Pending messages before new ones are dropped
}

// RedisConfig holds the feed cache connection. Empty Addr disables caching.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
	FeedTTL  time.Duration
}

// LoadConfig loads configuration from the process command line.
// See Load for precedence.
func LoadConfig() (*Config, error) {
	return Load(flag.CommandLine, os.Args[1:])
}

// Load loads configuration from multiple sources with precedence:
// 1. Command-line flags (highest priority).
// 2. Environment variables.
// 3. .env file.
// 4. Default values (lowest priority).
//
// Callers may register their own flags on fs before calling Load.
func Load(fs *flag.FlagSet, args []string) (*Config, error) {
	env := fs.String("env", "", "Environment (development, staging, production)")
	logLevel := fs.String("log-level", "", "Log level (debug, info, warn, error)")
	dataPath := fs.String("data-path", "", "Directory for databases and keys")
	clientURL := fs.String("client-url", "", "Web client origin")

	// Auth flags
	accessTokenDuration := fs.String("access-token-duration", "", "Access token lifetime (e.g., 168h)")

	// Server flags
	serverHost := fs.String("host", "", "Bind address")
	serverPort := fs.String("port", "", "Server port (default: 5000)")
	readTimeout := fs.String("read-timeout", "", "HTTP read timeout (default: 15s)")
	writeTimeout := fs.String("write-timeout", "", "HTTP write timeout (default: 15s)")
	idleTimeout := fs.String("idle-timeout", "", "HTTP idle timeout (default: 60s)")

	// Integration flags
	mailProvider := fs.String("mail-provider", "", "Notification transport (log, smtp, ses)")
	redisAddr := fs.String("redis-addr", "", "Redis address for the feed cache (empty disables)")

	envFile := fs.String("env-file", ".env", "Path to .env file")

	if err := fs.Parse(args); err != nil {
		return nil, fmt.Errorf("parse flags: %w", err)
	}

	// Load .env file if it exists (silently ignore if not found).
	_ = loadEnvFile(*envFile)

	cfg := &Config{
		App: AppConfig{
			Environment: getConfigValue(*env, "ENV", "development"),
			ClientURL:   strings.TrimRight(getConfigValue(*clientURL, "CLIENT_URL", "http://localhost:3000"), "/"),
		},
		Logger: LoggerConfig{
			Level: getConfigValue(*logLevel, "LOG_LEVEL", "info"),
		},
		Server: ServerConfig{
			Name: getConfigValue("", "SERVER_NAME", "RecipeBook"),
			Host: getConfigValue(*serverHost, "SERVER_HOST", ""),
			Port: getConfigValue(*serverPort, "PORT", "5000"),
		},
		Storage: StorageConfig{
			DataPath: getConfigValue(*dataPath, "DATA_PATH", ""),
		},
		Auth: AuthConfig{
			TokenKey: getConfigValue("", "AUTH_TOKEN_KEY", ""),
		},
		Google: GoogleConfig{
			ClientID: getConfigValue("", "GOOGLE_CLIENT_ID", ""),
		},
		Mail: MailConfig{
			Provider:     strings.ToLower(getConfigValue(*mailProvider, "MAIL_PROVIDER", MailProviderLog)),
			From:         getConfigValue("", "MAIL_FROM", "RecipeBook <no-reply@recipebook.local>"),
			SMTPHost:     getConfigValue("", "SMTP_HOST", ""),
			SMTPPort:     getIntConfigValue("", "SMTP_PORT", 587),
			SMTPUser:     getConfigValue("", "SMTP_USER", ""),
			SMTPPassword: getConfigValue("", "SMTP_PASSWORD", ""),
			SESRegion:    getConfigValue("", "SES_REGION", "us-east-1"),
			QueueSize:    getIntConfigValue("", "MAIL_QUEUE_SIZE", 100),
		},
		Redis: RedisConfig{
			Addr:     getConfigValue(*redisAddr, "REDIS_ADDR", ""),
			Password: getConfigValue("", "REDIS_PASSWORD", ""),
			DB:       getIntConfigValue("", "REDIS_DB", 0),
		},
	}

	durations := []struct {
		flagValue string
		envKey    string
		def       string
		dest      *time.Duration
	}{
		{*accessTokenDuration, "ACCESS_TOKEN_DURATION", "168h", &cfg.Auth.AccessTokenDuration},
		{"", "VERIFICATION_TOKEN_DURATION", "24h", &cfg.Auth.VerificationDuration},
		{"", "RESET_TOKEN_DURATION", "1h", &cfg.Auth.ResetDuration},
		{*readTimeout, "SERVER_READ_TIMEOUT", "15s", &cfg.Server.ReadTimeout},
		{*writeTimeout, "SERVER_WRITE_TIMEOUT", "15s", &cfg.Server.WriteTimeout},
		{*idleTimeout, "SERVER_IDLE_TIMEOUT", "60s", &cfg.Server.IdleTimeout},
		{"", "REDIS_FEED_TTL", "5m", &cfg.Redis.FeedTTL},
	}
	for _, d := range durations {
		raw := getConfigValue(d.flagValue, d.envKey, d.def)
		parsed, err := time.ParseDuration(raw)
		if err != nil {
			return nil, fmt.Errorf("invalid %s %q: %w", strings.ToLower(d.envKey), raw, err)
		}
		*d.dest = parsed
	}

	if err := cfg.expandDataPath(); err != nil {
		return nil, fmt.Errorf("invalid data path: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// Validate checks that all required config values are present and valid.
func (c *Config) Validate() error {
	if c.App.Environment == "" {
		return errors.New("ENV is required")
	}

	validEnvs := map[string]bool{
		"development": true,
		"staging":     true,
		"production":  true,
	}
	if !validEnvs[c.App.Environment] {
		return fmt.Errorf("invalid environment: %s (must be development, staging, or production)", c.App.Environment)
	}

	validLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}
	if !validLevels[strings.ToLower(c.Logger.Level)] {
		return fmt.Errorf("invalid log level: %s (must be debug, info, warn, or error)", c.Logger.Level)
	}

	if c.Storage.DataPath == "" {
		return errors.New("data path cannot be empty after expansion")
	}

	switch c.Mail.Provider {
	case MailProviderLog, MailProviderSES:
	case MailProviderSMTP:
		if c.Mail.SMTPHost == "" {
			return errors.New("SMTP_HOST is required when MAIL_PROVIDER is smtp")
		}
	default:
		return fmt.Errorf("invalid mail provider: %s (must be log, smtp, or ses)", c.Mail.Provider)
	}

	return nil
}

// expandPath expands ~ and makes the path absolute.
// If path is empty and defaultPath is provided, uses the default.
func expandPath(path, defaultPath string) (string, error) {
	if path == "" {
		return defaultPath, nil
	}

	// Expand tilde.
	if strings.HasPrefix(path, "~/") {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("failed to get home directory: %w", err)
		}
		path = filepath.Join(homeDir, path[2:])
	}

	// Make absolute if needed.
	if !filepath.IsAbs(path) {
		absPath, err := filepath.Abs(path)
		if err != nil {
			return "", fmt.Errorf("failed to get absolute path: %w", err)
		}
		path = absPath
	}

	return filepath.Clean(path), nil
}

// expandDataPath expands ~ and makes the path absolute.
// Defaults to ~/RecipeBook/data.
func (c *Config) expandDataPath() error {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return fmt.Errorf("failed to get home directory: %w", err)
	}
	defaultPath := filepath.Join(homeDir, "RecipeBook", "data")

	expanded, err := expandPath(c.Storage.DataPath, defaultPath)
	if err != nil {
		return err
	}
	c.Storage.DataPath = expanded
	return nil
}

// getConfigValue returns the first non-empty value from flag, env var, or default.
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
		value := strings.TrimSpace(parts[1])

		// Remove quotes if present.
		value = strings.Trim(value, `"'`)

		// Only set if not already set (env vars take precedence over .env file).
		if os.Getenv(key) == "" {
			if err := os.Setenv(key, value); err != nil {
				return fmt.Errorf("failed to set env var %s: %w", key, err)
			}
		}
	}

	return scanner.Err()
}
