package config

import (
	"flag"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig() *Config {
	return &Config{
		App:     AppConfig{Environment: "development"},
		Logger:  LoggerConfig{Level: "info"},
		Storage: StorageConfig{DataPath: "/some/path"},
		Mail:    MailConfig{Provider: MailProviderLog},
	}
}

func TestValidate_ValidConfig(t *testing.T) {
	assert.NoError(t, validConfig().Validate())
}

func TestValidate_AllEnvironments(t *testing.T) {
	tests := []struct {
		env   string
		valid bool
	}{
		{"development", true},
		{"staging", true},
		{"production", true},
		{"test", false},
		{"", false},
		{"DEVELOPMENT", false}, // case sensitive
	}

	for _, tt := range tests {
		t.Run(tt.env, func(t *testing.T) {
			cfg := validConfig()
			cfg.App.Environment = tt.env

			err := cfg.Validate()
			if tt.valid {
				assert.NoError(t, err)
			} else {
				assert.Error(t, err)
			}
		})
	}
}

func TestValidate_AllLogLevels(t *testing.T) {
	tests := []struct {
		level string
		valid bool
	}{
		{"debug", true},
		{"info", true},
		{"WARN", true},
		{"error", true},
		{"trace", false},
	}

	for _, tt := range tests {
		t.Run(tt.level, func(t *testing.T) {
			cfg := validConfig()
			cfg.Logger.Level = tt.level

			err := cfg.Validate()
			if tt.valid {
				assert.NoError(t, err)
			} else {
				assert.Error(t, err)
			}
		})
	}
}

func TestValidate_EmptyDataPath(t *testing.T) {
	cfg := validConfig()
	cfg.Storage.DataPath = ""

	err := cfg.Validate()
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "data path cannot be empty")
}

func TestValidate_MailProvider(t *testing.T) {
	cfg := validConfig()
	cfg.Mail.Provider = "carrier-pigeon"
	assert.Error(t, cfg.Validate())

	cfg.Mail.Provider = MailProviderSMTP
	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "SMTP_HOST")

	cfg.Mail.SMTPHost = "smtp.example.com"
	assert.NoError(t, cfg.Validate())

	cfg.Mail.Provider = MailProviderSES
	assert.NoError(t, cfg.Validate())
}

func TestExpandDataPath_EmptyUsesDefault(t *testing.T) {
	cfg := &Config{}

	err := cfg.expandDataPath()
	require.NoError(t, err)

	homeDir, _ := os.UserHomeDir() //nolint:errcheck // Test setup
	expected := filepath.Join(homeDir, "RecipeBook", "data")
	assert.Equal(t, expected, cfg.Storage.DataPath)
}

func TestExpandDataPath_TildeExpansion(t *testing.T) {
	cfg := &Config{Storage: StorageConfig{DataPath: "~/my-data"}}

	err := cfg.expandDataPath()
	require.NoError(t, err)

	homeDir, _ := os.UserHomeDir() //nolint:errcheck // Test setup
	assert.Equal(t, filepath.Join(homeDir, "my-data"), cfg.Storage.DataPath)
}

func TestExpandDataPath_RelativePath(t *testing.T) {
	cfg := &Config{Storage: StorageConfig{DataPath: "relative/path"}}

	err := cfg.expandDataPath()
	require.NoError(t, err)

	assert.True(t, filepath.IsAbs(cfg.Storage.DataPath))
	assert.Contains(t, cfg.Storage.DataPath, "relative/path")
}

func TestStoragePaths(t *testing.T) {
	s := StorageConfig{DataPath: "/data"}

	assert.Equal(t, "/data/badger", s.BadgerPath())
	assert.Equal(t, "/data/audit.db", s.AuditPath())
	assert.Equal(t, "/data/search", s.SearchPath())
}

func TestLoad_FlagsOverrideEnv(t *testing.T) {
	t.Setenv("ENV", "staging")
	t.Setenv("PORT", "9000")
	t.Setenv("REDIS_FEED_TTL", "30s")
	t.Setenv("AUTH_TOKEN_KEY", "abc123")

	fs := flag.NewFlagSet("test", flag.ContinueOnError)
	cfg, err := Load(fs, []string{
		"-port", "7000",
		"-data-path", t.TempDir(),
		"-env-file", filepath.Join(t.TempDir(), "missing.env"),
		"-client-url", "https://recipes.example.com/",
	})
	require.NoError(t, err)

	assert.Equal(t, "staging", cfg.App.Environment)
	assert.Equal(t, "7000", cfg.Server.Port)
	assert.Equal(t, "https://recipes.example.com", cfg.App.ClientURL)
	assert.Equal(t, 30*time.Second, cfg.Redis.FeedTTL)
	assert.Equal(t, 168*time.Hour, cfg.Auth.AccessTokenDuration)
	assert.Equal(t, MailProviderLog, cfg.Mail.Provider)
	assert.Equal(t, "abc123", cfg.Auth.TokenKey)
	assert.False(t, cfg.App.IsProduction())
}

func TestLoad_InvalidDuration(t *testing.T) {
	t.Setenv("RESET_TOKEN_DURATION", "soon")

	fs := flag.NewFlagSet("test", flag.ContinueOnError)
	_, err := Load(fs, []string{"-data-path", t.TempDir(), "-env-file", filepath.Join(t.TempDir(), "none")})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "reset_token_duration")
}

func TestGetConfigValue_Precedence(t *testing.T) {
	// Test flag value takes priority.
	result := getConfigValue("flag-value", "ENV_KEY", "default-value")
	assert.Equal(t, "flag-value", result)

	t.Setenv("TEST_ENV_KEY", "env-value")
	result = getConfigValue("", "TEST_ENV_KEY", "default-value")
	assert.Equal(t, "env-value", result)

	// Test default when both are empty.
	result = getConfigValue("", "NONEXISTENT_KEY", "default-value")
	assert.Equal(t, "default-value", result)
}

func TestGetIntConfigValue(t *testing.T) {
	t.Setenv("TEST_INT", "42")
	assert.Equal(t, 42, getIntConfigValue("", "TEST_INT", 1))

	t.Setenv("TEST_INT", "not-a-number")
	assert.Equal(t, 1, getIntConfigValue("", "TEST_INT", 1))
}

func TestLoadEnvFile_ValidFile(t *testing.T) {
	tmpDir := t.TempDir()
	envFile := filepath.Join(tmpDir, ".env")

	content := `# Test env file
LOG_LEVEL=debug
DATA_PATH=/test/path
# Comment line
QUOTED_VALUE="some value"
SINGLE_QUOTED='another value'
`
	err := os.WriteFile(envFile, []byte(content), 0o644)
	require.NoError(t, err)

	for _, key := range []string{"LOG_LEVEL", "DATA_PATH", "QUOTED_VALUE", "SINGLE_QUOTED"} {
		t.Setenv(key, "")
	}

	err = loadEnvFile(envFile)
	require.NoError(t, err)

	assert.Equal(t, "debug", os.Getenv("LOG_LEVEL"))
	assert.Equal(t, "/test/path", os.Getenv("DATA_PATH"))
	assert.Equal(t, "some value", os.Getenv("QUOTED_VALUE"))
	assert.Equal(t, "another value", os.Getenv("SINGLE_QUOTED"))
}

func TestLoadEnvFile_InvalidFormat(t *testing.T) {
	tmpDir := t.TempDir()
	envFile := filepath.Join(tmpDir, ".env")

	content := `VALID_KEY=valid_value
INVALID LINE WITHOUT EQUALS
`
	err := os.WriteFile(envFile, []byte(content), 0o644)
	require.NoError(t, err)

	err = loadEnvFile(envFile)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "invalid format")
}

func TestLoadEnvFile_ExistingEnvVarsNotOverwritten(t *testing.T) {
	t.Setenv("TEST_VAR", "original-value")

	tmpDir := t.TempDir()
	envFile := filepath.Join(tmpDir, ".env")
	require.NoError(t, os.WriteFile(envFile, []byte(`TEST_VAR=new-value`), 0o644))

	require.NoError(t, loadEnvFile(envFile))

	assert.Equal(t, "original-value", os.Getenv("TEST_VAR"))
}
