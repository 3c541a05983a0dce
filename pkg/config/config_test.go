package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testConfig struct {
	Port     int    `env:"TEST_CFG_PORT" envDefault:"8080"`
	Host     string `env:"TEST_CFG_HOST" envDefault:"localhost"`
	LogLevel string `env:"TEST_CFG_LOG_LEVEL" envDefault:"info"`
	Debug    bool   `env:"TEST_CFG_DEBUG" envDefault:"false"`
}

func TestLoad_Defaults(t *testing.T) {
	var cfg testConfig
	err := Load(&cfg)

	require.NoError(t, err)
	assert.Equal(t, 8080, cfg.Port)
	assert.Equal(t, "localhost", cfg.Host)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.False(t, cfg.Debug)
}

func TestLoad_FromEnvVars(t *testing.T) {
	t.Setenv("TEST_CFG_PORT", "9090")
	t.Setenv("TEST_CFG_HOST", "0.0.0.0")
	t.Setenv("TEST_CFG_LOG_LEVEL", "debug")
	t.Setenv("TEST_CFG_DEBUG", "true")

	var cfg testConfig
	err := Load(&cfg)

	require.NoError(t, err)
	assert.Equal(t, 9090, cfg.Port)
	assert.Equal(t, "0.0.0.0", cfg.Host)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.True(t, cfg.Debug)
}

type requiredConfig struct {
	GoogleSecret string `env:"TEST_CFG_GOOGLE_SECRET,required"`
}

func TestLoad_RequiredFieldMissing(t *testing.T) {
	var cfg requiredConfig
	err := Load(&cfg)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "parse config")
}

func TestLoad_RequiredFieldPresent(t *testing.T) {
	t.Setenv("TEST_CFG_GOOGLE_SECRET", "secret-123")

	var cfg requiredConfig
	err := Load(&cfg)

	require.NoError(t, err)
	assert.Equal(t, "secret-123", cfg.GoogleSecret)
}

func TestLoad_InvalidType(t *testing.T) {
	t.Setenv("TEST_CFG_PORT", "not-a-number")

	var cfg testConfig
	err := Load(&cfg)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "parse config")
}

type dotenvConfig struct {
	ClientID string `env:"TEST_CFG_DOTENV_CLIENT_ID"`
	Scope    string `env:"TEST_CFG_DOTENV_SCOPE" envDefault:"openid"`
}

func writeDotenv(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	t.Cleanup(func() {
		os.Unsetenv("TEST_CFG_DOTENV_CLIENT_ID")
		os.Unsetenv("TEST_CFG_DOTENV_SCOPE")
	})
	return path
}

func TestLoad_DotenvFile(t *testing.T) {
	path := writeDotenv(t, "TEST_CFG_DOTENV_CLIENT_ID=from-file\nTEST_CFG_DOTENV_SCOPE=email profile\n")

	var cfg dotenvConfig
	require.NoError(t, Load(&cfg, path))

	assert.Equal(t, "from-file", cfg.ClientID)
	assert.Equal(t, "email profile", cfg.Scope)
}

func TestLoad_ProcessEnvWinsOverDotenv(t *testing.T) {
	path := writeDotenv(t, "TEST_CFG_DOTENV_CLIENT_ID=from-file\n")
	t.Setenv("TEST_CFG_DOTENV_CLIENT_ID", "from-env")

	var cfg dotenvConfig
	require.NoError(t, Load(&cfg, path))

	assert.Equal(t, "from-env", cfg.ClientID)
}

func TestLoad_MissingDotenvIsSkipped(t *testing.T) {
	var cfg dotenvConfig
	err := Load(&cfg, filepath.Join(t.TempDir(), "absent.env"))

	require.NoError(t, err)
	assert.Equal(t, "openid", cfg.Scope)
}
