package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// chdir runs the test from an empty directory so no stray readtrac.yaml or
// .env is picked up.
func chdir(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Chdir(dir)
	return dir
}

func TestLoad_Defaults(t *testing.T) {
	chdir(t)
	t.Setenv(PathEnvVar, "")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.Server.Addr)
	assert.Equal(t, []string{"*"}, cfg.Server.CORSOrigins)
	assert.Equal(t, "sqlite", cfg.Database.Driver)
	assert.Equal(t, 5*time.Second, cfg.Database.QueryTimeout)
	assert.True(t, cfg.Catalog.Enabled)
	assert.EqualValues(t, 5, cfg.Catalog.GoogleBooks.Breaker.FailureThreshold)
	assert.Equal(t, 6*time.Hour, cfg.Catalog.GoogleBooks.CacheTTL)
	assert.False(t, cfg.Auth.Enabled())
}

func TestLoad_FileThenEnv(t *testing.T) {
	dir := chdir(t)
	path := filepath.Join(dir, "custom.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
server:
  addr: ":9000"
  cors_origins: ["https://a.example", "https://b.example"]
database:
  driver: postgres
  dsn: postgres://file
catalog:
  google_books:
    timeout: 3s
    breaker:
      failure_threshold: 9
`), 0o644))

	t.Setenv(PathEnvVar, path)
	t.Setenv("READTRAC_DATABASE_DSN", "postgres://env")
	t.Setenv("READTRAC_CATALOG_GOOGLE_BOOKS_MAX_RETRIES", "7")
	t.Setenv("READTRAC_LOGGING_LEVEL", "debug")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, ":9000", cfg.Server.Addr)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.Server.CORSOrigins)
	assert.Equal(t, "postgres://env", cfg.Database.DSN, "env wins over file")
	assert.Equal(t, 3*time.Second, cfg.Catalog.GoogleBooks.Timeout)
	assert.EqualValues(t, 9, cfg.Catalog.GoogleBooks.Breaker.FailureThreshold)
	assert.Equal(t, 7, cfg.Catalog.GoogleBooks.MaxRetries)
	assert.Equal(t, "debug", cfg.Logging.Level)
}

func TestLoad_EnvList(t *testing.T) {
	chdir(t)
	t.Setenv(PathEnvVar, "")
	t.Setenv("READTRAC_SERVER_CORS_ORIGINS", "https://a.example, https://b.example,")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.Server.CORSOrigins)
}

func TestLoad_MissingExplicitFile(t *testing.T) {
	chdir(t)
	t.Setenv(PathEnvVar, "")
	_, err := Load("nope.yaml")
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestLoad_Invalid(t *testing.T) {
	chdir(t)
	t.Setenv(PathEnvVar, "")
	t.Setenv("READTRAC_DATABASE_DRIVER", "postgres")
	t.Setenv("READTRAC_AUTH_JWT_SECRET", "short")

	_, err := Load("")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "database.dsn is required")
	assert.Contains(t, err.Error(), "must be set together")
	assert.Contains(t, err.Error(), "at least 32 characters")
}

func TestEnvKey(t *testing.T) {
	tests := []struct{ in, want string }{
		{"READTRAC_SERVER_ADDR", "server.addr"},
		{"READTRAC_SERVER_RATE_LIMIT_RPS", "server.rate_limit_rps"},
		{"READTRAC_AUTH_OWNER_PASSWORD_HASH", "auth.owner_password_hash"},
		{"READTRAC_CATALOG_ENABLED", "catalog.enabled"},
		{"READTRAC_CATALOG_GOOGLE_BOOKS_API_KEY", "catalog.google_books.api_key"},
		{"READTRAC_CATALOG_GOOGLE_BOOKS_BREAKER_TIMEOUT", "catalog.google_books.breaker.timeout"},
		{"DB_DSN", "database.dsn"},
		{"HOME", ""},
		{"READTRAC_", ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, envKey(tt.in), tt.in)
	}
}

func TestLoadEnvFiles_DoesNotOverrideExistingEnv(t *testing.T) {
	dir := chdir(t)
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte("READTRAC_SERVER_ADDR=:1111\nREADTRAC_LOGGING_FORMAT=console\n"), 0o644))

	t.Setenv("READTRAC_SERVER_ADDR", ":2222")
	t.Setenv("READTRAC_LOGGING_FORMAT", "")
	os.Unsetenv("READTRAC_LOGGING_FORMAT")

	LoadEnvFiles()
	t.Cleanup(func() { os.Unsetenv("READTRAC_LOGGING_FORMAT") })

	assert.Equal(t, ":2222", os.Getenv("READTRAC_SERVER_ADDR"))
	assert.Equal(t, "console", os.Getenv("READTRAC_LOGGING_FORMAT"))
}
