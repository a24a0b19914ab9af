// Package config loads readtrac settings in layers: struct defaults, an
// optional YAML file, then environment variables. .env files are read first
// and never override variables already set in the process environment.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"

	"readtrac/internal/auth"
	"readtrac/internal/database"
	"readtrac/internal/logging"
	"readtrac/internal/platform/cache"
	"readtrac/internal/platform/googlebooks"
)

const (
	// PathEnvVar overrides the config file location.
	PathEnvVar  = "CONFIG_PATH"
	DefaultPath = "readtrac.yaml"
	EnvPrefix   = "READTRAC_"
)

type Config struct {
	Server   ServerConfig    `koanf:"server"`
	Database database.Config `koanf:"database"`
	Logging  logging.Config  `koanf:"logging"`
	Auth     auth.Config     `koanf:"auth"`
	Catalog  CatalogConfig   `koanf:"catalog"`
	Cache    cache.Config    `koanf:"cache"`
}

type ServerConfig struct {
	Addr            string        `koanf:"addr"`
	CORSOrigins     []string      `koanf:"cors_origins"`
	EnableHSTS      bool          `koanf:"enable_hsts"`
	MaxBodyBytes    int64         `koanf:"max_body_bytes"`
	RateLimitRPS    float64       `koanf:"rate_limit_rps"`
	RateLimitBurst  int           `koanf:"rate_limit_burst"`
	ReadTimeout     time.Duration `koanf:"read_timeout"`
	WriteTimeout    time.Duration `koanf:"write_timeout"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`
}

// CatalogConfig enables the Google Books client.
type CatalogConfig struct {
	Enabled     bool               `koanf:"enabled"`
	GoogleBooks googlebooks.Config `koanf:"google_books"`
}

func defaults() Config {
	return Config{
		Server: ServerConfig{
			Addr:            ":8080",
			CORSOrigins:     []string{"*"},
			MaxBodyBytes:    1 << 20,
			RateLimitRPS:    10,
			RateLimitBurst:  20,
			ReadTimeout:     10 * time.Second,
			WriteTimeout:    30 * time.Second,
			ShutdownTimeout: 10 * time.Second,
		},
		Database: database.Config{
			Driver:       string(database.BackendSQLite),
			Path:         "data/readtrac.db",
			QueryTimeout: 5 * time.Second,
		},
		// Format stays empty so the CLI can pick console output on a terminal.
		Logging: logging.Config{
			Level: "info",
		},
		Auth: auth.Config{
			TokenTTL: 24 * time.Hour,
		},
		Catalog: CatalogConfig{
			Enabled: true,
			GoogleBooks: googlebooks.Config{
				BaseURL:    googlebooks.DefaultBaseURL,
				UserAgent:  "readtrac/1.0",
				RPS:        5,
				MaxRetries: 3,
				Timeout:    15 * time.Second,
				CacheTTL:   6 * time.Hour,
				Breaker: googlebooks.BreakerConfig{
					FailureThreshold: 5,
					Timeout:          30 * time.Second,
					MaxRequests:      1,
				},
			},
		},
		Cache: cache.Config{
			Dir:        "data/cache",
			TTL:        6 * time.Hour,
			GCInterval: 10 * time.Minute,
		},
	}
}

// LoadEnvFiles reads .env and .env.local from the working directory.
// Variables already present in the environment win.
func LoadEnvFiles() {
	_ = godotenv.Load(".env")
	_ = godotenv.Load(".env.local")
}

// Load builds the configuration. path may be empty, in which case
// CONFIG_PATH and then readtrac.yaml are tried.
func Load(path string) (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(defaults(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("load defaults: %w", err)
	}

	if p := findFile(path); p != "" {
		if err := k.Load(file.Provider(p), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("load config file %s: %w", p, err)
		}
	} else if path != "" {
		return nil, fmt.Errorf("config file %s: %w", path, os.ErrNotExist)
	}

	if err := k.Load(env.Provider("", ".", envKey), nil); err != nil {
		return nil, fmt.Errorf("load environment: %w", err)
	}
	if err := splitList(k, "server.cors_origins"); err != nil {
		return nil, err
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func findFile(explicit string) string {
	if explicit != "" {
		if _, err := os.Stat(explicit); err == nil {
			return explicit
		}
		return ""
	}
	for _, p := range []string{os.Getenv(PathEnvVar), DefaultPath} {
		if p == "" {
			continue
		}
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	return ""
}

// nested maps env prefixes of sub-structs to their koanf paths, longest first.
var nested = []struct{ prefix, path string }{
	{"catalog_google_books_breaker_", "catalog.google_books.breaker."},
	{"catalog_google_books_", "catalog.google_books."},
}

var aliases = map[string]string{
	"DB_DSN":           "database.dsn",
	"JWT_SECRET":       "auth.jwt_secret",
	"GOOGLE_BOOKS_KEY": "catalog.google_books.api_key",
}

// envKey maps READTRAC_SERVER_CORS_ORIGINS to server.cors_origins. Returning
// "" drops the variable.
func envKey(key string) string {
	if alias, ok := aliases[key]; ok {
		return alias
	}
	if !strings.HasPrefix(key, EnvPrefix) {
		return ""
	}
	key = strings.ToLower(strings.TrimPrefix(key, EnvPrefix))

	for _, n := range nested {
		if rest, ok := strings.CutPrefix(key, n.prefix); ok {
			return n.path + rest
		}
	}
	section, rest, ok := strings.Cut(key, "_")
	if !ok {
		return ""
	}
	return section + "." + rest
}

// splitList turns a comma separated env value into a slice.
func splitList(k *koanf.Koanf, path string) error {
	raw, ok := k.Get(path).(string)
	if !ok {
		return nil
	}
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	if err := k.Set(path, out); err != nil {
		return fmt.Errorf("set %s: %w", path, err)
	}
	return nil
}

// Validate rejects settings the process cannot start with.
func (c *Config) Validate() error {
	var errs []error
	switch database.Backend(strings.ToLower(c.Database.Driver)) {
	case database.BackendSQLite:
		if c.Database.Path == "" {
			errs = append(errs, errors.New("database.path is required for sqlite"))
		}
	case database.BackendPostgres:
		if c.Database.DSN == "" {
			errs = append(errs, errors.New("database.dsn is required for postgres"))
		}
	default:
		errs = append(errs, fmt.Errorf("database.driver must be sqlite or postgres, got %q", c.Database.Driver))
	}
	if c.Server.Addr == "" {
		errs = append(errs, errors.New("server.addr is required"))
	}
	if c.Server.RateLimitRPS < 0 {
		errs = append(errs, errors.New("server.rate_limit_rps must not be negative"))
	}
	if (c.Auth.OwnerPasswordHash == "") != (c.Auth.JWTSecret == "") {
		errs = append(errs, errors.New("auth.owner_password_hash and auth.jwt_secret must be set together"))
	}
	if c.Auth.JWTSecret != "" && len(c.Auth.JWTSecret) < 32 {
		errs = append(errs, errors.New("auth.jwt_secret must be at least 32 characters"))
	}
	if c.Catalog.Enabled && c.Catalog.GoogleBooks.MaxRetries < 0 {
		errs = append(errs, errors.New("catalog.google_books.max_retries must not be negative"))
	}
	if len(errs) > 0 {
		return fmt.Errorf("invalid configuration: %w", errors.Join(errs...))
	}
	return nil
}
