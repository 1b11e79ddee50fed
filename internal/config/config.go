// Package config handles environment configuration loading.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	_ "github.com/joho/godotenv/autoload"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/v2"
	"github.com/rs/zerolog"
)

// Environment names accepted in APP_ENV.
const (
	EnvDevelopment = "development"
	EnvStaging     = "staging"
	EnvProduction  = "production"
)

// Config holds all configuration values for the application.
type Config struct {
	Environment string `koanf:"app_env" validate:"required,oneof=development staging production"`
	Port        string `koanf:"port" validate:"required,numeric"`

	DatabaseURL string `koanf:"database_url" validate:"required"`

	RedisAddr     string `koanf:"redis_addr"`
	RedisPassword string `koanf:"redis_password"`
	RedisDB       int    `koanf:"redis_db" validate:"gte=0"`

	JWTSecret                string `koanf:"jwt_secret_key" validate:"required,min=16"`
	AccessTokenExpireMinutes int    `koanf:"access_token_expire_minutes" validate:"gt=0"`
	RefreshTokenExpireDays   int    `koanf:"refresh_token_expire_days" validate:"gt=0"`

	AllowedOrigins string `koanf:"backend_cors_origins"`
	BackendURL     string `koanf:"backend_url" validate:"required,url"`
	FrontendURL    string `koanf:"frontend_url" validate:"required,url"`

	GitHubClientID     string `koanf:"github_client_id"`
	GitHubClientSecret string `koanf:"github_client_secret"`
	GitHubCallbackURL  string `koanf:"github_callback_url" validate:"omitempty,url"`

	OTLPEndpoint string `koanf:"otlp_endpoint"`

	// TrustProxyHeaders takes the client address from X-Forwarded-For and
	// X-Real-IP. Enable only behind a proxy that overwrites them.
	TrustProxyHeaders bool `koanf:"trust_proxy_headers"`
}

// defaults returns a Config pre-populated with values used when the
// corresponding variable is absent.
func defaults() *Config {
	return &Config{
		Environment:              EnvProduction,
		Port:                     "8080",
		RedisAddr:                "localhost:6379",
		AccessTokenExpireMinutes: 15,
		RefreshTokenExpireDays:   7,
		AllowedOrigins:           "*",
	}
}

// Load reads configuration from environment variables (and a .env file when
// present), validates it and exits the process on failure.
func Load() *Config {
	logger := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger()

	cfg, err := LoadFromEnv()
	if err != nil {
		logger.Fatal().Err(err).Msg("invalid configuration")
	}
	return cfg
}

// LoadFromEnv builds and validates a Config from the process environment.
func LoadFromEnv() (*Config, error) {
	k := koanf.New(".")

	known := knownKeys()
	err := k.Load(env.ProviderWithValue("", ".", func(name, value string) (string, interface{}) {
		key := strings.ToLower(name)
		if _, ok := known[key]; !ok || value == "" {
			return "", nil
		}
		return key, value
	}), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to load environment: %w", err)
	}

	cfg := defaults()
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if cfg.GitHubCallbackURL == "" && cfg.BackendURL != "" {
		cfg.GitHubCallbackURL = strings.TrimRight(cfg.BackendURL, "/") + "/api/v1/auth/github/callback"
	}

	if err := validator.New().Struct(cfg); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// knownKeys lists the koanf keys the Config struct understands.
func knownKeys() map[string]struct{} {
	keys := []string{
		"app_env", "port", "database_url", "redis_addr", "redis_password", "redis_db",
		"jwt_secret_key", "access_token_expire_minutes", "refresh_token_expire_days",
		"backend_cors_origins", "backend_url", "frontend_url",
		"github_client_id", "github_client_secret", "github_callback_url", "otlp_endpoint",
		"trust_proxy_headers",
	}
	m := make(map[string]struct{}, len(keys))
	for _, key := range keys {
		m[key] = struct{}{}
	}
	return m
}

// IsDevelopment reports whether the service runs in development mode.
func (c *Config) IsDevelopment() bool {
	return c.Environment == EnvDevelopment
}

// IsProduction reports whether the service runs in production mode.
func (c *Config) IsProduction() bool {
	return c.Environment == EnvProduction
}

// CORSOrigins returns the comma separated BACKEND_CORS_ORIGINS as a list.
func (c *Config) CORSOrigins() []string {
	var origins []string
	for _, origin := range strings.Split(c.AllowedOrigins, ",") {
		if origin = strings.TrimSpace(origin); origin != "" {
			origins = append(origins, origin)
		}
	}
	return origins
}

// AccessTokenTTL returns the access token lifetime.
func (c *Config) AccessTokenTTL() time.Duration {
	return time.Duration(c.AccessTokenExpireMinutes) * time.Minute
}

// RefreshTokenTTL returns the refresh token lifetime.
func (c *Config) RefreshTokenTTL() time.Duration {
	return time.Duration(c.RefreshTokenExpireDays) * 24 * time.Hour
}

// GetAddr returns the full address string for the server.
func (c *Config) GetAddr() string {
	return ":" + c.Port
}
