// Package config loads the service configuration from the environment
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v10"
	"github.com/joho/godotenv"
)

// Config is the full service configuration
type Config struct {
	Environment string `env:"ENVIRONMENT" envDefault:"development"`
	LogLevel    string `env:"LOG_LEVEL" envDefault:"info"`

	Server    ServerConfig    `envPrefix:"SERVER_"`
	Database  DatabaseConfig  `envPrefix:"DB_"`
	Auth      AuthConfig
	Storage   StorageConfig   `envPrefix:"CLOUDINARY_"`
	Email     EmailConfig
	Redis     RedisConfig     `envPrefix:"REDIS_"`
	Positions PositionsConfig `envPrefix:"POSITIONS_"`
	RateLimit RateLimitConfig `envPrefix:"CONTACT_RATE_"`
}

// ServerConfig holds HTTP server settings
type ServerConfig struct {
	Port           string        `env:"PORT" envDefault:"8080"`
	ReadTimeout    time.Duration `env:"READ_TIMEOUT" envDefault:"15s"`
	WriteTimeout   time.Duration `env:"WRITE_TIMEOUT" envDefault:"30s"`
	IdleTimeout    time.Duration `env:"IDLE_TIMEOUT" envDefault:"60s"`
	UploadMaxBytes int           `env:"UPLOAD_MAX_BYTES" envDefault:"10485760"`
	// TrustProxy honours X-Forwarded-For and X-Real-IP. Only enable it
	// when every request arrives through a proxy that sets them.
	TrustProxy     bool          `env:"TRUST_PROXY" envDefault:"false"`
}

// DatabaseConfig holds database connection settings
type DatabaseConfig struct {
	Host            string        `env:"HOST" envDefault:"localhost"`
	Port            string        `env:"PORT" envDefault:"5432"`
	Username        string        `env:"USERNAME" envDefault:"postgres"`
	Password        string        `env:"PASSWORD" envDefault:"password"`
	Database        string        `env:"NAME" envDefault:"itic_portal"`
	SSLMode         string        `env:"SSLMODE" envDefault:"disable"`
	MaxOpenConns    int           `env:"MAX_OPEN_CONNS" envDefault:"25"`
	MaxIdleConns    int           `env:"MAX_IDLE_CONNS" envDefault:"5"`
	ConnMaxLifetime time.Duration `env:"CONN_MAX_LIFETIME" envDefault:"1h"`
	ConnMaxIdleTime time.Duration `env:"CONN_MAX_IDLE_TIME" envDefault:"30m"`
	RunMigration    bool          `env:"RUN_MIGRATION" envDefault:"false"`
}

// AuthConfig selects the identity provider and how session tokens are verified
type AuthConfig struct {
	Provider string `env:"IDP_PROVIDER" envDefault:"supabase"`

	SupabaseURL            string `env:"SUPABASE_URL"`
	SupabaseServiceRoleKey string `env:"SUPABASE_SERVICE_ROLE_KEY"`

	AsgardeoBaseURL      string   `env:"ASGARDEO_BASE_URL"`
	AsgardeoClientID     string   `env:"ASGARDEO_CLIENT_ID"`
	AsgardeoClientSecret string   `env:"ASGARDEO_CLIENT_SECRET"`
	AsgardeoScopes       []string `env:"ASGARDEO_SCOPES" envSeparator:" " envDefault:"internal_user_mgt_create internal_user_mgt_list internal_user_mgt_view internal_user_mgt_delete internal_user_mgt_update"`

	JWKSURL   string   `env:"JWT_JWKS_URL"`
	Issuer    string   `env:"JWT_ISSUER"`
	Audiences []string `env:"JWT_AUDIENCE" envSeparator:"," envDefault:"authenticated"`
	Secret    string   `env:"JWT_SECRET"`
}

// StorageConfig holds object storage credentials
type StorageConfig struct {
	CloudName string `env:"CLOUD_NAME"`
	APIKey    string `env:"API_KEY"`
	APISecret string `env:"API_SECRET"`
	Folder    string `env:"FOLDER" envDefault:"itic"`
}

// EmailConfig holds transactional email settings
type EmailConfig struct {
	ResendAPIKey string   `env:"RESEND_API_KEY"`
	From         string   `env:"CONTACT_NOTIFY_FROM" envDefault:"ITIC Website <noreply@itic.pt>"`
	To           []string `env:"CONTACT_NOTIFY_TO" envSeparator:","`
}

// RedisConfig holds the audit stream connection settings.
// An empty address disables auditing.
type RedisConfig struct {
	Addr        string `env:"ADDR"`
	Password    string `env:"PASSWORD"`
	DB          int    `env:"DB" envDefault:"0"`
	AuditStream string `env:"AUDIT_STREAM" envDefault:"audit-events"`
}

// PositionsConfig points at the optional position classification file
type PositionsConfig struct {
	ConfigPath string `env:"CONFIG_PATH" envDefault:"config/positions.yaml"`
}

// RateLimitConfig bounds public contact submissions per client
type RateLimitConfig struct {
	Limit  int           `env:"LIMIT" envDefault:"5"`
	Window time.Duration `env:"WINDOW" envDefault:"1m"`
}

// Load reads an optional .env file and parses the environment
func Load() (*Config, error) {
	// .env is optional; absence is not an error
	_ = godotenv.Load()
	return Parse(env.Options{})
}

// Parse parses the configuration with the given options. Tests pass an
// explicit Environment map.
func Parse(opts env.Options) (*Config, error) {
	cfg := &Config{}
	if err := env.ParseWithOptions(cfg, opts); err != nil {
		return nil, fmt.Errorf("failed to parse configuration: %w", err)
	}
	cfg.Auth.applyProviderDefaults()
	return cfg, nil
}

// applyProviderDefaults derives token verification endpoints from the
// provider base URL when they were not set explicitly.
func (a *AuthConfig) applyProviderDefaults() {
	switch a.Provider {
	case "supabase":
		base := strings.TrimSuffix(a.SupabaseURL, "/")
		if base == "" {
			return
		}
		if a.JWKSURL == "" && a.Secret == "" {
			a.JWKSURL = base + "/auth/v1/.well-known/jwks.json"
		}
		if a.Issuer == "" {
			a.Issuer = base + "/auth/v1"
		}
	case "asgardeo":
		base := strings.TrimSuffix(a.AsgardeoBaseURL, "/")
		if base == "" {
			return
		}
		if a.JWKSURL == "" && a.Secret == "" {
			a.JWKSURL = base + "/oauth2/jwks"
		}
		if a.Issuer == "" {
			a.Issuer = base + "/oauth2/token"
		}
	}
}

// Validate reports every missing required setting at once
func (c *Config) Validate() error {
	var errs []error
	if c.Database.Host == "" {
		errs = append(errs, errors.New("DB_HOST is required"))
	}
	switch c.Auth.Provider {
	case "supabase":
		if c.Auth.SupabaseURL == "" {
			errs = append(errs, errors.New("SUPABASE_URL is required"))
		}
		if c.Auth.SupabaseServiceRoleKey == "" {
			errs = append(errs, errors.New("SUPABASE_SERVICE_ROLE_KEY is required"))
		}
	case "asgardeo":
		if c.Auth.AsgardeoBaseURL == "" || c.Auth.AsgardeoClientID == "" || c.Auth.AsgardeoClientSecret == "" {
			errs = append(errs, errors.New("ASGARDEO_BASE_URL, ASGARDEO_CLIENT_ID and ASGARDEO_CLIENT_SECRET are required"))
		}
	default:
		errs = append(errs, fmt.Errorf("unsupported IDP_PROVIDER %q", c.Auth.Provider))
	}
	if c.Auth.JWKSURL == "" && c.Auth.Secret == "" {
		errs = append(errs, errors.New("one of JWT_JWKS_URL or JWT_SECRET is required"))
	}
	return errors.Join(errs...)
}

// StorageConfigured reports whether real storage credentials are present.
// Placeholder values copied from an example env file count as missing.
func (s StorageConfig) StorageConfigured() bool {
	return !IsPlaceholder(s.CloudName) && !IsPlaceholder(s.APIKey) && !IsPlaceholder(s.APISecret)
}

// IsPlaceholder reports whether v is empty or an obvious template value
func IsPlaceholder(v string) bool {
	v = strings.ToLower(strings.TrimSpace(v))
	if v == "" || v == "changeme" || v == "xxx" {
		return true
	}
	return strings.HasPrefix(v, "your_") || strings.HasPrefix(v, "your-") ||
		(strings.HasPrefix(v, "<") && strings.HasSuffix(v, ">"))
}
