package config

import (
	"errors"
	"fmt"
	"net"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// MinTokenSecretLength is the shortest accepted HMAC signing secret.
const MinTokenSecretLength = 32

// Config holds all application configuration
type Config struct {
	Server        ServerConfig        `envconfig:"SERVER"`
	Database      DatabaseConfig      `envconfig:"DB"`
	Redis         RedisConfig         `envconfig:"REDIS"`
	Token         TokenConfig         `envconfig:"TOKEN"`
	Observability ObservabilityConfig `envconfig:"OBS"`
	Security      SecurityConfig      `envconfig:"SECURITY"`
	RateLimit     RateLimitConfig     `envconfig:"RATELIMIT"`
	Bootstrap     BootstrapConfig     `envconfig:"BOOTSTRAP"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host            string        `envconfig:"HOST" default:"0.0.0.0"`
	Port            string        `envconfig:"PORT" default:"8080"`
	ReadTimeout     time.Duration `envconfig:"READ_TIMEOUT" default:"15s"`
	WriteTimeout    time.Duration `envconfig:"WRITE_TIMEOUT" default:"15s"`
	IdleTimeout     time.Duration `envconfig:"IDLE_TIMEOUT" default:"60s"`
	RequestTimeout  time.Duration `envconfig:"REQUEST_TIMEOUT" default:"30s"`
	ShutdownTimeout time.Duration `envconfig:"SHUTDOWN_TIMEOUT" default:"30s"`
	Production      bool          `envconfig:"PRODUCTION" default:"false"`
}

// Addr returns the listen address.
func (s ServerConfig) Addr() string {
	return net.JoinHostPort(s.Host, s.Port)
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	Host            string        `envconfig:"HOST" default:"localhost"`
	Port            string        `envconfig:"PORT" default:"5432"`
	User            string        `envconfig:"USER" default:"guildboard"`
	Password        string        `envconfig:"PASSWORD"`
	Database        string        `envconfig:"NAME" default:"guildboard"`
	SSLMode         string        `envconfig:"SSLMODE" default:"disable"`
	MaxOpenConns    int           `envconfig:"MAX_OPEN_CONNS" default:"25"`
	MaxIdleConns    int           `envconfig:"MAX_IDLE_CONNS" default:"5"`
	ConnMaxLifetime time.Duration `envconfig:"CONN_MAX_LIFETIME" default:"5m"`
}

// RedisConfig holds the refresh-session store configuration
type RedisConfig struct {
	Addr     string `envconfig:"ADDR" default:"127.0.0.1:6379"`
	Password string `envconfig:"PASSWORD"`
	DB       int    `envconfig:"DB" default:"0"`
}

// TokenConfig holds access and refresh token settings
type TokenConfig struct {
	Secret     string        `envconfig:"SECRET"`
	Issuer     string        `envconfig:"ISSUER" default:"guildboard"`
	Audience   string        `envconfig:"AUDIENCE" default:"guildboard-api"`
	AccessTTL  time.Duration `envconfig:"ACCESS_TTL" default:"15m"`
	RefreshTTL time.Duration `envconfig:"REFRESH_TTL" default:"720h"`
}

// ObservabilityConfig holds logging and tracing configuration
type ObservabilityConfig struct {
	LogLevel       string  `envconfig:"LOG_LEVEL" default:"info"`
	LogFormat      string  `envconfig:"LOG_FORMAT" default:"json"`
	OTELEnabled    bool    `envconfig:"OTEL_ENABLED" default:"false"`
	OTELEndpoint   string  `envconfig:"OTEL_ENDPOINT" default:"http://localhost:4318"`
	OTELSampleRate float64 `envconfig:"OTEL_SAMPLE_RATE" default:"1.0"`
	ServiceName    string  `envconfig:"SERVICE_NAME" default:"guildboard"`
	ServiceVersion string  `envconfig:"SERVICE_VERSION" default:"0.1.0"`
	Environment    string  `envconfig:"ENVIRONMENT" default:"development"`
}

// SecurityConfig holds security-related configuration
type SecurityConfig struct {
	Argon2Memory       uint32        `envconfig:"ARGON2_MEMORY" default:"65536"`
	Argon2Iterations   uint32        `envconfig:"ARGON2_ITERATIONS" default:"3"`
	Argon2Parallelism  uint8         `envconfig:"ARGON2_PARALLELISM" default:"4"`
	Argon2SaltLength   uint32        `envconfig:"ARGON2_SALT_LENGTH" default:"16"`
	Argon2KeyLength    uint32        `envconfig:"ARGON2_KEY_LENGTH" default:"32"`
	LockoutMaxAttempts int           `envconfig:"LOCKOUT_MAX_ATTEMPTS" default:"5"`
	LockoutDuration    time.Duration `envconfig:"LOCKOUT_DURATION" default:"15m"`
	AllowedHosts       []string      `envconfig:"ALLOWED_HOSTS"`
}

// RateLimitConfig holds rate limiting configuration
type RateLimitConfig struct {
	RequestsPerSecond float64 `envconfig:"RPS" default:"10"`
	Burst             int     `envconfig:"BURST" default:"20"`
	LoginPerMinute    int     `envconfig:"LOGIN_PER_MINUTE" default:"10"`
}

// BootstrapConfig names the account promoted to admin on a fresh install
type BootstrapConfig struct {
	AdminUsername string `envconfig:"ADMIN_USERNAME"`
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to read configuration: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Database.Password == "" {
		return errors.New("DB_PASSWORD is required")
	}
	if len(c.Token.Secret) < MinTokenSecretLength {
		return fmt.Errorf("TOKEN_SECRET must be at least %d bytes", MinTokenSecretLength)
	}
	if c.Token.AccessTTL <= 0 || c.Token.RefreshTTL <= c.Token.AccessTTL {
		return errors.New("TOKEN_REFRESH_TTL must exceed a positive TOKEN_ACCESS_TTL")
	}
	if c.Security.LockoutMaxAttempts < 1 {
		return errors.New("SECURITY_LOCKOUT_MAX_ATTEMPTS must be positive")
	}
	if r := c.Observability.OTELSampleRate; r < 0 || r > 1 {
		return errors.New("OBS_OTEL_SAMPLE_RATE must be between 0 and 1")
	}
	return nil
}

// DatabaseURL returns the pgx connection string.
func (d DatabaseConfig) DatabaseURL() string {
	return fmt.Sprintf("postgres://%s:%s@%s/%s?sslmode=%s&pool_max_conns=%d",
		d.User, d.Password, net.JoinHostPort(d.Host, d.Port), d.Database, d.SSLMode, d.MaxOpenConns)
}
