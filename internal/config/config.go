package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
)

// Store drivers.
const (
	StorePostgres = "postgres"
	StoreMemory   = "memory"
)

// Config holds all application configuration loaded from environment variables.
type Config struct {
	Store      StoreConfig
	Database   DatabaseConfig
	Redis      RedisConfig
	JWT        JWTConfig
	Server     ServerConfig
	RateLimit  RateLimitConfig
	OAuth      OAuthConfig
	Slack      SlackConfig
	Notify     NotifyConfig
	Invitation InvitationConfig
	Log        LogConfig
	Dev        bool
}

// StoreConfig selects the persistence backend.
type StoreConfig struct {
	Driver string // "postgres" or "memory"
}

// DatabaseConfig holds PostgreSQL connection settings.
type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string //nolint:gosec // G117: DB connection config
	DBName   string
	SSLMode  string
	MaxConns int
}

// RedisConfig holds Redis connection settings.
type RedisConfig struct {
	Addr     string
	Password string //nolint:gosec // G117: Redis connection config
	DB       int
}

// JWTConfig holds JWT authentication settings.
type JWTConfig struct {
	Secret     string //nolint:gosec // G117: JWT signing secret config
	AccessTTL  time.Duration
	RefreshTTL time.Duration
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Addr         string
	PublicURL    string // base URL used for OAuth redirects
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	CORSOrigins  []string
	CookieSecure bool
	CookieDomain string
}

// RateLimitConfig holds request rate limits.
type RateLimitConfig struct {
	AuthRPS   float64 // per client IP on /auth routes
	AuthBurst int
	UserRPS   float64 // per authenticated user
	UserBurst int
}

// OAuthClient holds one provider's client credentials.
type OAuthClient struct {
	ClientID     string
	ClientSecret string //nolint:gosec // G117: OAuth client secret config
}

// Enabled reports whether both credentials are present.
func (c OAuthClient) Enabled() bool {
	return c.ClientID != "" && c.ClientSecret != ""
}

// OAuthConfig holds OAuth sign-in providers.
type OAuthConfig struct {
	GitHub OAuthClient
	Google OAuthClient
}

// SlackConfig holds Slack notification settings.
type SlackConfig struct {
	BotToken string
	Channel  string // fallback channel when the recipient has no Slack account
}

// NotifyConfig sizes the notification worker queue.
type NotifyConfig struct {
	QueueSize int
	Workers   int
}

// InvitationConfig holds project invitation settings.
type InvitationConfig struct {
	TTL time.Duration
}

// LogConfig holds zerolog settings.
type LogConfig struct {
	Level  string
	Format string // "json" or "text"
}

// Load reads configuration from environment variables.
// Defaults are safe for local development only. In production,
// sensitive values (JWT secret, DB password) must be set explicitly.
func Load() (*Config, error) {
	var errs []error
	intVar := func(key string, fallback int) int {
		n, err := getEnvInt(key, fallback)
		errs = append(errs, err)
		return n
	}
	durVar := func(key string, fallback time.Duration) time.Duration {
		d, err := getEnvDuration(key, fallback)
		errs = append(errs, err)
		return d
	}
	floatVar := func(key string, fallback float64) float64 {
		f, err := getEnvFloat(key, fallback)
		errs = append(errs, err)
		return f
	}
	boolVar := func(key string, fallback bool) bool {
		b, err := getEnvBool(key, fallback)
		errs = append(errs, err)
		return b
	}

	dev := boolVar("AGILEBOARD_DEV", false)

	cfg := &Config{
		Store: StoreConfig{
			Driver: getEnv("AGILEBOARD_STORE", StorePostgres),
		},
		Database: DatabaseConfig{
			Host:     getEnv("AGILEBOARD_DB_HOST", "localhost"),
			Port:     intVar("AGILEBOARD_DB_PORT", 5432),
			User:     getEnv("AGILEBOARD_DB_USER", "agileboard"),
			Password: getEnv("AGILEBOARD_DB_PASSWORD", ""),
			DBName:   getEnv("AGILEBOARD_DB_NAME", "agileboard_dev"),
			SSLMode:  getEnv("AGILEBOARD_DB_SSLMODE", "disable"),
			MaxConns: intVar("AGILEBOARD_DB_MAX_CONNS", 25),
		},
		Redis: RedisConfig{
			Addr:     getEnv("AGILEBOARD_REDIS_ADDR", "localhost:6379"),
			Password: getEnv("AGILEBOARD_REDIS_PASSWORD", ""),
			DB:       intVar("AGILEBOARD_REDIS_DB", 0),
		},
		JWT: JWTConfig{
			Secret:     getEnv("AGILEBOARD_JWT_SECRET", ""),
			AccessTTL:  durVar("AGILEBOARD_JWT_ACCESS_TTL", 15*time.Minute),
			RefreshTTL: durVar("AGILEBOARD_JWT_REFRESH_TTL", 7*24*time.Hour),
		},
		Server: ServerConfig{
			Addr:         getEnv("AGILEBOARD_SERVER_ADDR", ":8080"),
			PublicURL:    strings.TrimRight(getEnv("AGILEBOARD_PUBLIC_URL", "http://localhost:8080"), "/"),
			ReadTimeout:  durVar("AGILEBOARD_SERVER_READ_TIMEOUT", 10*time.Second),
			WriteTimeout: durVar("AGILEBOARD_SERVER_WRITE_TIMEOUT", 30*time.Second),
			CORSOrigins:  getEnvList("AGILEBOARD_CORS_ORIGINS", []string{"http://localhost:5173"}),
			CookieSecure: boolVar("AGILEBOARD_COOKIE_SECURE", !dev),
			CookieDomain: getEnv("AGILEBOARD_COOKIE_DOMAIN", ""),
		},
		RateLimit: RateLimitConfig{
			AuthRPS:   floatVar("AGILEBOARD_RATE_AUTH_RPS", 5),
			AuthBurst: intVar("AGILEBOARD_RATE_AUTH_BURST", 10),
			UserRPS:   floatVar("AGILEBOARD_RATE_USER_RPS", 20),
			UserBurst: intVar("AGILEBOARD_RATE_USER_BURST", 40),
		},
		OAuth: OAuthConfig{
			GitHub: OAuthClient{
				ClientID:     getEnv("AGILEBOARD_GITHUB_CLIENT_ID", ""),
				ClientSecret: getEnv("AGILEBOARD_GITHUB_CLIENT_SECRET", ""),
			},
			Google: OAuthClient{
				ClientID:     getEnv("AGILEBOARD_GOOGLE_CLIENT_ID", ""),
				ClientSecret: getEnv("AGILEBOARD_GOOGLE_CLIENT_SECRET", ""),
			},
		},
		Slack: SlackConfig{
			BotToken: getEnv("AGILEBOARD_SLACK_BOT_TOKEN", ""),
			Channel:  getEnv("AGILEBOARD_SLACK_CHANNEL", ""),
		},
		Notify: NotifyConfig{
			QueueSize: intVar("AGILEBOARD_NOTIFY_QUEUE_SIZE", 256),
			Workers:   intVar("AGILEBOARD_NOTIFY_WORKERS", 2),
		},
		Invitation: InvitationConfig{
			TTL: durVar("AGILEBOARD_INVITATION_TTL", 7*24*time.Hour),
		},
		Log: LogConfig{
			Level:  getEnv("AGILEBOARD_LOG_LEVEL", "info"),
			Format: getEnv("AGILEBOARD_LOG_FORMAT", "json"),
		},
		Dev: dev,
	}

	if err := errors.Join(errs...); err != nil {
		return nil, fmt.Errorf("config.Load: %w", err)
	}

	err := cfg.validate()
	if err != nil {
		return nil, fmt.Errorf("config.Load: %w", err)
	}

	return cfg, nil
}

// validate checks required fields and value bounds.
func (c *Config) validate() error {
	// JWT secret is required (no insecure default).
	if c.JWT.Secret == "" {
		return errors.New("AGILEBOARD_JWT_SECRET is required")
	}
	if len(c.JWT.Secret) < 32 {
		return errors.New("AGILEBOARD_JWT_SECRET must be at least 32 characters")
	}

	switch c.Store.Driver {
	case StorePostgres, StoreMemory:
	default:
		return fmt.Errorf("AGILEBOARD_STORE must be %q or %q, got %q", StorePostgres, StoreMemory, c.Store.Driver)
	}

	if c.Store.Driver == StorePostgres && c.Database.SSLMode == "disable" && !c.Dev {
		log.Warn().Msg("AGILEBOARD_DB_SSLMODE=disable is insecure for production; set to 'require' or 'verify-full'")
	}

	// Bounds checks.
	if c.Database.Port < 1 || c.Database.Port > 65535 {
		return fmt.Errorf("AGILEBOARD_DB_PORT must be 1-65535, got %d", c.Database.Port)
	}
	if c.Database.MaxConns < 1 {
		return fmt.Errorf("AGILEBOARD_DB_MAX_CONNS must be >= 1, got %d", c.Database.MaxConns)
	}
	if c.JWT.AccessTTL <= 0 {
		return fmt.Errorf("AGILEBOARD_JWT_ACCESS_TTL must be positive, got %s", c.JWT.AccessTTL)
	}
	if c.JWT.RefreshTTL <= 0 {
		return fmt.Errorf("AGILEBOARD_JWT_REFRESH_TTL must be positive, got %s", c.JWT.RefreshTTL)
	}
	if c.Server.ReadTimeout <= 0 {
		return fmt.Errorf("AGILEBOARD_SERVER_READ_TIMEOUT must be positive, got %s", c.Server.ReadTimeout)
	}
	if c.Server.WriteTimeout <= 0 {
		return fmt.Errorf("AGILEBOARD_SERVER_WRITE_TIMEOUT must be positive, got %s", c.Server.WriteTimeout)
	}
	if c.RateLimit.AuthRPS <= 0 || c.RateLimit.UserRPS <= 0 {
		return errors.New("AGILEBOARD_RATE_AUTH_RPS and AGILEBOARD_RATE_USER_RPS must be positive")
	}
	if c.RateLimit.AuthBurst < 1 || c.RateLimit.UserBurst < 1 {
		return errors.New("AGILEBOARD_RATE_AUTH_BURST and AGILEBOARD_RATE_USER_BURST must be >= 1")
	}
	if c.Notify.QueueSize < 1 {
		return fmt.Errorf("AGILEBOARD_NOTIFY_QUEUE_SIZE must be >= 1, got %d", c.Notify.QueueSize)
	}
	if c.Notify.Workers < 1 {
		return fmt.Errorf("AGILEBOARD_NOTIFY_WORKERS must be >= 1, got %d", c.Notify.Workers)
	}
	if c.Invitation.TTL <= 0 {
		return fmt.Errorf("AGILEBOARD_INVITATION_TTL must be positive, got %s", c.Invitation.TTL)
	}
	switch c.Log.Format {
	case "json", "text":
	default:
		return fmt.Errorf("AGILEBOARD_LOG_FORMAT must be json or text, got %q", c.Log.Format)
	}

	return nil
}

// DSN returns the PostgreSQL connection string.
func (c *DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.DBName, c.SSLMode,
	)
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("parsing %s=%q as int: %w", key, v, err)
	}
	return n, nil
}

func getEnvFloat(key string, fallback float64) (float64, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, fmt.Errorf("parsing %s=%q as float: %w", key, v, err)
	}
	return f, nil
}

func getEnvBool(key string, fallback bool) (bool, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, fmt.Errorf("parsing %s=%q as bool: %w", key, v, err)
	}
	return b, nil
}

func getEnvDuration(key string, fallback time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("parsing %s=%q as duration: %w", key, v, err)
	}
	return d, nil
}

func getEnvList(key string, fallback []string) []string {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	parts := strings.Split(v, ",")
	result := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			result = append(result, p)
		}
	}
	return result
}
