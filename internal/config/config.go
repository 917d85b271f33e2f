package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

const insecureJWTSecret = "clubhouse-dev-secret-change-me"

type Config struct {
	Env       string
	Storage   string
	Database  DatabaseConfig
	Redis     RedisConfig
	Server    ServerConfig
	Auth      AuthConfig
	Club      ClubConfig
	SMTP      SMTPConfig
	Mailer    MailerConfig
	Cache     CacheConfig
	RateLimit RateLimitConfig
	Cleanup   CleanupConfig
}

type DatabaseConfig struct {
	PrimaryDSN      string
	ReplicaDSNs     []string
	MaxConns        int32
	MinConns        int32
	MaxConnLifetime time.Duration
	MaxConnIdleTime time.Duration
}

type RedisConfig struct {
	Enabled  bool
	Addr     string
	Password string
	DB       int
	PoolSize int
}

type ServerConfig struct {
	Port            string
	FrontendOrigin  string
	PublicURL       string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
	AutoMigrate     bool
	SelfSignup      bool
	TrustedProxies  []string
}

type AuthConfig struct {
	JWTSecret     string
	TokenTTL      time.Duration
	CookieName    string
	CookieSecure  bool
	ResetTokenTTL time.Duration
}

type ClubConfig struct {
	CourtCount  int
	OpeningHour int
	ClosingHour int
}

// SMTPConfig is decoded from SMTP_* variables.
type SMTPConfig struct {
	Server   string `envconfig:"SERVER"`
	Port     int    `envconfig:"PORT" default:"587"`
	User     string `envconfig:"USER"`
	Password string `envconfig:"PASSWORD"`
	Sender   string `envconfig:"SENDER" default:"noreply@clubhouse.local"`
}

type MailerConfig struct {
	StreamName    string
	ConsumerGroup string
	ConsumerName  string
	BatchSize     int
	BlockTime     time.Duration
	PollInterval  time.Duration
	RetryIdle     time.Duration
	MaxDeliveries int
}

type CacheConfig struct {
	L1Capacity int
	L2TTL      time.Duration
}

type RateLimitConfig struct {
	Requests int
	Window   time.Duration
}

type CleanupConfig struct {
	Interval time.Duration
	LockTTL  time.Duration
}

func Load() (*Config, error) {
	// Load .env if it exists (local dev), ignore if not
	_ = godotenv.Load()

	cfg := &Config{
		Env:     getEnv("APP_ENV", "production"),
		Storage: strings.ToLower(getEnv("STORAGE_BACKEND", "postgres")),
		Database: DatabaseConfig{
			PrimaryDSN:      getEnv("DB_PRIMARY_DSN", postgresDSNFromParts()),
			ReplicaDSNs:     getEnvAsList("DB_REPLICA_DSNS"),
			MaxConns:        int32(getEnvAsInt("DB_MAX_CONNS", 10)),
			MinConns:        int32(getEnvAsInt("DB_MIN_CONNS", 2)),
			MaxConnLifetime: getEnvAsDuration("DB_MAX_CONN_LIFETIME", time.Hour),
			MaxConnIdleTime: getEnvAsDuration("DB_MAX_CONN_IDLE_TIME", 30*time.Minute),
		},
		Redis: RedisConfig{
			Enabled:  getEnvAsBool("REDIS_ENABLED", true),
			Addr:     getEnv("REDIS_ADDR", "localhost:6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvAsInt("REDIS_DB", 0),
			PoolSize: getEnvAsInt("REDIS_POOL_SIZE", 10),
		},
		Server: ServerConfig{
			Port:            getEnv("API_PORT", "3000"),
			FrontendOrigin:  getEnv("FRONTEND_ORIGIN", "http://localhost:8080"),
			PublicURL:       strings.TrimRight(publicURL(), "/"),
			ReadTimeout:     getEnvAsDuration("HTTP_READ_TIMEOUT", 15*time.Second),
			WriteTimeout:    getEnvAsDuration("HTTP_WRITE_TIMEOUT", 15*time.Second),
			ShutdownTimeout: getEnvAsDuration("HTTP_SHUTDOWN_TIMEOUT", 10*time.Second),
			AutoMigrate:     getEnvAsBool("AUTO_MIGRATE", true),
			SelfSignup:      getEnvAsBool("MEMBER_SELF_SIGNUP", false),
			TrustedProxies:  getEnvAsList("TRUSTED_PROXIES"),
		},
		Auth: AuthConfig{
			JWTSecret:     getEnv("JWT_SECRET", ""),
			TokenTTL:      getEnvAsDuration("JWT_TTL", 24*time.Hour),
			CookieName:    getEnv("AUTH_COOKIE_NAME", "auth_token"),
			CookieSecure:  getEnvAsBool("COOKIE_SECURE", true),
			ResetTokenTTL: getEnvAsDuration("RESET_TOKEN_TTL", time.Hour),
		},
		Club: ClubConfig{
			CourtCount:  getEnvAsInt("COURT_COUNT", 4),
			OpeningHour: getEnvAsInt("OPENING_HOUR", 8),
			ClosingHour: getEnvAsInt("CLOSING_HOUR", 22),
		},
		Mailer: MailerConfig{
			StreamName:    getEnv("MAIL_STREAM_NAME", "mail:stream"),
			ConsumerGroup: getEnv("MAILER_CONSUMER_GROUP", "mailer-group"),
			ConsumerName:  getEnv("MAILER_CONSUMER_NAME", "mailer-1"),
			BatchSize:     getEnvAsInt("MAILER_BATCH_SIZE", 10),
			BlockTime:     getEnvAsDuration("MAILER_BLOCK_TIME", 5*time.Second),
			PollInterval:  getEnvAsDuration("MAILER_POLL_INTERVAL", time.Second),
			RetryIdle:     getEnvAsDuration("MAILER_RETRY_IDLE", time.Minute),
			MaxDeliveries: getEnvAsInt("MAILER_MAX_DELIVERIES", 5),
		},
		Cache: CacheConfig{
			L1Capacity: getEnvAsInt("CACHE_L1_CAPACITY", 256),
			L2TTL:      getEnvAsDuration("CACHE_L2_TTL", 5*time.Minute),
		},
		RateLimit: RateLimitConfig{
			Requests: getEnvAsInt("RATE_LIMIT_REQUESTS", 10),
			Window:   getEnvAsDuration("RATE_LIMIT_WINDOW", time.Minute),
		},
		Cleanup: CleanupConfig{
			Interval: getEnvAsDuration("CLEANUP_INTERVAL", time.Hour),
			LockTTL:  getEnvAsDuration("CLEANUP_LOCK_TTL", 5*time.Minute),
		},
	}

	if err := envconfig.Process("SMTP", &cfg.SMTP); err != nil {
		return nil, fmt.Errorf("failed to read SMTP settings: %w", err)
	}

	if cfg.Auth.JWTSecret == "" && cfg.IsDevelopment() {
		cfg.Auth.JWTSecret = insecureJWTSecret
		cfg.Auth.CookieSecure = getEnvAsBool("COOKIE_SECURE", false)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) IsDevelopment() bool {
	return c.Env == "development"
}

// UsesInsecureSecret reports whether the built-in development secret signs tokens.
func (c *Config) UsesInsecureSecret() bool {
	return c.Auth.JWTSecret == insecureJWTSecret
}

func (c *Config) Validate() error {
	if c.Auth.JWTSecret == "" {
		return errors.New("JWT_SECRET is required outside development")
	}
	if c.Storage != "postgres" && c.Storage != "memory" {
		return fmt.Errorf("unknown STORAGE_BACKEND %q", c.Storage)
	}
	if c.Storage == "postgres" && c.Database.PrimaryDSN == "" {
		return errors.New("DB_PRIMARY_DSN or POSTGRES_* variables are required")
	}
	if c.Club.CourtCount < 1 {
		return errors.New("COURT_COUNT must be at least 1")
	}
	if c.Club.OpeningHour < 0 || c.Club.ClosingHour > 24 || c.Club.OpeningHour >= c.Club.ClosingHour {
		return fmt.Errorf("invalid opening hours %d-%d", c.Club.OpeningHour, c.Club.ClosingHour)
	}
	return nil
}

func postgresDSNFromParts() string {
	user := os.Getenv("POSTGRES_USER")
	host := os.Getenv("POSTGRES_HOST")
	db := os.Getenv("POSTGRES_DB")
	if user == "" || host == "" || db == "" {
		return ""
	}

	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=%s",
		user,
		os.Getenv("POSTGRES_PASSWORD"),
		host,
		getEnv("POSTGRES_PORT", "5432"),
		db,
		getEnv("POSTGRES_SSLMODE", "prefer"),
	)
}

func publicURL() string {
	if custom := os.Getenv("CUSTOM_DOMAIN_URL"); custom != "" {
		return custom
	}
	return fmt.Sprintf("http://%s:%s", getEnv("FRONTEND_IP", "localhost"), getEnv("FRONTEND_PORT", "8080"))
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

func getEnvAsList(key string) []string {
	value := os.Getenv(key)
	if value == "" {
		return nil
	}

	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
