package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/BradenHooton/staffguard/internal/models"
	"github.com/joho/godotenv"
)

// Store drivers
const (
	StoreDriverPostgres = "postgres"
	StoreDriverSQLite   = "sqlite"
	StoreDriverMemory   = "memory"
)

// Rate limit backends
const (
	RateLimitBackendMemory = "memory"
	RateLimitBackendRedis  = "redis"
)

type Config struct {
	Database  DatabaseConfig
	SQLite    SQLiteConfig
	Redis     RedisConfig
	Server    ServerConfig
	Security  SecurityConfig
	RateLimit RateLimitConfig
	Email     EmailConfig
	Store     StoreConfig
}

type DatabaseConfig struct {
	Host              string
	Port              int
	User              string
	Password          string
	Name              string
	SSLMode           string
	MaxConns          int32
	MinConns          int32
	MaxConnLifetime   time.Duration
	MaxConnIdleTime   time.Duration
	HealthCheckPeriod time.Duration
}

type SQLiteConfig struct {
	Path string
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

type StoreConfig struct {
	Driver         string
	AutoMigrate    bool
	AuditRetention time.Duration // 0 keeps failed-login audit entries forever
}

type ServerConfig struct {
	Port                   string
	Env                    string
	LogLevel               string
	ReadTimeout            time.Duration
	WriteTimeout           time.Duration
	IdleTimeout            time.Duration
	TrustedProxies         []string
	HTTPRateLimitPerMinute int
	ServiceTokenSecret     string
}

// SecurityConfig holds the lockout and session limits
type SecurityConfig struct {
	MaxFailedAttempts      int
	LockoutDuration        time.Duration
	MaxSessionsPerUser     int
	SessionIdleTimeout     time.Duration
	SessionCleanupInterval time.Duration
	PasswordMaxLength      int // 0 disables the upper bound
}

type RateLimitConfig struct {
	Backend       string
	SweepInterval time.Duration
	Policies      map[string]models.RateLimitPolicy
}

type EmailConfig struct {
	LockoutNotifyEnabled bool
	AWSRegion            string
	FromAddress          string
}

// Load reads the full service configuration and validates it
func Load() (*Config, error) {
	cfg := fromEnv()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// LoadStore reads the configuration but only validates the store settings.
// The migrate tool needs no service token or security limits.
// A non-empty driver overrides STORE_DRIVER.
func LoadStore(driver string) (*Config, error) {
	cfg := fromEnv()
	if driver != "" {
		cfg.Store.Driver = strings.ToLower(driver)
	}

	if err := cfg.ValidateStore(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// LoadServiceTokenSecret reads and checks SERVICE_TOKEN_SECRET for the token tool
func LoadServiceTokenSecret() (string, error) {
	cfg := fromEnv()

	if err := validateServiceTokenSecret(cfg.Server.ServiceTokenSecret, cfg.Server.Env); err != nil {
		return "", err
	}

	return cfg.Server.ServiceTokenSecret, nil
}

func fromEnv() *Config {
	_ = godotenv.Load()

	env := getEnv("ENV", "development")

	return &Config{
		Database: DatabaseConfig{
			Host:              getEnv("DB_HOST", "localhost"),
			Port:              getEnvAsInt("DB_PORT", 5432),
			User:              getEnv("DB_USER", "postgres"),
			Password:          getEnv("DB_PASSWORD", ""),
			Name:              getEnv("DB_NAME", "staffguard"),
			SSLMode:           getEnv("DB_SSLMODE", "disable"),
			MaxConns:          int32(getEnvAsInt("DB_MAX_CONNS", 25)),
			MinConns:          int32(getEnvAsInt("DB_MIN_CONNS", 5)),
			MaxConnLifetime:   getEnvAsDuration("DB_MAX_CONN_LIFETIME", 5*time.Minute),
			MaxConnIdleTime:   getEnvAsDuration("DB_MAX_CONN_IDLE_TIME", 1*time.Minute),
			HealthCheckPeriod: getEnvAsDuration("DB_HEALTH_CHECK_PERIOD", 1*time.Minute),
		},
		SQLite: SQLiteConfig{
			Path: getEnv("SQLITE_PATH", "staffguard.db"),
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", "localhost:6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvAsInt("REDIS_DB", 0),
		},
		Store: StoreConfig{
			Driver:         strings.ToLower(getEnv("STORE_DRIVER", StoreDriverPostgres)),
			AutoMigrate:    getEnvAsBool("AUTO_MIGRATE", true),
			AuditRetention: getEnvAsDuration("AUDIT_RETENTION", 0),
		},
		Server: ServerConfig{
			Port:                   getEnv("PORT", "8080"),
			Env:                    env,
			LogLevel:               getEnv("LOG_LEVEL", "info"),
			ReadTimeout:            getEnvAsDuration("SERVER_READ_TIMEOUT", 15*time.Second),
			WriteTimeout:           getEnvAsDuration("SERVER_WRITE_TIMEOUT", 15*time.Second),
			IdleTimeout:            getEnvAsDuration("SERVER_IDLE_TIMEOUT", 60*time.Second),
			TrustedProxies:         parseList(getEnv("TRUSTED_PROXIES", "")),
			HTTPRateLimitPerMinute: getEnvAsInt("HTTP_RATE_LIMIT_PER_MINUTE", 120),
			ServiceTokenSecret:     getEnv("SERVICE_TOKEN_SECRET", ""),
		},
		Security: SecurityConfig{
			MaxFailedAttempts:      getEnvAsInt("MAX_FAILED_ATTEMPTS", 5),
			LockoutDuration:        getEnvAsDuration("LOCKOUT_DURATION", 30*time.Minute),
			MaxSessionsPerUser:     getEnvAsInt("MAX_SESSIONS_PER_USER", 3),
			SessionIdleTimeout:     getEnvAsDuration("SESSION_IDLE_TIMEOUT", 30*time.Minute),
			SessionCleanupInterval: getEnvAsDuration("SESSION_CLEANUP_INTERVAL", 5*time.Minute),
			PasswordMaxLength:      getEnvAsInt("PASSWORD_MAX_LENGTH", 128),
		},
		RateLimit: RateLimitConfig{
			Backend:       strings.ToLower(getEnv("RATE_LIMIT_BACKEND", RateLimitBackendMemory)),
			SweepInterval: getEnvAsDuration("RATE_LIMIT_SWEEP_INTERVAL", 1*time.Minute),
			Policies: map[string]models.RateLimitPolicy{
				models.EndpointLogin:          loadPolicy("LOGIN", 15*time.Minute, 5),
				models.EndpointRegister:       loadPolicy("REGISTER", 15*time.Minute, 5),
				models.EndpointForgotPassword: loadPolicy("FORGOT_PASSWORD", 15*time.Minute, 3),
				models.EndpointResetPassword:  loadPolicy("RESET_PASSWORD", 15*time.Minute, 5),
			},
		},
		Email: EmailConfig{
			LockoutNotifyEnabled: getEnvAsBool("LOCKOUT_NOTIFY_ENABLED", false),
			AWSRegion:            getEnv("AWS_REGION", "us-east-1"),
			FromAddress:          getEnv("EMAIL_FROM_ADDRESS", ""),
		},
	}
}

// Validate rejects configurations that would disable or weaken a security limit
func (c *Config) Validate() error {
	if c.Security.MaxFailedAttempts <= 0 {
		return fmt.Errorf("MAX_FAILED_ATTEMPTS must be positive (got %d)", c.Security.MaxFailedAttempts)
	}
	if c.Security.LockoutDuration <= 0 {
		return fmt.Errorf("LOCKOUT_DURATION must be positive (got %s)", c.Security.LockoutDuration)
	}
	if c.Security.MaxSessionsPerUser <= 0 {
		return fmt.Errorf("MAX_SESSIONS_PER_USER must be positive (got %d)", c.Security.MaxSessionsPerUser)
	}
	if c.Security.SessionIdleTimeout <= 0 {
		return fmt.Errorf("SESSION_IDLE_TIMEOUT must be positive (got %s)", c.Security.SessionIdleTimeout)
	}
	if c.Security.PasswordMaxLength < 0 {
		return fmt.Errorf("PASSWORD_MAX_LENGTH must not be negative (got %d)", c.Security.PasswordMaxLength)
	}

	for endpoint, policy := range c.RateLimit.Policies {
		if policy.Window <= 0 || policy.MaxRequests <= 0 {
			return fmt.Errorf("rate limit policy for %s must have a positive window and request budget", endpoint)
		}
	}

	if err := c.ValidateStore(); err != nil {
		return err
	}

	switch c.RateLimit.Backend {
	case RateLimitBackendMemory, RateLimitBackendRedis:
	default:
		return fmt.Errorf("unsupported RATE_LIMIT_BACKEND %q", c.RateLimit.Backend)
	}

	if c.Email.LockoutNotifyEnabled && c.Email.FromAddress == "" {
		return fmt.Errorf("EMAIL_FROM_ADDRESS is required when LOCKOUT_NOTIFY_ENABLED is set")
	}

	return validateServiceTokenSecret(c.Server.ServiceTokenSecret, c.Server.Env)
}

// ValidateStore checks the store driver and its connection settings
func (c *Config) ValidateStore() error {
	switch c.Store.Driver {
	case StoreDriverPostgres:
		if c.Database.Password == "" {
			return fmt.Errorf("DB_PASSWORD is required")
		}
	case StoreDriverSQLite, StoreDriverMemory:
	default:
		return fmt.Errorf("unsupported STORE_DRIVER %q", c.Store.Driver)
	}
	return nil
}

// validateServiceTokenSecret enforces minimum security standards for the service token secret
func validateServiceTokenSecret(secret, env string) error {
	if secret == "" {
		return fmt.Errorf("SERVICE_TOKEN_SECRET is required")
	}

	minLength := 16
	if env == "production" {
		minLength = 32
	}

	if len(secret) < minLength {
		return fmt.Errorf("SERVICE_TOKEN_SECRET must be at least %d characters in %s environment (got %d)",
			minLength, env, len(secret))
	}

	weakSecrets := []string{
		"secret", "test", "password", "12345", "changeme",
		"admin", "root", "default", "example",
	}

	secretLower := strings.ToLower(secret)
	for _, weak := range weakSecrets {
		if secretLower == weak {
			return fmt.Errorf("SERVICE_TOKEN_SECRET cannot be a common weak value")
		}
	}

	return nil
}

func (c *DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Name, c.SSLMode,
	)
}

// loadPolicy reads RATE_LIMIT_<NAME>_WINDOW and RATE_LIMIT_<NAME>_MAX
func loadPolicy(name string, window time.Duration, maxRequests int) models.RateLimitPolicy {
	return models.RateLimitPolicy{
		Window:      getEnvAsDuration("RATE_LIMIT_"+name+"_WINDOW", window),
		MaxRequests: getEnvAsInt("RATE_LIMIT_"+name+"_MAX", maxRequests),
	}
}

func getEnv(key, defaultVal string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultVal
}

func getEnvAsInt(key string, defaultVal int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultVal
}

func getEnvAsBool(key string, defaultVal bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultVal
}

func getEnvAsDuration(key string, defaultVal time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultVal
}

func parseList(raw string) []string {
	if raw == "" {
		return []string{}
	}
	items := strings.Split(raw, ",")
	out := make([]string, 0, len(items))
	for _, item := range items {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}
