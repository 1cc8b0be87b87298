package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config aggregates runtime configuration for the service.
type Config struct {
	App        AppConfig
	Postgres   PostgresConfig
	Redis      RedisConfig
	Logger     LoggerConfig
	Auth       AuthConfig
	Escalation EscalationConfig
}

// AppConfig controls server level behavior.
type AppConfig struct {
	Name                  string
	Env                   string
	Host                  string
	Port                  string
	Version               string
	RequestTimeoutSeconds int
}

// PostgresConfig holds DB connection values.
type PostgresConfig struct {
	DSN            string
	MaxConns       int32
	MinConns       int32
	RunMigrations  bool
	ConnMaxIdleSec int32
	ConnMaxLifeSec int32
}

// RedisConfig holds Redis connection values.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// LoggerConfig configures logging behavior.
type LoggerConfig struct {
	Level string
}

// AuthConfig defines authentication parameters for the viewer surface.
type AuthConfig struct {
	JWTSecret             string
	AccessTokenTTLMinutes int
	BcryptCost            int
}

// EscalationConfig drives the escalation engine. All values are validated at
// load time; the engine core never sees a malformed configuration.
type EscalationConfig struct {
	// Chain is the ordered department list shared by all entries.
	Chain []string
	// Timeout is the per-level deadline duration, applied uniformly.
	Timeout time.Duration
	// UrgencyThreshold marks a timer view urgent when remaining time drops
	// at or below it.
	UrgencyThreshold time.Duration
	// TickInterval is the fine tick period driving the timer projector.
	TickInterval time.Duration
	// CoarseTickRatio runs the deadline evaluator every Nth fine tick.
	CoarseTickRatio int
}

// Validate rejects malformed engine configuration up front.
func (e EscalationConfig) Validate() error {
	if len(e.Chain) == 0 {
		return fmt.Errorf("escalation chain must name at least one department")
	}
	for i, dept := range e.Chain {
		if strings.TrimSpace(dept) == "" {
			return fmt.Errorf("escalation chain has empty department at index %d", i)
		}
	}
	if e.Timeout <= 0 {
		return fmt.Errorf("escalation timeout must be positive, got %v", e.Timeout)
	}
	if e.UrgencyThreshold <= 0 {
		return fmt.Errorf("urgency threshold must be positive, got %v", e.UrgencyThreshold)
	}
	if e.TickInterval <= 0 {
		return fmt.Errorf("tick interval must be positive, got %v", e.TickInterval)
	}
	if e.CoarseTickRatio < 1 {
		return fmt.Errorf("coarse tick ratio must be >= 1, got %d", e.CoarseTickRatio)
	}
	return nil
}

// Load reads configuration from environment variables, applying defaults where possible.
func Load() (*Config, error) {
	_ = godotenv.Load()

	redisDB, err := strconv.Atoi(getEnv("REDIS_DB", "0"))
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_DB: %w", err)
	}

	maxConns := int32(getEnvAsInt("POSTGRES_MAX_CONNS", 10))
	minConns := int32(getEnvAsInt("POSTGRES_MIN_CONNS", 2))
	runMigrations := getEnvAsBool("POSTGRES_RUN_MIGRATIONS", true)
	connMaxIdle := int32(getEnvAsInt("POSTGRES_CONN_MAX_IDLE_SECONDS", 30))
	connMaxLife := int32(getEnvAsInt("POSTGRES_CONN_MAX_LIFE_SECONDS", 300))

	cfg := &Config{
		App: AppConfig{
			Name:                  getEnv("APP_NAME", "escalation-engine"),
			Env:                   getEnv("APP_ENV", "development"),
			Host:                  getEnv("APP_HOST", "0.0.0.0"),
			Port:                  getEnv("APP_PORT", "8080"),
			Version:               getEnv("APP_VERSION", "dev"),
			RequestTimeoutSeconds: getEnvAsInt("HTTP_REQUEST_TIMEOUT_SECONDS", 30),
		},
		Postgres: PostgresConfig{
			DSN:            os.Getenv("POSTGRES_DSN"),
			MaxConns:       maxConns,
			MinConns:       minConns,
			RunMigrations:  runMigrations,
			ConnMaxIdleSec: connMaxIdle,
			ConnMaxLifeSec: connMaxLife,
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", "127.0.0.1:6379"),
			Password: os.Getenv("REDIS_PASSWORD"),
			DB:       redisDB,
		},
		Logger: LoggerConfig{
			Level: getEnv("LOG_LEVEL", "info"),
		},
		Auth: AuthConfig{
			JWTSecret:             getEnv("AUTH_JWT_SECRET", "dev-secret"),
			AccessTokenTTLMinutes: getEnvAsInt("AUTH_ACCESS_TOKEN_TTL_MINUTES", 60),
			BcryptCost:            getEnvAsInt("AUTH_BCRYPT_COST", 12),
		},
		Escalation: EscalationConfig{
			Chain:            splitList(getEnv("ESCALATION_CHAIN", "L1,L2,L3")),
			Timeout:          time.Duration(getEnvAsInt("ESCALATION_TIMEOUT_MINUTES", 30)) * time.Minute,
			UrgencyThreshold: time.Duration(getEnvAsInt("ESCALATION_URGENCY_THRESHOLD_MINUTES", 5)) * time.Minute,
			TickInterval:     time.Duration(getEnvAsInt("ESCALATION_TICK_INTERVAL_SECONDS", 1)) * time.Second,
			CoarseTickRatio:  getEnvAsInt("ESCALATION_COARSE_TICK_RATIO", 10),
		},
	}

	if err := cfg.Escalation.Validate(); err != nil {
		return nil, fmt.Errorf("invalid escalation config: %w", err)
	}

	return cfg, nil
}

// Addr returns the HTTP bind address.
func (a AppConfig) Addr() string {
	return fmt.Sprintf("%s:%s", a.Host, a.Port)
}

// RequestTimeout returns the configured request timeout duration.
func (a AppConfig) RequestTimeout() time.Duration {
	if a.RequestTimeoutSeconds <= 0 {
		return 0
	}
	return time.Duration(a.RequestTimeoutSeconds) * time.Second
}

func splitList(raw string) []string {
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(val)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvAsBool(key string, fallback bool) bool {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(val)
	if err != nil {
		return fallback
	}
	return parsed
}
