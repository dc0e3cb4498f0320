package config

import (
	"errors"
	"io/fs"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
)

const (
	RequisiteSourceDatabase = "database"
	RequisiteSourceHTTP     = "http"
)

type Config struct {
	Env       string
	Port      int
	APIPrefix string

	Database   DatabaseConfig
	Redis      RedisConfig
	JWT        JWTConfig
	CORS       CORSConfig
	Log        LogConfig
	Plan       PlanConfig
	Requisites RequisiteConfig
	Conflicts  ConflictConfig
	Migrations MigrationConfig
	Docs       DocsConfig
}

type DatabaseConfig struct {
	Host         string
	Port         int
	User         string
	Password     string
	Name         string
	SSLMode      string
	MaxOpenConns int
	MaxIdleConns int
}

type RedisConfig struct {
	Enabled  bool
	Host     string
	Port     int
	Password string
	DB       int
}

// JWTConfig only carries what is needed to verify access tokens.
type JWTConfig struct {
	Secret string
}

type CORSConfig struct {
	AllowedOrigins []string
}

type LogConfig struct {
	Level  string
	Format string
}

// PlanConfig describes how stored plan events are interpreted.
type PlanConfig struct {
	Timezone string
}

// Location resolves the configured timezone, falling back to time.Local.
func (p PlanConfig) Location() *time.Location {
	if p.Timezone == "" {
		return time.Local
	}
	loc, err := time.LoadLocation(p.Timezone)
	if err != nil {
		return time.Local
	}
	return loc
}

// RequisiteConfig selects and tunes the prerequisite/corequisite provider.
type RequisiteConfig struct {
	Source         string
	BaseURL        string
	Timeout        time.Duration
	CacheEnabled   bool
	Freshness      time.Duration
	Retention      time.Duration
	Breaker        BreakerConfig
	RefreshEnabled bool
	RefreshCron    string
}

// BreakerConfig tunes the circuit breaker guarding the remote requisite provider.
type BreakerConfig struct {
	MaxRequests  uint32
	Interval     time.Duration
	Timeout      time.Duration
	FailureRatio float64
	MinRequests  uint32
}

// ConflictConfig sizes the background recompute queue.
type ConflictConfig struct {
	Workers     int
	QueueBuffer int
	MaxRetries  int
	RetryDelay  time.Duration
}

// MigrationConfig toggles schema migration on boot.
type MigrationConfig struct {
	OnStart bool
}

// DocsConfig toggles the swagger UI.
type DocsConfig struct {
	Enabled bool
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetConfigFile(".env")
	v.SetConfigType("env")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !errors.Is(err, fs.ErrNotExist) {
			return nil, err
		}
	}

	cfg := &Config{}

	cfg.Env = v.GetString("ENV")
	cfg.Port = v.GetInt("PORT")
	cfg.APIPrefix = v.GetString("API_PREFIX")

	cfg.Database = DatabaseConfig{
		Host:         v.GetString("DB_HOST"),
		Port:         v.GetInt("DB_PORT"),
		User:         v.GetString("DB_USER"),
		Password:     v.GetString("DB_PASSWORD"),
		Name:         v.GetString("DB_NAME"),
		SSLMode:      v.GetString("DB_SSL_MODE"),
		MaxOpenConns: v.GetInt("DB_MAX_OPEN_CONNS"),
		MaxIdleConns: v.GetInt("DB_MAX_IDLE_CONNS"),
	}

	cfg.Redis = RedisConfig{
		Enabled:  v.GetBool("REDIS_ENABLED"),
		Host:     v.GetString("REDIS_HOST"),
		Port:     v.GetInt("REDIS_PORT"),
		Password: v.GetString("REDIS_PASSWORD"),
		DB:       v.GetInt("REDIS_DB"),
	}

	cfg.JWT = JWTConfig{Secret: v.GetString("JWT_SECRET")}

	cfg.CORS = CORSConfig{AllowedOrigins: splitAndTrim(v.GetString("ALLOWED_ORIGINS"))}

	cfg.Log = LogConfig{
		Level:  v.GetString("LOG_LEVEL"),
		Format: v.GetString("LOG_FORMAT"),
	}

	cfg.Plan = PlanConfig{Timezone: v.GetString("PLAN_TIMEZONE")}

	failureRatio := v.GetFloat64("REQUISITE_BREAKER_FAILURE_RATIO")
	if failureRatio <= 0 || failureRatio > 1 {
		failureRatio = 0.6
	}
	cfg.Requisites = RequisiteConfig{
		Source:       strings.ToLower(v.GetString("REQUISITE_SOURCE")),
		BaseURL:      strings.TrimRight(v.GetString("REQUISITE_BASE_URL"), "/"),
		Timeout:      parseDuration(v.GetString("REQUISITE_TIMEOUT"), 5*time.Second),
		CacheEnabled: v.GetBool("REQUISITE_CACHE_ENABLED"),
		Freshness:    parseDuration(v.GetString("REQUISITE_CACHE_FRESHNESS"), 5*time.Minute),
		Retention:    parseDuration(v.GetString("REQUISITE_CACHE_RETENTION"), 10*time.Minute),
		Breaker: BreakerConfig{
			MaxRequests:  uint32(v.GetInt("REQUISITE_BREAKER_MAX_REQUESTS")),
			Interval:     parseDuration(v.GetString("REQUISITE_BREAKER_INTERVAL"), 30*time.Second),
			Timeout:      parseDuration(v.GetString("REQUISITE_BREAKER_TIMEOUT"), 60*time.Second),
			FailureRatio: failureRatio,
			MinRequests:  uint32(v.GetInt("REQUISITE_BREAKER_MIN_REQUESTS")),
		},
		RefreshEnabled: v.GetBool("REQUISITE_REFRESH_ENABLED"),
		RefreshCron:    v.GetString("REQUISITE_REFRESH_CRON"),
	}
	if cfg.Requisites.Source != RequisiteSourceHTTP {
		cfg.Requisites.Source = RequisiteSourceDatabase
	}
	if cfg.Requisites.Retention < cfg.Requisites.Freshness {
		cfg.Requisites.Retention = cfg.Requisites.Freshness
	}

	cfg.Conflicts = ConflictConfig{
		Workers:     v.GetInt("CONFLICT_WORKERS"),
		QueueBuffer: v.GetInt("CONFLICT_QUEUE_BUFFER"),
		MaxRetries:  v.GetInt("CONFLICT_MAX_RETRIES"),
		RetryDelay:  parseDuration(v.GetString("CONFLICT_RETRY_DELAY"), time.Second),
	}

	cfg.Migrations = MigrationConfig{OnStart: v.GetBool("MIGRATE_ON_START")}
	cfg.Docs = DocsConfig{Enabled: v.GetBool("ENABLE_DOCS")}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("ENV", EnvDevelopment)
	v.SetDefault("PORT", 8080)
	v.SetDefault("API_PREFIX", "/api/v1")

	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", 5432)
	v.SetDefault("DB_USER", "postgres")
	v.SetDefault("DB_PASSWORD", "postgres")
	v.SetDefault("DB_NAME", "planner")
	v.SetDefault("DB_SSL_MODE", "disable")
	v.SetDefault("DB_MAX_OPEN_CONNS", 10)
	v.SetDefault("DB_MAX_IDLE_CONNS", 5)

	v.SetDefault("REDIS_ENABLED", true)
	v.SetDefault("REDIS_HOST", "localhost")
	v.SetDefault("REDIS_PORT", 6379)
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)

	v.SetDefault("JWT_SECRET", "dev_secret")

	v.SetDefault("ALLOWED_ORIGINS", "")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")

	v.SetDefault("PLAN_TIMEZONE", "America/New_York")

	v.SetDefault("REQUISITE_SOURCE", RequisiteSourceDatabase)
	v.SetDefault("REQUISITE_BASE_URL", "http://localhost:3000")
	v.SetDefault("REQUISITE_TIMEOUT", "5s")
	v.SetDefault("REQUISITE_CACHE_ENABLED", true)
	v.SetDefault("REQUISITE_CACHE_FRESHNESS", "5m")
	v.SetDefault("REQUISITE_CACHE_RETENTION", "10m")
	v.SetDefault("REQUISITE_BREAKER_MAX_REQUESTS", 5)
	v.SetDefault("REQUISITE_BREAKER_INTERVAL", "30s")
	v.SetDefault("REQUISITE_BREAKER_TIMEOUT", "60s")
	v.SetDefault("REQUISITE_BREAKER_FAILURE_RATIO", 0.6)
	v.SetDefault("REQUISITE_BREAKER_MIN_REQUESTS", 5)
	v.SetDefault("REQUISITE_REFRESH_ENABLED", false)
	v.SetDefault("REQUISITE_REFRESH_CRON", "0 3 * * *")

	v.SetDefault("CONFLICT_WORKERS", 2)
	v.SetDefault("CONFLICT_QUEUE_BUFFER", 64)
	v.SetDefault("CONFLICT_MAX_RETRIES", 2)
	v.SetDefault("CONFLICT_RETRY_DELAY", "1s")

	v.SetDefault("MIGRATE_ON_START", false)
	v.SetDefault("ENABLE_DOCS", true)
}

func parseDuration(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}

	d, err := time.ParseDuration(raw)
	if err != nil {
		return fallback
	}

	return d
}

func splitAndTrim(raw string) []string {
	if raw == "" {
		return nil
	}

	parts := strings.Split(raw, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}

	return result
}
