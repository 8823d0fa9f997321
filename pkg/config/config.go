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

type Config struct {
	Env       string
	Port      int
	APIPrefix string

	Database      DatabaseConfig
	Redis         RedisConfig
	JWT           JWTConfig
	CORS          CORSConfig
	Log           LogConfig
	Scoring       ScoringConfig
	Assignment    AssignmentConfig
	BackupScan    BackupScanConfig
	Notifications NotificationsConfig
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

	// StatementTimeout is applied server side per session; zero leaves the server default.
	StatementTimeout time.Duration
}

type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
	Timeout  time.Duration
}

type JWTConfig struct {
	Secret string
	Issuer string
}

type CORSConfig struct {
	AllowedOrigins []string
}

type LogConfig struct {
	Level  string
	Format string
}

// ScoringConfig points the scoring client at the database match function.
type ScoringConfig struct {
	Function     string
	Timeout      time.Duration
	CacheEnabled bool
	CacheTTL     time.Duration
}

// AssignmentConfig tunes candidate ranking and the assignment lease.
type AssignmentConfig struct {
	LeaseTTL           time.Duration
	MaxCandidates      int
	ScoringConcurrency int
	SpecialtyPrefilter bool
}

// BackupScanConfig drives the periodic backup coverage scan.
type BackupScanConfig struct {
	Enabled               bool
	Interval              time.Duration
	DeadlineWarningWindow time.Duration
	WarningDedupeWindow   time.Duration
}

// NotificationsConfig controls outbound sensei notifications.
type NotificationsConfig struct {
	Workers       int
	Retries       int
	RetryDelay    time.Duration
	MaxRetryDelay time.Duration
	WebhookURL    string
	Timeout       time.Duration
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

	return fromViper(v), nil
}

func fromViper(v *viper.Viper) *Config {
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

		StatementTimeout: parseDuration(v.GetString("DB_STATEMENT_TIMEOUT"), 0),
	}

	cfg.Redis = RedisConfig{
		Host:     v.GetString("REDIS_HOST"),
		Port:     v.GetInt("REDIS_PORT"),
		Password: v.GetString("REDIS_PASSWORD"),
		DB:       v.GetInt("REDIS_DB"),
		Timeout:  parseDuration(v.GetString("REDIS_TIMEOUT"), 2*time.Second),
	}

	cfg.JWT = JWTConfig{
		Secret: v.GetString("JWT_SECRET"),
		Issuer: v.GetString("JWT_ISSUER"),
	}

	cfg.CORS = CORSConfig{AllowedOrigins: splitAndTrim(v.GetString("ALLOWED_ORIGINS"))}

	cfg.Log = LogConfig{
		Level:  v.GetString("LOG_LEVEL"),
		Format: v.GetString("LOG_FORMAT"),
	}

	cfg.Scoring = ScoringConfig{
		Function:     v.GetString("SCORING_FUNCTION"),
		Timeout:      parseDuration(v.GetString("SCORING_TIMEOUT"), 5*time.Second),
		CacheEnabled: v.GetBool("SCORING_CACHE_ENABLED"),
		CacheTTL:     parseDuration(v.GetString("SCORING_CACHE_TTL"), 10*time.Minute),
	}

	cfg.Assignment = AssignmentConfig{
		LeaseTTL:           parseDuration(v.GetString("ASSIGNMENT_LEASE_TTL"), 30*time.Second),
		MaxCandidates:      v.GetInt("ASSIGNMENT_MAX_CANDIDATES"),
		ScoringConcurrency: v.GetInt("ASSIGNMENT_SCORING_CONCURRENCY"),
		SpecialtyPrefilter: v.GetBool("ASSIGNMENT_SPECIALTY_PREFILTER"),
	}

	cfg.BackupScan = BackupScanConfig{
		Enabled:               v.GetBool("ENABLE_BACKUP_SCAN"),
		Interval:              parseDuration(v.GetString("BACKUP_SCAN_INTERVAL"), time.Hour),
		DeadlineWarningWindow: parseDuration(v.GetString("BACKUP_DEADLINE_WARNING_WINDOW"), 24*time.Hour),
		WarningDedupeWindow:   parseDuration(v.GetString("BACKUP_WARNING_DEDUPE_WINDOW"), 24*time.Hour),
	}

	cfg.Notifications = NotificationsConfig{
		Workers:       v.GetInt("NOTIFY_WORKERS"),
		Retries:       v.GetInt("NOTIFY_RETRIES"),
		RetryDelay:    parseDuration(v.GetString("NOTIFY_RETRY_DELAY"), 5*time.Second),
		MaxRetryDelay: parseDuration(v.GetString("NOTIFY_MAX_RETRY_DELAY"), 2*time.Minute),
		WebhookURL:    v.GetString("NOTIFY_WEBHOOK_URL"),
		Timeout:       parseDuration(v.GetString("NOTIFY_TIMEOUT"), 10*time.Second),
	}

	return cfg
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("ENV", EnvDevelopment)
	v.SetDefault("PORT", 8080)
	v.SetDefault("API_PREFIX", "/api/v1")

	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", 5432)
	v.SetDefault("DB_USER", "postgres")
	v.SetDefault("DB_PASSWORD", "postgres")
	v.SetDefault("DB_NAME", "sensei_trips")
	v.SetDefault("DB_SSL_MODE", "disable")
	v.SetDefault("DB_MAX_OPEN_CONNS", 10)
	v.SetDefault("DB_MAX_IDLE_CONNS", 5)
	v.SetDefault("DB_STATEMENT_TIMEOUT", "15s")

	v.SetDefault("REDIS_HOST", "localhost")
	v.SetDefault("REDIS_PORT", 6379)
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)
	v.SetDefault("REDIS_TIMEOUT", "2s")

	v.SetDefault("JWT_SECRET", "dev_secret")
	v.SetDefault("JWT_ISSUER", "")

	v.SetDefault("ALLOWED_ORIGINS", "")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")

	v.SetDefault("SCORING_FUNCTION", "calculate_sensei_match_score_enhanced")
	v.SetDefault("SCORING_TIMEOUT", "5s")
	v.SetDefault("SCORING_CACHE_ENABLED", false)
	v.SetDefault("SCORING_CACHE_TTL", "10m")

	v.SetDefault("ASSIGNMENT_LEASE_TTL", "30s")
	v.SetDefault("ASSIGNMENT_MAX_CANDIDATES", 10)
	v.SetDefault("ASSIGNMENT_SCORING_CONCURRENCY", 8)
	v.SetDefault("ASSIGNMENT_SPECIALTY_PREFILTER", false)

	v.SetDefault("ENABLE_BACKUP_SCAN", false)
	v.SetDefault("BACKUP_SCAN_INTERVAL", "1h")
	v.SetDefault("BACKUP_DEADLINE_WARNING_WINDOW", "24h")
	v.SetDefault("BACKUP_WARNING_DEDUPE_WINDOW", "24h")

	v.SetDefault("NOTIFY_WORKERS", 2)
	v.SetDefault("NOTIFY_RETRIES", 3)
	v.SetDefault("NOTIFY_RETRY_DELAY", "5s")
	v.SetDefault("NOTIFY_MAX_RETRY_DELAY", "2m")
	v.SetDefault("NOTIFY_WEBHOOK_URL", "")
	v.SetDefault("NOTIFY_TIMEOUT", "10s")
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
