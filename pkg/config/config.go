package config

import (
	"errors"
	"os"
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

	Database     DatabaseConfig
	Redis        RedisConfig
	JWT          JWTConfig
	CORS         CORSConfig
	Log          LogConfig
	Uploads      UploadsConfig
	Certificates CertificatesConfig
	Exports      ExportsConfig
	Gradebook    GradebookConfig
	Settings     SettingsConfig
	Courses      CoursesConfig
}

type DatabaseConfig struct {
	Host            string
	Port            int
	User            string
	Password        string
	Name            string
	SSLMode         string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	ConnMaxIdleTime time.Duration
	PingTimeout     time.Duration
}

type RedisConfig struct {
	Enabled     bool
	Host        string
	Port        int
	Password    string
	DB          int
	PoolSize    int
	DialTimeout time.Duration
}

type JWTConfig struct {
	Secret             string
	Issuer             string
	Expiration         time.Duration
	RememberExpiration time.Duration
}

type CORSConfig struct {
	AllowedOrigins []string
}

type LogConfig struct {
	Level  string
	Format string
}

// UploadsConfig controls assignment file storage & validation.
type UploadsConfig struct {
	StorageDir       string
	MaxFileSizeBytes int64
	AllowedMIMEs     []string
	SignedURLSecret  string
	SignedURLTTL     time.Duration
}

// CertificatesConfig tunes certificate rendering workers.
type CertificatesConfig struct {
	StorageDir    string
	Workers       int
	WorkerRetries int
}

// ExportsConfig governs gradebook export files and their cleanup.
type ExportsConfig struct {
	StorageDir           string
	TTL                  time.Duration
	CleanupSchedule      string
	ExpiryReportSchedule string
}

// GradebookConfig governs gradebook cache tuning.
type GradebookConfig struct {
	CacheTTL time.Duration
}

// SettingsConfig governs how long the in-process settings snapshot lives.
type SettingsConfig struct {
	CacheTTL time.Duration
}

// CoursesConfig holds course defaults.
type CoursesConfig struct {
	DefaultAccessDays int
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
		if !errors.As(err, &notFound) && !errors.Is(err, os.ErrNotExist) {
			return nil, err
		}
	}

	cfg := &Config{}

	cfg.Env = v.GetString("ENV")
	cfg.Port = v.GetInt("PORT")
	cfg.APIPrefix = v.GetString("API_PREFIX")

	cfg.Database = DatabaseConfig{
		Host:            v.GetString("DB_HOST"),
		Port:            v.GetInt("DB_PORT"),
		User:            v.GetString("DB_USER"),
		Password:        v.GetString("DB_PASSWORD"),
		Name:            v.GetString("DB_NAME"),
		SSLMode:         v.GetString("DB_SSL_MODE"),
		MaxOpenConns:    v.GetInt("DB_MAX_OPEN_CONNS"),
		MaxIdleConns:    v.GetInt("DB_MAX_IDLE_CONNS"),
		ConnMaxLifetime: v.GetDuration("DB_CONN_MAX_LIFETIME"),
		ConnMaxIdleTime: v.GetDuration("DB_CONN_MAX_IDLE_TIME"),
		PingTimeout:     v.GetDuration("DB_PING_TIMEOUT"),
	}

	cfg.Redis = RedisConfig{
		Enabled:     v.GetBool("ENABLE_CACHE"),
		Host:        v.GetString("REDIS_HOST"),
		Port:        v.GetInt("REDIS_PORT"),
		Password:    v.GetString("REDIS_PASSWORD"),
		DB:          v.GetInt("REDIS_DB"),
		PoolSize:    v.GetInt("REDIS_POOL_SIZE"),
		DialTimeout: v.GetDuration("REDIS_DIAL_TIMEOUT"),
	}

	cfg.JWT = JWTConfig{
		Secret:             v.GetString("JWT_SECRET"),
		Issuer:             v.GetString("JWT_ISSUER"),
		Expiration:         parseDuration(v.GetString("JWT_EXPIRATION"), 24*time.Hour),
		RememberExpiration: parseDuration(v.GetString("JWT_REMEMBER_EXPIRATION"), 30*24*time.Hour),
	}

	cfg.CORS = CORSConfig{AllowedOrigins: splitAndTrim(v.GetString("ALLOWED_ORIGINS"))}

	cfg.Log = LogConfig{
		Level:  v.GetString("LOG_LEVEL"),
		Format: v.GetString("LOG_FORMAT"),
	}

	maxUploadSize := v.GetInt64("UPLOADS_MAX_FILE_SIZE")
	if maxUploadSize <= 0 {
		maxUploadSize = 10 * 1024 * 1024
	}
	cfg.Uploads = UploadsConfig{
		StorageDir:       v.GetString("UPLOADS_STORAGE_DIR"),
		MaxFileSizeBytes: maxUploadSize,
		AllowedMIMEs:     splitAndTrim(v.GetString("UPLOADS_ALLOWED_MIME_TYPES")),
		SignedURLSecret:  v.GetString("UPLOADS_SIGNED_URL_SECRET"),
		SignedURLTTL:     parseDuration(v.GetString("UPLOADS_SIGNED_URL_TTL"), 30*time.Minute),
	}

	cfg.Certificates = CertificatesConfig{
		StorageDir:    v.GetString("CERTIFICATES_STORAGE_DIR"),
		Workers:       v.GetInt("CERTIFICATES_WORKERS"),
		WorkerRetries: v.GetInt("CERTIFICATES_WORKER_RETRIES"),
	}

	cfg.Exports = ExportsConfig{
		StorageDir:           v.GetString("EXPORTS_STORAGE_DIR"),
		TTL:                  parseDuration(v.GetString("EXPORTS_TTL"), 24*time.Hour),
		CleanupSchedule:      v.GetString("EXPORTS_CLEANUP_SCHEDULE"),
		ExpiryReportSchedule: v.GetString("EXPIRY_REPORT_SCHEDULE"),
	}

	cfg.Gradebook = GradebookConfig{
		CacheTTL: parseDuration(v.GetString("GRADEBOOK_CACHE_TTL"), 2*time.Minute),
	}

	cfg.Settings = SettingsConfig{
		CacheTTL: parseDuration(v.GetString("SETTINGS_CACHE_TTL"), 30*time.Second),
	}

	accessDays := v.GetInt("DEFAULT_ACCESS_DAYS")
	if accessDays <= 0 {
		accessDays = 365
	}
	cfg.Courses = CoursesConfig{DefaultAccessDays: accessDays}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("ENV", EnvDevelopment)
	v.SetDefault("PORT", 8080)
	v.SetDefault("API_PREFIX", "/api")

	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", 5432)
	v.SetDefault("DB_USER", "postgres")
	v.SetDefault("DB_PASSWORD", "postgres")
	v.SetDefault("DB_NAME", "lms")
	v.SetDefault("DB_SSL_MODE", "disable")
	v.SetDefault("DB_MAX_OPEN_CONNS", 10)
	v.SetDefault("DB_MAX_IDLE_CONNS", 5)
	v.SetDefault("DB_CONN_MAX_LIFETIME", "1h")
	v.SetDefault("DB_CONN_MAX_IDLE_TIME", "30m")
	v.SetDefault("DB_PING_TIMEOUT", "5s")

	v.SetDefault("ENABLE_CACHE", false)
	v.SetDefault("REDIS_HOST", "localhost")
	v.SetDefault("REDIS_PORT", 6379)
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)
	v.SetDefault("REDIS_POOL_SIZE", 10)
	v.SetDefault("REDIS_DIAL_TIMEOUT", "5s")

	v.SetDefault("JWT_SECRET", "dev_secret")
	v.SetDefault("JWT_ISSUER", "lms-api")
	v.SetDefault("JWT_EXPIRATION", "24h")
	v.SetDefault("JWT_REMEMBER_EXPIRATION", "720h")

	v.SetDefault("ALLOWED_ORIGINS", "")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")

	v.SetDefault("UPLOADS_STORAGE_DIR", "./uploads")
	v.SetDefault("UPLOADS_MAX_FILE_SIZE", 10*1024*1024)
	v.SetDefault("UPLOADS_ALLOWED_MIME_TYPES", "application/pdf,application/zip,text/plain,image/png,image/jpeg,application/vnd.openxmlformats-officedocument.wordprocessingml.document")
	v.SetDefault("UPLOADS_SIGNED_URL_SECRET", "dev_uploads_secret")
	v.SetDefault("UPLOADS_SIGNED_URL_TTL", "30m")

	v.SetDefault("CERTIFICATES_STORAGE_DIR", "./certificates")
	v.SetDefault("CERTIFICATES_WORKERS", 1)
	v.SetDefault("CERTIFICATES_WORKER_RETRIES", 3)

	v.SetDefault("EXPORTS_STORAGE_DIR", "./exports")
	v.SetDefault("EXPORTS_TTL", "24h")
	v.SetDefault("EXPORTS_CLEANUP_SCHEDULE", "@hourly")
	v.SetDefault("EXPIRY_REPORT_SCHEDULE", "@daily")

	v.SetDefault("GRADEBOOK_CACHE_TTL", "2m")
	v.SetDefault("SETTINGS_CACHE_TTL", "30s")
	v.SetDefault("DEFAULT_ACCESS_DAYS", 365)
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
