package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all runtime settings. Values come from the environment with
// sensible defaults for local development.
type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	TMDB     TMDBConfig
	SMTP     SMTPConfig
	Auth     AuthConfig
	Log      LogConfig
}

// ServerConfig holds HTTP listener settings. AllowedOrigins lists extra
// CORS origins beyond the local-network ones trusted by default.
type ServerConfig struct {
	Addr            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
	AllowedOrigins  []string
}

// DatabaseConfig holds sqlite settings.
type DatabaseConfig struct {
	Path string
}

// TMDBConfig holds metadata provider settings.
type TMDBConfig struct {
	APIKey        string
	BaseURL       string
	ImageBase     string
	CacheDir      string
	CacheTTLHours int
}

// SMTPConfig holds outbound mail settings. Mail is best-effort; an empty
// host disables delivery entirely.
type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

// AuthConfig holds session and verification-code settings.
type AuthConfig struct {
	SessionDuration time.Duration
	CodeTTL         time.Duration
}

// LogConfig holds log file rotation settings. An empty path logs to stderr.
type LogConfig struct {
	Path       string
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
}

// FromEnv builds a Config from environment variables.
func FromEnv() Config {
	return Config{
		Server: ServerConfig{
			Addr:            envString("CINESTACK_ADDR", ":8000"),
			ReadTimeout:     envDuration("CINESTACK_READ_TIMEOUT", 30*time.Second),
			WriteTimeout:    envDuration("CINESTACK_WRITE_TIMEOUT", 60*time.Second),
			ShutdownTimeout: envDuration("CINESTACK_SHUTDOWN_TIMEOUT", 10*time.Second),
			AllowedOrigins:  envList("CINESTACK_ALLOWED_ORIGINS"),
		},
		Database: DatabaseConfig{
			Path: envString("CINESTACK_DB_PATH", "data/cinestack.db"),
		},
		TMDB: TMDBConfig{
			APIKey:        os.Getenv("TMDB_API_KEY"),
			BaseURL:       envString("TMDB_BASE_URL", "https://api.themoviedb.org/3"),
			ImageBase:     envString("TMDB_IMAGE_BASE", "https://image.tmdb.org/t/p/w500"),
			CacheDir:      envString("TMDB_CACHE_DIR", "data/cache/metadata"),
			CacheTTLHours: envInt("TMDB_CACHE_TTL_HOURS", 24),
		},
		SMTP: SMTPConfig{
			Host:     os.Getenv("SMTP_HOST"),
			Port:     envInt("SMTP_PORT", 587),
			Username: os.Getenv("SMTP_USERNAME"),
			Password: os.Getenv("SMTP_PASSWORD"),
			From:     envString("SMTP_FROM", os.Getenv("SMTP_USERNAME")),
		},
		Auth: AuthConfig{
			SessionDuration: envDuration("CINESTACK_SESSION_DURATION", 30*24*time.Hour),
			CodeTTL:         envDuration("CINESTACK_CODE_TTL", 10*time.Minute),
		},
		Log: LogConfig{
			Path:       os.Getenv("CINESTACK_LOG_PATH"),
			MaxSizeMB:  envInt("CINESTACK_LOG_MAX_SIZE_MB", 50),
			MaxBackups: envInt("CINESTACK_LOG_MAX_BACKUPS", 3),
			MaxAgeDays: envInt("CINESTACK_LOG_MAX_AGE_DAYS", 28),
		},
	}
}

func envString(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envList(key string) []string {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	var out []string
	for _, entry := range strings.Split(v, ",") {
		if entry = strings.TrimSpace(entry); entry != "" {
			out = append(out, entry)
		}
	}
	return out
}

func envInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

func envDuration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fallback
	}
	return d
}
