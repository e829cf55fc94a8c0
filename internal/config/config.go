package config

import (
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	ServerPort string
	DBHost     string
	DBPort     string
	DBUser     string
	DBPassword string
	DBName     string
	DBSSLMode  string
	JWTSecret  string
	TokenTTL   time.Duration

	// AllowedOrigins is the CORS allow-list; a single "*" allows any origin.
	AllowedOrigins []string
	InviteBaseURL  string
	LogLevel       string
	AutoMigrate    bool

	WSWriteTimeout time.Duration
	WSReadLimit    int64
}

func Load() *Config {
	return &Config{
		ServerPort:     getEnv("SERVER_PORT", "8080"),
		DBHost:         getEnv("DB_HOST", "localhost"),
		DBPort:         getEnv("DB_PORT", "5432"),
		DBUser:         getEnv("DB_USER", "nexttask"),
		DBPassword:     getEnv("DB_PASSWORD", "nexttask_dev_password"),
		DBName:         getEnv("DB_NAME", "nexttask"),
		DBSSLMode:      getEnv("DB_SSLMODE", "disable"),
		JWTSecret:      getEnv("JWT_SECRET", "dev-secret-change-me"),
		TokenTTL:       getDuration("TOKEN_TTL", 24*time.Hour),
		AllowedOrigins: splitList(getEnv("ALLOWED_ORIGINS", "*")),
		InviteBaseURL:  strings.TrimRight(getEnv("INVITE_BASE_URL", "http://localhost:5173/invite"), "/"),
		LogLevel:       getEnv("LOG_LEVEL", "info"),
		AutoMigrate:    getBool("AUTO_MIGRATE", true),
		WSWriteTimeout: getDuration("WS_WRITE_TIMEOUT", 10*time.Second),
		WSReadLimit:    getInt64("WS_READ_LIMIT", 1<<20),
	}
}

// SlogLevel maps LogLevel onto a slog level, defaulting to info.
func (c *Config) SlogLevel() slog.Level {
	switch strings.ToLower(c.LogLevel) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func getEnv(key, fallback string) string {
	val, exists := os.LookupEnv(key)

	if exists {
		return val
	}

	return fallback
}

func getDuration(key string, fallback time.Duration) time.Duration {
	d, err := time.ParseDuration(getEnv(key, ""))
	if err != nil {
		return fallback
	}
	return d
}

func getBool(key string, fallback bool) bool {
	b, err := strconv.ParseBool(getEnv(key, ""))
	if err != nil {
		return fallback
	}
	return b
}

func getInt64(key string, fallback int64) int64 {
	n, err := strconv.ParseInt(getEnv(key, ""), 10, 64)
	if err != nil || n <= 0 {
		return fallback
	}
	return n
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
