package app

import (
	"os"
	"strconv"
	"time"

	"github.com/aussiebroadwan/voltex/internal/auth/service"
	"github.com/aussiebroadwan/voltex/pkg/httpx"
	"github.com/aussiebroadwan/voltex/pkg/jwtx"
)

// DefaultJWTSecret is only acceptable for local development. New logs a
// warning when it is in use.
const DefaultJWTSecret = "dev-insecure-secret-change-me"

type Config struct {
	JWTSecret string // HS256 signing key
	Issuer    string // iss claim (default: voltex-auth)
	Pepper    string // Optional: appended to passwords before Argon2id

	DBDriver       string // sqlite or postgres (default: sqlite)
	DatabaseFile   string // SQLite database file (default: auth.db)
	DBHost         string
	DBPort         int
	DBName         string
	DBUser         string
	DBPassword     string
	DBSSLMode      string
	DBPoolMax      int           // Max open connections (default: 20)
	DBPoolIdle     int           // DB_POOL_MIN: idle connections kept open (default: 2)
	DBPoolIdleTime time.Duration // Idle connection lifetime (default: 30s)

	AccessTokenTTL   time.Duration // Upper bound on access token lifetime (default: 15m)
	SessionTTL       time.Duration // Session lifetime (default: 24h)
	LockoutThreshold int           // Failed attempts before lockout (default: 5)
	LockoutDuration  time.Duration // Lockout length (default: 30m)

	Env                  string        // Environment (dev, staging, prod) (default: dev)
	LogLevel             string        // Log level (debug, info, warn, error) (default: info)
	LogFormat            string        // Log format (json, text) (default: json)
	Port                 int           // HTTP server port (default: 8080)
	TrustedProxies       string        // CIDRs or addresses allowed to set X-Forwarded-For (default: none)
	RateLimits           httpx.RateLimits
	ShutdownGracePeriod  time.Duration // Graceful shutdown timeout (default: 10s)
	HousekeepingInterval time.Duration // Housekeeping interval (default: 1h)
}

// LoadConfig reads the environment. Call it after godotenv.Load so values
// from a .env file are seen.
func LoadConfig() Config {
	return Config{
		JWTSecret: getEnvOrDefault("JWT_SECRET", DefaultJWTSecret),
		Issuer:    getEnvOrDefault("AUTH_ISSUER", "voltex-auth"),
		Pepper:    os.Getenv("PASSWORD_PEPPER"),

		DBDriver:       getEnvOrDefault("DB_DRIVER", "sqlite"),
		DatabaseFile:   getEnvOrDefault("DB_FILE", "auth.db"),
		DBHost:         getEnvOrDefault("DB_HOST", "localhost"),
		DBPort:         getEnvIntOrDefault("DB_PORT", 5432),
		DBName:         getEnvOrDefault("DB_NAME", "voltex"),
		DBUser:         getEnvOrDefault("DB_USER", "voltex"),
		DBPassword:     getEnvOrDefault("DB_PASSWORD", "voltex"),
		DBSSLMode:      getEnvOrDefault("DB_SSLMODE", "disable"),
		DBPoolMax:      getEnvIntOrDefault("DB_POOL_MAX", 20),
		DBPoolIdle:     getEnvIntOrDefault("DB_POOL_MIN", 2),
		DBPoolIdleTime: getEnvDurationOrDefault("DB_POOL_IDLE_TIMEOUT", 30*time.Second),

		AccessTokenTTL:   getEnvDurationOrDefault("ACCESS_TOKEN_TTL", jwtx.DefaultAccessTokenTTL),
		SessionTTL:       getEnvDurationOrDefault("SESSION_TTL", service.DefaultSessionTTL),
		LockoutThreshold: getEnvIntOrDefault("LOCKOUT_THRESHOLD", service.DefaultLockoutThreshold),
		LockoutDuration:  getEnvDurationOrDefault("LOCKOUT_DURATION", service.DefaultLockoutDuration),

		Env:                  getEnvOrDefault("ENV", "dev"),
		LogLevel:             getEnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:            getEnvOrDefault("LOG_FORMAT", "json"),
		Port:                 getEnvIntOrDefault("PORT", 8080),
		TrustedProxies:       os.Getenv("TRUSTED_PROXIES"),
		RateLimits:           httpx.LoadRateLimitsFromEnv(),
		ShutdownGracePeriod:  getEnvDurationOrDefault("SHUTDOWN_GRACE_PERIOD", 10*time.Second),
		HousekeepingInterval: getEnvDurationOrDefault("HOUSEKEEPING_INTERVAL", 1*time.Hour),
	}
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvIntOrDefault(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	if intValue, err := strconv.Atoi(value); err == nil {
		return intValue
	}

	return defaultValue
}

func getEnvDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	if duration, err := time.ParseDuration(value); err == nil {
		return duration
	}

	// Bare integers are minutes.
	if minutes, err := strconv.Atoi(value); err == nil {
		return time.Duration(minutes) * time.Minute
	}

	return defaultValue
}
