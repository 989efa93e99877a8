package app

import (
	"os"
	"strconv"
	"time"

	"github.com/authlab/authlab/pkg/cryptox"
	"github.com/authlab/authlab/pkg/jwtx"
)

type Config struct {
	JWTSecret string // Required in prod; generated per process when unset
	Issuer    string // Issuer claim for JWT tokens
	Audience  string // Audience claim for JWT tokens

	DatabaseFile string // Optional: path to SQLite file; empty selects the in-memory store

	AccessTokenTTL  time.Duration // JWT access token lifetime
	RefreshTokenTTL time.Duration // JWT refresh token lifetime
	SessionTTL      time.Duration // Server-side session lifetime

	BcryptCost int  // Password hashing cost
	MFASkew    uint // TOTP steps of clock-drift tolerance on each side

	OAuthClientID      string // Demo OAuth client id
	OAuthClientSecret  string // Demo OAuth client secret
	OAuthRedirectURI   string // Demo OAuth registered redirect URI
	SeedAdminPassword  string // Password for the seeded admin account
	SeedUserPassword   string // Password for the seeded regular account

	Env                  string        // Environment (dev, staging, prod) (default: dev)
	LogLevel             string        // Log level (debug, info, warn, error) (default: info)
	LogFormat            string        // Log format (json, text) (default: json)
	Port                 int           // HTTP server port (default: 8080)
	ShutdownGracePeriod  time.Duration // Graceful shutdown timeout (default: 10s)
	HousekeepingInterval time.Duration // Housekeeping interval (default: 1h)
}

func LoadConfig() Config {
	cfg := Config{
		JWTSecret:    os.Getenv("AUTH_JWT_SECRET"),
		Issuer:       getEnvOrDefault("AUTH_ISSUER", "authlab"),
		Audience:     getEnvOrDefault("AUTH_AUDIENCE", "authlab-clients"),
		DatabaseFile: os.Getenv("AUTH_DATABASE_FILE"),

		AccessTokenTTL:  getEnvDurationOrDefault("AUTH_ACCESS_TOKEN_TTL", jwtx.DefaultAccessTTL),
		RefreshTokenTTL: getEnvDurationOrDefault("AUTH_REFRESH_TOKEN_TTL", jwtx.DefaultRefreshTTL),
		SessionTTL:      getEnvDurationOrDefault("AUTH_SESSION_TTL", 24*time.Hour),

		BcryptCost: getEnvIntOrDefault("AUTH_BCRYPT_COST", cryptox.DefaultCost),

		OAuthClientID:     getEnvOrDefault("AUTH_OAUTH_CLIENT_ID", "demo-client"),
		OAuthClientSecret: getEnvOrDefault("AUTH_OAUTH_CLIENT_SECRET", "demo-secret"),
		OAuthRedirectURI:  getEnvOrDefault("AUTH_OAUTH_REDIRECT_URI", "http://localhost:3000/callback"),
		SeedAdminPassword: getEnvOrDefault("AUTH_SEED_ADMIN_PASSWORD", "admin123"),
		SeedUserPassword:  getEnvOrDefault("AUTH_SEED_USER_PASSWORD", "user123"),

		Env:                  getEnvOrDefault("ENV", "dev"),
		LogLevel:             getEnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:            getEnvOrDefault("LOG_FORMAT", "json"),
		Port:                 getEnvIntOrDefault("PORT", 8080),
		ShutdownGracePeriod:  getEnvDurationOrDefault("SHUTDOWN_GRACE_PERIOD", 10*time.Second),
		HousekeepingInterval: getEnvDurationOrDefault("HOUSEKEEPING_INTERVAL", 1*time.Hour),
	}

	if skew := getEnvIntOrDefault("AUTH_MFA_SKEW", 2); skew >= 0 {
		cfg.MFASkew = uint(skew)
	}

	return cfg
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

	return defaultValue
}
