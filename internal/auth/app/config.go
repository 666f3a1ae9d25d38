package app

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/sigilauth/sigil/pkg/jwtx"
)

type Config struct {
	Issuer   string   // Required: issuer claim for tokens (default: sigil)
	Audience []string // Optional: audience values to stamp/validate; empty disables the check

	AccessTokenTTL  time.Duration // Optional: access token lifetime (default: 1h)
	RefreshTokenTTL time.Duration // Optional: refresh token lifetime (default: 7 days)
	Leeway          time.Duration // Optional: clock skew tolerance for exp/nbf (default: 0)

	Algorithm      string        // Optional: JWT signing algorithm (RS256, ES256, EdDSA) (default: EdDSA)
	RSABits        int           // Optional: RSA key size for RS256 (default: 4096)
	KeyStorageMode string        // Optional: key storage mode (ephemeral, persistent) (default: ephemeral)
	KeyGracePeriod time.Duration // Optional: grace period for retired keys (default: 30 days)
	MasterKeyPath  string        // Optional: path to master encryption key file (for persistent keys)

	DatabaseFile  string // Optional: path to SQLite database file (default: ./sigil.db)
	RedisAddr     string // Optional: if set, revocations are tracked in Redis instead of SQLite
	RedisPassword string // Optional: Redis AUTH password
	RedisDB       int    // Optional: Redis logical database (default: 0)

	PepperFile string // Optional: path to file containing pepper for password hashing (default: ./pepper)

	// StoreTimeout caps each revocation store call; refresh and logout
	// fail closed when it elapses. Zero uses the service default.
	StoreTimeout time.Duration

	// CheckAccessRevocation makes access token verification consult the
	// revocation store. Off by default to keep the hot path store-free.
	CheckAccessRevocation bool

	// Bootstrap admin seeded on first run when the user table is empty.
	// Both username and password must be set for seeding to happen.
	AdminUsername      string
	AdminPassword      string
	AdminPreferredName string
	AdminScopes        []string

	Env                  string        // Environment (dev, staging, prod) (default: dev)
	LogLevel             string        // Log level (debug, info, warn, error) (default: info)
	LogFormat            string        // Log format (json, text) (default: json)
	Port                 int           // HTTP server port (default: 8080)
	ShutdownGracePeriod  time.Duration // Graceful shutdown timeout (default: 10s)
	HousekeepingInterval time.Duration // Housekeeping interval (default: 1h)
}

func LoadConfig() Config {
	cfg := Config{
		Issuer:   getEnvOrDefault("SIGIL_ISSUER", "sigil"),
		Audience: splitCSV(os.Getenv("SIGIL_AUDIENCE")),

		AccessTokenTTL:  getEnvDurationOrDefault("SIGIL_ACCESS_TOKEN_TTL", jwtx.DefaultAccessTokenTTL),
		RefreshTokenTTL: getEnvDurationOrDefault("SIGIL_REFRESH_TOKEN_TTL", jwtx.DefaultRefreshTokenTTL),
		Leeway:          getEnvDurationOrDefault("SIGIL_LEEWAY", 0),

		Algorithm:      getEnvOrDefault("SIGIL_ALGORITHM", "EdDSA"),
		KeyStorageMode: getEnvOrDefault("SIGIL_KEY_STORAGE_MODE", "ephemeral"),
		KeyGracePeriod: getEnvDurationOrDefault("SIGIL_KEY_GRACE_PERIOD", 30*24*time.Hour),
		MasterKeyPath:  os.Getenv("SIGIL_MASTER_KEY_PATH"),

		DatabaseFile:  getEnvOrDefault("SIGIL_DATABASE_FILE", "sigil.db"),
		RedisAddr:     os.Getenv("SIGIL_REDIS_ADDR"),
		RedisPassword: os.Getenv("SIGIL_REDIS_PASSWORD"),
		RedisDB:       getEnvIntOrDefault("SIGIL_REDIS_DB", 0),

		PepperFile: getEnvOrDefault("SIGIL_PEPPER_FILE", "pepper"),

		StoreTimeout: getEnvDurationOrDefault("SIGIL_STORE_TIMEOUT", 0),

		CheckAccessRevocation: getEnvBoolOrDefault("SIGIL_CHECK_ACCESS_REVOCATION", false),

		AdminUsername:      os.Getenv("SIGIL_ADMIN_USERNAME"),
		AdminPassword:      os.Getenv("SIGIL_ADMIN_PASSWORD"),
		AdminPreferredName: getEnvOrDefault("SIGIL_ADMIN_PREFERRED_NAME", "Administrator"),
		AdminScopes: splitCSVOrDefault(
			os.Getenv("SIGIL_ADMIN_SCOPES"),
			[]string{"profile:read", "admin:read", "admin:write"},
		),

		Env:                  getEnvOrDefault("ENV", "dev"),
		LogLevel:             getEnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:            getEnvOrDefault("LOG_FORMAT", "json"),
		Port:                 getEnvIntOrDefault("PORT", 8080),
		ShutdownGracePeriod:  getEnvDurationOrDefault("SHUTDOWN_GRACE_PERIOD", 10*time.Second),
		HousekeepingInterval: getEnvDurationOrDefault("HOUSEKEEPING_INTERVAL", 1*time.Hour),
	}

	// Parse RSA bits (only relevant for RS256)
	if rsaBitsStr := os.Getenv("SIGIL_RSA_BITS"); rsaBitsStr != "" {
		if bits, err := strconv.Atoi(rsaBitsStr); err == nil {
			cfg.RSABits = bits
		}
		// If parsing fails, RSABits remains 0 (will use default in KeyManager)
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

func getEnvBoolOrDefault(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	if boolValue, err := strconv.ParseBool(value); err == nil {
		return boolValue
	}

	return defaultValue
}

func getEnvDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	// Try parsing as duration (e.g., "1h", "30m", "90s")
	if duration, err := time.ParseDuration(value); err == nil {
		return duration
	}

	// Try parsing as integer minutes (for backwards compatibility)
	if minutes, err := strconv.Atoi(value); err == nil {
		return time.Duration(minutes) * time.Minute
	}

	return defaultValue
}

func splitCSV(value string) []string {
	if value == "" {
		return nil
	}

	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func splitCSVOrDefault(value string, defaultValue []string) []string {
	if out := splitCSV(value); out != nil {
		return out
	}
	return defaultValue
}
