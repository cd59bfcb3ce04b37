// Package config reads service configuration from the environment, after
// loading any .env file found next to the binary or one directory up.
package config

import (
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
	"stealthcompany.com/archaeoseeker/internal/catalog"
	"stealthcompany.com/archaeoseeker/internal/couchbase"
)

// Store backends
const (
	BackendMemory    = "memory"
	BackendCouchbase = "couchbase"
	BackendSQLite    = "sqlite"
	BackendRedis     = "redis"
)

// Config is the full service configuration
type Config struct {
	APIPort          string
	LogLevel         string
	ElasticsearchURL string
	PageSize         int

	StoreBackend string
	Couchbase    couchbase.Config

	LimiterBackend    string
	LimiterSQLitePath string
	RedisURL          string
	// TrustedProxies are addresses or CIDR ranges allowed to set X-Forwarded-For
	TrustedProxies []string

	JWTSecret         string
	AdminEmail        string
	AdminPasswordHash string
	Keycloak          KeycloakConfig
}

// KeycloakConfig holds Keycloak password-grant settings; URL empty disables it
type KeycloakConfig struct {
	URL          string
	Realm        string
	ClientID     string
	ClientSecret string
}

// LoadDotEnv loads ../.env, then .env, ignoring missing files
func LoadDotEnv() {
	if err := godotenv.Load("../.env"); err != nil {
		log.Debug().Msg("Not found .env file in parent directory, trying current directory")
		if err := godotenv.Load(".env"); err != nil {
			log.Debug().Msg("Not found .env file in current directory, assuming environment variables are set")
		}
	}
}

// Load reads the configuration from the environment
func Load() Config {
	return Config{
		APIPort:          getEnvOrDefault("API_PORT", "8080"),
		LogLevel:         getEnvOrDefault("LOG_LEVEL", "info"),
		ElasticsearchURL: os.Getenv("ELASTICSEARCH_URL"),
		PageSize:         getIntOrDefault("PAGE_SIZE", catalog.DefaultPageSize),

		StoreBackend: getEnvOrDefault("STORE_BACKEND", BackendMemory),
		Couchbase: couchbase.Config{
			URL:      getEnvOrDefault("COUCHBASE_URL", "couchbase://localhost"),
			Username: getEnvOrDefault("COUCHBASE_USERNAME", "archaeoseeker"),
			Password: getEnvOrDefault("COUCHBASE_PASSWORD", "password"),
			Bucket:   getEnvOrDefault("COUCHBASE_BUCKET", "archaeoseeker"),
			Scope:    getEnvOrDefault("COUCHBASE_SCOPE", "_default"),
		},

		LimiterBackend:    getEnvOrDefault("LIMITER_BACKEND", BackendMemory),
		LimiterSQLitePath: getEnvOrDefault("LIMITER_SQLITE_PATH", "login_attempts.db"),
		RedisURL:          os.Getenv("REDIS_URL"),
		TrustedProxies:    getList("TRUSTED_PROXIES"),

		JWTSecret:         os.Getenv("JWT_SECRET"),
		AdminEmail:        os.Getenv("ADMIN_EMAIL"),
		AdminPasswordHash: os.Getenv("ADMIN_PASSWORD_HASH"),
		Keycloak: KeycloakConfig{
			URL:          os.Getenv("KEYCLOAK_URL"),
			Realm:        os.Getenv("KEYCLOAK_REALM"),
			ClientID:     os.Getenv("KEYCLOAK_CLIENT_ID"),
			ClientSecret: os.Getenv("KEYCLOAK_CLIENT_SECRET"),
		},
	}
}

// getEnvOrDefault returns the variable or def when unset
func getEnvOrDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

// getList splits a comma-separated variable, dropping empty entries
func getList(key string) []string {
	var out []string
	for _, v := range strings.Split(os.Getenv(key), ",") {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}

func getIntOrDefault(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		log.Warn().Str("key", key).Str("value", v).Int("default", def).Msg("Invalid integer setting, using default")
		return def
	}
	return n
}
