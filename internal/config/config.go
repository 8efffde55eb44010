// Package config loads application configuration from environment variables.
package config

import (
	"log"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// Config holds all runtime configuration values. Each field corresponds to
// an environment variable.
type Config struct {
	Env            string // application environment (dev, test, prod)
	Port           string // HTTP port to listen on
	DBUser         string
	DBPass         string // empty allowed
	DBHost         string
	DBPort         string
	DBName         string
	JWTSecret      string // secret used to sign access tokens
	AccessTTLMin   int    // access token lifetime in minutes
	RefreshTTLDays int    // refresh token lifetime in days
	BcryptCost     int

	RateLimit RateLimitConfig
	Cache     CacheConfig
	Notify    NotifyConfig
	Tracing   TracingConfig
	Workflow  WorkflowConfig
}

// WorkflowConfig tunes the order workflow.
type WorkflowConfig struct {
	// RestockOnDelete returns the items of a deleted PENDING order to stock.
	// Off by default: deleting an order has always written the goods off.
	RestockOnDelete bool
}

// Load reads configuration values from the environment, after merging a
// .env file when one is present. Required variables are enforced by must()
// and missing values cause the program to exit with a fatal log message.
func Load() Config {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.Printf("config: .env not loaded: %v", err)
	}
	return Config{
		Env:            must("APP_ENV"),
		Port:           must("APP_PORT"),
		DBUser:         must("DB_USER"),
		DBPass:         os.Getenv("DB_PASS"),
		DBHost:         must("DB_HOST"),
		DBPort:         must("DB_PORT"),
		DBName:         must("DB_NAME"),
		JWTSecret:      must("JWT_SECRET"),
		AccessTTLMin:   mustInt("ACCESS_TOKEN_TTL_MIN"),
		RefreshTTLDays: envInt("REFRESH_TOKEN_TTL_DAYS", 7),
		BcryptCost:     envInt("BCRYPT_COST", 10),
		RateLimit:      LoadRateLimitConfig(),
		Cache:          LoadCacheConfig(),
		Notify:         LoadNotifyConfig(),
		Tracing:        LoadTracingConfig(),
		Workflow: WorkflowConfig{
			RestockOnDelete: envBool("WORKFLOW_RESTOCK_ON_DELETE", false),
		},
	}
}

// must retrieves the value of a required environment variable. If the
// variable is unset or empty, the application logs a fatal error and exits.
func must(key string) string {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		log.Fatalf("missing required env var: %s", key)
	}
	return v
}

// mustInt is like must() but converts the retrieved string into an integer.
func mustInt(key string) int {
	s := must(key)
	n, err := strconv.Atoi(s)
	if err != nil {
		log.Fatalf("invalid int for %s: %q", key, s)
	}
	return n
}
