// Package config handles environment variable loading for ports, database
// strings, budgets, etc.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config holds all configuration values for the application.
type Config struct {
	// Database connection string
	DatabaseURL string

	// Redis address for locks, kill switches and cursors. Empty means
	// in-memory stores (single-node mode).
	RedisAddr     string
	RedisPassword string
	RedisDB       int

	// HTTP server port for the controller
	HTTPPort int

	// Internal API token required on mutating endpoints
	InternalToken string

	// Base URL of the authoritative tax-registry verification API
	VerifyURL string

	// Webhook URL for critical-failure alerts. Empty disables alerting.
	AlertWebhookURL string

	// Default run budget when the trigger does not specify one
	DefaultMaxItems   int
	DefaultMaxRuntime time.Duration

	// Run lock TTL
	LockTTL time.Duration

	// Source adapter endpoints
	SEAPURL        string
	EUFundsURL     string
	ProviderURL    string
	ProviderAPIKey string

	// OTLP collector endpoint for tracing
	OTELEndpoint string
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}

	port := 6171 // Default
	if portStr := os.Getenv("PORT"); portStr != "" {
		p, err := strconv.Atoi(portStr)
		if err != nil {
			return nil, fmt.Errorf("invalid PORT: %w", err)
		}
		port = p
	}

	redisDB := 0
	if dbStr := os.Getenv("REDIS_DB"); dbStr != "" {
		d, err := strconv.Atoi(dbStr)
		if err != nil {
			return nil, fmt.Errorf("invalid REDIS_DB: %w", err)
		}
		redisDB = d
	}

	maxItems := 500
	if itemsStr := os.Getenv("DEFAULT_MAX_ITEMS"); itemsStr != "" {
		n, err := strconv.Atoi(itemsStr)
		if err != nil {
			return nil, fmt.Errorf("invalid DEFAULT_MAX_ITEMS: %w", err)
		}
		maxItems = n
	}

	maxRuntime := 10 * time.Minute
	if runtimeStr := os.Getenv("DEFAULT_MAX_RUNTIME"); runtimeStr != "" {
		d, err := time.ParseDuration(runtimeStr)
		if err != nil {
			return nil, fmt.Errorf("invalid DEFAULT_MAX_RUNTIME: %w", err)
		}
		maxRuntime = d
	}

	lockTTL := 15 * time.Minute
	if ttlStr := os.Getenv("LOCK_TTL"); ttlStr != "" {
		d, err := time.ParseDuration(ttlStr)
		if err != nil {
			return nil, fmt.Errorf("invalid LOCK_TTL: %w", err)
		}
		lockTTL = d
	}

	verifyURL := os.Getenv("VERIFY_URL")
	if verifyURL == "" {
		verifyURL = "https://webservicesp.anaf.ro/api"
	}

	seapURL := os.Getenv("SEAP_URL")
	if seapURL == "" {
		seapURL = "https://api.e-licitatie.ro/pub"
	}

	euFundsURL := os.Getenv("EUFUNDS_URL")
	if euFundsURL == "" {
		euFundsURL = "https://mfe.gov.ro/beneficiari/lista.xlsx"
	}

	return &Config{
		DatabaseURL:       dbURL,
		RedisAddr:         os.Getenv("REDIS_ADDR"),
		RedisPassword:     os.Getenv("REDIS_PASSWORD"),
		RedisDB:           redisDB,
		HTTPPort:          port,
		InternalToken:     os.Getenv("INTERNAL_TOKEN"),
		VerifyURL:         verifyURL,
		AlertWebhookURL:   os.Getenv("ALERT_WEBHOOK_URL"),
		DefaultMaxItems:   maxItems,
		DefaultMaxRuntime: maxRuntime,
		LockTTL:           lockTTL,
		SEAPURL:           seapURL,
		EUFundsURL:        euFundsURL,
		ProviderURL:       os.Getenv("PROVIDER_URL"),
		ProviderAPIKey:    os.Getenv("PROVIDER_API_KEY"),
		OTELEndpoint:      os.Getenv("OTEL_ENDPOINT"),
	}, nil
}
